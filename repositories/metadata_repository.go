package repositories

import (
	"context"
	"errors"
	"sync"

	"github.com/bracketforge/bracketforge/models"
)

var ErrMetadataNotFound = errors.New("match metadata not found")

type metadataKey struct {
	tournamentID int
	matchID      int
}

// MetadataRepository stores auxiliary per-match display titles. Writes are
// last-writer-wins and never affect match state.
type MetadataRepository interface {
	Get(ctx context.Context, tournamentID, matchID int) (*models.MatchMetadata, error)
	Put(ctx context.Context, md *models.MatchMetadata) error
	DeleteByTournament(ctx context.Context, tournamentID int) error
}

type memoryMetadataRepository struct {
	mu    sync.RWMutex
	items map[metadataKey]*models.MatchMetadata
}

func NewMemoryMetadataRepository() MetadataRepository {
	return &memoryMetadataRepository{
		items: make(map[metadataKey]*models.MatchMetadata),
	}
}

func (r *memoryMetadataRepository) Get(ctx context.Context, tournamentID, matchID int) (*models.MatchMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	md, ok := r.items[metadataKey{tournamentID, matchID}]
	if !ok {
		return nil, ErrMetadataNotFound
	}
	cp := *md
	return &cp, nil
}

func (r *memoryMetadataRepository) Put(ctx context.Context, md *models.MatchMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *md
	r.items[metadataKey{md.TournamentID, md.MatchID}] = &cp
	return nil
}

func (r *memoryMetadataRepository) DeleteByTournament(ctx context.Context, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.items {
		if key.tournamentID == tournamentID {
			delete(r.items, key)
		}
	}
	return nil
}
