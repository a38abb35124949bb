package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bracketforge/bracketforge/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

// TournamentRepository owns the authoritative tournament records. The
// in-memory implementation is the source of truth at runtime; durable
// snapshots go through SnapshotRepository separately.
type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Update(ctx context.Context, t *models.Tournament) error
	Delete(ctx context.Context, id int) error
	Snapshot(ctx context.Context) (map[int]*models.Tournament, error)
	Restore(ctx context.Context, tournaments map[int]*models.Tournament) error
}

type memoryTournamentRepository struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]*models.Tournament
}

func NewMemoryTournamentRepository() TournamentRepository {
	return &memoryTournamentRepository{
		nextID: 1,
		items:  make(map[int]*models.Tournament),
	}
}

func (r *memoryTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now().UTC()
	r.items[t.ID] = cloneTournament(t)
	return nil
}

func (r *memoryTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r *memoryTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Tournament, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[t.ID]; !ok {
		return ErrTournamentNotFound
	}
	r.items[t.ID] = cloneTournament(t)
	return nil
}

func (r *memoryTournamentRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrTournamentNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryTournamentRepository) Snapshot(ctx context.Context) (map[int]*models.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]*models.Tournament, len(r.items))
	for id, t := range r.items {
		out[id] = cloneTournament(t)
	}
	return out, nil
}

func (r *memoryTournamentRepository) Restore(ctx context.Context, tournaments map[int]*models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[int]*models.Tournament, len(tournaments))
	maxID := 0
	for id, t := range tournaments {
		r.items[id] = cloneTournament(t)
		if id > maxID {
			maxID = id
		}
	}
	r.nextID = maxID + 1
	return nil
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	cp := *t
	if t.RegOpenDate != nil {
		d := *t.RegOpenDate
		cp.RegOpenDate = &d
	}
	if t.BannerKey != nil {
		k := *t.BannerKey
		cp.BannerKey = &k
	}
	if t.BannerURL != nil {
		u := *t.BannerURL
		cp.BannerURL = &u
	}
	cp.Stages = make([]models.StageSpec, len(t.Stages))
	copy(cp.Stages, t.Stages)
	for i, s := range t.Stages {
		if s.Settings != nil {
			settings := *s.Settings
			cp.Stages[i].Settings = &settings
		}
	}
	return &cp
}
