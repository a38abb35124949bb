package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

// MetadataService manages auxiliary per-match display titles. Titles are
// last-writer-wins and independent of match state: setting one never
// touches the match itself.
type MetadataService interface {
	GetMetadata(ctx context.Context, tournamentID, matchID int) (*models.MatchMetadata, error)
	SetMetadata(ctx context.Context, tournamentID, matchID int, title string) (*models.MatchMetadata, error)
}

type metadataService struct {
	metadataRepo repositories.MetadataRepository
	tournaments  TournamentService
	bus          *events.Channel
}

func NewMetadataService(
	metadataRepo repositories.MetadataRepository,
	tournaments TournamentService,
	bus *events.Channel,
) MetadataService {
	return &metadataService{
		metadataRepo: metadataRepo,
		tournaments:  tournaments,
		bus:          bus,
	}
}

func (s *metadataService) GetMetadata(ctx context.Context, tournamentID, matchID int) (*models.MatchMetadata, error) {
	md, err := s.metadataRepo.Get(ctx, tournamentID, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMetadataNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrMetadataNotFound, matchID)
		}
		return nil, err
	}
	return md, nil
}

func (s *metadataService) SetMetadata(ctx context.Context, tournamentID, matchID int, title string) (*models.MatchMetadata, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, err
	}

	md := &models.MatchMetadata{
		TournamentID: tournamentID,
		MatchID:      matchID,
		Title:        title,
	}
	if err := s.metadataRepo.Put(ctx, md); err != nil {
		return nil, fmt.Errorf("failed to store match metadata: %w", err)
	}

	s.bus.Publish(events.TopicMatchMetadataUpdated, md)
	return md, nil
}
