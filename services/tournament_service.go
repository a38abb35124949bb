package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
	"github.com/bracketforge/bracketforge/storage"
)

type CreateTournamentInput struct {
	Name        string             `json:"name"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	RegOpenDate *time.Time         `json:"reg_open_date,omitempty"`
	Stages      []models.StageSpec `json:"stages"`
	TeamSize    int                `json:"team_size"`
}

// TournamentService is the lifecycle engine: it owns every tournament
// state transition and orchestrates stage creation, cascading deletion,
// and event publication. All mutations are serialized per tournament;
// events are published after the mutation is applied and before the
// aggregate lock is released.
type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]*models.Tournament, error)
	SetState(ctx context.Context, id int, target models.TournamentState) (*models.Tournament, error)
	StartTournament(ctx context.Context, id int) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	UploadBanner(ctx context.Context, id int, contentType string, banner io.Reader) (*models.Tournament, error)

	// IsRegistrationOpen is the single registration-window predicate: a
	// tournament accepts registrations while in RegistrationOpen, or
	// while still New once its declared open date has passed.
	IsRegistrationOpen(t *models.Tournament, now time.Time) bool
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	regRepo        repositories.RegistrationRepository
	metadataRepo   repositories.MetadataRepository
	bracket        brackets.Engine
	snapshots      repositories.SnapshotRepository
	uploader       storage.FileUploader
	bus            *events.Channel
	locks          *AggregateLocks
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	regRepo repositories.RegistrationRepository,
	metadataRepo repositories.MetadataRepository,
	bracket brackets.Engine,
	snapshots repositories.SnapshotRepository,
	uploader storage.FileUploader,
	bus *events.Channel,
	locks *AggregateLocks,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		regRepo:        regRepo,
		metadataRepo:   metadataRepo,
		bracket:        bracket,
		snapshots:      snapshots,
		uploader:       uploader,
		bus:            bus,
		locks:          locks,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.TeamSize < 1 {
		return nil, ErrInvalidTeamSize
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, ErrInvalidDateRange
	}

	t := &models.Tournament{
		Name:        input.Name,
		State:       models.StateNew,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		RegOpenDate: input.RegOpenDate,
		Stages:      input.Stages,
		TeamSize:    input.TeamSize,
	}
	// Supplying an open date opens registration immediately; the date does
	// not defer opening. A future date on a New tournament is still
	// honored by IsRegistrationOpen.
	if input.RegOpenDate != nil {
		t.State = models.StateRegistrationOpen
	}

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.bus.Publish(events.TopicTournamentCreated, t)
	s.persist(ctx)
	return t, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx)
}

func (s *tournamentService) IsRegistrationOpen(t *models.Tournament, now time.Time) bool {
	if t.State == models.StateRegistrationOpen {
		return true
	}
	return t.State == models.StateNew && t.RegOpenDate != nil && !now.Before(*t.RegOpenDate)
}

// SetState advances the tournament state machine. Transitions are strictly
// increasing; Running is reachable only through StartTournament.
func (s *tournamentService) SetState(ctx context.Context, id int, target models.TournamentState) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if target <= t.State {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, target)
	}

	switch target {
	case models.StateRegistrationOpen, models.StateConfirmation, models.StateSeeding, models.StateComplete:
		// handled below
	case models.StateFinalizing:
		if !t.PlayersSeeded {
			return nil, fmt.Errorf("%w: cannot finalize", ErrTournamentNotSeeded)
		}
	case models.StateRunning:
		return nil, fmt.Errorf("%w: running is only reachable through tournament start", ErrInvalidTransition)
	default:
		return nil, fmt.Errorf("%w: unknown target state %d", ErrInvalidTransition, target)
	}

	t.State = target
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}

	switch target {
	case models.StateRegistrationOpen:
		s.bus.Publish(events.TopicRegistrationOpened, t)
	case models.StateConfirmation:
		s.bus.Publish(events.TopicRegistrationClosed, t)
	}
	s.bus.Publish(events.TopicTournamentStateChanged, t)

	s.persist(ctx)
	return t, nil
}

// StartTournament materializes every declared stage from the seeded team
// list, in declared order, then advances to Running. Stage creation is not
// transactional across stages: if a later stage fails, earlier stages stay
// materialized and the error is surfaced.
func (s *tournamentService) StartTournament(ctx context.Context, id int) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.State >= models.StateRunning {
		return nil, fmt.Errorf("%w: tournament %d", ErrTournamentAlreadyRunning, id)
	}
	if len(t.Stages) == 0 {
		return nil, ErrNoStagesDeclared
	}

	teams, err := s.teamRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", id, err)
	}
	seeding, seeded := buildSeeding(teams)
	if len(seeding) == 0 {
		return nil, fmt.Errorf("%w: no seeded teams", ErrTournamentNotSeeded)
	}

	var firstStage *models.Stage
	for i, spec := range t.Stages {
		stage, err := s.bracket.CreateStage(ctx, id, spec, seeding)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %d (%s): %v", ErrBracketUnavailable, i+1, spec.Type, err)
		}
		s.logger.Info("stage created",
			slog.Int("tournament_id", id),
			slog.Int("stage_id", stage.ID),
			slog.String("type", string(spec.Type)))
		if firstStage == nil {
			firstStage = stage
		}
	}

	// Record the first stage's participant ids back onto the teams so
	// callers can correlate bracket slots with teams.
	if err := s.linkParticipants(ctx, firstStage.ID, seeded); err != nil {
		return nil, err
	}

	t.State = models.StateRunning
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}

	s.bus.Publish(events.TopicTournamentStarted, t)
	s.persist(ctx)
	return t, nil
}

// buildSeeding orders seeded teams into a seeding list indexed by seed
// number, nil entries standing for byes. Unseeded teams are excluded.
func buildSeeding(teams []*models.Team) ([]*string, []*models.Team) {
	maxSeed := -1
	for _, team := range teams {
		if team.SeedNumber != nil && *team.SeedNumber > maxSeed {
			maxSeed = *team.SeedNumber
		}
	}
	if maxSeed < 0 {
		return nil, nil
	}

	seeding := make([]*string, maxSeed+1)
	seeded := make([]*models.Team, maxSeed+1)
	for _, team := range teams {
		if team.SeedNumber == nil {
			continue
		}
		name := team.Name
		seeding[*team.SeedNumber] = &name
		seeded[*team.SeedNumber] = team
	}
	return seeding, seeded
}

func (s *tournamentService) linkParticipants(ctx context.Context, stageID int, seeded []*models.Team) error {
	parts, err := s.bracket.ListParticipants(ctx, stageID)
	if err != nil {
		return fmt.Errorf("%w: failed to list participants: %v", ErrBracketUnavailable, err)
	}
	for _, p := range parts {
		if p.SeedIndex >= len(seeded) || seeded[p.SeedIndex] == nil {
			continue
		}
		team := seeded[p.SeedIndex]
		pid := p.ID
		team.ParticipantID = &pid
		if err := s.teamRepo.Update(ctx, team); err != nil {
			return fmt.Errorf("failed to link team %d to participant %d: %w", team.ID, pid, err)
		}
	}
	return nil
}

// DeleteTournament cascades through registrations, teams, bracket state,
// metadata, and stored media before removing the tournament itself.
func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.regRepo.DeleteByTournament(ctx, id); err != nil {
		return fmt.Errorf("failed to delete registrations for tournament %d: %w", id, err)
	}
	if err := s.teamRepo.DeleteByTournament(ctx, id); err != nil {
		return fmt.Errorf("failed to delete teams for tournament %d: %w", id, err)
	}
	if err := s.bracket.DeleteByTournament(ctx, id); err != nil {
		return fmt.Errorf("%w: failed to delete bracket state: %v", ErrBracketUnavailable, err)
	}
	if err := s.metadataRepo.DeleteByTournament(ctx, id); err != nil {
		return fmt.Errorf("failed to delete metadata for tournament %d: %w", id, err)
	}
	if s.uploader != nil && t.BannerKey != nil {
		if err := s.uploader.Delete(ctx, *t.BannerKey); err != nil {
			s.logger.Warn("failed to delete tournament banner",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	s.bus.Publish(events.TopicTournamentDeleted, id)
	s.persist(ctx)
	return nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, id int, contentType string, banner io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: no media storage configured", ErrPersistenceUnavailable)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/banner", id)
	result, err := s.uploader.Upload(ctx, key, contentType, banner)
	if err != nil {
		return nil, fmt.Errorf("%w: banner upload failed: %v", ErrPersistenceUnavailable, err)
	}

	t.BannerKey = &result.Key
	t.BannerURL = &result.Location
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}

	s.persist(ctx)
	return t, nil
}

func (s *tournamentService) persist(ctx context.Context) {
	persistSnapshots(ctx, s.logger, s.snapshots, s.tournamentRepo, s.teamRepo)
}
