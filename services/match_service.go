package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

// MatchService is the match progression protocol. Every mutation requires
// the owning tournament's current stage to be resolvable, is serialized
// under the tournament's aggregate lock, and publishes exactly one event
// on success. Failures publish nothing and leave state unchanged.
//
// Any terminal result (forfeit, selected winner, declared draw) forces the
// match to Completed, so a decided match never accepts further scoring.
type MatchService interface {
	GetMatch(ctx context.Context, tournamentID, matchID int) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// StartMatch moves a Ready match to Running, seeding both scores to 0.
	StartMatch(ctx context.Context, tournamentID, matchID int) (*models.Match, error)
	// UpdateScore applies a relative delta to the slot held by the team.
	// Scores are not clamped; negative values are representable.
	UpdateScore(ctx context.Context, tournamentID, teamID, matchID, delta int) (*models.Match, error)
	// Forfeit flags the team's slot and awards the other slot a win.
	Forfeit(ctx context.Context, tournamentID, teamID, matchID int) (*models.Match, error)
	SelectWinner(ctx context.Context, tournamentID, teamID, matchID int) (*models.Match, error)
	DeclareDraw(ctx context.Context, tournamentID, matchID int) (*models.Match, error)
	// Reset clears a match back to its pre-result state. Resetting an
	// already-reset match is a no-op success.
	Reset(ctx context.Context, tournamentID, matchID int) (*models.Match, error)
	// UpdateMatch is the generic merge-patch escape hatch. It always
	// publishes the freshly re-read match.
	UpdateMatch(ctx context.Context, tournamentID, matchID int, patch brackets.MatchPatch) (*models.Match, error)
}

type matchService struct {
	tournaments TournamentService
	teamRepo    repositories.TeamRepository
	bracket     brackets.Engine
	bus         *events.Channel
	locks       *AggregateLocks
	logger      *slog.Logger
}

func NewMatchService(
	tournaments TournamentService,
	teamRepo repositories.TeamRepository,
	bracket brackets.Engine,
	bus *events.Channel,
	locks *AggregateLocks,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tournaments: tournaments,
		teamRepo:    teamRepo,
		bracket:     bracket,
		bus:         bus,
		locks:       locks,
		logger:      logger,
	}
}

// resolve locates a match within the tournament's current stage.
func (s *matchService) resolve(ctx context.Context, tournamentID, matchID int) (*models.Stage, *models.Match, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, nil, err
	}

	stage, err := s.bracket.GetCurrentStage(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, brackets.ErrStageNotFound) {
			return nil, nil, fmt.Errorf("%w: tournament %d", ErrStageNotFound, tournamentID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	match, err := s.bracket.GetMatch(ctx, stage.ID, matchID)
	if err != nil {
		if errors.Is(err, brackets.ErrMatchNotFound) {
			return nil, nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, matchID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}
	return stage, match, nil
}

// slotOf identifies which opponent slot the team occupies: 1, 2, or an
// ErrTeamNotInMatch failure.
func (s *matchService) slotOf(ctx context.Context, stageID, tournamentID, teamID int, match *models.Match) (int, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil || team.TournamentID != tournamentID {
		return 0, fmt.Errorf("%w: id %d", ErrTeamNotFound, teamID)
	}

	pid, err := s.participantFor(ctx, stageID, team)
	if err != nil {
		return 0, err
	}

	switch {
	case match.Opponent1.ParticipantID != nil && *match.Opponent1.ParticipantID == pid:
		return 1, nil
	case match.Opponent2.ParticipantID != nil && *match.Opponent2.ParticipantID == pid:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: team %d in match %d", ErrTeamNotInMatch, teamID, match.ID)
	}
}

// participantFor maps a team into the stage's participant space. The
// recorded participant id wins when it belongs to the stage; later stages
// assign fresh ids, so those resolve through the seed index, which every
// stage shares with the seeding list. Team names are free-form and not
// unique, so they are never used as a resolution key.
func (s *matchService) participantFor(ctx context.Context, stageID int, team *models.Team) (int, error) {
	parts, err := s.bracket.ListParticipants(ctx, stageID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}
	if team.ParticipantID != nil {
		for _, p := range parts {
			if p.ID == *team.ParticipantID {
				return p.ID, nil
			}
		}
	}
	if team.SeedNumber != nil {
		for _, p := range parts {
			if p.SeedIndex == *team.SeedNumber {
				return p.ID, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: team %d", ErrTeamNotConverted, team.ID)
}

func (s *matchService) GetMatch(ctx context.Context, tournamentID, matchID int) (*models.Match, error) {
	_, match, err := s.resolve(ctx, tournamentID, matchID)
	return match, err
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	stage, err := s.bracket.GetCurrentStage(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, brackets.ErrStageNotFound) {
			return nil, fmt.Errorf("%w: tournament %d", ErrStageNotFound, tournamentID)
		}
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}
	matches, err := s.bracket.SelectMatches(ctx, stage.ID, brackets.MatchFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}
	return matches, nil
}

func (s *matchService) StartMatch(ctx context.Context, tournamentID, matchID int) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, match, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchReady {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotReady, matchID, match.Status)
	}

	zero := 0
	running := models.MatchRunning
	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, brackets.MatchPatch{
		Status:    &running,
		Opponent1: &brackets.OpponentPatch{Score: &zero},
		Opponent2: &brackets.OpponentPatch{Score: &zero},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchStarted, updated)
	return updated, nil
}

func (s *matchService) UpdateScore(ctx context.Context, tournamentID, teamID, matchID, delta int) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, match, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchRunning {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotRunning, matchID, match.Status)
	}

	slot, err := s.slotOf(ctx, stage.ID, tournamentID, teamID, match)
	if err != nil {
		return nil, err
	}

	opponent := &match.Opponent1
	if slot == 2 {
		opponent = &match.Opponent2
	}
	current := 0
	if opponent.Score != nil {
		current = *opponent.Score
	}
	next := current + delta

	patch := brackets.MatchPatch{}
	if slot == 1 {
		patch.Opponent1 = &brackets.OpponentPatch{Score: &next}
	} else {
		patch.Opponent2 = &brackets.OpponentPatch{Score: &next}
	}

	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchUpdated, updated)
	return updated, nil
}

func (s *matchService) Forfeit(ctx context.Context, tournamentID, teamID, matchID int) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, match, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchRunning {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotRunning, matchID, match.Status)
	}

	slot, err := s.slotOf(ctx, stage.ID, tournamentID, teamID, match)
	if err != nil {
		return nil, err
	}

	forfeited := true
	win := models.ResultWin
	completed := models.MatchCompleted
	patch := brackets.MatchPatch{Status: &completed}
	if slot == 1 {
		patch.Opponent1 = &brackets.OpponentPatch{Forfeit: &forfeited}
		patch.Opponent2 = &brackets.OpponentPatch{Result: &win}
	} else {
		patch.Opponent2 = &brackets.OpponentPatch{Forfeit: &forfeited}
		patch.Opponent1 = &brackets.OpponentPatch{Result: &win}
	}

	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchUpdated, updated)
	return updated, nil
}

func (s *matchService) SelectWinner(ctx context.Context, tournamentID, teamID, matchID int) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, match, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchRunning {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotRunning, matchID, match.Status)
	}

	slot, err := s.slotOf(ctx, stage.ID, tournamentID, teamID, match)
	if err != nil {
		return nil, err
	}

	win, loss := models.ResultWin, models.ResultLoss
	completed := models.MatchCompleted
	patch := brackets.MatchPatch{Status: &completed}
	if slot == 1 {
		patch.Opponent1 = &brackets.OpponentPatch{Result: &win}
		patch.Opponent2 = &brackets.OpponentPatch{Result: &loss}
	} else {
		patch.Opponent2 = &brackets.OpponentPatch{Result: &win}
		patch.Opponent1 = &brackets.OpponentPatch{Result: &loss}
	}

	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchUpdated, updated)
	return updated, nil
}

func (s *matchService) DeclareDraw(ctx context.Context, tournamentID, matchID int) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, match, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchRunning {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotRunning, matchID, match.Status)
	}

	draw := models.ResultDraw
	completed := models.MatchCompleted
	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, brackets.MatchPatch{
		Status:    &completed,
		Opponent1: &brackets.OpponentPatch{Result: &draw},
		Opponent2: &brackets.OpponentPatch{Result: &draw},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchUpdated, updated)
	return updated, nil
}

func (s *matchService) Reset(ctx context.Context, tournamentID, matchID int) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, match, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}

	status := models.MatchLocked
	switch {
	case match.Opponent1.ParticipantID != nil && match.Opponent2.ParticipantID != nil:
		status = models.MatchReady
	case match.Opponent1.ParticipantID != nil || match.Opponent2.ParticipantID != nil:
		status = models.MatchWaiting
	}

	noForfeit := false
	undetermined := models.ResultUndetermined
	cleared := brackets.OpponentPatch{ClearScore: true, Forfeit: &noForfeit, Result: &undetermined}
	o1, o2 := cleared, cleared

	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, brackets.MatchPatch{
		Status:    &status,
		Opponent1: &o1,
		Opponent2: &o2,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchUpdated, updated)
	return updated, nil
}

func (s *matchService) UpdateMatch(ctx context.Context, tournamentID, matchID int, patch brackets.MatchPatch) (*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	stage, _, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}

	updated, err := s.bracket.UpdateMatch(ctx, stage.ID, matchID, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBracketUnavailable, err)
	}

	s.bus.Publish(events.TopicMatchUpdated, updated)
	return updated, nil
}
