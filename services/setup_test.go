package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

// fixture wires the full service graph against in-memory collaborators,
// without snapshots or media storage.
type fixture struct {
	tournaments   TournamentService
	registrations RegistrationService
	matches       MatchService
	metadata      MetadataService

	bus      *events.Channel
	bracket  brackets.Engine
	teamRepo repositories.TeamRepository
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tournamentRepo := repositories.NewMemoryTournamentRepository()
	teamRepo := repositories.NewMemoryTeamRepository()
	regRepo := repositories.NewMemoryRegistrationRepository()
	metadataRepo := repositories.NewMemoryMetadataRepository()

	bus := events.NewChannel()
	bracket := brackets.NewMemoryEngine()
	locks := NewAggregateLocks()

	tournaments := NewTournamentService(
		tournamentRepo, teamRepo, regRepo, metadataRepo,
		bracket, nil, nil, bus, locks, logger,
	)
	registrations := NewRegistrationService(
		regRepo, teamRepo, tournamentRepo, tournaments, nil, bus, locks, logger,
	)
	matches := NewMatchService(tournaments, teamRepo, bracket, bus, locks, logger)
	metadata := NewMetadataService(metadataRepo, tournaments, bus)

	return &fixture{
		tournaments:   tournaments,
		registrations: registrations,
		matches:       matches,
		metadata:      metadata,
		bus:           bus,
		bracket:       bracket,
		teamRepo:      teamRepo,
	}
}

func intPtr(v int) *int { return &v }

// countEvents tracks how many events arrive on topic after the call.
func countEvents(fx *fixture, topic events.Topic) *int {
	count := new(int)
	fx.bus.Subscribe(topic, func(interface{}) { *count++ })
	return count
}

func createTournament(t *testing.T, fx *fixture, teamSize int, stages ...models.StageSpec) *models.Tournament {
	t.Helper()
	if len(stages) == 0 {
		stages = []models.StageSpec{{Type: models.StageSingleElimination}}
	}
	tournament, err := fx.tournaments.CreateTournament(context.Background(), CreateTournamentInput{
		Name:      "Forge Open",
		StartDate: time.Now(),
		EndDate:   time.Now().Add(48 * time.Hour),
		Stages:    stages,
		TeamSize:  teamSize,
	})
	require.NoError(t, err)
	return tournament
}

// soloEntrants registers, approves, and converts the named solo entrants.
func soloEntrants(t *testing.T, fx *fixture, tournamentID int, entrants ...string) []*models.Team {
	t.Helper()
	ctx := context.Background()

	_, err := fx.tournaments.SetState(ctx, tournamentID, models.StateRegistrationOpen)
	require.NoError(t, err)

	for _, name := range entrants {
		_, err := fx.registrations.SubmitRegistration(ctx, tournamentID, SubmitRegistrationInput{
			Email: name + "@example.com",
			Name:  name,
		})
		require.NoError(t, err)
	}

	_, err = fx.tournaments.SetState(ctx, tournamentID, models.StateConfirmation)
	require.NoError(t, err)

	for _, name := range entrants {
		_, err := fx.registrations.SetApproval(ctx, tournamentID, name+"@example.com", true)
		require.NoError(t, err)
	}

	teams, err := fx.registrations.ConvertToTeams(ctx, tournamentID)
	require.NoError(t, err)
	require.Len(t, teams, len(entrants))
	return teams
}

func seedInOrder(t *testing.T, fx *fixture, tournamentID int, teams []*models.Team) {
	t.Helper()
	assignments := make([]SeedAssignment, len(teams))
	for i, team := range teams {
		assignments[i] = SeedAssignment{TeamID: team.ID, SeedNumber: intPtr(i)}
	}
	_, err := fx.registrations.AssignSeedNumbers(context.Background(), tournamentID, assignments)
	require.NoError(t, err)
}

// runningKnockout drives a four-entrant single elimination tournament to
// Running and returns it with its teams in seed order.
func runningKnockout(t *testing.T, fx *fixture) (*models.Tournament, []*models.Team) {
	t.Helper()
	ctx := context.Background()

	tournament := createTournament(t, fx, 1)
	teams := soloEntrants(t, fx, tournament.ID, "alpha", "bravo", "charlie", "delta")
	seedInOrder(t, fx, tournament.ID, teams)

	started, err := fx.tournaments.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateRunning, started.State)
	return started, teams
}
