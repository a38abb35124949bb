package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
)

func TestRunningKnockoutExposesBracket(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, _ := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Both semifinals pair the four seeded entrants; the final waits.
	seen := make(map[int]bool)
	for _, m := range matches[:2] {
		assert.Equal(t, models.MatchReady, m.Status)
		require.NotNil(t, m.Opponent1.ParticipantID)
		require.NotNil(t, m.Opponent2.ParticipantID)
		seen[*m.Opponent1.ParticipantID] = true
		seen[*m.Opponent2.ParticipantID] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, models.MatchLocked, matches[2].Status)
}

func TestStartMatch(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, _ := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)

	started := countEvents(fx, events.TopicMatchStarted)
	match, err := fx.matches.StartMatch(ctx, tournament.ID, matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchRunning, match.Status)
	assert.Equal(t, 0, *match.Opponent1.Score)
	assert.Equal(t, 0, *match.Opponent2.Score)
	assert.Equal(t, 1, *started)

	// The final is not ready yet.
	_, err = fx.matches.StartMatch(ctx, tournament.ID, matches[2].ID)
	assert.ErrorIs(t, err, ErrMatchNotReady)
	assert.Equal(t, KindConflict, Kind(err))
	assert.Equal(t, 1, *started)
}

func TestScoreThenForfeit(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi := matches[0]
	alpha, bravo := teams[0], teams[1]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)

	_, err = fx.matches.UpdateScore(ctx, tournament.ID, alpha.ID, semi.ID, 1)
	require.NoError(t, err)
	match, err := fx.matches.UpdateScore(ctx, tournament.ID, alpha.ID, semi.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, *match.Opponent1.Score)

	match, err = fx.matches.Forfeit(ctx, tournament.ID, bravo.ID, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	assert.True(t, match.Opponent2.Forfeit)
	assert.Equal(t, models.ResultWin, match.Opponent1.Result)

	// A decided match accepts no further scoring, and publishes nothing.
	updated := countEvents(fx, events.TopicMatchUpdated)
	_, err = fx.matches.UpdateScore(ctx, tournament.ID, alpha.ID, semi.ID, 1)
	assert.ErrorIs(t, err, ErrMatchNotRunning)
	assert.Equal(t, KindConflict, Kind(err))
	assert.Zero(t, *updated)

	got, err := fx.matches.GetMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, *got.Opponent1.Score)
}

func TestScoreRequiresRunningMatch(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)

	updated := countEvents(fx, events.TopicMatchUpdated)
	_, err = fx.matches.UpdateScore(ctx, tournament.ID, teams[0].ID, matches[0].ID, 1)
	assert.ErrorIs(t, err, ErrMatchNotRunning)
	assert.Zero(t, *updated)
}

func TestScoreRejectsOutsiderTeam(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi := matches[0]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)

	// teams[2] plays the other semifinal.
	_, err = fx.matches.UpdateScore(ctx, tournament.ID, teams[2].ID, semi.ID, 1)
	assert.ErrorIs(t, err, ErrTeamNotInMatch)
	assert.Equal(t, KindInvalidArgument, Kind(err))
}

func TestNegativeScoreDelta(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi := matches[0]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)

	match, err := fx.matches.UpdateScore(ctx, tournament.ID, teams[0].ID, semi.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, -2, *match.Opponent1.Score)
}

func TestSelectWinnerAdvancesBracket(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi1, semi2, final := matches[0], matches[1], matches[2]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi1.ID)
	require.NoError(t, err)
	match, err := fx.matches.SelectWinner(ctx, tournament.ID, teams[0].ID, semi1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	assert.Equal(t, models.ResultWin, match.Opponent1.Result)
	assert.Equal(t, models.ResultLoss, match.Opponent2.Result)

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi2.ID)
	require.NoError(t, err)
	_, err = fx.matches.SelectWinner(ctx, tournament.ID, teams[3].ID, semi2.ID)
	require.NoError(t, err)

	got, err := fx.matches.GetMatch(ctx, tournament.ID, final.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchReady, got.Status)
	assert.Equal(t, *semi1.Opponent1.ParticipantID, *got.Opponent1.ParticipantID)
	assert.Equal(t, *semi2.Opponent2.ParticipantID, *got.Opponent2.ParticipantID)

	// The winners can now play the final.
	_, err = fx.matches.StartMatch(ctx, tournament.ID, final.ID)
	require.NoError(t, err)
	match, err = fx.matches.DeclareDraw(ctx, tournament.ID, final.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	assert.Equal(t, models.ResultDraw, match.Opponent1.Result)
	assert.Equal(t, models.ResultDraw, match.Opponent2.Result)
}

func TestResetClearsResults(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi := matches[0]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)
	_, err = fx.matches.UpdateScore(ctx, tournament.ID, teams[0].ID, semi.ID, 3)
	require.NoError(t, err)
	_, err = fx.matches.Forfeit(ctx, tournament.ID, teams[1].ID, semi.ID)
	require.NoError(t, err)

	match, err := fx.matches.Reset(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchReady, match.Status)
	assert.Nil(t, match.Opponent1.Score)
	assert.Nil(t, match.Opponent2.Score)
	assert.False(t, match.Opponent2.Forfeit)
	assert.Equal(t, models.ResultUndetermined, match.Opponent1.Result)

	// Resetting an already clean match is a no-op success.
	again, err := fx.matches.Reset(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, match.Status, again.Status)
	assert.Nil(t, again.Opponent1.Score)
}

func TestConcurrentScoreDeltasSerialize(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, teams := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi := matches[0]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)

	const deltas = 50
	var wg sync.WaitGroup
	for i := 0; i < deltas; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.matches.UpdateScore(ctx, tournament.ID, teams[0].ID, semi.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := fx.matches.GetMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, deltas, *got.Opponent1.Score)
}

func TestUpdateMatchMergePatch(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, _ := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	semi := matches[0]

	updated := countEvents(fx, events.TopicMatchUpdated)

	score := 13
	archived := models.MatchArchived
	match, err := fx.matches.UpdateMatch(ctx, tournament.ID, semi.ID, brackets.MatchPatch{
		Status:    &archived,
		Opponent1: &brackets.OpponentPatch{Score: &score},
	})
	require.NoError(t, err)

	// The returned match carries the applied patch, and every patch
	// publishes exactly one update.
	assert.Equal(t, models.MatchArchived, match.Status)
	assert.Equal(t, 13, *match.Opponent1.Score)
	assert.Nil(t, match.Opponent2.Score)
	assert.Equal(t, 1, *updated)

	got, err := fx.matches.GetMatch(ctx, tournament.ID, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchArchived, got.Status)
	assert.Equal(t, 13, *got.Opponent1.Score)

	_, err = fx.matches.UpdateMatch(ctx, tournament.ID, 9999, brackets.MatchPatch{})
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Equal(t, 1, *updated)
}

func TestDuplicateTeamNamesResolveByIdentity(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament := createTournament(t, fx, 1)

	// Two entrants sharing a display name; email stays the unique key.
	_, err := fx.tournaments.SetState(ctx, tournament.ID, models.StateRegistrationOpen)
	require.NoError(t, err)
	for _, email := range []string{"john.a@example.com", "john.b@example.com"} {
		_, err := fx.registrations.SubmitRegistration(ctx, tournament.ID, SubmitRegistrationInput{
			Email: email,
			Name:  "John",
		})
		require.NoError(t, err)
		_, err = fx.registrations.SetApproval(ctx, tournament.ID, email, true)
		require.NoError(t, err)
	}
	teams, err := fx.registrations.ConvertToTeams(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	seedInOrder(t, fx, tournament.ID, teams)

	_, err = fx.tournaments.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	final := matches[0]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, final.ID)
	require.NoError(t, err)

	// A point for the second John lands on the second slot.
	match, err := fx.matches.UpdateScore(ctx, tournament.ID, teams[1].ID, final.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, *match.Opponent1.Score)
	assert.Equal(t, 1, *match.Opponent2.Score)

	match, err = fx.matches.SelectWinner(ctx, tournament.ID, teams[1].ID, final.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultLoss, match.Opponent1.Result)
	assert.Equal(t, models.ResultWin, match.Opponent2.Result)
}

func TestLaterStageResolvesTeamsBySeed(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	tournament := createTournament(t, fx, 1,
		models.StageSpec{Type: models.StageRoundRobin},
		models.StageSpec{Type: models.StageSingleElimination},
	)
	teams := soloEntrants(t, fx, tournament.ID, "alpha", "bravo")
	seedInOrder(t, fx, tournament.ID, teams)
	_, err := fx.tournaments.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)

	// Close out the round robin so play moves to the knockout stage,
	// whose participants carry fresh ids.
	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	_, err = fx.matches.StartMatch(ctx, tournament.ID, matches[0].ID)
	require.NoError(t, err)
	_, err = fx.matches.DeclareDraw(ctx, tournament.ID, matches[0].ID)
	require.NoError(t, err)

	matches, err = fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	knockout := matches[0]

	_, err = fx.matches.StartMatch(ctx, tournament.ID, knockout.ID)
	require.NoError(t, err)
	match, err := fx.matches.UpdateScore(ctx, tournament.ID, teams[0].ID, knockout.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, *match.Opponent1.Score)
	assert.Equal(t, 0, *match.Opponent2.Score)
}

func TestMatchLookupFailures(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	_, err := fx.matches.GetMatch(ctx, 404, 1)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	tournament, _ := runningKnockout(t, fx)
	_, err = fx.matches.GetMatch(ctx, tournament.ID, 9999)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Equal(t, KindNotFound, Kind(err))

	unstarted := createTournament(t, fx, 1)
	_, err = fx.matches.ListMatches(ctx, unstarted.ID)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestMatchMetadata(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tournament, _ := runningKnockout(t, fx)

	matches, err := fx.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	matchID := matches[0].ID

	_, err = fx.metadata.GetMetadata(ctx, tournament.ID, matchID)
	assert.ErrorIs(t, err, ErrMetadataNotFound)

	updated := countEvents(fx, events.TopicMatchMetadataUpdated)
	md, err := fx.metadata.SetMetadata(ctx, tournament.ID, matchID, "Grand Semifinal")
	require.NoError(t, err)
	assert.Equal(t, "Grand Semifinal", md.Title)
	assert.Equal(t, 1, *updated)

	// Last writer wins.
	_, err = fx.metadata.SetMetadata(ctx, tournament.ID, matchID, "Semifinal A")
	require.NoError(t, err)
	got, err := fx.metadata.GetMetadata(ctx, tournament.ID, matchID)
	require.NoError(t, err)
	assert.Equal(t, "Semifinal A", got.Title)
}
