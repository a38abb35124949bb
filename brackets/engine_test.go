package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/models"
)

func names(values ...string) []*string {
	out := make([]*string, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		name := v
		out[i] = &name
	}
	return out
}

func singleElimSpec() models.StageSpec {
	return models.StageSpec{Type: models.StageSingleElimination}
}

func completeMatch(t *testing.T, e Engine, stageID, matchID int, winnerSlot int) {
	t.Helper()
	win, loss := models.ResultWin, models.ResultLoss
	completed := models.MatchCompleted
	patch := MatchPatch{Status: &completed}
	if winnerSlot == 1 {
		patch.Opponent1 = &OpponentPatch{Result: &win}
		patch.Opponent2 = &OpponentPatch{Result: &loss}
	} else {
		patch.Opponent2 = &OpponentPatch{Result: &win}
		patch.Opponent1 = &OpponentPatch{Result: &loss}
	}
	_, err := e.UpdateMatch(context.Background(), stageID, matchID, patch)
	require.NoError(t, err)
}

func TestCreateStageMaterializesBracket(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	stage, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "bravo", "charlie", "delta"))
	require.NoError(t, err)
	assert.Equal(t, 1, stage.Number)
	assert.Equal(t, models.StageSingleElimination, stage.Type)

	parts, err := e.ListParticipants(ctx, stage.ID)
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, "alpha", parts[0].Name)
	assert.Equal(t, 0, parts[0].SeedIndex)
	assert.Equal(t, "delta", parts[3].Name)

	matches, err := e.SelectMatches(ctx, stage.ID, MatchFilter{})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, models.MatchReady, matches[0].Status)
	assert.Equal(t, models.MatchReady, matches[1].Status)
	assert.Equal(t, models.MatchLocked, matches[2].Status)
	assert.Nil(t, matches[2].Opponent1.ParticipantID)
	assert.Nil(t, matches[2].Opponent2.ParticipantID)
}

func TestCreateStageByesCollapseToSingleMatch(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	stage, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "", "", "delta"))
	require.NoError(t, err)

	matches, err := e.SelectMatches(ctx, stage.ID, MatchFilter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchReady, matches[0].Status)
	require.NotNil(t, matches[0].Opponent1.ParticipantID)
	require.NotNil(t, matches[0].Opponent2.ParticipantID)
}

func TestCreateStageRejectsBadInput(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	_, err := e.CreateStage(ctx, 1, singleElimSpec(), nil)
	assert.ErrorIs(t, err, ErrEmptySeeding)

	_, err = e.CreateStage(ctx, 1, models.StageSpec{Type: "swiss"}, names("a", "b"))
	assert.ErrorIs(t, err, ErrUnsupportedStage)
}

func TestWinnerPropagatesToNextRound(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	stage, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "bravo", "charlie", "delta"))
	require.NoError(t, err)

	matches, err := e.SelectMatches(ctx, stage.ID, MatchFilter{})
	require.NoError(t, err)
	semi1, semi2, final := matches[0], matches[1], matches[2]

	completeMatch(t, e, stage.ID, semi1.ID, 1)

	updated, err := e.GetMatch(ctx, stage.ID, final.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Opponent1.ParticipantID)
	assert.Equal(t, *semi1.Opponent1.ParticipantID, *updated.Opponent1.ParticipantID)
	assert.Equal(t, models.MatchWaiting, updated.Status)

	completeMatch(t, e, stage.ID, semi2.ID, 2)

	updated, err = e.GetMatch(ctx, stage.ID, final.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Opponent2.ParticipantID)
	assert.Equal(t, *semi2.Opponent2.ParticipantID, *updated.Opponent2.ParticipantID)
	assert.Equal(t, models.MatchReady, updated.Status)
}

func TestSelectMatchesFilters(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	stage, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "bravo", "charlie", "delta"))
	require.NoError(t, err)

	round := 1
	matches, err := e.SelectMatches(ctx, stage.ID, MatchFilter{Round: &round})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	locked := models.MatchLocked
	matches, err = e.SelectMatches(ctx, stage.ID, MatchFilter{Status: &locked})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Round)
}

func TestGetCurrentStageAdvancesWithPlay(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	first, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "bravo"))
	require.NoError(t, err)
	second, err := e.CreateStage(ctx, 1, models.StageSpec{Type: models.StageRoundRobin}, names("alpha", "bravo"))
	require.NoError(t, err)

	current, err := e.GetCurrentStage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)

	matches, err := e.SelectMatches(ctx, first.ID, MatchFilter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	completeMatch(t, e, first.ID, matches[0].ID, 1)

	current, err = e.GetCurrentStage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestGetCurrentStageWithoutStages(t *testing.T) {
	e := NewMemoryEngine()
	_, err := e.GetCurrentStage(context.Background(), 99)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestUpdateMatchReturnsCopies(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	stage, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "bravo"))
	require.NoError(t, err)
	matches, err := e.SelectMatches(ctx, stage.ID, MatchFilter{})
	require.NoError(t, err)

	got, err := e.GetMatch(ctx, stage.ID, matches[0].ID)
	require.NoError(t, err)
	got.Status = models.MatchArchived
	*got.Opponent1.ParticipantID = 999

	fresh, err := e.GetMatch(ctx, stage.ID, matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchReady, fresh.Status)
	assert.NotEqual(t, 999, *fresh.Opponent1.ParticipantID)
}

func TestDeleteByTournamentRemovesState(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	stage, err := e.CreateStage(ctx, 1, singleElimSpec(), names("alpha", "bravo"))
	require.NoError(t, err)

	require.NoError(t, e.DeleteByTournament(ctx, 1))

	_, err = e.GetCurrentStage(ctx, 1)
	assert.ErrorIs(t, err, ErrStageNotFound)
	_, err = e.ListParticipants(ctx, stage.ID)
	assert.ErrorIs(t, err, ErrStageNotFound)
}
