package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/bracketforge/models"
)

func TestRegistrationEmailIsCaseInsensitive(t *testing.T) {
	repo := NewMemoryRegistrationRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Registration{
		TournamentID: 1,
		Email:        "Player@Example.com",
		Name:         "player",
	}))

	err := repo.Create(ctx, &models.Registration{
		TournamentID: 1,
		Email:        " player@example.com ",
		Name:         "impostor",
	})
	assert.ErrorIs(t, err, ErrRegistrationExists)

	got, err := repo.GetByEmail(ctx, 1, "PLAYER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "player", got.Name)
}

func TestRegistrationsAreScopedPerTournament(t *testing.T) {
	repo := NewMemoryRegistrationRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Registration{TournamentID: 1, Email: "a@x.com", Name: "a"}))
	require.NoError(t, repo.Create(ctx, &models.Registration{TournamentID: 2, Email: "a@x.com", Name: "a"}))

	_, err := repo.GetByEmail(ctx, 3, "a@x.com")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	require.NoError(t, repo.DeleteByTournament(ctx, 1))

	_, err = repo.GetByEmail(ctx, 1, "a@x.com")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	_, err = repo.GetByEmail(ctx, 2, "a@x.com")
	assert.NoError(t, err)
}

func TestListReturnsCopies(t *testing.T) {
	repo := NewMemoryRegistrationRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Registration{TournamentID: 1, Email: "a@x.com", Name: "a"}))

	regs, err := repo.ListByTournament(ctx, 1)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	regs[0].Approved = true

	fresh, err := repo.GetByEmail(ctx, 1, "a@x.com")
	require.NoError(t, err)
	assert.False(t, fresh.Approved)
}
