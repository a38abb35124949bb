package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bracketforge/bracketforge/repositories"
)

// persistSnapshots pushes the full authoritative maps to the snapshot
// collaborator. Saves are fire-and-forget: a failure is logged, never
// surfaced to the caller, and never rolls back the in-memory mutation.
func persistSnapshots(
	ctx context.Context,
	logger *slog.Logger,
	snapshots repositories.SnapshotRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
) {
	if snapshots == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tournaments, err := tournamentRepo.Snapshot(gctx)
		if err != nil {
			return err
		}
		return snapshots.SaveTournaments(gctx, tournaments)
	})
	g.Go(func() error {
		teams, err := teamRepo.Snapshot(gctx)
		if err != nil {
			return err
		}
		return snapshots.SaveTeams(gctx, teams)
	})
	if err := g.Wait(); err != nil {
		logger.Warn("snapshot save failed", slog.Any("error", err))
	}
}
