package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/bracketforge/bracketforge/models"
)

var ErrSnapshotUnavailable = errors.New("snapshot store unavailable")

const (
	snapshotTournaments = "tournaments"
	snapshotTeams       = "teams"
)

// SnapshotRepository is the persistence collaborator: it loads and saves
// the full authoritative maps. The core treats saves as fire-and-forget
// after each mutation; there is no read-your-write guarantee across
// restarts beyond what the store itself offers.
type SnapshotRepository interface {
	LoadTournaments(ctx context.Context) (map[int]*models.Tournament, error)
	SaveTournaments(ctx context.Context, tournaments map[int]*models.Tournament) error
	LoadTeams(ctx context.Context) (map[int]*models.Team, error)
	SaveTeams(ctx context.Context, teams map[int]*models.Team) error
}

type postgresSnapshotRepository struct {
	db *sql.DB
}

// NewPostgresSnapshotRepository prepares the snapshot table and returns
// the Postgres-backed collaborator.
func NewPostgresSnapshotRepository(ctx context.Context, db *sql.DB) (SnapshotRepository, error) {
	query := `
		CREATE TABLE IF NOT EXISTS snapshots (
			name       TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("%w: failed to prepare snapshot table: %v", ErrSnapshotUnavailable, err)
	}
	return &postgresSnapshotRepository{db: db}, nil
}

func (r *postgresSnapshotRepository) save(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", name, err)
	}

	query := `
		INSERT INTO snapshots (name, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, name, data); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("%w: %s (%s)", ErrSnapshotUnavailable, pqErr.Message, pqErr.Code)
		}
		return fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	return nil
}

func (r *postgresSnapshotRepository) load(ctx context.Context, name string, dst interface{}) error {
	query := `SELECT data FROM snapshots WHERE name = $1`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s snapshot: %w", name, err)
	}
	return nil
}

func (r *postgresSnapshotRepository) LoadTournaments(ctx context.Context) (map[int]*models.Tournament, error) {
	out := make(map[int]*models.Tournament)
	if err := r.load(ctx, snapshotTournaments, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresSnapshotRepository) SaveTournaments(ctx context.Context, tournaments map[int]*models.Tournament) error {
	return r.save(ctx, snapshotTournaments, tournaments)
}

func (r *postgresSnapshotRepository) LoadTeams(ctx context.Context) (map[int]*models.Team, error) {
	out := make(map[int]*models.Team)
	if err := r.load(ctx, snapshotTeams, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresSnapshotRepository) SaveTeams(ctx context.Context, teams map[int]*models.Team) error {
	return r.save(ctx, snapshotTeams, teams)
}
