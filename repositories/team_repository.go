package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bracketforge/bracketforge/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	DeleteByTournament(ctx context.Context, tournamentID int) error
	Snapshot(ctx context.Context) (map[int]*models.Team, error)
	Restore(ctx context.Context, teams map[int]*models.Team) error
}

type memoryTeamRepository struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]*models.Team
}

func NewMemoryTeamRepository() TeamRepository {
	return &memoryTeamRepository{
		nextID: 1,
		items:  make(map[int]*models.Team),
	}
}

func (r *memoryTeamRepository) Create(ctx context.Context, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	team.ID = r.nextID
	r.nextID++
	team.CreatedAt = time.Now().UTC()
	r.items[team.ID] = cloneTeam(team)
	return nil
}

func (r *memoryTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.items[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return cloneTeam(team), nil
}

func (r *memoryTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Team, 0)
	for _, team := range r.items {
		if team.TournamentID == tournamentID {
			out = append(out, cloneTeam(team))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryTeamRepository) Update(ctx context.Context, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[team.ID]; !ok {
		return ErrTeamNotFound
	}
	r.items[team.ID] = cloneTeam(team)
	return nil
}

func (r *memoryTeamRepository) DeleteByTournament(ctx context.Context, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, team := range r.items {
		if team.TournamentID == tournamentID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memoryTeamRepository) Snapshot(ctx context.Context) (map[int]*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]*models.Team, len(r.items))
	for id, team := range r.items {
		out[id] = cloneTeam(team)
	}
	return out, nil
}

func (r *memoryTeamRepository) Restore(ctx context.Context, teams map[int]*models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[int]*models.Team, len(teams))
	maxID := 0
	for id, team := range teams {
		r.items[id] = cloneTeam(team)
		if id > maxID {
			maxID = id
		}
	}
	r.nextID = maxID + 1
	return nil
}

func cloneTeam(team *models.Team) *models.Team {
	cp := *team
	cp.Players = make([]string, len(team.Players))
	copy(cp.Players, team.Players)
	if team.SeedNumber != nil {
		n := *team.SeedNumber
		cp.SeedNumber = &n
	}
	if team.ParticipantID != nil {
		p := *team.ParticipantID
		cp.ParticipantID = &p
	}
	return &cp
}
