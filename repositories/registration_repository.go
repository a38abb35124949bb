package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bracketforge/bracketforge/models"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationExists   = errors.New("registration with this email already exists")
)

// RegistrationRepository stores registrations keyed by tournament and
// contact email (unique within a tournament, case-insensitive).
type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByEmail(ctx context.Context, tournamentID int, email string) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error)
	Update(ctx context.Context, reg *models.Registration) error
	DeleteByTournament(ctx context.Context, tournamentID int) error
}

type memoryRegistrationRepository struct {
	mu sync.RWMutex
	// items is keyed by tournament id, then by normalized email.
	items map[int]map[string]*models.Registration
}

func NewMemoryRegistrationRepository() RegistrationRepository {
	return &memoryRegistrationRepository{
		items: make(map[int]map[string]*models.Registration),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *memoryRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(reg.Email)
	byEmail, ok := r.items[reg.TournamentID]
	if !ok {
		byEmail = make(map[string]*models.Registration)
		r.items[reg.TournamentID] = byEmail
	}
	if _, exists := byEmail[key]; exists {
		return ErrRegistrationExists
	}
	reg.CreatedAt = time.Now().UTC()
	byEmail[key] = cloneRegistration(reg)
	return nil
}

func (r *memoryRegistrationRepository) GetByEmail(ctx context.Context, tournamentID int, email string) (*models.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.items[tournamentID][normalizeEmail(email)]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return cloneRegistration(reg), nil
}

func (r *memoryRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byEmail := r.items[tournamentID]
	out := make([]*models.Registration, 0, len(byEmail))
	for _, reg := range byEmail {
		out = append(out, cloneRegistration(reg))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRegistrationRepository) Update(ctx context.Context, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(reg.Email)
	if _, ok := r.items[reg.TournamentID][key]; !ok {
		return ErrRegistrationNotFound
	}
	r.items[reg.TournamentID][key] = cloneRegistration(reg)
	return nil
}

func (r *memoryRegistrationRepository) DeleteByTournament(ctx context.Context, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, tournamentID)
	return nil
}

func cloneRegistration(reg *models.Registration) *models.Registration {
	cp := *reg
	if reg.TeamCode != nil {
		code := *reg.TeamCode
		cp.TeamCode = &code
	}
	return &cp
}
