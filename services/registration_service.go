package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/repositories"
)

type SubmitRegistrationInput struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
}

// SeedAssignment sets or unsets one team's seed number.
type SeedAssignment struct {
	TeamID     int  `json:"team_id"`
	SeedNumber *int `json:"seed_number"`
}

// RegistrationService owns registrations, team-code pairing, and the seed
// assignment that orders entrants before stage creation.
type RegistrationService interface {
	SubmitRegistration(ctx context.Context, tournamentID int, input SubmitRegistrationInput) (*models.Registration, error)
	ListRegistrations(ctx context.Context, tournamentID int) ([]*models.Registration, error)
	SetApproval(ctx context.Context, tournamentID int, email string, approved bool) (*models.Registration, error)
	// PairRegistrations stamps one team code onto exactly teamSize distinct
	// approved, unpaired registrations. An empty code requests a fresh
	// random one; the assigned code is returned. Codes are append-only.
	PairRegistrations(ctx context.Context, tournamentID int, emails []string, teamCode string) (string, error)
	// ConvertToTeams turns approved entrants into teams: one per approved
	// registration when teamSize is 1, one per complete code cohort
	// otherwise. Calling it again once teams exist returns them unchanged.
	ConvertToTeams(ctx context.Context, tournamentID int) ([]*models.Team, error)
	ListTeams(ctx context.Context, tournamentID int) ([]*models.Team, error)
	// AssignSeedNumbers applies a bulk seed assignment. A seed taken from
	// another team displaces it (last writer wins), so at most one team
	// holds a given seed afterwards. On success the tournament is marked
	// playersSeeded.
	AssignSeedNumbers(ctx context.Context, tournamentID int, assignments []SeedAssignment) ([]*models.Team, error)
}

type registrationService struct {
	regRepo        repositories.RegistrationRepository
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	tournaments    TournamentService
	snapshots      repositories.SnapshotRepository
	bus            *events.Channel
	locks          *AggregateLocks
	logger         *slog.Logger
}

func NewRegistrationService(
	regRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	tournaments TournamentService,
	snapshots repositories.SnapshotRepository,
	bus *events.Channel,
	locks *AggregateLocks,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		regRepo:        regRepo,
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		tournaments:    tournaments,
		snapshots:      snapshots,
		bus:            bus,
		locks:          locks,
		logger:         logger,
	}
}

func (s *registrationService) SubmitRegistration(ctx context.Context, tournamentID int, input SubmitRegistrationInput) (*models.Registration, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !s.tournaments.IsRegistrationOpen(t, time.Now()) {
		return nil, fmt.Errorf("%w: tournament %d", ErrRegistrationClosed, tournamentID)
	}

	reg := &models.Registration{
		TournamentID: tournamentID,
		Email:        input.Email,
		Name:         input.Name,
		Details:      input.Details,
	}
	if err := s.regRepo.Create(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrRegistrationExists) {
			return nil, fmt.Errorf("%w: %s", ErrRegistrationEmailTaken, input.Email)
		}
		return nil, fmt.Errorf("failed to store registration: %w", err)
	}

	s.bus.Publish(events.TopicRegistrationCreated, reg)
	return reg, nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.regRepo.ListByTournament(ctx, tournamentID)
}

func (s *registrationService) SetApproval(ctx context.Context, tournamentID int, email string, approved bool) (*models.Registration, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	reg, err := s.regRepo.GetByEmail(ctx, tournamentID, email)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRegistrationNotFound, email)
		}
		return nil, err
	}

	reg.Approved = approved
	if err := s.regRepo.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to update registration %s: %w", email, err)
	}

	s.bus.Publish(events.TopicRegistrationChanged, reg)
	return reg, nil
}

func (s *registrationService) PairRegistrations(ctx context.Context, tournamentID int, emails []string, teamCode string) (string, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return "", err
	}

	if len(emails) != t.TeamSize {
		return "", fmt.Errorf("%w: got %d emails, team size is %d", ErrPairCohortInvalid, len(emails), t.TeamSize)
	}

	seen := make(map[string]bool, len(emails))
	cohort := make([]*models.Registration, 0, len(emails))
	for _, email := range emails {
		reg, err := s.regRepo.GetByEmail(ctx, tournamentID, email)
		if err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return "", fmt.Errorf("%w: %s", ErrRegistrationNotFound, email)
			}
			return "", err
		}
		if seen[reg.Email] {
			return "", fmt.Errorf("%w: duplicate email %s", ErrPairCohortInvalid, email)
		}
		seen[reg.Email] = true
		if !reg.Approved {
			return "", fmt.Errorf("%w: %s is not approved", ErrPairCohortInvalid, email)
		}
		if reg.TeamCode != nil {
			return "", fmt.Errorf("%w: %s", ErrTeamCodeAlreadySet, email)
		}
		cohort = append(cohort, reg)
	}

	if teamCode == "" {
		teamCode = uuid.NewString()
	}
	for _, reg := range cohort {
		code := teamCode
		reg.TeamCode = &code
		if err := s.regRepo.Update(ctx, reg); err != nil {
			return "", fmt.Errorf("failed to pair registration %s: %w", reg.Email, err)
		}
		s.bus.Publish(events.TopicRegistrationChanged, reg)
	}
	return teamCode, nil
}

func (s *registrationService) ConvertToTeams(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	regs, err := s.regRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var teams []*models.Team
	if t.TeamSize == 1 {
		for _, reg := range regs {
			if !reg.Approved {
				continue
			}
			teams = append(teams, &models.Team{
				TournamentID: tournamentID,
				Name:         reg.Name,
				Players:      []string{reg.Name},
			})
		}
	} else {
		cohorts := make(map[string][]*models.Registration)
		var codes []string
		for _, reg := range regs {
			if !reg.Approved || reg.TeamCode == nil {
				continue
			}
			if _, ok := cohorts[*reg.TeamCode]; !ok {
				codes = append(codes, *reg.TeamCode)
			}
			cohorts[*reg.TeamCode] = append(cohorts[*reg.TeamCode], reg)
		}
		for _, code := range codes {
			cohort := cohorts[code]
			if len(cohort) != t.TeamSize {
				continue
			}
			players := make([]string, len(cohort))
			for i, reg := range cohort {
				players[i] = reg.Name
			}
			name := code
			if len(name) > 8 {
				name = name[:8]
			}
			teams = append(teams, &models.Team{
				TournamentID: tournamentID,
				Name:         "Team " + name,
				Players:      players,
			})
		}
	}

	for _, team := range teams {
		if err := s.teamRepo.Create(ctx, team); err != nil {
			return nil, fmt.Errorf("failed to create team %q: %w", team.Name, err)
		}
		s.bus.Publish(events.TopicTeamCreated, team)
	}

	s.persist(ctx)
	return teams, nil
}

func (s *registrationService) ListTeams(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.teamRepo.ListByTournament(ctx, tournamentID)
}

func (s *registrationService) AssignSeedNumbers(ctx context.Context, tournamentID int, assignments []SeedAssignment) ([]*models.Team, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	// Validate every referenced team before mutating anything, so a bad id
	// leaves all seeds untouched.
	teams := make([]*models.Team, len(assignments))
	for i, a := range assignments {
		team, err := s.teamRepo.GetByID(ctx, a.TeamID)
		if err != nil || team.TournamentID != tournamentID {
			return nil, fmt.Errorf("%w: id %d", ErrTeamNotFound, a.TeamID)
		}
		teams[i] = team
	}

	all, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	bySeed := make(map[int]*models.Team)
	for _, team := range all {
		if team.SeedNumber != nil {
			bySeed[*team.SeedNumber] = team
		}
	}

	changed := make(map[int]*models.Team)
	for i, a := range assignments {
		team := teams[i]
		if prev, ok := changed[team.ID]; ok {
			team = prev
		}

		if team.SeedNumber != nil && bySeed[*team.SeedNumber] != nil && bySeed[*team.SeedNumber].ID == team.ID {
			delete(bySeed, *team.SeedNumber)
		}
		if a.SeedNumber != nil {
			// Displace whichever team currently holds the seed.
			if holder, ok := bySeed[*a.SeedNumber]; ok && holder.ID != team.ID {
				if prev, seen := changed[holder.ID]; seen {
					holder = prev
				}
				holder.SeedNumber = nil
				changed[holder.ID] = holder
			}
			n := *a.SeedNumber
			team.SeedNumber = &n
			bySeed[n] = team
		} else {
			team.SeedNumber = nil
		}
		changed[team.ID] = team
	}

	updated := make([]*models.Team, 0, len(changed))
	for _, team := range changed {
		if err := s.teamRepo.Update(ctx, team); err != nil {
			return nil, fmt.Errorf("failed to update team %d: %w", team.ID, err)
		}
		updated = append(updated, team)
		s.bus.Publish(events.TopicTeamSeedAssigned, team)
	}

	t.PlayersSeeded = true
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to mark tournament %d seeded: %w", tournamentID, err)
	}

	s.persist(ctx)
	return updated, nil
}

func (s *registrationService) persist(ctx context.Context) {
	persistSnapshots(ctx, s.logger, s.snapshots, s.tournamentRepo, s.teamRepo)
}
