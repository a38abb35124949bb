package models

import "time"

// TournamentState is the lifecycle state of a tournament. States are
// ordinal-comparable: every transition through SetState must strictly
// increase the value.
type TournamentState int

const (
	StateNew TournamentState = iota
	StateRegistrationOpen
	// StateConfirmation is the registration-closed phase where entrants are
	// approved and paired into teams.
	StateConfirmation
	StateSeeding
	StateFinalizing
	StateRunning
	StateComplete
)

var stateNames = map[TournamentState]string{
	StateNew:              "new",
	StateRegistrationOpen: "registration_open",
	StateConfirmation:     "confirmation",
	StateSeeding:          "seeding",
	StateFinalizing:       "finalizing",
	StateRunning:          "running",
	StateComplete:         "complete",
}

func (s TournamentState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseTournamentState maps a wire name back to its state. The second
// return is false for unknown names.
func ParseTournamentState(name string) (TournamentState, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// StageSpec declares one bracket stage to materialize on tournament start,
// in the order stages are played. Settings are forwarded opaquely to the
// bracket engine.
type StageSpec struct {
	Type     StageType      `json:"type"`
	Settings *StageSettings `json:"settings,omitempty"`
}

type Tournament struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	State         TournamentState `json:"state"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	RegOpenDate   *time.Time      `json:"reg_open_date,omitempty"`
	Stages        []StageSpec     `json:"stages"`
	PlayersSeeded bool            `json:"players_seeded"`
	TeamSize      int             `json:"team_size"`
	CreatedAt     time.Time       `json:"created_at"`
	BannerKey     *string         `json:"-"`
	BannerURL     *string         `json:"banner_url,omitempty"`
}
