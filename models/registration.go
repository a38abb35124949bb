package models

import "time"

// Registration is a prospective entrant. Email is the unique key within a
// tournament. TeamCode groups registrations into one multi-person team and
// is append-only: once set it is never reassigned.
type Registration struct {
	TournamentID int       `json:"tournament_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Details      string    `json:"details,omitempty"`
	TeamCode     *string   `json:"team_code,omitempty"`
	Approved     bool      `json:"approved"`
	CreatedAt    time.Time `json:"created_at"`
}
