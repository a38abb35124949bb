package models

import "time"

// Team is a confirmed competing unit, created when approved registrations
// convert into the bracket engine's participant space. SeedNumber stays nil
// until the seeding assignment runs; within a tournament at most one team
// holds a given seed number at any time. ParticipantID links the team to
// the bracket engine participant created on tournament start.
type Team struct {
	ID            int       `json:"id"`
	TournamentID  int       `json:"tournament_id"`
	Name          string    `json:"name"`
	Players       []string  `json:"players"`
	SeedNumber    *int      `json:"seed_number,omitempty"`
	ParticipantID *int      `json:"participant_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
