// Package brackets materializes tournament stages from seeded entrant
// lists and owns the authoritative match records. The rest of the system
// talks to it through the Engine interface and never interprets bracket
// topology itself.
package brackets

import (
	"context"

	"github.com/bracketforge/bracketforge/models"
)

// SeedSlot is one position in a seeding list. A nil ParticipantID is a bye.
type SeedSlot struct {
	ParticipantID *int
}

// GeneratedMatch is a generator's description of one match node before the
// engine assigns real match IDs. Participant IDs are set where known at
// generation time; a slot fed by an earlier match carries that match's UID
// instead.
type GeneratedMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Participant1ID *int
	Participant2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	// IsBye marks a first-round pairing against an empty slot. No match
	// record is materialized; the participant advances directly.
	IsBye            bool
	ByeParticipantID *int
}

// Generator turns a seeding list into the match nodes of one stage.
type Generator interface {
	Generate(ctx context.Context, slots []SeedSlot, settings *models.StageSettings) ([]*GeneratedMatch, error)

	Name() models.StageType
}

func generatorFor(stageType models.StageType) (Generator, bool) {
	switch stageType {
	case models.StageSingleElimination:
		return NewSingleEliminationGenerator(), true
	case models.StageRoundRobin:
		return NewRoundRobinGenerator(), true
	default:
		return nil, false
	}
}
