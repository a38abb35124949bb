package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracketforge/bracketforge/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() models.StageType {
	return models.StageRoundRobin
}

// Generate schedules every pairing once per group round using the circle
// method: participants rotate around a fixed pivot, one round per
// rotation. With GroupRounds=2 the schedule repeats with slots swapped.
func (g *RoundRobinGenerator) Generate(ctx context.Context, slots []SeedSlot, settings *models.StageSettings) ([]*GeneratedMatch, error) {
	ids := make([]*int, 0, len(slots))
	for _, s := range slots {
		if s.ParticipantID != nil {
			id := *s.ParticipantID
			ids = append(ids, &id)
		}
	}
	if len(ids) < 2 {
		return nil, errors.New("round robin requires at least 2 participants")
	}

	groupRounds := 1
	if settings != nil && settings.GroupRounds == 2 {
		groupRounds = 2
	}

	// Odd participant count gets a rotating bye slot.
	if len(ids)%2 != 0 {
		ids = append(ids, nil)
	}
	n := len(ids)
	roundsPerCycle := n - 1

	matches := make([]*GeneratedMatch, 0, groupRounds*roundsPerCycle*n/2)
	round := 0

	for cycle := 0; cycle < groupRounds; cycle++ {
		rotation := make([]*int, n)
		copy(rotation, ids)

		for r := 0; r < roundsPerCycle; r++ {
			round++
			order := 0
			for i := 0; i < n/2; i++ {
				p1 := rotation[i]
				p2 := rotation[n-1-i]
				if p1 == nil || p2 == nil {
					continue
				}
				if cycle%2 != 0 {
					p1, p2 = p2, p1
				}
				order++
				matches = append(matches, &GeneratedMatch{
					UID:            fmt.Sprintf("G%dR%dM%d", cycle+1, round, order),
					Round:          round,
					OrderInRound:   order,
					Participant1ID: p1,
					Participant2ID: p2,
				})
			}
			// Rotate all but the pivot at index 0.
			last := rotation[n-1]
			copy(rotation[2:], rotation[1:n-1])
			rotation[1] = last
		}
	}

	return matches, nil
}
