package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bracketforge/bracketforge/models"
)

// node is one slot in the round currently being paired: either a known
// participant, the winner of an earlier match, or a bye placeholder.
type node struct {
	participantID  *int
	sourceMatchUID *string
	isBye          bool
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() models.StageType {
	return models.StageSingleElimination
}

// Generate builds a full single elimination tree over the seeding list.
// The list is padded to the next power of two with byes; a participant
// paired against a bye advances without a materialized match.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, slots []SeedSlot, _ *models.StageSettings) ([]*GeneratedMatch, error) {
	entrants := 0
	for _, s := range slots {
		if s.ParticipantID != nil {
			entrants++
		}
	}
	if entrants < 2 {
		return nil, errors.New("single elimination requires at least 2 participants")
	}

	numRounds := int(math.Ceil(math.Log2(float64(len(slots)))))
	bracketSize := 1 << uint(numRounds)

	current := make([]*node, bracketSize)
	for i := range current {
		if i < len(slots) && slots[i].ParticipantID != nil {
			id := *slots[i].ParticipantID
			current[i] = &node{participantID: &id}
		} else {
			current[i] = &node{isBye: true}
		}
	}

	all := make([]*GeneratedMatch, 0, bracketSize-1)

	for r := 1; r <= numRounds; r++ {
		next := make([]*node, 0, len(current)/2)
		order := 0

		for i := 0; i < len(current); i += 2 {
			n1, n2 := current[i], current[i+1]

			if n1.isBye && n2.isBye {
				next = append(next, &node{isBye: true})
				continue
			}

			order++
			uid := fmt.Sprintf("R%dM%d", r, order)

			gm := &GeneratedMatch{
				UID:          uid,
				Round:        r,
				OrderInRound: order,
			}

			switch {
			case n1.isBye:
				gm.IsBye = true
				gm.ByeParticipantID = n2.participantID
				gm.Participant1ID = n2.participantID
				next = append(next, &node{participantID: n2.participantID, sourceMatchUID: n2.sourceMatchUID})
			case n2.isBye:
				gm.IsBye = true
				gm.ByeParticipantID = n1.participantID
				gm.Participant1ID = n1.participantID
				next = append(next, &node{participantID: n1.participantID, sourceMatchUID: n1.sourceMatchUID})
			default:
				gm.Participant1ID = n1.participantID
				gm.SourceMatch1UID = n1.sourceMatchUID
				gm.Participant2ID = n2.participantID
				gm.SourceMatch2UID = n2.sourceMatchUID
				next = append(next, &node{sourceMatchUID: &uid})
			}

			all = append(all, gm)
		}
		current = next
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Round != all[j].Round {
			return all[i].Round < all[j].Round
		}
		return all[i].OrderInRound < all[j].OrderInRound
	})

	return all, nil
}
