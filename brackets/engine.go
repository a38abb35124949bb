package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bracketforge/bracketforge/models"
)

var (
	ErrStageNotFound       = errors.New("stage not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrUnsupportedStage    = errors.New("unsupported stage type")
	ErrStageGeneration     = errors.New("stage generation failed")
	ErrEmptySeeding        = errors.New("seeding list is empty")
	ErrParticipantNotFound = errors.New("participant not found")
)

// MatchFilter narrows a SelectMatches call. Nil fields match everything.
type MatchFilter struct {
	ID     *int
	Round  *int
	Status *models.MatchStatus
}

// OpponentPatch is a partial update of one opponent slot. Nil fields are
// left untouched; ClearScore removes the score entirely.
type OpponentPatch struct {
	ParticipantID *int
	Score         *int
	ClearScore    bool
	Forfeit       *bool
	Result        *models.SlotResult
}

// MatchPatch is a merge-patch over a match. Nil fields are left untouched.
type MatchPatch struct {
	Status    *models.MatchStatus
	Opponent1 *OpponentPatch
	Opponent2 *OpponentPatch
}

// Engine is the bracket collaborator contract the lifecycle engine depends
// on: it turns a seeded entrant list into stage/round/match state and
// accepts partial updates to match results. Implementations own match
// records authoritatively; callers only hold copies.
type Engine interface {
	// CreateStage materializes one stage from an ordered seeding list of
	// participant names, nil meaning a bye slot.
	CreateStage(ctx context.Context, tournamentID int, spec models.StageSpec, seeding []*string) (*models.Stage, error)
	// GetCurrentStage resolves the stage play is currently in: the first
	// stage with an undecided match, or the last stage once all are done.
	GetCurrentStage(ctx context.Context, tournamentID int) (*models.Stage, error)
	GetMatch(ctx context.Context, stageID, matchID int) (*models.Match, error)
	SelectMatches(ctx context.Context, stageID int, filter MatchFilter) ([]*models.Match, error)
	UpdateMatch(ctx context.Context, stageID, matchID int, patch MatchPatch) (*models.Match, error)
	ListParticipants(ctx context.Context, stageID int) ([]*models.Participant, error)
	DeleteByTournament(ctx context.Context, tournamentID int) error
}

// matchRecord pairs a match with its winner destination inside the same
// stage, mirroring how elimination trees hand winners forward.
type matchRecord struct {
	match       *models.Match
	nextMatchID *int
	nextSlot    int // 1 or 2
}

type memoryEngine struct {
	mu sync.RWMutex

	nextStageID       int
	nextMatchID       int
	nextParticipantID int

	// stages is keyed by tournament id, everything else by stage id.
	// matchOrder keeps match ids in bracket order for stable listings.
	stages       map[int][]*models.Stage
	participants map[int][]*models.Participant
	matches      map[int]map[int]*matchRecord
	matchOrder   map[int][]int
}

// NewMemoryEngine returns the in-process Engine implementation backed by
// the stage generators in this package.
func NewMemoryEngine() Engine {
	return &memoryEngine{
		nextStageID:       1,
		nextMatchID:       1,
		nextParticipantID: 1,
		stages:            make(map[int][]*models.Stage),
		participants:      make(map[int][]*models.Participant),
		matches:           make(map[int]map[int]*matchRecord),
		matchOrder:        make(map[int][]int),
	}
}

func (e *memoryEngine) CreateStage(ctx context.Context, tournamentID int, spec models.StageSpec, seeding []*string) (*models.Stage, error) {
	if len(seeding) == 0 {
		return nil, ErrEmptySeeding
	}
	gen, ok := generatorFor(spec.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStage, spec.Type)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stage := &models.Stage{
		ID:           e.nextStageID,
		TournamentID: tournamentID,
		Number:       len(e.stages[tournamentID]) + 1,
		Type:         spec.Type,
		Settings:     spec.Settings,
	}
	e.nextStageID++

	slots := make([]SeedSlot, len(seeding))
	parts := make([]*models.Participant, 0, len(seeding))
	for i, name := range seeding {
		if name == nil {
			continue
		}
		p := &models.Participant{
			ID:           e.nextParticipantID,
			TournamentID: tournamentID,
			StageID:      stage.ID,
			Name:         *name,
			SeedIndex:    i,
		}
		e.nextParticipantID++
		parts = append(parts, p)
		slots[i] = SeedSlot{ParticipantID: &p.ID}
	}

	generated, err := gen.Generate(ctx, slots, spec.Settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStageGeneration, err)
	}

	records := make(map[int]*matchRecord)
	order := make([]int, 0, len(generated))
	uidToID := make(map[string]int)

	for _, gm := range generated {
		if gm.IsBye {
			continue
		}
		m := &models.Match{
			ID:           e.nextMatchID,
			TournamentID: tournamentID,
			StageID:      stage.ID,
			Round:        gm.Round,
			Number:       gm.OrderInRound,
			Opponent1:    models.Opponent{ParticipantID: copyIntPtr(gm.Participant1ID)},
			Opponent2:    models.Opponent{ParticipantID: copyIntPtr(gm.Participant2ID)},
		}
		m.Status = initialStatus(m)
		e.nextMatchID++

		records[m.ID] = &matchRecord{match: m}
		order = append(order, m.ID)
		uidToID[gm.UID] = m.ID
	}

	// Second pass wires each match to the slot its winner feeds.
	for _, gm := range generated {
		if gm.IsBye {
			continue
		}
		targetID := uidToID[gm.UID]
		if gm.SourceMatch1UID != nil {
			if srcID, ok := uidToID[*gm.SourceMatch1UID]; ok {
				records[srcID].nextMatchID = &targetID
				records[srcID].nextSlot = 1
			}
		}
		if gm.SourceMatch2UID != nil {
			if srcID, ok := uidToID[*gm.SourceMatch2UID]; ok {
				records[srcID].nextMatchID = &targetID
				records[srcID].nextSlot = 2
			}
		}
	}

	e.stages[tournamentID] = append(e.stages[tournamentID], stage)
	e.participants[stage.ID] = parts
	e.matches[stage.ID] = records
	e.matchOrder[stage.ID] = order

	cp := *stage
	return &cp, nil
}

func initialStatus(m *models.Match) models.MatchStatus {
	switch {
	case m.Opponent1.ParticipantID != nil && m.Opponent2.ParticipantID != nil:
		return models.MatchReady
	case m.Opponent1.ParticipantID != nil || m.Opponent2.ParticipantID != nil:
		return models.MatchWaiting
	default:
		return models.MatchLocked
	}
}

func (e *memoryEngine) GetCurrentStage(ctx context.Context, tournamentID int) (*models.Stage, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stages := e.stages[tournamentID]
	if len(stages) == 0 {
		return nil, ErrStageNotFound
	}
	for _, st := range stages {
		for _, rec := range e.matches[st.ID] {
			if rec.match.Status < models.MatchCompleted {
				cp := *st
				return &cp, nil
			}
		}
	}
	cp := *stages[len(stages)-1]
	return &cp, nil
}

func (e *memoryEngine) GetMatch(ctx context.Context, stageID, matchID int) (*models.Match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, err := e.record(stageID, matchID)
	if err != nil {
		return nil, err
	}
	return rec.match.Clone(), nil
}

func (e *memoryEngine) record(stageID, matchID int) (*matchRecord, error) {
	records, ok := e.matches[stageID]
	if !ok {
		return nil, ErrStageNotFound
	}
	rec, ok := records[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return rec, nil
}

func (e *memoryEngine) SelectMatches(ctx context.Context, stageID int, filter MatchFilter) ([]*models.Match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.matchOrder[stageID]
	if !ok {
		return nil, ErrStageNotFound
	}
	records := e.matches[stageID]

	out := make([]*models.Match, 0, len(order))
	for _, id := range order {
		m := records[id].match
		if filter.ID != nil && m.ID != *filter.ID {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

func (e *memoryEngine) UpdateMatch(ctx context.Context, stageID, matchID int, patch MatchPatch) (*models.Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.record(stageID, matchID)
	if err != nil {
		return nil, err
	}

	m := rec.match
	applyOpponentPatch(&m.Opponent1, patch.Opponent1)
	applyOpponentPatch(&m.Opponent2, patch.Opponent2)
	if patch.Status != nil {
		m.Status = *patch.Status
	}

	if m.Status >= models.MatchCompleted {
		e.propagateWinner(stageID, rec)
	}

	return m.Clone(), nil
}

func applyOpponentPatch(o *models.Opponent, p *OpponentPatch) {
	if p == nil {
		return
	}
	if p.ParticipantID != nil {
		id := *p.ParticipantID
		o.ParticipantID = &id
	}
	if p.ClearScore {
		o.Score = nil
	} else if p.Score != nil {
		s := *p.Score
		o.Score = &s
	}
	if p.Forfeit != nil {
		o.Forfeit = *p.Forfeit
	}
	if p.Result != nil {
		o.Result = *p.Result
	}
}

// propagateWinner hands a decided match's winner forward to the slot it
// feeds, flipping the destination from waiting to ready once both slots
// are occupied.
func (e *memoryEngine) propagateWinner(stageID int, rec *matchRecord) {
	if rec.nextMatchID == nil {
		return
	}
	var winnerID *int
	switch {
	case rec.match.Opponent1.Result == models.ResultWin:
		winnerID = rec.match.Opponent1.ParticipantID
	case rec.match.Opponent2.Result == models.ResultWin:
		winnerID = rec.match.Opponent2.ParticipantID
	}
	if winnerID == nil {
		return
	}

	next, ok := e.matches[stageID][*rec.nextMatchID]
	if !ok {
		return
	}
	id := *winnerID
	if rec.nextSlot == 1 {
		next.match.Opponent1.ParticipantID = &id
	} else {
		next.match.Opponent2.ParticipantID = &id
	}
	if next.match.Status < models.MatchReady {
		next.match.Status = initialStatus(next.match)
	}
}

func (e *memoryEngine) ListParticipants(ctx context.Context, stageID int) ([]*models.Participant, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	parts, ok := e.participants[stageID]
	if !ok {
		return nil, ErrStageNotFound
	}
	out := make([]*models.Participant, len(parts))
	for i, p := range parts {
		cp := *p
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeedIndex < out[j].SeedIndex })
	return out, nil
}

func (e *memoryEngine) DeleteByTournament(ctx context.Context, tournamentID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, st := range e.stages[tournamentID] {
		delete(e.participants, st.ID)
		delete(e.matches, st.ID)
		delete(e.matchOrder, st.ID)
	}
	delete(e.stages, tournamentID)
	return nil
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
