package models

// StageType selects the bracket generator used when a stage is created.
type StageType string

const (
	StageSingleElimination StageType = "single_elimination"
	StageRoundRobin        StageType = "round_robin"
)

// StageSettings carries generator-specific knobs. The lifecycle engine
// forwards it opaquely; only the generators interpret it.
type StageSettings struct {
	// GroupRounds is the number of times each pairing is played in a
	// round robin stage (1 for single, 2 for double). Ignored elsewhere.
	GroupRounds int `json:"group_rounds,omitempty"`
}

// Stage is one materialized bracket unit within a tournament.
type Stage struct {
	ID           int            `json:"id"`
	TournamentID int            `json:"tournament_id"`
	Number       int            `json:"number"`
	Type         StageType      `json:"type"`
	Settings     *StageSettings `json:"settings,omitempty"`
}

// Participant is a bracket engine entrant. The engine assigns IDs when a
// stage is created from a seeding list; the lifecycle engine maps them back
// onto teams.
type Participant struct {
	ID           int    `json:"id"`
	TournamentID int    `json:"tournament_id"`
	StageID      int    `json:"stage_id"`
	Name         string `json:"name"`
	SeedIndex    int    `json:"seed_index"`
}

// MatchStatus is ordinal-comparable: a match only moves forward through
// these values, except for an explicit reset.
type MatchStatus int

const (
	MatchLocked MatchStatus = iota
	MatchWaiting
	MatchReady
	MatchRunning
	MatchCompleted
	MatchArchived
)

var matchStatusNames = map[MatchStatus]string{
	MatchLocked:    "locked",
	MatchWaiting:   "waiting",
	MatchReady:     "ready",
	MatchRunning:   "running",
	MatchCompleted: "completed",
	MatchArchived:  "archived",
}

func (s MatchStatus) String() string {
	if name, ok := matchStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseMatchStatus maps a wire name back to its status. The second return
// is false for unknown names.
func ParseMatchStatus(name string) (MatchStatus, bool) {
	for s, n := range matchStatusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// SlotResult is the outcome recorded on one opponent slot.
type SlotResult string

const (
	ResultUndetermined SlotResult = ""
	ResultWin          SlotResult = "win"
	ResultLoss         SlotResult = "loss"
	ResultDraw         SlotResult = "draw"
)

// Opponent is one side of a match: an optional participant reference plus
// its score, forfeit flag, and result. A nil ParticipantID is a slot still
// waiting on a feeder match (or a bye).
type Opponent struct {
	ParticipantID *int       `json:"participant_id"`
	Score         *int       `json:"score,omitempty"`
	Forfeit       bool       `json:"forfeit,omitempty"`
	Result        SlotResult `json:"result,omitempty"`
}

type Match struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	StageID      int         `json:"stage_id"`
	Round        int         `json:"round"`
	Number       int         `json:"number"`
	Status       MatchStatus `json:"status"`
	Opponent1    Opponent    `json:"opponent1"`
	Opponent2    Opponent    `json:"opponent2"`
}

// Clone returns a deep copy so callers never share slot pointers with the
// engine's authoritative record.
func (m *Match) Clone() *Match {
	cp := *m
	cp.Opponent1 = m.Opponent1.clone()
	cp.Opponent2 = m.Opponent2.clone()
	return &cp
}

func (o Opponent) clone() Opponent {
	cp := o
	if o.ParticipantID != nil {
		id := *o.ParticipantID
		cp.ParticipantID = &id
	}
	if o.Score != nil {
		s := *o.Score
		cp.Score = &s
	}
	return cp
}
