package models

// MatchMetadata is an auxiliary display title for a match. It never affects
// match correctness; writes are last-writer-wins.
type MatchMetadata struct {
	TournamentID int    `json:"tournament_id"`
	MatchID      int    `json:"match_id"`
	Title        string `json:"title"`
}
