package handlers

import (
	"fmt"
	"net/http"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/models"
	"github.com/bracketforge/bracketforge/services"
)

type MatchHandler struct {
	matchService    services.MatchService
	metadataService services.MetadataService
}

func NewMatchHandler(ms services.MatchService, mds services.MetadataService) *MatchHandler {
	return &MatchHandler{matchService: ms, metadataService: mds}
}

func (h *MatchHandler) matchIDs(r *http.Request) (tournamentID, matchID int, err error) {
	tournamentID, err = getIDFromURL(r, "tournamentID")
	if err != nil {
		return 0, 0, err
	}
	matchID, err = getIDFromURL(r, "matchID")
	if err != nil {
		return 0, 0, err
	}
	return tournamentID, matchID, nil
}

// GetHandler handles GET /tournaments/{tournamentID}/matches/{matchID}
func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/matches
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /tournaments/{tournamentID}/matches/{matchID}/start
func (h *MatchHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.StartMatch(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type scoreInput struct {
	TeamID int `json:"team_id"`
	Delta  int `json:"delta"`
}

// ScoreHandler handles POST /tournaments/{tournamentID}/matches/{matchID}/score
func (h *MatchHandler) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input scoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateScore(r.Context(), tournamentID, input.TeamID, matchID, input.Delta)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type teamInput struct {
	TeamID int `json:"team_id"`
}

// ForfeitHandler handles POST /tournaments/{tournamentID}/matches/{matchID}/forfeit
func (h *MatchHandler) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input teamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Forfeit(r.Context(), tournamentID, input.TeamID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WinnerHandler handles POST /tournaments/{tournamentID}/matches/{matchID}/winner
func (h *MatchHandler) WinnerHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input teamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.SelectWinner(r.Context(), tournamentID, input.TeamID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DrawHandler handles POST /tournaments/{tournamentID}/matches/{matchID}/draw
func (h *MatchHandler) DrawHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.DeclareDraw(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResetHandler handles POST /tournaments/{tournamentID}/matches/{matchID}/reset
func (h *MatchHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Reset(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type opponentPatchInput struct {
	ParticipantID *int               `json:"participant_id"`
	Score         *int               `json:"score"`
	ClearScore    bool               `json:"clear_score"`
	Forfeit       *bool              `json:"forfeit"`
	Result        *models.SlotResult `json:"result"`
}

type matchPatchInput struct {
	Status    *string             `json:"status"`
	Opponent1 *opponentPatchInput `json:"opponent1"`
	Opponent2 *opponentPatchInput `json:"opponent2"`
}

func (in *opponentPatchInput) toPatch() *brackets.OpponentPatch {
	if in == nil {
		return nil
	}
	return &brackets.OpponentPatch{
		ParticipantID: in.ParticipantID,
		Score:         in.Score,
		ClearScore:    in.ClearScore,
		Forfeit:       in.Forfeit,
		Result:        in.Result,
	}
}

// PatchHandler handles PATCH /tournaments/{tournamentID}/matches/{matchID},
// the generic merge-patch over a match. The protocol endpoints above cover
// normal play; this is the administrative correction path.
func (h *MatchHandler) PatchHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input matchPatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	patch := brackets.MatchPatch{
		Opponent1: input.Opponent1.toPatch(),
		Opponent2: input.Opponent2.toPatch(),
	}
	if input.Status != nil {
		status, ok := models.ParseMatchStatus(*input.Status)
		if !ok {
			badRequestResponse(w, r, fmt.Errorf("unknown match status %q", *input.Status))
			return
		}
		patch.Status = &status
	}

	match, err := h.matchService.UpdateMatch(r.Context(), tournamentID, matchID, patch)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type metadataInput struct {
	Title string `json:"title"`
}

// SetMetadataHandler handles PUT /tournaments/{tournamentID}/matches/{matchID}/metadata
func (h *MatchHandler) SetMetadataHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input metadataInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	md, err := h.metadataService.SetMetadata(r.Context(), tournamentID, matchID, input.Title)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"metadata": md}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMetadataHandler handles GET /tournaments/{tournamentID}/matches/{matchID}/metadata
func (h *MatchHandler) GetMetadataHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := h.matchIDs(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	md, err := h.metadataService.GetMetadata(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"metadata": md}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
