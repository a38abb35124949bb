package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bracketforge/bracketforge/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// SubmitHandler handles POST /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SubmitRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.SubmitRegistration(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	regs, err := h.registrationService.ListRegistrations(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type approvalInput struct {
	Approved bool `json:"approved"`
}

// ApprovalHandler handles PUT /tournaments/{tournamentID}/registrations/{email}/approval
func (h *RegistrationHandler) ApprovalHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	email := chi.URLParam(r, "email")

	var input approvalInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.SetApproval(r.Context(), tournamentID, email, input.Approved)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type pairInput struct {
	Emails   []string `json:"emails"`
	TeamCode string   `json:"team_code,omitempty"`
}

// PairHandler handles POST /tournaments/{tournamentID}/registrations/pair
func (h *RegistrationHandler) PairHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input pairInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	code, err := h.registrationService.PairRegistrations(r.Context(), tournamentID, input.Emails, input.TeamCode)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team_code": code}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConvertHandler handles POST /tournaments/{tournamentID}/teams/convert
func (h *RegistrationHandler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.registrationService.ConvertToTeams(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTeamsHandler handles GET /tournaments/{tournamentID}/teams
func (h *RegistrationHandler) ListTeamsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.registrationService.ListTeams(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type seedsInput struct {
	Assignments []services.SeedAssignment `json:"assignments"`
}

// AssignSeedsHandler handles PUT /tournaments/{tournamentID}/teams/seeds
func (h *RegistrationHandler) AssignSeedsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input seedsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.registrationService.AssignSeedNumbers(r.Context(), tournamentID, input.Assignments)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
