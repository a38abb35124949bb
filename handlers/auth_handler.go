package handlers

import (
	"net/http"
	"time"

	"github.com/bracketforge/bracketforge/utils"
)

type AuthHandler struct {
	jwtSecret         []byte
	adminEmail        string
	adminPasswordHash string
}

func NewAuthHandler(jwtSecret []byte, adminEmail, adminPasswordHash string) *AuthHandler {
	return &AuthHandler{
		jwtSecret:         jwtSecret,
		adminEmail:        adminEmail,
		adminPasswordHash: adminPasswordHash,
	}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler handles POST /auth/login for the configured admin account.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if h.adminEmail == "" || input.Email != h.adminEmail ||
		!utils.CheckPasswordHash(input.Password, h.adminPasswordHash) {
		unauthorizedResponse(w, r, "invalid email or password")
		return
	}

	token, err := utils.GenerateAdminToken(h.jwtSecret, input.Email, 24*time.Hour)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
