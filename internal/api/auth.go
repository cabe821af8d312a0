package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"showdesk/internal/auth"
	"showdesk/internal/db"
	"showdesk/internal/models"
)

type AuthHandler struct {
	staff      *db.StaffRepository
	jwtService *auth.JWTService
}

func NewAuthHandler(staff *db.StaffRepository, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		staff:      staff,
		jwtService: jwtService,
	}
}

type loginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	AccessKey string `json:"accessKey" validate:"required,min=8"`
}

type loginResponse struct {
	AccessToken string              `json:"accessToken"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	Staff       *models.StaffMember `json:"staff"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	storedHash, err := h.staff.AccessKeyHash(r.Context(), email)
	if errors.Is(err, db.ErrNotFound) {
		// Same response as a wrong key so emails cannot be probed.
		unauthorized(w, "Invalid email or access key")
		return
	}
	if err != nil {
		slog.Error("error loading staff access key", "error", err)
		internalError(w)
		return
	}

	if !auth.VerifyAccessKey(req.AccessKey, storedHash) {
		unauthorized(w, "Invalid email or access key")
		return
	}

	staff, err := h.staff.FindByEmail(r.Context(), email)
	if err != nil {
		slog.Error("error loading staff member", "error", err)
		internalError(w)
		return
	}

	token, err := h.jwtService.IssueAccessToken(staff)
	if err != nil {
		slog.Error("error issuing access token", "error", err)
		internalError(w)
		return
	}

	slog.Info("staff login", "staff_id", staff.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		Staff:       staff,
	})
}
