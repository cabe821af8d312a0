package api

import (
	"log/slog"
	"net/http"

	"showdesk/internal/db"
	"showdesk/internal/models"
)

type RosterHandler struct {
	staff *db.StaffRepository
}

func NewRosterHandler(staff *db.StaffRepository) *RosterHandler {
	return &RosterHandler{staff: staff}
}

type rosterResponse struct {
	Staff    []*models.StaffMember `json:"staff"`
	RoleKeys []string              `json:"roleKeys"`
}

// GET /api/v1/events/{eventID}/roster
//
// Staff are provisioned portal-wide, so the roster is the same for every
// event; the route is event-scoped to leave room for per-event crews.
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	members, err := h.staff.List(r.Context())
	if err != nil {
		slog.Error("error listing staff", "error", err)
		internalError(w)
		return
	}
	roleKeys, err := h.staff.RoleKeys(r.Context())
	if err != nil {
		slog.Error("error listing role keys", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, rosterResponse{
		Staff:    members,
		RoleKeys: roleKeys,
	})
}
