package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/actorctx"
	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

// actorFrom returns actor set by auth middleware or renders error
func actorFrom(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := actorctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
	}
	return actor, ok
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit reads optional 'limit' query param, zero means service default
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		render.ServiceError(w, "Invalid query parameter 'limit'", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}

// queryPayoutStatuses reads comma separated 'status' query param
func queryPayoutStatuses(w http.ResponseWriter, r *http.Request) ([]models.PayoutStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}

	var statuses []models.PayoutStatus
	for _, s := range strings.Split(raw, ",") {
		status := models.PayoutStatus(strings.TrimSpace(s))
		switch status {
		case models.PayoutPending, models.PayoutApproved, models.PayoutPaid, models.PayoutRejected, models.PayoutCancelled:
			statuses = append(statuses, status)
		default:
			render.ServiceError(w, "Invalid query parameter 'status'", http.StatusBadRequest)
			return nil, false
		}
	}
	return statuses, true
}

// universityAccess checks the path university belongs to the actor
// Admins see every university
func universityAccess(w http.ResponseWriter, r *http.Request) (models.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return actor, uuid.Nil, false
	}

	universityID, ok := pathID(w, r, "id")
	if !ok {
		return actor, uuid.Nil, false
	}

	if !actor.IsAdmin() && !actor.ActsFor(universityID) {
		render.ServiceError(w, "Forbidden", http.StatusForbidden)
		return actor, uuid.Nil, false
	}

	return actor, universityID, true
}
