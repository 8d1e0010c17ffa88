package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/moderation"
)

func handleListSuspicious(mod moderationService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}
		status := models.ModerationStatus(r.URL.Query().Get("status"))

		users, err := mod.ListSuspiciousUsers(r.Context(), status, limit)
		if err != nil {
			serviceError(w, l, "Failed to list suspicious users", err)
			return
		}

		res := make([]suspiciousUserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, newSuspiciousUserResponse(u))
		}
		render.JSON(w, res)
	})
}

func handleFlagUser(mod moderationService, l logger.Logger) http.Handler {
	type request struct {
		Reason string `json:"reason" validate:"notblank,max=1000"`
		Score  int    `json:"score" validate:"min=0"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := mod.FlagSuspiciousUser(r.Context(), userID, req.Reason, req.Score)
		if err != nil {
			serviceError(w, l, "Failed to flag user", err)
			return
		}

		render.JSON(w, newSuspiciousUserResponse(u))
	})
}

func handleSetModerationStatus(mod moderationService, l logger.Logger) http.Handler {
	type request struct {
		Status string `json:"status" validate:"required,oneof=active suspended flagged"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		userID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := mod.SetStatus(r.Context(), userID, admin.ID, models.ModerationStatus(req.Status))
		if err != nil {
			serviceError(w, l, "Failed to set moderation status", err)
			return
		}

		render.JSON(w, newSuspiciousUserResponse(u))
	})
}

func handleBlockUser(mod moderationService, l logger.Logger) http.Handler {
	type request struct {
		Reason        string `json:"reason" validate:"notblank,max=1000"`
		AffiliateCode string `json:"affiliate_code" validate:"omitempty,alphanum,max=32"`
	}
	type response struct {
		UserID        string `json:"user_id"`
		AffiliateCode string `json:"affiliate_code"`
		BlockedBy     string `json:"blocked_by"`
		Reason        string `json:"reason"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		userID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		b, err := mod.Block(r.Context(), moderation.BlockParams{
			UserID:        userID,
			AdminID:       admin.ID,
			Reason:        req.Reason,
			AffiliateCode: req.AffiliateCode,
		})
		if err != nil {
			serviceError(w, l, "Failed to block user", err)
			return
		}

		render.JSON(w, response{
			UserID:        b.UserID.String(),
			AffiliateCode: b.AffiliateCode,
			BlockedBy:     b.BlockedBy.String(),
			Reason:        b.Reason,
		})
	})
}

func handleUnblockUser(mod moderationService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		userID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if err := mod.Unblock(r.Context(), userID, admin.ID); err != nil {
			serviceError(w, l, "Failed to unblock user", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleBlockUniversity(mod moderationService, l logger.Logger) http.Handler {
	return handleUniversityBlock(mod.BlockUniversity, "Failed to block university", l)
}

func handleUnblockUniversity(mod moderationService, l logger.Logger) http.Handler {
	return handleUniversityBlock(mod.UnblockUniversity, "Failed to unblock university", l)
}

type universityBlocker func(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error)

// Blocking requires a reason, the service checks it
func handleUniversityBlock(toggle universityBlocker, msg string, l logger.Logger) http.Handler {
	type request struct {
		Reason string `json:"reason" validate:"max=1000"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		universityID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := toggle(r.Context(), universityID, admin.ID, req.Reason)
		if err != nil {
			serviceError(w, l, msg, err)
			return
		}

		render.JSON(w, newUniversityResponse(u))
	})
}
