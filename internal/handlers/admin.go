package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

// Earning sources (referrals, promotions) report coins through this endpoint
func handleEarn(ledger ledgerService, l logger.Logger) http.Handler {
	type request struct {
		UserID      string `json:"user_id" validate:"required,uuid"`
		Amount      int64  `json:"amount" validate:"gt=0"`
		Description string `json:"description" validate:"notblank,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		tx, err := ledger.Earn(r.Context(), uuid.MustParse(req.UserID), req.Amount, req.Description)
		if err != nil {
			serviceError(w, l, "Failed to credit earned coins", err)
			return
		}

		render.JSONWithStatus(w, newTransactionResponse(tx), http.StatusCreated)
	})
}

func handleExpireRedemption(redemptions redemptionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		redemption, err := redemptions.ExpireRedemption(r.Context(), id, admin.ID)
		if err != nil {
			serviceError(w, l, "Failed to expire redemption", err)
			return
		}

		render.JSON(w, newRedemptionResponse(redemption))
	})
}

func handleReconcile(ledger ledgerService, l logger.Logger) http.Handler {
	type journal struct {
		Credited    int64 `json:"total_credited"`
		Debited     int64 `json:"total_debited"`
		Balance     int64 `json:"balance"`
		Entries     int64 `json:"entries"`
		LastBalance int64 `json:"last_balance_after"`
	}
	type response struct {
		Stored     balanceResponse `json:"stored"`
		Journal    journal         `json:"journal"`
		Consistent bool            `json:"consistent"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountType := models.AccountType(r.PathValue("type"))
		if accountType != models.AccountTypeUser && accountType != models.AccountTypeUniversity {
			render.ServiceError(w, "Invalid type", http.StatusBadRequest)
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		rec, err := ledger.Reconcile(r.Context(), models.AccountRef{Type: accountType, ID: id})
		if err != nil {
			serviceError(w, l, "Ledger reconciliation failed", err)
			return
		}

		render.JSON(w, response{
			Stored: newBalanceResponse(rec.Stored),
			Journal: journal{
				Credited:    rec.Journal.Credited,
				Debited:     rec.Journal.Debited,
				Balance:     rec.Journal.Balance(),
				Entries:     rec.Journal.Count,
				LastBalance: rec.Journal.LastBalance,
			},
			Consistent: rec.Consistent(),
		})
	})
}

func handleAuditTrail(moderation moderationService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		actions, err := moderation.AuditTrail(r.Context(), r.PathValue("type"), id)
		if err != nil {
			serviceError(w, l, "Failed to list admin actions", err)
			return
		}

		resp := make([]adminActionResponse, 0, len(actions))
		for _, a := range actions {
			resp = append(resp, adminActionResponse(a))
		}
		render.JSON(w, resp)
	})
}
