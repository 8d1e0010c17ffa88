package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/payout"
)

func handleUniversityRewards(ledger ledgerService, payouts payoutService, l logger.Logger) http.Handler {
	type response struct {
		balanceResponse
		Reserved  int64 `json:"reserved"`
		Available int64 `json:"available_for_payout"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, universityID, ok := universityAccess(w, r)
		if !ok {
			return
		}

		balance, err := ledger.GetBalance(r.Context(), models.UniversityAccount(universityID))
		if err != nil {
			serviceError(w, l, "Failed to get university balance", err)
			return
		}

		availability, err := payouts.AvailableForPayout(r.Context(), universityID)
		if err != nil {
			serviceError(w, l, "Failed to get reserved coins", err)
			return
		}

		render.JSON(w, response{
			balanceResponse: newBalanceResponse(balance),
			Reserved:        availability.Reserved,
			Available:       availability.Available(),
		})
	})
}

func handleUniversityTransactions(ledger ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, universityID, ok := universityAccess(w, r)
		if !ok {
			return
		}
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}

		txs, err := ledger.ListTransactions(r.Context(), models.UniversityAccount(universityID), limit)
		if err != nil {
			serviceError(w, l, "Failed to list transactions", err)
			return
		}

		render.JSON(w, newTransactionsResponse(txs))
	})
}

func handleUniversityRedemptions(redemptions redemptionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, universityID, ok := universityAccess(w, r)
		if !ok {
			return
		}
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}

		rs, err := redemptions.ListRedemptions(r.Context(), models.ListRedemptionsOpts{UniversityID: &universityID, Limit: limit})
		if err != nil {
			serviceError(w, l, "Failed to list redemptions", err)
			return
		}

		render.JSON(w, newRedemptionsResponse(rs))
	})
}

func handleRequestPayout(payouts payoutService, l logger.Logger) http.Handler {
	type request struct {
		AmountCoins int64           `json:"amount_coins" validate:"required"`
		Method      string          `json:"payout_method" validate:"required,oneof=zelle bank_transfer stripe"`
		Details     json.RawMessage `json:"payout_details" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, universityID, ok := universityAccess(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		details, err := models.DecodePayoutDetails(models.PayoutMethod(req.Method), req.Details)
		if err != nil {
			serviceError(w, l, "Failed to decode payout details", err)
			return
		}

		p, err := payouts.RequestPayout(r.Context(), payout.RequestParams{
			UniversityID: universityID,
			RequestedBy:  actor.ID,
			AmountCoins:  req.AmountCoins,
			Details:      details,
		})
		if err != nil {
			serviceError(w, l, "Failed to request payout", err)
			return
		}

		render.JSONWithStatus(w, newPayoutWithInvoiceResponse(p), http.StatusCreated)
	})
}

func handleUniversityPayouts(payouts payoutService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, universityID, ok := universityAccess(w, r)
		if !ok {
			return
		}
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}
		statuses, ok := queryPayoutStatuses(w, r)
		if !ok {
			return
		}

		ps, err := payouts.ListPayoutRequests(r.Context(), models.ListPayoutsOpts{
			UniversityID: &universityID,
			Statuses:     statuses,
			Limit:        limit,
		})
		if err != nil {
			serviceError(w, l, "Failed to list payout requests", err)
			return
		}

		render.JSON(w, newPayoutsResponse(ps))
	})
}
