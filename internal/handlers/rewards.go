package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

func handleUserBalance(ledger ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}

		balance, err := ledger.GetBalance(r.Context(), models.UserAccount(actor.ID))
		if err != nil {
			serviceError(w, l, "Failed to get balance", err)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}

func handleUserTransactions(ledger ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}

		txs, err := ledger.ListTransactions(r.Context(), models.UserAccount(actor.ID), limit)
		if err != nil {
			serviceError(w, l, "Failed to list transactions", err)
			return
		}

		render.JSON(w, newTransactionsResponse(txs))
	})
}

// Catalog redemption sets discount_id, custom redemption sets coins
func handleRedeem(redemptions redemptionService, l logger.Logger) http.Handler {
	// Coins is any number literal, the amount itself is checked by the service
	type request struct {
		UniversityID string       `json:"university_id" validate:"required,uuid"`
		DiscountID   string       `json:"discount_id" validate:"required_without=Coins,excluded_with=Coins,omitempty,uuid"`
		Coins        *json.Number `json:"coins" validate:"required_without=DiscountID"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		universityID := uuid.MustParse(req.UniversityID)

		var redemption models.TuitionRedemption
		if req.DiscountID != "" {
			redemption, err = redemptions.RedeemCatalogDiscount(r.Context(), actor.ID, universityID, uuid.MustParse(req.DiscountID))
		} else {
			coins, convErr := req.Coins.Int64()
			if convErr != nil {
				serviceError(w, l, "Failed to redeem coins", fmt.Errorf("%w: coins must be a whole number", apperrors.ErrInvalidAmount))
				return
			}
			redemption, err = redemptions.RedeemCustomDiscount(r.Context(), actor.ID, universityID, coins)
		}
		if err != nil {
			serviceError(w, l, "Failed to redeem coins", err)
			return
		}

		render.JSONWithStatus(w, newRedemptionResponse(redemption), http.StatusCreated)
	})
}

func handleUserRedemptions(redemptions redemptionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}

		rs, err := redemptions.ListRedemptions(r.Context(), models.ListRedemptionsOpts{UserID: &actor.ID, Limit: limit})
		if err != nil {
			serviceError(w, l, "Failed to list redemptions", err)
			return
		}

		render.JSON(w, newRedemptionsResponse(rs))
	})
}
