package handlers

import (
	"net/http"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

// Staff see requests of their university only
func handleGetPayout(payouts payoutService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		p, err := payouts.GetPayout(r.Context(), id)
		if err != nil {
			serviceError(w, l, "Failed to get payout request", err)
			return
		}

		if !actor.IsAdmin() && !actor.ActsFor(p.Request.UniversityID) {
			render.ServiceError(w, "Forbidden", http.StatusForbidden)
			return
		}

		render.JSON(w, newPayoutWithInvoiceResponse(p))
	})
}

func handleCancelPayout(payouts payoutService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		p, err := payouts.CancelPayout(r.Context(), id, actor.ID)
		if err != nil {
			serviceError(w, l, "Failed to cancel payout request", err)
			return
		}

		render.JSON(w, newPayoutResponse(p))
	})
}

func handleAdminListPayouts(payouts payoutService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}
		statuses, ok := queryPayoutStatuses(w, r)
		if !ok {
			return
		}

		ps, err := payouts.ListPayoutRequests(r.Context(), models.ListPayoutsOpts{Statuses: statuses, Limit: limit})
		if err != nil {
			serviceError(w, l, "Failed to list payout requests", err)
			return
		}

		render.JSON(w, newPayoutsResponse(ps))
	})
}

func handleApprovePayout(payouts payoutService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		p, err := payouts.AdminApprove(r.Context(), id, admin.ID)
		if err != nil {
			serviceError(w, l, "Failed to approve payout request", err)
			return
		}

		render.JSON(w, newPayoutResponse(p))
	})
}

func handleRejectPayout(payouts payoutService, l logger.Logger) http.Handler {
	type request struct {
		Reason string `json:"reason" validate:"notblank,max=1000"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		p, err := payouts.AdminReject(r.Context(), id, admin.ID, req.Reason)
		if err != nil {
			serviceError(w, l, "Failed to reject payout request", err)
			return
		}

		render.JSON(w, newPayoutResponse(p))
	})
}

func handleMarkPaid(payouts payoutService, l logger.Logger) http.Handler {
	type request struct {
		PaymentReference string `json:"payment_reference" validate:"notblank,max=200"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		p, err := payouts.AdminMarkPaid(r.Context(), id, admin.ID, req.PaymentReference)
		if err != nil {
			serviceError(w, l, "Failed to mark payout request paid", err)
			return
		}

		render.JSON(w, newPayoutResponse(p))
	})
}
