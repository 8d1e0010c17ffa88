package handlers

import (
	"errors"
	"net/http"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
)

// Order matters: wrapping errors go before the errors they wrap
var clientErrors = []struct {
	err  error
	code int
}{
	{apperrors.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{apperrors.ErrInvalidTransactionType, http.StatusUnprocessableEntity},
	{apperrors.ErrReasonRequired, http.StatusUnprocessableEntity},
	{apperrors.ErrReferenceRequired, http.StatusUnprocessableEntity},
	{apperrors.ErrUniversityNotEligible, http.StatusUnprocessableEntity},
	{apperrors.ErrDiscountInactive, http.StatusUnprocessableEntity},
	{apperrors.ErrUnknownStatus, http.StatusUnprocessableEntity},
	{apperrors.ErrUnknownAuditTarget, http.StatusBadRequest},

	{apperrors.ErrNotAuthorized, http.StatusForbidden},
	{apperrors.ErrUserBlocked, http.StatusForbidden},

	{apperrors.ErrUserAlreadyBlocked, http.StatusConflict},
	{apperrors.ErrUserNotBlocked, http.StatusConflict},

	{apperrors.ErrAccountNotFound, http.StatusNotFound},
	{apperrors.ErrUniversityNotFound, http.StatusNotFound},
	{apperrors.ErrDiscountNotFound, http.StatusNotFound},
	{apperrors.ErrRedemptionNotFound, http.StatusNotFound},
	{apperrors.ErrPayoutNotFound, http.StatusNotFound},
	{apperrors.ErrUserNotFlagged, http.StatusNotFound},
}

// serviceError renders error returned by a service
// Unknown errors are logged and hidden behind 500
func serviceError(w http.ResponseWriter, l logger.Logger, msg string, err error) {
	var balanceErr *apperrors.BalanceError
	var stateErr *apperrors.StateError

	switch {
	case errors.Is(err, apperrors.ErrInvariantViolation):
		l.Error(msg, "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	case errors.As(err, &balanceErr):
		render.ServiceError(w, balanceErr.Error(), http.StatusPaymentRequired)
		return
	case errors.As(err, &stateErr):
		render.ServiceError(w, stateErr.Error(), http.StatusConflict)
		return
	case errors.Is(err, apperrors.ErrInvalidPayoutDetails):
		render.ServiceError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	for _, e := range clientErrors {
		if errors.Is(err, e.err) {
			render.ServiceError(w, e.err.Error(), e.code)
			return
		}
	}

	l.Error(msg, "error", err)
	render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
}
