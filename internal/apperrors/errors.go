package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransactionType = errors.New("transaction type does not match account")
	ErrInvariantViolation     = errors.New("ledger invariant violation")

	ErrUniversityNotFound    = errors.New("university not found")
	ErrUniversityNotEligible = errors.New("university is not eligible for redemptions")

	ErrDiscountNotFound = errors.New("discount not found")
	ErrDiscountInactive = errors.New("discount is inactive")

	ErrRedemptionNotFound = errors.New("redemption not found")

	ErrPayoutNotFound       = errors.New("payout request not found")
	ErrInvalidPayoutDetails = errors.New("invalid payout details")
	ErrReasonRequired       = errors.New("reason is required")
	ErrReferenceRequired    = errors.New("payment reference is required")

	ErrInvalidState    = errors.New("invalid state transition")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrUnauthenticated = errors.New("authentication required")

	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserAlreadyBlocked = errors.New("user is already blocked")
	ErrUserNotBlocked     = errors.New("user is not blocked")
	ErrUserNotFlagged     = errors.New("user is not flagged")
	ErrUnknownStatus      = errors.New("unknown moderation status")

	ErrUnknownAuditTarget = errors.New("unknown audit target type")
)

// BalanceError is returned when a debit or a reservation asks for more coins than available.
// It matches ErrInsufficientBalance with errors.Is.
type BalanceError struct {
	Available int64
	Requested int64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: you have %d coins available, but requested %d", e.Available, e.Requested)
}

func (e *BalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

func NewBalanceError(available, requested int64) *BalanceError {
	return &BalanceError{Available: available, Requested: requested}
}

// StateError describes a rejected state machine transition.
// It matches ErrInvalidState with errors.Is.
type StateError struct {
	Entity string
	From   string
	To     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state transition: %s can't move from %q to %q", e.Entity, e.From, e.To)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

func NewStateError[S ~string](entity string, from, to S) *StateError {
	return &StateError{Entity: entity, From: string(from), To: string(to)}
}
