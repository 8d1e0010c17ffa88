package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListLimit applies the default to non-positive limits and caps large ones
func ListLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// Storage gives access to all repositories bound to the same connection or transaction
type Storage interface {
	Account() AccountRepo
	Transaction() TransactionRepo
	Discount() DiscountRepo
	University() UniversityRepo
	Redemption() RedemptionRepo
	Payout() PayoutRepo
	Moderation() ModerationRepo
	Audit() AuditRepo

	// Run fn in a transaction. Commit if fn returns nil, rollback otherwise
	// Nested calls open a savepoint
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Credit accounts of students and rewards accounts of universities
// Accounts are addressed by owner id (user or university), not by row id
type AccountRepo interface {
	// Create the account with zero balance if it does not exist yet. Idempotent
	EnsureUserAccount(ctx context.Context, userID uuid.UUID) error

	// If account not found must return apperrors.ErrAccountNotFound
	// forUpdate locks the row until the transaction ends
	GetUserAccount(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.UserCreditAccount, error)

	// Persist balance and totals
	SaveUserAccount(ctx context.Context, acc models.UserCreditAccount) (models.UserCreditAccount, error)

	// Same as EnsureUserAccount
	// If university does not exist must return apperrors.ErrUniversityNotFound
	EnsureUniversityAccount(ctx context.Context, universityID uuid.UUID) error
	GetUniversityAccount(ctx context.Context, universityID uuid.UUID, forUpdate bool) (models.UniversityRewardsAccount, error)
	SaveUniversityAccount(ctx context.Context, acc models.UniversityRewardsAccount) (models.UniversityRewardsAccount, error)
}

// Append-only coin journal
type TransactionRepo interface {
	CreateTransaction(ctx context.Context, t models.CoinTransaction) (models.CoinTransaction, error)

	// Newest first
	ListTransactions(ctx context.Context, account models.AccountRef, opts models.ListTransactionsOpts) ([]models.CoinTransaction, error)

	// Totals rebuilt from the journal
	Summarize(ctx context.Context, account models.AccountRef) (models.JournalSummary, error)
}

type DiscountRepo interface {
	// If discount not found must return apperrors.ErrDiscountNotFound
	GetDiscount(ctx context.Context, id uuid.UUID) (models.TuitionDiscount, error)
	CreateDiscount(ctx context.Context, d models.TuitionDiscount) (models.TuitionDiscount, error)
}

type UniversityRepo interface {
	CreateUniversity(ctx context.Context, u models.University) (models.University, error)

	// If university not found must return apperrors.ErrUniversityNotFound
	GetUniversity(ctx context.Context, id uuid.UUID) (models.University, error)
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) (models.University, error)

	AddMember(ctx context.Context, universityID uuid.UUID, userID uuid.UUID) error
	IsMember(ctx context.Context, universityID uuid.UUID, userID uuid.UUID) (bool, error)
}

type RedemptionRepo interface {
	CreateRedemption(ctx context.Context, r models.TuitionRedemption) (models.TuitionRedemption, error)

	// If redemption not found must return apperrors.ErrRedemptionNotFound
	GetRedemption(ctx context.Context, id uuid.UUID, forUpdate bool) (models.TuitionRedemption, error)
	UpdateRedemptionStatus(ctx context.Context, id uuid.UUID, status models.RedemptionStatus) (models.TuitionRedemption, error)

	// Newest first
	ListRedemptions(ctx context.Context, opts models.ListRedemptionsOpts) ([]models.TuitionRedemption, error)
}

type PayoutRepo interface {
	CreatePayout(ctx context.Context, p models.PayoutRequest) (models.PayoutRequest, error)

	// If payout request not found must return apperrors.ErrPayoutNotFound
	GetPayout(ctx context.Context, id uuid.UUID, forUpdate bool) (models.PayoutRequest, error)

	// Persist status and review fields
	UpdatePayout(ctx context.Context, p models.PayoutRequest) (models.PayoutRequest, error)

	// Newest first
	ListPayouts(ctx context.Context, opts models.ListPayoutsOpts) ([]models.PayoutRequest, error)

	// Sum of amount_coins of pending and approved requests of the university
	SumReserved(ctx context.Context, universityID uuid.UUID) (int64, error)

	CreateInvoice(ctx context.Context, inv models.PayoutInvoice) (models.PayoutInvoice, error)

	// If invoice not found must return apperrors.ErrPayoutNotFound
	GetInvoice(ctx context.Context, payoutID uuid.UUID) (models.PayoutInvoice, error)
	FinalizeInvoice(ctx context.Context, payoutID uuid.UUID, at time.Time) (models.PayoutInvoice, error)
}

type ModerationRepo interface {
	// Insert or update the flag. A suspended user stays suspended
	FlagUser(ctx context.Context, userID uuid.UUID, reason string, score int) (models.SuspiciousUser, error)

	// Insert or update the moderation status
	SetUserStatus(ctx context.Context, userID uuid.UUID, status models.ModerationStatus, reason string) (models.SuspiciousUser, error)

	// If user was never flagged must return apperrors.ErrUserNotFlagged
	GetSuspiciousUser(ctx context.Context, userID uuid.UUID) (models.SuspiciousUser, error)

	// Filter by status if it is not empty
	ListSuspiciousUsers(ctx context.Context, status models.ModerationStatus, limit int) ([]models.SuspiciousUser, error)

	// If the user is blocked already must return apperrors.ErrUserAlreadyBlocked
	CreateBlock(ctx context.Context, b models.BlockedAffiliateCode) (models.BlockedAffiliateCode, error)

	// If the user is not blocked must return apperrors.ErrUserNotBlocked
	DeleteBlock(ctx context.Context, userID uuid.UUID) error
	GetBlock(ctx context.Context, userID uuid.UUID) (models.BlockedAffiliateCode, error)

	// A user is blocked when the block row exists or the status is suspended
	IsUserBlocked(ctx context.Context, userID uuid.UUID) (bool, error)
	IsCodeBlocked(ctx context.Context, code string) (bool, error)
}

type AuditRepo interface {
	Record(ctx context.Context, a models.AdminAction) (models.AdminAction, error)

	// Newest first
	ListActions(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AdminAction, error)
}
