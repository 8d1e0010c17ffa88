package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/middleware"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/moderation"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/payout"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth       authenticator
	Ledger     ledgerService
	Redemption redemptionService
	Payout     payoutService
	Moderation moderationService

	// Optional, both may be nil
	Metrics        httpObserver
	MetricsHandler http.Handler
}

func NewRouter(s Services, l logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth)
	as := func(roles ...models.Role) func(http.Handler) http.Handler {
		requireRole := middleware.RequireRole(roles...)
		return func(h http.Handler) http.Handler {
			return withAuth(requireRole(h))
		}
	}

	anyone := withAuth
	student := as(models.RoleStudent)
	staff := as(models.RoleUniversity)
	staffOrAdmin := as(models.RoleUniversity, models.RoleAdmin)
	admin := as(models.RoleAdmin)

	mux := http.NewServeMux()

	// Own student account
	mux.Handle("GET /api/rewards/balance", anyone(handleUserBalance(s.Ledger, l)))
	mux.Handle("GET /api/rewards/transactions", anyone(handleUserTransactions(s.Ledger, l)))
	mux.Handle("POST /api/rewards/redemptions", student(handleRedeem(s.Redemption, l)))
	mux.Handle("GET /api/rewards/redemptions", student(handleUserRedemptions(s.Redemption, l)))

	// University rewards account
	mux.Handle("GET /api/universities/{id}/rewards", staffOrAdmin(handleUniversityRewards(s.Ledger, s.Payout, l)))
	mux.Handle("GET /api/universities/{id}/transactions", staffOrAdmin(handleUniversityTransactions(s.Ledger, l)))
	mux.Handle("GET /api/universities/{id}/redemptions", staffOrAdmin(handleUniversityRedemptions(s.Redemption, l)))
	mux.Handle("POST /api/universities/{id}/payouts", staff(handleRequestPayout(s.Payout, l)))
	mux.Handle("GET /api/universities/{id}/payouts", staffOrAdmin(handleUniversityPayouts(s.Payout, l)))

	mux.Handle("GET /api/payouts/{id}", staffOrAdmin(handleGetPayout(s.Payout, l)))
	mux.Handle("POST /api/payouts/{id}/cancel", staff(handleCancelPayout(s.Payout, l)))

	// Admin review and settlement
	mux.Handle("GET /api/admin/payouts", admin(handleAdminListPayouts(s.Payout, l)))
	mux.Handle("POST /api/admin/payouts/{id}/approve", admin(handleApprovePayout(s.Payout, l)))
	mux.Handle("POST /api/admin/payouts/{id}/mark-paid", admin(handleMarkPaid(s.Payout, l)))
	mux.Handle("POST /api/admin/payouts/{id}/reject", admin(handleRejectPayout(s.Payout, l)))
	mux.Handle("POST /api/admin/earnings", admin(handleEarn(s.Ledger, l)))
	mux.Handle("POST /api/admin/redemptions/{id}/expire", admin(handleExpireRedemption(s.Redemption, l)))
	mux.Handle("GET /api/admin/reconcile/{type}/{id}", admin(handleReconcile(s.Ledger, l)))
	mux.Handle("GET /api/admin/audit/{type}/{id}", admin(handleAuditTrail(s.Moderation, l)))

	// Moderation
	mux.Handle("GET /api/admin/moderation/suspicious", admin(handleListSuspicious(s.Moderation, l)))
	mux.Handle("POST /api/admin/moderation/users/{id}/flag", admin(handleFlagUser(s.Moderation, l)))
	mux.Handle("POST /api/admin/moderation/users/{id}/status", admin(handleSetModerationStatus(s.Moderation, l)))
	mux.Handle("POST /api/admin/moderation/users/{id}/block", admin(handleBlockUser(s.Moderation, l)))
	mux.Handle("POST /api/admin/moderation/users/{id}/unblock", admin(handleUnblockUser(s.Moderation, l)))
	mux.Handle("POST /api/admin/moderation/universities/{id}/block", admin(handleBlockUniversity(s.Moderation, l)))
	mux.Handle("POST /api/admin/moderation/universities/{id}/unblock", admin(handleUnblockUniversity(s.Moderation, l)))

	if s.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.MetricsHandler)
	}

	mds := []func(http.Handler) http.Handler{middleware.LoggerMiddleware(l)}
	if s.Metrics != nil {
		mds = append(mds, middleware.MetricsMiddleware(s.Metrics))
	}

	return chain(mux, mds...)
}

type authenticator interface {
	// Has to return error if request carries no valid access token
	Authenticate(ctx context.Context, r *http.Request) (models.Actor, error)
}

type httpObserver interface {
	ObserveHTTP(route string, status int, d time.Duration)
}

type ledgerService interface {
	GetBalance(ctx context.Context, account models.AccountRef) (models.Balance, error)
	ListTransactions(ctx context.Context, account models.AccountRef, limit int) ([]models.CoinTransaction, error)
	Earn(ctx context.Context, userID uuid.UUID, amount int64, description string) (models.CoinTransaction, error)
	Reconcile(ctx context.Context, account models.AccountRef) (models.Reconciliation, error)
}

type redemptionService interface {
	RedeemCatalogDiscount(ctx context.Context, userID, universityID, discountID uuid.UUID) (models.TuitionRedemption, error)
	RedeemCustomDiscount(ctx context.Context, userID, universityID uuid.UUID, coins int64) (models.TuitionRedemption, error)
	ExpireRedemption(ctx context.Context, redemptionID, adminID uuid.UUID) (models.TuitionRedemption, error)
	ListRedemptions(ctx context.Context, opts models.ListRedemptionsOpts) ([]models.TuitionRedemption, error)
}

type payoutService interface {
	RequestPayout(ctx context.Context, p payout.RequestParams) (models.PayoutWithInvoice, error)
	CancelPayout(ctx context.Context, requestID, requester uuid.UUID) (models.PayoutRequest, error)
	AdminApprove(ctx context.Context, requestID, adminID uuid.UUID) (models.PayoutRequest, error)
	AdminReject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (models.PayoutRequest, error)
	AdminMarkPaid(ctx context.Context, requestID, adminID uuid.UUID, paymentReference string) (models.PayoutRequest, error)
	GetPayout(ctx context.Context, requestID uuid.UUID) (models.PayoutWithInvoice, error)
	ListPayoutRequests(ctx context.Context, opts models.ListPayoutsOpts) ([]models.PayoutRequest, error)
	AvailableForPayout(ctx context.Context, universityID uuid.UUID) (models.PayoutAvailability, error)
}

type moderationService interface {
	FlagSuspiciousUser(ctx context.Context, userID uuid.UUID, reason string, score int) (models.SuspiciousUser, error)
	ListSuspiciousUsers(ctx context.Context, status models.ModerationStatus, limit int) ([]models.SuspiciousUser, error)
	SetStatus(ctx context.Context, userID, adminID uuid.UUID, status models.ModerationStatus) (models.SuspiciousUser, error)
	Block(ctx context.Context, p moderation.BlockParams) (models.BlockedAffiliateCode, error)
	Unblock(ctx context.Context, userID, adminID uuid.UUID) error
	BlockUniversity(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error)
	UnblockUniversity(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error)
	AuditTrail(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AdminAction, error)
}
