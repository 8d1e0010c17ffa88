package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/moderation"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/payout"
)

// tokenAuth treats the bearer token as a key of known actors
type tokenAuth map[string]models.Actor

func (a tokenAuth) Authenticate(_ context.Context, r *http.Request) (models.Actor, error) {
	actor, ok := a[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		return models.Actor{}, apperrors.ErrUnauthenticated
	}
	return actor, nil
}

// MockLedgerService is a mock implementation of ledgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, account models.AccountRef) (models.Balance, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(models.Balance), args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, account models.AccountRef, limit int) ([]models.CoinTransaction, error) {
	args := m.Called(ctx, account, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CoinTransaction), args.Error(1)
}

func (m *MockLedgerService) Earn(ctx context.Context, userID uuid.UUID, amount int64, description string) (models.CoinTransaction, error) {
	args := m.Called(ctx, userID, amount, description)
	return args.Get(0).(models.CoinTransaction), args.Error(1)
}

func (m *MockLedgerService) Reconcile(ctx context.Context, account models.AccountRef) (models.Reconciliation, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(models.Reconciliation), args.Error(1)
}

// MockRedemptionService is a mock implementation of redemptionService
type MockRedemptionService struct {
	mock.Mock
}

func (m *MockRedemptionService) RedeemCatalogDiscount(ctx context.Context, userID, universityID, discountID uuid.UUID) (models.TuitionRedemption, error) {
	args := m.Called(ctx, userID, universityID, discountID)
	return args.Get(0).(models.TuitionRedemption), args.Error(1)
}

func (m *MockRedemptionService) RedeemCustomDiscount(ctx context.Context, userID, universityID uuid.UUID, coins int64) (models.TuitionRedemption, error) {
	args := m.Called(ctx, userID, universityID, coins)
	return args.Get(0).(models.TuitionRedemption), args.Error(1)
}

func (m *MockRedemptionService) ExpireRedemption(ctx context.Context, redemptionID, adminID uuid.UUID) (models.TuitionRedemption, error) {
	args := m.Called(ctx, redemptionID, adminID)
	return args.Get(0).(models.TuitionRedemption), args.Error(1)
}

func (m *MockRedemptionService) ListRedemptions(ctx context.Context, opts models.ListRedemptionsOpts) ([]models.TuitionRedemption, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TuitionRedemption), args.Error(1)
}

// MockPayoutService is a mock implementation of payoutService
type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) RequestPayout(ctx context.Context, p payout.RequestParams) (models.PayoutWithInvoice, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.PayoutWithInvoice), args.Error(1)
}

func (m *MockPayoutService) CancelPayout(ctx context.Context, requestID, requester uuid.UUID) (models.PayoutRequest, error) {
	args := m.Called(ctx, requestID, requester)
	return args.Get(0).(models.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) AdminApprove(ctx context.Context, requestID, adminID uuid.UUID) (models.PayoutRequest, error) {
	args := m.Called(ctx, requestID, adminID)
	return args.Get(0).(models.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) AdminReject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (models.PayoutRequest, error) {
	args := m.Called(ctx, requestID, adminID, reason)
	return args.Get(0).(models.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) AdminMarkPaid(ctx context.Context, requestID, adminID uuid.UUID, paymentReference string) (models.PayoutRequest, error) {
	args := m.Called(ctx, requestID, adminID, paymentReference)
	return args.Get(0).(models.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) GetPayout(ctx context.Context, requestID uuid.UUID) (models.PayoutWithInvoice, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(models.PayoutWithInvoice), args.Error(1)
}

func (m *MockPayoutService) ListPayoutRequests(ctx context.Context, opts models.ListPayoutsOpts) ([]models.PayoutRequest, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) AvailableForPayout(ctx context.Context, universityID uuid.UUID) (models.PayoutAvailability, error) {
	args := m.Called(ctx, universityID)
	return args.Get(0).(models.PayoutAvailability), args.Error(1)
}

// MockModerationService is a mock implementation of moderationService
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) FlagSuspiciousUser(ctx context.Context, userID uuid.UUID, reason string, score int) (models.SuspiciousUser, error) {
	args := m.Called(ctx, userID, reason, score)
	return args.Get(0).(models.SuspiciousUser), args.Error(1)
}

func (m *MockModerationService) ListSuspiciousUsers(ctx context.Context, status models.ModerationStatus, limit int) ([]models.SuspiciousUser, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SuspiciousUser), args.Error(1)
}

func (m *MockModerationService) SetStatus(ctx context.Context, userID, adminID uuid.UUID, status models.ModerationStatus) (models.SuspiciousUser, error) {
	args := m.Called(ctx, userID, adminID, status)
	return args.Get(0).(models.SuspiciousUser), args.Error(1)
}

func (m *MockModerationService) Block(ctx context.Context, p moderation.BlockParams) (models.BlockedAffiliateCode, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.BlockedAffiliateCode), args.Error(1)
}

func (m *MockModerationService) Unblock(ctx context.Context, userID, adminID uuid.UUID) error {
	args := m.Called(ctx, userID, adminID)
	return args.Error(0)
}

func (m *MockModerationService) BlockUniversity(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error) {
	args := m.Called(ctx, universityID, adminID, reason)
	return args.Get(0).(models.University), args.Error(1)
}

func (m *MockModerationService) UnblockUniversity(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error) {
	args := m.Called(ctx, universityID, adminID, reason)
	return args.Get(0).(models.University), args.Error(1)
}

func (m *MockModerationService) AuditTrail(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AdminAction, error) {
	args := m.Called(ctx, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AdminAction), args.Error(1)
}
