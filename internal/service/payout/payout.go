package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/metrics"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/ledger"
)

// Service manages university payout requests
// Requests are settled manually by admins outside of the system
type Service struct {
	storage repository.Storage
	logger  logger.Logger
	metrics *metrics.Metrics

	// Overridable in tests
	now func() time.Time
}

func NewService(storage repository.Storage, l logger.Logger, m *metrics.Metrics) *Service {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		storage: storage,
		logger:  l.WithGroup("payout"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type RequestParams struct {
	UniversityID uuid.UUID
	RequestedBy  uuid.UUID
	AmountCoins  int64
	Details      models.PayoutDetails // method is taken from the details variant
}

// RequestPayout reserves coins of the university and issues the invoice
// Sum of pending and approved requests never exceeds the university balance
func (s *Service) RequestPayout(ctx context.Context, p RequestParams) (models.PayoutWithInvoice, error) {
	var result models.PayoutWithInvoice

	if p.AmountCoins <= 0 {
		return result, apperrors.ErrInvalidAmount
	}
	if err := models.ValidatePayoutDetails(p.Details); err != nil {
		return result, err
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		blocked, err := storage.Moderation().IsUserBlocked(ctx, p.RequestedBy)
		if err != nil {
			return err
		}
		if blocked {
			return apperrors.ErrUserBlocked
		}

		member, err := storage.University().IsMember(ctx, p.UniversityID, p.RequestedBy)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.ErrNotAuthorized
		}

		university, err := storage.University().GetUniversity(ctx, p.UniversityID)
		if err != nil {
			return err
		}
		if university.IsBlocked {
			return apperrors.ErrUniversityNotEligible
		}

		if err := storage.Account().EnsureUniversityAccount(ctx, p.UniversityID); err != nil {
			return err
		}
		acc, err := storage.Account().GetUniversityAccount(ctx, p.UniversityID, true)
		if err != nil {
			return err
		}

		reserved, err := storage.Payout().SumReserved(ctx, p.UniversityID)
		if err != nil {
			return err
		}
		if available := acc.BalanceCoins - reserved; p.AmountCoins > available {
			return apperrors.NewBalanceError(max(available, 0), p.AmountCoins)
		}

		result.Request, err = storage.Payout().CreatePayout(ctx, models.PayoutRequest{
			ID:           uuid.New(),
			UniversityID: p.UniversityID,
			RequestedBy:  p.RequestedBy,
			AmountCoins:  p.AmountCoins,
			AmountUSD:    models.CoinsToUSD(p.AmountCoins),
			Method:       p.Details.Method(),
			Details:      p.Details,
			Status:       models.PayoutPending,
		})
		if err != nil {
			return err
		}

		result.Invoice, err = storage.Payout().CreateInvoice(ctx, models.PayoutInvoice{
			PayoutRequestID: result.Request.ID,
			InvoiceNumber:   InvoiceNumber(s.now()),
		})
		return err
	})
	if err != nil {
		return result, fmt.Errorf("can't request payout: %w", err)
	}

	s.transitioned(result.Request, "requested_by", p.RequestedBy, "invoice", result.Invoice.InvoiceNumber)
	return result, nil
}

// CancelPayout withdraws a pending request. Allowed to the requester and staff of the same university
func (s *Service) CancelPayout(ctx context.Context, requestID, requester uuid.UUID) (models.PayoutRequest, error) {
	var req models.PayoutRequest

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		req, err = storage.Payout().GetPayout(ctx, requestID, true)
		if err != nil {
			return err
		}

		if req.RequestedBy != requester {
			member, err := storage.University().IsMember(ctx, req.UniversityID, requester)
			if err != nil {
				return err
			}
			if !member {
				return apperrors.ErrNotAuthorized
			}
		}

		if err := transition(&req, models.PayoutCancelled); err != nil {
			return err
		}

		req, err = storage.Payout().UpdatePayout(ctx, req)
		return err
	})
	if err != nil {
		return req, fmt.Errorf("can't cancel payout: %w", err)
	}

	s.transitioned(req, "cancelled_by", requester)
	return req, nil
}

func (s *Service) AdminApprove(ctx context.Context, requestID, adminID uuid.UUID) (models.PayoutRequest, error) {
	req, err := s.review(ctx, requestID, adminID, models.PayoutApproved, models.ActionPayoutApprove, func(req *models.PayoutRequest) error {
		return nil
	})
	if err != nil {
		return req, fmt.Errorf("can't approve payout: %w", err)
	}

	s.transitioned(req, "admin_id", adminID)
	return req, nil
}

// AdminReject closes a pending request and releases its reservation
func (s *Service) AdminReject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (models.PayoutRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.PayoutRequest{}, apperrors.ErrReasonRequired
	}

	req, err := s.review(ctx, requestID, adminID, models.PayoutRejected, models.ActionPayoutReject, func(req *models.PayoutRequest) error {
		req.ReviewReason = &reason
		return nil
	})
	if err != nil {
		return req, fmt.Errorf("can't reject payout: %w", err)
	}

	s.transitioned(req, "admin_id", adminID, "reason", reason)
	return req, nil
}

// review applies an admin decision that does not move coins
func (s *Service) review(
	ctx context.Context,
	requestID, adminID uuid.UUID,
	to models.PayoutStatus,
	action string,
	update func(*models.PayoutRequest) error,
) (models.PayoutRequest, error) {
	var req models.PayoutRequest

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		req, err = storage.Payout().GetPayout(ctx, requestID, true)
		if err != nil {
			return err
		}

		from := req.Status
		if err := transition(&req, to); err != nil {
			return err
		}

		now := s.now()
		req.ReviewedBy = &adminID
		req.ReviewedAt = &now
		if err := update(&req); err != nil {
			return err
		}

		req, err = storage.Payout().UpdatePayout(ctx, req)
		if err != nil {
			return err
		}

		return audit(ctx, storage, adminID, action, req, from)
	})

	return req, err
}

// AdminMarkPaid settles an approved request: debits the university and finalizes the invoice
func (s *Service) AdminMarkPaid(ctx context.Context, requestID, adminID uuid.UUID, paymentReference string) (models.PayoutRequest, error) {
	var req models.PayoutRequest

	paymentReference = strings.TrimSpace(paymentReference)
	if paymentReference == "" {
		return req, apperrors.ErrReferenceRequired
	}

	// Only to find the university account, which has to be locked before the request
	unlocked, err := s.storage.Payout().GetPayout(ctx, requestID, false)
	if err != nil {
		return req, fmt.Errorf("can't mark payout paid: %w", err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		if _, err := storage.Account().GetUniversityAccount(ctx, unlocked.UniversityID, true); err != nil {
			return err
		}

		var err error
		req, err = storage.Payout().GetPayout(ctx, requestID, true)
		if err != nil {
			return err
		}

		from := req.Status
		if err := transition(&req, models.PayoutPaid); err != nil {
			return err
		}

		reserved, err := storage.Payout().SumReserved(ctx, req.UniversityID)
		if err != nil {
			return err
		}

		// The request itself is part of the reservation
		_, err = ledger.Apply(ctx, storage, ledger.Entry{
			Account:     models.UniversityAccount(req.UniversityID),
			Type:        models.TransactionTypePaidOut,
			Amount:      req.AmountCoins,
			Description: fmt.Sprintf("Payout via %s, reference %s", req.Method, paymentReference),
			RelatedID:   &req.ID,
			Reserved:    reserved - req.AmountCoins,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrInsufficientBalance) {
				return fmt.Errorf("%w: approved payout exceeds balance: %w", apperrors.ErrInvariantViolation, err)
			}
			return err
		}

		now := s.now()
		req.PaymentReference = &paymentReference
		req.PaidAt = &now

		req, err = storage.Payout().UpdatePayout(ctx, req)
		if err != nil {
			return err
		}

		if _, err := storage.Payout().FinalizeInvoice(ctx, req.ID, now); err != nil {
			return err
		}

		return audit(ctx, storage, adminID, models.ActionPayoutMarkPaid, req, from)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvariantViolation) {
			s.metrics.InvariantViolation(string(models.AccountTypeUniversity))
			s.logger.Error("Can't settle approved payout", "payout_id", requestID, "error", err)
		}
		return req, fmt.Errorf("can't mark payout paid: %w", err)
	}

	s.metrics.LedgerEntry(string(models.AccountTypeUniversity), string(models.TransactionTypePaidOut), req.AmountCoins)
	s.transitioned(req, "admin_id", adminID, "reference", paymentReference)
	return req, nil
}

func (s *Service) GetPayout(ctx context.Context, requestID uuid.UUID) (models.PayoutWithInvoice, error) {
	var (
		result models.PayoutWithInvoice
		err    error
	)

	result.Request, err = s.storage.Payout().GetPayout(ctx, requestID, false)
	if err != nil {
		return result, err
	}

	result.Invoice, err = s.storage.Payout().GetInvoice(ctx, requestID)
	if err != nil {
		return result, fmt.Errorf("%w: payout %s has no invoice: %w", apperrors.ErrInvariantViolation, requestID, err)
	}

	return result, nil
}

func (s *Service) ListPayoutRequests(ctx context.Context, opts models.ListPayoutsOpts) ([]models.PayoutRequest, error) {
	return s.storage.Payout().ListPayouts(ctx, opts)
}

// Reserved returns coins held by pending and approved requests
func (s *Service) Reserved(ctx context.Context, universityID uuid.UUID) (int64, error) {
	return s.storage.Payout().SumReserved(ctx, universityID)
}

func (s *Service) AvailableForPayout(ctx context.Context, universityID uuid.UUID) (models.PayoutAvailability, error) {
	a := models.PayoutAvailability{UniversityID: universityID}

	acc, err := s.storage.Account().GetUniversityAccount(ctx, universityID, false)
	switch {
	case err == nil:
		a.Balance = acc.BalanceCoins
	case errors.Is(err, apperrors.ErrAccountNotFound):
	default:
		return a, err
	}

	a.Reserved, err = s.storage.Payout().SumReserved(ctx, universityID)
	return a, err
}

func (s *Service) transitioned(req models.PayoutRequest, args ...any) {
	s.metrics.PayoutTransition(string(req.Status))

	args = append([]any{
		"payout_id", req.ID,
		"university_id", req.UniversityID,
		"status", req.Status,
		"amount", req.AmountCoins,
	}, args...)
	s.logger.Info("Payout request "+string(req.Status), args...)
}

func transition(req *models.PayoutRequest, to models.PayoutStatus) error {
	if !req.Status.CanTransition(to) {
		return apperrors.NewStateError("payout request", req.Status, to)
	}
	req.Status = to
	return nil
}

func audit(ctx context.Context, storage repository.Storage, adminID uuid.UUID, action string, req models.PayoutRequest, from models.PayoutStatus) error {
	details := map[string]any{
		"from":          from,
		"to":            req.Status,
		"university_id": req.UniversityID,
		"amount_coins":  req.AmountCoins,
	}
	if req.ReviewReason != nil {
		details["reason"] = *req.ReviewReason
	}
	if req.PaymentReference != nil {
		details["payment_reference"] = *req.PaymentReference
	}

	_, err := storage.Audit().Record(ctx, models.AdminAction{
		AdminID:    adminID,
		Action:     action,
		TargetType: models.TargetPayoutRequest,
		TargetID:   req.ID,
		Details:    details,
	})
	return err
}

// InvoiceNumber formats MR-YYYYMMDD-XXXXXXXX, X are random upper case hex digits
func InvoiceNumber(now time.Time) string {
	return fmt.Sprintf("MR-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
