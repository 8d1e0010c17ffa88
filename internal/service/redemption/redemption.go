package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/metrics"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/ledger"
)

// Smallest amount of coins a student may redeem as a custom discount
const MinCustomRedemptionCoins = 10

const (
	kindCatalog = "catalog"
	kindCustom  = "custom"
)

// Service converts student coins into tuition discounts at universities
type Service struct {
	storage repository.Storage
	logger  logger.Logger
	metrics *metrics.Metrics
}

func NewService(storage repository.Storage, l logger.Logger, m *metrics.Metrics) *Service {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		storage: storage,
		logger:  l.WithGroup("redemption"),
		metrics: m,
	}
}

// RedeemCatalogDiscount pays the catalog price of the discount to the university
func (s *Service) RedeemCatalogDiscount(ctx context.Context, userID, universityID, discountID uuid.UUID) (models.TuitionRedemption, error) {
	var red models.TuitionRedemption

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		university, err := s.eligible(ctx, storage, userID, universityID)
		if err != nil {
			return err
		}

		discount, err := storage.Discount().GetDiscount(ctx, discountID)
		if err != nil {
			return err
		}
		if !discount.IsActive {
			return apperrors.ErrDiscountInactive
		}

		red, err = redeem(ctx, storage, models.TuitionRedemption{
			UserID:         userID,
			UniversityID:   universityID,
			DiscountID:     &discount.ID,
			CostCoinsPaid:  discount.CostCoins,
			DiscountAmount: discount.DiscountAmount,
		}, fmt.Sprintf("%s at %s", discount.Name, university.Name))
		return err
	})
	if err != nil {
		return red, fmt.Errorf("can't redeem discount: %w", err)
	}

	s.redeemed(red, kindCatalog)
	return red, nil
}

// RedeemCustomDiscount converts any amount of coins into a discount of the same value in USD
func (s *Service) RedeemCustomDiscount(ctx context.Context, userID, universityID uuid.UUID, coins int64) (models.TuitionRedemption, error) {
	var red models.TuitionRedemption

	if coins < MinCustomRedemptionCoins {
		return red, fmt.Errorf("%w: at least %d coins are required", apperrors.ErrInvalidAmount, MinCustomRedemptionCoins)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		university, err := s.eligible(ctx, storage, userID, universityID)
		if err != nil {
			return err
		}

		red, err = redeem(ctx, storage, models.TuitionRedemption{
			UserID:         userID,
			UniversityID:   universityID,
			CostCoinsPaid:  coins,
			DiscountAmount: models.CoinsToUSD(coins),
		}, fmt.Sprintf("Custom tuition discount at %s", university.Name))
		return err
	})
	if err != nil {
		return red, fmt.Errorf("can't redeem custom discount: %w", err)
	}

	s.redeemed(red, kindCustom)
	return red, nil
}

// ExpireRedemption moves a confirmed redemption to expired. Coins are not returned
func (s *Service) ExpireRedemption(ctx context.Context, redemptionID, adminID uuid.UUID) (models.TuitionRedemption, error) {
	var red models.TuitionRedemption

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		current, err := storage.Redemption().GetRedemption(ctx, redemptionID, true)
		if err != nil {
			return err
		}
		if current.Status != models.RedemptionConfirmed {
			return apperrors.NewStateError("redemption", current.Status, models.RedemptionExpired)
		}

		red, err = storage.Redemption().UpdateRedemptionStatus(ctx, redemptionID, models.RedemptionExpired)
		if err != nil {
			return err
		}

		_, err = storage.Audit().Record(ctx, models.AdminAction{
			AdminID:    adminID,
			Action:     models.ActionRedemptionExpire,
			TargetType: models.TargetRedemption,
			TargetID:   redemptionID,
			Details:    map[string]any{"from": current.Status, "to": red.Status},
		})
		return err
	})
	if err != nil {
		return red, fmt.Errorf("can't expire redemption: %w", err)
	}

	s.logger.Info("Redemption expired", "redemption_id", red.ID, "admin_id", adminID)
	return red, nil
}

// ListRedemptions returns the newest first, filtered by student and/or university
func (s *Service) ListRedemptions(ctx context.Context, opts models.ListRedemptionsOpts) ([]models.TuitionRedemption, error) {
	return s.storage.Redemption().ListRedemptions(ctx, opts)
}

// eligible checks the student may redeem and the university may receive coins
func (s *Service) eligible(ctx context.Context, storage repository.Storage, userID, universityID uuid.UUID) (models.University, error) {
	blocked, err := storage.Moderation().IsUserBlocked(ctx, userID)
	if err != nil {
		return models.University{}, err
	}
	if blocked {
		return models.University{}, apperrors.ErrUserBlocked
	}

	university, err := storage.University().GetUniversity(ctx, universityID)
	switch {
	case errors.Is(err, apperrors.ErrUniversityNotFound):
		return university, fmt.Errorf("%w: %w", apperrors.ErrUniversityNotEligible, err)
	case err != nil:
		return university, err
	case !university.Eligible():
		return university, apperrors.ErrUniversityNotEligible
	}

	return university, nil
}

// redeem moves coins from the student to the university and stores the confirmed redemption
// Locks the student account before the university account
func redeem(ctx context.Context, storage repository.Storage, red models.TuitionRedemption, description string) (models.TuitionRedemption, error) {
	red.ID = uuid.New()
	red.Status = models.RedemptionConfirmed

	_, err := ledger.Apply(ctx, storage, ledger.Entry{
		Account:     models.UserAccount(red.UserID),
		Type:        models.TransactionTypeSpent,
		Amount:      red.CostCoinsPaid,
		Description: description,
		RelatedID:   &red.ID,
	})
	if err != nil {
		return red, err
	}

	amount := red.DiscountAmount
	_, err = ledger.Apply(ctx, storage, ledger.Entry{
		Account:     models.UniversityAccount(red.UniversityID),
		Type:        models.TransactionTypeReceived,
		Amount:      red.CostCoinsPaid,
		Description: description,
		RelatedID:   &red.ID,
		Discount:    &amount,
	})
	if err != nil {
		return red, err
	}

	return storage.Redemption().CreateRedemption(ctx, red)
}

func (s *Service) redeemed(red models.TuitionRedemption, kind string) {
	s.metrics.Redemption(kind)
	s.metrics.LedgerEntry(string(models.AccountTypeUser), string(models.TransactionTypeSpent), red.CostCoinsPaid)
	s.metrics.LedgerEntry(string(models.AccountTypeUniversity), string(models.TransactionTypeReceived), red.CostCoinsPaid)

	s.logger.Info("Tuition discount redeemed",
		"redemption_id", red.ID,
		"user_id", red.UserID,
		"university_id", red.UniversityID,
		"kind", kind,
		"coins", red.CostCoinsPaid,
		"discount_usd", red.DiscountAmount.StringFixed(2),
	)
}

