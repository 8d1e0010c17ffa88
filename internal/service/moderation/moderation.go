package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/metrics"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

const affiliateCodePrefix = "MATR"

// AffiliateCodeFor derives the referral code of a user when the referral system did not supply one
func AffiliateCodeFor(userID uuid.UUID) string {
	hex := strings.ReplaceAll(userID.String(), "-", "")
	return affiliateCodePrefix + strings.ToUpper(hex[:8])
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Service flags suspicious users and blocks them from earning, redeeming and requesting payouts
// Blocking never reverses balances
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
		logger:  l.WithGroup("moderation"),
		metrics: m,
	}
}

// FlagSuspiciousUser records a fraud detector signal. A suspended user stays suspended
func (s *Service) FlagSuspiciousUser(ctx context.Context, userID uuid.UUID, reason string, score int) (models.SuspiciousUser, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.SuspiciousUser{}, apperrors.ErrReasonRequired
	}

	u, err := s.storage.Moderation().FlagUser(ctx, userID, reason, score)
	if err != nil {
		return u, fmt.Errorf("can't flag user: %w", err)
	}

	s.logger.Info("User flagged", "user_id", userID, "status", u.Status, "score", score, "reason", reason)
	return u, nil
}

func (s *Service) GetSuspiciousUser(ctx context.Context, userID uuid.UUID) (models.SuspiciousUser, error) {
	return s.storage.Moderation().GetSuspiciousUser(ctx, userID)
}

// ListSuspiciousUsers filters by status unless it is empty
func (s *Service) ListSuspiciousUsers(ctx context.Context, status models.ModerationStatus, limit int) ([]models.SuspiciousUser, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownStatus, status)
	}
	return s.storage.Moderation().ListSuspiciousUsers(ctx, status, limit)
}

// SetStatus is the admin decision on a flagged user
func (s *Service) SetStatus(ctx context.Context, userID, adminID uuid.UUID, status models.ModerationStatus) (models.SuspiciousUser, error) {
	var u models.SuspiciousUser

	if !status.Valid() {
		return u, fmt.Errorf("%w: %q", apperrors.ErrUnknownStatus, status)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		current, err := storage.Moderation().GetSuspiciousUser(ctx, userID)
		if err != nil {
			return err
		}

		u, err = storage.Moderation().SetUserStatus(ctx, userID, status, "")
		if err != nil {
			return err
		}

		return audit(ctx, storage, adminID, models.ActionUserStatus, models.TargetUser, userID, map[string]any{
			"from": current.Status,
			"to":   status,
		})
	})
	if err != nil {
		return u, fmt.Errorf("can't set moderation status: %w", err)
	}

	s.metrics.ModerationAction(models.ActionUserStatus)
	s.logger.Info("Moderation status changed", "user_id", userID, "admin_id", adminID, "status", status)
	return u, nil
}

type BlockParams struct {
	UserID        uuid.UUID
	AdminID       uuid.UUID
	Reason        string
	AffiliateCode string // derived from the user id when empty
}

// Block suspends the user and blocks their affiliate code
func (s *Service) Block(ctx context.Context, p BlockParams) (models.BlockedAffiliateCode, error) {
	var b models.BlockedAffiliateCode

	reason := strings.TrimSpace(p.Reason)
	if reason == "" {
		return b, apperrors.ErrReasonRequired
	}

	code := normalizeCode(p.AffiliateCode)
	if code == "" {
		code = AffiliateCodeFor(p.UserID)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		b, err = storage.Moderation().CreateBlock(ctx, models.BlockedAffiliateCode{
			UserID:        p.UserID,
			AffiliateCode: code,
			BlockedBy:     p.AdminID,
			Reason:        reason,
		})
		if err != nil {
			return err
		}

		if _, err := storage.Moderation().SetUserStatus(ctx, p.UserID, models.ModerationSuspended, reason); err != nil {
			return err
		}

		return audit(ctx, storage, p.AdminID, models.ActionUserBlock, models.TargetUser, p.UserID, map[string]any{
			"affiliate_code": code,
			"reason":         reason,
		})
	})
	if err != nil {
		return b, fmt.Errorf("can't block user: %w", err)
	}

	s.metrics.ModerationAction(models.ActionUserBlock)
	s.logger.Info("User blocked", "user_id", p.UserID, "admin_id", p.AdminID, "affiliate_code", code)
	return b, nil
}

// Unblock lifts the block and returns the user to active
// Also lifts a suspension set through SetStatus, which has no affiliate code block
func (s *Service) Unblock(ctx context.Context, userID, adminID uuid.UUID) error {
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		err := storage.Moderation().DeleteBlock(ctx, userID)
		if errors.Is(err, apperrors.ErrUserNotBlocked) {
			err = requireSuspended(ctx, storage, userID)
		}
		if err != nil {
			return err
		}

		if _, err := storage.Moderation().SetUserStatus(ctx, userID, models.ModerationActive, ""); err != nil {
			return err
		}

		return audit(ctx, storage, adminID, models.ActionUserUnblock, models.TargetUser, userID, nil)
	})
	if err != nil {
		return fmt.Errorf("can't unblock user: %w", err)
	}

	s.metrics.ModerationAction(models.ActionUserUnblock)
	s.logger.Info("User unblocked", "user_id", userID, "admin_id", adminID)
	return nil
}

// requireSuspended accepts users blocked by status only, e.g. suspended through SetStatus
func requireSuspended(ctx context.Context, storage repository.Storage, userID uuid.UUID) error {
	u, err := storage.Moderation().GetSuspiciousUser(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFlagged):
		return apperrors.ErrUserNotBlocked
	case err != nil:
		return err
	case u.Status != models.ModerationSuspended:
		return apperrors.ErrUserNotBlocked
	}
	return nil
}

func (s *Service) IsUserBlocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.storage.Moderation().IsUserBlocked(ctx, userID)
}

// IsAffiliateCodeBlocked is used by referral attribution, codes are case insensitive
func (s *Service) IsAffiliateCodeBlocked(ctx context.Context, code string) (bool, error) {
	code = normalizeCode(code)
	if code == "" {
		return false, nil
	}
	return s.storage.Moderation().IsCodeBlocked(ctx, code)
}

// BlockUniversity stops redemptions to the university and new payout requests
func (s *Service) BlockUniversity(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.University{}, apperrors.ErrReasonRequired
	}
	return s.setUniversityBlocked(ctx, universityID, adminID, true, reason)
}

func (s *Service) UnblockUniversity(ctx context.Context, universityID, adminID uuid.UUID, reason string) (models.University, error) {
	return s.setUniversityBlocked(ctx, universityID, adminID, false, strings.TrimSpace(reason))
}

func (s *Service) setUniversityBlocked(ctx context.Context, universityID, adminID uuid.UUID, blocked bool, reason string) (models.University, error) {
	var (
		u      models.University
		action = models.ActionUniversityUnblock
	)
	if blocked {
		action = models.ActionUniversityBlock
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		u, err = storage.University().SetBlocked(ctx, universityID, blocked)
		if err != nil {
			return err
		}

		return audit(ctx, storage, adminID, action, models.TargetUniversity, universityID, map[string]any{"reason": reason})
	})
	if err != nil {
		return u, fmt.Errorf("can't change university block: %w", err)
	}

	s.metrics.ModerationAction(action)
	s.logger.Info("University block changed", "university_id", universityID, "admin_id", adminID, "blocked", blocked)
	return u, nil
}

// AuditTrail lists admin actions taken on the target, newest first
func (s *Service) AuditTrail(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AdminAction, error) {
	if !models.ValidAuditTarget(targetType) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownAuditTarget, targetType)
	}
	return s.storage.Audit().ListActions(ctx, targetType, targetID)
}

func audit(
	ctx context.Context,
	storage repository.Storage,
	adminID uuid.UUID,
	action, targetType string,
	targetID uuid.UUID,
	details map[string]any,
) error {
	_, err := storage.Audit().Record(ctx, models.AdminAction{
		AdminID:    adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	})
	return err
}
