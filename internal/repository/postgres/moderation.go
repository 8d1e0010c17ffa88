package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

type ModerationRepo struct {
	DB DBTX
}

const suspiciousColumns = `user_id, status, reason, score, flagged_at, updated_at`

const flagUser = `-- name: FlagUser
INSERT INTO suspicious_users (user_id, status, reason, score)
VALUES ($1, 'flagged', $2, $3)
ON CONFLICT (user_id) DO UPDATE
SET status = CASE WHEN suspicious_users.status = 'suspended' THEN 'suspended' ELSE 'flagged' END,
	reason = EXCLUDED.reason,
	score = EXCLUDED.score,
	flagged_at = NOW(),
	updated_at = NOW()
RETURNING ` + suspiciousColumns

func (r *ModerationRepo) FlagUser(ctx context.Context, userID uuid.UUID, reason string, score int) (models.SuspiciousUser, error) {
	rows, _ := r.DB.Query(ctx, flagUser, userID, reason, score)
	u, err := pgx.CollectOneRow(rows, rowToSuspiciousUser)
	if err != nil {
		return u, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// Empty reason keeps the stored one
const setUserStatus = `-- name: SetUserStatus
INSERT INTO suspicious_users (user_id, status, reason)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE
SET status = EXCLUDED.status,
	reason = CASE WHEN EXCLUDED.reason = '' THEN suspicious_users.reason ELSE EXCLUDED.reason END,
	updated_at = NOW()
RETURNING ` + suspiciousColumns

func (r *ModerationRepo) SetUserStatus(ctx context.Context, userID uuid.UUID, status models.ModerationStatus, reason string) (models.SuspiciousUser, error) {
	rows, _ := r.DB.Query(ctx, setUserStatus, userID, status, reason)
	u, err := pgx.CollectOneRow(rows, rowToSuspiciousUser)
	if err != nil {
		return u, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

const getSuspiciousUser = `-- name: GetSuspiciousUser
SELECT ` + suspiciousColumns + `
FROM suspicious_users
WHERE user_id = $1
`

func (r *ModerationRepo) GetSuspiciousUser(ctx context.Context, userID uuid.UUID) (models.SuspiciousUser, error) {
	rows, _ := r.DB.Query(ctx, getSuspiciousUser, userID)
	u, err := pgx.CollectOneRow(rows, rowToSuspiciousUser)

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return u, apperrors.ErrUserNotFlagged
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}

const listSuspiciousUsers = `-- name: ListSuspiciousUsers
SELECT ` + suspiciousColumns + `
FROM suspicious_users
WHERE ($1::text = '' OR status = $1::text)
ORDER BY updated_at DESC, user_id
LIMIT $2
`

func (r *ModerationRepo) ListSuspiciousUsers(ctx context.Context, status models.ModerationStatus, limit int) ([]models.SuspiciousUser, error) {
	rows, _ := r.DB.Query(ctx, listSuspiciousUsers, string(status), repository.ListLimit(limit))
	users, err := pgx.CollectRows(rows, rowToSuspiciousUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

const blockColumns = `user_id, affiliate_code, blocked_by, blocked_at, reason`

const createBlock = `-- name: CreateBlock
INSERT INTO blocked_affiliate_codes (user_id, affiliate_code, blocked_by, reason)
VALUES ($1, $2, $3, $4)
RETURNING ` + blockColumns

func (r *ModerationRepo) CreateBlock(ctx context.Context, b models.BlockedAffiliateCode) (models.BlockedAffiliateCode, error) {
	rows, _ := r.DB.Query(ctx, createBlock, b.UserID, b.AffiliateCode, b.BlockedBy, b.Reason)
	created, err := pgx.CollectOneRow(rows, rowToBlock)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return b, fmt.Errorf("%w: %s", apperrors.ErrUserAlreadyBlocked, pgErr.ConstraintName)
		}
		return b, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const deleteBlock = `-- name: DeleteBlock
DELETE FROM blocked_affiliate_codes
WHERE user_id = $1
`

func (r *ModerationRepo) DeleteBlock(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteBlock, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotBlocked
	}
	return nil
}

const getBlock = `-- name: GetBlock
SELECT ` + blockColumns + `
FROM blocked_affiliate_codes
WHERE user_id = $1
`

func (r *ModerationRepo) GetBlock(ctx context.Context, userID uuid.UUID) (models.BlockedAffiliateCode, error) {
	rows, _ := r.DB.Query(ctx, getBlock, userID)
	b, err := pgx.CollectOneRow(rows, rowToBlock)

	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, pgx.ErrNoRows):
		return b, apperrors.ErrUserNotBlocked
	default:
		return b, fmt.Errorf("db error: %w", err)
	}
}

const isUserBlocked = `-- name: IsUserBlocked
SELECT EXISTS (SELECT 1 FROM blocked_affiliate_codes WHERE user_id = $1)
	OR EXISTS (SELECT 1 FROM suspicious_users WHERE user_id = $1 AND status = 'suspended')
`

func (r *ModerationRepo) IsUserBlocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	var blocked bool
	err := r.DB.QueryRow(ctx, isUserBlocked, userID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return blocked, nil
}

const isCodeBlocked = `-- name: IsCodeBlocked
SELECT EXISTS (SELECT 1 FROM blocked_affiliate_codes WHERE affiliate_code = $1)
`

func (r *ModerationRepo) IsCodeBlocked(ctx context.Context, code string) (bool, error) {
	var blocked bool
	err := r.DB.QueryRow(ctx, isCodeBlocked, code).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return blocked, nil
}

func rowToSuspiciousUser(row pgx.CollectableRow) (models.SuspiciousUser, error) {
	var u models.SuspiciousUser
	err := row.Scan(&u.UserID, &u.Status, &u.Reason, &u.Score, &u.FlaggedAt, &u.UpdatedAt)
	return u, err
}

func rowToBlock(row pgx.CollectableRow) (models.BlockedAffiliateCode, error) {
	var b models.BlockedAffiliateCode
	err := row.Scan(&b.UserID, &b.AffiliateCode, &b.BlockedBy, &b.BlockedAt, &b.Reason)
	return b, err
}
