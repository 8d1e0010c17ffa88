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
)

type AccountRepo struct {
	DB DBTX
}

const ensureUserAccount = `-- name: EnsureUserAccount
INSERT INTO user_credit_accounts (id, user_id)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING
`

func (r *AccountRepo) EnsureUserAccount(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, ensureUserAccount, uuid.New(), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getUserAccount = `-- name: GetUserAccount
SELECT id, user_id, balance, total_earned, total_spent, created_at, updated_at
FROM user_credit_accounts
WHERE user_id = $1`

func (r *AccountRepo) GetUserAccount(ctx context.Context, userID uuid.UUID, lock bool) (models.UserCreditAccount, error) {
	rows, _ := r.DB.Query(ctx, forUpdate(getUserAccount, lock), userID)
	acc, err := pgx.CollectOneRow(rows, rowToUserAccount)

	switch {
	case err == nil:
		return acc, nil
	case errors.Is(err, pgx.ErrNoRows):
		return acc, apperrors.ErrAccountNotFound
	default:
		return acc, fmt.Errorf("db error: %w", err)
	}
}

const saveUserAccount = `-- name: SaveUserAccount
UPDATE user_credit_accounts
SET balance = $2, total_earned = $3, total_spent = $4, updated_at = NOW()
WHERE user_id = $1
RETURNING id, user_id, balance, total_earned, total_spent, created_at, updated_at
`

func (r *AccountRepo) SaveUserAccount(ctx context.Context, acc models.UserCreditAccount) (models.UserCreditAccount, error) {
	rows, _ := r.DB.Query(ctx, saveUserAccount, acc.UserID, acc.Balance, acc.TotalEarned, acc.TotalSpent)
	saved, err := pgx.CollectOneRow(rows, rowToUserAccount)

	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, pgx.ErrNoRows):
		return acc, apperrors.ErrAccountNotFound
	case isCheckViolation(err):
		return acc, fmt.Errorf("%w: %v", apperrors.ErrInvariantViolation, err)
	default:
		return acc, fmt.Errorf("db error: %w", err)
	}
}

const ensureUniversityAccount = `-- name: EnsureUniversityAccount
INSERT INTO university_rewards_accounts (id, university_id)
VALUES ($1, $2)
ON CONFLICT (university_id) DO NOTHING
`

func (r *AccountRepo) EnsureUniversityAccount(ctx context.Context, universityID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, ensureUniversityAccount, uuid.New(), universityID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return apperrors.ErrUniversityNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getUniversityAccount = `-- name: GetUniversityAccount
SELECT id, university_id, balance_coins, total_received_coins, total_paid_out_coins,
	total_discounts_sent, total_discount_amount, created_at, updated_at
FROM university_rewards_accounts
WHERE university_id = $1`

func (r *AccountRepo) GetUniversityAccount(ctx context.Context, universityID uuid.UUID, lock bool) (models.UniversityRewardsAccount, error) {
	rows, _ := r.DB.Query(ctx, forUpdate(getUniversityAccount, lock), universityID)
	acc, err := pgx.CollectOneRow(rows, rowToUniversityAccount)

	switch {
	case err == nil:
		return acc, nil
	case errors.Is(err, pgx.ErrNoRows):
		return acc, apperrors.ErrAccountNotFound
	default:
		return acc, fmt.Errorf("db error: %w", err)
	}
}

const saveUniversityAccount = `-- name: SaveUniversityAccount
UPDATE university_rewards_accounts
SET balance_coins = $2,
	total_received_coins = $3,
	total_paid_out_coins = $4,
	total_discounts_sent = $5,
	total_discount_amount = $6,
	updated_at = NOW()
WHERE university_id = $1
RETURNING id, university_id, balance_coins, total_received_coins, total_paid_out_coins,
	total_discounts_sent, total_discount_amount, created_at, updated_at
`

func (r *AccountRepo) SaveUniversityAccount(ctx context.Context, acc models.UniversityRewardsAccount) (models.UniversityRewardsAccount, error) {
	rows, _ := r.DB.Query(ctx, saveUniversityAccount,
		acc.UniversityID,
		acc.BalanceCoins,
		acc.TotalReceivedCoins,
		acc.TotalPaidOutCoins,
		acc.TotalDiscountsSent,
		acc.TotalDiscountAmount,
	)
	saved, err := pgx.CollectOneRow(rows, rowToUniversityAccount)

	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, pgx.ErrNoRows):
		return acc, apperrors.ErrAccountNotFound
	case isCheckViolation(err):
		return acc, fmt.Errorf("%w: %v", apperrors.ErrInvariantViolation, err)
	default:
		return acc, fmt.Errorf("db error: %w", err)
	}
}

func rowToUserAccount(row pgx.CollectableRow) (models.UserCreditAccount, error) {
	var a models.UserCreditAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Balance, &a.TotalEarned, &a.TotalSpent, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func rowToUniversityAccount(row pgx.CollectableRow) (models.UniversityRewardsAccount, error) {
	var a models.UniversityRewardsAccount
	err := row.Scan(
		&a.ID,
		&a.UniversityID,
		&a.BalanceCoins,
		&a.TotalReceivedCoins,
		&a.TotalPaidOutCoins,
		&a.TotalDiscountsSent,
		&a.TotalDiscountAmount,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation
}
