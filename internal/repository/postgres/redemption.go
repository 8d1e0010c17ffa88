package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

type RedemptionRepo struct {
	DB DBTX
}

const redemptionColumns = `id, user_id, university_id, discount_id, cost_coins_paid, discount_amount, status, redeemed_at, updated_at`

const createRedemption = `-- name: CreateRedemption
INSERT INTO tuition_redemptions (id, user_id, university_id, discount_id, cost_coins_paid, discount_amount, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + redemptionColumns

func (r *RedemptionRepo) CreateRedemption(ctx context.Context, red models.TuitionRedemption) (models.TuitionRedemption, error) {
	if red.ID == uuid.Nil {
		red.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createRedemption,
		red.ID,
		red.UserID,
		red.UniversityID,
		red.DiscountID,
		red.CostCoinsPaid,
		red.DiscountAmount,
		red.Status,
	)
	created, err := pgx.CollectOneRow(rows, rowToRedemption)
	if err != nil {
		return red, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getRedemption = `-- name: GetRedemption
SELECT ` + redemptionColumns + `
FROM tuition_redemptions
WHERE id = $1`

func (r *RedemptionRepo) GetRedemption(ctx context.Context, id uuid.UUID, lock bool) (models.TuitionRedemption, error) {
	rows, _ := r.DB.Query(ctx, forUpdate(getRedemption, lock), id)
	red, err := pgx.CollectOneRow(rows, rowToRedemption)

	switch {
	case err == nil:
		return red, nil
	case errors.Is(err, pgx.ErrNoRows):
		return red, apperrors.ErrRedemptionNotFound
	default:
		return red, fmt.Errorf("db error: %w", err)
	}
}

const updateRedemptionStatus = `-- name: UpdateRedemptionStatus
UPDATE tuition_redemptions
SET status = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + redemptionColumns

func (r *RedemptionRepo) UpdateRedemptionStatus(ctx context.Context, id uuid.UUID, status models.RedemptionStatus) (models.TuitionRedemption, error) {
	rows, _ := r.DB.Query(ctx, updateRedemptionStatus, id, status)
	red, err := pgx.CollectOneRow(rows, rowToRedemption)

	switch {
	case err == nil:
		return red, nil
	case errors.Is(err, pgx.ErrNoRows):
		return red, apperrors.ErrRedemptionNotFound
	default:
		return red, fmt.Errorf("db error: %w", err)
	}
}

const listRedemptions = `-- name: ListRedemptions
SELECT ` + redemptionColumns + `
FROM tuition_redemptions
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::uuid IS NULL OR university_id = $2)
ORDER BY redeemed_at DESC, id
LIMIT $3
`

func (r *RedemptionRepo) ListRedemptions(ctx context.Context, opts models.ListRedemptionsOpts) ([]models.TuitionRedemption, error) {
	rows, _ := r.DB.Query(ctx, listRedemptions, opts.UserID, opts.UniversityID, repository.ListLimit(opts.Limit))
	redemptions, err := pgx.CollectRows(rows, rowToRedemption)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return redemptions, nil
}

func rowToRedemption(row pgx.CollectableRow) (models.TuitionRedemption, error) {
	var r models.TuitionRedemption
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.UniversityID,
		&r.DiscountID,
		&r.CostCoinsPaid,
		&r.DiscountAmount,
		&r.Status,
		&r.RedeemedAt,
		&r.UpdatedAt,
	)
	return r, err
}
