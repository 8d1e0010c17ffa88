package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

type DiscountRepo struct {
	DB DBTX
}

const getDiscount = `-- name: GetDiscount
SELECT id, name, description, cost_coins, discount_amount, is_active, created_at
FROM tuition_discounts
WHERE id = $1
`

func (r *DiscountRepo) GetDiscount(ctx context.Context, id uuid.UUID) (models.TuitionDiscount, error) {
	rows, _ := r.DB.Query(ctx, getDiscount, id)
	d, err := pgx.CollectOneRow(rows, rowToDiscount)

	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, pgx.ErrNoRows):
		return d, apperrors.ErrDiscountNotFound
	default:
		return d, fmt.Errorf("db error: %w", err)
	}
}

const createDiscount = `-- name: CreateDiscount
INSERT INTO tuition_discounts (id, name, description, cost_coins, discount_amount, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, description, cost_coins, discount_amount, is_active, created_at
`

func (r *DiscountRepo) CreateDiscount(ctx context.Context, d models.TuitionDiscount) (models.TuitionDiscount, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createDiscount, d.ID, d.Name, d.Description, d.CostCoins, d.DiscountAmount, d.IsActive)
	created, err := pgx.CollectOneRow(rows, rowToDiscount)
	if err != nil {
		return d, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

func rowToDiscount(row pgx.CollectableRow) (models.TuitionDiscount, error) {
	var d models.TuitionDiscount
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CostCoins, &d.DiscountAmount, &d.IsActive, &d.CreatedAt)
	return d, err
}
