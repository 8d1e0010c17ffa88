package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

type PayoutRepo struct {
	DB DBTX
}

const payoutColumns = `id, university_id, requested_by, amount_coins, amount_usd, payout_method, payout_details, status,
	created_at, updated_at, reviewed_by, reviewed_at, review_reason, payment_reference, paid_at`

const createPayout = `-- name: CreatePayout
INSERT INTO payout_requests (id, university_id, requested_by, amount_coins, amount_usd, payout_method, payout_details, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + payoutColumns

func (r *PayoutRepo) CreatePayout(ctx context.Context, p models.PayoutRequest) (models.PayoutRequest, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	details, err := models.EncodePayoutDetails(p.Details)
	if err != nil {
		return p, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayoutDetails, err)
	}

	rows, _ := r.DB.Query(ctx, createPayout,
		p.ID,
		p.UniversityID,
		p.RequestedBy,
		p.AmountCoins,
		p.AmountUSD,
		p.Method,
		details,
		p.Status,
	)
	created, err := pgx.CollectOneRow(rows, rowToPayout)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return p, apperrors.ErrUniversityNotFound
		}
		return p, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getPayout = `-- name: GetPayout
SELECT ` + payoutColumns + `
FROM payout_requests
WHERE id = $1`

func (r *PayoutRepo) GetPayout(ctx context.Context, id uuid.UUID, lock bool) (models.PayoutRequest, error) {
	rows, _ := r.DB.Query(ctx, forUpdate(getPayout, lock), id)
	p, err := pgx.CollectOneRow(rows, rowToPayout)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrPayoutNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

const updatePayout = `-- name: UpdatePayout
UPDATE payout_requests
SET status = $2,
	reviewed_by = $3,
	reviewed_at = $4,
	review_reason = $5,
	payment_reference = $6,
	paid_at = $7,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + payoutColumns

func (r *PayoutRepo) UpdatePayout(ctx context.Context, p models.PayoutRequest) (models.PayoutRequest, error) {
	rows, _ := r.DB.Query(ctx, updatePayout,
		p.ID,
		p.Status,
		p.ReviewedBy,
		p.ReviewedAt,
		p.ReviewReason,
		p.PaymentReference,
		p.PaidAt,
	)
	updated, err := pgx.CollectOneRow(rows, rowToPayout)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrPayoutNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

const listPayouts = `-- name: ListPayouts
SELECT ` + payoutColumns + `
FROM payout_requests
WHERE ($1::uuid IS NULL OR university_id = $1)
	AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
ORDER BY created_at DESC, id
LIMIT $3
`

func (r *PayoutRepo) ListPayouts(ctx context.Context, opts models.ListPayoutsOpts) ([]models.PayoutRequest, error) {
	statuses := make([]string, 0, len(opts.Statuses))
	for _, s := range opts.Statuses {
		statuses = append(statuses, string(s))
	}

	rows, _ := r.DB.Query(ctx, listPayouts, opts.UniversityID, statuses, repository.ListLimit(opts.Limit))
	payouts, err := pgx.CollectRows(rows, rowToPayout)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return payouts, nil
}

const sumReserved = `-- name: SumReserved
SELECT COALESCE(SUM(amount_coins), 0)::BIGINT
FROM payout_requests
WHERE university_id = $1 AND status = ANY($2::text[])
`

func (r *PayoutRepo) SumReserved(ctx context.Context, universityID uuid.UUID) (int64, error) {
	var statuses []string
	for _, s := range models.ReservingPayoutStatuses() {
		statuses = append(statuses, string(s))
	}

	var reserved int64
	err := r.DB.QueryRow(ctx, sumReserved, universityID, statuses).Scan(&reserved)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return reserved, nil
}

const invoiceColumns = `id, payout_request_id, invoice_number, issued_at, finalized_at`

const createInvoice = `-- name: CreateInvoice
INSERT INTO payout_invoices (id, payout_request_id, invoice_number)
VALUES ($1, $2, $3)
RETURNING ` + invoiceColumns

func (r *PayoutRepo) CreateInvoice(ctx context.Context, inv models.PayoutInvoice) (models.PayoutInvoice, error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createInvoice, inv.ID, inv.PayoutRequestID, inv.InvoiceNumber)
	created, err := pgx.CollectOneRow(rows, rowToInvoice)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return inv, fmt.Errorf("invoice already exists: %w", err)
		}
		return inv, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getInvoice = `-- name: GetInvoice
SELECT ` + invoiceColumns + `
FROM payout_invoices
WHERE payout_request_id = $1
`

func (r *PayoutRepo) GetInvoice(ctx context.Context, payoutID uuid.UUID) (models.PayoutInvoice, error) {
	rows, _ := r.DB.Query(ctx, getInvoice, payoutID)
	inv, err := pgx.CollectOneRow(rows, rowToInvoice)

	switch {
	case err == nil:
		return inv, nil
	case errors.Is(err, pgx.ErrNoRows):
		return inv, apperrors.ErrPayoutNotFound
	default:
		return inv, fmt.Errorf("db error: %w", err)
	}
}

// Finalizing twice keeps the first timestamp
const finalizeInvoice = `-- name: FinalizeInvoice
UPDATE payout_invoices
SET finalized_at = COALESCE(finalized_at, $2)
WHERE payout_request_id = $1
RETURNING ` + invoiceColumns

func (r *PayoutRepo) FinalizeInvoice(ctx context.Context, payoutID uuid.UUID, at time.Time) (models.PayoutInvoice, error) {
	rows, _ := r.DB.Query(ctx, finalizeInvoice, payoutID, at)
	inv, err := pgx.CollectOneRow(rows, rowToInvoice)

	switch {
	case err == nil:
		return inv, nil
	case errors.Is(err, pgx.ErrNoRows):
		return inv, apperrors.ErrPayoutNotFound
	default:
		return inv, fmt.Errorf("db error: %w", err)
	}
}

func rowToPayout(row pgx.CollectableRow) (models.PayoutRequest, error) {
	var (
		p       models.PayoutRequest
		details []byte
	)

	err := row.Scan(
		&p.ID,
		&p.UniversityID,
		&p.RequestedBy,
		&p.AmountCoins,
		&p.AmountUSD,
		&p.Method,
		&details,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ReviewedBy,
		&p.ReviewedAt,
		&p.ReviewReason,
		&p.PaymentReference,
		&p.PaidAt,
	)
	if err != nil {
		return p, err
	}

	p.Details, err = models.DecodePayoutDetails(p.Method, details)
	return p, err
}

func rowToInvoice(row pgx.CollectableRow) (models.PayoutInvoice, error) {
	var inv models.PayoutInvoice
	err := row.Scan(&inv.ID, &inv.PayoutRequestID, &inv.InvoiceNumber, &inv.IssuedAt, &inv.FinalizedAt)
	return inv, err
}
