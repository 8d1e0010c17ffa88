package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, account_type, account_id, type, amount, balance_after, description, related_id, created_at`

const createTransaction = `-- name: CreateTransaction
INSERT INTO coin_transactions (id, account_type, account_id, type, amount, balance_after, description, related_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + transactionColumns

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.CoinTransaction) (models.CoinTransaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction,
		t.ID,
		t.Account.Type,
		t.Account.ID,
		t.Type,
		t.Amount,
		t.BalanceAfter,
		t.Description,
		t.RelatedID,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return t, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listTransactions = `-- name: ListTransactions
SELECT ` + transactionColumns + `
FROM coin_transactions
WHERE account_type = $1 AND account_id = $2
	AND (cardinality($3::text[]) = 0 OR type = ANY($3::text[]))
ORDER BY seq DESC
LIMIT $4
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, account models.AccountRef, opts models.ListTransactionsOpts) ([]models.CoinTransaction, error) {
	types := make([]string, 0, len(opts.Types))
	for _, t := range opts.Types {
		types = append(types, string(t))
	}

	rows, _ := r.DB.Query(ctx, listTransactions, account.Type, account.ID, types, repository.ListLimit(opts.Limit))
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const summarizeTransactions = `-- name: SummarizeTransactions
SELECT
	COALESCE(SUM(amount) FILTER (WHERE type IN ('earned', 'received')), 0)::BIGINT,
	COALESCE(SUM(amount) FILTER (WHERE type IN ('spent', 'paid_out')), 0)::BIGINT,
	COUNT(*),
	(
		SELECT balance_after FROM coin_transactions
		WHERE account_type = $1 AND account_id = $2
		ORDER BY seq DESC
		LIMIT 1
	)
FROM coin_transactions
WHERE account_type = $1 AND account_id = $2
`

func (r *TransactionRepo) Summarize(ctx context.Context, account models.AccountRef) (models.JournalSummary, error) {
	var (
		s    models.JournalSummary
		last *int64
	)

	err := r.DB.QueryRow(ctx, summarizeTransactions, account.Type, account.ID).Scan(&s.Credited, &s.Debited, &s.Count, &last)
	if err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}

	if last != nil {
		s.LastBalance = *last
		s.HasLastEntry = true
	}

	return s, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.CoinTransaction, error) {
	var t models.CoinTransaction
	err := row.Scan(
		&t.ID,
		&t.Account.Type,
		&t.Account.ID,
		&t.Type,
		&t.Amount,
		&t.BalanceAfter,
		&t.Description,
		&t.RelatedID,
		&t.CreatedAt,
	)
	return t, err
}
