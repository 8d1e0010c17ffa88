package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

// Entry is one balance mutation of a single account
type Entry struct {
	Account     models.AccountRef
	Type        models.TransactionType
	Amount      int64
	Description string
	RelatedID   *uuid.UUID

	// Coins of the account that can't be debited, e.g. reserved by payout requests
	Reserved int64

	// Set when a university is credited for a tuition redemption
	Discount *decimal.Decimal
}

// Apply locks the account, changes its balance and appends the journal record
// The account is created on first use
// Must be called with a transactional storage, see repository.Storage.InTx
func Apply(ctx context.Context, s repository.Storage, e Entry) (models.CoinTransaction, error) {
	if e.Amount <= 0 {
		return models.CoinTransaction{}, apperrors.ErrInvalidAmount
	}
	if !e.Type.ValidFor(e.Account.Type) {
		return models.CoinTransaction{}, fmt.Errorf("%w: %s on %s account", apperrors.ErrInvalidTransactionType, e.Type, e.Account.Type)
	}

	var (
		balanceAfter int64
		err          error
	)

	switch e.Account.Type {
	case models.AccountTypeUser:
		balanceAfter, err = applyUser(ctx, s, e)
	case models.AccountTypeUniversity:
		balanceAfter, err = applyUniversity(ctx, s, e)
	default:
		err = fmt.Errorf("%w: unknown account type %q", apperrors.ErrInvalidTransactionType, e.Account.Type)
	}
	if err != nil {
		return models.CoinTransaction{}, err
	}

	return s.Transaction().CreateTransaction(ctx, models.CoinTransaction{
		ID:           uuid.New(),
		Account:      e.Account,
		Type:         e.Type,
		Amount:       e.Amount,
		BalanceAfter: balanceAfter,
		Description:  e.Description,
		RelatedID:    e.RelatedID,
	})
}

func applyUser(ctx context.Context, s repository.Storage, e Entry) (int64, error) {
	accounts := s.Account()

	if err := accounts.EnsureUserAccount(ctx, e.Account.ID); err != nil {
		return 0, err
	}

	acc, err := accounts.GetUserAccount(ctx, e.Account.ID, true)
	if err != nil {
		return 0, err
	}

	if e.Type.IsCredit() {
		acc.Balance += e.Amount
		acc.TotalEarned += e.Amount
	} else {
		available := acc.Balance - e.Reserved
		if e.Amount > available {
			return 0, apperrors.NewBalanceError(max(available, 0), e.Amount)
		}
		acc.Balance -= e.Amount
		acc.TotalSpent += e.Amount
	}

	acc, err = accounts.SaveUserAccount(ctx, acc)
	if err != nil {
		return 0, err
	}

	return acc.Balance, nil
}

func applyUniversity(ctx context.Context, s repository.Storage, e Entry) (int64, error) {
	accounts := s.Account()

	if err := accounts.EnsureUniversityAccount(ctx, e.Account.ID); err != nil {
		return 0, err
	}

	acc, err := accounts.GetUniversityAccount(ctx, e.Account.ID, true)
	if err != nil {
		return 0, err
	}

	if e.Type.IsCredit() {
		acc.BalanceCoins += e.Amount
		acc.TotalReceivedCoins += e.Amount
		if e.Discount != nil {
			acc.TotalDiscountsSent++
			acc.TotalDiscountAmount = acc.TotalDiscountAmount.Add(*e.Discount)
		}
	} else {
		available := acc.BalanceCoins - e.Reserved
		if e.Amount > available {
			return 0, apperrors.NewBalanceError(max(available, 0), e.Amount)
		}
		acc.BalanceCoins -= e.Amount
		acc.TotalPaidOutCoins += e.Amount
	}

	acc, err = accounts.SaveUniversityAccount(ctx, acc)
	if err != nil {
		return 0, err
	}

	return acc.BalanceCoins, nil
}

// Debit takes coins from the account inside the caller's transaction
func Debit(ctx context.Context, s repository.Storage, account models.AccountRef, amount int64, description string, relatedID *uuid.UUID) (models.CoinTransaction, error) {
	return Apply(ctx, s, Entry{
		Account:     account,
		Type:        models.DebitType(account.Type),
		Amount:      amount,
		Description: description,
		RelatedID:   relatedID,
	})
}

// Credit adds coins to the account inside the caller's transaction
func Credit(ctx context.Context, s repository.Storage, account models.AccountRef, amount int64, kind models.TransactionType, description string, relatedID *uuid.UUID) (models.CoinTransaction, error) {
	if kind != models.CreditType(account.Type) {
		return models.CoinTransaction{}, fmt.Errorf("%w: %s is not a credit of %s account", apperrors.ErrInvalidTransactionType, kind, account.Type)
	}

	return Apply(ctx, s, Entry{
		Account:     account,
		Type:        kind,
		Amount:      amount,
		Description: description,
		RelatedID:   relatedID,
	})
}
