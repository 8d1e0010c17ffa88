package ledger

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
)

// Service manages coin accounts and the transaction journal
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
		logger:  l.WithGroup("ledger"),
		metrics: m,
	}
}

func (s *Service) GetOrCreateUserAccount(ctx context.Context, userID uuid.UUID) (models.UserCreditAccount, error) {
	if err := s.storage.Account().EnsureUserAccount(ctx, userID); err != nil {
		return models.UserCreditAccount{}, err
	}
	return s.storage.Account().GetUserAccount(ctx, userID, false)
}

// If university does not exist returns apperrors.ErrUniversityNotFound
func (s *Service) GetOrCreateUniversityAccount(ctx context.Context, universityID uuid.UUID) (models.UniversityRewardsAccount, error) {
	if err := s.storage.Account().EnsureUniversityAccount(ctx, universityID); err != nil {
		return models.UniversityRewardsAccount{}, err
	}
	return s.storage.Account().GetUniversityAccount(ctx, universityID, false)
}

// Debit takes coins from the account in its own transaction
// Coins of a university reserved by payout requests can't be debited
func (s *Service) Debit(ctx context.Context, account models.AccountRef, amount int64, description string) (models.CoinTransaction, error) {
	var t models.CoinTransaction

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var reserved int64

		if account.Type == models.AccountTypeUniversity {
			if err := storage.Account().EnsureUniversityAccount(ctx, account.ID); err != nil {
				return err
			}
			// Lock before counting reservations
			if _, err := storage.Account().GetUniversityAccount(ctx, account.ID, true); err != nil {
				return err
			}
			r, err := storage.Payout().SumReserved(ctx, account.ID)
			if err != nil {
				return err
			}
			reserved = r
		}

		var err error
		t, err = Apply(ctx, storage, Entry{
			Account:     account,
			Type:        models.DebitType(account.Type),
			Amount:      amount,
			Description: description,
			Reserved:    reserved,
		})
		return err
	})
	if err != nil {
		return t, fmt.Errorf("can't debit %s: %w", account, err)
	}

	s.recorded(t)
	return t, nil
}

// Credit adds coins to the account in its own transaction
// kind has to be earned for users and received for universities
func (s *Service) Credit(ctx context.Context, account models.AccountRef, amount int64, kind models.TransactionType, description string) (models.CoinTransaction, error) {
	var t models.CoinTransaction

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		t, err = Credit(ctx, storage, account, amount, kind, description, nil)
		return err
	})
	if err != nil {
		return t, fmt.Errorf("can't credit %s: %w", account, err)
	}

	s.recorded(t)
	return t, nil
}

// Earn credits coins to a student from an earning source, e.g. a referral
// Blocked users can't earn
func (s *Service) Earn(ctx context.Context, userID uuid.UUID, amount int64, description string) (models.CoinTransaction, error) {
	var t models.CoinTransaction

	if amount <= 0 {
		return t, apperrors.ErrInvalidAmount
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		blocked, err := storage.Moderation().IsUserBlocked(ctx, userID)
		if err != nil {
			return err
		}
		if blocked {
			return apperrors.ErrUserBlocked
		}

		t, err = Credit(ctx, storage, models.UserAccount(userID), amount, models.TransactionTypeEarned, description, nil)
		return err
	})
	if err != nil {
		return t, fmt.Errorf("can't earn coins: %w", err)
	}

	s.recorded(t)
	s.logger.Info("Coins earned", "user_id", userID, "amount", amount, "balance", t.BalanceAfter)
	return t, nil
}

// GetBalance returns zero balance for accounts that were never used
func (s *Service) GetBalance(ctx context.Context, account models.AccountRef) (models.Balance, error) {
	return balanceOf(ctx, s.storage, account, false)
}

func balanceOf(ctx context.Context, storage repository.Storage, account models.AccountRef, lock bool) (models.Balance, error) {
	var (
		b   models.Balance
		err error
	)

	switch account.Type {
	case models.AccountTypeUser:
		var acc models.UserCreditAccount
		acc, err = storage.Account().GetUserAccount(ctx, account.ID, lock)
		b = acc.Snapshot()
	case models.AccountTypeUniversity:
		var acc models.UniversityRewardsAccount
		acc, err = storage.Account().GetUniversityAccount(ctx, account.ID, lock)
		b = acc.Snapshot()
	default:
		return b, fmt.Errorf("%w: unknown account type %q", apperrors.ErrInvalidTransactionType, account.Type)
	}

	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return models.Balance{Account: account}, nil
	default:
		return b, err
	}
}

// ListTransactions returns the newest journal records first
func (s *Service) ListTransactions(ctx context.Context, account models.AccountRef, limit int) ([]models.CoinTransaction, error) {
	return s.storage.Transaction().ListTransactions(ctx, account, models.ListTransactionsOpts{Limit: limit})
}

// Reconcile rebuilds the account from its journal and compares with stored totals
// Returns apperrors.ErrInvariantViolation on mismatch
func (s *Service) Reconcile(ctx context.Context, account models.AccountRef) (models.Reconciliation, error) {
	var rec models.Reconciliation

	// Writers hold the account row lock until commit, so with the lock taken
	// both reads see the same committed state
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		stored, err := balanceOf(ctx, storage, account, true)
		if err != nil {
			return err
		}

		journal, err := storage.Transaction().Summarize(ctx, account)
		if err != nil {
			return err
		}

		// The account row was created by a writer after the first read, lock it now
		if journal.Count > 0 && stored == (models.Balance{Account: account}) {
			if stored, err = balanceOf(ctx, storage, account, true); err != nil {
				return err
			}
			if journal, err = storage.Transaction().Summarize(ctx, account); err != nil {
				return err
			}
		}

		rec = models.Reconciliation{Stored: stored, Journal: journal}
		return nil
	})
	if err != nil {
		return rec, fmt.Errorf("can't reconcile %s: %w", account, err)
	}

	stored, journal := rec.Stored, rec.Journal
	if !rec.Consistent() {
		s.metrics.InvariantViolation(string(account.Type))
		s.logger.Error("Journal does not match stored balance",
			"account", account.String(),
			"stored_balance", stored.Balance,
			"journal_balance", journal.Balance(),
			"stored_credited", stored.Credited,
			"journal_credited", journal.Credited,
			"stored_debited", stored.Debited,
			"journal_debited", journal.Debited,
		)
		return rec, fmt.Errorf("%w: %s stored balance %d, journal balance %d", apperrors.ErrInvariantViolation, account, stored.Balance, journal.Balance())
	}

	return rec, nil
}

func (s *Service) recorded(t models.CoinTransaction) {
	s.metrics.LedgerEntry(string(t.Account.Type), string(t.Type), t.Amount)
}
