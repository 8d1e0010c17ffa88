package payout

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository/postgres"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/ledger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/testutil"
)

var zelle = models.ZelleDetails{Email: "finance@example.edu", AccountName: "Example University"}

type env struct {
	storage repository.Storage
	ledger  *ledger.Service
	service *Service
}

// university with a member and funded rewards account
func (e env) university(t *testing.T, coins int64) (models.University, uuid.UUID) {
	t.Helper()

	u, memberID := testutil.CreateUniversityWithMember(t, e.storage)
	if coins > 0 {
		_, err := e.ledger.Credit(t.Context(), models.UniversityAccount(u.ID), coins, models.TransactionTypeReceived, "redemptions")
		require.NoError(t, err)
	}
	return u, memberID
}

func (e env) balance(t *testing.T, universityID uuid.UUID) int64 {
	t.Helper()
	b, err := e.ledger.GetBalance(t.Context(), models.UniversityAccount(universityID))
	require.NoError(t, err)
	return b.Balance
}

func newEnv(db postgres.DBTX) env {
	storage := postgres.NewStorage(db)
	return env{
		storage: storage,
		ledger:  ledger.NewService(storage, nil, nil),
		service: NewService(storage, nil, nil),
	}
}

func TestPayout(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(env)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(newEnv(tx))
		})
	}

	t.Run("request reserves the whole balance", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 500)

			first, err := e.service.RequestPayout(t.Context(), RequestParams{
				UniversityID: u.ID,
				RequestedBy:  memberID,
				AmountCoins:  500,
				Details:      zelle,
			})
			require.NoError(t, err)
			require.Equal(t, models.PayoutPending, first.Request.Status)
			require.Equal(t, models.PayoutMethodZelle, first.Request.Method)
			require.Equal(t, zelle, first.Request.Details)
			require.Equal(t, first.Request.ID, first.Invoice.PayoutRequestID)
			require.Regexp(t, regexp.MustCompile(`^MR-\d{8}-[0-9A-F]{8}$`), first.Invoice.InvoiceNumber)
			require.Nil(t, first.Invoice.FinalizedAt)

			_, err = e.service.RequestPayout(t.Context(), RequestParams{
				UniversityID: u.ID,
				RequestedBy:  memberID,
				AmountCoins:  100,
				Details:      zelle,
			})
			require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
			require.Contains(t, err.Error(), "you have 0 coins available, but requested 100")

			availability, err := e.service.AvailableForPayout(t.Context(), u.ID)
			require.NoError(t, err)
			require.Equal(t, int64(500), availability.Balance)
			require.Equal(t, int64(500), availability.Reserved)
			require.Zero(t, availability.Available())
		})
	})

	t.Run("approve then mark paid", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 500)
			adminID := uuid.New()
			created, err := e.service.RequestPayout(t.Context(), RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 500, Details: zelle})
			require.NoError(t, err)

			approved, err := e.service.AdminApprove(t.Context(), created.Request.ID, adminID)
			require.NoError(t, err)
			require.Equal(t, models.PayoutApproved, approved.Status)
			require.Equal(t, &adminID, approved.ReviewedBy)
			require.NotNil(t, approved.ReviewedAt)
			require.Equal(t, int64(500), e.balance(t, u.ID), "approval does not move coins")

			paid, err := e.service.AdminMarkPaid(t.Context(), created.Request.ID, adminID, "REF123")
			require.NoError(t, err)
			require.Equal(t, models.PayoutPaid, paid.Status)
			require.Equal(t, "REF123", *paid.PaymentReference)
			require.NotNil(t, paid.PaidAt)
			require.Zero(t, e.balance(t, u.ID))

			journal, err := e.ledger.ListTransactions(t.Context(), models.UniversityAccount(u.ID), 0)
			require.NoError(t, err)
			require.Equal(t, models.TransactionTypePaidOut, journal[0].Type)
			require.Equal(t, int64(500), journal[0].Amount)
			require.Equal(t, &created.Request.ID, journal[0].RelatedID)

			got, err := e.service.GetPayout(t.Context(), created.Request.ID)
			require.NoError(t, err)
			require.NotNil(t, got.Invoice.FinalizedAt)

			_, err = e.service.AdminMarkPaid(t.Context(), created.Request.ID, adminID, "REF123")
			require.ErrorIs(t, err, apperrors.ErrInvalidState)
			require.Zero(t, e.balance(t, u.ID), "second settlement must not debit again")

			actions, err := e.storage.Audit().ListActions(t.Context(), models.TargetPayoutRequest, created.Request.ID)
			require.NoError(t, err)
			require.Len(t, actions, 2)
			require.Equal(t, models.ActionPayoutMarkPaid, actions[0].Action)
			require.Equal(t, "REF123", actions[0].Details["payment_reference"])

			_, err = e.ledger.Reconcile(t.Context(), models.UniversityAccount(u.ID))
			require.NoError(t, err)
		})
	})

	t.Run("mark paid requires approval", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 100)
			created, err := e.service.RequestPayout(t.Context(), RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 100, Details: zelle})
			require.NoError(t, err)

			_, err = e.service.AdminMarkPaid(t.Context(), created.Request.ID, uuid.New(), "REF1")
			require.ErrorIs(t, err, apperrors.ErrInvalidState)

			_, err = e.service.AdminMarkPaid(t.Context(), created.Request.ID, uuid.New(), "  ")
			require.ErrorIs(t, err, apperrors.ErrReferenceRequired)
		})
	})

	t.Run("reject releases the reservation", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 300)
			created, err := e.service.RequestPayout(t.Context(), RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 300, Details: zelle})
			require.NoError(t, err)

			_, err = e.service.AdminReject(t.Context(), created.Request.ID, uuid.New(), "")
			require.ErrorIs(t, err, apperrors.ErrReasonRequired)

			rejected, err := e.service.AdminReject(t.Context(), created.Request.ID, uuid.New(), "bank details do not match")
			require.NoError(t, err)
			require.Equal(t, models.PayoutRejected, rejected.Status)
			require.Equal(t, "bank details do not match", *rejected.ReviewReason)

			reserved, err := e.service.Reserved(t.Context(), u.ID)
			require.NoError(t, err)
			require.Zero(t, reserved)
			require.Equal(t, int64(300), e.balance(t, u.ID))
		})
	})

	t.Run("cancel", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 300)
			colleague := uuid.New()
			require.NoError(t, e.storage.University().AddMember(t.Context(), u.ID, colleague))

			created, err := e.service.RequestPayout(t.Context(), RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 200, Details: zelle})
			require.NoError(t, err)

			_, err = e.service.CancelPayout(t.Context(), created.Request.ID, uuid.New())
			require.ErrorIs(t, err, apperrors.ErrNotAuthorized, "stranger can't cancel")

			cancelled, err := e.service.CancelPayout(t.Context(), created.Request.ID, colleague)
			require.NoError(t, err)
			require.Equal(t, models.PayoutCancelled, cancelled.Status)

			_, err = e.service.CancelPayout(t.Context(), created.Request.ID, memberID)
			require.ErrorIs(t, err, apperrors.ErrInvalidState)

			_, err = e.service.CancelPayout(t.Context(), uuid.New(), memberID)
			require.ErrorIs(t, err, apperrors.ErrPayoutNotFound)
		})
	})

	t.Run("terminal states accept no transition", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 900)
			adminID := uuid.New()
			request := func() uuid.UUID {
				r, err := e.service.RequestPayout(t.Context(), RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 100, Details: zelle})
				require.NoError(t, err)
				return r.Request.ID
			}

			paid := request()
			_, err := e.service.AdminApprove(t.Context(), paid, adminID)
			require.NoError(t, err)
			_, err = e.service.AdminMarkPaid(t.Context(), paid, adminID, "REF")
			require.NoError(t, err)

			rejected := request()
			_, err = e.service.AdminReject(t.Context(), rejected, adminID, "duplicate")
			require.NoError(t, err)

			cancelled := request()
			_, err = e.service.CancelPayout(t.Context(), cancelled, memberID)
			require.NoError(t, err)

			for _, id := range []uuid.UUID{paid, rejected, cancelled} {
				_, err = e.service.AdminApprove(t.Context(), id, adminID)
				assert.ErrorIs(t, err, apperrors.ErrInvalidState)
				_, err = e.service.AdminReject(t.Context(), id, adminID, "late")
				assert.ErrorIs(t, err, apperrors.ErrInvalidState)
				_, err = e.service.AdminMarkPaid(t.Context(), id, adminID, "REF")
				assert.ErrorIs(t, err, apperrors.ErrInvalidState)
				_, err = e.service.CancelPayout(t.Context(), id, memberID)
				assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			}
		})
	})

	t.Run("request validation", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 1000)
			blocked := uuid.New()
			require.NoError(t, e.storage.University().AddMember(t.Context(), u.ID, blocked))
			_, err := e.storage.Moderation().SetUserStatus(t.Context(), blocked, models.ModerationSuspended, "fraud")
			require.NoError(t, err)

			tests := []struct {
				name    string
				params  RequestParams
				wantErr error
			}{
				{"zero amount", RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 0, Details: zelle}, apperrors.ErrInvalidAmount},
				{"no details", RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 10}, apperrors.ErrInvalidPayoutDetails},
				{"zelle without contact", RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 10, Details: models.ZelleDetails{AccountName: "Finance"}}, apperrors.ErrInvalidPayoutDetails},
				{"stripe bad account", RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 10, Details: models.StripeDetails{AccountID: "cus_123"}}, apperrors.ErrInvalidPayoutDetails},
				{"not a member", RequestParams{UniversityID: u.ID, RequestedBy: uuid.New(), AmountCoins: 10, Details: zelle}, apperrors.ErrNotAuthorized},
				{"blocked requester", RequestParams{UniversityID: u.ID, RequestedBy: blocked, AmountCoins: 10, Details: zelle}, apperrors.ErrUserBlocked},
				{"more than balance", RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 1001, Details: zelle}, apperrors.ErrInsufficientBalance},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					_, err := e.service.RequestPayout(t.Context(), tt.params)

					require.ErrorIs(t, err, tt.wantErr)
				})
			}

			requests, err := e.service.ListPayoutRequests(t.Context(), models.ListPayoutsOpts{UniversityID: &u.ID})
			require.NoError(t, err)
			require.Empty(t, requests)
		})
	})

	t.Run("bank transfer details round trip", func(t *testing.T) {
		inTx(t, func(e env) {
			u, memberID := e.university(t, 1000)
			details := models.BankTransferDetails{
				BankName:      "First Bank",
				AccountHolder: "Example University",
				AccountNumber: "000123456789",
				RoutingNumber: "021000021",
			}

			created, err := e.service.RequestPayout(t.Context(), RequestParams{UniversityID: u.ID, RequestedBy: memberID, AmountCoins: 250, Details: details})
			require.NoError(t, err)

			got, err := e.service.GetPayout(t.Context(), created.Request.ID)
			require.NoError(t, err)
			require.Equal(t, models.PayoutMethodBankTransfer, got.Request.Method)
			require.Equal(t, details, got.Request.Details)
			require.True(t, got.Request.AmountUSD.Equal(models.CoinsToUSD(250)))

			pending, err := e.service.ListPayoutRequests(t.Context(), models.ListPayoutsOpts{
				UniversityID: &u.ID,
				Statuses:     []models.PayoutStatus{models.PayoutPending},
			})
			require.NoError(t, err)
			require.Len(t, pending, 1)
		})
	})

	t.Run("concurrent requests can't over reserve", func(t *testing.T) {
		e := newEnv(pg.Pool)
		u, memberID := e.university(t, 1000)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = e.service.RequestPayout(t.Context(), RequestParams{
					UniversityID: u.ID,
					RequestedBy:  memberID,
					AmountCoins:  700,
					Details:      zelle,
				})
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
		}
		require.Equal(t, 1, succeeded)

		reserved, err := e.service.Reserved(t.Context(), u.ID)
		require.NoError(t, err)
		require.Equal(t, int64(700), reserved)
	})
}

func TestInvoiceNumber(t *testing.T) {
	now := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

	first := InvoiceNumber(now)
	second := InvoiceNumber(now)

	require.Regexp(t, `^MR-20250307-[0-9A-F]{8}$`, first)
	require.NotEqual(t, first, second)
}
