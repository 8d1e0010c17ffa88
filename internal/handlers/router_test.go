package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/moderation"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/payout"
)

var (
	universityID = uuid.MustParse("6b1f3c9a-6a43-4d3e-9d7e-2a1c0f6b9e11")
	studentID    = uuid.MustParse("0c2f4a1e-8b1d-4c55-9a77-5d3e2b1a0f22")
	staffID      = uuid.MustParse("a7d9e2c4-1f3b-4e6a-8c5d-9b0a7e6f5d33")
	adminID      = uuid.MustParse("f1e2d3c4-b5a6-4978-8695-a4b3c2d1e044")
)

type testEnv struct {
	ledger     *MockLedgerService
	redemption *MockRedemptionService
	payout     *MockPayoutService
	moderation *MockModerationService
	url        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ledger:     &MockLedgerService{},
		redemption: &MockRedemptionService{},
		payout:     &MockPayoutService{},
		moderation: &MockModerationService{},
	}

	auth := tokenAuth{
		"student": {ID: studentID, Role: models.RoleStudent},
		"staff":   {ID: staffID, Role: models.RoleUniversity, UniversityID: &universityID},
		"admin":   {ID: adminID, Role: models.RoleAdmin},
	}

	router := NewRouter(Services{
		Auth:       auth,
		Ledger:     env.ledger,
		Redemption: env.redemption,
		Payout:     env.payout,
		Moderation: env.moderation,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}, logger.NewNoOpLogger())

	srv := httptest.NewServer(router)
	env.url = srv.URL

	t.Cleanup(func() {
		srv.Close()
		env.ledger.AssertExpectations(t)
		env.redemption.AssertExpectations(t)
		env.payout.AssertExpectations(t)
		env.moderation.AssertExpectations(t)
	})

	return env
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(method, e.url+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "should make request to test server")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "should read response body")
	defer resp.Body.Close() // nolint:errcheck

	return resp.StatusCode, string(data)
}

func decodeObject(t *testing.T, body string) map[string]any {
	t.Helper()

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &v), "response should be json object: %s", body)
	return v
}

func errorBody(message string) string {
	return fmt.Sprintf(`{"error": "service_error", "message": %q}`, message)
}

func TestRouter_Auth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no token", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/api/rewards/balance", "", "")

		require.Equal(t, http.StatusUnauthorized, code)
		require.JSONEq(t, errorBody("Unauthorized"), body)
	})

	t.Run("admin routes closed for staff", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPost, "/api/admin/payouts/"+uuid.NewString()+"/approve", "staff", "")

		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("redemptions closed for admin", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPost, "/api/rewards/redemptions", "admin", `{}`)

		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("metrics without auth", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/metrics", "", "")

		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "# metrics", body)
	})
}

func TestRouter_Rewards(t *testing.T) {
	t.Run("balance", func(t *testing.T) {
		env := newTestEnv(t)
		env.ledger.On("GetBalance", mock.Anything, models.UserAccount(studentID)).
			Return(models.Balance{Account: models.UserAccount(studentID), Balance: 420, Credited: 500, Debited: 80}, nil).Once()

		code, body := env.do(t, http.MethodGet, "/api/rewards/balance", "student", "")

		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, fmt.Sprintf(`{
			"account_type": "user",
			"owner_id": %q,
			"balance": 420,
			"total_credited": 500,
			"total_debited": 80
		}`, studentID), body)
	})

	t.Run("transactions limit", func(t *testing.T) {
		env := newTestEnv(t)
		env.ledger.On("ListTransactions", mock.Anything, models.UserAccount(studentID), 10).
			Return([]models.CoinTransaction{
				{ID: uuid.New(), Type: models.TransactionTypeSpent, Amount: 20, BalanceAfter: 30},
				{ID: uuid.New(), Type: models.TransactionTypeEarned, Amount: 50, BalanceAfter: 50},
			}, nil).Once()

		code, body := env.do(t, http.MethodGet, "/api/rewards/transactions?limit=10", "student", "")
		require.Equal(t, http.StatusOK, code)

		var txs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &txs))
		require.Len(t, txs, 2)
		assert.Equal(t, "spent", txs[0]["type"])
		assert.EqualValues(t, 20, txs[0]["amount"])
		assert.EqualValues(t, -20, txs[0]["delta"])
		assert.EqualValues(t, 50, txs[1]["delta"])
		assert.EqualValues(t, 50, txs[1]["balance_after"])

		code, _ = env.do(t, http.MethodGet, "/api/rewards/transactions?limit=many", "student", "")
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("redeem catalog discount", func(t *testing.T) {
		env := newTestEnv(t)
		discountID := uuid.New()
		env.redemption.On("RedeemCatalogDiscount", mock.Anything, studentID, universityID, discountID).
			Return(models.TuitionRedemption{
				ID:             uuid.New(),
				UserID:         studentID,
				UniversityID:   universityID,
				DiscountID:     &discountID,
				CostCoinsPaid:  500,
				DiscountAmount: decimal.NewFromInt(500),
				Status:         models.RedemptionConfirmed,
			}, nil).Once()

		code, body := env.do(t, http.MethodPost, "/api/rewards/redemptions", "student",
			fmt.Sprintf(`{"university_id": %q, "discount_id": %q}`, universityID, discountID))

		require.Equalf(t, http.StatusCreated, code, "body: %s", body)
		res := decodeObject(t, body)
		assert.Equal(t, "confirmed", res["status"])
		assert.EqualValues(t, 500, res["cost_coins_paid"])
		assert.Equal(t, "500", res["discount_amount"])
	})

	t.Run("redeem custom insufficient balance", func(t *testing.T) {
		env := newTestEnv(t)
		env.redemption.On("RedeemCustomDiscount", mock.Anything, studentID, universityID, int64(500)).
			Return(models.TuitionRedemption{}, fmt.Errorf("can't redeem: %w", apperrors.NewBalanceError(420, 500))).Once()

		code, body := env.do(t, http.MethodPost, "/api/rewards/redemptions", "student",
			fmt.Sprintf(`{"university_id": %q, "coins": 500}`, universityID))

		require.Equal(t, http.StatusPaymentRequired, code)
		require.JSONEq(t, errorBody("insufficient balance: you have 420 coins available, but requested 500"), body)
	})

	t.Run("redeem validation", func(t *testing.T) {
		env := newTestEnv(t)

		tests := []struct {
			name string
			body string
		}{
			{"no university", `{"coins": 50}`},
			{"neither discount nor coins", fmt.Sprintf(`{"university_id": %q}`, universityID)},
			{"both discount and coins", fmt.Sprintf(`{"university_id": %q, "discount_id": %q, "coins": 50}`, universityID, uuid.New())},
			{"discount not uuid", fmt.Sprintf(`{"university_id": %q, "discount_id": "gold"}`, universityID)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				code, body := env.do(t, http.MethodPost, "/api/rewards/redemptions", "student", tt.body)

				require.Equal(t, http.StatusBadRequest, code)
				require.Equal(t, "validation_failed", decodeObject(t, body)["error"])
			})
		}
	})

	t.Run("invalid custom amounts", func(t *testing.T) {
		tests := []struct {
			name  string
			coins string
			calls bool
		}{
			{"zero", "0", true},
			{"negative", "-5", true},
			{"below minimum", "9", true},
			{"fraction", "10.5", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t)
				if tt.calls {
					env.redemption.On("RedeemCustomDiscount", mock.Anything, studentID, universityID, mock.AnythingOfType("int64")).
						Return(models.TuitionRedemption{}, fmt.Errorf("%w: at least 10 coins are required", apperrors.ErrInvalidAmount)).Once()
				}

				code, body := env.do(t, http.MethodPost, "/api/rewards/redemptions", "student",
					fmt.Sprintf(`{"university_id": %q, "coins": %s}`, universityID, tt.coins))

				require.Equal(t, http.StatusUnprocessableEntity, code)
				require.JSONEq(t, errorBody(apperrors.ErrInvalidAmount.Error()), body)
			})
		}
	})

	t.Run("redeem at ineligible university", func(t *testing.T) {
		env := newTestEnv(t)
		env.redemption.On("RedeemCustomDiscount", mock.Anything, studentID, universityID, int64(50)).
			Return(models.TuitionRedemption{}, fmt.Errorf("%w: %w", apperrors.ErrUniversityNotEligible, apperrors.ErrUniversityNotFound)).Once()

		code, body := env.do(t, http.MethodPost, "/api/rewards/redemptions", "student",
			fmt.Sprintf(`{"university_id": %q, "coins": 50}`, universityID))

		require.Equal(t, http.StatusUnprocessableEntity, code)
		require.JSONEq(t, errorBody(apperrors.ErrUniversityNotEligible.Error()), body)
	})
}

func TestRouter_University(t *testing.T) {
	t.Run("rewards with reservation", func(t *testing.T) {
		env := newTestEnv(t)
		env.ledger.On("GetBalance", mock.Anything, models.UniversityAccount(universityID)).
			Return(models.Balance{Account: models.UniversityAccount(universityID), Balance: 1000, Credited: 1000}, nil).Once()
		env.payout.On("AvailableForPayout", mock.Anything, universityID).
			Return(models.PayoutAvailability{UniversityID: universityID, Balance: 1000, Reserved: 700}, nil).Once()

		code, body := env.do(t, http.MethodGet, "/api/universities/"+universityID.String()+"/rewards", "staff", "")

		require.Equal(t, http.StatusOK, code)
		res := decodeObject(t, body)
		assert.EqualValues(t, 1000, res["balance"])
		assert.EqualValues(t, 700, res["reserved"])
		assert.EqualValues(t, 300, res["available_for_payout"])
	})

	t.Run("other university forbidden", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodGet, "/api/universities/"+uuid.NewString()+"/transactions", "staff", "")

		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("admin sees any university", func(t *testing.T) {
		env := newTestEnv(t)
		other := uuid.New()
		env.redemption.On("ListRedemptions", mock.Anything, models.ListRedemptionsOpts{UniversityID: &other}).
			Return([]models.TuitionRedemption{}, nil).Once()

		code, body := env.do(t, http.MethodGet, "/api/universities/"+other.String()+"/redemptions", "admin", "")

		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `[]`, body)
	})

	t.Run("invalid university id", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodGet, "/api/universities/not-a-uuid/rewards", "admin", "")

		require.Equal(t, http.StatusBadRequest, code)
	})
}

func TestRouter_Payouts(t *testing.T) {
	payoutsURL := "/api/universities/" + universityID.String() + "/payouts"

	t.Run("request zelle payout", func(t *testing.T) {
		env := newTestEnv(t)
		requestID := uuid.New()
		env.payout.On("RequestPayout", mock.Anything, mock.MatchedBy(func(p payout.RequestParams) bool {
			details, ok := p.Details.(models.ZelleDetails)
			return ok &&
				p.UniversityID == universityID &&
				p.RequestedBy == staffID &&
				p.AmountCoins == 700 &&
				details.Email == "finance@university.edu"
		})).Return(models.PayoutWithInvoice{
			Request: models.PayoutRequest{
				ID:           requestID,
				UniversityID: universityID,
				RequestedBy:  staffID,
				AmountCoins:  700,
				AmountUSD:    decimal.NewFromInt(700),
				Method:       models.PayoutMethodZelle,
				Details:      models.ZelleDetails{Email: "finance@university.edu", AccountName: "State University"},
				Status:       models.PayoutPending,
			},
			Invoice: models.PayoutInvoice{PayoutRequestID: requestID, InvoiceNumber: "MR-20261015-0A1B2C3D", IssuedAt: time.Now()},
		}, nil).Once()

		code, body := env.do(t, http.MethodPost, payoutsURL, "staff", `{
			"amount_coins": 700,
			"payout_method": "zelle",
			"payout_details": {"email": "finance@university.edu", "account_name": "State University"}
		}`)

		require.Equalf(t, http.StatusCreated, code, "body: %s", body)
		res := decodeObject(t, body)
		assert.Equal(t, "pending", res["status"])
		assert.Equal(t, false, res["final"])
		assert.Equal(t, "zelle", res["payout_method"])
		assert.Equal(t, "700", res["amount_usd"])
		assert.Equal(t, "finance@university.edu", res["payout_details"].(map[string]any)["email"])
		assert.Equal(t, "MR-20261015-0A1B2C3D", res["invoice"].(map[string]any)["invoice_number"])
	})

	t.Run("request over available balance", func(t *testing.T) {
		env := newTestEnv(t)
		env.payout.On("RequestPayout", mock.Anything, mock.Anything).
			Return(models.PayoutWithInvoice{}, apperrors.NewBalanceError(300, 700)).Once()

		code, body := env.do(t, http.MethodPost, payoutsURL, "staff",
			`{"amount_coins": 700, "payout_method": "stripe", "payout_details": {"account_id": "acct_123"}}`)

		require.Equal(t, http.StatusPaymentRequired, code)
		require.JSONEq(t, errorBody("insufficient balance: you have 300 coins available, but requested 700"), body)
	})

	t.Run("invalid details", func(t *testing.T) {
		env := newTestEnv(t)
		env.payout.On("RequestPayout", mock.Anything, mock.Anything).
			Return(models.PayoutWithInvoice{}, fmt.Errorf("%w: zelle: email", apperrors.ErrInvalidPayoutDetails)).Once()

		code, _ := env.do(t, http.MethodPost, payoutsURL, "staff",
			`{"amount_coins": 10, "payout_method": "zelle", "payout_details": {"account_name": "X"}}`)

		require.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("details of wrong shape", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodPost, payoutsURL, "staff",
			`{"amount_coins": 10, "payout_method": "bank_transfer", "payout_details": "wire it"}`)

		require.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("unknown method", func(t *testing.T) {
		env := newTestEnv(t)

		code, body := env.do(t, http.MethodPost, payoutsURL, "staff",
			`{"amount_coins": 10, "payout_method": "paypal", "payout_details": {}}`)

		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "validation_failed", decodeObject(t, body)["error"])
	})

	t.Run("list with status filter", func(t *testing.T) {
		env := newTestEnv(t)
		env.payout.On("ListPayoutRequests", mock.Anything, models.ListPayoutsOpts{
			UniversityID: &universityID,
			Statuses:     []models.PayoutStatus{models.PayoutPending, models.PayoutApproved},
		}).Return([]models.PayoutRequest{}, nil).Once()

		code, _ := env.do(t, http.MethodGet, payoutsURL+"?status=pending,approved", "staff", "")
		require.Equal(t, http.StatusOK, code)

		code, _ = env.do(t, http.MethodGet, payoutsURL+"?status=lost", "staff", "")
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("cancel by non member", func(t *testing.T) {
		env := newTestEnv(t)
		requestID := uuid.New()
		env.payout.On("CancelPayout", mock.Anything, requestID, staffID).
			Return(models.PayoutRequest{}, apperrors.ErrNotAuthorized).Once()

		code, body := env.do(t, http.MethodPost, "/api/payouts/"+requestID.String()+"/cancel", "staff", "")

		require.Equal(t, http.StatusForbidden, code)
		require.JSONEq(t, errorBody("not authorized"), body)
	})

	t.Run("get payout of other university", func(t *testing.T) {
		env := newTestEnv(t)
		requestID := uuid.New()
		env.payout.On("GetPayout", mock.Anything, requestID).
			Return(models.PayoutWithInvoice{Request: models.PayoutRequest{ID: requestID, UniversityID: uuid.New()}}, nil).Once()

		code, _ := env.do(t, http.MethodGet, "/api/payouts/"+requestID.String(), "staff", "")

		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("mark paid twice", func(t *testing.T) {
		env := newTestEnv(t)
		requestID := uuid.New()
		env.payout.On("AdminMarkPaid", mock.Anything, requestID, adminID, "ZELLE-9913").
			Return(models.PayoutRequest{}, apperrors.NewStateError("payout request", models.PayoutPaid, models.PayoutPaid)).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/payouts/"+requestID.String()+"/mark-paid", "admin",
			`{"payment_reference": "ZELLE-9913"}`)

		require.Equal(t, http.StatusConflict, code)
		require.JSONEq(t, errorBody(`invalid state transition: payout request can't move from "paid" to "paid"`), body)
	})

	t.Run("mark paid without reference", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodPost, "/api/admin/payouts/"+uuid.NewString()+"/mark-paid", "admin",
			`{"payment_reference": "  "}`)

		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("reject", func(t *testing.T) {
		env := newTestEnv(t)
		requestID := uuid.New()
		reason := "duplicate request"
		env.payout.On("AdminReject", mock.Anything, requestID, adminID, reason).
			Return(models.PayoutRequest{ID: requestID, Status: models.PayoutRejected, ReviewReason: &reason}, nil).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/payouts/"+requestID.String()+"/reject", "admin",
			`{"reason": "duplicate request"}`)

		require.Equal(t, http.StatusOK, code)
		res := decodeObject(t, body)
		assert.Equal(t, "rejected", res["status"])
		assert.Equal(t, true, res["final"])
		assert.Equal(t, reason, res["review_reason"])
	})
}

func TestRouter_Admin(t *testing.T) {
	t.Run("earn for blocked user", func(t *testing.T) {
		env := newTestEnv(t)
		env.ledger.On("Earn", mock.Anything, studentID, int64(100), "referral bonus").
			Return(models.CoinTransaction{}, apperrors.ErrUserBlocked).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/earnings", "admin",
			fmt.Sprintf(`{"user_id": %q, "amount": 100, "description": "referral bonus"}`, studentID))

		require.Equal(t, http.StatusForbidden, code)
		require.JSONEq(t, errorBody("user is blocked"), body)
	})

	t.Run("earn negative amount", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodPost, "/api/admin/earnings", "admin",
			fmt.Sprintf(`{"user_id": %q, "amount": -5, "description": "oops"}`, studentID))

		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("expire redemption", func(t *testing.T) {
		env := newTestEnv(t)
		redemptionID := uuid.New()
		env.redemption.On("ExpireRedemption", mock.Anything, redemptionID, adminID).
			Return(models.TuitionRedemption{}, apperrors.ErrRedemptionNotFound).Once()

		code, _ := env.do(t, http.MethodPost, "/api/admin/redemptions/"+redemptionID.String()+"/expire", "admin", "")

		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run("reconcile consistent", func(t *testing.T) {
		env := newTestEnv(t)
		account := models.UniversityAccount(universityID)
		env.ledger.On("Reconcile", mock.Anything, account).Return(models.Reconciliation{
			Stored:  models.Balance{Account: account, Balance: 300, Credited: 1000, Debited: 700},
			Journal: models.JournalSummary{Credited: 1000, Debited: 700, Count: 3, LastBalance: 300, HasLastEntry: true},
		}, nil).Once()

		code, body := env.do(t, http.MethodGet, "/api/admin/reconcile/university/"+universityID.String(), "admin", "")

		require.Equal(t, http.StatusOK, code)
		res := decodeObject(t, body)
		assert.Equal(t, true, res["consistent"])
		assert.EqualValues(t, 300, res["journal"].(map[string]any)["balance"])
	})

	t.Run("reconcile violation", func(t *testing.T) {
		env := newTestEnv(t)
		env.ledger.On("Reconcile", mock.Anything, models.UserAccount(studentID)).
			Return(models.Reconciliation{}, apperrors.ErrInvariantViolation).Once()

		code, body := env.do(t, http.MethodGet, "/api/admin/reconcile/user/"+studentID.String(), "admin", "")

		require.Equal(t, http.StatusInternalServerError, code)
		require.JSONEq(t, errorBody("Internal server error"), body)
	})

	t.Run("reconcile unknown account type", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodGet, "/api/admin/reconcile/bank/"+studentID.String(), "admin", "")

		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("audit trail", func(t *testing.T) {
		env := newTestEnv(t)
		payoutID := uuid.New()
		env.moderation.On("AuditTrail", mock.Anything, models.TargetPayoutRequest, payoutID).Return([]models.AdminAction{{
			ID:         uuid.New(),
			AdminID:    adminID,
			Action:     models.ActionPayoutApprove,
			TargetType: models.TargetPayoutRequest,
			TargetID:   payoutID,
			Details:    map[string]any{"from": "pending", "to": "approved"},
			CreatedAt:  time.Now(),
		}}, nil).Once()

		code, body := env.do(t, http.MethodGet, "/api/admin/audit/payout_request/"+payoutID.String(), "admin", "")

		require.Equal(t, http.StatusOK, code)
		var actions []map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &actions))
		require.Len(t, actions, 1)
		assert.Equal(t, models.ActionPayoutApprove, actions[0]["action"])
		assert.Equal(t, adminID.String(), actions[0]["admin_id"])
		assert.Equal(t, "approved", actions[0]["details"].(map[string]any)["to"])
	})

	t.Run("audit trail unknown target", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("AuditTrail", mock.Anything, "orders", studentID).
			Return(nil, apperrors.ErrUnknownAuditTarget).Once()

		code, body := env.do(t, http.MethodGet, "/api/admin/audit/orders/"+studentID.String(), "admin", "")

		require.Equal(t, http.StatusBadRequest, code)
		require.JSONEq(t, errorBody("unknown audit target type"), body)
	})

	t.Run("audit trail is admin only", func(t *testing.T) {
		env := newTestEnv(t)

		code, _ := env.do(t, http.MethodGet, "/api/admin/audit/university/"+universityID.String(), "staff", "")

		require.Equal(t, http.StatusForbidden, code)
	})
}

func TestRouter_Moderation(t *testing.T) {
	t.Run("block with derived code", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("Block", mock.Anything, moderation.BlockParams{UserID: studentID, AdminID: adminID, Reason: "self referrals"}).
			Return(models.BlockedAffiliateCode{UserID: studentID, AffiliateCode: "MATR0C2F4A1E", BlockedBy: adminID, Reason: "self referrals"}, nil).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/moderation/users/"+studentID.String()+"/block", "admin",
			`{"reason": "self referrals"}`)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "MATR0C2F4A1E", decodeObject(t, body)["affiliate_code"])
	})

	t.Run("block already blocked", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("Block", mock.Anything, mock.Anything).
			Return(models.BlockedAffiliateCode{}, apperrors.ErrUserAlreadyBlocked).Once()

		code, _ := env.do(t, http.MethodPost, "/api/admin/moderation/users/"+studentID.String()+"/block", "admin",
			`{"reason": "again"}`)

		require.Equal(t, http.StatusConflict, code)
	})

	t.Run("unblock", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("Unblock", mock.Anything, studentID, adminID).Return(nil).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/moderation/users/"+studentID.String()+"/unblock", "admin", "")

		require.Equal(t, http.StatusNoContent, code)
		require.Empty(t, body)
	})

	t.Run("list suspicious with unknown status", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("ListSuspiciousUsers", mock.Anything, models.ModerationStatus("banned"), 0).
			Return(nil, apperrors.ErrUnknownStatus).Once()

		code, _ := env.do(t, http.MethodGet, "/api/admin/moderation/suspicious?status=banned", "admin", "")

		require.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("flag", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("FlagSuspiciousUser", mock.Anything, studentID, "burst of referrals", 80).
			Return(models.SuspiciousUser{UserID: studentID, Status: models.ModerationFlagged, Reason: "burst of referrals", Score: 80}, nil).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/moderation/users/"+studentID.String()+"/flag", "admin",
			`{"reason": "burst of referrals", "score": 80}`)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "flagged", decodeObject(t, body)["status"])
	})

	t.Run("set status of unflagged user", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("SetStatus", mock.Anything, studentID, adminID, models.ModerationActive).
			Return(models.SuspiciousUser{}, apperrors.ErrUserNotFlagged).Once()

		code, _ := env.do(t, http.MethodPost, "/api/admin/moderation/users/"+studentID.String()+"/status", "admin",
			`{"status": "active"}`)

		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run("block university without reason", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("BlockUniversity", mock.Anything, universityID, adminID, "").
			Return(models.University{}, apperrors.ErrReasonRequired).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/moderation/universities/"+universityID.String()+"/block", "admin", `{}`)

		require.Equal(t, http.StatusUnprocessableEntity, code)
		require.JSONEq(t, errorBody("reason is required"), body)
	})

	t.Run("unblock university", func(t *testing.T) {
		env := newTestEnv(t)
		env.moderation.On("UnblockUniversity", mock.Anything, universityID, adminID, "").
			Return(models.University{ID: universityID, Name: "State University", IsApproved: true}, nil).Once()

		code, body := env.do(t, http.MethodPost, "/api/admin/moderation/universities/"+universityID.String()+"/unblock", "admin", `{}`)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, decodeObject(t, body)["is_blocked"])
	})
}
