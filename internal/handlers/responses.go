package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

type balanceResponse struct {
	AccountType models.AccountType `json:"account_type"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	Balance     int64              `json:"balance"`
	Credited    int64              `json:"total_credited"`
	Debited     int64              `json:"total_debited"`
}

func newBalanceResponse(b models.Balance) balanceResponse {
	return balanceResponse{
		AccountType: b.Account.Type,
		OwnerID:     b.Account.ID,
		Balance:     b.Balance,
		Credited:    b.Credited,
		Debited:     b.Debited,
	}
}

type transactionResponse struct {
	ID           uuid.UUID              `json:"id"`
	Type         models.TransactionType `json:"type"`
	Amount       int64                  `json:"amount"`
	Delta        int64                  `json:"delta"`
	BalanceAfter int64                  `json:"balance_after"`
	Description  string                 `json:"description"`
	RelatedID    *uuid.UUID             `json:"related_id,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func newTransactionResponse(t models.CoinTransaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		Type:         t.Type,
		Amount:       t.Amount,
		Delta:        t.SignedAmount(),
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		RelatedID:    t.RelatedID,
		CreatedAt:    t.CreatedAt,
	}
}

func newTransactionsResponse(txs []models.CoinTransaction) []transactionResponse {
	res := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		res = append(res, newTransactionResponse(t))
	}
	return res
}

type redemptionResponse struct {
	ID             uuid.UUID               `json:"id"`
	UserID         uuid.UUID               `json:"user_id"`
	UniversityID   uuid.UUID               `json:"university_id"`
	DiscountID     *uuid.UUID              `json:"discount_id,omitempty"`
	CostCoinsPaid  int64                   `json:"cost_coins_paid"`
	DiscountAmount decimal.Decimal         `json:"discount_amount"`
	Status         models.RedemptionStatus `json:"status"`
	RedeemedAt     time.Time               `json:"redeemed_at"`
}

func newRedemptionResponse(r models.TuitionRedemption) redemptionResponse {
	return redemptionResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		UniversityID:   r.UniversityID,
		DiscountID:     r.DiscountID,
		CostCoinsPaid:  r.CostCoinsPaid,
		DiscountAmount: r.DiscountAmount,
		Status:         r.Status,
		RedeemedAt:     r.RedeemedAt,
	}
}

func newRedemptionsResponse(rs []models.TuitionRedemption) []redemptionResponse {
	res := make([]redemptionResponse, 0, len(rs))
	for _, r := range rs {
		res = append(res, newRedemptionResponse(r))
	}
	return res
}

type invoiceResponse struct {
	InvoiceNumber string     `json:"invoice_number"`
	IssuedAt      time.Time  `json:"issued_at"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
}

type payoutResponse struct {
	ID               uuid.UUID            `json:"id"`
	UniversityID     uuid.UUID            `json:"university_id"`
	RequestedBy      uuid.UUID            `json:"requested_by"`
	AmountCoins      int64                `json:"amount_coins"`
	AmountUSD        decimal.Decimal      `json:"amount_usd"`
	Method           models.PayoutMethod  `json:"payout_method"`
	Details          models.PayoutDetails `json:"payout_details"`
	Status           models.PayoutStatus  `json:"status"`
	Final            bool                 `json:"final"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	ReviewedBy       *uuid.UUID           `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time           `json:"reviewed_at,omitempty"`
	ReviewReason     *string              `json:"review_reason,omitempty"`
	PaymentReference *string              `json:"payment_reference,omitempty"`
	PaidAt           *time.Time           `json:"paid_at,omitempty"`
	Invoice          *invoiceResponse     `json:"invoice,omitempty"`
}

func newPayoutResponse(p models.PayoutRequest) payoutResponse {
	return payoutResponse{
		ID:               p.ID,
		UniversityID:     p.UniversityID,
		RequestedBy:      p.RequestedBy,
		AmountCoins:      p.AmountCoins,
		AmountUSD:        p.AmountUSD,
		Method:           p.Method,
		Details:          p.Details,
		Status:           p.Status,
		Final:            p.Status.IsTerminal(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		ReviewedBy:       p.ReviewedBy,
		ReviewedAt:       p.ReviewedAt,
		ReviewReason:     p.ReviewReason,
		PaymentReference: p.PaymentReference,
		PaidAt:           p.PaidAt,
	}
}

func newPayoutWithInvoiceResponse(p models.PayoutWithInvoice) payoutResponse {
	res := newPayoutResponse(p.Request)
	res.Invoice = &invoiceResponse{
		InvoiceNumber: p.Invoice.InvoiceNumber,
		IssuedAt:      p.Invoice.IssuedAt,
		FinalizedAt:   p.Invoice.FinalizedAt,
	}
	return res
}

func newPayoutsResponse(ps []models.PayoutRequest) []payoutResponse {
	res := make([]payoutResponse, 0, len(ps))
	for _, p := range ps {
		res = append(res, newPayoutResponse(p))
	}
	return res
}

type suspiciousUserResponse struct {
	UserID    uuid.UUID               `json:"user_id"`
	Status    models.ModerationStatus `json:"status"`
	Reason    string                  `json:"reason"`
	Score     int                     `json:"score"`
	FlaggedAt time.Time               `json:"flagged_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func newSuspiciousUserResponse(u models.SuspiciousUser) suspiciousUserResponse {
	return suspiciousUserResponse(u)
}

type universityResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	IsApproved bool      `json:"is_approved"`
	IsBlocked  bool      `json:"is_blocked"`
}

func newUniversityResponse(u models.University) universityResponse {
	return universityResponse{ID: u.ID, Name: u.Name, IsApproved: u.IsApproved, IsBlocked: u.IsBlocked}
}

type adminActionResponse struct {
	ID         uuid.UUID      `json:"id"`
	AdminID    uuid.UUID      `json:"admin_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   uuid.UUID      `json:"target_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
