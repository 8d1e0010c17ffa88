package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutApproved  PayoutStatus = "approved"
	PayoutPaid      PayoutStatus = "paid"
	PayoutRejected  PayoutStatus = "rejected"
	PayoutCancelled PayoutStatus = "cancelled"
)

var payoutStatuses = []PayoutStatus{PayoutPending, PayoutApproved, PayoutPaid, PayoutRejected, PayoutCancelled}

// Allowed payout request transitions. Anything not listed is rejected
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending:  {PayoutApproved, PayoutRejected, PayoutCancelled},
	PayoutApproved: {PayoutPaid},
}

func (s PayoutStatus) CanTransition(to PayoutStatus) bool {
	for _, next := range payoutTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s PayoutStatus) IsTerminal() bool {
	return len(payoutTransitions[s]) == 0
}

// Reserves reports whether a request in this status holds part of the university balance
func (s PayoutStatus) Reserves() bool {
	return s == PayoutPending || s == PayoutApproved
}

// ReservingPayoutStatuses lists the statuses counted in a university reservation
func ReservingPayoutStatuses() []PayoutStatus {
	var res []PayoutStatus
	for _, s := range payoutStatuses {
		if s.Reserves() {
			res = append(res, s)
		}
	}
	return res
}

type PayoutMethod string

const (
	PayoutMethodZelle        PayoutMethod = "zelle"
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodStripe       PayoutMethod = "stripe"
)

// PayoutDetails is the method specific destination of a payout
// Implemented by ZelleDetails, BankTransferDetails and StripeDetails only
type PayoutDetails interface {
	Method() PayoutMethod
	Validate() error
	payoutDetails()
}

type ZelleDetails struct {
	Email       string `json:"email,omitempty" validate:"required_without=Phone,omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"required_without=Email,omitempty,min=7,max=20"`
	AccountName string `json:"account_name" validate:"required,max=200"`
}

type BankTransferDetails struct {
	BankName      string `json:"bank_name" validate:"required,max=200"`
	AccountHolder string `json:"account_holder" validate:"required,max=200"`
	AccountNumber string `json:"account_number" validate:"required,min=4,max=34,alphanum"`
	RoutingNumber string `json:"routing_number,omitempty" validate:"required_without=SwiftCode,omitempty,len=9,numeric"`
	SwiftCode     string `json:"swift_code,omitempty" validate:"required_without=RoutingNumber,omitempty,min=8,max=11,alphanum"`
}

type StripeDetails struct {
	AccountID string `json:"account_id" validate:"required,startswith=acct_"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

func (ZelleDetails) Method() PayoutMethod        { return PayoutMethodZelle }
func (BankTransferDetails) Method() PayoutMethod { return PayoutMethodBankTransfer }
func (StripeDetails) Method() PayoutMethod       { return PayoutMethodStripe }

func (ZelleDetails) payoutDetails()        {}
func (BankTransferDetails) payoutDetails() {}
func (StripeDetails) payoutDetails()       {}

var detailsValidator = validator.New(validator.WithRequiredStructEnabled())

func (d ZelleDetails) Validate() error        { return validateDetails(d) }
func (d BankTransferDetails) Validate() error { return validateDetails(d) }
func (d StripeDetails) Validate() error       { return validateDetails(d) }

func validateDetails(d PayoutDetails) error {
	if err := detailsValidator.Struct(d); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidPayoutDetails, d.Method(), err)
	}
	return nil
}

// ValidatePayoutDetails also rejects a missing destination
func ValidatePayoutDetails(d PayoutDetails) error {
	if d == nil {
		return fmt.Errorf("%w: details are required", apperrors.ErrInvalidPayoutDetails)
	}
	return d.Validate()
}

func EncodePayoutDetails(d PayoutDetails) ([]byte, error) {
	return json.Marshal(d)
}

func DecodePayoutDetails(method PayoutMethod, raw []byte) (PayoutDetails, error) {
	switch method {
	case PayoutMethodZelle:
		return decodeDetails[ZelleDetails](raw)
	case PayoutMethodBankTransfer:
		return decodeDetails[BankTransferDetails](raw)
	case PayoutMethodStripe:
		return decodeDetails[StripeDetails](raw)
	default:
		return nil, fmt.Errorf("%w: unknown payout method %q", apperrors.ErrInvalidPayoutDetails, method)
	}
}

func decodeDetails[T PayoutDetails](raw []byte) (PayoutDetails, error) {
	var d T
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayoutDetails, err)
	}
	return d, nil
}

type PayoutRequest struct {
	ID               uuid.UUID
	UniversityID     uuid.UUID
	RequestedBy      uuid.UUID
	AmountCoins      int64
	AmountUSD        decimal.Decimal
	Method           PayoutMethod
	Details          PayoutDetails
	Status           PayoutStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ReviewedBy       *uuid.UUID
	ReviewedAt       *time.Time
	ReviewReason     *string
	PaymentReference *string
	PaidAt           *time.Time
}

// PayoutInvoice is issued once per request when it is created
type PayoutInvoice struct {
	ID              uuid.UUID
	PayoutRequestID uuid.UUID
	InvoiceNumber   string
	IssuedAt        time.Time
	FinalizedAt     *time.Time // set when the request is paid
}

type PayoutWithInvoice struct {
	Request PayoutRequest
	Invoice PayoutInvoice
}

type ListPayoutsOpts struct {
	UniversityID *uuid.UUID
	Statuses     []PayoutStatus
	Limit        int
}

// PayoutAvailability shows how much of a university balance may still be requested
type PayoutAvailability struct {
	UniversityID uuid.UUID
	Balance      int64
	Reserved     int64
}

func (a PayoutAvailability) Available() int64 {
	return a.Balance - a.Reserved
}
