package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeEarned   TransactionType = "earned"
	TransactionTypeSpent    TransactionType = "spent"
	TransactionTypeReceived TransactionType = "received"
	TransactionTypePaidOut  TransactionType = "paid_out"
)

func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeEarned || t == TransactionTypeReceived
}

// ValidFor reports whether the transaction type may be applied to the account type
// Users earn and spend, universities receive and get paid out
func (t TransactionType) ValidFor(a AccountType) bool {
	switch a {
	case AccountTypeUser:
		return t == TransactionTypeEarned || t == TransactionTypeSpent
	case AccountTypeUniversity:
		return t == TransactionTypeReceived || t == TransactionTypePaidOut
	default:
		return false
	}
}

// DebitType returns the transaction type used to take coins from the account
func DebitType(a AccountType) TransactionType {
	if a == AccountTypeUniversity {
		return TransactionTypePaidOut
	}
	return TransactionTypeSpent
}

// CreditType returns the transaction type used to add coins to the account
func CreditType(a AccountType) TransactionType {
	if a == AccountTypeUniversity {
		return TransactionTypeReceived
	}
	return TransactionTypeEarned
}

// CoinTransaction is an immutable journal record, one per balance mutation
type CoinTransaction struct {
	ID           uuid.UUID
	Account      AccountRef
	Type         TransactionType
	Amount       int64 // always positive, direction comes from Type
	BalanceAfter int64
	Description  string
	RelatedID    *uuid.UUID // redemption or payout request
	CreatedAt    time.Time
}

func (t CoinTransaction) SignedAmount() int64 {
	if t.Type.IsCredit() {
		return t.Amount
	}
	return -t.Amount
}

type ListTransactionsOpts struct {
	Types []TransactionType
	Limit int
}
