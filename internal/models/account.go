package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeUser       AccountType = "user"
	AccountTypeUniversity AccountType = "university"
)

// AccountRef points to a ledger account: a student credit account or a university rewards account
type AccountRef struct {
	Type AccountType
	ID   uuid.UUID // user id or university id, not the account row id
}

func UserAccount(userID uuid.UUID) AccountRef {
	return AccountRef{Type: AccountTypeUser, ID: userID}
}

func UniversityAccount(universityID uuid.UUID) AccountRef {
	return AccountRef{Type: AccountTypeUniversity, ID: universityID}
}

func (r AccountRef) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

type UserCreditAccount struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Balance     int64
	TotalEarned int64
	TotalSpent  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UniversityRewardsAccount struct {
	ID                  uuid.UUID
	UniversityID        uuid.UUID
	BalanceCoins        int64
	TotalReceivedCoins  int64
	TotalPaidOutCoins   int64
	TotalDiscountsSent  int64
	TotalDiscountAmount decimal.Decimal // USD, informational
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Balance is a read-only snapshot of any ledger account
type Balance struct {
	Account  AccountRef
	Balance  int64
	Credited int64 // total earned or received
	Debited  int64 // total spent or paid out
}

func (a UserCreditAccount) Snapshot() Balance {
	return Balance{
		Account:  UserAccount(a.UserID),
		Balance:  a.Balance,
		Credited: a.TotalEarned,
		Debited:  a.TotalSpent,
	}
}

func (a UniversityRewardsAccount) Snapshot() Balance {
	return Balance{
		Account:  UniversityAccount(a.UniversityID),
		Balance:  a.BalanceCoins,
		Credited: a.TotalReceivedCoins,
		Debited:  a.TotalPaidOutCoins,
	}
}

// JournalSummary is the account state rebuilt from coin transactions only
type JournalSummary struct {
	Credited     int64
	Debited      int64
	Count        int64
	LastBalance  int64 // balance_after of the latest transaction, zero if none
	HasLastEntry bool
}

func (s JournalSummary) Balance() int64 {
	return s.Credited - s.Debited
}

// Reconciliation compares stored account totals with the transaction journal
type Reconciliation struct {
	Stored  Balance
	Journal JournalSummary
}

func (r Reconciliation) Consistent() bool {
	if r.Stored.Balance != r.Journal.Balance() {
		return false
	}
	if r.Stored.Credited != r.Journal.Credited || r.Stored.Debited != r.Journal.Debited {
		return false
	}
	if r.Journal.HasLastEntry && r.Journal.LastBalance != r.Stored.Balance {
		return false
	}
	return r.Stored.Balance >= 0
}
