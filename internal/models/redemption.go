package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionConfirmed RedemptionStatus = "confirmed"
	RedemptionExpired   RedemptionStatus = "expired"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

type TuitionRedemption struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	UniversityID   uuid.UUID
	DiscountID     *uuid.UUID // nil for custom redemptions
	CostCoinsPaid  int64
	DiscountAmount decimal.Decimal
	Status         RedemptionStatus
	RedeemedAt     time.Time
	UpdatedAt      time.Time
}

func (r TuitionRedemption) IsCustom() bool {
	return r.DiscountID == nil
}

type ListRedemptionsOpts struct {
	UserID       *uuid.UUID
	UniversityID *uuid.UUID
	Limit        int
}
