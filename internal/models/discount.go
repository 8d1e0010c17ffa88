package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TuitionDiscount is a fixed-price catalog entry
type TuitionDiscount struct {
	ID             uuid.UUID
	Name           string
	Description    string
	CostCoins      int64
	DiscountAmount decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
}

// CoinsToUSD converts coins into dollars, one coin is worth one dollar
func CoinsToUSD(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins)
}
