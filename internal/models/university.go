package models

import (
	"time"

	"github.com/google/uuid"
)

type University struct {
	ID         uuid.UUID
	Name       string
	IsApproved bool
	IsBlocked  bool
	CreatedAt  time.Time
}

// Eligible reports whether the university may receive redemptions
func (u University) Eligible() bool {
	return u.IsApproved && !u.IsBlocked
}
