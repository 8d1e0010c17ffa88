package models

import (
	"time"

	"github.com/google/uuid"
)

type ModerationStatus string

const (
	ModerationActive    ModerationStatus = "active"
	ModerationSuspended ModerationStatus = "suspended"
	ModerationFlagged   ModerationStatus = "flagged"
)

func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationActive, ModerationSuspended, ModerationFlagged:
		return true
	default:
		return false
	}
}

type SuspiciousUser struct {
	UserID    uuid.UUID
	Status    ModerationStatus
	Reason    string
	Score     int // heuristic score supplied by the external detector
	FlaggedAt time.Time
	UpdatedAt time.Time
}

type BlockedAffiliateCode struct {
	UserID        uuid.UUID
	AffiliateCode string
	BlockedBy     uuid.UUID
	BlockedAt     time.Time
	Reason        string
}
