package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionPayoutApprove     = "payout_approve"
	ActionPayoutMarkPaid    = "payout_mark_paid"
	ActionPayoutReject      = "payout_reject"
	ActionRedemptionExpire  = "redemption_expire"
	ActionUserStatus        = "user_status"
	ActionUserBlock         = "user_block"
	ActionUserUnblock       = "user_unblock"
	ActionUniversityBlock   = "university_block"
	ActionUniversityUnblock = "university_unblock"
)

const (
	TargetPayoutRequest = "payout_request"
	TargetRedemption    = "tuition_redemption"
	TargetUser          = "user"
	TargetUniversity    = "university"
)

// ValidAuditTarget reports whether admin actions are recorded for the target type
func ValidAuditTarget(targetType string) bool {
	switch targetType {
	case TargetPayoutRequest, TargetRedemption, TargetUser, TargetUniversity:
		return true
	default:
		return false
	}
}

// AdminAction is an audit trail record for compliance review
type AdminAction struct {
	ID         uuid.UUID
	AdminID    uuid.UUID
	Action     string
	TargetType string
	TargetID   uuid.UUID
	Details    map[string]any
	CreatedAt  time.Time
}
