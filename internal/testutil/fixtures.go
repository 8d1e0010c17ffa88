package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository"
)

// Approved, not blocked university
func CreateUniversity(t *testing.T, s repository.Storage) models.University {
	t.Helper()

	u, err := s.University().CreateUniversity(t.Context(), models.University{
		Name:       "University " + uuid.NewString()[:8],
		IsApproved: true,
	})
	require.NoError(t, err)

	return u
}

// University with a staff member allowed to request payouts
func CreateUniversityWithMember(t *testing.T, s repository.Storage) (models.University, uuid.UUID) {
	t.Helper()

	u := CreateUniversity(t, s)
	memberID := uuid.New()
	require.NoError(t, s.University().AddMember(t.Context(), u.ID, memberID))

	return u, memberID
}

func CreateDiscount(t *testing.T, s repository.Storage, cost int64, active bool) models.TuitionDiscount {
	t.Helper()

	d, err := s.Discount().CreateDiscount(t.Context(), models.TuitionDiscount{
		Name:           "Tuition discount",
		Description:    "Discount on the next semester",
		CostCoins:      cost,
		DiscountAmount: decimal.NewFromInt(cost),
		IsActive:       active,
	})
	require.NoError(t, err)

	return d
}
