package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/suaiden-dev/matriculausa-rewards/internal/apperrors"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

type UniversityRepo struct {
	DB DBTX
}

const createUniversity = `-- name: CreateUniversity
INSERT INTO universities (id, name, is_approved, is_blocked)
VALUES ($1, $2, $3, $4)
RETURNING id, name, is_approved, is_blocked, created_at
`

func (r *UniversityRepo) CreateUniversity(ctx context.Context, u models.University) (models.University, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createUniversity, u.ID, u.Name, u.IsApproved, u.IsBlocked)
	created, err := pgx.CollectOneRow(rows, rowToUniversity)
	if err != nil {
		return u, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getUniversity = `-- name: GetUniversity
SELECT id, name, is_approved, is_blocked, created_at
FROM universities
WHERE id = $1
`

func (r *UniversityRepo) GetUniversity(ctx context.Context, id uuid.UUID) (models.University, error) {
	rows, _ := r.DB.Query(ctx, getUniversity, id)
	u, err := pgx.CollectOneRow(rows, rowToUniversity)

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return u, apperrors.ErrUniversityNotFound
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}

const setUniversityBlocked = `-- name: SetUniversityBlocked
UPDATE universities
SET is_blocked = $2
WHERE id = $1
RETURNING id, name, is_approved, is_blocked, created_at
`

func (r *UniversityRepo) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) (models.University, error) {
	rows, _ := r.DB.Query(ctx, setUniversityBlocked, id, blocked)
	u, err := pgx.CollectOneRow(rows, rowToUniversity)

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return u, apperrors.ErrUniversityNotFound
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}

const addUniversityMember = `-- name: AddUniversityMember
INSERT INTO university_members (university_id, user_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

func (r *UniversityRepo) AddMember(ctx context.Context, universityID uuid.UUID, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, addUniversityMember, universityID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return apperrors.ErrUniversityNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const isUniversityMember = `-- name: IsUniversityMember
SELECT EXISTS (
	SELECT 1 FROM university_members
	WHERE university_id = $1 AND user_id = $2
)
`

func (r *UniversityRepo) IsMember(ctx context.Context, universityID uuid.UUID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, isUniversityMember, universityID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func rowToUniversity(row pgx.CollectableRow) (models.University, error) {
	var u models.University
	err := row.Scan(&u.ID, &u.Name, &u.IsApproved, &u.IsBlocked, &u.CreatedAt)
	return u, err
}
