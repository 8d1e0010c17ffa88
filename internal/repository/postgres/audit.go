package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

type AuditRepo struct {
	DB DBTX
}

const auditColumns = `id, admin_id, action, target_type, target_id, details, created_at`

const recordAction = `-- name: RecordAction
INSERT INTO admin_actions (id, admin_id, action, target_type, target_id, details)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + auditColumns

func (r *AuditRepo) Record(ctx context.Context, a models.AdminAction) (models.AdminAction, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Details == nil {
		a.Details = map[string]any{}
	}

	details, err := json.Marshal(a.Details)
	if err != nil {
		return a, fmt.Errorf("can't encode action details: %w", err)
	}

	rows, _ := r.DB.Query(ctx, recordAction, a.ID, a.AdminID, a.Action, a.TargetType, a.TargetID, details)
	created, err := pgx.CollectOneRow(rows, rowToAction)
	if err != nil {
		return a, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listActions = `-- name: ListActions
SELECT ` + auditColumns + `
FROM admin_actions
WHERE target_type = $1 AND target_id = $2
ORDER BY created_at DESC, id
`

func (r *AuditRepo) ListActions(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AdminAction, error) {
	rows, _ := r.DB.Query(ctx, listActions, targetType, targetID)
	actions, err := pgx.CollectRows(rows, rowToAction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return actions, nil
}

func rowToAction(row pgx.CollectableRow) (models.AdminAction, error) {
	var (
		a       models.AdminAction
		details []byte
	)

	err := row.Scan(&a.ID, &a.AdminID, &a.Action, &a.TargetType, &a.TargetID, &details, &a.CreatedAt)
	if err != nil {
		return a, err
	}

	err = json.Unmarshal(details, &a.Details)
	return a, err
}
