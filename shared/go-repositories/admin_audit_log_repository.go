package repositories

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type AdminAuditLogRepository interface {
	Create(ctx context.Context, logEntry *models.AdminAuditLog) error
	ListByTarget(ctx context.Context, targetType models.AuditTargetType, targetID uuid.UUID) ([]*models.AdminAuditLog, error)
}

type adminAuditLogRepo struct {
	db DB
}

func NewAdminAuditLogRepository(db DB) AdminAuditLogRepository {
	return &adminAuditLogRepo{db: db}
}

func (r *adminAuditLogRepo) Create(ctx context.Context, e *models.AdminAuditLog) error {
	var details any
	if e.Details != nil {
		details = string(*e.Details)
	}
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO admin_audit_logs (
			id, admin_id, action, target_id, target_type, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		e.ID, e.AdminID, string(e.Action), e.TargetID, string(e.TargetType), details,
	)
	return err
}

func (r *adminAuditLogRepo) ListByTarget(ctx context.Context, targetType models.AuditTargetType, targetID uuid.UUID) ([]*models.AdminAuditLog, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, admin_id, action, target_id, target_type, details, created_at
		FROM admin_audit_logs WHERE target_type=$1 AND target_id=$2
		ORDER BY created_at DESC`, string(targetType), targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AdminAuditLog
	for rows.Next() {
		var e models.AdminAuditLog
		var action, tt string
		var details []byte
		if err := rows.Scan(&e.ID, &e.AdminID, &action, &e.TargetID, &tt, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = models.AuditAction(action)
		e.TargetType = models.AuditTargetType(tt)
		if len(details) > 0 {
			raw := json.RawMessage(details)
			e.Details = &raw
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
