package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// AuditRepository appends to the immutable notice audit log.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO notice_audit_log (notice_id, action, actor_id, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.NoticeID,
		entry.Action,
		entry.ActorID,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
}
