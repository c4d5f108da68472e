package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// AlertFilter narrows alert queries for the read model.
type AlertFilter struct {
	Status   *domain.AlertStatus
	Severity *domain.AlertSeverity
	Type     *domain.AlertType
	Limit    int
	Offset   int
}

// AlertRepository persists operational alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	// ExistsSince reports whether an open alert of (type, entityID) was
	// created after the given instant. This is the scanner's idempotency gate.
	ExistsSince(ctx context.Context, alertType domain.AlertType, entityID string, since time.Time) (bool, error)
	List(ctx context.Context, filter AlertFilter) ([]domain.Alert, error)
	// ListOpenByAssignee returns the prioritized task view: severity first,
	// then due date, then creation time.
	ListOpenByAssignee(ctx context.Context, assigneeID string, limit int) ([]domain.Alert, error)
	Resolve(ctx context.Context, id string, at time.Time) error
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

const alertColumns = `
        id, type, severity, entity_id, title, description, action_required,
        assigned_to, due_date, reasoning, status, created_at, resolved_at`

func (r *alertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	reasoning, err := json.Marshal(alert.Reasoning)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO alerts
            (type, severity, entity_id, title, description, action_required, assigned_to, due_date, reasoning, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		alert.Type,
		alert.Severity,
		alert.EntityID,
		alert.Title,
		alert.Description,
		alert.ActionRequired,
		alert.AssignedTo,
		alert.DueDate,
		reasoning,
		domain.AlertStatusOpen,
	).Scan(&alert.ID, &alert.CreatedAt)
}

func (r *alertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	const query = `
        SELECT ` + alertColumns + `
        FROM alerts WHERE id=$1`
	return scanAlert(r.pool.QueryRow(ctx, query, id))
}

func (r *alertRepository) ExistsSince(ctx context.Context, alertType domain.AlertType, entityID string, since time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM alerts
            WHERE type=$1 AND entity_id=$2 AND status='open' AND created_at > $3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, alertType, entityID, since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *alertRepository) List(ctx context.Context, filter AlertFilter) ([]domain.Alert, error) {
	base := `SELECT ` + alertColumns + ` FROM alerts`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		clauses = append(clauses, fmt.Sprintf("severity=$%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY severity ASC, due_date ASC NULLS LAST LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *alertRepository) ListOpenByAssignee(ctx context.Context, assigneeID string, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT ` + alertColumns + `
        FROM alerts
        WHERE assigned_to=$1 AND status='open'
        ORDER BY severity ASC, due_date ASC NULLS LAST, created_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, assigneeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *alertRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE alerts SET status='resolved', resolved_at=$2 WHERE id=$1 AND status='open'`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var a domain.Alert
	var reasoning []byte
	if err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Severity,
		&a.EntityID,
		&a.Title,
		&a.Description,
		&a.ActionRequired,
		&a.AssignedTo,
		&a.DueDate,
		&reasoning,
		&a.Status,
		&a.CreatedAt,
		&a.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if len(reasoning) > 0 {
		if err := json.Unmarshal(reasoning, &a.Reasoning); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func scanAlerts(rows pgx.Rows) ([]domain.Alert, error) {
	var result []domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}
