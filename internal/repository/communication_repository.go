package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// CommunicationRepository persists communication events. Events are mutated
// only by the delivery pipeline and their status never regresses.
type CommunicationRepository interface {
	Create(ctx context.Context, event *domain.CommunicationEvent) error
	GetByID(ctx context.Context, id string) (*domain.CommunicationEvent, error)
	MarkSending(ctx context.Context, id string) error
	// MarkSent records success and clears the last error.
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkRead(ctx context.Context, id string, at time.Time) error
	// ScheduleRetry bumps the retry counter and either re-queues the event or
	// parks it as failed once the budget is spent.
	ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt *time.Time, status domain.EventStatus, lastError string) error
	// ListDueRetries returns queued events whose next retry time has passed.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.CommunicationEvent, error)
}

type communicationRepository struct {
	pool *pgxpool.Pool
}

// NewCommunicationRepository instantiates repository.
func NewCommunicationRepository(pool *pgxpool.Pool) CommunicationRepository {
	return &communicationRepository{pool: pool}
}

const eventColumns = `
        id, notice_id, channel, recipient_id, recipient_address, template_id,
        content, status, retry_count, next_retry_at, last_error, sent_at,
        read_at, created_at, updated_at`

func (r *communicationRepository) Create(ctx context.Context, event *domain.CommunicationEvent) error {
	const query = `
        INSERT INTO communication_events
            (notice_id, channel, recipient_id, recipient_address, template_id, content, status, retry_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		event.NoticeID,
		event.Channel,
		event.RecipientID,
		event.RecipientAddress,
		event.TemplateID,
		event.Content,
		event.Status,
		event.RetryCount,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *communicationRepository) GetByID(ctx context.Context, id string) (*domain.CommunicationEvent, error) {
	const query = `
        SELECT ` + eventColumns + `
        FROM communication_events WHERE id=$1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

func (r *communicationRepository) MarkSending(ctx context.Context, id string) error {
	const query = `
        UPDATE communication_events SET status='sending', updated_at=NOW()
        WHERE id=$1 AND status='queued'`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *communicationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE communication_events
        SET status='sent', sent_at=$2, last_error=NULL, next_retry_at=NULL, updated_at=NOW()
        WHERE id=$1 AND status IN ('queued','sending')`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *communicationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE communication_events SET status='read', read_at=$2, updated_at=NOW()
        WHERE id=$1 AND status='sent'`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *communicationRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt *time.Time, status domain.EventStatus, lastError string) error {
	const query = `
        UPDATE communication_events
        SET retry_count=$2, next_retry_at=$3, status=$4, last_error=$5, updated_at=NOW()
        WHERE id=$1 AND status IN ('queued','sending') AND retry_count < $2`
	cmd, err := r.pool.Exec(ctx, query, id, retryCount, nextRetryAt, status, lastError)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *communicationRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.CommunicationEvent, error) {
	const query = `
        SELECT ` + eventColumns + `
        FROM communication_events
        WHERE status='queued' AND next_retry_at IS NOT NULL AND next_retry_at <= $1
        ORDER BY next_retry_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvent(row pgx.Row) (*domain.CommunicationEvent, error) {
	var e domain.CommunicationEvent
	if err := row.Scan(
		&e.ID,
		&e.NoticeID,
		&e.Channel,
		&e.RecipientID,
		&e.RecipientAddress,
		&e.TemplateID,
		&e.Content,
		&e.Status,
		&e.RetryCount,
		&e.NextRetryAt,
		&e.LastError,
		&e.SentAt,
		&e.ReadAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]domain.CommunicationEvent, error) {
	var result []domain.CommunicationEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *event)
	}
	return result, rows.Err()
}
