package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// BatchRepository persists message batches.
type BatchRepository interface {
	GetByID(ctx context.Context, id string) (*domain.MessageBatch, error)
	// ListDueScheduled returns scheduled batches whose time has come.
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.MessageBatch, error)
	MarkExecuting(ctx context.Context, id string) error
	Finish(ctx context.Context, id string, status domain.BatchStatus, successRate float64) error
}

type batchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository instantiates repository.
func NewBatchRepository(pool *pgxpool.Pool) BatchRepository {
	return &batchRepository{pool: pool}
}

const batchColumns = `
        id, notice_id, recipient_ids, channel, language, status, success_rate,
        scheduled_for, created_at, updated_at`

func (r *batchRepository) GetByID(ctx context.Context, id string) (*domain.MessageBatch, error) {
	const query = `
        SELECT ` + batchColumns + `
        FROM message_batches WHERE id=$1`
	return scanBatch(r.pool.QueryRow(ctx, query, id))
}

func (r *batchRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.MessageBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT ` + batchColumns + `
        FROM message_batches
        WHERE status='scheduled' AND scheduled_for <= $1
        ORDER BY scheduled_for ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MessageBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *batch)
	}
	return result, rows.Err()
}

func (r *batchRepository) MarkExecuting(ctx context.Context, id string) error {
	const query = `
        UPDATE message_batches SET status='executing', updated_at=NOW()
        WHERE id=$1 AND status='scheduled'`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *batchRepository) Finish(ctx context.Context, id string, status domain.BatchStatus, successRate float64) error {
	const query = `
        UPDATE message_batches SET status=$2, success_rate=$3, updated_at=NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id, status, successRate)
	return err
}

func scanBatch(row pgx.Row) (*domain.MessageBatch, error) {
	var b domain.MessageBatch
	var channel string
	if err := row.Scan(
		&b.ID,
		&b.NoticeID,
		&b.RecipientIDs,
		&channel,
		&b.Language,
		&b.Status,
		&b.SuccessRate,
		&b.ScheduledFor,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Channel = domain.Channel(channel)
	return &b, nil
}
