package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// NoticeRepository exposes the notice read model the engine scans. The notice
// lifecycle itself is owned by the CRUD layer.
type NoticeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Notice, error)
	// ListActiveEffectiveBetween returns non-terminal notices whose effective
	// date falls in [from, to).
	ListActiveEffectiveBetween(ctx context.Context, from, to time.Time) ([]domain.Notice, error)
	// ListUnacknowledgedPastEffective returns notices past their effective
	// date by at most the given window with no acknowledgement.
	ListUnacknowledgedPastEffective(ctx context.Context, now time.Time, window time.Duration) ([]domain.Notice, error)
	ListContested(ctx context.Context) ([]domain.Notice, error)
	// ListWithDisallowedType returns notices whose type is absent from the
	// contract's allowed-types set.
	ListWithDisallowedType(ctx context.Context) ([]domain.Notice, error)
	// ListPostSendWithoutDocuments returns sent/received/validated notices
	// with zero attached documents.
	ListPostSendWithoutDocuments(ctx context.Context) ([]domain.Notice, error)
}

type noticeRepository struct {
	pool *pgxpool.Pool
}

// NewNoticeRepository instantiates repository.
func NewNoticeRepository(pool *pgxpool.Pool) NoticeRepository {
	return &noticeRepository{pool: pool}
}

const noticeColumns = `
        id, contract_id, type, motif, emission_date, effective_date, status,
        channels, contested_at, contestation_reason, litigation_status,
        acknowledged_at, document_count, created_at, updated_at`

func (r *noticeRepository) GetByID(ctx context.Context, id string) (*domain.Notice, error) {
	const query = `
        SELECT ` + noticeColumns + `
        FROM notices WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanNotice(row)
}

func (r *noticeRepository) ListActiveEffectiveBetween(ctx context.Context, from, to time.Time) ([]domain.Notice, error) {
	const query = `
        SELECT ` + noticeColumns + `
        FROM notices
        WHERE status NOT IN ('closed','annulled','expired')
          AND effective_date >= $1 AND effective_date < $2
        ORDER BY effective_date ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotices(rows)
}

func (r *noticeRepository) ListUnacknowledgedPastEffective(ctx context.Context, now time.Time, window time.Duration) ([]domain.Notice, error) {
	const query = `
        SELECT ` + noticeColumns + `
        FROM notices
        WHERE status NOT IN ('closed','annulled')
          AND effective_date <= $1
          AND effective_date >= $2
          AND acknowledged_at IS NULL
        ORDER BY effective_date ASC`
	rows, err := r.pool.Query(ctx, query, now, now.Add(-window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotices(rows)
}

func (r *noticeRepository) ListContested(ctx context.Context) ([]domain.Notice, error) {
	const query = `
        SELECT ` + noticeColumns + `
        FROM notices
        WHERE status='contested' AND contested_at IS NOT NULL
        ORDER BY contested_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotices(rows)
}

func (r *noticeRepository) ListWithDisallowedType(ctx context.Context) ([]domain.Notice, error) {
	const query = `
        SELECT n.id, n.contract_id, n.type, n.motif, n.emission_date, n.effective_date, n.status,
               n.channels, n.contested_at, n.contestation_reason, n.litigation_status,
               n.acknowledged_at, n.document_count, n.created_at, n.updated_at
        FROM notices n
        JOIN contracts c ON n.contract_id = c.id
        WHERE NOT (n.type = ANY(c.allowable_notice_types))`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotices(rows)
}

func (r *noticeRepository) ListPostSendWithoutDocuments(ctx context.Context) ([]domain.Notice, error) {
	const query = `
        SELECT ` + noticeColumns + `
        FROM notices
        WHERE status IN ('sent','received','validated')
          AND document_count = 0`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotices(rows)
}

func scanNotice(row pgx.Row) (*domain.Notice, error) {
	var n domain.Notice
	var channels []string
	if err := row.Scan(
		&n.ID,
		&n.ContractID,
		&n.Type,
		&n.Motif,
		&n.EmissionDate,
		&n.EffectiveDate,
		&n.Status,
		&channels,
		&n.ContestedAt,
		&n.ContestationReason,
		&n.LitigationStatus,
		&n.AcknowledgedAt,
		&n.DocumentCount,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	n.Channels = toChannels(channels)
	return &n, nil
}

func scanNotices(rows pgx.Rows) ([]domain.Notice, error) {
	var result []domain.Notice
	for rows.Next() {
		notice, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *notice)
	}
	return result, rows.Err()
}

func toChannels(values []string) []domain.Channel {
	if len(values) == 0 {
		return nil
	}
	channels := make([]domain.Channel, 0, len(values))
	for _, v := range values {
		channels = append(channels, domain.Channel(v))
	}
	return channels
}
