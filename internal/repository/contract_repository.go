package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// ContractRepository reads contract terms and billing eligibility.
type ContractRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Contract, error)
	// ListActive returns contracts without an end date, the billing
	// population for a period.
	ListActive(ctx context.Context) ([]domain.Contract, error)
}

type contractRepository struct {
	pool *pgxpool.Pool
}

// NewContractRepository instantiates repository.
func NewContractRepository(pool *pgxpool.Pool) ContractRepository {
	return &contractRepository{pool: pool}
}

const contractColumns = `
        id, tenant_id, property_id, property_manager_id, start_date, end_date,
        monthly_rent, currency, preferred_language, preferred_channels,
        notice_duration_days, count_business_days_only, month_end_proration,
        allowable_notice_types, created_at, updated_at`

func (r *contractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	const query = `
        SELECT ` + contractColumns + `
        FROM contracts WHERE id=$1`
	return scanContract(r.pool.QueryRow(ctx, query, id))
}

func (r *contractRepository) ListActive(ctx context.Context) ([]domain.Contract, error) {
	const query = `
        SELECT ` + contractColumns + `
        FROM contracts
        WHERE end_date IS NULL
        ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *contract)
	}
	return result, rows.Err()
}

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var c domain.Contract
	var channels, noticeTypes []string
	if err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.PropertyID,
		&c.PropertyManagerID,
		&c.StartDate,
		&c.EndDate,
		&c.MonthlyRent,
		&c.Currency,
		&c.PreferredLanguage,
		&channels,
		&c.Legal.NoticeDurationDays,
		&c.Legal.CountBusinessDaysOnly,
		&c.Legal.MonthEndProration,
		&noticeTypes,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.PreferredChannels = toChannels(channels)
	for _, nt := range noticeTypes {
		c.Legal.AllowableNoticeTypes = append(c.Legal.AllowableNoticeTypes, domain.NoticeType(nt))
	}
	return &c, nil
}
