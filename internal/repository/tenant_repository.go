package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// TenantRepository resolves notice recipients.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository instantiates repository.
func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const query = `
        SELECT id, first_name, last_name, email, phone, mailing_address,
               preferred_language, departure_risk_score, created_at, updated_at
        FROM tenants WHERE id=$1`
	var t domain.Tenant
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.FirstName,
		&t.LastName,
		&t.Email,
		&t.Phone,
		&t.MailingAddress,
		&t.PreferredLanguage,
		&t.DepartureRiskScore,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
