package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// InvoiceRepository persists rent invoices. Generation is an upsert on
// (contract, period) so billing runs are safe to repeat.
type InvoiceRepository interface {
	Upsert(ctx context.Context, invoice *domain.Invoice) error
	// ListOverdue returns unpaid invoices whose due date passed before the
	// given cutoff.
	ListOverdue(ctx context.Context, dueBefore time.Time) ([]domain.Invoice, error)
	// SetPenalty records the computed late penalty. The value is absolute,
	// not additive, so recomputation is idempotent.
	SetPenalty(ctx context.Context, id string, penalty float64) error
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository instantiates repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

func (r *invoiceRepository) Upsert(ctx context.Context, invoice *domain.Invoice) error {
	const query = `
        INSERT INTO invoices (contract_id, period, amount, currency, due_date, status, issued_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (contract_id, period)
        DO UPDATE SET amount=EXCLUDED.amount, currency=EXCLUDED.currency,
                      due_date=EXCLUDED.due_date, updated_at=NOW()
        WHERE invoices.status = 'pending'
        RETURNING id, status, issued_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		invoice.ContractID,
		invoice.Period,
		invoice.Amount,
		invoice.Currency,
		invoice.DueDate,
		domain.InvoiceStatusPending,
		invoice.IssuedAt,
	).Scan(&invoice.ID, &invoice.Status, &invoice.IssuedAt, &invoice.UpdatedAt)
	// a settled invoice is excluded from the update and returns no row; the
	// re-run must leave it untouched
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (r *invoiceRepository) ListOverdue(ctx context.Context, dueBefore time.Time) ([]domain.Invoice, error) {
	const query = `
        SELECT id, contract_id, period, amount, currency, due_date, status,
               penalty_amount, issued_at, paid_at, updated_at
        FROM invoices
        WHERE status IN ('pending','overdue') AND due_date < $1
        ORDER BY due_date ASC`
	rows, err := r.pool.Query(ctx, query, dueBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(
			&inv.ID,
			&inv.ContractID,
			&inv.Period,
			&inv.Amount,
			&inv.Currency,
			&inv.DueDate,
			&inv.Status,
			&inv.PenaltyAmount,
			&inv.IssuedAt,
			&inv.PaidAt,
			&inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (r *invoiceRepository) SetPenalty(ctx context.Context, id string, penalty float64) error {
	const query = `
        UPDATE invoices SET penalty_amount=$2, status='overdue', updated_at=NOW()
        WHERE id=$1 AND status IN ('pending','overdue')`
	cmd, err := r.pool.Exec(ctx, query, id, penalty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
