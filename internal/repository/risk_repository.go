package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// PaymentDelayStats aggregates a tenant's late payments over a window.
type PaymentDelayStats struct {
	DelayCount  int
	AvgDaysLate int
}

// RentPosition compares a tenant's rent to the local market average. A zero
// MarketAvg means no comparable contracts exist.
type RentPosition struct {
	ContractID  string
	CurrentRent float64
	MarketAvg   float64
}

// ProfileChange captures the last two profile snapshots of a tenant.
type ProfileChange struct {
	Changed  bool
	Previous map[string]string
	Current  map[string]string
}

// RiskRepository supplies the independent signal queries for departure-risk
// scoring and persists the resulting assessments.
type RiskRepository interface {
	PaymentDelays(ctx context.Context, tenantID string, since time.Time) (PaymentDelayStats, error)
	InteractionCount(ctx context.Context, tenantID string, since time.Time) (int, error)
	RentPosition(ctx context.Context, tenantID string) (*RentPosition, error)
	OpenIncidentCount(ctx context.Context, tenantID string) (int, error)
	LatestProfileChange(ctx context.Context, tenantID string) (ProfileChange, error)
	SaveAssessment(ctx context.Context, assessment *domain.DepartureRiskAssessment) error
	// UpdateTenantScore writes the denormalized score back onto the tenant,
	// the one allowed side effect outside the assessment record.
	UpdateTenantScore(ctx context.Context, tenantID string, score int) error
	ListActiveTenantIDs(ctx context.Context, limit int) ([]string, error)
}

type riskRepository struct {
	pool *pgxpool.Pool
}

// NewRiskRepository instantiates repository.
func NewRiskRepository(pool *pgxpool.Pool) RiskRepository {
	return &riskRepository{pool: pool}
}

func (r *riskRepository) PaymentDelays(ctx context.Context, tenantID string, since time.Time) (PaymentDelayStats, error) {
	const query = `
        SELECT COUNT(*),
               COALESCE(AVG(EXTRACT(DAY FROM (paid_at - due_date))::INT), 0)::INT
        FROM payments
        WHERE tenant_id=$1 AND paid_at > due_date AND paid_at >= $2`
	var stats PaymentDelayStats
	if err := r.pool.QueryRow(ctx, query, tenantID, since).Scan(&stats.DelayCount, &stats.AvgDaysLate); err != nil {
		return PaymentDelayStats{}, err
	}
	return stats, nil
}

func (r *riskRepository) InteractionCount(ctx context.Context, tenantID string, since time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tenant_interactions
        WHERE tenant_id=$1 AND contacted_at >= $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *riskRepository) RentPosition(ctx context.Context, tenantID string) (*RentPosition, error) {
	const contractQuery = `
        SELECT id, property_id, monthly_rent
        FROM contracts
        WHERE tenant_id=$1 AND end_date IS NULL
        LIMIT 1`
	var contractID, propertyID string
	var currentRent float64
	err := r.pool.QueryRow(ctx, contractQuery, tenantID).Scan(&contractID, &propertyID, &currentRent)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const marketQuery = `
        SELECT COALESCE(AVG(monthly_rent), 0)
        FROM contracts
        WHERE property_id=$1 AND id != $2
          AND created_at >= NOW() - INTERVAL '12 months'`
	var marketAvg float64
	if err := r.pool.QueryRow(ctx, marketQuery, propertyID, contractID).Scan(&marketAvg); err != nil {
		return nil, err
	}

	return &RentPosition{ContractID: contractID, CurrentRent: currentRent, MarketAvg: marketAvg}, nil
}

func (r *riskRepository) OpenIncidentCount(ctx context.Context, tenantID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM incidents
        WHERE tenant_id=$1 AND status IN ('open','in_progress')`
	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *riskRepository) LatestProfileChange(ctx context.Context, tenantID string) (ProfileChange, error) {
	const query = `
        SELECT family_status, employment_status
        FROM tenant_profiles
        WHERE tenant_id=$1
        ORDER BY updated_at DESC
        LIMIT 2`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return ProfileChange{}, err
	}
	defer rows.Close()

	var snapshots []map[string]string
	for rows.Next() {
		var family, employment string
		if err := rows.Scan(&family, &employment); err != nil {
			return ProfileChange{}, err
		}
		snapshots = append(snapshots, map[string]string{
			"family_status":     family,
			"employment_status": employment,
		})
	}
	if err := rows.Err(); err != nil {
		return ProfileChange{}, err
	}
	if len(snapshots) < 2 {
		return ProfileChange{}, nil
	}
	current, previous := snapshots[0], snapshots[1]
	changed := current["family_status"] != previous["family_status"] ||
		current["employment_status"] != previous["employment_status"]
	return ProfileChange{Changed: changed, Previous: previous, Current: current}, nil
}

func (r *riskRepository) SaveAssessment(ctx context.Context, assessment *domain.DepartureRiskAssessment) error {
	signals, err := json.Marshal(assessment.Signals)
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(assessment.RetentionRecommendations)
	if err != nil {
		return err
	}
	var windowStart, windowEnd *time.Time
	var confidence *float64
	if w := assessment.PredictedDepartureWindow; w != nil {
		windowStart, windowEnd, confidence = &w.StartDate, &w.EndDate, &w.Confidence
	}
	const query = `
        INSERT INTO departure_risk_assessments
            (tenant_id, contract_id, risk_score, signals, retention_recommendations,
             predicted_departure_start, predicted_departure_end, prediction_confidence, calculated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.pool.Exec(ctx, query,
		assessment.TenantID,
		nullableID(assessment.ContractID),
		assessment.RiskScore,
		signals,
		recommendations,
		windowStart,
		windowEnd,
		confidence,
		assessment.CalculatedAt,
	)
	return err
}

// nullableID maps an absent reference to SQL NULL; an empty string is not a
// valid value for a UUID column.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (r *riskRepository) UpdateTenantScore(ctx context.Context, tenantID string, score int) error {
	const query = `
        UPDATE tenants SET departure_risk_score=$2, updated_at=NOW() WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, tenantID, score)
	return err
}

func (r *riskRepository) ListActiveTenantIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT DISTINCT t.id
        FROM tenants t
        JOIN contracts c ON t.id = c.tenant_id
        WHERE c.end_date IS NULL
        LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
