package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/repository"
)

const (
	riskWindowThreshold = 70
	riskEscalationScore = 85
)

// RiskService computes the departure-risk score from independent additive
// signals, persists an immutable assessment snapshot and raises an alert for
// high-risk tenants.
type RiskService struct {
	risk   repository.RiskRepository
	alerts *AlertService
	logger *zap.Logger
	now    func() time.Time
}

// NewRiskService constructs the service.
func NewRiskService(risk repository.RiskRepository, alerts *AlertService, logger *zap.Logger) *RiskService {
	return &RiskService{
		risk:   risk,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
	}
}

// Assess scores one tenant. Each signal is optional; a signal query failure
// drops that signal rather than aborting the assessment.
func (s *RiskService) Assess(ctx context.Context, tenantID string) (*domain.DepartureRiskAssessment, error) {
	now := s.now()
	assessment := &domain.DepartureRiskAssessment{
		TenantID:     tenantID,
		CalculatedAt: now,
	}
	score := 0

	if delays, err := s.risk.PaymentDelays(ctx, tenantID, now.AddDate(0, -6, 0)); err != nil {
		s.logger.Warn("payment delay signal unavailable", zap.String("tenant_id", tenantID), zap.Error(err))
	} else if delays.DelayCount >= 3 {
		add, severity := 15, domain.SignalMedium
		if delays.DelayCount >= 6 {
			add, severity = 25, domain.SignalHigh
		}
		score += add
		assessment.Signals = append(assessment.Signals, domain.RiskSignal{
			Signal:   "recurring_delays",
			Severity: severity,
			Evidence: map[string]any{
				"delay_count":   delays.DelayCount,
				"avg_days_late": delays.AvgDaysLate,
			},
			Timestamp: now,
		})
	}

	if contacts, err := s.risk.InteractionCount(ctx, tenantID, now.AddDate(0, -3, 0)); err != nil {
		s.logger.Warn("interaction signal unavailable", zap.String("tenant_id", tenantID), zap.Error(err))
	} else if contacts < 2 {
		add, severity := 10, domain.SignalLow
		if contacts == 0 {
			add, severity = 20, domain.SignalMedium
		}
		score += add
		assessment.Signals = append(assessment.Signals, domain.RiskSignal{
			Signal:    "low_communication",
			Severity:  severity,
			Evidence:  map[string]any{"contact_count": contacts},
			Timestamp: now,
		})
	}

	if position, err := s.risk.RentPosition(ctx, tenantID); err != nil {
		s.logger.Warn("rent position signal unavailable", zap.String("tenant_id", tenantID), zap.Error(err))
	} else if position != nil {
		assessment.ContractID = position.ContractID
		if position.MarketAvg > 0 {
			ratio := position.CurrentRent / position.MarketAvg
			// the two rent signals are mutually exclusive by construction,
			// a single ratio cannot satisfy both bounds
			switch {
			case ratio < 0.85:
				score += 8
				assessment.Signals = append(assessment.Signals, domain.RiskSignal{
					Signal:   "below_market_rent",
					Severity: domain.SignalLow,
					Evidence: map[string]any{
						"current_rent": position.CurrentRent,
						"market_avg":   position.MarketAvg,
						"ratio":        ratio,
					},
					Timestamp: now,
				})
			case position.MarketAvg > 1.15*position.CurrentRent:
				score += 20
				assessment.Signals = append(assessment.Signals, domain.RiskSignal{
					Signal:   "high_local_rent_pressure",
					Severity: domain.SignalHigh,
					Evidence: map[string]any{
						"current_rent": position.CurrentRent,
						"market_avg":   position.MarketAvg,
						"ratio":        ratio,
					},
					Timestamp: now,
				})
			}
		}
	}

	if incidents, err := s.risk.OpenIncidentCount(ctx, tenantID); err != nil {
		s.logger.Warn("incident signal unavailable", zap.String("tenant_id", tenantID), zap.Error(err))
	} else if incidents > 0 {
		add, severity := 10, domain.SignalMedium
		if incidents > 2 {
			add, severity = 18, domain.SignalHigh
		}
		score += add
		assessment.Signals = append(assessment.Signals, domain.RiskSignal{
			Signal:    "unresolved_incidents",
			Severity:  severity,
			Evidence:  map[string]any{"open_incidents": incidents},
			Timestamp: now,
		})
	}

	if change, err := s.risk.LatestProfileChange(ctx, tenantID); err != nil {
		s.logger.Warn("profile change signal unavailable", zap.String("tenant_id", tenantID), zap.Error(err))
	} else if change.Changed {
		score += 12
		assessment.Signals = append(assessment.Signals, domain.RiskSignal{
			Signal:   "situation_change",
			Severity: domain.SignalMedium,
			Evidence: map[string]any{
				"previous": change.Previous,
				"current":  change.Current,
			},
			Timestamp: now,
		})
	}

	if score > 100 {
		score = 100
	}
	assessment.RiskScore = score
	assessment.RetentionRecommendations = retentionRecommendations(assessment.Signals, score)

	if score > riskWindowThreshold {
		confidence := 50 + float64(score)/2
		if confidence > 90 {
			confidence = 90
		}
		assessment.PredictedDepartureWindow = &domain.DepartureWindow{
			StartDate:  now.AddDate(0, 0, 14),
			EndDate:    now.AddDate(0, 0, 56),
			Confidence: confidence,
		}
	}

	if err := s.risk.SaveAssessment(ctx, assessment); err != nil {
		return nil, err
	}
	if err := s.risk.UpdateTenantScore(ctx, tenantID, score); err != nil {
		return nil, err
	}

	if score > riskWindowThreshold {
		alertConfidence := 0.70
		if score >= riskEscalationScore {
			alertConfidence = 0.95
		}
		alert := &domain.Alert{
			Type:           domain.AlertTypeDepartureRisk,
			Severity:       domain.SeverityP2,
			EntityID:       tenantID,
			Title:          fmt.Sprintf("High departure risk (score %d)", score),
			Description:    fmt.Sprintf("Tenant %s scored %d from %d signal(s).", tenantID, score, len(assessment.Signals)),
			ActionRequired: "Contact the tenant and review retention options within 48h.",
			Reasoning: domain.AlertReasoning{
				Rule:       "departure_risk_threshold",
				Factors:    map[string]any{"score": score, "signal_count": len(assessment.Signals)},
				Confidence: alertConfidence,
			},
		}
		if _, err := s.alerts.Raise(ctx, alert, 7*24*time.Hour); err != nil {
			s.logger.Error("raise departure risk alert", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}

	s.logger.Info("tenant assessed",
		zap.String("tenant_id", tenantID),
		zap.Int("score", score),
		zap.Int("signals", len(assessment.Signals)))
	return assessment, nil
}

// AssessActiveTenants scores tenants on active contracts in one batch pass.
// Individual failures are logged and skipped.
func (s *RiskService) AssessActiveTenants(ctx context.Context, limit int) error {
	tenantIDs, err := s.risk.ListActiveTenantIDs(ctx, limit)
	if err != nil {
		return err
	}
	for _, tenantID := range tenantIDs {
		if _, err := s.Assess(ctx, tenantID); err != nil {
			s.logger.Error("tenant assessment failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return nil
}

// retentionRecommendations maps fired signals to concrete retention actions,
// escalating to a manager review for very high scores.
func retentionRecommendations(signals []domain.RiskSignal, score int) []domain.RetentionRecommendation {
	var recs []domain.RetentionRecommendation
	if score > riskEscalationScore {
		recs = append(recs, domain.RetentionRecommendation{
			Action:         "escalate_to_manager",
			Priority:       "high",
			ExpectedImpact: "direct intervention before the tenant commits elsewhere",
		})
	}
	for _, signal := range signals {
		switch signal.Signal {
		case "recurring_delays":
			recs = append(recs, domain.RetentionRecommendation{
				Action:         "payment_plan_review",
				Priority:       "high",
				ExpectedImpact: "reduce payment friction before it becomes a departure reason",
			})
		case "low_communication":
			recs = append(recs, domain.RetentionRecommendation{
				Action:         "personal_outreach",
				Priority:       "medium",
				ExpectedImpact: "re-establish contact and surface latent dissatisfaction",
			})
		case "high_local_rent_pressure":
			recs = append(recs, domain.RetentionRecommendation{
				Action:         "commercial_gesture",
				Priority:       "high",
				ExpectedImpact: "close the gap with market alternatives",
			})
		case "unresolved_incidents":
			recs = append(recs, domain.RetentionRecommendation{
				Action:         "maintenance_fast_track",
				Priority:       "high",
				ExpectedImpact: "resolve open incidents that erode satisfaction",
			})
		}
	}
	return recs
}
