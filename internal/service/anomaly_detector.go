package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/repository"
)

// keywordRule maps a contestation phrase to a severity. Rules are evaluated
// in order; the first match wins, so the critical phrases come first.
type keywordRule struct {
	keyword  string
	severity domain.AlertSeverity
}

var contestationRules = []keywordRule{
	{"discrimination", domain.SeverityP1},
	{"harcèlement", domain.SeverityP1},
	{"fraude", domain.SeverityP1},
	{"non-respect", domain.SeverityP1},
	{"conditions habitables", domain.SeverityP1},
	{"délai insuffisant", domain.SeverityP2},
	{"erreur calcul", domain.SeverityP2},
	{"pièce manquante", domain.SeverityP2},
}

// ClassifyContestation maps a free-text contestation reason to a severity and
// the keyword that decided it. Reasons matching no rule default to P3.
func ClassifyContestation(reason string) (domain.AlertSeverity, string) {
	lowered := strings.ToLower(reason)
	for _, rule := range contestationRules {
		if strings.Contains(lowered, rule.keyword) {
			return rule.severity, rule.keyword
		}
	}
	return domain.SeverityP3, ""
}

// AnomalyDetector raises litigation alerts for contested notices and anomaly
// alerts for structural problems: a notice type the contract disallows, or a
// sent notice with no supporting documents.
type AnomalyDetector struct {
	notices  repository.NoticeRepository
	alerts   *AlertService
	coolDown time.Duration
	logger   *zap.Logger
}

// NewAnomalyDetector constructs the detector.
func NewAnomalyDetector(cfg config.ScannerConfig, notices repository.NoticeRepository, alerts *AlertService, logger *zap.Logger) *AnomalyDetector {
	return &AnomalyDetector{
		notices:  notices,
		alerts:   alerts,
		coolDown: time.Duration(cfg.AnomalyCooldownHrs) * time.Hour,
		logger:   logger,
	}
}

// Run executes all passes, isolating failures per pass.
func (d *AnomalyDetector) Run(ctx context.Context) error {
	var errs []error
	if err := d.scanContested(ctx); err != nil {
		d.logger.Error("litigation pass failed", zap.Error(err))
		errs = append(errs, err)
	}
	if err := d.scanDisallowedTypes(ctx); err != nil {
		d.logger.Error("disallowed-type pass failed", zap.Error(err))
		errs = append(errs, err)
	}
	if err := d.scanMissingDocuments(ctx); err != nil {
		d.logger.Error("missing-documents pass failed", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *AnomalyDetector) scanContested(ctx context.Context) error {
	notices, err := d.notices.ListContested(ctx)
	if err != nil {
		return err
	}
	for i := range notices {
		notice := notices[i]
		reason := ""
		if notice.ContestationReason != nil {
			reason = *notice.ContestationReason
		}
		severity, keyword := ClassifyContestation(reason)
		confidence := 0.6
		if keyword != "" {
			confidence = 0.9
		}
		alert := &domain.Alert{
			Type:           domain.AlertTypeLitigation,
			Severity:       severity,
			EntityID:       notice.ID,
			Title:          "Notice contested",
			Description:    fmt.Sprintf("Notice %s on contract %s was contested: %s", notice.ID, notice.ContractID, reason),
			ActionRequired: litigationAction(severity),
			Reasoning: domain.AlertReasoning{
				Rule: "contestation_keywords",
				Factors: map[string]any{
					"matched_keyword": keyword,
					"notice_type":     string(notice.Type),
				},
				Confidence: confidence,
			},
		}
		d.raise(ctx, notice.ID, alert)
	}
	return nil
}

func (d *AnomalyDetector) scanDisallowedTypes(ctx context.Context) error {
	notices, err := d.notices.ListWithDisallowedType(ctx)
	if err != nil {
		return err
	}
	for i := range notices {
		notice := notices[i]
		alert := &domain.Alert{
			Type:           domain.AlertTypeAnomaly,
			Severity:       domain.SeverityP1,
			EntityID:       notice.ID,
			Title:          "Notice type not permitted by contract",
			Description:    fmt.Sprintf("Notice %s is of type %s, which contract %s does not allow.", notice.ID, notice.Type, notice.ContractID),
			ActionRequired: "Annul the notice or amend the contract before the effective date.",
			Reasoning: domain.AlertReasoning{
				Rule: "disallowed_notice_type",
				Factors: map[string]any{
					"notice_type": string(notice.Type),
					"contract_id": notice.ContractID,
				},
				Confidence: 1.0,
			},
		}
		d.raise(ctx, notice.ID, alert)
	}
	return nil
}

func (d *AnomalyDetector) scanMissingDocuments(ctx context.Context) error {
	notices, err := d.notices.ListPostSendWithoutDocuments(ctx)
	if err != nil {
		return err
	}
	for i := range notices {
		notice := notices[i]
		alert := &domain.Alert{
			Type:           domain.AlertTypeAnomaly,
			Severity:       domain.SeverityP2,
			EntityID:       notice.ID,
			Title:          "Sent notice has no supporting documents",
			Description:    fmt.Sprintf("Notice %s was sent without any attached document.", notice.ID),
			ActionRequired: "Attach the signed notice document and proof of delivery.",
			Reasoning: domain.AlertReasoning{
				Rule: "missing_documents",
				Factors: map[string]any{
					"status": string(notice.Status),
				},
				Confidence: 1.0,
			},
		}
		d.raise(ctx, notice.ID, alert)
	}
	return nil
}

func (d *AnomalyDetector) raise(ctx context.Context, noticeID string, alert *domain.Alert) {
	if _, err := d.alerts.Raise(ctx, alert, d.coolDown); err != nil {
		d.logger.Error("raise alert",
			zap.String("notice_id", noticeID),
			zap.String("type", string(alert.Type)),
			zap.Error(err))
	}
}

func litigationAction(severity domain.AlertSeverity) string {
	switch severity {
	case domain.SeverityP1:
		return "Escalate to legal counsel immediately."
	case domain.SeverityP2:
		return "Review the contested point and respond within 5 business days."
	default:
		return "Acknowledge the contestation and record the tenant's position."
	}
}
