package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/repository"
)

// deadlineCheckpoints are the days-before-effective offsets that trigger an
// alert. Kept in descending order so the earliest warning fires first.
var deadlineCheckpoints = []int{30, 15, 7, 3, 1}

// followUpWindow bounds the post-effective pass: notices past their effective
// date by more than this are assumed handled through other processes.
const followUpWindow = 3 * 24 * time.Hour

// DeadlineScanner watches notice effective dates and raises deadline alerts
// at fixed checkpoints, plus a follow-up when acknowledgement is still
// missing after the effective date.
type DeadlineScanner struct {
	notices  repository.NoticeRepository
	alerts   *AlertService
	coolDown time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDeadlineScanner constructs the scanner.
func NewDeadlineScanner(cfg config.ScannerConfig, notices repository.NoticeRepository, alerts *AlertService, logger *zap.Logger) *DeadlineScanner {
	return &DeadlineScanner{
		notices:  notices,
		alerts:   alerts,
		coolDown: time.Duration(cfg.DeadlineCooldownHrs) * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes both passes. Each pass is isolated so a failure in one does
// not starve the other.
func (s *DeadlineScanner) Run(ctx context.Context) error {
	var errs []error
	if err := s.scanCheckpoints(ctx); err != nil {
		s.logger.Error("deadline checkpoint pass failed", zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.scanMissingAcknowledgements(ctx); err != nil {
		s.logger.Error("acknowledgement follow-up pass failed", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// scanCheckpoints raises one alert per notice whose effective date is exactly
// a checkpoint number of days away. Re-runs within the cool-down window are
// no-ops thanks to the alert service's dedup gate.
func (s *DeadlineScanner) scanCheckpoints(ctx context.Context) error {
	today := startOfDay(s.now())
	horizon := today.AddDate(0, 0, deadlineCheckpoints[0]+1)

	notices, err := s.notices.ListActiveEffectiveBetween(ctx, today, horizon)
	if err != nil {
		return err
	}
	for i := range notices {
		notice := notices[i]
		days := daysBetween(today, notice.EffectiveDate)
		if !isCheckpoint(days) {
			continue
		}
		alert := s.buildCheckpointAlert(&notice, days)
		if _, err := s.alerts.Raise(ctx, alert, s.coolDown); err != nil {
			s.logger.Error("raise deadline alert",
				zap.String("notice_id", notice.ID),
				zap.Int("days_until_effective", days),
				zap.Error(err))
		}
	}
	return nil
}

// scanMissingAcknowledgements raises a follow-up for notices past their
// effective date with no acknowledgement recorded.
func (s *DeadlineScanner) scanMissingAcknowledgements(ctx context.Context) error {
	now := s.now()
	notices, err := s.notices.ListUnacknowledgedPastEffective(ctx, now, followUpWindow)
	if err != nil {
		return err
	}
	for i := range notices {
		notice := notices[i]
		daysPast := daysBetween(startOfDay(notice.EffectiveDate), now)
		severity := domain.SeverityP2
		if daysPast >= 3 {
			severity = domain.SeverityP1
		}
		alert := &domain.Alert{
			Type:           domain.AlertTypeDeadline,
			Severity:       severity,
			EntityID:       notice.ID,
			Title:          "Acknowledgement missing after effective date",
			Description:    fmt.Sprintf("Notice %s became effective %d day(s) ago with no acknowledgement of receipt recorded.", notice.ID, daysPast),
			ActionRequired: "Obtain acknowledgement of receipt or escalate to registered mail.",
			DueDate:        &notice.EffectiveDate,
			Reasoning: domain.AlertReasoning{
				Rule: "post_effective_follow_up",
				Factors: map[string]any{
					"days_past_effective": daysPast,
					"notice_type":         string(notice.Type),
				},
				Confidence: 1.0,
			},
		}
		if _, err := s.alerts.Raise(ctx, alert, s.coolDown); err != nil {
			s.logger.Error("raise follow-up alert",
				zap.String("notice_id", notice.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *DeadlineScanner) buildCheckpointAlert(notice *domain.Notice, days int) *domain.Alert {
	severity := domain.SeverityP2
	if days <= 3 {
		severity = domain.SeverityP1
	}
	return &domain.Alert{
		Type:           domain.AlertTypeDeadline,
		Severity:       severity,
		EntityID:       notice.ID,
		Title:          fmt.Sprintf("Notice effective in %d day(s)", days),
		Description:    fmt.Sprintf("Notice %s (%s) on contract %s becomes effective on %s.", notice.ID, notice.Type, notice.ContractID, notice.EffectiveDate.Format("02/01/2006")),
		ActionRequired: checkpointAction(notice.Type, days),
		DueDate:        &notice.EffectiveDate,
		Reasoning: domain.AlertReasoning{
			Rule: "deadline_checkpoint",
			Factors: map[string]any{
				"checkpoint":           days,
				"days_until_effective": days,
				"notice_type":          string(notice.Type),
			},
			Confidence: 1.0,
		},
	}
}

func checkpointAction(noticeType domain.NoticeType, days int) string {
	if days <= 3 {
		if noticeType == domain.NoticeTypeTermination {
			return "Confirm acknowledgement of receipt and schedule the exit inspection."
		}
		return "Confirm acknowledgement of receipt and prepare the effective-date handover."
	}
	return "Verify delivery status and chase the recipient if nothing was read."
}

func isCheckpoint(days int) bool {
	for _, c := range deadlineCheckpoints {
		if days == c {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from the start of from's day to the
// start of to's day.
func daysBetween(from, to time.Time) int {
	from = startOfDay(from)
	to = startOfDay(to)
	return int(to.Sub(from).Hours() / 24)
}
