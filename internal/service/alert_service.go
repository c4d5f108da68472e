package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/events"
	"github.com/spec-kit/notice-engine/internal/observability"
	"github.com/spec-kit/notice-engine/internal/repository"
)

// AlertService is the dedup/idempotency gate in front of alert creation and
// the alert read model.
type AlertService struct {
	alerts     repository.AlertRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewAlertService constructs the service.
func NewAlertService(alerts repository.AlertRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *AlertService {
	return &AlertService{
		alerts:     alerts,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Raise creates the alert unless an open alert of the same (type, entityId)
// was created within the cool-down window. Returns whether a new alert was
// created. Safe to call repeatedly across scanner runs.
func (s *AlertService) Raise(ctx context.Context, alert *domain.Alert, coolDown time.Duration) (bool, error) {
	since := s.now().Add(-coolDown)
	exists, err := s.alerts.ExistsSince(ctx, alert.Type, alert.EntityID, since)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Debug("alert suppressed by cool-down",
			zap.String("type", string(alert.Type)),
			zap.String("entity_id", alert.EntityID))
		return false, nil
	}

	alert.Status = domain.AlertStatusOpen
	if err := s.alerts.Create(ctx, alert); err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.AlertsRaisedTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
	}
	s.logger.Info("alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)),
		zap.String("entity_id", alert.EntityID))

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventAlertRaised,
			NoticeID:  alert.EntityID,
			Timestamp: s.now(),
			Payload: events.AlertRaisedPayload{
				AlertID:  alert.ID,
				Type:     alert.Type,
				Severity: alert.Severity,
				EntityID: alert.EntityID,
			},
		})
	}
	return true, nil
}

// List queries the alert read model sorted by severity then due date.
func (s *AlertService) List(ctx context.Context, filter repository.AlertFilter) ([]domain.Alert, error) {
	return s.alerts.List(ctx, filter)
}

// PrioritizedTasks returns the per-assignee triage view ordered by severity,
// due date, then creation time.
func (s *AlertService) PrioritizedTasks(ctx context.Context, assigneeID string) ([]domain.Alert, error) {
	return s.alerts.ListOpenByAssignee(ctx, assigneeID, 20)
}

// Resolve closes an open alert.
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	return s.alerts.Resolve(ctx, id, s.now())
}
