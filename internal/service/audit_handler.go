package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/events"
	"github.com/spec-kit/notice-engine/internal/repository"
)

const auditActor = "system"

// AuditHandler appends an audit log entry for every delivery state change
// published on the dispatcher.
type AuditHandler struct {
	audit  repository.AuditRepository
	logger *zap.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audit repository.AuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// Register subscribes the handler to the delivery event stream.
func (h *AuditHandler) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventDeliverySent, h.onDeliverySent)
	dispatcher.Subscribe(events.EventDeliveryFailed, h.onDeliveryFailed)
	dispatcher.Subscribe(events.EventDeliveryRead, h.onDeliveryRead)
	dispatcher.Subscribe(events.EventAlertRaised, h.onAlertRaised)
}

func (h *AuditHandler) onDeliverySent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DeliverySentPayload)
	if !ok {
		return nil
	}
	return h.append(ctx, &domain.AuditEntry{
		NoticeID: event.NoticeID,
		Action:   "communication_sent",
		ActorID:  auditActor,
		Details: map[string]any{
			"event_id": payload.EventID,
			"channel":  string(payload.Channel),
		},
	})
}

func (h *AuditHandler) onDeliveryFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DeliveryFailedPayload)
	if !ok {
		return nil
	}
	action := "communication_retry_scheduled"
	if payload.Terminal {
		action = "communication_failed"
	}
	return h.append(ctx, &domain.AuditEntry{
		NoticeID: event.NoticeID,
		Action:   action,
		ActorID:  auditActor,
		Details: map[string]any{
			"event_id":    payload.EventID,
			"channel":     string(payload.Channel),
			"retry_count": payload.RetryCount,
			"last_error":  payload.LastError,
		},
	})
}

func (h *AuditHandler) onDeliveryRead(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DeliveryReadPayload)
	if !ok {
		return nil
	}
	return h.append(ctx, &domain.AuditEntry{
		NoticeID: event.NoticeID,
		Action:   "communication_read",
		ActorID:  auditActor,
		Details: map[string]any{
			"event_id": payload.EventID,
			"read_at":  payload.ReadAt,
		},
	})
}

func (h *AuditHandler) onAlertRaised(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AlertRaisedPayload)
	if !ok {
		return nil
	}
	// departure-risk alerts target a tenant, not a notice; the audit log is
	// notice-scoped
	switch payload.Type {
	case domain.AlertTypeDeadline, domain.AlertTypeLitigation, domain.AlertTypeAnomaly:
	default:
		return nil
	}
	return h.append(ctx, &domain.AuditEntry{
		NoticeID: payload.EntityID,
		Action:   "alert_raised",
		ActorID:  auditActor,
		Details: map[string]any{
			"alert_id": payload.AlertID,
			"type":     string(payload.Type),
			"severity": string(payload.Severity),
		},
	})
}

func (h *AuditHandler) append(ctx context.Context, entry *domain.AuditEntry) error {
	if err := h.audit.Append(ctx, entry); err != nil {
		h.logger.Error("append audit entry",
			zap.String("notice_id", entry.NoticeID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return err
	}
	return nil
}
