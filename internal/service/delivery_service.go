package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/channel"
	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/events"
	"github.com/spec-kit/notice-engine/internal/observability"
	"github.com/spec-kit/notice-engine/internal/repository"
	"github.com/spec-kit/notice-engine/pkg/util"
)

// DeliveryService owns the communication-event state machine: channel
// dispatch, retry scheduling and batch fan-out. It is the only writer of
// communication events.
type DeliveryService struct {
	comms      repository.CommunicationRepository
	notices    repository.NoticeRepository
	contracts  repository.ContractRepository
	tenants    repository.TenantRepository
	templates  repository.TemplateRepository
	batches    repository.BatchRepository
	senders    channel.Registry
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	backoff    util.BackoffPolicy
	batchSize  int
	now        func() time.Time
}

// DeliveryDependencies bundles collaborators for the delivery service.
type DeliveryDependencies struct {
	CommRepo     repository.CommunicationRepository
	NoticeRepo   repository.NoticeRepository
	ContractRepo repository.ContractRepository
	TenantRepo   repository.TenantRepository
	TemplateRepo repository.TemplateRepository
	BatchRepo    repository.BatchRepository
	Senders      channel.Registry
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewDeliveryService constructs the service.
func NewDeliveryService(cfg config.DeliveryConfig, deps DeliveryDependencies) *DeliveryService {
	return &DeliveryService{
		comms:      deps.CommRepo,
		notices:    deps.NoticeRepo,
		contracts:  deps.ContractRepo,
		tenants:    deps.TenantRepo,
		templates:  deps.TemplateRepo,
		batches:    deps.BatchRepo,
		senders:    deps.Senders,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		backoff: util.BackoffPolicy{
			BaseDelay:  time.Duration(cfg.BaseDelayMinutes) * time.Minute,
			MaxDelay:   time.Duration(cfg.MaxDelayMinutes) * time.Minute,
			MaxRetries: cfg.MaxRetries,
		},
		batchSize: cfg.RetryBatchSize,
		now:       time.Now,
	}
}

// Deliver sends one notice to one recipient over one channel. Configuration
// problems (unknown recipient address, missing template) fail fast without
// creating a partial event; transport failures create the event and enter
// the retry schedule.
func (s *DeliveryService) Deliver(ctx context.Context, noticeID, recipientID string, ch domain.Channel, language string) (*domain.CommunicationEvent, error) {
	if !domain.ValidChannel(ch) {
		return nil, util.NewValidationError("unsupported channel", map[string]any{"channel": string(ch)})
	}

	notice, err := s.notices.GetByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("notice", map[string]any{"notice_id": noticeID})
		}
		return nil, err
	}

	contract, err := s.contracts.GetByID(ctx, notice.ContractID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("contract", map[string]any{"contract_id": notice.ContractID})
		}
		return nil, err
	}

	tenant, err := s.tenants.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("recipient", map[string]any{"recipient_id": recipientID})
		}
		return nil, err
	}

	address := tenant.AddressFor(ch)
	if address == "" {
		return nil, util.NewRecipientUnresolved(recipientID, string(ch))
	}

	template, err := s.templates.Find(ctx, notice.Type, ch, language)
	if err != nil {
		return nil, err
	}

	content := template.Render(map[string]any{
		"recipientName": tenant.FirstName,
		"contractId":    notice.ContractID,
		"effectiveDate": notice.EffectiveDate.Format("02/01/2006"),
		"monthlyRent":   contract.MonthlyRent,
		"noticeType":    string(notice.Type),
	})

	event := &domain.CommunicationEvent{
		NoticeID:         noticeID,
		Channel:          ch,
		RecipientID:      recipientID,
		RecipientAddress: address,
		TemplateID:       template.ID,
		Content:          content,
		Status:           domain.EventStatusQueued,
	}
	if err := s.comms.Create(ctx, event); err != nil {
		return nil, err
	}

	s.attemptSend(ctx, event)
	return s.comms.GetByID(ctx, event.ID)
}

// ProcessDueRetries re-dispatches queued events whose retry time has passed.
// Called periodically; safe to re-invoke.
func (s *DeliveryService) ProcessDueRetries(ctx context.Context) error {
	due, err := s.comms.ListDueRetries(ctx, s.now(), s.batchSize)
	if err != nil {
		return err
	}
	for i := range due {
		event := due[i]
		s.attemptSend(ctx, &event)
	}
	return nil
}

// MarkRead records a provider read receipt.
func (s *DeliveryService) MarkRead(ctx context.Context, eventID string, readAt time.Time) error {
	if readAt.IsZero() {
		readAt = s.now()
	}
	if err := s.comms.MarkRead(ctx, eventID, readAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("communication event", map[string]any{"event_id": eventID})
		}
		return err
	}
	event, err := s.comms.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:      events.EventDeliveryRead,
		NoticeID:  event.NoticeID,
		Timestamp: s.now(),
		Payload:   events.DeliveryReadPayload{EventID: eventID, ReadAt: readAt},
	})
	return nil
}

// ExecuteBatch fans out delivery over the batch's recipient list, continuing
// past individual failures. The batch completes only when zero failures
// occurred; otherwise it records a partial failure with the success rate.
func (s *DeliveryService) ExecuteBatch(ctx context.Context, batchID string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("message batch", map[string]any{"batch_id": batchID})
		}
		return err
	}
	if err := s.batches.MarkExecuting(ctx, batchID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// already picked up by another worker
			return nil
		}
		return err
	}

	var successCount, failureCount int
	for _, recipientID := range batch.RecipientIDs {
		if _, err := s.Deliver(ctx, batch.NoticeID, recipientID, batch.Channel, batch.Language); err != nil {
			failureCount++
			s.logger.Warn("batch recipient delivery failed",
				zap.String("batch_id", batchID),
				zap.String("recipient_id", recipientID),
				zap.Error(err))
			continue
		}
		successCount++
	}

	total := successCount + failureCount
	successRate := 0.0
	if total > 0 {
		successRate = float64(successCount) / float64(total)
	}
	status := domain.BatchStatusCompleted
	if failureCount > 0 {
		status = domain.BatchStatusPartialFailure
	}
	return s.batches.Finish(ctx, batchID, status, successRate)
}

// ProcessScheduledBatches executes batches whose scheduled time has come.
func (s *DeliveryService) ProcessScheduledBatches(ctx context.Context) error {
	batches, err := s.batches.ListDueScheduled(ctx, s.now(), 50)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		if err := s.ExecuteBatch(ctx, batch.ID); err != nil {
			s.logger.Error("batch execution failed",
				zap.String("batch_id", batch.ID),
				zap.Error(err))
		}
	}
	return nil
}

// attemptSend drives queued → sending → sent, or schedules a retry. Transport
// failures are recorded on the event, never propagated.
func (s *DeliveryService) attemptSend(ctx context.Context, event *domain.CommunicationEvent) {
	if err := s.comms.MarkSending(ctx, event.ID); err != nil {
		// already claimed by a concurrent worker
		s.logger.Debug("event not in queued state, skipping", zap.String("event_id", event.ID))
		return
	}

	sender, ok := s.senders[event.Channel]
	if !ok {
		s.scheduleRetry(ctx, event, fmt.Errorf("no sender registered for channel %s", event.Channel))
		return
	}

	adapted := channel.Adapt(event.Channel, event.Content)
	if err := sender.Send(ctx, event.RecipientAddress, adapted); err != nil {
		s.scheduleRetry(ctx, event, err)
		return
	}

	sentAt := s.now()
	if err := s.comms.MarkSent(ctx, event.ID, sentAt); err != nil {
		s.logger.Error("mark sent", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.DeliveriesTotal.WithLabelValues(string(event.Channel), "sent").Inc()
	}
	s.publish(ctx, events.Event{
		Type:      events.EventDeliverySent,
		NoticeID:  event.NoticeID,
		Timestamp: sentAt,
		Payload: events.DeliverySentPayload{
			EventID: event.ID,
			Channel: event.Channel,
			Address: event.RecipientAddress,
		},
	})
}

// scheduleRetry records the failure and either re-queues the event with an
// exponential delay or parks it as failed once the budget is spent.
func (s *DeliveryService) scheduleRetry(ctx context.Context, event *domain.CommunicationEvent, cause error) {
	failures := event.RetryCount + 1
	terminal := s.backoff.Exhausted(failures)

	status := domain.EventStatusQueued
	var nextRetryAt *time.Time
	if terminal {
		status = domain.EventStatusFailed
	} else {
		next := s.now().Add(s.backoff.Delay(failures))
		nextRetryAt = &next
	}

	if err := s.comms.ScheduleRetry(ctx, event.ID, failures, nextRetryAt, status, cause.Error()); err != nil {
		s.logger.Error("schedule retry", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	event.RetryCount = failures

	if s.metrics != nil {
		if terminal {
			s.metrics.DeliveriesTotal.WithLabelValues(string(event.Channel), "failed").Inc()
		} else {
			s.metrics.DeliveryRetries.Inc()
		}
	}
	if terminal {
		s.logger.Error("delivery failed permanently",
			zap.String("event_id", event.ID),
			zap.String("channel", string(event.Channel)),
			zap.Int("retry_count", failures),
			zap.Error(cause))
	} else {
		s.logger.Warn("delivery failed, retry scheduled",
			zap.String("event_id", event.ID),
			zap.String("channel", string(event.Channel)),
			zap.Int("retry_count", failures),
			zap.Timep("next_retry_at", nextRetryAt),
			zap.Error(cause))
	}
	s.publish(ctx, events.Event{
		Type:      events.EventDeliveryFailed,
		NoticeID:  event.NoticeID,
		Timestamp: s.now(),
		Payload: events.DeliveryFailedPayload{
			EventID:    event.ID,
			Channel:    event.Channel,
			RetryCount: failures,
			LastError:  cause.Error(),
			Terminal:   terminal,
		},
	})
}

func (s *DeliveryService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
