package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/channel"
	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/pkg/util"
)

type deliveryEnv struct {
	svc      *DeliveryService
	comms    *fakeCommRepo
	batches  *fakeBatchRepo
	sender   *fakeSender
	tenant   *domain.Tenant
	noticeID string
}

func newDeliveryEnv(t *testing.T, ch domain.Channel, templateBody string, senderFail error) *deliveryEnv {
	t.Helper()

	effective := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	notice := &domain.Notice{
		ID:            "n1",
		ContractID:    "c1",
		Type:          domain.NoticeTypeTermination,
		EmissionDate:  effective.AddDate(0, -3, 0),
		EffectiveDate: effective,
		Status:        domain.NoticeStatusValidated,
	}
	contract := &domain.Contract{ID: "c1", TenantID: "t1", MonthlyRent: 950}
	tenant := &domain.Tenant{
		ID:        "t1",
		FirstName: "Claire",
		Email:     "claire@example.com",
		Phone:     "+33612345678",
	}
	template := &domain.MessageTemplate{
		ID:         "tpl-1",
		NoticeType: domain.NoticeTypeTermination,
		Channel:    ch,
		Language:   "fr",
		Body:       templateBody,
	}

	comms := newFakeCommRepo()
	sender := &fakeSender{channel: ch, fail: senderFail}
	batches := &fakeBatchRepo{batches: make(map[string]*domain.MessageBatch)}

	svc := NewDeliveryService(config.DeliveryConfig{
		MaxRetries:       5,
		BaseDelayMinutes: 1,
		MaxDelayMinutes:  1440,
		RetryBatchSize:   50,
	}, DeliveryDependencies{
		CommRepo:     comms,
		NoticeRepo:   &fakeNoticeRepo{byID: map[string]*domain.Notice{"n1": notice}},
		ContractRepo: &fakeContractRepo{contracts: map[string]*domain.Contract{"c1": contract}},
		TenantRepo:   &fakeTenantRepo{tenants: map[string]*domain.Tenant{"t1": tenant}},
		TemplateRepo: &fakeTemplateRepo{templates: map[templateKey]*domain.MessageTemplate{
			{domain.NoticeTypeTermination, ch, "fr"}: template,
		}},
		BatchRepo:  batches,
		Senders:    channel.NewRegistry(sender),
		Dispatcher: nil,
		Metrics:    nil,
		Logger:     zap.NewNop(),
	})

	return &deliveryEnv{svc: svc, comms: comms, batches: batches, sender: sender, tenant: tenant, noticeID: "n1"}
}

func TestDeliverStoresCanonicalContentAndSendsShortForm(t *testing.T) {
	long := strings.Repeat("Votre préavis arrive à échéance très bientôt. ", 8)
	env := newDeliveryEnv(t, domain.ChannelSMS, long, nil)

	event, err := env.svc.Deliver(context.Background(), "n1", "t1", domain.ChannelSMS, "fr")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if event.Status != domain.EventStatusSent {
		t.Fatalf("status = %s, want sent", event.Status)
	}
	if len(event.Content) <= 160 {
		t.Fatalf("stored content was truncated, len=%d", len(event.Content))
	}
	if len(env.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(env.sender.sent))
	}
	got := env.sender.sent[0]
	if got.address != env.tenant.Phone {
		t.Fatalf("sent to %q, want %q", got.address, env.tenant.Phone)
	}
	if len(got.content) > 160 {
		t.Fatalf("wire content len=%d, want <=160", len(got.content))
	}
	if !strings.HasSuffix(got.content, "...") {
		t.Fatalf("wire content not truncated with ellipsis: %q", got.content[len(got.content)-10:])
	}
}

func TestDeliverRetryBackoffSequence(t *testing.T) {
	env := newDeliveryEnv(t, domain.ChannelEmail, "Bonjour {{recipientName}}", errors.New("gateway timeout"))
	current := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return current }

	event, err := env.svc.Deliver(context.Background(), "n1", "t1", domain.ChannelEmail, "fr")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if event.Status != domain.EventStatusQueued {
		t.Fatalf("status = %s, want queued", event.Status)
	}
	if event.RetryCount != 1 {
		t.Fatalf("retryCount = %d, want 1", event.RetryCount)
	}

	wantDelays := []time.Duration{
		2 * time.Minute, 4 * time.Minute, 8 * time.Minute, 16 * time.Minute, 32 * time.Minute,
	}
	for i, want := range wantDelays {
		got, err := env.comms.GetByID(context.Background(), event.ID)
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		if got.NextRetryAt == nil {
			t.Fatalf("attempt %d: nextRetryAt is nil", i+1)
		}
		if delay := got.NextRetryAt.Sub(current); delay != want {
			t.Fatalf("attempt %d: delay = %s, want %s", i+1, delay, want)
		}
		current = *got.NextRetryAt
		if err := env.svc.ProcessDueRetries(context.Background()); err != nil {
			t.Fatalf("process retries: %v", err)
		}
	}

	final, err := env.comms.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if final.Status != domain.EventStatusFailed {
		t.Fatalf("final status = %s, want failed", final.Status)
	}
	if final.RetryCount != 6 {
		t.Fatalf("final retryCount = %d, want 6", final.RetryCount)
	}
	if final.NextRetryAt != nil {
		t.Fatalf("failed event still has nextRetryAt %v", final.NextRetryAt)
	}

	// a failed event never re-enters the schedule
	if err := env.svc.ProcessDueRetries(context.Background()); err != nil {
		t.Fatalf("process retries: %v", err)
	}
	after, _ := env.comms.GetByID(context.Background(), event.ID)
	if after.RetryCount != 6 {
		t.Fatalf("retryCount moved to %d after terminal failure", after.RetryCount)
	}
}

func TestDeliverMissingTemplateCreatesNoEvent(t *testing.T) {
	env := newDeliveryEnv(t, domain.ChannelEmail, "Bonjour", nil)

	_, err := env.svc.Deliver(context.Background(), "n1", "t1", domain.ChannelWhatsApp, "fr")
	if err == nil {
		t.Fatal("expected template error")
	}
	if !util.IsConfigurationError(err) {
		t.Fatalf("error not a configuration error: %v", err)
	}
	if env.comms.seq != 0 {
		t.Fatalf("partial event created, seq=%d", env.comms.seq)
	}
}

func TestDeliverUnresolvedRecipient(t *testing.T) {
	env := newDeliveryEnv(t, domain.ChannelLetter, "Courrier", nil)
	env.tenant.MailingAddress = ""

	_, err := env.svc.Deliver(context.Background(), "n1", "t1", domain.ChannelLetter, "fr")
	if err == nil {
		t.Fatal("expected recipient error")
	}
	if !util.IsConfigurationError(err) {
		t.Fatalf("error not a configuration error: %v", err)
	}
	if env.comms.seq != 0 {
		t.Fatalf("event created for unresolved recipient, seq=%d", env.comms.seq)
	}
}

func TestExecuteBatchRecordsPartialFailure(t *testing.T) {
	env := newDeliveryEnv(t, domain.ChannelEmail, "Bonjour {{recipientName}}", nil)
	env.batches.batches["b1"] = &domain.MessageBatch{
		ID:           "b1",
		NoticeID:     "n1",
		RecipientIDs: []string{"t1", "missing"},
		Channel:      domain.ChannelEmail,
		Language:     "fr",
		Status:       domain.BatchStatusScheduled,
	}

	if err := env.svc.ExecuteBatch(context.Background(), "b1"); err != nil {
		t.Fatalf("execute batch: %v", err)
	}
	if !env.batches.finished {
		t.Fatal("batch was not finished")
	}
	if env.batches.finishStatus != domain.BatchStatusPartialFailure {
		t.Fatalf("status = %s, want partial_failure", env.batches.finishStatus)
	}
	if env.batches.finishRate != 0.5 {
		t.Fatalf("success rate = %v, want 0.5", env.batches.finishRate)
	}
}

func TestExecuteBatchAllSucceedCompletes(t *testing.T) {
	env := newDeliveryEnv(t, domain.ChannelEmail, "Bonjour", nil)
	env.batches.batches["b1"] = &domain.MessageBatch{
		ID:           "b1",
		NoticeID:     "n1",
		RecipientIDs: []string{"t1"},
		Channel:      domain.ChannelEmail,
		Language:     "fr",
		Status:       domain.BatchStatusScheduled,
	}

	if err := env.svc.ExecuteBatch(context.Background(), "b1"); err != nil {
		t.Fatalf("execute batch: %v", err)
	}
	if env.batches.finishStatus != domain.BatchStatusCompleted {
		t.Fatalf("status = %s, want completed", env.batches.finishStatus)
	}
	if env.batches.finishRate != 1.0 {
		t.Fatalf("success rate = %v, want 1.0", env.batches.finishRate)
	}
}

func TestMarkRead(t *testing.T) {
	env := newDeliveryEnv(t, domain.ChannelEmail, "Bonjour", nil)

	event, err := env.svc.Deliver(context.Background(), "n1", "t1", domain.ChannelEmail, "fr")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	readAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if err := env.svc.MarkRead(context.Background(), event.ID, readAt); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, _ := env.comms.GetByID(context.Background(), event.ID)
	if got.Status != domain.EventStatusRead {
		t.Fatalf("status = %s, want read", got.Status)
	}
	if got.ReadAt == nil || !got.ReadAt.Equal(readAt) {
		t.Fatalf("readAt = %v, want %v", got.ReadAt, readAt)
	}
}
