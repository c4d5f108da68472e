package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/repository"
	"github.com/spec-kit/notice-engine/pkg/util"
)

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []domain.Alert
	seq    int
}

func (f *fakeAlertRepo) Create(_ context.Context, alert *domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	alert.ID = fmt.Sprintf("alert-%d", f.seq)
	alert.CreatedAt = time.Now()
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeAlertRepo) GetByID(_ context.Context, id string) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			a := f.alerts[i]
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAlertRepo) ExistsSince(_ context.Context, alertType domain.AlertType, entityID string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		a := f.alerts[i]
		if a.Type == alertType && a.EntityID == entityID && a.Status == domain.AlertStatusOpen && a.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlertRepo) List(_ context.Context, filter repository.AlertFilter) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Alert
	for i := range f.alerts {
		a := f.alerts[i]
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.Severity != nil && a.Severity != *filter.Severity {
			continue
		}
		if filter.Type != nil && a.Type != *filter.Type {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAlertRepo) ListOpenByAssignee(_ context.Context, assigneeID string, _ int) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Alert
	for i := range f.alerts {
		a := f.alerts[i]
		if a.Status == domain.AlertStatusOpen && a.AssignedTo != nil && *a.AssignedTo == assigneeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) Resolve(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].ID == id && f.alerts[i].Status == domain.AlertStatusOpen {
			f.alerts[i].Status = domain.AlertStatusResolved
			f.alerts[i].ResolvedAt = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeAlertRepo) open() []domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Alert
	for i := range f.alerts {
		if f.alerts[i].Status == domain.AlertStatusOpen {
			out = append(out, f.alerts[i])
		}
	}
	return out
}

type fakeNoticeRepo struct {
	byID           map[string]*domain.Notice
	activeBetween  []domain.Notice
	unacknowledged []domain.Notice
	contested      []domain.Notice
	disallowed     []domain.Notice
	withoutDocs    []domain.Notice
}

func (f *fakeNoticeRepo) GetByID(_ context.Context, id string) (*domain.Notice, error) {
	if n, ok := f.byID[id]; ok {
		return n, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNoticeRepo) ListActiveEffectiveBetween(_ context.Context, _, _ time.Time) ([]domain.Notice, error) {
	return f.activeBetween, nil
}

func (f *fakeNoticeRepo) ListUnacknowledgedPastEffective(_ context.Context, _ time.Time, _ time.Duration) ([]domain.Notice, error) {
	return f.unacknowledged, nil
}

func (f *fakeNoticeRepo) ListContested(_ context.Context) ([]domain.Notice, error) {
	return f.contested, nil
}

func (f *fakeNoticeRepo) ListWithDisallowedType(_ context.Context) ([]domain.Notice, error) {
	return f.disallowed, nil
}

func (f *fakeNoticeRepo) ListPostSendWithoutDocuments(_ context.Context) ([]domain.Notice, error) {
	return f.withoutDocs, nil
}

type fakeCommRepo struct {
	mu     sync.Mutex
	events map[string]*domain.CommunicationEvent
	seq    int
}

func newFakeCommRepo() *fakeCommRepo {
	return &fakeCommRepo{events: make(map[string]*domain.CommunicationEvent)}
}

func (f *fakeCommRepo) Create(_ context.Context, event *domain.CommunicationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	event.ID = fmt.Sprintf("evt-%d", f.seq)
	event.CreatedAt = time.Now()
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeCommRepo) GetByID(_ context.Context, id string) (*domain.CommunicationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCommRepo) MarkSending(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || e.Status != domain.EventStatusQueued {
		return pgx.ErrNoRows
	}
	e.Status = domain.EventStatusSending
	return nil
}

func (f *fakeCommRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || (e.Status != domain.EventStatusQueued && e.Status != domain.EventStatusSending) {
		return pgx.ErrNoRows
	}
	e.Status = domain.EventStatusSent
	e.SentAt = &at
	e.LastError = nil
	e.NextRetryAt = nil
	return nil
}

func (f *fakeCommRepo) MarkRead(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || e.Status != domain.EventStatusSent {
		return pgx.ErrNoRows
	}
	e.Status = domain.EventStatusRead
	e.ReadAt = &at
	return nil
}

func (f *fakeCommRepo) ScheduleRetry(_ context.Context, id string, retryCount int, nextRetryAt *time.Time, status domain.EventStatus, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || (e.Status != domain.EventStatusQueued && e.Status != domain.EventStatusSending) || e.RetryCount >= retryCount {
		return pgx.ErrNoRows
	}
	e.RetryCount = retryCount
	e.NextRetryAt = nextRetryAt
	e.Status = status
	e.LastError = &lastError
	return nil
}

func (f *fakeCommRepo) ListDueRetries(_ context.Context, now time.Time, _ int) ([]domain.CommunicationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CommunicationEvent
	for _, e := range f.events {
		if e.Status == domain.EventStatusQueued && e.NextRetryAt != nil && !e.NextRetryAt.After(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeTenantRepo struct {
	tenants map[string]*domain.Tenant
}

func (f *fakeTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeContractRepo struct {
	contracts map[string]*domain.Contract
	active    []domain.Contract
}

func (f *fakeContractRepo) GetByID(_ context.Context, id string) (*domain.Contract, error) {
	if c, ok := f.contracts[id]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeContractRepo) ListActive(_ context.Context) ([]domain.Contract, error) {
	return f.active, nil
}

type templateKey struct {
	noticeType domain.NoticeType
	channel    domain.Channel
	language   string
}

type fakeTemplateRepo struct {
	templates map[templateKey]*domain.MessageTemplate
}

func (f *fakeTemplateRepo) Find(_ context.Context, noticeType domain.NoticeType, channel domain.Channel, language string) (*domain.MessageTemplate, error) {
	if t, ok := f.templates[templateKey{noticeType, channel, language}]; ok {
		return t, nil
	}
	return nil, util.NewTemplateNotFound(string(noticeType), string(channel), language)
}

type fakeBatchRepo struct {
	batches      map[string]*domain.MessageBatch
	finishStatus domain.BatchStatus
	finishRate   float64
	finished     bool
}

func (f *fakeBatchRepo) GetByID(_ context.Context, id string) (*domain.MessageBatch, error) {
	if b, ok := f.batches[id]; ok {
		return b, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeBatchRepo) ListDueScheduled(_ context.Context, _ time.Time, _ int) ([]domain.MessageBatch, error) {
	var out []domain.MessageBatch
	for _, b := range f.batches {
		if b.Status == domain.BatchStatusScheduled {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBatchRepo) MarkExecuting(_ context.Context, id string) error {
	b, ok := f.batches[id]
	if !ok || b.Status != domain.BatchStatusScheduled {
		return pgx.ErrNoRows
	}
	b.Status = domain.BatchStatusExecuting
	return nil
}

func (f *fakeBatchRepo) Finish(_ context.Context, id string, status domain.BatchStatus, successRate float64) error {
	b, ok := f.batches[id]
	if !ok {
		return pgx.ErrNoRows
	}
	b.Status = status
	f.finishStatus = status
	f.finishRate = successRate
	f.finished = true
	return nil
}

type fakeRiskRepo struct {
	delays       repository.PaymentDelayStats
	interactions int
	rent         *repository.RentPosition
	incidents    int
	change       repository.ProfileChange
	assessments  []domain.DepartureRiskAssessment
	scores       map[string]int
	activeIDs    []string
}

func (f *fakeRiskRepo) PaymentDelays(_ context.Context, _ string, _ time.Time) (repository.PaymentDelayStats, error) {
	return f.delays, nil
}

func (f *fakeRiskRepo) InteractionCount(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.interactions, nil
}

func (f *fakeRiskRepo) RentPosition(_ context.Context, _ string) (*repository.RentPosition, error) {
	return f.rent, nil
}

func (f *fakeRiskRepo) OpenIncidentCount(_ context.Context, _ string) (int, error) {
	return f.incidents, nil
}

func (f *fakeRiskRepo) LatestProfileChange(_ context.Context, _ string) (repository.ProfileChange, error) {
	return f.change, nil
}

func (f *fakeRiskRepo) SaveAssessment(_ context.Context, assessment *domain.DepartureRiskAssessment) error {
	f.assessments = append(f.assessments, *assessment)
	return nil
}

func (f *fakeRiskRepo) UpdateTenantScore(_ context.Context, tenantID string, score int) error {
	if f.scores == nil {
		f.scores = make(map[string]int)
	}
	f.scores[tenantID] = score
	return nil
}

func (f *fakeRiskRepo) ListActiveTenantIDs(_ context.Context, _ int) ([]string, error) {
	return f.activeIDs, nil
}

type fakeInvoiceRepo struct {
	mu        sync.Mutex
	upserts   map[string]domain.Invoice
	overdue   []domain.Invoice
	penalties map[string]float64
	failFor   map[string]error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		upserts:   make(map[string]domain.Invoice),
		penalties: make(map[string]float64),
	}
}

func (f *fakeInvoiceRepo) Upsert(_ context.Context, invoice *domain.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[invoice.ContractID]; ok {
		return err
	}
	key := invoice.ContractID + "|" + invoice.Period
	if existing, ok := f.upserts[key]; ok && existing.Status != domain.InvoiceStatusPending {
		return nil
	}
	f.upserts[key] = *invoice
	return nil
}

func (f *fakeInvoiceRepo) ListOverdue(_ context.Context, _ time.Time) ([]domain.Invoice, error) {
	return f.overdue, nil
}

func (f *fakeInvoiceRepo) SetPenalty(_ context.Context, id string, penalty float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.penalties[id] = penalty
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	releases []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryAcquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.releases = append(l.releases, key)
	return nil
}

type fakeSender struct {
	channel domain.Channel
	fail    error
	sent    []sentMessage
}

type sentMessage struct {
	address string
	content string
}

func (s *fakeSender) Channel() domain.Channel { return s.channel }

func (s *fakeSender) Send(_ context.Context, address, content string) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, sentMessage{address: address, content: content})
	return nil
}
