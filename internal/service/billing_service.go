package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/events"
	"github.com/spec-kit/notice-engine/internal/lock"
	"github.com/spec-kit/notice-engine/internal/observability"
	"github.com/spec-kit/notice-engine/internal/repository"
	"github.com/spec-kit/notice-engine/pkg/util"
)

// BillingService generates the monthly invoice set under a distributed lock
// so concurrent workers never double-bill a period, and applies late-payment
// penalties.
type BillingService struct {
	contracts  repository.ContractRepository
	invoices   repository.InvoiceRepository
	locker     lock.Locker
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.BillingConfig
	now        func() time.Time
}

// NewBillingService constructs the service.
func NewBillingService(cfg config.BillingConfig, contracts repository.ContractRepository, invoices repository.InvoiceRepository, locker lock.Locker, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *BillingService {
	return &BillingService{
		contracts:  contracts,
		invoices:   invoices,
		locker:     locker,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RunPeriod generates invoices for every active contract for the given
// period (YYYY-MM). Exactly one caller across all processes proceeds; the
// others observe the lock held and skip without error. Re-running a period is
// safe because invoice generation is an upsert on (contract, period).
func (s *BillingService) RunPeriod(ctx context.Context, period string) error {
	periodStart, err := time.Parse("2006-01", period)
	if err != nil {
		return util.NewValidationError("period must be formatted YYYY-MM", map[string]any{"period": period})
	}

	key := fmt.Sprintf("lock:billing:%s", period)
	ttl := time.Duration(s.cfg.LockTTLHours) * time.Hour
	acquired, err := s.locker.TryAcquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Info("billing run skipped, lock held by another worker", zap.String("period", period))
		if s.metrics != nil {
			s.metrics.BillingRunsTotal.WithLabelValues("skipped_lock_held").Inc()
		}
		return nil
	}
	defer func() {
		if err := s.locker.Release(ctx, key); err != nil {
			s.logger.Error("release billing lock", zap.String("key", key), zap.Error(err))
		}
	}()

	contracts, err := s.contracts.ListActive(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.BillingRunsTotal.WithLabelValues("failed").Inc()
		}
		return err
	}

	generated, failed := s.generateInvoices(ctx, contracts, period, periodStart)
	if err := s.ApplyLatePenalties(ctx); err != nil {
		s.logger.Error("late penalty pass failed", zap.String("period", period), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.BillingRunsTotal.WithLabelValues("completed").Inc()
	}
	s.logger.Info("billing run completed",
		zap.String("period", period),
		zap.Int("generated", generated),
		zap.Int("failed", failed))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventBillingCompleted,
			Timestamp: s.now(),
			Payload: events.BillingCompletedPayload{
				Period:    period,
				Generated: generated,
				Failed:    failed,
			},
		})
	}
	return nil
}

// generateInvoices processes contracts in fixed-size chunks, concurrent
// within a chunk and sequential across chunks to bound store load. A single
// contract failure is counted, never aborts the run.
func (s *BillingService) generateInvoices(ctx context.Context, contracts []domain.Contract, period string, periodStart time.Time) (generated, failed int) {
	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 50
	}
	dueDate := periodStart.AddDate(0, 1, 0).Add(-24 * time.Hour)

	var mu sync.Mutex
	for start := 0; start < len(contracts); start += chunkSize {
		end := start + chunkSize
		if end > len(contracts) {
			end = len(contracts)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			contract := contracts[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				invoice := &domain.Invoice{
					ContractID: contract.ID,
					Period:     period,
					Amount:     contract.MonthlyRent,
					Currency:   contract.Currency,
					DueDate:    dueDate,
					Status:     domain.InvoiceStatusPending,
					IssuedAt:   s.now(),
				}
				err := s.invoices.Upsert(ctx, invoice)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					s.logger.Error("invoice generation failed",
						zap.String("contract_id", contract.ID),
						zap.String("period", period),
						zap.Error(err))
					return
				}
				generated++
				if s.metrics != nil {
					s.metrics.InvoicesUpserted.Inc()
				}
			}()
		}
		wg.Wait()
	}
	return generated, failed
}

// ApplyLatePenalties recomputes the penalty for every invoice overdue beyond
// the grace window. The penalty is a proportional daily rate on the invoice
// amount, written as an absolute value so reruns do not compound.
func (s *BillingService) ApplyLatePenalties(ctx context.Context) error {
	now := s.now()
	cutoff := now.AddDate(0, 0, -s.cfg.GraceDays)
	overdue, err := s.invoices.ListOverdue(ctx, cutoff)
	if err != nil {
		return err
	}
	for i := range overdue {
		invoice := overdue[i]
		daysOverdue := int(now.Sub(invoice.DueDate).Hours() / 24)
		if daysOverdue <= s.cfg.GraceDays {
			continue
		}
		penalty := invoice.Amount * s.cfg.PenaltyDailyRate * float64(daysOverdue)
		if err := s.invoices.SetPenalty(ctx, invoice.ID, penalty); err != nil {
			s.logger.Error("set late penalty",
				zap.String("invoice_id", invoice.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("late penalty applied",
			zap.String("invoice_id", invoice.ID),
			zap.Int("days_overdue", daysOverdue),
			zap.Float64("penalty", penalty))
	}
	return nil
}
