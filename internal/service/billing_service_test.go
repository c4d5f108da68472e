package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/pkg/util"
)

func billingConfig() config.BillingConfig {
	return config.BillingConfig{
		LockTTLHours:     24,
		ChunkSize:        50,
		GraceDays:        7,
		PenaltyDailyRate: 0.005,
	}
}

func newBillingEnv(contracts *fakeContractRepo, invoices *fakeInvoiceRepo, locker *fakeLocker) *BillingService {
	return NewBillingService(billingConfig(), contracts, invoices, locker, nil, nil, zap.NewNop())
}

func activeContracts(n int) []domain.Contract {
	out := make([]domain.Contract, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Contract{
			ID:          fmt.Sprintf("c%d", i+1),
			MonthlyRent: 900,
			Currency:    "EUR",
		})
	}
	return out
}

func TestRunPeriodGeneratesInvoicesForAllActiveContracts(t *testing.T) {
	contracts := &fakeContractRepo{active: activeContracts(3)}
	invoices := newFakeInvoiceRepo()
	locker := newFakeLocker()
	svc := newBillingEnv(contracts, invoices, locker)

	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))

	assert.Len(t, invoices.upserts, 3)
	inv, ok := invoices.upserts["c1|2026-09"]
	require.True(t, ok)
	assert.Equal(t, 900.0, inv.Amount)
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
	assert.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Equal(t, []string{"lock:billing:2026-09"}, locker.releases)
}

func TestRunPeriodSkipsWhenLockHeld(t *testing.T) {
	contracts := &fakeContractRepo{active: activeContracts(3)}
	invoices := newFakeInvoiceRepo()
	locker := newFakeLocker()
	locker.held["lock:billing:2026-09"] = true
	svc := newBillingEnv(contracts, invoices, locker)

	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))

	assert.Empty(t, invoices.upserts)
	assert.Empty(t, locker.releases)
}

func TestRunPeriodRejectsMalformedPeriod(t *testing.T) {
	svc := newBillingEnv(&fakeContractRepo{}, newFakeInvoiceRepo(), newFakeLocker())

	err := svc.RunPeriod(context.Background(), "september 2026")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", util.ToDomainError(err).Code)
}

func TestRunPeriodChunksLargeContractSets(t *testing.T) {
	contracts := &fakeContractRepo{active: activeContracts(120)}
	invoices := newFakeInvoiceRepo()
	svc := newBillingEnv(contracts, invoices, newFakeLocker())

	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))
	assert.Len(t, invoices.upserts, 120)
}

func TestRunPeriodCountsSingleContractFailure(t *testing.T) {
	contracts := &fakeContractRepo{active: activeContracts(3)}
	invoices := newFakeInvoiceRepo()
	invoices.failFor = map[string]error{"c2": errors.New("connection reset")}
	locker := newFakeLocker()
	svc := newBillingEnv(contracts, invoices, locker)

	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))

	assert.Len(t, invoices.upserts, 2)
	assert.Equal(t, []string{"lock:billing:2026-09"}, locker.releases)
}

func TestRunPeriodIsRerunSafe(t *testing.T) {
	contracts := &fakeContractRepo{active: activeContracts(2)}
	invoices := newFakeInvoiceRepo()
	svc := newBillingEnv(contracts, invoices, newFakeLocker())

	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))
	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))

	assert.Len(t, invoices.upserts, 2)
}

func TestRunPeriodLeavesPaidInvoicesUntouched(t *testing.T) {
	contracts := &fakeContractRepo{active: activeContracts(2)}
	invoices := newFakeInvoiceRepo()
	paidDue := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	invoices.upserts["c1|2026-09"] = domain.Invoice{
		ID:         "inv-paid",
		ContractID: "c1",
		Period:     "2026-09",
		Amount:     850,
		DueDate:    paidDue,
		Status:     domain.InvoiceStatusPaid,
	}
	svc := newBillingEnv(contracts, invoices, newFakeLocker())

	require.NoError(t, svc.RunPeriod(context.Background(), "2026-09"))

	settled := invoices.upserts["c1|2026-09"]
	assert.Equal(t, domain.InvoiceStatusPaid, settled.Status)
	assert.Equal(t, 850.0, settled.Amount)
	assert.Equal(t, paidDue, settled.DueDate)
	fresh, ok := invoices.upserts["c2|2026-09"]
	require.True(t, ok)
	assert.Equal(t, domain.InvoiceStatusPending, fresh.Status)
}

func TestApplyLatePenalties(t *testing.T) {
	now := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	invoices := newFakeInvoiceRepo()
	invoices.overdue = []domain.Invoice{
		{ID: "inv-1", Amount: 1000, DueDate: now.AddDate(0, 0, -10)},
		{ID: "inv-2", Amount: 1000, DueDate: now.AddDate(0, 0, -5)},
	}
	svc := newBillingEnv(&fakeContractRepo{}, invoices, newFakeLocker())
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.ApplyLatePenalties(context.Background()))

	// 1000 * 0.005 * 10 days
	assert.Equal(t, 50.0, invoices.penalties["inv-1"])
	// still inside the 7 day grace window
	_, ok := invoices.penalties["inv-2"]
	assert.False(t, ok)
}

func TestApplyLatePenaltiesIsAbsoluteNotAdditive(t *testing.T) {
	now := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	invoices := newFakeInvoiceRepo()
	invoices.overdue = []domain.Invoice{
		{ID: "inv-1", Amount: 1000, DueDate: now.AddDate(0, 0, -10)},
	}
	svc := newBillingEnv(&fakeContractRepo{}, invoices, newFakeLocker())
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.ApplyLatePenalties(context.Background()))
	require.NoError(t, svc.ApplyLatePenalties(context.Background()))

	assert.Equal(t, 50.0, invoices.penalties["inv-1"])
}
