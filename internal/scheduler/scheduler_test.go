package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNextMonthlyBeforeFiringTime(t *testing.T) {
	now := time.Date(2026, time.September, 1, 1, 30, 0, 0, time.UTC)
	got := nextMonthly(now, 1, 2)
	want := time.Date(2026, time.September, 1, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestNextMonthlyAfterFiringTimeRollsToNextMonth(t *testing.T) {
	now := time.Date(2026, time.September, 1, 2, 0, 0, 0, time.UTC)
	got := nextMonthly(now, 1, 2)
	want := time.Date(2026, time.October, 1, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("exact firing instant must roll forward: got %s, want %s", got, want)
	}
}

func TestNextMonthlyMidMonth(t *testing.T) {
	now := time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC)
	got := nextMonthly(now, 1, 2)
	want := time.Date(2026, time.October, 1, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestNextMonthlyShortMonthRollsOver(t *testing.T) {
	// no February 31st; the next valid occurrence is March 31st
	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	got := nextMonthly(now, 31, 2)
	want := time.Date(2026, time.March, 31, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestIntervalEntryFires(t *testing.T) {
	s := New(zap.NewNop())
	var fired atomic.Int32
	s.AddInterval("tick", 10*time.Millisecond, func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if fired.Load() < 2 {
		t.Fatalf("fired %d times, want at least 2", fired.Load())
	}
}
