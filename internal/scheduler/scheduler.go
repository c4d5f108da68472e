// Package scheduler provides the cron-like triggers for recurring work. Each
// entry runs in its own goroutine; the work itself is enqueued on the durable
// queue so triggering and execution stay decoupled across processes.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFunc is invoked at each firing. Errors are logged, never fatal; the
// next firing proceeds regardless.
type TaskFunc func(ctx context.Context) error

type entry struct {
	name string
	next func(now time.Time) time.Time
	fn   TaskFunc
}

// Scheduler fires registered tasks on their schedule.
type Scheduler struct {
	logger  *zap.Logger
	entries []entry
	wg      sync.WaitGroup
	stop    chan struct{}
}

// New creates an empty scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger, stop: make(chan struct{})}
}

// AddInterval schedules fn every interval, first firing one interval from start.
func (s *Scheduler) AddInterval(name string, interval time.Duration, fn TaskFunc) {
	s.entries = append(s.entries, entry{
		name: name,
		next: func(now time.Time) time.Time { return now.Add(interval) },
		fn:   fn,
	})
}

// AddMonthly schedules fn on the given day of month at hour:00, e.g. the
// billing run on the 1st at 02:00.
func (s *Scheduler) AddMonthly(name string, day, hour int, fn TaskFunc) {
	s.entries = append(s.entries, entry{
		name: name,
		next: func(now time.Time) time.Time { return nextMonthly(now, day, hour) },
		fn:   fn,
	})
}

// Start launches one goroutine per entry.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		e := e
		s.wg.Add(1)
		go s.run(ctx, e)
	}
	s.logger.Info("scheduler started", zap.Int("entries", len(s.entries)))
}

// Stop waits for all entry loops to exit.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	defer s.wg.Done()
	for {
		now := time.Now()
		wait := time.Until(e.next(now))
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := e.fn(ctx); err != nil {
			s.logger.Error("scheduled task failed", zap.String("task", e.name), zap.Error(err))
		} else {
			s.logger.Debug("scheduled task fired", zap.String("task", e.name))
		}
	}
}

// nextMonthly returns the next occurrence of day-of-month at hour:00 strictly
// after now. Months shorter than day roll over to the next valid month.
func nextMonthly(now time.Time, day, hour int) time.Time {
	year, month := now.Year(), now.Month()
	for {
		candidate := time.Date(year, month, day, hour, 0, 0, 0, now.Location())
		if candidate.After(now) && candidate.Day() == day {
			return candidate
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
}
