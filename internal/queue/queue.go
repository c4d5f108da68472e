// Package queue implements the durable job queue the engine's recurring and
// delivery work runs on. Jobs are persisted in Redis so they survive process
// restarts and may be consumed by a different process than the one that
// enqueued them. Concurrency is bounded by a fixed worker pool and failed
// jobs are redelivered with exponential backoff up to an attempt budget.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/observability"
	"github.com/spec-kit/notice-engine/pkg/util"
)

const (
	pendingKey = "jobs:pending"
	delayedKey = "jobs:delayed"
	doneKeyFmt = "jobs:done:%s"
)

// Job is one unit of queued work.
type Job struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Data       map[string]string `json:"data"`
	Attempts   int               `json:"attempts"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// Handler executes a job. A returned error triggers redelivery until the
// attempt budget is exhausted.
type Handler func(ctx context.Context, job Job) error

// Queue is a Redis-backed worker pool.
type Queue struct {
	client  *redis.Client
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     config.QueueConfig
	backoff util.BackoffPolicy

	mu       sync.RWMutex
	handlers map[string]Handler

	wg   sync.WaitGroup
	stop chan struct{}
}

// New creates a queue bound to the given Redis client.
func New(client *redis.Client, cfg config.QueueConfig, metrics *observability.Metrics, logger *zap.Logger) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Queue{
		client:  client,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		backoff: util.BackoffPolicy{
			BaseDelay:  time.Duration(cfg.BaseBackoffSeconds) * time.Second,
			MaxDelay:   5 * time.Minute,
			MaxRetries: cfg.MaxAttempts - 1,
		},
		handlers: make(map[string]Handler),
		stop:     make(chan struct{}),
	}
}

// Register binds a handler to a job name. Must be called before Start.
func (q *Queue) Register(name string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

// Enqueue appends a job for immediate execution.
func (q *Queue) Enqueue(ctx context.Context, name string, data map[string]string) (string, error) {
	return q.enqueueAt(ctx, name, data, time.Time{})
}

// EnqueueDelayed schedules a job to run no earlier than runAt.
func (q *Queue) EnqueueDelayed(ctx context.Context, name string, data map[string]string, runAt time.Time) (string, error) {
	return q.enqueueAt(ctx, name, data, runAt)
}

func (q *Queue) enqueueAt(ctx context.Context, name string, data map[string]string, runAt time.Time) (string, error) {
	job := Job{
		ID:         uuid.NewString(),
		Name:       name,
		Data:       data,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.push(ctx, job, runAt); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *Queue) push(ctx context.Context, job Job, runAt time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if runAt.IsZero() || !runAt.After(time.Now()) {
		return q.client.LPush(ctx, pendingKey, payload).Err()
	}
	member := redis.Z{Score: float64(runAt.UnixMilli()), Member: payload}
	return q.client.ZAdd(ctx, delayedKey, member).Err()
}

// retryJob prepares a failed job for redelivery. The job keeps its ID so
// every attempt of one logical job is traceable in logs and outcome records.
func retryJob(job Job, failures int) Job {
	job.Attempts = failures
	return job
}

// Start launches the promoter and the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.promoteLoop(ctx)

	for i := 0; i < q.cfg.Concurrency; i++ {
		q.wg.Add(1)
		go q.workerLoop(ctx, i)
	}
	q.logger.Info("queue started", zap.Int("concurrency", q.cfg.Concurrency))
}

// Stop signals shutdown and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	close(q.stop)
	q.wg.Wait()
}

// promoteLoop moves due delayed jobs onto the pending list.
func (q *Queue) promoteLoop(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.promoteDue(ctx); err != nil {
				q.logger.Warn("promote delayed jobs", zap.Error(err))
			}
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil {
		return err
	}
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return err
		}
		// another worker may have promoted it first
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, pendingKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) workerLoop(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		result, err := q.client.BLPop(ctx, time.Second, pendingKey).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				q.logger.Warn("queue pop", zap.Error(err), zap.Int("worker", id))
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			q.logger.Error("malformed job payload", zap.Error(err))
			continue
		}
		q.execute(ctx, job)
	}
}

func (q *Queue) execute(ctx context.Context, job Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Name]
	q.mu.RUnlock()
	if !ok {
		q.logger.Error("no handler for job", zap.String("job", job.Name), zap.String("id", job.ID))
		return
	}

	start := time.Now()
	err := handler(ctx, job)
	duration := time.Since(start)
	if q.metrics != nil {
		q.metrics.JobDuration.WithLabelValues(job.Name).Observe(duration.Seconds())
	}

	if err == nil {
		q.recordOutcome(ctx, job, "completed")
		q.logger.Info("job completed",
			zap.String("job", job.Name),
			zap.String("id", job.ID),
			zap.Duration("duration", duration))
		return
	}

	failures := job.Attempts + 1
	if q.backoff.Exhausted(failures) {
		q.recordOutcome(ctx, job, "failed")
		q.logger.Error("job failed permanently",
			zap.String("job", job.Name),
			zap.String("id", job.ID),
			zap.Int("attempts", failures),
			zap.Error(err))
		return
	}

	delay := q.backoff.Delay(failures - 1)
	q.logger.Warn("job failed, redelivering",
		zap.String("job", job.Name),
		zap.String("id", job.ID),
		zap.Int("attempt", failures),
		zap.Duration("delay", delay),
		zap.Error(err))
	if q.metrics != nil {
		q.metrics.JobsTotal.WithLabelValues(job.Name, "retried").Inc()
	}
	if rErr := q.push(ctx, retryJob(job, failures), time.Now().Add(delay)); rErr != nil {
		q.logger.Error("requeue job", zap.Error(rErr), zap.String("id", job.ID))
	}
}

// recordOutcome stores a terminal job record with a TTL so completed jobs
// clean themselves up.
func (q *Queue) recordOutcome(ctx context.Context, job Job, result string) {
	if q.metrics != nil {
		q.metrics.JobsTotal.WithLabelValues(job.Name, result).Inc()
	}
	ttl := time.Duration(q.cfg.CompletedTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}
	key := fmt.Sprintf(doneKeyFmt, job.ID)
	if err := q.client.Set(ctx, key, result, ttl).Err(); err != nil {
		q.logger.Warn("record job outcome", zap.Error(err))
	}
}
