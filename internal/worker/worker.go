package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/queue"
	"github.com/spec-kit/notice-engine/internal/service"
)

// Job names understood by the worker pool.
const (
	JobGenerateInvoices = "generate-invoices"
	JobDeliverNotice    = "deliver-notice"
	JobExecuteBatch     = "execute-batch"
	JobRunScan          = "run-scan"
	JobAssessRisk       = "assess-risk"
)

// Dependencies wires the services the job handlers call into.
type Dependencies struct {
	Billing   *service.BillingService
	Delivery  *service.DeliveryService
	Deadlines *service.DeadlineScanner
	Anomalies *service.AnomalyDetector
	Risk      *service.RiskService
	RiskBatch int
}

// RegisterHandlers binds all job handlers onto the queue. Must run before
// the queue starts consuming.
func RegisterHandlers(q *queue.Queue, deps Dependencies) {
	q.Register(JobGenerateInvoices, func(ctx context.Context, job queue.Job) error {
		month := job.Data["month"]
		if month == "" {
			return fmt.Errorf("generate-invoices job %s missing month", job.ID)
		}
		return deps.Billing.RunPeriod(ctx, month)
	})

	q.Register(JobDeliverNotice, func(ctx context.Context, job queue.Job) error {
		noticeID := job.Data["notice_id"]
		recipientID := job.Data["recipient_id"]
		channel := domain.Channel(job.Data["channel"])
		language := job.Data["language"]
		if noticeID == "" || recipientID == "" {
			return fmt.Errorf("deliver-notice job %s missing notice or recipient", job.ID)
		}
		_, err := deps.Delivery.Deliver(ctx, noticeID, recipientID, channel, language)
		return err
	})

	q.Register(JobExecuteBatch, func(ctx context.Context, job queue.Job) error {
		batchID := job.Data["batch_id"]
		if batchID == "" {
			return fmt.Errorf("execute-batch job %s missing batch_id", job.ID)
		}
		return deps.Delivery.ExecuteBatch(ctx, batchID)
	})

	q.Register(JobRunScan, func(ctx context.Context, job queue.Job) error {
		return errors.Join(
			deps.Deadlines.Run(ctx),
			deps.Anomalies.Run(ctx),
		)
	})

	q.Register(JobAssessRisk, func(ctx context.Context, job queue.Job) error {
		if tenantID := job.Data["tenant_id"]; tenantID != "" {
			_, err := deps.Risk.Assess(ctx, tenantID)
			return err
		}
		return deps.Risk.AssessActiveTenants(ctx, deps.RiskBatch)
	})
}

// NextBillingPeriod formats the period the monthly trigger should bill,
// which is the month containing the trigger time.
func NextBillingPeriod(now time.Time) string {
	return now.Format("2006-01")
}
