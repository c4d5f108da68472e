package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notice-engine/internal/api/dto"
	"github.com/spec-kit/notice-engine/internal/queue"
	"github.com/spec-kit/notice-engine/internal/worker"
	"github.com/spec-kit/notice-engine/pkg/util"
)

// JobsHandler provides ad hoc triggers for the recurring jobs. Everything is
// enqueued; the lock and dedup gates downstream keep duplicate triggers safe.
type JobsHandler struct {
	queue *queue.Queue
}

// NewJobsHandler constructs handler.
func NewJobsHandler(q *queue.Queue) *JobsHandler {
	return &JobsHandler{queue: q}
}

// Billing POST /api/jobs/billing.
func (h *JobsHandler) Billing(c *fiber.Ctx) error {
	var req dto.BillingJobRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Month == "" {
		req.Month = time.Now().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		return util.NewValidationError("month must be formatted YYYY-MM", map[string]any{"month": req.Month})
	}

	jobID, err := h.queue.Enqueue(c.UserContext(), worker.JobGenerateInvoices, map[string]string{"month": req.Month})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.JobAccepted{JobID: jobID}})
}

// Scan POST /api/jobs/scan.
func (h *JobsHandler) Scan(c *fiber.Ctx) error {
	jobID, err := h.queue.Enqueue(c.UserContext(), worker.JobRunScan, nil)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.JobAccepted{JobID: jobID}})
}

// Risk POST /api/jobs/risk.
func (h *JobsHandler) Risk(c *fiber.Ctx) error {
	var req dto.RiskJobRequest
	// empty body triggers a full batch pass
	_ = c.BodyParser(&req)
	data := map[string]string{}
	if req.TenantID != "" {
		data["tenant_id"] = req.TenantID
	}
	jobID, err := h.queue.Enqueue(c.UserContext(), worker.JobAssessRisk, data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.JobAccepted{JobID: jobID}})
}
