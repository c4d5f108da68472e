package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notice-engine/internal/api/dto"
	"github.com/spec-kit/notice-engine/internal/queue"
	"github.com/spec-kit/notice-engine/internal/worker"
)

// BatchesHandler triggers message-batch execution ahead of schedule.
type BatchesHandler struct {
	queue *queue.Queue
}

// NewBatchesHandler constructs handler.
func NewBatchesHandler(q *queue.Queue) *BatchesHandler {
	return &BatchesHandler{queue: q}
}

// Execute POST /api/batches/:id/execute.
func (h *BatchesHandler) Execute(c *fiber.Ctx) error {
	jobID, err := h.queue.Enqueue(c.UserContext(), worker.JobExecuteBatch, map[string]string{
		"batch_id": c.Params("id"),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.JobAccepted{JobID: jobID}})
}
