package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notice-engine/internal/api/dto"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/queue"
	"github.com/spec-kit/notice-engine/internal/service"
	"github.com/spec-kit/notice-engine/internal/worker"
	"github.com/spec-kit/notice-engine/pkg/util"
)

// DeliveriesHandler accepts delivery requests from the CRUD layer and read
// receipts from channel providers. Sends go through the queue so the caller
// never waits on a provider.
type DeliveriesHandler struct {
	delivery *service.DeliveryService
	queue    *queue.Queue
}

// NewDeliveriesHandler constructs handler.
func NewDeliveriesHandler(delivery *service.DeliveryService, q *queue.Queue) *DeliveriesHandler {
	return &DeliveriesHandler{delivery: delivery, queue: q}
}

// Create POST /api/deliveries.
func (h *DeliveriesHandler) Create(c *fiber.Ctx) error {
	var req dto.DeliverRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.NoticeID == "" || req.RecipientID == "" {
		return util.NewValidationError("notice_id and recipient_id required", nil)
	}
	if !domain.ValidChannel(domain.Channel(req.Channel)) {
		return util.NewValidationError("unsupported channel", map[string]any{"channel": req.Channel})
	}
	if req.Language == "" {
		req.Language = "fr"
	}

	jobID, err := h.queue.Enqueue(c.UserContext(), worker.JobDeliverNotice, map[string]string{
		"notice_id":    req.NoticeID,
		"recipient_id": req.RecipientID,
		"channel":      req.Channel,
		"language":     req.Language,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.JobAccepted{JobID: jobID}})
}

// Read POST /api/deliveries/:id/read.
func (h *DeliveriesHandler) Read(c *fiber.Ctx) error {
	var req dto.ReadReceiptRequest
	// an empty body means "read now"
	_ = c.BodyParser(&req)
	readAt := time.Time{}
	if req.ReadAt != nil {
		readAt = *req.ReadAt
	}
	if err := h.delivery.MarkRead(c.UserContext(), c.Params("id"), readAt); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "status": "read"}})
}
