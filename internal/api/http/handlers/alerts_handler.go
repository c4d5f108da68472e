package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notice-engine/internal/api/dto"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/repository"
	"github.com/spec-kit/notice-engine/internal/service"
)

// AlertsHandler exposes the alert read model.
type AlertsHandler struct {
	service *service.AlertService
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(alertService *service.AlertService) *AlertsHandler {
	return &AlertsHandler{service: alertService}
}

// List GET /api/alerts.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	filter := parseAlertQuery(c)
	alerts, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": alertSummaries(alerts)})
}

// Tasks GET /api/alerts/tasks/:assigneeId.
func (h *AlertsHandler) Tasks(c *fiber.Ctx) error {
	alerts, err := h.service.PrioritizedTasks(c.UserContext(), c.Params("assigneeId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": alertSummaries(alerts)})
}

// Resolve POST /api/alerts/:id/resolve.
func (h *AlertsHandler) Resolve(c *fiber.Ctx) error {
	if err := h.service.Resolve(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "status": "resolved"}})
}

func parseAlertQuery(c *fiber.Ctx) repository.AlertFilter {
	var filter repository.AlertFilter
	if v := c.Query("status"); v != "" {
		status := domain.AlertStatus(v)
		filter.Status = &status
	}
	if v := c.Query("severity"); v != "" {
		severity := domain.AlertSeverity(v)
		filter.Severity = &severity
	}
	if v := c.Query("type"); v != "" {
		alertType := domain.AlertType(v)
		filter.Type = &alertType
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	return filter
}

func alertSummaries(alerts []domain.Alert) []dto.AlertSummary {
	items := make([]dto.AlertSummary, 0, len(alerts))
	for i := range alerts {
		a := alerts[i]
		items = append(items, dto.AlertSummary{
			ID:             a.ID,
			Type:           string(a.Type),
			Severity:       string(a.Severity),
			EntityID:       a.EntityID,
			Title:          a.Title,
			Description:    a.Description,
			ActionRequired: a.ActionRequired,
			AssignedTo:     a.AssignedTo,
			DueDate:        a.DueDate,
			Status:         string(a.Status),
			CreatedAt:      a.CreatedAt,
		})
	}
	return items
}
