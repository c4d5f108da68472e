package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/notice-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Notices    *handlers.NoticesHandler
	Alerts     *handlers.AlertsHandler
	Deliveries *handlers.DeliveriesHandler
	Batches    *handlers.BatchesHandler
	Jobs       *handlers.JobsHandler
	Registry   *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	api.Post("/notices/validate", cfg.Notices.Validate)

	api.Get("/alerts", cfg.Alerts.List)
	api.Get("/alerts/tasks/:assigneeId", cfg.Alerts.Tasks)
	api.Post("/alerts/:id/resolve", cfg.Alerts.Resolve)

	api.Post("/deliveries", cfg.Deliveries.Create)
	api.Post("/deliveries/:id/read", cfg.Deliveries.Read)

	api.Post("/batches/:id/execute", cfg.Batches.Execute)

	api.Post("/jobs/billing", cfg.Jobs.Billing)
	api.Post("/jobs/scan", cfg.Jobs.Scan)
	api.Post("/jobs/risk", cfg.Jobs.Risk)
}
