// Package api exposes the billing engine over HTTP: progress and readiness
// reads per project, and the workflow-event ingest endpoint.
package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/hatchpoint/clienthub/internal/billing"
	"github.com/hatchpoint/clienthub/internal/event"
	"github.com/hatchpoint/clienthub/internal/health"
	"github.com/hatchpoint/clienthub/internal/metrics"
	"github.com/hatchpoint/clienthub/internal/model"
	"github.com/hatchpoint/clienthub/internal/store"
)

// Options holds the tunables handlers need beyond their dependencies.
type Options struct {
	UpcomingHorizonDays int
	UpcomingLimit       int
	WebhookSecret       string
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store      *store.Store
	dispatcher *event.Dispatcher
	checker    *health.Checker
	metrics    *metrics.Metrics
	opts       Options
	logger     zerolog.Logger
	startTime  time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ds *store.Store, dispatcher *event.Dispatcher, checker *health.Checker, m *metrics.Metrics, opts Options, logger zerolog.Logger) *Handlers {
	if opts.UpcomingHorizonDays <= 0 {
		opts.UpcomingHorizonDays = 14
	}
	if opts.UpcomingLimit <= 0 {
		opts.UpcomingLimit = 5
	}
	return &Handlers{
		store:      ds,
		dispatcher: dispatcher,
		checker:    checker,
		metrics:    m,
		opts:       opts,
		logger:     logger.With().Str("component", "api").Logger(),
		startTime:  time.Now(),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(app *fiber.App) {
	app.Get("/healthz", h.Liveness)
	app.Get("/readyz", h.Readiness)
	app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/projects", h.ListProjects)
	v1.Get("/projects/:slug/progress", h.ProjectProgress)
	v1.Get("/projects/:slug/upcoming", h.ProjectUpcoming)
	v1.Get("/projects/:slug/readiness", h.ProjectReadiness)
	v1.Get("/projects/:slug/invoices", h.ProjectInvoices)
	v1.Post("/workflow/events", h.IngestEvent)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())
	ready := true
	for _, s := range results {
		if s == health.StatusDown {
			ready = false
			break
		}
	}
	status := "ready"
	code := fiber.StatusOK
	if !ready {
		status = "not_ready"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "checks": results})
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects, err := h.store.ListProjects(c.Query("status"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		return problemResponse(c, fiber.StatusInternalServerError,
			"store_error", "Internal Server Error", "Failed to list projects")
	}
	return c.JSON(fiber.Map{"projects": projects})
}

// ProjectProgress handles GET /api/v1/projects/:slug/progress.
func (h *Handlers) ProjectProgress(c *fiber.Ctx) error {
	data, err := h.loadProject(c)
	if err != nil || data == nil {
		return err
	}

	summary, err := billing.AggregateProgress(data.Deliverables)
	if err != nil {
		h.metrics.RecordError("billing", "aggregate")
		h.logger.Error().Err(err).Str("slug", c.Params("slug")).Msg("progress aggregation failed")
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"invalid_task_data", "Unprocessable Entity", err.Error())
	}
	return c.JSON(summary)
}

// ProjectUpcoming handles GET /api/v1/projects/:slug/upcoming.
func (h *Handlers) ProjectUpcoming(c *fiber.Ctx) error {
	data, err := h.loadProject(c)
	if err != nil || data == nil {
		return err
	}

	days := queryInt(c, "days", h.opts.UpcomingHorizonDays)
	limit := queryInt(c, "limit", h.opts.UpcomingLimit)

	upcoming := billing.SelectUpcoming(data.Deliverables, time.Now().UTC(), days, limit)
	if upcoming == nil {
		upcoming = []billing.UpcomingDeliverable{}
	}
	return c.JSON(fiber.Map{"upcoming": upcoming})
}

// ProjectReadiness handles GET /api/v1/projects/:slug/readiness.
func (h *Handlers) ProjectReadiness(c *fiber.Ctx) error {
	data, err := h.loadProject(c)
	if err != nil || data == nil {
		return err
	}

	start := time.Now()
	res, err := billing.EvaluateReadiness(data)
	if err != nil {
		h.metrics.RecordEvaluation("error", time.Since(start).Seconds())
		h.logger.Error().Err(err).Str("slug", c.Params("slug")).Msg("readiness evaluation failed")
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"invalid_project_data", "Unprocessable Entity", err.Error())
	}

	result := "not_ready"
	if res.Ready {
		result = "ready"
	}
	h.metrics.RecordEvaluation(result, time.Since(start).Seconds())
	return c.JSON(res)
}

// ProjectInvoices handles GET /api/v1/projects/:slug/invoices.
func (h *Handlers) ProjectInvoices(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("slug"))
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"store_error", "Internal Server Error", "Failed to load project")
	}
	if p == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"project_not_found", "Not Found", "No such project")
	}
	invoices, err := h.store.ListInvoices(p.ID)
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"store_error", "Internal Server Error", "Failed to list invoices")
	}
	if invoices == nil {
		invoices = []model.Invoice{}
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}

// IngestEvent handles POST /api/v1/workflow/events. The event schema is
// tolerated loosely: malformed payloads are acknowledged and dropped, since
// the push channel is noisy and an ingest error would only make it retry.
func (h *Handlers) IngestEvent(c *fiber.Ctx) error {
	if h.opts.WebhookSecret != "" && c.Get("X-Webhook-Secret") != h.opts.WebhookSecret {
		return problemResponse(c, fiber.StatusUnauthorized,
			"invalid_webhook_secret", "Unauthorized", "Invalid webhook secret")
	}

	env, ok := event.Decode(c.Body())
	if !ok || env.Type != event.TypeWorkflowEvent || env.Event == nil {
		h.metrics.RecordEvent("unknown", "malformed")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "ignored"})
	}

	if !h.dispatcher.Publish(env) {
		h.metrics.RecordEvent(env.Event.Entity, "dropped")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "dropped"})
	}
	h.metrics.RecordEvent(env.Event.Entity, "queued")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}

// loadProject resolves the :slug param and loads the billing input. When it
// returns nil data the error-or-problem response has already been written.
func (h *Handlers) loadProject(c *fiber.Ctx) (*model.ProjectData, error) {
	slug := c.Params("slug")
	data, err := h.store.LoadProjectData(slug)
	if err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("failed to load project data")
		return nil, problemResponse(c, fiber.StatusInternalServerError,
			"store_error", "Internal Server Error", "Failed to load project data")
	}
	if data == nil {
		return nil, problemResponse(c, fiber.StatusNotFound,
			"project_not_found", "Not Found", "No such project")
	}
	return data, nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
