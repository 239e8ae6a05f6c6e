// Package messagesapi is the admin HTTP surface of the messages service:
// template previews, on-demand warm-up, warm-up history and the compiled
// template cache.
package messagesapi

import (
	"context"
	"time"

	"github.com/Abraxas-365/courier/pkg/iam/auth"
	"github.com/Abraxas-365/courier/pkg/jobx"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/messages/warmup"
	"github.com/Abraxas-365/courier/pkg/render"
	"github.com/Abraxas-365/courier/pkg/token"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const previewCacheKey = "preview"

// Warmer runs warm-up sweeps and keeps their history.
type Warmer interface {
	Run(ctx context.Context) *warmup.Run
	History() *warmup.RunHistory
}

type Handler struct {
	renderer    *render.Renderer
	warmer      Warmer
	jobs        jobx.JobEnqueuer
	audit       auth.AuditService
	embedErrors bool
	validate    *validator.Validate
}

// NewHandler builds the admin handlers. jobs may be nil, in which case
// asynchronous warm-up requests are refused.
func NewHandler(renderer *render.Renderer, warmer Warmer, jobs jobx.JobEnqueuer, audit auth.AuditService, embedErrors bool) *Handler {
	return &Handler{
		renderer:    renderer,
		warmer:      warmer,
		jobs:        jobs,
		audit:       audit,
		embedErrors: embedErrors,
		validate:    validator.New(),
	}
}

func (h *Handler) RegisterRoutes(app fiber.Router, mw *auth.TokenMiddleware) {
	read := mw.RequireScope(auth.ScopeMessagesAdmin, auth.ScopeMessagesRead)
	admin := mw.RequireScope(auth.ScopeMessagesAdmin)

	g := app.Group("/api/v1/messages", mw.Authenticate())
	g.Post("/preview", admin, h.Preview)
	g.Post("/warmup", admin, h.Warmup)
	g.Get("/warmup/runs", read, h.ListRuns)
	g.Get("/warmup/runs/:id", read, h.GetRun)
	g.Get("/cache", read, h.CacheStats)
	g.Delete("/cache", admin, h.FlushCache)
}

// PreviewRequest is a subject and body rendered against the placeholder
// model. At least one of them must be set.
type PreviewRequest struct {
	Subject string        `json:"subject" validate:"required_without=Body"`
	Body    string        `json:"body" validate:"required_without=Subject"`
	Tokens  []token.Token `json:"tokens"`
}

type PreviewPart struct {
	Text      string           `json:"text"`
	Success   bool             `json:"success"`
	ErrorKind render.ErrorKind `json:"error_kind,omitempty"`
	Detail    string           `json:"detail,omitempty"`
}

type PreviewResponse struct {
	Subject PreviewPart `json:"subject"`
	Body    PreviewPart `json:"body"`
}

func (h *Handler) part(r render.Result) PreviewPart {
	return PreviewPart{
		Text:      r.Output(h.embedErrors),
		Success:   r.Success,
		ErrorKind: r.ErrorKind,
		Detail:    r.Detail,
	}
}

// Preview renders POST /api/v1/messages/preview.
func (h *Handler) Preview(c *fiber.Ctx) error {
	var req PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apiErrors.NewWithCause(ErrInvalidPayload, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return apiErrors.NewWithCause(ErrInvalidPayload, err)
	}
	for _, t := range req.Tokens {
		if t.Key == "" {
			return apiErrors.New(ErrInvalidPayload).WithDetail("reason", "token key must not be empty")
		}
	}

	subject, body := h.renderer.RenderMessage(render.MessageRequest{
		Subject:  req.Subject,
		Body:     req.Body,
		Tokens:   req.Tokens,
		Model:    messages.PlaceholderModel(),
		CacheKey: previewCacheKey,
	})
	return c.JSON(PreviewResponse{
		Subject: h.part(subject),
		Body:    h.part(body),
	})
}

// RunSummary is a warm-up run without its per-template lines.
type RunSummary struct {
	ID         uuid.UUID     `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Lines      int           `json:"lines"`
	Failures   int           `json:"failures"`
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
}

func summarize(r *warmup.Run) RunSummary {
	return RunSummary{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   r.FinishedAt.Sub(r.StartedAt),
		Lines:      len(r.Lines),
		Failures:   r.Failures(),
		OK:         r.OK(),
		Error:      r.Error,
	}
}

// Warmup runs a sweep in the request, or enqueues one with ?async=true.
func (h *Handler) Warmup(c *fiber.Ctx) error {
	ctx := c.UserContext()
	h.logAction(c, "warmup")

	if c.QueryBool("async", false) {
		if h.jobs == nil {
			return apiErrors.New(ErrJobsUnavailable)
		}
		job, err := jobx.NewJob(warmup.JobType, nil)
		if err != nil {
			return err
		}
		id, err := h.jobs.Enqueue(ctx, job)
		if err != nil {
			return apiErrors.NewWithCause(ErrEnqueueFailed, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": id})
	}

	run := h.warmer.Run(ctx)
	return c.JSON(run)
}

// ListRuns pages through the warm-up history, newest first.
func (h *Handler) ListRuns(c *fiber.Ctx) error {
	var opts kernel.PaginationOptions
	if err := c.QueryParser(&opts); err != nil {
		return apiErrors.NewWithCause(ErrInvalidPayload, err)
	}

	runs := h.warmer.History().List()
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarize(r)
	}
	return c.JSON(kernel.Paginate(summaries, opts))
}

func (h *Handler) GetRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apiErrors.NewWithCause(ErrInvalidPayload, err).WithDetail("id", c.Params("id"))
	}
	run, ok := h.warmer.History().Get(id)
	if !ok {
		return apiErrors.New(ErrRunNotFound).WithDetail("id", id.String())
	}
	return c.JSON(run)
}

func (h *Handler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.renderer.Cache().Stats())
}

// FlushCache drops every compiled template; the next render of each
// template compiles it again.
func (h *Handler) FlushCache(c *fiber.Ctx) error {
	h.renderer.Cache().Reset()
	h.logAction(c, "cache.flush")
	logx.Info("messagesapi: template cache flushed")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) logAction(c *fiber.Ctx, action string) {
	if h.audit == nil {
		return
	}
	var user kernel.UserID
	if ac, ok := auth.From(c); ok {
		user = ac.UserID
	}
	h.audit.LogAdminAction(c.UserContext(), user, action, c.IP())
}
