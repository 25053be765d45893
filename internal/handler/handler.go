package handler

import (
	"context"

	"tokenpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type RunController interface {
	Trigger(ctx context.Context) bool
	Ready() bool
	InFlight() bool
	LastRun(ctx context.Context) (*domain.RunResult, error)
}

type Handler struct {
	tracer       trace.Tracer
	controller   RunController
	artifactPath string
	triggerKey   string
}

func New(tracer trace.Tracer, controller RunController, artifactPath, triggerKey string) *Handler {
	return &Handler{
		tracer:       tracer,
		controller:   controller,
		artifactPath: artifactPath,
		triggerKey:   triggerKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/chart", h.Chart)
	r.GET("/run/status", h.RunStatus)

	// GET kept alongside POST: the original trigger was a plain
	// browser-visitable GET.
	trigger := r.Group("/", TriggerAuth(h.triggerKey))
	trigger.POST("/run", h.TriggerRun)
	trigger.GET("/run", h.TriggerRun)
}
