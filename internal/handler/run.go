package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TriggerRun godoc
// @Summary      Trigger a pipeline run
// @Description  Starts a background fetch/store/chart run and returns immediately. Poll /ready for the artifact.
// @Tags         pipeline
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /run [post]
func (h *Handler) TriggerRun(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-run")
	defer span.End()

	accepted := h.controller.Trigger(ctx)
	span.SetAttributes(attribute.Bool("accepted", accepted))

	if !accepted {
		c.JSON(http.StatusConflict, gin.H{"error": "run already in flight"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "poll": "/ready"})
}

// Ready godoc
// @Summary      Artifact readiness
// @Description  Reports whether the published chart exists. Intended for fixed-interval client polling.
// @Tags         pipeline
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /ready [get]
func (h *Handler) Ready(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.ready")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{
		"ready":     h.controller.Ready(),
		"in_flight": h.controller.InFlight(),
	})
}

// RunStatus godoc
// @Summary      Last run result
// @Description  Returns the most recent pipeline run summary
// @Tags         pipeline
// @Produce      json
// @Success      200  {object}  domain.RunResult
// @Failure      404  {object}  map[string]string
// @Router       /run/status [get]
func (h *Handler) RunStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-status")
	defer span.End()

	last, err := h.controller.LastRun(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run recorded yet"})
		return
	}
	c.JSON(http.StatusOK, last)
}

// Chart godoc
// @Summary      Serve the published chart
// @Description  Returns the latest published chart artifact
// @Tags         pipeline
// @Produce      html
// @Success      200  {string}  string
// @Failure      404  {object}  map[string]string
// @Router       /chart [get]
func (h *Handler) Chart(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.chart")
	defer span.End()

	if _, err := os.Stat(h.artifactPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no chart published yet"})
		return
	}
	c.File(h.artifactPath)
}
