// Package handlers exposes the minimal HTTP surface described in
// SPEC_FULL.md §4.9: health and metrics, nothing else. The recommender's
// real API is the message-bus RPC surface in internal/messaging.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resonanse/recommender/internal/health"
)

type Handlers struct {
	checker *health.Checker
}

func New(checker *health.Checker) *Handlers {
	return &Handlers{checker: checker}
}

func (h *Handlers) Healthz(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func Register(router *gin.Engine, h *Handlers, metricsPath string) {
	router.GET("/healthz", h.Healthz)
	router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
}
