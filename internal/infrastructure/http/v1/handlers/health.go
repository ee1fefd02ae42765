package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"serialgen/internal/infrastructure/http/v1/dto"
)

// Backend is what the health probes need from the store.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
}

// BuildInfo describes the running process.
type BuildInfo struct {
	Version  string
	Strategy string
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	backend Backend
	info    BuildInfo
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(backend Backend, info BuildInfo) *HealthHandler {
	return &HealthHandler{backend: backend, info: info}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// Ready handles readiness probe: the shared store must answer.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.backend.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.StatusResponse{
			Status: "error",
			Checks: map[string]string{
				h.backend.Name(): "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		Status: "ok",
		Checks: map[string]string{
			h.backend.Name(): "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":      "serialgen",
		"version":  h.info.Version,
		"backend":  h.backend.Name(),
		"strategy": h.info.Strategy,
	})
}
