package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"go-cafe-web/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	service *service.ProxyService
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(svc *service.ProxyService, v Version) *HealthHandler {
	return &HealthHandler{service: svc, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz reports whether the upstream backend answers at all.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if err := h.service.Probe(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Status returns proxy status information. It never includes the upstream URL.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           string(h.version),
		"proxy_prefix":      ProxyPrefix,
		"upstream_prefix":   service.APIPrefix,
		"forwarded_headers": h.service.ForwardedHeaders(),
	})
}
