package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"go-cafe-web/internal/config"
	"go-cafe-web/internal/metrics"
	"go-cafe-web/internal/web"
)

// proxyMethods share the single forwarding handler.
var proxyMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// RegisterRoutes wires all route handlers onto the Echo instance.
// m and assets may be nil when metrics or web hosting are disabled.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics, assets *web.Assets) {
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/proxy/status", health.Status)

	e.Match(proxyMethods, ProxyPrefix, proxy.Handle)
	e.Match(proxyMethods, ProxyPrefix+"/*", proxy.Handle)

	if m != nil && cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}

	if assets != nil {
		e.GET("/*", assets.Handler())
	}
}
