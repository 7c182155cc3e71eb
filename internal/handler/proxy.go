package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"go-cafe-web/internal/model"
	"go-cafe-web/internal/service"
)

// ProxyPrefix is the same-origin route under which browser calls are forwarded.
const ProxyPrefix = "/api/backend"

// queryPattern matches query strings of URLs embedded in error messages.
var queryPattern = regexp.MustCompile(`\?[^"\s]+`)

// ProxyHandler forwards browser API calls to the upstream cafe backend.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request upstream and relays status, content type and body.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	segments, err := model.ParsePathSegments(capturedPath(req))
	if err != nil {
		h.logger.Warn("rejected path", "err", err, "path", req.URL.Path)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid path",
		})
	}

	pr := &model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Segments: segments,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     req.Body,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Blob(resp.StatusCode, resp.ContentType, resp.Body)
}

// capturedPath returns the escaped path below ProxyPrefix without its leading slash.
func capturedPath(req *http.Request) string {
	p := strings.TrimPrefix(req.URL.EscapedPath(), ProxyPrefix)
	return strings.TrimPrefix(p, "/")
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	// Body limit violations already carry their status.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	h.logger.Error("proxy error",
		"err", sanitizeError(err),
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, service.ErrRequestBody) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "could not read request body",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream unavailable",
	})
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sanitizeError redacts query strings from URLs embedded in error messages.
func sanitizeError(err error) string {
	return queryPattern.ReplaceAllString(err.Error(), "?[REDACTED]")
}
