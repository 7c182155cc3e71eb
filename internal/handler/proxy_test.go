package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"go-cafe-web/internal/client"
	"go-cafe-web/internal/config"
	"go-cafe-web/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProxyService(t *testing.T, baseURL string, timeoutSeconds int) *service.ProxyService {
	t.Helper()
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  timeoutSeconds,
			IdleConnections: 10,
		},
	}
	logger := discardLogger()
	svc, err := service.NewProxyService(client.NewUpstreamClient(cfg, logger, nil), cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}
	return svc
}

// serveProxy routes a single request through the proxy routes of a fresh Echo.
func serveProxy(h *ProxyHandler, req *http.Request, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(mw...)
	e.Match(proxyMethods, ProxyPrefix, h.Handle)
	e.Match(proxyMethods, ProxyPrefix+"/*", h.Handle)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProxyHandler_Handle_GET(t *testing.T) {
	var gotURI, gotBody string
	var gotHeader http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		gotHeader = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Set-Cookie", "upstream=1")
		_, _ = w.Write([]byte(`[{"id":42,"rating":5}]`))
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes/42/ratings?x=1", http.NoBody)
	req.Header.Set("Cookie", "a=b")
	req.Header.Set("Authorization", "Bearer X")
	req.Header.Set("Content-Type", "application/json")
	rec := serveProxy(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotURI != "/api/v1/cafes/42/ratings?x=1" {
		t.Errorf("upstream URI = %q, want %q", gotURI, "/api/v1/cafes/42/ratings?x=1")
	}
	if gotBody != "" {
		t.Errorf("upstream body = %q, want empty", gotBody)
	}
	if gotHeader.Get("Cookie") != "" {
		t.Error("Cookie must not be forwarded upstream")
	}
	if gotHeader.Get("Authorization") != "Bearer X" {
		t.Errorf("Authorization = %q, want %q", gotHeader.Get("Authorization"), "Bearer X")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	if rec.Header().Get("Set-Cookie") != "" {
		t.Error("upstream Set-Cookie must not be relayed")
	}
	if rec.Body.String() != `[{"id":42,"rating":5}]` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProxyHandler_Handle_MutatingMethods(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var gotMethod, gotBody string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":1}`))
			}))
			defer upstream.Close()

			h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

			payload := `{"name":"Café X"}`
			req := httptest.NewRequest(method, "/api/backend/me/cafes", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			rec := serveProxy(h, req)

			if rec.Code != http.StatusCreated {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
			}
			if gotMethod != method {
				t.Errorf("upstream method = %q, want %q", gotMethod, method)
			}
			if gotBody != payload {
				t.Errorf("upstream body = %q, want %q", gotBody, payload)
			}
		})
	}
}

func TestProxyHandler_Handle_StatusPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes/999", http.NoBody)
	rec := serveProxy(h, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	if rec.Body.String() != `{"error":"not found"}` {
		t.Errorf("body = %q, want %q", rec.Body.String(), `{"error":"not found"}`)
	}
}

func TestProxyHandler_Handle_DefaultContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil // suppress sniffing
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("email and password required\n"))
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/backend/auth/login", strings.NewReader(`{}`))
	rec := serveProxy(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != service.DefaultResponseContentType {
		t.Errorf("Content-Type = %q, want %q", ct, service.DefaultResponseContentType)
	}
	if rec.Body.String() != "email and password required\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProxyHandler_Handle_EmptyCapture(t *testing.T) {
	var gotURI string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

	for _, path := range []string{"/api/backend", "/api/backend/"} {
		gotURI = ""
		rec := serveProxy(h, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusOK)
		}
		if gotURI != "/api/v1/" {
			t.Errorf("%s: upstream URI = %q, want %q", path, gotURI, "/api/v1/")
		}
	}
}

func TestProxyHandler_Handle_RejectsDotSegments(t *testing.T) {
	called := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes/%2e%2e/users", http.NoBody)
	rec := serveProxy(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("upstream must not be called for a rejected path")
	}
}

func TestProxyHandler_Handle_Unreachable(t *testing.T) {
	h := NewProxyHandler(newTestProxyService(t, "http://127.0.0.1:1", 2), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes", http.NoBody)
	rec := serveProxy(h, req)

	if rec.Code < 500 || rec.Code > 599 {
		t.Fatalf("status = %d, want 5xx", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected non-empty error message in response")
	}
	if strings.Contains(rec.Body.String(), "127.0.0.1") {
		t.Error("error body must not expose the upstream address")
	}
}

func TestProxyHandler_Handle_Timeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 1), discardLogger())

	rec := serveProxy(h, httptest.NewRequest(http.MethodGet, "/api/backend/cafes", http.NoBody))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusGatewayTimeout)
	}
}

func TestProxyHandler_Handle_CanceledContext(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 30), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes", http.NoBody)
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	rec := serveProxy(h, req.WithContext(ctx))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestProxyHandler_Handle_BodyLimit(t *testing.T) {
	called := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer upstream.Close()

	h := NewProxyHandler(newTestProxyService(t, upstream.URL, 10), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/backend/me/cafes", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1 // force the streaming limit check
	rec := serveProxy(h, req, echomw.BodyLimit("16B"))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if called {
		t.Error("upstream must not be called when the body exceeds the limit")
	}
}

func TestProxyHandler_mapError_DNSError(t *testing.T) {
	h := &ProxyHandler{logger: discardLogger()}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	dnsErr := &net.DNSError{Err: "no such host", Name: "backend"}
	wrapped := fmt.Errorf("%w: %w", service.ErrUpstreamUnavailable, dnsErr)

	if err := h.mapError(c, wrapped); err != nil {
		t.Fatalf("mapError() returned error: %v", err)
	}

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "upstream host unreachable" {
		t.Errorf("error = %q, want %q", body["error"], "upstream host unreachable")
	}
}

func TestProxyHandler_mapError_URLError(t *testing.T) {
	h := &ProxyHandler{logger: discardLogger()}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/backend/cafes", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	urlErr := &url.Error{Op: "Get", URL: "http://backend/api/v1/cafes", Err: fmt.Errorf("connection refused")}
	wrapped := fmt.Errorf("%w: %w", service.ErrUpstreamUnavailable, urlErr)

	if err := h.mapError(c, wrapped); err != nil {
		t.Fatalf("mapError() returned error: %v", err)
	}

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "upstream unavailable" {
		t.Errorf("error = %q, want %q", body["error"], "upstream unavailable")
	}
}

func TestProxyHandler_mapError_RequestBody(t *testing.T) {
	h := &ProxyHandler{logger: discardLogger()}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/backend/cafes", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.mapError(c, fmt.Errorf("%w: %w", service.ErrRequestBody, io.ErrUnexpectedEOF)); err != nil {
		t.Fatalf("mapError() returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want string
	}{
		{
			name: "redacts query in URL",
			err:  `Get "http://backend/api/v1/me/cafes?status=visited&sort=name_asc": connection refused`,
			want: `Get "http://backend/api/v1/me/cafes?[REDACTED]": connection refused`,
		},
		{
			name: "no query unchanged",
			err:  `Get "http://backend/api/v1/cafes": EOF`,
			want: `Get "http://backend/api/v1/cafes": EOF`,
		},
		{
			name: "plain message unchanged",
			err:  "connection refused",
			want: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeError(fmt.Errorf("%s", tt.err))
			if got != tt.want {
				t.Errorf("sanitizeError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCapturedPath(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/api/backend", ""},
		{"/api/backend/", ""},
		{"/api/backend/cafes/42", "cafes/42"},
		{"/api/backend/cafes/42/ratings/", "cafes/42/ratings/"},
		{"/api/backend/cafes/caf%C3%A9%20x?y=2", "cafes/caf%C3%A9%20x"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			if got := capturedPath(req); got != tt.want {
				t.Errorf("capturedPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
