// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go-cafe-web/internal/client"
	"go-cafe-web/internal/config"
	"go-cafe-web/internal/model"
)

// APIPrefix is the versioned path every forwarded call lands under.
const APIPrefix = "/api/v1"

// Content types applied when the corresponding header is absent: the
// inbound request falls back to JSON, the upstream response to plain text.
const (
	DefaultRequestContentType  = "application/json"
	DefaultResponseContentType = "text/plain; charset=utf-8"
)

var (
	// ErrUpstreamUnavailable is returned when no upstream response could be obtained.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRequestBody is returned when the inbound body cannot be read.
	ErrRequestBody = errors.New("read request body")
)

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client         *client.UpstreamClient
	logger         *slog.Logger
	baseURL        string
	forwardHeaders []string
}

// NewProxyService creates a ProxyService bound to the configured upstream.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q is not absolute", cfg.Upstream.BaseURL)
	}

	return &ProxyService{
		client:         c,
		logger:         logger.With("component", "proxy_service"),
		baseURL:        strings.TrimRight(cfg.Upstream.BaseURL, "/"),
		forwardHeaders: cfg.Upstream.ForwardHeaders,
	}, nil
}

// ForwardedHeaders lists the request headers that may reach the upstream.
func (s *ProxyService) ForwardedHeaders() []string {
	return append([]string{"Authorization", "Content-Type"}, s.forwardHeaders...)
}

// Forward sends a ProxyRequest to the upstream API and returns its response.
// Upstream error statuses are not errors here; they are returned as-is.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	upstreamURL := s.buildUpstreamURL(pr.Segments, pr.RawQuery)
	header := s.buildRequestHeaders(pr.Header)

	var body io.Reader
	if HasBody(pr.Method) && pr.Body != nil {
		data, err := io.ReadAll(pr.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequestBody, err)
		}
		body = bytes.NewReader(data)
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Segments.Join(),
	)

	resp, err := s.client.Do(pr.Ctx, pr.Method, upstreamURL, header, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	if resp.ContentType == "" {
		resp.ContentType = DefaultResponseContentType
	}
	return resp, nil
}

// Probe issues a HEAD to the upstream API root. Any HTTP response,
// whatever its status, counts as reachable.
func (s *ProxyService) Probe(ctx context.Context) error {
	if _, err := s.client.Do(ctx, http.MethodHead, s.baseURL+APIPrefix+"/", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

// HasBody reports whether a request with the given method carries its body upstream.
func HasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return false
	}
	return true
}

func (s *ProxyService) buildUpstreamURL(segments model.PathSegments, rawQuery string) string {
	target := s.baseURL + APIPrefix + "/" + segments.Join()
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// buildRequestHeaders copies Authorization and any configured extras, and
// sets Content-Type to the inbound value or DefaultRequestContentType.
func (s *ProxyService) buildRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	if v := src.Get("Authorization"); v != "" {
		dst.Set("Authorization", v)
	}

	contentType := src.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultRequestContentType
	}
	dst.Set("Content-Type", contentType)

	for _, key := range s.forwardHeaders {
		if vals := src.Values(key); len(vals) > 0 {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	return dst
}
