// Package model defines shared types for the proxy and the cafe API client.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a browser request to be forwarded upstream.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Segments PathSegments
	RawQuery string // without the leading "?"
	Header   http.Header
	Body     io.Reader
}

// ProxyResponse is the upstream reply relayed back to the caller.
// Body holds the complete upstream payload.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}
