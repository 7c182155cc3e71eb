// Package cafeapi is a typed client of the go-cafe REST surface as exposed
// through cafe-web's same-origin proxy.
package cafeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-cafe-web/internal/model"
)

// BasePath is the proxy route every call goes through.
const BasePath = "/api/backend"

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client calls the API on behalf of one user. Token may be empty for the
// public endpoints.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New returns a client for the cafe-web server at baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.TokenResponse, error) {
	var out model.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	var out model.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyCafes lists the caller's cafes, optionally filtered and sorted.
func (c *Client) ListMyCafes(ctx context.Context, q model.ListCafesQuery) ([]model.CafeListing, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	path := "/me/cafes"
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}

	var out []model.CafeListing
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMyCafe adds a cafe to the caller's list.
func (c *Client) CreateMyCafe(ctx context.Context, in model.CafeInput) (*model.CafeListing, error) {
	var out model.CafeListing
	if err := c.do(ctx, http.MethodPost, "/me/cafes", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyRatings lists every rating the caller has written.
func (c *Client) ListMyRatings(ctx context.Context) ([]model.Rating, error) {
	var out []model.Rating
	if err := c.do(ctx, http.MethodGet, "/me/ratings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCafe fetches one cafe. No token is required.
func (c *Client) GetCafe(ctx context.Context, id uint) (*model.CafeListing, error) {
	var out model.CafeListing
	if err := c.do(ctx, http.MethodGet, cafePath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCafe replaces a cafe's fields.
func (c *Client) UpdateCafe(ctx context.Context, id uint, in model.CafeInput) (*model.CafeListing, error) {
	var out model.CafeListing
	if err := c.do(ctx, http.MethodPut, cafePath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCafe removes a cafe.
func (c *Client) DeleteCafe(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, cafePath(id), nil, nil)
}

// ListCafeRatings lists the ratings of one cafe. No token is required.
func (c *Client) ListCafeRatings(ctx context.Context, cafeID uint) ([]model.Rating, error) {
	var out []model.Rating
	if err := c.do(ctx, http.MethodGet, cafeRatingsPath(cafeID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCafeRating rates a cafe.
func (c *Client) CreateCafeRating(ctx context.Context, cafeID uint, in model.RatingInput) (*model.Rating, error) {
	var out model.Rating
	if err := c.do(ctx, http.MethodPost, cafeRatingsPath(cafeID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRating replaces a rating's fields.
func (c *Client) UpdateRating(ctx context.Context, id uint, in model.RatingInput) (*model.Rating, error) {
	var out model.Rating
	if err := c.do(ctx, http.MethodPut, ratingPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRating removes a rating.
func (c *Client) DeleteRating(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, ratingPath(id), nil, nil)
}

func cafePath(id uint) string {
	return "/cafes/" + strconv.FormatUint(uint64(id), 10)
}

// The backend registers rating collections with a trailing slash.
func cafeRatingsPath(id uint) string {
	return cafePath(id) + "/ratings/"
}

func ratingPath(id uint) string {
	return "/ratings/" + strconv.FormatUint(uint64(id), 10)
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded
// from a non-empty success body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("cafeapi: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+BasePath+path, body)
	if err != nil {
		return fmt.Errorf("cafeapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("cafeapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cafeapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, text)}
	}

	if out == nil || len(bytes.TrimSpace(text)) == 0 {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return fmt.Errorf("cafeapi: decode response: %w", err)
	}
	return nil
}

// errorMessage picks the message of a failed response: a JSON "error" field,
// a JSON string, or plain text, falling back to the status code.
func errorMessage(status int, text []byte) string {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) > 0 {
		var payload any
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return string(trimmed)
		}
		switch v := payload.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["error"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("request failed (%d)", status)
}
