// Package api implements the REST client for the expense-tracking backend.
//
// All endpoints live under a versioned prefix on the configured base URL
// and speak JSON with bearer-token auth. The client performs exactly one
// automatic recovery: a 401 on an authenticated call triggers the injected
// refresh function once and replays the original request with the new
// token. A second 401, or a failed refresh, surfaces ErrSessionExpired and
// notifies the injected session-expired hook. The refresh and login
// endpoints are never retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/costbuddy/costbuddy/internal/metrics"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
)

// RefreshFunc attempts to obtain a fresh access token. An empty token with
// a nil error means no refresh is possible (e.g. no refresh token held).
type RefreshFunc func(ctx context.Context) (string, error)

// TokenFunc supplies the current access token, or "" for unauthenticated calls.
type TokenFunc func() string

// Client is a REST client for the backend. Construct it with New and
// inject the token/refresh/session hooks from the application root; the
// zero value is not usable.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Token supplies the bearer token attached to authenticated calls.
	Token TokenFunc
	// Refresh is invoked at most once per original call on a 401.
	Refresh RefreshFunc
	// OnSessionExpired is invoked when a 401 could not be recovered.
	OnSessionExpired func()
}

// New creates a Client for the given base URL (including the versioned
// prefix, e.g. "http://localhost:8000/api/v1").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// call describes one request. route is the path template used for metric
// labels so per-ID paths do not explode cardinality.
type call struct {
	method string
	path   string
	route  string
	body   any
	// auth controls whether a bearer token is attached.
	auth bool
	// out, when non-nil, receives the decoded JSON response body. A 204 or
	// an empty body leaves it untouched. A non-JSON success body is only
	// accepted when out is a *string; for typed outputs it is an error,
	// since silently skipping the decode would hand back a zero value.
	out any
}

// do executes a call with the single 401 recovery described in the package
// doc.
func (c *Client) do(ctx context.Context, cl call) error {
	token := ""
	if cl.auth && c.Token != nil {
		token = c.Token()
	}
	reqID := uuid.New().String()

	status, err := c.once(ctx, cl, token, reqID)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return nil
	}

	if c.Refresh != nil {
		newToken, refreshErr := c.Refresh(ctx)
		if refreshErr != nil {
			slog.Warn("token refresh failed", "error", refreshErr, "request_id", reqID)
		} else if newToken != "" {
			status, err = c.once(ctx, cl, newToken, reqID)
			if err != nil {
				return err
			}
			if status != http.StatusUnauthorized {
				return nil
			}
		}
	}

	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
	return ErrSessionExpired
}

// once issues the request a single time. It returns (401, nil) for a
// retryable unauthorized response so do can attempt a refresh; a 401 on
// the login or refresh endpoint, like every other non-2xx, becomes an
// *Error with the backend-provided detail.
func (c *Client) once(ctx context.Context, cl call, token, reqID string) (int, error) {
	var reqBody io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(cl.method, cl.route, "error").Inc()
		return 0, fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer res.Body.Close()

	metrics.APIRequestDuration.WithLabelValues(cl.method, cl.route).Observe(time.Since(start).Seconds())
	metrics.APIRequests.WithLabelValues(cl.method, cl.route, statusClass(res.StatusCode)).Inc()

	slog.Debug("api call",
		"method", cl.method,
		"path", cl.path,
		"status", res.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", reqID,
	)

	if res.StatusCode == http.StatusUnauthorized && cl.path != loginPath && cl.path != refreshPath {
		io.Copy(io.Discard, res.Body)
		return http.StatusUnauthorized, nil
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res.StatusCode, &Error{Status: res.StatusCode, Detail: errorDetail(res.Body)}
	}

	if res.StatusCode == http.StatusNoContent || cl.out == nil {
		io.Copy(io.Discard, res.Body)
		return res.StatusCode, nil
	}

	return res.StatusCode, decodeBody(res, cl.out)
}

// decodeBody fills out from a successful response. An empty body that still
// claims application/json is treated as no content; a non-JSON success body
// is returned as raw text when out is a *string.
func decodeBody(res *http.Response, out any) error {
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	contentType := res.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
		return nil
	}

	if s, ok := out.(*string); ok {
		*s = string(data)
		return nil
	}
	return fmt.Errorf("unexpected content type %q", contentType)
}

// errorDetail pulls the human-readable message out of an error body,
// falling back to a generic message when the body is not parseable.
func errorDetail(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return "Request failed"
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	// Surface whatever JSON the backend sent, as the browser client did.
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err == nil && len(generic) > 0 {
		if compact, err := json.Marshal(generic); err == nil {
			return string(compact)
		}
	}
	return "Request failed"
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
