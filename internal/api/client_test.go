package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newTestClient points a Client at a httptest server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL), server
}

func TestRetryAfterRefresh(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "g1", "name": "Trip", "currency": "EUR"})
	}))

	var refreshes atomic.Int32
	client.Token = func() string { return "stale" }
	client.Refresh = func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "fresh", nil
	}

	group, err := client.GetGroup(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if group.Name != "Trip" {
		t.Errorf("group name = %q, want %q", group.Name, "Trip")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("network calls = %d, want exactly 2 (original + one retry)", got)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh attempts = %d, want exactly 1", got)
	}
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	var refreshes atomic.Int32
	var expired atomic.Bool
	client.Token = func() string { return "stale" }
	client.Refresh = func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "", errors.New("refresh token rejected")
	}
	client.OnSessionExpired = func() { expired.Store(true) }

	_, err := client.GetGroup(context.Background(), "g1")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("network calls = %d, want exactly 1 (no retry without a new token)", got)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh attempts = %d, want exactly 1", got)
	}
	if !expired.Load() {
		t.Error("session-expired hook was not invoked")
	}
}

func TestSecond401ExpiresSession(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	var expired atomic.Bool
	client.Token = func() string { return "stale" }
	client.Refresh = func(ctx context.Context) (string, error) { return "fresh", nil }
	client.OnSessionExpired = func() { expired.Store(true) }

	_, err := client.GetGroup(context.Background(), "g1")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("network calls = %d, want 2 (retry happened once, never twice)", got)
	}
	if !expired.Load() {
		t.Error("session-expired hook was not invoked")
	}
}

func TestLoginNeverRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
	}))

	var refreshes atomic.Int32
	client.Refresh = func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "fresh", nil
	}

	_, err := client.Login(context.Background(), "a@b.co", "wrong")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Detail != "Invalid credentials" {
		t.Errorf("error = %+v, want 401 with backend detail", apiErr)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
	if got := refreshes.Load(); got != 0 {
		t.Errorf("refresh attempts = %d, want 0 on the login endpoint", got)
	}
}

func TestNoContentResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	client.Token = func() string { return "tok" }

	if err := client.DeleteExpense(context.Background(), "e1"); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
}

func TestEmptyJSONBodyTreatedAsNoContent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Claims JSON but sends nothing; the client must not choke.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	}))
	client.Token = func() string { return "tok" }

	group, err := client.GetGroup(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	// Decoding is skipped for the empty body; the zero value comes back.
	if group.ID != "" || group.Name != "" {
		t.Errorf("expected zero-value group, got %+v", group)
	}
}

func TestNonJSONSuccessBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	}))
	client.Token = func() string { return "tok" }
	ctx := context.Background()

	// A *string output takes the body as raw text.
	var text string
	err := client.do(ctx, call{
		method: http.MethodGet,
		path:   "/health",
		route:  "/health",
		auth:   true,
		out:    &text,
	})
	if err != nil {
		t.Fatalf("raw text call failed: %v", err)
	}
	if text != "pong" {
		t.Errorf("body = %q, want %q", text, "pong")
	}

	// A typed output must reject a non-JSON body rather than silently
	// returning a zero value.
	if _, err := client.GetGroup(ctx, "g1"); err == nil {
		t.Error("typed decode of a non-JSON body should fail")
	}
}

func TestErrorDetailParsing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"backend detail", http.StatusBadRequest, `{"detail":"Amount must be greater than zero"}`, "Amount must be greater than zero"},
		{"non-json body", http.StatusBadGateway, "<html>bad gateway</html>", "Request failed"},
		{"empty body", http.StatusInternalServerError, "", "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			client.Token = func() string { return "tok" }

			_, err := client.GetGroup(context.Background(), "g1")
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", apiErr.Detail, tt.wantDetail)
			}
		})
	}
}

func TestGetBalancesParsesKeys(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"balances": map[string]float64{
				"u1":        25.00,
				"ghost_2":   -25.00,
				"ghost_bad": 5.00, // malformed, dropped
			},
		})
	}))
	client.Token = func() string { return "tok" }

	balances, err := client.GetBalances(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d entries, want 2 (malformed key dropped)", len(balances))
	}
}

func TestBatchDeleteBestEffort(t *testing.T) {
	var deletes atomic.Int32
	var lists atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			deletes.Add(1)
			if r.URL.Path == "/groups/expenses/e2" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet:
			lists.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("[]"))
		}
	}))
	client.Token = func() string { return "tok" }

	ctx := context.Background()
	deleted := client.DeleteExpenses(ctx, []string{"e1", "e2", "e3"})
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2 (one failure swallowed)", deleted)
	}
	if got := deletes.Load(); got != 3 {
		t.Errorf("delete calls = %d, want 3 (every delete attempted)", got)
	}

	// The refetch after the batch must still happen and succeed.
	if _, err := client.ListExpenses(ctx, "g1"); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if got := lists.Load(); got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}
}
