package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/costbuddy/costbuddy/internal/api"
	"github.com/costbuddy/costbuddy/internal/storage"
	"github.com/costbuddy/costbuddy/internal/storage/sqlite"
)

// fakeBackend serves login, refresh and one protected endpoint. The
// protected endpoint accepts only the token in accept.
type fakeBackend struct {
	accept        atomic.Value // string
	refreshCalls  atomic.Int32
	groupCalls    atomic.Int32
	refreshStatus atomic.Int32 // 0 means 200
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "hunter22" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
			return
		}
		b.accept.Store("access-1")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"user":   map[string]string{"id": "u1", "email": body.Email, "name": "Alice"},
			"tokens": map[string]string{"access_token": "access-1", "refresh_token": "refresh-1"},
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if status := b.refreshStatus.Load(); status != 0 {
			w.WriteHeader(int(status))
			return
		}
		b.accept.Store("access-2")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "access-2"})
	})
	mux.HandleFunc("GET /groups/", func(w http.ResponseWriter, r *http.Request) {
		b.groupCalls.Add(1)
		accept, _ := b.accept.Load().(string)
		if r.Header.Get("Authorization") != "Bearer "+accept {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})
	return mux
}

// newTestManager wires a Manager, API client and SQLite store against the
// fake backend, mirroring the wiring in the application root.
func newTestManager(t *testing.T, backend *fakeBackend, dbPath string) (*Manager, *api.Client, storage.Store) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := api.New(server.URL)
	m, err := New(context.Background(), client, store)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	client.Token = m.AccessToken
	client.Refresh = m.Refresh
	client.OnSessionExpired = m.MarkExpired
	t.Cleanup(m.Stop)
	return m, client, store
}

func TestLoginPersistsSession(t *testing.T) {
	backend := &fakeBackend{}
	dbPath := filepath.Join(t.TempDir(), "state.db")
	m, _, store := newTestManager(t, backend, dbPath)
	ctx := context.Background()

	if m.IsAuthenticated() {
		t.Fatal("fresh manager reports authenticated")
	}

	user, err := m.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user id = %q, want u1", user.ID)
	}
	if m.AccessToken() != "access-1" {
		t.Errorf("access token = %q, want access-1", m.AccessToken())
	}

	// The session survived to storage.
	sess, err := store.LoadSession(ctx)
	if err != nil || sess == nil {
		t.Fatalf("persisted session missing: %v", err)
	}
	if sess.Tokens.RefreshToken != "refresh-1" {
		t.Errorf("persisted refresh token = %q, want refresh-1", sess.Tokens.RefreshToken)
	}
}

func TestSessionRehydratesAcrossRestart(t *testing.T) {
	backend := &fakeBackend{}
	dbPath := filepath.Join(t.TempDir(), "state.db")
	m, _, store := newTestManager(t, backend, dbPath)

	if _, err := m.Login(context.Background(), "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A second manager over the same store picks the session back up.
	client2 := api.New("http://unused.invalid")
	m2, err := New(context.Background(), client2, store)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !m2.IsAuthenticated() {
		t.Error("restored manager is not authenticated")
	}
	if u := m2.User(); u == nil || u.Email != "alice@example.com" {
		t.Errorf("restored user = %+v, want alice", u)
	}
}

func TestWrongPasswordDoesNotExpireSession(t *testing.T) {
	backend := &fakeBackend{}
	m, _, _ := newTestManager(t, backend, filepath.Join(t.TempDir(), "state.db"))

	_, err := m.Login(context.Background(), "alice@example.com", "wrong")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want a 401 API error", err)
	}
	if m.Expired() {
		t.Error("a failed login must not mark the session expired")
	}
	if got := backend.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0 (login is never retried)", got)
	}
}

func TestStaleTokenRefreshedOn401(t *testing.T) {
	backend := &fakeBackend{}
	m, client, _ := newTestManager(t, backend, filepath.Join(t.TempDir(), "state.db"))
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Invalidate the access token server-side; the next call must recover
	// through exactly one refresh and one replay.
	backend.accept.Store("rotated-away")
	if _, err := client.ListGroups(ctx); err != nil {
		t.Fatalf("ListGroups failed after rotation: %v", err)
	}
	if got := backend.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := backend.groupCalls.Load(); got != 2 {
		t.Errorf("group calls = %d, want 2 (original + replay)", got)
	}
	if m.AccessToken() != "access-2" {
		t.Errorf("access token = %q, want rotated access-2", m.AccessToken())
	}
}

func TestFailedRefreshMarksExpired(t *testing.T) {
	backend := &fakeBackend{}
	m, client, store := newTestManager(t, backend, filepath.Join(t.TempDir(), "state.db"))
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	backend.accept.Store("rotated-away")
	backend.refreshStatus.Store(http.StatusUnauthorized)

	_, err := client.ListGroups(ctx)
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !m.Expired() {
		t.Error("manager not marked expired")
	}
	if m.IsAuthenticated() {
		t.Error("tokens survived session expiry")
	}
	if sess, _ := store.LoadSession(ctx); sess != nil {
		t.Error("persisted session survived expiry")
	}
	if got := backend.groupCalls.Load(); got != 1 {
		t.Errorf("group calls = %d, want 1 (no replay without a token)", got)
	}
}

func TestRefreshWithoutTokensIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	m, _, _ := newTestManager(t, backend, filepath.Join(t.TempDir(), "state.db"))

	token, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty when logged out", token)
	}
	if got := backend.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
}

func TestLogoutClearsState(t *testing.T) {
	backend := &fakeBackend{}
	m, _, store := newTestManager(t, backend, filepath.Join(t.TempDir(), "state.db"))
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if m.IsAuthenticated() {
		t.Error("still authenticated after logout")
	}
	if sess, _ := store.LoadSession(ctx); sess != nil {
		t.Error("persisted session survived logout")
	}
}
