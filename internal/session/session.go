// Package session holds the client's auth state: the current user and
// token pair, persisted across runs through the storage layer.
//
// The access token is refreshed two ways: a background ticker while a
// refresh token is held, and reactively when the API client hits a 401.
// Both paths funnel through Refresh, which holds a mutex so at most one
// refresh is in flight at a time.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/costbuddy/costbuddy/internal/api"
	"github.com/costbuddy/costbuddy/internal/metrics"
	"github.com/costbuddy/costbuddy/internal/models"
	"github.com/costbuddy/costbuddy/internal/storage"
)

// ErrNotLoggedIn is returned by operations that require an active session.
var ErrNotLoggedIn = errors.New("not logged in")

const refreshInterval = 15 * time.Minute

// Manager owns the auth state. Construct with New, then wire its Token and
// Refresh methods into the API client.
type Manager struct {
	client *api.Client
	store  storage.Store

	mu      sync.Mutex
	user    *models.User
	tokens  *models.TokenPair
	expired bool

	stopTicker chan struct{}
	tickerOnce sync.Once
}

// New creates a Manager, rehydrating any persisted session.
func New(ctx context.Context, client *api.Client, store storage.Store) (*Manager, error) {
	m := &Manager{
		client:     client,
		store:      store,
		stopTicker: make(chan struct{}),
	}
	sess, err := store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		m.user = &sess.User
		m.tokens = &sess.Tokens
		slog.Debug("session restored", "user_id", sess.User.ID, "email", sess.User.Email)
	}
	return m, nil
}

// User returns the current user, or nil when logged out.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// AccessToken returns the current access token, or "" when logged out.
// Wire this as the API client's token source.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return ""
	}
	return m.tokens.AccessToken
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// Expired reports whether the session was invalidated by a failed refresh.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Login authenticates and persists the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	res, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.install(ctx, res)
}

// Signup registers a new account and persists the resulting session.
func (m *Manager) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	res, err := m.client.Signup(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return m.install(ctx, res)
}

func (m *Manager) install(ctx context.Context, res *api.AuthResponse) (*models.User, error) {
	m.mu.Lock()
	m.user = &res.User
	m.tokens = &res.Tokens
	m.expired = false
	m.mu.Unlock()

	err := m.store.SaveSession(ctx, &storage.Session{User: res.User, Tokens: res.Tokens})
	if err != nil {
		return nil, err
	}
	slog.Info("logged in", "user_id", res.User.ID, "email", res.User.Email,
		"token_expires", tokenExpiry(res.Tokens.AccessToken))
	return &res.User, nil
}

// Logout clears the session locally and notifies the backend best-effort.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.client.Logout(ctx); err != nil {
		slog.Debug("server-side logout failed", "error", err)
	}
	return m.clear(ctx)
}

func (m *Manager) clear(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.tokens = nil
	m.mu.Unlock()
	return m.store.ClearSession(ctx)
}

// Refresh exchanges the refresh token for a new access token, persists it,
// and returns it. Both the background ticker and the API client's 401 path
// call it; the mutex keeps at most one refresh in flight. Wire this as the
// API client's refresh function.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil || m.tokens.RefreshToken == "" {
		return "", nil // nothing to refresh with
	}

	newToken, err := m.client.RefreshAccessToken(ctx, m.tokens.RefreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return "", err
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	m.tokens.AccessToken = newToken
	sess := &storage.Session{Tokens: *m.tokens}
	if m.user != nil {
		sess.User = *m.user
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		slog.Warn("persisting refreshed session failed", "error", err)
	}
	slog.Debug("access token refreshed", "expires", tokenExpiry(newToken))
	return newToken, nil
}

// MarkExpired flags the session as expired and clears auth state. Wire
// this as the API client's session-expired hook.
func (m *Manager) MarkExpired() {
	m.mu.Lock()
	m.user = nil
	m.tokens = nil
	m.expired = true
	m.mu.Unlock()

	if err := m.store.ClearSession(context.Background()); err != nil {
		slog.Warn("clearing expired session failed", "error", err)
	}
	slog.Warn("session expired, cleared auth state")
}

// StartAutoRefresh refreshes the access token every 15 minutes while a
// refresh token is held. Errors are logged and the next tick tries again.
// It returns immediately; Stop ends the loop.
func (m *Manager) StartAutoRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopTicker:
				return
			case <-ticker.C:
				if _, err := m.Refresh(ctx); err != nil {
					slog.Warn("periodic token refresh failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the auto-refresh loop.
func (m *Manager) Stop() {
	m.tickerOnce.Do(func() { close(m.stopTicker) })
}

// tokenExpiry decodes (without verifying) the access token's exp claim for
// logging. Signature verification is the server's concern; the client only
// reads the timestamp.
func tokenExpiry(token string) string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "unknown"
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "unknown"
	}
	return exp.Time.UTC().Format(time.RFC3339)
}
