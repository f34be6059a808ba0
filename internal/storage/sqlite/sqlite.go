// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/costbuddy/costbuddy/internal/models"
	"github.com/costbuddy/costbuddy/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession persists the auth state, replacing any previous session.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *storage.Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	tokenType := sess.Tokens.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (id, user_json, access_token, refresh_token, token_type, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_json = excluded.user_json,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			saved_at = excluded.saved_at`,
		string(userJSON), sess.Tokens.AccessToken, sess.Tokens.RefreshToken, tokenType, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession returns the persisted auth state, or nil when logged out.
func (s *SQLiteStore) LoadSession(ctx context.Context) (*storage.Session, error) {
	var userJSON string
	var tokens models.TokenPair
	err := s.db.QueryRowContext(ctx,
		"SELECT user_json, access_token, refresh_token, token_type FROM session WHERE id = 1").
		Scan(&userJSON, &tokens.AccessToken, &tokens.RefreshToken, &tokens.TokenType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("failed to decode stored user: %w", err)
	}
	return &storage.Session{User: user, Tokens: tokens}, nil
}

// ClearSession removes the persisted auth state.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// SavePreferences persists the UI settings.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p storage.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (id, display_currency, theme)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_currency = excluded.display_currency,
			theme = excluded.theme`,
		p.DisplayCurrency, p.Theme)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// LoadPreferences returns the persisted UI settings, with defaults for
// anything never saved.
func (s *SQLiteStore) LoadPreferences(ctx context.Context) (storage.Preferences, error) {
	prefs := storage.Preferences{DisplayCurrency: "INR", Theme: "system"}
	err := s.db.QueryRowContext(ctx,
		"SELECT display_currency, theme FROM preferences WHERE id = 1").
		Scan(&prefs.DisplayCurrency, &prefs.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs, nil
}

// SaveRates persists the currency rate table.
func (s *SQLiteStore) SaveRates(ctx context.Context, snap storage.RateSnapshot) error {
	ratesJSON, err := json.Marshal(snap.Rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rates (id, fetched_at, base, rates_json, last_updated)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			base = excluded.base,
			rates_json = excluded.rates_json,
			last_updated = excluded.last_updated`,
		snap.FetchedAt, snap.Base, string(ratesJSON), snap.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}
	return nil
}

// LoadRates returns the persisted rate table, or nil when none was ever
// saved.
func (s *SQLiteStore) LoadRates(ctx context.Context) (*storage.RateSnapshot, error) {
	var snap storage.RateSnapshot
	var ratesJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT fetched_at, base, rates_json, last_updated FROM rates WHERE id = 1").
		Scan(&snap.FetchedAt, &snap.Base, &ratesJSON, &snap.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}
	if err := json.Unmarshal([]byte(ratesJSON), &snap.Rates); err != nil {
		return nil, fmt.Errorf("failed to decode stored rates: %w", err)
	}
	return &snap, nil
}
