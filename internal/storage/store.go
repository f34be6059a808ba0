// Package storage provides abstractions for the client's persistent state.
//
// The browser client kept its state in localStorage: the logged-in user,
// the token pair and UI preferences. This client persists the same state,
// plus the cached currency rate table, through the Store interface so the
// session and fx layers stay independent of the backing database.
package storage

import (
	"context"

	"github.com/costbuddy/costbuddy/internal/models"
)

// Session is the persisted auth state: who is logged in and with which
// tokens. A nil Session means logged out.
type Session struct {
	User   models.User
	Tokens models.TokenPair
}

// Preferences are the persisted UI settings.
type Preferences struct {
	DisplayCurrency string
	Theme           string
}

// RateSnapshot is the persisted currency rate table.
type RateSnapshot struct {
	// FetchedAt is the Unix-millisecond timestamp of the last successful
	// fetch; zero means the table is the built-in fallback.
	FetchedAt   int64
	Base        string
	Rates       map[string]float64
	LastUpdated string
}

// Store defines the client state persistence operations. This abstraction
// allows swapping storage backends without changing the session or fx
// layers.
type Store interface {
	// SaveSession persists the auth state, replacing any previous session.
	SaveSession(ctx context.Context, s *Session) error

	// LoadSession returns the persisted auth state, or nil when logged out.
	LoadSession(ctx context.Context) (*Session, error)

	// ClearSession removes the persisted auth state.
	ClearSession(ctx context.Context) error

	// SavePreferences persists the UI settings.
	SavePreferences(ctx context.Context, p Preferences) error

	// LoadPreferences returns the persisted UI settings, with defaults for
	// anything never saved.
	LoadPreferences(ctx context.Context) (Preferences, error)

	// SaveRates persists the currency rate table.
	SaveRates(ctx context.Context, snap RateSnapshot) error

	// LoadRates returns the persisted rate table, or nil when none was
	// ever saved.
	LoadRates(ctx context.Context) (*RateSnapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
