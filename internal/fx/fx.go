// Package fx serves a currency conversion rate table with bounded
// staleness and graceful degradation.
//
// Rates are quoted to a fixed base currency (INR): rates[X] is how many
// base units equal one unit of X, so the base itself has rate 1. Reads
// serve the cached table until its 24h TTL elapses, then block on a
// refetch: the configured custom endpoint first, then a public source.
// Any fetch failure silently keeps the last good table; staleness is
// never a fatal error for callers. Conversion through a zero or missing
// rate fails closed with an explicit error.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/costbuddy/costbuddy/internal/metrics"
	"github.com/costbuddy/costbuddy/internal/storage"
)

const (
	// BaseCurrency is the pivot for any-to-any conversion.
	BaseCurrency = "INR"

	// publicRatesURL serves rates quoted with USD as base; they are
	// re-based to INR on load.
	publicRatesURL = "https://open.er-api.com/v6/latest/USD"

	ttl = 24 * time.Hour
)

// fallbackRates is the built-in static table served until a live fetch
// succeeds.
func fallbackRates() map[string]float64 {
	return map[string]float64{
		"INR": 1, "USD": 84.0, "EUR": 90.0, "GBP": 105.0,
		"THB": 2.4, "CAD": 62.0, "AUD": 55.0, "JPY": 0.56,
	}
}

// Info describes the provenance of the current table so callers can
// indicate live vs static data.
type Info struct {
	Base        string
	Rates       map[string]float64
	LastUpdated string
	IsFallback  bool
}

// Cache is the rate table cache. Construct it with New; the zero value is
// not usable.
type Cache struct {
	customURL  string
	publicURL  string
	httpClient *http.Client
	store      storage.Store // optional; nil disables persistence
	now        func() time.Time

	mu          sync.Mutex
	fetchedAt   time.Time
	base        string
	rates       map[string]float64
	lastUpdated string
}

// New creates a Cache seeded with the built-in fallback table, or with the
// persisted snapshot when store holds one. customURL may be empty; store
// may be nil.
func New(ctx context.Context, customURL string, store storage.Store) *Cache {
	c := &Cache{
		customURL:  customURL,
		publicURL:  publicRatesURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		store:      store,
		now:        time.Now,
		base:       BaseCurrency,
		rates:      fallbackRates(),
	}
	if store != nil {
		snap, err := store.LoadRates(ctx)
		if err != nil {
			slog.Warn("loading persisted rates failed", "error", err)
		} else if snap != nil {
			c.fetchedAt = time.UnixMilli(snap.FetchedAt)
			c.base = snap.Base
			c.rates = snap.Rates
			c.lastUpdated = snap.LastUpdated
		}
	}
	return c
}

// Rates returns a copy of the current table, refetching first when the
// TTL has elapsed. A failed refetch is logged and the cached table served.
func (c *Cache) Rates(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Sub(c.fetchedAt) > ttl {
		c.fetchLocked(ctx)
	}
	return copyRates(c.rates)
}

// ForceRefresh discards the cached timestamp and refetches immediately.
func (c *Cache) ForceRefresh(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
	return c.Rates(ctx)
}

// CurrentInfo returns a copy of the table and its provenance without
// triggering a fetch.
func (c *Cache) CurrentInfo() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		Base:        c.base,
		Rates:       copyRates(c.rates),
		LastUpdated: c.lastUpdated,
		IsFallback:  c.fetchedAt.IsZero(),
	}
}

// Convert converts amount from one currency to another via the base
// currency. Converting a currency to itself is an identity short-circuit
// with no table read. A zero or missing rate for either side is an error.
func (c *Cache) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Sub(c.fetchedAt) > ttl {
		c.fetchLocked(ctx)
	}

	fromRate, ok := c.rates[from]
	if !ok || fromRate == 0 {
		return 0, fmt.Errorf("no conversion rate for %q", from)
	}
	toRate, ok := c.rates[to]
	if !ok || toRate == 0 {
		return 0, fmt.Errorf("no conversion rate for %q", to)
	}
	return amount * fromRate / toRate, nil
}

func copyRates(rates map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(rates))
	for code, rate := range rates {
		out[code] = rate
	}
	return out
}

// ratesPayload is the wire shape of both the custom endpoint and the
// public source.
type ratesPayload struct {
	Base              string             `json:"base"`
	BaseCode          string             `json:"base_code"`
	Rates             map[string]float64 `json:"rates"`
	TimeLastUpdateUTC string             `json:"time_last_update_utc"`
}

// fetchLocked refetches the table, custom endpoint first then the public
// source. Callers hold c.mu. Failure leaves the cached table untouched.
func (c *Cache) fetchLocked(ctx context.Context) {
	if c.customURL != "" {
		payload, err := c.fetchURL(ctx, c.customURL)
		if err == nil && len(payload.Rates) > 0 {
			metrics.RateFetches.WithLabelValues("custom", "ok").Inc()
			base := payload.Base
			if base == "" {
				base = BaseCurrency
			}
			c.install(base, payload.Rates, payload.TimeLastUpdateUTC)
			slog.Info("loaded currency rates", "source", "custom", "base", base)
			return
		}
		metrics.RateFetches.WithLabelValues("custom", "failed").Inc()
		slog.Warn("custom rate source failed, trying public source", "url", c.customURL, "error", err)
	}

	payload, err := c.fetchURL(ctx, c.publicURL)
	if err != nil || len(payload.Rates) == 0 {
		metrics.RateFetches.WithLabelValues("public", "failed").Inc()
		slog.Warn("rate fetch failed, serving cached table", "error", err)
		return
	}
	metrics.RateFetches.WithLabelValues("public", "ok").Inc()

	// The public source quotes USD as base; re-base to INR. rate-to-INR of
	// X = (INR per USD) / (X per USD).
	usdToInr, ok := payload.Rates[BaseCurrency]
	if !ok || usdToInr == 0 {
		usdToInr = fallbackRates()["USD"]
	}
	rebased := make(map[string]float64, len(payload.Rates))
	for code, perUSD := range payload.Rates {
		if code == BaseCurrency {
			rebased[code] = 1
			continue
		}
		if perUSD == 0 {
			continue
		}
		rebased[code] = usdToInr / perUSD
	}
	c.install(BaseCurrency, rebased, payload.TimeLastUpdateUTC)
	slog.Info("loaded currency rates", "source", "public", "currencies", len(rebased))
}

// install replaces the cached table and persists it. Callers hold c.mu.
func (c *Cache) install(base string, rates map[string]float64, lastUpdated string) {
	c.fetchedAt = c.now()
	c.base = base
	c.rates = rates
	if lastUpdated == "" {
		lastUpdated = c.now().UTC().Format(time.RFC1123)
	}
	c.lastUpdated = lastUpdated

	if c.store != nil {
		snap := storage.RateSnapshot{
			FetchedAt:   c.fetchedAt.UnixMilli(),
			Base:        base,
			Rates:       rates,
			LastUpdated: c.lastUpdated,
		}
		if err := c.store.SaveRates(context.Background(), snap); err != nil {
			slog.Warn("persisting rates failed", "error", err)
		}
	}
}

func (c *Cache) fetchURL(ctx context.Context, url string) (*ratesPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned status %d", res.StatusCode)
	}
	var payload ratesPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if payload.Base == "" {
		payload.Base = payload.BaseCode
	}
	return &payload, nil
}
