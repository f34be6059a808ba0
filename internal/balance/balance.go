// Package balance aggregates per-group balances into the cross-group
// dashboard summary.
package balance

import (
	"context"
	"log/slog"
	"sync"

	"github.com/costbuddy/costbuddy/internal/models"
)

// Fetcher retrieves one group's balance map.
type Fetcher func(ctx context.Context, groupID string) (map[models.BalanceKey]float64, error)

// Converter converts an amount between currencies. fx.Cache satisfies it.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// Summary is the cross-group position of the current user: how much they
// are owed and how much they owe, both in the display currency, plus each
// group's raw signed balance in its own currency. Groups whose balance
// fetch failed have no ByGroup entry.
type Summary struct {
	TotalOwed float64
	TotalOwes float64
	ByGroup   map[string]float64
}

// Summarize fetches every group's balances concurrently and folds the
// current user's signed balance per group into the summary. All fetches
// are awaited before anything is folded, so the totals never mix display
// currencies mid-computation. Failures are per-group: a failed fetch is
// logged and the group simply contributes nothing.
//
// The current user is always looked up by user key: a registered user is
// never a ghost member.
func Summarize(ctx context.Context, groups []models.Group, fetch Fetcher, conv Converter, userID, displayCurrency string) Summary {
	type result struct {
		balances map[models.BalanceKey]float64
		err      error
	}

	results := make([]result, len(groups))
	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func(i int, groupID string) {
			defer wg.Done()
			balances, err := fetch(ctx, groupID)
			results[i] = result{balances: balances, err: err}
		}(i, g.ID)
	}
	wg.Wait()

	summary := Summary{ByGroup: make(map[string]float64, len(groups))}
	key := models.UserKey(userID)
	for i, g := range groups {
		if results[i].err != nil {
			slog.Warn("balance fetch failed, omitting group from summary",
				"group_id", g.ID, "error", results[i].err)
			continue
		}

		mine := results[i].balances[key] // zero when the user has no entry
		summary.ByGroup[g.ID] = mine
		if mine == 0 {
			continue
		}

		groupCurrency := g.Currency
		if groupCurrency == "" {
			groupCurrency = displayCurrency
		}
		converted, err := conv.Convert(ctx, abs(mine), groupCurrency, displayCurrency)
		if err != nil {
			slog.Warn("currency conversion failed, omitting group from totals",
				"group_id", g.ID, "from", groupCurrency, "to", displayCurrency, "error", err)
			continue
		}

		if mine > 0 {
			summary.TotalOwed += converted
		} else {
			summary.TotalOwes += converted
		}
	}
	return summary
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
