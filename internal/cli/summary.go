package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/costbuddy/costbuddy/internal/balance"
)

func newSummaryCmd(app func() *App) *cobra.Command {
	var displayCurrency string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show your cross-group balance in a display currency",
		Long: `Show the dashboard summary: how much you are owed and how much you owe
across all your groups, converted into the display currency, plus each
group's raw balance in its own currency. Groups whose balances cannot be
fetched are omitted rather than failing the summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()

			prefs, err := a.Store.LoadPreferences(ctx)
			if err != nil {
				return err
			}
			if displayCurrency == "" {
				displayCurrency = prefs.DisplayCurrency
			} else if displayCurrency != prefs.DisplayCurrency {
				// Remember the choice, like the browser client did.
				prefs.DisplayCurrency = displayCurrency
				if err := a.Store.SavePreferences(ctx, prefs); err != nil {
					return err
				}
			}

			groups, err := a.Client.ListGroups(ctx)
			if err != nil {
				return err
			}
			user := a.Session.User()

			summary := balance.Summarize(ctx, groups, a.Client.GetBalances, a.Rates, user.ID, displayCurrency)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "You are owed: %s\n", formatAmount(summary.TotalOwed, displayCurrency))
			fmt.Fprintf(out, "You owe:      %s\n", formatAmount(summary.TotalOwes, displayCurrency))

			info := a.Rates.CurrentInfo()
			provenance := "live"
			if info.IsFallback {
				provenance = "static"
			}
			fmt.Fprintf(out, "Rates: %s", provenance)
			if info.LastUpdated != "" {
				fmt.Fprintf(out, ", updated %s", info.LastUpdated)
			}
			fmt.Fprintln(out)

			if len(groups) > 0 {
				fmt.Fprintln(out, "\nPer group:")
			}
			for _, g := range groups {
				bal, ok := summary.ByGroup[g.ID]
				if !ok {
					fmt.Fprintf(out, "  %s: no data\n", g.Name)
					continue
				}
				fmt.Fprintf(out, "  %s: %s\n", g.Name, formatAmount(bal, g.Currency))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&displayCurrency, "currency", "c", "", "display currency (default: saved preference)")
	return cmd
}
