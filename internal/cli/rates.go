package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRatesCmd(app func() *App) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the cached currency rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if refresh {
				a.Rates.ForceRefresh(cmd.Context())
			} else {
				a.Rates.Rates(cmd.Context())
			}

			info := a.Rates.CurrentInfo()
			out := cmd.OutOrStdout()
			provenance := "live"
			if info.IsFallback {
				provenance = "static fallback"
			}
			fmt.Fprintf(out, "Base: %s (%s)\n", info.Base, provenance)
			if info.LastUpdated != "" {
				fmt.Fprintf(out, "Updated: %s\n", info.LastUpdated)
			}

			codes := make([]string, 0, len(info.Rates))
			for code := range info.Rates {
				codes = append(codes, code)
			}
			sort.Strings(codes)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "CODE\tRATE TO %s\n", info.Base)
			for _, code := range codes {
				fmt.Fprintf(w, "%s\t%.4f\n", code, info.Rates[code])
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "force a refetch before printing")
	return cmd
}
