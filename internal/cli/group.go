package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newGroupCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage expense groups",
	}
	cmd.AddCommand(
		newGroupListCmd(app),
		newGroupShowCmd(app),
		newGroupCreateCmd(app),
		newGroupDeleteCmd(app),
		newMemberAddCmd(app),
		newMemberRemoveCmd(app),
	)
	return cmd
}

func newGroupListCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			groups, err := a.Client.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No groups yet. Create one with: costbuddy group create")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCURRENCY")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%s\t%s\n", g.ID, g.Name, g.Currency)
			}
			return w.Flush()
		},
	}
}

func newGroupShowCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show GROUP_ID",
		Short: "Show a group with its members and balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()
			group, err := a.Client.GetGroup(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", group.Name, group.Currency)
			fmt.Fprintln(out, "\nMembers:")
			for _, m := range group.Members {
				tag := ""
				if m.IsGhost {
					tag = " (offline)"
				}
				fmt.Fprintf(out, "  [%d] %s%s\n", m.MemberID, m.Name, tag)
			}

			balances, err := a.Client.GetBalances(ctx, group.ID)
			if err != nil {
				// Balances are supplementary on this view; the group itself
				// rendered fine.
				fmt.Fprintf(out, "\nBalances unavailable: %v\n", err)
				return nil
			}
			fmt.Fprintln(out, "\nBalances:")
			for _, m := range group.Members {
				bal := balances[m.BalanceKey()]
				verb := "settled up"
				switch {
				case bal > 0:
					verb = "is owed " + formatAmount(bal, group.Currency)
				case bal < 0:
					verb = "owes " + formatAmount(-bal, group.Currency)
				}
				fmt.Fprintf(out, "  %s %s\n", m.Name, verb)
			}
			return nil
		},
	}
}

func newGroupCreateCmd(app func() *App) *cobra.Command {
	var currency, icon string
	var members []string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a group, optionally adding members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()
			group, err := a.Client.CreateGroup(ctx, args[0], currency, icon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group %s (%s), id %s\n", group.Name, group.Currency, group.ID)

			// Member entries are best-effort: each is attempted
			// independently and failures never roll back the group.
			if len(members) > 0 {
				added := a.Client.AddMembers(ctx, group.ID, members)
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d members\n", added, len(members))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&currency, "currency", "c", "INR", "group currency (ISO code, fixed at creation)")
	cmd.Flags().StringVar(&icon, "icon", "", "group icon tag")
	cmd.Flags().StringSliceVarP(&members, "member", "m", nil, "member email or name (repeatable)")
	return cmd
}

func newGroupDeleteCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete GROUP_ID",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			if err := a.Client.DeleteGroup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Group deleted")
			return nil
		},
	}
}

func newMemberAddCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add-member GROUP_ID ENTRY...",
		Short: "Add members by email (account) or name (offline member)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			entries := args[1:]
			added := a.Client.AddMembers(cmd.Context(), args[0], entries)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d members\n", added, len(entries))
			return nil
		},
	}
}

func newMemberRemoveCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member GROUP_ID MEMBER_ID",
		Short: "Remove a member from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			memberID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("member id must be numeric: %w", err)
			}
			if err := a.Client.RemoveMember(cmd.Context(), args[0], memberID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Member removed")
			return nil
		},
	}
}
