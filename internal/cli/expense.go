package cli

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/costbuddy/costbuddy/internal/models"
	"github.com/costbuddy/costbuddy/internal/split"
)

func newExpenseCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Manage group expenses",
	}
	cmd.AddCommand(
		newExpenseListCmd(app),
		newExpenseAddCmd(app),
		newExpenseEditCmd(app),
		newExpenseDeleteCmd(app),
	)
	return cmd
}

func newExpenseListCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list GROUP_ID",
		Short: "List a group's expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			expenses, err := a.Client.ListExpenses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(expenses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No expenses yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tNOTE")
			for _, e := range expenses {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, shortDate(e.Date), formatAmount(e.TotalAmount, e.Currency), e.Note)
			}
			return w.Flush()
		},
	}
}

func newExpenseAddCmd(app func() *App) *cobra.Command {
	var (
		amount       float64
		note         string
		modeFlag     string
		paidBy       int
		selectedIDs  []int
		shareEntries []string
	)

	cmd := &cobra.Command{
		Use:   "add GROUP_ID",
		Short: "Add an expense split across group members",
		Long: `Add an expense. The split mode controls how the total is divided:

  equal    divide evenly across the selected members (default: everyone)
  amount   take each share from --share MEMBER_ID=AMOUNT
  percent  derive shares from --share MEMBER_ID=PERCENT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()

			mode := split.Mode(modeFlag)
			switch mode {
			case split.ModeEqual, split.ModeAmount, split.ModePercent:
			default:
				return fmt.Errorf("unknown split mode %q", modeFlag)
			}

			group, err := a.Client.GetGroup(ctx, args[0])
			if err != nil {
				return err
			}

			selected, err := selectMembers(group, selectedIDs)
			if err != nil {
				return err
			}
			inputs, err := parseShares(shareEntries)
			if err != nil {
				return err
			}

			// Validation errors stop here, before any write.
			if err := split.Validate(amount, selected); err != nil {
				return err
			}
			if mode == split.ModePercent {
				if sum := split.SumPercentages(selected, inputs); math.Abs(sum-100) > 0.01 {
					// The backend is the authority; warn but do not block.
					slog.Warn("percentages do not sum to 100", "sum", sum)
				}
			}

			payer := paidBy
			if payer == 0 {
				me := group.MemberByUserID(a.Session.User().ID)
				if me == nil {
					return fmt.Errorf("you are not a member of this group; use --paid-by")
				}
				payer = me.MemberID
			}

			shares := split.Allocate(amount, group.Members, mode, selected, inputs)
			input := models.ExpenseInput{
				TotalAmount:    amount,
				Currency:       group.Currency,
				Note:           note,
				Date:           time.Now().UTC().Format(time.RFC3339),
				PaidByMemberID: payer,
				Splits:         split.ForSubmission(shares, mode, selected),
			}
			id, err := a.Client.CreateExpense(ctx, group.ID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added expense %s: %s\n", id, formatAmount(amount, group.Currency))
			for _, s := range input.Splits {
				name := memberName(group, s.MemberID)
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", name, formatAmount(s.ShareAmount, group.Currency))
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "total amount in the group currency")
	cmd.Flags().StringVarP(&note, "note", "n", "", "expense note")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "equal", "split mode: equal, amount or percent")
	cmd.Flags().IntVar(&paidBy, "paid-by", 0, "payer member id (default: your own membership)")
	cmd.Flags().IntSliceVar(&selectedIDs, "select", nil, "member ids included in the split (default: all)")
	cmd.Flags().StringSliceVar(&shareEntries, "share", nil, "per-member value as MEMBER_ID=VALUE (amount/percent modes)")
	return cmd
}

func newExpenseEditCmd(app func() *App) *cobra.Command {
	var (
		amount float64
		note   string
		paidBy int
	)

	cmd := &cobra.Command{
		Use:   "edit EXPENSE_ID",
		Short: "Change an expense's amount or note, keeping split proportions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()

			expense, err := a.Client.GetExpense(ctx, args[0])
			if err != nil {
				return err
			}

			newAmount := expense.TotalAmount
			if cmd.Flags().Changed("amount") {
				if amount <= 0 {
					return split.ErrNonPositiveTotal
				}
				newAmount = amount
			}
			newNote := expense.Note
			if cmd.Flags().Changed("note") {
				newNote = note
			}

			payer := paidBy
			if payer == 0 {
				group, err := a.Client.GetGroup(ctx, expense.GroupID)
				if err != nil {
					return err
				}
				m := group.MemberByUserID(expense.CreatedBy)
				if m == nil {
					return fmt.Errorf("cannot resolve original payer; use --paid-by")
				}
				payer = m.MemberID
			}

			input := models.ExpenseInput{
				TotalAmount:    newAmount,
				Currency:       expense.Currency,
				Note:           newNote,
				Date:           expense.Date,
				PaidByMemberID: payer,
				Splits:         split.Rescale(expense.Splits, expense.TotalAmount, newAmount),
			}
			if err := a.Client.UpdateExpense(ctx, expense.ID, input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated expense %s: %s\n", expense.ID, formatAmount(newAmount, expense.Currency))
			return nil
		},
	}
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "new total amount (shares rescale proportionally)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "new note")
	cmd.Flags().IntVar(&paidBy, "paid-by", 0, "payer member id (default: the original payer)")
	return cmd
}

func newExpenseDeleteCmd(app func() *App) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "delete EXPENSE_ID...",
		Short: "Delete expenses (best-effort batch)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()

			deleted := a.Client.DeleteExpenses(ctx, args)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d expenses\n", deleted, len(args))

			// Refetch to show the surviving list, mirroring the UI refresh
			// after a batch delete. Partial failures above do not skip it.
			if groupID != "" {
				expenses, err := a.Client.ListExpenses(ctx, groupID)
				if err != nil {
					slog.Warn("refetching expenses failed", "group_id", groupID, "error", err)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d expenses remain\n", len(expenses))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "group to refetch after deleting")
	return cmd
}

// selectMembers resolves the --select flag into the selected-member set,
// defaulting to every member. Unknown ids are rejected before any call.
func selectMembers(group *models.Group, ids []int) (map[int]bool, error) {
	selected := make(map[int]bool, len(group.Members))
	if len(ids) == 0 {
		for _, m := range group.Members {
			selected[m.MemberID] = true
		}
		return selected, nil
	}
	known := make(map[int]bool, len(group.Members))
	for _, m := range group.Members {
		known[m.MemberID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("member %d is not in this group", id)
		}
		selected[id] = true
	}
	return selected, nil
}

// parseShares parses repeated MEMBER_ID=VALUE entries.
func parseShares(entries []string) (map[int]float64, error) {
	inputs := make(map[int]float64, len(entries))
	for _, entry := range entries {
		idStr, valStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed share %q, want MEMBER_ID=VALUE", entry)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil {
			return nil, fmt.Errorf("malformed share %q: %w", entry, err)
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed share %q: %w", entry, err)
		}
		inputs[id] = val
	}
	return inputs, nil
}

func memberName(group *models.Group, memberID int) string {
	for _, m := range group.Members {
		if m.MemberID == memberID {
			return m.Name
		}
	}
	return fmt.Sprintf("member %d", memberID)
}

func shortDate(iso string) string {
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t.Format("2006-01-02")
	}
	if len(iso) >= 10 {
		return iso[:10]
	}
	return iso
}
