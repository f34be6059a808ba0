package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/costbuddy/costbuddy/internal/models"
)

// ListExpenses returns a group's expenses, newest first. Splits are not
// populated; use GetExpense for the full record.
func (c *Client) ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	var out []models.Expense
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   fmt.Sprintf("/groups/%s/expenses", groupID),
		route:  "/groups/{id}/expenses",
		auth:   true,
		out:    &out,
	})
	return out, err
}

// CreateExpense records a new expense in a group and returns its ID.
func (c *Client) CreateExpense(ctx context.Context, groupID string, input models.ExpenseInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   fmt.Sprintf("/groups/%s/expenses", groupID),
		route:  "/groups/{id}/expenses",
		body:   input,
		auth:   true,
		out:    &out,
	})
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetExpense returns one expense with its splits.
func (c *Client) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	var out models.Expense
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/groups/expenses/" + expenseID,
		route:  "/groups/expenses/{id}",
		auth:   true,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateExpense replaces an expense's amount, note, date and splits.
func (c *Client) UpdateExpense(ctx context.Context, expenseID string, input models.ExpenseInput) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   "/groups/expenses/" + expenseID,
		route:  "/groups/expenses/{id}",
		body:   input,
		auth:   true,
	})
}

// DeleteExpense deletes one expense.
func (c *Client) DeleteExpense(ctx context.Context, expenseID string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/groups/expenses/" + expenseID,
		route:  "/groups/expenses/{id}",
		auth:   true,
	})
}

// DeleteExpenses deletes each expense independently, best-effort. Failures
// are logged and counted, never aborting the batch. It returns the number
// of expenses actually deleted.
func (c *Client) DeleteExpenses(ctx context.Context, expenseIDs []string) int {
	deleted := 0
	for _, id := range expenseIDs {
		if err := c.DeleteExpense(ctx, id); err != nil {
			slog.Warn("delete expense failed", "expense_id", id, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}
