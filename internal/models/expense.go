package models

// ExpenseSplit is one member's share of an expense.
// SharePercentage is set only for percent-mode splits.
type ExpenseSplit struct {
	MemberID        int      `json:"member_id"`
	ShareAmount     float64  `json:"share_amount"`
	SharePercentage *float64 `json:"share_percentage"`
}

// Expense is a single shared expense within a group.
//
// CreatedBy is the user ID of the payer and is empty when the payer is a
// ghost member. The backend guarantees the sum of split share amounts
// matches TotalAmount within rounding tolerance.
type Expense struct {
	ID          string         `json:"id"`
	GroupID     string         `json:"group_id,omitempty"`
	TotalAmount float64        `json:"total_amount"`
	Currency    string         `json:"currency"`
	Note        string         `json:"note,omitempty"`
	Date        string         `json:"date,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	Splits      []ExpenseSplit `json:"splits,omitempty"`
}

// ExpenseInput is the request body for creating or updating an expense.
type ExpenseInput struct {
	TotalAmount    float64        `json:"total_amount"`
	Currency       string         `json:"currency"`
	Note           string         `json:"note,omitempty"`
	Date           string         `json:"date,omitempty"`
	PaidByMemberID int            `json:"paid_by_member_id"`
	Splits         []ExpenseSplit `json:"splits"`
}
