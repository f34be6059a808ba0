// Package split implements the client-side expense split allocator.
//
// Allocation is a pure function of the current form state: total amount,
// the group's members, the split mode and the selected member subset. It
// is recomputed on every input change for preview and reused verbatim at
// submission. The backend is authoritative for the final arithmetic.
package split

import (
	"errors"
	"math"

	"github.com/costbuddy/costbuddy/internal/models"
)

// Mode selects how a total is divided among the selected members.
type Mode string

const (
	// ModeEqual divides the total evenly across the selected members.
	ModeEqual Mode = "equal"
	// ModeAmount takes each selected member's share directly from input.
	ModeAmount Mode = "amount"
	// ModePercent derives each share from a per-member percentage of total.
	ModePercent Mode = "percent"
)

// Validation errors surfaced before any network call.
var (
	ErrNonPositiveTotal  = errors.New("enter an amount greater than 0")
	ErrNoMembersSelected = errors.New("select at least one member")
)

// Share is one member's computed portion of an expense.
// SharePercentage is non-nil only in percent mode.
type Share struct {
	MemberID        int
	ShareAmount     float64
	SharePercentage *float64
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Allocate computes per-member shares for the given form state.
//
// selected is the set of member IDs included in the split; unselected
// members always get a zero share. inputs carries the user-entered value
// per member: a fixed amount in ModeAmount, a percentage in ModePercent,
// and is ignored in ModeEqual. Allocate never fails; callers gate
// submission with Validate.
//
// Equal mode does not redistribute the residual cent: with N selected
// members the share sum may drift from the total by up to N*0.01.
func Allocate(total float64, members []models.Member, mode Mode, selected map[int]bool, inputs map[int]float64) []Share {
	shares := make([]Share, 0, len(members))

	var perEqual float64
	if mode == ModeEqual {
		n := 0
		for _, m := range members {
			if selected[m.MemberID] {
				n++
			}
		}
		if n > 0 {
			perEqual = Round2(total / float64(n))
		}
	}

	for _, m := range members {
		s := Share{MemberID: m.MemberID}
		if selected[m.MemberID] {
			switch mode {
			case ModeEqual:
				s.ShareAmount = perEqual
			case ModeAmount:
				s.ShareAmount = Round2(inputs[m.MemberID])
			case ModePercent:
				pct := inputs[m.MemberID]
				s.ShareAmount = Round2(total * pct / 100)
				s.SharePercentage = &pct
			}
		}
		shares = append(shares, s)
	}
	return shares
}

// Validate checks the submission preconditions the form enforces: a
// positive total and a non-empty selection. Percentage sums are
// deliberately not enforced here; see SumPercentages.
func Validate(total float64, selected map[int]bool) error {
	if total <= 0 {
		return ErrNonPositiveTotal
	}
	for _, on := range selected {
		if on {
			return nil
		}
	}
	return ErrNoMembersSelected
}

// SumPercentages totals the entered percentages over the selected members
// so the caller can warn when they do not sum to 100. Submission is not
// blocked on a mismatch; the backend enforces the invariant.
func SumPercentages(selected map[int]bool, inputs map[int]float64) float64 {
	sum := 0.0
	for id, on := range selected {
		if on {
			sum += inputs[id]
		}
	}
	return sum
}

// ForSubmission filters shares to the set actually sent to the backend:
// percent mode keeps every selected member's share, the other modes drop
// zero shares.
func ForSubmission(shares []Share, mode Mode, selected map[int]bool) []models.ExpenseSplit {
	out := make([]models.ExpenseSplit, 0, len(shares))
	for _, s := range shares {
		if mode == ModePercent {
			if !selected[s.MemberID] {
				continue
			}
		} else if s.ShareAmount <= 0 {
			continue
		}
		out = append(out, models.ExpenseSplit{
			MemberID:        s.MemberID,
			ShareAmount:     s.ShareAmount,
			SharePercentage: s.SharePercentage,
		})
	}
	return out
}

// Rescale produces updated splits for an expense whose total changed,
// scaling every share by newTotal/oldTotal and rounding to two decimals.
// Percentages are carried through unchanged. Used by expense editing to
// preserve the original split proportions.
func Rescale(splits []models.ExpenseSplit, oldTotal, newTotal float64) []models.ExpenseSplit {
	ratio := 1.0
	if oldTotal != 0 {
		ratio = newTotal / oldTotal
	}
	out := make([]models.ExpenseSplit, len(splits))
	for i, s := range splits {
		out[i] = models.ExpenseSplit{
			MemberID:        s.MemberID,
			ShareAmount:     Round2(s.ShareAmount * ratio),
			SharePercentage: s.SharePercentage,
		}
	}
	return out
}
