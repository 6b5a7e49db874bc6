package models

import (
	"time"

	"github.com/mmynk/groupsplit/internal/currency"
)

// SplitMethod is the rule for dividing an expense among its participants.
type SplitMethod string

const (
	// SplitEqual gives every participant 1/len(participants) of the amount.
	SplitEqual SplitMethod = "equal"

	// SplitCustom gives each participant the fraction in CustomSplit.
	SplitCustom SplitMethod = "custom"
)

// Expense is a single shared payment.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	GroupID     string
	Description string
	Category    string

	// Amount is positive and denominated in Currency.
	Amount   float64
	Currency currency.Code

	// PaidBy is the member ID of the payer.
	PaidBy string

	// Participants is the ordered, non-empty set of member IDs sharing the expense.
	// The payer may or may not be among them.
	Participants []string

	SplitMethod SplitMethod

	// CustomSplit maps participant ID to a fraction in [0, 1]. Only set for
	// SplitCustom; fractions sum to 1.
	CustomSplit map[string]float64

	// Date is when the money was spent.
	Date time.Time

	CreatedAt int64
}
