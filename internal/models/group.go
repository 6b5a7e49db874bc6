package models

import "github.com/mmynk/groupsplit/internal/currency"

// Group is the unit of persistence and the unit the balance engine runs on.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Lisbon Trip").
	Name string

	Description string

	// BaseCurrency is the currency settlements are computed in.
	BaseCurrency currency.Code

	// Members in the order they were added.
	Members []Member

	// Expenses in the order they were logged.
	Expenses []Expense

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
