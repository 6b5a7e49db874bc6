package models

import "github.com/mmynk/groupsplit/internal/currency"

// Member is one person in a group.
//
// Once an expense references a member, the member can no longer be removed.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	GroupID string
	Name    string
	Email   string

	// PreferredCurrency is used to present this member's balances. Empty
	// means the group's base currency.
	PreferredCurrency currency.Code

	CreatedAt int64
}
