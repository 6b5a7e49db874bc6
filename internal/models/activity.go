package models

// Activity is one entry in the admin activity log.
type Activity struct {
	ID string

	// GroupID is empty for actions that are not tied to a group.
	GroupID string

	// Action is a short machine name such as "expense.added".
	Action string

	// Detail is a human readable description.
	Detail string

	CreatedAt int64
}

// Activity actions.
const (
	ActionGroupCreated   = "group.created"
	ActionGroupDeleted   = "group.deleted"
	ActionMemberAdded    = "member.added"
	ActionMemberRemoved  = "member.removed"
	ActionExpenseAdded   = "expense.added"
	ActionExpenseDeleted = "expense.deleted"
	ActionAdminLogin     = "admin.login"
)

// CurrencyTotal is the sum of expense amounts logged in one currency.
type CurrencyTotal struct {
	Currency string
	Total    float64
	Count    int
}

// Stats are the aggregate numbers shown in the admin area.
type Stats struct {
	Groups   int
	Members  int
	Expenses int

	// ExpenseTotals is ordered by currency code.
	ExpenseTotals []CurrencyTotal

	// ActivityLastDay counts activity entries from the last 24 hours.
	ActivityLastDay int
}
