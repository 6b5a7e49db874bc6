package api

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type GetStatsRequest struct{}

// CurrencyTotal is the sum of all expenses logged in one currency.
type CurrencyTotal struct {
	Currency  string  `json:"currency"`
	Total     float64 `json:"total"`
	Count     int     `json:"count"`
	Formatted string  `json:"formatted"`

	// TotalInUSD is zero when the currency is no longer in the rate table.
	TotalInUSD float64 `json:"totalInUsd"`
}

type GetStatsResponse struct {
	Groups          int              `json:"groups"`
	Members         int              `json:"members"`
	Expenses        int              `json:"expenses"`
	ExpenseTotals   []*CurrencyTotal `json:"expenseTotals"`
	ActivityLastDay int              `json:"activityLastDay"`
	GeneratedAt     int64            `json:"generatedAt"`
}

type ListActivityRequest struct {
	// Limit defaults to 50.
	Limit  int `json:"limit,omitempty" validate:"min=0,max=200"`
	Offset int `json:"offset,omitempty" validate:"min=0"`
}

// Activity is one activity log entry.
type Activity struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId,omitempty"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	CreatedAt int64  `json:"createdAt"`
}

type ListActivityResponse struct {
	Entries []*Activity `json:"entries"`
}
