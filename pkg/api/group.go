package api

// Member is a group member on the wire.
type Member struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	PreferredCurrency string `json:"preferredCurrency,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
}

// MemberInput describes a member to create.
type MemberInput struct {
	Name              string `json:"name" validate:"required,max=100"`
	Email             string `json:"email,omitempty" validate:"omitempty,email"`
	PreferredCurrency string `json:"preferredCurrency,omitempty" validate:"omitempty,uppercase,min=3,max=5"`
}

// Expense is a logged expense on the wire. Date and CreatedAt are Unix seconds.
type Expense struct {
	ID           string             `json:"id"`
	Description  string             `json:"description"`
	Category     string             `json:"category,omitempty"`
	Amount       float64            `json:"amount"`
	Currency     string             `json:"currency"`
	PaidBy       string             `json:"paidBy"`
	Participants []string           `json:"participants"`
	SplitMethod  string             `json:"splitMethod"`
	CustomSplit  map[string]float64 `json:"customSplit,omitempty"`
	Date         int64              `json:"date"`
	CreatedAt    int64              `json:"createdAt"`
}

// Group is a group on the wire. ListGroups leaves Members and Expenses empty.
type Group struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	BaseCurrency string     `json:"baseCurrency"`
	Members      []*Member  `json:"members,omitempty"`
	Expenses     []*Expense `json:"expenses,omitempty"`
	CreatedAt    int64      `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name         string         `json:"name" validate:"required,max=100"`
	Description  string         `json:"description,omitempty" validate:"max=500"`
	BaseCurrency string         `json:"baseCurrency" validate:"required,uppercase,min=3,max=5"`
	Members      []*MemberInput `json:"members,omitempty" validate:"dive,required"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type DeleteGroupResponse struct{}

type AddMemberRequest struct {
	GroupID string       `json:"groupId" validate:"required"`
	Member  *MemberInput `json:"member" validate:"required"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type RemoveMemberRequest struct {
	GroupID  string `json:"groupId" validate:"required"`
	MemberID string `json:"memberId" validate:"required"`
}

type RemoveMemberResponse struct{}

type AddExpenseRequest struct {
	GroupID      string             `json:"groupId" validate:"required"`
	Description  string             `json:"description" validate:"required,max=200"`
	Category     string             `json:"category,omitempty" validate:"max=50"`
	Amount       float64            `json:"amount" validate:"gt=0"`
	Currency     string             `json:"currency" validate:"required"`
	PaidBy       string             `json:"paidBy" validate:"required"`
	Participants []string           `json:"participants" validate:"required,min=1,dive,required"`
	SplitMethod  string             `json:"splitMethod" validate:"required,oneof=equal custom"`
	CustomSplit  map[string]float64 `json:"customSplit,omitempty"`

	// Date is Unix seconds; zero means now.
	Date int64 `json:"date,omitempty" validate:"min=0"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	GroupID   string `json:"groupId" validate:"required"`
	ExpenseID string `json:"expenseId" validate:"required"`
}

type DeleteExpenseResponse struct{}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

// CurrencyBalance is a member's position in one currency.
type CurrencyBalance struct {
	Currency string  `json:"currency"`
	Paid     float64 `json:"paid"`
	Owed     float64 `json:"owed"`
	Net      float64 `json:"net"`
}

// MemberBalance is the computed position of one member.
type MemberBalance struct {
	Member                   *Member            `json:"member"`
	Currencies               []*CurrencyBalance `json:"currencies"`
	PreferredCurrency        string             `json:"preferredCurrency"`
	TotalInPreferredCurrency float64            `json:"totalInPreferredCurrency"`
	TotalInBaseCurrency      float64            `json:"totalInBaseCurrency"`

	// Status is "gets_back", "owes" or "settled".
	Status string `json:"status"`

	// FormattedTotal is TotalInPreferredCurrency rendered for display, e.g. "€27.17".
	FormattedTotal string `json:"formattedTotal"`
}

// Settlement is a suggested transfer between two members.
type Settlement struct {
	FromMemberID string  `json:"fromMemberId"`
	FromName     string  `json:"fromName"`
	ToMemberID   string  `json:"toMemberId"`
	ToName       string  `json:"toName"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`

	AmountInPreferredCurrency float64 `json:"amountInPreferredCurrency"`
	PreferredCurrency         string  `json:"preferredCurrency"`
	AmountInCreditorCurrency  float64 `json:"amountInCreditorCurrency"`
	CreditorPreferredCurrency string  `json:"creditorPreferredCurrency"`

	// Formatted is a one-line description such as "Bob pays Alice $30.00".
	Formatted string `json:"formatted"`
}

// SkippedReference is an expense reference to a member who is no longer in the group.
type SkippedReference struct {
	ExpenseID string `json:"expenseId"`
	MemberID  string `json:"memberId"`
	Role      string `json:"role"`
}

type GetGroupBalancesResponse struct {
	GroupID           string              `json:"groupId"`
	BaseCurrency      string              `json:"baseCurrency"`
	Balances          []*MemberBalance    `json:"balances"`
	Settlements       []*Settlement       `json:"settlements"`
	SettledUp         bool                `json:"settledUp"`
	SkippedReferences []*SkippedReference `json:"skippedReferences,omitempty"`

	// RatesUpdatedAt is the Unix time of the rate snapshot used; zero for built-in rates.
	RatesUpdatedAt int64 `json:"ratesUpdatedAt"`
}

// Currency is one entry of the rate table.
type Currency struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Kind     string  `json:"kind"`
	Rate     float64 `json:"rate"`
	Decimals int     `json:"decimals"`
}

type ListCurrenciesRequest struct {
	Kind string `json:"kind,omitempty" validate:"omitempty,oneof=fiat crypto"`
}

type ListCurrenciesResponse struct {
	Currencies     []*Currency `json:"currencies"`
	RatesUpdatedAt int64       `json:"ratesUpdatedAt"`
}

type ConvertRequest struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from" validate:"required"`
	To     string  `json:"to" validate:"required"`
}

type ConvertResponse struct {
	Amount         float64 `json:"amount"`
	Formatted      string  `json:"formatted"`
	RatesUpdatedAt int64   `json:"ratesUpdatedAt"`
}
