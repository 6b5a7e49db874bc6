package service

import (
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/pkg/api"
)

func toAPIGroup(g *models.Group) *api.Group {
	out := &api.Group{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		BaseCurrency: string(g.BaseCurrency),
		CreatedAt:    g.CreatedAt,
	}
	for i := range g.Members {
		out.Members = append(out.Members, toAPIMember(&g.Members[i]))
	}
	for i := range g.Expenses {
		out.Expenses = append(out.Expenses, toAPIExpense(&g.Expenses[i]))
	}
	return out
}

func toAPIMember(m *models.Member) *api.Member {
	return &api.Member{
		ID:                m.ID,
		Name:              m.Name,
		Email:             m.Email,
		PreferredCurrency: string(m.PreferredCurrency),
		CreatedAt:         m.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:           e.ID,
		Description:  e.Description,
		Category:     e.Category,
		Amount:       e.Amount,
		Currency:     string(e.Currency),
		PaidBy:       e.PaidBy,
		Participants: e.Participants,
		SplitMethod:  string(e.SplitMethod),
		CustomSplit:  e.CustomSplit,
		Date:         e.Date.Unix(),
		CreatedAt:    e.CreatedAt,
	}
}

func toAPICurrency(c currency.Currency) *api.Currency {
	return &api.Currency{
		Code:     string(c.Code),
		Name:     c.Name,
		Symbol:   c.Symbol,
		Kind:     string(c.Kind),
		Rate:     c.Rate,
		Decimals: c.Decimals,
	}
}

func toAPIActivity(a *models.Activity) *api.Activity {
	return &api.Activity{
		ID:        a.ID,
		GroupID:   a.GroupID,
		Action:    a.Action,
		Detail:    a.Detail,
		CreatedAt: a.CreatedAt,
	}
}

// fromMemberInput builds a member model; currency checks happen in the caller.
func fromMemberInput(groupID string, in *api.MemberInput) models.Member {
	return models.Member{
		GroupID:           groupID,
		Name:              in.Name,
		Email:             in.Email,
		PreferredCurrency: currency.Code(in.PreferredCurrency),
	}
}

// unixOrZero reports the snapshot time, zero for the built-in table.
func unixOrZero(t *currency.Table) int64 {
	if t.UpdatedAt().IsZero() {
		return 0
	}
	return t.UpdatedAt().Unix()
}
