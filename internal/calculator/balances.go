package calculator

import (
	"fmt"
	"slices"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
)

// Converter converts amounts between currencies. *currency.Table implements it.
type Converter interface {
	Convert(amount float64, from, to currency.Code) (float64, error)
}

// Balance is one member's position in one currency.
type Balance struct {
	Paid float64
	Owed float64
	Net  float64 // Paid - Owed; positive means the member is owed money
}

// MemberSummary is the balance information for one group member.
type MemberSummary struct {
	Member models.Member

	// Balances holds an entry for every currency the member paid or owed in.
	Balances map[currency.Code]*Balance

	// PreferredCurrency is the member's display currency, falling back to
	// the group's base currency.
	PreferredCurrency currency.Code

	TotalInPreferredCurrency float64
	TotalInBaseCurrency      float64
}

// Currencies returns the codes in Balances, sorted.
func (s *MemberSummary) Currencies() []currency.Code {
	codes := make([]currency.Code, 0, len(s.Balances))
	for code := range s.Balances {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

func (s *MemberSummary) balance(code currency.Code) *Balance {
	b, ok := s.Balances[code]
	if !ok {
		b = &Balance{}
		s.Balances[code] = b
	}
	return b
}

// DanglingRole says which side of an expense named an unknown member.
type DanglingRole string

const (
	RolePayer       DanglingRole = "payer"
	RoleParticipant DanglingRole = "participant"
)

// DanglingRef records an expense reference to someone who is not in the
// member list. The accumulator skips these contributions.
type DanglingRef struct {
	ExpenseID string
	MemberID  string
	Role      DanglingRole
}

// CalculateBalances reduces expenses to per-member, per-currency balances.
//
// Algorithm, for each expense in order:
//   - an unknown payer drops the whole expense
//   - the payer's paid balance grows by the full amount
//   - every known participant's owed balance grows by their share
//
// Then net = paid - owed for every touched currency, and each member's nets
// are converted and summed into their preferred currency and the base
// currency. Unknown participants are skipped, not charged to anyone else.
// Summaries come back in member order.
func CalculateBalances(members []models.Member, expenses []models.Expense, base currency.Code, rates Converter) ([]MemberSummary, []DanglingRef, error) {
	if _, err := rates.Convert(0, base, base); err != nil {
		return nil, nil, fmt.Errorf("base currency: %w", err)
	}

	summaries := make([]MemberSummary, len(members))
	index := make(map[string]int, len(members))
	for i, m := range members {
		preferred := m.PreferredCurrency
		if preferred == "" {
			preferred = base
		}
		if _, err := rates.Convert(0, preferred, preferred); err != nil {
			return nil, nil, fmt.Errorf("preferred currency of member %s: %w", m.ID, err)
		}
		summaries[i] = MemberSummary{
			Member:            m,
			Balances:          make(map[currency.Code]*Balance),
			PreferredCurrency: preferred,
		}
		index[m.ID] = i
	}

	var dangling []DanglingRef
	for _, expense := range expenses {
		payer, ok := index[expense.PaidBy]
		if !ok {
			dangling = append(dangling, DanglingRef{ExpenseID: expense.ID, MemberID: expense.PaidBy, Role: RolePayer})
			continue
		}

		shares, err := CalculateShares(expense)
		if err != nil {
			return nil, nil, err
		}

		summaries[payer].balance(expense.Currency).Paid += expense.Amount

		for _, share := range shares {
			i, ok := index[share.MemberID]
			if !ok {
				dangling = append(dangling, DanglingRef{ExpenseID: expense.ID, MemberID: share.MemberID, Role: RoleParticipant})
				continue
			}
			summaries[i].balance(expense.Currency).Owed += share.Amount
		}
	}

	for i := range summaries {
		s := &summaries[i]
		for _, code := range s.Currencies() {
			b := s.Balances[code]
			b.Net = b.Paid - b.Owed

			inPreferred, err := rates.Convert(b.Net, code, s.PreferredCurrency)
			if err != nil {
				return nil, nil, err
			}
			inBase, err := rates.Convert(b.Net, code, base)
			if err != nil {
				return nil, nil, err
			}
			s.TotalInPreferredCurrency += inPreferred
			s.TotalInBaseCurrency += inBase
		}
	}

	return summaries, dangling, nil
}
