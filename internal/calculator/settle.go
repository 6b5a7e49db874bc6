package calculator

import (
	"cmp"
	"math"
	"slices"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
)

// Epsilon is the rounding-noise threshold in the base currency. Positions
// within ±Epsilon of zero count as settled.
const Epsilon = 0.01

// Settlement is a suggested transfer from a debtor to a creditor.
type Settlement struct {
	From     models.Member
	To       models.Member
	Amount   float64
	Currency currency.Code // always the group's base currency

	AmountInPreferredCurrency float64
	PreferredCurrency         currency.Code // debtor's preferred currency

	AmountInCreditorCurrency  float64
	CreditorPreferredCurrency currency.Code
}

type position struct {
	summary   *MemberSummary
	remaining float64 // absolute amount still owed or due
}

// CalculateSettlements matches debtors with creditors greedily on each
// member's TotalInBaseCurrency.
//
// Debtors are walked most negative first and creditors largest first; ties
// keep their input order. Each step transfers min(|debt|, credit) and
// advances whichever side is within Epsilon of zero. At most
// debtors+creditors-1 settlements are produced.
func CalculateSettlements(summaries []MemberSummary, base currency.Code, rates Converter) ([]Settlement, error) {
	var debtors, creditors []position
	for i := range summaries {
		s := &summaries[i]
		switch {
		case s.TotalInBaseCurrency < -Epsilon:
			debtors = append(debtors, position{summary: s, remaining: -s.TotalInBaseCurrency})
		case s.TotalInBaseCurrency > Epsilon:
			creditors = append(creditors, position{summary: s, remaining: s.TotalInBaseCurrency})
		}
	}

	largestFirst := func(a, b position) int { return cmp.Compare(b.remaining, a.remaining) }
	slices.SortStableFunc(debtors, largestFirst)
	slices.SortStableFunc(creditors, largestFirst)

	var settlements []Settlement
	d, c := 0, 0
	for d < len(debtors) && c < len(creditors) {
		debtor, creditor := &debtors[d], &creditors[c]
		amount := math.Min(debtor.remaining, creditor.remaining)

		if amount > Epsilon {
			s, err := newSettlement(debtor.summary, creditor.summary, amount, base, rates)
			if err != nil {
				return nil, err
			}
			settlements = append(settlements, s)
		}

		debtor.remaining -= amount
		creditor.remaining -= amount
		if debtor.remaining <= Epsilon {
			d++
		}
		if creditor.remaining <= Epsilon {
			c++
		}
	}

	return settlements, nil
}

func newSettlement(from, to *MemberSummary, amount float64, base currency.Code, rates Converter) (Settlement, error) {
	inDebtor, err := rates.Convert(amount, base, from.PreferredCurrency)
	if err != nil {
		return Settlement{}, err
	}
	inCreditor, err := rates.Convert(amount, base, to.PreferredCurrency)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		From:                      from.Member,
		To:                        to.Member,
		Amount:                    amount,
		Currency:                  base,
		AmountInPreferredCurrency: inDebtor,
		PreferredCurrency:         from.PreferredCurrency,
		AmountInCreditorCurrency:  inCreditor,
		CreditorPreferredCurrency: to.PreferredCurrency,
	}, nil
}

// Result is the computed state of a group.
type Result struct {
	Summaries   []MemberSummary
	Settlements []Settlement
	Dangling    []DanglingRef
}

// IsSettled reports whether nobody owes anybody anything.
func (r *Result) IsSettled() bool {
	return len(r.Settlements) == 0
}

// CalculateGroup runs the accumulator and the matcher over a group.
func CalculateGroup(group *models.Group, rates Converter) (*Result, error) {
	summaries, dangling, err := CalculateBalances(group.Members, group.Expenses, group.BaseCurrency, rates)
	if err != nil {
		return nil, err
	}
	settlements, err := CalculateSettlements(summaries, group.BaseCurrency, rates)
	if err != nil {
		return nil, err
	}
	return &Result{
		Summaries:   summaries,
		Settlements: settlements,
		Dangling:    dangling,
	}, nil
}
