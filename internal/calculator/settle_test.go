package calculator

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/models"
)

type transfer struct {
	from, to string
	amount   float64
}

func transfers(settlements []Settlement) []transfer {
	out := make([]transfer, len(settlements))
	for i, s := range settlements {
		out[i] = transfer{s.From.ID, s.To.ID, s.Amount}
	}
	return out
}

func summariesWithTotals(totals map[string]float64, order ...string) []MemberSummary {
	out := make([]MemberSummary, len(order))
	for i, id := range order {
		out[i] = MemberSummary{
			Member:              models.Member{ID: id},
			PreferredCurrency:   "USD",
			TotalInBaseCurrency: totals[id],
		}
	}
	return out
}

func TestCalculateGroup_EqualSplitScenario(t *testing.T) {
	group := &models.Group{
		BaseCurrency: "USD",
		Members:      members("A", "B", "C"),
		Expenses:     []models.Expense{equalExpense("e1", 90, "USD", "A", "A", "B", "C")},
	}

	result, err := CalculateGroup(group, pivotTable(t))
	require.NoError(t, err)
	require.Len(t, result.Settlements, 2)

	for i, from := range []string{"B", "C"} {
		s := result.Settlements[i]
		assert.Equal(t, from, s.From.ID)
		assert.Equal(t, "A", s.To.ID)
		assert.InDelta(t, 30.0, s.Amount, 1e-9)
		assert.Equal(t, currency.Code("USD"), s.Currency)
	}
	assert.False(t, result.IsSettled())
}

func TestCalculateGroup_CustomSplitScenario(t *testing.T) {
	group := &models.Group{
		BaseCurrency: "USD",
		Members:      members("A", "B"),
		Expenses: []models.Expense{{
			ID: "e1", Amount: 100, Currency: "USD", PaidBy: "A",
			Participants: []string{"A", "B"},
			SplitMethod:  models.SplitCustom,
			CustomSplit:  map[string]float64{"A": 0.2, "B": 0.8},
		}},
	}

	result, err := CalculateGroup(group, pivotTable(t))
	require.NoError(t, err)
	require.Len(t, result.Settlements, 1)
	assert.Equal(t, "B", result.Settlements[0].From.ID)
	assert.Equal(t, "A", result.Settlements[0].To.ID)
	assert.InDelta(t, 80.0, result.Settlements[0].Amount, 1e-9)
}

func TestCalculateSettlements_PreferredCurrencies(t *testing.T) {
	table := pivotTable(t)
	summaries := summariesWithTotals(map[string]float64{"A": 46, "B": -46}, "A", "B")
	summaries[0].PreferredCurrency = "GBP"
	summaries[1].PreferredCurrency = "EUR"

	settlements, err := CalculateSettlements(summaries, "USD", table)
	require.NoError(t, err)
	require.Len(t, settlements, 1)

	s := settlements[0]
	assert.Equal(t, currency.Code("EUR"), s.PreferredCurrency)
	assert.InDelta(t, 50.0, s.AmountInPreferredCurrency, 1e-9)
	assert.Equal(t, currency.Code("GBP"), s.CreditorPreferredCurrency)
	assert.InDelta(t, 36.8, s.AmountInCreditorCurrency, 1e-9)
}

func TestCalculateSettlements_Greedy(t *testing.T) {
	tests := []struct {
		name   string
		totals map[string]float64
		order  []string
		want   []transfer
	}{
		{
			name:   "largest debt meets largest credit",
			totals: map[string]float64{"A": 70, "B": 30, "C": -60, "D": -40},
			order:  []string{"A", "B", "C", "D"},
			want: []transfer{
				{"C", "A", 60},
				{"D", "A", 10},
				{"D", "B", 30},
			},
		},
		{
			name:   "both cursors advance on exact match",
			totals: map[string]float64{"A": 50, "B": 25, "C": -50, "D": -25},
			order:  []string{"A", "B", "C", "D"},
			want: []transfer{
				{"C", "A", 50},
				{"D", "B", 25},
			},
		},
		{
			name:   "ties keep input order",
			totals: map[string]float64{"A": 20, "B": -10, "C": -10},
			order:  []string{"A", "B", "C"},
			want: []transfer{
				{"B", "A", 10},
				{"C", "A", 10},
			},
		},
		{
			name:   "members within epsilon are excluded",
			totals: map[string]float64{"A": 10.005, "B": -10, "C": -0.005, "D": 0.01},
			order:  []string{"A", "B", "C", "D"},
			want:   []transfer{{"B", "A", 10}},
		},
		{
			name:   "all settled up",
			totals: map[string]float64{"A": 0.004, "B": -0.01, "C": 0},
			order:  []string{"A", "B", "C"},
			want:   []transfer{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settlements, err := CalculateSettlements(summariesWithTotals(tt.totals, tt.order...), "USD", pivotTable(t))
			require.NoError(t, err)

			got := transfers(settlements)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].from, got[i].from, "settlement %d", i)
				assert.Equal(t, tt.want[i].to, got[i].to, "settlement %d", i)
				assert.InDelta(t, tt.want[i].amount, got[i].amount, 1e-9, "settlement %d", i)
			}
		})
	}
}

func TestCalculateSettlements_UnknownPreferredCurrency(t *testing.T) {
	summaries := summariesWithTotals(map[string]float64{"A": 5, "B": -5}, "A", "B")
	summaries[1].PreferredCurrency = "XYZ"

	_, err := CalculateSettlements(summaries, "USD", pivotTable(t))
	assert.ErrorIs(t, err, currency.ErrInvalidCurrency)
}

func TestProperty_SettlementsClearBalances(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	codes := []currency.Code{"USD"}

	for trial := 0; trial < 200; trial++ {
		group, expenses := randomGroup(rng, 2+rng.IntN(8), 1+rng.IntN(40), codes)
		result, err := CalculateGroup(&models.Group{
			BaseCurrency: "USD", Members: group, Expenses: expenses,
		}, pivotTable(t))
		require.NoError(t, err)

		remaining := make(map[string]float64, len(group))
		debtors, creditors := 0, 0
		for _, s := range result.Summaries {
			remaining[s.Member.ID] = s.TotalInBaseCurrency
			switch {
			case s.TotalInBaseCurrency < -Epsilon:
				debtors++
			case s.TotalInBaseCurrency > Epsilon:
				creditors++
			}
		}

		for _, s := range result.Settlements {
			assert.Greater(t, s.Amount, Epsilon)
			remaining[s.From.ID] += s.Amount
			remaining[s.To.ID] -= s.Amount
		}
		for id, net := range remaining {
			assert.InDelta(t, 0, net, Epsilon, "trial %d member %s", trial, id)
		}

		if debtors+creditors == 0 {
			assert.True(t, result.IsSettled(), "trial %d", trial)
		} else {
			assert.LessOrEqual(t, len(result.Settlements), debtors+creditors-1, "trial %d", trial)
		}
	}
}

func TestProperty_SettlementsClearBalances_MixedCurrencies(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	table := pivotTable(t)
	codes := []currency.Code{"USD", "EUR", "GBP"}

	for trial := 0; trial < 200; trial++ {
		base := codes[rng.IntN(len(codes))]
		group, expenses := randomGroup(rng, 2+rng.IntN(8), 1+rng.IntN(40), codes)
		for i := range group {
			group[i].PreferredCurrency = codes[rng.IntN(len(codes))]
		}

		result, err := CalculateGroup(&models.Group{
			BaseCurrency: base, Members: group, Expenses: expenses,
		}, table)
		require.NoError(t, err)

		remaining := make(map[string]float64, len(group))
		for _, s := range result.Summaries {
			remaining[s.Member.ID] = s.TotalInBaseCurrency
		}

		for _, s := range result.Settlements {
			assert.Equal(t, base, s.Currency, "trial %d", trial)
			remaining[s.From.ID] += s.Amount
			remaining[s.To.ID] -= s.Amount

			inDebtor, err := table.Convert(s.Amount, base, s.From.PreferredCurrency)
			require.NoError(t, err)
			assert.Equal(t, s.From.PreferredCurrency, s.PreferredCurrency, "trial %d", trial)
			assert.InDelta(t, inDebtor, s.AmountInPreferredCurrency, 1e-9, "trial %d", trial)

			inCreditor, err := table.Convert(s.Amount, base, s.To.PreferredCurrency)
			require.NoError(t, err)
			assert.Equal(t, s.To.PreferredCurrency, s.CreditorPreferredCurrency, "trial %d", trial)
			assert.InDelta(t, inCreditor, s.AmountInCreditorCurrency, 1e-9, "trial %d", trial)
		}
		for id, net := range remaining {
			assert.InDelta(t, 0, net, Epsilon, "trial %d member %s", trial, id)
		}
	}
}

func TestProperty_NoOpWhenSettled(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))

	for trial := 0; trial < 100; trial++ {
		n := 1 + rng.IntN(10)
		totals := make(map[string]float64, n)
		order := make([]string, n)
		for i := range order {
			order[i] = string(rune('A' + i))
			totals[order[i]] = (rng.Float64()*2 - 1) * Epsilon
		}

		settlements, err := CalculateSettlements(summariesWithTotals(totals, order...), "USD", pivotTable(t))
		require.NoError(t, err)
		assert.Empty(t, settlements)
	}
}
