package calculator

import (
	"fmt"

	"github.com/mmynk/groupsplit/internal/currency"
)

// Formatter renders an amount for display. *currency.Table implements it.
type Formatter interface {
	Format(amount float64, code currency.Code) (string, error)
}

// Standing classifies a member's position in the base currency.
type Standing string

const (
	GetsBack Standing = "gets_back"
	Owes     Standing = "owes"
	Settled  Standing = "settled"
)

// StandingOf reports the standing of a base-currency total. Totals within
// Epsilon of zero are Settled.
func StandingOf(totalInBase float64) Standing {
	switch {
	case totalInBase > Epsilon:
		return GetsBack
	case totalInBase < -Epsilon:
		return Owes
	default:
		return Settled
	}
}

// Describe renders the settlement as "Bob pays Alice $30.00". When the
// debtor prefers another currency the local amount follows in
// parentheses: "Bob pays Alice $30.00 (€27.60)".
func (s Settlement) Describe(f Formatter) (string, error) {
	amount, err := f.Format(s.Amount, s.Currency)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%s pays %s %s", s.From.Name, s.To.Name, amount)
	if s.PreferredCurrency != "" && s.PreferredCurrency != s.Currency {
		local, err := f.Format(s.AmountInPreferredCurrency, s.PreferredCurrency)
		if err != nil {
			return "", err
		}
		line += " (" + local + ")"
	}
	return line, nil
}
