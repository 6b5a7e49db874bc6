// Package currency holds the fiat and crypto rate tables used for all
// cross-currency arithmetic.
//
// Every rate is the USD value of one unit of the currency, so converting
// an amount is a single pivot through USD:
//
//	converted = amount * rate(from) / rate(to)
//
// A Table is an immutable snapshot. Refreshing rates produces a new Table
// (see Table.WithRates and Source); readers never observe a table being
// mutated under them.
package currency

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCurrency is returned when a code is in neither the fiat nor the crypto table.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrInvalidRate is returned when a table would hold a non-positive or non-finite rate.
	ErrInvalidRate = errors.New("invalid exchange rate")
)

// Code is an uppercase currency code such as "USD" or "BTC".
type Code string

// String implements fmt.Stringer.
func (c Code) String() string { return string(c) }

// Kind tells fiat and crypto currencies apart.
type Kind string

const (
	Fiat   Kind = "fiat"
	Crypto Kind = "crypto"
)

// maxDecimals is the largest display precision Format can render.
const maxDecimals = 9

// Currency is the metadata for one code.
type Currency struct {
	Code     Code
	Name     string
	Symbol   string
	Kind     Kind
	Rate     float64 // USD value of one unit
	Decimals int
}

// Table is an immutable snapshot of known currencies and their rates.
type Table struct {
	byCode    map[Code]Currency
	updatedAt time.Time
}

// NewTable builds a snapshot from the given currencies. Codes must be
// unique across fiat and crypto, and every rate must be positive.
func NewTable(updatedAt time.Time, currencies ...Currency) (*Table, error) {
	t := &Table{
		byCode:    make(map[Code]Currency, len(currencies)),
		updatedAt: updatedAt,
	}
	for _, c := range currencies {
		if c.Code == "" {
			return nil, fmt.Errorf("%w: empty code", ErrInvalidCurrency)
		}
		if existing, ok := t.byCode[c.Code]; ok {
			return nil, fmt.Errorf("%w: %s listed as both %s and %s", ErrInvalidCurrency, c.Code, existing.Kind, c.Kind)
		}
		if err := checkRate(c.Code, c.Rate); err != nil {
			return nil, err
		}
		if c.Decimals < 0 || c.Decimals > maxDecimals {
			return nil, fmt.Errorf("%w: %s has %d decimals", ErrInvalidCurrency, c.Code, c.Decimals)
		}
		t.byCode[c.Code] = c
	}
	return t, nil
}

func checkRate(code Code, rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidRate, code, rate)
	}
	return nil
}

// UpdatedAt reports when the rates in this snapshot were captured.
func (t *Table) UpdatedAt() time.Time {
	return t.updatedAt
}

// IsKnown reports whether code is in the fiat or crypto table.
func (t *Table) IsKnown(code Code) bool {
	_, ok := t.byCode[code]
	return ok
}

// Validate returns code unchanged if it is known, ErrInvalidCurrency otherwise.
func (t *Table) Validate(code string) (Code, error) {
	c := Code(code)
	if !t.IsKnown(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

// Lookup returns the metadata for code.
func (t *Table) Lookup(code Code) (Currency, error) {
	c, ok := t.byCode[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

// Convert converts amount from one currency to another through the USD
// pivot. Converting a currency to itself returns amount untouched.
func (t *Table) Convert(amount float64, from, to Code) (float64, error) {
	src, err := t.Lookup(from)
	if err != nil {
		return 0, err
	}
	dst, err := t.Lookup(to)
	if err != nil {
		return 0, err
	}
	if from == to {
		return amount, nil
	}
	return amount * src.Rate / dst.Rate, nil
}

// Format renders the absolute value of amount at the currency's display
// precision with thousands separators. Fiat amounts carry their symbol as
// a prefix ("$1,234.50"); crypto amounts are suffixed with the code
// ("0.01500000 BTC"). Sign and "owes"/"gets" wording belong to callers.
func (t *Table) Format(amount float64, code Code) (string, error) {
	c, err := t.Lookup(code)
	if err != nil {
		return "", err
	}
	pattern := "#,###."
	if c.Decimals > 0 {
		pattern += strings.Repeat("#", c.Decimals)
	}
	number := humanize.FormatFloat(pattern, math.Abs(roundTo(amount, c.Decimals)))

	if c.Kind == Crypto {
		return number + " " + string(c.Code), nil
	}
	if isWordSymbol(c.Symbol) {
		return c.Symbol + " " + number, nil
	}
	return c.Symbol + number, nil
}

// isWordSymbol reports whether a symbol is made of letters ("CHF") and
// needs a space before the number.
func isWordSymbol(symbol string) bool {
	if len(symbol) < 2 {
		return false
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// roundTo rounds half away from zero on the shortest decimal form of amount,
// so 2.675 becomes 2.68 even though its binary value sits just below.
func roundTo(amount float64, decimals int) float64 {
	return decimal.NewFromFloat(amount).Round(int32(decimals)).InexactFloat64()
}

// Currencies returns the snapshot's currencies of the given kind sorted by
// code. An empty kind returns every currency.
func (t *Table) Currencies(kind Kind) []Currency {
	out := make([]Currency, 0, len(t.byCode))
	for _, c := range t.byCode {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Currency) int {
		return strings.Compare(string(a.Code), string(b.Code))
	})
	return out
}

// WithRates returns a new snapshot with the given rates replaced. Codes
// that are not already in the table are rejected; the receiver is left
// untouched.
func (t *Table) WithRates(rates map[Code]float64, updatedAt time.Time) (*Table, error) {
	next := &Table{
		byCode:    make(map[Code]Currency, len(t.byCode)),
		updatedAt: updatedAt,
	}
	for code, c := range t.byCode {
		next.byCode[code] = c
	}
	for code, rate := range rates {
		c, ok := next.byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
		if err := checkRate(code, rate); err != nil {
			return nil, err
		}
		c.Rate = rate
		next.byCode[code] = c
	}
	return next, nil
}
