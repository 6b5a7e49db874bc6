package currency

import "time"

// USD is the pivot currency; its rate is always 1.
const USD Code = "USD"

var fiatCurrencies = []Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$", Kind: Fiat, Rate: 1, Decimals: 2},
	{Code: "EUR", Name: "Euro", Symbol: "€", Kind: Fiat, Rate: 1.087, Decimals: 2},
	{Code: "GBP", Name: "British Pound", Symbol: "£", Kind: Fiat, Rate: 1.27, Decimals: 2},
	{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Kind: Fiat, Rate: 0.0067, Decimals: 0},
	{Code: "INR", Name: "Indian Rupee", Symbol: "₹", Kind: Fiat, Rate: 0.012, Decimals: 2},
	{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$", Kind: Fiat, Rate: 0.73, Decimals: 2},
	{Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Kind: Fiat, Rate: 0.66, Decimals: 2},
	{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF", Kind: Fiat, Rate: 1.13, Decimals: 2},
	{Code: "CNY", Name: "Chinese Yuan", Symbol: "CN¥", Kind: Fiat, Rate: 0.138, Decimals: 2},
}

var cryptoCurrencies = []Currency{
	{Code: "BTC", Name: "Bitcoin", Symbol: "₿", Kind: Crypto, Rate: 65000, Decimals: 8},
	{Code: "ETH", Name: "Ethereum", Symbol: "Ξ", Kind: Crypto, Rate: 3200, Decimals: 6},
	{Code: "USDT", Name: "Tether", Symbol: "₮", Kind: Crypto, Rate: 1, Decimals: 2},
	{Code: "SOL", Name: "Solana", Symbol: "◎", Kind: Crypto, Rate: 150, Decimals: 4},
}

// DefaultTable returns the built-in static rate table.
func DefaultTable() *Table {
	all := make([]Currency, 0, len(fiatCurrencies)+len(cryptoCurrencies))
	all = append(all, fiatCurrencies...)
	all = append(all, cryptoCurrencies...)

	t, err := NewTable(time.Time{}, all...)
	if err != nil {
		panic("currency: invalid built-in table: " + err.Error())
	}
	return t
}
