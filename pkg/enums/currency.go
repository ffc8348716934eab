package enums

import "fmt"

// Currency represents the denominations the platform invoices in. Webhook
// payloads may carry other ISO codes; those are stored verbatim (uppercased)
// and only invoicing falls back to the platform default.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
)

// DefaultCurrency is assumed when an entity predates currency capture.
const DefaultCurrency = CurrencyEUR

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF:
		return true
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	currency := Currency(value)
	if !currency.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return currency, nil
}
