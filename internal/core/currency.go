package core

import (
	"strings"
)

// Currency is an ISO 4217 style three letter code.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
)

// BaseCurrency anchors every stored exchange rate. It is never persisted and
// always has a rate of 1.
const BaseCurrency = EUR

// DefaultDisplayCurrency is used until the user picks one.
const DefaultDisplayCurrency = EUR

var supportedCurrencies = []Currency{EUR, USD, GBP}

// SupportedCurrencies returns the currencies that can be selected for display
// and that are fetched from the rate provider.
func SupportedCurrencies() []Currency {
	return append([]Currency(nil), supportedCurrencies...)
}

// NonBaseCurrencies returns the supported currencies except the base.
func NonBaseCurrencies() []Currency {
	out := make([]Currency, 0, len(supportedCurrencies)-1)
	for _, c := range supportedCurrencies {
		if c != BaseCurrency {
			out = append(out, c)
		}
	}
	return out
}

// IsSupported reports whether c is one of the selectable currencies.
func (c Currency) IsSupported() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// IsValid reports whether c looks like a currency code (three upper-case letters).
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes s and checks it is a well formed code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

// ParseSupportedCurrency is ParseCurrency restricted to SupportedCurrencies.
func ParseSupportedCurrency(s string) (Currency, error) {
	c, err := ParseCurrency(s)
	if err != nil {
		return "", err
	}
	if !c.IsSupported() {
		return "", ErrUnsupportedCurrency
	}
	return c, nil
}
