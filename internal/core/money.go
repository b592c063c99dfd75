// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values so conversions and sums never go through
// binary floating point.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an amount in a given currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney builds a Money value.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Validate checks the amount is not negative and the currency is well formed.
func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !m.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	return nil
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + string(m.Currency)
}

// ParseAmount converts a decimal string to a non-negative decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and thousands separators are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		if p == "" {
			return decimal.Zero, ErrInvalidAmount
		}
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount that also rejects zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
