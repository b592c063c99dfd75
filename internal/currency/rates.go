// Package currency keeps the persisted exchange rate table fresh and resolves
// the user's display currency.
//
// All rates are expressed against core.BaseCurrency. The base itself is never
// stored and always appears with rate 1 in a Rates value.
package currency

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

var (
	// ErrNoRates is returned by a provider that answered without any usable rate.
	ErrNoRates = errors.New("provider returned no rates")
	// ErrProviderStatus is returned when the provider answers with a non-2xx status.
	ErrProviderStatus = errors.New("unexpected provider status")
)

// Rates maps a currency to the number of its units per one base unit.
type Rates map[core.Currency]decimal.Decimal

// NewRates builds a table from persisted rows and adds the base currency.
func NewRates(rows []core.ExchangeRate) Rates {
	r := make(Rates, len(rows)+1)
	for _, row := range rows {
		r[row.Currency] = row.Rate
	}
	r[core.BaseCurrency] = decimal.NewFromInt(1)
	return r
}

// Rate returns the rate for c and whether it is known.
func (r Rates) Rate(c core.Currency) (decimal.Decimal, bool) {
	if c == core.BaseCurrency {
		return decimal.NewFromInt(1), true
	}
	rate, ok := r[c]
	return rate, ok
}

// Currencies returns the codes in the table, sorted.
func (r Rates) Currencies() []core.Currency {
	out := make([]core.Currency, 0, len(r))
	for c := range r {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RateStore persists exchange rates, one row per currency.
type RateStore interface {
	ListExchangeRates(ctx context.Context) ([]core.ExchangeRate, error)
	// UpsertExchangeRate inserts the row or overwrites the one with the same currency.
	UpsertExchangeRate(ctx context.Context, rate core.ExchangeRate) error
}

// SettingsStore is a key/value table.
type SettingsStore interface {
	// GetSetting reports found=false when the key does not exist.
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// Provider fetches current rates for symbols, anchored on base, in one call.
type Provider interface {
	Latest(ctx context.Context, base core.Currency, symbols []core.Currency) (map[core.Currency]decimal.Decimal, error)
}
