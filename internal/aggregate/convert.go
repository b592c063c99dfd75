// Package aggregate converts multi-currency amounts into one target currency
// and rolls them up by month and year.
//
// Everything here is a pure function of its inputs and a rate snapshot taken
// once per report; nothing fails and nothing is remembered between calls.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
	"moneytracker/internal/currency"
)

var one = decimal.NewFromInt(1)

// Converter converts amounts with a fixed rate snapshot.
type Converter struct {
	rates currency.Rates
}

// NewConverter returns a Converter over rates. A nil table behaves as if
// only the base currency were known.
func NewConverter(rates currency.Rates) *Converter {
	return &Converter{rates: rates}
}

// Rates returns the snapshot the converter uses.
func (c *Converter) Rates() currency.Rates {
	return c.rates
}

func (c *Converter) rate(cur core.Currency) (decimal.Decimal, bool) {
	r, ok := c.rates.Rate(cur)
	if !ok || !r.IsPositive() {
		return one, false
	}
	return r, true
}

// Convert returns amount expressed in to. Same-currency conversion is the
// identity. A currency missing from the table is treated as rate 1, and known
// is false so the caller can surface it.
func (c *Converter) Convert(amount decimal.Decimal, from, to core.Currency) (converted decimal.Decimal, known bool) {
	if from == to {
		return amount, true
	}
	fromRate, fromKnown := c.rate(from)
	toRate, toKnown := c.rate(to)
	return amount.Div(fromRate).Mul(toRate), fromKnown && toKnown
}

// Total is a sum in one currency plus the codes that fell back to rate 1.
type Total struct {
	Value   decimal.Decimal `json:"value"`
	Unknown []core.Currency `json:"unknown,omitempty"`
}

// SumInTarget converts every item to target and adds them up. An empty
// input sums to zero.
func (c *Converter) SumInTarget(items []core.Money, target core.Currency) Total {
	sum := decimal.Zero
	var unknown unknownSet
	for _, it := range items {
		v, known := c.Convert(it.Amount, it.Currency, target)
		if !known {
			unknown.add(it.Currency, target, c.rates)
		}
		sum = sum.Add(v)
	}
	return Total{Value: sum, Unknown: unknown.list()}
}

type unknownSet map[core.Currency]struct{}

// add records whichever of from and to is missing from rates.
func (u *unknownSet) add(from, to core.Currency, rates currency.Rates) {
	if *u == nil {
		*u = unknownSet{}
	}
	for _, cur := range []core.Currency{from, to} {
		if r, ok := rates.Rate(cur); !ok || !r.IsPositive() {
			(*u)[cur] = struct{}{}
		}
	}
}

func (u unknownSet) merge(list []core.Currency) unknownSet {
	if len(list) == 0 {
		return u
	}
	if u == nil {
		u = unknownSet{}
	}
	for _, cur := range list {
		u[cur] = struct{}{}
	}
	return u
}

func (u unknownSet) list() []core.Currency {
	if len(u) == 0 {
		return nil
	}
	out := make([]core.Currency, 0, len(u))
	for cur := range u {
		out = append(out, cur)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
