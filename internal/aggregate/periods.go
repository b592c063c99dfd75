package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// PeriodTotal is the converted total of the entries in one month.
type PeriodTotal struct {
	Period     core.Period     `json:"period"`
	Total      decimal.Decimal `json:"total"`
	EntryCount int             `json:"entryCount"`
	Unknown    []core.Currency `json:"unknown,omitempty"`
	// MoMChange is nil for the oldest period.
	MoMChange *decimal.Decimal `json:"momChange"`
}

// BuildPeriodTotals groups entries by month, sums each group in target and
// returns the groups most recent first.
func (c *Converter) BuildPeriodTotals(entries []core.MoneyEntry, target core.Currency) []PeriodTotal {
	groups := make(map[core.Period][]core.Money)
	for _, e := range entries {
		groups[e.Period] = append(groups[e.Period], e.Money())
	}

	out := make([]PeriodTotal, 0, len(groups))
	for p, items := range groups {
		total := c.SumInTarget(items, target)
		out = append(out, PeriodTotal{
			Period:     p,
			Total:      total.Value,
			EntryCount: len(items),
			Unknown:    total.Unknown,
		})
	}
	sortDescending(out)
	return out
}

func sortDescending(periods []PeriodTotal) {
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Period.Compare(periods[j].Period) > 0
	})
}

// MonthOverMonth annotates periods, ordered most recent first, with the
// difference to the next (older) element. The last element gets nil.
func MonthOverMonth(periods []PeriodTotal) []PeriodTotal {
	out := make([]PeriodTotal, len(periods))
	copy(out, periods)
	for i := range out {
		if i+1 < len(out) {
			d := out[i].Total.Sub(out[i+1].Total)
			out[i].MoMChange = &d
		} else {
			out[i].MoMChange = nil
		}
	}
	return out
}

// IndexPeriods maps each period to its total for exact-key lookups.
func IndexPeriods(periods []PeriodTotal) map[core.Period]decimal.Decimal {
	idx := make(map[core.Period]decimal.Decimal, len(periods))
	for _, p := range periods {
		idx[p.Period] = p.Total
	}
	return idx
}

// Sum adds up the totals of periods.
func Sum(periods []PeriodTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range periods {
		sum = sum.Add(p.Total)
	}
	return sum
}
