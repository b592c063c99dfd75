package aggregate

import (
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// Mode selects how a year's months collapse into one total.
type Mode int

const (
	// Snapshot uses the latest month of the year (net worth).
	Snapshot Mode = iota
	// Flow sums every month of the year (earnings, spending).
	Flow
)

func (m Mode) String() string {
	if m == Flow {
		return "flow"
	}
	return "snapshot"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// YearGroup is the rollup of one calendar year.
type YearGroup struct {
	Year        int             `json:"year"`
	Mode        Mode            `json:"mode"`
	Total       decimal.Decimal `json:"total"`
	LatestMonth int             `json:"latestMonth"`
	Months      []PeriodTotal   `json:"months"`
	Unknown     []core.Currency `json:"unknown,omitempty"`
	YoYChange   decimal.Decimal `json:"yoyChange"`
}

// GroupByYear buckets periods by year, most recent year first, months most
// recent first inside each year.
func GroupByYear(periods []PeriodTotal, mode Mode) []YearGroup {
	sorted := make([]PeriodTotal, len(periods))
	copy(sorted, periods)
	sortDescending(sorted)

	var groups []YearGroup
	for _, p := range sorted {
		n := len(groups)
		if n == 0 || groups[n-1].Year != p.Period.Year {
			groups = append(groups, YearGroup{
				Year:        p.Period.Year,
				Mode:        mode,
				LatestMonth: p.Period.Month,
			})
			n++
		}
		groups[n-1].Months = append(groups[n-1].Months, p)
	}

	for i := range groups {
		g := &groups[i]
		var unknown unknownSet
		for _, m := range g.Months {
			unknown = unknown.merge(m.Unknown)
		}
		g.Unknown = unknown.list()
		if mode == Snapshot {
			g.Total = g.Months[0].Total
		} else {
			g.Total = Sum(g.Months)
		}
	}
	return groups
}

// YearOverYear sets YoYChange on every group: the group total minus the
// value found under exact (year-1, month) keys of index. A missing key
// counts as zero, so a year without history compares against 0.
//
// Snapshot groups compare with (year-1, LatestMonth). Flow groups compare
// with the sum of (year-1, 1..12).
func YearOverYear(groups []YearGroup, index map[core.Period]decimal.Decimal) []YearGroup {
	out := make([]YearGroup, len(groups))
	copy(out, groups)
	for i := range out {
		g := &out[i]
		previous := decimal.Zero
		switch g.Mode {
		case Snapshot:
			previous = index[core.Period{Year: g.Year - 1, Month: g.LatestMonth}]
		case Flow:
			for m := 1; m <= 12; m++ {
				if v, ok := index[core.Period{Year: g.Year - 1, Month: m}]; ok {
					previous = previous.Add(v)
				}
			}
		}
		g.YoYChange = g.Total.Sub(previous)
	}
	return out
}

// Rollup is MonthOverMonth, GroupByYear and YearOverYear over one series.
func Rollup(periods []PeriodTotal, mode Mode) ([]PeriodTotal, []YearGroup) {
	withMoM := MonthOverMonth(periods)
	years := YearOverYear(GroupByYear(withMoM, mode), IndexPeriods(withMoM))
	return withMoM, years
}
