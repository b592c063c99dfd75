package sheets

import (
	"context"
	"fmt"
	"strconv"

	"moneytracker/internal/aggregate"
	"moneytracker/internal/core"
)

// Rollup is one yearly report ready to be written to a spreadsheet tab.
type Rollup struct {
	// Name is the tab title, e.g. "Earnings".
	Name     string
	Currency core.Currency
	Years    []aggregate.YearGroup
}

// Ports for outbound adapters.
type (
	RollupWriter interface {
		// WriteRollup replaces the tab named after the rollup and returns the
		// range that was written.
		WriteRollup(ctx context.Context, r Rollup) (writtenRange string, err error)
	}
)

// Header is the first row of every exported tab. The total column is
// suffixed with the report currency when known.
var Header = []string{"year", "month", "total", "mom", "entries"}

// Rows flattens a rollup into spreadsheet rows. Each year contributes its
// months, most recent first, followed by a summary row whose month cell is
// "total" and whose change cell holds the year-over-year delta.
func Rows(r Rollup) [][]string {
	header := append([]string(nil), Header...)
	if r.Currency != "" {
		header[2] = fmt.Sprintf("total (%s)", r.Currency)
	}
	rows := [][]string{header}
	for _, y := range r.Years {
		year := strconv.Itoa(y.Year)
		entries := 0
		for _, m := range y.Months {
			mom := ""
			if m.MoMChange != nil {
				mom = m.MoMChange.StringFixed(2)
			}
			rows = append(rows, []string{
				year,
				fmt.Sprintf("%02d", m.Period.Month),
				m.Total.StringFixed(2),
				mom,
				strconv.Itoa(m.EntryCount),
			})
			entries += m.EntryCount
		}
		rows = append(rows, []string{year, "total", y.Total.StringFixed(2), y.YoYChange.StringFixed(2), strconv.Itoa(entries)})
	}
	return rows
}
