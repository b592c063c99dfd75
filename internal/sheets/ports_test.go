package sheets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/aggregate"
	"moneytracker/internal/core"
)

func TestRows(t *testing.T) {
	mom := decimal.NewFromInt(-25)
	r := Rollup{
		Name:     "Earnings",
		Currency: core.EUR,
		Years: []aggregate.YearGroup{
			{
				Year:      2024,
				Mode:      aggregate.Flow,
				Total:     decimal.NewFromInt(175),
				YoYChange: decimal.NewFromInt(75),
				Months: []aggregate.PeriodTotal{
					{Period: core.Period{Year: 2024, Month: 2}, Total: decimal.NewFromInt(75), EntryCount: 1, MoMChange: &mom},
					{Period: core.Period{Year: 2024, Month: 1}, Total: decimal.NewFromInt(100), EntryCount: 2},
				},
			},
		},
	}

	rows := Rows(r)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"year", "month", "total (EUR)", "mom", "entries"}, rows[0])
	assert.Equal(t, []string{"2024", "02", "75.00", "-25.00", "1"}, rows[1])
	assert.Equal(t, []string{"2024", "01", "100.00", "", "2"}, rows[2])
	assert.Equal(t, []string{"2024", "total", "175.00", "75.00", "3"}, rows[3])
}

func TestRows_Empty(t *testing.T) {
	rows := Rows(Rollup{Name: "Balances"})
	assert.Equal(t, [][]string{Header}, rows)

	rows[0][0] = "changed"
	assert.Equal(t, "year", Header[0])
}
