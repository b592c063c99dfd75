package aggregate

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
	"moneytracker/internal/currency"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRates() currency.Rates {
	return currency.NewRates([]core.ExchangeRate{
		{Currency: core.USD, Rate: dec("1.1")},
		{Currency: core.GBP, Rate: dec("0.85")},
	})
}

var tolerance = dec("0.000000001")

func assertClose(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThan(tolerance), "want %s, got %s", want, got)
}

func TestConvert_Identity(t *testing.T) {
	c := NewConverter(testRates())
	for _, cur := range []core.Currency{core.EUR, core.USD, core.GBP, "CHF"} {
		for _, amount := range []string{"0", "1", "12.34", "99999.99"} {
			got, known := c.Convert(dec(amount), cur, cur)
			assert.True(t, got.Equal(dec(amount)))
			assert.True(t, known)
		}
	}
}

func TestConvert_Transitive(t *testing.T) {
	c := NewConverter(testRates())
	codes := []core.Currency{core.EUR, core.USD, core.GBP}
	amount := dec("123.45")

	for _, a := range codes {
		for _, b := range codes {
			for _, z := range codes {
				viaB, _ := c.Convert(amount, a, b)
				twoStep, _ := c.Convert(viaB, b, z)
				direct, _ := c.Convert(amount, a, z)
				assertClose(t, direct, twoStep)
			}
		}
	}
}

func TestConvert_ThroughBase(t *testing.T) {
	c := NewConverter(testRates())

	got, known := c.Convert(dec("110"), core.USD, core.EUR)
	assert.True(t, known)
	assertClose(t, dec("100"), got)

	got, known = c.Convert(dec("100"), core.EUR, core.GBP)
	assert.True(t, known)
	assertClose(t, dec("85"), got)

	got, _ = c.Convert(dec("110"), core.USD, core.GBP)
	assertClose(t, dec("85"), got)
}

func TestConvert_UnknownCurrencyFallsBackToOne(t *testing.T) {
	c := NewConverter(testRates())

	got, known := c.Convert(dec("50"), "CHF", core.EUR)
	assert.False(t, known)
	assert.True(t, got.Equal(dec("50")))

	got, known = c.Convert(dec("50"), "CHF", core.USD)
	assert.False(t, known)
	assertClose(t, dec("55"), got)

	got, known = c.Convert(dec("50"), core.EUR, core.USD)
	assert.True(t, known)
	assertClose(t, dec("55"), got)
}

func TestConvert_NilRates(t *testing.T) {
	c := NewConverter(nil)

	got, known := c.Convert(dec("10"), core.USD, core.EUR)
	assert.False(t, known)
	assert.True(t, got.Equal(dec("10")))
}

func TestSumInTarget(t *testing.T) {
	c := NewConverter(testRates())

	t.Run("empty input is zero", func(t *testing.T) {
		for _, cur := range core.SupportedCurrencies() {
			total := c.SumInTarget(nil, cur)
			assert.True(t, total.Value.IsZero())
			assert.Empty(t, total.Unknown)
		}
	})

	t.Run("mixed currencies into EUR", func(t *testing.T) {
		total := c.SumInTarget([]core.Money{
			{Amount: dec("100"), Currency: core.USD},
			{Amount: dec("85"), Currency: core.GBP},
		}, core.EUR)

		assert.Equal(t, "190.91", total.Value.StringFixed(2))
		assert.Empty(t, total.Unknown)
	})

	t.Run("unknown currencies are reported once", func(t *testing.T) {
		total := c.SumInTarget([]core.Money{
			{Amount: dec("10"), Currency: "CHF"},
			{Amount: dec("10"), Currency: "CHF"},
			{Amount: dec("5"), Currency: "JPY"},
			{Amount: dec("1"), Currency: core.EUR},
		}, core.EUR)

		assert.True(t, total.Value.Equal(dec("26")))
		assert.Equal(t, []core.Currency{"CHF", "JPY"}, total.Unknown)
	})
}

func TestSumInTarget_OrderInvariant(t *testing.T) {
	c := NewConverter(testRates())
	items := []core.Money{
		{Amount: dec("100"), Currency: core.USD},
		{Amount: dec("85"), Currency: core.GBP},
		{Amount: dec("12.34"), Currency: core.EUR},
		{Amount: dec("0.01"), Currency: core.USD},
		{Amount: dec("7777.77"), Currency: core.GBP},
	}
	want := c.SumInTarget(items, core.USD).Value

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]core.Money(nil), items...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assertClose(t, want, c.SumInTarget(shuffled, core.USD).Value)
	}
}

func entry(amount string, cur core.Currency, year, month int) core.MoneyEntry {
	return core.MoneyEntry{Amount: dec(amount), Currency: cur, Period: core.Period{Year: year, Month: month}}
}

func TestBuildPeriodTotals(t *testing.T) {
	c := NewConverter(testRates())
	periods := c.BuildPeriodTotals([]core.MoneyEntry{
		entry("100", core.EUR, 2024, 1),
		entry("110", core.USD, 2024, 3),
		entry("50", core.EUR, 2023, 12),
		entry("85", core.GBP, 2024, 3),
		entry("5", "CHF", 2024, 1),
	}, core.EUR)

	require.Len(t, periods, 3)
	assert.Equal(t, core.Period{Year: 2024, Month: 3}, periods[0].Period)
	assert.Equal(t, core.Period{Year: 2024, Month: 1}, periods[1].Period)
	assert.Equal(t, core.Period{Year: 2023, Month: 12}, periods[2].Period)

	assertClose(t, dec("200"), periods[0].Total)
	assert.Equal(t, 2, periods[0].EntryCount)
	assert.True(t, periods[1].Total.Equal(dec("105")))
	assert.Equal(t, []core.Currency{"CHF"}, periods[1].Unknown)
	assert.Nil(t, periods[0].MoMChange)
}

func periodTotal(year, month int, total string) PeriodTotal {
	return PeriodTotal{Period: core.Period{Year: year, Month: month}, Total: dec(total)}
}

func TestMonthOverMonth(t *testing.T) {
	periods := []PeriodTotal{
		periodTotal(2024, 3, "300"),
		periodTotal(2024, 2, "200"),
		periodTotal(2024, 1, "250"),
	}

	got := MonthOverMonth(periods)

	require.Len(t, got, 3)
	require.NotNil(t, got[0].MoMChange)
	require.NotNil(t, got[1].MoMChange)
	assert.True(t, got[0].MoMChange.Equal(dec("100")))
	assert.True(t, got[1].MoMChange.Equal(dec("-50")))
	assert.Nil(t, got[2].MoMChange)
	assert.Nil(t, periods[0].MoMChange, "input must not be modified")
}

func TestMonthOverMonth_EmptyAndSingle(t *testing.T) {
	assert.Empty(t, MonthOverMonth(nil))

	got := MonthOverMonth([]PeriodTotal{periodTotal(2024, 1, "1")})
	assert.Nil(t, got[0].MoMChange)
}

func TestGroupByYear(t *testing.T) {
	periods := []PeriodTotal{
		periodTotal(2023, 11, "10"),
		periodTotal(2024, 2, "200"),
		periodTotal(2024, 5, "500"),
		periodTotal(2023, 12, "20"),
	}

	t.Run("snapshot uses the latest month", func(t *testing.T) {
		groups := GroupByYear(periods, Snapshot)
		require.Len(t, groups, 2)
		assert.Equal(t, 2024, groups[0].Year)
		assert.Equal(t, 5, groups[0].LatestMonth)
		assert.True(t, groups[0].Total.Equal(dec("500")))
		assert.Equal(t, 2023, groups[1].Year)
		assert.Equal(t, 12, groups[1].LatestMonth)
		assert.True(t, groups[1].Total.Equal(dec("20")))
		assert.Equal(t, 5, groups[0].Months[0].Period.Month)
		assert.Equal(t, 2, groups[0].Months[1].Period.Month)
	})

	t.Run("flow sums the months", func(t *testing.T) {
		groups := GroupByYear(periods, Flow)
		require.Len(t, groups, 2)
		assert.True(t, groups[0].Total.Equal(dec("700")))
		assert.True(t, groups[1].Total.Equal(dec("30")))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, GroupByYear(nil, Flow))
	})
}

func TestYearOverYear_NoPriorYearEqualsTotal(t *testing.T) {
	periods := []PeriodTotal{
		periodTotal(2024, 6, "600"),
		periodTotal(2024, 1, "100"),
	}
	for _, mode := range []Mode{Snapshot, Flow} {
		t.Run(mode.String(), func(t *testing.T) {
			groups := YearOverYear(GroupByYear(periods, mode), IndexPeriods(periods))
			require.Len(t, groups, 1)
			assert.True(t, groups[0].YoYChange.Equal(groups[0].Total))
		})
	}
}

func TestYearOverYear_SnapshotUsesExactMonth(t *testing.T) {
	periods := []PeriodTotal{
		periodTotal(2024, 6, "1000"),
		periodTotal(2023, 12, "900"),
		periodTotal(2023, 6, "700"),
		periodTotal(2022, 12, "400"),
	}

	groups := YearOverYear(GroupByYear(periods, Snapshot), IndexPeriods(periods))

	require.Len(t, groups, 3)
	// 2024-06 vs 2023-06
	assert.True(t, groups[0].YoYChange.Equal(dec("300")))
	// 2023-12 vs 2022-12
	assert.True(t, groups[1].YoYChange.Equal(dec("500")))
	// 2022-12 vs missing 2021-12
	assert.True(t, groups[2].YoYChange.Equal(dec("400")))
}

func TestYearOverYear_SnapshotMissingSameMonthCountsAsZero(t *testing.T) {
	periods := []PeriodTotal{
		periodTotal(2024, 3, "1000"),
		periodTotal(2023, 12, "900"),
	}

	groups := YearOverYear(GroupByYear(periods, Snapshot), IndexPeriods(periods))

	assert.True(t, groups[0].YoYChange.Equal(dec("1000")))
}

func TestYearOverYear_FlowSumsPriorYear(t *testing.T) {
	periods := []PeriodTotal{
		periodTotal(2024, 2, "50"),
		periodTotal(2024, 1, "50"),
		periodTotal(2023, 12, "30"),
		periodTotal(2023, 6, "20"),
	}

	groups := YearOverYear(GroupByYear(periods, Flow), IndexPeriods(periods))

	require.Len(t, groups, 2)
	assert.True(t, groups[0].YoYChange.Equal(dec("50")))
	assert.True(t, groups[1].YoYChange.Equal(dec("50")))
}

func TestRollup(t *testing.T) {
	c := NewConverter(testRates())
	periods := c.BuildPeriodTotals([]core.MoneyEntry{
		entry("300", core.EUR, 2024, 3),
		entry("200", core.EUR, 2024, 2),
		entry("250", core.EUR, 2024, 1),
		entry("100", core.EUR, 2023, 3),
		entry("7", "CHF", 2023, 3),
	}, core.EUR)

	months, years := Rollup(periods, Flow)

	require.Len(t, months, 4)
	assert.True(t, months[0].MoMChange.Equal(dec("100")))
	require.Len(t, years, 2)
	assert.True(t, years[0].Total.Equal(dec("750")))
	assert.True(t, years[0].YoYChange.Equal(dec("643")))
	assert.Equal(t, []core.Currency{"CHF"}, years[1].Unknown)
	assert.Empty(t, years[0].Unknown)
	assert.Equal(t, "flow", years[0].Mode.String())
}
