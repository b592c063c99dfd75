package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
	"moneytracker/internal/currency"
	"moneytracker/internal/sheets"
	sheetsmemory "moneytracker/internal/sheets/memory"
	"moneytracker/internal/store"
	"moneytracker/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedRates serves a constant table and counts snapshots.
type fixedRates struct {
	rates     currency.Rates
	snapshots atomic.Int32
	err       error
}

func (f *fixedRates) Snapshot(context.Context) (currency.Rates, error) {
	f.snapshots.Add(1)
	return f.rates, f.err
}

func testRates() *fixedRates {
	return &fixedRates{rates: currency.Rates{core.EUR: decimal.NewFromInt(1), core.USD: dec("1.1"), core.GBP: dec("0.8")}}
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	rates   *fixedRates
	reports *ReportService
	entries *EntryService
	refs    *ReferenceService
	source  core.EarningSource
	food    core.SpendingCategory
	bank    core.Account
	broker  core.Account
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	f := &fixture{ctx: ctx, store: s, rates: testRates()}
	f.reports = NewReportService(s, f.rates, currency.NewSettings(s, nil), nil, WithNow(func() time.Time { return now }))
	f.entries = NewEntryService(s, nil)
	f.refs = NewReferenceService(s, nil)

	var err error
	f.source, err = f.refs.CreateSource(ctx, core.EarningSource{Name: "Job", Slug: "job", Color: "#00aa00", IsActive: true})
	require.NoError(t, err)
	f.food, err = f.refs.CreateCategory(ctx, core.SpendingCategory{Name: "Food", Slug: "food", Color: "#aa0000", IsActive: true})
	require.NoError(t, err)
	f.bank, err = f.refs.CreateAccount(ctx, core.Account{Name: "Bank", Slug: "bank", IsActive: true})
	require.NoError(t, err)
	f.broker, err = f.refs.CreateAccount(ctx, core.Account{Name: "Broker", Slug: "broker", Currency: core.USD, Type: core.AccountInvestment, IsActive: true})
	require.NoError(t, err)
	return f
}

func (f *fixture) earn(t *testing.T, amount string, cur core.Currency, date core.Date) core.Earning {
	t.Helper()
	e, err := f.entries.CreateEarning(f.ctx, core.Earning{SourceID: f.source.ID, Amount: dec(amount), Currency: cur, Date: date})
	require.NoError(t, err)
	return e
}

func (f *fixture) spend(t *testing.T, amount string, cur core.Currency, date core.Date) core.Spending {
	t.Helper()
	sp, err := f.entries.CreateSpending(f.ctx, core.Spending{CategoryID: f.food.ID, Amount: dec(amount), Currency: cur, Date: date})
	require.NoError(t, err)
	return sp
}

func (f *fixture) balance(t *testing.T, year, month int, amounts map[int64]decimal.Decimal) {
	t.Helper()
	require.NoError(t, f.reports.SaveMonthlyBalances(f.ctx, core.Period{Year: year, Month: month}, amounts))
}

var march2024 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestReportService_EarningsFlowRollup(t *testing.T) {
	f := newFixture(t, march2024)
	f.earn(t, "100", core.EUR, core.NewDate(2023, 3, 1))
	f.earn(t, "110", core.USD, core.NewDate(2024, 3, 2))
	f.earn(t, "50", core.EUR, core.NewDate(2024, 1, 20))

	report, err := f.reports.Earnings(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, core.EUR, report.Currency)
	require.Len(t, report.Periods, 3)
	assert.Equal(t, core.Period{Year: 2024, Month: 3}, report.Periods[0].Period)
	assert.True(t, report.Periods[0].Total.Equal(decimal.NewFromInt(100)), report.Periods[0].Total.String())
	require.NotNil(t, report.Periods[0].MoMChange)
	assert.True(t, report.Periods[0].MoMChange.Equal(decimal.NewFromInt(50)))
	assert.Nil(t, report.Periods[2].MoMChange)
	assert.Equal(t, []string{"#00aa00"}, report.Periods[0].Colors)

	require.Len(t, report.Years, 2)
	assert.Equal(t, 2024, report.Years[0].Year)
	assert.True(t, report.Years[0].Total.Equal(decimal.NewFromInt(150)))
	assert.True(t, report.Years[0].YoYChange.Equal(decimal.NewFromInt(50)))
	assert.True(t, report.Years[1].YoYChange.Equal(decimal.NewFromInt(100)), "a year without history compares against zero")
	assert.Empty(t, report.Unknown)
	assert.EqualValues(t, 1, f.rates.snapshots.Load(), "one snapshot per report")
}

func TestReportService_SpendingInDisplayCurrency(t *testing.T) {
	f := newFixture(t, march2024)
	_, err := currency.NewSettings(f.store, nil).SetDisplayCurrency(f.ctx, "USD")
	require.NoError(t, err)
	f.spend(t, "10", core.EUR, core.NewDate(2024, 2, 1))
	f.spend(t, "8", core.GBP, core.NewDate(2024, 2, 3))

	report, err := f.reports.Spending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, core.USD, report.Currency)
	require.Len(t, report.Periods, 1)
	// 10 EUR = 11 USD, 8 GBP = 10 EUR = 11 USD
	assert.True(t, report.Periods[0].Total.Equal(decimal.NewFromInt(22)), report.Periods[0].Total.String())
	assert.Equal(t, 2, report.Periods[0].EntryCount)
}

func TestReportService_UnknownCurrencyIsReported(t *testing.T) {
	f := newFixture(t, march2024)
	f.earn(t, "100", "CHF", core.NewDate(2024, 3, 1))

	report, err := f.reports.Earnings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Currency{"CHF"}, report.Unknown)
	assert.True(t, report.Periods[0].Total.Equal(decimal.NewFromInt(100)), "unknown rates fall back to 1")
}

func TestReportService_BalancesSnapshotRollup(t *testing.T) {
	f := newFixture(t, march2024)
	f.balance(t, 2023, 12, map[int64]decimal.Decimal{f.bank.ID: dec("1000")})
	f.balance(t, 2024, 1, map[int64]decimal.Decimal{f.bank.ID: dec("1200")})
	f.balance(t, 2024, 2, map[int64]decimal.Decimal{f.bank.ID: dec("1000"), f.broker.ID: dec("110")})

	report, err := f.reports.Balances(f.ctx)
	require.NoError(t, err)
	require.Len(t, report.Periods, 3)
	assert.True(t, report.Periods[0].Total.Equal(decimal.NewFromInt(1100)), report.Periods[0].Total.String())

	require.Len(t, report.Years, 2)
	y2024 := report.Years[0]
	assert.Equal(t, 2, y2024.LatestMonth)
	assert.True(t, y2024.Total.Equal(decimal.NewFromInt(1100)))
	// No (2023, 2) snapshot, so the whole total is the change.
	assert.True(t, y2024.YoYChange.Equal(decimal.NewFromInt(1100)))
}

func TestReportService_Dashboard(t *testing.T) {
	f := newFixture(t, march2024)
	f.balance(t, 2024, 2, map[int64]decimal.Decimal{f.bank.ID: dec("1000")})
	f.balance(t, 2024, 3, map[int64]decimal.Decimal{f.bank.ID: dec("1200"), f.broker.ID: dec("55")})

	f.earn(t, "3000", core.EUR, core.NewDate(2024, 3, 1))
	f.earn(t, "1000", core.EUR, core.NewDate(2024, 1, 1))
	f.earn(t, "999", core.EUR, core.NewDate(2023, 12, 31))
	f.spend(t, "200", core.EUR, core.NewDate(2024, 3, 5))
	f.spend(t, "22", core.USD, core.NewDate(2024, 2, 5))

	d, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, core.Period{Year: 2024, Month: 3}, d.Period)
	assert.True(t, d.NetWorth.Equal(decimal.NewFromInt(1250)), d.NetWorth.String())
	require.NotNil(t, d.NetWorthPeriod)
	assert.True(t, d.MonthlyChange.Equal(decimal.NewFromInt(250)))
	assert.True(t, d.MonthEarnings.Equal(decimal.NewFromInt(3000)))
	assert.True(t, d.MonthSpending.Equal(decimal.NewFromInt(200)))
	assert.True(t, d.NetIncome.Equal(decimal.NewFromInt(2800)))
	assert.True(t, d.YearEarnings.Equal(decimal.NewFromInt(4000)))
	assert.True(t, d.YearSpending.Equal(decimal.NewFromInt(220)))
	assert.Len(t, d.RecentEarnings, 3)
	assert.Len(t, d.RecentSpending, 2)
}

func TestReportService_DashboardMonthlyChangeNeedsPreviousMonth(t *testing.T) {
	f := newFixture(t, march2024)
	f.balance(t, 2023, 12, map[int64]decimal.Decimal{f.bank.ID: dec("500")})
	f.balance(t, 2024, 3, map[int64]decimal.Decimal{f.bank.ID: dec("900")})

	d, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.True(t, d.NetWorth.Equal(decimal.NewFromInt(900)))
	assert.True(t, d.MonthlyChange.IsZero(), "February has no rows")
}

func TestReportService_DashboardEmpty(t *testing.T) {
	f := newFixture(t, march2024)
	d, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.True(t, d.NetWorth.IsZero())
	assert.Nil(t, d.NetWorthPeriod)
	assert.Empty(t, d.RecentEarnings)
}

func TestReportService_SnapshotFailurePropagates(t *testing.T) {
	f := newFixture(t, march2024)
	f.rates.err = errors.New("disk gone")
	_, err := f.reports.Earnings(f.ctx)
	assert.Error(t, err)
}

func TestReportService_MonthDetail(t *testing.T) {
	f := newFixture(t, march2024)
	f.earn(t, "11", core.USD, core.NewDate(2024, 3, 2))
	f.earn(t, "5", core.EUR, core.NewDate(2024, 3, 9))
	f.earn(t, "1", core.EUR, core.NewDate(2024, 4, 1))

	month, err := f.reports.EarningsMonth(f.ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, month.Entries, 2)
	assert.Equal(t, "2024-03-09", month.Entries[0].Date.String())
	assert.True(t, month.Total.Value.Equal(decimal.NewFromInt(15)))

	f.spend(t, "4", core.EUR, core.NewDate(2024, 3, 3))
	spending, err := f.reports.SpendingMonth(f.ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Len(t, spending.Entries, 1)
	assert.Equal(t, "Food", spending.Entries[0].CategoryName)

	_, err = f.reports.EarningsMonth(f.ctx, core.Period{Year: 2024, Month: 13})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestReportService_SaveMonthlyBalancesAndSheet(t *testing.T) {
	f := newFixture(t, march2024)
	cash, err := f.refs.CreateAccount(f.ctx, core.Account{Name: "Cash", Slug: "cash", Type: core.AccountCash, IsActive: false})
	require.NoError(t, err)

	f.balance(t, 2024, 2, map[int64]decimal.Decimal{f.bank.ID: dec("100"), f.broker.ID: dec("22")})
	f.balance(t, 2024, 3, map[int64]decimal.Decimal{f.bank.ID: dec("150")})

	march, err := f.store.ListBalancesByPeriod(f.ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, march, 2, "one row per active account")

	sheet, err := f.reports.BalanceSheet(f.ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 2)
	for _, row := range sheet.Rows {
		require.NotNil(t, row.Amount)
		require.NotNil(t, row.Previous)
		if row.Account.ID == f.broker.ID {
			assert.True(t, row.Amount.IsZero(), "missing accounts are saved as zero")
			assert.True(t, row.Previous.Equal(decimal.NewFromInt(22)))
		}
	}
	assert.True(t, sheet.Total.Value.Equal(decimal.NewFromInt(150)))

	err = f.reports.SaveMonthlyBalances(f.ctx, core.Period{Year: 2024, Month: 3}, map[int64]decimal.Decimal{cash.ID: dec("1")})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amounts."+itoa(cash.ID))

	err = f.reports.SaveMonthlyBalances(f.ctx, core.Period{Year: 2024, Month: 3}, map[int64]decimal.Decimal{f.bank.ID: dec("-1")})
	assert.ErrorIs(t, err, core.ErrValidation)
}

// batchCountingStore records each balance batch and can reject it.
type batchCountingStore struct {
	*memory.Store
	batches [][]core.MonthlyBalance
	err     error
}

func (s *batchCountingStore) UpsertBalances(ctx context.Context, balances []core.MonthlyBalance) error {
	s.batches = append(s.batches, balances)
	if s.err != nil {
		return s.err
	}
	return s.Store.UpsertBalances(ctx, balances)
}

func TestReportService_SaveMonthlyBalancesWritesOneBatch(t *testing.T) {
	f := newFixture(t, march2024)
	counting := &batchCountingStore{Store: f.store}
	reports := NewReportService(counting, f.rates, currency.NewSettings(f.store, nil), nil, WithNow(func() time.Time { return march2024 }))
	p := core.Period{Year: 2024, Month: 3}

	require.NoError(t, reports.SaveMonthlyBalances(f.ctx, p, map[int64]decimal.Decimal{f.bank.ID: dec("10")}))
	require.Len(t, counting.batches, 1)
	assert.Len(t, counting.batches[0], 2, "every active account in a single batch")

	counting.err = errors.New("disk full")
	err := reports.SaveMonthlyBalances(f.ctx, core.Period{Year: 2024, Month: 4}, map[int64]decimal.Decimal{f.bank.ID: dec("20")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	april, err := f.store.ListBalancesByPeriod(f.ctx, core.Period{Year: 2024, Month: 4})
	require.NoError(t, err)
	assert.Empty(t, april)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestEntryService_Validation(t *testing.T) {
	f := newFixture(t, march2024)

	_, err := f.entries.CreateEarning(f.ctx, core.Earning{SourceID: f.source.ID, Amount: dec("0"), Currency: core.EUR, Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.entries.CreateEarning(f.ctx, core.Earning{SourceID: 999, Amount: dec("1"), Currency: core.EUR, Date: core.NewDate(2024, 1, 1)})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source not found", verr.Fields["sourceId"])

	_, err = f.entries.CreateSpending(f.ctx, core.Spending{CategoryID: 999, Amount: dec("1"), Currency: core.EUR, Date: core.NewDate(2024, 1, 1)})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "categoryId")

	_, err = f.entries.CreateSpending(f.ctx, core.Spending{CategoryID: f.food.ID, Amount: dec("1"), Currency: "eur", Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestEntryService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t, march2024)
	e := f.earn(t, "10", core.EUR, core.NewDate(2024, 1, 1))

	e.Amount = dec("12.50")
	e.Notes = "raise"
	updated, err := f.entries.UpdateEarning(f.ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "12.5", updated.Amount.String())
	assert.Equal(t, "Job", updated.SourceName)

	require.NoError(t, f.entries.DeleteEarning(f.ctx, e.ID))
	assert.ErrorIs(t, f.entries.DeleteEarning(f.ctx, e.ID), store.ErrNotFound)

	e.ID = 4242
	_, err = f.entries.UpdateEarning(f.ctx, e)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReferenceService(t *testing.T) {
	f := newFixture(t, march2024)

	assert.Equal(t, core.AccountBank, f.bank.Type)
	assert.Equal(t, core.EUR, f.bank.Currency)

	toggled, err := f.refs.ToggleAccount(f.ctx, f.bank.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	toggled, err = f.refs.ToggleAccount(f.ctx, f.bank.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = f.refs.CreateSource(f.ctx, core.EarningSource{Name: "Bad", Slug: "Bad Slug"})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = f.refs.CreateSource(f.ctx, core.EarningSource{Name: "Dup", Slug: "job"})
	assert.ErrorIs(t, err, store.ErrDuplicateSlug)
	_, err = f.refs.CreateAccount(f.ctx, core.Account{Name: "X", Slug: "x", Type: "loan"})
	assert.ErrorIs(t, err, core.ErrValidation)

	sub, err := f.refs.CreateCategory(f.ctx, core.SpendingCategory{Name: "Groceries", Slug: "groceries", ParentID: &f.food.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, f.refs.DeleteCategory(f.ctx, f.food.ID), store.ErrCategoryHasChildren)
	require.NoError(t, f.refs.DeleteCategory(f.ctx, sub.ID))

	f.earn(t, "1", core.EUR, core.NewDate(2024, 1, 1))
	assert.ErrorIs(t, f.refs.DeleteSource(f.ctx, f.source.ID), store.ErrInUse)

	_, err = f.refs.ToggleSource(f.ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// refresher is a counting fake for the processor and rates service.
type refresher struct {
	mu        sync.Mutex
	stale     bool
	staleErr  error
	refreshes atomic.Int32
	err       error
}

func (r *refresher) IsStale(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale, r.staleErr
}

func (r *refresher) Refresh(context.Context) (currency.Rates, error) {
	r.refreshes.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	r.stale = false
	r.mu.Unlock()
	return currency.Rates{core.EUR: decimal.NewFromInt(1), core.USD: dec("1.1")}, nil
}

func (r *refresher) Snapshot(ctx context.Context) (currency.Rates, error) {
	return currency.Rates{core.EUR: decimal.NewFromInt(1)}, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (e *eventRecorder) PublishRefreshed(_ context.Context, requestID string, _ currency.Rates) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, requestID)
	return e.err
}

func (e *eventRecorder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func TestRefreshProcessor_CheckStale(t *testing.T) {
	ctx := context.Background()
	r := &refresher{}
	events := &eventRecorder{}
	p := NewRefreshProcessor(r, events, RefreshProcessorConfig{}, nil)

	p.CheckStale(ctx)
	assert.EqualValues(t, 0, r.refreshes.Load(), "fresh table is left alone")

	r.stale = true
	p.CheckStale(ctx)
	assert.EqualValues(t, 1, r.refreshes.Load())
	assert.Equal(t, 1, events.count())

	r.staleErr = errors.New("db locked")
	p.CheckStale(ctx)
	assert.EqualValues(t, 1, r.refreshes.Load())
}

func TestRefreshProcessor_RefreshNow(t *testing.T) {
	ctx := context.Background()
	r := &refresher{}
	events := &eventRecorder{err: errors.New("broker down")}
	p := NewRefreshProcessor(r, events, RefreshProcessorConfig{}, nil)

	require.NoError(t, p.RefreshNow(ctx, "req-1", "manual"), "publish failures are not refresh failures")
	assert.Equal(t, []string{"req-1"}, events.events)

	r.err = errors.New("provider offline")
	assert.ErrorContains(t, p.RefreshNow(ctx, "req-2", "manual"), "provider offline")
	assert.Equal(t, 1, events.count())

	noEvents := NewRefreshProcessor(&refresher{}, nil, RefreshProcessorConfig{}, nil)
	assert.NoError(t, noEvents.RefreshNow(ctx, "", "manual"))
}

func TestRefreshProcessor_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &refresher{stale: true}
	p := NewRefreshProcessor(r, nil, RefreshProcessorConfig{CheckInterval: time.Hour, Schedule: "0 0 1 1 *"}, nil)

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx), "second start is refused")

	assert.Eventually(t, func() bool { return r.refreshes.Load() == 1 }, time.Second, 10*time.Millisecond,
		"startup check refreshes a stale table")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, p.Stop(stopCtx))
	assert.False(t, p.IsRunning())
	assert.NoError(t, p.Stop(stopCtx), "stopping twice is a no-op")
}

func TestRefreshProcessor_InvalidSchedule(t *testing.T) {
	p := NewRefreshProcessor(&refresher{}, nil, RefreshProcessorConfig{Schedule: "every tuesday"}, nil)
	err := p.Start(context.Background())
	assert.ErrorContains(t, err, "invalid refresh schedule")
	assert.False(t, p.IsRunning())
}

type requester struct {
	calls int
	err   error
}

func (q *requester) PublishRefreshRequest(context.Context, string) (string, error) {
	q.calls++
	if q.err != nil {
		return "", q.err
	}
	return "req-42", nil
}

func TestRatesService(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertExchangeRate(ctx, core.ExchangeRate{Currency: core.USD, Rate: dec("1.1"), UpdatedAt: at}))
	require.NoError(t, s.UpsertExchangeRate(ctx, core.ExchangeRate{Currency: core.GBP, Rate: dec("0.8"), UpdatedAt: at.Add(-time.Hour)}))

	t.Run("current reports the oldest row", func(t *testing.T) {
		svc := NewRatesService(&refresher{stale: true}, s, nil, 24*time.Hour, nil)
		v, err := svc.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.EUR, v.Base)
		assert.True(t, v.Stale)
		require.NotNil(t, v.OldestUpdatedAt)
		assert.True(t, v.OldestUpdatedAt.Equal(at.Add(-time.Hour)))
		assert.Equal(t, "24h0m0s", v.StaleAfter)
	})

	t.Run("queued when a requester is configured", func(t *testing.T) {
		r := &refresher{}
		q := &requester{}
		res, err := NewRatesService(r, s, q, time.Hour, nil).RequestRefresh(ctx)
		require.NoError(t, err)
		assert.True(t, res.Queued)
		assert.Equal(t, "req-42", res.RequestID)
		assert.EqualValues(t, 0, r.refreshes.Load())
	})

	t.Run("inline when publishing fails", func(t *testing.T) {
		r := &refresher{}
		q := &requester{err: errors.New("circuit breaker is open")}
		res, err := NewRatesService(r, s, q, time.Hour, nil).RequestRefresh(ctx)
		require.NoError(t, err)
		assert.False(t, res.Queued)
		require.NotNil(t, res.Rates)
		assert.EqualValues(t, 1, r.refreshes.Load())
	})

	t.Run("inline refresh errors are returned", func(t *testing.T) {
		r := &refresher{err: currency.ErrNoRates}
		_, err := NewRatesService(r, s, nil, time.Hour, nil).RequestRefresh(ctx)
		assert.ErrorIs(t, err, currency.ErrNoRates)
	})
}

type failingWriter struct{}

func (failingWriter) WriteRollup(context.Context, sheets.Rollup) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestExportService(t *testing.T) {
	f := newFixture(t, march2024)
	f.earn(t, "100", core.EUR, core.NewDate(2024, 1, 10))
	f.spend(t, "11", core.USD, core.NewDate(2024, 2, 3))

	w := sheetsmemory.New()
	svc := NewExportService(f.reports, w, nil)
	require.True(t, svc.Enabled())

	tabs, err := svc.Export(f.ctx)
	require.NoError(t, err)
	require.Len(t, tabs, 3)
	assert.Equal(t, []string{"Balances", "Earnings", "Spending"}, w.Tabs())
	assert.Equal(t, 1, tabs[0].Years)
	assert.Equal(t, 0, tabs[2].Years)

	spending, ok := w.Tab("Spending")
	require.True(t, ok)
	require.Len(t, spending, 3)
	assert.Equal(t, "total (EUR)", spending[0][2])
	assert.Equal(t, "10.00", spending[1][2])

	_, err = NewExportService(f.reports, nil, nil).Export(f.ctx)
	assert.ErrorIs(t, err, ErrExportDisabled)

	tabs, err = NewExportService(f.reports, failingWriter{}, nil).Export(f.ctx)
	assert.ErrorContains(t, err, "export Earnings")
	assert.Empty(t, tabs)
}
