package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"moneytracker/internal/aggregate"
	"moneytracker/internal/core"
	"moneytracker/internal/currency"
	"moneytracker/internal/log"
	"moneytracker/internal/store"
)

const recentEntries = 5

// RateSnapshotter returns a rate table, refreshing it when stale.
type RateSnapshotter interface {
	Snapshot(ctx context.Context) (currency.Rates, error)
}

// DisplayCurrencyReader resolves the currency reports are shown in.
type DisplayCurrencyReader interface {
	DisplayCurrency(ctx context.Context) (core.Currency, error)
}

// ReportStore is the slice of the store the reports read.
type ReportStore interface {
	store.EarningStore
	store.SpendingStore
	store.BalanceStore
	ListAccounts(ctx context.Context) ([]core.Account, error)
}

type (
	// PeriodRow is one month of a report with the colors of the sources or
	// categories seen that month.
	PeriodRow struct {
		aggregate.PeriodTotal
		Colors []string `json:"colors,omitempty"`
	}

	SeriesReport struct {
		Currency core.Currency         `json:"currency"`
		Mode     aggregate.Mode        `json:"mode"`
		Periods  []PeriodRow           `json:"periods"`
		Years    []aggregate.YearGroup `json:"years"`
		Unknown  []core.Currency       `json:"unknown,omitempty"`
	}

	EarningsMonth struct {
		Period   core.Period     `json:"period"`
		Currency core.Currency   `json:"currency"`
		Entries  []core.Earning  `json:"entries"`
		Total    aggregate.Total `json:"total"`
	}

	SpendingMonth struct {
		Period   core.Period     `json:"period"`
		Currency core.Currency   `json:"currency"`
		Entries  []core.Spending `json:"entries"`
		Total    aggregate.Total `json:"total"`
	}

	Dashboard struct {
		Currency core.Currency `json:"currency"`
		Period   core.Period   `json:"period"`

		NetWorth       decimal.Decimal `json:"netWorth"`
		NetWorthPeriod *core.Period    `json:"netWorthPeriod,omitempty"`
		MonthlyChange  decimal.Decimal `json:"monthlyChange"`

		MonthEarnings decimal.Decimal `json:"monthEarnings"`
		MonthSpending decimal.Decimal `json:"monthSpending"`
		NetIncome     decimal.Decimal `json:"netIncome"`
		YearEarnings  decimal.Decimal `json:"yearEarnings"`
		YearSpending  decimal.Decimal `json:"yearSpending"`

		RecentEarnings []core.Earning  `json:"recentEarnings"`
		RecentSpending []core.Spending `json:"recentSpending"`
		Unknown        []core.Currency `json:"unknown,omitempty"`
	}

	BalanceSheetRow struct {
		Account  core.Account     `json:"account"`
		Amount   *decimal.Decimal `json:"amount"`
		Previous *decimal.Decimal `json:"previous"`
	}

	BalanceSheet struct {
		Period   core.Period       `json:"period"`
		Currency core.Currency     `json:"currency"`
		Rows     []BalanceSheetRow `json:"rows"`
		Total    aggregate.Total   `json:"total"`
	}
)

// ReportService turns stored entries into converted reports. Each call
// resolves the display currency and a rate snapshot once.
type ReportService struct {
	store    ReportStore
	rates    RateSnapshotter
	settings DisplayCurrencyReader
	logger   *log.Logger
	now      func() time.Time
}

type ReportOption func(*ReportService)

// WithNow injects the clock the dashboard uses for "this month".
func WithNow(now func() time.Time) ReportOption {
	return func(s *ReportService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewReportService(s ReportStore, rates RateSnapshotter, settings DisplayCurrencyReader, logger *log.Logger, opts ...ReportOption) *ReportService {
	if logger == nil {
		logger = log.Nop()
	}
	svc := &ReportService{
		store:    s,
		rates:    rates,
		settings: settings,
		logger:   logger.WithComponent(log.ComponentReports),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// prepare resolves the display currency and one rate snapshot.
func (s *ReportService) prepare(ctx context.Context) (core.Currency, *aggregate.Converter, error) {
	target, err := s.settings.DisplayCurrency(ctx)
	if err != nil {
		return "", nil, err
	}
	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		return "", nil, err
	}
	return target, aggregate.NewConverter(rates), nil
}

func (s *ReportService) warnUnknown(ctx context.Context, report string, unknown []core.Currency) {
	if len(unknown) == 0 {
		return
	}
	s.logger.WarnContext(ctx, "Converted with rate 1 for currencies without a rate",
		log.FieldOperation, report,
		log.FieldUnknown, unknown,
	)
}

func unknownOf(periods []aggregate.PeriodTotal) []core.Currency {
	seen := make(map[core.Currency]struct{})
	for _, p := range periods {
		for _, c := range p.Unknown {
			seen[c] = struct{}{}
		}
	}
	return sortedCurrencies(seen)
}

func sortedCurrencies(set map[core.Currency]struct{}) []core.Currency {
	if len(set) == 0 {
		return nil
	}
	out := make([]core.Currency, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *ReportService) series(ctx context.Context, name string, entries []core.MoneyEntry, colors map[core.Period][]string, mode aggregate.Mode) (*SeriesReport, error) {
	target, conv, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	periods, years := aggregate.Rollup(conv.BuildPeriodTotals(entries, target), mode)

	rows := make([]PeriodRow, len(periods))
	for i, p := range periods {
		rows[i] = PeriodRow{PeriodTotal: p, Colors: colors[p.Period]}
	}
	report := &SeriesReport{
		Currency: target,
		Mode:     mode,
		Periods:  rows,
		Years:    years,
		Unknown:  unknownOf(periods),
	}
	s.warnUnknown(ctx, name, report.Unknown)
	return report, nil
}

// colorIndex collects the distinct non-empty colors per period in first-seen order.
type colorIndex map[core.Period][]string

func (ci colorIndex) add(p core.Period, color string) {
	if color == "" {
		return
	}
	for _, c := range ci[p] {
		if c == color {
			return
		}
	}
	ci[p] = append(ci[p], color)
}

// Balances reports net worth per month: snapshot mode, so a year is worth
// its latest month.
func (s *ReportService) Balances(ctx context.Context) (*SeriesReport, error) {
	balances, err := s.store.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	entries := make([]core.MoneyEntry, len(balances))
	for i, b := range balances {
		entries[i] = b.Entry()
	}
	return s.series(ctx, "balances", entries, nil, aggregate.Snapshot)
}

// Earnings reports earnings per month: flow mode, so a year is the sum of
// its months.
func (s *ReportService) Earnings(ctx context.Context) (*SeriesReport, error) {
	earnings, err := s.store.ListEarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	entries := make([]core.MoneyEntry, len(earnings))
	colors := make(colorIndex)
	for i, e := range earnings {
		entries[i] = e.Entry()
		colors.add(entries[i].Period, e.SourceColor)
	}
	return s.series(ctx, "earnings", entries, colors, aggregate.Flow)
}

func (s *ReportService) Spending(ctx context.Context) (*SeriesReport, error) {
	spending, err := s.store.ListSpending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spending: %w", err)
	}
	entries := make([]core.MoneyEntry, len(spending))
	colors := make(colorIndex)
	for i, sp := range spending {
		entries[i] = sp.Entry()
		colors.add(entries[i].Period, sp.CategoryColor)
	}
	return s.series(ctx, "spending", entries, colors, aggregate.Flow)
}

func (s *ReportService) EarningsMonth(ctx context.Context, p core.Period) (*EarningsMonth, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	target, conv, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	earnings, err := s.store.ListEarningsByPeriod(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	items := make([]core.Money, len(earnings))
	for i, e := range earnings {
		items[i] = e.Entry().Money()
	}
	total := conv.SumInTarget(items, target)
	s.warnUnknown(ctx, "earnings_month", total.Unknown)
	return &EarningsMonth{Period: p, Currency: target, Entries: earnings, Total: total}, nil
}

func (s *ReportService) SpendingMonth(ctx context.Context, p core.Period) (*SpendingMonth, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	target, conv, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	spending, err := s.store.ListSpendingByPeriod(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list spending: %w", err)
	}
	items := make([]core.Money, len(spending))
	for i, sp := range spending {
		items[i] = sp.Entry().Money()
	}
	total := conv.SumInTarget(items, target)
	s.warnUnknown(ctx, "spending_month", total.Unknown)
	return &SpendingMonth{Period: p, Currency: target, Entries: spending, Total: total}, nil
}

// Dashboard summarizes net worth, this month and the year to date.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	target, conv, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	current := core.PeriodOf(s.now())
	unknown := make(map[core.Currency]struct{})
	addUnknown := func(list []core.Currency) {
		for _, c := range list {
			unknown[c] = struct{}{}
		}
	}

	d := &Dashboard{Currency: target, Period: current}

	balances, err := s.store.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	balanceEntries := make([]core.MoneyEntry, len(balances))
	for i, b := range balances {
		balanceEntries[i] = b.Entry()
	}
	periods := conv.BuildPeriodTotals(balanceEntries, target)
	addUnknown(unknownOf(periods))
	if len(periods) > 0 {
		latest := periods[0]
		d.NetWorth = latest.Total
		d.NetWorthPeriod = &latest.Period
		if prev, ok := aggregate.IndexPeriods(periods)[latest.Period.Previous()]; ok {
			d.MonthlyChange = latest.Total.Sub(prev)
		}
	}

	earnings, err := s.store.ListEarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	var monthEarnings, yearEarnings []core.Money
	for _, e := range earnings {
		entry := e.Entry()
		if entry.Period.Year != current.Year {
			continue
		}
		yearEarnings = append(yearEarnings, entry.Money())
		if entry.Period == current {
			monthEarnings = append(monthEarnings, entry.Money())
		}
	}

	spending, err := s.store.ListSpending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spending: %w", err)
	}
	var monthSpending, yearSpending []core.Money
	for _, sp := range spending {
		entry := sp.Entry()
		if entry.Period.Year != current.Year {
			continue
		}
		yearSpending = append(yearSpending, entry.Money())
		if entry.Period == current {
			monthSpending = append(monthSpending, entry.Money())
		}
	}

	for _, sum := range []struct {
		dst   *decimal.Decimal
		items []core.Money
	}{
		{&d.MonthEarnings, monthEarnings},
		{&d.MonthSpending, monthSpending},
		{&d.YearEarnings, yearEarnings},
		{&d.YearSpending, yearSpending},
	} {
		total := conv.SumInTarget(sum.items, target)
		*sum.dst = total.Value
		addUnknown(total.Unknown)
	}
	d.NetIncome = d.MonthEarnings.Sub(d.MonthSpending)

	if d.RecentEarnings, err = s.store.ListRecentEarnings(ctx, recentEntries); err != nil {
		return nil, fmt.Errorf("list recent earnings: %w", err)
	}
	if d.RecentSpending, err = s.store.ListRecentSpending(ctx, recentEntries); err != nil {
		return nil, fmt.Errorf("list recent spending: %w", err)
	}

	d.Unknown = sortedCurrencies(unknown)
	s.warnUnknown(ctx, "dashboard", d.Unknown)
	return d, nil
}

// BalanceSheet lists every active account with its amount for p and the
// amount of the month before, for pre-filling.
func (s *ReportService) BalanceSheet(ctx context.Context, p core.Period) (*BalanceSheet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	target, conv, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	current, err := s.balancesByAccount(ctx, p)
	if err != nil {
		return nil, err
	}
	previous, err := s.balancesByAccount(ctx, p.Previous())
	if err != nil {
		return nil, err
	}

	sheet := &BalanceSheet{Period: p, Currency: target, Rows: []BalanceSheetRow{}}
	var items []core.Money
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		row := BalanceSheetRow{Account: a}
		if b, ok := current[a.ID]; ok {
			amount := b.Amount
			row.Amount = &amount
			items = append(items, b.Entry().Money())
		}
		if b, ok := previous[a.ID]; ok {
			amount := b.Amount
			row.Previous = &amount
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	sheet.Total = conv.SumInTarget(items, target)
	s.warnUnknown(ctx, "balance_sheet", sheet.Total.Unknown)
	return sheet, nil
}

func (s *ReportService) balancesByAccount(ctx context.Context, p core.Period) (map[int64]core.MonthlyBalance, error) {
	balances, err := s.store.ListBalancesByPeriod(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list balances for %s: %w", p, err)
	}
	out := make(map[int64]core.MonthlyBalance, len(balances))
	for _, b := range balances {
		out[b.AccountID] = b
	}
	return out, nil
}

// SaveMonthlyBalances upserts one row per active account for p. Accounts
// missing from amounts are saved as zero.
func (s *ReportService) SaveMonthlyBalances(ctx context.Context, p core.Period, amounts map[int64]decimal.Decimal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	active := make(map[int64]bool, len(accounts))
	for _, a := range accounts {
		if a.IsActive {
			active[a.ID] = true
		}
	}
	fields := make(map[string]string)
	for id, amount := range amounts {
		key := fmt.Sprintf("amounts.%d", id)
		switch {
		case !active[id]:
			fields[key] = "unknown or inactive account"
		case amount.IsNegative():
			fields[key] = core.ErrInvalidAmount.Error()
		}
	}
	if len(fields) > 0 {
		return &core.ValidationError{Fields: fields}
	}

	rows := make([]core.MonthlyBalance, 0, len(active))
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		rows = append(rows, core.MonthlyBalance{Period: p, AccountID: a.ID, Amount: amounts[a.ID], Currency: a.Currency})
	}
	if err := s.store.UpsertBalances(ctx, rows); err != nil {
		return fmt.Errorf("save balances for %s: %w", p, err)
	}
	s.logger.InfoContext(ctx, "Monthly balances saved", log.NewFields().
		WithOperation(log.OpUpdate).
		WithPeriod(p.Year, p.Month).
		ToSlice()...)
	s.logger.DebugContext(ctx, "Balance rows written", "count", len(rows))
	return nil
}
