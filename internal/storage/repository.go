package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/store"
)

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	applied, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	if applied {
		logger.Info("Applied database migrations", "path", dbPath)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// translate maps driver errors to store sentinels. A foreign key failure on
// insert means the referenced row does not exist.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	}
	switch sqliteCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return store.ErrDuplicateSlug
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return store.ErrNotFound
	}
	return err
}

func affected(n int64, err error) error {
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", field, s, err)
	}
	return d, nil
}

// Sources

func toSource(s EarningSource) core.EarningSource {
	return core.EarningSource{
		ID:           s.ID,
		Name:         s.Name,
		Slug:         s.Slug,
		Color:        s.Color,
		Icon:         s.Icon,
		IsActive:     s.IsActive,
		DisplayOrder: int(s.DisplayOrder),
		CreatedAt:    parseTimestamp(s.CreatedAt),
	}
}

func sourceParams(s core.EarningSource) EarningSourceParams {
	return EarningSourceParams{
		Name:         s.Name,
		Slug:         s.Slug,
		Color:        s.Color,
		Icon:         s.Icon,
		IsActive:     s.IsActive,
		DisplayOrder: int64(s.DisplayOrder),
	}
}

func (r *SQLiteRepository) ListSources(ctx context.Context) ([]core.EarningSource, error) {
	rows, err := r.queries.ListEarningSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list earning sources: %w", err)
	}
	out := make([]core.EarningSource, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSource(row))
	}
	return out, nil
}

func (r *SQLiteRepository) GetSource(ctx context.Context, id int64) (core.EarningSource, error) {
	row, err := r.queries.GetEarningSource(ctx, id)
	if err != nil {
		return core.EarningSource{}, translate(err)
	}
	return toSource(row), nil
}

func (r *SQLiteRepository) CreateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error) {
	row, err := r.queries.CreateEarningSource(ctx, sourceParams(s))
	if err != nil {
		return core.EarningSource{}, translate(err)
	}
	return toSource(row), nil
}

func (r *SQLiteRepository) UpdateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error) {
	row, err := r.queries.UpdateEarningSource(ctx, s.ID, sourceParams(s))
	if err != nil {
		return core.EarningSource{}, translate(err)
	}
	return toSource(row), nil
}

func (r *SQLiteRepository) SetSourceActive(ctx context.Context, id int64, active bool) error {
	return affected(r.queries.SetEarningSourceActive(ctx, id, active))
}

func (r *SQLiteRepository) DeleteSource(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(q *Queries) error {
		n, err := q.CountEarningsBySource(ctx, id)
		if err != nil {
			return fmt.Errorf("count earnings: %w", err)
		}
		if n > 0 {
			return store.ErrInUse
		}
		return affected(q.DeleteEarningSource(ctx, id))
	})
}

// Accounts

func toAccount(a Account) core.Account {
	return core.Account{
		ID:           a.ID,
		Name:         a.Name,
		Slug:         a.Slug,
		Type:         core.AccountType(a.Type),
		Currency:     core.Currency(a.Currency),
		Color:        a.Color,
		Icon:         a.Icon,
		IsActive:     a.IsActive,
		DisplayOrder: int(a.DisplayOrder),
		CreatedAt:    parseTimestamp(a.CreatedAt),
	}
}

func accountParams(a core.Account) AccountParams {
	a.Normalize()
	return AccountParams{
		Name:         a.Name,
		Slug:         a.Slug,
		Type:         string(a.Type),
		Currency:     a.Currency.String(),
		Color:        a.Color,
		Icon:         a.Icon,
		IsActive:     a.IsActive,
		DisplayOrder: int64(a.DisplayOrder),
	}
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAccount(row))
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, translate(err)
	}
	return toAccount(row), nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	row, err := r.queries.CreateAccount(ctx, accountParams(a))
	if err != nil {
		return core.Account{}, translate(err)
	}
	return toAccount(row), nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	row, err := r.queries.UpdateAccount(ctx, a.ID, accountParams(a))
	if err != nil {
		return core.Account{}, translate(err)
	}
	return toAccount(row), nil
}

func (r *SQLiteRepository) SetAccountActive(ctx context.Context, id int64, active bool) error {
	return affected(r.queries.SetAccountActive(ctx, id, active))
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(q *Queries) error {
		n, err := q.CountBalancesByAccount(ctx, id)
		if err != nil {
			return fmt.Errorf("count balances: %w", err)
		}
		if n > 0 {
			return store.ErrInUse
		}
		return affected(q.DeleteAccount(ctx, id))
	})
}

// Categories

func toCategory(c SpendingCategory) core.SpendingCategory {
	out := core.SpendingCategory{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Color:        c.Color,
		Icon:         c.Icon,
		IsActive:     c.IsActive,
		DisplayOrder: int(c.DisplayOrder),
		CreatedAt:    parseTimestamp(c.CreatedAt),
	}
	if c.ParentID.Valid {
		parent := c.ParentID.Int64
		out.ParentID = &parent
	}
	return out
}

func categoryParams(c core.SpendingCategory) SpendingCategoryParams {
	p := SpendingCategoryParams{
		Name:         c.Name,
		Slug:         c.Slug,
		Color:        c.Color,
		Icon:         c.Icon,
		IsActive:     c.IsActive,
		DisplayOrder: int64(c.DisplayOrder),
	}
	if c.ParentID != nil {
		p.ParentID = sql.NullInt64{Int64: *c.ParentID, Valid: true}
	}
	return p
}

// checkParent enforces one level of nesting.
func checkParent(ctx context.Context, q *Queries, c core.SpendingCategory) error {
	if c.ParentID == nil {
		return nil
	}
	if *c.ParentID == c.ID {
		return store.ErrInvalidParent
	}
	parent, err := q.GetSpendingCategory(ctx, *c.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrInvalidParent
	}
	if err != nil {
		return fmt.Errorf("get parent category: %w", err)
	}
	if parent.ParentID.Valid {
		return store.ErrInvalidParent
	}
	if c.ID != 0 {
		n, err := q.CountCategoryChildren(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("count subcategories: %w", err)
		}
		if n > 0 {
			return store.ErrInvalidParent
		}
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.SpendingCategory, error) {
	rows, err := r.queries.ListSpendingCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spending categories: %w", err)
	}
	out := make([]core.SpendingCategory, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row))
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.SpendingCategory, error) {
	row, err := r.queries.GetSpendingCategory(ctx, id)
	if err != nil {
		return core.SpendingCategory{}, translate(err)
	}
	return toCategory(row), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error) {
	var out core.SpendingCategory
	err := r.withTx(ctx, func(q *Queries) error {
		if err := checkParent(ctx, q, c); err != nil {
			return err
		}
		row, err := q.CreateSpendingCategory(ctx, categoryParams(c))
		if err != nil {
			return translate(err)
		}
		out = toCategory(row)
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error) {
	var out core.SpendingCategory
	err := r.withTx(ctx, func(q *Queries) error {
		if err := checkParent(ctx, q, c); err != nil {
			return err
		}
		row, err := q.UpdateSpendingCategory(ctx, c.ID, categoryParams(c))
		if err != nil {
			return translate(err)
		}
		out = toCategory(row)
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	return affected(r.queries.SetSpendingCategoryActive(ctx, id, active))
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetSpendingCategory(ctx, id); err != nil {
			return translate(err)
		}
		children, err := q.CountCategoryChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("count subcategories: %w", err)
		}
		if children > 0 {
			return store.ErrCategoryHasChildren
		}
		used, err := q.CountSpendingByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("count spending: %w", err)
		}
		if used > 0 {
			return store.ErrCategoryInUse
		}
		return affected(q.DeleteSpendingCategory(ctx, id))
	})
}

// Earnings

func toEarning(row EarningRow) (core.Earning, error) {
	amount, err := parseDecimal("earning amount", row.Amount)
	if err != nil {
		return core.Earning{}, err
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Earning{}, fmt.Errorf("corrupt earning date %q: %w", row.Date, err)
	}
	return core.Earning{
		ID:          row.ID,
		SourceID:    row.SourceID,
		Amount:      amount,
		Currency:    core.Currency(row.Currency),
		Date:        date,
		Notes:       row.Notes,
		CreatedAt:   parseTimestamp(row.CreatedAt),
		SourceName:  row.SourceName,
		SourceColor: row.SourceColor,
	}, nil
}

func toEarnings(rows []EarningRow) ([]core.Earning, error) {
	out := make([]core.Earning, 0, len(rows))
	for _, row := range rows {
		e, err := toEarning(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func earningParams(e core.Earning) EarningParams {
	return EarningParams{
		SourceID: e.SourceID,
		Amount:   e.Amount.String(),
		Currency: e.Currency.String(),
		Date:     e.Date.String(),
		Notes:    e.Notes,
	}
}

func (r *SQLiteRepository) CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	id, err := r.queries.CreateEarning(ctx, earningParams(e))
	if err != nil {
		return core.Earning{}, translate(err)
	}
	r.logger.DebugContext(ctx, "Earning saved", log.NewFields().
		WithEntry("earning", id, e.Amount.String(), e.Currency.String()).ToSlice()...)
	return r.GetEarning(ctx, id)
}

func (r *SQLiteRepository) UpdateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	if err := affected(r.queries.UpdateEarning(ctx, e.ID, earningParams(e))); err != nil {
		return core.Earning{}, err
	}
	return r.GetEarning(ctx, e.ID)
}

func (r *SQLiteRepository) DeleteEarning(ctx context.Context, id int64) error {
	return affected(r.queries.DeleteEarning(ctx, id))
}

func (r *SQLiteRepository) GetEarning(ctx context.Context, id int64) (core.Earning, error) {
	row, err := r.queries.GetEarning(ctx, id)
	if err != nil {
		return core.Earning{}, translate(err)
	}
	return toEarning(row)
}

func (r *SQLiteRepository) ListEarnings(ctx context.Context) ([]core.Earning, error) {
	rows, err := r.queries.ListEarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return toEarnings(rows)
}

func (r *SQLiteRepository) ListEarningsByPeriod(ctx context.Context, p core.Period) ([]core.Earning, error) {
	rows, err := r.queries.ListEarningsBetween(ctx, p.FirstDay(), p.LastDay())
	if err != nil {
		return nil, fmt.Errorf("list earnings for %s: %w", p, err)
	}
	return toEarnings(rows)
}

func (r *SQLiteRepository) ListRecentEarnings(ctx context.Context, limit int) ([]core.Earning, error) {
	rows, err := r.queries.ListRecentEarnings(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent earnings: %w", err)
	}
	return toEarnings(rows)
}

// Spending

func toSpending(row SpendingRow) (core.Spending, error) {
	amount, err := parseDecimal("spending amount", row.Amount)
	if err != nil {
		return core.Spending{}, err
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Spending{}, fmt.Errorf("corrupt spending date %q: %w", row.Date, err)
	}
	return core.Spending{
		ID:            row.ID,
		CategoryID:    row.CategoryID,
		Amount:        amount,
		Currency:      core.Currency(row.Currency),
		Date:          date,
		Notes:         row.Notes,
		CreatedAt:     parseTimestamp(row.CreatedAt),
		CategoryName:  row.CategoryName,
		CategoryColor: row.CategoryColor,
	}, nil
}

func toSpendingList(rows []SpendingRow) ([]core.Spending, error) {
	out := make([]core.Spending, 0, len(rows))
	for _, row := range rows {
		s, err := toSpending(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func spendingParams(s core.Spending) SpendingParams {
	return SpendingParams{
		CategoryID: s.CategoryID,
		Amount:     s.Amount.String(),
		Currency:   s.Currency.String(),
		Date:       s.Date.String(),
		Notes:      s.Notes,
	}
}

func (r *SQLiteRepository) CreateSpending(ctx context.Context, s core.Spending) (core.Spending, error) {
	id, err := r.queries.CreateSpending(ctx, spendingParams(s))
	if err != nil {
		return core.Spending{}, translate(err)
	}
	r.logger.DebugContext(ctx, "Spending saved", log.NewFields().
		WithEntry("spending", id, s.Amount.String(), s.Currency.String()).ToSlice()...)
	return r.GetSpending(ctx, id)
}

func (r *SQLiteRepository) UpdateSpending(ctx context.Context, s core.Spending) (core.Spending, error) {
	if err := affected(r.queries.UpdateSpending(ctx, s.ID, spendingParams(s))); err != nil {
		return core.Spending{}, err
	}
	return r.GetSpending(ctx, s.ID)
}

func (r *SQLiteRepository) DeleteSpending(ctx context.Context, id int64) error {
	return affected(r.queries.DeleteSpending(ctx, id))
}

func (r *SQLiteRepository) GetSpending(ctx context.Context, id int64) (core.Spending, error) {
	row, err := r.queries.GetSpending(ctx, id)
	if err != nil {
		return core.Spending{}, translate(err)
	}
	return toSpending(row)
}

func (r *SQLiteRepository) ListSpending(ctx context.Context) ([]core.Spending, error) {
	rows, err := r.queries.ListSpending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spending: %w", err)
	}
	return toSpendingList(rows)
}

func (r *SQLiteRepository) ListSpendingByPeriod(ctx context.Context, p core.Period) ([]core.Spending, error) {
	rows, err := r.queries.ListSpendingBetween(ctx, p.FirstDay(), p.LastDay())
	if err != nil {
		return nil, fmt.Errorf("list spending for %s: %w", p, err)
	}
	return toSpendingList(rows)
}

func (r *SQLiteRepository) ListRecentSpending(ctx context.Context, limit int) ([]core.Spending, error) {
	rows, err := r.queries.ListRecentSpending(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent spending: %w", err)
	}
	return toSpendingList(rows)
}

// Balances

func toBalances(rows []MonthlyBalanceRow) ([]core.MonthlyBalance, error) {
	out := make([]core.MonthlyBalance, 0, len(rows))
	for _, row := range rows {
		amount, err := parseDecimal("balance amount", row.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthlyBalance{
			ID:        row.ID,
			Period:    core.Period{Year: int(row.Year), Month: int(row.Month)},
			AccountID: row.AccountID,
			Amount:    amount,
			Currency:  core.Currency(row.Currency),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ListBalances(ctx context.Context) ([]core.MonthlyBalance, error) {
	rows, err := r.queries.ListMonthlyBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monthly balances: %w", err)
	}
	return toBalances(rows)
}

func (r *SQLiteRepository) ListBalancesByPeriod(ctx context.Context, p core.Period) ([]core.MonthlyBalance, error) {
	rows, err := r.queries.ListMonthlyBalancesByPeriod(ctx, int64(p.Year), int64(p.Month))
	if err != nil {
		return nil, fmt.Errorf("list monthly balances for %s: %w", p, err)
	}
	return toBalances(rows)
}

func (r *SQLiteRepository) UpsertBalances(ctx context.Context, balances []core.MonthlyBalance) error {
	return r.withTx(ctx, func(q *Queries) error {
		for _, b := range balances {
			err := q.UpsertMonthlyBalance(ctx, UpsertMonthlyBalanceParams{
				Year:      int64(b.Period.Year),
				Month:     int64(b.Period.Month),
				AccountID: b.AccountID,
				Amount:    b.Amount.String(),
			})
			if err != nil {
				return translate(err)
			}
		}
		return nil
	})
}

// Exchange rates and settings

func (r *SQLiteRepository) ListExchangeRates(ctx context.Context) ([]core.ExchangeRate, error) {
	rows, err := r.queries.ListExchangeRates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.ExchangeRate, 0, len(rows))
	for _, row := range rows {
		rate, err := parseDecimal("exchange rate", row.Rate)
		if err != nil {
			return nil, err
		}
		out = append(out, core.ExchangeRate{
			Currency:  core.Currency(row.Currency),
			Rate:      rate,
			UpdatedAt: parseTimestamp(row.UpdatedAt),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertExchangeRate(ctx context.Context, rate core.ExchangeRate) error {
	return r.queries.UpsertExchangeRate(ctx, ExchangeRate{
		Currency:  rate.Currency.String(),
		Rate:      rate.Rate.String(),
		UpdatedAt: rate.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	value, err := r.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertSetting(ctx, key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
