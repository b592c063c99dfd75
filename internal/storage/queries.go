package storage

import (
	"context"
	"database/sql"
)

// Reference tables

const listEarningSources = `-- name: ListEarningSources :many
SELECT id, name, slug, color, icon, is_active, display_order, created_at
FROM earning_sources
ORDER BY display_order, name COLLATE NOCASE
`

func scanEarningSource(row interface{ Scan(...interface{}) error }) (EarningSource, error) {
	var i EarningSource
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.Color, &i.Icon, &i.IsActive, &i.DisplayOrder, &i.CreatedAt)
	return i, err
}

func (q *Queries) ListEarningSources(ctx context.Context) ([]EarningSource, error) {
	rows, err := q.db.QueryContext(ctx, listEarningSources)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EarningSource
	for rows.Next() {
		i, err := scanEarningSource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getEarningSource = `-- name: GetEarningSource :one
SELECT id, name, slug, color, icon, is_active, display_order, created_at
FROM earning_sources WHERE id = ?
`

func (q *Queries) GetEarningSource(ctx context.Context, id int64) (EarningSource, error) {
	return scanEarningSource(q.db.QueryRowContext(ctx, getEarningSource, id))
}

const createEarningSource = `-- name: CreateEarningSource :one
INSERT INTO earning_sources (name, slug, color, icon, is_active, display_order)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, name, slug, color, icon, is_active, display_order, created_at
`

type EarningSourceParams struct {
	Name         string
	Slug         string
	Color        string
	Icon         string
	IsActive     bool
	DisplayOrder int64
}

func (q *Queries) CreateEarningSource(ctx context.Context, arg EarningSourceParams) (EarningSource, error) {
	return scanEarningSource(q.db.QueryRowContext(ctx, createEarningSource,
		arg.Name, arg.Slug, arg.Color, arg.Icon, arg.IsActive, arg.DisplayOrder))
}

const updateEarningSource = `-- name: UpdateEarningSource :one
UPDATE earning_sources
SET name = ?, slug = ?, color = ?, icon = ?, is_active = ?, display_order = ?
WHERE id = ?
RETURNING id, name, slug, color, icon, is_active, display_order, created_at
`

func (q *Queries) UpdateEarningSource(ctx context.Context, id int64, arg EarningSourceParams) (EarningSource, error) {
	return scanEarningSource(q.db.QueryRowContext(ctx, updateEarningSource,
		arg.Name, arg.Slug, arg.Color, arg.Icon, arg.IsActive, arg.DisplayOrder, id))
}

const setEarningSourceActive = `-- name: SetEarningSourceActive :execrows
UPDATE earning_sources SET is_active = ? WHERE id = ?
`

func (q *Queries) SetEarningSourceActive(ctx context.Context, id int64, active bool) (int64, error) {
	return execRows(q.db.ExecContext(ctx, setEarningSourceActive, active, id))
}

const deleteEarningSource = `-- name: DeleteEarningSource :execrows
DELETE FROM earning_sources WHERE id = ?
`

func (q *Queries) DeleteEarningSource(ctx context.Context, id int64) (int64, error) {
	return execRows(q.db.ExecContext(ctx, deleteEarningSource, id))
}

const countEarningsBySource = `-- name: CountEarningsBySource :one
SELECT COUNT(*) FROM earnings WHERE source_id = ?
`

func (q *Queries) CountEarningsBySource(ctx context.Context, sourceID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEarningsBySource, sourceID).Scan(&n)
	return n, err
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, name, slug, type, currency, color, icon, is_active, display_order, created_at
FROM accounts
ORDER BY display_order, name COLLATE NOCASE
`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var i Account
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.Type, &i.Currency, &i.Color, &i.Icon, &i.IsActive, &i.DisplayOrder, &i.CreatedAt)
	return i, err
}

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getAccount = `-- name: GetAccount :one
SELECT id, name, slug, type, currency, color, icon, is_active, display_order, created_at
FROM accounts WHERE id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (name, slug, type, currency, color, icon, is_active, display_order)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, slug, type, currency, color, icon, is_active, display_order, created_at
`

type AccountParams struct {
	Name         string
	Slug         string
	Type         string
	Currency     string
	Color        string
	Icon         string
	IsActive     bool
	DisplayOrder int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg AccountParams) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, createAccount,
		arg.Name, arg.Slug, arg.Type, arg.Currency, arg.Color, arg.Icon, arg.IsActive, arg.DisplayOrder))
}

const updateAccount = `-- name: UpdateAccount :one
UPDATE accounts
SET name = ?, slug = ?, type = ?, currency = ?, color = ?, icon = ?, is_active = ?, display_order = ?
WHERE id = ?
RETURNING id, name, slug, type, currency, color, icon, is_active, display_order, created_at
`

func (q *Queries) UpdateAccount(ctx context.Context, id int64, arg AccountParams) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, updateAccount,
		arg.Name, arg.Slug, arg.Type, arg.Currency, arg.Color, arg.Icon, arg.IsActive, arg.DisplayOrder, id))
}

const setAccountActive = `-- name: SetAccountActive :execrows
UPDATE accounts SET is_active = ? WHERE id = ?
`

func (q *Queries) SetAccountActive(ctx context.Context, id int64, active bool) (int64, error) {
	return execRows(q.db.ExecContext(ctx, setAccountActive, active, id))
}

const deleteAccount = `-- name: DeleteAccount :execrows
DELETE FROM accounts WHERE id = ?
`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	return execRows(q.db.ExecContext(ctx, deleteAccount, id))
}

const countBalancesByAccount = `-- name: CountBalancesByAccount :one
SELECT COUNT(*) FROM monthly_balances WHERE account_id = ?
`

func (q *Queries) CountBalancesByAccount(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBalancesByAccount, accountID).Scan(&n)
	return n, err
}

const listSpendingCategories = `-- name: ListSpendingCategories :many
SELECT id, name, slug, parent_id, color, icon, is_active, display_order, created_at
FROM spending_categories
ORDER BY display_order, name COLLATE NOCASE
`

func scanSpendingCategory(row interface{ Scan(...interface{}) error }) (SpendingCategory, error) {
	var i SpendingCategory
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.ParentID, &i.Color, &i.Icon, &i.IsActive, &i.DisplayOrder, &i.CreatedAt)
	return i, err
}

func (q *Queries) ListSpendingCategories(ctx context.Context) ([]SpendingCategory, error) {
	rows, err := q.db.QueryContext(ctx, listSpendingCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SpendingCategory
	for rows.Next() {
		i, err := scanSpendingCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSpendingCategory = `-- name: GetSpendingCategory :one
SELECT id, name, slug, parent_id, color, icon, is_active, display_order, created_at
FROM spending_categories WHERE id = ?
`

func (q *Queries) GetSpendingCategory(ctx context.Context, id int64) (SpendingCategory, error) {
	return scanSpendingCategory(q.db.QueryRowContext(ctx, getSpendingCategory, id))
}

const createSpendingCategory = `-- name: CreateSpendingCategory :one
INSERT INTO spending_categories (name, slug, parent_id, color, icon, is_active, display_order)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, slug, parent_id, color, icon, is_active, display_order, created_at
`

type SpendingCategoryParams struct {
	Name         string
	Slug         string
	ParentID     sql.NullInt64
	Color        string
	Icon         string
	IsActive     bool
	DisplayOrder int64
}

func (q *Queries) CreateSpendingCategory(ctx context.Context, arg SpendingCategoryParams) (SpendingCategory, error) {
	return scanSpendingCategory(q.db.QueryRowContext(ctx, createSpendingCategory,
		arg.Name, arg.Slug, arg.ParentID, arg.Color, arg.Icon, arg.IsActive, arg.DisplayOrder))
}

const updateSpendingCategory = `-- name: UpdateSpendingCategory :one
UPDATE spending_categories
SET name = ?, slug = ?, parent_id = ?, color = ?, icon = ?, is_active = ?, display_order = ?
WHERE id = ?
RETURNING id, name, slug, parent_id, color, icon, is_active, display_order, created_at
`

func (q *Queries) UpdateSpendingCategory(ctx context.Context, id int64, arg SpendingCategoryParams) (SpendingCategory, error) {
	return scanSpendingCategory(q.db.QueryRowContext(ctx, updateSpendingCategory,
		arg.Name, arg.Slug, arg.ParentID, arg.Color, arg.Icon, arg.IsActive, arg.DisplayOrder, id))
}

const setSpendingCategoryActive = `-- name: SetSpendingCategoryActive :execrows
UPDATE spending_categories SET is_active = ? WHERE id = ?
`

func (q *Queries) SetSpendingCategoryActive(ctx context.Context, id int64, active bool) (int64, error) {
	return execRows(q.db.ExecContext(ctx, setSpendingCategoryActive, active, id))
}

const deleteSpendingCategory = `-- name: DeleteSpendingCategory :execrows
DELETE FROM spending_categories WHERE id = ?
`

func (q *Queries) DeleteSpendingCategory(ctx context.Context, id int64) (int64, error) {
	return execRows(q.db.ExecContext(ctx, deleteSpendingCategory, id))
}

const countCategoryChildren = `-- name: CountCategoryChildren :one
SELECT COUNT(*) FROM spending_categories WHERE parent_id = ?
`

func (q *Queries) CountCategoryChildren(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategoryChildren, id).Scan(&n)
	return n, err
}

const countSpendingByCategory = `-- name: CountSpendingByCategory :one
SELECT COUNT(*) FROM spending WHERE category_id = ?
`

func (q *Queries) CountSpendingByCategory(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countSpendingByCategory, id).Scan(&n)
	return n, err
}

// Earnings

const earningColumns = `e.id, e.source_id, e.amount, e.currency, e.date, e.notes, e.created_at, s.name, s.color
FROM earnings e
JOIN earning_sources s ON s.id = e.source_id`

func scanEarningRow(row interface{ Scan(...interface{}) error }) (EarningRow, error) {
	var i EarningRow
	err := row.Scan(&i.ID, &i.SourceID, &i.Amount, &i.Currency, &i.Date, &i.Notes, &i.CreatedAt, &i.SourceName, &i.SourceColor)
	return i, err
}

func (q *Queries) queryEarnings(ctx context.Context, query string, args ...interface{}) ([]EarningRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EarningRow
	for rows.Next() {
		i, err := scanEarningRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getEarning = `-- name: GetEarning :one
SELECT ` + earningColumns + `
WHERE e.id = ?
`

func (q *Queries) GetEarning(ctx context.Context, id int64) (EarningRow, error) {
	return scanEarningRow(q.db.QueryRowContext(ctx, getEarning, id))
}

const listEarnings = `-- name: ListEarnings :many
SELECT ` + earningColumns + `
ORDER BY e.date DESC, e.id DESC
`

func (q *Queries) ListEarnings(ctx context.Context) ([]EarningRow, error) {
	return q.queryEarnings(ctx, listEarnings)
}

const listEarningsBetween = `-- name: ListEarningsBetween :many
SELECT ` + earningColumns + `
WHERE e.date >= ? AND e.date <= ?
ORDER BY e.date DESC, e.id DESC
`

func (q *Queries) ListEarningsBetween(ctx context.Context, from, to string) ([]EarningRow, error) {
	return q.queryEarnings(ctx, listEarningsBetween, from, to)
}

const listRecentEarnings = `-- name: ListRecentEarnings :many
SELECT ` + earningColumns + `
ORDER BY e.date DESC, e.id DESC
LIMIT ?
`

func (q *Queries) ListRecentEarnings(ctx context.Context, limit int64) ([]EarningRow, error) {
	return q.queryEarnings(ctx, listRecentEarnings, limit)
}

const createEarning = `-- name: CreateEarning :one
INSERT INTO earnings (source_id, amount, currency, date, notes)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type EarningParams struct {
	SourceID int64
	Amount   string
	Currency string
	Date     string
	Notes    string
}

func (q *Queries) CreateEarning(ctx context.Context, arg EarningParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createEarning, arg.SourceID, arg.Amount, arg.Currency, arg.Date, arg.Notes).Scan(&id)
	return id, err
}

const updateEarning = `-- name: UpdateEarning :execrows
UPDATE earnings SET source_id = ?, amount = ?, currency = ?, date = ?, notes = ?
WHERE id = ?
`

func (q *Queries) UpdateEarning(ctx context.Context, id int64, arg EarningParams) (int64, error) {
	return execRows(q.db.ExecContext(ctx, updateEarning, arg.SourceID, arg.Amount, arg.Currency, arg.Date, arg.Notes, id))
}

const deleteEarning = `-- name: DeleteEarning :execrows
DELETE FROM earnings WHERE id = ?
`

func (q *Queries) DeleteEarning(ctx context.Context, id int64) (int64, error) {
	return execRows(q.db.ExecContext(ctx, deleteEarning, id))
}

// Spending

const spendingColumns = `e.id, e.category_id, e.amount, e.currency, e.date, e.notes, e.created_at, c.name, c.color
FROM spending e
JOIN spending_categories c ON c.id = e.category_id`

func scanSpendingRow(row interface{ Scan(...interface{}) error }) (SpendingRow, error) {
	var i SpendingRow
	err := row.Scan(&i.ID, &i.CategoryID, &i.Amount, &i.Currency, &i.Date, &i.Notes, &i.CreatedAt, &i.CategoryName, &i.CategoryColor)
	return i, err
}

func (q *Queries) querySpending(ctx context.Context, query string, args ...interface{}) ([]SpendingRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SpendingRow
	for rows.Next() {
		i, err := scanSpendingRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSpending = `-- name: GetSpending :one
SELECT ` + spendingColumns + `
WHERE e.id = ?
`

func (q *Queries) GetSpending(ctx context.Context, id int64) (SpendingRow, error) {
	return scanSpendingRow(q.db.QueryRowContext(ctx, getSpending, id))
}

const listSpending = `-- name: ListSpending :many
SELECT ` + spendingColumns + `
ORDER BY e.date DESC, e.id DESC
`

func (q *Queries) ListSpending(ctx context.Context) ([]SpendingRow, error) {
	return q.querySpending(ctx, listSpending)
}

const listSpendingBetween = `-- name: ListSpendingBetween :many
SELECT ` + spendingColumns + `
WHERE e.date >= ? AND e.date <= ?
ORDER BY e.date DESC, e.id DESC
`

func (q *Queries) ListSpendingBetween(ctx context.Context, from, to string) ([]SpendingRow, error) {
	return q.querySpending(ctx, listSpendingBetween, from, to)
}

const listRecentSpending = `-- name: ListRecentSpending :many
SELECT ` + spendingColumns + `
ORDER BY e.date DESC, e.id DESC
LIMIT ?
`

func (q *Queries) ListRecentSpending(ctx context.Context, limit int64) ([]SpendingRow, error) {
	return q.querySpending(ctx, listRecentSpending, limit)
}

const createSpending = `-- name: CreateSpending :one
INSERT INTO spending (category_id, amount, currency, date, notes)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type SpendingParams struct {
	CategoryID int64
	Amount     string
	Currency   string
	Date       string
	Notes      string
}

func (q *Queries) CreateSpending(ctx context.Context, arg SpendingParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createSpending, arg.CategoryID, arg.Amount, arg.Currency, arg.Date, arg.Notes).Scan(&id)
	return id, err
}

const updateSpending = `-- name: UpdateSpending :execrows
UPDATE spending SET category_id = ?, amount = ?, currency = ?, date = ?, notes = ?
WHERE id = ?
`

func (q *Queries) UpdateSpending(ctx context.Context, id int64, arg SpendingParams) (int64, error) {
	return execRows(q.db.ExecContext(ctx, updateSpending, arg.CategoryID, arg.Amount, arg.Currency, arg.Date, arg.Notes, id))
}

const deleteSpending = `-- name: DeleteSpending :execrows
DELETE FROM spending WHERE id = ?
`

func (q *Queries) DeleteSpending(ctx context.Context, id int64) (int64, error) {
	return execRows(q.db.ExecContext(ctx, deleteSpending, id))
}

// Monthly balances

const balanceColumns = `b.id, b.year, b.month, b.account_id, b.amount, a.currency
FROM monthly_balances b
JOIN accounts a ON a.id = b.account_id`

func (q *Queries) queryBalances(ctx context.Context, query string, args ...interface{}) ([]MonthlyBalanceRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyBalanceRow
	for rows.Next() {
		var i MonthlyBalanceRow
		if err := rows.Scan(&i.ID, &i.Year, &i.Month, &i.AccountID, &i.Amount, &i.Currency); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listMonthlyBalances = `-- name: ListMonthlyBalances :many
SELECT ` + balanceColumns + `
ORDER BY b.year DESC, b.month DESC, b.account_id
`

func (q *Queries) ListMonthlyBalances(ctx context.Context) ([]MonthlyBalanceRow, error) {
	return q.queryBalances(ctx, listMonthlyBalances)
}

const listMonthlyBalancesByPeriod = `-- name: ListMonthlyBalancesByPeriod :many
SELECT ` + balanceColumns + `
WHERE b.year = ? AND b.month = ?
ORDER BY b.account_id
`

func (q *Queries) ListMonthlyBalancesByPeriod(ctx context.Context, year, month int64) ([]MonthlyBalanceRow, error) {
	return q.queryBalances(ctx, listMonthlyBalancesByPeriod, year, month)
}

const upsertMonthlyBalance = `-- name: UpsertMonthlyBalance :exec
INSERT INTO monthly_balances (year, month, account_id, amount)
VALUES (?, ?, ?, ?)
ON CONFLICT (year, month, account_id) DO UPDATE SET amount = excluded.amount
`

type UpsertMonthlyBalanceParams struct {
	Year      int64
	Month     int64
	AccountID int64
	Amount    string
}

func (q *Queries) UpsertMonthlyBalance(ctx context.Context, arg UpsertMonthlyBalanceParams) error {
	_, err := q.db.ExecContext(ctx, upsertMonthlyBalance, arg.Year, arg.Month, arg.AccountID, arg.Amount)
	return err
}

// Exchange rates and settings

const listExchangeRates = `-- name: ListExchangeRates :many
SELECT currency, rate, updated_at FROM exchange_rates ORDER BY currency
`

func (q *Queries) ListExchangeRates(ctx context.Context) ([]ExchangeRate, error) {
	rows, err := q.db.QueryContext(ctx, listExchangeRates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExchangeRate
	for rows.Next() {
		var i ExchangeRate
		if err := rows.Scan(&i.Currency, &i.Rate, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertExchangeRate = `-- name: UpsertExchangeRate :exec
INSERT INTO exchange_rates (currency, rate, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at
`

func (q *Queries) UpsertExchangeRate(ctx context.Context, arg ExchangeRate) error {
	_, err := q.db.ExecContext(ctx, upsertExchangeRate, arg.Currency, arg.Rate, arg.UpdatedAt)
	return err
}

const getSetting = `-- name: GetSetting :one
SELECT value FROM settings WHERE key = ?
`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const upsertSetting = `-- name: UpsertSetting :exec
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value
`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

func execRows(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
