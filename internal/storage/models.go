package storage

import (
	"database/sql"
)

type EarningSource struct {
	ID           int64
	Name         string
	Slug         string
	Color        string
	Icon         string
	IsActive     bool
	DisplayOrder int64
	CreatedAt    string
}

type Account struct {
	ID           int64
	Name         string
	Slug         string
	Type         string
	Currency     string
	Color        string
	Icon         string
	IsActive     bool
	DisplayOrder int64
	CreatedAt    string
}

type SpendingCategory struct {
	ID           int64
	Name         string
	Slug         string
	ParentID     sql.NullInt64
	Color        string
	Icon         string
	IsActive     bool
	DisplayOrder int64
	CreatedAt    string
}

// EarningRow is an earning joined with its source.
type EarningRow struct {
	ID          int64
	SourceID    int64
	Amount      string
	Currency    string
	Date        string
	Notes       string
	CreatedAt   string
	SourceName  string
	SourceColor string
}

// SpendingRow is a spending entry joined with its category.
type SpendingRow struct {
	ID            int64
	CategoryID    int64
	Amount        string
	Currency      string
	Date          string
	Notes         string
	CreatedAt     string
	CategoryName  string
	CategoryColor string
}

// MonthlyBalanceRow carries the account currency.
type MonthlyBalanceRow struct {
	ID        int64
	Year      int64
	Month     int64
	AccountID int64
	Amount    string
	Currency  string
}

type ExchangeRate struct {
	Currency  string
	Rate      string
	UpdatedAt string
}
