// Package store declares the persistence ports used by the services. The
// sqlite and memory packages implement them.
package store

import (
	"context"
	"errors"

	"moneytracker/internal/core"
	"moneytracker/internal/currency"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSlug       = errors.New("slug already exists")
	ErrInUse               = errors.New("still referenced by entries")
	ErrCategoryHasChildren = errors.New("category has subcategories")
	ErrCategoryInUse       = errors.New("category has spending entries")
	ErrInvalidParent       = errors.New("parent category must exist and be top level")
)

// Ports for outbound adapters.
type (
	SourceStore interface {
		// ListSources returns every source ordered by display order, then name.
		ListSources(ctx context.Context) ([]core.EarningSource, error)
		GetSource(ctx context.Context, id int64) (core.EarningSource, error)
		CreateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error)
		UpdateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error)
		SetSourceActive(ctx context.Context, id int64, active bool) error
		// DeleteSource fails with ErrInUse when earnings reference the source.
		DeleteSource(ctx context.Context, id int64) error
	}

	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
		SetAccountActive(ctx context.Context, id int64, active bool) error
		// DeleteAccount fails with ErrInUse when balances reference the account.
		DeleteAccount(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.SpendingCategory, error)
		GetCategory(ctx context.Context, id int64) (core.SpendingCategory, error)
		// CreateCategory and UpdateCategory fail with ErrInvalidParent when
		// the parent is missing or is itself a subcategory.
		CreateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error)
		UpdateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error)
		SetCategoryActive(ctx context.Context, id int64, active bool) error
		// DeleteCategory fails with ErrCategoryHasChildren or ErrCategoryInUse.
		DeleteCategory(ctx context.Context, id int64) error
	}

	EarningStore interface {
		CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		UpdateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		DeleteEarning(ctx context.Context, id int64) error
		GetEarning(ctx context.Context, id int64) (core.Earning, error)
		// ListEarnings returns every earning joined with its source, newest first.
		ListEarnings(ctx context.Context) ([]core.Earning, error)
		// ListEarningsByPeriod orders by date desc, id desc.
		ListEarningsByPeriod(ctx context.Context, p core.Period) ([]core.Earning, error)
		ListRecentEarnings(ctx context.Context, limit int) ([]core.Earning, error)
	}

	SpendingStore interface {
		CreateSpending(ctx context.Context, s core.Spending) (core.Spending, error)
		UpdateSpending(ctx context.Context, s core.Spending) (core.Spending, error)
		DeleteSpending(ctx context.Context, id int64) error
		GetSpending(ctx context.Context, id int64) (core.Spending, error)
		ListSpending(ctx context.Context) ([]core.Spending, error)
		ListSpendingByPeriod(ctx context.Context, p core.Period) ([]core.Spending, error)
		ListRecentSpending(ctx context.Context, limit int) ([]core.Spending, error)
	}

	BalanceStore interface {
		// ListBalances returns every snapshot with its account currency.
		ListBalances(ctx context.Context) ([]core.MonthlyBalance, error)
		ListBalancesByPeriod(ctx context.Context, p core.Period) ([]core.MonthlyBalance, error)
		// UpsertBalances inserts or overwrites each (period, account) row.
		// Either every row is written or none is.
		UpsertBalances(ctx context.Context, balances []core.MonthlyBalance) error
	}

	// Store is everything a backend provides.
	Store interface {
		SourceStore
		AccountStore
		CategoryStore
		EarningStore
		SpendingStore
		BalanceStore
		currency.RateStore
		currency.SettingsStore

		Ping(ctx context.Context) error
		Close() error
	}
)
