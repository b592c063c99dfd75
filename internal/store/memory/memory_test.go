package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
	"moneytracker/internal/store"
)

func TestStore_SourceSlugIsUnique(t *testing.T) {
	ctx := context.Background()
	s := New()

	job, err := s.CreateSource(ctx, core.EarningSource{Name: "Job", Slug: "job", IsActive: true})
	require.NoError(t, err)
	assert.NotZero(t, job.ID)

	_, err = s.CreateSource(ctx, core.EarningSource{Name: "Job 2", Slug: "job"})
	assert.ErrorIs(t, err, store.ErrDuplicateSlug)

	other, err := s.CreateSource(ctx, core.EarningSource{Name: "Other", Slug: "other"})
	require.NoError(t, err)
	other.Slug = "job"
	_, err = s.UpdateSource(ctx, other)
	assert.ErrorIs(t, err, store.ErrDuplicateSlug)
}

func TestStore_ListOrdersByDisplayOrderThenName(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, a := range []core.Account{
		{Name: "Zeta", Slug: "zeta", DisplayOrder: 1},
		{Name: "beta", Slug: "beta", DisplayOrder: 2},
		{Name: "Alpha", Slug: "alpha", DisplayOrder: 2},
	} {
		_, err := s.CreateAccount(ctx, a)
		require.NoError(t, err)
	}

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	names := []string{accounts[0].Name, accounts[1].Name, accounts[2].Name}
	assert.Equal(t, []string{"Zeta", "Alpha", "beta"}, names)
	assert.Equal(t, core.AccountBank, accounts[0].Type)
	assert.Equal(t, core.EUR, accounts[0].Currency)
}

func TestStore_CategoryRules(t *testing.T) {
	ctx := context.Background()
	s := New()

	home, err := s.CreateCategory(ctx, core.SpendingCategory{Name: "Home", Slug: "home"})
	require.NoError(t, err)
	rent, err := s.CreateCategory(ctx, core.SpendingCategory{Name: "Rent", Slug: "rent", ParentID: &home.ID})
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, core.SpendingCategory{Name: "Deep", Slug: "deep", ParentID: &rent.ID})
	assert.ErrorIs(t, err, store.ErrInvalidParent)

	missing := int64(999)
	_, err = s.CreateCategory(ctx, core.SpendingCategory{Name: "Orphan", Slug: "orphan", ParentID: &missing})
	assert.ErrorIs(t, err, store.ErrInvalidParent)

	assert.ErrorIs(t, s.DeleteCategory(ctx, home.ID), store.ErrCategoryHasChildren)

	_, err = s.CreateSpending(ctx, core.Spending{
		CategoryID: rent.ID, Amount: decimal.NewFromInt(900), Currency: core.EUR, Date: core.NewDate(2024, 1, 1),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, s.DeleteCategory(ctx, rent.ID), store.ErrCategoryInUse)
	assert.ErrorIs(t, s.DeleteCategory(ctx, 12345), store.ErrNotFound)
}

func TestStore_EarningsOrderingAndJoin(t *testing.T) {
	ctx := context.Background()
	s := New()
	src, err := s.CreateSource(ctx, core.EarningSource{Name: "Job", Slug: "job", Color: "#00ff00"})
	require.NoError(t, err)

	add := func(day int) core.Earning {
		e, err := s.CreateEarning(ctx, core.Earning{
			SourceID: src.ID, Amount: decimal.NewFromInt(10), Currency: core.EUR, Date: core.NewDate(2024, 3, day),
		})
		require.NoError(t, err)
		return e
	}
	first := add(5)
	second := add(20)
	third := add(5)
	add(1)

	list, err := s.ListEarningsByPeriod(ctx, core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, third.ID, list[1].ID)
	assert.Equal(t, first.ID, list[2].ID)
	assert.Equal(t, "Job", list[0].SourceName)
	assert.Equal(t, "#00ff00", list[0].SourceColor)

	recent, err := s.ListRecentEarnings(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	assert.ErrorIs(t, s.DeleteSource(ctx, src.ID), store.ErrInUse)

	_, err = s.CreateEarning(ctx, core.Earning{SourceID: 42, Amount: decimal.NewFromInt(1), Currency: core.EUR, Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_BalanceUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, err := s.CreateAccount(ctx, core.Account{Name: "Mercury", Slug: "mercury", Currency: core.USD})
	require.NoError(t, err)
	p := core.Period{Year: 2024, Month: 2}

	require.NoError(t, s.UpsertBalances(ctx, []core.MonthlyBalance{{Period: p, AccountID: acc.ID, Amount: decimal.NewFromInt(100)}}))
	require.NoError(t, s.UpsertBalances(ctx, []core.MonthlyBalance{{Period: p, AccountID: acc.ID, Amount: decimal.NewFromInt(250)}}))

	balances, err := s.ListBalancesByPeriod(ctx, p)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, core.USD, balances[0].Currency)

	assert.ErrorIs(t, s.DeleteAccount(ctx, acc.ID), store.ErrInUse)
	assert.ErrorIs(t, s.UpsertBalances(ctx, []core.MonthlyBalance{{Period: p, AccountID: 99}}), store.ErrNotFound)
}

func TestStore_UpsertBalancesIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, err := s.CreateAccount(ctx, core.Account{Name: "Bank", Slug: "bank", Currency: core.EUR})
	require.NoError(t, err)
	p := core.Period{Year: 2024, Month: 3}

	err = s.UpsertBalances(ctx, []core.MonthlyBalance{
		{Period: p, AccountID: acc.ID, Amount: decimal.NewFromInt(100)},
		{Period: p, AccountID: 404, Amount: decimal.NewFromInt(1)},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	balances, err := s.ListBalancesByPeriod(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestStore_ExchangeRatesAndSettings(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.UpsertExchangeRate(ctx, core.ExchangeRate{Currency: core.USD, Rate: decimal.RequireFromString("1.1")}))
	require.NoError(t, s.UpsertExchangeRate(ctx, core.ExchangeRate{Currency: core.USD, Rate: decimal.RequireFromString("1.2")}))
	rates, err := s.ListExchangeRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "1.2", rates[0].Rate.String())

	_, found, err := s.GetSetting(ctx, "displayCurrency")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, s.SetSetting(ctx, "displayCurrency", "GBP"))
	v, found, err := s.GetSetting(ctx, "displayCurrency")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "GBP", v)
}
