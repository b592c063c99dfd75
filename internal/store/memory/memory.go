// Package memory is an in-process implementation of store.Store used by
// tests and the memory backend. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/store"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	sources    map[int64]core.EarningSource
	accounts   map[int64]core.Account
	categories map[int64]core.SpendingCategory
	earnings   map[int64]core.Earning
	spending   map[int64]core.Spending
	balances   map[balanceKey]core.MonthlyBalance
	rates      map[core.Currency]core.ExchangeRate
	settings   map[string]string
}

type balanceKey struct {
	period    core.Period
	accountID int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:        time.Now,
		sources:    map[int64]core.EarningSource{},
		accounts:   map[int64]core.Account{},
		categories: map[int64]core.SpendingCategory{},
		earnings:   map[int64]core.Earning{},
		spending:   map[int64]core.Spending{},
		balances:   map[balanceKey]core.MonthlyBalance{},
		rates:      map[core.Currency]core.ExchangeRate{},
		settings:   map[string]string{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func byOrderThenName(order1, order2 int, name1, name2 string) bool {
	if order1 != order2 {
		return order1 < order2
	}
	return strings.ToLower(name1) < strings.ToLower(name2)
}

// Sources

func (s *Store) ListSources(context.Context) ([]core.EarningSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EarningSource, 0, len(s.sources))
	for _, v := range s.sources {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return byOrderThenName(out[i].DisplayOrder, out[j].DisplayOrder, out[i].Name, out[j].Name)
	})
	return out, nil
}

func (s *Store) GetSource(_ context.Context, id int64) (core.EarningSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sources[id]
	if !ok {
		return core.EarningSource{}, store.ErrNotFound
	}
	return v, nil
}

func (s *Store) sourceSlugTaken(slug string, except int64) bool {
	for id, v := range s.sources {
		if v.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (s *Store) CreateSource(_ context.Context, src core.EarningSource) (core.EarningSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sourceSlugTaken(src.Slug, 0) {
		return core.EarningSource{}, store.ErrDuplicateSlug
	}
	src.ID = s.id()
	src.CreatedAt = s.now().UTC()
	s.sources[src.ID] = src
	return src, nil
}

func (s *Store) UpdateSource(_ context.Context, src core.EarningSource) (core.EarningSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sources[src.ID]
	if !ok {
		return core.EarningSource{}, store.ErrNotFound
	}
	if s.sourceSlugTaken(src.Slug, src.ID) {
		return core.EarningSource{}, store.ErrDuplicateSlug
	}
	src.CreatedAt = old.CreatedAt
	s.sources[src.ID] = src
	return src, nil
}

func (s *Store) SetSourceActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	v.IsActive = active
	s.sources[id] = v
	return nil
}

func (s *Store) DeleteSource(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return store.ErrNotFound
	}
	for _, e := range s.earnings {
		if e.SourceID == id {
			return store.ErrInUse
		}
	}
	delete(s.sources, id)
	return nil
}

// Accounts

func (s *Store) ListAccounts(context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, v := range s.accounts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return byOrderThenName(out[i].DisplayOrder, out[j].DisplayOrder, out[i].Name, out[j].Name)
	})
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.accounts[id]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	return v, nil
}

func (s *Store) accountSlugTaken(slug string, except int64) bool {
	for id, v := range s.accounts {
		if v.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountSlugTaken(a.Slug, 0) {
		return core.Account{}, store.ErrDuplicateSlug
	}
	a.Normalize()
	a.ID = s.id()
	a.CreatedAt = s.now().UTC()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.accounts[a.ID]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	if s.accountSlugTaken(a.Slug, a.ID) {
		return core.Account{}, store.ErrDuplicateSlug
	}
	a.Normalize()
	a.CreatedAt = old.CreatedAt
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) SetAccountActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	v.IsActive = active
	s.accounts[id] = v
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return store.ErrNotFound
	}
	for k := range s.balances {
		if k.accountID == id {
			return store.ErrInUse
		}
	}
	delete(s.accounts, id)
	return nil
}

// Categories

func (s *Store) ListCategories(context.Context) ([]core.SpendingCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SpendingCategory, 0, len(s.categories))
	for _, v := range s.categories {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return byOrderThenName(out[i].DisplayOrder, out[j].DisplayOrder, out[i].Name, out[j].Name)
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.SpendingCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.categories[id]
	if !ok {
		return core.SpendingCategory{}, store.ErrNotFound
	}
	return v, nil
}

func (s *Store) categorySlugTaken(slug string, except int64) bool {
	for id, v := range s.categories {
		if v.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (s *Store) checkParent(c core.SpendingCategory) error {
	if c.ParentID == nil {
		return nil
	}
	parent, ok := s.categories[*c.ParentID]
	if !ok || parent.ParentID != nil || parent.ID == c.ID {
		return store.ErrInvalidParent
	}
	if c.ID != 0 {
		for _, v := range s.categories {
			if v.ParentID != nil && *v.ParentID == c.ID {
				return store.ErrInvalidParent
			}
		}
	}
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.SpendingCategory) (core.SpendingCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categorySlugTaken(c.Slug, 0) {
		return core.SpendingCategory{}, store.ErrDuplicateSlug
	}
	if err := s.checkParent(c); err != nil {
		return core.SpendingCategory{}, err
	}
	c.ID = s.id()
	c.CreatedAt = s.now().UTC()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.SpendingCategory) (core.SpendingCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.categories[c.ID]
	if !ok {
		return core.SpendingCategory{}, store.ErrNotFound
	}
	if s.categorySlugTaken(c.Slug, c.ID) {
		return core.SpendingCategory{}, store.ErrDuplicateSlug
	}
	if err := s.checkParent(c); err != nil {
		return core.SpendingCategory{}, err
	}
	c.CreatedAt = old.CreatedAt
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) SetCategoryActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.categories[id]
	if !ok {
		return store.ErrNotFound
	}
	v.IsActive = active
	s.categories[id] = v
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, v := range s.categories {
		if v.ParentID != nil && *v.ParentID == id {
			return store.ErrCategoryHasChildren
		}
	}
	for _, v := range s.spending {
		if v.CategoryID == id {
			return store.ErrCategoryInUse
		}
	}
	delete(s.categories, id)
	return nil
}

// Earnings

func (s *Store) joinEarning(e core.Earning) core.Earning {
	if src, ok := s.sources[e.SourceID]; ok {
		e.SourceName = src.Name
		e.SourceColor = src.Color
	}
	return e
}

func (s *Store) CreateEarning(_ context.Context, e core.Earning) (core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[e.SourceID]; !ok {
		return core.Earning{}, store.ErrNotFound
	}
	e.ID = s.id()
	e.CreatedAt = s.now().UTC()
	s.earnings[e.ID] = e
	return s.joinEarning(e), nil
}

func (s *Store) UpdateEarning(_ context.Context, e core.Earning) (core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.earnings[e.ID]
	if !ok {
		return core.Earning{}, store.ErrNotFound
	}
	if _, ok := s.sources[e.SourceID]; !ok {
		return core.Earning{}, store.ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	e.SourceName, e.SourceColor = "", ""
	s.earnings[e.ID] = e
	return s.joinEarning(e), nil
}

func (s *Store) DeleteEarning(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.earnings[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.earnings, id)
	return nil
}

func (s *Store) GetEarning(_ context.Context, id int64) (core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.earnings[id]
	if !ok {
		return core.Earning{}, store.ErrNotFound
	}
	return s.joinEarning(e), nil
}

func (s *Store) earningsWhere(keep func(core.Earning) bool, limit int) []core.Earning {
	out := make([]core.Earning, 0)
	for _, e := range s.earnings {
		if keep(e) {
			out = append(out, s.joinEarning(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].Date, out[j].Date, out[i].ID, out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) ListEarnings(context.Context) ([]core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.earningsWhere(func(core.Earning) bool { return true }, 0), nil
}

func (s *Store) ListEarningsByPeriod(_ context.Context, p core.Period) ([]core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.earningsWhere(func(e core.Earning) bool { return e.Date.Period() == p }, 0), nil
}

func (s *Store) ListRecentEarnings(_ context.Context, limit int) ([]core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.earningsWhere(func(core.Earning) bool { return true }, limit), nil
}

// Spending

func (s *Store) joinSpending(v core.Spending) core.Spending {
	if c, ok := s.categories[v.CategoryID]; ok {
		v.CategoryName = c.Name
		v.CategoryColor = c.Color
	}
	return v
}

func (s *Store) CreateSpending(_ context.Context, v core.Spending) (core.Spending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[v.CategoryID]; !ok {
		return core.Spending{}, store.ErrNotFound
	}
	v.ID = s.id()
	v.CreatedAt = s.now().UTC()
	s.spending[v.ID] = v
	return s.joinSpending(v), nil
}

func (s *Store) UpdateSpending(_ context.Context, v core.Spending) (core.Spending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.spending[v.ID]
	if !ok {
		return core.Spending{}, store.ErrNotFound
	}
	if _, ok := s.categories[v.CategoryID]; !ok {
		return core.Spending{}, store.ErrNotFound
	}
	v.CreatedAt = old.CreatedAt
	v.CategoryName, v.CategoryColor = "", ""
	s.spending[v.ID] = v
	return s.joinSpending(v), nil
}

func (s *Store) DeleteSpending(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spending[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.spending, id)
	return nil
}

func (s *Store) GetSpending(_ context.Context, id int64) (core.Spending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.spending[id]
	if !ok {
		return core.Spending{}, store.ErrNotFound
	}
	return s.joinSpending(v), nil
}

func (s *Store) spendingWhere(keep func(core.Spending) bool, limit int) []core.Spending {
	out := make([]core.Spending, 0)
	for _, v := range s.spending {
		if keep(v) {
			out = append(out, s.joinSpending(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].Date, out[j].Date, out[i].ID, out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) ListSpending(context.Context) ([]core.Spending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spendingWhere(func(core.Spending) bool { return true }, 0), nil
}

func (s *Store) ListSpendingByPeriod(_ context.Context, p core.Period) ([]core.Spending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spendingWhere(func(v core.Spending) bool { return v.Date.Period() == p }, 0), nil
}

func (s *Store) ListRecentSpending(_ context.Context, limit int) ([]core.Spending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spendingWhere(func(core.Spending) bool { return true }, limit), nil
}

func newerFirst(d1, d2 core.Date, id1, id2 int64) bool {
	if !d1.Equal(d2.Time) {
		return d1.After(d2.Time)
	}
	return id1 > id2
}

// Balances

func (s *Store) withCurrency(b core.MonthlyBalance) core.MonthlyBalance {
	if a, ok := s.accounts[b.AccountID]; ok {
		b.Currency = a.Currency
	}
	return b
}

func (s *Store) balancesWhere(keep func(core.MonthlyBalance) bool) []core.MonthlyBalance {
	out := make([]core.MonthlyBalance, 0)
	for _, b := range s.balances {
		if keep(b) {
			out = append(out, s.withCurrency(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Period.Compare(out[j].Period); c != 0 {
			return c > 0
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

func (s *Store) ListBalances(context.Context) ([]core.MonthlyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balancesWhere(func(core.MonthlyBalance) bool { return true }), nil
}

func (s *Store) ListBalancesByPeriod(_ context.Context, p core.Period) ([]core.MonthlyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balancesWhere(func(b core.MonthlyBalance) bool { return b.Period == p }), nil
}

func (s *Store) UpsertBalances(_ context.Context, balances []core.MonthlyBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range balances {
		if _, ok := s.accounts[b.AccountID]; !ok {
			return store.ErrNotFound
		}
	}
	for _, b := range balances {
		key := balanceKey{period: b.Period, accountID: b.AccountID}
		if old, ok := s.balances[key]; ok {
			b.ID = old.ID
		} else {
			b.ID = s.id()
		}
		b.Currency = ""
		s.balances[key] = b
	}
	return nil
}

// Exchange rates and settings

func (s *Store) ListExchangeRates(context.Context) ([]core.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ExchangeRate, 0, len(s.rates))
	for _, r := range s.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (s *Store) UpsertExchangeRate(_ context.Context, r core.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[r.Currency] = r
	return nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}
