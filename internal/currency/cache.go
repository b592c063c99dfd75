package currency

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

// DefaultStaleAfter is how long a persisted rate is trusted.
const DefaultStaleAfter = 24 * time.Hour

// DefaultRefreshTimeout bounds one shared refresh.
const DefaultRefreshTimeout = 30 * time.Second

// Cache serves the persisted rate table and refreshes it from a Provider.
//
// The table lives in the RateStore only; the Cache keeps no rates in memory.
// Callers either drive the protocol themselves (IsStale, Refresh, Rates) or
// use Snapshot, which runs it and never fails on a refresh problem.
type Cache struct {
	store      RateStore
	provider   Provider
	logger     *log.Logger
	staleAfter time.Duration
	timeout    time.Duration
	now        func() time.Time

	refreshes singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleAfter overrides the freshness window.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithRefreshTimeout overrides how long a shared refresh may run.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for refresh warnings.
func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a Cache over store and provider.
func NewCache(store RateStore, provider Provider, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		provider:   provider,
		logger:     log.Nop(),
		staleAfter: DefaultStaleAfter,
		timeout:    DefaultRefreshTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StaleAfter returns the freshness window.
func (c *Cache) StaleAfter() time.Duration {
	return c.staleAfter
}

// IsStale reports whether the table is empty or any row is older than the
// freshness window.
func (c *Cache) IsStale(ctx context.Context) (bool, error) {
	rows, err := c.store.ListExchangeRates(ctx)
	if err != nil {
		return false, fmt.Errorf("loading exchange rates: %w", err)
	}
	return c.stale(rows), nil
}

func (c *Cache) stale(rows []core.ExchangeRate) bool {
	if len(rows) == 0 {
		return true
	}
	cutoff := c.now().Add(-c.staleAfter)
	for _, row := range rows {
		if row.UpdatedAt.Before(cutoff) {
			return true
		}
	}
	return false
}

// Rates reads the persisted table. The base currency is always present.
func (c *Cache) Rates(ctx context.Context) (Rates, error) {
	rows, err := c.store.ListExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}
	return NewRates(rows), nil
}

// Refresh fetches every non-base supported currency in one provider call and
// upserts the result. Concurrent calls share one in-flight refresh. The shared
// work is detached from any single caller's cancellation; each caller stops
// waiting when its own ctx ends.
func (c *Cache) Refresh(ctx context.Context) (Rates, error) {
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.DebugContext(ctx, "Joined in-flight rate refresh")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Rates), nil
	}
}

func (c *Cache) refresh(ctx context.Context) (Rates, error) {
	fetched, err := c.provider.Latest(ctx, core.BaseCurrency, core.NonBaseCurrencies())
	if err != nil {
		return nil, fmt.Errorf("fetching exchange rates: %w", err)
	}

	codes := make([]core.Currency, 0, len(fetched))
	for cur := range fetched {
		codes = append(codes, cur)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	now := c.now().UTC()
	rows := make([]core.ExchangeRate, 0, len(codes))
	for _, cur := range codes {
		rate := fetched[cur]
		if cur == core.BaseCurrency {
			continue
		}
		if !cur.IsValid() || !rate.IsPositive() {
			c.logger.WarnContext(ctx, "Skipping unusable exchange rate",
				log.FieldCurrency, cur,
				"rate", rate.String(),
			)
			continue
		}
		rows = append(rows, core.ExchangeRate{Currency: cur, Rate: rate, UpdatedAt: now})
	}
	if len(rows) == 0 {
		return nil, ErrNoRates
	}

	for _, row := range rows {
		if err := c.store.UpsertExchangeRate(ctx, row); err != nil {
			return nil, fmt.Errorf("storing %s rate: %w", row.Currency, err)
		}
	}

	c.logger.InfoContext(ctx, "Exchange rates refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldRateCount, len(rows),
	)
	return c.Rates(ctx)
}

// Snapshot returns the rate table, refreshing it first when stale. A failed
// refresh is logged and the previously persisted table is returned; only a
// failure to read the table is reported.
func (c *Cache) Snapshot(ctx context.Context) (Rates, error) {
	rows, err := c.store.ListExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}
	if !c.stale(rows) {
		return NewRates(rows), nil
	}

	rates, err := c.Refresh(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Exchange rate refresh failed, serving persisted rates",
			log.FieldError, err,
			log.FieldRateCount, len(rows),
		)
		return NewRates(rows), nil
	}
	return rates, nil
}
