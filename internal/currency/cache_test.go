package currency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

type rateStore struct {
	mu      sync.Mutex
	rows    map[core.Currency]core.ExchangeRate
	listErr error
	putErr  error
	upserts int
}

func newRateStore(rows ...core.ExchangeRate) *rateStore {
	s := &rateStore{rows: map[core.Currency]core.ExchangeRate{}}
	for _, r := range rows {
		s.rows[r.Currency] = r
	}
	return s
}

func (s *rateStore) ListExchangeRates(_ context.Context) ([]core.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]core.ExchangeRate, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

func (s *rateStore) UpsertExchangeRate(_ context.Context, r core.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.upserts++
	s.rows[r.Currency] = r
	return nil
}

type provider struct {
	count int32
	rates map[core.Currency]decimal.Decimal
	err   error
	delay time.Duration
}

func (p *provider) Latest(_ context.Context, base core.Currency, symbols []core.Currency) (map[core.Currency]decimal.Decimal, error) {
	atomic.AddInt32(&p.count, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.rates, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func freshProvider() *provider {
	return &provider{rates: map[core.Currency]decimal.Decimal{
		core.USD: dec("1.1"),
		core.GBP: dec("0.85"),
	}}
}

func TestCache_IsStale(t *testing.T) {
	tests := []struct {
		name string
		rows []core.ExchangeRate
		want bool
	}{
		{name: "empty table", want: true},
		{
			name: "all fresh",
			rows: []core.ExchangeRate{
				{Currency: core.USD, Rate: dec("1.1"), UpdatedAt: now.Add(-time.Hour)},
				{Currency: core.GBP, Rate: dec("0.85"), UpdatedAt: now.Add(-23 * time.Hour)},
			},
			want: false,
		},
		{
			name: "one row older than a day",
			rows: []core.ExchangeRate{
				{Currency: core.USD, Rate: dec("1.1"), UpdatedAt: now.Add(-time.Hour)},
				{Currency: core.GBP, Rate: dec("0.85"), UpdatedAt: now.Add(-25 * time.Hour)},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(newRateStore(tt.rows...), freshProvider(), WithClock(clock))
			got, err := c.IsStale(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCache_SnapshotRefreshesStaleTableOnce(t *testing.T) {
	store := newRateStore(
		core.ExchangeRate{Currency: core.USD, Rate: dec("1.0"), UpdatedAt: now.Add(-25 * time.Hour)},
		core.ExchangeRate{Currency: core.GBP, Rate: dec("0.80"), UpdatedAt: now.Add(-25 * time.Hour)},
	)
	p := freshProvider()
	c := NewCache(store, p, WithClock(clock))

	rates, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.count))
	assert.True(t, rates[core.USD].Equal(dec("1.1")))
	assert.True(t, rates[core.GBP].Equal(dec("0.85")))
	assert.True(t, rates[core.EUR].Equal(decimal.NewFromInt(1)))
	assert.Equal(t, now, store.rows[core.USD].UpdatedAt)

	// Fresh now: no further provider calls.
	_, err = c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.count))
}

func TestCache_SnapshotServesPersistedTableWhenRefreshFails(t *testing.T) {
	store := newRateStore(
		core.ExchangeRate{Currency: core.USD, Rate: dec("1.05"), UpdatedAt: now.Add(-48 * time.Hour)},
	)
	p := &provider{err: errors.New("dial tcp: connection refused")}
	c := NewCache(store, p, WithClock(clock))

	rates, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.count))
	assert.Len(t, rates, 2)
	assert.True(t, rates[core.USD].Equal(dec("1.05")))
	assert.Equal(t, 0, store.upserts)
}

func TestCache_SnapshotEmptyTableAndFailingProvider(t *testing.T) {
	c := NewCache(newRateStore(), &provider{err: ErrProviderStatus}, WithClock(clock))

	rates, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Currency{core.EUR}, rates.Currencies())
}

func TestCache_SnapshotSwallowsUpsertFailure(t *testing.T) {
	store := newRateStore()
	store.putErr = errors.New("database is locked")
	c := NewCache(store, freshProvider(), WithClock(clock))

	rates, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, rates, 1)
}

func TestCache_SnapshotReportsReadFailure(t *testing.T) {
	store := newRateStore()
	store.listErr = errors.New("no such table: exchange_rates")
	c := NewCache(store, freshProvider(), WithClock(clock))

	_, err := c.Snapshot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.listErr)
}

func TestCache_RefreshReturnsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewCache(newRateStore(), &provider{err: boom}, WithClock(clock))

	_, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCache_RefreshSkipsUnusableRates(t *testing.T) {
	store := newRateStore()
	p := &provider{rates: map[core.Currency]decimal.Decimal{
		core.EUR: dec("1"),
		core.USD: dec("1.1"),
		core.GBP: dec("0"),
	}}
	c := NewCache(store, p, WithClock(clock))

	rates, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Currency{core.EUR, core.USD}, rates.Currencies())
	assert.Equal(t, 1, store.upserts)

	p.rates = map[core.Currency]decimal.Decimal{core.GBP: dec("-1")}
	_, err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRates)
}

func TestCache_ConcurrentRefreshesShareOneCall(t *testing.T) {
	p := freshProvider()
	p.delay = 50 * time.Millisecond
	c := NewCache(newRateStore(), p, WithClock(clock))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Snapshot(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.count))
}

// gatedProvider blocks until release is closed or its ctx ends.
type gatedProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	count   int32
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedProvider) Latest(ctx context.Context, _ core.Currency, _ []core.Currency) (map[core.Currency]decimal.Decimal, error) {
	atomic.AddInt32(&p.count, 1)
	p.once.Do(func() { close(p.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.release:
		return map[core.Currency]decimal.Decimal{core.USD: dec("1.1")}, nil
	}
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	p := newGatedProvider()
	c := NewCache(newRateStore(), p, WithClock(clock))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctxA)
		errA <- err
	}()
	<-p.started

	type result struct {
		rates Rates
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		r, err := c.Refresh(context.Background())
		resB <- result{r, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(p.release)
	got := <-resB
	require.NoError(t, got.err)
	usd, ok := got.rates.Rate(core.USD)
	require.True(t, ok)
	assert.Equal(t, "1.1", usd.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.count))
}

func TestCache_RefreshTimeoutBoundsSharedWork(t *testing.T) {
	p := newGatedProvider()
	c := NewCache(newRateStore(), p, WithClock(clock), WithRefreshTimeout(20*time.Millisecond))

	_, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCache_RefreshReturnsWholePersistedTable(t *testing.T) {
	store := newRateStore(
		core.ExchangeRate{Currency: core.GBP, Rate: dec("0.85"), UpdatedAt: now.Add(-time.Hour)},
	)
	p := &provider{rates: map[core.Currency]decimal.Decimal{core.USD: dec("1.1")}}
	c := NewCache(store, p, WithClock(clock))

	rates, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Currency{core.EUR, core.GBP, core.USD}, rates.Currencies())
}

func TestCache_WithStaleAfter(t *testing.T) {
	store := newRateStore(
		core.ExchangeRate{Currency: core.USD, Rate: dec("1.1"), UpdatedAt: now.Add(-2 * time.Hour)},
	)
	c := NewCache(store, freshProvider(), WithClock(clock), WithStaleAfter(time.Hour))

	stale, err := c.IsStale(context.Background())
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, time.Hour, c.StaleAfter())
}

func TestRates_Rate(t *testing.T) {
	r := NewRates([]core.ExchangeRate{{Currency: core.USD, Rate: dec("1.1")}})

	rate, ok := r.Rate(core.EUR)
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, ok = r.Rate("CHF")
	assert.False(t, ok)

	var empty Rates
	rate, ok = empty.Rate(core.EUR)
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}
