package services

import (
	"context"
	"fmt"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/currency"
	"moneytracker/internal/log"
)

// RateCache is the part of currency.Cache the rate endpoints use.
type RateCache interface {
	RateSnapshotter
	IsStale(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) (currency.Rates, error)
}

// RefreshRequester hands a refresh to the rates worker.
type RefreshRequester interface {
	PublishRefreshRequest(ctx context.Context, reason string) (string, error)
}

// RatesView is the persisted rate table as served to clients.
type RatesView struct {
	Base  core.Currency  `json:"base"`
	Rates currency.Rates `json:"rates"`
	Stale bool           `json:"stale"`
	// OldestUpdatedAt is the timestamp of the least recently refreshed row,
	// the one staleness is judged on. Nil when no rates are stored.
	OldestUpdatedAt *time.Time `json:"oldestUpdatedAt,omitempty"`
	StaleAfter      string     `json:"staleAfter"`
}

// RefreshResult says whether the refresh ran inline or was queued.
type RefreshResult struct {
	Queued    bool       `json:"queued"`
	RequestID string     `json:"requestId,omitempty"`
	Rates     *RatesView `json:"rates,omitempty"`
}

type RatesService struct {
	cache      RateCache
	store      currency.RateStore
	requester  RefreshRequester
	staleAfter time.Duration
	logger     *log.Logger
}

// NewRatesService builds the service. requester may be nil, in which case
// forced refreshes run inline.
func NewRatesService(cache RateCache, store currency.RateStore, requester RefreshRequester, staleAfter time.Duration, logger *log.Logger) *RatesService {
	if logger == nil {
		logger = log.Nop()
	}
	return &RatesService{
		cache:      cache,
		store:      store,
		requester:  requester,
		staleAfter: staleAfter,
		logger:     logger.WithComponent(log.ComponentRates),
	}
}

// Current runs the staleness protocol and reports what is served.
func (s *RatesService) Current(ctx context.Context) (*RatesView, error) {
	rates, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, rates)
}

func (s *RatesService) view(ctx context.Context, rates currency.Rates) (*RatesView, error) {
	stale, err := s.cache.IsStale(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}
	v := &RatesView{
		Base:       core.BaseCurrency,
		Rates:      rates,
		Stale:      stale,
		StaleAfter: s.staleAfter.String(),
	}
	for _, r := range rows {
		if v.OldestUpdatedAt == nil || r.UpdatedAt.Before(*v.OldestUpdatedAt) {
			at := r.UpdatedAt
			v.OldestUpdatedAt = &at
		}
	}
	return v, nil
}

// RequestRefresh queues a refresh for the worker when one is configured and
// otherwise refreshes inline. A failed publish falls back to inline.
func (s *RatesService) RequestRefresh(ctx context.Context) (*RefreshResult, error) {
	if s.requester != nil {
		id, err := s.requester.PublishRefreshRequest(ctx, "manual")
		if err == nil {
			return &RefreshResult{Queued: true, RequestID: id}, nil
		}
		s.logger.WarnContext(ctx, "Could not queue refresh request, refreshing inline", log.FieldError, err)
	}

	rates, err := s.cache.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, rates)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Rates: v}, nil
}
