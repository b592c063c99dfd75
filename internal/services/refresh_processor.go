package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"moneytracker/internal/currency"
	"moneytracker/internal/log"
)

// RateRefresher is the part of currency.Cache the processor drives.
type RateRefresher interface {
	IsStale(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) (currency.Rates, error)
}

// RefreshedPublisher announces a refreshed table.
type RefreshedPublisher interface {
	PublishRefreshed(ctx context.Context, requestID string, rates currency.Rates) error
}

type RefreshProcessorConfig struct {
	// CheckInterval is how often staleness is checked (default: 1h).
	CheckInterval time.Duration

	// Schedule is a standard cron spec for forced refreshes. Empty disables it.
	Schedule string
}

func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{
		CheckInterval: time.Hour,
		Schedule:      "30 16 * * 1-5",
	}
}

// RefreshProcessor keeps the rate table fresh in the background: a ticker
// refreshes when the table is stale and a cron schedule forces a refresh.
// Reports still refresh on read, so the processor is optional.
type RefreshProcessor struct {
	rates     RateRefresher
	publisher RefreshedPublisher
	config    RefreshProcessorConfig
	logger    *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cron    *cron.Cron
}

// NewRefreshProcessor builds a processor. publisher may be nil.
func NewRefreshProcessor(rates RateRefresher, publisher RefreshedPublisher, config RefreshProcessorConfig, logger *log.Logger) *RefreshProcessor {
	if logger == nil {
		logger = log.Nop()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultRefreshProcessorConfig().CheckInterval
	}
	return &RefreshProcessor{
		rates:     rates,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the check loop and the cron schedule. Returns an error if
// already running or if the schedule does not parse.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("refresh processor is already running")
	}

	var c *cron.Cron
	if p.config.Schedule != "" {
		c = cron.New()
		_, err := c.AddFunc(p.config.Schedule, func() {
			if err := p.RefreshNow(ctx, "", "schedule"); err != nil {
				p.logger.ErrorContext(ctx, "Scheduled rate refresh failed", log.FieldError, err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", p.config.Schedule, err)
		}
		c.Start()
	}

	p.cron = c
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Refresh processor started",
		"check_interval", p.config.CheckInterval,
		"schedule", p.config.Schedule)
	return nil
}

// Stop halts the loop and waits for any running scheduled refresh.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	c := p.cron
	close(p.stopCh)
	p.mu.Unlock()

	waits := []<-chan struct{}{p.doneCh}
	if c != nil {
		waits = append(waits, c.Stop().Done())
	}
	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			p.logger.WarnContext(ctx, "Refresh processor stop timed out")
			return ctx.Err()
		}
	}

	p.mu.Lock()
	p.running = false
	p.cron = nil
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Refresh processor stopped gracefully")
	return nil
}

func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	p.CheckStale(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckStale(ctx)
		}
	}
}

// CheckStale refreshes when the table is stale. Failures are logged; the
// next tick retries.
func (p *RefreshProcessor) CheckStale(ctx context.Context) {
	stale, err := p.rates.IsStale(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to check rate staleness", log.FieldError, err)
		return
	}
	if !stale {
		p.logger.DebugContext(ctx, "Exchange rates are fresh")
		return
	}
	if err := p.RefreshNow(ctx, "", "stale"); err != nil {
		p.logger.WarnContext(ctx, "Stale rate refresh failed", log.FieldError, err)
	}
}

// RefreshNow forces a refresh and publishes the result. A publish failure
// is logged, not returned: the table is already written.
func (p *RefreshProcessor) RefreshNow(ctx context.Context, requestID, reason string) error {
	rates, err := p.rates.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh rates (%s): %w", reason, err)
	}

	p.logger.InfoContext(ctx, "Rates refreshed",
		"reason", reason,
		"request_id", requestID,
		log.FieldRateCount, len(rates))

	if p.publisher == nil {
		return nil
	}
	if err := p.publisher.PublishRefreshed(ctx, requestID, rates); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish rates refreshed event",
			"request_id", requestID, log.FieldError, err)
	}
	return nil
}
