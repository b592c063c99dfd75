// Package worker handles refresh requests arriving over AMQP.
package worker

import (
	"context"
	"fmt"
	"time"

	"moneytracker/internal/amqp"
	"moneytracker/internal/log"
)

// Requests older than this are acknowledged without refreshing.
const maxRequestAge = 6 * time.Hour

type Refresher interface {
	RefreshNow(ctx context.Context, requestID, reason string) error
}

type RequestConsumer interface {
	ConsumeRefreshRequests(ctx context.Context, handler func(context.Context, *amqp.RefreshRequest) error) error
}

// RatesWorker turns refresh requests into refreshes.
type RatesWorker struct {
	refresher Refresher
	consumer  RequestConsumer
	logger    *log.Logger
	now       func() time.Time
}

// NewRatesWorker builds a worker. consumer may be nil when AMQP is not
// configured; Run then just waits for ctx.
func NewRatesWorker(refresher Refresher, consumer RequestConsumer, logger *log.Logger) *RatesWorker {
	if logger == nil {
		logger = log.Nop()
	}
	return &RatesWorker{
		refresher: refresher,
		consumer:  consumer,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleRefreshRequest processes one request. A returned error makes the
// consumer requeue the message.
func (w *RatesWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequest) error {
	age := w.now().Sub(msg.RequestedAt)
	if !msg.RequestedAt.IsZero() && age > maxRequestAge {
		w.logger.WarnContext(ctx, "Dropping expired refresh request",
			"id", msg.ID,
			"age", age.Round(time.Second))
		return nil
	}

	w.logger.InfoContext(ctx, "Processing refresh request",
		"id", msg.ID,
		"reason", msg.Reason)

	if err := w.refresher.RefreshNow(ctx, msg.ID, msg.Reason); err != nil {
		return fmt.Errorf("refresh for request %s: %w", msg.ID, err)
	}
	return nil
}

// Run consumes refresh requests until ctx ends.
func (w *RatesWorker) Run(ctx context.Context) error {
	if w.consumer == nil {
		w.logger.InfoContext(ctx, "AMQP not configured, running on schedule only")
		<-ctx.Done()
		return nil
	}
	err := w.consumer.ConsumeRefreshRequests(ctx, w.HandleRefreshRequest)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
