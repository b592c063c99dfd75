package currency

import (
	"context"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// loggingProvider decorates a Provider with one logfmt line per call.
type loggingProvider struct {
	logger kitlog.Logger
	next   Provider
}

// NewLoggingProvider wraps next so every call is logged with its duration.
func NewLoggingProvider(logger kitlog.Logger, next Provider) Provider {
	return &loggingProvider{
		logger: logger,
		next:   next,
	}
}

func (p *loggingProvider) Latest(ctx context.Context, base core.Currency, symbols []core.Currency) (rates map[core.Currency]decimal.Decimal, err error) {
	defer func(begin time.Time) {
		_ = p.logger.Log(
			"method", "latest",
			"base", base,
			"symbols", len(symbols),
			"rates", len(rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Latest(ctx, base, symbols)
}
