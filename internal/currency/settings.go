package currency

import (
	"context"
	"fmt"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

// DisplayCurrencyKey is the settings key holding the reporting currency.
const DisplayCurrencyKey = "displayCurrency"

// Settings resolves and updates the display currency.
type Settings struct {
	store  SettingsStore
	logger *log.Logger
}

func NewSettings(store SettingsStore, logger *log.Logger) *Settings {
	if logger == nil {
		logger = log.Nop()
	}
	return &Settings{store: store, logger: logger}
}

// DisplayCurrency returns the stored currency. When none is stored, or the
// stored value is no longer supported, the default is written and returned.
func (s *Settings) DisplayCurrency(ctx context.Context) (core.Currency, error) {
	value, found, err := s.store.GetSetting(ctx, DisplayCurrencyKey)
	if err != nil {
		return "", fmt.Errorf("reading display currency: %w", err)
	}
	if found {
		if c, err := core.ParseSupportedCurrency(value); err == nil {
			return c, nil
		}
		s.logger.WarnContext(ctx, "Stored display currency is not supported, resetting",
			log.FieldCurrency, value,
		)
	}
	if err := s.store.SetSetting(ctx, DisplayCurrencyKey, core.DefaultDisplayCurrency.String()); err != nil {
		return "", fmt.Errorf("storing default display currency: %w", err)
	}
	return core.DefaultDisplayCurrency, nil
}

// SetDisplayCurrency validates value against the supported list and stores it.
func (s *Settings) SetDisplayCurrency(ctx context.Context, value string) (core.Currency, error) {
	c, err := core.ParseSupportedCurrency(value)
	if err != nil {
		return "", err
	}
	if err := s.store.SetSetting(ctx, DisplayCurrencyKey, c.String()); err != nil {
		return "", fmt.Errorf("storing display currency: %w", err)
	}
	s.logger.InfoContext(ctx, "Display currency changed", log.FieldCurrency, c)
	return c, nil
}
