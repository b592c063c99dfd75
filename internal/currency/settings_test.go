package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

type settingsStore struct {
	values map[string]string
	writes int
	err    error
}

func (s *settingsStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *settingsStore) SetSetting(_ context.Context, key, value string) error {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.writes++
	s.values[key] = value
	return nil
}

func TestSettings_DisplayCurrencyWritesDefault(t *testing.T) {
	store := &settingsStore{}
	s := NewSettings(store, nil)

	c, err := s.DisplayCurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.EUR, c)
	assert.Equal(t, "EUR", store.values[DisplayCurrencyKey])
	assert.Equal(t, 1, store.writes)

	c, err = s.DisplayCurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.EUR, c)
	assert.Equal(t, 1, store.writes)
}

func TestSettings_DisplayCurrencyResetsUnsupportedValue(t *testing.T) {
	store := &settingsStore{values: map[string]string{DisplayCurrencyKey: "JPY"}}
	s := NewSettings(store, nil)

	c, err := s.DisplayCurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.EUR, c)
	assert.Equal(t, "EUR", store.values[DisplayCurrencyKey])
}

func TestSettings_DisplayCurrencyReadError(t *testing.T) {
	s := NewSettings(&settingsStore{err: errors.New("closed")}, nil)

	_, err := s.DisplayCurrency(context.Background())
	assert.Error(t, err)
}

func TestSettings_SetDisplayCurrency(t *testing.T) {
	store := &settingsStore{}
	s := NewSettings(store, nil)

	c, err := s.SetDisplayCurrency(context.Background(), " usd ")
	require.NoError(t, err)
	assert.Equal(t, core.USD, c)

	got, err := s.DisplayCurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.USD, got)

	_, err = s.SetDisplayCurrency(context.Background(), "CHF")
	assert.ErrorIs(t, err, core.ErrUnsupportedCurrency)

	_, err = s.SetDisplayCurrency(context.Background(), "dollars")
	assert.ErrorIs(t, err, core.ErrInvalidCurrency)
	assert.Equal(t, "USD", store.values[DisplayCurrencyKey])
}
