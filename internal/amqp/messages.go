package amqp

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// RefreshRequest asks a rates worker to fetch fresh rates now.
type RefreshRequest struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewRefreshRequest(reason string) *RefreshRequest {
	return &RefreshRequest{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
}

func (m *RefreshRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshRequestFromJSON(data []byte) (*RefreshRequest, error) {
	var msg RefreshRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RatesRefreshed announces the table written by a successful refresh.
// Rates are units per one EUR.
type RatesRefreshed struct {
	ID          string                            `json:"id"`
	RequestID   string                            `json:"requestId,omitempty"`
	Rates       map[core.Currency]decimal.Decimal `json:"rates"`
	RefreshedAt time.Time                         `json:"refreshedAt"`
}

func NewRatesRefreshed(requestID string, rates map[core.Currency]decimal.Decimal) *RatesRefreshed {
	return &RatesRefreshed{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		Rates:       rates,
		RefreshedAt: time.Now().UTC(),
	}
}

func (m *RatesRefreshed) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RatesRefreshedFromJSON(data []byte) (*RatesRefreshed, error) {
	var msg RatesRefreshed
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
