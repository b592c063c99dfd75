package currency

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// DefaultAPIURL is the public Frankfurter endpoint (ECB reference rates).
const DefaultAPIURL = "https://api.frankfurter.app"

// Frankfurter is a Provider backed by the Frankfurter API.
type Frankfurter struct {
	// url base API url, without trailing slash
	url string

	client http.Client
}

// NewFrankfurter returns a provider for baseURL. A zero timeout means 5s.
func NewFrankfurter(baseURL string, timeout time.Duration) *Frankfurter {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Frankfurter{
		url:    strings.TrimRight(baseURL, "/"),
		client: http.Client{Timeout: timeout},
	}
}

// Latest calls GET /latest?from=BASE&to=A,B.
func (f *Frankfurter) Latest(ctx context.Context, base core.Currency, symbols []core.Currency) (map[core.Currency]decimal.Decimal, error) {
	type response struct {
		Base  string                     `json:"base"`
		Date  string                     `json:"date"`
		Rates map[string]decimal.Decimal `json:"rates"`
	}

	to := make([]string, 0, len(symbols))
	for _, s := range symbols {
		to = append(to, s.String())
	}
	q := url.Values{}
	q.Set("from", base.String())
	q.Set("to", strings.Join(to, ","))
	endpoint := fmt.Sprintf("%s/latest?%s", f.url, q.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building http request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	httpResponse, err := f.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResponse.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrProviderStatus, httpResponse.StatusCode)
	}

	var body response
	if err := json.NewDecoder(httpResponse.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, ErrNoRates
	}

	rates := make(map[core.Currency]decimal.Decimal, len(body.Rates))
	for code, rate := range body.Rates {
		rates[core.Currency(strings.ToUpper(code))] = rate
	}
	return rates, nil
}
