package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

// amountField accepts an amount as a JSON string or number and keeps the
// raw text for core.ParseAmount.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unquoted
	}
	*a = amountField(s)
	return nil
}

func (a amountField) decimal() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// fieldErrors accumulates request-level problems before the domain
// validation runs.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &core.ValidationError{Fields: f}
}

// pathID parses the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// pathPeriod parses the {year} and {month} wildcards.
func pathPeriod(r *http.Request) (core.Period, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return core.Period{}, core.ErrInvalidYear
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return core.Period{}, core.ErrInvalidMonth
	}
	return core.NewPeriod(year, month)
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
