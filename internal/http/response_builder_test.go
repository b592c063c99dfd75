package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moneytracker/internal/auth"
	"moneytracker/internal/core"
	"moneytracker/internal/services"
	"moneytracker/internal/store"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Data(map[string]int{"id": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want value", got)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"id":1}` {
		t.Errorf("Body = %q", got)
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body should be empty, got %q", w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Error("Content-Type should not be set without a body")
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestFieldError(t *testing.T) {
	w := httptest.NewRecorder()
	FieldError("currency", "Invalid currency").Write(w)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
	want := `{"error":"validation failed","fields":{"currency":"Invalid currency"}}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("Body = %s, want %s", got, want)
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        &core.ValidationError{Fields: map[string]string{"name": "Name is required"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"fields":{"name":"Name is required"}`,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("get source 9: %w", store.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   `"error":"not found"`,
		},
		{
			name:       "duplicate slug",
			err:        fmt.Errorf("create source: %w", store.ErrDuplicateSlug),
			wantStatus: http.StatusConflict,
			wantBody:   `"error":"slug already exists"`,
		},
		{
			name:       "in use",
			err:        store.ErrInUse,
			wantStatus: http.StatusConflict,
			wantBody:   `"error":"still referenced by entries"`,
		},
		{
			name:       "category in use",
			err:        store.ErrCategoryInUse,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid parent",
			err:        store.ErrInvalidParent,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid month",
			err:        fmt.Errorf("earnings month: %w", core.ErrInvalidMonth),
			wantStatus: http.StatusBadRequest,
			wantBody:   `"error":"invalid month"`,
		},
		{
			name:       "unsupported currency",
			err:        core.ErrUnsupportedCurrency,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad credentials",
			err:        auth.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `"error":"Invalid credentials"`,
		},
		{
			name:       "export disabled",
			err:        services.ErrExportDisabled,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "cancelled",
			err:        fmt.Errorf("list earnings: %w", context.Canceled),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown error does not leak",
			err:        errors.New("sqlite: disk I/O error"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"error":"internal server error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			writeError(w, req, "test", tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("Body = %s, want it to contain %s", w.Body.String(), tt.wantBody)
			}
			if strings.Contains(w.Body.String(), "sqlite") {
				t.Error("internal error details leaked into the response")
			}
		})
	}
}
