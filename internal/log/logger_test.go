package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentRates).Info("Exchange rates refreshed", FieldRateCount, 2)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=rates") {
		t.Errorf("component missing from %q", out)
	}
	if !strings.Contains(out, "rate_count=2") {
		t.Errorf("attribute missing from %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if logger.Component() != ComponentApp {
		t.Errorf("WithComponent changed the parent: %q", logger.Component())
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: &buf}).
		With(FieldRequestID, "req_1")

	ctx := IntoContext(context.Background(), logger)
	FromContext(ctx).InfoContext(ctx, "Request failed")

	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id missing from %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the default logger")
	}
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithOperation(OpExport).
		WithError(errors.New("boom")).
		WithError(nil).
		WithHTTPResponse(404, 12)

	if f[FieldError] != "boom" {
		t.Errorf("error = %v, want boom", f[FieldError])
	}
	if f[FieldSuccess] != false {
		t.Errorf("success = %v, want false", f[FieldSuccess])
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice() length = %d, want %d", got, 2*len(f))
	}
}
