package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"moneytracker/internal/auth"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
	"moneytracker/internal/store"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body. A nil value writes no body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates an error response with optional per-field messages.
func ErrorResponse(statusCode int, message string, fields map[string]string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(ErrorBody{Error: message, Fields: fields})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, nil)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, nil)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error", nil)
}

// FieldError is a 400 for a single invalid input.
func FieldError(field, message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "validation failed", map[string]string{field: message})
}

// errorFor maps service errors to responses. Unknown errors become a 500
// without leaking the cause.
func errorFor(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return ErrorResponse(http.StatusUnprocessableEntity, "validation failed", verr.Fields)
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, store.ErrDuplicateSlug),
		errors.Is(err, store.ErrInUse),
		errors.Is(err, store.ErrCategoryHasChildren),
		errors.Is(err, store.ErrCategoryInUse),
		errors.Is(err, store.ErrInvalidParent):
		return ErrorResponse(http.StatusConflict, conflictMessage(err), nil)
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrUnsupportedCurrency),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrInvalidPeriod):
		return BadRequestError(rootMessage(err))
	case errors.Is(err, auth.ErrInvalidCredentials):
		return ErrorResponse(http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, services.ErrExportDisabled):
		return ErrorResponse(http.StatusServiceUnavailable, err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusServiceUnavailable, "request cancelled", nil)
	default:
		return InternalServerError()
	}
}

func conflictMessage(err error) string {
	for _, target := range []error{
		store.ErrDuplicateSlug, store.ErrInUse, store.ErrCategoryHasChildren,
		store.ErrCategoryInUse, store.ErrInvalidParent,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "conflict"
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorFor(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithOperation(op).WithError(err).ToSlice()
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	resp.Write(w)
}
