package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"moneytracker/internal/log"
)

type contextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey contextKey = "request_id"

// HeaderRequestID echoes the request ID to clients.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns request IDs, stores a request-scoped logger in the
// context and logs each request once it completes.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger

	totalRequests atomic.Int64
	lastDuration  atomic.Int64
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests int64
	// LastResponseTime is in microseconds.
	LastResponseTime int64
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.Nop()
	}
	return &Middleware{extractIP: extractIP, logger: logger.WithComponent(log.ComponentHTTP)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := GenerateRequestID()
		reqLogger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.IntoContext(ctx, reqLogger)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		m.totalRequests.Add(1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.lastDuration.Store(duration.Microseconds())

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}

		reqLogger.LogContext(ctx, level, "HTTP request completed",
			log.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
				WithHTTPResponse(rw.statusCode, duration.Milliseconds()).
				WithClientIP(clientIP).
				ToSlice()...)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID returns "req_" followed by 16 hex characters.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    m.totalRequests.Load(),
		LastResponseTime: m.lastDuration.Load(),
	}
}
