package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	hits         atomic.Int64

	requestsPerMinute int
	burst             int
	cleanupInterval   time.Duration
	idleTimeout       time.Duration
	now               func() time.Time
}

type clientInfo struct {
	limiter     *rate.Limiter
	lastRequest time.Time
}

// Config holds rate limiter configuration. Burst defaults to the per-minute
// allowance.
type Config struct {
	RequestsPerMinute int
	Burst             int
	CleanupInterval   time.Duration
	IdleTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine. Call Stop
// to release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}

	rl := &Limiter{
		clients:           make(map[string]*clientInfo),
		stopCleanup:       make(chan struct{}),
		requestsPerMinute: config.RequestsPerMinute,
		burst:             config.Burst,
		cleanupInterval:   config.CleanupInterval,
		idleTimeout:       config.IdleTimeout,
		now:               time.Now,
	}
	go rl.startCleanup()
	return rl
}

// Allow reports whether the client may make another request now.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	now := rl.now()
	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientInfo{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.requestsPerMinute)/60), rl.burst),
		}
		rl.clients[clientIP] = client
	}
	client.lastRequest = now
	rl.mu.Unlock()

	if client.limiter.AllowN(now, 1) {
		return true
	}
	rl.hits.Add(1)
	return false
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTimeout)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Stop shuts down the cleanup goroutine.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	clientCount := int64(len(rl.clients))
	rl.mu.Unlock()

	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: clientCount,
	}
}

// IsMutating reports whether the method changes state.
func IsMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware limits mutating requests per client. Reads pass through.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(time.Minute.Seconds()) / rl.requestsPerMinute)
	if retryAfter == "0" {
		retryAfter = "1"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsMutating(r.Method) || rl.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", retryAfter)
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
