package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"moneytracker/internal/auth"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/middleware/security"
	"moneytracker/internal/middleware/trace"
	"moneytracker/internal/services"
)

// Ports the handlers depend on. The services package implements them.
type (
	ReportProvider interface {
		Dashboard(ctx context.Context) (*services.Dashboard, error)
		Balances(ctx context.Context) (*services.SeriesReport, error)
		Earnings(ctx context.Context) (*services.SeriesReport, error)
		Spending(ctx context.Context) (*services.SeriesReport, error)
		EarningsMonth(ctx context.Context, p core.Period) (*services.EarningsMonth, error)
		SpendingMonth(ctx context.Context, p core.Period) (*services.SpendingMonth, error)
		BalanceSheet(ctx context.Context, p core.Period) (*services.BalanceSheet, error)
		SaveMonthlyBalances(ctx context.Context, p core.Period, amounts map[int64]decimal.Decimal) error
	}

	EntryManager interface {
		CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		UpdateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		DeleteEarning(ctx context.Context, id int64) error
		CreateSpending(ctx context.Context, s core.Spending) (core.Spending, error)
		UpdateSpending(ctx context.Context, s core.Spending) (core.Spending, error)
		DeleteSpending(ctx context.Context, id int64) error
	}

	ReferenceManager interface {
		ListSources(ctx context.Context) ([]core.EarningSource, error)
		GetSource(ctx context.Context, id int64) (core.EarningSource, error)
		CreateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error)
		UpdateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error)
		ToggleSource(ctx context.Context, id int64) (core.EarningSource, error)
		DeleteSource(ctx context.Context, id int64) error

		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
		ToggleAccount(ctx context.Context, id int64) (core.Account, error)
		DeleteAccount(ctx context.Context, id int64) error

		ListCategories(ctx context.Context) ([]core.SpendingCategory, error)
		GetCategory(ctx context.Context, id int64) (core.SpendingCategory, error)
		CreateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error)
		UpdateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error)
		ToggleCategory(ctx context.Context, id int64) (core.SpendingCategory, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	RatesProvider interface {
		Current(ctx context.Context) (*services.RatesView, error)
		RequestRefresh(ctx context.Context) (*services.RefreshResult, error)
	}

	CurrencySettings interface {
		DisplayCurrency(ctx context.Context) (core.Currency, error)
		SetDisplayCurrency(ctx context.Context, value string) (core.Currency, error)
	}

	Exporter interface {
		Export(ctx context.Context) ([]services.ExportedTab, error)
	}

	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)

// Deps wires the server. Auth and Exporter may be nil.
type Deps struct {
	Reports    ReportProvider
	Entries    EntryManager
	References ReferenceManager
	Rates      RatesProvider
	Settings   CurrencySettings
	Exporter   Exporter
	Health     HealthChecker
	Auth       *auth.Authenticator
	Logger     *log.Logger

	RateLimitPerMinute int
}

// Server is the JSON API.
type Server struct {
	http.Server

	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}

	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	handler := chain(s.routes(),
		s.tracer.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware(logger),
		s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited),
		auth.Middleware(deps.Auth, logger),
	)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// chain applies middleware so the first one listed runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth", s.handleLogin)
	mux.HandleFunc("DELETE /api/auth", s.handleLogout)

	mux.HandleFunc("GET /api/settings/currency", s.handleGetCurrency)
	mux.HandleFunc("POST /api/settings/currency", s.handleSetCurrency)

	mux.HandleFunc("GET /api/rates", s.handleRates)
	mux.HandleFunc("POST /api/rates/refresh", s.handleRefreshRates)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/balances/{year}/{month}", s.handleBalanceSheet)
	mux.HandleFunc("PUT /api/balances/{year}/{month}", s.handleSaveBalances)

	mux.HandleFunc("GET /api/earnings", s.handleEarningsReport)
	mux.HandleFunc("GET /api/earnings/{year}/{month}", s.handleEarningsMonth)
	mux.HandleFunc("POST /api/earnings", s.handleCreateEarning)
	mux.HandleFunc("PUT /api/earnings/{id}", s.handleUpdateEarning)
	mux.HandleFunc("DELETE /api/earnings/{id}", s.handleDeleteEarning)

	mux.HandleFunc("GET /api/spending", s.handleSpendingReport)
	mux.HandleFunc("GET /api/spending/{year}/{month}", s.handleSpendingMonth)
	mux.HandleFunc("POST /api/spending", s.handleCreateSpending)
	mux.HandleFunc("PUT /api/spending/{id}", s.handleUpdateSpending)
	mux.HandleFunc("DELETE /api/spending/{id}", s.handleDeleteSpending)

	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("POST /api/sources", s.handleCreateSource)
	mux.HandleFunc("PUT /api/sources/{id}", s.handleUpdateSource)
	mux.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource)
	mux.HandleFunc("POST /api/sources/{id}/toggle", s.handleToggleSource)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/toggle", s.handleToggleAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/{id}/toggle", s.handleToggleCategory)

	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
	return mux
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
	)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil).Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
