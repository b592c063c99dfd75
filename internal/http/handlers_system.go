package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"moneytracker/internal/auth"
	"moneytracker/internal/core"
	"moneytracker/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable", nil).Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		NotFoundError("authentication is not configured").Write(w)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Username and password are required").Write(w)
		return
	}
	req.Username = sanitizeInput(req.Username)
	if req.Username == "" || req.Password == "" {
		BadRequestError("Username and password are required").Write(w)
		return
	}

	token, expires, err := s.deps.Auth.Login(req.Username, req.Password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login failed", "client_ip", s.detector.ExtractClientIP(r))
		writeError(w, r, "login", err)
		return
	}
	auth.SetCookie(w, r, token, expires)
	NewJSONResponse().Data(map[string]bool{"success": true}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, r)
	NewJSONResponse().Data(map[string]bool{"success": true}).Write(w)
}

type currencyResponse struct {
	Currency  core.Currency   `json:"currency"`
	Supported []core.Currency `json:"supported"`
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Settings.DisplayCurrency(r.Context())
	if err != nil {
		writeError(w, r, "get display currency", err)
		return
	}
	NewJSONResponse().Data(currencyResponse{Currency: c, Supported: core.SupportedCurrencies()}).Write(w)
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	c, err := s.deps.Settings.SetDisplayCurrency(r.Context(), req.Currency)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCurrency) || errors.Is(err, core.ErrUnsupportedCurrency) {
			FieldError("currency", "Invalid currency, expected one of "+supportedList()).Write(w)
			return
		}
		writeError(w, r, "set display currency", err)
		return
	}
	NewJSONResponse().Data(currencyResponse{Currency: c, Supported: core.SupportedCurrencies()}).Write(w)
}

func supportedList() string {
	codes := core.SupportedCurrencies()
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.String()
	}
	return strings.Join(out, ", ")
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Rates.Current(r.Context())
	if err != nil {
		writeError(w, r, "get rates", err)
		return
	}
	NewJSONResponse().Data(view).Write(w)
}

func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Rates.RequestRefresh(r.Context())
	if err != nil {
		writeError(w, r, "refresh rates", err)
		return
	}
	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	NewJSONResponse().Status(status).Data(result).Write(w)
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		writeError(w, r, "export sheets", services.ErrExportDisabled)
		return
	}
	tabs, err := s.deps.Exporter.Export(r.Context())
	if err != nil {
		writeError(w, r, "export sheets", err)
		return
	}
	NewJSONResponse().Data(map[string]any{"tabs": tabs}).Write(w)
}
