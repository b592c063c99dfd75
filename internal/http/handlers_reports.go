package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"moneytracker/internal/services"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	NewJSONResponse().Data(d).Write(w)
}

func (s *Server) writeSeries(w http.ResponseWriter, r *http.Request, op string, build func() (*services.SeriesReport, error)) {
	report, err := build()
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	s.writeSeries(w, r, "balances report", func() (*services.SeriesReport, error) {
		return s.deps.Reports.Balances(r.Context())
	})
}

func (s *Server) handleEarningsReport(w http.ResponseWriter, r *http.Request) {
	s.writeSeries(w, r, "earnings report", func() (*services.SeriesReport, error) {
		return s.deps.Reports.Earnings(r.Context())
	})
}

func (s *Server) handleSpendingReport(w http.ResponseWriter, r *http.Request) {
	s.writeSeries(w, r, "spending report", func() (*services.SeriesReport, error) {
		return s.deps.Reports.Spending(r.Context())
	})
}

func (s *Server) handleEarningsMonth(w http.ResponseWriter, r *http.Request) {
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, "earnings month", err)
		return
	}
	m, err := s.deps.Reports.EarningsMonth(r.Context(), p)
	if err != nil {
		writeError(w, r, "earnings month", err)
		return
	}
	NewJSONResponse().Data(m).Write(w)
}

func (s *Server) handleSpendingMonth(w http.ResponseWriter, r *http.Request) {
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, "spending month", err)
		return
	}
	m, err := s.deps.Reports.SpendingMonth(r.Context(), p)
	if err != nil {
		writeError(w, r, "spending month", err)
		return
	}
	NewJSONResponse().Data(m).Write(w)
}

func (s *Server) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, "balance sheet", err)
		return
	}
	sheet, err := s.deps.Reports.BalanceSheet(r.Context(), p)
	if err != nil {
		writeError(w, r, "balance sheet", err)
		return
	}
	NewJSONResponse().Data(sheet).Write(w)
}

type balancesRequest struct {
	Amounts map[string]amountField `json:"amounts"`
}

func (s *Server) handleSaveBalances(w http.ResponseWriter, r *http.Request) {
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, "save balances", err)
		return
	}

	var req balancesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	amounts := make(map[int64]decimal.Decimal, len(req.Amounts))
	problems := fieldErrors{}
	for key, raw := range req.Amounts {
		field := "amounts." + key
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			problems.add(field, "invalid account id")
			continue
		}
		if raw == "" {
			continue
		}
		amount, err := raw.decimal()
		if err != nil {
			problems.add(field, err.Error())
			continue
		}
		amounts[id] = amount
	}
	if err := problems.err(); err != nil {
		writeError(w, r, "save balances", err)
		return
	}

	if err := s.deps.Reports.SaveMonthlyBalances(r.Context(), p, amounts); err != nil {
		writeError(w, r, "save balances", err)
		return
	}
	sheet, err := s.deps.Reports.BalanceSheet(r.Context(), p)
	if err != nil {
		writeError(w, r, "balance sheet", err)
		return
	}
	NewJSONResponse().Data(sheet).Write(w)
}
