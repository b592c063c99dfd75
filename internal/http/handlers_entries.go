package http

import (
	"net/http"

	"moneytracker/internal/core"
)

// entryFields is the body shared by earnings and spending.
type entryFields struct {
	Amount   amountField `json:"amount"`
	Currency string      `json:"currency"`
	Date     string      `json:"date"`
	Notes    string      `json:"notes"`
}

type parsedEntry struct {
	money core.Money
	date  core.Date
	notes string
}

func (f entryFields) parse(problems fieldErrors) parsedEntry {
	var out parsedEntry
	amount, err := f.Amount.decimal()
	if err != nil {
		problems.add("amount", err.Error())
	}
	cur := core.DefaultDisplayCurrency
	if f.Currency != "" {
		if cur, err = core.ParseCurrency(f.Currency); err != nil {
			problems.add("currency", err.Error())
		}
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		problems.add("date", err.Error())
	}
	out.money = core.NewMoney(amount, cur)
	out.date = date
	out.notes = sanitizeInput(f.Notes)
	return out
}

type earningRequest struct {
	SourceID int64 `json:"sourceId"`
	entryFields
}

func (req earningRequest) toEarning() (core.Earning, error) {
	problems := fieldErrors{}
	if req.SourceID <= 0 {
		problems.add("sourceId", "source is required")
	}
	p := req.parse(problems)
	if err := problems.err(); err != nil {
		return core.Earning{}, err
	}
	return core.Earning{
		SourceID: req.SourceID,
		Amount:   p.money.Amount,
		Currency: p.money.Currency,
		Date:     p.date,
		Notes:    p.notes,
	}, nil
}

type spendingRequest struct {
	CategoryID int64 `json:"categoryId"`
	entryFields
}

func (req spendingRequest) toSpending() (core.Spending, error) {
	problems := fieldErrors{}
	if req.CategoryID <= 0 {
		problems.add("categoryId", "category is required")
	}
	p := req.parse(problems)
	if err := problems.err(); err != nil {
		return core.Spending{}, err
	}
	return core.Spending{
		CategoryID: req.CategoryID,
		Amount:     p.money.Amount,
		Currency:   p.money.Currency,
		Date:       p.date,
		Notes:      p.notes,
	}, nil
}

func (s *Server) decodeEarning(w http.ResponseWriter, r *http.Request) (core.Earning, bool) {
	var req earningRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.Earning{}, false
	}
	e, err := req.toEarning()
	if err != nil {
		writeError(w, r, "parse earning", err)
		return core.Earning{}, false
	}
	return e, true
}

func (s *Server) decodeSpending(w http.ResponseWriter, r *http.Request) (core.Spending, bool) {
	var req spendingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.Spending{}, false
	}
	sp, err := req.toSpending()
	if err != nil {
		writeError(w, r, "parse spending", err)
		return core.Spending{}, false
	}
	return sp, true
}

func (s *Server) handleCreateEarning(w http.ResponseWriter, r *http.Request) {
	e, ok := s.decodeEarning(w, r)
	if !ok {
		return
	}
	created, err := s.deps.Entries.CreateEarning(r.Context(), e)
	if err != nil {
		writeError(w, r, "create earning", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(created).Write(w)
}

func (s *Server) handleUpdateEarning(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, ok := s.decodeEarning(w, r)
	if !ok {
		return
	}
	e.ID = id
	updated, err := s.deps.Entries.UpdateEarning(r.Context(), e)
	if err != nil {
		writeError(w, r, "update earning", err)
		return
	}
	NewJSONResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteEarning(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Entries.DeleteEarning(r.Context(), id); err != nil {
		writeError(w, r, "delete earning", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCreateSpending(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.decodeSpending(w, r)
	if !ok {
		return
	}
	created, err := s.deps.Entries.CreateSpending(r.Context(), sp)
	if err != nil {
		writeError(w, r, "create spending", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(created).Write(w)
}

func (s *Server) handleUpdateSpending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sp, ok := s.decodeSpending(w, r)
	if !ok {
		return
	}
	sp.ID = id
	updated, err := s.deps.Entries.UpdateSpending(r.Context(), sp)
	if err != nil {
		writeError(w, r, "update spending", err)
		return
	}
	NewJSONResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteSpending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Entries.DeleteSpending(r.Context(), id); err != nil {
		writeError(w, r, "delete spending", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
