package core

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountBank       AccountType = "bank"
	AccountInvestment AccountType = "investment"
	AccountCrypto     AccountType = "crypto"
	AccountCash       AccountType = "cash"
)

const maxNotesLength = 500

type (
	AccountType string

	// EarningSource is where income comes from (a job, a channel, a client).
	EarningSource struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Slug         string    `json:"slug"`
		Color        string    `json:"color,omitempty"`
		Icon         string    `json:"icon,omitempty"`
		IsActive     bool      `json:"isActive"`
		DisplayOrder int       `json:"displayOrder"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// Account holds money in a single currency and gets a balance snapshot per month.
	Account struct {
		ID           int64       `json:"id"`
		Name         string      `json:"name"`
		Slug         string      `json:"slug"`
		Type         AccountType `json:"type"`
		Currency     Currency    `json:"currency"`
		Color        string      `json:"color,omitempty"`
		Icon         string      `json:"icon,omitempty"`
		IsActive     bool        `json:"isActive"`
		DisplayOrder int         `json:"displayOrder"`
		CreatedAt    time.Time   `json:"createdAt"`
	}

	// SpendingCategory may have a parent; nesting is one level deep.
	SpendingCategory struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Slug         string    `json:"slug"`
		ParentID     *int64    `json:"parentId,omitempty"`
		Color        string    `json:"color,omitempty"`
		Icon         string    `json:"icon,omitempty"`
		IsActive     bool      `json:"isActive"`
		DisplayOrder int       `json:"displayOrder"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Earning struct {
		ID        int64           `json:"id"`
		SourceID  int64           `json:"sourceId"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  Currency        `json:"currency"`
		Date      Date            `json:"date"`
		Notes     string          `json:"notes,omitempty"`
		CreatedAt time.Time       `json:"createdAt"`

		// Filled by list queries.
		SourceName  string `json:"sourceName,omitempty"`
		SourceColor string `json:"sourceColor,omitempty"`
	}

	Spending struct {
		ID         int64           `json:"id"`
		CategoryID int64           `json:"categoryId"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   Currency        `json:"currency"`
		Date       Date            `json:"date"`
		Notes      string          `json:"notes,omitempty"`
		CreatedAt  time.Time       `json:"createdAt"`

		CategoryName  string `json:"categoryName,omitempty"`
		CategoryColor string `json:"categoryColor,omitempty"`
	}

	// MonthlyBalance is the snapshot of one account at the start of a month.
	// Currency is the account's currency.
	MonthlyBalance struct {
		ID        int64           `json:"id"`
		Period    Period          `json:"period"`
		AccountID int64           `json:"accountId"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  Currency        `json:"currency"`
	}

	// ExchangeRate is how many units of Currency buy one unit of BaseCurrency.
	ExchangeRate struct {
		Currency  Currency        `json:"currency"`
		Rate      decimal.Decimal `json:"rate"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}

	// MoneyEntry is the view of an earning, spending or balance row that
	// reporting works on.
	MoneyEntry struct {
		Amount   decimal.Decimal
		Currency Currency
		Period   Period
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidYear         = errors.New("invalid year")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrInvalidDate         = errors.New("invalid date")
	ErrValidation          = errors.New("validation failed")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidationError collects per-field problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type validator struct {
	fields map[string]string
}

func (v *validator) add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func (v *validator) nameAndSlug(name, slug string) {
	if strings.TrimSpace(name) == "" {
		v.add("name", "Name is required")
	}
	if slug == "" {
		v.add("slug", "Slug is required")
	} else if !slugPattern.MatchString(slug) {
		v.add("slug", "Slug must be lowercase with hyphens only")
	}
}

func (v *validator) positiveMoney(amount decimal.Decimal, currency Currency) {
	if !amount.IsPositive() {
		v.add("amount", ErrInvalidAmount.Error())
	}
	if !currency.IsValid() {
		v.add("currency", ErrInvalidCurrency.Error())
	}
}

func (v *validator) dateAndNotes(d Date, notes string) {
	if d.Validate() != nil {
		v.add("date", ErrInvalidDate.Error())
	}
	if len(notes) > maxNotesLength {
		v.add("notes", "notes too long (max 500 characters)")
	}
}

func (t AccountType) IsValid() bool {
	switch t {
	case AccountBank, AccountInvestment, AccountCrypto, AccountCash:
		return true
	}
	return false
}

func (s EarningSource) Validate() error {
	var v validator
	v.nameAndSlug(s.Name, s.Slug)
	return v.err()
}

func (a Account) Validate() error {
	var v validator
	v.nameAndSlug(a.Name, a.Slug)
	if !a.Type.IsValid() {
		v.add("type", "type must be one of bank, investment, crypto, cash")
	}
	if !a.Currency.IsValid() {
		v.add("currency", ErrInvalidCurrency.Error())
	}
	return v.err()
}

func (c SpendingCategory) Validate() error {
	var v validator
	v.nameAndSlug(c.Name, c.Slug)
	if c.ParentID != nil && c.ID != 0 && *c.ParentID == c.ID {
		v.add("parentId", "category cannot be its own parent")
	}
	return v.err()
}

func (e Earning) Validate() error {
	var v validator
	if e.SourceID <= 0 {
		v.add("sourceId", "source is required")
	}
	v.positiveMoney(e.Amount, e.Currency)
	v.dateAndNotes(e.Date, e.Notes)
	return v.err()
}

func (s Spending) Validate() error {
	var v validator
	if s.CategoryID <= 0 {
		v.add("categoryId", "category is required")
	}
	v.positiveMoney(s.Amount, s.Currency)
	v.dateAndNotes(s.Date, s.Notes)
	return v.err()
}

func (b MonthlyBalance) Validate() error {
	var v validator
	if err := b.Period.Validate(); err != nil {
		v.add("period", err.Error())
	}
	if b.AccountID <= 0 {
		v.add("accountId", "account is required")
	}
	if b.Amount.IsNegative() {
		v.add("amount", ErrInvalidAmount.Error())
	}
	return v.err()
}

// Normalize fills defaults the same way the store does on insert.
func (a *Account) Normalize() {
	if a.Type == "" {
		a.Type = AccountBank
	}
	if a.Currency == "" {
		a.Currency = DefaultDisplayCurrency
	}
}

func (e Earning) Entry() MoneyEntry {
	return MoneyEntry{Amount: e.Amount, Currency: e.Currency, Period: e.Date.Period()}
}

func (s Spending) Entry() MoneyEntry {
	return MoneyEntry{Amount: s.Amount, Currency: s.Currency, Period: s.Date.Period()}
}

func (b MonthlyBalance) Entry() MoneyEntry {
	cur := b.Currency
	if cur == "" {
		cur = BaseCurrency
	}
	return MoneyEntry{Amount: b.Amount, Currency: cur, Period: b.Period}
}

// Money returns the amount/currency pair of the entry.
func (e MoneyEntry) Money() Money {
	return Money{Amount: e.Amount, Currency: e.Currency}
}
