package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Period is a (year, month) reporting bucket.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// NewPeriod builds and validates a period.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return NewPeriod(year, month)
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1900 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Previous returns the preceding calendar month.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// YearEarlier returns the same month one year before.
func (p Period) YearEarlier() Period {
	return Period{Year: p.Year - 1, Month: p.Month}
}

// Compare returns -1, 0 or 1 when p is before, equal to or after q.
func (p Period) Compare(q Period) int {
	switch {
	case p.Year < q.Year:
		return -1
	case p.Year > q.Year:
		return 1
	case p.Month < q.Month:
		return -1
	case p.Month > q.Month:
		return 1
	}
	return 0
}

// Start is midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the start of the following period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// FirstDay and LastDay bound the period as YYYY-MM-DD strings, inclusive.
func (p Period) FirstDay() string {
	return p.Start().Format(dateLayout)
}

func (p Period) LastDay() string {
	return p.End().AddDate(0, 0, -1).Format(dateLayout)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Date is a calendar day stored as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Period returns the bucket the date falls in.
func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
