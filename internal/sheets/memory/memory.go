package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"moneytracker/internal/sheets"
)

// Writer keeps exported tabs in memory. It stands in for the spreadsheet in
// tests and local runs.
type Writer struct {
	mu   sync.Mutex
	tabs map[string][][]string
}

var _ sheets.RollupWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{tabs: make(map[string][][]string)}
}

// WriteRollup replaces the tab and returns a synthetic range reference.
func (w *Writer) WriteRollup(_ context.Context, r sheets.Rollup) (string, error) {
	title := strings.TrimSpace(r.Name)
	if title == "" {
		return "", errors.New("rollup name is required")
	}
	rows := sheets.Rows(r)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tabs[title] = rows
	return fmt.Sprintf("mem:%s!A1:E%d", title, len(rows)), nil
}

// Tab returns a copy of the rows last written to title.
func (w *Writer) Tab(title string) ([][]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.tabs[title]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, true
}

// Tabs lists the written tab titles in name order.
func (w *Writer) Tabs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.tabs))
	for name := range w.tabs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
