package services

import (
	"context"
	"errors"
	"fmt"

	"moneytracker/internal/log"
	"moneytracker/internal/sheets"
)

// ErrExportDisabled is returned when no spreadsheet writer is configured.
var ErrExportDisabled = errors.New("sheets export is not configured")

// SeriesReporter builds the three yearly reports that get exported.
type SeriesReporter interface {
	Earnings(ctx context.Context) (*SeriesReport, error)
	Spending(ctx context.Context) (*SeriesReport, error)
	Balances(ctx context.Context) (*SeriesReport, error)
}

// ExportedTab is the outcome of writing one report.
type ExportedTab struct {
	Name  string `json:"name"`
	Range string `json:"range"`
	Years int    `json:"years"`
}

// ExportService pushes the yearly rollups to a spreadsheet.
type ExportService struct {
	reports SeriesReporter
	writer  sheets.RollupWriter
	logger  *log.Logger
}

func NewExportService(reports SeriesReporter, writer sheets.RollupWriter, logger *log.Logger) *ExportService {
	if logger == nil {
		logger = log.Nop()
	}
	return &ExportService{reports: reports, writer: writer, logger: logger.WithComponent(log.ComponentSheets)}
}

// Enabled reports whether a writer is configured.
func (s *ExportService) Enabled() bool {
	return s != nil && s.writer != nil
}

// Export writes the earnings, spending and balances rollups, one tab each.
// It stops at the first failure.
func (s *ExportService) Export(ctx context.Context) ([]ExportedTab, error) {
	if !s.Enabled() {
		return nil, ErrExportDisabled
	}

	reports := []struct {
		name  string
		build func(context.Context) (*SeriesReport, error)
	}{
		{"Earnings", s.reports.Earnings},
		{"Spending", s.reports.Spending},
		{"Balances", s.reports.Balances},
	}

	out := make([]ExportedTab, 0, len(reports))
	for _, r := range reports {
		report, err := r.build(ctx)
		if err != nil {
			return out, fmt.Errorf("build %s report: %w", r.name, err)
		}
		rng, err := s.writer.WriteRollup(ctx, sheets.Rollup{
			Name:     r.name,
			Currency: report.Currency,
			Years:    report.Years,
		})
		if err != nil {
			return out, fmt.Errorf("export %s: %w", r.name, err)
		}
		out = append(out, ExportedTab{Name: r.name, Range: rng, Years: len(report.Years)})
	}

	s.logger.InfoContext(ctx, "Exported reports to sheets", log.FieldOperation, log.OpExport, "tabs", len(out))
	return out, nil
}
