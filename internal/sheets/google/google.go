package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneytracker/internal/log"
	ports "moneytracker/internal/sheets"
)

// Config selects the target spreadsheet and the service account used to
// write to it. Inline JSON wins over the file path.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ ports.RollupWriter = (*Client)(nil)

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID and the service account from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// NewFromEnv creates a Sheets client from ConfigFromEnv.
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Client, error) {
	return New(ctx, ConfigFromEnv(), logger)
}

// New creates a Sheets client authorized as the configured service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	httpClient, err := newAuthorizedClient(credentialsJSON)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg.SpreadsheetID, logger), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newAuthorizedClient signs requests as the service account on top of a
// pooled transport. The token source keeps its own background context since
// tokens are refreshed long after construction.
func newAuthorizedClient(credentialsJSON []byte) (*http.Client, error) {
	conf, err := gauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClientWithPooling())
	return conf.Client(tokenCtx), nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// WriteRollup creates the tab if needed, clears it and writes the rollup rows
// from A1.
func (c *Client) WriteRollup(ctx context.Context, r ports.Rollup) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := strings.TrimSpace(r.Name)
	if title == "" {
		return "", errors.New("rollup name is required")
	}

	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	tab := quoteTitle(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tab, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", title, err)
	}

	rows := ports.Rows(r)
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("write %s: %w", title, err)
	}

	c.logger.InfoContext(ctx, "Exported rollup",
		"sheet", title,
		"currency", string(r.Currency),
		"rows", len(rows),
		"range", resp.UpdatedRange,
	)
	return resp.UpdatedRange, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.logger.InfoContext(ctx, "Created sheet", "sheet", title)
	return nil
}

// quoteTitle quotes a sheet title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
