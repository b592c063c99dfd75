// Package backend builds the store selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"moneytracker/internal/config"
	"moneytracker/internal/log"
	"moneytracker/internal/storage"
	"moneytracker/internal/store"
	"moneytracker/internal/store/memory"
)

// Type names a store implementation.
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

// Types returns every valid backend type.
func Types() []Type {
	return []Type{SQLite, Memory}
}

type Config struct {
	Type         Type
	SQLiteDBPath string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Type:         Type(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLite && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Result holds the store and the function that releases it.
type Result struct {
	Store   store.Store
	Cleanup func() error
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &Factory{logger: logger}
}

// Create opens the configured store. The context bounds the readiness ping.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var s store.Store
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		s = repo
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case Memory:
		s = memory.New()
		f.logger.Warn("Initialized memory backend, data is lost on restart")
	}

	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("backend %s not ready: %w", cfg.Type, err)
	}

	return &Result{Store: s, Cleanup: s.Close}, nil
}
