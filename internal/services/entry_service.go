package services

import (
	"context"
	"errors"
	"fmt"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/store"
)

// EntryStore is the slice of the store that earnings and spending need.
type EntryStore interface {
	store.EarningStore
	store.SpendingStore
	GetSource(ctx context.Context, id int64) (core.EarningSource, error)
	GetCategory(ctx context.Context, id int64) (core.SpendingCategory, error)
}

// EntryService validates earnings and spending before they reach the store.
type EntryService struct {
	store  EntryStore
	logger *log.Logger
}

func NewEntryService(s EntryStore, logger *log.Logger) *EntryService {
	if logger == nil {
		logger = log.Nop()
	}
	return &EntryService{store: s, logger: logger.WithComponent(log.ComponentEntries)}
}

func fieldError(field, msg string) error {
	return &core.ValidationError{Fields: map[string]string{field: msg}}
}

func (s *EntryService) checkSource(ctx context.Context, id int64) error {
	if _, err := s.store.GetSource(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fieldError("sourceId", "source not found")
		}
		return fmt.Errorf("get source %d: %w", id, err)
	}
	return nil
}

func (s *EntryService) checkCategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fieldError("categoryId", "category not found")
		}
		return fmt.Errorf("get category %d: %w", id, err)
	}
	return nil
}

func (s *EntryService) logEntry(ctx context.Context, op, kind string, id int64, m core.Money) {
	s.logger.InfoContext(ctx, "Entry saved", log.NewFields().
		WithOperation(op).
		WithEntry(kind, id, m.Amount.String(), m.Currency.String()).
		ToSlice()...)
}

// Earnings

func (s *EntryService) GetEarning(ctx context.Context, id int64) (core.Earning, error) {
	return s.store.GetEarning(ctx, id)
}

func (s *EntryService) CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	e.ID = 0
	if err := e.Validate(); err != nil {
		return core.Earning{}, err
	}
	if err := s.checkSource(ctx, e.SourceID); err != nil {
		return core.Earning{}, err
	}
	created, err := s.store.CreateEarning(ctx, e)
	if err != nil {
		return core.Earning{}, fmt.Errorf("save earning: %w", err)
	}
	s.logEntry(ctx, log.OpCreate, "earning", created.ID, core.NewMoney(created.Amount, created.Currency))
	return created, nil
}

func (s *EntryService) UpdateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	if err := e.Validate(); err != nil {
		return core.Earning{}, err
	}
	if err := s.checkSource(ctx, e.SourceID); err != nil {
		return core.Earning{}, err
	}
	updated, err := s.store.UpdateEarning(ctx, e)
	if err != nil {
		return core.Earning{}, fmt.Errorf("update earning %d: %w", e.ID, err)
	}
	s.logEntry(ctx, log.OpUpdate, "earning", updated.ID, core.NewMoney(updated.Amount, updated.Currency))
	return updated, nil
}

func (s *EntryService) DeleteEarning(ctx context.Context, id int64) error {
	if err := s.store.DeleteEarning(ctx, id); err != nil {
		return fmt.Errorf("delete earning %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Entry deleted", log.FieldEntryKind, "earning", log.FieldEntryID, id)
	return nil
}

// Spending

func (s *EntryService) GetSpending(ctx context.Context, id int64) (core.Spending, error) {
	return s.store.GetSpending(ctx, id)
}

func (s *EntryService) CreateSpending(ctx context.Context, sp core.Spending) (core.Spending, error) {
	sp.ID = 0
	if err := sp.Validate(); err != nil {
		return core.Spending{}, err
	}
	if err := s.checkCategory(ctx, sp.CategoryID); err != nil {
		return core.Spending{}, err
	}
	created, err := s.store.CreateSpending(ctx, sp)
	if err != nil {
		return core.Spending{}, fmt.Errorf("save spending: %w", err)
	}
	s.logEntry(ctx, log.OpCreate, "spending", created.ID, core.NewMoney(created.Amount, created.Currency))
	return created, nil
}

func (s *EntryService) UpdateSpending(ctx context.Context, sp core.Spending) (core.Spending, error) {
	if err := sp.Validate(); err != nil {
		return core.Spending{}, err
	}
	if err := s.checkCategory(ctx, sp.CategoryID); err != nil {
		return core.Spending{}, err
	}
	updated, err := s.store.UpdateSpending(ctx, sp)
	if err != nil {
		return core.Spending{}, fmt.Errorf("update spending %d: %w", sp.ID, err)
	}
	s.logEntry(ctx, log.OpUpdate, "spending", updated.ID, core.NewMoney(updated.Amount, updated.Currency))
	return updated, nil
}

func (s *EntryService) DeleteSpending(ctx context.Context, id int64) error {
	if err := s.store.DeleteSpending(ctx, id); err != nil {
		return fmt.Errorf("delete spending %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Entry deleted", log.FieldEntryKind, "spending", log.FieldEntryID, id)
	return nil
}
