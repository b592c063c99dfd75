package services

import (
	"context"
	"fmt"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/store"
)

// ReferenceStore is the slice of the store that holds sources, accounts and
// categories.
type ReferenceStore interface {
	store.SourceStore
	store.AccountStore
	store.CategoryStore
}

// ReferenceService validates and persists the reference data entries point at.
type ReferenceService struct {
	store  ReferenceStore
	logger *log.Logger
}

func NewReferenceService(s ReferenceStore, logger *log.Logger) *ReferenceService {
	if logger == nil {
		logger = log.Nop()
	}
	return &ReferenceService{store: s, logger: logger.WithComponent(log.ComponentEntries)}
}

func (s *ReferenceService) logChange(ctx context.Context, op, kind string, id int64) {
	s.logger.InfoContext(ctx, "Reference data changed",
		log.FieldOperation, op,
		log.FieldEntryKind, kind,
		log.FieldEntryID, id,
	)
}

// Sources

func (s *ReferenceService) ListSources(ctx context.Context) ([]core.EarningSource, error) {
	return s.store.ListSources(ctx)
}

func (s *ReferenceService) GetSource(ctx context.Context, id int64) (core.EarningSource, error) {
	src, err := s.store.GetSource(ctx, id)
	if err != nil {
		return core.EarningSource{}, fmt.Errorf("get source %d: %w", id, err)
	}
	return src, nil
}

func (s *ReferenceService) CreateSource(ctx context.Context, src core.EarningSource) (core.EarningSource, error) {
	src.ID = 0
	if err := src.Validate(); err != nil {
		return core.EarningSource{}, err
	}
	created, err := s.store.CreateSource(ctx, src)
	if err != nil {
		return core.EarningSource{}, fmt.Errorf("create source: %w", err)
	}
	s.logChange(ctx, log.OpCreate, "source", created.ID)
	return created, nil
}

func (s *ReferenceService) UpdateSource(ctx context.Context, src core.EarningSource) (core.EarningSource, error) {
	if err := src.Validate(); err != nil {
		return core.EarningSource{}, err
	}
	updated, err := s.store.UpdateSource(ctx, src)
	if err != nil {
		return core.EarningSource{}, fmt.Errorf("update source %d: %w", src.ID, err)
	}
	s.logChange(ctx, log.OpUpdate, "source", updated.ID)
	return updated, nil
}

// ToggleSource flips the active flag and returns the stored source.
func (s *ReferenceService) ToggleSource(ctx context.Context, id int64) (core.EarningSource, error) {
	src, err := s.store.GetSource(ctx, id)
	if err != nil {
		return core.EarningSource{}, fmt.Errorf("get source %d: %w", id, err)
	}
	if err := s.store.SetSourceActive(ctx, id, !src.IsActive); err != nil {
		return core.EarningSource{}, fmt.Errorf("toggle source %d: %w", id, err)
	}
	src.IsActive = !src.IsActive
	s.logChange(ctx, log.OpUpdate, "source", id)
	return src, nil
}

func (s *ReferenceService) DeleteSource(ctx context.Context, id int64) error {
	if err := s.store.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("delete source %d: %w", id, err)
	}
	s.logChange(ctx, log.OpDelete, "source", id)
	return nil
}

// Accounts

func (s *ReferenceService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *ReferenceService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (s *ReferenceService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = 0
	a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.logChange(ctx, log.OpCreate, "account", created.ID)
	return created, nil
}

func (s *ReferenceService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	updated, err := s.store.UpdateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account %d: %w", a.ID, err)
	}
	s.logChange(ctx, log.OpUpdate, "account", updated.ID)
	return updated, nil
}

func (s *ReferenceService) ToggleAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	if err := s.store.SetAccountActive(ctx, id, !a.IsActive); err != nil {
		return core.Account{}, fmt.Errorf("toggle account %d: %w", id, err)
	}
	a.IsActive = !a.IsActive
	s.logChange(ctx, log.OpUpdate, "account", id)
	return a, nil
}

func (s *ReferenceService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	s.logChange(ctx, log.OpDelete, "account", id)
	return nil
}

// Categories

func (s *ReferenceService) ListCategories(ctx context.Context) ([]core.SpendingCategory, error) {
	return s.store.ListCategories(ctx)
}

func (s *ReferenceService) GetCategory(ctx context.Context, id int64) (core.SpendingCategory, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.SpendingCategory{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *ReferenceService) CreateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error) {
	c.ID = 0
	if err := c.Validate(); err != nil {
		return core.SpendingCategory{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.SpendingCategory{}, fmt.Errorf("create category: %w", err)
	}
	s.logChange(ctx, log.OpCreate, "category", created.ID)
	return created, nil
}

func (s *ReferenceService) UpdateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error) {
	if err := c.Validate(); err != nil {
		return core.SpendingCategory{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.SpendingCategory{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	s.logChange(ctx, log.OpUpdate, "category", updated.ID)
	return updated, nil
}

func (s *ReferenceService) ToggleCategory(ctx context.Context, id int64) (core.SpendingCategory, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.SpendingCategory{}, fmt.Errorf("get category %d: %w", id, err)
	}
	if err := s.store.SetCategoryActive(ctx, id, !c.IsActive); err != nil {
		return core.SpendingCategory{}, fmt.Errorf("toggle category %d: %w", id, err)
	}
	c.IsActive = !c.IsActive
	s.logChange(ctx, log.OpUpdate, "category", id)
	return c, nil
}

func (s *ReferenceService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.logChange(ctx, log.OpDelete, "category", id)
	return nil
}
