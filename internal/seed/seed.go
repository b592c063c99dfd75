// Package seed inserts the starter reference data: earning sources,
// accounts and spending categories. Rows whose slug already exists are
// skipped, so running it twice is harmless.
package seed

import (
	"context"
	"errors"
	"fmt"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/store"
)

// Creator is the part of services.ReferenceService the seed needs.
type Creator interface {
	CreateSource(ctx context.Context, s core.EarningSource) (core.EarningSource, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	ListCategories(ctx context.Context) ([]core.SpendingCategory, error)
	CreateCategory(ctx context.Context, c core.SpendingCategory) (core.SpendingCategory, error)
}

var Sources = []core.EarningSource{
	{Name: "Job", Slug: "job", Color: "#3b82f6", Icon: "briefcase", DisplayOrder: 0},
	{Name: "TubeChef", Slug: "tc", Color: "#f97316", Icon: "youtube", DisplayOrder: 1},
	{Name: "Elevate", Slug: "elevate", Color: "#8b5cf6", Icon: "trending-up", DisplayOrder: 2},
	{Name: "Elevate Affiliates YT", Slug: "elevate-affiliates-yt", Color: "#ec4899", Icon: "users", DisplayOrder: 3},
}

var Accounts = []core.Account{
	{Name: "OpenBank", Slug: "openbank", Type: core.AccountBank, Currency: core.EUR, Color: "#10b981", Icon: "landmark", DisplayOrder: 0},
	{Name: "Cajamar", Slug: "cajamar", Type: core.AccountBank, Currency: core.EUR, Color: "#06b6d4", Icon: "landmark", DisplayOrder: 1},
	{Name: "Mercury", Slug: "mercury", Type: core.AccountBank, Currency: core.USD, Color: "#6366f1", Icon: "landmark", DisplayOrder: 2},
	{Name: "Cash", Slug: "cash", Type: core.AccountCash, Currency: core.EUR, Color: "#84cc16", Icon: "wallet", DisplayOrder: 3},
}

// Category is a top-level category with its subcategories.
type Category struct {
	core.SpendingCategory
	Children []core.SpendingCategory
}

var Categories = []Category{
	{SpendingCategory: core.SpendingCategory{Name: "Housing", Slug: "housing", Color: "#f59e0b", Icon: "home", DisplayOrder: 0},
		Children: []core.SpendingCategory{
			{Name: "Rent", Slug: "rent", DisplayOrder: 0},
			{Name: "Utilities", Slug: "utilities", DisplayOrder: 1},
		}},
	{SpendingCategory: core.SpendingCategory{Name: "Food", Slug: "food", Color: "#ef4444", Icon: "utensils", DisplayOrder: 1},
		Children: []core.SpendingCategory{
			{Name: "Groceries", Slug: "groceries", DisplayOrder: 0},
			{Name: "Restaurants", Slug: "restaurants", DisplayOrder: 1},
		}},
	{SpendingCategory: core.SpendingCategory{Name: "Transport", Slug: "transport", Color: "#0ea5e9", Icon: "car", DisplayOrder: 2}},
	{SpendingCategory: core.SpendingCategory{Name: "Health", Slug: "health", Color: "#22c55e", Icon: "heart", DisplayOrder: 3}},
	{SpendingCategory: core.SpendingCategory{Name: "Subscriptions", Slug: "subscriptions", Color: "#a855f7", Icon: "repeat", DisplayOrder: 4}},
	{SpendingCategory: core.SpendingCategory{Name: "Leisure", Slug: "leisure", Color: "#ec4899", Icon: "gamepad", DisplayOrder: 5}},
}

// Result counts inserted and skipped rows.
type Result struct {
	Inserted int
	Skipped  int
}

type seeder struct {
	refs   Creator
	logger *log.Logger
	result Result
}

// Run inserts every starter row that is not there yet.
func Run(ctx context.Context, refs Creator, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.Nop()
	}
	s := &seeder{refs: refs, logger: logger.WithComponent(log.ComponentSeed)}

	for _, src := range Sources {
		src.IsActive = true
		_, err := refs.CreateSource(ctx, src)
		if err := s.record(ctx, "earning source", src.Name, err); err != nil {
			return s.result, err
		}
	}
	for _, a := range Accounts {
		a.IsActive = true
		_, err := refs.CreateAccount(ctx, a)
		if err := s.record(ctx, "account", a.Name, err); err != nil {
			return s.result, err
		}
	}
	if err := s.categories(ctx); err != nil {
		return s.result, err
	}
	return s.result, nil
}

func (s *seeder) categories(ctx context.Context) error {
	existing, err := s.refs.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	bySlug := make(map[string]int64, len(existing))
	for _, c := range existing {
		bySlug[c.Slug] = c.ID
	}

	for _, parent := range Categories {
		parentID, ok := bySlug[parent.Slug]
		if ok {
			s.record(ctx, "category", parent.Name, store.ErrDuplicateSlug)
		} else {
			p := parent.SpendingCategory
			p.IsActive = true
			created, err := s.refs.CreateCategory(ctx, p)
			if err := s.record(ctx, "category", p.Name, err); err != nil {
				return err
			}
			parentID = created.ID
		}

		for _, child := range parent.Children {
			child.IsActive = true
			child.ParentID = &parentID
			child.Color = parent.Color
			_, err := s.refs.CreateCategory(ctx, child)
			if err := s.record(ctx, "category", child.Name, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// record counts the outcome of one insert. A duplicate slug is a skip;
// anything else aborts the run.
func (s *seeder) record(ctx context.Context, kind, name string, err error) error {
	switch {
	case err == nil:
		s.result.Inserted++
		s.logger.InfoContext(ctx, "Added "+kind, "name", name)
		return nil
	case errors.Is(err, store.ErrDuplicateSlug):
		s.result.Skipped++
		s.logger.InfoContext(ctx, "Skipping "+kind+" (already exists)", "name", name)
		return nil
	default:
		return fmt.Errorf("seed %s %q: %w", kind, name, err)
	}
}
