package http

import (
	"context"
	"net/http"
	"strings"

	"moneytracker/internal/core"
)

// referenceFields is the body shared by sources, accounts and categories.
// IsActive defaults to true on create and to the stored value on update.
type referenceFields struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
	IsActive     *bool  `json:"isActive"`
	DisplayOrder int    `json:"displayOrder"`
}

func (f referenceFields) active(current bool) bool {
	if f.IsActive == nil {
		return current
	}
	return *f.IsActive
}

func (f referenceFields) clean() referenceFields {
	f.Name = sanitizeInput(f.Name)
	f.Slug = strings.ToLower(sanitizeInput(f.Slug))
	f.Color = sanitizeInput(f.Color)
	f.Icon = sanitizeInput(f.Icon)
	return f
}

type accountRequest struct {
	referenceFields
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

type categoryRequest struct {
	referenceFields
	ParentID *int64 `json:"parentId"`
}

// crud bundles the operations the generic handlers below need for one
// reference kind.
type crud[T any, R any] struct {
	kind   string
	list   func(context.Context) ([]T, error)
	get    func(context.Context, int64) (T, error)
	create func(context.Context, T) (T, error)
	update func(context.Context, T) (T, error)
	toggle func(context.Context, int64) (T, error)
	delete func(context.Context, int64) error
	// build turns a request into an entity. current is nil on create.
	build func(req R, id int64, current *T) T
}

func (c crud[T, R]) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := c.list(r.Context())
	if err != nil {
		writeError(w, r, "list "+c.kind, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	NewJSONResponse().Data(items).Write(w)
}

func (c crud[T, R]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req R
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	created, err := c.create(r.Context(), c.build(req, 0, nil))
	if err != nil {
		writeError(w, r, "create "+c.kind, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(created).Write(w)
}

func (c crud[T, R]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req R
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	current, err := c.get(r.Context(), id)
	if err != nil {
		writeError(w, r, "update "+c.kind, err)
		return
	}
	updated, err := c.update(r.Context(), c.build(req, id, &current))
	if err != nil {
		writeError(w, r, "update "+c.kind, err)
		return
	}
	NewJSONResponse().Data(updated).Write(w)
}

func (c crud[T, R]) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	item, err := c.toggle(r.Context(), id)
	if err != nil {
		writeError(w, r, "toggle "+c.kind, err)
		return
	}
	NewJSONResponse().Data(item).Write(w)
}

func (c crud[T, R]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := c.delete(r.Context(), id); err != nil {
		writeError(w, r, "delete "+c.kind, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Sources

func (s *Server) sources() crud[core.EarningSource, referenceFields] {
	refs := s.deps.References
	return crud[core.EarningSource, referenceFields]{
		kind:   "source",
		list:   refs.ListSources,
		get:    refs.GetSource,
		create: refs.CreateSource,
		update: refs.UpdateSource,
		toggle: refs.ToggleSource,
		delete: refs.DeleteSource,
		build: func(req referenceFields, id int64, current *core.EarningSource) core.EarningSource {
			req = req.clean()
			src := core.EarningSource{
				ID: id, Name: req.Name, Slug: req.Slug, Color: req.Color, Icon: req.Icon,
				IsActive: req.active(true), DisplayOrder: req.DisplayOrder,
			}
			if current != nil {
				src.IsActive = req.active(current.IsActive)
			}
			return src
		},
	}
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request)  { s.sources().handleList(w, r) }
func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) { s.sources().handleCreate(w, r) }
func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) { s.sources().handleUpdate(w, r) }
func (s *Server) handleToggleSource(w http.ResponseWriter, r *http.Request) { s.sources().handleToggle(w, r) }
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) { s.sources().handleDelete(w, r) }

// Accounts

func (s *Server) accounts() crud[core.Account, accountRequest] {
	refs := s.deps.References
	return crud[core.Account, accountRequest]{
		kind:   "account",
		list:   refs.ListAccounts,
		get:    refs.GetAccount,
		create: refs.CreateAccount,
		update: refs.UpdateAccount,
		toggle: refs.ToggleAccount,
		delete: refs.DeleteAccount,
		build: func(req accountRequest, id int64, current *core.Account) core.Account {
			f := req.referenceFields.clean()
			a := core.Account{
				ID: id, Name: f.Name, Slug: f.Slug, Color: f.Color, Icon: f.Icon,
				Type:     core.AccountType(strings.ToLower(sanitizeInput(req.Type))),
				Currency: core.Currency(strings.ToUpper(sanitizeInput(req.Currency))),
				IsActive: f.active(true), DisplayOrder: f.DisplayOrder,
			}
			if current != nil {
				a.IsActive = f.active(current.IsActive)
			}
			return a
		},
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request)  { s.accounts().handleList(w, r) }
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) { s.accounts().handleCreate(w, r) }
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) { s.accounts().handleUpdate(w, r) }
func (s *Server) handleToggleAccount(w http.ResponseWriter, r *http.Request) { s.accounts().handleToggle(w, r) }
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) { s.accounts().handleDelete(w, r) }

// Categories

func (s *Server) categories() crud[core.SpendingCategory, categoryRequest] {
	refs := s.deps.References
	return crud[core.SpendingCategory, categoryRequest]{
		kind:   "category",
		list:   refs.ListCategories,
		get:    refs.GetCategory,
		create: refs.CreateCategory,
		update: refs.UpdateCategory,
		toggle: refs.ToggleCategory,
		delete: refs.DeleteCategory,
		build: func(req categoryRequest, id int64, current *core.SpendingCategory) core.SpendingCategory {
			f := req.referenceFields.clean()
			c := core.SpendingCategory{
				ID: id, Name: f.Name, Slug: f.Slug, Color: f.Color, Icon: f.Icon,
				ParentID: req.ParentID, IsActive: f.active(true), DisplayOrder: f.DisplayOrder,
			}
			if current != nil {
				c.IsActive = f.active(current.IsActive)
			}
			return c
		},
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.categories().handleList(w, r)
}
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	s.categories().handleCreate(w, r)
}
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	s.categories().handleUpdate(w, r)
}
func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	s.categories().handleToggle(w, r)
}
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.categories().handleDelete(w, r)
}
