// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/models"
)

// dashboardScope is broadcast when categories or items change.
const dashboardScope = "dashboard"

// itemAccess decides which categories and items a caller may read.
// Admins see everything; everyone else sees visible entries, and guests
// additionally lose entries that require authentication.
type itemAccess struct {
	admin    bool
	signedIn bool
	cats     map[int64]models.Category
}

func (h *Handler) accessFor(ctx context.Context, kind models.ItemKind) (*itemAccess, error) {
	subject := auth.GetAuthSubject(ctx)
	a := &itemAccess{admin: subject.IsAdmin(), signedIn: subject != nil}
	if a.admin {
		return a, nil
	}
	cats, err := h.db.ListCategories(ctx, kind)
	if err != nil {
		return nil, err
	}
	a.cats = make(map[int64]models.Category, len(cats))
	for _, c := range cats {
		a.cats[c.ID] = c
	}
	return a, nil
}

func (a *itemAccess) category(c models.Category) bool {
	return a.admin || (c.IsVisible && (!c.RequiresAuth || a.signedIn))
}

func (a *itemAccess) item(categoryID int64, visible, requiresAuth bool) bool {
	if a.admin {
		return true
	}
	if !visible || (requiresAuth && !a.signedIn) {
		return false
	}
	c, ok := a.cats[categoryID]
	return ok && a.category(c)
}

// categoryIDParam reads an optional ?category_id= filter.
func categoryIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("category_id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		NewResponseWriter(w, r).BadRequest("invalid category_id")
		return 0, false
	}
	return id, true
}

// ========================
// Categories
// ========================

// ListCategories returns categories of ?kind=, or of both kinds.
// GET /api/v1/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	kinds := []models.ItemKind{models.KindBookmark, models.KindService}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, ok := kindParam(w, r, raw)
		if !ok {
			return
		}
		kinds = []models.ItemKind{kind}
	}

	out := make([]models.Category, 0)
	for _, kind := range kinds {
		access, err := h.accessFor(r.Context(), kind)
		if err != nil {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		cats, err := h.db.ListCategories(r.Context(), kind)
		if err != nil {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		for _, c := range cats {
			if access.category(c) {
				out = append(out, c)
			}
		}
	}
	NewResponseWriter(w, r).List(out, len(out))
}

// CreateCategory adds a category at the end of its kind.
// POST /api/v1/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.db.CreateCategory(r.Context(), &in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Created(c)
}

// UpdateCategory replaces a category's fields.
// PUT /api/v1/categories/{id}
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in models.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.db.UpdateCategory(r.Context(), id, &in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(c)
}

// DeleteCategory removes a category and its items.
// DELETE /api/v1/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).NoContent()
}

// ReorderCategories rewrites sort order for one kind.
// POST /api/v1/categories/reorder
func (h *Handler) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Kind.Valid() {
		NewResponseWriter(w, r).ValidationError("kind is required", map[string]string{"field": "kind"})
		return
	}
	if err := h.db.ReorderCategories(r.Context(), req.Kind, req.IDs); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(map[string]int{"reordered": len(req.IDs)})
}

// requireCategoryID rejects reorder requests without a category.
func requireCategoryID(w http.ResponseWriter, r *http.Request, req *models.ReorderRequest) bool {
	if req.CategoryID <= 0 {
		NewResponseWriter(w, r).ValidationError("category_id is required", map[string]string{"field": "category_id"})
		return false
	}
	return true
}

// ========================
// Bookmarks
// ========================

// ListBookmarks returns bookmarks, optionally of one ?category_id=.
// GET /api/v1/bookmarks
func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	catID, ok := categoryIDParam(w, r)
	if !ok {
		return
	}
	access, err := h.accessFor(r.Context(), models.KindBookmark)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	var items []models.Bookmark
	if catID > 0 {
		items, err = h.db.ListBookmarks(r.Context(), catID, access.admin)
	} else {
		items, err = h.db.ListAllBookmarks(r.Context())
	}
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	out := make([]models.Bookmark, 0, len(items))
	for _, b := range items {
		if access.item(b.CategoryID, b.IsVisible, b.RequiresAuth) {
			out = append(out, b)
		}
	}
	NewResponseWriter(w, r).List(out, len(out))
}

// GetBookmark returns one bookmark. Entries the caller may not see are
// reported as missing.
// GET /api/v1/bookmarks/{id}
func (h *Handler) GetBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	b, err := h.db.GetBookmark(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	access, err := h.accessFor(r.Context(), models.KindBookmark)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if !access.item(b.CategoryID, b.IsVisible, b.RequiresAuth) {
		respondError(w, r, database.ErrNotFound)
		return
	}
	NewResponseWriter(w, r).Success(b)
}

// CreateBookmark appends a bookmark to its category.
// POST /api/v1/bookmarks
func (h *Handler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	var in models.BookmarkInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.db.CreateBookmark(r.Context(), &in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Created(b)
}

// UpdateBookmark replaces a bookmark's fields.
// PUT /api/v1/bookmarks/{id}
func (h *Handler) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in models.BookmarkInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.db.UpdateBookmark(r.Context(), id, &in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(b)
}

// DeleteBookmark removes a bookmark.
// DELETE /api/v1/bookmarks/{id}
func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteBookmark(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).NoContent()
}

// ReorderBookmarks rewrites sort order within a category.
// POST /api/v1/bookmarks/reorder
func (h *Handler) ReorderBookmarks(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if !decodeJSON(w, r, &req) || !requireCategoryID(w, r, &req) {
		return
	}
	if err := h.db.ReorderBookmarks(r.Context(), req.CategoryID, req.IDs); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(map[string]int{"reordered": len(req.IDs)})
}

// ========================
// Services
// ========================

// ListServices returns services, optionally of one ?category_id=.
// GET /api/v1/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	catID, ok := categoryIDParam(w, r)
	if !ok {
		return
	}
	access, err := h.accessFor(r.Context(), models.KindService)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	var items []models.Service
	if catID > 0 {
		items, err = h.db.ListServices(r.Context(), catID, access.admin)
	} else {
		items, err = h.db.ListAllServices(r.Context())
	}
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	out := make([]models.Service, 0, len(items))
	for _, s := range items {
		if access.item(s.CategoryID, s.IsVisible, s.RequiresAuth) {
			out = append(out, s)
		}
	}
	NewResponseWriter(w, r).List(out, len(out))
}

// GetService returns one service.
// GET /api/v1/services/{id}
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	s, err := h.db.GetService(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	access, err := h.accessFor(r.Context(), models.KindService)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if !access.item(s.CategoryID, s.IsVisible, s.RequiresAuth) {
		respondError(w, r, database.ErrNotFound)
		return
	}
	NewResponseWriter(w, r).Success(s)
}

// CreateService appends a service to its category.
// POST /api/v1/services
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in models.ServiceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	s, err := h.db.CreateService(r.Context(), &in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Created(s)
}

// UpdateService replaces a service's fields.
// PUT /api/v1/services/{id}
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in models.ServiceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	s, err := h.db.UpdateService(r.Context(), id, &in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(s)
}

// DeleteService removes a service.
// DELETE /api/v1/services/{id}
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteService(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).NoContent()
}

// ReorderServices rewrites sort order within a category.
// POST /api/v1/services/reorder
func (h *Handler) ReorderServices(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if !decodeJSON(w, r, &req) || !requireCategoryID(w, r, &req) {
		return
	}
	if err := h.db.ReorderServices(r.Context(), req.CategoryID, req.IDs); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(map[string]int{"reordered": len(req.IDs)})
}

// CheckService runs a health check now, whether or not periodic checks
// are enabled for the service.
// POST /api/v1/services/{id}/check
func (h *Handler) CheckService(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		NewResponseWriter(w, r).ServiceUnavailable("health checks are disabled")
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	svc, err := h.db.GetService(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(h.checker.CheckService(r.Context(), svc))
}
