// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/catalog"
	"github.com/sdenike/fauxdash/internal/models"
)

const maxSearchQuery = 200

// Dashboard returns the visible categories with their items. Guests do not
// see categories or items marked requires_auth. Admins may pass ?all=true
// to include hidden entries for editing.
// GET /api/v1/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := auth.GetAuthSubject(ctx)
	signedIn := subject != nil
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	includeHidden := all && subject.IsAdmin()

	dash := models.Dashboard{
		BookmarkCategories: make([]models.DashboardCategory, 0),
		ServiceCategories:  make([]models.DashboardCategory, 0),
	}

	for _, kind := range []models.ItemKind{models.KindBookmark, models.KindService} {
		cats, err := h.dashboardCategories(ctx, kind, signedIn, includeHidden)
		if err != nil {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		if kind == models.KindBookmark {
			dash.BookmarkCategories = cats
		} else {
			dash.ServiceCategories = cats
		}
	}

	settings, err := h.db.GetSettings(ctx, auth.UserIDOf(ctx))
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	dash.Appearance = catalog.AppearanceFromSettings(settings)

	NewResponseWriter(w, r).Success(dash)
}

func (h *Handler) dashboardCategories(ctx context.Context, kind models.ItemKind, signedIn, includeHidden bool) ([]models.DashboardCategory, error) {
	cats, err := h.db.ListCategories(ctx, kind)
	if err != nil {
		return nil, err
	}

	out := make([]models.DashboardCategory, 0, len(cats))
	for _, c := range cats {
		if (!c.IsVisible && !includeHidden) || (c.RequiresAuth && !signedIn) {
			continue
		}
		dc := models.DashboardCategory{Category: c}

		switch kind {
		case models.KindBookmark:
			items, err := h.db.ListBookmarks(ctx, c.ID, includeHidden)
			if err != nil {
				return nil, err
			}
			dc.Bookmarks = make([]models.Bookmark, 0, len(items))
			for _, b := range items {
				if b.RequiresAuth && !signedIn {
					continue
				}
				dc.Bookmarks = append(dc.Bookmarks, b)
			}
		case models.KindService:
			items, err := h.db.ListServices(ctx, c.ID, includeHidden)
			if err != nil {
				return nil, err
			}
			dc.Services = make([]models.Service, 0, len(items))
			for _, s := range items {
				if s.RequiresAuth && !signedIn {
					continue
				}
				dc.Services = append(dc.Services, s)
			}
		}
		out = append(out, dc)
	}
	return out, nil
}

// Search matches bookmarks and services by name, URL or description.
// GET /api/v1/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		NewResponseWriter(w, r).BadRequest("query parameter q is required")
		return
	}
	if len(q) > maxSearchQuery {
		NewResponseWriter(w, r).BadRequest("query is too long")
		return
	}

	signedIn := auth.GetAuthSubject(r.Context()) != nil
	results, err := h.db.Search(r.Context(), q, signedIn, limitParam(r, 20))
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(results, len(results))
}
