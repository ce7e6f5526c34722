// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sdenike/fauxdash/internal/analytics"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
)

// TrackResponse reports whether an event was queued.
type TrackResponse struct {
	Recorded bool `json:"recorded"`
}

// TrackClick records a click on a bookmark or service. Items the caller
// cannot see are reported as not found, the same as missing ones. Tracking
// never fails the request once the item is visible.
// POST /api/v1/track/click
func (h *Handler) TrackClick(w http.ResponseWriter, r *http.Request) {
	var req models.TrackClickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.visibleItemURL(r.Context(), req.Kind, req.ID); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(TrackResponse{Recorded: h.recordClick(r, req.Kind, req.ID)})
}

// TrackPageview records a dashboard visit.
// POST /api/v1/track/pageview
func (h *Handler) TrackPageview(w http.ResponseWriter, r *http.Request) {
	var req models.TrackPageviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	recorded := false
	if h.recorder.Enabled() {
		err := h.recorder.RecordPageview(context.WithoutCancel(r.Context()), req.Path, visitor(r, req.Referrer))
		recorded = err == nil
		logTrackError(r, err)
	}
	NewResponseWriter(w, r).Success(TrackResponse{Recorded: recorded})
}

// Redirect records a click and sends the browser to the item's URL.
// GET /api/v1/go/{kind}/{id}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r, chi.URLParam(r, "kind"))
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	target, err := h.visibleItemURL(r.Context(), kind, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.recordClick(r, kind, id)
	http.Redirect(w, r, target, http.StatusFound)
}

// visibleItemURL returns the item's URL if the caller may open it.
func (h *Handler) visibleItemURL(ctx context.Context, kind models.ItemKind, id int64) (string, error) {
	access, err := h.accessFor(ctx, kind)
	if err != nil {
		return "", err
	}

	var (
		catID           int64
		target          string
		visible, secret bool
	)
	switch kind {
	case models.KindBookmark:
		b, err := h.db.GetBookmark(ctx, id)
		if err != nil {
			return "", err
		}
		catID, target, visible, secret = b.CategoryID, b.URL, b.IsVisible, b.RequiresAuth
	default:
		s, err := h.db.GetService(ctx, id)
		if err != nil {
			return "", err
		}
		catID, target, visible, secret = s.CategoryID, s.URL, s.IsVisible, s.RequiresAuth
	}

	if !access.item(catID, visible, secret) {
		return "", database.ErrNotFound
	}
	return target, nil
}

func (h *Handler) recordClick(r *http.Request, kind models.ItemKind, id int64) bool {
	if !h.recorder.Enabled() {
		return false
	}
	err := h.recorder.RecordClick(context.WithoutCancel(r.Context()), kind, id, visitor(r, ""))
	logTrackError(r, err)
	return err == nil
}

func logTrackError(r *http.Request, err error) {
	if err == nil {
		return
	}
	logger := logging.Ctx(r.Context())
	if errors.Is(err, analytics.ErrPipelineStopped) {
		logger.Debug().Err(err).Msg("Analytics pipeline not running, event dropped")
		return
	}
	logger.Warn().Err(err).Msg("Failed to record analytics event")
}
