// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"net/http"

	"github.com/sdenike/fauxdash/internal/models"
)

// AnalyticsSummary returns event totals for the last ?days= days.
// GET /api/v1/analytics/summary
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	since, _ := sinceParam(r, h.now())
	summary, err := h.db.AnalyticsSummary(r.Context(), since)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).Success(summary)
}

// AnalyticsTop ranks items by clicks. ?kind= narrows to bookmarks or
// services.
// GET /api/v1/analytics/top
func (h *Handler) AnalyticsTop(w http.ResponseWriter, r *http.Request) {
	var kind models.ItemKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := kindParam(w, r, raw)
		if !ok {
			return
		}
		kind = k
	}
	since, _ := sinceParam(r, h.now())
	items, err := h.db.TopItems(r.Context(), kind, since, limitParam(r, defaultLimit))
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(items, len(items))
}

// AnalyticsDaily returns per-day click and pageview counts.
// GET /api/v1/analytics/daily
func (h *Handler) AnalyticsDaily(w http.ResponseWriter, r *http.Request) {
	since, _ := sinceParam(r, h.now())
	days, err := h.db.ClicksByDay(r.Context(), since)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(days, len(days))
}

// AnalyticsCountries returns visits grouped by country.
// GET /api/v1/analytics/countries
func (h *Handler) AnalyticsCountries(w http.ResponseWriter, r *http.Request) {
	since, _ := sinceParam(r, h.now())
	countries, err := h.db.VisitsByCountry(r.Context(), since, limitParam(r, defaultLimit))
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(countries, len(countries))
}

// AnalyticsHourly returns clicks by hour of day.
// GET /api/v1/analytics/hourly
func (h *Handler) AnalyticsHourly(w http.ResponseWriter, r *http.Request) {
	since, _ := sinceParam(r, h.now())
	hours, err := h.db.ClicksByHour(r.Context(), since)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(hours, len(hours))
}

// AnalyticsRecent returns the latest clicks.
// GET /api/v1/analytics/recent
func (h *Handler) AnalyticsRecent(w http.ResponseWriter, r *http.Request) {
	clicks, err := h.db.RecentClicks(r.Context(), limitParam(r, 25))
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(clicks, len(clicks))
}
