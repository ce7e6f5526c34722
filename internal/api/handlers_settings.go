// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/catalog"
	"github.com/sdenike/fauxdash/internal/models"
)

const (
	maxSettingsKeys     = 200
	maxSettingValueSize = 20000
	scopeGlobal         = "global"
	scopeAppearance     = "appearance"
)

var settingKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,99}$`)

// settingsUserID resolves ?scope=global (admins only) to the global
// settings row, otherwise the caller's own.
func settingsUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	subject := auth.GetAuthSubject(r.Context())
	if r.URL.Query().Get("scope") == scopeGlobal || subject == nil || subject.UserID == 0 {
		if r.Method != http.MethodGet && !subject.IsAdmin() {
			NewResponseWriter(w, r).Forbidden("global settings require an administrator")
			return 0, false
		}
		return models.GlobalSettingsUserID, true
	}
	return subject.UserID, true
}

// GetSettings returns global settings merged with the caller's overrides.
// GET /api/v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := settingsUserID(w, r)
	if !ok {
		return
	}
	settings, err := h.db.GetSettings(r.Context(), userID)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).Success(settings)
}

// UpdateSettings stores key/value pairs. An empty value deletes the key.
// PUT /api/v1/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := settingsUserID(w, r)
	if !ok {
		return
	}

	var values models.Settings
	if !decodeBody(w, r, &values) {
		return
	}
	if msg := validateSettings(values); msg != "" {
		NewResponseWriter(w, r).ValidationError(msg, nil)
		return
	}

	set := make(models.Settings, len(values))
	for k, v := range values {
		if v == "" {
			if err := h.db.DeleteSetting(r.Context(), userID, k); err != nil {
				respondError(w, r, err)
				return
			}
			continue
		}
		set[k] = v
	}
	if len(set) > 0 {
		if err := h.db.SetSettings(r.Context(), userID, set); err != nil {
			respondError(w, r, err)
			return
		}
	}

	merged, err := h.db.GetSettings(r.Context(), userID)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	h.broadcastSettings("settings")
	NewResponseWriter(w, r).Success(merged)
}

func validateSettings(values models.Settings) string {
	if len(values) == 0 {
		return "no settings provided"
	}
	if len(values) > maxSettingsKeys {
		return fmt.Sprintf("at most %d settings per request", maxSettingsKeys)
	}
	for k, v := range values {
		if !settingKeyPattern.MatchString(k) {
			return fmt.Sprintf("invalid setting key %q", k)
		}
		if len(v) > maxSettingValueSize {
			return fmt.Sprintf("value of %q is too long", k)
		}
	}
	return ""
}

// GetAppearance returns the resolved appearance for the caller.
// GET /api/v1/appearance
func (h *Handler) GetAppearance(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.GetSettings(r.Context(), auth.UserIDOf(r.Context()))
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).Success(catalog.AppearanceFromSettings(settings))
}

// UpdateAppearance validates and stores the global appearance.
// PUT /api/v1/appearance
func (h *Handler) UpdateAppearance(w http.ResponseWriter, r *http.Request) {
	current, err := h.db.GetSettings(r.Context(), models.GlobalSettingsUserID)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	// Start from the stored appearance so partial bodies only change the
	// fields they name.
	a := catalog.AppearanceFromSettings(current)
	if !decodeBody(w, r, &a) {
		return
	}
	a.AccentColor = strings.ToLower(strings.TrimSpace(a.AccentColor))
	if !validateRequest(w, r, &a) {
		return
	}
	if err := catalog.ValidateAppearance(a); err != nil {
		NewResponseWriter(w, r).ValidationError(err.Error(), nil)
		return
	}

	if err := h.db.SetSettings(r.Context(), models.GlobalSettingsUserID, catalog.AppearanceToSettings(a)); err != nil {
		respondError(w, r, err)
		return
	}
	h.broadcastSettings(scopeAppearance)
	NewResponseWriter(w, r).Success(a)
}

// ListThemes returns the built-in theme catalog.
// GET /api/v1/themes
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes := catalog.Themes()
	NewResponseWriter(w, r).List(themes, len(themes))
}

// ListSearchEngines returns the search engines the dashboard search box
// can target.
// GET /api/v1/search-engines
func (h *Handler) ListSearchEngines(w http.ResponseWriter, r *http.Request) {
	engines := catalog.SearchEngines()
	NewResponseWriter(w, r).List(engines, len(engines))
}

// SearchIcons searches the icon catalog by ?q=.
// GET /api/v1/icons
func (h *Handler) SearchIcons(w http.ResponseWriter, r *http.Request) {
	icons := catalog.SearchIcons(strings.TrimSpace(r.URL.Query().Get("q")), limitParam(r, 50))
	NewResponseWriter(w, r).List(icons, len(icons))
}
