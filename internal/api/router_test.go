// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/sdenike/fauxdash/internal/models"
)

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthResponse
	resp := decodeResponse(t, rec, &health)
	if !resp.Success {
		t.Error("success = false")
	}
	if health.Status != "ok" || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Error("meta.request_id not set")
	}
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/v1/health/ready", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/does-not-exist", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestAuthSetupAndLogin(t *testing.T) {
	s := newTestServer(t)

	var status AuthStatusResponse
	decodeResponse(t, s.do(http.MethodGet, "/api/v1/auth/status", nil, nil), &status)
	if !status.SetupRequired {
		t.Fatal("setup_required = false on empty database")
	}

	cookie := s.setupAdmin()

	decodeResponse(t, s.do(http.MethodGet, "/api/v1/auth/status", nil, cookie), &status)
	if status.SetupRequired || !status.Authenticated {
		t.Errorf("status after setup = %+v", status)
	}

	// Setup only runs once.
	rec := s.do(http.MethodPost, "/api/v1/auth/setup", map[string]string{
		"username": "second",
		"password": "another-long-password",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second setup status = %d, want 409", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": testAdminUser,
		"password": "wrong-password",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}

	cookie = s.login(testAdminUser, testAdminPassword)

	var me MeResponse
	rec = s.do(http.MethodGet, "/api/v1/auth/me", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	decodeResponse(t, rec, &me)
	if me.Subject == nil || me.Subject.Username != testAdminUser || me.Subject.Role != models.RoleAdmin {
		t.Errorf("me = %+v", me.Subject)
	}

	if rec := s.do(http.MethodPost, "/api/v1/auth/logout", nil, cookie); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/auth/me", nil, cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", rec.Code)
	}
}

func TestSetupValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed json", "{", http.StatusBadRequest},
		{"short password", map[string]string{"username": "admin", "password": "short"}, http.StatusBadRequest},
		{"missing username", map[string]string{"password": testAdminPassword}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/v1/auth/setup", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()

	rec := s.do(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "viewer",
		"password": "viewer-password",
		"role":     models.RoleUser,
	}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body = %s", rec.Code, rec.Body.String())
	}
	viewer := s.login("viewer", "viewer-password")

	category := map[string]string{"kind": "bookmark", "name": "Work"}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		cookie *http.Cookie
		want   int
	}{
		{"guest reads dashboard", http.MethodGet, "/api/v1/dashboard", nil, nil, http.StatusOK},
		{"guest reads themes", http.MethodGet, "/api/v1/themes", nil, nil, http.StatusOK},
		{"guest reads search engines", http.MethodGet, "/api/v1/search-engines", nil, nil, http.StatusOK},
		{"guest cannot create category", http.MethodPost, "/api/v1/categories", category, nil, http.StatusUnauthorized},
		{"guest cannot read settings", http.MethodGet, "/api/v1/settings", nil, nil, http.StatusUnauthorized},
		{"user cannot create category", http.MethodPost, "/api/v1/categories", category, viewer, http.StatusForbidden},
		{"user cannot list users", http.MethodGet, "/api/v1/users", nil, viewer, http.StatusForbidden},
		{"user reads settings", http.MethodGet, "/api/v1/settings", nil, viewer, http.StatusOK},
		{"admin lists users", http.MethodGet, "/api/v1/users", nil, admin, http.StatusOK},
		{"admin reads analytics", http.MethodGet, "/api/v1/analytics/summary?days=7", nil, admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body, tt.cookie)
			if rec.Code != tt.want {
				t.Errorf("%s %s status = %d, want %d; body = %s", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

// seedDashboard creates a public and a private bookmark category with one
// visible and one hidden bookmark in the public one.
func seedDashboard(t *testing.T, s *testServer, admin *http.Cookie) (public, private models.Category, visible, hidden models.Bookmark) {
	t.Helper()

	create := func(path string, body, out interface{}) {
		t.Helper()
		rec := s.do(http.MethodPost, path, body, admin)
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST %s status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		decodeResponse(t, rec, out)
	}

	create("/api/v1/categories", models.CategoryInput{Kind: models.KindBookmark, Name: "Public"}, &public)
	create("/api/v1/categories", models.CategoryInput{Kind: models.KindBookmark, Name: "Private", RequiresAuth: true}, &private)
	create("/api/v1/bookmarks", models.BookmarkInput{CategoryID: public.ID, Name: "Docs", URL: "https://docs.example.com"}, &visible)
	create("/api/v1/bookmarks", models.BookmarkInput{CategoryID: public.ID, Name: "Secret", URL: "https://secret.example.com", IsVisible: boolPtr(false)}, &hidden)

	var inPrivate models.Bookmark
	create("/api/v1/bookmarks", models.BookmarkInput{CategoryID: private.ID, Name: "Payroll", URL: "https://payroll.example.com"}, &inPrivate)
	return public, private, visible, hidden
}

func TestDashboardVisibility(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	public, _, visible, _ := seedDashboard(t, s, admin)

	var guest models.Dashboard
	rec := s.do(http.MethodGet, "/api/v1/dashboard", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	decodeResponse(t, rec, &guest)
	if len(guest.BookmarkCategories) != 1 {
		t.Fatalf("guest sees %d categories, want 1", len(guest.BookmarkCategories))
	}
	cat := guest.BookmarkCategories[0]
	if cat.ID != public.ID {
		t.Errorf("guest category = %q, want Public", cat.Name)
	}
	if len(cat.Bookmarks) != 1 || cat.Bookmarks[0].ID != visible.ID {
		t.Errorf("guest bookmarks = %+v, want only %q", cat.Bookmarks, visible.Name)
	}

	var signedIn models.Dashboard
	decodeResponse(t, s.do(http.MethodGet, "/api/v1/dashboard", nil, admin), &signedIn)
	if len(signedIn.BookmarkCategories) != 2 {
		t.Errorf("admin sees %d categories, want 2", len(signedIn.BookmarkCategories))
	}

	var all models.Dashboard
	decodeResponse(t, s.do(http.MethodGet, "/api/v1/dashboard?all=true", nil, admin), &all)
	for _, c := range all.BookmarkCategories {
		if c.ID == public.ID && len(c.Bookmarks) != 2 {
			t.Errorf("?all=true bookmarks = %d, want 2", len(c.Bookmarks))
		}
	}
}

func TestHiddenItemsAreNotFoundForGuests(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	_, _, visible, hidden := seedDashboard(t, s, admin)

	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/bookmarks/%d", visible.ID), nil, nil); rec.Code != http.StatusOK {
		t.Errorf("visible bookmark status = %d, want 200", rec.Code)
	}
	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/bookmarks/%d", hidden.ID), nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("hidden bookmark status = %d, want 404", rec.Code)
	}
	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/bookmarks/%d", hidden.ID), nil, admin); rec.Code != http.StatusOK {
		t.Errorf("hidden bookmark for admin status = %d, want 200", rec.Code)
	}
}

func TestRedirect(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	_, _, visible, hidden := seedDashboard(t, s, admin)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/go/bookmark/%d", visible.ID), nil, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != visible.URL {
		t.Errorf("Location = %q, want %q", got, visible.URL)
	}

	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/go/bookmark/%d", hidden.ID), nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("hidden redirect status = %d, want 404", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/go/widget/1", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rec.Code)
	}
}

func TestTrackClickUnknownItem(t *testing.T) {
	s := newTestServer(t)
	s.setupAdmin()

	rec := s.do(http.MethodPost, "/api/v1/track/click", models.TrackClickRequest{Kind: models.KindBookmark, ID: 999}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTrackClickHonorsVisibility(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	_, private, visible, hidden := seedDashboard(t, s, admin)

	var authOnly models.Bookmark
	rec := s.do(http.MethodPost, "/api/v1/bookmarks", models.BookmarkInput{
		CategoryID:   private.ID,
		Name:         "Wiki",
		URL:          "https://wiki.example.com",
		RequiresAuth: true,
	}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	decodeResponse(t, rec, &authOnly)

	track := func(id int64, cookie *http.Cookie) int {
		return s.do(http.MethodPost, "/api/v1/track/click",
			models.TrackClickRequest{Kind: models.KindBookmark, ID: id}, cookie).Code
	}

	tests := []struct {
		name   string
		id     int64
		cookie *http.Cookie
		want   int
	}{
		{"guest visible", visible.ID, nil, http.StatusOK},
		{"guest auth-only", authOnly.ID, nil, http.StatusNotFound},
		{"guest hidden", hidden.ID, nil, http.StatusNotFound},
		{"guest missing", 999, nil, http.StatusNotFound},
		{"admin auth-only", authOnly.ID, admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := track(tt.id, tt.cookie); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}

	// Tracking and redirecting agree on what a guest may see.
	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/go/bookmark/%d", authOnly.ID), nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("guest redirect status = %d, want 404", rec.Code)
	}
}

func TestTrackClickWithoutRecorder(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	_, _, visible, _ := seedDashboard(t, s, admin)

	rec := s.do(http.MethodPost, "/api/v1/track/click", models.TrackClickRequest{Kind: models.KindBookmark, ID: visible.ID}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var track TrackResponse
	decodeResponse(t, rec, &track)
	if track.Recorded {
		t.Error("recorded = true with analytics disabled")
	}
}

func TestReorderValidation(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	public, private, _, _ := seedDashboard(t, s, admin)

	rec := s.do(http.MethodPost, "/api/v1/categories/reorder", models.ReorderRequest{
		Kind: models.KindBookmark,
		IDs:  []int64{private.ID, public.ID},
	}, admin)
	if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
		t.Fatalf("reorder status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var cats []models.Category
	decodeResponse(t, s.do(http.MethodGet, "/api/v1/categories?kind=bookmark", nil, admin), &cats)
	if len(cats) != 2 || cats[0].ID != private.ID {
		t.Errorf("order after reorder = %+v", cats)
	}

	// A partial list is rejected.
	rec = s.do(http.MethodPost, "/api/v1/categories/reorder", models.ReorderRequest{
		Kind: models.KindBookmark,
		IDs:  []int64{public.ID},
	}, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("partial reorder status = %d, want 400", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	seedDashboard(t, s, admin)

	rec := s.do(http.MethodGet, "/api/v1/export/bookmark.csv", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 {
		t.Errorf("csv lines = %d, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "category,name,url") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()

	csvBody := "name,url,category\nWiki,https://wiki.example.com,Tools\nbroken,,Tools\n"
	req := s.do(http.MethodPost, "/api/v1/import/bookmark?mode=append", csvBody, admin)
	if req.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", req.Code, req.Body.String())
	}
	var result models.ImportResult
	decodeResponse(t, req, &result)
	if result.Created != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 created, 1 skipped", result)
	}

	rec := s.do(http.MethodPost, "/api/v1/import/bookmark", "title\nx\n", admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing columns status = %d, want 400", rec.Code)
	}
	rec = s.do(http.MethodPost, "/api/v1/import/bookmark?mode=merge", csvBody, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode status = %d, want 400", rec.Code)
	}
}

func TestSettingsScopes(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	if rec := s.do(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "viewer", "password": "viewer-password", "role": models.RoleUser,
	}, admin); rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d", rec.Code)
	}
	viewer := s.login("viewer", "viewer-password")

	rec := s.do(http.MethodPut, "/api/v1/settings?scope=global", map[string]string{"search.engine": "duckduckgo"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("global put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPut, "/api/v1/settings?scope=global", map[string]string{"search.engine": "google"}, viewer)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user global put status = %d, want 403", rec.Code)
	}

	rec = s.do(http.MethodPut, "/api/v1/settings", map[string]string{"layout.columns": "4"}, viewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("user put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var merged models.Settings
	decodeResponse(t, s.do(http.MethodGet, "/api/v1/settings", nil, viewer), &merged)
	if merged["search.engine"] != "duckduckgo" || merged["layout.columns"] != "4" {
		t.Errorf("merged settings = %v", merged)
	}

	rec = s.do(http.MethodPut, "/api/v1/settings", map[string]string{"Bad Key": "x"}, viewer)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid key status = %d, want 400", rec.Code)
	}
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()

	var me MeResponse
	decodeResponse(t, s.do(http.MethodGet, "/api/v1/auth/me", nil, admin), &me)

	rec := s.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", me.Subject.UserID), nil, admin)
	if rec.Code != http.StatusConflict {
		t.Errorf("self delete status = %d, want 409", rec.Code)
	}

	var user models.User
	rec = s.do(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "editor", "password": "editor-password", "role": models.RoleUser,
	}, admin)
	decodeResponse(t, rec, &user)

	editor := s.login("editor", "editor-password")
	role := models.RoleAdmin
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d", user.ID), models.UpdateUserRequest{Role: &role}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("promote status = %d, body = %s", rec.Code, rec.Body.String())
	}
	// Role changes revoke existing sessions.
	if rec := s.do(http.MethodGet, "/api/v1/auth/me", nil, editor); rec.Code != http.StatusUnauthorized {
		t.Errorf("me with revoked session status = %d, want 401", rec.Code)
	}

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", user.ID), nil, admin)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestBackupsUnavailable(t *testing.T) {
	s := newTestServer(t)
	admin := s.setupAdmin()
	if rec := s.do(http.MethodGet, "/api/v1/backups", nil, admin); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestWebSocketRejectsMissingOrigin(t *testing.T) {
	h := &Handler{config: testConfig()}
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"missing origin", "", "dash.local", false},
		{"same host", "http://dash.local", "dash.local", true},
		{"foreign origin", "https://evil.example", "dash.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://"+tt.host+"/api/v1/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
