// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sdenike/fauxdash/internal/models"
)

func TestSettings_MergeGlobalAndUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SetSettings(ctx, models.GlobalSettingsUserID, models.Settings{
		"appearance.theme": "nord",
		"appearance.mode":  "dark",
	}); err != nil {
		t.Fatalf("SetSettings(global) failed: %v", err)
	}
	if err := db.SetSettings(ctx, 7, models.Settings{"appearance.theme": "dracula"}); err != nil {
		t.Fatalf("SetSettings(user) failed: %v", err)
	}

	global, err := db.GetSettings(ctx, models.GlobalSettingsUserID)
	if err != nil {
		t.Fatalf("GetSettings(global) failed: %v", err)
	}
	if global["appearance.theme"] != "nord" {
		t.Errorf("global theme = %q, want nord", global["appearance.theme"])
	}

	merged, err := db.GetSettings(ctx, 7)
	if err != nil {
		t.Fatalf("GetSettings(user) failed: %v", err)
	}
	if merged["appearance.theme"] != "dracula" || merged["appearance.mode"] != "dark" {
		t.Errorf("merged = %v", merged)
	}

	// Upsert replaces in place.
	if err := db.SetSettings(ctx, models.GlobalSettingsUserID, models.Settings{"appearance.mode": "light"}); err != nil {
		t.Fatalf("SetSettings() failed: %v", err)
	}
	if err := db.DeleteSetting(ctx, 7, "appearance.theme"); err != nil {
		t.Fatalf("DeleteSetting() failed: %v", err)
	}
	merged, _ = db.GetSettings(ctx, 7)
	if merged["appearance.theme"] != "nord" || merged["appearance.mode"] != "light" {
		t.Errorf("after delete = %v", merged)
	}
}

func TestUsers_LastAdminProtection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	admin, err := db.CreateUser(ctx, &models.User{Username: "Admin", PasswordHash: "h", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if admin.Provider != models.ProviderLocal {
		t.Errorf("Provider = %q, want local", admin.Provider)
	}
	if _, err := db.CreateUser(ctx, &models.User{Username: "Admin"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate user error = %v, want ErrConflict", err)
	}

	found, err := db.GetUserByUsername(ctx, "admin")
	if err != nil || found.ID != admin.ID {
		t.Fatalf("GetUserByUsername() = %+v, %v", found, err)
	}
	if found.PasswordHash != "h" {
		t.Errorf("PasswordHash = %q", found.PasswordHash)
	}

	userRole := models.RoleUser
	if _, err := db.UpdateUser(ctx, admin.ID, &models.UpdateUserRequest{Role: &userRole}); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("demote last admin error = %v, want ErrLastAdmin", err)
	}
	if err := db.DeleteUser(ctx, admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("delete last admin error = %v, want ErrLastAdmin", err)
	}

	second, err := db.CreateUser(ctx, &models.User{Username: "second", PasswordHash: "h", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	n, _ := db.CountAdmins(ctx)
	if n != 2 {
		t.Errorf("CountAdmins() = %d, want 2", n)
	}

	email := "a@example.com"
	demoted, err := db.UpdateUser(ctx, admin.ID, &models.UpdateUserRequest{Role: &userRole, Email: &email})
	if err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}
	if demoted.Role != models.RoleUser || demoted.Email != email {
		t.Errorf("UpdateUser() = %+v", demoted)
	}

	if err := db.SetSettings(ctx, admin.ID, models.Settings{"k": "v"}); err != nil {
		t.Fatalf("SetSettings() failed: %v", err)
	}
	if err := db.DeleteUser(ctx, admin.ID); err != nil {
		t.Fatalf("DeleteUser() failed: %v", err)
	}
	if _, err := db.GetUserByID(ctx, admin.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByID(deleted) error = %v, want ErrNotFound", err)
	}

	if err := db.UpdatePassword(ctx, second.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword() failed: %v", err)
	}
	if err := db.TouchLogin(ctx, second.ID); err != nil {
		t.Fatalf("TouchLogin() failed: %v", err)
	}
	got, _ := db.GetUserByID(ctx, second.ID)
	if got.PasswordHash != "new-hash" || got.LastLoginAt == nil {
		t.Errorf("after password/login update = %+v", got)
	}

	users, _ := db.ListUsers(ctx)
	count, _ := db.CountUsers(ctx)
	if len(users) != 1 || count != 1 {
		t.Errorf("ListUsers()=%d CountUsers()=%d, want 1", len(users), count)
	}
}

func TestUpsertOIDCUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u, err := db.UpsertOIDCUser(ctx, "alice", "alice@example.com", models.RoleAdmin)
	if err != nil {
		t.Fatalf("UpsertOIDCUser() failed: %v", err)
	}
	if u.Provider != models.ProviderOIDC || u.Role != models.RoleAdmin || u.LastLoginAt == nil {
		t.Errorf("created = %+v", u)
	}

	// Losing the admin group does not demote the only administrator.
	u2, err := db.UpsertOIDCUser(ctx, "alice", "new@example.com", models.RoleUser)
	if err != nil {
		t.Fatalf("UpsertOIDCUser() failed: %v", err)
	}
	if u2.ID != u.ID || u2.Role != models.RoleAdmin || u2.Email != "new@example.com" {
		t.Errorf("updated = %+v", u2)
	}

	if _, err := db.CreateUser(ctx, &models.User{Username: "bob", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if _, err := db.UpsertOIDCUser(ctx, "bob", "", models.RoleUser); !errors.Is(err, ErrConflict) {
		t.Errorf("local account takeover error = %v, want ErrConflict", err)
	}
}

func TestUsers_UsernameCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice, err := db.CreateUser(ctx, &models.User{Username: "Alice", PasswordHash: "h1"})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	for _, name := range []string{"alice", "ALICE", "Alice"} {
		if _, err := db.CreateUser(ctx, &models.User{Username: name, PasswordHash: "h2"}); !errors.Is(err, ErrConflict) {
			t.Errorf("CreateUser(%q) error = %v, want ErrConflict", name, err)
		}
	}
	if n, _ := db.CountUsers(ctx); n != 1 {
		t.Errorf("CountUsers() = %d, want 1", n)
	}

	got, err := db.GetUserByUsername(ctx, "aLiCe")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if got.ID != alice.ID || got.PasswordHash != "h1" {
		t.Errorf("GetUserByUsername() = %+v", got)
	}

	// An OIDC identity differing only in case must not take over the
	// local account.
	if _, err := db.UpsertOIDCUser(ctx, "ALICE", "", models.RoleUser); !errors.Is(err, ErrConflict) {
		t.Errorf("UpsertOIDCUser(ALICE) error = %v, want ErrConflict", err)
	}

	// OIDC-created users reserve their name for local accounts too.
	if _, err := db.UpsertOIDCUser(ctx, "carol", "", models.RoleUser); err != nil {
		t.Fatalf("UpsertOIDCUser(carol) failed: %v", err)
	}
	if _, err := db.CreateUser(ctx, &models.User{Username: "Carol", PasswordHash: "h"}); !errors.Is(err, ErrConflict) {
		t.Errorf("CreateUser(Carol) error = %v, want ErrConflict", err)
	}
}

func TestAnalytics_Aggregates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	bcat := mustCategory(t, db, models.KindBookmark, "Links")
	scat := mustCategory(t, db, models.KindService, "Apps")
	bm := mustBookmark(t, db, bcat.ID, "Docs", "https://docs.example")
	svc, err := db.CreateService(ctx, &models.ServiceInput{CategoryID: scat.ID, Name: "Plex", URL: "https://plex.lan"})
	if err != nil {
		t.Fatalf("CreateService() failed: %v", err)
	}

	now := time.Now().UTC()
	clicks := []models.Click{
		{ID: "c1", ItemKind: models.KindBookmark, ItemID: bm.ID, IPAddress: "1.1.1.1", Country: "Australia", CountryCode: "AU", CreatedAt: now.Add(-time.Hour)},
		{ID: "c2", ItemKind: models.KindBookmark, ItemID: bm.ID, IPAddress: "1.1.1.1", Country: "Australia", CountryCode: "AU", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c3", ItemKind: models.KindService, ItemID: svc.ID, IPAddress: "8.8.8.8", Country: "United States", CountryCode: "US", CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "old", ItemKind: models.KindService, ItemID: svc.ID, IPAddress: "9.9.9.9", CreatedAt: now.AddDate(0, 0, -400)},
	}
	for i := range clicks {
		inserted, err := db.InsertClick(ctx, &clicks[i])
		if err != nil || !inserted {
			t.Fatalf("InsertClick(%s) = %v, %v", clicks[i].ID, inserted, err)
		}
	}
	if inserted, err := db.InsertClick(ctx, &clicks[0]); err != nil || inserted {
		t.Errorf("duplicate InsertClick() = %v, %v, want false, nil", inserted, err)
	}
	if err := db.InsertPageview(ctx, &models.Pageview{ID: "p1", Path: "/", IPAddress: "2.2.2.2", CreatedAt: now}); err != nil {
		t.Fatalf("InsertPageview() failed: %v", err)
	}

	since := now.AddDate(0, 0, -30)
	summary, err := db.AnalyticsSummary(ctx, since)
	if err != nil {
		t.Fatalf("AnalyticsSummary() failed: %v", err)
	}
	if summary.TotalClicks != 3 || summary.BookmarkClicks != 2 || summary.ServiceClicks != 1 {
		t.Errorf("click totals = %+v", summary)
	}
	if summary.TotalPageviews != 1 || summary.UniqueVisitors != 3 || summary.Countries != 2 {
		t.Errorf("visitor totals = %+v", summary)
	}

	top, err := db.TopItems(ctx, "", since, 5)
	if err != nil {
		t.Fatalf("TopItems() failed: %v", err)
	}
	if len(top) != 2 || top[0].Name != "Docs" || top[0].Clicks != 2 {
		t.Errorf("TopItems() = %+v", top)
	}
	top, _ = db.TopItems(ctx, models.KindService, since, 5)
	if len(top) != 1 || top[0].Name != "Plex" {
		t.Errorf("TopItems(service) = %+v", top)
	}

	days, err := db.ClicksByDay(ctx, now.AddDate(0, 0, -6))
	if err != nil {
		t.Fatalf("ClicksByDay() failed: %v", err)
	}
	if len(days) != 7 {
		t.Errorf("ClicksByDay() returned %d days, want 7", len(days))
	}
	var dayClicks int64
	for _, d := range days {
		dayClicks += d.Clicks
	}
	if dayClicks != 3 {
		t.Errorf("sum of daily clicks = %d, want 3", dayClicks)
	}

	countries, err := db.VisitsByCountry(ctx, since, 10)
	if err != nil {
		t.Fatalf("VisitsByCountry() failed: %v", err)
	}
	if len(countries) != 3 || countries[0].CountryCode != "AU" || countries[0].Count != 2 {
		t.Errorf("VisitsByCountry() = %+v", countries)
	}

	hours, err := db.ClicksByHour(ctx, since)
	if err != nil {
		t.Fatalf("ClicksByHour() failed: %v", err)
	}
	var hourClicks int64
	for _, h := range hours {
		hourClicks += h.Clicks
	}
	if len(hours) != 24 || hourClicks != 3 {
		t.Errorf("ClicksByHour() len=%d sum=%d", len(hours), hourClicks)
	}

	recent, err := db.RecentClicks(ctx, 2)
	if err != nil {
		t.Fatalf("RecentClicks() failed: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "c1" || recent[0].ItemName != "Docs" {
		t.Errorf("RecentClicks() = %+v", recent)
	}

	pruned, err := db.PruneAnalytics(ctx, now.AddDate(0, 0, -365))
	if err != nil {
		t.Fatalf("PruneAnalytics() failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("PruneAnalytics() = %d, want 1", pruned)
	}
}

func TestGeolocationCache(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	got, err := db.GetGeolocation(ctx, "203.0.113.9")
	if err != nil || got != nil {
		t.Fatalf("GetGeolocation(missing) = %+v, %v, want nil, nil", got, err)
	}

	geo := &models.Geolocation{IPAddress: "203.0.113.9", Country: "Japan", CountryCode: "JP", City: "Tokyo", Latitude: 35.6, Longitude: 139.7, Provider: "ip-api"}
	if err := db.UpsertGeolocation(ctx, geo); err != nil {
		t.Fatalf("UpsertGeolocation() failed: %v", err)
	}
	geo.City = "Osaka"
	if err := db.UpsertGeolocation(ctx, geo); err != nil {
		t.Fatalf("UpsertGeolocation() update failed: %v", err)
	}
	got, err = db.GetGeolocation(ctx, "203.0.113.9")
	if err != nil || got == nil {
		t.Fatalf("GetGeolocation() = %+v, %v", got, err)
	}
	if got.City != "Osaka" || got.CountryCode != "JP" || got.Provider != "ip-api" {
		t.Errorf("GetGeolocation() = %+v", got)
	}

	n, err := db.DeleteStaleGeolocations(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Errorf("DeleteStaleGeolocations() = %d, %v, want 1", n, err)
	}
}

func TestFaviconRecords(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetFavicon(ctx, "example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFavicon(missing) error = %v, want ErrNotFound", err)
	}
	rec := &models.FaviconRecord{Host: "example.com", FileName: "abc.png", Source: "html", ContentType: "image/png", FetchedAt: time.Now()}
	if err := db.UpsertFavicon(ctx, rec); err != nil {
		t.Fatalf("UpsertFavicon() failed: %v", err)
	}
	rec.Source = "google"
	if err := db.UpsertFavicon(ctx, rec); err != nil {
		t.Fatalf("UpsertFavicon() update failed: %v", err)
	}
	got, err := db.GetFavicon(ctx, "example.com")
	if err != nil || got.Source != "google" {
		t.Errorf("GetFavicon() = %+v, %v", got, err)
	}
	list, _ := db.ListFavicons(ctx)
	if len(list) != 1 {
		t.Errorf("ListFavicons() = %d records", len(list))
	}
	if err := db.DeleteFavicon(ctx, "example.com"); err != nil {
		t.Fatalf("DeleteFavicon() failed: %v", err)
	}
}

func TestExportImportItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cat := mustCategory(t, db, models.KindService, "Media")
	if _, err := db.CreateService(ctx, &models.ServiceInput{
		CategoryID: cat.ID, Name: "Jellyfin", URL: "https://jf.lan", HealthCheckEnabled: true,
	}); err != nil {
		t.Fatalf("CreateService() failed: %v", err)
	}

	items, err := db.ExportItems(ctx, models.KindService)
	if err != nil {
		t.Fatalf("ExportItems() failed: %v", err)
	}
	if len(items) != 1 || items[0].Category != "Media" || !items[0].HealthCheckEnabled {
		t.Fatalf("ExportItems() = %+v", items)
	}

	imported := []models.TransferItem{
		{Category: "media", Name: "Sonarr", URL: "https://sonarr.lan", IsVisible: true},
		{Category: "Tools", Name: "Portainer", URL: "https://portainer.lan", IsVisible: true},
		{Category: "Tools", Name: "Traefik", URL: "https://traefik.lan", SortOrder: 1, IsVisible: true},
	}
	created, cats, err := db.ImportItems(ctx, models.KindService, models.ImportAppend, imported)
	if err != nil {
		t.Fatalf("ImportItems(append) failed: %v", err)
	}
	if created != 3 || cats != 1 {
		t.Errorf("ImportItems(append) = %d created, %d categories; want 3, 1", created, cats)
	}
	tools, _ := db.ListCategories(ctx, models.KindService)
	if len(tools) != 2 {
		t.Fatalf("categories = %+v", tools)
	}
	inTools, _ := db.ListServices(ctx, tools[1].ID, true)
	if len(inTools) != 2 || inTools[0].Name != "Portainer" || inTools[1].SortOrder != 1 {
		t.Errorf("Tools services = %+v", inTools)
	}
	// Appended items follow what the category already held.
	inMedia, _ := db.ListServices(ctx, cat.ID, true)
	if len(inMedia) != 2 || inMedia[0].Name != "Jellyfin" || inMedia[1].Name != "Sonarr" || inMedia[1].SortOrder != 1 {
		t.Errorf("Media services = %+v", inMedia)
	}

	created, cats, err = db.ImportItems(ctx, models.KindService, models.ImportReplace, []models.TransferItem{
		{Category: "Home", Name: "Home Assistant", URL: "https://ha.lan", IsVisible: true},
	})
	if err != nil {
		t.Fatalf("ImportItems(replace) failed: %v", err)
	}
	if created != 1 || cats != 1 {
		t.Errorf("ImportItems(replace) = %d, %d", created, cats)
	}
	all, _ := db.ListAllServices(ctx)
	if len(all) != 1 || all[0].Name != "Home Assistant" {
		t.Errorf("after replace = %+v", all)
	}
}

func TestExportImportItems_PreservesOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cat := mustCategory(t, db, models.KindBookmark, "Dev")
	for _, name := range []string{"GitHub", "GitLab", "Gitea"} {
		if _, err := db.CreateBookmark(ctx, &models.BookmarkInput{CategoryID: cat.ID, Name: name, URL: "https://" + strings.ToLower(name) + ".com"}); err != nil {
			t.Fatalf("CreateBookmark(%s) failed: %v", name, err)
		}
	}
	if err := db.ReorderBookmarks(ctx, cat.ID, reorderIDs(t, db, cat.ID, "Gitea", "GitHub", "GitLab")); err != nil {
		t.Fatalf("ReorderBookmarks() failed: %v", err)
	}

	exported, err := db.ExportItems(ctx, models.KindBookmark)
	if err != nil {
		t.Fatalf("ExportItems() failed: %v", err)
	}
	// Shuffle file order; sort_order alone must restore the layout.
	shuffled := []models.TransferItem{exported[2], exported[0], exported[1]}
	if _, _, err := db.ImportItems(ctx, models.KindBookmark, models.ImportReplace, shuffled); err != nil {
		t.Fatalf("ImportItems(replace) failed: %v", err)
	}

	cats, _ := db.ListCategories(ctx, models.KindBookmark)
	if len(cats) != 1 {
		t.Fatalf("categories = %+v", cats)
	}
	got, _ := db.ListBookmarks(ctx, cats[0].ID, true)
	names := make([]string, len(got))
	for i, b := range got {
		names[i] = b.Name
	}
	if strings.Join(names, ",") != "Gitea,GitHub,GitLab" {
		t.Errorf("order after round trip = %v", names)
	}
}

func reorderIDs(t *testing.T, db *DB, categoryID int64, names ...string) []int64 {
	t.Helper()
	list, err := db.ListBookmarks(context.Background(), categoryID, true)
	if err != nil {
		t.Fatalf("ListBookmarks() failed: %v", err)
	}
	byName := make(map[string]int64, len(list))
	for _, b := range list {
		byName[b.Name] = b.ID
	}
	ids := make([]int64, len(names))
	for i, n := range names {
		ids[i] = byName[n]
	}
	return ids
}
