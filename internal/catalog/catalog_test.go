// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package catalog

import (
	"testing"

	"github.com/sdenike/fauxdash/internal/models"
)

func TestCatalogsLoad(t *testing.T) {
	if len(Themes()) == 0 || len(SearchEngines()) == 0 || len(SearchIcons("", 0)) == 0 {
		t.Fatal("embedded catalogs are empty")
	}
	if _, ok := LookupTheme("nord"); !ok {
		t.Error("nord theme missing")
	}
	e, ok := LookupSearchEngine("duckduckgo")
	if !ok || e.Template == "" {
		t.Errorf("duckduckgo = %+v, %v", e, ok)
	}
	icon, ok := LookupIcon("si:jellyfin")
	if !ok || icon.Label != "Jellyfin" {
		t.Errorf("LookupIcon(si:jellyfin) = %+v, %v", icon, ok)
	}
}

func TestDefaultsExistInCatalog(t *testing.T) {
	if err := ValidateAppearance(DefaultAppearance()); err != nil {
		t.Errorf("default appearance invalid: %v", err)
	}
}

func TestParseIconRef(t *testing.T) {
	tests := []struct {
		ref        string
		wantPrefix string
		wantOK     bool
	}{
		{"lucide:home", IconSetLucide, true},
		{"si:home-assistant", IconSetSimple, true},
		{"mdi:nas", IconSetMDI, true},
		{"favicon:0123abcd.png", IconRefFavicon, true},
		{"favicon:../etc/passwd.png", "", false},
		{"url:https://example.com/i.png", IconRefURL, true},
		{"https://example.com/i.png", IconRefURL, true},
		{"url:ftp://example.com/i.png", "", false},
		{"lucide:Home", "", false},
		{"emoji:x", "", false},
		{"lucide:", "", false},
		{"home", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			prefix, _, ok := ParseIconRef(tt.ref)
			if ok != tt.wantOK || prefix != tt.wantPrefix {
				t.Errorf("ParseIconRef(%q) = %q, %v; want %q, %v", tt.ref, prefix, ok, tt.wantPrefix, tt.wantOK)
			}
		})
	}
}

func TestSearchIcons(t *testing.T) {
	results := SearchIcons("git", 10)
	if len(results) == 0 {
		t.Fatal("no results for git")
	}
	// Prefix matches on the name rank above tag matches.
	if results[0].Name != "gitea" && results[0].Name != "github" && results[0].Name != "gitlab" {
		t.Errorf("first result = %s", results[0].Ref)
	}
	if got := SearchIcons("media", 2); len(got) != 2 {
		t.Errorf("limit not applied: %d results", len(got))
	}
	if got := SearchIcons("zzzz-nothing", 5); len(got) != 0 {
		t.Errorf("unexpected results: %+v", got)
	}
}

func TestAppearanceRoundTrip(t *testing.T) {
	a := DefaultAppearance()
	a.Theme = "dracula"
	a.BookmarkColumns = 6
	a.ShowClock = false
	a.WelcomeMessage = "hello"

	got := AppearanceFromSettings(AppearanceToSettings(a))
	if got != a {
		t.Errorf("round trip = %+v, want %+v", got, a)
	}
}

func TestAppearanceFromSettings_FallsBack(t *testing.T) {
	got := AppearanceFromSettings(models.Settings{
		KeyTheme:           "does-not-exist",
		KeyBookmarkColumns: "many",
		KeyShowClock:       "nope",
		KeySearchEngine:    "altavista",
	})
	def := DefaultAppearance()
	if got.Theme != def.Theme || got.BookmarkColumns != def.BookmarkColumns ||
		got.ShowClock != def.ShowClock || got.SearchEngine != def.SearchEngine {
		t.Errorf("AppearanceFromSettings() = %+v", got)
	}
}

func TestValidateAppearance(t *testing.T) {
	a := DefaultAppearance()
	a.Theme = "unknown"
	if err := ValidateAppearance(a); err == nil {
		t.Error("unknown theme accepted")
	}
	a = DefaultAppearance()
	a.BackgroundImage = "javascript:alert(1)"
	if err := ValidateAppearance(a); err == nil {
		t.Error("bad background accepted")
	}
}
