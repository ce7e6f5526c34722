// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sdenike/fauxdash/internal/models"
)

type fakeStore struct {
	items     []models.TransferItem
	exportErr error
	importErr error

	gotKind  models.ItemKind
	gotMode  models.ImportMode
	gotItems []models.TransferItem
	calls    int
}

func (s *fakeStore) ExportItems(_ context.Context, _ models.ItemKind) ([]models.TransferItem, error) {
	return s.items, s.exportErr
}

func (s *fakeStore) ImportItems(_ context.Context, kind models.ItemKind, mode models.ImportMode, items []models.TransferItem) (int, int, error) {
	s.calls++
	s.gotKind, s.gotMode, s.gotItems = kind, mode, items
	if s.importErr != nil {
		return 0, 0, s.importErr
	}
	return len(items), 1, nil
}

func TestExport_Bookmarks(t *testing.T) {
	store := &fakeStore{items: []models.TransferItem{
		{Category: "Dev", Name: "GitHub", URL: "https://github.com", Icon: "si:github", SortOrder: 0, IsVisible: true, OpenInNewTab: true},
		{Category: "Dev", Name: "Docs, Go", URL: "https://go.dev/doc", Description: "The \"manual\"", SortOrder: 1},
	}}

	var buf bytes.Buffer
	n, err := Export(context.Background(), store, models.KindBookmark, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	want := "category,name,url,description,icon,sort_order,is_visible,open_in_new_tab\n" +
		"Dev,GitHub,https://github.com,,si:github,0,true,true\n" +
		"Dev,\"Docs, Go\",https://go.dev/doc,\"The \"\"manual\"\"\",,1,false,false\n"
	if buf.String() != want {
		t.Errorf("Export() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestExport_ServicesIncludeHealthColumns(t *testing.T) {
	store := &fakeStore{items: []models.TransferItem{
		{Category: "Media", Name: "Plex", URL: "http://plex.lan:32400", HealthCheckEnabled: true, HealthCheckURL: "http://plex.lan:32400/identity"},
	}}

	var buf bytes.Buffer
	if _, err := Export(context.Background(), store, models.KindService, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasSuffix(lines[0], ",health_check_enabled,health_check_url") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",true,http://plex.lan:32400/identity") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExport_Errors(t *testing.T) {
	if _, err := Export(context.Background(), &fakeStore{}, "widget", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown kind")
	}
	store := &fakeStore{exportErr: errors.New("db closed")}
	if _, err := Export(context.Background(), store, models.KindBookmark, &bytes.Buffer{}); err == nil {
		t.Error("expected store error")
	}
}

func TestParse_HeaderMatching(t *testing.T) {
	input := "\ufeffName , URL,Open In New Tab,Category\n" +
		"Grafana,https://grafana.lan,no,Monitoring\n"

	items, rowErrs, err := Parse(strings.NewReader(input), models.KindBookmark)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rowErrs) != 0 || len(items) != 1 {
		t.Fatalf("items = %d, errors = %v", len(items), rowErrs)
	}
	it := items[0]
	if it.Name != "Grafana" || it.URL != "https://grafana.lan" || it.Category != "Monitoring" {
		t.Errorf("item = %+v", it)
	}
	if it.OpenInNewTab {
		t.Error("OpenInNewTab = true, want false")
	}
	if !it.IsVisible {
		t.Error("IsVisible should default to true")
	}
}

func TestParse_MissingColumns(t *testing.T) {
	for _, input := range []string{"", "name,description\nx,y\n", "url\nhttps://a.example\n"} {
		if _, _, err := Parse(strings.NewReader(input), models.KindBookmark); !errors.Is(err, ErrMissingColumns) {
			t.Errorf("Parse(%q) error = %v, want ErrMissingColumns", input, err)
		}
	}
}

func TestParse_RowErrors(t *testing.T) {
	input := strings.Join([]string{
		"category,name,url,icon,sort_order",
		"Dev,GitHub,https://github.com,si:github,5",
		",Missing URL,,,",
		"Dev,,https://example.com,,",
		"Dev,FTP,ftp://files.example.com,,",
		",,,,",
		"Dev,Bad icon,https://example.org,not an icon,x",
	}, "\n")

	items, rowErrs, err := Parse(strings.NewReader(input), models.KindBookmark)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	if items[0].SortOrder != 5 || items[0].Icon != "si:github" {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].Icon != "" {
		t.Errorf("invalid icon kept: %q", items[1].Icon)
	}
	if items[1].SortOrder != 1 {
		t.Errorf("fallback sort order = %d, want 1", items[1].SortOrder)
	}

	gotRows := make([]int, 0, len(rowErrs))
	for _, e := range rowErrs {
		gotRows = append(gotRows, e.Row)
	}
	if fmt.Sprint(gotRows) != "[3 4 5]" {
		t.Errorf("error rows = %v, want [3 4 5]", gotRows)
	}
}

func TestParse_NameLimits(t *testing.T) {
	longCategory := strings.Repeat("c", MaxCategoryNameLength+1)
	longName := strings.Repeat("n", MaxItemNameLength+1)
	// Multi-byte names are measured in characters, not bytes.
	wideCategory := strings.Repeat("é", MaxCategoryNameLength)

	input := "category,name,url\n" +
		longCategory + ",Docs,https://docs.example.com\n" +
		"Dev," + longName + ",https://example.com\n" +
		wideCategory + ",Wiki,https://wiki.example.com\n"

	items, rowErrs, err := Parse(strings.NewReader(input), models.KindBookmark)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(items) != 1 || items[0].Name != "Wiki" {
		t.Errorf("items = %+v, want only Wiki", items)
	}
	if len(rowErrs) != 2 || rowErrs[0].Row != 2 || rowErrs[1].Row != 3 {
		t.Fatalf("row errors = %+v", rowErrs)
	}
	if !strings.Contains(rowErrs[0].Message, "category") {
		t.Errorf("row 2 message = %q", rowErrs[0].Message)
	}
}

func TestParse_DefaultCategory(t *testing.T) {
	items, _, err := Parse(strings.NewReader("name,url\nHome,https://home.lan\n"), models.KindBookmark)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if items[0].Category != DefaultCategory {
		t.Errorf("Category = %q", items[0].Category)
	}
}

func TestParse_ServiceHealthColumns(t *testing.T) {
	input := "name,url,health_check_enabled,health_check_url\n" +
		"Sonarr,http://sonarr.lan,yes,http://sonarr.lan/ping\n" +
		"Radarr,http://radarr.lan,1,not-a-url\n"

	items, rowErrs, err := Parse(strings.NewReader(input), models.KindService)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(items) != 1 || !items[0].HealthCheckEnabled || items[0].HealthCheckURL != "http://sonarr.lan/ping" {
		t.Errorf("items = %+v", items)
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 3 {
		t.Errorf("row errors = %+v", rowErrs)
	}
}

func TestParse_TooManyRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,url\n")
	for i := 0; i <= MaxImportRows; i++ {
		fmt.Fprintf(&b, "item%d,https://example.com/%d\n", i, i)
	}
	if _, _, err := Parse(strings.NewReader(b.String()), models.KindBookmark); !errors.Is(err, ErrTooManyRows) {
		t.Errorf("Parse() error = %v, want ErrTooManyRows", err)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"no", true, false},
		{"0", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := parseBool(tt.in, tt.def); got != tt.want {
			t.Errorf("parseBool(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestImport(t *testing.T) {
	input := "name,url\nA,https://a.example\nB,bad\n"

	t.Run("append", func(t *testing.T) {
		store := &fakeStore{}
		res, err := Import(context.Background(), store, models.KindBookmark, "", strings.NewReader(input))
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if res.Mode != models.ImportAppend || res.Created != 1 || res.Skipped != 1 || res.CategoriesCreated != 1 {
			t.Errorf("result = %+v", res)
		}
		if store.gotMode != models.ImportAppend || len(store.gotItems) != 1 {
			t.Errorf("store got mode %s, %d items", store.gotMode, len(store.gotItems))
		}
	})

	t.Run("append with nothing valid skips store", func(t *testing.T) {
		store := &fakeStore{}
		res, err := Import(context.Background(), store, models.KindBookmark, models.ImportAppend, strings.NewReader("name,url\nB,bad\n"))
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if store.calls != 0 || res.Created != 0 || res.Skipped != 1 {
			t.Errorf("calls = %d, result = %+v", store.calls, res)
		}
	})

	t.Run("replace with empty file still clears", func(t *testing.T) {
		store := &fakeStore{}
		if _, err := Import(context.Background(), store, models.KindService, models.ImportReplace, strings.NewReader("name,url\n")); err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if store.calls != 1 || store.gotMode != models.ImportReplace || store.gotKind != models.KindService {
			t.Errorf("store calls = %d mode = %s kind = %s", store.calls, store.gotMode, store.gotKind)
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		if _, err := Import(context.Background(), &fakeStore{}, models.KindBookmark, "merge", strings.NewReader(input)); !errors.Is(err, ErrInvalidMode) {
			t.Errorf("error = %v, want ErrInvalidMode", err)
		}
	})

	t.Run("store error", func(t *testing.T) {
		store := &fakeStore{importErr: errors.New("constraint")}
		if _, err := Import(context.Background(), store, models.KindBookmark, models.ImportAppend, strings.NewReader(input)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRoundTrip(t *testing.T) {
	src := &fakeStore{items: []models.TransferItem{
		{Category: "Home", Name: "Router", URL: "http://192.168.1.1", SortOrder: 0, IsVisible: true, OpenInNewTab: false, HealthCheckEnabled: true},
	}}
	var buf bytes.Buffer
	if _, err := Export(context.Background(), src, models.KindService, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	items, rowErrs, err := Parse(&buf, models.KindService)
	if err != nil || len(rowErrs) != 0 {
		t.Fatalf("Parse() = %v, %v", rowErrs, err)
	}
	if items[0] != src.items[0] {
		t.Errorf("round trip = %+v, want %+v", items[0], src.items[0])
	}
}
