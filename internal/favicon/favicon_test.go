// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package favicon

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]*models.FaviconRecord
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.FaviconRecord)}
}

func (s *memStore) GetFavicon(_ context.Context, host string) (*models.FaviconRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[host]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (s *memStore) UpsertFavicon(_ context.Context, f *models.FaviconRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[f.Host] = f
	return nil
}

func (s *memStore) DeleteFavicon(_ context.Context, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, host)
	return nil
}

func newTestService(t *testing.T, fallbacks ...string) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := New(&config.FaviconConfig{
		Timeout:          2 * time.Second,
		MaxBytes:         64 << 10,
		Size:             32,
		FallbackServices: fallbacks,
		UserAgent:        "fauxdash-test",
	}, t.TempDir(), store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, store
}

func assertPNG(t *testing.T, path string, size int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read icon: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stored icon is not PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
		t.Errorf("icon size = %v, want %dx%d", b, size, size)
	}
}

func TestFetch_HTMLDiscovery(t *testing.T) {
	icon := pngBytes(t, 96, 48, color.NRGBA{B: 255, A: 255})
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if ua := r.Header.Get("User-Agent"); ua != "fauxdash-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head>
				<link rel="apple-touch-icon" href="/missing.png">
				<link rel="icon" href="/static/icon.png" sizes="32x32">
			</head></html>`))
		case "/static/icon.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(icon)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc, store := newTestService(t)
	rec, err := svc.Fetch(context.Background(), srv.URL+"/", false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	host := strings.TrimPrefix(srv.URL, "http://")
	if rec.Source != SourceHTML || rec.Host != host || rec.FileName != HostFileName(host, ".png") {
		t.Errorf("record = %+v", rec)
	}
	if _, err := store.GetFavicon(context.Background(), host); err != nil {
		t.Error("record not persisted")
	}
	assertPNG(t, filepath.Join(svc.Dir(), rec.FileName), 32)

	// Second fetch is served from cache.
	before := requests.Load()
	if _, err := svc.Fetch(context.Background(), srv.URL+"/other/page", false); err != nil {
		t.Fatal(err)
	}
	if requests.Load() != before {
		t.Errorf("cached fetch made %d requests", requests.Load()-before)
	}

	// Force refetches.
	if _, err := svc.Fetch(context.Background(), srv.URL, true); err != nil {
		t.Fatal(err)
	}
	if requests.Load() == before {
		t.Error("forced fetch did not hit the network")
	}
}

func TestFetch_DirectICO(t *testing.T) {
	ico := buildICO([]icoTestEntry{{w: 16, h: 16, bpp: 32, data: pngBytes(t, 16, 16, color.White)}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			_, _ = w.Write(ico)
			return
		}
		_, _ = w.Write([]byte("<html><head><title>no icons</title></head></html>"))
	}))
	defer srv.Close()

	svc, _ := newTestService(t)
	rec, err := svc.Fetch(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if rec.Source != SourceDirect {
		t.Errorf("Source = %q, want direct", rec.Source)
	}
	assertPNG(t, filepath.Join(svc.Dir(), rec.FileName), 32)
}

func TestFetch_FallbackService(t *testing.T) {
	icon := pngBytes(t, 64, 64, color.Black)
	var gotHost string
	fb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.URL.Query().Get("domain")
		_, _ = w.Write(icon)
	}))
	defer fb.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer site.Close()

	tmpl := fb.URL + "/s2?domain={host}"
	svc, _ := newTestService(t, tmpl)
	rec, err := svc.Fetch(context.Background(), site.URL, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if rec.Source != fallbackName(tmpl) {
		t.Errorf("Source = %q, want %q", rec.Source, fallbackName(tmpl))
	}
	if gotHost != "127.0.0.1" {
		t.Errorf("fallback got domain %q", gotHost)
	}
}

func TestFetch_SVGStoredAsIs(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><circle cx="5" cy="5" r="4"/></svg>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<head><link rel="icon" href="/logo.svg"></head>`))
		case "/logo.svg":
			w.Header().Set("Content-Type", "image/svg+xml")
			_, _ = w.Write(svg)
		}
	}))
	defer srv.Close()

	svc, _ := newTestService(t)
	rec, err := svc.Fetch(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.HasSuffix(rec.FileName, ".svg") || rec.ContentType != contentTypeSVG {
		t.Errorf("record = %+v", rec)
	}
	stored, _ := os.ReadFile(filepath.Join(svc.Dir(), rec.FileName))
	if !bytes.Equal(stored, svg) {
		t.Error("svg modified")
	}
}

func TestFetch_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			_, _ = w.Write([]byte("this is not an image"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc, _ := newTestService(t)
	if _, err := svc.Fetch(context.Background(), srv.URL, false); !errors.Is(err, ErrNoIcon) {
		t.Errorf("err = %v, want ErrNoIcon", err)
	}
	for _, bad := range []string{"", "ftp://example.com", "/relative", "http://"} {
		if _, err := svc.Fetch(context.Background(), bad, false); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Fetch(%q) err = %v, want ErrInvalidURL", bad, err)
		}
	}
}

func TestFetch_OversizedIconRejected(t *testing.T) {
	big := bytes.Repeat([]byte{0}, 128<<10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			_, _ = w.Write(big)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc, _ := newTestService(t)
	if _, err := svc.Fetch(context.Background(), srv.URL, false); !errors.Is(err, ErrNoIcon) {
		t.Errorf("err = %v, want ErrNoIcon", err)
	}
}

func TestUploadAndDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	name, err := svc.Upload(ctx, pngBytes(t, 200, 100, color.White))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(name, "upload-") {
		t.Errorf("name = %q", name)
	}
	path, err := svc.Path(name)
	if err != nil {
		t.Fatal(err)
	}
	assertPNG(t, path, 32)

	if _, err := svc.Upload(ctx, []byte("plain text")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("text upload err = %v", err)
	}

	host := "example.com"
	if _, err := svc.save(ctx, host, SourceDirect, pngBytes(t, 16, 16, color.White)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, host); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(svc.Dir(), HostFileName(host, ".png"))); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}
	if _, err := store.GetFavicon(ctx, host); err == nil {
		t.Error("record still present after delete")
	}
}

func TestPath(t *testing.T) {
	svc, _ := newTestService(t)
	for name, ok := range map[string]bool{
		"0123abcd.png":  true,
		"upload-ab.svg": true,
		"../secret.png": false,
		"a/b.png":       false,
		".hidden.png":   false,
		"file.exe":      false,
		"":              false,
	} {
		_, err := svc.Path(name)
		if (err == nil) != ok {
			t.Errorf("Path(%q) err = %v, want ok=%v", name, err, ok)
		}
	}
}

func TestFallbackName(t *testing.T) {
	for tmpl, want := range map[string]string{
		"https://www.google.com/s2/favicons?domain={host}&sz=128": "google",
		"https://icons.duckduckgo.com/ip3/{host}.ico":             "duckduckgo",
		"::bad::": "fallback",
	} {
		if got := fallbackName(tmpl); got != want {
			t.Errorf("fallbackName(%q) = %q, want %q", tmpl, got, want)
		}
	}
}
