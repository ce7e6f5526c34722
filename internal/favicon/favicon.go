// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package favicon fetches, normalizes and stores site icons.
//
// Fetch tries, in order: the memory cache, the favicons table (with the file
// still on disk), icons declared in the page's HTML, /favicon.ico at the
// origin, and finally the configured fallback services. Each fallback
// service sits behind its own circuit breaker.
//
// Raster icons (PNG, JPEG, GIF, WebP, BMP, ICO) are scaled to a square PNG
// named after a hash of the host. SVG icons are stored unchanged.
package favicon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/sdenike/fauxdash/internal/breaker"
	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/models"
)

// ErrNoIcon is returned when no source produced a usable icon.
var ErrNoIcon = errors.New("no favicon found")

// ErrInvalidURL is returned for page URLs that are not absolute http(s).
var ErrInvalidURL = errors.New("invalid page URL")

// Sources recorded with each stored icon.
const (
	SourceHTML   = "html"
	SourceDirect = "direct"
	SourceUpload = "upload"
)

const (
	cacheName    = "favicon"
	maxHTMLBytes = 512 << 10
)

// Store persists favicon records.
type Store interface {
	GetFavicon(ctx context.Context, host string) (*models.FaviconRecord, error)
	UpsertFavicon(ctx context.Context, f *models.FaviconRecord) error
	DeleteFavicon(ctx context.Context, host string) error
}

type fallback struct {
	name     string
	template string
	breaker  *breaker.Breaker[[]byte]
}

// Service fetches and stores favicons.
type Service struct {
	dir       string
	size      int
	maxBytes  int64
	userAgent string
	client    *http.Client
	store     Store
	cache     *ristretto.Cache[string, *models.FaviconRecord]
	fallbacks []fallback
}

// New creates a favicon service writing files to dir.
func New(cfg *config.FaviconConfig, dir string, store Store) (*Service, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create favicon directory: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *models.FaviconRecord]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create favicon cache: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Service{
		dir:       dir,
		size:      cfg.Size,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		store:     store,
		cache:     cache,
	}
	if s.size <= 0 {
		s.size = 64
	}
	if s.maxBytes <= 0 {
		s.maxBytes = 1 << 20
	}

	for _, tmpl := range cfg.FallbackServices {
		name := fallbackName(tmpl)
		s.fallbacks = append(s.fallbacks, fallback{
			name:     name,
			template: tmpl,
			breaker:  breaker.New[[]byte]("favicon-" + name),
		})
	}
	return s, nil
}

// Dir returns the directory icons are stored in.
func (s *Service) Dir() string {
	return s.dir
}

// Close releases the memory cache.
func (s *Service) Close() {
	s.cache.Close()
}

// fallbackName derives a short label from a service template,
// e.g. "https://www.google.com/s2/..." -> "google".
func fallbackName(tmpl string) string {
	u, err := url.Parse(strings.ReplaceAll(tmpl, "{host}", "example.com"))
	if err != nil || u.Hostname() == "" {
		return "fallback"
	}
	parts := strings.Split(strings.TrimPrefix(u.Hostname(), "www."), ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return parts[0]
}

// Fetch returns the stored icon for pageURL's host, fetching it when it is
// not cached or when force is set.
func (s *Service) Fetch(ctx context.Context, pageURL string, force bool) (*models.FaviconRecord, error) {
	page, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (page.Scheme != "http" && page.Scheme != "https") || page.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}
	host := strings.ToLower(page.Host)

	if !force {
		if rec := s.cached(ctx, host); rec != nil {
			return rec, nil
		}
		metrics.RecordCacheMiss(cacheName)
	}

	logger := logging.Ctx(ctx).With().Str("host", host).Logger()
	for _, c := range s.candidates(ctx, page) {
		start := time.Now()
		data, err := c.fetch(ctx)
		if err == nil {
			var rec *models.FaviconRecord
			rec, err = s.save(ctx, host, c.source, data)
			if err == nil {
				metrics.RecordFaviconFetch(c.source, nil)
				metrics.FaviconFetchDuration.Observe(time.Since(start).Seconds())
				logger.Debug().Str("source", c.source).Str("file", rec.FileName).Msg("Favicon stored")
				return rec, nil
			}
		}
		metrics.RecordFaviconFetch(c.source, err)
		logger.Debug().Err(err).Str("source", c.source).Msg("Favicon candidate rejected")
	}
	return nil, fmt.Errorf("%w for %s", ErrNoIcon, host)
}

func (s *Service) cached(ctx context.Context, host string) *models.FaviconRecord {
	if rec, ok := s.cache.Get(host); ok && s.fileExists(rec.FileName) {
		metrics.RecordCacheHit(cacheName, "memory")
		return rec
	}
	if s.store == nil {
		return nil
	}
	rec, err := s.store.GetFavicon(ctx, host)
	if err != nil || rec == nil || !s.fileExists(rec.FileName) {
		return nil
	}
	metrics.RecordCacheHit(cacheName, "database")
	s.cache.Set(host, rec, 1)
	return rec
}

// candidate is one place an icon may be downloaded from.
type candidate struct {
	source string
	fetch  func(ctx context.Context) ([]byte, error)
}

// candidates lists the download sources in priority order. A failed page
// fetch only drops the HTML candidates.
func (s *Service) candidates(ctx context.Context, page *url.URL) []candidate {
	var out []candidate

	for _, iconURL := range s.discover(ctx, page) {
		iconURL := iconURL
		out = append(out, candidate{source: SourceHTML, fetch: func(ctx context.Context) ([]byte, error) {
			return s.download(ctx, iconURL)
		}})
	}

	direct := (&url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/favicon.ico"}).String()
	out = append(out, candidate{source: SourceDirect, fetch: func(ctx context.Context) ([]byte, error) {
		return s.download(ctx, direct)
	}})

	for _, fb := range s.fallbacks {
		fb := fb
		target := strings.ReplaceAll(fb.template, "{host}", url.QueryEscape(page.Hostname()))
		out = append(out, candidate{source: fb.name, fetch: func(ctx context.Context) ([]byte, error) {
			return fb.breaker.Execute(func() ([]byte, error) {
				return s.download(ctx, target)
			})
		}})
	}
	return out
}

// discover fetches the page and returns declared icon URLs.
func (s *Service) discover(ctx context.Context, page *url.URL) []string {
	resp, err := s.get(ctx, page.String())
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("url", page.Redacted()).Msg("Favicon page fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil
	}
	// Resolve against the final URL after redirects.
	return discoverIcons(io.LimitReader(resp.Body, maxHTMLBytes), resp.Request.URL)
}

func (s *Service) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,image/*;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}
	return resp, nil
}

// download reads at most maxBytes; larger bodies are rejected.
func (s *Service) download(ctx context.Context, target string) ([]byte, error) {
	resp, err := s.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("icon at %s exceeds %d bytes", target, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response from %s", target)
	}
	return data, nil
}

func (s *Service) save(ctx context.Context, host, source string, data []byte) (*models.FaviconRecord, error) {
	icon, err := normalize(data, s.size)
	if err != nil {
		return nil, err
	}

	name := HostFileName(host, icon.ext)
	if err := s.writeFile(name, icon.data); err != nil {
		return nil, err
	}
	// A host may switch between SVG and PNG; drop the stale variant.
	for _, ext := range []string{".png", ".svg"} {
		if ext != icon.ext {
			_ = os.Remove(filepath.Join(s.dir, HostFileName(host, ext)))
		}
	}

	rec := &models.FaviconRecord{
		Host:        host,
		FileName:    name,
		Source:      source,
		ContentType: icon.contentType,
		FetchedAt:   time.Now().UTC(),
	}
	if s.store != nil {
		if err := s.store.UpsertFavicon(ctx, rec); err != nil {
			return nil, err
		}
	}
	s.cache.Set(host, rec, 1)
	return rec, nil
}

// Upload stores a user-provided icon and returns its file name. The name is
// derived from the content so identical uploads share a file.
func (s *Service) Upload(ctx context.Context, data []byte) (string, error) {
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("icon exceeds %d bytes", s.maxBytes)
	}
	icon, err := normalize(data, s.size)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(icon.data)
	name := "upload-" + hex.EncodeToString(sum[:])[:16] + icon.ext
	if err := s.writeFile(name, icon.data); err != nil {
		return "", err
	}
	metrics.RecordFaviconFetch(SourceUpload, nil)
	logging.Ctx(ctx).Info().Str("file", name).Int("bytes", len(icon.data)).Msg("Favicon uploaded")
	return name, nil
}

// Delete removes the stored icon for host.
func (s *Service) Delete(ctx context.Context, host string) error {
	host = strings.ToLower(host)
	s.cache.Del(host)
	for _, ext := range []string{".png", ".svg"} {
		if err := os.Remove(filepath.Join(s.dir, HostFileName(host, ext))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove favicon: %w", err)
		}
	}
	if s.store != nil {
		return s.store.DeleteFavicon(ctx, host)
	}
	return nil
}

// Path returns the on-disk path of a stored icon file. Names containing
// path separators are rejected.
func (s *Service) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") ||
		(!strings.HasSuffix(name, ".png") && !strings.HasSuffix(name, ".svg")) {
		return "", fmt.Errorf("invalid favicon name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// HostFileName is the stored file name for a host: the first 16 hex digits
// of sha256(host) plus ext.
func HostFileName(host, ext string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(host)))
	return hex.EncodeToString(sum[:])[:16] + ext
}

func (s *Service) fileExists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

func (s *Service) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".favicon-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write favicon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write favicon: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod favicon: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to store favicon: %w", err)
	}
	return nil
}
