// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/models"
)

const (
	cacheName       = "geoip"
	defaultCacheTTL = 24 * time.Hour
	localProvider   = "local"
)

// Store is the persistent second cache tier.
type Store interface {
	GetGeolocation(ctx context.Context, ip string) (*models.Geolocation, error)
	UpsertGeolocation(ctx context.Context, g *models.Geolocation) error
}

// Resolver resolves IPs through the cache tiers and provider chain.
type Resolver struct {
	providers []Provider
	store     Store
	cache     *ristretto.Cache[string, *models.Geolocation]
	ttl       time.Duration
	timeout   time.Duration
	closers   []func() error
}

// NewResolver creates a resolver. Providers are tried in the given order.
// store may be nil.
func NewResolver(store Store, ttl time.Duration, providers ...Provider) (*Resolver, error) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *models.Geolocation]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create geoip cache: %w", err)
	}
	return &Resolver{
		providers: providers,
		store:     store,
		cache:     cache,
		ttl:       ttl,
	}, nil
}

// NewFromConfig builds the provider chain from configuration: the local
// database first, then MaxMind, then ip-api.com. A database that cannot be
// opened is logged and skipped.
func NewFromConfig(cfg *config.GeoIPConfig, store Store) (*Resolver, error) {
	var providers []Provider
	var closers []func() error

	if cfg.MMDBPath != "" {
		mmdb, err := OpenMMDB(cfg.MMDBPath)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.MMDBPath).Msg("GeoIP database unavailable, skipping")
		} else {
			providers = append(providers, mmdb)
			closers = append(closers, mmdb.Close)
		}
	}
	if cfg.MaxMindAccountID != "" && cfg.MaxMindLicenseKey != "" {
		providers = append(providers, NewMaxMindProvider(cfg.MaxMindAccountID, cfg.MaxMindLicenseKey, cfg.LookupTimeout))
	}
	if cfg.IPAPIEnabled {
		providers = append(providers, NewIPAPIProvider(cfg.LookupTimeout))
	}

	r, err := NewResolver(store, cfg.CacheTTL, providers...)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	r.timeout = cfg.LookupTimeout
	r.closers = closers

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logging.Info().Strs("providers", names).Msg("GeoIP resolver configured")
	return r, nil
}

// HasProviders reports whether any provider is available.
func (r *Resolver) HasProviders() bool {
	for _, p := range r.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

// Resolve returns the location of ip. ip may carry a port or brackets.
func (r *Resolver) Resolve(ctx context.Context, ip string) (*models.Geolocation, error) {
	normalized, err := NormalizeIP(ip)
	if err != nil {
		return nil, err
	}

	if IsPrivateIP(normalized) {
		return LocalGeolocation(normalized), nil
	}

	if geo, ok := r.cache.Get(normalized); ok {
		metrics.RecordCacheHit(cacheName, "memory")
		return geo, nil
	}

	if geo := r.fromStore(ctx, normalized); geo != nil {
		metrics.RecordCacheHit(cacheName, "database")
		r.cache.SetWithTTL(normalized, geo, 1, r.ttl)
		return geo, nil
	}
	metrics.RecordCacheMiss(cacheName)

	geo, err := r.tryProviders(ctx, normalized)
	if err != nil {
		return nil, err
	}

	r.cache.SetWithTTL(normalized, geo, 1, r.ttl)
	if r.store != nil {
		if err := r.store.UpsertGeolocation(ctx, geo); err != nil {
			logging.Warn().Err(err).Str("ip", logging.MaskIP(normalized)).Msg("Failed to cache geolocation")
		}
	}
	return geo, nil
}

func (r *Resolver) fromStore(ctx context.Context, ip string) *models.Geolocation {
	if r.store == nil {
		return nil
	}
	geo, err := r.store.GetGeolocation(ctx, ip)
	if err != nil {
		logging.Debug().Err(err).Msg("Geolocation cache read failed")
		return nil
	}
	if geo == nil || time.Since(geo.LastUpdated) > r.ttl {
		return nil
	}
	return geo
}

func (r *Resolver) tryProviders(ctx context.Context, ip string) (*models.Geolocation, error) {
	var lastErr error
	tried := 0

	for _, p := range r.providers {
		if !p.Available() {
			continue
		}
		tried++

		lookupCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.timeout > 0 {
			lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		start := time.Now()
		geo, err := p.Lookup(lookupCtx, ip)
		cancel()

		if err != nil {
			result := "error"
			if errors.Is(err, ErrNotFound) {
				result = "not_found"
			}
			metrics.RecordGeoIPLookup(p.Name(), result, time.Since(start))
			logging.Debug().Err(err).Str("provider", p.Name()).Str("ip", logging.MaskIP(ip)).Msg("GeoIP provider failed")
			lastErr = err
			continue
		}

		metrics.RecordGeoIPLookup(p.Name(), "success", time.Since(start))
		geo.IPAddress = ip
		if geo.Provider == "" {
			geo.Provider = p.Name()
		}
		return geo, nil
	}

	if tried == 0 {
		return nil, ErrNoProvider
	}
	return nil, fmt.Errorf("%w for %s: %w", ErrAllProvidersFailed, logging.MaskIP(ip), lastErr)
}

// Close releases provider resources and the cache.
func (r *Resolver) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	r.cache.Close()
	return errors.Join(errs...)
}

// NormalizeIP strips ports and brackets and returns the canonical form of
// the address. IPv4-mapped IPv6 addresses are returned as IPv4.
func NormalizeIP(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, raw)
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String(), nil
	}
	return ip.String(), nil
}

// IsPrivateIP reports whether ip cannot be geolocated: private, loopback,
// link-local, CGNAT or unspecified.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() ||
		parsed.IsLinkLocalMulticast() || parsed.IsUnspecified() {
		return true
	}
	return cgnat.Contains(parsed)
}

var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// LocalGeolocation is the location reported for LAN addresses.
func LocalGeolocation(ip string) *models.Geolocation {
	return &models.Geolocation{
		IPAddress:   ip,
		Country:     "Local",
		City:        "Local Network",
		Provider:    localProvider,
		LastUpdated: time.Now().UTC(),
	}
}
