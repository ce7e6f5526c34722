// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package geoip resolves visitor IP addresses to locations for analytics.
//
// A Resolver consults an in-memory ristretto cache, then the geolocations
// table, then each configured Provider in order. Private and loopback
// addresses resolve to a "Local" location without any provider call.
//
// Providers:
//   - MMDBProvider: local GeoLite2-City database via oschwald/geoip2-golang
//   - MaxMindProvider: MaxMind GeoLite2 web service (account ID + license key)
//   - IPAPIProvider: free ip-api.com, limited to 45 requests per minute
//
// Web providers are wrapped in circuit breakers.
package geoip

import (
	"context"
	"errors"

	"github.com/sdenike/fauxdash/internal/models"
)

// Provider looks up the location of a single IP address.
type Provider interface {
	// Lookup returns the location of ip. ip is already normalized.
	Lookup(ctx context.Context, ip string) (*models.Geolocation, error)

	// Name identifies the provider in logs, metrics and stored rows.
	Name() string

	// Available reports whether the provider is configured.
	Available() bool
}

var (
	// ErrNoProvider is returned when no provider is configured.
	ErrNoProvider = errors.New("no GeoIP providers available")

	// ErrAllProvidersFailed wraps the last provider error when every
	// provider failed.
	ErrAllProvidersFailed = errors.New("all GeoIP providers failed")

	// ErrInvalidIP is returned for input that is not an IP address.
	ErrInvalidIP = errors.New("invalid IP address")

	// ErrRateLimited is returned by providers that throttle locally.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrNotFound is returned when a provider has no record for the address.
	ErrNotFound = errors.New("address not found")
)
