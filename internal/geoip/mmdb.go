// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package geoip

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/sdenike/fauxdash/internal/models"
)

// MMDBProvider reads a local MaxMind GeoLite2-City database.
type MMDBProvider struct {
	mu     sync.RWMutex
	reader *geoip2.Reader
	path   string
}

// OpenMMDB opens the database at path.
func OpenMMDB(path string) (*MMDBProvider, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database %s: %w", path, err)
	}
	return &MMDBProvider{reader: reader, path: path}, nil
}

// Name returns the provider name.
func (p *MMDBProvider) Name() string {
	return "mmdb"
}

// Available reports whether the database is open.
func (p *MMDBProvider) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reader != nil
}

// Lookup reads the city record for ip.
func (p *MMDBProvider) Lookup(_ context.Context, ip string) (*models.Geolocation, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIP, ip)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.reader == nil {
		return nil, fmt.Errorf("GeoIP database %s is closed", p.path)
	}

	record, err := p.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("mmdb lookup failed: %w", err)
	}
	if record.Country.IsoCode == "" && record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ip)
	}

	geo := &models.Geolocation{
		IPAddress:   ip,
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
		Timezone:    record.Location.TimeZone,
		Provider:    "mmdb",
		LastUpdated: time.Now().UTC(),
	}
	if len(record.Subdivisions) > 0 {
		geo.Region = record.Subdivisions[0].Names["en"]
	}
	return geo, nil
}

// Close releases the database.
func (p *MMDBProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader == nil {
		return nil
	}
	err := p.reader.Close()
	p.reader = nil
	return err
}
