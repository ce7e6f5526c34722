// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sdenike/fauxdash/internal/models"
)

// GetGeolocation returns the cached geolocation for ip, or nil if none is
// stored.
func (db *DB) GetGeolocation(ctx context.Context, ip string) (*models.Geolocation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var g models.Geolocation
	err := db.conn.QueryRowContext(ctx, `
		SELECT ip_address, country, COALESCE(country_code, ''), COALESCE(region, ''),
			COALESCE(city, ''), latitude, longitude, COALESCE(timezone, ''),
			COALESCE(isp, ''), COALESCE(provider, ''), last_updated
		FROM geolocations WHERE ip_address = ?`, ip,
	).Scan(&g.IPAddress, &g.Country, &g.CountryCode, &g.Region, &g.City, &g.Latitude,
		&g.Longitude, &g.Timezone, &g.ISP, &g.Provider, &g.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geolocation: %w", err)
	}
	return &g, nil
}

// UpsertGeolocation stores or refreshes the geolocation of an IP.
func (db *DB) UpsertGeolocation(ctx context.Context, g *models.Geolocation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	updated := g.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}

	return db.withRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO geolocations (ip_address, country, country_code, region, city,
				latitude, longitude, timezone, isp, provider, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (ip_address) DO UPDATE SET
				country = EXCLUDED.country,
				country_code = EXCLUDED.country_code,
				region = EXCLUDED.region,
				city = EXCLUDED.city,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				timezone = EXCLUDED.timezone,
				isp = EXCLUDED.isp,
				provider = EXCLUDED.provider,
				last_updated = EXCLUDED.last_updated`,
			g.IPAddress, g.Country, nullIfEmpty(g.CountryCode), nullIfEmpty(g.Region),
			nullIfEmpty(g.City), g.Latitude, g.Longitude, nullIfEmpty(g.Timezone),
			nullIfEmpty(g.ISP), nullIfEmpty(g.Provider), updated.UTC())
		if err != nil {
			return fmt.Errorf("failed to upsert geolocation: %w", err)
		}
		return nil
	})
}

// DeleteStaleGeolocations removes cached rows last refreshed before cutoff.
func (db *DB) DeleteStaleGeolocations(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM geolocations WHERE last_updated < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale geolocations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
