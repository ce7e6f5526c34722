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

	"github.com/sdenike/fauxdash/internal/models"
)

// GetFavicon returns the favicon record for host.
func (db *DB) GetFavicon(ctx context.Context, host string) (*models.FaviconRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var f models.FaviconRecord
	err := db.conn.QueryRowContext(ctx, `
		SELECT host, file_name, source, content_type, fetched_at
		FROM favicons WHERE host = ?`, host,
	).Scan(&f.Host, &f.FileName, &f.Source, &f.ContentType, &f.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favicon for %s: %w", host, err)
	}
	return &f, nil
}

// UpsertFavicon stores the favicon record for a host.
func (db *DB) UpsertFavicon(ctx context.Context, f *models.FaviconRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO favicons (host, file_name, source, content_type, fetched_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (host) DO UPDATE SET
				file_name = EXCLUDED.file_name,
				source = EXCLUDED.source,
				content_type = EXCLUDED.content_type,
				fetched_at = EXCLUDED.fetched_at`,
			f.Host, f.FileName, f.Source, f.ContentType, f.FetchedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to upsert favicon for %s: %w", f.Host, err)
		}
		return nil
	})
}

// DeleteFavicon removes the favicon record for host.
func (db *DB) DeleteFavicon(ctx context.Context, host string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM favicons WHERE host = ?`, host)
	if err != nil {
		return fmt.Errorf("failed to delete favicon for %s: %w", host, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFavicons returns every stored favicon record.
func (db *DB) ListFavicons(ctx context.Context) ([]models.FaviconRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT host, file_name, source, content_type, fetched_at FROM favicons ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list favicons: %w", err)
	}
	defer rows.Close()

	records := []models.FaviconRecord{}
	for rows.Next() {
		var f models.FaviconRecord
		if err := rows.Scan(&f.Host, &f.FileName, &f.Source, &f.ContentType, &f.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favicon: %w", err)
		}
		records = append(records, f)
	}
	return records, rows.Err()
}
