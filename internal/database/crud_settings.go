// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sdenike/fauxdash/internal/models"
)

// GetSettings returns the global settings overlaid with the overrides of
// userID. Pass models.GlobalSettingsUserID to read only the global rows.
func (db *DB) GetSettings(ctx context.Context, userID int64) (models.Settings, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	// User rows sort after global rows so they win when copied into the map.
	rows, err := db.conn.QueryContext(ctx, `
		SELECT setting_key, setting_value FROM settings
		WHERE user_id = ? OR user_id = ?
		ORDER BY (user_id <> ?), setting_key`,
		models.GlobalSettingsUserID, userID, models.GlobalSettingsUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	settings := models.Settings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// SetSettings upserts every key in values for userID in one transaction.
func (db *DB) SetSettings(ctx context.Context, userID int64, values models.Settings) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	now := time.Now().UTC()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (user_id, setting_key, setting_value, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (user_id, setting_key) DO UPDATE SET
					setting_value = EXCLUDED.setting_value,
					updated_at = EXCLUDED.updated_at`,
				userID, key, value, now); err != nil {
				return fmt.Errorf("failed to save setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// DeleteSetting removes one key for userID. Deleting a user override makes
// the global value visible again.
func (db *DB) DeleteSetting(ctx context.Context, userID int64, key string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM settings WHERE user_id = ? AND setting_key = ?`, userID, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
