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

const serviceColumns = `id, category_id, name, url, COALESCE(description, ''), COALESCE(icon, ''),
	sort_order, is_visible, requires_auth, open_in_new_tab, health_check_enabled,
	COALESCE(health_check_url, ''), health_check_interval_sec, health_status, last_checked_at,
	last_response_ms, click_count, created_at, updated_at`

// defaultHealthCheckInterval applies when a service does not set one.
const defaultHealthCheckInterval = 60

func scanService(row rowScanner) (*models.Service, error) {
	var s models.Service
	var lastChecked sql.NullTime
	if err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.URL, &s.Description, &s.Icon,
		&s.SortOrder, &s.IsVisible, &s.RequiresAuth, &s.OpenInNewTab, &s.HealthCheckEnabled,
		&s.HealthCheckURL, &s.HealthCheckInterval, &s.HealthStatus, &lastChecked,
		&s.LastResponseMs, &s.ClickCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		s.LastCheckedAt = &t
	}
	return &s, nil
}

func (db *DB) queryServices(ctx context.Context, where string, args ...any) ([]models.Service, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + serviceColumns + ` FROM services`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY category_id, sort_order, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	services := []models.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, *s)
	}
	return services, rows.Err()
}

// ListServices returns the services of a category in display order.
func (db *DB) ListServices(ctx context.Context, categoryID int64, includeHidden bool) ([]models.Service, error) {
	if includeHidden {
		return db.queryServices(ctx, `category_id = ?`, categoryID)
	}
	return db.queryServices(ctx, `category_id = ? AND is_visible`, categoryID)
}

// ListAllServices returns every service ordered by category and position.
func (db *DB) ListAllServices(ctx context.Context) ([]models.Service, error) {
	return db.queryServices(ctx, "")
}

// ListHealthCheckTargets returns services with health checks enabled.
func (db *DB) ListHealthCheckTargets(ctx context.Context) ([]models.Service, error) {
	return db.queryServices(ctx, `health_check_enabled`)
}

// GetService returns a service by ID.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getService(ctx, db.conn, id)
}

func getService(ctx context.Context, q queryer, id int64) (*models.Service, error) {
	s, err := scanService(q.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service %d: %w", id, err)
	}
	return s, nil
}

// CreateService appends a service to the end of its category.
func (db *DB) CreateService(ctx context.Context, in *models.ServiceInput) (*models.Service, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if err := requireCategoryKind(ctx, db.conn, in.CategoryID, models.KindService); err != nil {
		return nil, err
	}

	interval := in.HealthCheckInterval
	if interval == 0 {
		interval = defaultHealthCheckInterval
	}
	now := time.Now().UTC()

	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO services (category_id, name, url, description, icon, sort_order,
			is_visible, requires_auth, open_in_new_tab, health_check_enabled,
			health_check_url, health_check_interval_sec, health_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM services WHERE category_id = ?),
			?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		in.CategoryID, in.Name, in.URL, nullIfEmpty(in.Description), nullIfEmpty(in.Icon),
		in.CategoryID, models.BoolOr(in.IsVisible, true), in.RequiresAuth,
		models.BoolOr(in.OpenInNewTab, true), in.HealthCheckEnabled,
		nullIfEmpty(in.HealthCheckURL), interval, models.HealthUnknown, now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return getService(ctx, db.conn, id)
}

// UpdateService replaces a service's editable fields. Disabling health checks
// resets the status to unknown.
func (db *DB) UpdateService(ctx context.Context, id int64, in *models.ServiceInput) (*models.Service, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	existing, err := getService(ctx, db.conn, id)
	if err != nil {
		return nil, err
	}

	sortOrder := existing.SortOrder
	if in.CategoryID != existing.CategoryID {
		if err := requireCategoryKind(ctx, db.conn, in.CategoryID, models.KindService); err != nil {
			return nil, err
		}
		if err := db.conn.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM services WHERE category_id = ?`,
			in.CategoryID).Scan(&sortOrder); err != nil {
			return nil, fmt.Errorf("failed to compute sort order: %w", err)
		}
	}

	interval := in.HealthCheckInterval
	if interval == 0 {
		interval = existing.HealthCheckInterval
	}
	status := existing.HealthStatus
	if !in.HealthCheckEnabled {
		status = models.HealthUnknown
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE services SET category_id = ?, name = ?, url = ?, description = ?, icon = ?,
			sort_order = ?, is_visible = ?, requires_auth = ?, open_in_new_tab = ?,
			health_check_enabled = ?, health_check_url = ?, health_check_interval_sec = ?,
			health_status = ?, updated_at = ?
		WHERE id = ?`,
		in.CategoryID, in.Name, in.URL, nullIfEmpty(in.Description), nullIfEmpty(in.Icon),
		sortOrder, models.BoolOr(in.IsVisible, existing.IsVisible), in.RequiresAuth,
		models.BoolOr(in.OpenInNewTab, existing.OpenInNewTab), in.HealthCheckEnabled,
		nullIfEmpty(in.HealthCheckURL), interval, status, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update service %d: %w", id, err)
	}
	return getService(ctx, db.conn, id)
}

// DeleteService removes a service.
func (db *DB) DeleteService(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete service %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderServices sets the display order within a category.
func (db *DB) ReorderServices(ctx context.Context, categoryID int64, ids []int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return reorder(ctx, tx, "services", "category_id = ?", categoryID, ids)
	})
}

// UpdateServiceHealth records the result of a health check.
func (db *DB) UpdateServiceHealth(ctx context.Context, id int64, status string, responseMs int64, checkedAt time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			UPDATE services SET health_status = ?, last_response_ms = ?, last_checked_at = ?
			WHERE id = ?`, status, responseMs, checkedAt.UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to update health of service %d: %w", id, err)
		}
		return nil
	})
}

// IncrementClickCount bumps the click counter of a bookmark or service.
func (db *DB) IncrementClickCount(ctx context.Context, kind models.ItemKind, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	table, err := itemTable(kind)
	if err != nil {
		return err
	}
	return db.withRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx,
			`UPDATE `+table+` SET click_count = click_count + 1 WHERE id = ?`, id)
		return err
	})
}

func itemTable(kind models.ItemKind) (string, error) {
	switch kind {
	case models.KindBookmark:
		return "bookmarks", nil
	case models.KindService:
		return "services", nil
	default:
		return "", fmt.Errorf("unknown item kind %q", kind)
	}
}
