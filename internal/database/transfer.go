// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sdenike/fauxdash/internal/models"
)

// ExportItems returns every bookmark or service of kind with its category
// name, in category then item display order.
func (db *DB) ExportItems(ctx context.Context, kind models.ItemKind) ([]models.TransferItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	table, err := itemTable(kind)
	if err != nil {
		return nil, err
	}
	healthCols := `FALSE, ''`
	if kind == models.KindService {
		healthCols = `i.health_check_enabled, COALESCE(i.health_check_url, '')`
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.name, i.name, i.url, COALESCE(i.description, ''), COALESCE(i.icon, ''),
			i.sort_order, i.is_visible, i.open_in_new_tab, `+healthCols+`
		FROM `+table+` i JOIN categories c ON c.id = i.category_id
		ORDER BY c.sort_order, c.id, i.sort_order, i.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export %ss: %w", kind, err)
	}
	defer rows.Close()

	items := []models.TransferItem{}
	for rows.Next() {
		var it models.TransferItem
		if err := rows.Scan(&it.Category, &it.Name, &it.URL, &it.Description, &it.Icon,
			&it.SortOrder, &it.IsVisible, &it.OpenInNewTab, &it.HealthCheckEnabled,
			&it.HealthCheckURL); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ImportItems inserts items of kind in one transaction, creating missing
// categories by name. In replace mode every existing item and category of
// kind is removed first. Each item's SortOrder is kept relative to the other
// imported items; in append mode the imported block follows the items a
// category already holds.
func (db *DB) ImportItems(ctx context.Context, kind models.ItemKind, mode models.ImportMode, items []models.TransferItem) (created, categoriesCreated int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	table, err := itemTable(kind)
	if err != nil {
		return 0, 0, err
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		if mode == models.ImportReplace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE kind = ?`, string(kind)); err != nil {
				return fmt.Errorf("failed to clear %s categories: %w", kind, err)
			}
		}

		categories, err := categoryIDsByName(ctx, tx, kind)
		if err != nil {
			return err
		}

		// First free sort_order per category, read before the import touches it.
		bases := make(map[int64]int)

		now := time.Now().UTC()
		for i := range items {
			it := &items[i]
			key := strings.ToLower(it.Category)
			catID, ok := categories[key]
			if !ok {
				if err := tx.QueryRowContext(ctx, `
					INSERT INTO categories (kind, name, sort_order, created_at, updated_at)
					VALUES (?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM categories WHERE kind = ?), ?, ?)
					RETURNING id`, string(kind), it.Category, string(kind), now, now,
				).Scan(&catID); err != nil {
					return fmt.Errorf("failed to create category %q: %w", it.Category, err)
				}
				categories[key] = catID
				categoriesCreated++
			}

			base, ok := bases[catID]
			if !ok {
				if err := tx.QueryRowContext(ctx,
					`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM `+table+` WHERE category_id = ?`,
					catID).Scan(&base); err != nil {
					return fmt.Errorf("failed to read sort order of category %d: %w", catID, err)
				}
				bases[catID] = base
			}

			if err := insertTransferItem(ctx, tx, kind, catID, base+it.SortOrder, it, now); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, categoriesCreated, nil
}

func categoryIDsByName(ctx context.Context, tx *sql.Tx, kind models.ItemKind) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM categories WHERE kind = ?`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[strings.ToLower(name)] = id
	}
	return ids, rows.Err()
}

func insertTransferItem(ctx context.Context, tx *sql.Tx, kind models.ItemKind, categoryID int64, sortOrder int, it *models.TransferItem, now time.Time) error {
	var err error
	switch kind {
	case models.KindBookmark:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookmarks (category_id, name, url, description, icon, sort_order,
				is_visible, open_in_new_tab, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			categoryID, it.Name, it.URL, nullIfEmpty(it.Description), nullIfEmpty(it.Icon),
			sortOrder, it.IsVisible, it.OpenInNewTab, now, now)
	case models.KindService:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO services (category_id, name, url, description, icon, sort_order,
				is_visible, open_in_new_tab, health_check_enabled, health_check_url,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			categoryID, it.Name, it.URL, nullIfEmpty(it.Description), nullIfEmpty(it.Icon),
			sortOrder, it.IsVisible, it.OpenInNewTab, it.HealthCheckEnabled,
			nullIfEmpty(it.HealthCheckURL), now, now)
	}
	if err != nil {
		return fmt.Errorf("failed to import %q: %w", it.Name, err)
	}
	return nil
}
