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

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const categoryColumns = `id, kind, name, COALESCE(icon, ''), sort_order, column_count,
	is_visible, requires_auth, collapsed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var kind string
	if err := row.Scan(&c.ID, &kind, &c.Name, &c.Icon, &c.SortOrder, &c.Columns,
		&c.IsVisible, &c.RequiresAuth, &c.Collapsed, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Kind = models.ItemKind(kind)
	return &c, nil
}

// ListCategories returns categories of a kind in display order. An empty kind
// returns every category.
func (db *DB) ListCategories(ctx context.Context, kind models.ItemKind) ([]models.Category, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY kind, sort_order, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// GetCategory returns a category by ID.
func (db *DB) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getCategory(ctx, db.conn, id)
}

func getCategory(ctx context.Context, q queryer, id int64) (*models.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return c, nil
}

// CreateCategory appends a category to the end of its kind's order.
func (db *DB) CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	columns := in.Columns
	if columns == 0 {
		columns = 1
	}
	now := time.Now().UTC()

	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO categories (kind, name, icon, sort_order, column_count, is_visible,
			requires_auth, collapsed, created_at, updated_at)
		VALUES (?, ?, ?,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM categories WHERE kind = ?),
			?, ?, ?, ?, ?, ?)
		RETURNING id`,
		string(in.Kind), in.Name, nullIfEmpty(in.Icon), string(in.Kind), columns,
		models.BoolOr(in.IsVisible, true), in.RequiresAuth, in.Collapsed, now, now,
	).Scan(&id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("category %q: %w", in.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return getCategory(ctx, db.conn, id)
}

// UpdateCategory replaces a category's editable fields. The kind of a
// category cannot change.
func (db *DB) UpdateCategory(ctx context.Context, id int64, in *models.CategoryInput) (*models.Category, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	existing, err := getCategory(ctx, db.conn, id)
	if err != nil {
		return nil, err
	}
	if in.Kind != "" && in.Kind != existing.Kind {
		return nil, fmt.Errorf("category kind cannot change from %s to %s: %w",
			existing.Kind, in.Kind, ErrInvalidCategory)
	}

	columns := in.Columns
	if columns == 0 {
		columns = existing.Columns
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, column_count = ?, is_visible = ?,
			requires_auth = ?, collapsed = ?, updated_at = ?
		WHERE id = ?`,
		in.Name, nullIfEmpty(in.Icon), columns, models.BoolOr(in.IsVisible, existing.IsVisible),
		in.RequiresAuth, in.Collapsed, time.Now().UTC(), id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("category %q: %w", in.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	return getCategory(ctx, db.conn, id)
}

// DeleteCategory removes a category and every item in it.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		c, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		itemTable := "bookmarks"
		if c.Kind == models.KindService {
			itemTable = "services"
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+itemTable+` WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete items of category %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category %d: %w", id, err)
		}
		return nil
	})
}

// ReorderCategories sets the display order of a kind's categories. Listed IDs
// come first in the given order; unlisted categories follow in their current
// order.
func (db *DB) ReorderCategories(ctx context.Context, kind models.ItemKind, ids []int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return reorder(ctx, tx, "categories", "kind = ?", string(kind), ids)
	})
}

// reorder rewrites sort_order 0..n-1 for the rows of table matching where.
func reorder(ctx context.Context, tx *sql.Tx, table, where string, groupArg any, ids []int64) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE `+where+` ORDER BY sort_order, id`, groupArg)
	if err != nil {
		return fmt.Errorf("failed to load %s order: %w", table, err)
	}
	var current []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		current = append(current, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	order, err := mergeOrder(current, ids)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for pos, id := range order {
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET sort_order = ?, updated_at = ? WHERE id = ?`, pos, now, id); err != nil {
			return fmt.Errorf("failed to update %s order: %w", table, err)
		}
	}
	return nil
}

// mergeOrder returns requested followed by the members of current that were
// not requested. Every requested ID must be a member and appear once.
func mergeOrder(current, requested []int64) ([]int64, error) {
	members := make(map[int64]bool, len(current))
	for _, id := range current {
		members[id] = true
	}

	seen := make(map[int64]bool, len(requested))
	order := make([]int64, 0, len(current))
	for _, id := range requested {
		if !members[id] || seen[id] {
			return nil, fmt.Errorf("id %d: %w", id, ErrInvalidReorder)
		}
		seen[id] = true
		order = append(order, id)
	}
	for _, id := range current {
		if !seen[id] {
			order = append(order, id)
		}
	}
	return order, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
