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

const bookmarkColumns = `id, category_id, name, url, COALESCE(description, ''), COALESCE(icon, ''),
	sort_order, is_visible, requires_auth, open_in_new_tab, click_count, created_at, updated_at`

func scanBookmark(row rowScanner) (*models.Bookmark, error) {
	var b models.Bookmark
	if err := row.Scan(&b.ID, &b.CategoryID, &b.Name, &b.URL, &b.Description, &b.Icon,
		&b.SortOrder, &b.IsVisible, &b.RequiresAuth, &b.OpenInNewTab, &b.ClickCount,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) queryBookmarks(ctx context.Context, where string, args ...any) ([]models.Bookmark, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY category_id, sort_order, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []models.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, *b)
	}
	return bookmarks, rows.Err()
}

// ListBookmarks returns the bookmarks of a category in display order.
func (db *DB) ListBookmarks(ctx context.Context, categoryID int64, includeHidden bool) ([]models.Bookmark, error) {
	if includeHidden {
		return db.queryBookmarks(ctx, `category_id = ?`, categoryID)
	}
	return db.queryBookmarks(ctx, `category_id = ? AND is_visible`, categoryID)
}

// ListAllBookmarks returns every bookmark ordered by category and position.
func (db *DB) ListAllBookmarks(ctx context.Context) ([]models.Bookmark, error) {
	return db.queryBookmarks(ctx, "")
}

// GetBookmark returns a bookmark by ID.
func (db *DB) GetBookmark(ctx context.Context, id int64) (*models.Bookmark, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getBookmark(ctx, db.conn, id)
}

func getBookmark(ctx context.Context, q queryer, id int64) (*models.Bookmark, error) {
	b, err := scanBookmark(q.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark %d: %w", id, err)
	}
	return b, nil
}

// requireCategoryKind checks that categoryID exists and holds items of kind.
func requireCategoryKind(ctx context.Context, q queryer, categoryID int64, kind models.ItemKind) error {
	c, err := getCategory(ctx, q, categoryID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("category %d does not exist: %w", categoryID, ErrInvalidCategory)
	}
	if err != nil {
		return err
	}
	if c.Kind != kind {
		return fmt.Errorf("category %d holds %ss: %w", categoryID, c.Kind, ErrInvalidCategory)
	}
	return nil
}

// CreateBookmark appends a bookmark to the end of its category.
func (db *DB) CreateBookmark(ctx context.Context, in *models.BookmarkInput) (*models.Bookmark, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if err := requireCategoryKind(ctx, db.conn, in.CategoryID, models.KindBookmark); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO bookmarks (category_id, name, url, description, icon, sort_order,
			is_visible, requires_auth, open_in_new_tab, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM bookmarks WHERE category_id = ?),
			?, ?, ?, ?, ?)
		RETURNING id`,
		in.CategoryID, in.Name, in.URL, nullIfEmpty(in.Description), nullIfEmpty(in.Icon),
		in.CategoryID, models.BoolOr(in.IsVisible, true), in.RequiresAuth,
		models.BoolOr(in.OpenInNewTab, true), now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookmark: %w", err)
	}
	return getBookmark(ctx, db.conn, id)
}

// UpdateBookmark replaces a bookmark's editable fields. Moving a bookmark to
// another category appends it to the end of that category.
func (db *DB) UpdateBookmark(ctx context.Context, id int64, in *models.BookmarkInput) (*models.Bookmark, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	existing, err := getBookmark(ctx, db.conn, id)
	if err != nil {
		return nil, err
	}

	sortOrder := existing.SortOrder
	if in.CategoryID != existing.CategoryID {
		if err := requireCategoryKind(ctx, db.conn, in.CategoryID, models.KindBookmark); err != nil {
			return nil, err
		}
		if err := db.conn.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM bookmarks WHERE category_id = ?`,
			in.CategoryID).Scan(&sortOrder); err != nil {
			return nil, fmt.Errorf("failed to compute sort order: %w", err)
		}
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE bookmarks SET category_id = ?, name = ?, url = ?, description = ?, icon = ?,
			sort_order = ?, is_visible = ?, requires_auth = ?, open_in_new_tab = ?, updated_at = ?
		WHERE id = ?`,
		in.CategoryID, in.Name, in.URL, nullIfEmpty(in.Description), nullIfEmpty(in.Icon),
		sortOrder, models.BoolOr(in.IsVisible, existing.IsVisible), in.RequiresAuth,
		models.BoolOr(in.OpenInNewTab, existing.OpenInNewTab), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update bookmark %d: %w", id, err)
	}
	return getBookmark(ctx, db.conn, id)
}

// DeleteBookmark removes a bookmark.
func (db *DB) DeleteBookmark(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderBookmarks sets the display order within a category.
func (db *DB) ReorderBookmarks(ctx context.Context, categoryID int64, ids []int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return reorder(ctx, tx, "bookmarks", "category_id = ?", categoryID, ids)
	})
}
