// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/sdenike/fauxdash/internal/models"
)

// Search finds visible bookmarks and services whose name, URL or description
// contains q, case-insensitively. Items in hidden categories are excluded, as
// are auth-only items and categories unless includePrivate is set.
func (db *DB) Search(ctx context.Context, q string, includePrivate bool, limit int) ([]models.SearchResult, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	q = strings.TrimSpace(q)
	if q == "" {
		return []models.SearchResult{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	pattern := "%" + escapeLike(q) + "%"

	privacy := ""
	if !includePrivate {
		privacy = ` AND NOT private`
	}

	query := `
		SELECT kind, id, category_id, name, url, description, icon FROM (
			SELECT 'bookmark' AS kind, i.id, i.category_id, i.name, i.url,
				COALESCE(i.description, '') AS description, COALESCE(i.icon, '') AS icon,
				i.requires_auth OR c.requires_auth AS private, i.click_count
			FROM bookmarks i JOIN categories c ON c.id = i.category_id
			WHERE i.is_visible AND c.is_visible
			UNION ALL
			SELECT 'service' AS kind, i.id, i.category_id, i.name, i.url,
				COALESCE(i.description, '') AS description, COALESCE(i.icon, '') AS icon,
				i.requires_auth OR c.requires_auth AS private, i.click_count
			FROM services i JOIN categories c ON c.id = i.category_id
			WHERE i.is_visible AND c.is_visible
		) items
		WHERE (name ILIKE ? ESCAPE '\' OR url ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')` + privacy + `
		ORDER BY click_count DESC, name
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var r models.SearchResult
		var kind string
		if err := rows.Scan(&kind, &r.ID, &r.CategoryID, &r.Name, &r.URL, &r.Description, &r.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Kind = models.ItemKind(kind)
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
