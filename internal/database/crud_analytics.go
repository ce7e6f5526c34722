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

// InsertClick stores a click event. Duplicate event IDs are ignored so
// redelivered messages do not double count.
func (db *DB) InsertClick(ctx context.Context, c *models.Click) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var inserted bool
	err := db.withRetry(ctx, func() error {
		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO clicks (id, item_kind, item_id, user_id, ip_address, user_agent,
				referrer, country, country_code, city, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			c.ID, string(c.ItemKind), c.ItemID, c.UserID, nullIfEmpty(c.IPAddress),
			nullIfEmpty(c.UserAgent), nullIfEmpty(c.Referrer), nullIfEmpty(c.Country),
			nullIfEmpty(c.CountryCode), nullIfEmpty(c.City), c.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert click: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// InsertPageview stores a pageview event. Duplicate event IDs are ignored.
func (db *DB) InsertPageview(ctx context.Context, p *models.Pageview) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO pageviews (id, path, user_id, ip_address, user_agent, referrer,
				country, country_code, city, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Path, p.UserID, nullIfEmpty(p.IPAddress), nullIfEmpty(p.UserAgent),
			nullIfEmpty(p.Referrer), nullIfEmpty(p.Country), nullIfEmpty(p.CountryCode),
			nullIfEmpty(p.City), p.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert pageview: %w", err)
		}
		return nil
	})
}

// AnalyticsSummary aggregates click and pageview totals since a point in time.
func (db *DB) AnalyticsSummary(ctx context.Context, since time.Time) (*models.AnalyticsSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	s := &models.AnalyticsSummary{Since: since.UTC()}
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE item_kind = 'bookmark'),
			COUNT(*) FILTER (WHERE item_kind = 'service')
		FROM clicks WHERE created_at >= ?`, since.UTC(),
	).Scan(&s.TotalClicks, &s.BookmarkClicks, &s.ServiceClicks)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize clicks: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pageviews WHERE created_at >= ?`, since.UTC(),
	).Scan(&s.TotalPageviews)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize pageviews: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT ip_address), COUNT(DISTINCT country_code) FROM (
			SELECT ip_address, country_code FROM clicks WHERE created_at >= ?
			UNION ALL
			SELECT ip_address, country_code FROM pageviews WHERE created_at >= ?
		) visits`, since.UTC(), since.UTC(),
	).Scan(&s.UniqueVisitors, &s.Countries)
	if err != nil {
		return nil, fmt.Errorf("failed to count visitors: %w", err)
	}
	return s, nil
}

// TopItems returns the most clicked items since a point in time. An empty
// kind covers both bookmarks and services. Deleted items are skipped.
func (db *DB) TopItems(ctx context.Context, kind models.ItemKind, since time.Time, limit int) ([]models.TopItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	filter := `created_at >= ?`
	args := []any{since.UTC()}
	if kind != "" {
		filter += ` AND item_kind = ?`
		args = append(args, string(kind))
	}
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, `
		WITH counts AS (
			SELECT item_kind, item_id, COUNT(*) AS clicks
			FROM clicks
			WHERE `+filter+`
			GROUP BY item_kind, item_id
		), items AS (
			SELECT 'bookmark' AS kind, id, name, url FROM bookmarks
			UNION ALL
			SELECT 'service' AS kind, id, name, url FROM services
		)
		SELECT c.item_kind, c.item_id, i.name, i.url, c.clicks
		FROM counts c JOIN items i ON i.kind = c.item_kind AND i.id = c.item_id
		ORDER BY c.clicks DESC, i.name
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}
	defer rows.Close()

	items := []models.TopItem{}
	for rows.Next() {
		var t models.TopItem
		var k string
		if err := rows.Scan(&k, &t.ID, &t.Name, &t.URL, &t.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan top item: %w", err)
		}
		t.Kind = models.ItemKind(k)
		items = append(items, t)
	}
	return items, rows.Err()
}

// ClicksByDay returns one row per UTC day since a point in time, including
// days without activity.
func (db *DB) ClicksByDay(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := since.UTC().Truncate(24 * time.Hour)
	end := time.Now().UTC().Truncate(24 * time.Hour)

	rows, err := db.conn.QueryContext(ctx, `
		WITH days AS (
			SELECT CAST(d AS DATE) AS day
			FROM generate_series(CAST(? AS TIMESTAMP), CAST(? AS TIMESTAMP), INTERVAL 1 DAY) t(d)
		), c AS (
			SELECT CAST(created_at AS DATE) AS day, COUNT(*) AS n
			FROM clicks WHERE created_at >= ? GROUP BY 1
		), p AS (
			SELECT CAST(created_at AS DATE) AS day, COUNT(*) AS n
			FROM pageviews WHERE created_at >= ? GROUP BY 1
		)
		SELECT strftime(days.day, '%Y-%m-%d'), COALESCE(c.n, 0), COALESCE(p.n, 0)
		FROM days
		LEFT JOIN c ON c.day = days.day
		LEFT JOIN p ON p.day = days.day
		ORDER BY days.day`, start, end, start, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	days := []models.DailyCount{}
	for rows.Next() {
		var d models.DailyCount
		if err := rows.Scan(&d.Date, &d.Clicks, &d.Pageviews); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// VisitsByCountry counts clicks and pageviews per country since a point in
// time. Events without a country are grouped as "Unknown".
func (db *DB) VisitsByCountry(ctx context.Context, since time.Time, limit int) ([]models.CountryCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT COALESCE(country, 'Unknown'), COALESCE(country_code, ''), COUNT(*) AS n
		FROM (
			SELECT country, country_code FROM clicks WHERE created_at >= ?
			UNION ALL
			SELECT country, country_code FROM pageviews WHERE created_at >= ?
		) visits
		GROUP BY 1, 2
		ORDER BY n DESC, 1
		LIMIT ?`, since.UTC(), since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := []models.CountryCount{}
	for rows.Next() {
		var c models.CountryCount
		if err := rows.Scan(&c.Country, &c.CountryCode, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan country count: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// ClicksByHour returns 24 rows, one per UTC hour of day.
func (db *DB) ClicksByHour(ctx context.Context, since time.Time) ([]models.HourlyCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT CAST(hour(created_at) AS INTEGER), COUNT(*)
		FROM clicks WHERE created_at >= ?
		GROUP BY 1`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly counts: %w", err)
	}
	defer rows.Close()

	hours := make([]models.HourlyCount, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for rows.Next() {
		var h int
		var n int64
		if err := rows.Scan(&h, &n); err != nil {
			return nil, fmt.Errorf("failed to scan hourly count: %w", err)
		}
		if h >= 0 && h < 24 {
			hours[h].Clicks = n
		}
	}
	return hours, rows.Err()
}

// RecentClicks returns the latest clicks with the current item names.
func (db *DB) RecentClicks(ctx context.Context, limit int) ([]models.RecentClick, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.item_kind, c.item_id, c.user_id, COALESCE(c.user_agent, ''),
			COALESCE(c.referrer, ''), COALESCE(c.country, ''), COALESCE(c.country_code, ''),
			COALESCE(c.city, ''), c.created_at, COALESCE(b.name, s.name, '')
		FROM clicks c
		LEFT JOIN bookmarks b ON c.item_kind = 'bookmark' AND b.id = c.item_id
		LEFT JOIN services s ON c.item_kind = 'service' AND s.id = c.item_id
		ORDER BY c.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent clicks: %w", err)
	}
	defer rows.Close()

	clicks := []models.RecentClick{}
	for rows.Next() {
		var rc models.RecentClick
		var kind string
		var userID sql.NullInt64
		if err := rows.Scan(&rc.ID, &kind, &rc.ItemID, &userID, &rc.UserAgent, &rc.Referrer,
			&rc.Country, &rc.CountryCode, &rc.City, &rc.CreatedAt, &rc.ItemName); err != nil {
			return nil, fmt.Errorf("failed to scan recent click: %w", err)
		}
		rc.ItemKind = models.ItemKind(kind)
		if userID.Valid {
			id := userID.Int64
			rc.UserID = &id
		}
		clicks = append(clicks, rc)
	}
	return clicks, rows.Err()
}

// PruneAnalytics deletes clicks and pageviews older than before and returns
// the number of rows removed.
func (db *DB) PruneAnalytics(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"clicks", "pageviews"} {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE created_at < ?`, before.UTC())
			if err != nil {
				return fmt.Errorf("failed to prune %s: %w", table, err)
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	return total, err
}
