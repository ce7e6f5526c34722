// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates sequences and tables. Referential integrity between
// categories and items is enforced in Go because DuckDB foreign keys do not
// support ON DELETE CASCADE.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("schema statement failed: %w\n%s", err, query)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("index statement failed: %w\n%s", err, query)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_users START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_categories START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_bookmarks START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_services START 1`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
		username VARCHAR NOT NULL UNIQUE,
		email VARCHAR,
		password_hash VARCHAR,
		role VARCHAR NOT NULL DEFAULT 'user',
		provider VARCHAR NOT NULL DEFAULT 'local',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_login_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_categories'),
		kind VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		icon VARCHAR,
		sort_order INTEGER NOT NULL DEFAULT 0,
		column_count INTEGER NOT NULL DEFAULT 1,
		is_visible BOOLEAN NOT NULL DEFAULT TRUE,
		requires_auth BOOLEAN NOT NULL DEFAULT FALSE,
		collapsed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS bookmarks (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_bookmarks'),
		category_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		url VARCHAR NOT NULL,
		description VARCHAR,
		icon VARCHAR,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_visible BOOLEAN NOT NULL DEFAULT TRUE,
		requires_auth BOOLEAN NOT NULL DEFAULT FALSE,
		open_in_new_tab BOOLEAN NOT NULL DEFAULT TRUE,
		click_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS services (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_services'),
		category_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		url VARCHAR NOT NULL,
		description VARCHAR,
		icon VARCHAR,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_visible BOOLEAN NOT NULL DEFAULT TRUE,
		requires_auth BOOLEAN NOT NULL DEFAULT FALSE,
		open_in_new_tab BOOLEAN NOT NULL DEFAULT TRUE,
		health_check_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		health_check_url VARCHAR,
		health_check_interval_sec INTEGER NOT NULL DEFAULT 60,
		health_status VARCHAR NOT NULL DEFAULT 'unknown',
		last_checked_at TIMESTAMP,
		last_response_ms BIGINT NOT NULL DEFAULT 0,
		click_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		user_id BIGINT NOT NULL,
		setting_key VARCHAR NOT NULL,
		setting_value VARCHAR NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, setting_key)
	)`,

	`CREATE TABLE IF NOT EXISTS clicks (
		id VARCHAR PRIMARY KEY,
		item_kind VARCHAR NOT NULL,
		item_id BIGINT NOT NULL,
		user_id BIGINT,
		ip_address VARCHAR,
		user_agent VARCHAR,
		referrer VARCHAR,
		country VARCHAR,
		country_code VARCHAR,
		city VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS pageviews (
		id VARCHAR PRIMARY KEY,
		path VARCHAR NOT NULL,
		user_id BIGINT,
		ip_address VARCHAR,
		user_agent VARCHAR,
		referrer VARCHAR,
		country VARCHAR,
		country_code VARCHAR,
		city VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS geolocations (
		ip_address VARCHAR PRIMARY KEY,
		country VARCHAR NOT NULL,
		country_code VARCHAR,
		region VARCHAR,
		city VARCHAR,
		latitude DOUBLE NOT NULL DEFAULT 0,
		longitude DOUBLE NOT NULL DEFAULT 0,
		timezone VARCHAR,
		isp VARCHAR,
		provider VARCHAR,
		last_updated TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS favicons (
		host VARCHAR PRIMARY KEY,
		file_name VARCHAR NOT NULL,
		source VARCHAR NOT NULL,
		content_type VARCHAR NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	)`,
}

var indexQueries = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_kind_name ON categories(kind, name)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_created ON clicks(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_item ON clicks(item_kind, item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pageviews_created ON pageviews(created_at)`,
}
