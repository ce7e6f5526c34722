// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package database is the DuckDB-backed store for dashboard content, users,
// settings, analytics events and lookup caches.
//
// # Architecture
//
// The package is organized by table family:
//
// Core:
//   - database.go: connection setup, per-call timeouts, transactions, retry
//     on conflicts and checkpoint-on-close
//   - database_schema.go: sequences, tables and indexes, created idempotently
//   - errors.go: sentinel errors and driver error classification
//
// Dashboard content:
//   - crud_categories.go: categories with ordering and cascade delete
//   - crud_bookmarks.go, crud_services.go: items, reorder, click counters and
//     service health state
//   - crud_search.go: case-insensitive search across both item kinds
//   - transfer.go: bulk export and transactional import for CSV transfer
//
// Accounts and preferences:
//   - crud_users.go: local and OIDC users, case-insensitive usernames and the
//     last-administrator guard
//   - crud_settings.go: global settings with per-user overrides
//
// Analytics and caches:
//   - crud_analytics.go: click and pageview events, aggregates and pruning
//   - crud_geolocation.go: second-tier cache for GeoIP lookups
//   - crud_favicons.go: records of fetched and uploaded favicons
//
// # Concurrency
//
// DuckDB allows a single writer process and resolves conflicting
// transactions optimistically. Read-modify-write sequences such as sort
// order assignment, username checks and last-admin checks hold DB.writeMu
// so concurrent requests in this process do not abort each other. Single
// statement updates that can race with the analytics pipeline, such as
// click counters, go through withRetry instead.
//
// # Errors
//
// Lookups return ErrNotFound for missing rows. Uniqueness and invariant
// violations return ErrConflict, ErrLastAdmin, ErrInvalidCategory or
// ErrInvalidReorder, all matchable with errors.Is.
package database
