// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package backup creates, lists and restores FauxDash backups.
//
// # Archive Layout
//
// Every backup is a single gzip-compressed tar file:
//
//	fauxdash-backup-{timestamp}-{id}.tar.gz
//	├── database/
//	│   ├── fauxdash.duckdb       (checkpointed database file)
//	│   └── fauxdash.duckdb.wal   (only if present after the checkpoint)
//	├── favicons/
//	│   └── *.png, *.svg          (cached and uploaded icons)
//	└── metadata.json             (the Backup record, file checksums)
//
// The backup directory also holds index.json, the list of all known backups
// with their status, size and SHA-256 checksum.
//
// # Restore
//
// A DuckDB file cannot be swapped underneath an open connection, so Restore
// verifies the archive, takes a pre-restore safety backup, replaces the
// favicon directory and stages the database next to the live file as
// "<path>.restore". ApplyPendingRestore moves the staged file into place and
// must run before the database is opened, which the serve command does on
// startup.
//
// # Retention
//
// After every scheduled backup the newest RetentionCount completed backups
// are kept and the rest are deleted together with their archive files.
//
// # Usage
//
//	m, err := backup.NewManager(cfg, db)
//	if err != nil {
//		return err
//	}
//	b, err := m.CreateBackup(ctx, backup.TriggerManual, "before upgrade")
package backup
