// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package backup

import (
	"errors"
	"time"
)

// Archive entry names.
const (
	archiveDatabase = "database/fauxdash.duckdb"
	archiveWAL      = "database/fauxdash.duckdb.wal"
	archiveFavicons = "favicons/"
	archiveMetadata = "metadata.json"
	indexFileName   = "index.json"
	pendingSuffix   = ".restore"
)

var (
	// ErrBackupNotFound is returned for an unknown backup ID.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrBackupInProgress is returned when a create or restore is already
	// running.
	ErrBackupInProgress = errors.New("another backup operation is in progress")
	// ErrChecksumMismatch is returned when an archive or one of its files no
	// longer matches the recorded checksum.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")
	// ErrNotRestorable is returned for failed backups or archives without a
	// database file.
	ErrNotRestorable = errors.New("backup cannot be restored")
	// ErrNoDatabaseFile is returned when the database runs in memory.
	ErrNoDatabaseFile = errors.New("in-memory database cannot be backed up")
)

// Status is the state of a backup.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Trigger records why a backup was taken.
type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerScheduled  Trigger = "scheduled"
	TriggerPreRestore Trigger = "pre_restore"
)

// Backup describes one archive.
type Backup struct {
	ID           string           `json:"id"`
	Status       Status           `json:"status"`
	Trigger      Trigger          `json:"trigger"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	DurationMs   int64            `json:"duration_ms"`
	FileName     string           `json:"file_name"`
	FileSize     int64            `json:"file_size"`
	Checksum     string           `json:"checksum,omitempty"`
	AppVersion   string           `json:"app_version"`
	RecordCounts map[string]int64 `json:"record_counts,omitempty"`
	FaviconCount int              `json:"favicon_count"`
	Files        []File           `json:"files"`
	Notes        string           `json:"notes,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// File is one entry in an archive.
type File struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// RestoreResult reports what a restore did.
type RestoreResult struct {
	BackupID           string   `json:"backup_id"`
	PreRestoreBackupID string   `json:"pre_restore_backup_id,omitempty"`
	DatabaseStaged     bool     `json:"database_staged"`
	FaviconsRestored   int      `json:"favicons_restored"`
	RestartRequired    bool     `json:"restart_required"`
	DurationMs         int64    `json:"duration_ms"`
	Warnings           []string `json:"warnings,omitempty"`
}

// index is the on-disk list of backups.
type index struct {
	Backups       []*Backup  `json:"backups"`
	LastScheduled *time.Time `json:"last_scheduled,omitempty"`
}
