// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
)

// AppVersion is recorded in every backup; set at build time.
var AppVersion = "dev"

// Database is the subset of the store a backup needs.
type Database interface {
	Path() string
	Checkpoint(ctx context.Context) error
	RecordCounts(ctx context.Context) (map[string]int64, error)
}

// Manager handles backup and restore operations.
type Manager struct {
	dir        string
	faviconDir string
	db         Database

	enabled          bool
	interval         time.Duration
	retentionCount   int
	compressionLevel int

	// Serializes create and restore.
	opMu sync.Mutex

	indexFile string
	index     *index
	indexMu   sync.RWMutex

	now func() time.Time
}

// NewManager creates the backup directory and loads the index. Backups
// left in progress by a previous run are marked failed.
func NewManager(cfg *config.Config, db Database) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backup configuration is required")
	}

	dir := cfg.BackupPath()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}

	level := cfg.Backup.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	m := &Manager{
		dir:              dir,
		faviconDir:       cfg.FaviconPath(),
		db:               db,
		enabled:          cfg.Backup.Enabled,
		interval:         cfg.Backup.Interval,
		retentionCount:   cfg.Backup.RetentionCount,
		compressionLevel: level,
		indexFile:        filepath.Join(dir, indexFileName),
		now:              time.Now,
	}
	if m.interval <= 0 {
		m.interval = 24 * time.Hour
	}

	if err := m.loadIndex(); err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("file", m.indexFile).Msg("Backup index unreadable, starting empty")
		}
		m.index = &index{Backups: make([]*Backup, 0)}
	}
	m.markInterrupted()

	return m, nil
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CreateBackup writes a new archive. A failed attempt is recorded in the
// index and returned together with the error.
func (m *Manager) CreateBackup(ctx context.Context, trigger Trigger, notes string) (*Backup, error) {
	if !m.opMu.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer m.opMu.Unlock()

	return m.createLocked(ctx, trigger, notes)
}

func (m *Manager) createLocked(ctx context.Context, trigger Trigger, notes string) (*Backup, error) {
	start := m.now()
	id := uuid.New().String()
	b := &Backup{
		ID:         id,
		Status:     StatusInProgress,
		Trigger:    trigger,
		CreatedAt:  start.UTC(),
		FileName:   fmt.Sprintf("fauxdash-backup-%s-%s.tar.gz", start.UTC().Format("20060102-150405"), id[:8]),
		AppVersion: AppVersion,
		Notes:      notes,
		Files:      make([]File, 0),
	}
	m.saveBackup(b)

	err := m.writeArchive(ctx, b)
	if err == nil {
		b.Checksum, err = fileChecksum(m.archivePath(b))
	}
	if err == nil {
		b.FileSize = getFileSize(m.archivePath(b))
	}

	completed := m.now().UTC()
	b.CompletedAt = &completed
	b.DurationMs = completed.Sub(start).Milliseconds()

	if err != nil {
		_ = os.Remove(m.archivePath(b))
		b.Status = StatusFailed
		b.Error = err.Error()
		m.saveBackup(b)
		metrics.RecordBackup("create", completed.Sub(start), 0, err)
		logging.Error().Err(err).Str("backup_id", b.ID).Str("trigger", string(trigger)).Msg("Backup failed")
		return b, err
	}

	b.Status = StatusCompleted
	m.saveBackup(b)
	metrics.RecordBackup("create", completed.Sub(start), b.FileSize, nil)

	logging.Info().
		Str("backup_id", b.ID).
		Str("trigger", string(trigger)).
		Str("file", b.FileName).
		Int64("size_bytes", b.FileSize).
		Int("favicons", b.FaviconCount).
		Msg("Backup completed")
	return b, nil
}

// ListBackups returns all backups, newest first.
func (m *Manager) ListBackups() []*Backup {
	m.indexMu.RLock()
	defer m.indexMu.RUnlock()

	out := make([]*Backup, len(m.index.Backups))
	copy(out, m.index.Backups)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetBackup returns a backup by ID.
func (m *Manager) GetBackup(id string) (*Backup, error) {
	m.indexMu.RLock()
	defer m.indexMu.RUnlock()

	if b, _ := m.findLocked(id); b != nil {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
}

// ArchivePath returns the archive file of a completed backup for download.
func (m *Manager) ArchivePath(id string) (string, *Backup, error) {
	b, err := m.GetBackup(id)
	if err != nil {
		return "", nil, err
	}
	if b.Status != StatusCompleted {
		return "", nil, fmt.Errorf("%w: status is %s", ErrNotRestorable, b.Status)
	}
	path := m.archivePath(b)
	if !fileExists(path) {
		return "", nil, fmt.Errorf("%w: archive file missing", ErrBackupNotFound)
	}
	return path, b, nil
}

// DeleteBackup removes a backup and its archive.
func (m *Manager) DeleteBackup(id string) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	b, idx := m.findLocked(id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	if b.Status == StatusInProgress {
		return ErrBackupInProgress
	}
	if err := m.removeArchive(b); err != nil {
		return err
	}

	m.index.Backups = append(m.index.Backups[:idx], m.index.Backups[idx+1:]...)
	return m.saveIndexLocked()
}

func (m *Manager) removeArchive(b *Backup) error {
	path := m.archivePath(b)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	return nil
}

func (m *Manager) archivePath(b *Backup) string {
	return filepath.Join(m.dir, filepath.Base(b.FileName))
}

func (m *Manager) findLocked(id string) (*Backup, int) {
	for i, b := range m.index.Backups {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

// saveBackup inserts or replaces a copy of b in the index. Stored records
// are never mutated in place.
func (m *Manager) saveBackup(b *Backup) {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	stored := *b
	stored.Files = append(make([]File, 0, len(b.Files)), b.Files...)
	if _, idx := m.findLocked(b.ID); idx >= 0 {
		m.index.Backups[idx] = &stored
	} else {
		m.index.Backups = append(m.index.Backups, &stored)
	}

	if err := m.saveIndexLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to save backup index")
	}
}

func (m *Manager) markInterrupted() {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	changed := false
	for _, b := range m.index.Backups {
		if b.Status == StatusInProgress {
			b.Status = StatusFailed
			b.Error = "interrupted"
			_ = m.removeArchive(b)
			changed = true
		}
	}
	if changed {
		if err := m.saveIndexLocked(); err != nil {
			logging.Warn().Err(err).Msg("Failed to save backup index")
		}
	}
}

func (m *Manager) loadIndex() error {
	data, err := os.ReadFile(m.indexFile)
	if err != nil {
		return err
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx.Backups == nil {
		idx.Backups = make([]*Backup, 0)
	}
	m.index = &idx
	return nil
}

// saveIndexLocked writes the index atomically. Callers hold indexMu.
func (m *Manager) saveIndexLocked() error {
	data, err := json.MarshalIndent(m.index, "", "  ")
	if err != nil {
		return err
	}

	tmp := m.indexFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, m.indexFile)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getFileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
