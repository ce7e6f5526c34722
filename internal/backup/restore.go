// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
)

// maxExtractSize bounds a single extracted file.
const maxExtractSize = 4 << 30

// Verify checks the archive checksum of a completed backup.
func (m *Manager) Verify(id string) (*Backup, error) {
	path, b, err := m.ArchivePath(id)
	if err != nil {
		return nil, err
	}
	actual, err := fileChecksum(path)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum archive: %w", err)
	}
	if actual != b.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, b.Checksum, actual)
	}
	return b, nil
}

// Restore verifies a backup, takes a pre-restore safety backup, replaces
// the favicon directory and stages the database for ApplyPendingRestore.
func (m *Manager) Restore(ctx context.Context, id string) (result *RestoreResult, err error) {
	if !m.opMu.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer m.opMu.Unlock()

	start := m.now()
	defer func() {
		metrics.RecordBackup("restore", m.now().Sub(start), 0, err)
	}()

	b, err := m.Verify(id)
	if err != nil {
		return nil, err
	}
	if !hasFile(b, archiveDatabase) {
		return nil, fmt.Errorf("%w: archive has no database", ErrNotRestorable)
	}

	result = &RestoreResult{BackupID: id}

	// Extract next to the backups so the final moves stay on one filesystem.
	tempDir, err := os.MkdirTemp(m.dir, ".restore-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir) //nolint:errcheck // best effort

	if err := extractArchive(m.archivePath(b), tempDir); err != nil {
		return nil, err
	}
	if err := verifyExtracted(tempDir, b); err != nil {
		return nil, err
	}

	pre, err := m.createLocked(ctx, TriggerPreRestore, "Safety backup before restoring "+id)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("pre-restore backup failed: %v", err))
	} else {
		result.PreRestoreBackupID = pre.ID
	}

	n, err := m.replaceFavicons(filepath.Join(tempDir, strings.TrimSuffix(archiveFavicons, "/")))
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("favicons not restored: %v", err))
	}
	result.FaviconsRestored = n

	if err := stageDatabase(tempDir, m.db.Path()); err != nil {
		return nil, err
	}
	result.DatabaseStaged = true
	result.RestartRequired = true
	result.DurationMs = m.now().Sub(start).Milliseconds()

	logging.Info().
		Str("backup_id", id).
		Str("pre_restore_backup_id", result.PreRestoreBackupID).
		Int("favicons", n).
		Msg("Backup restored, restart to load the database")
	return result, nil
}

// ApplyPendingRestore moves a staged database into place. It must run
// before the database is opened and reports whether a restore was applied.
func ApplyPendingRestore(dbPath string) (bool, error) {
	staged := dbPath + pendingSuffix
	if !fileExists(staged) {
		return false, nil
	}

	walPath := dbPath + ".wal"
	if err := os.Remove(walPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove WAL file: %w", err)
	}
	if err := os.Rename(staged, dbPath); err != nil {
		return false, fmt.Errorf("failed to move restored database into place: %w", err)
	}
	if fileExists(staged + ".wal") {
		if err := os.Rename(staged+".wal", walPath); err != nil {
			return true, fmt.Errorf("failed to move restored WAL into place: %w", err)
		}
	}

	logging.Info().Str("path", dbPath).Msg("Applied pending database restore")
	return true, nil
}

func hasFile(b *Backup, path string) bool {
	for _, f := range b.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

func extractArchive(archivePath, destDir string) error {
	file, err := os.Open(archivePath) //nolint:gosec // archive lives in the backup dir
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		destPath, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", header.Name, err)
		}
		if err := extractFile(tr, destPath, header.Size); err != nil {
			return fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}
	}
}

// safeJoin rejects archive names that would escape dir.
func safeJoin(dir, name string) (string, error) {
	dest := filepath.Join(dir, name)
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return dest, nil
}

func extractFile(r io.Reader, destPath string, size int64) error {
	if size > maxExtractSize {
		return fmt.Errorf("file too large: %d bytes", size)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640) //nolint:gosec // validated by safeJoin
	if err != nil {
		return err
	}
	_, err = io.Copy(out, io.LimitReader(r, size))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
	}
	return err
}

// verifyExtracted compares every extracted file with its recorded checksum.
func verifyExtracted(dir string, b *Backup) error {
	for _, f := range b.Files {
		path, err := safeJoin(dir, f.Path)
		if err != nil {
			return err
		}
		sum, err := fileChecksum(path)
		if err != nil {
			return fmt.Errorf("%w: %s missing from archive", ErrChecksumMismatch, f.Path)
		}
		if sum != f.Checksum {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, f.Path)
		}
	}
	return nil
}

// replaceFavicons swaps the favicon directory for the extracted one and
// returns the number of restored files.
func (m *Manager) replaceFavicons(extracted string) (int, error) {
	entries, err := os.ReadDir(extracted)
	if os.IsNotExist(err) {
		entries = nil
		if err := os.MkdirAll(extracted, 0o750); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	old := fmt.Sprintf("%s.old-%d", m.faviconDir, time.Now().UnixNano())
	if fileExists(m.faviconDir) {
		if err := os.Rename(m.faviconDir, old); err != nil {
			return 0, fmt.Errorf("failed to move current favicons aside: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(m.faviconDir), 0o750); err != nil {
		return 0, err
	}

	if err := moveOrCopyDir(extracted, m.faviconDir); err != nil {
		if fileExists(old) {
			_ = os.RemoveAll(m.faviconDir)
			_ = os.Rename(old, m.faviconDir)
		}
		return 0, err
	}
	_ = os.RemoveAll(old)
	return len(entries), nil
}

// stageDatabase copies the extracted database to "<dbPath>.restore".
func stageDatabase(dir, dbPath string) error {
	staged := dbPath + pendingSuffix
	_ = os.Remove(staged + ".wal")

	if err := moveOrCopyFile(filepath.Join(dir, archiveDatabase), staged); err != nil {
		return fmt.Errorf("failed to stage database: %w", err)
	}
	if wal := filepath.Join(dir, archiveWAL); fileExists(wal) {
		if err := moveOrCopyFile(wal, staged+".wal"); err != nil {
			_ = os.Remove(staged)
			return fmt.Errorf("failed to stage WAL: %w", err)
		}
	}
	return nil
}

// moveOrCopyDir renames src to dst, copying file by file when they are on
// different filesystems.
func moveOrCopyDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := moveOrCopyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func moveOrCopyFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) //nolint:gosec // extracted temp file
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read-only

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640) //nolint:gosec // destination derived from config
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
