// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/sdenike/fauxdash/internal/logging"
)

// archiveWriters holds the file, gzip and tar writers of an archive.
type archiveWriters struct {
	tarWriter *tar.Writer
	closers   []io.Closer
}

// Close closes all writers in reverse order, returning the first error.
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) setupArchiveWriters(path string) (*archiveWriters, error) {
	outFile, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // path is built from the backup dir
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	gzWriter, err := gzip.NewWriterLevel(outFile, m.compressionLevel)
	if err != nil {
		_ = outFile.Close()
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	tw := tar.NewWriter(gzWriter)
	return &archiveWriters{
		tarWriter: tw,
		closers:   []io.Closer{outFile, gzWriter, tw},
	}, nil
}

// writeArchive checkpoints the database and writes the archive for b.
func (m *Manager) writeArchive(ctx context.Context, b *Backup) (err error) {
	if m.db == nil {
		return fmt.Errorf("database connection not available")
	}
	dbPath := m.db.Path()
	if dbPath == "" || dbPath == ":memory:" {
		return ErrNoDatabaseFile
	}

	if err := m.db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint failed, backup may miss recent writes")
	}
	if counts, err := m.db.RecordCounts(ctx); err == nil {
		b.RecordCounts = counts
	} else {
		logging.Warn().Err(err).Msg("Failed to count records for backup")
	}

	aw, err := m.setupArchiveWriters(m.archivePath(b))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := aw.Close(); err == nil {
			err = closeErr
		}
	}()

	if err := addFileToArchive(aw.tarWriter, dbPath, archiveDatabase, b); err != nil {
		return fmt.Errorf("failed to add database file: %w", err)
	}
	if walPath := dbPath + ".wal"; fileExists(walPath) {
		if err := addFileToArchive(aw.tarWriter, walPath, archiveWAL, b); err != nil {
			return fmt.Errorf("failed to add WAL file: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.addFavicons(aw.tarWriter, b); err != nil {
		return err
	}

	return addMetadataToArchive(aw.tarWriter, b)
}

// addFavicons adds every regular file in the favicon directory.
func (m *Manager) addFavicons(tw *tar.Writer, b *Backup) error {
	entries, err := os.ReadDir(m.faviconDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read favicon directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		src := filepath.Join(m.faviconDir, name)
		if err := addFileToArchive(tw, src, archiveFavicons+name, b); err != nil {
			return fmt.Errorf("failed to add favicon %s: %w", name, err)
		}
		b.FaviconCount++
	}
	return nil
}

func addMetadataToArchive(tw *tar.Writer, b *Backup) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}

	header := &tar.Header{
		Name:    archiveMetadata,
		Size:    int64(len(data)),
		Mode:    0o640,
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write metadata header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// addFileToArchive copies src into the archive as dest and records its
// checksum in b.
func addFileToArchive(tw *tar.Writer, src, dest string, b *Backup) error {
	file, err := os.Open(src) //nolint:gosec // src comes from the database path or favicon dir
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", src, err)
	}
	header.Name = dest

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", src, err)
	}

	hasher := sha256.New()
	// Copy exactly the stat'ed size so a file growing mid-copy cannot
	// overrun the tar header.
	if _, err := io.CopyN(io.MultiWriter(tw, hasher), file, info.Size()); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", src, err)
	}

	b.Files = append(b.Files, File{
		Path:     dest,
		Size:     info.Size(),
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	})
	return nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // path is inside the backup dir
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck // read-only

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
