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
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/sdenike/fauxdash/internal/config"
)

// mockDatabase stands in for DuckDB with a plain file.
type mockDatabase struct {
	path        string
	checkpoints int
	countErr    error
}

func (d *mockDatabase) Path() string { return d.path }

func (d *mockDatabase) Checkpoint(context.Context) error {
	d.checkpoints++
	return nil
}

func (d *mockDatabase) RecordCounts(context.Context) (map[string]int64, error) {
	if d.countErr != nil {
		return nil, d.countErr
	}
	return map[string]int64{"bookmarks": 12, "services": 3}, nil
}

type testEnv struct {
	dir        string
	dbPath     string
	faviconDir string
	db         *mockDatabase
	cfg        *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		dbPath:     filepath.Join(dir, "fauxdash.duckdb"),
		faviconDir: filepath.Join(dir, "favicons"),
	}
	env.db = &mockDatabase{path: env.dbPath}
	env.cfg = &config.Config{
		Data: config.DataConfig{Dir: dir},
		Backup: config.BackupConfig{
			Enabled:          true,
			Interval:         time.Hour,
			RetentionCount:   3,
			CompressionLevel: 6,
		},
	}

	writeFile(t, env.dbPath, "database v1")
	writeFile(t, filepath.Join(env.faviconDir, "a.png"), "icon a")
	writeFile(t, filepath.Join(env.faviconDir, "b.svg"), "<svg/>")
	return env
}

func (e *testEnv) manager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(e.cfg, e.db)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// archiveEntries lists entry names and contents of an archive.
func archiveEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)

	out := map[string]string{}
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		out[h.Name] = string(data)
	}
}

func TestCreateBackup(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	b, err := m.CreateBackup(context.Background(), TriggerManual, "first")
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if b.Status != StatusCompleted || b.Checksum == "" || b.FileSize == 0 {
		t.Errorf("backup = %+v", b)
	}
	if b.FaviconCount != 2 || b.RecordCounts["bookmarks"] != 12 {
		t.Errorf("favicons = %d, counts = %v", b.FaviconCount, b.RecordCounts)
	}
	if env.db.checkpoints != 1 {
		t.Errorf("checkpoints = %d, want 1", env.db.checkpoints)
	}

	path, _, err := m.ArchivePath(b.ID)
	if err != nil {
		t.Fatalf("ArchivePath() error = %v", err)
	}
	entries := archiveEntries(t, path)
	if entries[archiveDatabase] != "database v1" {
		t.Errorf("database entry = %q", entries[archiveDatabase])
	}
	if entries["favicons/a.png"] != "icon a" || entries["favicons/b.svg"] != "<svg/>" {
		t.Errorf("favicon entries missing: %v", keys(entries))
	}

	var meta Backup
	if err := json.Unmarshal([]byte(entries[archiveMetadata]), &meta); err != nil {
		t.Fatalf("metadata.json: %v", err)
	}
	if meta.ID != b.ID || len(meta.Files) != 3 {
		t.Errorf("metadata = %+v", meta)
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestCreateBackup_InMemoryDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.db.path = ":memory:"
	m := env.manager(t)

	b, err := m.CreateBackup(context.Background(), TriggerManual, "")
	if !errors.Is(err, ErrNoDatabaseFile) {
		t.Fatalf("error = %v, want ErrNoDatabaseFile", err)
	}
	if b.Status != StatusFailed {
		t.Errorf("Status = %s", b.Status)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), b.FileName)); !os.IsNotExist(err) {
		t.Error("failed archive left on disk")
	}
}

func TestCreateBackup_RecordCountErrorIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.db.countErr = errors.New("busy")
	if _, err := env.manager(t).CreateBackup(context.Background(), TriggerManual, ""); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
}

func TestCreateBackup_Busy(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	m.opMu.Lock()
	defer m.opMu.Unlock()
	if _, err := m.CreateBackup(context.Background(), TriggerManual, ""); !errors.Is(err, ErrBackupInProgress) {
		t.Errorf("error = %v, want ErrBackupInProgress", err)
	}
}

func TestListGetDelete(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	first, err := m.CreateBackup(context.Background(), TriggerManual, "")
	if err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Hour)
	second, err := m.CreateBackup(context.Background(), TriggerManual, "")
	if err != nil {
		t.Fatal(err)
	}

	list := m.ListBackups()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("ListBackups() not newest first: %v", list)
	}

	if _, err := m.GetBackup("nope"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("GetBackup(unknown) error = %v", err)
	}

	if err := m.DeleteBackup(first.ID); err != nil {
		t.Fatalf("DeleteBackup() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), first.FileName)); !os.IsNotExist(err) {
		t.Error("archive not deleted")
	}
	if err := m.DeleteBackup(first.ID); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("second delete error = %v", err)
	}

	// The index survives a reload.
	reloaded := env.manager(t)
	if got := reloaded.ListBackups(); len(got) != 1 || got[0].ID != second.ID {
		t.Errorf("reloaded index = %v", got)
	}
}

func TestNewManager_MarksInterrupted(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)
	m.saveBackup(&Backup{ID: "stuck", Status: StatusInProgress, FileName: "stuck.tar.gz"})

	reloaded := env.manager(t)
	b, err := reloaded.GetBackup("stuck")
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusFailed || b.Error != "interrupted" {
		t.Errorf("backup = %+v", b)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)
	b, err := m.CreateBackup(context.Background(), TriggerManual, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Verify(b.ID); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	f, err := os.OpenFile(filepath.Join(m.Dir(), b.FileName), os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("garbage")
	_ = f.Close()

	if _, err := m.Verify(b.ID); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Verify() error = %v, want ErrChecksumMismatch", err)
	}
}

func TestApplyRetention(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Backup.RetentionCount = 2
	m := env.manager(t)

	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	var ids []string
	for i := 0; i < 4; i++ {
		b, err := m.CreateBackup(context.Background(), TriggerScheduled, "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, b.ID)
		clock = clock.Add(time.Hour)
	}

	if deleted := m.ApplyRetention(); deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	list := m.ListBackups()
	if len(list) != 2 || list[0].ID != ids[3] || list[1].ID != ids[2] {
		t.Errorf("kept = %v", list)
	}
	for _, id := range ids[:2] {
		if _, err := m.GetBackup(id); !errors.Is(err, ErrBackupNotFound) {
			t.Errorf("backup %s still indexed", id)
		}
	}

	m.retentionCount = 0
	if deleted := m.ApplyRetention(); deleted != 0 {
		t.Errorf("retention disabled deleted %d", deleted)
	}
}

func TestNextScheduled(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if got := m.NextScheduled(); !got.Equal(now.Add(time.Minute)) {
		t.Errorf("empty index next = %v", got)
	}

	m.saveBackup(&Backup{ID: "a", Status: StatusCompleted, CreatedAt: now.Add(-20 * time.Minute)})
	if got := m.NextScheduled(); !got.Equal(now.Add(40 * time.Minute)) {
		t.Errorf("next = %v, want 40m from now", got)
	}

	m.saveBackup(&Backup{ID: "b", Status: StatusFailed, CreatedAt: now.Add(-time.Minute)})
	if got := m.NextScheduled(); !got.Equal(now.Add(40 * time.Minute)) {
		t.Errorf("failed backup moved schedule: %v", got)
	}
}

func TestRunWithContext_Disabled(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Backup.Enabled = false
	m := env.manager(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.RunWithContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunWithContext() = %v", err)
	}
	if len(m.ListBackups()) != 0 {
		t.Error("disabled scheduler created a backup")
	}
}

func TestRunScheduled(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	m.runScheduled(context.Background())

	list := m.ListBackups()
	if len(list) != 1 || list[0].Trigger != TriggerScheduled {
		t.Fatalf("backups = %v", list)
	}
	if m.index.LastScheduled == nil {
		t.Error("LastScheduled not recorded")
	}
}
