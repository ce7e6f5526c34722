// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO calls
// from many in-memory databases can hang under CI resource pressure, so the
// slot is held for the whole test and released by t.Cleanup.
var testDBSemaphore = make(chan struct{}, 1)

var testDBMutex sync.Mutex

// setupTestDB creates an in-memory database, failing the test if creation
// takes longer than two minutes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() { _ = res.db.Close() })
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

func boolPtr(b bool) *bool { return &b }

func mustCategory(t *testing.T, db *DB, kind models.ItemKind, name string) *models.Category {
	t.Helper()
	c, err := db.CreateCategory(context.Background(), &models.CategoryInput{Kind: kind, Name: name})
	if err != nil {
		t.Fatalf("CreateCategory(%s) failed: %v", name, err)
	}
	return c
}

func mustBookmark(t *testing.T, db *DB, categoryID int64, name, url string) *models.Bookmark {
	t.Helper()
	b, err := db.CreateBookmark(context.Background(), &models.BookmarkInput{
		CategoryID: categoryID, Name: name, URL: url,
	})
	if err != nil {
		t.Fatalf("CreateBookmark(%s) failed: %v", name, err)
	}
	return b
}

func TestNew_FileDatabase(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "fauxdash.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	// Reopening runs the idempotent schema statements against existing tables.
	db, err = New(&config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = db.Close()
}

func TestRecordCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateCategory(ctx, &models.CategoryInput{Kind: models.KindBookmark, Name: "Dev"}); err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}

	counts, err := db.RecordCounts(ctx)
	if err != nil {
		t.Fatalf("RecordCounts() failed: %v", err)
	}
	if counts["categories"] != 1 || counts["bookmarks"] != 0 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts["pageviews"]; !ok {
		t.Error("pageviews not counted")
	}
}

func TestConnectionString(t *testing.T) {
	got := connectionString(&config.DatabaseConfig{Path: "/data/x.duckdb"}, 4)
	want := "/data/x.duckdb?access_mode=read_write&threads=4&max_memory=512MB"
	if got != want {
		t.Errorf("connectionString() = %q, want %q", got, want)
	}
}

func TestMergeOrder(t *testing.T) {
	tests := []struct {
		name      string
		current   []int64
		requested []int64
		want      []int64
		wantErr   bool
	}{
		{name: "full reorder", current: []int64{1, 2, 3}, requested: []int64{3, 1, 2}, want: []int64{3, 1, 2}},
		{name: "partial keeps remainder order", current: []int64{1, 2, 3, 4}, requested: []int64{4}, want: []int64{4, 1, 2, 3}},
		{name: "unknown id", current: []int64{1, 2}, requested: []int64{9}, wantErr: true},
		{name: "duplicate id", current: []int64{1, 2}, requested: []int64{2, 2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeOrder(tt.current, tt.requested)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidReorder) {
					t.Fatalf("mergeOrder() error = %v, want ErrInvalidReorder", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("mergeOrder() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("mergeOrder() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("mergeOrder() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike() = %q", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Constraint Error: Duplicate key \"name: x\" violates unique constraint"), true},
		{errors.New("violates primary key constraint"), true},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
