// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/backup"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/transfer"
)

func TestResponseWriterSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(logging.ContextWithRequestID(r.Context(), "req-123"))

	NewResponseWriter(rec, r).List([]string{"a", "b"}, 2)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}

	var data []string
	resp := decodeResponse(t, rec, &data)
	if !resp.Success || len(data) != 2 {
		t.Errorf("response = %+v, data = %v", resp, data)
	}
	if resp.Meta == nil || resp.Meta.RequestID != "req-123" {
		t.Errorf("meta = %+v", resp.Meta)
	}
	if resp.Meta.Count == nil || *resp.Meta.Count != 2 {
		t.Errorf("meta.count = %v", resp.Meta.Count)
	}
}

func TestResponseWriterError(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	NewResponseWriter(rec, r).ValidationError("name is required", map[string]string{"field": "name"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Success {
		t.Error("success = true on error")
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationError || resp.Error.Message != "name is required" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not found", database.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("bookmark 3: %w", database.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"backup not found", backup.ErrBackupNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", database.ErrConflict, http.StatusConflict, ErrCodeConflict},
		{"last admin", database.ErrLastAdmin, http.StatusConflict, ErrCodeConflict},
		{"setup complete", auth.ErrSetupComplete, http.StatusConflict, ErrCodeConflict},
		{"invalid reorder", database.ErrInvalidReorder, http.StatusBadRequest, ErrCodeBadRequest},
		{"csv columns", transfer.ErrMissingColumns, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			resp := decodeResponse(t, rec, nil)
			if resp.Error == nil || resp.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestRespondErrorHidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=hunter2"))
	resp := decodeResponse(t, rec, nil)
	if resp.Error.Message == "password=hunter2" {
		t.Error("internal error text leaked to client")
	}
}

func TestRespondErrorLockout(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, httptest.NewRequest(http.MethodPost, "/", nil), &auth.LockoutError{RetryAfter: 1500 * time.Millisecond})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}
