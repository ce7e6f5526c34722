// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/sdenike/fauxdash/internal/backup"
	"github.com/sdenike/fauxdash/internal/logging"
)

// CreateBackupRequest is the optional body of POST /backups.
type CreateBackupRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

func (h *Handler) requireBackups(w http.ResponseWriter, r *http.Request) bool {
	if h.backups == nil {
		NewResponseWriter(w, r).ServiceUnavailable("backups are not available")
		return false
	}
	return true
}

// ListBackups returns all backups, newest first.
// GET /api/v1/backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if !h.requireBackups(w, r) {
		return
	}
	backups := h.backups.ListBackups()
	NewResponseWriter(w, r).List(backups, len(backups))
}

// CreateBackup takes a manual backup.
// POST /api/v1/backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if !h.requireBackups(w, r) {
		return
	}
	var req CreateBackupRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	b, err := h.backups.CreateBackup(r.Context(), backup.TriggerManual, req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(b)
}

// GetBackup returns one backup.
// GET /api/v1/backups/{id}
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	if !h.requireBackups(w, r) {
		return
	}
	b, err := h.backups.GetBackup(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(b)
}

// DeleteBackup removes a backup and its archive.
// DELETE /api/v1/backups/{id}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if !h.requireBackups(w, r) {
		return
	}
	if err := h.backups.DeleteBackup(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// DownloadBackup streams the archive of a completed backup.
// GET /api/v1/backups/{id}/download
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	if !h.requireBackups(w, r) {
		return
	}
	path, b, err := h.backups.ArchivePath(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	f, err := os.Open(path) //nolint:gosec // path comes from the backup index
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", backup.ErrBackupNotFound, err))
		return
	}
	defer f.Close() //nolint:errcheck // read-only
	info, err := f.Stat()
	if err != nil {
		NewResponseWriter(w, r).InternalError("failed to read backup archive")
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.FileName))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, b.FileName, info.ModTime(), f)
}

// RestoreBackup restores favicons immediately and stages the database to
// replace the live one on the next start.
// POST /api/v1/backups/{id}/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !h.requireBackups(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.backups.Restore(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Warn().
		Str("backup_id", id).
		Bool("restart_required", result.RestartRequired).
		Msg("Backup restored")
	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(result)
}
