// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
	"github.com/sdenike/fauxdash/internal/transfer"
)

// maxImportBytes bounds CSV uploads.
const maxImportBytes = 10 << 20

// ExportItems writes all bookmarks or services of a kind as CSV. The file
// is built in memory first so a database error still yields a JSON error.
// GET /api/v1/export/{kind}.csv
func (h *Handler) ExportItems(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r, chi.URLParam(r, "kind"))
	if !ok {
		return
	}

	// Buffer so a database failure can still produce a JSON error.
	var buf bytes.Buffer
	n, err := transfer.Export(r.Context(), h.db, kind, &buf)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("fauxdash-%ss-%s.csv", kind, h.now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Item-Count", fmt.Sprint(n))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Export write failed")
	}
}

// ImportItems loads a CSV of bookmarks or services. ?mode=replace removes
// existing items of that kind first; the default appends.
// POST /api/v1/import/{kind}
func (h *Handler) ImportItems(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r, chi.URLParam(r, "kind"))
	if !ok {
		return
	}
	mode := models.ImportMode(strings.ToLower(r.URL.Query().Get("mode")))
	if mode == "" {
		mode = models.ImportAppend
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			NewResponseWriter(w, r).BadRequest("multipart field \"file\" is required")
			return
		}
		defer file.Close() //nolint:errcheck // read-only upload
		src = file
	}

	result, err := transfer.Import(r.Context(), h.db, kind, mode, src)
	if err != nil {
		var (
			tooLarge *http.MaxBytesError
			parseErr *csv.ParseError
		)
		switch {
		case errors.As(err, &tooLarge):
			WriteError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "import file is too large")
		case errors.As(err, &parseErr):
			NewResponseWriter(w, r).BadRequest(parseErr.Error())
		default:
			respondError(w, r, err)
		}
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("kind", string(kind)).
		Str("mode", string(mode)).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("CSV import completed")

	h.broadcastSettings(dashboardScope)
	NewResponseWriter(w, r).Success(result)
}
