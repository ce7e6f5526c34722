// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sdenike/fauxdash/internal/favicon"
	"github.com/sdenike/fauxdash/internal/models"
)

// uploadOverhead covers multipart framing around the icon bytes.
const uploadOverhead = 64 << 10

// FaviconResponse describes a stored icon and the reference to save on
// a bookmark or service.
type FaviconResponse struct {
	FileName string                `json:"file_name"`
	IconRef  string                `json:"icon_ref"`
	URL      string                `json:"url"`
	Record   *models.FaviconRecord `json:"record,omitempty"`
}

func faviconResponse(name string, rec *models.FaviconRecord) FaviconResponse {
	return FaviconResponse{
		FileName: name,
		IconRef:  "favicon:" + name,
		URL:      "/api/v1/favicons/" + name,
		Record:   rec,
	}
}

// FetchFavicon downloads and stores the icon of a page.
// POST /api/v1/favicons/fetch
func (h *Handler) FetchFavicon(w http.ResponseWriter, r *http.Request) {
	if h.favicons == nil {
		NewResponseWriter(w, r).ServiceUnavailable("favicon service is not available")
		return
	}
	var req models.FaviconFetchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.favicons.Fetch(r.Context(), req.URL, req.Force)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(faviconResponse(rec.FileName, rec))
}

// UploadFavicon stores a user-provided icon sent as the multipart field
// "file" or as the raw request body.
// POST /api/v1/favicons/upload
func (h *Handler) UploadFavicon(w http.ResponseWriter, r *http.Request) {
	if h.favicons == nil {
		NewResponseWriter(w, r).ServiceUnavailable("favicon service is not available")
		return
	}

	limit := h.config.Favicon.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)

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

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "icon is too large")
			return
		}
		NewResponseWriter(w, r).BadRequest("failed to read upload")
		return
	}
	if len(data) == 0 {
		NewResponseWriter(w, r).BadRequest("empty upload")
		return
	}
	if int64(len(data)) > limit {
		WriteError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "icon is too large")
		return
	}

	name, err := h.favicons.Upload(r.Context(), data)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) || errors.Is(err, favicon.ErrUnsupportedType) {
			respondError(w, r, err)
			return
		}
		// Anything else is an image that failed to decode.
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	NewResponseWriter(w, r).Created(faviconResponse(name, nil))
}

// ServeFavicon serves a stored icon file.
// GET /api/v1/favicons/{file}
func (h *Handler) ServeFavicon(w http.ResponseWriter, r *http.Request) {
	if h.favicons == nil {
		http.NotFound(w, r)
		return
	}
	path, err := h.favicons.Path(chi.URLParam(r, "file"))
	if err != nil {
		NewResponseWriter(w, r).NotFound("favicon not found")
		return
	}
	f, err := os.Open(path) //nolint:gosec // name validated by Path
	if err != nil {
		NewResponseWriter(w, r).NotFound("favicon not found")
		return
	}
	defer f.Close() //nolint:errcheck // read-only
	info, err := f.Stat()
	if err != nil {
		NewResponseWriter(w, r).NotFound("favicon not found")
		return
	}

	header := w.Header()
	header.Set("Cache-Control", "public, max-age=604800")
	header.Set("X-Content-Type-Options", "nosniff")
	if strings.HasSuffix(path, ".svg") {
		header.Set("Content-Type", "image/svg+xml")
		header.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	} else {
		header.Set("Content-Type", "image/png")
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
