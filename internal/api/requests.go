// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sdenike/fauxdash/internal/analytics"
	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/models"
	"github.com/sdenike/fauxdash/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

const (
	defaultDays  = 30
	maxDays      = 3650
	defaultLimit = 10
	maxLimit     = 100
)

// decodeJSON reads a JSON body into v and validates it. It writes the
// error response and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return decodeBody(w, r, v) && validateRequest(w, r, v)
}

// decodeBody reads a JSON body into v without struct validation.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			WriteError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
		case errors.Is(err, io.EOF):
			NewResponseWriter(w, r).BadRequest("request body is required")
		default:
			NewResponseWriter(w, r).BadRequest("invalid JSON body")
		}
		return false
	}
	return true
}

// validateRequest runs struct validation and writes a VALIDATION_ERROR
// response on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
	return false
}

// idParam parses a positive integer URL parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		NewResponseWriter(w, r).BadRequest(fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// kindParam parses an item kind from the URL or query string.
func kindParam(w http.ResponseWriter, r *http.Request, raw string) (models.ItemKind, bool) {
	kind := models.ItemKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		NewResponseWriter(w, r).BadRequest("kind must be bookmark or service")
		return "", false
	}
	return kind, true
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// clamp bounds v to [lo, hi], using def for non-positive values.
func clamp(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sinceParam converts ?days= into a start time.
func sinceParam(r *http.Request, now time.Time) (time.Time, int) {
	days := clamp(getIntParam(r, "days", defaultDays), defaultDays, 1, maxDays)
	return now.AddDate(0, 0, -days), days
}

// limitParam reads ?limit= bounded to maxLimit.
func limitParam(r *http.Request, def int) int {
	return clamp(getIntParam(r, "limit", def), def, 1, maxLimit)
}

// clientIP returns the caller address. RealIP has already rewritten
// RemoteAddr for trusted proxies.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func visitor(r *http.Request, referrer string) analytics.Visitor {
	if referrer == "" {
		referrer = r.Referer()
	}
	return analytics.Visitor{
		UserID:    auth.UserIDOf(r.Context()),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  referrer,
	}
}

// sanitizeLogValue replaces control characters so request values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
