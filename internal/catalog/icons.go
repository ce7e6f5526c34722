// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package catalog

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/sdenike/fauxdash/internal/models"
)

// Icon reference prefixes. Catalog sets name bundled glyphs; favicon and url
// point at images.
const (
	IconSetLucide  = "lucide"
	IconSetSimple  = "si"
	IconSetMDI     = "mdi"
	IconRefFavicon = "favicon"
	IconRefURL     = "url"
)

// ParseIconRef splits an icon reference into its prefix and value.
// Accepted forms are "lucide:<name>", "si:<name>", "mdi:<name>",
// "favicon:<file>.png" and "url:<http(s) URL>". A bare http(s) URL is
// treated as "url:".
func ParseIconRef(ref string) (prefix, value string, ok bool) {
	if isHTTPURL(ref) {
		return IconRefURL, ref, true
	}
	prefix, value, found := strings.Cut(ref, ":")
	if !found || value == "" {
		return "", "", false
	}

	switch prefix {
	case IconSetLucide, IconSetSimple, IconSetMDI:
		if !isSlug(value) {
			return "", "", false
		}
	case IconRefFavicon:
		if value != path.Base(value) || strings.HasPrefix(value, ".") ||
			(!strings.HasSuffix(value, ".png") && !strings.HasSuffix(value, ".svg")) {
			return "", "", false
		}
	case IconRefURL:
		if !isHTTPURL(value) {
			return "", "", false
		}
	default:
		return "", "", false
	}
	return prefix, value, true
}

// IsValidIconRef reports whether ref is a well-formed icon reference. Glyph
// names outside the built-in catalog are accepted so that newer icon packs
// in the frontend keep working.
func IsValidIconRef(ref string) bool {
	_, _, ok := ParseIconRef(ref)
	return ok
}

// LookupIcon returns the catalog entry for a glyph reference.
func LookupIcon(ref string) (models.IconEntry, bool) {
	e, ok := load().iconsByRef[ref]
	return e, ok
}

// SearchIcons returns catalog icons matching q in name, label or tags,
// best matches first. An empty q lists the catalog.
func SearchIcons(q string, limit int) []models.IconEntry {
	icons := load().icons
	if limit <= 0 || limit > len(icons) {
		limit = len(icons)
	}

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return append([]models.IconEntry(nil), icons[:limit]...)
	}

	type scored struct {
		entry models.IconEntry
		score int
	}
	var matches []scored
	for _, icon := range icons {
		if s := iconScore(icon, q); s > 0 {
			matches = append(matches, scored{icon, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]models.IconEntry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}

func iconScore(icon models.IconEntry, q string) int {
	name := strings.ToLower(icon.Name)
	label := strings.ToLower(icon.Label)
	switch {
	case name == q || label == q:
		return 4
	case strings.HasPrefix(name, q) || strings.HasPrefix(label, q):
		return 3
	case strings.Contains(name, q) || strings.Contains(label, q):
		return 2
	}
	for _, tag := range icon.Tags {
		if strings.Contains(tag, q) {
			return 1
		}
	}
	return 0
}

func isSlug(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return s != ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
