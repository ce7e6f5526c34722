// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package favicon

import (
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// iconLink is a candidate icon declared in a page.
type iconLink struct {
	href string
	size int // largest declared edge; 0 when unknown
	rel  string
}

// svgSize ranks sizes="any" (scalable) icons above every raster size.
const svgSize = 1 << 16

// discoverIcons parses an HTML document and returns declared icon URLs,
// best first. Relative hrefs resolve against <base href> or pageURL.
func discoverIcons(r io.Reader, pageURL *url.URL) []string {
	base := pageURL
	var links []iconLink

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return rankLinks(links, base)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			switch string(name) {
			case "base":
				if href := attr(z, "href"); href != "" {
					if u, err := pageURL.Parse(href); err == nil {
						base = u
					}
				}
			case "link":
				if l, ok := parseLink(z); ok {
					links = append(links, l)
				}
			}
		case html.EndTagToken:
			// Icons are declared in <head>; stop once the body starts.
			if name, _ := z.TagName(); string(name) == "head" {
				return rankLinks(links, base)
			}
		}
	}
}

func parseLink(z *html.Tokenizer) (iconLink, bool) {
	var l iconLink
	var sizes, typ string
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "rel":
			l.rel = strings.ToLower(string(val))
		case "href":
			l.href = strings.TrimSpace(string(val))
		case "sizes":
			sizes = strings.ToLower(string(val))
		case "type":
			typ = strings.ToLower(string(val))
		}
		if !more {
			break
		}
	}
	if l.href == "" || !isIconRel(l.rel) {
		return l, false
	}
	l.size = parseSizes(sizes)
	if l.size == 0 && (typ == "image/svg+xml" || strings.HasSuffix(strings.ToLower(l.href), ".svg")) {
		l.size = svgSize
	}
	if l.size == 0 && strings.Contains(l.rel, "apple-touch-icon") {
		l.size = 180
	}
	return l, true
}

func isIconRel(rel string) bool {
	for _, tok := range strings.Fields(rel) {
		switch tok {
		case "icon", "apple-touch-icon", "apple-touch-icon-precomposed":
			return true
		}
	}
	return false
}

// parseSizes returns the largest edge in a sizes attribute such as
// "16x16 32x32" or "any".
func parseSizes(s string) int {
	best := 0
	for _, tok := range strings.Fields(s) {
		if tok == "any" {
			return svgSize
		}
		w, h, ok := strings.Cut(tok, "x")
		if !ok {
			continue
		}
		wi, err1 := strconv.Atoi(w)
		hi, err2 := strconv.Atoi(h)
		if err1 != nil || err2 != nil {
			continue
		}
		best = max(best, wi, hi)
	}
	return best
}

func rankLinks(links []iconLink, base *url.URL) []string {
	sort.SliceStable(links, func(i, j int) bool { return links[i].size > links[j].size })

	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		u, err := base.Parse(l.href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		s := u.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func attr(z *html.Tokenizer, want string) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == want {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}
