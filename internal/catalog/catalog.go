// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package catalog holds the built-in theme, icon and search engine catalogs
// and resolves dashboard appearance from stored settings.
//
// The catalogs are embedded JSON files parsed once at startup. They are
// read-only; lookups are safe for concurrent use.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/sdenike/fauxdash/internal/models"
)

//go:embed data/themes.json data/icons.json data/search_engines.json
var dataFS embed.FS

type catalogs struct {
	themes        []models.Theme
	themesByName  map[string]models.Theme
	engines       []models.SearchEngine
	enginesByName map[string]models.SearchEngine
	icons         []models.IconEntry
	iconsByRef    map[string]models.IconEntry
}

var (
	loaded   *catalogs
	loadOnce sync.Once
	loadErr  error
)

// load parses the embedded catalogs on first use. A parse failure is a build
// defect, so accessors panic rather than return errors.
func load() *catalogs {
	loadOnce.Do(func() {
		loaded, loadErr = parseCatalogs()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("catalog: %v", loadErr))
	}
	return loaded
}

func parseCatalogs() (*catalogs, error) {
	c := &catalogs{
		themesByName:  make(map[string]models.Theme),
		enginesByName: make(map[string]models.SearchEngine),
		iconsByRef:    make(map[string]models.IconEntry),
	}

	if err := readJSON("data/themes.json", &c.themes); err != nil {
		return nil, err
	}
	for _, t := range c.themes {
		c.themesByName[t.Name] = t
	}

	if err := readJSON("data/search_engines.json", &c.engines); err != nil {
		return nil, err
	}
	for _, e := range c.engines {
		c.enginesByName[e.Name] = e
	}

	if err := readJSON("data/icons.json", &c.icons); err != nil {
		return nil, err
	}
	for i := range c.icons {
		c.icons[i].Ref = c.icons[i].Set + ":" + c.icons[i].Name
		c.iconsByRef[c.icons[i].Ref] = c.icons[i]
	}
	sort.SliceStable(c.icons, func(i, j int) bool { return c.icons[i].Ref < c.icons[j].Ref })

	return c, nil
}

func readJSON(name string, v any) error {
	data, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Themes returns the built-in themes in catalog order.
func Themes() []models.Theme {
	return append([]models.Theme(nil), load().themes...)
}

// LookupTheme returns the theme with the given name.
func LookupTheme(name string) (models.Theme, bool) {
	t, ok := load().themesByName[name]
	return t, ok
}

// SearchEngines returns the built-in search engines.
func SearchEngines() []models.SearchEngine {
	return append([]models.SearchEngine(nil), load().engines...)
}

// LookupSearchEngine returns the search engine with the given name.
func LookupSearchEngine(name string) (models.SearchEngine, bool) {
	e, ok := load().enginesByName[name]
	return e, ok
}
