// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package catalog

import (
	"fmt"
	"strconv"

	"github.com/sdenike/fauxdash/internal/models"
)

// Settings keys holding the appearance fields.
const (
	KeySiteTitle        = "appearance.site_title"
	KeyTheme            = "appearance.theme"
	KeyMode             = "appearance.mode"
	KeyAccentColor      = "appearance.accent_color"
	KeyBackgroundImage  = "appearance.background_image"
	KeyBookmarkColumns  = "appearance.bookmark_columns"
	KeyServiceColumns   = "appearance.service_columns"
	KeyShowDescriptions = "appearance.show_descriptions"
	KeyShowClock        = "appearance.show_clock"
	KeyTimeFormat       = "appearance.time_format"
	KeySearchEngine     = "appearance.search_engine"
	KeyWelcomeMessage   = "appearance.welcome_message"
	KeyCustomCSS        = "appearance.custom_css"
)

// DefaultAppearance is used for any key missing from settings.
func DefaultAppearance() models.Appearance {
	return models.Appearance{
		SiteTitle:        "FauxDash",
		Theme:            "default",
		Mode:             "system",
		BookmarkColumns:  4,
		ServiceColumns:   3,
		ShowDescriptions: true,
		ShowClock:        true,
		TimeFormat:       "24h",
		SearchEngine:     "duckduckgo",
	}
}

// AppearanceFromSettings overlays stored settings on the defaults. Values
// that fail to parse keep the default.
func AppearanceFromSettings(s models.Settings) models.Appearance {
	a := DefaultAppearance()
	str := func(key string, dst *string) {
		if v, ok := s[key]; ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if n, err := strconv.Atoi(s[key]); err == nil && n > 0 {
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if b, err := strconv.ParseBool(s[key]); err == nil {
			*dst = b
		}
	}

	str(KeySiteTitle, &a.SiteTitle)
	str(KeyTheme, &a.Theme)
	str(KeyMode, &a.Mode)
	str(KeyAccentColor, &a.AccentColor)
	str(KeyBackgroundImage, &a.BackgroundImage)
	num(KeyBookmarkColumns, &a.BookmarkColumns)
	num(KeyServiceColumns, &a.ServiceColumns)
	flag(KeyShowDescriptions, &a.ShowDescriptions)
	flag(KeyShowClock, &a.ShowClock)
	str(KeyTimeFormat, &a.TimeFormat)
	str(KeySearchEngine, &a.SearchEngine)
	str(KeyWelcomeMessage, &a.WelcomeMessage)
	str(KeyCustomCSS, &a.CustomCSS)

	if _, ok := LookupTheme(a.Theme); !ok {
		a.Theme = DefaultAppearance().Theme
	}
	if _, ok := LookupSearchEngine(a.SearchEngine); !ok {
		a.SearchEngine = DefaultAppearance().SearchEngine
	}
	return a
}

// AppearanceToSettings flattens an appearance into settings keys.
func AppearanceToSettings(a models.Appearance) models.Settings {
	return models.Settings{
		KeySiteTitle:        a.SiteTitle,
		KeyTheme:            a.Theme,
		KeyMode:             a.Mode,
		KeyAccentColor:      a.AccentColor,
		KeyBackgroundImage:  a.BackgroundImage,
		KeyBookmarkColumns:  strconv.Itoa(a.BookmarkColumns),
		KeyServiceColumns:   strconv.Itoa(a.ServiceColumns),
		KeyShowDescriptions: strconv.FormatBool(a.ShowDescriptions),
		KeyShowClock:        strconv.FormatBool(a.ShowClock),
		KeyTimeFormat:       a.TimeFormat,
		KeySearchEngine:     a.SearchEngine,
		KeyWelcomeMessage:   a.WelcomeMessage,
		KeyCustomCSS:        a.CustomCSS,
	}
}

// ValidateAppearance checks the catalog references of an appearance. Field
// formats are checked by struct validation.
func ValidateAppearance(a models.Appearance) error {
	if _, ok := LookupTheme(a.Theme); !ok {
		return fmt.Errorf("unknown theme %q", a.Theme)
	}
	if _, ok := LookupSearchEngine(a.SearchEngine); !ok {
		return fmt.Errorf("unknown search engine %q", a.SearchEngine)
	}
	if a.BackgroundImage != "" && !IsValidIconRef(a.BackgroundImage) {
		return fmt.Errorf("background image must be an http(s) URL or favicon reference")
	}
	return nil
}
