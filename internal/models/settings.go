// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package models

// GlobalSettingsUserID owns settings that apply to every visitor.
const GlobalSettingsUserID int64 = 0

// Settings is a flat key/value map. Appearance keys share the "appearance."
// prefix.
type Settings map[string]string

// Appearance controls how the dashboard is rendered.
type Appearance struct {
	SiteTitle        string `json:"site_title" validate:"required,max=100"`
	Theme            string `json:"theme" validate:"required,max=50"`
	Mode             string `json:"mode" validate:"required,oneof=light dark system"`
	AccentColor      string `json:"accent_color" validate:"hexcolor_or_empty"`
	BackgroundImage  string `json:"background_image,omitempty" validate:"omitempty,max=2048"`
	BookmarkColumns  int    `json:"bookmark_columns" validate:"min=1,max=6"`
	ServiceColumns   int    `json:"service_columns" validate:"min=1,max=6"`
	ShowDescriptions bool   `json:"show_descriptions"`
	ShowClock        bool   `json:"show_clock"`
	TimeFormat       string `json:"time_format" validate:"oneof=12h 24h"`
	SearchEngine     string `json:"search_engine" validate:"required,max=50"`
	WelcomeMessage   string `json:"welcome_message,omitempty" validate:"max=200"`
	CustomCSS        string `json:"custom_css,omitempty" validate:"max=20000"`
}

// Theme is a named color palette.
type Theme struct {
	Name   string            `json:"name"`
	Label  string            `json:"label"`
	Dark   bool              `json:"dark"`
	Colors map[string]string `json:"colors"`
}

// IconEntry is an icon from the built-in catalog.
type IconEntry struct {
	Ref   string   `json:"ref"`
	Set   string   `json:"set"`
	Name  string   `json:"name"`
	Label string   `json:"label"`
	Tags  []string `json:"tags,omitempty"`
}

// SearchEngine is a selectable web search provider.
type SearchEngine struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Template string `json:"template"`
}
