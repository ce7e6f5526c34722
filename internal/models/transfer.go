// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package models

// TransferItem is one bookmark or service as it appears in a CSV export,
// keyed by category name instead of ID.
type TransferItem struct {
	Category           string `json:"category"`
	Name               string `json:"name"`
	URL                string `json:"url"`
	Description        string `json:"description,omitempty"`
	Icon               string `json:"icon,omitempty"`
	SortOrder          int    `json:"sort_order"`
	IsVisible          bool   `json:"is_visible"`
	OpenInNewTab       bool   `json:"open_in_new_tab"`
	HealthCheckEnabled bool   `json:"health_check_enabled,omitempty"`
	HealthCheckURL     string `json:"health_check_url,omitempty"`
}

// ImportMode selects whether an import adds to or replaces existing items.
type ImportMode string

const (
	ImportAppend  ImportMode = "append"
	ImportReplace ImportMode = "replace"
)

// ImportRowError describes a rejected CSV row. Row is 1-based and counts the
// header line.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Kind              ItemKind         `json:"kind"`
	Mode              ImportMode       `json:"mode"`
	Created           int              `json:"created"`
	CategoriesCreated int              `json:"categories_created"`
	Skipped           int              `json:"skipped"`
	Errors            []ImportRowError `json:"errors,omitempty"`
}
