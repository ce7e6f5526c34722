// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package models

import "time"

// ItemKind distinguishes bookmarks from services. Categories belong to
// exactly one kind.
type ItemKind string

const (
	KindBookmark ItemKind = "bookmark"
	KindService  ItemKind = "service"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == KindBookmark || k == KindService
}

// Health states for services.
const (
	HealthUnknown = "unknown"
	HealthUp      = "up"
	HealthDown    = "down"
)

// Category groups dashboard items.
type Category struct {
	ID           int64     `json:"id"`
	Kind         ItemKind  `json:"kind"`
	Name         string    `json:"name"`
	Icon         string    `json:"icon,omitempty"`
	SortOrder    int       `json:"sort_order"`
	Columns      int       `json:"columns"`
	IsVisible    bool      `json:"is_visible"`
	RequiresAuth bool      `json:"requires_auth"`
	Collapsed    bool      `json:"collapsed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Bookmark is a link on the dashboard.
type Bookmark struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Description  string    `json:"description,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	SortOrder    int       `json:"sort_order"`
	IsVisible    bool      `json:"is_visible"`
	RequiresAuth bool      `json:"requires_auth"`
	OpenInNewTab bool      `json:"open_in_new_tab"`
	ClickCount   int64     `json:"click_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Service is a link to a self-hosted application with optional health checks.
type Service struct {
	ID                  int64      `json:"id"`
	CategoryID          int64      `json:"category_id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Description         string     `json:"description,omitempty"`
	Icon                string     `json:"icon,omitempty"`
	SortOrder           int        `json:"sort_order"`
	IsVisible           bool       `json:"is_visible"`
	RequiresAuth        bool       `json:"requires_auth"`
	OpenInNewTab        bool       `json:"open_in_new_tab"`
	HealthCheckEnabled  bool       `json:"health_check_enabled"`
	HealthCheckURL      string     `json:"health_check_url,omitempty"`
	HealthCheckInterval int        `json:"health_check_interval_sec"`
	HealthStatus        string     `json:"health_status"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastResponseMs      int64      `json:"last_response_ms"`
	ClickCount          int64      `json:"click_count"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CheckURL returns the URL requested by health checks.
func (s *Service) CheckURL() string {
	if s.HealthCheckURL != "" {
		return s.HealthCheckURL
	}
	return s.URL
}

// CategoryInput is the create/update payload for categories.
type CategoryInput struct {
	Kind         ItemKind `json:"kind" validate:"required,oneof=bookmark service"`
	Name         string   `json:"name" validate:"required,min=1,max=100"`
	Icon         string   `json:"icon" validate:"omitempty,max=500,icon_ref"`
	Columns      int      `json:"columns" validate:"omitempty,min=1,max=6"`
	IsVisible    *bool    `json:"is_visible"`
	RequiresAuth bool     `json:"requires_auth"`
	Collapsed    bool     `json:"collapsed"`
}

// BookmarkInput is the create/update payload for bookmarks.
type BookmarkInput struct {
	CategoryID   int64  `json:"category_id" validate:"required,min=1"`
	Name         string `json:"name" validate:"required,min=1,max=200"`
	URL          string `json:"url" validate:"required,web_url,max=2048"`
	Description  string `json:"description" validate:"max=500"`
	Icon         string `json:"icon" validate:"omitempty,max=500,icon_ref"`
	IsVisible    *bool  `json:"is_visible"`
	RequiresAuth bool   `json:"requires_auth"`
	OpenInNewTab *bool  `json:"open_in_new_tab"`
}

// ServiceInput is the create/update payload for services.
type ServiceInput struct {
	CategoryID          int64  `json:"category_id" validate:"required,min=1"`
	Name                string `json:"name" validate:"required,min=1,max=200"`
	URL                 string `json:"url" validate:"required,web_url,max=2048"`
	Description         string `json:"description" validate:"max=500"`
	Icon                string `json:"icon" validate:"omitempty,max=500,icon_ref"`
	IsVisible           *bool  `json:"is_visible"`
	RequiresAuth        bool   `json:"requires_auth"`
	OpenInNewTab        *bool  `json:"open_in_new_tab"`
	HealthCheckEnabled  bool   `json:"health_check_enabled"`
	HealthCheckURL      string `json:"health_check_url" validate:"omitempty,web_url,max=2048"`
	HealthCheckInterval int    `json:"health_check_interval_sec" validate:"omitempty,min=10,max=86400"`
}

// ReorderRequest lists item IDs in their new display order.
type ReorderRequest struct {
	Kind       ItemKind `json:"kind" validate:"omitempty,oneof=bookmark service"`
	CategoryID int64    `json:"category_id" validate:"omitempty,min=1"`
	IDs        []int64  `json:"ids" validate:"required,min=1,dive,min=1"`
}

// DashboardCategory is a category with its visible items, as rendered on the
// start page.
type DashboardCategory struct {
	Category
	Bookmarks []Bookmark `json:"bookmarks,omitempty"`
	Services  []Service  `json:"services,omitempty"`
}

// Dashboard is the full start page payload.
type Dashboard struct {
	BookmarkCategories []DashboardCategory `json:"bookmark_categories"`
	ServiceCategories  []DashboardCategory `json:"service_categories"`
	Appearance         Appearance          `json:"appearance"`
}

// SearchResult is a single match from the dashboard search.
type SearchResult struct {
	Kind        ItemKind `json:"kind"`
	ID          int64    `json:"id"`
	CategoryID  int64    `json:"category_id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// BoolOr dereferences p, returning def when p is nil.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
