// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package models

import "time"

// Click records a visitor following a bookmark or service link.
type Click struct {
	ID          string    `json:"id"`
	ItemKind    ItemKind  `json:"item_kind"`
	ItemID      int64     `json:"item_id"`
	UserID      *int64    `json:"user_id,omitempty"`
	IPAddress   string    `json:"-"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	Country     string    `json:"country,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	City        string    `json:"city,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pageview records a dashboard visit.
type Pageview struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	UserID      *int64    `json:"user_id,omitempty"`
	IPAddress   string    `json:"-"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	Country     string    `json:"country,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	City        string    `json:"city,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackClickRequest is the beacon payload sent when a link is opened.
type TrackClickRequest struct {
	Kind ItemKind `json:"kind" validate:"required,oneof=bookmark service"`
	ID   int64    `json:"id" validate:"required,min=1"`
}

// TrackPageviewRequest is the beacon payload sent on page load.
type TrackPageviewRequest struct {
	Path     string `json:"path" validate:"required,max=500"`
	Referrer string `json:"referrer" validate:"max=2048"`
}

// AnalyticsSummary totals events over a period.
type AnalyticsSummary struct {
	Since          time.Time `json:"since"`
	TotalClicks    int64     `json:"total_clicks"`
	TotalPageviews int64     `json:"total_pageviews"`
	UniqueVisitors int64     `json:"unique_visitors"`
	BookmarkClicks int64     `json:"bookmark_clicks"`
	ServiceClicks  int64     `json:"service_clicks"`
	Countries      int64     `json:"countries"`
}

// TopItem is an item ranked by clicks.
type TopItem struct {
	Kind   ItemKind `json:"kind"`
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Clicks int64    `json:"clicks"`
}

// DailyCount is the number of events on a calendar day (UTC).
type DailyCount struct {
	Date      string `json:"date"`
	Clicks    int64  `json:"clicks"`
	Pageviews int64  `json:"pageviews"`
}

// CountryCount is the number of events from a country.
type CountryCount struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Count       int64  `json:"count"`
}

// HourlyCount is the number of clicks in an hour of day (0-23, UTC).
type HourlyCount struct {
	Hour   int   `json:"hour"`
	Clicks int64 `json:"clicks"`
}

// RecentClick is a click joined with the item name for the activity feed.
type RecentClick struct {
	Click
	ItemName string `json:"item_name"`
}
