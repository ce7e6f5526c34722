// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package models

import "time"

// Geolocation is the resolved location of an IP address.
type Geolocation struct {
	IPAddress   string    `json:"ip_address"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code,omitempty"`
	Region      string    `json:"region,omitempty"`
	City        string    `json:"city,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timezone    string    `json:"timezone,omitempty"`
	ISP         string    `json:"isp,omitempty"`
	Provider    string    `json:"provider"`
	LastUpdated time.Time `json:"last_updated"`
}

// FaviconRecord maps a host to a stored icon file.
type FaviconRecord struct {
	Host        string    `json:"host"`
	FileName    string    `json:"file_name"`
	Source      string    `json:"source"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// FaviconFetchRequest asks the server to fetch an icon for a page.
type FaviconFetchRequest struct {
	URL   string `json:"url" validate:"required,web_url,max=2048"`
	Force bool   `json:"force"`
}
