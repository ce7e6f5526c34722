// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package analytics records bookmark and service clicks and dashboard
// pageviews.
//
// HTTP handlers publish events through a Recorder onto an in-process
// Watermill Pub/Sub. A Pipeline router consumes them, enriches them with
// GeoIP data, persists them to DuckDB, bumps click counters and pushes a
// live update to WebSocket clients. Keeping persistence off the request path
// means a redirect through /go/{kind}/{id} never waits on the database.
package analytics

import (
	"time"

	"github.com/sdenike/fauxdash/internal/models"
)

// Topics carried on the pipeline.
const (
	TopicClick    = "analytics.click"
	TopicPageview = "analytics.pageview"

	// TopicFailed receives events that failed after all retries.
	TopicFailed = "analytics.failed"
)

// Visitor describes the client that produced an event.
type Visitor struct {
	UserID    int64
	IPAddress string
	UserAgent string
	Referrer  string
}

// ClickEvent is the message payload for TopicClick.
type ClickEvent struct {
	EventID   string          `json:"event_id"`
	Kind      models.ItemKind `json:"kind"`
	ItemID    int64           `json:"item_id"`
	UserID    int64           `json:"user_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Referrer  string          `json:"referrer,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PageviewEvent is the message payload for TopicPageview.
type PageviewEvent struct {
	EventID   string    `json:"event_id"`
	Path      string    `json:"path"`
	UserID    int64     `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *ClickEvent) toModel() *models.Click {
	return &models.Click{
		ID:        e.EventID,
		ItemKind:  e.Kind,
		ItemID:    e.ItemID,
		UserID:    optionalID(e.UserID),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Referrer:  e.Referrer,
		CreatedAt: e.Timestamp,
	}
}

func (e *PageviewEvent) toModel() *models.Pageview {
	return &models.Pageview{
		ID:        e.EventID,
		Path:      e.Path,
		UserID:    optionalID(e.UserID),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Referrer:  e.Referrer,
		CreatedAt: e.Timestamp,
	}
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
