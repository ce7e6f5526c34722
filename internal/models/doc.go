// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

/*
Package models defines the data structures shared by the FauxDash store, API
and background services.

Database models:
  - Category: groups bookmarks or services on the dashboard
  - Bookmark, Service: dashboard links; services carry health check state
  - User: local or OIDC account with a role
  - Click, Pageview: analytics events
  - Geolocation: cached IP geolocation
  - FaviconRecord: cached favicon file for a host

Request models carry go-playground/validator tags and are validated in the
API layer before reaching the store.
*/
package models
