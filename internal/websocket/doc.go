// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

/*
Package websocket pushes live updates to open dashboards.

A Hub owns the set of connected clients and fans out messages; each Client
runs a read pump (pings, close detection) and a write pump (hub messages,
keepalive pings). The hub is run under the supervisor via RunWithContext.

Message types:

  - click: a bookmark or service was opened (kind, id, country_code)
  - health: a service changed state (service_id, status, previous_status)
  - settings: shared settings changed and should be reloaded (scope)
  - ping/pong: application-level keepalive initiated by the browser

Messages are JSON objects of the form {"type": "...", "data": {...}}.
*/
package websocket
