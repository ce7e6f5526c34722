// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package api exposes the FauxDash REST API, the live-update WebSocket and
// the optional static frontend over a chi router.
//
// # Middleware chain
//
// Every request passes request ID assignment, trusted-proxy RealIP, panic
// recovery, access logging and CORS. Routes under /api/v1 add the general
// rate limit, security headers, Prometheus metrics, gzip compression,
// session or bearer authentication and casbin authorization. Login, setup
// and password changes carry a stricter per-IP limit.
//
// # Response format
//
// JSON endpoints answer with a common envelope:
//
//	{"success": true, "data": ..., "meta": {"request_id": "...", "count": 3}}
//	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}
//
// respondError maps store and service errors to status codes so handlers
// rarely choose one themselves. Internal error text is never sent to the
// client.
//
// # Visibility
//
// Guests only see visible categories and items that do not require
// authentication. Items a caller may not see are reported as not found,
// the same as missing ones, on reads, redirects and click tracking.
//
// # Files
//
//   - router.go: route table and SPA fallback
//   - chi_middleware.go: CORS, rate limits, RealIP and security headers
//   - response.go, errors.go, requests.go: envelope, error mapping, decoding
//   - handlers_*.go: one file per resource
package api
