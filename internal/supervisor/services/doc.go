// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package services adapts FauxDash components to suture.Service.
//
// HTTPServerService translates http.Server's ListenAndServe/Shutdown pair
// into a context-aware Serve. RunnerService wraps anything with a
// RunWithContext method (the WebSocket hub, the analytics pipeline and
// pruner, the health checker, the backup scheduler) and FuncService wraps a
// plain function such as session cleanup.
package services
