// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	WebSocketClients int     `json:"websocket_clients"`
	AnalyticsEnabled bool    `json:"analytics_enabled"`
}

// ReadyResponse is returned by GET /api/v1/health/ready.
type ReadyResponse struct {
	Ready    bool              `json:"ready"`
	Checks   map[string]string `json:"checks"`
	Duration int64             `json:"duration_ms"`
}

// Health reports liveness. It never touches the database.
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}
	NewResponseWriter(w, r).Success(HealthResponse{
		Status:           "ok",
		Version:          h.version,
		UptimeSeconds:    time.Since(h.startTime).Seconds(),
		WebSocketClients: clients,
		AnalyticsEnabled: h.recorder.Enabled(),
	})
}

// HealthReady reports whether the database answers within two seconds.
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{Ready: true, Checks: map[string]string{"database": "ok"}}
	if h.db == nil {
		resp.Ready = false
		resp.Checks["database"] = "not configured"
	} else if err := h.db.Ping(ctx); err != nil {
		resp.Ready = false
		resp.Checks["database"] = err.Error()
	}
	resp.Duration = time.Since(start).Milliseconds()

	rw := NewResponseWriter(w, r)
	if !resp.Ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "not ready", resp)
		return
	}
	rw.Success(resp)
}
