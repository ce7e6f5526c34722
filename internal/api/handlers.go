// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"time"

	"github.com/sdenike/fauxdash/internal/analytics"
	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/backup"
	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/favicon"
	"github.com/sdenike/fauxdash/internal/health"
	"github.com/sdenike/fauxdash/internal/models"
	ws "github.com/sdenike/fauxdash/internal/websocket"
)

// BackupManager is the backup surface used by the backup endpoints.
type BackupManager interface {
	CreateBackup(ctx context.Context, trigger backup.Trigger, notes string) (*backup.Backup, error)
	ListBackups() []*backup.Backup
	GetBackup(id string) (*backup.Backup, error)
	DeleteBackup(id string) error
	ArchivePath(id string) (string, *backup.Backup, error)
	Restore(ctx context.Context, id string) (*backup.RestoreResult, error)
}

// HealthChecker runs an on-demand check of one service.
type HealthChecker interface {
	CheckService(ctx context.Context, svc *models.Service) health.Result
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files by resource:
//   - handlers_health.go: liveness and readiness
//   - handlers_auth.go: login, setup, tokens and OIDC
//   - handlers_dashboard.go: dashboard and search
//   - handlers_items.go: categories, bookmarks and services
//   - handlers_track.go: click and pageview tracking
//   - handlers_settings.go: settings, appearance and catalogs
//   - handlers_favicons.go: favicon fetch, upload and serving
//   - handlers_analytics.go: analytics reports
//   - handlers_transfer.go: CSV import and export
//   - handlers_backup.go: backup and restore
//   - handlers_users.go: user administration
//   - handlers_ws.go: websocket upgrades
type Handler struct {
	db       *database.DB
	config   *config.Config
	auth     *auth.Service
	sessions *auth.SessionMiddleware
	recorder *analytics.Recorder
	favicons *favicon.Service
	checker  HealthChecker
	backups  BackupManager
	wsHub    *ws.Hub

	version   string
	startTime time.Time
	now       func() time.Time
}

// Dependencies groups the collaborators of a Handler. Recorder, Favicons,
// Checker, Backups and Hub are optional; their endpoints answer 503 when
// unset.
type Dependencies struct {
	DB       *database.DB
	Config   *config.Config
	Auth     *auth.Service
	Sessions *auth.SessionMiddleware
	Recorder *analytics.Recorder
	Favicons *favicon.Service
	Checker  HealthChecker
	Backups  BackupManager
	Hub      *ws.Hub
	Version  string
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		db:        deps.DB,
		config:    deps.Config,
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		recorder:  deps.Recorder,
		favicons:  deps.Favicons,
		checker:   deps.Checker,
		backups:   deps.Backups,
		wsHub:     deps.Hub,
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// broadcastSettings tells connected dashboards to reload settings.
func (h *Handler) broadcastSettings(scope string) {
	if h.wsHub != nil {
		h.wsHub.BroadcastSettings(scope)
	}
}
