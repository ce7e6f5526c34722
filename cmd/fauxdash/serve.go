// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdenike/fauxdash/internal/analytics"
	"github.com/sdenike/fauxdash/internal/api"
	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/authz"
	"github.com/sdenike/fauxdash/internal/backup"
	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/favicon"
	"github.com/sdenike/fauxdash/internal/geoip"
	"github.com/sdenike/fauxdash/internal/health"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/supervisor"
	"github.com/sdenike/fauxdash/internal/supervisor/services"
	ws "github.com/sdenike/fauxdash/internal/websocket"
)

const (
	sessionCleanupInterval = 15 * time.Minute
	uptimeInterval         = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FauxDash server",
	RunE:  runServe,
}

//nolint:gocyclo // sequential component setup
func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	startedAt := time.Now()

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting FauxDash with supervisor tree")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if restored, err := backup.ApplyPendingRestore(cfg.Database.Path); err != nil {
		return fmt.Errorf("apply pending restore: %w", err)
	} else if restored {
		logging.Warn().Msg("Database replaced by a staged restore")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	backup.AppVersion = version
	metrics.SetAppInfo(version)

	// === AUTHENTICATION ===
	sessions, err := auth.NewSessionStore(&cfg.Security)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	authSvc, err := auth.NewService(&cfg.Security, db, sessions)
	if err != nil {
		return fmt.Errorf("initialize authentication: %w", err)
	}
	if err := authSvc.EnsureAdmin(ctx, cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
		return err
	}

	if cfg.OIDC.Enabled {
		provider, err := auth.NewOIDCProvider(ctx, &cfg.OIDC, nil)
		if err != nil {
			// Local login keeps working while the issuer is unreachable.
			logging.Error().Err(err).Str("issuer", cfg.OIDC.IssuerURL).Msg("OIDC discovery failed, single sign-on disabled")
		} else {
			authSvc.SetOIDCProvider(provider)
			logging.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("OIDC login enabled")
		}
	}

	if !cfg.AuthEnabled() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  Every visitor has full administrative access.")
		logging.Warn().Msg("============================================================")
	}
	if cfg.Security.SessionStore == auth.SessionStoreMemory && cfg.IsProduction() {
		logging.Warn().Msg("Session store is 'memory': sessions are lost on restart. Consider SESSION_STORE=badger")
	}

	mwCfg := auth.DefaultSessionMiddlewareConfig()
	mwCfg.SessionTTL = cfg.Security.SessionTimeout
	mwCfg.CookieSecure = cfg.Security.CookieSecure
	mwCfg.Disabled = !cfg.AuthEnabled()
	sessionMW := auth.NewSessionMiddleware(sessions, authSvc, mwCfg)

	enforcer, err := authz.NewEnforcer(cfg.Security.PolicyPath)
	if err != nil {
		return fmt.Errorf("load authorization policy: %w", err)
	}

	// === BACKGROUND COMPONENTS ===
	wsHub := ws.NewHub()

	resolver, err := geoip.NewFromConfig(&cfg.GeoIP, db)
	if err != nil {
		return fmt.Errorf("initialize geolocation: %w", err)
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing GeoIP resolver")
		}
	}()

	pipelineCfg := analytics.DefaultPipelineConfig()
	var locator analytics.Locator
	if cfg.Analytics.GeoEnrichment && resolver.HasProviders() {
		locator = resolver
		if cfg.GeoIP.LookupTimeout > 0 {
			pipelineCfg.LookupTimeout = cfg.GeoIP.LookupTimeout
		}
	} else {
		pipelineCfg.LookupTimeout = 0
	}
	pipeline := analytics.NewPipeline(pipelineCfg, db, locator, wsHub)
	recorder := analytics.NewRecorder(pipeline, cfg.Analytics.Enabled)
	pruner := analytics.NewPruner(db, cfg.Analytics.RetentionDays, cfg.GeoIP.CacheTTL, cfg.Analytics.PruneInterval)

	favicons, err := favicon.New(&cfg.Favicon, cfg.FaviconPath(), db)
	if err != nil {
		return fmt.Errorf("initialize favicon service: %w", err)
	}

	deps := api.Dependencies{
		DB:       db,
		Config:   cfg,
		Auth:     authSvc,
		Sessions: sessionMW,
		Recorder: recorder,
		Favicons: favicons,
		Hub:      wsHub,
		Version:  version,
	}

	var checker *health.Checker
	if cfg.Health.Enabled {
		checker = health.NewChecker(&cfg.Health, db, wsHub, nil)
		deps.Checker = checker
	}

	// Leave deps.Backups as a nil interface when the manager is unavailable.
	backupManager, err := backup.NewManager(cfg, db)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to initialize backup manager, backups disabled")
		backupManager = nil
	} else {
		deps.Backups = backupManager
		logging.Info().
			Str("dir", backupManager.Dir()).
			Bool("schedule_enabled", cfg.Backup.Enabled).
			Msg("Backup manager initialized")
	}

	// === HTTP SERVER ===
	handler := api.NewHandler(deps)
	chiMW := api.NewChiMiddleware(api.ChiMiddlewareConfigFromConfig(cfg))
	router := api.NewRouter(handler, sessionMW, authz.NewMiddleware(enforcer), chiMW, cfg.Server.StaticDir)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	addServices(tree, cfg, servicesSet{
		hub:       wsHub,
		pipeline:  pipeline,
		pruner:    pruner,
		checker:   checker,
		backups:   backupManager,
		auth:      authSvc,
		server:    server,
		startedAt: startedAt,
	})

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}
	tree.LogUnstopped()

	logging.Info().Msg("Application stopped gracefully")
	return nil
}

// servicesSet collects the long-running components handed to the tree.
// checker and backups may be nil.
type servicesSet struct {
	hub       *ws.Hub
	pipeline  *analytics.Pipeline
	pruner    *analytics.Pruner
	checker   *health.Checker
	backups   *backup.Manager
	auth      *auth.Service
	server    *http.Server
	startedAt time.Time
}

func addServices(tree *supervisor.SupervisorTree, cfg *config.Config, s servicesSet) {
	// Data layer
	if cfg.Analytics.Enabled {
		tree.AddDataService(services.NewRunnerService("analytics-pipeline", s.pipeline))
		tree.AddDataService(services.NewRunnerService("analytics-pruner", s.pruner))
	} else {
		logging.Info().Msg("Analytics disabled (ANALYTICS_ENABLED=false)")
	}
	if s.backups != nil {
		tree.AddDataService(services.NewRunnerService("backup-scheduler", s.backups))
	}

	// Background layer
	tree.AddBackgroundService(services.NewRunnerService("websocket-hub", s.hub))
	if s.checker != nil {
		tree.AddBackgroundService(services.NewRunnerService("health-checker", s.checker))
	}
	tree.AddBackgroundService(services.NewFuncService("session-cleanup", func(ctx context.Context) error {
		return s.auth.RunCleanup(ctx, sessionCleanupInterval)
	}))
	tree.AddBackgroundService(services.NewFuncService("uptime", func(ctx context.Context) error {
		return trackUptime(ctx, s.startedAt)
	}))

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(s.server, cfg.Server.ShutdownTimeout))
}

// trackUptime refreshes the uptime gauge until ctx is canceled.
func trackUptime(ctx context.Context, startedAt time.Time) error {
	ticker := time.NewTicker(uptimeInterval)
	defer ticker.Stop()
	for {
		metrics.UpdateUptime(startedAt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
