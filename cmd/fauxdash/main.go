// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package main is the entry point for the FauxDash server and its
// administrative commands.
//
// FauxDash is a self-hosted start page: categorized bookmarks and services,
// service health checks, favicon fetching, click and pageview analytics
// with geolocation, backups, and CSV import/export.
//
// # Application Architecture
//
// The serve command initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Pending restore: a staged backup replaces the database before it opens
//  3. Database: DuckDB with schema migrations
//  4. Authentication: session store, local accounts, optional OIDC
//  5. Background services: WebSocket hub, analytics pipeline, health checker
//  6. Backup Manager: scheduled archives with retention
//  7. HTTP Server: REST API, WebSocket and optional static frontend
//
// Every long-running component runs under a suture supervisor tree and is
// restarted on failure.
//
// # Commands
//
//	fauxdash [serve]                      Run the server (default)
//	fauxdash user create <name> [--admin] Add a local account
//	fauxdash user passwd <name>           Reset a password
//	fauxdash user list                    List accounts
//	fauxdash export <kind> <file>         Write bookmarks or services as CSV
//	fauxdash import <kind> <file>         Read bookmarks or services from CSV
//	fauxdash backup create|list           Manage backups offline
//
// Commands other than serve open the database directly, so the server
// should be stopped first: DuckDB allows one writer process.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains
// in-flight requests, the analytics pipeline flushes, and the database is
// closed after the supervisor tree stops.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	appConfig  *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "fauxdash",
	Short:         "Self-hosted start page and dashboard",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Run the server when no subcommand is given.
	RunE:              runServe,
	PersistentPreRunE: loadConfig,
}

// loadConfig loads configuration once for every command and configures
// logging from it.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	appConfig = cfg
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (or set CONFIG_PATH)")

	userCreateCmd.Flags().Bool("admin", false, "Grant the admin role")
	userCreateCmd.Flags().String("email", "", "Email address")
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userListCmd)

	importCmd.Flags().String("mode", "append", "append or replace")

	backupCreateCmd.Flags().String("notes", "", "Notes stored with the backup")
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
