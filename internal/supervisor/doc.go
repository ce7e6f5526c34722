// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

/*
Package supervisor runs the long-lived FauxDash components under a suture v4
supervisor tree.

The tree has three layers so that a crashing background job never takes the
HTTP server down with it:

	RootSupervisor ("fauxdash")
	├── DataSupervisor ("data-layer")
	│   ├── analytics-pipeline
	│   ├── analytics-pruner (if analytics retention is set)
	│   └── backup-scheduler (if backups are enabled)
	├── BackgroundSupervisor ("background-layer")
	│   ├── websocket-hub
	│   ├── health-checker (if health checks are enabled)
	│   └── session-cleanup
	└── APISupervisor ("api-layer")
	    └── http-server

Supervisor events (starts, failures, backoff) are logged through sutureslog
into the zerolog-backed slog logger from the logging package.

Typical wiring in main:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewRunnerService("analytics-pipeline", pipeline))
	tree.AddBackgroundService(services.NewRunnerService("websocket-hub", hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
