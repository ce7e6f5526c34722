// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package main

import (
	"fmt"

	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/logging"
)

// withDatabase opens the configured database for one command and closes it
// afterwards.
func withDatabase(fn func(db *database.DB) error) error {
	db, err := database.New(&appConfig.Database)
	if err != nil {
		return fmt.Errorf("open database %s: %w", appConfig.Database.Path, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	return fn(db)
}
