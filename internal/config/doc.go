// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package config loads FauxDash configuration.
//
// # Sources
//
// Values are layered, later sources winning:
//  1. built-in defaults (defaultConfig)
//  2. an optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths
//     that exists
//  3. environment variables
//
// Environment variables use flat names such as HTTP_PORT, DUCKDB_PATH or
// AUTH_MODE, mapped to koanf paths by envTransformFunc. List settings
// (CORS origins, trusted proxies, OIDC scopes, favicon fallbacks) accept
// comma-separated values.
//
// # Validation
//
// Load validates the merged result before returning it. Validation fails on
// inconsistent combinations, such as OIDC enabled without an issuer or a
// production deployment with authentication but no JWT secret, rather than
// correcting them silently.
package config
