// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minJWTSecretLength is the shortest accepted signing secret.
const minJWTSecretLength = 32

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateOIDC(); err != nil {
		return err
	}
	if err := c.validateGeoIP(); err != nil {
		return err
	}
	if err := c.validateFavicon(); err != nil {
		return err
	}
	if err := c.validateSchedules(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Server.BaseURL != "" {
		if err := validateHTTPURL(c.Server.BaseURL); err != nil {
			return fmt.Errorf("BASE_URL is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthModeSession, AuthModeNone:
	default:
		return fmt.Errorf("AUTH_MODE must be one of: session, none (got %q)", c.Security.AuthMode)
	}

	switch c.Security.SessionStore {
	case "memory", "badger":
	default:
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger (got %q)", c.Security.SessionStore)
	}
	if c.Security.SessionStore == "badger" && c.Security.SessionStorePath == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
	}

	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.IsProduction() && c.AuthEnabled() && c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	if c.Security.LockoutMaxAttempts < 0 {
		return fmt.Errorf("LOCKOUT_MAX_ATTEMPTS must not be negative")
	}
	if (c.Security.AdminUsername == "") != (c.Security.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" && c.IsProduction() {
			return fmt.Errorf("CORS_ORIGINS=* is not allowed in production")
		}
	}
	return nil
}

func (c *Config) validateOIDC() error {
	if !c.OIDC.Enabled {
		return nil
	}
	if c.OIDC.IssuerURL == "" || c.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_ISSUER_URL and OIDC_CLIENT_ID are required when OIDC_ENABLED=true")
	}
	if err := validateHTTPURL(c.OIDC.IssuerURL); err != nil {
		return fmt.Errorf("OIDC_ISSUER_URL is invalid: %w", err)
	}
	if c.OIDC.RedirectURL == "" && c.Server.BaseURL == "" {
		return fmt.Errorf("OIDC_REDIRECT_URL or BASE_URL is required when OIDC_ENABLED=true")
	}
	return nil
}

func (c *Config) validateGeoIP() error {
	if (c.GeoIP.MaxMindAccountID == "") != (c.GeoIP.MaxMindLicenseKey == "") {
		return fmt.Errorf("MAXMIND_ACCOUNT_ID and MAXMIND_LICENSE_KEY must be set together")
	}
	if c.GeoIP.CacheTTL < 0 {
		return fmt.Errorf("GEOIP_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateFavicon() error {
	if c.Favicon.Size < 16 || c.Favicon.Size > 512 {
		return fmt.Errorf("FAVICON_SIZE must be between 16 and 512, got %d", c.Favicon.Size)
	}
	if c.Favicon.MaxBytes <= 0 {
		return fmt.Errorf("FAVICON_MAX_BYTES must be positive")
	}
	for _, tmpl := range c.Favicon.FallbackServices {
		if !strings.Contains(tmpl, "{host}") {
			return fmt.Errorf("favicon fallback service %q must contain {host}", tmpl)
		}
	}
	return nil
}

func (c *Config) validateSchedules() error {
	if c.Health.Enabled {
		if c.Health.Interval <= 0 || c.Health.Timeout <= 0 {
			return fmt.Errorf("HEALTH_CHECK_INTERVAL and HEALTH_CHECK_TIMEOUT must be positive")
		}
		if c.Health.Concurrency < 1 {
			return fmt.Errorf("HEALTH_CHECK_CONCURRENCY must be at least 1")
		}
	}
	if c.Analytics.RetentionDays < 0 {
		return fmt.Errorf("ANALYTICS_RETENTION_DAYS must not be negative")
	}
	if c.Backup.Enabled && c.Backup.Interval <= 0 {
		return fmt.Errorf("BACKUP_INTERVAL must be positive when BACKUP_ENABLED=true")
	}
	if c.Backup.CompressionLevel < -1 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("BACKUP_COMPRESSION_LEVEL must be between -1 and 9")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be a valid level (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks that raw is an absolute http(s) URL.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
