// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package config

import (
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Data      DataConfig      `koanf:"data"`
	Security  SecurityConfig  `koanf:"security"`
	OIDC      OIDCConfig      `koanf:"oidc"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	Favicon   FaviconConfig   `koanf:"favicon"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Health    HealthConfig    `koanf:"health"`
	Backup    BackupConfig    `koanf:"backup"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// BaseURL is the externally visible URL, used for OIDC redirects.
	BaseURL string `koanf:"base_url"`
	// StaticDir optionally serves a built frontend at "/".
	StaticDir   string `koanf:"static_dir"`
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// DataConfig locates on-disk state other than the database.
type DataConfig struct {
	Dir        string `koanf:"dir"`
	FaviconDir string `koanf:"favicon_dir"`
}

// SecurityConfig holds authentication and request-limiting settings.
type SecurityConfig struct {
	// AuthMode is "session" (login required for admin features) or "none".
	AuthMode         string        `koanf:"auth_mode"`
	JWTSecret        string        `koanf:"jwt_secret"`
	TokenTTL         time.Duration `koanf:"token_ttl"`
	SessionTimeout   time.Duration `koanf:"session_timeout"`
	SessionStore     string        `koanf:"session_store"`
	SessionStorePath string        `koanf:"session_store_path"`
	CookieSecure     bool          `koanf:"cookie_secure"`

	// AdminUsername and AdminPassword seed the first admin on startup when no
	// users exist.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	LoginRateLimit    int           `koanf:"login_rate_limit"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`

	LockoutMaxAttempts int           `koanf:"lockout_max_attempts"`
	LockoutDuration    time.Duration `koanf:"lockout_duration"`

	// PolicyPath overrides the embedded authorization policy.
	PolicyPath string `koanf:"policy_path"`
}

// OIDCConfig configures optional single sign-on.
type OIDCConfig struct {
	Enabled      bool     `koanf:"enabled"`
	IssuerURL    string   `koanf:"issuer_url"`
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	RedirectURL  string   `koanf:"redirect_url"`
	Scopes       []string `koanf:"scopes"`
	// AdminGroup members are granted the admin role on login.
	AdminGroup  string `koanf:"admin_group"`
	GroupsClaim string `koanf:"groups_claim"`
}

// GeoIPConfig configures the geolocation provider chain.
type GeoIPConfig struct {
	MMDBPath          string        `koanf:"mmdb_path"`
	MaxMindAccountID  string        `koanf:"maxmind_account_id"`
	MaxMindLicenseKey string        `koanf:"maxmind_license_key"`
	IPAPIEnabled      bool          `koanf:"ipapi_enabled"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	LookupTimeout     time.Duration `koanf:"lookup_timeout"`
}

// FaviconConfig configures the favicon fetcher.
type FaviconConfig struct {
	Timeout  time.Duration `koanf:"timeout"`
	MaxBytes int64         `koanf:"max_bytes"`
	Size     int           `koanf:"size"`
	// FallbackServices are URL templates; "{host}" is replaced with the
	// target hostname.
	FallbackServices []string `koanf:"fallback_services"`
	UserAgent        string   `koanf:"user_agent"`
}

// AnalyticsConfig configures click and pageview tracking.
type AnalyticsConfig struct {
	Enabled       bool `koanf:"enabled"`
	RetentionDays int  `koanf:"retention_days"`
	GeoEnrichment bool `koanf:"geo_enrichment"`
	// PruneInterval controls how often old events are deleted.
	PruneInterval time.Duration `koanf:"prune_interval"`
}

// HealthConfig configures service health checks.
type HealthConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Interval    time.Duration `koanf:"interval"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

// BackupConfig configures archives of the database and favicon directory.
type BackupConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Dir              string        `koanf:"dir"`
	Interval         time.Duration `koanf:"interval"`
	RetentionCount   int           `koanf:"retention_count"`
	CompressionLevel int           `koanf:"compression_level"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// FaviconPath returns the directory favicons are stored in.
func (c *Config) FaviconPath() string {
	if c.Data.FaviconDir != "" {
		return c.Data.FaviconDir
	}
	return filepath.Join(c.Data.Dir, "favicons")
}

// BackupPath returns the directory backups are written to.
func (c *Config) BackupPath() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(c.Data.Dir, "backups")
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// AuthEnabled reports whether login is required for protected routes.
func (c *Config) AuthEnabled() bool {
	return c.Security.AuthMode != AuthModeNone
}

// Supported authentication modes.
const (
	AuthModeSession = "session"
	AuthModeNone    = "none"
)
