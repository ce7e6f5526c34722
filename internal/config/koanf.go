// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fauxdash/config.yaml",
	"/etc/fauxdash/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. File and environment values
// are layered on top.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/fauxdash.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Data: DataConfig{
			Dir: "/data",
		},
		Security: SecurityConfig{
			AuthMode:           AuthModeSession,
			TokenTTL:           30 * 24 * time.Hour,
			SessionTimeout:     7 * 24 * time.Hour,
			SessionStore:       "badger",
			SessionStorePath:   "/data/sessions",
			CookieSecure:       false,
			RateLimitReqs:      300,
			RateLimitWindow:    time.Minute,
			LoginRateLimit:     10,
			CORSOrigins:        []string{},
			TrustedProxies:     []string{},
			LockoutMaxAttempts: 5,
			LockoutDuration:    15 * time.Minute,
		},
		OIDC: OIDCConfig{
			Scopes:      []string{"openid", "profile", "email"},
			GroupsClaim: "groups",
		},
		GeoIP: GeoIPConfig{
			IPAPIEnabled:  true,
			CacheTTL:      24 * time.Hour,
			LookupTimeout: 5 * time.Second,
		},
		Favicon: FaviconConfig{
			Timeout:  10 * time.Second,
			MaxBytes: 1 << 20,
			Size:     64,
			FallbackServices: []string{
				"https://www.google.com/s2/favicons?domain={host}&sz=128",
				"https://icons.duckduckgo.com/ip3/{host}.ico",
			},
			UserAgent: "FauxDash/1.0 (+https://github.com/sdenike/fauxdash)",
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			RetentionDays: 365,
			GeoEnrichment: true,
			PruneInterval: 24 * time.Hour,
		},
		Health: HealthConfig{
			Enabled:     true,
			Interval:    time.Minute,
			Timeout:     10 * time.Second,
			Concurrency: 8,
		},
		Backup: BackupConfig{
			Enabled:          false,
			Interval:         24 * time.Hour,
			RetentionCount:   7,
			CompressionLevel: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// Later layers override earlier ones.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"oidc.scopes",
	"favicon.fallback_services",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"port":             "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"base_url":         "server.base_url",
	"static_dir":       "server.static_dir",
	"environment":      "server.environment",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Data
	"data_dir":    "data.dir",
	"favicon_dir": "data.favicon_dir",

	// Security
	"auth_mode":            "security.auth_mode",
	"jwt_secret":           "security.jwt_secret",
	"token_ttl":            "security.token_ttl",
	"session_timeout":      "security.session_timeout",
	"session_store":        "security.session_store",
	"session_store_path":   "security.session_store_path",
	"cookie_secure":        "security.cookie_secure",
	"admin_username":       "security.admin_username",
	"admin_password":       "security.admin_password",
	"rate_limit_requests":  "security.rate_limit_reqs",
	"rate_limit_window":    "security.rate_limit_window",
	"disable_rate_limit":   "security.rate_limit_disabled",
	"login_rate_limit":     "security.login_rate_limit",
	"cors_origins":         "security.cors_origins",
	"trusted_proxies":      "security.trusted_proxies",
	"lockout_max_attempts": "security.lockout_max_attempts",
	"lockout_duration":     "security.lockout_duration",
	"authz_policy_path":    "security.policy_path",

	// OIDC
	"oidc_enabled":       "oidc.enabled",
	"oidc_issuer_url":    "oidc.issuer_url",
	"oidc_client_id":     "oidc.client_id",
	"oidc_client_secret": "oidc.client_secret",
	"oidc_redirect_url":  "oidc.redirect_url",
	"oidc_scopes":        "oidc.scopes",
	"oidc_admin_group":   "oidc.admin_group",
	"oidc_groups_claim":  "oidc.groups_claim",

	// GeoIP
	"geoip_mmdb_path":      "geoip.mmdb_path",
	"maxmind_account_id":   "geoip.maxmind_account_id",
	"maxmind_license_key":  "geoip.maxmind_license_key",
	"geoip_ipapi_enabled":  "geoip.ipapi_enabled",
	"geoip_cache_ttl":      "geoip.cache_ttl",
	"geoip_lookup_timeout": "geoip.lookup_timeout",

	// Favicon
	"favicon_timeout":           "favicon.timeout",
	"favicon_max_bytes":         "favicon.max_bytes",
	"favicon_size":              "favicon.size",
	"favicon_fallback_services": "favicon.fallback_services",

	// Analytics
	"analytics_enabled":        "analytics.enabled",
	"analytics_retention_days": "analytics.retention_days",
	"analytics_geo_enrichment": "analytics.geo_enrichment",
	"analytics_prune_interval": "analytics.prune_interval",

	// Health checks
	"health_check_enabled":     "health.enabled",
	"health_check_interval":    "health.interval",
	"health_check_timeout":     "health.timeout",
	"health_check_concurrency": "health.concurrency",

	// Backups
	"backup_enabled":           "backup.enabled",
	"backup_dir":               "backup.dir",
	"backup_interval":          "backup.interval",
	"backup_retention_count":   "backup.retention_count",
	"backup_compression_level": "backup.compression_level",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths. Unmapped
// variables return "" and are ignored.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
