// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Analytics Pipeline Metrics
	ClicksRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fauxdash_clicks_recorded_total",
			Help: "Total number of click events persisted",
		},
		[]string{"kind"}, // "bookmark", "service"
	)

	PageviewsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fauxdash_pageviews_recorded_total",
			Help: "Total number of pageview events persisted",
		},
	)

	AnalyticsEventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fauxdash_analytics_events_failed_total",
			Help: "Total number of analytics events that could not be published or persisted",
		},
		[]string{"topic", "stage"}, // stage: "publish", "decode", "persist"
	)

	AnalyticsRowsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fauxdash_analytics_rows_pruned_total",
			Help: "Total number of analytics rows removed by retention",
		},
	)

	// GeoIP Metrics
	GeoIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoip_lookups_total",
			Help: "Total number of GeoIP provider lookups",
		},
		[]string{"provider", "result"}, // result: "success", "error", "not_found"
	)

	GeoIPLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoip_lookup_duration_seconds",
			Help:    "Duration of GeoIP provider lookups in seconds",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"provider"},
	)

	// Favicon Metrics
	FaviconFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favicon_fetches_total",
			Help: "Total number of favicon fetch attempts by source",
		},
		[]string{"source", "result"}, // source: "html", "direct", fallback service name, "upload"
	)

	FaviconFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "favicon_fetch_duration_seconds",
			Help:    "End-to-end favicon fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache", "tier"}, // tier: "memory", "database"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Service Health Metrics
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_health_checks_total",
			Help: "Total number of service health checks by outcome",
		},
		[]string{"status"}, // "up", "down"
	)

	HealthCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "service_health_check_duration_seconds",
			Help:    "Service health check response time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ServicesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "services_by_health_status",
			Help: "Number of health-checked services in each status after the last sweep",
		},
		[]string{"status"},
	)

	// WebSocket Metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"message_type"},
	)

	WebSocketErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Auth Metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"method", "result"}, // method: "password", "oidc"; result: "success", "failure", "locked"
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_active_sessions",
			Help: "Number of unexpired sessions after the last cleanup",
		},
	)

	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_total",
			Help: "Total number of backup operations",
		},
		[]string{"operation", "result"}, // operation: "create", "restore", "delete"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Duration of backup creation in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_last_success_timestamp",
			Help: "Unix timestamp of the last successful backup",
		},
	)

	BackupSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_last_size_bytes",
			Help: "Size of the most recent backup archive in bytes",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordGeoIPLookup records one provider lookup.
func RecordGeoIPLookup(provider, result string, duration time.Duration) {
	GeoIPLookups.WithLabelValues(provider, result).Inc()
	GeoIPLookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFaviconFetch records one candidate fetch.
func RecordFaviconFetch(source string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	FaviconFetches.WithLabelValues(source, result).Inc()
}

// RecordCacheHit records a hit in a cache tier.
func RecordCacheHit(cache, tier string) {
	CacheHits.WithLabelValues(cache, tier).Inc()
}

// RecordCacheMiss records a miss across every tier of a cache.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordHealthCheck records the outcome of one service check.
func RecordHealthCheck(status string, duration time.Duration) {
	HealthChecks.WithLabelValues(status).Inc()
	HealthCheckDuration.Observe(duration.Seconds())
}

// RecordBackup records a backup operation. size is only used for successful
// creates.
func RecordBackup(operation string, duration time.Duration, size int64, err error) {
	if err != nil {
		BackupsTotal.WithLabelValues(operation, "failure").Inc()
		return
	}
	BackupsTotal.WithLabelValues(operation, "success").Inc()
	if operation == "create" {
		BackupDuration.Observe(duration.Seconds())
		BackupSizeBytes.Set(float64(size))
		BackupLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordLogin records a login attempt.
func RecordLogin(method, result string) {
	LoginAttempts.WithLabelValues(method, result).Inc()
}

// SetAppInfo publishes the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// UpdateUptime sets the uptime gauge from the process start time.
func UpdateUptime(start time.Time) {
	AppUptime.Set(time.Since(start).Seconds())
}
