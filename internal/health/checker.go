// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package health checks services that have health checks enabled and
// records whether they are up.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/models"
	ws "github.com/sdenike/fauxdash/internal/websocket"
)

const (
	userAgent       = "FauxDash-HealthCheck/1.0"
	maxDrainBytes   = 64 * 1024
	dueTolerance    = time.Second
	defaultTimeout  = 10 * time.Second
	defaultInterval = time.Minute
	defaultWorkers  = 8

	// minServiceInterval is the shortest per-service interval accepted by
	// the API. The scheduler never ticks slower than this, so short
	// per-service intervals are honored.
	minServiceInterval = 10 * time.Second
)

// Store reads check targets and records results.
type Store interface {
	ListHealthCheckTargets(ctx context.Context) ([]models.Service, error)
	UpdateServiceHealth(ctx context.Context, id int64, status string, responseMs int64, checkedAt time.Time) error
}

// Notifier is told about status transitions.
type Notifier interface {
	BroadcastHealth(data ws.HealthData)
}

// Result is the outcome of checking one service.
type Result struct {
	ServiceID      int64     `json:"service_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status"`
	StatusCode     int       `json:"status_code,omitempty"`
	ResponseMs     int64     `json:"response_ms"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`

	elapsed time.Duration
	// aborted is set when the caller's context ended mid-check. The
	// outcome says nothing about the service and is discarded.
	aborted bool
}

// Changed reports whether the check moved the service to a new state.
func (r *Result) Changed() bool {
	return r.Status != r.PreviousStatus
}

// Checker runs health checks.
type Checker struct {
	store    Store
	notifier Notifier
	client   *http.Client
	interval time.Duration
	tick     time.Duration
	timeout  time.Duration
	workers  int
	now      func() time.Time
}

// NewChecker creates a checker. notifier may be nil. A nil client gets a
// default that does not follow redirects, since any 3xx counts as up.
func NewChecker(cfg *config.HealthConfig, store Store, notifier Notifier, client *http.Client) *Checker {
	c := &Checker{
		store:    store,
		notifier: notifier,
		client:   client,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		workers:  cfg.Concurrency,
		now:      time.Now,
	}
	if c.interval <= 0 {
		c.interval = defaultInterval
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	c.tick = min(c.interval, minServiceInterval)
	if c.client == nil {
		c.client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return c
}

// RunWithContext checks due services immediately and then on every tick
// until ctx is canceled. Each service is checked once its own interval, or
// the default interval, has elapsed.
func (c *Checker) RunWithContext(ctx context.Context) error {
	logging.Info().
		Dur("interval", c.interval).
		Dur("tick", c.tick).
		Int("concurrency", c.workers).
		Msg("Health checker started")

	c.sweep(ctx)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Checker) sweep(ctx context.Context) {
	if _, err := c.CheckAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Health check sweep failed")
	}
}

// CheckAll checks every service whose own interval has elapsed, at most
// workers at a time, and returns the results. Checks cut short by ctx are
// left out.
func (c *Checker) CheckAll(ctx context.Context) ([]Result, error) {
	services, err := c.store.ListHealthCheckTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list health check targets: %w", err)
	}

	now := c.now()
	due := make([]models.Service, 0, len(services))
	for i := range services {
		if c.isDue(&services[i], now) {
			due = append(due, services[i])
		}
	}

	checked := make([]Result, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range due {
		g.Go(func() error {
			checked[i] = c.CheckService(gctx, &due[i])
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(checked))
	for _, r := range checked {
		if !r.aborted {
			results = append(results, r)
		}
	}

	c.updateStatusGauge(services, results)
	return results, ctx.Err()
}

func (c *Checker) isDue(svc *models.Service, now time.Time) bool {
	if svc.LastCheckedAt == nil {
		return true
	}
	interval := c.interval
	if svc.HealthCheckInterval > 0 {
		interval = time.Duration(svc.HealthCheckInterval) * time.Second
	}
	return now.Sub(*svc.LastCheckedAt)+dueTolerance >= interval
}

// CheckService checks one service, stores the result and broadcasts a
// transition. If ctx ends before the check completes nothing is stored and
// the returned result keeps the previous status.
func (c *Checker) CheckService(ctx context.Context, svc *models.Service) Result {
	previous := svc.HealthStatus
	if previous == "" {
		previous = models.HealthUnknown
	}

	res := c.checkURL(ctx, svc.CheckURL())
	res.ServiceID = svc.ID
	res.PreviousStatus = previous

	if ctx.Err() != nil {
		logging.Debug().Int64("service_id", svc.ID).Msg("Health check interrupted, result discarded")
		return Result{ServiceID: svc.ID, Status: previous, PreviousStatus: previous, aborted: true}
	}
	metrics.RecordHealthCheck(res.Status, res.elapsed)

	if err := c.store.UpdateServiceHealth(ctx, svc.ID, res.Status, res.ResponseMs, res.CheckedAt); err != nil {
		logging.Error().Err(err).Int64("service_id", svc.ID).Msg("Failed to store health check result")
	}

	if res.Changed() {
		logging.Info().
			Int64("service_id", svc.ID).
			Str("service", svc.Name).
			Str("from", previous).
			Str("to", res.Status).
			Msg("Service health changed")
		if c.notifier != nil {
			c.notifier.BroadcastHealth(ws.HealthData{
				ServiceID:      svc.ID,
				Status:         res.Status,
				PreviousStatus: previous,
				ResponseMs:     res.ResponseMs,
				CheckedAt:      res.CheckedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	return res
}

// checkURL issues a GET and classifies the response: 2xx and 3xx are up,
// anything else, including transport errors, is down.
func (c *Checker) checkURL(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res := Result{Status: models.HealthDown}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		res.Error = err.Error()
		res.CheckedAt = c.now()
		res.elapsed = time.Since(start)
		return res
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	res.elapsed = time.Since(start)
	res.ResponseMs = res.elapsed.Milliseconds()
	res.CheckedAt = c.now()

	if err != nil {
		res.Error = err.Error()
	} else {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
		res.StatusCode = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			res.Status = models.HealthUp
		} else {
			res.Error = resp.Status
		}
	}
	return res
}

// updateStatusGauge counts services by their status after the sweep.
func (c *Checker) updateStatusGauge(services []models.Service, results []Result) {
	latest := make(map[int64]string, len(services))
	for i := range services {
		status := services[i].HealthStatus
		if status == "" {
			status = models.HealthUnknown
		}
		latest[services[i].ID] = status
	}
	for _, r := range results {
		latest[r.ServiceID] = r.Status
	}

	counts := map[string]float64{models.HealthUp: 0, models.HealthDown: 0, models.HealthUnknown: 0}
	for _, status := range latest {
		counts[status]++
	}
	for status, n := range counts {
		metrics.ServicesByStatus.WithLabelValues(status).Set(n)
	}
}
