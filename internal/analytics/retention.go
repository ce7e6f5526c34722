// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package analytics

import (
	"context"
	"time"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
)

// PruneStore deletes expired analytics and cached geolocation rows.
type PruneStore interface {
	PruneAnalytics(ctx context.Context, before time.Time) (int64, error)
	DeleteStaleGeolocations(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner enforces the analytics retention window.
type Pruner struct {
	store     PruneStore
	retention time.Duration
	geoTTL    time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewPruner creates a pruner keeping retentionDays of events. A
// non-positive retentionDays keeps events forever. Cached geolocations
// older than geoTTL are removed on the same schedule when geoTTL > 0.
func NewPruner(store PruneStore, retentionDays int, geoTTL, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Pruner{
		store:     store,
		retention: retention,
		geoTTL:    geoTTL,
		interval:  interval,
		now:       time.Now,
	}
}

// RunWithContext prunes once immediately and then on every interval until
// ctx is canceled.
func (p *Pruner) RunWithContext(ctx context.Context) error {
	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes expired rows and returns the number of analytics rows
// removed. Errors are logged.
func (p *Pruner) PruneOnce(ctx context.Context) int64 {
	now := p.now()
	var removed int64

	if p.retention > 0 {
		n, err := p.store.PruneAnalytics(ctx, now.Add(-p.retention))
		if err != nil {
			logging.Error().Err(err).Msg("Failed to prune analytics")
		} else {
			removed = n
			metrics.AnalyticsRowsPruned.Add(float64(n))
			if n > 0 {
				logging.Info().Int64("rows", n).Dur("retention", p.retention).Msg("Pruned analytics events")
			}
		}
	}

	if p.geoTTL > 0 {
		n, err := p.store.DeleteStaleGeolocations(ctx, now.Add(-p.geoTTL))
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to prune geolocation cache")
		} else if n > 0 {
			logging.Debug().Int64("rows", n).Msg("Pruned stale geolocations")
		}
	}
	return removed
}
