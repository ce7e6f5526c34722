// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package backup

import (
	"context"
	"errors"
	"time"

	"github.com/sdenike/fauxdash/internal/logging"
)

// RunWithContext takes a scheduled backup every interval until ctx is
// canceled. The first run is timed from the newest completed backup so a
// restart does not reset the schedule. With scheduling disabled it idles
// until ctx is canceled.
func (m *Manager) RunWithContext(ctx context.Context) error {
	if !m.enabled {
		<-ctx.Done()
		return ctx.Err()
	}

	next := m.NextScheduled()
	logging.Info().
		Dur("interval", m.interval).
		Time("next", next).
		Int("retention_count", m.retentionCount).
		Msg("Backup scheduler started")

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			m.runScheduled(ctx)
			timer.Reset(m.interval)
		}
	}
}

func (m *Manager) runScheduled(ctx context.Context) {
	if _, err := m.CreateBackup(ctx, TriggerScheduled, "Scheduled backup"); err != nil {
		if errors.Is(err, ErrBackupInProgress) {
			logging.Warn().Msg("Skipping scheduled backup, another operation is running")
			return
		}
		if ctx.Err() == nil {
			logging.Error().Err(err).Msg("Scheduled backup failed")
		}
	}
	m.ApplyRetention()

	now := m.now().UTC()
	m.indexMu.Lock()
	m.index.LastScheduled = &now
	if err := m.saveIndexLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to save backup index")
	}
	m.indexMu.Unlock()
}

// NextScheduled returns when the scheduler will take its next backup.
func (m *Manager) NextScheduled() time.Time {
	now := m.now()

	m.indexMu.RLock()
	var last time.Time
	for _, b := range m.index.Backups {
		if b.Status == StatusCompleted && b.CreatedAt.After(last) {
			last = b.CreatedAt
		}
	}
	m.indexMu.RUnlock()

	if last.IsZero() {
		return now.Add(time.Minute)
	}
	if next := last.Add(m.interval); next.After(now) {
		return next
	}
	return now.Add(time.Minute)
}
