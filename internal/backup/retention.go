// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package backup

import (
	"sort"
	"time"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
)

// ApplyRetention keeps the newest retentionCount completed backups and
// deletes older ones. Failed records are kept only while they are among the
// retentionCount newest entries. A non-positive retentionCount keeps
// everything. It returns the number of deleted backups.
func (m *Manager) ApplyRetention() int {
	if m.retentionCount <= 0 {
		return 0
	}
	start := time.Now()

	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	sorted := make([]*Backup, len(m.index.Backups))
	copy(sorted, m.index.Backups)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	keep := make([]*Backup, 0, len(sorted))
	completed := 0
	deleted := 0
	for i, b := range sorted {
		switch {
		case b.Status == StatusInProgress:
			keep = append(keep, b)
			continue
		case b.Status == StatusCompleted && completed < m.retentionCount:
			completed++
			keep = append(keep, b)
			continue
		case b.Status == StatusFailed && i < m.retentionCount:
			keep = append(keep, b)
			continue
		}

		if err := m.removeArchive(b); err != nil {
			logging.Warn().Err(err).Str("backup_id", b.ID).Msg("Failed to delete expired backup")
			keep = append(keep, b)
			continue
		}
		deleted++
		logging.Debug().Str("backup_id", b.ID).Str("file", b.FileName).Msg("Deleted expired backup")
	}

	if deleted == 0 {
		return 0
	}

	m.index.Backups = keep
	if err := m.saveIndexLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to save backup index")
	}
	metrics.RecordBackup("retention", time.Since(start), 0, nil)
	logging.Info().Int("deleted", deleted).Int("kept", len(keep)).Msg("Applied backup retention")
	return deleted
}
