// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sdenike/fauxdash/internal/logging"
)

// LockoutConfig holds configuration for account lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of failures that triggers a lockout. Zero
	// disables lockout.
	MaxAttempts int

	// LockoutDuration is the first lockout period. Each further lockout of
	// the same subject doubles it up to MaxLockoutDuration.
	LockoutDuration    time.Duration
	MaxLockoutDuration time.Duration

	// RetainFor is how long an unlocked entry is kept before cleanup.
	RetainFor time.Duration
}

// DefaultLockoutConfig returns the defaults used when config leaves fields
// unset.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		MaxLockoutDuration: 24 * time.Hour,
		RetainFor:          24 * time.Hour,
	}
}

// LockoutEntry tracks failed attempts for one subject.
type LockoutEntry struct {
	Subject        string
	FailedAttempts int
	LockoutCount   int
	LockedUntil    time.Time
	LastAttempt    time.Time
	LastFailedIP   string
}

// IsLocked reports whether the entry is currently locked.
func (e *LockoutEntry) IsLocked() bool {
	return time.Now().Before(e.LockedUntil)
}

// LockoutManager counts failed logins per username and locks the account
// with exponential backoff once MaxAttempts is reached. Entries live in
// memory and reset on restart.
type LockoutManager struct {
	mu      sync.Mutex
	config  LockoutConfig
	entries map[string]*LockoutEntry
	now     func() time.Time
}

// NewLockoutManager creates a lockout manager.
func NewLockoutManager(cfg LockoutConfig) *LockoutManager {
	def := DefaultLockoutConfig()
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.MaxLockoutDuration < cfg.LockoutDuration {
		cfg.MaxLockoutDuration = def.MaxLockoutDuration
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = def.RetainFor
	}
	return &LockoutManager{
		config:  cfg,
		entries: make(map[string]*LockoutEntry),
		now:     time.Now,
	}
}

func lockoutKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CheckLocked reports whether username is locked and for how much longer.
func (m *LockoutManager) CheckLocked(username string) (bool, time.Duration) {
	if m.config.MaxAttempts <= 0 {
		return false, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[lockoutKey(username)]
	if !ok {
		return false, 0
	}
	now := m.now()
	if now.Before(entry.LockedUntil) {
		return true, entry.LockedUntil.Sub(now)
	}
	return false, 0
}

// calculateLockoutDuration doubles the base duration for each previous
// lockout.
func (m *LockoutManager) calculateLockoutDuration(lockoutCount int) time.Duration {
	duration := m.config.LockoutDuration
	for i := 0; i < lockoutCount; i++ {
		duration *= 2
		if duration >= m.config.MaxLockoutDuration {
			return m.config.MaxLockoutDuration
		}
	}
	return duration
}

// RecordFailedAttempt counts a failure and returns whether the account is
// now locked and for how long.
func (m *LockoutManager) RecordFailedAttempt(username, ip string) (bool, time.Duration) {
	if m.config.MaxAttempts <= 0 {
		return false, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := lockoutKey(username)
	entry, ok := m.entries[key]
	if !ok {
		entry = &LockoutEntry{Subject: key}
		m.entries[key] = entry
	}

	now := m.now()
	if now.Before(entry.LockedUntil) {
		return true, entry.LockedUntil.Sub(now)
	}

	entry.FailedAttempts++
	entry.LastAttempt = now
	entry.LastFailedIP = ip
	if entry.FailedAttempts < m.config.MaxAttempts {
		return false, 0
	}

	duration := m.calculateLockoutDuration(entry.LockoutCount)
	entry.LockedUntil = now.Add(duration)
	entry.LockoutCount++
	entry.FailedAttempts = 0

	logging.Warn().
		Str("username", key).
		Str("ip", logging.MaskIP(ip)).
		Dur("duration", duration).
		Int("lockout_count", entry.LockoutCount).
		Msg("Account locked")

	return true, duration
}

// RecordSuccessfulLogin clears the lockout state for username.
func (m *LockoutManager) RecordSuccessfulLogin(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, lockoutKey(username))
}

// ClearLockout manually clears a lockout (admin action).
func (m *LockoutManager) ClearLockout(username string) {
	m.RecordSuccessfulLogin(username)
	logging.Info().Str("username", lockoutKey(username)).Msg("Manually cleared lockout")
}

// GetLockedAccounts returns copies of all currently locked entries.
func (m *LockoutManager) GetLockedAccounts() []LockoutEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var locked []LockoutEntry
	for _, entry := range m.entries {
		if now.Before(entry.LockedUntil) {
			locked = append(locked, *entry)
		}
	}
	return locked
}

// CleanupExpired drops unlocked entries idle for longer than RetainFor.
func (m *LockoutManager) CleanupExpired(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	threshold := now.Add(-m.config.RetainFor)
	count := 0
	for key, entry := range m.entries {
		if !now.Before(entry.LockedUntil) && entry.LastAttempt.Before(threshold) {
			delete(m.entries, key)
			count++
		}
	}
	return count
}
