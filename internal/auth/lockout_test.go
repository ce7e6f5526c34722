// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests move the lockout manager through time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLockout(max int, base time.Duration) (*LockoutManager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewLockoutManager(LockoutConfig{
		MaxAttempts:        max,
		LockoutDuration:    base,
		MaxLockoutDuration: 8 * base,
	})
	m.now = clock.now
	return m, clock
}

func TestLockout_LocksAfterMaxAttempts(t *testing.T) {
	m, _ := newTestLockout(3, time.Minute)

	for i := 1; i <= 2; i++ {
		if locked, _ := m.RecordFailedAttempt("alice", "10.0.0.1"); locked {
			t.Fatalf("locked after %d attempts", i)
		}
	}
	locked, d := m.RecordFailedAttempt("Alice", "10.0.0.1")
	if !locked || d != time.Minute {
		t.Fatalf("third attempt = %v, %v; want locked for 1m", locked, d)
	}
	if locked, _ := m.CheckLocked("ALICE"); !locked {
		t.Error("CheckLocked() is not case-insensitive")
	}
	if locked, _ := m.CheckLocked("bob"); locked {
		t.Error("unrelated user locked")
	}
}

func TestLockout_ExponentialBackoff(t *testing.T) {
	m, clock := newTestLockout(1, time.Minute)

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 8 * time.Minute, 8 * time.Minute}
	for i, w := range want {
		locked, d := m.RecordFailedAttempt("alice", "")
		if !locked || d != w {
			t.Fatalf("lockout %d = %v, %v; want %v", i, locked, d, w)
		}
		clock.advance(d + time.Second)
		if locked, _ := m.CheckLocked("alice"); locked {
			t.Fatalf("still locked after lockout %d expired", i)
		}
	}
}

func TestLockout_AttemptWhileLockedDoesNotExtend(t *testing.T) {
	m, clock := newTestLockout(1, time.Minute)
	m.RecordFailedAttempt("alice", "")
	clock.advance(30 * time.Second)

	locked, remaining := m.RecordFailedAttempt("alice", "")
	if !locked || remaining != 30*time.Second {
		t.Errorf("attempt while locked = %v, %v; want true, 30s", locked, remaining)
	}
}

func TestLockout_SuccessClears(t *testing.T) {
	m, _ := newTestLockout(3, time.Minute)
	m.RecordFailedAttempt("alice", "")
	m.RecordFailedAttempt("alice", "")
	m.RecordSuccessfulLogin("alice")

	if locked, _ := m.RecordFailedAttempt("alice", ""); locked {
		t.Error("counter not reset by successful login")
	}
}

func TestLockout_Disabled(t *testing.T) {
	m, _ := newTestLockout(0, time.Minute)
	for i := 0; i < 10; i++ {
		if locked, _ := m.RecordFailedAttempt("alice", ""); locked {
			t.Fatal("locked with lockout disabled")
		}
	}
}

func TestLockout_CleanupAndList(t *testing.T) {
	m, clock := newTestLockout(1, time.Minute)
	m.RecordFailedAttempt("alice", "")
	if got := m.GetLockedAccounts(); len(got) != 1 || got[0].Subject != "alice" {
		t.Fatalf("GetLockedAccounts() = %+v", got)
	}
	if n := m.CleanupExpired(context.Background()); n != 0 {
		t.Errorf("CleanupExpired() removed a locked entry")
	}

	clock.advance(25 * time.Hour)
	if n := m.CleanupExpired(context.Background()); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}
	if got := m.GetLockedAccounts(); len(got) != 0 {
		t.Errorf("GetLockedAccounts() after cleanup = %+v", got)
	}
}
