// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/models"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]*models.User)}
}

func (s *memUsers) CountUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *memUsers) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return nil, database.ErrConflict
		}
	}
	s.nextID++
	stored := *u
	stored.ID = s.nextID
	stored.CreatedAt = time.Now()
	s.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *memUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			out := *u
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *memUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUsers) TouchLogin(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (s *memUsers) UpsertOIDCUser(ctx context.Context, username, email, role string) (*models.User, error) {
	if u, err := s.GetUserByUsername(ctx, username); err == nil {
		s.mu.Lock()
		s.users[u.ID].Role = role
		s.users[u.ID].Email = email
		s.mu.Unlock()
		return s.GetUserByID(ctx, u.ID)
	}
	return s.CreateUser(ctx, &models.User{Username: username, Email: email, Role: role, Provider: models.ProviderOIDC})
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		AuthMode:           config.AuthModeSession,
		JWTSecret:          "test-secret-that-is-at-least-32-characters",
		TokenTTL:           time.Hour,
		SessionTimeout:     time.Hour,
		LockoutMaxAttempts: 3,
		LockoutDuration:    time.Minute,
	}
}

func newTestService(t *testing.T) (*Service, *memUsers, *MemorySessionStore) {
	t.Helper()
	users := newMemUsers()
	sessions := NewMemorySessionStore()
	svc, err := NewService(testSecurityConfig(), users, sessions)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, users, sessions
}

func mustCreateUser(t *testing.T, svc *Service, username, password, role string) *models.User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), &models.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", username, err)
	}
	return u
}
