// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/models"
)

// UserStore is the subset of the database used for accounts.
type UserStore interface {
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLogin(ctx context.Context, id int64) error
	UpsertOIDCUser(ctx context.Context, username, email, role string) (*models.User, error)
}

// LockoutError is returned by Login while an account is locked.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrAccountLocked, e.RetryAfter.Round(time.Second))
}

// Is matches ErrAccountLocked.
func (e *LockoutError) Is(target error) bool {
	return target == ErrAccountLocked
}

// ClientInfo describes the client performing a login.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// Login methods recorded in metrics.
const (
	loginMethodPassword = "password"
	loginMethodOIDC     = "oidc"
	loginMethodToken    = "token"
)

// Service implements account login, setup and password management on top
// of the user store and session store.
type Service struct {
	users      UserStore
	sessions   SessionStore
	lockout    *LockoutManager
	tokens     *JWTManager
	oidc       *OIDCProvider
	sessionTTL time.Duration

	// setupMu serializes first-admin creation.
	setupMu sync.Mutex
}

// NewService wires the auth service from the security config.
func NewService(cfg *config.SecurityConfig, users UserStore, sessions SessionStore) (*Service, error) {
	s := &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: cfg.SessionTimeout,
		lockout: NewLockoutManager(LockoutConfig{
			MaxAttempts:     cfg.LockoutMaxAttempts,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 24 * time.Hour
	}
	if cfg.JWTSecret != "" {
		tokens, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		s.tokens = tokens
	}
	return s, nil
}

// SetOIDCProvider enables single sign-on.
func (s *Service) SetOIDCProvider(p *OIDCProvider) {
	s.oidc = p
}

// OIDC returns the configured provider, or nil.
func (s *Service) OIDC() *OIDCProvider {
	return s.oidc
}

// Lockout exposes the lockout manager for admin endpoints.
func (s *Service) Lockout() *LockoutManager {
	return s.lockout
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// NeedsSetup reports whether no account exists yet.
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Login verifies a username and password and opens a session.
func (s *Service) Login(ctx context.Context, username, password string, client ClientInfo) (*Session, *models.User, error) {
	if locked, remaining := s.lockout.CheckLocked(username); locked {
		metrics.RecordLogin(loginMethodPassword, "locked")
		return nil, nil, &LockoutError{RetryAfter: remaining}
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		equalizeTiming(password)
		return nil, nil, s.loginFailed(username, client)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if user.Provider != models.ProviderLocal {
		equalizeTiming(password)
		return nil, nil, s.loginFailed(username, client)
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			return nil, nil, err
		}
		return nil, nil, s.loginFailed(username, client)
	}

	s.lockout.RecordSuccessfulLogin(username)
	session, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordLogin(loginMethodPassword, "success")
	return session, user, nil
}

func (s *Service) loginFailed(username string, client ClientInfo) error {
	metrics.RecordLogin(loginMethodPassword, "failure")
	logging.Warn().
		Str("username", username).
		Str("ip", logging.MaskIP(client.IPAddress)).
		Msg("Failed login attempt")

	if locked, remaining := s.lockout.RecordFailedAttempt(username, client.IPAddress); locked {
		return &LockoutError{RetryAfter: remaining}
	}
	return ErrInvalidCredentials
}

// openSession records the login and stores a fresh session.
func (s *Service) openSession(ctx context.Context, user *models.User, client ClientInfo) (*Session, error) {
	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		logging.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to record login time")
	}

	session, err := NewSession(SubjectFromUser(user, AuthMethodSession), s.sessionTTL)
	if err != nil {
		return nil, err
	}
	session.IPAddress = client.IPAddress
	session.UserAgent = logging.TruncateUserAgent(client.UserAgent)

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	logging.Info().
		Str("username", user.Username).
		Str("provider", user.Provider).
		Msg("User logged in")
	return session, nil
}

// Logout deletes a session. Unknown IDs are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Setup creates the first administrator and logs them in. It fails with
// ErrSetupComplete once any account exists.
func (s *Service) Setup(ctx context.Context, req *models.SetupRequest, client ClientInfo) (*Session, *models.User, error) {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	needed, err := s.NeedsSetup(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !needed {
		return nil, nil, ErrSetupComplete
	}

	user, err := s.createLocalUser(ctx, req.Username, req.Email, req.Password, models.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("username", user.Username).Msg("Initial administrator created")

	session, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// EnsureAdmin seeds an administrator from configuration when the user
// table is empty. It is a no-op when either value is blank or users exist.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	needed, err := s.NeedsSetup(ctx)
	if err != nil || !needed {
		return err
	}
	if _, err := s.createLocalUser(ctx, username, "", password, models.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logging.Info().Str("username", username).Msg("Seeded administrator from configuration")
	return nil
}

// CreateUser adds a local account.
func (s *Service) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	return s.createLocalUser(ctx, req.Username, req.Email, req.Password, req.Role)
}

func (s *Service) createLocalUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.CreateUser(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Provider:     models.ProviderLocal,
	})
}

// ChangePassword verifies the current password, stores the new one and
// revokes every other session of the user.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next, keepSessionID string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Provider != models.ProviderLocal {
		return ErrLocalAccountRequired
	}
	if err := CheckPassword(user.PasswordHash, current); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, next); err != nil {
		return err
	}

	if err := s.revokeOtherSessions(ctx, user.ID, keepSessionID); err != nil {
		logging.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to revoke sessions after password change")
	}
	return nil
}

// SetPassword replaces a user's password without the current one and
// revokes all their sessions. Used by admins and the CLI.
func (s *Service) SetPassword(ctx context.Context, userID int64, password string) error {
	if err := s.setPassword(ctx, userID, password); err != nil {
		return err
	}
	_, err := s.RevokeUserSessions(ctx, userID)
	return err
}

func (s *Service) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *Service) revokeOtherSessions(ctx context.Context, userID int64, keep string) error {
	if keep == "" {
		_, err := s.RevokeUserSessions(ctx, userID)
		return err
	}
	kept, err := s.sessions.Get(ctx, keep)
	if err != nil {
		kept = nil
	}
	if _, err := s.RevokeUserSessions(ctx, userID); err != nil {
		return err
	}
	if kept != nil && kept.UserID == strconv.FormatInt(userID, 10) {
		return s.sessions.Create(ctx, kept)
	}
	return nil
}

// RevokeUserSessions deletes every session of a user.
func (s *Service) RevokeUserSessions(ctx context.Context, userID int64) (int, error) {
	return s.sessions.DeleteByUserID(ctx, strconv.FormatInt(userID, 10))
}

// IssueToken signs a bearer token for the subject.
func (s *Service) IssueToken(subject *AuthSubject) (string, time.Time, error) {
	if s.tokens == nil {
		return "", time.Time{}, errors.New("api tokens are not configured")
	}
	return s.tokens.GenerateToken(subject)
}

// AuthenticateToken validates a bearer token and reloads the user so that
// role changes and deletions take effect immediately.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*AuthSubject, error) {
	if s.tokens == nil {
		return nil, ErrInvalidCredentials
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		metrics.RecordLogin(loginMethodToken, "failure")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.ToAuthSubject().UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return SubjectFromUser(user, AuthMethodToken), nil
}

// CompleteOIDCLogin finishes the authorization code flow, provisions the
// local account and opens a session.
func (s *Service) CompleteOIDCLogin(ctx context.Context, code, state string, client ClientInfo) (*Session, *OIDCIdentity, error) {
	if s.oidc == nil {
		return nil, nil, ErrOIDCDisabled
	}
	identity, err := s.oidc.Exchange(ctx, code, state)
	if err != nil {
		metrics.RecordLogin(loginMethodOIDC, "failure")
		return nil, nil, err
	}

	user, err := s.users.UpsertOIDCUser(ctx, identity.Username, identity.Email, identity.Role)
	if err != nil {
		metrics.RecordLogin(loginMethodOIDC, "failure")
		return nil, nil, fmt.Errorf("provision oidc user: %w", err)
	}

	session, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordLogin(loginMethodOIDC, "success")
	return session, identity, nil
}

// RunCleanup periodically purges expired sessions and idle lockout
// entries until ctx is canceled.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.cleanupOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cleanupOnce(ctx)
		}
	}
}

func (s *Service) cleanupOnce(ctx context.Context) {
	removed, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Session cleanup error")
	} else if removed > 0 {
		logging.Info().Int("count", removed).Msg("Cleaned up expired sessions")
	}

	if n := s.lockout.CleanupExpired(ctx); n > 0 {
		logging.Debug().Int("count", n).Msg("Cleaned up lockout entries")
	}

	if count, err := s.sessions.Count(ctx); err == nil {
		metrics.ActiveSessions.Set(float64(count))
	}
}
