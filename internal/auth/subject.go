// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package auth provides authentication for the dashboard: password hashing,
// server-side sessions (memory or BadgerDB), login lockout, bearer API
// tokens and optional OIDC single sign-on.
//
// Authenticated callers are represented by an AuthSubject stored in the
// request context by SessionMiddleware.Authenticate. Handlers read it with
// GetAuthSubject; a nil subject means an anonymous guest.
package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/sdenike/fauxdash/internal/models"
)

// AuthMethod records how a subject was authenticated.
type AuthMethod string

const (
	// AuthMethodSession is a cookie-backed server-side session.
	AuthMethodSession AuthMethod = "session"

	// AuthMethodToken is a bearer JWT.
	AuthMethodToken AuthMethod = "token"

	// AuthMethodNone is the synthetic admin used when authentication is
	// disabled.
	AuthMethodNone AuthMethod = "none"
)

// Standard authentication errors
var (
	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned when authentication is blocked due to lockout.
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed attempts")

	// ErrSetupComplete is returned by Setup once any user exists.
	ErrSetupComplete = errors.New("setup has already been completed")

	// ErrWeakPassword is returned when a password fails the policy.
	ErrWeakPassword = errors.New("password does not meet requirements")

	// ErrLocalAccountRequired is returned for password operations on
	// accounts managed by an identity provider.
	ErrLocalAccountRequired = errors.New("operation requires a local account")
)

type contextKey string

// AuthSubjectContextKey is the context key holding the *AuthSubject.
const AuthSubjectContextKey contextKey = "auth_subject"

// AuthSubject is an authenticated user as seen by handlers and the
// authorization layer.
type AuthSubject struct {
	UserID     int64      `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email,omitempty"`
	Role       string     `json:"role"`
	Provider   string     `json:"provider"`
	AuthMethod AuthMethod `json:"auth_method"`
	SessionID  string     `json:"-"`
}

// roleRank orders roles for HasRole comparisons.
var roleRank = map[string]int{
	models.RoleGuest: 0,
	models.RoleUser:  1,
	models.RoleAdmin: 2,
}

// HasRole reports whether the subject holds role or a more privileged one.
func (s *AuthSubject) HasRole(role string) bool {
	if s == nil {
		return role == models.RoleGuest
	}
	want, ok := roleRank[role]
	if !ok {
		return false
	}
	return roleRank[s.Role] >= want
}

// IsAdmin reports whether the subject is an administrator.
func (s *AuthSubject) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

// ID returns the user ID as a string, the form sessions index by.
func (s *AuthSubject) ID() string {
	return strconv.FormatInt(s.UserID, 10)
}

// SubjectFromUser builds a subject from a stored account.
func SubjectFromUser(u *models.User, method AuthMethod) *AuthSubject {
	return &AuthSubject{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Provider:   u.Provider,
		AuthMethod: method,
	}
}

// GetAuthSubject returns the subject stored in ctx, or nil for guests.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	subject, _ := ctx.Value(AuthSubjectContextKey).(*AuthSubject)
	return subject
}

// ContextWithSubject returns a copy of ctx carrying subject.
func ContextWithSubject(ctx context.Context, subject *AuthSubject) context.Context {
	return context.WithValue(ctx, AuthSubjectContextKey, subject)
}

// RoleOf returns the subject's role, or guest for anonymous requests.
func RoleOf(ctx context.Context) string {
	if s := GetAuthSubject(ctx); s != nil {
		return s.Role
	}
	return models.RoleGuest
}

// UserIDOf returns the subject's user ID, or 0 for anonymous requests.
func UserIDOf(ctx context.Context) int64 {
	if s := GetAuthSubject(ctx); s != nil {
		return s.UserID
	}
	return 0
}
