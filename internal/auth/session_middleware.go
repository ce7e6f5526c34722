// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "fauxdash_session"

// TokenAuthenticator resolves a bearer token to a subject.
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*AuthSubject, error)
}

// SessionMiddlewareConfig holds configuration for the session middleware.
type SessionMiddlewareConfig struct {
	CookieName string

	// SessionTTL is the session lifetime. With SlidingSession each
	// authenticated request pushes expiry SessionTTL into the future.
	SessionTTL     time.Duration
	SlidingSession bool

	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// Disabled injects an administrator subject into every request.
	Disabled bool
}

// DefaultSessionMiddlewareConfig returns sensible defaults.
func DefaultSessionMiddlewareConfig() *SessionMiddlewareConfig {
	return &SessionMiddlewareConfig{
		CookieName:     SessionCookieName,
		SessionTTL:     24 * time.Hour,
		SlidingSession: true,
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware provides session-based authentication middleware.
type SessionMiddleware struct {
	store  SessionStore
	tokens TokenAuthenticator
	config *SessionMiddlewareConfig
}

// NewSessionMiddleware creates a new session middleware. tokens may be nil
// to disable bearer tokens.
func NewSessionMiddleware(store SessionStore, tokens TokenAuthenticator, config *SessionMiddlewareConfig) *SessionMiddleware {
	if config == nil {
		config = DefaultSessionMiddlewareConfig()
	}
	if config.CookieName == "" {
		config.CookieName = SessionCookieName
	}
	return &SessionMiddleware{
		store:  store,
		tokens: tokens,
		config: config,
	}
}

// anonymousAdmin is the subject used when authentication is disabled.
var anonymousAdmin = AuthSubject{
	Username:   "admin",
	Role:       models.RoleAdmin,
	Provider:   models.ProviderLocal,
	AuthMethod: AuthMethodNone,
}

// Authenticate resolves the caller from a bearer token or the session
// cookie and stores the subject in the request context. Requests without
// valid credentials continue as guests.
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.Disabled {
			subject := anonymousAdmin
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), &subject)))
			return
		}

		if token := bearerToken(r); token != "" && m.tokens != nil {
			subject, err := m.tokens.AuthenticateToken(r.Context(), token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Bearer token rejected")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
			return
		}

		sessionID := m.extractSessionID(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r.Context(), sessionID)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Session lookup error")
			}
			m.ClearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		if m.config.SlidingSession {
			newExpiry := time.Now().Add(m.config.SessionTTL)
			if touchErr := m.store.Touch(r.Context(), sessionID, newExpiry); touchErr != nil {
				logging.Ctx(r.Context()).Error().Err(touchErr).Msg("Failed to touch session")
			}
		}

		ctx := ContextWithSubject(r.Context(), session.ToAuthSubject())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects guests with 401. It expects Authenticate to have run.
func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthSubject(r.Context()) == nil {
			RespondAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware requiring role or higher. Guests get 401,
// authenticated users without the role get 403.
func (m *SessionMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetAuthSubject(r.Context())
			if subject == nil {
				RespondAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !subject.HasRole(role) {
				RespondAuthError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (m *SessionMiddleware) extractSessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.config.CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// SessionIDFromRequest returns the session cookie value, if any.
func (m *SessionMiddleware) SessionIDFromRequest(r *http.Request) string {
	return m.extractSessionID(r)
}

// SetSessionCookie sets the session cookie on the response.
func (m *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    session.ID,
		Path:     m.config.CookiePath,
		MaxAge:   int(m.config.SessionTTL.Seconds()),
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}

// ClearSessionCookie clears the session cookie.
func (m *SessionMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}
