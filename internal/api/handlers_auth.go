// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
)

// AuthStatusResponse tells the client which login screens to show.
type AuthStatusResponse struct {
	AuthMode      string            `json:"auth_mode"`
	SetupRequired bool              `json:"setup_required"`
	OIDCEnabled   bool              `json:"oidc_enabled"`
	Authenticated bool              `json:"authenticated"`
	User          *auth.AuthSubject `json:"user,omitempty"`
}

// SessionResponse is returned after a successful login or setup.
type SessionResponse struct {
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// MeResponse describes the current caller.
type MeResponse struct {
	Subject *auth.AuthSubject `json:"subject"`
	User    *models.User      `json:"user,omitempty"`
}

// TokenResponse carries a newly issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthStatus reports setup state and the current subject.
// GET /api/v1/auth/status
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	needsSetup, err := h.auth.NeedsSetup(r.Context())
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	subject := auth.GetAuthSubject(r.Context())
	NewResponseWriter(w, r).Success(AuthStatusResponse{
		AuthMode:      h.config.Security.AuthMode,
		SetupRequired: needsSetup && h.config.AuthEnabled(),
		OIDCEnabled:   h.auth.OIDC() != nil,
		Authenticated: subject != nil,
		User:          subject,
	})
}

// Setup creates the first administrator and signs them in.
// POST /api/v1/auth/setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var req models.SetupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, user, err := h.auth.Setup(r.Context(), &req, clientInfo(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.sessions.SetSessionCookie(w, session)
	NewResponseWriter(w, r).Created(SessionResponse{User: user, ExpiresAt: session.ExpiresAt})
}

// Login verifies credentials and sets the session cookie. A locked
// account answers 429 with Retry-After.
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, user, err := h.auth.Login(r.Context(), req.Username, req.Password, clientInfo(r))
	if err != nil {
		logging.Ctx(r.Context()).Info().
			Str("username", sanitizeLogValue(req.Username)).
			Str("ip", logging.MaskIP(clientIP(r))).
			Err(err).
			Msg("Login failed")
		respondError(w, r, err)
		return
	}
	h.sessions.SetSessionCookie(w, session)
	NewResponseWriter(w, r).Success(SessionResponse{User: user, ExpiresAt: session.ExpiresAt})
}

// Logout deletes the current session and clears the cookie.
// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), h.sessions.SessionIDFromRequest(r)); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete session")
	}
	h.sessions.ClearSessionCookie(w)
	NewResponseWriter(w, r).Success(map[string]bool{"logged_out": true})
}

// Me returns the subject and, for stored accounts, the user record.
// GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject := auth.GetAuthSubject(r.Context())
	if subject == nil {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return
	}

	resp := MeResponse{Subject: subject}
	if subject.UserID > 0 {
		user, err := h.db.GetUserByID(r.Context(), subject.UserID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		resp.User = user
	}
	NewResponseWriter(w, r).Success(resp)
}

// ChangePassword updates the caller's password and revokes their other
// sessions.
// POST /api/v1/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	subject := auth.GetAuthSubject(r.Context())
	if subject == nil {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return
	}
	var req models.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if subject.UserID == 0 {
		respondError(w, r, auth.ErrLocalAccountRequired)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), subject.UserID, req.CurrentPassword, req.NewPassword, subject.SessionID); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]bool{"changed": true})
}

// IssueToken returns a bearer token for scripts and widgets.
// POST /api/v1/auth/token
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	subject := auth.GetAuthSubject(r.Context())
	if subject == nil || subject.UserID == 0 {
		NewResponseWriter(w, r).Forbidden("tokens require a stored account")
		return
	}
	var req models.TokenRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	token, expires, err := h.auth.IssueToken(subject)
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable(err.Error())
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("username", subject.Username).
		Str("token_name", sanitizeLogValue(req.Name)).
		Time("expires_at", expires).
		Msg("API token issued")
	NewResponseWriter(w, r).Created(TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}

// OIDCLogin redirects to the identity provider.
// GET /api/v1/auth/oidc/login
func (h *Handler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	provider := h.auth.OIDC()
	if provider == nil {
		respondError(w, r, auth.ErrOIDCDisabled)
		return
	}
	target, err := provider.AuthorizationURL(auth.SafeRedirect(r.URL.Query().Get("redirect")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// OIDCCallback completes the code flow, sets the session cookie and
// redirects into the app. Failures redirect to the login page with an
// error code so the browser never lands on raw JSON.
// GET /api/v1/auth/oidc/callback
func (h *Handler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		logging.Ctx(r.Context()).Warn().
			Str("error", sanitizeLogValue(providerErr)).
			Str("description", sanitizeLogValue(q.Get("error_description"))).
			Msg("OIDC provider returned an error")
		http.Redirect(w, r, "/login?error="+url.QueryEscape("oidc_denied"), http.StatusFound)
		return
	}

	session, identity, err := h.auth.CompleteOIDCLogin(r.Context(), q.Get("code"), q.Get("state"), clientInfo(r))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("OIDC login failed")
		http.Redirect(w, r, "/login?error="+url.QueryEscape("oidc_failed"), http.StatusFound)
		return
	}
	h.sessions.SetSessionCookie(w, session)
	http.Redirect(w, r, auth.SafeRedirect(identity.PostLoginRedirect), http.StatusFound)
}
