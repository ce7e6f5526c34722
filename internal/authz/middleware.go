// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package authz

import (
	"net/http"
	"strings"
	"time"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/logging"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{
		enforcer: enforcer,
	}
}

// AuthorizeRequest derives the action from the HTTP method and checks the
// caller's role against the request path. Guests that are denied get 401
// so the client can prompt for login; signed-in users get 403.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		role := auth.RoleOf(r.Context())
		action := methodToAction(r.Method)

		allowed, err := m.enforcer.Enforce(role, r.URL.Path, action)
		recordDecision(role, r.URL.Path, action, allowed, time.Since(start))
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			auth.RespondAuthError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization failed")
			return
		}

		if !allowed {
			if auth.GetAuthSubject(r.Context()) == nil {
				auth.RespondAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			auth.RespondAuthError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

// resourcePattern reduces a path to its first segment after the API
// prefix so metric labels stay bounded.
func resourcePattern(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return "other"
	}
	first, _, _ := strings.Cut(rest, "/")
	if first == "" {
		return "/api/v1"
	}
	return "/api/v1/" + first
}
