// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"net/http"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
)

// SetPasswordRequest is an administrator's password reset for another
// account.
type SetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=200"`
}

// ListUsers returns all accounts.
// GET /api/v1/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	NewResponseWriter(w, r).List(users, len(users))
}

// CreateUser adds a local account.
// POST /api/v1/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.auth.CreateUser(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Int64("user_id", user.ID).
		Str("role", user.Role).
		Int64("by", auth.UserIDOf(r.Context())).
		Msg("User created")
	NewResponseWriter(w, r).Created(user)
}

// UpdateUser changes an account's email or role. A role change signs the
// user out everywhere.
// PUT /api/v1/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	before, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.db.UpdateUser(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if user.Role != before.Role {
		revoked, err := h.auth.RevokeUserSessions(r.Context(), id)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Int64("user_id", id).Msg("Failed to revoke sessions after role change")
		}
		logging.Ctx(r.Context()).Info().
			Int64("user_id", id).
			Str("from", before.Role).
			Str("to", user.Role).
			Int("sessions_revoked", revoked).
			Msg("User role changed")
	}
	NewResponseWriter(w, r).Success(user)
}

// ResetUserPassword sets a new password for a local account and revokes
// its sessions.
// PUT /api/v1/users/{id}/password
func (h *Handler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req SetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if user.Provider != models.ProviderLocal {
		respondError(w, r, auth.ErrLocalAccountRequired)
		return
	}
	if err := h.auth.SetPassword(r.Context(), id, req.Password); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// DeleteUser removes an account. Administrators cannot delete themselves.
// DELETE /api/v1/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if id == auth.UserIDOf(r.Context()) {
		NewResponseWriter(w, r).Conflict("you cannot delete your own account")
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.auth.RevokeUserSessions(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int64("user_id", id).Msg("Failed to revoke sessions of deleted user")
	}
	NewResponseWriter(w, r).NoContent()
}
