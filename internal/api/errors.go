// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/backup"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/favicon"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/transfer"
)

// respondError maps a domain error to a status code and error code.
// Unknown errors are logged and reported as internal errors without
// their text.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var lockout *auth.LockoutError
	switch {
	case errors.As(err, &lockout):
		secs := int(math.Ceil(lockout.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		rw.ErrorWithDetails(http.StatusTooManyRequests, ErrCodeTooManyRequests, auth.ErrAccountLocked.Error(),
			map[string]int{"retry_after_seconds": secs})

	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, backup.ErrBackupNotFound):
		rw.NotFound(err.Error())

	case errors.Is(err, database.ErrConflict),
		errors.Is(err, database.ErrLastAdmin),
		errors.Is(err, auth.ErrSetupComplete),
		errors.Is(err, backup.ErrBackupInProgress):
		rw.Conflict(err.Error())

	case errors.Is(err, database.ErrInvalidReorder),
		errors.Is(err, database.ErrInvalidCategory),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrLocalAccountRequired),
		errors.Is(err, transfer.ErrMissingColumns),
		errors.Is(err, transfer.ErrTooManyRows),
		errors.Is(err, transfer.ErrInvalidMode),
		errors.Is(err, favicon.ErrInvalidURL),
		errors.Is(err, favicon.ErrUnsupportedType),
		errors.Is(err, backup.ErrChecksumMismatch),
		errors.Is(err, backup.ErrNotRestorable),
		errors.Is(err, backup.ErrNoDatabaseFile):
		rw.BadRequest(err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		rw.Unauthorized(err.Error())

	case errors.Is(err, auth.ErrOIDCDisabled):
		rw.NotFound(err.Error())

	case errors.Is(err, favicon.ErrNoIcon),
		errors.Is(err, auth.ErrTokenExchangeFailed):
		rw.ExternalServiceError("upstream", err)

	case errors.Is(err, context.DeadlineExceeded):
		rw.ServiceUnavailable("request timed out")

	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		logging.Ctx(r.Context()).Debug().Msg("Request canceled")

	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Request failed")
		rw.InternalError("An internal error occurred")
	}
}
