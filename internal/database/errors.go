// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("already exists")

	// ErrInvalidReorder is returned when a reorder request does not list
	// exactly the members of the target group.
	ErrInvalidReorder = errors.New("reorder ids do not match group members")

	// ErrLastAdmin is returned when an operation would leave no administrator.
	ErrLastAdmin = errors.New("cannot remove the last administrator")

	// ErrInvalidCategory is returned when an item references a category of
	// the wrong kind or a missing category.
	ErrInvalidCategory = errors.New("invalid category")
)

// closeQuietly closes a resource on an error path where the Close error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// isTransactionConflict reports whether err is a DuckDB optimistic
// concurrency conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update")
}

// isUniqueViolation reports whether err is a unique or primary key violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Duplicate key") ||
		strings.Contains(errStr, "violates unique constraint") ||
		strings.Contains(errStr, "violates primary key constraint")
}
