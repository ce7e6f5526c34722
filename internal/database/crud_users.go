// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sdenike/fauxdash/internal/models"
)

const userColumns = `id, username, COALESCE(email, ''), COALESCE(password_hash, ''), role,
	provider, created_at, updated_at, last_login_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Provider, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func getUserWhere(ctx context.Context, q queryer, where string, arg any) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a user. The caller hashes the password. Usernames are
// unique regardless of case; a clash returns ErrConflict.
func (db *DB) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	role := u.Role
	if role == "" {
		role = models.RoleUser
	}
	provider := u.Provider
	if provider == "" {
		provider = models.ProviderLocal
	}
	now := time.Now().UTC()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	var created *models.User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUsernameFree(ctx, tx, u.Username); err != nil {
			return err
		}
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (username, email, password_hash, role, provider, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			u.Username, nullIfEmpty(u.Email), nullIfEmpty(u.PasswordHash), role, provider, now, now,
		).Scan(&id)
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		created, err = getUserWhere(ctx, tx, `id = ?`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ensureUsernameFree returns ErrConflict when a user with the same
// case-folded name exists.
func ensureUsernameFree(ctx context.Context, q queryer, username string) error {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE lower(username) = lower(?)`, username).Scan(&n); err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("user %q: %w", username, ErrConflict)
	}
	return nil
}

// GetUserByUsername looks up a user case-insensitively.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getUserWhere(ctx, db.conn, `lower(username) = lower(?) ORDER BY id LIMIT 1`, username)
}

// GetUserByID returns a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getUserWhere(ctx, db.conn, `id = ?`, id)
}

// ListUsers returns all users ordered by username.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountAdmins returns the number of administrators.
func (db *DB) CountAdmins(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return countAdmins(ctx, db.conn)
}

func countAdmins(ctx context.Context, q queryer) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, models.RoleAdmin).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

// UpdatePassword replaces a user's password hash.
func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUser applies the non-nil fields of req. Demoting the last
// administrator returns ErrLastAdmin.
func (db *DB) UpdateUser(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	var updated *models.User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		u, err := getUserWhere(ctx, tx, `id = ?`, id)
		if err != nil {
			return err
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.Role != nil && *req.Role != u.Role {
			if u.Role == models.RoleAdmin {
				admins, err := countAdmins(ctx, tx)
				if err != nil {
					return err
				}
				if admins <= 1 {
					return ErrLastAdmin
				}
			}
			u.Role = *req.Role
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET email = ?, role = ?, updated_at = ? WHERE id = ?`,
			nullIfEmpty(u.Email), u.Role, time.Now().UTC(), id); err != nil {
			return fmt.Errorf("failed to update user %d: %w", id, err)
		}
		updated, err = getUserWhere(ctx, tx, `id = ?`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user and their setting overrides. Deleting the last
// administrator returns ErrLastAdmin.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		u, err := getUserWhere(ctx, tx, `id = ?`, id)
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			admins, err := countAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete settings of user %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, err)
		}
		return nil
	})
}

// TouchLogin records a successful login.
func (db *DB) TouchLogin(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx,
			`UPDATE users SET last_login_at = ? WHERE id = ?`, time.Now().UTC(), id)
		return err
	})
}

// UpsertOIDCUser creates or updates the local account for an OIDC identity.
// The role is refreshed from the identity provider on each login unless that
// would demote the last administrator.
func (db *DB) UpsertOIDCUser(ctx context.Context, username, email, role string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	var result *models.User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		existing, err := getUserWhere(ctx, tx, `lower(username) = lower(?) ORDER BY id LIMIT 1`, username)
		if errors.Is(err, ErrNotFound) {
			var id int64
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO users (username, email, role, provider, created_at, updated_at, last_login_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				RETURNING id`,
				username, nullIfEmpty(email), role, models.ProviderOIDC, now, now, now,
			).Scan(&id); err != nil {
				return fmt.Errorf("failed to create oidc user: %w", err)
			}
			result, err = getUserWhere(ctx, tx, `id = ?`, id)
			return err
		}
		if err != nil {
			return err
		}
		if existing.Provider != models.ProviderOIDC {
			return fmt.Errorf("user %q is a local account: %w", username, ErrConflict)
		}

		newRole := role
		if existing.IsAdmin() && role != models.RoleAdmin {
			admins, err := countAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				newRole = existing.Role
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET email = ?, role = ?, updated_at = ?, last_login_at = ?
			WHERE id = ?`, nullIfEmpty(email), newRole, now, now, existing.ID); err != nil {
			return fmt.Errorf("failed to update oidc user: %w", err)
		}
		result, err = getUserWhere(ctx, tx, `id = ?`, existing.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
