// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/models"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local accounts",
	Long: `Manage local accounts without the web interface.

Available subcommands:
  create - Add a local account
  passwd - Reset a local account's password
  list   - List all accounts`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Add a local account",
	Long: `Add a local account. The password is prompted for on a terminal,
or read from the first line of standard input otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserCreate,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Reset a local account's password",
	Long: `Reset a local account's password and sign the account out of every
session. OIDC accounts have no local password and are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserPasswd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

// withAuthService opens the database and session store for the duration
// of fn.
func withAuthService(fn func(db *database.DB, svc *auth.Service) error) error {
	return withDatabase(func(db *database.DB) error {
		sessions, err := auth.NewSessionStore(&appConfig.Security)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		defer sessions.Close()

		svc, err := auth.NewService(&appConfig.Security, db, sessions)
		if err != nil {
			return err
		}
		return fn(db, svc)
	})
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	admin, _ := cmd.Flags().GetBool("admin")
	email, _ := cmd.Flags().GetString("email")

	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	role := models.RoleUser
	if admin {
		role = models.RoleAdmin
	}

	return withAuthService(func(_ *database.DB, svc *auth.Service) error {
		user, err := svc.CreateUser(cmd.Context(), &models.CreateUserRequest{
			Username: args[0],
			Email:    email,
			Password: password,
			Role:     role,
		})
		if err != nil {
			return fmt.Errorf("create user %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (id %d)\n", user.Role, user.Username, user.ID)
		return nil
	})
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	return withAuthService(func(db *database.DB, svc *auth.Service) error {
		user, err := db.GetUserByUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("user %s: %w", args[0], err)
		}
		if user.Provider != models.ProviderLocal {
			return fmt.Errorf("user %s signs in with %s and has no local password", user.Username, user.Provider)
		}
		if err := svc.SetPassword(cmd.Context(), user.ID, password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %q\n", user.Username)
		return nil
	})
}

func runUserList(cmd *cobra.Command, _ []string) error {
	return withDatabase(func(db *database.DB) error {
		users, err := db.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		return printUsers(cmd.OutOrStdout(), users)
	})
}

func printUsers(w io.Writer, users []models.User) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tPROVIDER\tLAST LOGIN")
	for _, u := range users {
		lastLogin := "never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.Provider, lastLogin)
	}
	return tw.Flush()
}

// readPassword prompts twice on a terminal. Otherwise it reads one line
// from in so scripts can pipe a password in.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		fmt.Fprint(prompt, "Confirm password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), auth.ValidatePassword(string(first))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	return password, auth.ValidatePassword(password)
}
