// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdenike/fauxdash/internal/database"
	"github.com/sdenike/fauxdash/internal/models"
	"github.com/sdenike/fauxdash/internal/transfer"
)

// stdio selects standard input or output instead of a file.
const stdio = "-"

var exportCmd = &cobra.Command{
	Use:   "export <bookmark|service> <file>",
	Short: "Export bookmarks or services as CSV",
	Long:  `Export bookmarks or services as CSV. Use "-" to write to standard output.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <bookmark|service> <file>",
	Short: "Import bookmarks or services from CSV",
	Long: `Import bookmarks or services from CSV. Use "-" to read standard input.

With --mode replace every existing item of the kind is deleted first.
Rows that fail validation are skipped and reported.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func parseKind(raw string) (models.ItemKind, error) {
	kind := models.ItemKind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "s"))
	if !kind.Valid() {
		return "", fmt.Errorf("kind must be bookmark or service, got %q", raw)
	}
	return kind, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if args[1] != stdio {
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return withDatabase(func(db *database.DB) error {
		n, err := transfer.Export(cmd.Context(), db, kind, out)
		if err != nil {
			return err
		}
		if args[1] != stdio {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d %ss to %s\n", n, kind, args[1])
		}
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")

	var in io.Reader = cmd.InOrStdin()
	if args[1] != stdio {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	return withDatabase(func(db *database.DB) error {
		result, err := transfer.Import(cmd.Context(), db, kind, models.ImportMode(mode), in)
		if err != nil {
			return err
		}
		printImportResult(cmd.OutOrStdout(), result)
		return nil
	})
}

func printImportResult(w io.Writer, r *models.ImportResult) {
	fmt.Fprintf(w, "Imported %d %ss (%s), %d new categories, %d skipped\n",
		r.Created, r.Kind, r.Mode, r.CategoriesCreated, r.Skipped)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  row %d: %s\n", e.Row, e.Message)
	}
}
