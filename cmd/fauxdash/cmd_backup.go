// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sdenike/fauxdash/internal/backup"
	"github.com/sdenike/fauxdash/internal/database"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and list backups while the server is stopped",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Archive the database and favicons",
	Args:  cobra.NoArgs,
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

func runBackupCreate(cmd *cobra.Command, _ []string) error {
	notes, _ := cmd.Flags().GetString("notes")
	backup.AppVersion = version

	return withDatabase(func(db *database.DB) error {
		m, err := backup.NewManager(appConfig, db)
		if err != nil {
			return err
		}
		b, err := m.CreateBackup(cmd.Context(), backup.TriggerManual, notes)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s (%d bytes) in %s\n", b.ID, b.FileSize, m.Dir())
		return nil
	})
}

// runBackupList reads the index only; the database is not opened.
func runBackupList(cmd *cobra.Command, _ []string) error {
	m, err := backup.NewManager(appConfig, nil)
	if err != nil {
		return err
	}
	return printBackups(cmd.OutOrStdout(), m.ListBackups())
}

func printBackups(w io.Writer, backups []*backup.Backup) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTRIGGER\tSTATUS\tSIZE")
	for _, b := range backups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.Trigger, b.Status, b.FileSize)
	}
	return tw.Flush()
}
