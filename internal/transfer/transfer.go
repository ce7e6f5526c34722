// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

// Package transfer exports bookmarks and services to CSV and imports them
// back. Columns are matched by header name, case-insensitively, so files
// edited in a spreadsheet or produced by other tools import as long as they
// carry at least name and url columns.
package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
	"github.com/sdenike/fauxdash/internal/validation"
)

// Column names.
const (
	ColCategory           = "category"
	ColName               = "name"
	ColURL                = "url"
	ColDescription        = "description"
	ColIcon               = "icon"
	ColSortOrder          = "sort_order"
	ColIsVisible          = "is_visible"
	ColOpenInNewTab       = "open_in_new_tab"
	ColHealthCheckEnabled = "health_check_enabled"
	ColHealthCheckURL     = "health_check_url"
)

// DefaultCategory holds rows that name no category.
const DefaultCategory = "Imported"

// MaxImportRows bounds a single import.
const MaxImportRows = 10000

// Name limits match the API's request validation.
const (
	MaxCategoryNameLength = 100
	MaxItemNameLength     = 200
)

var (
	// ErrMissingColumns is returned when the header lacks name or url.
	ErrMissingColumns = errors.New("csv header must contain name and url columns")
	// ErrTooManyRows is returned when a file exceeds MaxImportRows.
	ErrTooManyRows = fmt.Errorf("csv has more than %d rows", MaxImportRows)
	// ErrInvalidMode is returned for an unknown import mode.
	ErrInvalidMode = errors.New("import mode must be append or replace")
)

// Store reads and writes items in bulk.
type Store interface {
	ExportItems(ctx context.Context, kind models.ItemKind) ([]models.TransferItem, error)
	ImportItems(ctx context.Context, kind models.ItemKind, mode models.ImportMode, items []models.TransferItem) (created, categoriesCreated int, err error)
}

// Columns returns the export header for kind.
func Columns(kind models.ItemKind) []string {
	cols := []string{
		ColCategory, ColName, ColURL, ColDescription, ColIcon,
		ColSortOrder, ColIsVisible, ColOpenInNewTab,
	}
	if kind == models.KindService {
		cols = append(cols, ColHealthCheckEnabled, ColHealthCheckURL)
	}
	return cols
}

// Export writes every item of kind to w and returns the number of rows.
func Export(ctx context.Context, store Store, kind models.ItemKind, w io.Writer) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown item kind %q", kind)
	}
	items, err := store.ExportItems(ctx, kind)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(kind)); err != nil {
		return 0, err
	}
	for i := range items {
		if err := cw.Write(toRecord(kind, &items[i])); err != nil {
			return i, err
		}
	}
	cw.Flush()
	return len(items), cw.Error()
}

func toRecord(kind models.ItemKind, it *models.TransferItem) []string {
	rec := []string{
		it.Category,
		it.Name,
		it.URL,
		it.Description,
		it.Icon,
		strconv.Itoa(it.SortOrder),
		strconv.FormatBool(it.IsVisible),
		strconv.FormatBool(it.OpenInNewTab),
	}
	if kind == models.KindService {
		rec = append(rec, strconv.FormatBool(it.HealthCheckEnabled), it.HealthCheckURL)
	}
	return rec
}

// Import parses r and stores the valid rows. Rows with a missing name or an
// invalid URL are skipped and reported; the rest are written in a single
// transaction.
func Import(ctx context.Context, store Store, kind models.ItemKind, mode models.ImportMode, r io.Reader) (*models.ImportResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	switch mode {
	case "":
		mode = models.ImportAppend
	case models.ImportAppend, models.ImportReplace:
	default:
		return nil, ErrInvalidMode
	}

	items, rowErrors, err := Parse(r, kind)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{
		Kind:    kind,
		Mode:    mode,
		Skipped: len(rowErrors),
		Errors:  rowErrors,
	}
	if len(items) == 0 && mode == models.ImportAppend {
		return result, nil
	}

	created, categories, err := store.ImportItems(ctx, kind, mode, items)
	if err != nil {
		return nil, fmt.Errorf("import %ss: %w", kind, err)
	}
	result.Created = created
	result.CategoriesCreated = categories

	logging.Info().
		Str("kind", string(kind)).
		Str("mode", string(mode)).
		Int("created", created).
		Int("categories_created", categories).
		Int("skipped", result.Skipped).
		Msg("CSV import completed")
	return result, nil
}

// Parse reads items from CSV. It returns an error only when the file as a
// whole is unusable; per-row problems are returned as ImportRowErrors.
func Parse(r io.Reader, kind models.ItemKind) ([]models.TransferItem, []models.ImportRowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrMissingColumns
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := indexHeader(header)
	if _, ok := cols[ColName]; !ok {
		return nil, nil, ErrMissingColumns
	}
	if _, ok := cols[ColURL]; !ok {
		return nil, nil, ErrMissingColumns
	}

	var (
		items     []models.TransferItem
		rowErrors []models.ImportRowError
	)
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if row-1 > MaxImportRows {
			return nil, nil, ErrTooManyRows
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrors = append(rowErrors, models.ImportRowError{Row: row, Message: parseErr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		if isBlank(rec) {
			continue
		}

		it, msg := parseRow(cols, rec, kind, len(items))
		if msg != "" {
			rowErrors = append(rowErrors, models.ImportRowError{Row: row, Message: msg})
			continue
		}
		items = append(items, it)
	}
	return items, rowErrors, nil
}

// indexHeader maps lower-cased column names to their position. Spaces and
// dashes are treated as underscores so "Open In New Tab" matches.
func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func parseRow(cols map[string]int, rec []string, kind models.ItemKind, position int) (models.TransferItem, string) {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	it := models.TransferItem{
		Category:     get(ColCategory),
		Name:         get(ColName),
		URL:          get(ColURL),
		Description:  get(ColDescription),
		Icon:         get(ColIcon),
		SortOrder:    position,
		IsVisible:    parseBool(get(ColIsVisible), true),
		OpenInNewTab: parseBool(get(ColOpenInNewTab), true),
	}
	if it.Category == "" {
		it.Category = DefaultCategory
	}
	if it.Name == "" {
		return it, "name is required"
	}
	if utf8.RuneCountInString(it.Category) > MaxCategoryNameLength {
		return it, fmt.Sprintf("category is longer than %d characters", MaxCategoryNameLength)
	}
	if utf8.RuneCountInString(it.Name) > MaxItemNameLength {
		return it, fmt.Sprintf("name is longer than %d characters", MaxItemNameLength)
	}
	if !validURL(it.URL) {
		return it, fmt.Sprintf("invalid url %q", it.URL)
	}
	if n, err := strconv.Atoi(get(ColSortOrder)); err == nil && n >= 0 {
		it.SortOrder = n
	}
	if it.Icon != "" && validation.GetValidator().Var(it.Icon, "icon_ref") != nil {
		it.Icon = ""
	}

	if kind == models.KindService {
		it.HealthCheckEnabled = parseBool(get(ColHealthCheckEnabled), false)
		it.HealthCheckURL = get(ColHealthCheckURL)
		if it.HealthCheckURL != "" && !validURL(it.HealthCheckURL) {
			return it, fmt.Sprintf("invalid health_check_url %q", it.HealthCheckURL)
		}
	}
	return it, ""
}

func validURL(s string) bool {
	if s == "" || len(s) > 2048 {
		return false
	}
	return validation.GetValidator().Var(s, "web_url") == nil
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
