// Package export serializes a ranked top-N table to CSV, PDF, or a Google
// Sheets tab. Writers refuse to produce an artifact for an empty table.
package export

import (
	"context"
	"strings"

	"expensedash/internal/core"
)

// Format identifies the export artifact type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Valid reports whether the format is supported.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatPDF
}

// Table is the ranked table handed to a writer, together with the scope
// labels used for naming.
type Table struct {
	UserScope   string // user name or "All_Users"
	PeriodScope string // month name or "Annual"
	Rows        []core.AggregatedRow
}

// Writer produces one export artifact and returns a reference to it
// (a file path or a sheet range).
type Writer interface {
	Write(ctx context.Context, t Table, format Format) (string, error)
}

// Filename builds the export name: {user_scope}_{period_scope}_Top_10_Expenses.{ext}.
// Spaces in scopes become underscores.
func Filename(userScope, periodScope string, format Format) string {
	user := sanitizeScope(userScope, "All_Users")
	period := sanitizeScope(periodScope, "Annual")
	return user + "_" + period + "_Top_10_Expenses." + string(format)
}

func sanitizeScope(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return strings.ReplaceAll(s, " ", "_")
}

// PeriodScope maps a month filter value to the export period label: the
// month name, or "Annual" when no month restriction applies.
func PeriodScope(month string) string {
	n, err := core.ResolveMonth(month)
	if err != nil || n == 0 {
		return "Annual"
	}
	return core.MonthName(n)
}
