package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expensedash/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsWriter appends ranked tables to a Google Sheets spreadsheet instead
// of the local filesystem. Each export lands on one sheet, prefixed by a
// header row carrying the scope labels.
type SheetsWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ Writer = (*SheetsWriter)(nil)

// NewSheetsWriterFromEnv creates a Sheets writer using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default "Exports").
func NewSheetsWriterFromEnv(ctx context.Context) (*SheetsWriter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Exports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsWriter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Write appends the table below any existing content. The format parameter
// only affects the reference label; the sheet layout is the same either way.
// An empty table is refused with core.ErrNoData.
func (w *SheetsWriter) Write(ctx context.Context, t Table, format Format) (string, error) {
	if len(t.Rows) == 0 {
		return "", core.ErrNoData
	}

	label := strings.TrimSuffix(Filename(t.UserScope, t.PeriodScope, format), "."+string(format))

	values := make([][]any, 0, len(t.Rows)+2)
	values = append(values, []any{label})
	values = append(values, []any{"group_key", "total_amount"})
	for _, row := range t.Rows {
		values = append(values, []any{row.GroupKey, core.FormatAmount(row.Total)})
	}

	appendRange := w.sheetName + "!A1"
	resp, err := w.svc.Spreadsheets.Values.
		Append(w.spreadsheetID, appendRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", w.sheetName, err)
	}

	ref := appendRange
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Export appended to spreadsheet",
		"spreadsheet_id", w.spreadsheetID,
		"range", ref,
		"rows", len(t.Rows))
	return ref, nil
}
