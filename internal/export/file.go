package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensedash/internal/core"

	"github.com/signintech/gopdf"
)

// FileWriter writes CSV and PDF artifacts into a local directory.
type FileWriter struct {
	dir      string
	fontPath string // TTF font for PDF rendering; empty disables PDF
}

var _ Writer = (*FileWriter)(nil)

func NewFileWriter(dir, fontPath string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileWriter{dir: dir, fontPath: fontPath}, nil
}

// Write serializes the table. An empty table is refused with core.ErrNoData
// and no file is created.
func (w *FileWriter) Write(ctx context.Context, t Table, format Format) (string, error) {
	if len(t.Rows) == 0 {
		return "", core.ErrNoData
	}

	path := filepath.Join(w.dir, Filename(t.UserScope, t.PeriodScope, format))

	var err error
	switch format {
	case FormatCSV:
		err = w.writeCSV(path, t)
	case FormatPDF:
		err = w.writePDF(path, t)
	default:
		return "", fmt.Errorf("unsupported export format: %q", format)
	}
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Export written",
		"path", path,
		"rows", len(t.Rows),
		"format", string(format))
	return path, nil
}

func (w *FileWriter) writeCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"group_key", "total_amount"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write([]string{row.GroupKey, core.FormatAmount(row.Total)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

func (w *FileWriter) writePDF(path string, t Table) error {
	if w.fontPath == "" {
		return fmt.Errorf("pdf export requires a TTF font (set EXPORT_PDF_FONT)")
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("export", w.fontPath); err != nil {
		return fmt.Errorf("load pdf font: %w", err)
	}

	const (
		left      = 40.0
		amountCol = 400.0
		lineStep  = 22.0
	)

	if err := pdf.SetFont("export", "", 14); err != nil {
		return fmt.Errorf("set pdf font: %w", err)
	}
	pdf.SetXY(left, 40)
	title := fmt.Sprintf("%s %s Top %d Expenses", t.UserScope, t.PeriodScope, len(t.Rows))
	if err := pdf.Cell(nil, title); err != nil {
		return fmt.Errorf("write pdf title: %w", err)
	}

	if err := pdf.SetFont("export", "", 11); err != nil {
		return fmt.Errorf("set pdf font: %w", err)
	}
	y := 80.0
	pdf.SetXY(left, y)
	_ = pdf.Cell(nil, "group_key")
	pdf.SetXY(amountCol, y)
	_ = pdf.Cell(nil, "total_amount")

	for _, row := range t.Rows {
		y += lineStep
		pdf.SetXY(left, y)
		if err := pdf.Cell(nil, row.GroupKey); err != nil {
			return fmt.Errorf("write pdf row: %w", err)
		}
		pdf.SetXY(amountCol, y)
		if err := pdf.Cell(nil, core.FormatAmount(row.Total)); err != nil {
			return fmt.Errorf("write pdf row: %w", err)
		}
	}

	if err := pdf.WritePdf(path); err != nil {
		return fmt.Errorf("write pdf file: %w", err)
	}
	return nil
}
