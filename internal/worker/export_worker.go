package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensedash/internal/amqp"
	"expensedash/internal/core"
	"expensedash/internal/export"
	"expensedash/internal/services"
)

// ExportWorker consumes export jobs, re-runs the dashboard pipeline for the
// job's filter, and hands the ranked table to a writer.
type ExportWorker struct {
	dash   *services.DashboardService
	writer export.Writer
}

func NewExportWorker(dash *services.DashboardService, writer export.Writer) *ExportWorker {
	return &ExportWorker{dash: dash, writer: writer}
}

// HandleExportJob processes a single export job. A filter that matches no
// data is logged and acked, not requeued: re-running it would produce the
// same empty table.
func (w *ExportWorker) HandleExportJob(ctx context.Context, msg *amqp.ExportJobMessage) error {
	format := export.Format(msg.Format)
	if !format.Valid() {
		slog.ErrorContext(ctx, "Export job with unsupported format, dropping",
			"job_id", msg.JobID, "format", msg.Format)
		return nil
	}

	filter := msg.Filter()
	result, err := w.dash.GetDashboard(ctx, services.DashboardRequest{Filter: filter})
	if err != nil {
		return fmt.Errorf("run pipeline for job %s: %w", msg.JobID, err)
	}

	table := export.Table{
		UserScope:   w.dash.UserScope(ctx, filter.UserID),
		PeriodScope: export.PeriodScope(filter.Month),
		Rows:        result.Ranked,
	}

	ref, err := w.writer.Write(ctx, table, format)
	if err != nil {
		if errors.Is(err, core.ErrNoData) {
			slog.WarnContext(ctx, "Export job matched no data, nothing written",
				"job_id", msg.JobID,
				"user", filter.UserID,
				"month", filter.Month)
			return nil
		}
		return fmt.Errorf("write export for job %s: %w", msg.JobID, err)
	}

	slog.InfoContext(ctx, "Export job completed",
		"job_id", msg.JobID,
		"ref", ref,
		"rows", len(table.Rows))
	return nil
}
