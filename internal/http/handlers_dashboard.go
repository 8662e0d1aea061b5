package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"expensedash/internal/amqp"
	"expensedash/internal/core"
	"expensedash/internal/export"
	"expensedash/internal/services"
)

const requestTimeout = 7 * time.Second

type rankedRowView struct {
	GroupKey    string `json:"group_key"`
	TotalAmount string `json:"total_amount"`
}

type insightView struct {
	MaxGroup  string `json:"max_group"`
	MaxAmount string `json:"max_amount"`
	MinGroup  string `json:"min_group"`
	MinAmount string `json:"min_amount"`
}

type dashboardView struct {
	GroupBy        string          `json:"group_by"`
	RankedRows     []rankedRowView `json:"ranked_rows"`
	InsightSummary insightView     `json:"insight_summary"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	filter, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	session := ParseSessionParams(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.dash.GetDashboard(ctx, services.DashboardRequest{Filter: filter, Session: session})
	if err != nil {
		writePipelineError(ctx, w, err)
		return
	}

	NewJSONResponse().Payload(buildDashboardView(result)).Write(w)
}

func buildDashboardView(result services.DashboardResult) dashboardView {
	rows := make([]rankedRowView, 0, len(result.Ranked))
	for _, row := range result.Ranked {
		rows = append(rows, rankedRowView{
			GroupKey:    row.GroupKey,
			TotalAmount: core.FormatAmount(row.Total),
		})
	}
	return dashboardView{
		GroupBy:    string(result.GroupBy),
		RankedRows: rows,
		InsightSummary: insightView{
			MaxGroup:  result.Insights.MaxGroup,
			MaxAmount: core.FormatAmount(result.Insights.MaxAmount),
			MinGroup:  result.Insights.MinGroup,
			MinAmount: core.FormatAmount(result.Insights.MinAmount),
		},
	}
}

// writePipelineError maps pipeline error kinds to HTTP statuses: bad filter
// input is the caller's fault, an unreachable store is a dependency outage,
// and a schema mismatch is a deployment defect.
func writePipelineError(ctx context.Context, w http.ResponseWriter, err error) {
	var monthErr *core.InvalidMonthNameError
	var connErr *core.ConnectivityError
	var schemaErr *core.SchemaMismatchError

	switch {
	case errors.As(err, &monthErr):
		UnprocessableEntityError(monthErr.Error()).Write(w)
	case errors.As(err, &connErr):
		slog.ErrorContext(ctx, "Store unreachable", "error", err)
		ServiceUnavailableError("expense store unreachable").Write(w)
	case errors.As(err, &schemaErr):
		slog.ErrorContext(ctx, "Schema mismatch", "error", err)
		InternalServerError(schemaErr.Error()).Write(w)
	default:
		slog.ErrorContext(ctx, "Dashboard request failed", "error", err)
		InternalServerError("internal error").Write(w)
	}
}

type filterCatalogView struct {
	Users         []userView `json:"users"`
	Categories    []string   `json:"categories"`
	Subcategories []string   `json:"subcategories"`
	PaymentModes  []string   `json:"payment_modes"`
	Months        []string   `json:"months"`
}

type userView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	catalog, err := s.dash.Filters(ctx, r.URL.Query().Get("category"))
	if err != nil {
		writePipelineError(ctx, w, err)
		return
	}

	users := make([]userView, 0, len(catalog.Users))
	for _, u := range catalog.Users {
		users = append(users, userView{ID: u.ID, Name: u.Name})
	}
	NewJSONResponse().Payload(filterCatalogView{
		Users:         users,
		Categories:    catalog.Categories,
		Subcategories: catalog.Subcategories,
		PaymentModes:  catalog.PaymentModes,
		Months:        catalog.Months,
	}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		BadRequestError("failed to read request body").Write(w)
		return
	}

	expense, err := ParseExpenseBody(body)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, err := s.dash.CreateExpense(ctx, expense)
	if err != nil {
		writePipelineError(ctx, w, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Payload(map[string]int64{"id": id}).Write(w)
}

// handleExport either enqueues an export job (when a queue is configured) or
// runs the export synchronously against the local writer.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("malformed form body").Write(w)
		return
	}

	filter, err := ParseFilterParams(r.Form)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	format := export.Format(r.Form.Get("format"))
	if format == "" {
		format = export.FormatCSV
	}
	if !format.Valid() {
		BadRequestError("unsupported export format; expected csv or pdf").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if s.queue != nil {
		msg := amqp.NewExportJobMessage(filter, format)
		if err := s.queue.PublishExportJob(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to enqueue export job", "error", err)
			ServiceUnavailableError("export queue unavailable").Write(w)
			return
		}
		NewJSONResponse().
			Status(http.StatusAccepted).
			Payload(map[string]string{"job_id": msg.JobID}).
			Write(w)
		return
	}

	if s.writer == nil {
		ServiceUnavailableError("export is not configured").Write(w)
		return
	}

	result, err := s.dash.GetDashboard(ctx, services.DashboardRequest{Filter: filter})
	if err != nil {
		writePipelineError(ctx, w, err)
		return
	}

	table := export.Table{
		UserScope:   s.dash.UserScope(ctx, filter.UserID),
		PeriodScope: export.PeriodScope(filter.Month),
		Rows:        result.Ranked,
	}
	ref, err := s.writer.Write(ctx, table, format)
	if err != nil {
		if errors.Is(err, core.ErrNoData) {
			UnprocessableEntityError("no data available to export").Write(w)
			return
		}
		slog.ErrorContext(ctx, "Synchronous export failed", "error", err)
		InternalServerError("export failed").Write(w)
		return
	}

	NewJSONResponse().Payload(map[string]string{"ref": ref}).Write(w)
}
