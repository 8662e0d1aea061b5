package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensedash/internal/amqp"
	"expensedash/internal/core"
	"expensedash/internal/export"
	"expensedash/internal/query"
	"expensedash/internal/services"

	"github.com/shopspring/decimal"
)

// testRepo implements services.Repository in memory.
type testRepo struct {
	rows     []core.ExpenseRow
	fetchErr error
	pingErr  error
}

func (r *testRepo) FetchExpenseRows(ctx context.Context, q query.Query) ([]core.ExpenseRow, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.rows, nil
}

func (r *testRepo) CategoryRefs(ctx context.Context) ([]core.Category, error) {
	return []core.Category{{ID: 1, Name: "Food"}, {ID: 2, Name: "Transport"}}, nil
}

func (r *testRepo) SubcategoryRefs(ctx context.Context) ([]core.Subcategory, error) {
	return []core.Subcategory{
		{ID: 10, CategoryID: 1, Name: "Snacks"},
		{ID: 20, CategoryID: 2, Name: "Fuel"},
	}, nil
}

func (r *testRepo) ListUsers(ctx context.Context) ([]core.User, error) {
	return []core.User{{ID: 1, Name: "Admin", Role: core.RoleAdmin}}, nil
}

func (r *testRepo) ListCategories(ctx context.Context) ([]string, error) {
	return []string{"Food", "Transport"}, nil
}

func (r *testRepo) ListSubcategories(ctx context.Context, category string) ([]string, error) {
	return []string{"Snacks", "Fuel"}, nil
}

func (r *testRepo) ListPaymentModes(ctx context.Context) ([]string, error) {
	return []string{"Cash"}, nil
}

func (r *testRepo) GetUser(ctx context.Context, id int64) (core.User, error) {
	if id == 1 {
		return core.User{ID: 1, Name: "Admin"}, nil
	}
	return core.User{}, errors.New("user not found")
}

func (r *testRepo) Append(ctx context.Context, e core.Expense) (int64, error) {
	return 42, nil
}

func (r *testRepo) Ping(ctx context.Context) error {
	return r.pingErr
}

// stubWriter records what it was asked to write.
type stubWriter struct {
	lastTable export.Table
	lastForm  export.Format
}

func (w *stubWriter) Write(ctx context.Context, t export.Table, format export.Format) (string, error) {
	if len(t.Rows) == 0 {
		return "", core.ErrNoData
	}
	w.lastTable = t
	w.lastForm = format
	return "/tmp/" + export.Filename(t.UserScope, t.PeriodScope, format), nil
}

// stubQueue records published jobs.
type stubQueue struct {
	published []*amqp.ExportJobMessage
	err       error
}

func (q *stubQueue) PublishExportJob(ctx context.Context, msg *amqp.ExportJobMessage) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, msg)
	return nil
}

func sampleRows() []core.ExpenseRow {
	sub := func(s string) *string { return &s }
	amt := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	return []core.ExpenseRow{
		{Date: date, Category: "Food", Subcategory: sub("Snacks"), Amount: amt("10.00")},
		{Date: date, Category: "Transport", Subcategory: sub("Fuel"), Amount: amt("40.00")},
	}
}

func newTestServer(t *testing.T, repo *testRepo, queue ExportQueue, writer export.Writer) *Server {
	t.Helper()
	dash := services.NewDashboardService(repo, 10)
	srv := NewServer(":0", dash, repo, queue, writer)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		if method == http.MethodPost && strings.Contains(body, "=") {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleDashboard(t *testing.T) {
	repo := &testRepo{rows: sampleRows()}
	srv := newTestServer(t, repo, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/dashboard?year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var view dashboardView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if view.GroupBy != "category" {
		t.Errorf("group_by = %q, want category", view.GroupBy)
	}
	if len(view.RankedRows) != 2 {
		t.Fatalf("got %d ranked rows, want 2", len(view.RankedRows))
	}
	if view.RankedRows[0].GroupKey != "Transport" || view.RankedRows[0].TotalAmount != "40.00" {
		t.Errorf("rank 1 = %+v, want Transport 40.00", view.RankedRows[0])
	}
	if view.InsightSummary.MaxGroup != "Transport" || view.InsightSummary.MinGroup != "Food" {
		t.Errorf("insights = %+v", view.InsightSummary)
	}
}

func TestHandleDashboardEmptyData(t *testing.T) {
	repo := &testRepo{}
	srv := newTestServer(t, repo, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var view dashboardView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.RankedRows) != 0 {
		t.Errorf("ranked rows = %v, want empty", view.RankedRows)
	}
	if view.InsightSummary.MaxGroup != core.NoInsights {
		t.Errorf("max group = %q, want the sentinel", view.InsightSummary.MaxGroup)
	}
}

func TestHandleDashboardErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		fetchErr   error
		wantStatus int
	}{
		{
			name:       "invalid month",
			target:     "/api/dashboard?month=Febtober",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed year",
			target:     "/api/dashboard?year=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store unreachable",
			target:     "/api/dashboard",
			fetchErr:   &core.ConnectivityError{Err: errors.New("dial failed")},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "schema mismatch",
			target:     "/api/dashboard",
			fetchErr:   &core.SchemaMismatchError{Table: "expenses", Missing: "amount_cents"},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &testRepo{rows: sampleRows(), fetchErr: tt.fetchErr}
			srv := newTestServer(t, repo, nil, nil)

			rec := doRequest(srv, http.MethodGet, tt.target, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandleDashboardMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &testRepo{}, nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/dashboard", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Errorf("Allow = %q, want GET", allow)
	}
}

func TestHandleFilters(t *testing.T) {
	srv := newTestServer(t, &testRepo{}, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/filters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var view filterCatalogView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.Users) != 1 || len(view.Categories) != 2 || len(view.Months) != 12 {
		t.Errorf("catalog = %+v", view)
	}
}

func TestHandleCreateExpense(t *testing.T) {
	srv := newTestServer(t, &testRepo{}, nil, nil)

	body := `{"category_id": 1, "amount": "12.50", "date": "2024-02-10", "payment_mode_id": 1}`
	rec := doRequest(srv, http.MethodPost, "/api/expenses", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != 42 {
		t.Errorf("id = %d, want 42", resp["id"])
	}
}

func TestHandleCreateExpenseBadBody(t *testing.T) {
	srv := newTestServer(t, &testRepo{}, nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/expenses", `{"amount": "-5"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleExportQueued(t *testing.T) {
	queue := &stubQueue{}
	srv := newTestServer(t, &testRepo{rows: sampleRows()}, queue, nil)

	rec := doRequest(srv, http.MethodPost, "/api/export", "month=February&format=csv")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["job_id"] == "" {
		t.Error("response missing job_id")
	}
	if len(queue.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(queue.published))
	}
	if queue.published[0].Month != "February" || queue.published[0].Format != "csv" {
		t.Errorf("published job = %+v", queue.published[0])
	}
}

func TestHandleExportQueueUnavailable(t *testing.T) {
	queue := &stubQueue{err: errors.New("broker down")}
	srv := newTestServer(t, &testRepo{rows: sampleRows()}, queue, nil)

	rec := doRequest(srv, http.MethodPost, "/api/export", "format=csv")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleExportSynchronous(t *testing.T) {
	writer := &stubWriter{}
	srv := newTestServer(t, &testRepo{rows: sampleRows()}, nil, writer)

	rec := doRequest(srv, http.MethodPost, "/api/export", "month=February&format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if writer.lastTable.PeriodScope != "February" {
		t.Errorf("period scope = %q, want February", writer.lastTable.PeriodScope)
	}
	if writer.lastTable.UserScope != "All_Users" {
		t.Errorf("user scope = %q, want All_Users", writer.lastTable.UserScope)
	}
	if writer.lastForm != export.FormatCSV {
		t.Errorf("format = %q, want csv", writer.lastForm)
	}
}

func TestHandleExportNoData(t *testing.T) {
	writer := &stubWriter{}
	srv := newTestServer(t, &testRepo{}, nil, writer)

	rec := doRequest(srv, http.MethodPost, "/api/export", "format=csv")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleExportUnsupportedFormat(t *testing.T) {
	srv := newTestServer(t, &testRepo{rows: sampleRows()}, &stubQueue{}, nil)

	rec := doRequest(srv, http.MethodPost, "/api/export", "format=xlsx")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	repo := &testRepo{}
	srv := newTestServer(t, repo, nil, nil)

	if rec := doRequest(srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}
	if rec := doRequest(srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", rec.Code)
	}

	repo.pingErr = errors.New("database locked")
	if rec := doRequest(srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing store status = %d, want 503", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &testRepo{}, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/api/dashboard", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
