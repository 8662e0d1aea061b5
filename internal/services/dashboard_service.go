package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensedash/internal/analytics"
	"expensedash/internal/clean"
	"expensedash/internal/core"
	"expensedash/internal/query"
)

// Repository is the storage surface the dashboard pipeline consumes.
type Repository interface {
	FetchExpenseRows(ctx context.Context, q query.Query) ([]core.ExpenseRow, error)
	CategoryRefs(ctx context.Context) ([]core.Category, error)
	SubcategoryRefs(ctx context.Context) ([]core.Subcategory, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListSubcategories(ctx context.Context, category string) ([]string, error)
	ListPaymentModes(ctx context.Context) ([]string, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	Append(ctx context.Context, e core.Expense) (int64, error)
}

// Session carries per-session view state. The detailed-view toggle switches
// category selection to subcategory-level aggregation; it travels with the
// request instead of living in process-wide state.
type Session struct {
	ShowDetailedView bool
}

// DashboardRequest is the UI-boundary input: filter selections plus session
// context.
type DashboardRequest struct {
	Filter  query.Filter
	Session Session
}

// DashboardResult is the UI-boundary output: the ranked table and the
// min/max insight summary. Both are derived per request and never cached.
type DashboardResult struct {
	GroupBy  query.GroupBy
	Ranked   []core.AggregatedRow
	Insights core.InsightSummary
}

// FilterCatalog lists the selections the (out-of-scope) sidebar layer can
// offer.
type FilterCatalog struct {
	Users         []core.User
	Categories    []string
	Subcategories []string
	PaymentModes  []string
	Months        []string
}

// DashboardService runs the build-fetch-clean-aggregate pipeline, one
// synchronous round trip per request.
type DashboardService struct {
	repo        Repository
	defaultTopN int
}

func NewDashboardService(repo Repository, defaultTopN int) *DashboardService {
	if defaultTopN <= 0 {
		defaultTopN = 10
	}
	return &DashboardService{repo: repo, defaultTopN: defaultTopN}
}

// GetDashboard executes one filter round trip. Empty data is a first-class
// outcome: it returns an empty ranked table and the insight sentinel with a
// nil error.
func (s *DashboardService) GetDashboard(ctx context.Context, req DashboardRequest) (DashboardResult, error) {
	f := req.Filter
	if f.GroupBy == "" {
		f.GroupBy = query.GroupByCategory
		if req.Session.ShowDetailedView {
			f.GroupBy = query.GroupBySubcategory
		}
	}
	if !f.GroupBy.Valid() {
		return DashboardResult{}, fmt.Errorf("unsupported group-by dimension: %q", f.GroupBy)
	}
	if f.TopN <= 0 {
		f.TopN = s.defaultTopN
	}

	q, err := query.Build(f)
	if err != nil {
		return DashboardResult{}, err
	}

	rows, err := s.repo.FetchExpenseRows(ctx, q)
	if err != nil {
		return DashboardResult{}, fmt.Errorf("fetch expenses: %w", err)
	}
	if len(rows) == 0 {
		slog.InfoContext(ctx, "No expense data for filter",
			"user", f.UserID, "year", f.Year, "month", f.Month, "category", f.Category)
		return DashboardResult{GroupBy: f.GroupBy, Ranked: []core.AggregatedRow{}, Insights: core.EmptyInsights()}, nil
	}

	cleaned, err := s.cleanBatch(ctx, rows)
	if err != nil {
		return DashboardResult{}, err
	}

	return DashboardResult{
		GroupBy:  f.GroupBy,
		Ranked:   analytics.TopN(cleaned, f.GroupBy, f.TopN),
		Insights: analytics.Insights(cleaned, f.GroupBy),
	}, nil
}

func (s *DashboardService) cleanBatch(ctx context.Context, rows []core.ExpenseRow) ([]core.CleanRow, error) {
	cats, err := s.repo.CategoryRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category refs: %w", err)
	}
	subs, err := s.repo.SubcategoryRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subcategory refs: %w", err)
	}

	cleaner, err := clean.NewCleaner(cats, subs)
	if err != nil {
		return nil, err
	}
	return cleaner.Clean(rows)
}

// Filters returns the catalog of selectable filter values.
func (s *DashboardService) Filters(ctx context.Context, category string) (FilterCatalog, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return FilterCatalog{}, fmt.Errorf("list users: %w", err)
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return FilterCatalog{}, fmt.Errorf("list categories: %w", err)
	}
	subcategories, err := s.repo.ListSubcategories(ctx, category)
	if err != nil {
		return FilterCatalog{}, fmt.Errorf("list subcategories: %w", err)
	}
	modes, err := s.repo.ListPaymentModes(ctx)
	if err != nil {
		return FilterCatalog{}, fmt.Errorf("list payment modes: %w", err)
	}

	return FilterCatalog{
		Users:         users,
		Categories:    categories,
		Subcategories: subcategories,
		PaymentModes:  modes,
		Months:        core.MonthNames(),
	}, nil
}

// CreateExpense persists a new expense fact row.
func (s *DashboardService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := s.repo.Append(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	return id, nil
}

// UserScope resolves the export user scope label: a user name, or "All_Users"
// when the filter carries no user restriction.
func (s *DashboardService) UserScope(ctx context.Context, userID string) string {
	if userID == "" || userID == core.AllUsers {
		return "All_Users"
	}
	var id int64
	if _, err := fmt.Sscanf(userID, "%d", &id); err != nil {
		return "All_Users"
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Unknown user in export scope, using All_Users", "user_id", userID, "error", err)
		return "All_Users"
	}
	return user.Name
}
