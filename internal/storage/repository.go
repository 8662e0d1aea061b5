package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensedash/internal/core"
	"expensedash/internal/query"

	_ "modernc.org/sqlite"
)

// expenseColumns is the row shape every built expense query must produce.
var expenseColumns = []string{"expense_date", "name", "name", "amount_cents"}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &core.ConnectivityError{Err: err}
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports store reachability for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &core.ConnectivityError{Err: err}
	}
	return nil
}

// FetchExpenseRows executes a built filter query and returns the joined rows.
// No matches is an empty slice, not an error.
func (r *SQLiteRepository) FetchExpenseRows(ctx context.Context, q query.Query) ([]core.ExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if len(cols) != len(expenseColumns) {
		return nil, &core.SchemaMismatchError{
			Table:   "expenses join",
			Missing: fmt.Sprintf("expected %d columns, got %d", len(expenseColumns), len(cols)),
		}
	}

	out := []core.ExpenseRow{}
	for rows.Next() {
		var (
			dateStr string
			catName string
			subName sql.NullString
			cents   sql.NullInt64
		)
		if err := rows.Scan(&dateStr, &catName, &subName, &cents); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}

		date, err := parseDate(dateStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping expense row with unparseable date", "date", dateStr, "error", err)
			continue
		}

		row := core.ExpenseRow{Date: date, Category: catName}
		if subName.Valid {
			s := subName.String
			row.Subcategory = &s
		}
		if cents.Valid {
			amount := core.AmountFromCents(cents.Int64)
			row.Amount = &amount
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}

	return out, nil
}

// CategoryRefs returns the category reference table for id resolution.
func (r *SQLiteRepository) CategoryRefs(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, &core.SchemaMismatchError{Table: "categories", Missing: "id, name"}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SubcategoryRefs returns the subcategory reference table for id resolution.
func (r *SQLiteRepository) SubcategoryRefs(ctx context.Context) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category_id, name FROM subcategories ORDER BY id`)
	if err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}
	defer rows.Close()

	var out []core.Subcategory
	for rows.Next() {
		var s core.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
			return nil, &core.SchemaMismatchError{Table: "subcategories", Missing: "id, category_id, name"}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListUsers returns all users for the filter catalog.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, role FROM users ORDER BY name`)
	if err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser returns a single user by id.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// ListCategories returns all distinct category names.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	return r.listNames(ctx, `SELECT DISTINCT name FROM categories ORDER BY name`)
}

// ListSubcategories returns subcategory names for one category, or for all
// categories when the sentinel is passed. The Uncategorized placeholder is
// part of reference data and is not filtered here; subcategory-level views
// exclude it at query time.
func (r *SQLiteRepository) ListSubcategories(ctx context.Context, category string) ([]string, error) {
	if category == "" || category == core.AllCategories {
		return r.listNames(ctx, `SELECT DISTINCT name FROM subcategories ORDER BY name`)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.name FROM subcategories s
		 JOIN categories c ON s.category_id = c.id
		 WHERE c.name = ? ORDER BY s.name`, category)
	if err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}
	defer rows.Close()
	return scanNames(rows)
}

// ListPaymentModes returns all payment mode names.
func (r *SQLiteRepository) ListPaymentModes(ctx context.Context) ([]string, error) {
	return r.listNames(ctx, `SELECT name FROM payment_modes ORDER BY id`)
}

// Append persists a new expense fact row and returns its id.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	var cents any
	if e.Amount != nil {
		cents = core.CentsFromAmount(*e.Amount)
	}
	var subID any
	if e.SubcategoryID != nil {
		subID = *e.SubcategoryID
	}
	var userID any
	if e.UserID != nil {
		userID = *e.UserID
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, subcategory_id, amount_cents, expense_date, payment_mode_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, e.CategoryID, subID, cents, e.Date.Format("2006-01-02"), e.PaymentModeID)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"category_id", e.CategoryID,
		"date", e.Date.Format("2006-01-02"))

	return id, nil
}

func (r *SQLiteRepository) listNames(ctx context.Context, stmt string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &core.ConnectivityError{Err: err}
	}
	defer rows.Close()
	return scanNames(rows)
}

func scanNames(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// Dates are stored as YYYY-MM-DD; tolerate a trailing time component.
	if len(s) > 10 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}
