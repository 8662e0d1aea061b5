package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AllUsers and AllCategories are the sentinel filter values meaning
	// "no restriction on this dimension".
	AllUsers      = "All Users"
	AllCategories = "All Categories"

	// UncategorizedSubcategory is the placeholder subcategory excluded from
	// subcategory-level aggregation.
	UncategorizedSubcategory = "Uncategorized"

	// MiscellaneousSubcategory is the fallback name used when a category has
	// no observed subcategory to borrow from.
	MiscellaneousSubcategory = "Miscellaneous"

	// UnknownID marks a reference id that could not be resolved by name.
	// Callers treat it as a valid grouping bucket.
	UnknownID int64 = -1
)

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type (
	Role string

	// User is reference data seeded by migrations.
	User struct {
		ID    int64
		Name  string
		Email string
		Role  Role
	}

	Category struct {
		ID   int64
		Name string
	}

	// Subcategory belongs to exactly one category.
	Subcategory struct {
		ID         int64
		CategoryID int64
		Name       string
	}

	PaymentMode struct {
		ID   int64
		Name string
	}

	// ExpenseRow is the shape the storage layer returns for the analytics
	// pipeline: one expense joined to its category and (optional) subcategory.
	// Subcategory and Amount are nil when the stored values are missing.
	ExpenseRow struct {
		Date        time.Time
		Category    string
		Subcategory *string
		Amount      *decimal.Decimal
	}

	// CleanRow is an ExpenseRow after the cleaner has repaired missing values
	// and resolved reference ids. Amount is always present.
	CleanRow struct {
		Date          time.Time
		Category      string
		CategoryID    int64
		Subcategory   string
		SubcategoryID int64
		Amount        decimal.Decimal
	}

	// Expense is a new fact row to persist.
	Expense struct {
		UserID        *int64
		CategoryID    int64
		SubcategoryID *int64
		Amount        *decimal.Decimal
		Date          time.Time
		PaymentModeID int64
	}

	// AggregatedRow is one entry of a ranked table, discarded after
	// render or export.
	AggregatedRow struct {
		GroupKey string
		Total    decimal.Decimal
	}
)

var (
	ErrEmptyCategory  = errors.New("empty category")
	ErrMissingDate    = errors.New("missing expense date")
	ErrNegativeAmount = errors.New("negative amount")
	ErrEmptyAmount    = errors.New("empty amount")
)

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if e.CategoryID <= 0 {
		return ErrEmptyCategory
	}
	if e.Amount != nil && e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// HasSubcategory reports whether the row carries a non-empty subcategory name.
func (r ExpenseRow) HasSubcategory() bool {
	return r.Subcategory != nil && strings.TrimSpace(*r.Subcategory) != ""
}

// HasAmount reports whether the row carries an amount.
func (r ExpenseRow) HasAmount() bool {
	return r.Amount != nil
}
