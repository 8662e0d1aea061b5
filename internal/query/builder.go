// Package query constructs parameterized filter predicates over the
// expense-category-subcategory join. Values are always bound as placeholders,
// never concatenated into query text.
package query

import (
	"strings"

	"expensedash/internal/core"
)

// GroupBy selects the aggregation dimension downstream of the fetch.
type GroupBy string

const (
	GroupByCategory    GroupBy = "category"
	GroupBySubcategory GroupBy = "subcategory"
)

// Filter holds the dashboard filter selections. Zero values and the
// "All Users" / "All Categories" sentinels mean "no restriction".
type Filter struct {
	UserID   string
	Year     int
	Month    string // English month name or 1-based number
	Category string
	GroupBy  GroupBy
	TopN     int
}

// Condition is one AND-combined predicate. Value is nil for fixed predicates
// that carry no bound parameter.
type Condition struct {
	Column string
	Op     string
	Value  any
}

// Query is a ready-to-execute statement with positional arguments.
type Query struct {
	SQL        string
	Args       []any
	Conditions []Condition
}

const baseSelect = `SELECT e.expense_date, c.name, s.name, e.amount_cents
FROM expenses e
JOIN categories c ON e.category_id = c.id
LEFT JOIN subcategories s ON e.subcategory_id = s.id AND s.category_id = c.id`

// Build translates a Filter into a parameterized SELECT over the expense
// fact join. Month names are resolved against the fixed calendar list; an
// unknown name fails with core.InvalidMonthNameError rather than silently
// dropping the filter.
func Build(f Filter) (Query, error) {
	conds, err := buildConditions(f)
	if err != nil {
		return Query{}, err
	}

	var sb strings.Builder
	sb.WriteString(baseSelect)

	args := make([]any, 0, len(conds))
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		for i, c := range conds {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(c.Column)
			sb.WriteString(" ")
			sb.WriteString(c.Op)
			if c.Value != nil {
				sb.WriteString(" ?")
				args = append(args, c.Value)
			}
		}
	}
	sb.WriteString("\nORDER BY e.id")

	return Query{SQL: sb.String(), Args: args, Conditions: conds}, nil
}

func buildConditions(f Filter) ([]Condition, error) {
	var conds []Condition

	if user := strings.TrimSpace(f.UserID); user != "" && user != core.AllUsers {
		conds = append(conds, Condition{Column: "e.user_id", Op: "=", Value: user})
	}

	if f.Year != 0 {
		conds = append(conds, Condition{
			Column: "CAST(strftime('%Y', e.expense_date) AS INTEGER)",
			Op:     "=",
			Value:  f.Year,
		})
	}

	month, err := core.ResolveMonth(f.Month)
	if err != nil {
		return nil, err
	}
	if month != 0 {
		conds = append(conds, Condition{
			Column: "CAST(strftime('%m', e.expense_date) AS INTEGER)",
			Op:     "=",
			Value:  month,
		})
	}

	if cat := strings.TrimSpace(f.Category); cat != "" && cat != core.AllCategories {
		conds = append(conds, Condition{Column: "c.name", Op: "=", Value: cat})
	}

	// Subcategory-level views never include the Uncategorized placeholder.
	if f.GroupBy == GroupBySubcategory {
		conds = append(conds,
			Condition{Column: "s.name", Op: "IS NOT NULL"},
			Condition{Column: "s.name", Op: "!=", Value: core.UncategorizedSubcategory},
		)
	}

	return conds, nil
}

// Valid reports whether the group-by dimension is one of the two supported
// values.
func (g GroupBy) Valid() bool {
	return g == GroupByCategory || g == GroupBySubcategory
}
