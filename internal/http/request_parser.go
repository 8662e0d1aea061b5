// Package http provides the HTTP server and handler implementations.
//
// This file implements parsing of dashboard filter parameters from query
// strings and JSON request bodies.
package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expensedash/internal/core"
	"expensedash/internal/query"
	"expensedash/internal/services"
)

// ParseFilterParams extracts the dashboard filter from query parameters.
// Month is passed through as written (name or number); the query builder
// owns its validation. Malformed numeric parameters are rejected here.
func ParseFilterParams(values url.Values) (query.Filter, error) {
	f := query.Filter{
		UserID:   strings.TrimSpace(values.Get("user_id")),
		Month:    strings.TrimSpace(values.Get("month")),
		Category: strings.TrimSpace(values.Get("category")),
		GroupBy:  query.GroupBy(strings.TrimSpace(values.Get("group_by"))),
	}

	if v := strings.TrimSpace(values.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid year %q", v)
		}
		f.Year = y
	}

	if v := strings.TrimSpace(values.Get("top_n")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return query.Filter{}, fmt.Errorf("invalid top_n %q", v)
		}
		f.TopN = n
	}

	if f.GroupBy != "" && !f.GroupBy.Valid() {
		return query.Filter{}, fmt.Errorf("invalid group_by %q", f.GroupBy)
	}

	return f, nil
}

// ParseSessionParams extracts per-session view state from query parameters.
func ParseSessionParams(values url.Values) services.Session {
	detailed := strings.TrimSpace(values.Get("detailed"))
	return services.Session{
		ShowDetailedView: detailed == "true" || detailed == "1",
	}
}

// expensePayload is the JSON body accepted by the expense creation endpoint.
type expensePayload struct {
	UserID        *int64 `json:"user_id"`
	CategoryID    int64  `json:"category_id"`
	SubcategoryID *int64 `json:"subcategory_id"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	PaymentModeID int64  `json:"payment_mode_id"`
}

// ParseExpenseBody decodes and validates an expense creation body.
func ParseExpenseBody(data []byte) (core.Expense, error) {
	var p expensePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Expense{}, fmt.Errorf("decode expense body: %w", err)
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(p.Date))
	if err != nil {
		return core.Expense{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", p.Date)
	}

	e := core.Expense{
		UserID:        p.UserID,
		CategoryID:    p.CategoryID,
		SubcategoryID: p.SubcategoryID,
		Date:          date,
		PaymentModeID: p.PaymentModeID,
	}

	if strings.TrimSpace(p.Amount) != "" {
		amount, err := core.ParseAmount(p.Amount)
		if err != nil {
			return core.Expense{}, fmt.Errorf("invalid amount %q: %w", p.Amount, err)
		}
		e.Amount = &amount
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}
