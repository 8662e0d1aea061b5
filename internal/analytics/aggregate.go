// Package analytics turns a cleaned expense batch into ranked tables and
// spending insights. Everything here is pure and recomputed per request.
package analytics

import (
	"sort"

	"expensedash/internal/core"
	"expensedash/internal/query"

	"github.com/shopspring/decimal"
)

// TopN groups the batch by category or subcategory, sums amounts, and
// returns the n largest groups in descending order. Ties keep the order in
// which groups first appear in the batch. Rows with non-positive amounts are
// excluded before ranking. Subcategory grouping skips the Uncategorized
// placeholder; category grouping does not.
func TopN(rows []core.CleanRow, groupBy query.GroupBy, n int) []core.AggregatedRow {
	grouped := groupTotals(rows, groupBy)
	if n > 0 && len(grouped) > n {
		grouped = grouped[:n]
	}
	return grouped
}

// Insights reports the highest- and lowest-spending groups by summed amount.
// An empty batch, or one with no usable amounts, yields the "no data
// available" sentinel rather than an error.
func Insights(rows []core.CleanRow, groupBy query.GroupBy) core.InsightSummary {
	grouped := groupTotals(rows, groupBy)
	if len(grouped) == 0 {
		return core.EmptyInsights()
	}

	// grouped is sorted descending with stable tie order, so max is the
	// first entry and min the last; on ties the earlier group wins, matching
	// first-seen semantics.
	max := grouped[0]
	min := grouped[len(grouped)-1]
	for i := len(grouped) - 2; i >= 0; i-- {
		if grouped[i].Total.Equal(min.Total) {
			min = grouped[i]
		}
	}

	return core.InsightSummary{
		MaxGroup:  max.GroupKey,
		MaxAmount: max.Total,
		MinGroup:  min.GroupKey,
		MinAmount: min.Total,
	}
}

// groupTotals sums amounts per group key and sorts descending, preserving
// first-seen order among equal totals.
func groupTotals(rows []core.CleanRow, groupBy query.GroupBy) []core.AggregatedRow {
	totals := make(map[string]decimal.Decimal)
	var order []string

	for _, row := range rows {
		if !row.Amount.IsPositive() {
			continue
		}
		key := row.Category
		if groupBy == query.GroupBySubcategory {
			if row.Subcategory == core.UncategorizedSubcategory {
				continue
			}
			key = row.Subcategory
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] = totals[key].Add(row.Amount)
	}

	grouped := make([]core.AggregatedRow, 0, len(order))
	for _, key := range order {
		grouped = append(grouped, core.AggregatedRow{GroupKey: key, Total: totals[key]})
	}

	sort.SliceStable(grouped, func(i, j int) bool {
		return grouped[i].Total.GreaterThan(grouped[j].Total)
	})

	return grouped
}
