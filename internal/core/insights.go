package core

import "github.com/shopspring/decimal"

// NoInsights is the sentinel group name reported when there is nothing to
// summarize.
const NoInsights = "No insights available"

// InsightSummary is the {max, min} grouped-total pair surfaced to the
// dashboard. Derived per query, never persisted.
type InsightSummary struct {
	MaxGroup  string
	MaxAmount decimal.Decimal
	MinGroup  string
	MinAmount decimal.Decimal
}

// EmptyInsights returns the "no data available" summary. All callers return
// this instead of raising when the grouped set is empty.
func EmptyInsights() InsightSummary {
	return InsightSummary{
		MaxGroup:  NoInsights,
		MaxAmount: decimal.Zero,
		MinGroup:  NoInsights,
		MinAmount: decimal.Zero,
	}
}

// IsEmpty reports whether the summary is the no-data sentinel.
func (s InsightSummary) IsEmpty() bool {
	return s.MaxGroup == NoInsights && s.MinGroup == NoInsights
}
