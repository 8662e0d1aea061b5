package analytics

import (
	"testing"
	"time"

	"expensedash/internal/core"
	"expensedash/internal/query"

	"github.com/shopspring/decimal"
)

func cleanRow(category, subcategory, amount string) core.CleanRow {
	return core.CleanRow{
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Category:    category,
		Subcategory: subcategory,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestTopNByCategory(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Food", "Snacks", "10.00"),
		cleanRow("Transport", "Fuel", "30.00"),
		cleanRow("Food", "Groceries", "15.00"),
		cleanRow("Housing", "Rent", "500.00"),
	}

	got := TopN(rows, query.GroupByCategory, 2)

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].GroupKey != "Housing" || got[0].Total.String() != "500" {
		t.Errorf("rank 1 = %s %s, want Housing 500", got[0].GroupKey, got[0].Total)
	}
	if got[1].GroupKey != "Transport" || got[1].Total.String() != "30" {
		t.Errorf("rank 2 = %s %s, want Transport 30", got[1].GroupKey, got[1].Total)
	}
}

func TestTopNBySubcategory(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Food", "Snacks", "10.00"),
		cleanRow("Food", "Snacks", "5.00"),
		cleanRow("Food", "Groceries", "12.00"),
	}

	got := TopN(rows, query.GroupBySubcategory, 10)

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].GroupKey != "Snacks" || got[0].Total.String() != "15" {
		t.Errorf("rank 1 = %s %s, want Snacks 15", got[0].GroupKey, got[0].Total)
	}
}

func TestTopNSkipsUncategorizedForSubcategoryView(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Food", core.UncategorizedSubcategory, "100.00"),
		cleanRow("Food", "Snacks", "10.00"),
	}

	if got := TopN(rows, query.GroupBySubcategory, 10); len(got) != 1 || got[0].GroupKey != "Snacks" {
		t.Errorf("subcategory view = %v, want only Snacks", got)
	}

	// Category grouping still counts those rows.
	if got := TopN(rows, query.GroupByCategory, 10); len(got) != 1 || got[0].Total.String() != "110" {
		t.Errorf("category view = %v, want Food 110", got)
	}
}

func TestTopNDropsNonPositiveAmounts(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Food", "Snacks", "0.00"),
		cleanRow("Transport", "Fuel", "30.00"),
	}

	got := TopN(rows, query.GroupByCategory, 10)
	if len(got) != 1 || got[0].GroupKey != "Transport" {
		t.Errorf("got %v, want only Transport", got)
	}
}

func TestTopNTiesKeepFirstSeenOrder(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Travel", "Flights", "50.00"),
		cleanRow("Food", "Snacks", "50.00"),
		cleanRow("Transport", "Fuel", "50.00"),
	}

	got := TopN(rows, query.GroupByCategory, 10)

	want := []string{"Travel", "Food", "Transport"}
	for i, key := range want {
		if got[i].GroupKey != key {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].GroupKey, key)
		}
	}
}

func TestTopNLengthAndOrderProperties(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("A", "a", "1.00"),
		cleanRow("B", "b", "2.00"),
		cleanRow("C", "c", "3.00"),
	}

	got := TopN(rows, query.GroupByCategory, 10)
	if len(got) != 3 {
		t.Fatalf("n larger than group count should return all %d groups, got %d", 3, len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Total.GreaterThan(got[i-1].Total) {
			t.Errorf("ranking not descending at %d: %s > %s", i, got[i].Total, got[i-1].Total)
		}
	}

	if got := TopN(nil, query.GroupByCategory, 10); len(got) != 0 {
		t.Errorf("empty batch should rank to empty, got %v", got)
	}
}

func TestInsights(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Food", "Snacks", "10.00"),
		cleanRow("Transport", "Fuel", "30.00"),
		cleanRow("Housing", "Rent", "500.00"),
	}

	got := Insights(rows, query.GroupByCategory)

	if got.MaxGroup != "Housing" || got.MaxAmount.String() != "500" {
		t.Errorf("max = %s %s, want Housing 500", got.MaxGroup, got.MaxAmount)
	}
	if got.MinGroup != "Food" || got.MinAmount.String() != "10" {
		t.Errorf("min = %s %s, want Food 10", got.MinGroup, got.MinAmount)
	}
}

func TestInsightsTiesTakeFirstSeenGroup(t *testing.T) {
	rows := []core.CleanRow{
		cleanRow("Travel", "Flights", "10.00"),
		cleanRow("Food", "Snacks", "10.00"),
		cleanRow("Housing", "Rent", "500.00"),
	}

	got := Insights(rows, query.GroupByCategory)

	if got.MaxGroup != "Housing" {
		t.Errorf("max = %s, want Housing", got.MaxGroup)
	}
	if got.MinGroup != "Travel" {
		t.Errorf("tied min = %s, want first-seen Travel", got.MinGroup)
	}
}

func TestInsightsEmptyBatchYieldsSentinel(t *testing.T) {
	got := Insights(nil, query.GroupByCategory)

	if !got.IsEmpty() {
		t.Fatalf("empty batch insights = %+v, want sentinel", got)
	}
	if got.MaxGroup != core.NoInsights || got.MinGroup != core.NoInsights {
		t.Errorf("sentinel groups = (%s, %s), want %q", got.MaxGroup, got.MinGroup, core.NoInsights)
	}

	// Only zero amounts behaves the same as no rows.
	rows := []core.CleanRow{cleanRow("Food", "Snacks", "0.00")}
	if got := Insights(rows, query.GroupByCategory); !got.IsEmpty() {
		t.Errorf("zero-amount batch insights = %+v, want sentinel", got)
	}
}

func TestInsightsSingleGroupIsBothMaxAndMin(t *testing.T) {
	rows := []core.CleanRow{cleanRow("Food", "Snacks", "10.00")}

	got := Insights(rows, query.GroupByCategory)
	if got.MaxGroup != "Food" || got.MinGroup != "Food" {
		t.Errorf("single group = (%s, %s), want (Food, Food)", got.MaxGroup, got.MinGroup)
	}
}
