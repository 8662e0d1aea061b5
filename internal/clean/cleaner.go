// Package clean repairs missing values in a fetched expense batch before
// aggregation. The steps are ordered: later fills depend on earlier ones.
package clean

import (
	"sort"

	"expensedash/internal/core"

	"github.com/shopspring/decimal"
)

// Cleaner holds the reference tables used to resolve names back to ids.
type Cleaner struct {
	categories    []core.Category
	subcategories []core.Subcategory
}

// NewCleaner builds a cleaner over the reference tables. Reference data
// without usable name/id pairs fails fast rather than silently skipping
// resolution later.
func NewCleaner(categories []core.Category, subcategories []core.Subcategory) (*Cleaner, error) {
	if len(categories) == 0 {
		return nil, &core.SchemaMismatchError{Table: "categories", Missing: "name/id reference rows"}
	}
	if len(subcategories) == 0 {
		return nil, &core.SchemaMismatchError{Table: "subcategories", Missing: "name/id reference rows"}
	}
	return &Cleaner{categories: categories, subcategories: subcategories}, nil
}

// Clean runs the full repair pipeline on a batch:
//
//  1. drop rows where both subcategory and amount are missing;
//  2. fill missing subcategory names with the per-category mode, falling
//     back to "Miscellaneous" when the category has none in the batch;
//  3. fill missing amounts with the per-subcategory mean, falling back to 0;
//  4. resolve category and subcategory ids from the reference tables,
//     leaving -1 where a name is unknown.
//
// A batch with no missing values passes through unchanged.
func (c *Cleaner) Clean(rows []core.ExpenseRow) ([]core.CleanRow, error) {
	kept := dropUnsalvageable(rows)

	names := fillSubcategoryNames(kept)
	amounts := fillAmounts(kept, names)

	catIDs := make(map[string]int64, len(c.categories))
	for _, cat := range c.categories {
		catIDs[cat.Name] = cat.ID
	}
	subIDs := make(map[string]int64, len(c.subcategories))
	for _, sub := range c.subcategories {
		// First occurrence wins when a name repeats across categories.
		if _, ok := subIDs[sub.Name]; !ok {
			subIDs[sub.Name] = sub.ID
		}
	}

	out := make([]core.CleanRow, len(kept))
	for i, row := range kept {
		out[i] = core.CleanRow{
			Date:          row.Date,
			Category:      row.Category,
			CategoryID:    resolveID(catIDs, row.Category),
			Subcategory:   names[i],
			SubcategoryID: resolveID(subIDs, names[i]),
			Amount:        amounts[i],
		}
	}
	return out, nil
}

// dropUnsalvageable removes rows missing both subcategory and amount.
func dropUnsalvageable(rows []core.ExpenseRow) []core.ExpenseRow {
	kept := make([]core.ExpenseRow, 0, len(rows))
	for _, row := range rows {
		if !row.HasSubcategory() && !row.HasAmount() {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// fillSubcategoryNames returns the resolved subcategory name for every row.
// Missing names take the most frequent name observed within the same
// category in this batch; ties resolve to the lexicographically smallest
// name, and a category with no names at all falls back to "Miscellaneous".
func fillSubcategoryNames(rows []core.ExpenseRow) []string {
	counts := make(map[string]map[string]int)
	for _, row := range rows {
		if !row.HasSubcategory() {
			continue
		}
		if counts[row.Category] == nil {
			counts[row.Category] = make(map[string]int)
		}
		counts[row.Category][*row.Subcategory]++
	}

	modes := make(map[string]string, len(counts))
	for category, byName := range counts {
		modes[category] = modeOf(byName)
	}

	names := make([]string, len(rows))
	for i, row := range rows {
		switch {
		case row.HasSubcategory():
			names[i] = *row.Subcategory
		case modes[row.Category] != "":
			names[i] = modes[row.Category]
		default:
			names[i] = core.MiscellaneousSubcategory
		}
	}
	return names
}

// fillAmounts returns the resolved amount for every row. Missing amounts
// take the mean of the amounts sharing the same (already filled)
// subcategory name; when that group has no amounts at all, 0.
func fillAmounts(rows []core.ExpenseRow, names []string) []decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for i, row := range rows {
		if !row.HasAmount() {
			continue
		}
		sums[names[i]] = sums[names[i]].Add(*row.Amount)
		counts[names[i]]++
	}

	amounts := make([]decimal.Decimal, len(rows))
	for i, row := range rows {
		if row.HasAmount() {
			amounts[i] = *row.Amount
			continue
		}
		if n := counts[names[i]]; n > 0 {
			amounts[i] = sums[names[i]].Div(decimal.NewFromInt(n))
		}
		// else amounts[i] stays zero
	}
	return amounts
}

func modeOf(byName map[string]int) string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestCount := "", 0
	for _, name := range names {
		if byName[name] > bestCount {
			best, bestCount = name, byName[name]
		}
	}
	return best
}

func resolveID(ids map[string]int64, name string) int64 {
	if id, ok := ids[name]; ok {
		return id
	}
	return core.UnknownID
}
