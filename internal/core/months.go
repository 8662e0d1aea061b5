package core

import (
	"strconv"
	"strings"
)

// monthNames is the fixed calendar list used for name resolution.
// Matching is case-sensitive and exact.
var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ResolveMonth translates a month given as an English name ("February") or a
// 1-based number ("2") into its numeric form. An empty string means
// "no month filter" and resolves to 0 with no error.
func ResolveMonth(month string) (int, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(month); err == nil {
		if n < 1 || n > 12 {
			return 0, &InvalidMonthNameError{Month: month}
		}
		return n, nil
	}
	for i, name := range monthNames {
		if name == month {
			return i + 1, nil
		}
	}
	return 0, &InvalidMonthNameError{Month: month}
}

// MonthName returns the English name for a 1-based month number, or "" when
// out of range.
func MonthName(n int) string {
	if n < 1 || n > 12 {
		return ""
	}
	return monthNames[n-1]
}

// MonthNames returns the calendar list in order, for filter catalogs.
func MonthNames() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames[:])
	return out
}
