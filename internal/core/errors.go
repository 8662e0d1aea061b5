package core

import (
	"errors"
	"fmt"
)

// ErrNoData is the first-class empty-result outcome. The dashboard path maps
// it to empty rows plus the insight sentinel; only the export path surfaces
// it as a refusal to produce a file.
var ErrNoData = errors.New("no data available")

// InvalidMonthNameError reports a month value that does not match the
// calendar list (or a numeric month outside 1..12).
type InvalidMonthNameError struct {
	Month string
}

func (e *InvalidMonthNameError) Error() string {
	return fmt.Sprintf("invalid month name: %q", e.Month)
}

// ConnectivityError wraps a driver failure to reach the store. It is
// surfaced to the caller, never retried.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("store unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// SchemaMismatchError reports that a query or reference table did not have
// the expected columns. Callers fail fast rather than skip steps.
type SchemaMismatchError struct {
	Table   string
	Missing string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: table %s missing %s", e.Table, e.Missing)
}
