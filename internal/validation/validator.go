// =============================================================================
// mercado - Validation Module
// =============================================================================
//
// This module classifies everything that can be wrong with an input table:
//
//   1. Structural errors: a required column is missing. These are fatal for
//      the table and are returned as *ColumnError (wrapping ErrMissingColumn).
//   2. Row issues: a malformed cell (quantity or factor that does not parse,
//      blank product) or a data error (non-positive equivalence). These never
//      stop processing; the row or cell is excluded and an Issue is recorded.
//
// Issues carry the table name, the source row number, the column and the
// offending value so that they can be printed or logged verbatim.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/types"
)

// =============================================================================
// STRUCTURAL ERRORS
// =============================================================================

// ErrMissingColumn is wrapped by every *ColumnError.
var ErrMissingColumn = errors.New("missing required column")

// ColumnError reports a required column that is absent from a table.
type ColumnError struct {
	// Table is the logical table name ("requirements", "prices", ...).
	Table string

	// Column is the configured name of the missing column.
	Column string

	// Available lists the headers that were found.
	Available []string
}

// Error implements the error interface.
func (e *ColumnError) Error() string {
	return fmt.Sprintf("table %q: required column %q not found (available: %s)",
		e.Table, e.Column, strings.Join(e.Available, ", "))
}

// Unwrap lets errors.Is match ErrMissingColumn.
func (e *ColumnError) Unwrap() error {
	return ErrMissingColumn
}

// RequireColumns resolves the position of every required column in the
// table header. Header matching ignores case, accents and extra spaces.
//
// RETURNS:
//   - A map from the configured column name to its index.
//   - A *ColumnError for the first column that cannot be found.
func RequireColumns(table *types.Table, columns ...string) (map[string]int, error) {
	positions := make(map[string]int, len(columns))
	for _, column := range columns {
		idx := FindColumn(table.Headers, column)
		if idx < 0 {
			return nil, &ColumnError{Table: table.Name, Column: column, Available: table.Headers}
		}
		positions[column] = idx
	}
	return positions, nil
}

// FindColumn returns the index of column in headers, or -1.
func FindColumn(headers []string, column string) int {
	want := catalog.HeaderKey(column)
	for i, h := range headers {
		if catalog.HeaderKey(h) == want {
			return i
		}
	}
	return -1
}

// =============================================================================
// ROW ISSUES
// =============================================================================

// Severity levels of an Issue.
const (
	// SeverityWarning marks a malformed cell that was skipped.
	SeverityWarning = "warning"

	// SeverityError marks invalid reference data that was ignored.
	SeverityError = "error"
)

// Issue is a non-fatal problem found in a table row.
type Issue struct {
	Severity string
	Table    string
	Row      int
	Column   string
	Value    string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("[%s] %s row %d, column '%s': %s (value: '%s')",
		strings.ToUpper(i.Severity),
		i.Table,
		i.Row,
		i.Column,
		i.Message,
		i.Value,
	)
}

// Result collects the issues found while reading one or more tables.
type Result struct {
	Issues       []Issue
	WarningCount int
	ErrorCount   int
}

// Add records an issue.
func (r *Result) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// Warn records a malformed cell.
func (r *Result) Warn(table string, row int, column, value, message string) {
	r.Add(Issue{Severity: SeverityWarning, Table: table, Row: row, Column: column, Value: value, Message: message})
}

// Fail records a data error.
func (r *Result) Fail(table string, row int, column, value, message string) {
	r.Add(Issue{Severity: SeverityError, Table: table, Row: row, Column: column, Value: value, Message: message})
}

// Len returns the number of issues.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Issues)
}

// FormatIssues formats issues for display, one per line.
func FormatIssues(issues []Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d issue(s):\n", len(issues)))
	for i, issue := range issues {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, issue.Error()))
	}
	return sb.String()
}
