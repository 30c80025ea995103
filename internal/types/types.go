// =============================================================================
// mercado - Shared Types
// =============================================================================
//
// This package contains the domain types shared by the ingestion, pricing,
// planning, checklist and reporting packages. Keeping them here avoids import
// cycles between:
//   - ingest
//   - pricing
//   - planner
//   - report
//
// All quantities and money values are shopspring decimals so that sums and
// rollups are exact.
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW TABLES
// =============================================================================

// Table is a parsed tabular source: a header row and the data rows below it.
// Rows keep the column order of the source; a row may be shorter than the
// header when trailing cells are empty.
type Table struct {
	// Name identifies the table in errors and logs (e.g. "requirements").
	Name string

	// Headers contains the cleaned column headers in source order.
	Headers []string

	// Rows contains the raw cell values of each data row.
	Rows [][]string

	// RowNumbers holds the 1-indexed source row number of each entry in Rows.
	RowNumbers []int
}

// Cell returns the value of column col in row i, or "" when the row is short.
func (t *Table) Cell(i, col int) string {
	if i < 0 || i >= len(t.Rows) || col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// RowNumber returns the source row number of data row i.
func (t *Table) RowNumber(i int) int {
	if i >= 0 && i < len(t.RowNumbers) {
		return t.RowNumbers[i]
	}
	return i + 2
}

// NewTable builds a Table from raw records.
//
// PARAMETERS:
//   - name: The logical table name.
//   - records: Every record of the source, header rows included.
//   - headerRows: Number of header rows (at least 1). Multi-row headers are
//     merged per column with a space.
//   - dataStartRow: 1-indexed row of the first data record. Values below
//     headerRows+1 are raised to it.
//
// Blank rows are skipped; cells are trimmed; blank headers become
// "Column_N".
func NewTable(name string, records [][]string, headerRows, dataStartRow int) (*Table, error) {
	if headerRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %q is empty", name)
	}
	if len(records) < headerRows {
		return nil, fmt.Errorf("table %q has fewer rows than header_rows", name)
	}

	maxCols := 0
	for i := 0; i < headerRows; i++ {
		if len(records[i]) > maxCols {
			maxCols = len(records[i])
		}
	}
	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < headerRows; row++ {
			if col < len(records[row]) {
				if v := strings.TrimSpace(records[row][col]); v != "" {
					parts = append(parts, v)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
		if headers[col] == "" {
			headers[col] = fmt.Sprintf("Column_%d", col+1)
		}
	}

	start := dataStartRow - 1
	if start < headerRows {
		start = headerRows
	}

	table := &Table{Name: name, Headers: headers}
	for i := start; i < len(records); i++ {
		if isBlank(records[i]) {
			continue
		}
		row := make([]string, len(records[i]))
		for j, cell := range records[i] {
			row[j] = strings.TrimSpace(cell)
		}
		table.Rows = append(table.Rows, row)
		table.RowNumbers = append(table.RowNumbers, i+1)
	}
	return table, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// INPUT ENTITIES
// =============================================================================

// PurchaseLine is one row of the requirements table.
type PurchaseLine struct {
	// Category groups lines into a selectable planning unit (a dish, a list).
	Category string

	// Unit is the normalized unit identity (e.g. "kg", "und").
	Unit string

	// Product is the product name as written in the source.
	Product string

	// Quantity is the required amount, expressed in Unit.
	Quantity decimal.Decimal

	// Row is the source row number, used for diagnostics only.
	Row int
}

// PriceCell is a single (date label, raw price text) cell of a price series.
type PriceCell struct {
	DateLabel string
	Raw       string
}

// PriceSeries is one row of the wide price table.
// Cells are kept in column order; the order matters for tie-breaking.
type PriceSeries struct {
	Product string
	Cells   []PriceCell
}

// EquivalenceRecord defines how many individual units make one kilogram.
type EquivalenceRecord struct {
	Product          string
	UnitsPerKilogram decimal.Decimal
}

// =============================================================================
// DERIVED ENTITIES
// =============================================================================

// AggregatedLine holds the total quantity of a (unit, product) pair across
// the selected categories.
type AggregatedLine struct {
	Unit          string
	Product       string
	TotalQuantity decimal.Decimal
}

// ResolvedPrice is the latest parseable price of a product.
// Price.Valid is false when no cell of the series parsed; Date and Label are
// then zero.
type ResolvedPrice struct {
	Product string
	Price   decimal.NullDecimal
	Date    time.Time
	Label   string
}

// CostLine is the costing of a single PurchaseLine.
type CostLine struct {
	Category          string
	Unit              string
	Product           string
	Quantity          decimal.Decimal
	CanonicalQuantity decimal.Decimal

	// UnitPrice is null when the product has no resolved price.
	UnitPrice decimal.NullDecimal

	// Cost is CanonicalQuantity * UnitPrice, or zero when the price is null.
	Cost decimal.Decimal
}

// CategoryTotal is the summed cost of the lines of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Lines    int
}

// CostReport is the output of the cost calculator.
type CostReport struct {
	Lines      []CostLine
	Categories []CategoryTotal
	GrandTotal decimal.Decimal

	// MissingPrices lists products (display names) costed at zero because no
	// price resolved.
	MissingPrices []string

	// MissingEquivalences lists products whose count unit could not be
	// converted to the mass unit.
	MissingEquivalences []string
}

// ChecklistItem is a checklist entry ready for presentation.
type ChecklistItem struct {
	Key     string
	Label   string
	Checked bool
}

// =============================================================================
// SELECTION
// =============================================================================

// Selection is the set of categories chosen for an evaluation, in the order
// they should be reported.
type Selection []string

// Contains reports whether category is part of the selection.
func (s Selection) Contains(category string) bool {
	for _, c := range s {
		if c == category {
			return true
		}
	}
	return false
}

// Set returns the selection as a lookup set.
func (s Selection) Set() map[string]bool {
	set := make(map[string]bool, len(s))
	for _, c := range s {
		set[c] = true
	}
	return set
}
