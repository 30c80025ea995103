// =============================================================================
// mercado - Ingestion Module
// =============================================================================
//
// This module turns the three raw tables into domain records:
//
//   requirements table  ->  []types.PurchaseLine
//   price table         ->  []types.PriceSeries
//   equivalence table   ->  []types.EquivalenceRecord
//
// A missing required column is a structural error and aborts the table. Any
// other problem is a row issue: the offending row is left out (or, for a
// non-positive equivalence, kept and flagged) and the issue is recorded in
// the validation.Result passed in. Ingestion never fails because of a single
// bad cell.
//
// =============================================================================

package ingest

import (
	"fmt"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/config"
	"github.com/ginjaninja78/mercado/internal/pricing"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/internal/validation"
)

// Table names used in issues and errors.
const (
	TableRequirements = "requirements"
	TablePrices       = "prices"
	TableEquivalences = "equivalences"
)

// Tables groups the raw input tables of one evaluation.
type Tables struct {
	Requirements *types.Table
	Prices       *types.Table
	Equivalences *types.Table
}

// Dataset is the ingested, normalized input of an evaluation.
type Dataset struct {
	Requirements []types.PurchaseLine
	Prices       []types.PriceSeries
	Equivalences []types.EquivalenceRecord

	// Units is the unit table the requirements were normalized with.
	Units *catalog.Units

	// Issues collects every row problem found while ingesting.
	Issues *validation.Result
}

// NewUnits builds the unit table described by the configuration.
func NewUnits(settings config.UnitSettings) *catalog.Units {
	return catalog.NewUnits(settings.Mass, settings.Count, settings.Aliases)
}

// Load ingests all three tables.
//
// RETURNS:
//   - The dataset, with its issues.
//   - A *validation.ColumnError (wrapped) when a required column is missing.
func Load(tables Tables, cfg *config.MainConfig) (*Dataset, error) {
	ds := &Dataset{
		Units:  NewUnits(cfg.Units),
		Issues: &validation.Result{},
	}

	var err error
	ds.Requirements, err = Requirements(tables.Requirements, cfg.Columns.Requirements, ds.Units, ds.Issues)
	if err != nil {
		return nil, err
	}
	ds.Prices, err = Prices(tables.Prices, cfg.Columns.Prices, ds.Issues)
	if err != nil {
		return nil, err
	}
	ds.Equivalences, err = Equivalences(tables.Equivalences, cfg.Columns.Equivalences, ds.Issues)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// =============================================================================
// REQUIREMENTS
// =============================================================================

// Requirements reads the requirements table.
//
// Rows with a blank category or product, or with a quantity that is not a
// non-negative number, are skipped with a warning. Units are normalized
// through units; a unit that is neither the mass unit nor a declared count
// unit is kept and flagged.
func Requirements(table *types.Table, cols config.RequirementColumns, units *catalog.Units, issues *validation.Result) ([]types.PurchaseLine, error) {
	if table == nil {
		return nil, fmt.Errorf("failed to read %s: table not loaded", TableRequirements)
	}
	table.Name = TableRequirements

	pos, err := validation.RequireColumns(table, cols.Category, cols.Unit, cols.Product, cols.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TableRequirements, err)
	}

	lines := make([]types.PurchaseLine, 0, len(table.Rows))
	for i := range table.Rows {
		row := table.RowNumber(i)
		category := table.Cell(i, pos[cols.Category])
		rawUnit := table.Cell(i, pos[cols.Unit])
		product := table.Cell(i, pos[cols.Product])
		rawQty := table.Cell(i, pos[cols.Quantity])

		if category == "" {
			issues.Warn(TableRequirements, row, cols.Category, category, "blank category")
			continue
		}
		if catalog.ProductKey(product) == "" {
			issues.Warn(TableRequirements, row, cols.Product, product, "blank product")
			continue
		}
		qty, ok := pricing.ParseNumber(rawQty)
		if !ok {
			issues.Warn(TableRequirements, row, cols.Quantity, rawQty, "quantity is not a number")
			continue
		}
		if qty.IsNegative() {
			issues.Warn(TableRequirements, row, cols.Quantity, rawQty, "quantity is negative")
			continue
		}

		unit := units.Normalize(rawUnit)
		if unit == "" {
			issues.Warn(TableRequirements, row, cols.Unit, rawUnit, "blank unit")
			continue
		}
		if !units.Known(unit) {
			issues.Warn(TableRequirements, row, cols.Unit, rawUnit, "unknown unit, converted through the equivalence table")
		}

		lines = append(lines, types.PurchaseLine{
			Category: category,
			Unit:     unit,
			Product:  product,
			Quantity: qty,
			Row:      row,
		})
	}
	return lines, nil
}

// =============================================================================
// PRICES
// =============================================================================

// Prices reads the wide price table. The product column is located by name;
// every other column is a date column, kept in table order.
//
// Header labels that are not dates are flagged once. Their cells stay in the
// series and are discarded when the series is resolved.
func Prices(table *types.Table, cols config.PriceColumns, issues *validation.Result) ([]types.PriceSeries, error) {
	if table == nil {
		return nil, fmt.Errorf("failed to read %s: table not loaded", TablePrices)
	}
	table.Name = TablePrices

	pos, err := validation.RequireColumns(table, cols.Product)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TablePrices, err)
	}
	productCol := pos[cols.Product]

	var dateCols []int
	for c, label := range table.Headers {
		if c == productCol {
			continue
		}
		if _, ok := pricing.ParseDate(label); !ok {
			issues.Warn(TablePrices, 1, label, label, "column label is not a date")
		}
		dateCols = append(dateCols, c)
	}

	series := make([]types.PriceSeries, 0, len(table.Rows))
	for i := range table.Rows {
		product := table.Cell(i, productCol)
		if catalog.ProductKey(product) == "" {
			issues.Warn(TablePrices, table.RowNumber(i), cols.Product, product, "blank product")
			continue
		}

		s := types.PriceSeries{Product: product, Cells: make([]types.PriceCell, 0, len(dateCols))}
		for _, c := range dateCols {
			raw := table.Cell(i, c)
			s.Cells = append(s.Cells, types.PriceCell{DateLabel: table.Headers[c], Raw: raw})
			if raw == "" {
				continue
			}
			if _, ok := pricing.ParsePrice(raw); !ok {
				issues.Warn(TablePrices, table.RowNumber(i), table.Headers[c], raw, "price is not a number")
			}
		}
		series = append(series, s)
	}
	return series, nil
}

// =============================================================================
// EQUIVALENCES
// =============================================================================

// Equivalences reads the unit-equivalence table.
//
// A factor that does not parse is skipped with a warning. A factor that
// parses but is not positive is kept, so the converter reports the product
// as invalid rather than missing, and recorded as an error issue.
func Equivalences(table *types.Table, cols config.EquivalenceColumns, issues *validation.Result) ([]types.EquivalenceRecord, error) {
	if table == nil {
		return nil, fmt.Errorf("failed to read %s: table not loaded", TableEquivalences)
	}
	table.Name = TableEquivalences

	pos, err := validation.RequireColumns(table, cols.Product, cols.UnitsPerKilogram)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TableEquivalences, err)
	}

	records := make([]types.EquivalenceRecord, 0, len(table.Rows))
	for i := range table.Rows {
		row := table.RowNumber(i)
		product := table.Cell(i, pos[cols.Product])
		raw := table.Cell(i, pos[cols.UnitsPerKilogram])

		if catalog.ProductKey(product) == "" {
			issues.Warn(TableEquivalences, row, cols.Product, product, "blank product")
			continue
		}
		factor, ok := pricing.ParseNumber(raw)
		if !ok {
			issues.Warn(TableEquivalences, row, cols.UnitsPerKilogram, raw, "units per kilogram is not a number")
			continue
		}
		if !factor.IsPositive() {
			issues.Fail(TableEquivalences, row, cols.UnitsPerKilogram, raw, "units per kilogram must be positive")
		}

		records = append(records, types.EquivalenceRecord{Product: product, UnitsPerKilogram: factor})
	}
	return records, nil
}
