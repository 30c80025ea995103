package report

import (
	"fmt"

	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetList   = "List"
	SheetCosts  = "Costs"
	SheetTotals = "Totals"
)

// GenerateXLSX builds a workbook of an evaluation with three sheets: the
// shopping list with checklist state, the costed lines and the totals.
// Quantities and money values are written as numbers.
func GenerateXLSX(ev *planner.Evaluation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetList); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	for _, name := range []string{SheetCosts, SheetTotals} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	list := [][]interface{}{{"#", "Bought", "Quantity", "Unit", "Product", "Price/kg", "As of"}}
	for i, line := range ev.Aggregated {
		row := []interface{}{i + 1, ev.Checklist[i].Checked, line.TotalQuantity.InexactFloat64(), line.Unit, line.Product, nil, nil}
		if p := ev.Prices[i]; p.Price.Valid {
			row[5] = p.Price.Decimal.Round(2).InexactFloat64()
			row[6] = p.Date.Format(dateLayout)
		}
		list = append(list, row)
	}
	if err := writeRows(f, SheetList, list); err != nil {
		return nil, err
	}

	costs := [][]interface{}{{"Category", "Quantity", "Unit", "Product", "Kg", "Price/kg", "Cost"}}
	for _, l := range ev.Costs.Lines {
		var price interface{}
		if l.UnitPrice.Valid {
			price = l.UnitPrice.Decimal.Round(2).InexactFloat64()
		}
		costs = append(costs, []interface{}{
			l.Category, l.Quantity.InexactFloat64(), l.Unit, l.Product,
			l.CanonicalQuantity.InexactFloat64(), price, l.Cost.Round(2).InexactFloat64(),
		})
	}
	if err := writeRows(f, SheetCosts, costs); err != nil {
		return nil, err
	}

	totals := [][]interface{}{{"Category", "Lines", "Total"}}
	for _, c := range ev.Costs.Categories {
		totals = append(totals, []interface{}{c.Category, c.Lines, c.Total.Round(2).InexactFloat64()})
	}
	totals = append(totals, []interface{}{"TOTAL", nil, ev.Costs.GrandTotal.Round(2).InexactFloat64()})
	for _, p := range ev.Costs.MissingPrices {
		totals = append(totals, []interface{}{"No price", p})
	}
	for _, p := range ev.Costs.MissingEquivalences {
		totals = append(totals, []interface{}{"No units per kg", p})
	}
	if err := writeRows(f, SheetTotals, totals); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
