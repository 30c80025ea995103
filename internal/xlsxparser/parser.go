// =============================================================================
// mercado - XLSX Parser Module
// =============================================================================
//
// This module reads one sheet of an XLSX workbook into a types.Table.
//
// Cells are read with their raw values instead of the displayed text, so a
// date typed into a header cell of the price sheet comes through as its
// spreadsheet serial number (e.g. "45352") rather than as a locale-dependent
// display string. pricing.ParseDate accepts both forms.
//
// SHEET SELECTION:
//   - source.Sheet set:   the sheet with that name (case and accents ignored)
//   - source.Sheet empty: the first sheet of the workbook
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/config"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/xuri/excelize/v2"
)

// ParseFile reads a sheet of an XLSX file into a table.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - name: The logical table name used in errors.
//   - src: The table source settings (sheet, header rows, data start).
func ParseFile(filePath, name string, src config.TableSource) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, name, src)
}

// Parse reads a sheet of an XLSX workbook from r into a table.
func Parse(r io.Reader, name string, src config.TableSource) (*types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, name, src)
}

func parseWorkbook(f *excelize.File, name string, src config.TableSource) (*types.Table, error) {
	sheetName, err := resolveSheet(f, src.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	table, err := types.NewTable(name, rows, src.HeaderRows, src.DataStartRow)
	if err != nil {
		return nil, fmt.Errorf("failed to build table from sheet %q: %w", sheetName, err)
	}
	return table, nil
}

// resolveSheet returns the sheet to read.
func resolveSheet(f *excelize.File, wanted string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if wanted == "" {
		return sheets[0], nil
	}

	key := catalog.HeaderKey(wanted)
	for _, s := range sheets {
		if catalog.HeaderKey(s) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found (available: %v)", wanted, sheets)
}
