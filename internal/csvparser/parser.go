// =============================================================================
// mercado - CSV Parser Module
// =============================================================================
//
// This module reads CSV exports of the household spreadsheets (usually the
// "download as CSV" link of an online spreadsheet) into a types.Table. It
// handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Custom data start rows
//   - Legacy single-byte encodings (ISO-8859-1, Windows-1252)
//   - Ragged rows and lazy quotes
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/mercado/internal/config"
	"github.com/ginjaninja78/mercado/internal/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads a CSV file into a table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - name: The logical table name used in errors.
//   - src: The table source settings (header rows, data start, CSV settings).
func ParseFile(filePath, name string, src config.TableSource) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file, name, src)
}

// Parse reads CSV data into a table.
//
// PARSING PROCESS:
//  1. Decode the input from the configured encoding
//  2. Configure the CSV reader with the configured delimiter
//  3. Read every record
//  4. Merge header rows and collect data rows from the data start row
func Parse(r io.Reader, name string, src config.TableSource) (*types.Table, error) {
	decoded, err := decode(bufio.NewReader(r), src.CSVSettings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, src.CSVSettings)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	table, err := types.NewTable(name, stripBOM(records), src.HeaderRows, src.DataStartRow)
	if err != nil {
		return nil, fmt.Errorf("failed to build table: %w", err)
	}
	return table, nil
}

// decode wraps r with a decoder for the configured encoding.
func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(encoding), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return r, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Spreadsheet exports pad short rows inconsistently.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// stripBOM removes a UTF-8 byte order mark from the first cell.
func stripBOM(records [][]string) [][]string {
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records
}
