// =============================================================================
// mercado - Price and Number Parsing
// =============================================================================
//
// The price table is typed by hand in a Peruvian locale spreadsheet, so the
// same column may contain any of:
//
//   | Cell text    | Value   |
//   |--------------|---------|
//   | 12.50        | 12.50   |
//   | 12,50        | 12.50   |
//   | S/. 12,50    | 12.50   |
//   | S/12.50      | 12.50   |
//   | S/.5         | 5       |
//   | S/ .5        | 0.50    |
//   | S/ 1.234,56  | 1234.56 |
//   | 1,234.56     | 1234.56 |
//   | 1.234.567    | 1234567 |
//   | 12,50 €      | 12.50   |
//   | (blank)      | none    |
//   | sin precio   | none    |
//
// SEPARATOR RULES (applied after currency markers and spaces are removed):
//   - Both "." and "," present: the right-most one is the decimal separator,
//     every occurrence of the other is a thousands separator.
//   - Only ",": a single comma is the decimal separator, several commas are
//     thousands separators.
//   - Only ".": a single dot is the decimal separator, several dots are
//     thousands separators.
//
// "S/." is always read as the currency marker, period included, so "S/.5"
// is five soles. A leading-dot fraction needs a space after the marker.
//
// Parsing never fails loudly: text that does not reduce to a plain decimal
// literal is reported as "no value" through the boolean result.
//
// =============================================================================

package pricing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// currencyPrefix matches a leading currency marker. A period after the marker
// is only consumed when whitespace follows it, so "$.50" keeps its decimal.
var currencyPrefix = regexp.MustCompile(`(?i)^(s/\.?|us\$|usd|pen|\$|€|£)(\.\s+|\s*)`)

// currencySuffix matches a trailing currency marker ("12,50 €", "10 soles").
var currencySuffix = regexp.MustCompile(`(?i)\s*(s/\.?|us\$|usd|pen|soles|\$|€|£)\.?$`)

// plainNumber is the only shape handed to the decimal parser.
var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParsePrice parses a currency cell. The boolean is false when the cell is
// empty or does not contain a number.
func ParsePrice(text string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}

	s = currencyPrefix.ReplaceAllString(s, "")
	s = currencySuffix.ReplaceAllString(s, "")

	value, ok := ParseNumber(s)
	if !ok {
		return decimal.Zero, false
	}
	if negative {
		value = value.Neg()
	}
	return value, true
}

// ParseNumber parses a locale formatted number without currency markers.
// It is used for quantities and equivalence factors as well as prices.
func ParseNumber(text string) (decimal.Decimal, bool) {
	s := removeSpaces(text)
	if s == "" {
		return decimal.Zero, false
	}

	s = normalizeSeparators(s)
	if !plainNumber.MatchString(s) {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// removeSpaces drops every Unicode space, including the no-break spaces that
// spreadsheets use as thousands separators.
func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// normalizeSeparators rewrites s so that "." is the only decimal separator and
// no thousands separators remain.
func normalizeSeparators(s string) string {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}

	return s
}

// =============================================================================
// DATE LABELS
// =============================================================================

// dateLayouts are tried in order. Day-first layouts come first because the
// price table is written as dd/mm/yyyy.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/2006 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"2/1/06",
}

// ParseDate parses a date column label. Besides the layouts above it accepts
// spreadsheet serial numbers, which is what an XLSX header holds when the
// cell is a bare date value. The time of day is dropped, so labels on the
// same calendar date compare equal.
func ParseDate(label string) (time.Time, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(24 * time.Hour), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 20000 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Truncate(24 * time.Hour), true
		}
	}

	return time.Time{}, false
}
