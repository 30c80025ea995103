// =============================================================================
// mercado - Report Module
// =============================================================================
//
// This module renders evaluations for people and for other programs:
//
//   text.go  ->  aligned terminal tables (shopping list, prices, costs,
//                checklist, input issues, sessions)
//   xml.go   ->  an XML document of the whole evaluation
//   xlsx.go  ->  a workbook with one sheet per view
//
// Money is printed with the configured currency symbol and the number
// conventions of the configured locale. Quantities are printed exactly.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/ginjaninja78/mercado/internal/storage"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/internal/validation"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "02/01/2006"

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter formats money values for one locale and currency.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter creates a Formatter. An unparseable locale falls back to
// plain formatting.
func NewFormatter(locale, currency string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: currency}
}

// Money formats d rounded to two decimals, e.g. "S/ 1,234.50".
func (f *Formatter) Money(d decimal.Decimal) string {
	amount := f.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
	if f.currency == "" {
		return amount
	}
	return f.currency + " " + amount
}

// NullMoney formats a nullable value, printing "-" when it is null.
func (f *Formatter) NullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return f.Money(d.Decimal)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// =============================================================================
// VIEWS
// =============================================================================

// WriteCategories prints the selectable categories, one per line.
func WriteCategories(w io.Writer, categories []string) {
	for _, c := range categories {
		fmt.Fprintln(w, c)
	}
}

// WriteList prints the shopping list of an evaluation with its checklist
// state and the latest price of each product.
func (f *Formatter) WriteList(w io.Writer, ev *planner.Evaluation) error {
	if len(ev.Aggregated) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to buy: the selection is empty.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "#\t\tQUANTITY\tUNIT\tPRODUCT\tPRICE/KG\tAS OF")
	for i, line := range ev.Aggregated {
		mark := "[ ]"
		if ev.Checklist[i].Checked {
			mark = "[x]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, mark, line.TotalQuantity.String(), line.Unit, line.Product,
			f.NullMoney(ev.Prices[i].Price), formatDate(ev.Prices[i]))
	}
	return tw.Flush()
}

// WriteChecklist prints the checklist items with their keys.
func WriteChecklist(w io.Writer, items []types.ChecklistItem) error {
	tw := newTable(w)
	done := 0
	for i, item := range items {
		mark := "[ ]"
		if item.Checked {
			mark = "[x]"
			done++
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, mark, item.Label, item.Key)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d bought\n", done, len(items))
	return err
}

// WritePrices prints resolved prices.
func (f *Formatter) WritePrices(w io.Writer, prices []types.ResolvedPrice) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tPRICE/KG\tAS OF")
	for _, p := range prices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Product, f.NullMoney(p.Price), formatDate(p))
	}
	return tw.Flush()
}

// WriteCosts prints the category totals and the grand total. With detailed
// set, every costed line is listed under its category.
func (f *Formatter) WriteCosts(w io.Writer, costs types.CostReport, detailed bool) error {
	tw := newTable(w)
	if detailed {
		fmt.Fprintln(tw, "CATEGORY\tQUANTITY\tUNIT\tPRODUCT\tKG\tPRICE/KG\tCOST")
		for _, l := range costs.Lines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				l.Category, l.Quantity.String(), l.Unit, l.Product,
				l.CanonicalQuantity.String(), f.NullMoney(l.UnitPrice), f.Money(l.Cost))
		}
		fmt.Fprintln(tw, "\t\t\t\t\t\t")
	}

	fmt.Fprintln(tw, "CATEGORY\tLINES\tTOTAL")
	for _, c := range costs.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Category, c.Lines, f.Money(c.Total))
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\n", f.Money(costs.GrandTotal))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(costs.MissingPrices) > 0 {
		fmt.Fprintf(w, "\nNo price (costed at zero): %s\n", strings.Join(costs.MissingPrices, ", "))
	}
	if len(costs.MissingEquivalences) > 0 {
		fmt.Fprintf(w, "No units-per-kilogram (counted as zero kg): %s\n", strings.Join(costs.MissingEquivalences, ", "))
	}
	return nil
}

// WriteIssues prints input issues. Nothing is printed when there are none.
func WriteIssues(w io.Writer, issues []validation.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	_, err := fmt.Fprint(w, validation.FormatIssues(issues))
	return err
}

// WriteSessions prints stored sessions.
func WriteSessions(w io.Writer, sessions []storage.SessionInfo, now time.Time) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tID\tCATEGORIES\tBOUGHT\tMANUAL\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%d\t%s\n",
			s.Name, s.ID, s.Categories, s.Checked, s.Items, s.Manual,
			humanize.RelTime(s.UpdatedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

// Write prints the full evaluation: list, costs and issues.
func (f *Formatter) Write(w io.Writer, ev *planner.Evaluation, detailed bool) error {
	if ev.SessionName != "" {
		fmt.Fprintf(w, "Session %s, categories: %s\n\n", ev.SessionName, strings.Join(ev.Selection, ", "))
	}
	if err := f.WriteList(w, ev); err != nil {
		return err
	}
	if len(ev.Aggregated) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	if err := f.WriteCosts(w, ev.Costs, detailed); err != nil {
		return err
	}
	return nil
}

func formatDate(p types.ResolvedPrice) string {
	if !p.Price.Valid || p.Date.IsZero() {
		return "-"
	}
	return p.Date.Format(dateLayout)
}
