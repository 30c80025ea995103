package planner

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/shopspring/decimal"
)

// groupKey identifies an aggregated line.
type groupKey struct {
	unit    string
	product string
}

// Aggregate sums the quantities of the lines of the selected categories by
// (unit, product).
//
// Products are grouped by identity, so "Limón" and "limon " add up; the
// first spelling seen is kept for display. The result is ordered by unit and
// then by product. An empty selection yields an empty result.
func Aggregate(lines []types.PurchaseLine, selection types.Selection) []types.AggregatedLine {
	if len(selection) == 0 {
		return []types.AggregatedLine{}
	}
	selected := selection.Set()

	totals := make(map[groupKey]*types.AggregatedLine)
	var order []groupKey
	for _, line := range lines {
		if !selected[line.Category] {
			continue
		}
		key := groupKey{unit: catalog.Fold(line.Unit), product: catalog.ProductKey(line.Product)}
		if agg, ok := totals[key]; ok {
			agg.TotalQuantity = agg.TotalQuantity.Add(line.Quantity)
			continue
		}
		totals[key] = &types.AggregatedLine{
			Unit:          line.Unit,
			Product:       line.Product,
			TotalQuantity: line.Quantity,
		}
		order = append(order, key)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].unit != order[j].unit {
			return order[i].unit < order[j].unit
		}
		return order[i].product < order[j].product
	})

	out := make([]types.AggregatedLine, 0, len(order))
	for _, key := range order {
		out = append(out, *totals[key])
	}
	return out
}

// totalQuantity returns the sum of every aggregated quantity.
func totalQuantity(lines []types.AggregatedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.TotalQuantity)
	}
	return sum
}

// =============================================================================
// CATEGORIES
// =============================================================================

// Categories returns the distinct categories of lines. Numeric categories
// ("1", "2", "10") come first in numeric order, the rest follow by folded
// name.
func Categories(lines []types.PurchaseLine) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lines {
		if l.Category == "" || seen[l.Category] {
			continue
		}
		seen[l.Category] = true
		out = append(out, l.Category)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return categoryLess(out[i], out[j])
	})
	return out
}

func categoryLess(a, b string) bool {
	na, errA := decimal.NewFromString(strings.TrimSpace(a))
	nb, errB := decimal.NewFromString(strings.TrimSpace(b))
	switch {
	case errA == nil && errB == nil:
		if !na.Equal(nb) {
			return na.LessThan(nb)
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	fa, fb := catalog.Fold(a), catalog.Fold(b)
	if fa != fb {
		return fa < fb
	}
	return a < b
}
