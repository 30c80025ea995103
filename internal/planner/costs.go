package planner

import (
	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/internal/units"
	"github.com/shopspring/decimal"
)

// PriceLookup resolves the unit price (per mass unit) of a product.
// *pricing.Index implements it.
type PriceLookup interface {
	Price(product string) decimal.NullDecimal
}

// QuantityConverter converts a quantity into the mass unit.
// *units.Converter implements it.
type QuantityConverter interface {
	ToCanonical(qty decimal.Decimal, unit, product string) (decimal.Decimal, units.Conversion)
}

// ComputeCosts prices every line of the selected categories.
//
// Each line is converted to the mass unit and multiplied by the product's
// latest price. A line without a price is still listed, with a null unit
// price and a zero cost. Category totals follow the selection order and the
// grand total is their sum; since all arithmetic is decimal, it equals the
// sum over the lines for any grouping.
func ComputeCosts(selection types.Selection, lines []types.PurchaseLine, prices PriceLookup, conv QuantityConverter) types.CostReport {
	report := types.CostReport{
		Lines:      []types.CostLine{},
		Categories: []types.CategoryTotal{},
		GrandTotal: decimal.Zero,
	}

	totals := make(map[string]*types.CategoryTotal)
	for _, category := range selection {
		if _, ok := totals[category]; ok {
			continue
		}
		report.Categories = append(report.Categories, types.CategoryTotal{Category: category, Total: decimal.Zero})
		totals[category] = nil
	}
	for i := range report.Categories {
		totals[report.Categories[i].Category] = &report.Categories[i]
	}

	missingPrice := make(map[string]bool)
	missingEquivalence := make(map[string]bool)

	for _, line := range lines {
		total, ok := totals[line.Category]
		if !ok {
			continue
		}

		canonical, conversion := conv.ToCanonical(line.Quantity, line.Unit, line.Product)
		if conversion.Fallback() {
			key := catalog.ProductKey(line.Product)
			if !missingEquivalence[key] {
				missingEquivalence[key] = true
				report.MissingEquivalences = append(report.MissingEquivalences, line.Product)
			}
		}

		cost := decimal.Zero
		price := prices.Price(line.Product)
		if price.Valid {
			cost = canonical.Mul(price.Decimal)
		} else {
			key := catalog.ProductKey(line.Product)
			if !missingPrice[key] {
				missingPrice[key] = true
				report.MissingPrices = append(report.MissingPrices, line.Product)
			}
		}

		report.Lines = append(report.Lines, types.CostLine{
			Category:          line.Category,
			Unit:              line.Unit,
			Product:           line.Product,
			Quantity:          line.Quantity,
			CanonicalQuantity: canonical,
			UnitPrice:         price,
			Cost:              cost,
		})
		total.Total = total.Total.Add(cost)
		total.Lines++
	}

	for _, c := range report.Categories {
		report.GrandTotal = report.GrandTotal.Add(c.Total)
	}
	return report
}
