package pricing

import (
	"sort"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LATEST PRICE RESOLUTION
// =============================================================================

// Latest resolves the most recent parseable price of a series.
//
// Cells whose date label or price text does not parse are skipped. Among the
// remaining cells the latest date wins; when two cells carry the same date the
// one further right in the table wins. A series without any parseable cell
// resolves to a null price, never to zero.
func Latest(series types.PriceSeries) types.ResolvedPrice {
	resolved, _ := latest(series)
	return resolved
}

// latest also returns how many non-blank cells were discarded as malformed.
func latest(series types.PriceSeries) (types.ResolvedPrice, int) {
	resolved := types.ResolvedPrice{Product: series.Product}
	discarded := 0

	for _, cell := range series.Cells {
		date, ok := ParseDate(cell.DateLabel)
		if !ok {
			if cell.Raw != "" {
				discarded++
			}
			continue
		}
		price, ok := ParsePrice(cell.Raw)
		if !ok {
			if cell.Raw != "" {
				discarded++
			}
			continue
		}
		if !resolved.Price.Valid || !date.Before(resolved.Date) {
			resolved.Price = decimal.NewNullDecimal(price)
			resolved.Date = date
			resolved.Label = cell.DateLabel
		}
	}

	return resolved, discarded
}

// =============================================================================
// PRICE INDEX
// =============================================================================

// Index holds the resolved price of every product of a price table, keyed by
// product identity.
type Index struct {
	prices map[string]types.ResolvedPrice
	order  []string

	// Discarded counts the non-blank cells that could not be parsed.
	Discarded int
}

// ResolveAll resolves every series of a price table.
//
// A product listed on several rows is treated as one series whose cells are
// the concatenation of its rows in table order, so a later row wins ties.
func ResolveAll(series []types.PriceSeries) *Index {
	merged := make(map[string]*types.PriceSeries)
	var order []string

	for _, s := range series {
		key := catalog.ProductKey(s.Product)
		if key == "" {
			continue
		}
		if existing, ok := merged[key]; ok {
			existing.Cells = append(existing.Cells, s.Cells...)
			continue
		}
		cells := make([]types.PriceCell, len(s.Cells))
		copy(cells, s.Cells)
		merged[key] = &types.PriceSeries{Product: s.Product, Cells: cells}
		order = append(order, key)
	}

	idx := &Index{
		prices: make(map[string]types.ResolvedPrice, len(merged)),
		order:  order,
	}
	for _, key := range order {
		resolved, discarded := latest(*merged[key])
		idx.prices[key] = resolved
		idx.Discarded += discarded
	}
	return idx
}

// Lookup returns the resolved price of product. ok is false when the product
// is not listed in the price table at all; a listed product without any
// parseable price is returned with ok true and a null price.
func (idx *Index) Lookup(product string) (types.ResolvedPrice, bool) {
	if idx == nil {
		return types.ResolvedPrice{}, false
	}
	resolved, ok := idx.prices[catalog.ProductKey(product)]
	return resolved, ok
}

// Price returns the resolved unit price of product, null when unknown.
func (idx *Index) Price(product string) decimal.NullDecimal {
	resolved, ok := idx.Lookup(product)
	if !ok {
		return decimal.NullDecimal{}
	}
	return resolved.Price
}

// All returns every resolved price sorted by product identity.
func (idx *Index) All() []types.ResolvedPrice {
	if idx == nil {
		return nil
	}
	keys := make([]string, len(idx.order))
	copy(keys, idx.order)
	sort.Strings(keys)

	out := make([]types.ResolvedPrice, 0, len(keys))
	for _, key := range keys {
		out = append(out, idx.prices[key])
	}
	return out
}

// Len returns the number of products in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.prices)
}
