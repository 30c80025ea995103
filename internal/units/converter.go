// Package units converts requirement quantities into the canonical mass unit.
package units

import (
	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/shopspring/decimal"
)

// Conversion describes how a quantity reached the canonical unit.
type Conversion int

const (
	// ConversionIdentity means the quantity was already in the mass unit.
	ConversionIdentity Conversion = iota

	// ConversionEquivalence means the quantity was divided by the product's
	// units-per-kilogram factor.
	ConversionEquivalence

	// ConversionMissingEquivalence means no equivalence exists for the
	// product; the canonical quantity is zero.
	ConversionMissingEquivalence

	// ConversionInvalidEquivalence means the equivalence exists but is not
	// positive; the canonical quantity is zero.
	ConversionInvalidEquivalence
)

func (c Conversion) String() string {
	switch c {
	case ConversionIdentity:
		return "identity"
	case ConversionEquivalence:
		return "equivalence"
	case ConversionMissingEquivalence:
		return "missing_equivalence"
	case ConversionInvalidEquivalence:
		return "invalid_equivalence"
	default:
		return "unknown"
	}
}

// Fallback reports whether the conversion fell back to zero.
func (c Conversion) Fallback() bool {
	return c == ConversionMissingEquivalence || c == ConversionInvalidEquivalence
}

// Converter turns (quantity, unit, product) into kilograms.
type Converter struct {
	units *catalog.Units
	rules map[string]decimal.Decimal // product identity -> units per kilogram
}

// NewConverter builds a converter from the equivalence table. When a product
// appears more than once the last record wins.
func NewConverter(units *catalog.Units, records []types.EquivalenceRecord) *Converter {
	c := &Converter{
		units: units,
		rules: make(map[string]decimal.Decimal, len(records)),
	}
	for _, r := range records {
		c.AddRule(r.Product, r.UnitsPerKilogram)
	}
	return c
}

// AddRule registers how many units of product make one kilogram.
func (c *Converter) AddRule(product string, unitsPerKilogram decimal.Decimal) {
	key := catalog.ProductKey(product)
	if key == "" {
		return
	}
	c.rules[key] = unitsPerKilogram
}

// ToCanonical converts qty expressed in unit into kilograms.
//
// Quantities already in the mass unit are returned unchanged. Count units are
// divided by the product's units-per-kilogram; when that factor is absent or
// not positive the result is zero and the returned Conversion says why, so the
// caller can report the incomplete reference data.
func (c *Converter) ToCanonical(qty decimal.Decimal, unit, product string) (decimal.Decimal, Conversion) {
	if c.units.IsMass(unit) {
		return qty, ConversionIdentity
	}

	factor, ok := c.rules[catalog.ProductKey(product)]
	if !ok {
		return decimal.Zero, ConversionMissingEquivalence
	}
	if !factor.IsPositive() {
		return decimal.Zero, ConversionInvalidEquivalence
	}
	return qty.Div(factor), ConversionEquivalence
}
