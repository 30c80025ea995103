package units

import (
	"testing"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/shopspring/decimal"
)

func newTestConverter() *Converter {
	u := catalog.NewUnits("kg", []string{"each", "und"}, map[string]string{"kilo": "kg", "unidad": "und"})
	return NewConverter(u, []types.EquivalenceRecord{
		{Product: "egg", UnitsPerKilogram: decimal.NewFromInt(20)},
		{Product: "Limón", UnitsPerKilogram: decimal.NewFromInt(25)},
		{Product: "broken", UnitsPerKilogram: decimal.Zero},
		{Product: "negative", UnitsPerKilogram: decimal.NewFromInt(-4)},
	})
}

func TestToCanonical(t *testing.T) {
	c := newTestConverter()
	three := decimal.NewFromInt(3)

	tests := []struct {
		name    string
		unit    string
		product string
		want    string
		conv    Conversion
	}{
		{"count unit uses equivalence", "each", "egg", "0.15", ConversionEquivalence},
		{"mass unit unchanged", "kg", "egg", "3", ConversionIdentity},
		{"mass alias unchanged", "Kilo", "rice", "3", ConversionIdentity},
		{"unknown product falls back to zero", "each", "unknown-product", "0", ConversionMissingEquivalence},
		{"product identity is folded", "unidad", "LIMON", "0.12", ConversionEquivalence},
		{"zero factor is invalid", "each", "broken", "0", ConversionInvalidEquivalence},
		{"negative factor is invalid", "each", "negative", "0", ConversionInvalidEquivalence},
	}

	for _, tt := range tests {
		got, conv := c.ToCanonical(three, tt.unit, tt.product)
		if conv != tt.conv {
			t.Fatalf("%s: expected conversion %s, got %s", tt.name, tt.conv, conv)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestConversionFallback(t *testing.T) {
	if ConversionIdentity.Fallback() || ConversionEquivalence.Fallback() {
		t.Fatalf("expected identity and equivalence not to be fallbacks")
	}
	if !ConversionMissingEquivalence.Fallback() || !ConversionInvalidEquivalence.Fallback() {
		t.Fatalf("expected missing and invalid equivalences to be fallbacks")
	}
}
