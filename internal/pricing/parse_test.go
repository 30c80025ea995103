package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.50", "12.5", true},
		{"12,50", "12.5", true},
		{"S/. 12,50", "12.5", true},
		{"S/12.50", "12.5", true},
		{"S/ 12.50", "12.5", true},
		{"s/.3", "3", true},
		{"S/.5", "5", true},
		{"S/ .5", "0.5", true},
		{"S/3.00", "3", true},
		{"1.234,56", "1234.56", true},
		{"S/ 1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"1.234.567", "1234567", true},
		{"1,234,567", "1234567", true},
		{"12,50 €", "12.5", true},
		{"$ 4.20", "4.2", true},
		{"$. 4,20", "4.2", true},
		{"10 soles", "10", true},
		{"1 234,50", "1234.5", true},
		{"0", "0", true},
		{"-2,5", "-2.5", true},
		{"", "", false},
		{"   ", "", false},
		{"no value", "", false},
		{"sin precio", "", false},
		{"S/", "", false},
		{"12,5a", "", false},
		{"1e5", "", false},
		{"NaN", "", false},
	}

	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParsePrice(%q): expected ok=%v, got ok=%v (%s)", tt.in, tt.ok, ok, got)
		}
		if !ok {
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("ParsePrice(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestParsePriceIsIdempotentOnNormalizedNumbers(t *testing.T) {
	for _, in := range []string{"12.50", "0.15", "1234.56", "7"} {
		first, ok := ParsePrice(in)
		if !ok {
			t.Fatalf("expected %q to parse", in)
		}
		second, ok := ParsePrice(first.String())
		if !ok || !second.Equal(first) {
			t.Fatalf("expected re-parsing %s to give the same value, got %s (ok=%v)", first, second, ok)
		}
	}
}

func TestParseNumberKeepsCurrencyOut(t *testing.T) {
	if _, ok := ParseNumber("S/ 3"); ok {
		t.Fatalf("expected ParseNumber to reject currency text")
	}
	got, ok := ParseNumber("2,5")
	if !ok || !got.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected 2.5, got %s (ok=%v)", got, ok)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/01/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"1/2/2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{" 01/02/2024 ", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"01/03/2024 10:00:00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-01 23:59:59", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"45292", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"Producto", time.Time{}, false},
		{"31/02/2024", time.Time{}, false},
		{"", time.Time{}, false},
		{"2024", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseDate(%q): expected ok=%v, got %v", tt.in, tt.ok, ok)
		}
		if ok && !got.Equal(tt.want) {
			t.Fatalf("ParseDate(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}
