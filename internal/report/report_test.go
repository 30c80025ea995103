package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/ginjaninja78/mercado/internal/storage"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleEvaluation() *planner.Evaluation {
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return &planner.Evaluation{
		Session:     "id-1",
		SessionName: "semana",
		Selection:   types.Selection{"1"},
		Aggregated: []types.AggregatedLine{
			{Unit: "kg", Product: "Cebolla", TotalQuantity: d("2")},
			{Unit: "kg", Product: "Ají & Limón", TotalQuantity: d("0.5")},
		},
		Prices: []types.ResolvedPrice{
			{Product: "Cebolla", Price: decimal.NewNullDecimal(d("3.00")), Date: date, Label: "01/02/2024"},
			{Product: "Ají & Limón"},
		},
		Checklist: []types.ChecklistItem{
			{Key: "kg|cebolla", Label: "2 kg Cebolla", Checked: true},
			{Key: "kg|aji & limon", Label: "0.5 kg Ají & Limón"},
		},
		Costs: types.CostReport{
			Lines: []types.CostLine{
				{Category: "1", Unit: "kg", Product: "Cebolla", Quantity: d("2"), CanonicalQuantity: d("2"), UnitPrice: decimal.NewNullDecimal(d("3")), Cost: d("6")},
				{Category: "1", Unit: "kg", Product: "Ají & Limón", Quantity: d("0.5"), CanonicalQuantity: d("0.5"), Cost: decimal.Zero},
			},
			Categories:    []types.CategoryTotal{{Category: "1", Total: d("6"), Lines: 2}},
			GrandTotal:    d("6"),
			MissingPrices: []string{"Ají & Limón"},
		},
		EvaluatedAt: date,
	}
}

func TestMoney(t *testing.T) {
	f := NewFormatter("en", "S/")
	if got := f.Money(d("1234.5")); got != "S/ 1,234.50" {
		t.Fatalf("expected S/ 1,234.50, got %q", got)
	}
	if got := f.NullMoney(decimal.NullDecimal{}); got != "-" {
		t.Fatalf("expected -, got %q", got)
	}
	if got := NewFormatter("en", "").Money(d("2")); got != "2.00" {
		t.Fatalf("expected 2.00, got %q", got)
	}
}

func TestWriteListAndCosts(t *testing.T) {
	f := NewFormatter("en", "S/")
	var buf bytes.Buffer
	if err := f.Write(&buf, sampleEvaluation(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Session semana", "[x]", "Cebolla", "01/02/2024", "S/ 6.00", "TOTAL", "No price (costed at zero): Ají & Limón"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteListEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter("en", "S/").Write(&buf, &planner.Evaluation{}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to buy") {
		t.Fatalf("expected the empty message, got %q", buf.String())
	}
}

func TestWriteChecklist(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChecklist(&buf, sampleEvaluation().Checklist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "1 of 2 bought") {
		t.Fatalf("unexpected checklist output:\n%s", buf.String())
	}
}

func TestWriteSessions(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	if err := WriteSessions(&buf, nil, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions.") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	err := WriteSessions(&buf, []storage.SessionInfo{{ID: "abc", Name: "semana", Items: 3, Checked: 1, UpdatedAt: now.Add(-2 * time.Hour)}}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "semana") || !strings.Contains(buf.String(), "1/3") || !strings.Contains(buf.String(), "ago") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestGenerateXML(t *testing.T) {
	out := string(GenerateXML(sampleEvaluation()))
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<plan session="semana" evaluatedAt="2024-02-01T00:00:00Z">`,
		`<item n="1" key="kg|cebolla" checked="true">`,
		`<pricePerKg date="2024-02-01">3.00</pricePerKg>`,
		`<product>Ají &amp; Limón</product>`,
		`<costs grandTotal="6.00">`,
		`<category n="1" name="1" lines="2">6.00</category>`,
		`<missingEquivalences/>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected XML to contain %q, got:\n%s", want, out)
		}
	}
}

func TestGenerateXLSX(t *testing.T) {
	data, err := GenerateXLSX(sampleEvaluation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 || rows[1][4] != "Cebolla" {
		t.Fatalf("unexpected list sheet %v", rows)
	}

	totals, err := f.GetRows(SheetTotals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, row := range totals {
		if len(row) >= 2 && row[0] == "No price" && row[1] == "Ají & Limón" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the missing price on the totals sheet, got %v", totals)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	path, err := Export(sampleEvaluation(), "XML", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "semana_") || !strings.HasSuffix(path, ".xml") {
		t.Fatalf("unexpected export path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected export file: %v", err)
	}

	if _, err := Export(sampleEvaluation(), "pdf", dir); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}
