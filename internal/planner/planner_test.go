package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/checklist"
	"github.com/ginjaninja78/mercado/internal/ingest"
	"github.com/ginjaninja78/mercado/internal/pricing"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/internal/units"
	"github.com/ginjaninja78/mercado/internal/validation"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(category, unit, product, qty string) types.PurchaseLine {
	return types.PurchaseLine{Category: category, Unit: unit, Product: product, Quantity: d(qty)}
}

func testUnits() *catalog.Units {
	return catalog.NewUnits("kg", []string{"und"}, map[string]string{"kilos": "kg"})
}

func testDataset() *ingest.Dataset {
	return &ingest.Dataset{
		Requirements: []types.PurchaseLine{
			line("1", "kg", "Cebolla", "1.5"),
			line("1", "und", "Huevo", "3"),
			line("2", "kg", "cebolla", "0.5"),
			line("2", "kg", "Arroz", "1"),
			line("10", "und", "Pan", "6"),
		},
		Prices: []types.PriceSeries{
			{Product: "Cebolla", Cells: []types.PriceCell{{DateLabel: "1/3/2024", Raw: "S/. 2,80"}, {DateLabel: "15/3/2024", Raw: "S/ 3.00"}, {DateLabel: "20/3/2024", Raw: "n/d"}}},
			{Product: "Huevo", Cells: []types.PriceCell{{DateLabel: "15/3/2024", Raw: "8.00"}}},
			{Product: "Pan", Cells: []types.PriceCell{{DateLabel: "15/3/2024", Raw: "5"}}},
		},
		Equivalences: []types.EquivalenceRecord{
			{Product: "Huevo", UnitsPerKilogram: d("20")},
		},
		Units:  testUnits(),
		Issues: &validation.Result{},
	}
}

// =============================================================================
// AGGREGATE
// =============================================================================

func TestAggregateGroupsAndOrders(t *testing.T) {
	ds := testDataset()
	got := Aggregate(ds.Requirements, types.Selection{"1", "2"})

	want := []types.AggregatedLine{
		{Unit: "kg", Product: "Arroz", TotalQuantity: d("1")},
		{Unit: "kg", Product: "Cebolla", TotalQuantity: d("2")},
		{Unit: "und", Product: "Huevo", TotalQuantity: d("3")},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Unit != want[i].Unit || got[i].Product != want[i].Product || !got[i].TotalQuantity.Equal(want[i].TotalQuantity) {
			t.Fatalf("line %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestAggregateConservesQuantity(t *testing.T) {
	ds := testDataset()
	selection := types.Selection{"1", "10"}

	sum := decimal.Zero
	for _, l := range ds.Requirements {
		if selection.Contains(l.Category) {
			sum = sum.Add(l.Quantity)
		}
	}
	if total := totalQuantity(Aggregate(ds.Requirements, selection)); !total.Equal(sum) {
		t.Fatalf("expected aggregated total %s, got %s", sum, total)
	}
}

func TestAggregateEmptySelection(t *testing.T) {
	if got := Aggregate(testDataset().Requirements, nil); len(got) != 0 {
		t.Fatalf("expected an empty result, got %+v", got)
	}
	if got := Aggregate(testDataset().Requirements, types.Selection{"99"}); len(got) != 0 {
		t.Fatalf("expected an empty result for an unknown category, got %+v", got)
	}
}

func TestCategories(t *testing.T) {
	lines := []types.PurchaseLine{
		line("10", "kg", "a", "1"),
		line("Desayuno", "kg", "a", "1"),
		line("2", "kg", "a", "1"),
		line("almuerzo", "kg", "a", "1"),
		line("1", "kg", "a", "1"),
		line("2", "kg", "b", "1"),
	}
	want := []string{"1", "2", "10", "almuerzo", "Desayuno"}
	if got := Categories(lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// =============================================================================
// COSTS
// =============================================================================

func TestComputeCostsOnion(t *testing.T) {
	lines := []types.PurchaseLine{line("1", "kg", "onion", "2")}
	prices := pricing.ResolveAll([]types.PriceSeries{
		{Product: "onion", Cells: []types.PriceCell{{DateLabel: "01/03/2024", Raw: "S/3.00"}}},
	})
	conv := units.NewConverter(testUnits(), nil)

	report := ComputeCosts(types.Selection{"1"}, lines, prices, conv)

	if len(report.Lines) != 1 || !report.Lines[0].Cost.Equal(d("6.00")) {
		t.Fatalf("expected a single line costing 6.00, got %+v", report.Lines)
	}
	if !report.Lines[0].CanonicalQuantity.Equal(d("2")) || !report.Lines[0].UnitPrice.Decimal.Equal(d("3")) {
		t.Fatalf("unexpected line: %+v", report.Lines[0])
	}
	if len(report.Categories) != 1 || !report.Categories[0].Total.Equal(d("6")) || !report.GrandTotal.Equal(d("6")) {
		t.Fatalf("expected category and grand total 6.00, got %+v / %s", report.Categories, report.GrandTotal)
	}
}

func TestComputeCostsFallbacks(t *testing.T) {
	ds := testDataset()
	ds.Requirements = append(ds.Requirements,
		line("2", "kg", "Azafrán", "0.01"),
		line("2", "und", "Limón", "4"),
	)
	ds.Prices = append(ds.Prices, types.PriceSeries{Product: "Limón", Cells: []types.PriceCell{{DateLabel: "1/3/2024", Raw: "6"}}})

	prices := pricing.ResolveAll(ds.Prices)
	conv := units.NewConverter(ds.Units, ds.Equivalences)
	report := ComputeCosts(types.Selection{"2", "1"}, ds.Requirements, prices, conv)

	byProduct := make(map[string]types.CostLine)
	for _, l := range report.Lines {
		byProduct[l.Product] = l
	}

	saffron := byProduct["Azafrán"]
	if saffron.UnitPrice.Valid || !saffron.Cost.IsZero() {
		t.Fatalf("expected a missing price to cost zero with a null price, got %+v", saffron)
	}
	lime := byProduct["Limón"]
	if !lime.CanonicalQuantity.IsZero() || !lime.Cost.IsZero() || !lime.UnitPrice.Valid {
		t.Fatalf("expected a missing equivalence to count as zero, got %+v", lime)
	}
	egg := byProduct["Huevo"]
	if !egg.CanonicalQuantity.Equal(d("0.15")) || !egg.Cost.Equal(d("1.2")) {
		t.Fatalf("expected 3 eggs to be 0.15 kg costing 1.20, got %+v", egg)
	}

	if !reflect.DeepEqual(report.MissingPrices, []string{"Arroz", "Azafrán"}) {
		t.Fatalf("unexpected missing prices %v", report.MissingPrices)
	}
	if !reflect.DeepEqual(report.MissingEquivalences, []string{"Limón"}) {
		t.Fatalf("unexpected missing equivalences %v", report.MissingEquivalences)
	}

	if report.Categories[0].Category != "2" || report.Categories[1].Category != "1" {
		t.Fatalf("expected category totals in selection order, got %+v", report.Categories)
	}
	// 1: 1.5*3 + 0.15*8 = 5.7   2: 0.5*3 + 1*0 + 0 + 0 = 1.5
	if !report.Categories[1].Total.Equal(d("5.7")) || !report.Categories[0].Total.Equal(d("1.5")) {
		t.Fatalf("unexpected category totals %+v", report.Categories)
	}
	if !report.GrandTotal.Equal(d("7.2")) {
		t.Fatalf("expected grand total 7.2, got %s", report.GrandTotal)
	}
}

func TestComputeCostsRollupIsAssociative(t *testing.T) {
	ds := testDataset()
	prices := pricing.ResolveAll(ds.Prices)
	conv := units.NewConverter(ds.Units, ds.Equivalences)

	all := ComputeCosts(types.Selection{"1", "2", "10"}, ds.Requirements, prices, conv)

	lineSum := decimal.Zero
	for _, l := range all.Lines {
		lineSum = lineSum.Add(l.Cost)
	}
	if !lineSum.Equal(all.GrandTotal) {
		t.Fatalf("expected line sum %s to equal grand total %s", lineSum, all.GrandTotal)
	}

	partSum := decimal.Zero
	for _, part := range []types.Selection{{"1"}, {"2", "10"}} {
		partSum = partSum.Add(ComputeCosts(part, ds.Requirements, prices, conv).GrandTotal)
	}
	if !partSum.Equal(all.GrandTotal) {
		t.Fatalf("expected partitioned total %s to equal %s", partSum, all.GrandTotal)
	}
}

func TestComputeCostsEmptySelection(t *testing.T) {
	ds := testDataset()
	report := ComputeCosts(nil, ds.Requirements, pricing.ResolveAll(ds.Prices), units.NewConverter(ds.Units, nil))
	if len(report.Lines) != 0 || len(report.Categories) != 0 || !report.GrandTotal.IsZero() {
		t.Fatalf("expected an empty report, got %+v", report)
	}
}

// =============================================================================
// EVALUATOR
// =============================================================================

func TestEvaluateReconcilesChecklist(t *testing.T) {
	ev := NewEvaluator(testDataset(), checklist.PolicyUnitProduct, nil)
	session := NewSession("s1", "semana")

	first, err := ev.Evaluate(session, types.Selection{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Added != 3 || len(first.Checklist) != 3 {
		t.Fatalf("expected 3 new checklist items, got %+v", first.Checklist)
	}
	if first.Checklist[1].Label != "2 kg Cebolla" || first.Checklist[1].Key != "kg|cebolla" {
		t.Fatalf("unexpected checklist item %+v", first.Checklist[1])
	}
	if !first.Prices[1].Price.Decimal.Equal(d("3")) || first.Prices[0].Price.Valid {
		t.Fatalf("unexpected resolved prices %+v", first.Prices)
	}

	if _, err := session.Checklist.Toggle("kg|cebolla"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := ev.Evaluate(session, types.Selection{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Added != 0 || second.Removed != 0 || !second.Checklist[1].Checked {
		t.Fatalf("expected re-evaluation to keep the checked item, got %+v", second.Checklist)
	}

	third, err := ev.Evaluate(session, types.Selection{"1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.Removed != 1 || !reflect.DeepEqual(session.Checklist.Keys(), []string{"kg|cebolla", "und|huevo"}) {
		t.Fatalf("expected arroz to be dropped, got %v", session.Checklist.Keys())
	}
	if checked, _ := session.Checklist.Checked("kg|cebolla"); !checked {
		t.Fatalf("expected cebolla to stay checked when its quantity changes")
	}
	if !reflect.DeepEqual(session.Selection, types.Selection{"1"}) {
		t.Fatalf("expected the session to remember the selection, got %v", session.Selection)
	}
}

func TestEvaluateQuantityPolicyResetsChangedItems(t *testing.T) {
	ev := NewEvaluator(testDataset(), checklist.PolicyUnitProductQuantity, nil)
	session := NewSession("s1", "")

	first, _ := ev.Evaluate(session, types.Selection{"1", "2"})
	if err := session.Checklist.Set(first.Checklist[1].Key, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, _ := ev.Evaluate(session, types.Selection{"1"})
	if second.Checklist[0].Checked {
		t.Fatalf("expected cebolla 1.5 kg to be a new unchecked item, got %+v", second.Checklist[0])
	}
}

func TestEvaluateManualEntries(t *testing.T) {
	ds := testDataset()
	ev := NewEvaluator(ds, checklist.DefaultPolicy, nil)
	session := NewSession("s1", "")

	if err := session.AddManual(d("2"), "kilos", "Cebolla", ds.Units); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.AddManual(d("1"), "kg", " ", ds.Units); err == nil {
		t.Fatalf("expected an error for a blank product")
	}

	result, err := ev.Evaluate(session, types.Selection{"1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Aggregated) != 2 || !result.Aggregated[0].TotalQuantity.Equal(d("3.5")) {
		t.Fatalf("expected the manual onions to be added to the list, got %+v", result.Aggregated)
	}
	last := result.Costs.Categories[len(result.Costs.Categories)-1]
	if last.Category != ManualCategory || !last.Total.Equal(d("6")) {
		t.Fatalf("expected a manual category total of 6, got %+v", result.Costs.Categories)
	}

	if n := session.RemoveManual("cebolla"); n != 1 || len(session.Manual) != 0 {
		t.Fatalf("expected the manual entry to be removed, got %d, %+v", n, session.Manual)
	}
}

func TestEvaluateManualEntriesKeepTableCategoryUnselected(t *testing.T) {
	ds := testDataset()
	ds.Requirements = append(ds.Requirements, line(ManualCategory, "kg", "Sal", "9"))
	ev := NewEvaluator(ds, checklist.DefaultPolicy, nil)
	session := NewSession("s1", "")
	if err := session.AddManual(d("1"), "kg", "Azucar", ds.Units); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := ev.Evaluate(session, types.Selection{"1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, l := range result.Aggregated {
		if catalog.ProductKey(l.Product) == "sal" {
			t.Fatalf("expected the unselected table category to be left out, got %+v", result.Aggregated)
		}
	}
	for _, l := range result.Costs.Lines {
		if l.Product == "Sal" {
			t.Fatalf("expected no cost line for Sal, got %+v", result.Costs.Lines)
		}
	}
	if len(result.Aggregated) != 3 {
		t.Fatalf("expected azucar, cebolla and huevo, got %+v", result.Aggregated)
	}

	selected, err := ev.Evaluate(session, types.Selection{"1", ManualCategory})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, l := range selected.Aggregated {
		if l.Product == "Sal" && l.TotalQuantity.Equal(d("9")) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Sal once its category is selected, got %+v", selected.Aggregated)
	}
}

func TestEvaluationFind(t *testing.T) {
	ev := NewEvaluator(testDataset(), checklist.DefaultPolicy, nil)
	result, err := ev.Evaluate(NewSession("s1", ""), types.Selection{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if item, err := result.Find("1"); err != nil || item.Key != "kg|arroz" {
		t.Fatalf("expected position 1 to be arroz, got %+v, %v", item, err)
	}
	if item, err := result.Find("und|huevo"); err != nil || item.Label != "3 und Huevo" {
		t.Fatalf("expected the huevo key to resolve, got %+v, %v", item, err)
	}
	if item, err := result.Find("CEBOLLA"); err != nil || item.Key != "kg|cebolla" {
		t.Fatalf("expected the product name to resolve, got %+v, %v", item, err)
	}
	if _, err := result.Find("7"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := result.Find("pan"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestEvaluatorPrices(t *testing.T) {
	ev := NewEvaluator(testDataset(), checklist.DefaultPolicy, nil)

	if all := ev.Prices(); len(all) != 3 {
		t.Fatalf("expected every product, got %+v", all)
	}
	got := ev.Prices("cebolla", "trufa")
	if !got[0].Price.Decimal.Equal(d("3")) || got[0].Label != "15/3/2024" {
		t.Fatalf("expected the latest parseable onion price, got %+v", got[0])
	}
	if got[1].Product != "trufa" || got[1].Price.Valid {
		t.Fatalf("expected an unknown product to have a null price, got %+v", got[1])
	}
	if cats := ev.Categories(); !reflect.DeepEqual(cats, []string{"1", "2", "10"}) {
		t.Fatalf("unexpected categories %v", cats)
	}
}
