// =============================================================================
// mercado - Planner Module
// =============================================================================
//
// This module contains the evaluation pipeline. One evaluation turns the
// ingested tables, a session and a category selection into the four outputs
// shown to the user:
//
//   1. Aggregate the requirement lines of the selected categories
//   2. Reconcile the session checklist against the aggregated list
//   3. Resolve the latest price of every aggregated product
//   4. Cost every line and roll the costs up per category
//
// The pipeline performs no I/O. Loading the tables and persisting the session
// are the caller's job (see cmd/ and internal/storage).
//
// CONCURRENCY:
//   An Evaluator is read-only after construction and may be shared. A
//   Session is mutated by Evaluate and must not be evaluated concurrently.
//
// =============================================================================

package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/ginjaninja78/mercado/internal/checklist"
	"github.com/ginjaninja78/mercado/internal/ingest"
	"github.com/ginjaninja78/mercado/internal/pricing"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/internal/units"
	"github.com/ginjaninja78/mercado/internal/validation"
	"github.com/shopspring/decimal"
)

// ManualCategory is the category of the entries a user adds to a session by
// hand. Manual entries take part in every evaluation of their session.
const ManualCategory = "manual"

// ErrItemNotFound is returned when a checklist reference matches no item.
var ErrItemNotFound = errors.New("checklist item not found")

// Logger is an interface for logging. *logrus.Logger implements it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the state that survives between evaluations.
type Session struct {
	ID        string
	Name      string
	Selection types.Selection
	Checklist *checklist.Store

	// Manual holds the entries added by hand, category ManualCategory.
	Manual []types.PurchaseLine

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns an empty session.
func NewSession(id, name string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Name:      name,
		Checklist: checklist.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddManual appends a manual entry. The unit is normalized with u.
func (s *Session) AddManual(qty decimal.Decimal, unit, product string, u *catalog.Units) error {
	if catalog.ProductKey(product) == "" {
		return fmt.Errorf("product must not be blank")
	}
	if qty.IsNegative() {
		return fmt.Errorf("quantity must not be negative")
	}
	normalized := u.Normalize(unit)
	if normalized == "" {
		return fmt.Errorf("unit must not be blank")
	}

	s.Manual = append(s.Manual, types.PurchaseLine{
		Category: ManualCategory,
		Unit:     normalized,
		Product:  strings.TrimSpace(product),
		Quantity: qty,
	})
	return nil
}

// RemoveManual deletes the manual entries of product and returns how many
// were removed.
func (s *Session) RemoveManual(product string) int {
	key := catalog.ProductKey(product)
	kept := s.Manual[:0]
	removed := 0
	for _, line := range s.Manual {
		if catalog.ProductKey(line.Product) == key {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	s.Manual = kept
	return removed
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluation is the result of one evaluation of a session.
type Evaluation struct {
	// Session and SessionName identify the evaluated session.
	Session     string
	SessionName string
	Selection   types.Selection

	// Aggregated is the shopping list.
	Aggregated []types.AggregatedLine

	// Prices holds the resolved price of each aggregated product, in the
	// order of Aggregated.
	Prices []types.ResolvedPrice

	// Costs is the cost report of the selection.
	Costs types.CostReport

	// Checklist holds one item per aggregated line, in the same order.
	Checklist []types.ChecklistItem

	// Added and Removed count the checklist keys changed by reconciliation.
	Added   int
	Removed int

	// Issues collects the row problems of the input tables.
	Issues []validation.Issue

	EvaluatedAt time.Time
}

// Find resolves a checklist reference: a 1-based position, an exact key or a
// product name matching exactly one item.
func (ev *Evaluation) Find(ref string) (types.ChecklistItem, error) {
	ref = strings.TrimSpace(ref)

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(ev.Checklist) {
			return ev.Checklist[n-1], nil
		}
		return types.ChecklistItem{}, fmt.Errorf("%w: position %d out of range 1-%d", ErrItemNotFound, n, len(ev.Checklist))
	}

	for _, item := range ev.Checklist {
		if item.Key == ref {
			return item, nil
		}
	}

	want := catalog.ProductKey(ref)
	var matches []types.ChecklistItem
	for i, line := range ev.Aggregated {
		if catalog.ProductKey(line.Product) == want {
			matches = append(matches, ev.Checklist[i])
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return types.ChecklistItem{}, fmt.Errorf("%w: %q", ErrItemNotFound, ref)
	default:
		return types.ChecklistItem{}, fmt.Errorf("%q matches %d items, use the position or the key", ref, len(matches))
	}
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator evaluates sessions against one ingested dataset.
type Evaluator struct {
	dataset   *ingest.Dataset
	prices    *pricing.Index
	converter *units.Converter
	policy    checklist.KeyPolicy
	logger    Logger
}

// NewEvaluator prepares the shared read-only services of a dataset: the
// price index and the unit converter.
func NewEvaluator(ds *ingest.Dataset, policy checklist.KeyPolicy, logger Logger) *Evaluator {
	if logger == nil {
		logger = nopLogger{}
	}
	idx := pricing.ResolveAll(ds.Prices)
	if idx.Discarded > 0 {
		logger.Debugf("Discarded %d unparseable price cells", idx.Discarded)
	}
	logger.Debugf("Resolved prices for %d products, %d equivalences loaded", idx.Len(), len(ds.Equivalences))

	return &Evaluator{
		dataset:   ds,
		prices:    idx,
		converter: units.NewConverter(ds.Units, ds.Equivalences),
		policy:    policy,
		logger:    logger,
	}
}

// Categories returns the selectable categories of the requirements table.
func (e *Evaluator) Categories() []string {
	return Categories(e.dataset.Requirements)
}

// Prices returns the resolved price of the given products, or of every
// product in the price table when none is given. Unknown products resolve
// to a null price.
func (e *Evaluator) Prices(products ...string) []types.ResolvedPrice {
	if len(products) == 0 {
		return e.prices.All()
	}
	out := make([]types.ResolvedPrice, 0, len(products))
	for _, p := range products {
		resolved, ok := e.prices.Lookup(p)
		if !ok {
			resolved = types.ResolvedPrice{Product: p}
		}
		out = append(out, resolved)
	}
	return out
}

// Evaluate runs the pipeline for session and selection, reconciling the
// session checklist in place. The session's manual entries are always part
// of the evaluation. Evaluating twice with the same inputs changes nothing
// the second time.
func (e *Evaluator) Evaluate(session *Session, selection types.Selection) (*Evaluation, error) {
	if session == nil {
		return nil, fmt.Errorf("failed to evaluate: no session")
	}
	if session.Checklist == nil {
		session.Checklist = checklist.New()
	}

	selection = e.checkSelection(selection)
	effective := selection
	if len(session.Manual) > 0 && !selection.Contains(ManualCategory) {
		effective = append(append(types.Selection{}, selection...), ManualCategory)
	}

	// Requirement rows are filtered by the user's selection alone, so a table
	// category named like ManualCategory only counts when selected.
	selected := selection.Set()
	lines := make([]types.PurchaseLine, 0, len(e.dataset.Requirements)+len(session.Manual))
	for _, l := range e.dataset.Requirements {
		if selected[l.Category] {
			lines = append(lines, l)
		}
	}
	lines = append(lines, session.Manual...)

	ev := &Evaluation{
		Session:     session.ID,
		SessionName: session.Name,
		Selection:   selection,
		EvaluatedAt: time.Now().UTC(),
	}
	if e.dataset.Issues != nil {
		ev.Issues = e.dataset.Issues.Issues
	}

	// =========================================================================
	// STEP 1: AGGREGATE
	// =========================================================================

	ev.Aggregated = Aggregate(lines, effective)
	e.logger.Debugf("Aggregated %d lines into %d items (%s in total)", len(lines), len(ev.Aggregated), totalQuantity(ev.Aggregated))

	// =========================================================================
	// STEP 2: RECONCILE CHECKLIST
	// =========================================================================

	keys := make([]string, len(ev.Aggregated))
	for i, line := range ev.Aggregated {
		keys[i] = e.policy.Key(line.Unit, line.Product, line.TotalQuantity)
	}
	ev.Added, ev.Removed = session.Checklist.Reconcile(keys)
	if ev.Added > 0 || ev.Removed > 0 {
		e.logger.Debugf("Checklist of session %s: %d added, %d removed", session.ID, ev.Added, ev.Removed)
	}

	ev.Checklist = make([]types.ChecklistItem, len(ev.Aggregated))
	for i, line := range ev.Aggregated {
		checked, _ := session.Checklist.Checked(keys[i])
		ev.Checklist[i] = types.ChecklistItem{
			Key:     keys[i],
			Label:   Label(line),
			Checked: checked,
		}
	}

	// =========================================================================
	// STEP 3: RESOLVE PRICES
	// =========================================================================

	ev.Prices = make([]types.ResolvedPrice, len(ev.Aggregated))
	for i, line := range ev.Aggregated {
		resolved, ok := e.prices.Lookup(line.Product)
		if !ok {
			resolved = types.ResolvedPrice{Product: line.Product}
		}
		ev.Prices[i] = resolved
	}

	// =========================================================================
	// STEP 4: COST
	// =========================================================================

	ev.Costs = ComputeCosts(effective, lines, e.prices, e.converter)
	for _, p := range ev.Costs.MissingPrices {
		e.logger.Warnf("No price found for %q, costed at zero", p)
	}
	for _, p := range ev.Costs.MissingEquivalences {
		e.logger.Warnf("No valid units-per-kilogram for %q, quantity counted as zero", p)
	}

	session.Selection = selection
	session.UpdatedAt = ev.EvaluatedAt
	return ev, nil
}

// checkSelection drops duplicate categories and warns about categories the
// requirements table does not contain.
func (e *Evaluator) checkSelection(selection types.Selection) types.Selection {
	known := make(map[string]bool)
	for _, l := range e.dataset.Requirements {
		known[l.Category] = true
	}

	seen := make(map[string]bool, len(selection))
	out := make(types.Selection, 0, len(selection))
	for _, c := range selection {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if !known[c] && c != ManualCategory {
			e.logger.Warnf("Category %q is not in the requirements table", c)
		}
		out = append(out, c)
	}
	return out
}

// Label renders an aggregated line as "<quantity> <unit> <product>".
func Label(line types.AggregatedLine) string {
	return fmt.Sprintf("%s %s %s", line.TotalQuantity.String(), line.Unit, line.Product)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
