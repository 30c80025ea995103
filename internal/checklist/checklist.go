// =============================================================================
// mercado - Checklist Store
// =============================================================================
//
// The checklist remembers which shopping-list items have been bought. The
// shopping list itself is recomputed on every evaluation, so the store is
// reconciled against the keys of the current list each time:
//
//   | key state                   | effect of Reconcile      |
//   |-----------------------------|--------------------------|
//   | in store, not in current    | deleted                  |
//   | in current, not in store    | inserted, unchecked      |
//   | in both                     | untouched                |
//
// A Store belongs to exactly one planning session and is not safe for
// concurrent use; evaluations of a session are serialized by the caller.
//
// =============================================================================

package checklist

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/mercado/internal/catalog"
	"github.com/shopspring/decimal"
)

// ErrUnknownKey is returned when a mutation names a key the store does not hold.
var ErrUnknownKey = errors.New("unknown checklist key")

// Store maps checklist keys to their checked flag.
type Store struct {
	entries map[string]bool
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]bool)}
}

// FromEntries returns a store holding a copy of entries.
func FromEntries(entries map[string]bool) *Store {
	s := New()
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

// Reconcile makes the key set of the store equal to current. Keys that
// disappeared are deleted, new keys start unchecked and surviving keys keep
// their flag. Calling it twice with the same keys changes nothing.
func (s *Store) Reconcile(current []string) (added, removed int) {
	want := make(map[string]bool, len(current))
	for _, k := range current {
		want[k] = true
	}

	for k := range s.entries {
		if !want[k] {
			delete(s.entries, k)
			removed++
		}
	}
	for k := range want {
		if _, ok := s.entries[k]; !ok {
			s.entries[k] = false
			added++
		}
	}
	return added, removed
}

// Checked returns the flag of key and whether the key exists.
func (s *Store) Checked(key string) (checked, ok bool) {
	checked, ok = s.entries[key]
	return checked, ok
}

// Set assigns the flag of an existing key.
func (s *Store) Set(key string, checked bool) error {
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	s.entries[key] = checked
	return nil
}

// Toggle flips the flag of an existing key and returns the new value.
func (s *Store) Toggle(key string) (bool, error) {
	checked, ok := s.entries[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	s.entries[key] = !checked
	return !checked, nil
}

// Entries returns a copy of the key -> checked mapping.
func (s *Store) Entries() map[string]bool {
	out := make(map[string]bool, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Keys returns the keys of the store, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// =============================================================================
// KEY POLICY
// =============================================================================

// KeyPolicy decides which attributes of a shopping-list item form its
// checklist identity.
type KeyPolicy string

const (
	// PolicyUnitProduct keys items by unit and product, so a ticked item stays
	// ticked when its quantity changes.
	PolicyUnitProduct KeyPolicy = "unit_product"

	// PolicyUnitProductQuantity also includes the quantity, so a changed
	// quantity shows up as a new, unchecked item.
	PolicyUnitProductQuantity KeyPolicy = "unit_product_quantity"
)

// DefaultPolicy is the policy used when none is configured.
const DefaultPolicy = PolicyUnitProduct

// ParsePolicy validates a policy name. An empty name selects DefaultPolicy.
func ParsePolicy(name string) (KeyPolicy, error) {
	switch KeyPolicy(strings.TrimSpace(strings.ToLower(name))) {
	case "":
		return DefaultPolicy, nil
	case PolicyUnitProduct:
		return PolicyUnitProduct, nil
	case PolicyUnitProductQuantity:
		return PolicyUnitProductQuantity, nil
	default:
		return "", fmt.Errorf("unknown checklist key policy %q (valid: %s, %s)", name, PolicyUnitProduct, PolicyUnitProductQuantity)
	}
}

// keySeparator joins key components. Occurrences inside a component are
// escaped so that distinct (unit, product) pairs never share a key.
const keySeparator = "|"

var keyEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator)

// Key derives the checklist key of an item. The result depends only on the
// folded unit, the folded product and, for PolicyUnitProductQuantity, the
// canonical decimal form of qty.
func (p KeyPolicy) Key(unit, product string, qty decimal.Decimal) string {
	parts := []string{
		keyEscaper.Replace(catalog.Fold(unit)),
		keyEscaper.Replace(catalog.ProductKey(product)),
	}
	if p == PolicyUnitProductQuantity {
		parts = append(parts, qty.String())
	}
	return strings.Join(parts, keySeparator)
}
