// =============================================================================
// mercado - Catalog Normalization
// =============================================================================
//
// This package turns the free text found in the household spreadsheets into
// stable identities:
//   - Product identity: accents removed, case folded, whitespace collapsed
//   - Unit identity:    folded and resolved through an alias table
//   - Header identity:  same folding as products, so "Índice" matches "indice"
//
// The same identities are used for grouping, for joining the requirements
// table with the price and equivalence tables, and for checklist keys.
//
// =============================================================================

package catalog

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespace = regexp.MustCompile(`\s+`)

// Fold returns the comparison form of s: NFD decomposition with combining
// marks removed, case folded, inner whitespace collapsed and trimmed.
//
// EXAMPLE:
//
//	Fold("  Limón  Sutil ") == "limon sutil"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = cases.Fold().String(stripped)
	return strings.TrimSpace(whitespace.ReplaceAllString(stripped, " "))
}

// ProductKey returns the identity of a product name.
func ProductKey(name string) string {
	return Fold(name)
}

// HeaderKey returns the identity of a column header.
func HeaderKey(header string) string {
	return Fold(header)
}

// =============================================================================
// UNITS
// =============================================================================

// Units knows the mass unit, the count units and the aliases used in the
// requirements table.
type Units struct {
	mass    string
	count   map[string]bool
	aliases map[string]string
}

// NewUnits builds a unit table. Every name is folded; alias targets are
// folded as well, so a config may spell them freely.
func NewUnits(mass string, count []string, aliases map[string]string) *Units {
	u := &Units{
		mass:    Fold(mass),
		count:   make(map[string]bool, len(count)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, c := range count {
		u.count[Fold(c)] = true
	}
	for alias, target := range aliases {
		u.aliases[Fold(alias)] = Fold(target)
	}
	return u
}

// Normalize returns the unit identity of raw.
func (u *Units) Normalize(raw string) string {
	key := Fold(raw)
	if target, ok := u.aliases[key]; ok {
		return target
	}
	return key
}

// Mass returns the identity of the mass unit.
func (u *Units) Mass() string {
	return u.mass
}

// IsMass reports whether unit (raw or normalized) is the mass unit.
func (u *Units) IsMass(unit string) bool {
	return u.Normalize(unit) == u.mass
}

// Known reports whether unit is the mass unit or a declared count unit.
func (u *Units) Known(unit string) bool {
	n := u.Normalize(unit)
	return n == u.mass || u.count[n]
}

// CountUnits returns the declared count units, sorted.
func (u *Units) CountUnits() []string {
	out := make([]string, 0, len(u.count))
	for c := range u.count {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
