// Package orderkey computes fractional order keys for drag-reorderable
// lists. Inserting between two neighbors only requires computing one new
// key (the midpoint), so individual moves are O(1); repeated midpoint
// insertions eventually exhaust floating-point precision, which callers
// detect with NeedsRenormalization and repair with evenly respaced keys.
package orderkey

import "math"

const (
	// Origin is the key assigned to the first entry of an empty list.
	Origin = 1000.0

	// UnitStep separates keys created at the head or tail of a list,
	// and is the spacing used when keys are renormalized.
	UnitStep = 1000.0

	// MinGap is the precision floor. Once two adjacent keys are closer
	// than this, a midpoint insertion between them can no longer be
	// trusted to produce a distinct value.
	MinGap = 1e-6
)

// ComputeInsertionKey returns an order key that sorts between above and
// below. Either neighbor may be nil:
//
//   - both nil: the list is empty, returns Origin
//   - above nil: inserting at the head, returns below - UnitStep
//   - below nil: inserting at the tail, returns above + UnitStep
//   - both set: returns the arithmetic midpoint
func ComputeInsertionKey(above, below *float64) float64 {
	switch {
	case above == nil && below == nil:
		return Origin
	case above == nil:
		return *below - UnitStep
	case below == nil:
		return *above + UnitStep
	default:
		return *above + (*below-*above)/2
	}
}

// NeedsRenormalization reports whether any two adjacent keys are closer
// than MinGap. Keys must be in ascending sorted order. Callers should
// check after every insertion: precision loss is silent, and once two
// keys collide the relative order between them is already gone.
func NeedsRenormalization(keys []float64) bool {
	for i := 1; i < len(keys); i++ {
		if math.Abs(keys[i]-keys[i-1]) < MinGap {
			return true
		}
	}
	return false
}

// Renormalized returns n evenly spaced keys starting at Origin,
// stepping by UnitStep. Assigning these to a list in its current sorted
// order restores full insertion headroom without changing the order.
func Renormalized(n int) []float64 {
	keys := make([]float64, n)
	for i := range keys {
		keys[i] = Origin + float64(i)*UnitStep
	}
	return keys
}
