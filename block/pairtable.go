package block

import "fmt"

// Pair locates one (left-block, right-block) sub-range inside a packed
// column space: a running element offset and its extent.
type Pair struct {
	Offset int
	Extent int
}

// PairTable precomputes, for every overall symmetry label h, the packed
// layout of all (hL, hR) sub-blocks with hL^hR == h. Offsets run in
// ascending hL order, so repeated construction from equal dimensions
// yields identical layouts.
type PairTable struct {
	left, right Dimension
	pairs       [][]Pair // [h][hL]
	total       Dimension
}

// NewPairTable builds the layout table for the composite space left x right.
func NewPairTable(left, right Dimension) (*PairTable, error) {
	if left.Nirrep() != right.Nirrep() {
		return nil, fmt.Errorf("%w: left has %d irreps, right has %d",
			ErrIrrepMismatch, left.Nirrep(), right.Nirrep())
	}
	nirrep := left.Nirrep()
	t := &PairTable{
		left:  left,
		right: right,
		pairs: make([][]Pair, nirrep),
		total: make(Dimension, nirrep),
	}
	for h := 0; h < nirrep; h++ {
		sub := make([]Pair, nirrep)
		entrance := 0
		for hL := 0; hL < nirrep; hL++ {
			hR := h ^ hL
			sub[hL] = Pair{Offset: entrance, Extent: left[hL] * right[hR]}
			entrance += sub[hL].Extent
		}
		t.pairs[h] = sub
		t.total[h] = entrance
	}
	return t, nil
}

// MustPairTable is NewPairTable for dimensions already known to agree.
func MustPairTable(left, right Dimension) *PairTable {
	t, err := NewPairTable(left, right)
	if err != nil {
		panic(err)
	}
	return t
}

// Nirrep returns the number of irreps.
func (t *PairTable) Nirrep() int { return len(t.total) }

// Left returns the left-index dimension.
func (t *PairTable) Left() Dimension { return t.left }

// Right returns the right-index dimension.
func (t *PairTable) Right() Dimension { return t.right }

// At returns the packed sub-range of left block hL (right block h^hL)
// within the overall-label-h column space.
func (t *PairTable) At(h, hL int) Pair { return t.pairs[h][hL] }

// ColDim returns the total packed extent for overall label h.
func (t *PairTable) ColDim(h int) int { return t.total[h] }

// Dims returns the per-label packed totals.
func (t *PairTable) Dims() Dimension { return t.total }

// RowIndex maps a (left block, left index, right index) triple to its row
// inside the overall-label-(hL^hR) slice. The caller supplies hR through
// the overall label h.
func (t *PairTable) RowIndex(h, hL, l, r int) int {
	hR := h ^ hL
	return t.pairs[h][hL].Offset + l*t.right[hR] + r
}

// CheckClosure verifies the layout invariant: the block extents for label h
// must sum to the declared total. A disagreement with an externally
// produced tensor is a fatal dimension mismatch.
func (t *PairTable) CheckClosure(h, declared int) error {
	if t.total[h] != declared {
		return fmt.Errorf("%w: pair extents for label %d sum to %d, tensor declares %d",
			ErrDimensionMismatch, h, t.total[h], declared)
	}
	return nil
}
