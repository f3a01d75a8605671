package block

import "golang.org/x/exp/slices"

// Dimension holds one extent per irreducible representation.
type Dimension []int

// Uniform returns a Dimension with the same extent in every irrep.
func Uniform(nirrep, n int) Dimension {
	d := make(Dimension, nirrep)
	for h := range d {
		d[h] = n
	}
	return d
}

// Nirrep returns the number of irreps.
func (d Dimension) Nirrep() int { return len(d) }

// Sum returns the total extent over all irreps.
func (d Dimension) Sum() int {
	res := 0
	for _, n := range d {
		res += n
	}
	return res
}

// Max returns the largest per-irrep extent.
func (d Dimension) Max() int {
	if len(d) == 0 {
		return 0
	}
	return slices.Max(d)
}

// Equal reports whether d and o agree irrep by irrep.
func (d Dimension) Equal(o Dimension) bool { return slices.Equal(d, o) }

// Offsets returns the running start index of each irrep inside the
// concatenated index space.
func (d Dimension) Offsets() []int {
	res := make([]int, len(d))
	off := 0
	for h, n := range d {
		res[h] = off
		off += n
	}
	return res
}

// Add returns the per-irrep sum of d and o.
func (d Dimension) Add(o Dimension) Dimension {
	res := make(Dimension, len(d))
	for h := range d {
		res[h] = d[h] + o[h]
	}
	return res
}
