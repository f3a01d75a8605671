package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"godct/block"
)

// Layout selects how a blocked tensor is packed into bytes.
type Layout int

const (
	// Full stores the lone slab of a one-irrep tensor row by row.
	Full Layout = iota
	// LowerTriangle stores i >= j elements of each square diagonal slab.
	LowerTriangle
	// SubBlocks stores every slab of a multi-irrep tensor back to back.
	SubBlocks
)

func (l Layout) String() string {
	switch l {
	case Full:
		return "full"
	case LowerTriangle:
		return "lower-triangle"
	case SubBlocks:
		return "sub-blocks"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

var (
	// ErrNotFound reports a missing tensor name.
	ErrNotFound = fmt.Errorf("store: tensor not found")
	// ErrLayout reports a layout the codec cannot apply to the tensor shape.
	ErrLayout = fmt.Errorf("store: layout not applicable")
	// ErrCorrupt reports a payload whose length disagrees with the tensor.
	ErrCorrupt = fmt.Errorf("store: payload size mismatch")
)

// encode packs b under the given layout. Float64 values are written as
// little-endian IEEE-754 bit patterns so round trips are exact.
func encode(b *block.Blocked, layout Layout) ([]byte, error) {
	n, err := elemCount(b, layout)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 8*n)
	put := func(v float64) {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	switch layout {
	case Full:
		for _, v := range b.Data(0) {
			put(v)
		}
	case LowerTriangle:
		for h := 0; h < b.Nirrep(); h++ {
			for i := 0; i < b.RowDim(h); i++ {
				for j := 0; j <= i; j++ {
					put(b.At(h, i, j))
				}
			}
		}
	case SubBlocks:
		for h := 0; h < b.Nirrep(); h++ {
			for _, v := range b.Data(h) {
				put(v)
			}
		}
	}
	return buf, nil
}

// decode unpacks payload into the preallocated tensor. The destination
// fixes all dimensions; the payload must match exactly.
func decode(payload []byte, layout Layout, into *block.Blocked) error {
	n, err := elemCount(into, layout)
	if err != nil {
		return err
	}
	if len(payload) != 8*n {
		return fmt.Errorf("%w: %q under %s wants %d bytes, got %d",
			ErrCorrupt, into.Name(), layout, 8*n, len(payload))
	}
	k := 0
	next := func() float64 {
		v := math.Float64frombits(binary.LittleEndian.Uint64(payload[8*k:]))
		k++
		return v
	}
	switch layout {
	case Full:
		data := into.Data(0)
		for i := range data {
			data[i] = next()
		}
	case LowerTriangle:
		for h := 0; h < into.Nirrep(); h++ {
			for i := 0; i < into.RowDim(h); i++ {
				for j := 0; j <= i; j++ {
					v := next()
					into.Set(h, i, j, v)
					into.Set(h, j, i, v)
				}
			}
		}
	case SubBlocks:
		for h := 0; h < into.Nirrep(); h++ {
			data := into.Data(h)
			for i := range data {
				data[i] = next()
			}
		}
	}
	return nil
}

func elemCount(b *block.Blocked, layout Layout) (int, error) {
	switch layout {
	case Full:
		if b.Nirrep() != 1 {
			return 0, fmt.Errorf("%w: full layout needs one irrep, %q has %d",
				ErrLayout, b.Name(), b.Nirrep())
		}
		return b.RowDim(0) * b.ColDim(0), nil
	case LowerTriangle:
		if b.Symmetry() != 0 {
			return 0, fmt.Errorf("%w: triangular layout needs a totally symmetric tensor", ErrLayout)
		}
		n := 0
		for h := 0; h < b.Nirrep(); h++ {
			if b.RowDim(h) != b.ColDim(h) {
				return 0, fmt.Errorf("%w: slab %d of %q is %dx%d, not square",
					ErrLayout, h, b.Name(), b.RowDim(h), b.ColDim(h))
			}
			n += b.RowDim(h) * (b.RowDim(h) + 1) / 2
		}
		return n, nil
	case SubBlocks:
		n := 0
		for h := 0; h < b.Nirrep(); h++ {
			n += b.RowDim(h) * b.ColDim(h)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: unknown layout %d", ErrLayout, int(layout))
}
