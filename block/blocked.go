package block

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Blocked is a matrix decomposed over overall symmetry labels: one dense
// slab per label h, sized Rows[h] x Cols[h^sym]. Zero-extent slabs are nil.
// Each instance owns its storage; producers return fresh instances and
// consumers treat them as read-only unless a routine documents in-place
// accumulation.
type Blocked struct {
	name       string
	sym        int
	rows, cols Dimension
	blocks     []*mat.Dense
}

// NewBlocked allocates a zeroed totally-symmetric blocked matrix.
func NewBlocked(name string, rows, cols Dimension) *Blocked {
	return NewBlockedSym(name, rows, cols, 0)
}

// NewBlockedSym allocates a zeroed blocked matrix with overall symmetry
// label sym: block h couples rows[h] with cols[h^sym].
func NewBlockedSym(name string, rows, cols Dimension, sym int) *Blocked {
	if rows.Nirrep() != cols.Nirrep() {
		panic(fmt.Errorf("%w: rows %d irreps, cols %d", ErrIrrepMismatch, rows.Nirrep(), cols.Nirrep()))
	}
	b := &Blocked{
		name:   name,
		sym:    sym,
		rows:   append(Dimension(nil), rows...),
		cols:   append(Dimension(nil), cols...),
		blocks: make([]*mat.Dense, rows.Nirrep()),
	}
	for h := range b.blocks {
		r, c := b.rows[h], b.cols[h^sym]
		if r > 0 && c > 0 {
			b.blocks[h] = mat.NewDense(r, c, nil)
		}
	}
	return b
}

// Name returns the tensor name used for blob-store keys.
func (b *Blocked) Name() string { return b.name }

// SetName retags the tensor.
func (b *Blocked) SetName(name string) { b.name = name }

// Symmetry returns the overall symmetry label.
func (b *Blocked) Symmetry() int { return b.sym }

// Nirrep returns the number of symmetry labels.
func (b *Blocked) Nirrep() int { return len(b.blocks) }

// Rows returns the per-label row dimension.
func (b *Blocked) Rows() Dimension { return b.rows }

// Cols returns the per-label column dimension.
func (b *Blocked) Cols() Dimension { return b.cols }

// RowDim returns the row extent of slab h.
func (b *Blocked) RowDim(h int) int { return b.rows[h] }

// ColDim returns the column extent of slab h.
func (b *Blocked) ColDim(h int) int { return b.cols[h^b.sym] }

// Block returns slab h, or nil when it has zero extent.
func (b *Blocked) Block(h int) *mat.Dense { return b.blocks[h] }

// At reads element (i,j) of slab h.
func (b *Blocked) At(h, i, j int) float64 { return b.blocks[h].At(i, j) }

// Set writes element (i,j) of slab h.
func (b *Blocked) Set(h, i, j int, v float64) { b.blocks[h].Set(i, j, v) }

// AddAt accumulates into element (i,j) of slab h.
func (b *Blocked) AddAt(h, i, j int, v float64) {
	b.blocks[h].Set(i, j, b.blocks[h].At(i, j)+v)
}

// Zero clears every slab.
func (b *Blocked) Zero() {
	for _, m := range b.blocks {
		if m != nil {
			m.Zero()
		}
	}
}

// Scale multiplies every slab by f in place.
func (b *Blocked) Scale(f float64) {
	for _, m := range b.blocks {
		if m != nil {
			m.Scale(f, m)
		}
	}
}

// Copy returns a deep copy, keeping name and symmetry.
func (b *Blocked) Copy() *Blocked {
	res := NewBlockedSym(b.name, b.rows, b.cols, b.sym)
	for h, m := range b.blocks {
		if m != nil {
			res.blocks[h].Copy(m)
		}
	}
	return res
}

// AddFrom accumulates o into b slab by slab.
func (b *Blocked) AddFrom(o *Blocked) error {
	if b.Nirrep() != o.Nirrep() {
		return fmt.Errorf("%w: %d vs %d", ErrIrrepMismatch, b.Nirrep(), o.Nirrep())
	}
	if !b.rows.Equal(o.rows) || !b.cols.Equal(o.cols) || b.sym != o.sym {
		return fmt.Errorf("%w: %q and %q disagree about slab shapes", ErrDimensionMismatch, b.name, o.name)
	}
	for h, m := range b.blocks {
		if m != nil {
			m.Add(m, o.blocks[h])
		}
	}
	return nil
}

// Data exposes the raw row-major values of slab h. Empty slabs yield nil.
func (b *Blocked) Data(h int) []float64 {
	if b.blocks[h] == nil {
		return nil
	}
	return b.blocks[h].RawMatrix().Data
}

// General returns a BLAS view of the whole slab h.
func (b *Blocked) General(h int) blas64.General {
	return b.blocks[h].RawMatrix()
}

// ColSlab returns a BLAS view of ncols columns of slab h starting at
// column off, keeping the parent stride. The view aliases b.
func (b *Blocked) ColSlab(h, off, ncols int) blas64.General {
	g := b.blocks[h].RawMatrix()
	return blas64.General{
		Rows:   g.Rows,
		Cols:   ncols,
		Stride: g.Stride,
		Data:   g.Data[off:],
	}
}

// RowSlab views columns [off, off+r*c) of a single row of slab h as an
// r x c matrix. The packed sub-block is contiguous inside the row, so the
// view stride is c. The view aliases b.
func (b *Blocked) RowSlab(h, row, off, r, c int) blas64.General {
	g := b.blocks[h].RawMatrix()
	start := row*g.Stride + off
	return blas64.General{
		Rows:   r,
		Cols:   c,
		Stride: c,
		Data:   g.Data[start : start+r*c],
	}
}

// VecView returns the whole slab h flattened as a unit-stride vector.
// Only valid when the slab is contiguous (stride == cols), which holds for
// every slab allocated by this package.
func (b *Blocked) VecView(h int) blas64.Vector {
	g := b.blocks[h].RawMatrix()
	return blas64.Vector{N: g.Rows * g.Cols, Data: g.Data[:g.Rows*g.Cols], Inc: 1}
}

// Transpose returns a new blocked matrix with every slab transposed.
// Only totally-symmetric operands are supported.
func (b *Blocked) Transpose() (*Blocked, error) {
	if b.sym != 0 {
		return nil, fmt.Errorf("%w: cannot transpose %q with label %d", ErrSymmetry, b.name, b.sym)
	}
	res := NewBlocked(b.name, b.cols, b.rows)
	for h, m := range b.blocks {
		if m != nil {
			res.blocks[h].Copy(m.T())
		}
	}
	return res, nil
}
