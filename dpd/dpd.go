// Package dpd manages four-index quantities stored as per-irrep matrices
// of composite row and column pairs. Buffers live behind a blob store;
// irreps are paged in, modified, written back, and released one at a
// time, which keeps only the working irrep of a buffer in memory.
package dpd

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
	"godct/store"
)

// File binds buffers to one blob store.
type File struct {
	store store.Store
}

// NewFile wraps a blob store for buffer traffic.
func NewFile(s store.Store) *File { return &File{store: s} }

// Store exposes the underlying blob store.
func (f *File) Store() store.Store { return f.store }

// Buf4 is a totally symmetric four-index buffer. Slab h holds composite
// rows (p,q) with hp^hq == h against composite columns (r,s) with
// hr^hs == h, both packed per the pair tables.
type Buf4 struct {
	file  *File
	name  string
	rows  *block.PairTable
	cols  *block.PairTable
	slabs []*block.Blocked
}

// NewBuf4 declares a buffer over the given composite spaces. No irrep is
// resident until IrrepInit or IrrepRead.
func NewBuf4(f *File, name string, rows, cols *block.PairTable) (*Buf4, error) {
	if rows.Nirrep() != cols.Nirrep() {
		return nil, fmt.Errorf("%w: row table has %d irreps, column table %d",
			block.ErrIrrepMismatch, rows.Nirrep(), cols.Nirrep())
	}
	return &Buf4{
		file:  f,
		name:  name,
		rows:  rows,
		cols:  cols,
		slabs: make([]*block.Blocked, rows.Nirrep()),
	}, nil
}

// Name returns the buffer name.
func (b *Buf4) Name() string { return b.name }

// Nirrep returns the number of irreps.
func (b *Buf4) Nirrep() int { return b.rows.Nirrep() }

// RowTable returns the composite row layout.
func (b *Buf4) RowTable() *block.PairTable { return b.rows }

// ColTable returns the composite column layout.
func (b *Buf4) ColTable() *block.PairTable { return b.cols }

// RowDim returns the packed row extent of slab h.
func (b *Buf4) RowDim(h int) int { return b.rows.ColDim(h) }

// ColDim returns the packed column extent of slab h.
func (b *Buf4) ColDim(h int) int { return b.cols.ColDim(h) }

func (b *Buf4) key(h int) string { return fmt.Sprintf("%s #%d", b.name, h) }

func (b *Buf4) resident(h int) error {
	if b.slabs[h] == nil {
		return fmt.Errorf("dpd: irrep %d of %q is not resident", h, b.name)
	}
	return nil
}

// IrrepInit makes slab h resident and zeroed.
func (b *Buf4) IrrepInit(h int) {
	b.slabs[h] = block.NewBlocked(b.key(h),
		block.Dimension{b.RowDim(h)}, block.Dimension{b.ColDim(h)})
}

// IrrepRead pages slab h in from the store.
func (b *Buf4) IrrepRead(h int) error {
	b.IrrepInit(h)
	if err := b.file.store.Load(b.key(h), store.Full, b.slabs[h]); err != nil {
		b.slabs[h] = nil
		return err
	}
	return nil
}

// IrrepWrite pages the resident slab h out to the store.
func (b *Buf4) IrrepWrite(h int) error {
	if err := b.resident(h); err != nil {
		return err
	}
	return b.file.store.Save(b.key(h), store.Full, b.slabs[h])
}

// IrrepClose releases the resident slab h without writing.
func (b *Buf4) IrrepClose(h int) { b.slabs[h] = nil }

// At reads element (row,col) of the resident slab h.
func (b *Buf4) At(h, row, col int) float64 { return b.slabs[h].At(0, row, col) }

// Set writes element (row,col) of the resident slab h.
func (b *Buf4) Set(h, row, col int, v float64) { b.slabs[h].Set(0, row, col, v) }

// Add accumulates into element (row,col) of the resident slab h.
func (b *Buf4) Add(h, row, col int, v float64) { b.slabs[h].AddAt(0, row, col, v) }

// General returns a BLAS view of the resident slab h.
func (b *Buf4) General(h int) blas64.General { return b.slabs[h].General(0) }

// ColSlab returns a BLAS view of ncols columns of the resident slab h
// starting at column off, keeping the parent stride.
func (b *Buf4) ColSlab(h, off, ncols int) blas64.General {
	return b.slabs[h].ColSlab(0, off, ncols)
}

// ZeroAll persists zeroed slabs for every irrep, leaving none resident.
func (b *Buf4) ZeroAll() error {
	for h := 0; h < b.Nirrep(); h++ {
		b.IrrepInit(h)
		if err := b.IrrepWrite(h); err != nil {
			return err
		}
		b.IrrepClose(h)
	}
	return nil
}

// Data returns the raw row-major values of the resident slab h.
func (b *Buf4) Data(h int) []float64 { return b.slabs[h].Data(0) }

// Scale multiplies every stored irrep by f, paging each one through
// memory in turn.
func (b *Buf4) Scale(f float64) error {
	for h := 0; h < b.Nirrep(); h++ {
		if b.RowDim(h) == 0 || b.ColDim(h) == 0 {
			continue
		}
		if err := b.IrrepRead(h); err != nil {
			return err
		}
		b.slabs[h].Scale(f)
		if err := b.IrrepWrite(h); err != nil {
			return err
		}
		b.IrrepClose(h)
	}
	return nil
}
