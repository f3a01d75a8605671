package dpd

import (
	"fmt"

	"godct/block"
)

// Permutation names an axis reordering of a buffer (p,q|r,s).
type Permutation int

const (
	// PRQS maps (p,q|r,s) to (p,r|q,s).
	PRQS Permutation = iota
	// QSPR maps (p,q|r,s) to (q,s|p,r).
	QSPR
)

func (p Permutation) String() string {
	switch p {
	case PRQS:
		return "prqs"
	case QSPR:
		return "qspr"
	}
	return fmt.Sprintf("permutation(%d)", int(p))
}

// Sort writes a new buffer holding this buffer's values under the given
// axis permutation. Every source and target irrep is resident during the
// shuffle; both buffers end up paged out with the target persisted.
func (b *Buf4) Sort(name string, perm Permutation) (*Buf4, error) {
	p := b.rows.Left()
	q := b.rows.Right()
	r := b.cols.Left()
	s := b.cols.Right()

	var dst *Buf4
	var err error
	switch perm {
	case PRQS:
		dst, err = NewBuf4(b.file, name,
			block.MustPairTable(p, r), block.MustPairTable(q, s))
	case QSPR:
		dst, err = NewBuf4(b.file, name,
			block.MustPairTable(q, s), block.MustPairTable(p, r))
	default:
		return nil, fmt.Errorf("dpd: unknown permutation %v", perm)
	}
	if err != nil {
		return nil, err
	}

	nirrep := b.Nirrep()
	for h := 0; h < nirrep; h++ {
		dst.IrrepInit(h)
	}

	for h := 0; h < nirrep; h++ {
		if b.RowDim(h) == 0 || b.ColDim(h) == 0 {
			continue
		}
		if err := b.IrrepRead(h); err != nil {
			return nil, fmt.Errorf("dpd: sort %q: %w", b.name, err)
		}
		for hp := 0; hp < nirrep; hp++ {
			hq := h ^ hp
			for hr := 0; hr < nirrep; hr++ {
				hs := h ^ hr
				ht := hp ^ hr
				for ip := 0; ip < p[hp]; ip++ {
					for iq := 0; iq < q[hq]; iq++ {
						row := b.rows.RowIndex(h, hp, ip, iq)
						for ir := 0; ir < r[hr]; ir++ {
							for is := 0; is < s[hs]; is++ {
								col := b.cols.RowIndex(h, hr, ir, is)
								v := b.At(h, row, col)
								switch perm {
								case PRQS:
									dst.Set(ht,
										dst.rows.RowIndex(ht, hp, ip, ir),
										dst.cols.RowIndex(ht, hq, iq, is), v)
								case QSPR:
									dst.Set(ht,
										dst.rows.RowIndex(ht, hq, iq, is),
										dst.cols.RowIndex(ht, hp, ip, ir), v)
								}
							}
						}
					}
				}
			}
		}
		b.IrrepClose(h)
	}

	for h := 0; h < nirrep; h++ {
		if err := dst.IrrepWrite(h); err != nil {
			return nil, err
		}
		dst.IrrepClose(h)
	}
	return dst, nil
}
