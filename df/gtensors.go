package df

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
	"godct/dpd"
)

// Composite pair layouts for one spin's orbital subsets.
func (p *Pipeline) tabOO(s int) *block.PairTable {
	return block.MustPairTable(p.orbs[s].OccDim(), p.orbs[s].OccDim())
}
func (p *Pipeline) tabOV(s int) *block.PairTable {
	return block.MustPairTable(p.orbs[s].OccDim(), p.orbs[s].VirDim())
}
func (p *Pipeline) tabVO(s int) *block.PairTable {
	return block.MustPairTable(p.orbs[s].VirDim(), p.orbs[s].OccDim())
}
func (p *Pipeline) tabVV(s int) *block.PairTable {
	return block.MustPairTable(p.orbs[s].VirDim(), p.orbs[s].VirDim())
}

// formG contracts two MO-subset b tensors over the auxiliary index,
// g = left^T . right per irrep, and persists every slab of the buffer.
func (p *Pipeline) formG(name string, left *block.Blocked, rows *block.PairTable, right *block.Blocked, cols *block.PairTable) error {
	buf, err := dpd.NewBuf4(p.file, name, rows, cols)
	if err != nil {
		return err
	}
	for h := 0; h < p.nirrep; h++ {
		buf.IrrepInit(h)
		if buf.RowDim(h) > 0 && buf.ColDim(h) > 0 {
			if left.ColDim(h) != buf.RowDim(h) || right.ColDim(h) != buf.ColDim(h) {
				return fmt.Errorf("%w: %q slab %d against b tensor pair columns", ErrShape, name, h)
			}
			blas64.Gemm(blas.Trans, blas.NoTrans, 1.0,
				left.General(h), right.General(h), 0.0, buf.General(h))
		}
		if err := buf.IrrepWrite(h); err != nil {
			return err
		}
		buf.IrrepClose(h)
	}
	p.logf("formed %s", name)
	return nil
}

// FormGOVOV builds the (ov|ov) integrals for every spin case.
func (p *Pipeline) FormGOVOV() error {
	if err := p.formG("MO Ints (OV|OV)", p.bQia[alpha], p.tabOV(alpha), p.bQia[alpha], p.tabOV(alpha)); err != nil {
		return err
	}
	if p.ref == Restricted {
		return nil
	}
	if err := p.formG("MO Ints (OV|ov)", p.bQia[alpha], p.tabOV(alpha), p.bQia[beta], p.tabOV(beta)); err != nil {
		return err
	}
	return p.formG("MO Ints (ov|ov)", p.bQia[beta], p.tabOV(beta), p.bQia[beta], p.tabOV(beta))
}

// FormGOOOO builds the (oo|oo) integrals for every spin case.
func (p *Pipeline) FormGOOOO() error {
	if err := p.formG("MO Ints (OO|OO)", p.bQij[alpha], p.tabOO(alpha), p.bQij[alpha], p.tabOO(alpha)); err != nil {
		return err
	}
	if p.ref == Restricted {
		return nil
	}
	if err := p.formG("MO Ints (OO|oo)", p.bQij[alpha], p.tabOO(alpha), p.bQij[beta], p.tabOO(beta)); err != nil {
		return err
	}
	return p.formG("MO Ints (oo|oo)", p.bQij[beta], p.tabOO(beta), p.bQij[beta], p.tabOO(beta))
}

// FormGVVOO builds the mixed virtual-occupied square integrals. The
// restricted case needs only (VV|OO); the unrestricted one needs the
// (VV|oo) cross block and every (oo|vv)-ordered variant.
func (p *Pipeline) FormGVVOO() error {
	if p.ref == Restricted {
		return p.formG("MO Ints (VV|OO)", p.bQab[alpha], p.tabVV(alpha), p.bQij[alpha], p.tabOO(alpha))
	}
	if err := p.formG("MO Ints (VV|oo)", p.bQab[alpha], p.tabVV(alpha), p.bQij[beta], p.tabOO(beta)); err != nil {
		return err
	}
	if err := p.formG("MO Ints (OO|VV)", p.bQij[alpha], p.tabOO(alpha), p.bQab[alpha], p.tabVV(alpha)); err != nil {
		return err
	}
	if err := p.formG("MO Ints (OO|vv)", p.bQij[alpha], p.tabOO(alpha), p.bQab[beta], p.tabVV(beta)); err != nil {
		return err
	}
	return p.formG("MO Ints (oo|vv)", p.bQij[beta], p.tabOO(beta), p.bQab[beta], p.tabVV(beta))
}

// resortOVtoVO reorders b(Q|ia) columns into b(Q|ai): within every
// overall label the (occ, vir) sub-blocks become (vir, occ) sub-blocks
// with the fast index swapped.
func (p *Pipeline) resortOVtoVO(bQia *block.Blocked, s int) *block.Blocked {
	occ := p.orbs[s].OccDim()
	vir := p.orbs[s].VirDim()
	ia := p.tabOV(s)
	ai := p.tabVO(s)
	naux := bQia.RowDim(0)

	out := block.NewBlocked("b(Q|ai)", block.Uniform(p.nirrep, naux), ai.Dims())
	for h := 0; h < p.nirrep; h++ {
		for ha := 0; ha < p.nirrep; ha++ {
			hi := h ^ ha
			if vir[ha] == 0 || occ[hi] == 0 {
				continue
			}
			p.parallelFor(vir[ha], func(_, a int) {
				for i := 0; i < occ[hi]; i++ {
					srcCol := ia.RowIndex(h, hi, i, a)
					dstCol := ai.RowIndex(h, ha, a, i)
					for q := 0; q < naux; q++ {
						out.Set(h, q, dstCol, bQia.At(h, q, srcCol))
					}
				}
			})
		}
	}
	return out
}

// FormGVOOO builds the (vo|oo) integrals, resorting b(Q|ia) into
// b(Q|ai) for the row side.
func (p *Pipeline) FormGVOOO() error {
	bQaiA := p.resortOVtoVO(p.bQia[alpha], alpha)
	if err := p.formG("MO Ints (VO|OO)", bQaiA, p.tabVO(alpha), p.bQij[alpha], p.tabOO(alpha)); err != nil {
		return err
	}
	if p.ref == Restricted {
		return nil
	}
	bQaiB := p.resortOVtoVO(p.bQia[beta], beta)
	if err := p.formG("MO Ints (VO|oo)", bQaiA, p.tabVO(alpha), p.bQij[beta], p.tabOO(beta)); err != nil {
		return err
	}
	if err := p.formG("MO Ints (vo|oo)", bQaiB, p.tabVO(beta), p.bQij[beta], p.tabOO(beta)); err != nil {
		return err
	}
	return p.formG("MO Ints (OO|vo)", p.bQij[alpha], p.tabOO(alpha), bQaiB, p.tabVO(beta))
}

// FormGOVVV builds the (ov|vv) integrals for every spin case.
func (p *Pipeline) FormGOVVV() error {
	if err := p.formG("MO Ints (OV|VV)", p.bQia[alpha], p.tabOV(alpha), p.bQab[alpha], p.tabVV(alpha)); err != nil {
		return err
	}
	if p.ref == Restricted {
		return nil
	}
	if err := p.formG("MO Ints (OV|vv)", p.bQia[alpha], p.tabOV(alpha), p.bQab[beta], p.tabVV(beta)); err != nil {
		return err
	}
	if err := p.formG("MO Ints (ov|vv)", p.bQia[beta], p.tabOV(beta), p.bQab[beta], p.tabVV(beta)); err != nil {
		return err
	}
	return p.formG("MO Ints (VV|ov)", p.bQab[alpha], p.tabVV(alpha), p.bQia[beta], p.tabOV(beta))
}

// FormGVVVV builds the (vv|vv) integrals for every spin case.
func (p *Pipeline) FormGVVVV() error {
	if err := p.formG("MO Ints (VV|VV)", p.bQab[alpha], p.tabVV(alpha), p.bQab[alpha], p.tabVV(alpha)); err != nil {
		return err
	}
	if p.ref == Restricted {
		return nil
	}
	if err := p.formG("MO Ints (VV|vv)", p.bQab[alpha], p.tabVV(alpha), p.bQab[beta], p.tabVV(beta)); err != nil {
		return err
	}
	return p.formG("MO Ints (vv|vv)", p.bQab[beta], p.tabVV(beta), p.bQab[beta], p.tabVV(beta))
}

// FormGTensors runs every four-index integral build. The families touch
// disjoint buffer names and only read the b tensors, so they run
// concurrently.
func (p *Pipeline) FormGTensors() error {
	var g errgroup.Group
	for _, step := range []func() error{
		p.FormGOVOV, p.FormGOOOO, p.FormGVVOO, p.FormGVOOO, p.FormGOVVV, p.FormGVVVV,
	} {
		g.Go(step)
	}
	return g.Wait()
}
