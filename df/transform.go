package df

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
)

// AOToSO transforms a three-index tensor from the atomic basis into the
// symmetry-orbital basis. The result carries one slab per overall pair
// label h; columns pack the (hm, hn) sub-blocks with hm^hn == h in
// ascending hm order.
func (p *Pipeline) AOToSO(bAO *block.Blocked) (*block.Blocked, error) {
	if bAO.Nirrep() != 1 {
		return nil, fmt.Errorf("%w: AO tensor must carry a single slab", ErrShape)
	}
	naux := bAO.RowDim(0)
	if bAO.ColDim(0) != p.nao*p.nao {
		return nil, fmt.Errorf("%w: AO tensor has %d pair columns, basis gives %d",
			ErrShape, bAO.ColDim(0), p.nao*p.nao)
	}

	pairs := block.MustPairTable(p.soDim, p.soDim)
	out := block.NewBlocked("Fully-transformed b",
		block.Uniform(p.nirrep, naux), pairs.Dims())

	// View the AO tensor as (naux*nao) x nao so one GEMM does the full
	// first-half transformation for a target block.
	aoView := blas64.General{
		Rows: naux * p.nao, Cols: p.nao, Stride: p.nao, Data: bAO.Data(0),
	}

	offset := make([]int, p.nirrep)
	for h := 0; h < p.nirrep; h++ {
		for hm := 0; hm < p.nirrep; hm++ {
			hn := h ^ hm
			nm, nn := p.soDim[hm], p.soDim[hn]
			if nm > 0 && nn > 0 {
				half := make([]float64, naux*p.nao*nn)
				halfView := blas64.General{
					Rows: naux * p.nao, Cols: nn, Stride: nn, Data: half,
				}
				blas64.Gemm(blas.NoTrans, blas.NoTrans, 1.0,
					aoView, p.aoToSO.General(hn), 0.0, halfView)

				off := offset[h]
				p.parallelFor(naux, func(_, q int) {
					halfQ := blas64.General{
						Rows: p.nao, Cols: nn, Stride: nn,
						Data: half[q*p.nao*nn : (q+1)*p.nao*nn],
					}
					blas64.Gemm(blas.Trans, blas.NoTrans, 1.0,
						p.aoToSO.General(hm), halfQ, 0.0,
						out.RowSlab(h, q, off, nm, nn))
				})
			}
			offset[h] += nm * nn
		}
		if err := pairs.CheckClosure(h, offset[h]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PrimaryTransformGEMM applies left and right coefficient subsets to the
// pair index of a three-index tensor, accumulating
// result = alpha * left^T . t . right + beta * result block by block.
// All operands must be totally symmetric and agree about irreps; the
// tensor and result must agree about auxiliary rows.
func (p *Pipeline) PrimaryTransformGEMM(t, left, right, result *block.Blocked, alphaW, betaW float64) error {
	if t.Symmetry() != 0 || left.Symmetry() != 0 || right.Symmetry() != 0 || result.Symmetry() != 0 {
		return fmt.Errorf("%w: pair transform operands", ErrSymmetry)
	}
	if t.Nirrep() != left.Nirrep() || t.Nirrep() != right.Nirrep() || t.Nirrep() != result.Nirrep() {
		return fmt.Errorf("%w: pair transform operands", block.ErrIrrepMismatch)
	}
	if !t.Rows().Equal(result.Rows()) {
		return fmt.Errorf("%w: tensor and result disagree about auxiliary functions", ErrShape)
	}

	naux := t.RowDim(0)
	for h := 0; h < t.Nirrep(); h++ {
		offIn, offOut := 0, 0
		for hL := 0; hL < t.Nirrep(); hL++ {
			hR := h ^ hL
			lr, lc := left.RowDim(hL), left.ColDim(hL)
			rr, rc := right.RowDim(hR), right.ColDim(hR)
			if lr > 0 && lc > 0 && rr > 0 && rc > 0 {
				half := make([]float64, naux*lr*rc)
				in, out := offIn, offOut
				p.parallelFor(naux, func(_, q int) {
					halfQ := blas64.General{
						Rows: lr, Cols: rc, Stride: rc,
						Data: half[q*lr*rc : (q+1)*lr*rc],
					}
					blas64.Gemm(blas.NoTrans, blas.NoTrans, 1.0,
						t.RowSlab(h, q, in, lr, rr), right.General(hR), 0.0, halfQ)
					blas64.Gemm(blas.Trans, blas.NoTrans, alphaW,
						left.General(hL), halfQ, betaW,
						result.RowSlab(h, q, out, lc, rc))
				})
			}
			offIn += lr * rr
			offOut += lc * rc
		}
		if offIn != t.ColDim(h) {
			return fmt.Errorf("%w: pair columns of slab %d sum to %d, tensor declares %d",
				block.ErrDimensionMismatch, h, offIn, t.ColDim(h))
		}
	}
	return nil
}

// PrimaryTransform allocates the target pair layout from the coefficient
// columns and applies the transform with alpha 1 and beta 0.
func (p *Pipeline) PrimaryTransform(t, left, right *block.Blocked) (*block.Blocked, error) {
	naux := t.RowDim(0)
	pairs, err := block.NewPairTable(left.Cols(), right.Cols())
	if err != nil {
		return nil, err
	}
	result := block.NewBlocked("Three-Index Tensor",
		block.Uniform(t.Nirrep(), naux), pairs.Dims())
	if err := p.PrimaryTransformGEMM(t, left, right, result, 1.0, 0.0); err != nil {
		return nil, err
	}
	return result, nil
}

// SOToAO accumulates a symmetry-blocked three-index tensor back onto the
// full atomic pair square, one auxiliary row at a time.
func (p *Pipeline) SOToAO(bSO *block.Blocked) (*block.Blocked, error) {
	naux := bSO.RowDim(0)
	out := block.NewBlocked("AO basis quantity",
		block.Dimension{naux}, block.Dimension{p.nao * p.nao})

	for h := 0; h < bSO.Nirrep(); h++ {
		offset := 0
		for hm := 0; hm < bSO.Nirrep(); hm++ {
			hn := h ^ hm
			nm, nn := p.soDim[hm], p.soDim[hn]
			if nm > 0 && nn > 0 {
				half := make([]float64, naux*nm*p.nao)
				off := offset
				p.parallelFor(naux, func(_, q int) {
					halfQ := blas64.General{
						Rows: nm, Cols: p.nao, Stride: p.nao,
						Data: half[q*nm*p.nao : (q+1)*nm*p.nao],
					}
					blas64.Gemm(blas.NoTrans, blas.Trans, 1.0,
						bSO.RowSlab(h, q, off, nm, nn), p.aoToSO.General(hn), 0.0, halfQ)
					blas64.Gemm(blas.NoTrans, blas.NoTrans, 1.0,
						p.aoToSO.General(hm), halfQ, 1.0,
						out.RowSlab(0, q, 0, p.nao, p.nao))
				})
			}
			offset += nm * nn
		}
		if offset != bSO.ColDim(h) {
			return nil, fmt.Errorf("%w: pair columns of slab %d sum to %d, tensor declares %d",
				block.ErrDimensionMismatch, h, offset, bSO.ColDim(h))
		}
	}
	return out, nil
}

// TransformB projects the SO-basis correlation tensor onto the orbital
// subsets of each spin: occupied-occupied, occupied-virtual,
// virtual-virtual, and the full square. Under a Restricted reference the
// beta tensors alias the alpha ones.
func (p *Pipeline) TransformB() error {
	if p.bSO == nil {
		return fmt.Errorf("df: TransformB before BuildB")
	}
	for _, s := range p.spins() {
		o := p.orbs[s]
		var err error
		if p.bQij[s], err = p.PrimaryTransform(p.bSO, o.Occ, o.Occ); err != nil {
			return err
		}
		if p.bQia[s], err = p.PrimaryTransform(p.bSO, o.Occ, o.Vir); err != nil {
			return err
		}
		if p.bQab[s], err = p.PrimaryTransform(p.bSO, o.Vir, o.Vir); err != nil {
			return err
		}
		if p.bQpq[s], err = p.PrimaryTransform(p.bSO, o.All, o.All); err != nil {
			return err
		}
	}
	if p.ref == Restricted {
		p.bQij[beta] = p.bQij[alpha]
		p.bQia[beta] = p.bQia[alpha]
		p.bQab[beta] = p.bQab[alpha]
		p.bQpq[beta] = p.bQpq[alpha]
	}
	return nil
}

// spins returns the spin indices the reference computes explicitly.
func (p *Pipeline) spins() []int {
	if p.ref == Restricted {
		return []int{alpha}
	}
	return []int{alpha, beta}
}
