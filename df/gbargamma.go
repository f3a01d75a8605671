package df

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
	"godct/store"
)

// BuildGbarGamma forms the orbital-basis contraction
// [Gbar*Gamma]<q|p> = sum_rs gbar<qs|pr> gamma<r|s> against the
// reference fitting basis. The Coulomb term goes through a single
// auxiliary projection vector, which is persisted for reuse by the
// gradient code; the exchange term rebuilds one <Q'P'|RS> slab per
// orbital pair. Requires the gamma matrices assembled by BuildTensors.
func (p *Pipeline) BuildGbarGamma() error {
	if p.moGamma[alpha] == nil {
		return fmt.Errorf("df: BuildGbarGamma before gamma assembly")
	}

	bScf := [2]*block.Blocked{}
	for _, s := range p.spins() {
		var err error
		bScf[s], err = p.PrimaryTransform(p.bSOSCF, p.orbs[s].All, p.orbs[s].All)
		if err != nil {
			return err
		}
	}
	if p.ref == Restricted {
		bScf[beta] = bScf[alpha]
	}

	// (Q) = b(Q|SR) gamma<R|S>, summed over the explicit spins. Gamma is
	// block diagonal, so only the totally symmetric slab contributes.
	qvec := block.NewBlocked(nameQVector, block.Dimension{1}, block.Dimension{p.nauxSCF})
	qview := qvec.VecView(0)
	for _, s := range p.spins() {
		mo := p.orbs[s].MODim()
		tab := block.MustPairTable(mo, mo)
		for hr := 0; hr < p.nirrep; hr++ {
			if mo[hr] == 0 {
				continue
			}
			blas64.Gemv(blas.NoTrans, 1.0,
				bScf[s].ColSlab(0, tab.At(0, hr).Offset, mo[hr]*mo[hr]),
				p.moGamma[s].VecView(hr), 1.0, qview)
		}
	}
	if err := p.store.Save(nameQVector, store.SubBlocks, qvec); err != nil {
		return err
	}

	// Coulomb: f_tilde <Q|P> = c b(QP|Aux)(Aux). The restricted case
	// folds the missing beta spin into the prefactor.
	coulomb := 1.0
	if p.ref == Restricted {
		coulomb = 2.0
	}
	for _, s := range p.spins() {
		mo := p.orbs[s].MODim()
		tab := block.MustPairTable(mo, mo)
		out := block.NewBlocked("MO-basis Gbar*Gamma", mo, mo)
		for hq := 0; hq < p.nirrep; hq++ {
			if mo[hq] == 0 {
				continue
			}
			blas64.Gemv(blas.Trans, coulomb,
				bScf[s].ColSlab(0, tab.At(0, hq).Offset, mo[hq]*mo[hq]),
				qview, 0.0, out.VecView(hq))
		}
		p.moGbarGamma[s] = out
	}

	// Exchange: f_tilde <Q|P> -= b(QR|Aux) b(Aux|SP) gamma<R|S>, filled
	// over p >= q and mirrored since the result is Hermitian.
	for _, s := range p.spins() {
		if err := p.gbarGammaExchange(bScf[s], p.moGamma[s], p.moGbarGamma[s], s); err != nil {
			return err
		}
	}
	if p.ref == Restricted {
		p.moGbarGamma[beta] = p.moGbarGamma[alpha]
	}
	p.logf("built [Gbar*Gamma] (%s)", p.ref)
	return nil
}

func (p *Pipeline) gbarGammaExchange(bScf, gamma, out *block.Blocked, s int) error {
	mo := p.orbs[s].MODim()
	tab := block.MustPairTable(mo, mo)

	for hq := 0; hq < p.nirrep; hq++ {
		hp := hq
		if mo[hq] == 0 {
			continue
		}
		for hr := 0; hr < p.nirrep; hr++ {
			hs := hr
			if mo[hr] == 0 {
				continue
			}
			hqr := hq ^ hr
			gammaVec := gamma.VecView(hr)

			scratch := make([][]float64, p.threads)
			for t := range scratch {
				scratch[t] = make([]float64, mo[hr]*mo[hs])
			}

			// Unique pairs p >= q; each owns its (q,p)/(p,q) cells.
			type qp struct{ q, p int }
			var items []qp
			for q := 0; q < mo[hq]; q++ {
				for pp := q; pp < mo[hp]; pp++ {
					items = append(items, qp{q, pp})
				}
			}
			p.parallelFor(len(items), func(worker, i int) {
				q, pp := items[i].q, items[i].p
				rs := blas64.General{Rows: mo[hr], Cols: mo[hs], Stride: mo[hs], Data: scratch[worker]}

				// <Q'P'|RS> = b(Q'R|Aux) b(Aux|P'S)
				blas64.Gemm(blas.Trans, blas.NoTrans, 1.0,
					bScf.ColSlab(hqr, tab.At(hqr, hq).Offset+q*mo[hr], mo[hr]),
					bScf.ColSlab(hqr, tab.At(hqr, hp).Offset+pp*mo[hs], mo[hs]),
					0.0, rs)
				value := -blas64.Dot(
					blas64.Vector{N: mo[hr] * mo[hs], Data: scratch[worker], Inc: 1},
					gammaVec)
				out.AddAt(hp, q, pp, value)
				if q != pp {
					out.AddAt(hp, pp, q, value)
				}
			})
		}
	}
	return nil
}
