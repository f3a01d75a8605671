package df

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"godct/block"
	"godct/eri"
	"godct/store"
)

// metricCutoff drops metric eigenvalues below this value when inverting.
// Deliberately permissive: near-null fitting directions carry negligible
// weight, and dropping more would degrade the fit.
const metricCutoff = 1.0e-12

// FormMetric assembles the two-center fitting metric (P|Q) for the
// factory's auxiliary basis, forms its inverse square root by
// eigendecomposition, and persists the result under name as a packed
// lower triangle.
func (p *Pipeline) FormMetric(f eri.Factory, name string) (*block.Blocked, error) {
	aux := f.Auxiliary()
	naux := aux.NBF()

	raw := mat.NewSymDense(naux, nil)
	computers := make([]eri.Computer, p.threads)
	for t := range computers {
		computers[t] = f.New()
	}

	// Shell pairs P >= Q; each item owns disjoint rows of the triangle.
	type pair struct{ P, Q int }
	var pairs []pair
	for P := 0; P < aux.NShell(); P++ {
		for Q := 0; Q <= P; Q++ {
			pairs = append(pairs, pair{P, Q})
		}
	}
	p.parallelFor(len(pairs), func(worker, i int) {
		P, Q := pairs[i].P, pairs[i].Q
		sp, sq := aux.Shell(P), aux.Shell(Q)
		buf := computers[worker].TwoCenter(P, Q)
		for a := 0; a < sp.NFunc; a++ {
			for b := 0; b < sq.NFunc; b++ {
				pa, qb := sp.Index+a, sq.Index+b
				if pa >= qb {
					raw.SetSym(pa, qb, buf[a*sq.NFunc+b])
				}
			}
		}
	})

	var eig mat.EigenSym
	if !eig.Factorize(raw, true) {
		return nil, fmt.Errorf("df: metric %q: eigendecomposition failed", name)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// J^-1/2 = V diag(e^-1/2) V^T over the surviving eigenspace.
	scaled := mat.NewDense(naux, naux, nil)
	for j := 0; j < naux; j++ {
		w := 0.0
		if vals[j] > metricCutoff {
			w = 1.0 / math.Sqrt(vals[j])
		}
		for i := 0; i < naux; i++ {
			scaled.Set(i, j, vecs.At(i, j)*w)
		}
	}
	jm12 := block.NewBlocked(name, block.Dimension{naux}, block.Dimension{naux})
	jm12.Block(0).Mul(scaled, vecs.T())

	if err := p.store.Save(name, store.LowerTriangle, jm12); err != nil {
		return nil, fmt.Errorf("df: metric %q: %w", name, err)
	}
	p.logf("formed %s (%d fitting functions)", name, naux)
	return jm12, nil
}
