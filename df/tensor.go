package df

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
	"godct/eri"
	"godct/store"
)

// BuildAOTensor generates the fitted three-index tensor over the atomic
// basis, b(Q|mn) = sum_P (mn|P) [J^-1/2]_PQ, and persists it under name
// as sub-blocks. The (m,n) pair index is packed row major over the full
// nao x nao square; both (m,n) and (n,m) receive the shell value.
func (p *Pipeline) BuildAOTensor(f eri.Factory, jm12 *block.Blocked, name string) (*block.Blocked, error) {
	aux := f.Auxiliary()
	naux, nao := aux.NBF(), p.nao
	if jm12.RowDim(0) != naux {
		return nil, fmt.Errorf("%w: metric is %d, auxiliary basis carries %d functions",
			ErrShape, jm12.RowDim(0), naux)
	}

	raw := block.NewBlocked("A(P|mn)", block.Dimension{naux}, block.Dimension{nao * nao})
	rawData := raw.Data(0)

	computers := make([]eri.Computer, p.threads)
	for t := range computers {
		computers[t] = f.New()
	}

	// Unique primary shell pairs M >= N.
	type pair struct{ M, N int }
	var pairs []pair
	for M := 0; M < p.primary.NShell(); M++ {
		for N := 0; N <= M; N++ {
			pairs = append(pairs, pair{M, N})
		}
	}
	npairs := len(pairs)

	// Auxiliary shells are consumed in batches of at most maxRows shells.
	// The whole basis fits one batch at present; the batching stays so a
	// row cap can be reintroduced without touching the scatter loop.
	maxRows := aux.NShell()
	var pstarts []int
	counter := 0
	pstarts = append(pstarts, 0)
	for P := 0; P < aux.NShell(); P++ {
		nP := aux.Shell(P).NFunc
		if counter+nP > maxRows {
			counter = 0
			pstarts = append(pstarts, P)
		}
		counter += nP
	}
	pstarts = append(pstarts, aux.NShell())

	for batch := 0; batch+1 < len(pstarts); batch++ {
		pstart, pstop := pstarts[batch], pstarts[batch+1]
		np := pstop - pstart

		// Each (P,MN) item owns disjoint (row, column-pair) cells, so
		// workers scatter without coordination.
		p.parallelFor(np*npairs, func(worker, item int) {
			P := item/npairs + pstart
			mn := pairs[item%npairs]
			buf := computers[worker].ThreeCenter(P, mn.M, mn.N)

			sp := aux.Shell(P)
			sm := p.primary.Shell(mn.M)
			sn := p.primary.Shell(mn.N)

			idx := 0
			for q := 0; q < sp.NFunc; q++ {
				row := (sp.Index + q) * nao * nao
				for m := 0; m < sm.NFunc; m++ {
					am := sm.Index + m
					for n := 0; n < sn.NFunc; n++ {
						an := sn.Index + n
						rawData[row+am*nao+an] = buf[idx]
						rawData[row+an*nao+am] = buf[idx]
						idx++
					}
				}
			}
		})
	}

	b := block.NewBlocked(name, block.Dimension{naux}, block.Dimension{nao * nao})
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1.0, jm12.General(0), raw.General(0), 0.0, b.General(0))

	if err := p.store.Save(name, store.SubBlocks, b); err != nil {
		return nil, fmt.Errorf("df: tensor %q: %w", name, err)
	}
	p.logf("formed %s (%d x %d x %d)", name, naux, nao, nao)
	return b, nil
}
