package df

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
	"godct/dpd"
)

// BuildGbarLambda contracts the antisymmetrized virtual-virtual
// integrals against the cumulant amplitudes,
// G<ij|ab> = lambda<ij|cd> g(ac|bd), without ever materializing the
// four-virtual tensor: for each fixed virtual A a g(A'C|BD) slab is
// rebuilt from two b tensor blocks and immediately consumed. Amplitude
// buffers must already be persisted; the tau(temp) targets are created
// here.
func (p *Pipeline) BuildGbarLambda() error {
	if p.ref == Restricted {
		return p.gbarLambdaCase(
			"Amplitude SF <OO|VV>", "tau(temp) SF <OO|VV>",
			alpha, alpha)
	}
	if err := p.gbarLambdaCase("Amplitude <OO|VV>", "tau(temp) <OO|VV>", alpha, alpha); err != nil {
		return err
	}
	if err := p.gbarLambdaCase("Amplitude <oo|vv>", "tau(temp) <oo|vv>", beta, beta); err != nil {
		return err
	}
	return p.gbarLambdaCase("Amplitude <Oo|Vv>", "tau(temp) <Oo|Vv>", alpha, beta)
}

// gbarLambdaCase runs one spin case: sL supplies the bra (A,C) virtuals,
// sR the ket (B,D) virtuals.
func (p *Pipeline) gbarLambdaCase(lamName, gName string, sL, sR int) error {
	virL := p.orbs[sL].VirDim()
	virR := p.orbs[sR].VirDim()
	bL := p.bQab[sL]
	bR := p.bQab[sR]
	vvL := p.tabVV(sL)
	vvR := p.tabVV(sR)
	colTab := block.MustPairTable(virL, virR)
	rowTab := block.MustPairTable(p.orbs[sL].OccDim(), p.orbs[sR].OccDim())

	lam, err := dpd.NewBuf4(p.file, lamName, rowTab, colTab)
	if err != nil {
		return err
	}
	g, err := dpd.NewBuf4(p.file, gName, rowTab, colTab)
	if err != nil {
		return err
	}
	if err := g.ZeroAll(); err != nil {
		return err
	}

	for hac := 0; hac < p.nirrep; hac++ {
		for ha := 0; ha < p.nirrep; ha++ {
			hc := hac ^ ha
			hbd := hac
			for hb := 0; hb < p.nirrep; hb++ {
				hd := hbd ^ hb
				hab := ha ^ hb
				hcd := hc ^ hd
				hij := hcd

				if lam.RowDim(hij) == 0 || lam.ColDim(hcd) == 0 ||
					g.RowDim(hij) == 0 || g.ColDim(hab) == 0 ||
					virL[ha] == 0 || virL[hc] == 0 || virR[hb] == 0 || virR[hd] == 0 {
					continue
				}
				na, nc, nb, nd := virL[ha], virL[hc], virR[hb], virR[hd]

				if err := lam.IrrepRead(hij); err != nil {
					return err
				}
				if err := g.IrrepRead(hij); err != nil {
					return err
				}

				cbd := make([][]float64, p.threads)
				cdb := make([][]float64, p.threads)
				for t := range cbd {
					cbd[t] = make([]float64, nc*nb*nd)
					if hb != hd {
						cdb[t] = make([]float64, nc*nd*nb)
					}
				}

				lamView := lam.ColSlab(hij, colTab.At(hcd, hc).Offset, nc*nd)
				p.parallelFor(na, func(worker, a int) {
					// g(A'C|BD) = b(A'C|Q) b(Q|BD)
					slab := blas64.General{Rows: nc, Cols: nb * nd, Stride: nb * nd, Data: cbd[worker]}
					blas64.Gemm(blas.Trans, blas.NoTrans, 1.0,
						bL.ColSlab(hac, vvL.At(hac, ha).Offset+a*nc, nc),
						bR.ColSlab(hbd, vvR.At(hbd, hb).Offset, nb*nd),
						0.0, slab)

					// The second contraction wants the slab addressed
					// as (C,D) rows against B columns. When hb == hd
					// the reinterpretation is free; otherwise the two
					// trailing indices swap places first.
					use := cbd[worker]
					if hb != hd {
						dst := cdb[worker]
						for c := 0; c < nc; c++ {
							src := cbd[worker][c*nb*nd:]
							row := dst[c*nd*nb:]
							for b := 0; b < nb; b++ {
								for d := 0; d < nd; d++ {
									row[d*nb+b] = src[b*nd+d]
								}
							}
						}
						use = dst
					}

					// G<IJ|A'B> += lambda<IJ|CD> g(A'C|DB)
					blas64.Gemm(blas.NoTrans, blas.NoTrans, 1.0,
						lamView,
						blas64.General{Rows: nc * nd, Cols: nb, Stride: nb, Data: use},
						1.0,
						g.ColSlab(hij, colTab.At(hab, ha).Offset+a*nb, nb))
				})

				if err := g.IrrepWrite(hij); err != nil {
					return err
				}
				g.IrrepClose(hij)
				lam.IrrepClose(hij)
			}
		}
	}
	p.logf("contracted %s into %s", lamName, gName)
	return nil
}
