package df

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"godct/block"
	"godct/dpd"
	"godct/store"
)

// Contract343 folds a four-index buffer onto the pair index of a
// three-index tensor: result = alpha * b . G + beta * result, or
// b . G^T when transpose is set. The auxiliary rows of b and result
// must agree; the contracted pair dimension is checked per slab.
func (p *Pipeline) Contract343(b *block.Blocked, g *dpd.Buf4, result *block.Blocked, transpose bool, alphaW, betaW float64) error {
	if !b.Rows().Equal(result.Rows()) {
		return fmt.Errorf("%w: b tensor and result disagree about auxiliary rows", ErrShape)
	}
	for h := 0; h < p.nirrep; h++ {
		if b.ColDim(h) == 0 || result.ColDim(h) == 0 {
			continue
		}
		n, k := g.ColDim(h), g.RowDim(h)
		tB := blas.NoTrans
		if transpose {
			n, k = g.RowDim(h), g.ColDim(h)
			tB = blas.Trans
		}
		if b.ColDim(h) != k || result.ColDim(h) != n {
			return fmt.Errorf("%w: contract343 slab %d: b %d x %d against buffer %d x %d",
				ErrShape, h, b.ColDim(h), result.ColDim(h), k, n)
		}
		if err := g.IrrepRead(h); err != nil {
			return err
		}
		blas64.Gemm(blas.NoTrans, tB, alphaW, b.General(h), g.General(h), betaW, result.General(h))
		g.IrrepClose(h)
	}
	return nil
}

// Contract233 applies the transposed metric to the auxiliary index of a
// three-index tensor, r(Q|pq) = sum_P J_PQ b(P|pq).
func (p *Pipeline) Contract233(j, b *block.Blocked) (*block.Blocked, error) {
	if j.Nirrep() != 1 {
		return nil, fmt.Errorf("%w: metric must carry a single slab", ErrShape)
	}
	result := block.NewBlocked(b.Name(), b.Rows(), b.Cols())
	for h := 0; h < b.Nirrep(); h++ {
		if b.ColDim(h) == 0 {
			continue
		}
		if j.RowDim(0) != b.RowDim(h) {
			return nil, fmt.Errorf("%w: metric is %d, tensor slab %d carries %d rows",
				ErrShape, j.RowDim(0), h, b.RowDim(h))
		}
		blas64.Gemm(blas.Trans, blas.NoTrans, 1.0, j.General(0), b.General(h), 0.0, result.General(h))
	}
	return result, nil
}

// Contract123 expands an auxiliary vector against a block-diagonal
// one-density into a three-index tensor, (Q|pq) = (Q) gamma(p|q). Only
// the totally symmetric slab of the result receives values; gamma has
// no off-diagonal blocks to scatter elsewhere.
func (p *Pipeline) Contract123(q, g *block.Blocked) (*block.Blocked, error) {
	if q.Nirrep() != 1 {
		return nil, fmt.Errorf("%w: auxiliary vector must carry a single slab", ErrShape)
	}
	if g.Symmetry() != 0 {
		return nil, fmt.Errorf("%w: one-density", ErrSymmetry)
	}
	naux := q.ColDim(0)
	tab, err := block.NewPairTable(g.Rows(), g.Cols())
	if err != nil {
		return nil, err
	}
	result := block.NewBlocked("Result", block.Uniform(g.Nirrep(), naux), tab.Dims())
	for h := 0; h < g.Nirrep(); h++ {
		if g.RowDim(h) == 0 || g.ColDim(h) == 0 {
			continue
		}
		blas64.Ger(1.0, q.VecView(0), g.VecView(h),
			result.ColSlab(0, tab.At(0, h).Offset, g.RowDim(h)*g.ColDim(h)))
	}
	return result, nil
}

// pdm names the persisted three-center density slices.
func pdmName(tag string) string { return "3-Center PDM B: " + tag }

func (p *Pipeline) newPDM(tag string, like *block.Blocked) *block.Blocked {
	return block.NewBlocked(pdmName(tag), like.Rows(), like.Cols())
}

func (p *Pipeline) loadPDM(tag string, like *block.Blocked) (*block.Blocked, error) {
	t := p.newPDM(tag, like)
	if err := p.store.Load(t.Name(), store.SubBlocks, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Pipeline) savePDM(t *block.Blocked) error {
	return p.store.Save(t.Name(), store.SubBlocks, t)
}

func (p *Pipeline) buf4(name string, rows, cols *block.PairTable) (*dpd.Buf4, error) {
	return dpd.NewBuf4(p.file, name, rows, cols)
}

// ThreeIdxCumulantDensity contracts the cumulant blocks against the
// correlation b tensors into the three-center correlation density. The
// two-density separates as gamma^p_r gamma^q_s - gamma^p_s gamma^q_r
// + lambda^pq_rs; this function handles the cumulant part, walking every
// spin sector and accumulating the per-subset slices through the store
// before back-transforming the total to the atomic basis.
func (p *Pipeline) ThreeIdxCumulantDensity() error {
	ooA, ooB := p.tabOO(alpha), p.tabOO(beta)
	vvA, vvB := p.tabVV(alpha), p.tabVV(beta)
	ovA, ovB := p.tabOV(alpha), p.tabOV(beta)
	ooAB := block.MustPairTable(p.orbs[alpha].OccDim(), p.orbs[beta].OccDim())

	// Occupied-only sectors. The antisymmetrized <oo|oo> intermediates
	// arrive in bra-ket order and are resorted to chemist pair order.
	iOOOO, err := p.buf4("I <OO|OO>", ooA, ooA)
	if err != nil {
		return err
	}
	lamOOOO, err := iOOOO.Sort("Lambda (OO|OO)", dpd.PRQS)
	if err != nil {
		return err
	}
	resIJ := p.newPDM("IJ", p.bQij[alpha])
	// gIJ = b(Q|KL) L^IK_JL
	if err := p.Contract343(p.bQij[alpha], lamOOOO, resIJ, false, 1.0, 0.0); err != nil {
		return err
	}

	iOoOo, err := p.buf4("I <Oo|Oo>", ooAB, ooAB)
	if err != nil {
		return err
	}
	lamooOO, err := iOoOo.Sort("Lambda (oo|OO)", dpd.QSPR)
	if err != nil {
		return err
	}
	// gIJ += b(Q|ij) L^iI_jJ
	if err := p.Contract343(p.bQij[beta], lamooOO, resIJ, false, 1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resIJ); err != nil {
		return err
	}
	resij := p.newPDM("ij", p.bQij[beta])
	// gij = b(Q|IJ) L^Ii_Jj
	if err := p.Contract343(p.bQij[alpha], lamooOO, resij, true, 1.0, 0.0); err != nil {
		return err
	}

	ioooo, err := p.buf4("I <oo|oo>", ooB, ooB)
	if err != nil {
		return err
	}
	lamoooo, err := ioooo.Sort("Lambda (oo|oo)", dpd.PRQS)
	if err != nil {
		return err
	}
	// gij += b(Q|kl) L^ki_lj
	if err := p.Contract343(p.bQij[beta], lamoooo, resij, false, 1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resij); err != nil {
		return err
	}

	// Same-spin occupied-virtual sectors, alpha then beta.
	kOOVV, err := p.buf4("K (OO|VV)", ooA, vvA)
	if err != nil {
		return err
	}
	resAB := p.newPDM("AB", p.bQab[alpha])
	// gAB = b(Q|IJ) L^IA_JB, with K = -L
	if err := p.Contract343(p.bQij[alpha], kOOVV, resAB, false, -1.0, 0.0); err != nil {
		return err
	}
	if err := p.savePDM(resAB); err != nil {
		return err
	}
	if resIJ, err = p.loadPDM("IJ", p.bQij[alpha]); err != nil {
		return err
	}
	// gIJ += b(Q|AB) L^AI_BJ
	if err := p.Contract343(p.bQab[alpha], kOOVV, resIJ, true, -1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resIJ); err != nil {
		return err
	}
	kOVOV, err := p.buf4("K (OV|OV)", ovA, ovA)
	if err != nil {
		return err
	}
	resIA := p.newPDM("IA", p.bQia[alpha])
	// gIA = b(Q|JB) K(IA|JB)
	if err := p.Contract343(p.bQia[alpha], kOVOV, resIA, true, 1.0, 0.0); err != nil {
		return err
	}
	if err := p.savePDM(resIA); err != nil {
		return err
	}

	koovv, err := p.buf4("K (oo|vv)", ooB, vvB)
	if err != nil {
		return err
	}
	resab := p.newPDM("ab", p.bQab[beta])
	// gab = b(Q|ij) L^ia_jb
	if err := p.Contract343(p.bQij[beta], koovv, resab, false, -1.0, 0.0); err != nil {
		return err
	}
	if err := p.savePDM(resab); err != nil {
		return err
	}
	if resij, err = p.loadPDM("ij", p.bQij[beta]); err != nil {
		return err
	}
	// gij += b(Q|ab) L^ia_jb
	if err := p.Contract343(p.bQab[beta], koovv, resij, true, -1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resij); err != nil {
		return err
	}
	kovov, err := p.buf4("K (ov|ov)", ovB, ovB)
	if err != nil {
		return err
	}
	resia := p.newPDM("ia", p.bQia[beta])
	// gia = b(Q|jb) K(ia|jb)
	if err := p.Contract343(p.bQia[beta], kovov, resia, true, 1.0, 0.0); err != nil {
		return err
	}
	if err := p.savePDM(resia); err != nil {
		return err
	}

	// Opposite-spin occupied-occupied against virtual-virtual sectors.
	kOOvv, err := p.buf4("K (OO|vv)", ooA, vvB)
	if err != nil {
		return err
	}
	if resab, err = p.loadPDM("ab", p.bQab[beta]); err != nil {
		return err
	}
	// gab += b(Q|JI) L^Ia_Jb
	if err := p.Contract343(p.bQij[alpha], kOOvv, resab, false, -1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resab); err != nil {
		return err
	}
	if resIJ, err = p.loadPDM("IJ", p.bQij[alpha]); err != nil {
		return err
	}
	// gIJ += b(Q|ab) L^aI_bJ
	if err := p.Contract343(p.bQab[beta], kOOvv, resIJ, true, -1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resIJ); err != nil {
		return err
	}

	kooVV, err := p.buf4("K (oo|VV)", ooB, vvA)
	if err != nil {
		return err
	}
	if resAB, err = p.loadPDM("AB", p.bQab[alpha]); err != nil {
		return err
	}
	// gAB += b(Q|ji) L^iA_jB
	if err := p.Contract343(p.bQij[beta], kooVV, resAB, false, -1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resAB); err != nil {
		return err
	}
	if resij, err = p.loadPDM("ij", p.bQij[beta]); err != nil {
		return err
	}
	// gij += b(Q|AB) L^Ai_Bj
	if err := p.Contract343(p.bQab[alpha], kooVV, resij, true, -1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resij); err != nil {
		return err
	}

	// Mixed-spin occupied-virtual sector.
	kOVov, err := p.buf4("K (OV|ov)", ovA, ovB)
	if err != nil {
		return err
	}
	if resia, err = p.loadPDM("ia", p.bQia[beta]); err != nil {
		return err
	}
	// gia += b(Q|IA) K(IA|ia)
	if err := p.Contract343(p.bQia[alpha], kOVov, resia, false, 1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resia); err != nil {
		return err
	}
	if resIA, err = p.loadPDM("IA", p.bQia[alpha]); err != nil {
		return err
	}
	// gIA += b(Q|ia) K(IA|ia)
	if err := p.Contract343(p.bQia[beta], kOVov, resIA, true, 1.0, 1.0); err != nil {
		return err
	}

	// Occupied against virtual cumulant blocks in pair order.
	lamOVOV, err := p.buf4("Lambda (OV|OV)", ovA, ovA)
	if err != nil {
		return err
	}
	// gIA += b(Q|JB) L^IJ_AB
	if err := p.Contract343(p.bQia[alpha], lamOVOV, resIA, false, 1.0, 1.0); err != nil {
		return err
	}
	lamOVov, err := p.buf4("Lambda (OV|ov)", ovA, ovB)
	if err != nil {
		return err
	}
	// gIA += b(Q|jb) L^Ij_Ab
	if err := p.Contract343(p.bQia[beta], lamOVov, resIA, true, 1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resIA); err != nil {
		return err
	}
	if resia, err = p.loadPDM("ia", p.bQia[beta]); err != nil {
		return err
	}
	// gia += b(Q|IA) L^Ij_Ab
	if err := p.Contract343(p.bQia[alpha], lamOVov, resia, false, 1.0, 1.0); err != nil {
		return err
	}
	lamovov, err := p.buf4("Lambda (ov|ov)", ovB, ovB)
	if err != nil {
		return err
	}
	// gia += b(Q|jb) L^ij_ab
	if err := p.Contract343(p.bQia[beta], lamovov, resia, false, 1.0, 1.0); err != nil {
		return err
	}
	if err := p.savePDM(resia); err != nil {
		return err
	}

	// Apply the metric and back-transform every subset slice to the SO
	// then AO pair basis.
	j := block.NewBlocked(nameMetricCorr, block.Dimension{p.naux}, block.Dimension{p.naux})
	if err := p.store.Load(j.Name(), store.LowerTriangle, j); err != nil {
		return err
	}

	soSum, err := p.cumulantHelper(j, "IJ", p.bQij[alpha], p.orbs[alpha].Occ, p.orbs[alpha].Occ)
	if err != nil {
		return err
	}
	for _, part := range []struct {
		tag         string
		like        *block.Blocked
		left, right *block.Blocked
	}{
		{"ij", p.bQij[beta], p.orbs[beta].Occ, p.orbs[beta].Occ},
		{"AB", p.bQab[alpha], p.orbs[alpha].Vir, p.orbs[alpha].Vir},
		{"ab", p.bQab[beta], p.orbs[beta].Vir, p.orbs[beta].Vir},
		{"IA", p.bQia[alpha], p.orbs[alpha].Occ, p.orbs[alpha].Vir},
		{"ia", p.bQia[beta], p.orbs[beta].Occ, p.orbs[beta].Vir},
	} {
		so, err := p.cumulantHelper(j, part.tag, part.like, part.left, part.right)
		if err != nil {
			return err
		}
		if err := soSum.AddFrom(so); err != nil {
			return err
		}
	}

	ao, err := p.SOToAO(soSum)
	if err != nil {
		return err
	}
	ao.SetName("3-Center Correlation Density")
	if err := p.store.Save(ao.Name(), store.Full, ao); err != nil {
		return err
	}
	p.logf("assembled %s", ao.Name())
	return nil
}

// cumulantHelper loads one persisted density slice, applies the metric,
// and back-transforms the orbital pair index to the SO basis.
func (p *Pipeline) cumulantHelper(j *block.Blocked, tag string, like *block.Blocked, left, right *block.Blocked) (*block.Blocked, error) {
	t, err := p.loadPDM(tag, like)
	if err != nil {
		return nil, err
	}
	folded, err := p.Contract233(j, t)
	if err != nil {
		return nil, err
	}
	lt, err := left.Transpose()
	if err != nil {
		return nil, err
	}
	rt, err := right.Transpose()
	if err != nil {
		return nil, err
	}
	return p.PrimaryTransform(folded, lt, rt)
}

// ThreeIdxSeparableDensity assembles the reference part of the
// three-center density from the saved auxiliary projection vector and
// the reference-basis tensors.
func (p *Pipeline) ThreeIdxSeparableDensity() error {
	qvec := block.NewBlocked(nameQVector, block.Dimension{1}, block.Dimension{p.nauxSCF})
	if err := p.store.Load(qvec.Name(), store.SubBlocks, qvec); err != nil {
		return err
	}
	j := block.NewBlocked(nameMetricRef, block.Dimension{p.nauxSCF}, block.Dimension{p.nauxSCF})
	if err := p.store.Load(j.Name(), store.LowerTriangle, j); err != nil {
		return err
	}

	soSum, err := p.separableHelper(qvec, j, p.moGamma[alpha], p.orbs[alpha].All)
	if err != nil {
		return err
	}
	soBeta, err := p.separableHelper(qvec, j, p.moGamma[beta], p.orbs[beta].All)
	if err != nil {
		return err
	}
	if err := soSum.AddFrom(soBeta); err != nil {
		return err
	}

	ao, err := p.SOToAO(soSum)
	if err != nil {
		return err
	}
	ao.SetName("3-Center Reference Density")
	if err := p.store.Save(ao.Name(), store.Full, ao); err != nil {
		return err
	}
	p.logf("assembled %s", ao.Name())
	return nil
}

// separableHelper builds one spin's Coulomb and exchange contributions
// in the orbital basis, applies the metric, and back-transforms to SO.
func (p *Pipeline) separableHelper(qvec, j, rdm, c *block.Blocked) (*block.Blocked, error) {
	// Coulomb-like term: (Q) gamma^p_q.
	temp, err := p.Contract123(qvec, rdm)
	if err != nil {
		return nil, err
	}
	// Exchange-like term through half-dressed coefficients, which stand
	// in for orbital-basis b integrals in the pair transform below.
	dressed := block.NewBlocked("C gamma", c.Rows(), rdm.Cols())
	for h := 0; h < p.nirrep; h++ {
		if c.RowDim(h) == 0 || rdm.ColDim(h) == 0 {
			continue
		}
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1.0, c.General(h), rdm.General(h), 0.0, dressed.General(h))
	}
	if err := p.PrimaryTransformGEMM(p.bSOSCF, dressed, dressed, temp, -1.0, 1.0); err != nil {
		return nil, err
	}
	folded, err := p.Contract233(j, temp)
	if err != nil {
		return nil, err
	}
	ct, err := c.Transpose()
	if err != nil {
		return nil, err
	}
	return p.PrimaryTransform(folded, ct, ct)
}

// ConstructMetricDensity contracts a persisted three-center density
// against its fitted tensor into the metric density the gradient code
// needs: G = (J^-1/2 b) g^T. basisType is "Correlation" or "Reference".
func (p *Pipeline) ConstructMetricDensity(basisType string) error {
	naux := p.naux
	if basisType != "Correlation" {
		naux = p.nauxSCF
	}
	b := block.NewBlocked("B(Q|mn) "+basisType, block.Dimension{naux}, block.Dimension{p.nao * p.nao})
	if err := p.store.Load(b.Name(), store.SubBlocks, b); err != nil {
		return err
	}
	j := block.NewBlocked("J^-1/2 "+basisType, block.Dimension{naux}, block.Dimension{naux})
	if err := p.store.Load(j.Name(), store.LowerTriangle, j); err != nil {
		return err
	}
	c, err := p.Contract233(j, b)
	if err != nil {
		return err
	}
	g := block.NewBlocked("3-Center "+basisType+" Density", block.Dimension{naux}, block.Dimension{p.nao * p.nao})
	if err := p.store.Load(g.Name(), store.Full, g); err != nil {
		return err
	}
	out := block.NewBlocked("Metric "+basisType+" Density", block.Dimension{naux}, block.Dimension{naux})
	blas64.Gemm(blas.NoTrans, blas.Trans, 1.0, c.General(0), g.General(0), 0.0, out.General(0))
	return p.store.Save(out.Name(), store.LowerTriangle, out)
}
