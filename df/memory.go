package df

import "godct/block"

// SizingReport logs the expected memory footprint of the pipeline's
// largest stage. The estimate counts the resident tensors of the
// correlation build: the metric, the AO and SO b tensors, the orbital
// subsets, and the per-worker virtual-virtual slabs of the cumulant
// contraction. The report is advisory; a run over budget pages four-index
// buffers through the store and proceeds.
func (p *Pipeline) SizingReport() {
	nso := p.soDim.Sum()
	nQ := float64(p.naux)

	occA := p.orbs[alpha].OccDim()
	virA := p.orbs[alpha].VirDim()
	occB := p.orbs[beta].OccDim()
	virB := p.orbs[beta].VirDim()

	maxvir := virA.Max()
	if v := virB.Max(); v > maxvir {
		maxvir = v
	}

	doubles := nQ * nQ                       // J^-1/2
	doubles += 2 * nQ * float64(nso*nso)     // AO and SO b tensors
	doubles += nQ * float64(nso*nso)         // reference-basis b tensor
	doubles += 2 * float64(maxvir*maxvir*maxvir) // g(A'C|BD) slab and permute scratch

	subset := func(occ, vir block.Dimension) float64 {
		no, nv := float64(occ.Sum()), float64(vir.Sum())
		return nQ * (no*no + 2*no*nv + nv*nv)
	}
	doubles += subset(occA, virA)
	if p.ref == Unrestricted {
		doubles += subset(occB, virB)
	}

	requiredMB := doubles * 8.0 / (1024.0 * 1024.0)
	if p.memoryMB > 0 && requiredMB > p.memoryMB {
		p.logf("sizing: needs about %.0f MB, budget is %.0f MB; four-index buffers stay on the store",
			requiredMB, p.memoryMB)
		return
	}
	p.logf("sizing: about %.0f MB for the in-memory tensors", requiredMB)
}
