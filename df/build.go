package df

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"godct/block"
)

// Tensor names used by the persistence contract. The gradient code loads
// them back by these exact names.
const (
	nameMetricCorr = "J^-1/2 Correlation"
	nameMetricRef  = "J^-1/2 Reference"
	nameTensorCorr = "B(Q|mn) Correlation"
	nameTensorRef  = "B(Q|mn) Reference"
	nameQVector    = "b(Q|SR)gamma<R|S>"
)

// BuildB runs the metric and generator stages for both fitting bases and
// keeps the SO-basis tensors on the pipeline. The two bases share nothing
// but the store, so they build concurrently.
func (p *Pipeline) BuildB() error {
	p.SizingReport()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		if p.jm12, err = p.FormMetric(p.corr, nameMetricCorr); err != nil {
			return err
		}
		bAO, err := p.BuildAOTensor(p.corr, p.jm12, nameTensorCorr)
		if err != nil {
			return err
		}
		p.bSO, err = p.AOToSO(bAO)
		return err
	})
	g.Go(func() error {
		var err error
		if p.jm12SCF, err = p.FormMetric(p.scf, nameMetricRef); err != nil {
			return err
		}
		bAOscf, err := p.BuildAOTensor(p.scf, p.jm12SCF, nameTensorRef)
		if err != nil {
			return err
		}
		p.bSOSCF, err = p.AOToSO(bAOscf)
		return err
	})
	return g.Wait()
}

// TauInput carries one spin's occupied and virtual tau blocks, each a
// square per-irrep matrix over that subspace.
type TauInput struct {
	Occ *block.Blocked
	Vir *block.Blocked
}

// assembleTau embeds the occupied and virtual tau blocks of one spin
// into a full orbital-square matrix: occupied indices first, virtuals
// after them within each irrep.
func (p *Pipeline) assembleTau(s int, in TauInput) *block.Blocked {
	occ := p.orbs[s].OccDim()
	mo := p.orbs[s].MODim()
	tau := block.NewBlocked("MO basis Tau", mo, mo)
	for h := 0; h < p.nirrep; h++ {
		for i := 0; i < occ[h]; i++ {
			for j := 0; j < occ[h]; j++ {
				tau.Set(h, i, j, in.Occ.At(h, i, j))
			}
		}
		for a := occ[h]; a < mo[h]; a++ {
			for b := occ[h]; b < mo[h]; b++ {
				tau.Set(h, a, b, in.Vir.At(h, a-occ[h], b-occ[h]))
			}
		}
	}
	return tau
}

// BuildTensors runs the contraction stage: the amplitude contraction
// into the tau intermediates, assembly of the orbital-basis tau and
// gamma matrices, and the [Gbar*Gamma] build. kappa is the reference
// one-density per spin; beta inputs are ignored under Restricted.
func (p *Pipeline) BuildTensors(tauA, tauB TauInput, kappaA, kappaB *block.Blocked) error {
	if err := p.BuildGbarLambda(); err != nil {
		return err
	}

	p.moTau[alpha] = p.assembleTau(alpha, tauA)
	kappa := [2]*block.Blocked{kappaA, kappaB}
	if p.ref == Restricted {
		p.moTau[beta] = p.moTau[alpha]
		kappa[beta] = kappaA
	} else {
		p.moTau[beta] = p.assembleTau(beta, tauB)
	}

	for _, s := range p.spins() {
		if kappa[s] == nil {
			return fmt.Errorf("df: BuildTensors needs the reference one-density")
		}
		gamma := p.moTau[s].Copy()
		gamma.SetName("MO-basis Gamma")
		if err := gamma.AddFrom(kappa[s]); err != nil {
			return err
		}
		p.moGamma[s] = gamma
	}
	if p.ref == Restricted {
		p.moGamma[beta] = p.moGamma[alpha]
	}

	return p.BuildGbarGamma()
}
