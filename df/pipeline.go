package df

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"godct/basis"
	"godct/block"
	"godct/dpd"
	"godct/eri"
	"godct/store"
)

// Reference selects the spin treatment of the run.
type Reference int

const (
	// Restricted shares one set of spatial orbitals between spins.
	Restricted Reference = iota
	// Unrestricted carries separate alpha and beta orbitals.
	Unrestricted
)

func (r Reference) String() string {
	if r == Restricted {
		return "restricted"
	}
	return "unrestricted"
}

// Orbitals holds one spin's coefficient subsets over the symmetry
// orbitals: each block h maps SO index (rows) to the subset's orbitals
// (columns).
type Orbitals struct {
	Occ *block.Blocked
	Vir *block.Blocked
	All *block.Blocked
}

// OccDim returns the per-irrep occupied counts.
func (o Orbitals) OccDim() block.Dimension { return o.Occ.Cols() }

// VirDim returns the per-irrep virtual counts.
func (o Orbitals) VirDim() block.Dimension { return o.Vir.Cols() }

// MODim returns the per-irrep orbital counts.
func (o Orbitals) MODim() block.Dimension { return o.All.Cols() }

// Config assembles the pipeline's collaborators and spaces.
type Config struct {
	Reference Reference
	Primary   *basis.Set

	// CorrInts serves the correlation fitting basis, RefInts the
	// reference (JK) fitting basis. They may be the same factory.
	CorrInts eri.Factory
	RefInts  eri.Factory

	// SODim gives symmetry orbitals per irrep; AOToSO block h is the
	// nao x SODim[h] coefficient slab of the symmetrization.
	SODim  block.Dimension
	AOToSO *block.Blocked

	// Beta is ignored under a Restricted reference.
	Alpha Orbitals
	Beta  Orbitals

	Store   store.Store
	Threads int
	Log     *log.Logger

	// MemoryMB bounds the advisory sizing report. Zero means unknown.
	MemoryMB float64
}

// Pipeline drives the density-fitting stages and owns their in-memory
// products.
type Pipeline struct {
	ref     Reference
	primary *basis.Set
	corr    eri.Factory
	scf     eri.Factory

	nirrep  int
	nao     int
	naux    int
	nauxSCF int
	soDim   block.Dimension
	aoToSO  *block.Blocked

	orbs [2]Orbitals

	store    store.Store
	file     *dpd.File
	threads  int
	log      *log.Logger
	memoryMB float64

	// Stage products. The SO-basis b tensors persist across stages;
	// the MO subsets are rebuilt by TransformB.
	jm12    *block.Blocked
	jm12SCF *block.Blocked
	bSO     *block.Blocked
	bSOSCF  *block.Blocked

	bQij [2]*block.Blocked
	bQia [2]*block.Blocked
	bQab [2]*block.Blocked
	bQpq [2]*block.Blocked

	moTau       [2]*block.Blocked
	moGamma     [2]*block.Blocked
	moGbarGamma [2]*block.Blocked
}

// spin indexes the per-spin tensor arrays.
const (
	alpha = 0
	beta  = 1
)

// New validates the configuration and returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Primary == nil || cfg.CorrInts == nil || cfg.RefInts == nil || cfg.Store == nil {
		return nil, fmt.Errorf("df: config is missing a collaborator")
	}
	if cfg.AOToSO == nil {
		return nil, fmt.Errorf("df: config is missing the AO to SO coefficients")
	}
	nirrep := cfg.SODim.Nirrep()
	if cfg.AOToSO.Nirrep() != nirrep || cfg.Alpha.Occ.Nirrep() != nirrep {
		return nil, fmt.Errorf("%w: coefficient operands", block.ErrIrrepMismatch)
	}
	if !cfg.AOToSO.Cols().Equal(cfg.SODim) {
		return nil, fmt.Errorf("%w: AO to SO columns %v, SO dimension %v",
			block.ErrDimensionMismatch, cfg.AOToSO.Cols(), cfg.SODim)
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(-1)
	}
	p := &Pipeline{
		ref:      cfg.Reference,
		primary:  cfg.Primary,
		corr:     cfg.CorrInts,
		scf:      cfg.RefInts,
		nirrep:   nirrep,
		nao:      cfg.Primary.NBF(),
		naux:     cfg.CorrInts.Auxiliary().NBF(),
		nauxSCF:  cfg.RefInts.Auxiliary().NBF(),
		soDim:    append(block.Dimension(nil), cfg.SODim...),
		aoToSO:   cfg.AOToSO,
		store:    cfg.Store,
		file:     dpd.NewFile(cfg.Store),
		threads:  threads,
		log:      cfg.Log,
		memoryMB: cfg.MemoryMB,
	}
	p.orbs[alpha] = cfg.Alpha
	if cfg.Reference == Restricted {
		p.orbs[beta] = cfg.Alpha
	} else {
		p.orbs[beta] = cfg.Beta
	}
	return p, nil
}

// File returns the four-index buffer file bound to the pipeline store.
func (p *Pipeline) File() *dpd.File { return p.file }

// SOTensor returns the SO-basis correlation b tensor, nil before BuildB.
func (p *Pipeline) SOTensor() *block.Blocked { return p.bSO }

// RefSOTensor returns the SO-basis reference b tensor, nil before BuildB.
func (p *Pipeline) RefSOTensor() *block.Blocked { return p.bSOSCF }

// MOTensorAlpha returns the alpha full-square orbital b tensor, nil
// before TransformB.
func (p *Pipeline) MOTensorAlpha() *block.Blocked { return p.bQpq[alpha] }

// MOTensorBeta returns the beta full-square orbital b tensor. Under a
// Restricted reference it aliases the alpha tensor.
func (p *Pipeline) MOTensorBeta() *block.Blocked { return p.bQpq[beta] }

// GbarGammaAlpha returns the alpha [Gbar*Gamma] matrix, nil before
// BuildGbarGamma.
func (p *Pipeline) GbarGammaAlpha() *block.Blocked { return p.moGbarGamma[alpha] }

// GbarGammaBeta returns the beta [Gbar*Gamma] matrix. Under a Restricted
// reference it aliases the alpha matrix.
func (p *Pipeline) GbarGammaBeta() *block.Blocked { return p.moGbarGamma[beta] }

func (p *Pipeline) logf(format string, args ...any) {
	if p.log != nil {
		p.log.Printf(format, args...)
	}
}

// parallelFor runs fn(worker, i) for i in [0,n) across the pipeline's
// worker count. Work items are claimed dynamically off a shared counter;
// fn receives the worker id for scratch selection and must write only
// regions owned by its item.
func (p *Pipeline) parallelFor(n int, fn func(worker, i int)) {
	workers := p.threads
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(0, i)
		}
		return
	}
	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				fn(worker, i)
			}
		}(w)
	}
	wg.Wait()
}
