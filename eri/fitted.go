package eri

import (
	"math/rand"

	"godct/basis"
)

// FittedModel is a synthetic integral source. It draws a coefficient
// tensor c(mn,R), symmetric in mn, and a positive definite metric J, then
// defines
//
//	(P|Q)  = J_PQ
//	(P|mn) = sum_R c_mn,R J_RP
//
// so the fitted representation reproduces Conventional exactly. The same
// seed always yields the same integrals.
type FittedModel struct {
	primary *basis.Set
	aux     *basis.Set
	coef    []float64 // nbf*nbf rows, naux cols
	metric  []float64 // naux x naux
}

var _ Factory = (*FittedModel)(nil)

// NewFittedModel builds the model tensors from seed.
func NewFittedModel(primary, aux *basis.Set, seed int64) *FittedModel {
	rng := rand.New(rand.NewSource(seed))
	nbf, naux := primary.NBF(), aux.NBF()

	m := &FittedModel{
		primary: primary,
		aux:     aux,
		coef:    make([]float64, nbf*nbf*naux),
		metric:  make([]float64, naux*naux),
	}

	for mu := 0; mu < nbf; mu++ {
		for nu := 0; nu <= mu; nu++ {
			for r := 0; r < naux; r++ {
				v := 0.2 * (rng.Float64() - 0.5)
				m.coef[(mu*nbf+nu)*naux+r] = v
				m.coef[(nu*nbf+mu)*naux+r] = v
			}
		}
	}

	// J = A A^T + I keeps the metric symmetric and safely positive
	// definite, so the inverse square root never truncates.
	a := make([]float64, naux*naux)
	for i := range a {
		a[i] = rng.Float64() - 0.5
	}
	for p := 0; p < naux; p++ {
		for q := 0; q <= p; q++ {
			v := 0.0
			for k := 0; k < naux; k++ {
				v += a[p*naux+k] * a[q*naux+k]
			}
			if p == q {
				v++
			}
			m.metric[p*naux+q] = v
			m.metric[q*naux+p] = v
		}
	}
	return m
}

// Primary returns the primary basis.
func (m *FittedModel) Primary() *basis.Set { return m.primary }

// Auxiliary returns the fitting basis.
func (m *FittedModel) Auxiliary() *basis.Set { return m.aux }

// New returns a Computer with its own scratch buffer.
func (m *FittedModel) New() Computer {
	maxAux := m.aux.MaxNFunc()
	maxPri := m.primary.MaxNFunc()
	n := maxAux * maxAux
	if k := maxAux * maxPri * maxPri; k > n {
		n = k
	}
	return &fittedComputer{model: m, buf: make([]float64, n)}
}

// Conventional returns the four-center integral (mn|rs) implied by the
// model, sum_PQ c_mn,P J_PQ c_rs,Q. Reference values for tests.
func (m *FittedModel) Conventional(mu, nu, rho, sig int) float64 {
	nbf, naux := m.primary.NBF(), m.aux.NBF()
	left := m.coef[(mu*nbf+nu)*naux:][:naux]
	right := m.coef[(rho*nbf+sig)*naux:][:naux]
	res := 0.0
	for p := 0; p < naux; p++ {
		jc := 0.0
		for q := 0; q < naux; q++ {
			jc += m.metric[p*naux+q] * right[q]
		}
		res += left[p] * jc
	}
	return res
}

type fittedComputer struct {
	model *FittedModel
	buf   []float64
}

func (c *fittedComputer) TwoCenter(P, Q int) []float64 {
	m := c.model
	naux := m.aux.NBF()
	sp, sq := m.aux.Shell(P), m.aux.Shell(Q)
	out := c.buf[:sp.NFunc*sq.NFunc]
	for p := 0; p < sp.NFunc; p++ {
		row := m.metric[(sp.Index+p)*naux:]
		for q := 0; q < sq.NFunc; q++ {
			out[p*sq.NFunc+q] = row[sq.Index+q]
		}
	}
	return out
}

func (c *fittedComputer) ThreeCenter(P, M, N int) []float64 {
	m := c.model
	nbf, naux := m.primary.NBF(), m.aux.NBF()
	sp := m.aux.Shell(P)
	sm := m.primary.Shell(M)
	sn := m.primary.Shell(N)
	out := c.buf[:sp.NFunc*sm.NFunc*sn.NFunc]
	for p := 0; p < sp.NFunc; p++ {
		pa := sp.Index + p
		for mu := 0; mu < sm.NFunc; mu++ {
			ma := sm.Index + mu
			for nu := 0; nu < sn.NFunc; nu++ {
				na := sn.Index + nu
				cmn := m.coef[(ma*nbf+na)*naux:][:naux]
				v := 0.0
				for r := 0; r < naux; r++ {
					v += cmn[r] * m.metric[r*naux+pa]
				}
				out[p*sm.NFunc*sn.NFunc+mu*sn.NFunc+nu] = v
			}
		}
	}
	return out
}
