package eri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godct/basis"
)

func TestFittedDeterministic(t *testing.T) {
	primary := basis.MustNew(3, 2, 1)
	aux := basis.MustNew(4, 4)

	a := NewFittedModel(primary, aux, 7)
	b := NewFittedModel(primary, aux, 7)
	ca, cb := a.New(), b.New()

	assert.Equal(t, append([]float64(nil), ca.TwoCenter(0, 1)...),
		append([]float64(nil), cb.TwoCenter(0, 1)...))
	assert.Equal(t, append([]float64(nil), ca.ThreeCenter(1, 0, 2)...),
		append([]float64(nil), cb.ThreeCenter(1, 0, 2)...))
}

func TestFittedMetricSymmetricPD(t *testing.T) {
	primary := basis.MustNew(2, 2)
	aux := basis.MustNew(3, 2)
	m := NewFittedModel(primary, aux, 1)
	c := m.New()

	for p := 0; p < aux.NShell(); p++ {
		for q := 0; q < aux.NShell(); q++ {
			pq := append([]float64(nil), c.TwoCenter(p, q)...)
			qp := append([]float64(nil), c.TwoCenter(q, p)...)
			sp, sq := aux.Shell(p), aux.Shell(q)
			for i := 0; i < sp.NFunc; i++ {
				for j := 0; j < sq.NFunc; j++ {
					assert.Equal(t, pq[i*sq.NFunc+j], qp[j*sp.NFunc+i])
				}
			}
		}
	}

	// Diagonal dominance from the +I shift keeps eigenvalues above the
	// fitting cutoff.
	diag := c.TwoCenter(0, 0)
	require.Greater(t, diag[0], 1.0)
}

func TestFittedSymmetricInPair(t *testing.T) {
	primary := basis.MustNew(2, 3)
	aux := basis.MustNew(5)
	m := NewFittedModel(primary, aux, 3)
	c := m.New()

	mn := append([]float64(nil), c.ThreeCenter(0, 0, 1)...)
	nm := append([]float64(nil), c.ThreeCenter(0, 1, 0)...)
	s0, s1 := primary.Shell(0), primary.Shell(1)
	for p := 0; p < 5; p++ {
		for i := 0; i < s0.NFunc; i++ {
			for j := 0; j < s1.NFunc; j++ {
				assert.Equal(t,
					mn[p*s0.NFunc*s1.NFunc+i*s1.NFunc+j],
					nm[p*s1.NFunc*s0.NFunc+j*s0.NFunc+i])
			}
		}
	}
}

func TestConventionalPairSymmetry(t *testing.T) {
	primary := basis.MustNew(3)
	aux := basis.MustNew(4)
	m := NewFittedModel(primary, aux, 11)

	assert.InDelta(t, m.Conventional(0, 1, 2, 2), m.Conventional(1, 0, 2, 2), 1e-15)
	assert.InDelta(t, m.Conventional(0, 1, 2, 2), m.Conventional(2, 2, 0, 1), 1e-15)
}
