package df

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"

	"godct/block"
	"godct/store"
)

func assembleMetric(f *fixture) *mat.Dense {
	aux := f.corr.Auxiliary()
	naux := aux.NBF()
	comp := f.corr.New()
	j := mat.NewDense(naux, naux, nil)
	for P := 0; P < aux.NShell(); P++ {
		for Q := 0; Q < aux.NShell(); Q++ {
			sp, sq := aux.Shell(P), aux.Shell(Q)
			buf := comp.TwoCenter(P, Q)
			for a := 0; a < sp.NFunc; a++ {
				for b := 0; b < sq.NFunc; b++ {
					j.Set(sp.Index+a, sq.Index+b, buf[a*sq.NFunc+b])
				}
			}
		}
	}
	return j
}

func TestFormMetricInverseSquareRoot(t *testing.T) {
	f := newFixture(t, Restricted)
	jm12, err := f.p.FormMetric(f.corr, "J test")
	require.NoError(t, err)

	naux := f.corr.Auxiliary().NBF()
	require.Equal(t, naux, jm12.RowDim(0))

	// Symmetric by construction.
	for i := 0; i < naux; i++ {
		for j := 0; j < i; j++ {
			assert.InDelta(t, jm12.At(0, i, j), jm12.At(0, j, i), 1e-12)
		}
	}

	// The model metric is strictly positive definite, so no eigenvalue is
	// dropped and J^-1/2 J J^-1/2 recovers the identity.
	j := assembleMetric(f)
	var prod mat.Dense
	prod.Mul(jm12.Block(0), j)
	prod.Mul(&prod, jm12.Block(0))
	for i := 0; i < naux; i++ {
		for k := 0; k < naux; k++ {
			want := 0.0
			if i == k {
				want = 1.0
			}
			assert.InDelta(t, want, prod.At(i, k), 1e-9, "element (%d,%d)", i, k)
		}
	}
}

func TestFormMetricPersists(t *testing.T) {
	f := newFixture(t, Restricted)
	jm12, err := f.p.FormMetric(f.corr, "J persisted")
	require.NoError(t, err)

	naux := f.corr.Auxiliary().NBF()
	got := block.NewBlocked("J persisted", block.Dimension{naux}, block.Dimension{naux})
	require.NoError(t, f.st.Load("J persisted", store.LowerTriangle, got))
	for i := 0; i < naux; i++ {
		for j := 0; j <= i; j++ {
			assert.Equal(t, jm12.At(0, i, j), got.At(0, i, j))
		}
	}
}
