package df

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godct/block"
)

// naivePairTransform applies left^T . t . right to every pair block by
// explicit loops, the reference for the GEMM path.
func naivePairTransform(t *block.Blocked, left, right *block.Blocked, alphaW, betaW float64, into *block.Blocked) {
	nirrep := t.Nirrep()
	naux := t.RowDim(0)
	inPairs := block.MustPairTable(left.Rows(), right.Rows())
	outPairs := block.MustPairTable(left.Cols(), right.Cols())

	for h := 0; h < nirrep; h++ {
		for hm := 0; hm < nirrep; hm++ {
			hn := h ^ hm
			for p := 0; p < left.ColDim(hm); p++ {
				for r := 0; r < right.ColDim(hn); r++ {
					col := outPairs.RowIndex(h, hm, p, r)
					for q := 0; q < naux; q++ {
						v := 0.0
						for m := 0; m < left.RowDim(hm); m++ {
							for n := 0; n < right.RowDim(hn); n++ {
								v += left.At(hm, m, p) *
									t.At(h, q, inPairs.RowIndex(h, hm, m, n)) *
									right.At(hn, n, r)
							}
						}
						into.Set(h, q, col, alphaW*v+betaW*into.At(h, q, col))
					}
				}
			}
		}
	}
}

func TestPrimaryTransformMatchesNaive(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())

	o := f.p.orbs[alpha]
	got, err := f.p.PrimaryTransform(f.p.SOTensor(), o.Occ, o.Vir)
	require.NoError(t, err)

	outPairs := block.MustPairTable(o.Occ.Cols(), o.Vir.Cols())
	want := block.NewBlocked("want",
		block.Uniform(f.p.nirrep, f.p.naux), outPairs.Dims())
	naivePairTransform(f.p.SOTensor(), o.Occ, o.Vir, 1.0, 0.0, want)

	for h := 0; h < f.p.nirrep; h++ {
		for q := 0; q < f.p.naux; q++ {
			for c := 0; c < want.ColDim(h); c++ {
				assert.InDelta(t, want.At(h, q, c), got.At(h, q, c), 1e-10,
					"slab %d element (%d,%d)", h, q, c)
			}
		}
	}
}

func TestPrimaryTransformGEMMAccumulates(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())

	o := f.p.orbs[alpha]
	outPairs := block.MustPairTable(o.Occ.Cols(), o.Occ.Cols())
	rows := block.Uniform(f.p.nirrep, f.p.naux)

	seed, err := f.p.PrimaryTransform(f.p.SOTensor(), o.Occ, o.Occ)
	require.NoError(t, err)

	got := seed.Copy()
	require.NoError(t, f.p.PrimaryTransformGEMM(f.p.SOTensor(), o.Occ, o.Occ, got, 2.0, 1.0))

	want := block.NewBlocked("want", rows, outPairs.Dims())
	naivePairTransform(f.p.SOTensor(), o.Occ, o.Occ, 3.0, 0.0, want)

	for h := 0; h < f.p.nirrep; h++ {
		for q := 0; q < f.p.naux; q++ {
			for c := 0; c < want.ColDim(h); c++ {
				assert.InDelta(t, want.At(h, q, c), got.At(h, q, c), 1e-10)
			}
		}
	}
}

func TestTransformBRestrictedAliases(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())
	require.NoError(t, f.p.TransformB())

	assert.Same(t, f.p.bQij[alpha], f.p.bQij[beta])
	assert.Same(t, f.p.bQia[alpha], f.p.bQia[beta])
	assert.Same(t, f.p.bQab[alpha], f.p.bQab[beta])
	assert.Same(t, f.p.bQpq[alpha], f.p.bQpq[beta])
}

func TestTransformBUnrestrictedSeparates(t *testing.T) {
	f := newFixture(t, Unrestricted)
	require.NoError(t, f.p.BuildB())
	require.NoError(t, f.p.TransformB())

	assert.NotSame(t, f.p.bQia[alpha], f.p.bQia[beta])
	assert.Equal(t, f.p.orbs[beta].OccDim().Sum(), 2)
}

func TestPrimaryTransformRejectsMixedSymmetry(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())

	skew := block.NewBlockedSym("skew", f.soDim, f.soDim, 1)
	err := f.p.PrimaryTransformGEMM(f.p.SOTensor(), skew, skew, f.p.SOTensor(), 1.0, 0.0)
	assert.ErrorIs(t, err, ErrSymmetry)
}
