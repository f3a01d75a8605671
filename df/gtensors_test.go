package df

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godct/dpd"
)

func TestFormGOVOVRestricted(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())
	require.NoError(t, f.p.TransformB())
	require.NoError(t, f.p.FormGOVOV())

	cA := f.cao(alpha)
	mo4 := moERI(f.corr, cA, cA)

	ov := f.p.tabOV(alpha)
	buf, err := dpd.NewBuf4(f.p.File(), "MO Ints (OV|OV)", ov, ov)
	require.NoError(t, err)

	occ := f.p.orbs[alpha].OccDim()
	vir := f.p.orbs[alpha].VirDim()
	for h := 0; h < f.p.nirrep; h++ {
		if buf.RowDim(h) == 0 || buf.ColDim(h) == 0 {
			continue
		}
		require.NoError(t, buf.IrrepRead(h))
		for hi := 0; hi < f.p.nirrep; hi++ {
			ha := h ^ hi
			for i := 0; i < occ[hi]; i++ {
				for a := 0; a < vir[ha]; a++ {
					row := ov.RowIndex(h, hi, i, a)
					for hj := 0; hj < f.p.nirrep; hj++ {
						hb := h ^ hj
						for j := 0; j < occ[hj]; j++ {
							for b := 0; b < vir[hb]; b++ {
								col := ov.RowIndex(h, hj, j, b)
								want := mo4[f.occAbs(alpha, hi, i)][f.virAbs(alpha, ha, a)][f.occAbs(alpha, hj, j)][f.virAbs(alpha, hb, b)]
								assert.InDelta(t, want, buf.At(h, row, col), 1e-8,
									"(ia|jb) slab %d row %d col %d", h, row, col)
							}
						}
					}
				}
			}
		}
		buf.IrrepClose(h)
	}
}

func TestFormGVOOOResortsRows(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())
	require.NoError(t, f.p.TransformB())
	require.NoError(t, f.p.FormGVOOO())

	cA := f.cao(alpha)
	mo4 := moERI(f.corr, cA, cA)

	vo := f.p.tabVO(alpha)
	oo := f.p.tabOO(alpha)
	buf, err := dpd.NewBuf4(f.p.File(), "MO Ints (VO|OO)", vo, oo)
	require.NoError(t, err)

	occ := f.p.orbs[alpha].OccDim()
	vir := f.p.orbs[alpha].VirDim()
	for h := 0; h < f.p.nirrep; h++ {
		if buf.RowDim(h) == 0 || buf.ColDim(h) == 0 {
			continue
		}
		require.NoError(t, buf.IrrepRead(h))
		for ha := 0; ha < f.p.nirrep; ha++ {
			hi := h ^ ha
			for a := 0; a < vir[ha]; a++ {
				for i := 0; i < occ[hi]; i++ {
					row := vo.RowIndex(h, ha, a, i)
					for hj := 0; hj < f.p.nirrep; hj++ {
						hk := h ^ hj
						for j := 0; j < occ[hj]; j++ {
							for k := 0; k < occ[hk]; k++ {
								col := oo.RowIndex(h, hj, j, k)
								want := mo4[f.virAbs(alpha, ha, a)][f.occAbs(alpha, hi, i)][f.occAbs(alpha, hj, j)][f.occAbs(alpha, hk, k)]
								assert.InDelta(t, want, buf.At(h, row, col), 1e-8)
							}
						}
					}
				}
			}
		}
		buf.IrrepClose(h)
	}
}

func TestFormGOVOVCrossSpin(t *testing.T) {
	f := newFixture(t, Unrestricted)
	require.NoError(t, f.p.BuildB())
	require.NoError(t, f.p.TransformB())
	require.NoError(t, f.p.FormGOVOV())

	mo4 := moERI(f.corr, f.cao(alpha), f.cao(beta))

	ovA := f.p.tabOV(alpha)
	ovB := f.p.tabOV(beta)
	buf, err := dpd.NewBuf4(f.p.File(), "MO Ints (OV|ov)", ovA, ovB)
	require.NoError(t, err)

	occA, virA := f.p.orbs[alpha].OccDim(), f.p.orbs[alpha].VirDim()
	occB, virB := f.p.orbs[beta].OccDim(), f.p.orbs[beta].VirDim()
	for h := 0; h < f.p.nirrep; h++ {
		if buf.RowDim(h) == 0 || buf.ColDim(h) == 0 {
			continue
		}
		require.NoError(t, buf.IrrepRead(h))
		for hi := 0; hi < f.p.nirrep; hi++ {
			ha := h ^ hi
			for i := 0; i < occA[hi]; i++ {
				for a := 0; a < virA[ha]; a++ {
					row := ovA.RowIndex(h, hi, i, a)
					for hj := 0; hj < f.p.nirrep; hj++ {
						hb := h ^ hj
						for j := 0; j < occB[hj]; j++ {
							for b := 0; b < virB[hb]; b++ {
								col := ovB.RowIndex(h, hj, j, b)
								want := mo4[f.occAbs(alpha, hi, i)][f.virAbs(alpha, ha, a)][f.occAbs(beta, hj, j)][f.virAbs(beta, hb, b)]
								assert.InDelta(t, want, buf.At(h, row, col), 1e-8)
							}
						}
					}
				}
			}
		}
		buf.IrrepClose(h)
	}
}

func TestFormGTensorsRestrictedSkipsCrossSpin(t *testing.T) {
	f := newFixture(t, Restricted)
	require.NoError(t, f.p.BuildB())
	require.NoError(t, f.p.TransformB())
	require.NoError(t, f.p.FormGTensors())

	ov := f.p.tabOV(alpha)
	buf, err := dpd.NewBuf4(f.p.File(), "MO Ints (OV|ov)", ov, ov)
	require.NoError(t, err)
	assert.Error(t, buf.IrrepRead(0))
}
