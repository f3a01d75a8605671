package df

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"godct/basis"
	"godct/block"
	"godct/dpd"
	"godct/eri"
	"godct/store"
)

// fixture wires a pipeline over synthetic integrals small enough that
// every contraction can be checked against explicit loops. The AO to SO
// map is a permutation, so symmetry blocking reorders but never mixes
// atomic functions.
type fixture struct {
	p     *Pipeline
	corr  *eri.FittedModel
	scf   *eri.FittedModel
	st    store.Store
	soDim block.Dimension
	cfg   Config
}

// aoIndex maps symmetry orbital (h, i) back to its atomic index under
// the fixture's permutation map.
func (f *fixture) aoIndex(h, i int) int {
	off := 0
	for g := 0; g < h; g++ {
		off += f.soDim[g]
	}
	return off + i
}

func permutationAOToSO(nao int, soDim block.Dimension) *block.Blocked {
	c := block.NewBlocked("AO->SO", block.Uniform(soDim.Nirrep(), nao), soDim)
	off := 0
	for h := 0; h < soDim.Nirrep(); h++ {
		for i := 0; i < soDim[h]; i++ {
			c.Set(h, off+i, i, 1.0)
		}
		off += soDim[h]
	}
	return c
}

func randomOrbitals(rng *rand.Rand, soDim, occ, vir block.Dimension) Orbitals {
	mo := occ.Add(vir)
	all := block.NewBlocked("C", soDim, mo)
	for h := 0; h < soDim.Nirrep(); h++ {
		for i := 0; i < soDim[h]; i++ {
			for p := 0; p < mo[h]; p++ {
				all.Set(h, i, p, rng.Float64()-0.5)
			}
		}
	}
	o := block.NewBlocked("C occ", soDim, occ)
	v := block.NewBlocked("C vir", soDim, vir)
	for h := 0; h < soDim.Nirrep(); h++ {
		for i := 0; i < soDim[h]; i++ {
			for p := 0; p < occ[h]; p++ {
				o.Set(h, i, p, all.At(h, i, p))
			}
			for a := 0; a < vir[h]; a++ {
				v.Set(h, i, a, all.At(h, i, occ[h]+a))
			}
		}
	}
	return Orbitals{Occ: o, Vir: v, All: all}
}

func newFixture(t *testing.T, ref Reference) *fixture {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	primary := basis.MustNew(2, 3)
	auxCorr := basis.MustNew(3, 2, 2)
	auxRef := basis.MustNew(2, 3)
	soDim := block.Dimension{3, 2}

	f := &fixture{
		corr:  eri.NewFittedModel(primary, auxCorr, 11),
		scf:   eri.NewFittedModel(primary, auxRef, 13),
		st:    store.NewMemory(),
		soDim: soDim,
	}

	cfg := Config{
		Reference: ref,
		Primary:   primary,
		CorrInts:  f.corr,
		RefInts:   f.scf,
		SODim:     soDim,
		AOToSO:    permutationAOToSO(primary.NBF(), soDim),
		Alpha:     randomOrbitals(rng, soDim, block.Dimension{2, 1}, block.Dimension{1, 1}),
		Store:     f.st,
		Threads:   3,
	}
	if ref == Unrestricted {
		cfg.Beta = randomOrbitals(rng, soDim, block.Dimension{1, 1}, block.Dimension{2, 1})
	}
	f.cfg = cfg

	p, err := New(cfg)
	require.NoError(t, err)
	f.p = p
	return f
}

// cao flattens one spin's orbital coefficients to the atomic basis using
// the fixture's permutation, columns ordered occupied then virtual per
// irrep, irreps ascending.
func (f *fixture) cao(s int) [][]float64 {
	orbs := f.p.orbs[s]
	mo := orbs.MODim()
	nao := f.p.nao
	nmo := mo.Sum()
	c := make([][]float64, nao)
	for i := range c {
		c[i] = make([]float64, nmo)
	}
	abs := 0
	for h := 0; h < f.soDim.Nirrep(); h++ {
		for p := 0; p < mo[h]; p++ {
			for i := 0; i < f.soDim[h]; i++ {
				c[f.aoIndex(h, i)][abs] = orbs.All.At(h, i, p)
			}
			abs++
		}
	}
	return c
}

// moAbs maps (h, relative index) into the flat ordering of cao. Virtual
// indices sit after the occupied ones of their irrep.
func (f *fixture) moAbs(s, h, rel int) int {
	mo := f.p.orbs[s].MODim()
	abs := 0
	for g := 0; g < h; g++ {
		abs += mo[g]
	}
	return abs + rel
}

func (f *fixture) occAbs(s, h, i int) int { return f.moAbs(s, h, i) }

func (f *fixture) virAbs(s, h, a int) int {
	return f.moAbs(s, h, f.p.orbs[s].OccDim()[h]+a)
}

// moERI transforms the model's exact four-center integrals into the
// orbital basis by quarter transforms, (pq|rs) with p,q from cLeft and
// r,s from cRight.
func moERI(m *eri.FittedModel, cLeft, cRight [][]float64) [][][][]float64 {
	nao := len(cLeft)
	nL, nR := len(cLeft[0]), len(cRight[0])

	t1 := make([][][][]float64, nL)
	for p := range t1 {
		t1[p] = alloc3(nao, nao, nao)
		for nu := 0; nu < nao; nu++ {
			for rho := 0; rho < nao; rho++ {
				for sig := 0; sig < nao; sig++ {
					v := 0.0
					for mu := 0; mu < nao; mu++ {
						v += cLeft[mu][p] * m.Conventional(mu, nu, rho, sig)
					}
					t1[p][nu][rho][sig] = v
				}
			}
		}
	}
	out := make([][][][]float64, nL)
	for p := 0; p < nL; p++ {
		out[p] = alloc3(nL, nR, nR)
		for q := 0; q < nL; q++ {
			for r := 0; r < nR; r++ {
				for s := 0; s < nR; s++ {
					v := 0.0
					for nu := 0; nu < nao; nu++ {
						cq := cLeft[nu][q]
						if cq == 0 {
							continue
						}
						for rho := 0; rho < nao; rho++ {
							cr := cRight[rho][r]
							if cr == 0 {
								continue
							}
							for sig := 0; sig < nao; sig++ {
								v += cq * cr * cRight[sig][s] * t1[p][nu][rho][sig]
							}
						}
					}
					out[p][q][r][s] = v
				}
			}
		}
	}
	return out
}

func alloc3(a, b, c int) [][][]float64 {
	out := make([][][]float64, a)
	for i := range out {
		out[i] = make([][]float64, b)
		for j := range out[i] {
			out[i][j] = make([]float64, c)
		}
	}
	return out
}

// fillBuf4 persists a buffer with deterministic pseudo-random values.
func fillBuf4(t *testing.T, file *dpd.File, name string, rows, cols *block.PairTable, seed int64) *dpd.Buf4 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	buf, err := dpd.NewBuf4(file, name, rows, cols)
	require.NoError(t, err)
	for h := 0; h < buf.Nirrep(); h++ {
		buf.IrrepInit(h)
		for i := 0; i < buf.RowDim(h); i++ {
			for j := 0; j < buf.ColDim(h); j++ {
				buf.Set(h, i, j, rng.Float64()-0.5)
			}
		}
		require.NoError(t, buf.IrrepWrite(h))
		buf.IrrepClose(h)
	}
	return buf
}
