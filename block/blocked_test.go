package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockedAllocation(t *testing.T) {
	b := NewBlocked("b", Dimension{5, 5}, Dimension{3, 0})
	require.NotNil(t, b.Block(0))
	assert.Nil(t, b.Block(1), "zero-extent slab stays nil")
	assert.Equal(t, 5, b.RowDim(1))
	assert.Equal(t, 0, b.ColDim(1))
}

func TestBlockedCopyAndAdd(t *testing.T) {
	a := NewBlocked("a", Dimension{2, 3}, Dimension{2, 3})
	a.Set(0, 0, 1, 2.5)
	a.Set(1, 2, 0, -1.0)

	c := a.Copy()
	c.Set(0, 0, 1, 9.0)
	assert.Equal(t, 2.5, a.At(0, 0, 1), "copy must not alias")

	require.NoError(t, a.AddFrom(c))
	assert.Equal(t, 11.5, a.At(0, 0, 1))
	assert.Equal(t, -2.0, a.At(1, 2, 0))

	o := NewBlocked("o", Dimension{2, 2}, Dimension{2, 2})
	assert.ErrorIs(t, a.AddFrom(o), ErrDimensionMismatch)
}

func TestBlockedSlabViewsAlias(t *testing.T) {
	b := NewBlocked("b", Dimension{2}, Dimension{6})
	for j := 0; j < 6; j++ {
		b.Set(0, 0, j, float64(j))
		b.Set(0, 1, j, float64(10+j))
	}

	v := b.ColSlab(0, 2, 3)
	assert.Equal(t, 2, v.Rows)
	assert.Equal(t, 3, v.Cols)
	assert.Equal(t, 6, v.Stride)
	assert.Equal(t, 2.0, v.Data[0])
	assert.Equal(t, 12.0, v.Data[v.Stride])

	r := b.RowSlab(0, 1, 2, 2, 2)
	assert.Equal(t, []float64{12, 13, 14, 15}, r.Data)
	r.Data[0] = 99
	assert.Equal(t, 99.0, b.At(0, 1, 2), "row slab aliases parent")
}

func TestBlockedTranspose(t *testing.T) {
	b := NewBlocked("b", Dimension{2, 1}, Dimension{3, 2})
	b.Set(0, 1, 2, 4.0)
	b.Set(1, 0, 1, -3.0)

	bt, err := b.Transpose()
	require.NoError(t, err)
	assert.Equal(t, 4.0, bt.At(0, 2, 1))
	assert.Equal(t, -3.0, bt.At(1, 1, 0))

	s := NewBlockedSym("s", Dimension{2, 2}, Dimension{2, 2}, 1)
	_, err = s.Transpose()
	assert.ErrorIs(t, err, ErrSymmetry)
}

func TestDimensionHelpers(t *testing.T) {
	d := Dimension{3, 0, 2}
	assert.Equal(t, 5, d.Sum())
	assert.Equal(t, 3, d.Max())
	assert.Equal(t, []int{0, 3, 3}, d.Offsets())
	assert.True(t, d.Equal(Dimension{3, 0, 2}))
	assert.False(t, d.Equal(Dimension{3, 0}))
	assert.Equal(t, Dimension{4, 4, 4}, Uniform(3, 4))
	assert.Equal(t, Dimension{4, 1, 3}, d.Add(Dimension{1, 1, 1}))
}
