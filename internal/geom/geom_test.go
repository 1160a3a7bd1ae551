package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineInverse(t *testing.T) {
	tr := Translation(10, -4).Mul(Scaling(2.5))
	inv, err := tr.Inv()
	require.NoError(t, err)

	p := MakePoint(3, 7)
	q := inv.MulPoint(tr.MulPoint(p))
	assert.InDelta(t, p.X, q.X, 1e-9)
	assert.InDelta(t, p.Y, q.Y, 1e-9)

	_, err = Scaling(0).Inv()
	assert.Error(t, err)
}

func TestBox(t *testing.T) {
	b := MakeBox(10, 20, 100, 50)
	assert.True(t, b.Contains(MakePoint(10, 20)))
	assert.True(t, b.Contains(MakePoint(110, 70)))
	assert.False(t, b.Contains(MakePoint(111, 70)))
	assert.Equal(t, MakePoint(60, 45), b.Center())
	assert.Equal(t, MakeBox(15, 25, 100, 50), b.Translate(MakePoint(5, 5)))
}
