package matchup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rps-belief/server/engine"
	"rps-belief/server/strategy"
)

func TestPureRockBeatsPureScissors(t *testing.T) {
	cat, err := strategy.NewCatalog(
		strategy.Static("PureRock", "Pure Rock", engine.Pure(engine.Rock)),
		strategy.Static("PureScissors", "Pure Scissors", engine.Pure(engine.Scissors)),
	)
	require.NoError(t, err)
	r, err := New(cat, strategy.DefaultFixedPoint).Compute("PureRock", "PureScissors")
	require.NoError(t, err)
	assert.Equal(t, Result{Win: 100, Loss: 0, Draw: 0}, r)
}

func TestMatrixSumsAndSymmetry(t *testing.T) {
	calc := New(strategy.Default(), strategy.DefaultFixedPoint)
	m := calc.Matrix()
	require.Len(t, m.All(), 19*19)
	for _, a := range m.Codes {
		for _, b := range m.Codes {
			ab, ok := m.Get(a, b)
			require.True(t, ok)
			ba, _ := m.Get(b, a)
			assert.InDelta(t, 100, ab.Total(), 1e-6, "%s vs %s", a, b)
			assert.Equal(t, ab.Win, ba.Loss, "%s vs %s", a, b)
			assert.Equal(t, ab.Draw, ba.Draw, "%s vs %s", a, b)
		}
	}
}

func TestComputeMatchesMatrix(t *testing.T) {
	calc := New(strategy.Default(), strategy.DefaultFixedPoint)
	m := calc.Matrix()
	for _, pair := range [][2]string{{"A", "B"}, {"H", "X"}, {"Y", "K"}, {"X", "Z"}} {
		r, err := calc.Compute(pair[0], pair[1])
		require.NoError(t, err)
		cell, _ := m.Get(pair[0], pair[1])
		assert.Equal(t, cell, r)
	}
}

func TestComputeReactiveAgainstStatic(t *testing.T) {
	calc := New(strategy.Default(), strategy.DefaultFixedPoint)
	// X against pure rock plays pure paper and always wins
	r, err := calc.Compute("X", "B")
	require.NoError(t, err)
	assert.Equal(t, Result{Win: 100}, r)
	// Y against pure rock plays pure scissors and always loses
	r, err = calc.Compute("Y", "B")
	require.NoError(t, err)
	assert.Equal(t, Result{Loss: 100}, r)
	// Z mirrors and always draws
	r, err = calc.Compute("Z", "B")
	require.NoError(t, err)
	assert.Equal(t, Result{Draw: 100}, r)
}

func TestComputeUnknown(t *testing.T) {
	_, err := New(strategy.Default(), strategy.DefaultFixedPoint).Compute("A", "?")
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
	_, ok := Matrix{}.Get("A", "B")
	assert.False(t, ok)
}
