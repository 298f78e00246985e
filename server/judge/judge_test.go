package judge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rps-belief/server/matchup"
	"rps-belief/server/strategy"
)

func TestToProb(t *testing.T) {
	p := ToProb(matchup.Result{Win: 50, Loss: 25, Draw: 25})
	assert.InDelta(t, 0.5, p.Win, 1e-12)
	assert.InDelta(t, 0.25, p.Loss, 1e-12)
	assert.InDelta(t, 0.25, p.Draw, 1e-12)

	z := ToProb(matchup.Result{})
	assert.Equal(t, Prob{Win: 1.0 / 3, Draw: 1.0 / 3, Loss: 1.0 / 3}, z)
}

func TestUnionZeroOnIdenticalMatchups(t *testing.T) {
	m := matchup.New(strategy.Default(), strategy.DefaultFixedPoint).Matrix()
	for _, r := range m.All() {
		assert.Equal(t, 0.0, Union(r, r), "%+v", r)
	}
	assert.Equal(t, 0.0, Union(matchup.Result{}, matchup.Result{}))
}

func TestCrossEntropyFormula(t *testing.T) {
	truth := matchup.Result{Win: 100}
	pred := matchup.Result{Win: 50, Loss: 50}
	assert.InDelta(t, -math.Log(0.5+Epsilon), CrossEntropy(truth, pred), 1e-12)
	// excess equals raw when the truth is degenerate
	assert.InDelta(t, CrossEntropy(truth, pred), ExcessCrossEntropy(truth, pred), 1e-9)

	// log(0) is guarded
	ce := CrossEntropy(truth, matchup.Result{Loss: 100})
	assert.False(t, math.IsInf(ce, 0))
	assert.InDelta(t, -math.Log(Epsilon), ce, 1e-6)
}

func TestBrierAndEV(t *testing.T) {
	truth := matchup.Result{Win: 100}
	pred := matchup.Result{Loss: 100}
	assert.InDelta(t, 2.0, Brier(truth, pred), 1e-12)
	assert.InDelta(t, 1.0, EV(truth), 1e-12)
	assert.InDelta(t, -1.0, EV(pred), 1e-12)
	assert.InDelta(t, 4.0, EVLoss(truth, pred), 1e-12)
}

func TestComputeMatchesUnion(t *testing.T) {
	truth := matchup.Result{Win: 37.5, Loss: 25, Draw: 37.5}
	pred := matchup.Result{Win: 20, Loss: 50, Draw: 30}
	l := Compute(truth, pred)
	assert.Equal(t, Union(truth, pred), l.Union)
	assert.InDelta(t, (l.CEExcess+l.Brier+l.EV)/3, l.Union, 1e-15)
	assert.Greater(t, l.Union, 0.0)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.5, Normalize(3, []float64{3, 3, 3}))
	assert.Equal(t, 0.5, Normalize(1, nil))
	assert.Equal(t, 0.0, Normalize(1, []float64{1, 2, 3}))
	assert.Equal(t, 1.0, Normalize(3, []float64{1, 2, 3}))
	assert.Equal(t, 0.5, Normalize(2, []float64{3, 1, 2}))
	assert.Equal(t, 0.25, NormalizeEV(0.25))
}

func TestEvaluate(t *testing.T) {
	m := matchup.New(strategy.Default(), strategy.DefaultFixedPoint).Matrix()

	same, err := Evaluate(m, "H", "B", "H", "B")
	require.NoError(t, err)
	assert.Equal(t, 0.0, same.Losses.Union)
	assert.Equal(t, 0.0, same.Normalized.Union, "a perfect guess is the minimum of the reference set")

	ev, err := Evaluate(m, "B", "A", "A", "B")
	require.NoError(t, err)
	assert.Equal(t, matchup.Result{Win: 100}, ev.True)
	assert.Equal(t, matchup.Result{Loss: 100}, ev.Pred)
	assert.InDelta(t, 4.0, ev.Normalized.EV, 1e-12)
	assert.GreaterOrEqual(t, ev.Normalized.Union, 0.0)
	assert.LessOrEqual(t, ev.Normalized.Union, 1.0)

	_, err = Evaluate(m, "B", "?", "A", "B")
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
}

func TestEvaluateMatrix(t *testing.T) {
	m := matchup.New(strategy.Default(), strategy.DefaultFixedPoint).Matrix()
	pred, _ := m.Get("D", "D")
	grid := EvaluateMatrix(m, pred)
	require.Len(t, grid, 19)
	for _, a := range m.Codes {
		for _, b := range m.Codes {
			c := grid[a][b]
			assert.GreaterOrEqual(t, c.Normalized.Union, 0.0)
			assert.LessOrEqual(t, c.Normalized.Union, 1.0+1e-12)
		}
	}
	assert.Equal(t, 0.0, grid["D"]["D"].Losses.Union)
}
