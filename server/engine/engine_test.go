package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeatsCycle(t *testing.T) {
	assert.Equal(t, 1, Beats(Rock, Scissors))
	assert.Equal(t, 1, Beats(Paper, Rock))
	assert.Equal(t, 1, Beats(Scissors, Paper))
	assert.Equal(t, -1, Beats(Scissors, Rock))
	assert.Equal(t, -1, Beats(Rock, Paper))
	assert.Equal(t, -1, Beats(Paper, Scissors))
	for _, m := range Moves {
		assert.Equal(t, 0, Beats(m, m))
		assert.Equal(t, Draw, Resolve(m, m))
	}
}

func TestSampleMovePure(t *testing.T) {
	rng := NewRand(7)
	for _, m := range Moves {
		for i := 0; i < 50; i++ {
			require.Equal(t, m, SampleMove(rng, Pure(m)))
		}
	}
}

func TestSampleMoveFrequencies(t *testing.T) {
	rng := NewRand(42)
	d := Distribution{Rock: 0.5, Paper: 0.25, Scissors: 0.25}
	counts := map[Move]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[SampleMove(rng, d)]++
	}
	for _, m := range Moves {
		got := float64(counts[m]) / n
		assert.InDelta(t, d.P(m), got, 0.02, "move %s", m)
	}
}

func TestSampleMoveDegenerate(t *testing.T) {
	rng := NewRand(1)
	// no mass at all must not panic
	for i := 0; i < 10; i++ {
		m := SampleMove(rng, Distribution{})
		assert.Contains(t, Moves[:], m)
	}
	// negative weights are ignored
	for i := 0; i < 10; i++ {
		assert.Equal(t, Paper, SampleMove(rng, Distribution{Rock: -1, Paper: 1}))
	}
}

func TestPlayRoundOutcome(t *testing.T) {
	rng := NewRand(3)
	r := PlayRound(rng, Pure(Rock), Pure(Scissors))
	assert.Equal(t, Round{Self: Rock, Opp: Scissors, Outcome: Win}, r)
	r = PlayRound(rng, Pure(Rock), Pure(Paper))
	assert.Equal(t, Loss, r.Outcome)
}

func TestDistributionValid(t *testing.T) {
	assert.True(t, Uniform().Valid())
	assert.True(t, Pure(Paper).Valid())
	assert.False(t, Distribution{Rock: 0.5}.Valid())
	assert.False(t, Distribution{Rock: 1.5, Paper: -0.5}.Valid())
	assert.False(t, Distribution{Rock: math.NaN(), Paper: 1}.Valid())
}

func TestMoveJSON(t *testing.T) {
	b, err := json.Marshal(Round{Self: Rock, Opp: Scissors, Outcome: Win})
	require.NoError(t, err)
	assert.JSONEq(t, `{"move_self":"rock","move_opp":"scissors","outcome":"win"}`, string(b))

	var r Round
	require.NoError(t, json.Unmarshal([]byte(`{"move_self":"P","move_opp":"paper","outcome":"draw"}`), &r))
	assert.Equal(t, Paper, r.Self)
	assert.Equal(t, Paper, r.Opp)
}

func TestSeedStreamDeterministic(t *testing.T) {
	a, b := NewSeedStream(99), NewSeedStream(99)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}
