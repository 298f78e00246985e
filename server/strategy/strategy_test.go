package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rps-belief/server/engine"
)

func TestRulePermutations(t *testing.T) {
	opp := engine.Distribution{Rock: 0.2, Paper: 0.3, Scissors: 0.5}

	assert.Equal(t, engine.Distribution{Rock: 0.5, Paper: 0.2, Scissors: 0.3}, CounterWinning.Apply(opp))
	assert.Equal(t, engine.Distribution{Rock: 0.3, Paper: 0.5, Scissors: 0.2}, CounterLosing.Apply(opp))
	assert.Equal(t, opp, Mirror.Apply(opp))
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 19, c.Len())
	assert.Equal(t, "A", c.Codes()[0])
	assert.Len(t, c.StaticCodes(), 16)
	for _, d := range c.Defs() {
		if d.IsStatic() {
			assert.True(t, d.Dist.Valid(), "static %s", d.Code)
		} else {
			assert.True(t, d.Rule.Valid(), "reactive %s", d.Code)
		}
	}
}

func TestResolveStaticIgnoresOpponent(t *testing.T) {
	c := Default()
	got, err := c.Resolve("B", engine.Pure(engine.Paper))
	require.NoError(t, err)
	assert.Equal(t, engine.Pure(engine.Rock), got)
}

func TestResolveReactive(t *testing.T) {
	c := Default()
	// opponent favours scissors: X favours rock, Y favours paper, Z favours scissors
	opp := engine.Pure(engine.Scissors)
	x, err := c.Resolve("X", opp)
	require.NoError(t, err)
	assert.Equal(t, engine.Pure(engine.Rock), x)
	y, _ := c.Resolve("Y", opp)
	assert.Equal(t, engine.Pure(engine.Paper), y)
	z, _ := c.Resolve("Z", opp)
	assert.Equal(t, engine.Pure(engine.Scissors), z)
}

func TestResolveUnknown(t *testing.T) {
	c := Default()
	_, err := c.Resolve("?", engine.Uniform())
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
	_, _, err = c.ResolvePair("A", "nope", DefaultFixedPoint)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
	assert.True(t, errors.Is(c.Validate("A", "Q"), ErrUnknownStrategy))
	assert.NoError(t, c.Validate("A", "Z"))
}

func TestResolvePairStaticReactive(t *testing.T) {
	c := Default()
	d1, d2, err := c.ResolvePair("B", "X", DefaultFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, engine.Pure(engine.Rock), d1)
	assert.Equal(t, engine.Pure(engine.Paper), d2, "X counters rock with paper")

	e1, e2, err := c.ResolvePair("X", "B", DefaultFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, d2, e1)
	assert.Equal(t, d1, e2)
}

func TestMirrorFixedPointEqual(t *testing.T) {
	c := Default()
	d1, d2, err := c.ResolvePair("Z", "Z", DefaultFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.True(t, d1.Valid())
}

func TestFixedPointSymmetricAndBounded(t *testing.T) {
	c := Default()
	for _, a := range []string{"X", "Y", "Z"} {
		for _, b := range []string{"X", "Y", "Z"} {
			d1, d2, err := c.ResolvePair(a, b, DefaultFixedPoint)
			require.NoError(t, err)
			e1, e2, _ := c.ResolvePair(b, a, DefaultFixedPoint)
			assert.Equal(t, d1, e2, "%s/%s", a, b)
			assert.Equal(t, d2, e1, "%s/%s", a, b)
			assert.True(t, d1.Valid() && d2.Valid(), "%s/%s", a, b)
		}
	}
}

func TestFixedPointParameters(t *testing.T) {
	x, _ := Default().Get("X")
	z, _ := Default().Get("Z")

	// zero steps leaves the uniform start untouched
	d1, d2 := FixedPoint{Steps: 0, Damping: 0.7}.Iterate(x, z)
	assert.Equal(t, engine.Uniform(), d1)
	assert.Equal(t, engine.Uniform(), d2)

	// out-of-range damping falls back to the default instead of failing
	d1, d2 = FixedPoint{Steps: 3, Damping: 7}.Iterate(x, z)
	assert.True(t, d1.Valid())
	assert.True(t, d2.Valid())
}

func TestParseCatalog(t *testing.T) {
	src := []byte(`
strategies:
  - {code: R, name: Pure Rock, rock: 1}
  - {code: S, name: Pure Scissors, scissors: 1}
  - {code: M, rule: mirror}
`)
	c, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"R", "S", "M"}, c.Codes())
	m, ok := c.Get("M")
	require.True(t, ok)
	assert.Equal(t, KindReactive, m.Kind)
	assert.Equal(t, "M", m.Name)
}

func TestParseCatalogRejects(t *testing.T) {
	cases := map[string]string{
		"bad sum":     "strategies:\n  - {code: A, rock: 0.5}\n",
		"dup code":    "strategies:\n  - {code: A, rock: 1}\n  - {code: A, paper: 1}\n",
		"bad rule":    "strategies:\n  - {code: A, rule: sideways}\n",
		"rule+weight": "strategies:\n  - {code: A, rule: mirror, rock: 1}\n",
		"empty":       "strategies: []\n",
		"nothing":     "strategies:\n  - {code: A}\n",
	}
	for name, src := range cases {
		_, err := Parse([]byte(src))
		assert.Error(t, err, name)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategies:\n  - {code: A, paper: 1}\n"), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 19, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
