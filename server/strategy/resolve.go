package strategy

import (
	"fmt"

	"rps-belief/server/engine"
)

// FixedPoint parameterises the damped iteration used when both sides of a
// pair are reactive.
//
// The iteration runs exactly Steps times and never checks convergence. It is
// a bounded approximation of the mutual-dependency fixed point: the result
// after Steps iterations is returned as-is whether or not it has settled.
type FixedPoint struct {
	Steps   int     `json:"steps"`
	Damping float64 `json:"damping"`
}

var DefaultFixedPoint = FixedPoint{Steps: 50, Damping: 0.7}

// normalized falls back to defaults for out-of-range parameters.
func (fp FixedPoint) normalized() FixedPoint {
	if fp.Steps < 0 {
		fp.Steps = 0
	}
	if fp.Damping <= 0 || fp.Damping > 1 {
		fp.Damping = DefaultFixedPoint.Damping
	}
	return fp
}

// Iterate resolves two mutually dependent strategies. Both sides start
// uniform; each step computes both candidates from the other side's current
// distribution and blends next = α·candidate + (1-α)·current. The procedure
// is deterministic and symmetric: Iterate(b, a) returns the swapped result of
// Iterate(a, b).
func (fp FixedPoint) Iterate(a, b Def) (engine.Distribution, engine.Distribution) {
	fp = fp.normalized()
	s1, s2 := engine.Uniform(), engine.Uniform()
	for i := 0; i < fp.Steps; i++ {
		next1 := a.Resolve(s2)
		next2 := b.Resolve(s1)
		s1 = next1.Blend(s1, fp.Damping)
		s2 = next2.Blend(s2, fp.Damping)
	}
	return s1, s2
}

// ResolvePair returns the distributions k1 and k2 play against each other:
//
//	static/static     both fixed distributions
//	static/reactive   the reactive side resolved once against the static one
//	reactive/reactive damped fixed-point iteration
func (c *Catalog) ResolvePair(k1, k2 string, fp FixedPoint) (engine.Distribution, engine.Distribution, error) {
	a, ok := c.defs[k1]
	if !ok {
		return engine.Distribution{}, engine.Distribution{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, k1)
	}
	b, ok := c.defs[k2]
	if !ok {
		return engine.Distribution{}, engine.Distribution{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, k2)
	}
	d1, d2 := ResolveDefs(a, b, fp)
	return d1, d2, nil
}

// ResolveDefs is ResolvePair for definitions already looked up.
func ResolveDefs(a, b Def, fp FixedPoint) (engine.Distribution, engine.Distribution) {
	switch {
	case a.IsStatic() && b.IsStatic():
		return a.Dist, b.Dist
	case a.IsStatic():
		return a.Dist, b.Resolve(a.Dist)
	case b.IsStatic():
		return a.Resolve(b.Dist), b.Dist
	default:
		return fp.Iterate(a, b)
	}
}
