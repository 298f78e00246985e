// Package belief is the local statistical identifier: a sequential posterior
// over (self, opp) strategy pairs built from observed moves.
package belief

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"rps-belief/server/engine"
	"rps-belief/server/strategy"
)

// Clip is the floor applied to move probabilities before taking logs.
const Clip = 1e-12

// Pair is one joint hypothesis: self plays Self while the opponent plays Opp.
type Pair struct {
	Self string `json:"self"`
	Opp  string `json:"opp"`
}

func (p Pair) String() string { return p.Self + "/" + p.Opp }

// Belief is one posterior entry.
type Belief struct {
	Pair Pair    `json:"pair"`
	P    float64 `json:"p"`
}

type candidate struct {
	pair      Pair
	self, opp engine.Distribution // resolved against each other
	ll        float64
}

// Sequential accumulates log-likelihoods for every pair drawn from a pool of
// codes. Each hypothesis resolves its two sides against each other, so a
// reactive candidate is scored against the opponent the hypothesis implies
// rather than the true one. Not safe for concurrent use.
type Sequential struct {
	cands  []candidate
	rounds int
}

// NewSequential builds the hypothesis set pool × pool.
func NewSequential(cat *strategy.Catalog, pool []string, fp strategy.FixedPoint) (*Sequential, error) {
	if len(pool) == 0 {
		return nil, errors.New("belief: empty candidate pool")
	}
	if err := cat.Validate(pool...); err != nil {
		return nil, err
	}
	s := &Sequential{cands: make([]candidate, 0, len(pool)*len(pool))}
	for _, a := range pool {
		da, _ := cat.Get(a)
		for _, b := range pool {
			db, _ := cat.Get(b)
			d1, d2 := strategy.ResolveDefs(da, db, fp)
			s.cands = append(s.cands, candidate{pair: Pair{Self: a, Opp: b}, self: d1, opp: d2})
		}
	}
	return s, nil
}

func logClip(p float64) float64 {
	if !(p > Clip) {
		p = Clip
	}
	return math.Log(p)
}

// Observe folds one round into every candidate's log-likelihood.
func (s *Sequential) Observe(r engine.Round) {
	for i := range s.cands {
		c := &s.cands[i]
		c.ll += logClip(c.self.P(r.Self)) + logClip(c.opp.P(r.Opp))
	}
	s.rounds++
}

func (s *Sequential) Rounds() int { return s.rounds }

// Posterior is the softmax of the log-likelihoods, in hypothesis order. It is
// recomputed on every call.
func (s *Sequential) Posterior() []Belief {
	maxLL := math.Inf(-1)
	for _, c := range s.cands {
		maxLL = max(maxLL, c.ll)
	}
	out := make([]Belief, len(s.cands))
	z := 0.0
	for i, c := range s.cands {
		w := math.Exp(c.ll - maxLL)
		out[i] = Belief{Pair: c.pair, P: w}
		z += w
	}
	for i := range out {
		out[i].P /= z
	}
	return out
}

// Guess returns the arg-max pair and its posterior probability. Ties go to
// the earliest hypothesis.
func (s *Sequential) Guess() (Pair, float64) {
	post := s.Posterior()
	best := 0
	for i := range post {
		if post[i].P > post[best].P {
			best = i
		}
	}
	return post[best].Pair, post[best].P
}

// Top returns the k most probable pairs, best first.
func (s *Sequential) Top(k int) []Belief {
	post := s.Posterior()
	sort.SliceStable(post, func(i, j int) bool { return post[i].P > post[j].P })
	if k > 0 && k < len(post) {
		post = post[:k]
	}
	return post
}

// Marginals sums the joint posterior per side.
func (s *Sequential) Marginals() (self, opp map[string]float64) {
	self, opp = map[string]float64{}, map[string]float64{}
	for _, b := range s.Posterior() {
		self[b.Pair.Self] += b.P
		opp[b.Pair.Opp] += b.P
	}
	return self, opp
}

// Describe renders the top k pairs as one line of text.
func (s *Sequential) Describe(k int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "posterior after %d rounds:", s.rounds)
	for i, b := range s.Top(k) {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, " %s %.3f", b.Pair, b.P)
	}
	return sb.String()
}
