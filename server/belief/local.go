package belief

import (
	"context"

	"rps-belief/server/agent"
	"rps-belief/server/strategy"
)

// Local is the in-process identifier. Each call replays the history it is
// given into a fresh Sequential, so it holds no per-run state and one value
// can serve concurrent runs.
type Local struct {
	StaticOnly bool // restrict the pool to static strategies
	FixedPoint strategy.FixedPoint
	TopK       int // pairs listed in reasoning text
}

func NewLocal(staticOnly bool, fp strategy.FixedPoint) *Local {
	return &Local{StaticOnly: staticOnly, FixedPoint: fp, TopK: 3}
}

func (l *Local) Name() string { return "local" }

func (l *Local) pool(cat *strategy.Catalog) []string {
	if l.StaticOnly {
		return cat.StaticCodes()
	}
	return cat.Codes()
}

func (l *Local) Identify(ctx context.Context, obs agent.Observation) (agent.Guess, error) {
	if err := ctx.Err(); err != nil {
		return agent.Guess{}, err
	}
	if len(obs.History) == 0 {
		return agent.Guess{}, agent.ErrNoGuess
	}
	seq, err := NewSequential(obs.Catalog, l.pool(obs.Catalog), l.FixedPoint)
	if err != nil {
		return agent.Guess{}, err
	}
	for _, r := range obs.History {
		seq.Observe(r)
	}
	best, p := seq.Guess()
	g := agent.Guess{Self: best.Self, Opp: best.Opp, Confidence: p}
	if obs.IncludeReasoning {
		g.Reasoning = seq.Describe(l.TopK)
	}
	return g, nil
}
