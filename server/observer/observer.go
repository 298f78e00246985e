// Package observer runs a match between two true strategies and asks an
// identifier, round by round, which pair it is watching.
//
// A run moves through three phases. Warmup rounds are played without any
// identification. Identifying rounds call the identifier and score its guess
// against the truth with the union loss. The run ends when the round budget is
// spent or when the same guess has repeated for EarlyStopWindow rounds.
// Identifier failures degrade that round to a null guess and never end a run.
package observer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	mrand "math/rand"
	"slices"
	"time"

	"rps-belief/server/agent"
	"rps-belief/server/engine"
	"rps-belief/server/judge"
	"rps-belief/server/matchup"
	"rps-belief/server/metrics"
	"rps-belief/server/strategy"
)

type Phase string

const (
	Warmup      Phase = "warmup"
	Identifying Phase = "identifying"
	Terminal    Phase = "terminal"
)

// Record is one played round. Identification fields are nil during warmup
// and on rounds where the identifier produced no usable guess.
type Record struct {
	Round       int            `json:"round_index"`
	Phase       Phase          `json:"phase"`
	Self        engine.Move    `json:"move_self"`
	Opp         engine.Move    `json:"move_opp"`
	Outcome     engine.Outcome `json:"outcome"`
	GuessSelf   *string        `json:"guess_self"`
	GuessOpp    *string        `json:"guess_opp"`
	UnionLoss   *float64       `json:"union_loss"`
	Delta       *float64       `json:"delta"`
	Confidence  *float64       `json:"confidence"`
	Reasoning   *string        `json:"reasoning"`
	HistoryUsed *int           `json:"history_used"`
}

// Runner owns all mutable state of one run. Runs share nothing, so any
// number may execute in parallel; a single Runner is not safe for concurrent
// use.
type Runner struct {
	cat   *strategy.Catalog
	id    agent.Identifier
	cfg   Config
	req   Request
	calc  *matchup.Calculator
	rng   *mrand.Rand
	start time.Time

	self, opp engine.Distribution
	truth     matchup.Result

	phase   Phase
	round   int
	history []engine.Round
	tally   Tally

	losses   []float64
	prevLoss *float64
	prevPair [2]string
	hasPrev  bool
	streak   int
	final    FinalGuess

	earlyStop bool
	stopping  int
}

// New validates req against cat and prepares a run. Nothing is played until
// Step is called.
func New(cat *strategy.Catalog, id agent.Identifier, cfg Config, req Request) (*Runner, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: no catalog", ErrInvalidRequest)
	}
	if id == nil {
		return nil, fmt.Errorf("%w: no identifier", ErrInvalidRequest)
	}
	if err := req.validate(cat); err != nil {
		return nil, err
	}
	cfg = cfg.effective(req)
	r := &Runner{
		cat:   cat,
		id:    id,
		cfg:   cfg,
		req:   req,
		calc:  matchup.New(cat, cfg.FixedPoint),
		rng:   engine.NewRand(req.Seed),
		start: time.Now(),
		phase: Identifying,
	}
	if req.WarmupRounds > 0 {
		r.phase = Warmup
	}
	var err error
	r.self, r.opp, err = cat.ResolvePair(req.TrueSelf, req.TrueOpp, cfg.FixedPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	r.truth = matchup.Between(r.self, r.opp)
	return r, nil
}

func (r *Runner) Phase() Phase { return r.phase }

func (r *Runner) Request() Request { return r.req }

// Truth is the matchup of the true pair.
func (r *Runner) Truth() matchup.Result { return r.truth }

// Step plays the next round. It reports false once the run is terminal. The
// only error is the context's.
func (r *Runner) Step(ctx context.Context) (Record, bool, error) {
	if r.phase == Terminal {
		return Record{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	r.round++
	played := engine.PlayRound(r.rng, r.self, r.opp)
	r.history = append(r.history, played)
	r.tally.Add(played.Outcome)
	rec := Record{Round: r.round, Phase: r.phase, Self: played.Self, Opp: played.Opp, Outcome: played.Outcome}
	metrics.RoundsTotal.WithLabelValues(string(r.phase)).Inc()

	if r.phase == Warmup {
		if r.round >= r.req.WarmupRounds {
			r.phase = Identifying
		}
	} else if err := r.identify(ctx, &rec); err != nil {
		return Record{}, false, err
	}

	if r.phase != Terminal && r.round >= r.req.TotalRounds {
		r.phase = Terminal
		r.stopping = r.round
	}
	if r.phase == Terminal {
		result := "completed"
		if r.earlyStop {
			result = "early_stop"
		}
		metrics.RunsTotal.WithLabelValues(result).Inc()
	}
	return rec, true, nil
}

func (r *Runner) identify(ctx context.Context, rec *Record) error {
	hist := r.history
	if w := r.cfg.HistoryWindow; w > 0 && len(hist) > w {
		hist = hist[len(hist)-w:]
	}
	k := r.round - r.req.WarmupRounds
	include := r.cfg.ReasoningInterval > 0 && (k-1)%r.cfg.ReasoningInterval == 0
	used := len(hist)
	rec.HistoryUsed = &used

	t0 := time.Now()
	g, err := r.id.Identify(ctx, agent.Observation{
		Catalog:          r.cat,
		History:          slices.Clone(hist),
		IncludeReasoning: include,
	})
	metrics.IdentifyDuration.WithLabelValues(r.id.Name()).Observe(time.Since(t0).Seconds())
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if err == nil {
		err = agent.Validate(r.cat, &g)
	}
	if err == nil && g.Confidence < r.cfg.MinConfidence {
		err = fmt.Errorf("%w: confidence %.3f below %.3f", agent.ErrNoGuess, g.Confidence, r.cfg.MinConfidence)
	}
	var predicted matchup.Result
	if err == nil {
		predicted, err = r.calc.Compute(g.Self, g.Opp)
	}
	if err != nil {
		if !errors.Is(err, agent.ErrNoGuess) {
			log.Printf("observer: round %d: %s identifier failed: %v", r.round, r.id.Name(), err)
		}
		metrics.IdentifierFailures.WithLabelValues(r.id.Name()).Inc()
		r.hasPrev = false
		r.streak = 0
		return nil
	}

	loss := judge.Union(r.truth, predicted)
	metrics.UnionLoss.Observe(loss)
	rec.GuessSelf, rec.GuessOpp = &g.Self, &g.Opp
	rec.UnionLoss = &loss
	rec.Confidence = &g.Confidence
	if include && g.Reasoning != "" {
		rec.Reasoning = &g.Reasoning
	}
	if r.prevLoss != nil {
		d := loss - *r.prevLoss
		rec.Delta = &d
	}
	r.prevLoss = &loss
	r.losses = append(r.losses, loss)
	r.final = FinalGuess{Self: g.Self, Opp: g.Opp}

	pair := g.Pair()
	if r.hasPrev && pair == r.prevPair {
		r.streak++
	} else {
		r.streak = 1
	}
	r.prevPair, r.hasPrev = pair, true
	if r.cfg.EarlyStopWindow > 0 && r.streak >= r.cfg.EarlyStopWindow {
		r.phase = Terminal
		r.earlyStop = true
		r.stopping = r.round
	}
	return nil
}

// Rounds is the shared lazy generator behind Buffered and Stream. It yields
// each record as soon as its round completes and stops at the terminal phase
// or at the first context error, which it yields once.
func (r *Runner) Rounds(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, ok, err := r.Step(ctx)
			if err != nil {
				metrics.RunsTotal.WithLabelValues("cancelled").Inc()
				yield(Record{}, err)
				return
			}
			if !ok || !yield(rec, nil) {
				return
			}
		}
	}
}
