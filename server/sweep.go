package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"golang.org/x/sync/errgroup"

	"rps-belief/server/engine"
	"rps-belief/server/observer"
)

// SweepOptions describes a batch of seeded runs over several true pairs.
type SweepOptions struct {
	Pairs      [][2]string
	Runs       int
	Template   observer.Request // TrueSelf/TrueOpp/Seed are overwritten per run
	Identifier string
	Model      string
	Seed       uint64
	Parallel   int
}

// SweepRow aggregates the runs of one true pair.
type SweepRow struct {
	TrueSelf      string       `json:"true_strategy_self"`
	TrueOpp       string       `json:"true_strategy_opp"`
	Runs          int          `json:"runs"`
	Scored        int          `json:"scored_runs"`
	MeanFinalLoss float64      `json:"mean_final_union_loss"`
	CILow         float64      `json:"ci_low"`
	CIHigh        float64      `json:"ci_high"`
	EarlyStopRate float64      `json:"early_stop_rate"`
	MeanStop      float64      `json:"mean_stopping_round"`
	HitRate       float64      `json:"final_guess_hit_rate"`
	Outcomes      OutcomeStats `json:"outcomes"`
}

// parsePairs reads "B/A,C/X" style lists. An empty list means every ordered
// catalog pair.
func (a *app) parsePairs(s string) ([][2]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		codes := a.cat.Codes()
		out := make([][2]string, 0, len(codes)*len(codes))
		for _, x := range codes {
			for _, y := range codes {
				out = append(out, [2]string{x, y})
			}
		}
		return out, nil
	}
	var out [][2]string
	for _, p := range strings.Split(s, ",") {
		self, opp, ok := strings.Cut(strings.TrimSpace(p), "/")
		if !ok {
			return nil, fmt.Errorf("pair %q is not of the form SELF/OPP", p)
		}
		self, opp = strings.TrimSpace(self), strings.TrimSpace(opp)
		if err := a.cat.Validate(self, opp); err != nil {
			return nil, err
		}
		out = append(out, [2]string{self, opp})
	}
	return out, nil
}

// sweep plays opt.Runs runs per pair with bounded concurrency. Every run owns
// its runner and generator; seeds are drawn up front so results do not depend
// on scheduling.
func (a *app) sweep(ctx context.Context, opt SweepOptions) ([]SweepRow, error) {
	if opt.Runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", opt.Runs)
	}
	if opt.Seed == 0 {
		opt.Seed = engine.SecureSeed()
	}
	stream := engine.NewSeedStream(opt.Seed)
	seeds := make([][]int64, len(opt.Pairs))
	results := make([][]observer.Summary, len(opt.Pairs))
	for i := range opt.Pairs {
		seeds[i] = make([]int64, opt.Runs)
		results[i] = make([]observer.Summary, opt.Runs)
		for j := range seeds[i] {
			seeds[i][j] = int64(stream.Next()>>1) | 1
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if opt.Parallel > 0 {
		g.SetLimit(opt.Parallel)
	}
	for i, pair := range opt.Pairs {
		for j := 0; j < opt.Runs; j++ {
			g.Go(func() error {
				req := RunRequest{Request: opt.Template, Identifier: opt.Identifier, Model: opt.Model}
				req.TrueSelf, req.TrueOpp, req.Seed = pair[0], pair[1], seeds[i][j]
				runner, model, err := a.newRun(req)
				if err != nil {
					return err
				}
				res, err := observer.Buffered(gctx, runner)
				if err != nil {
					return fmt.Errorf("run %s/%s #%d: %w", pair[0], pair[1], j+1, err)
				}
				a.save(gctx, runner, model, res)
				results[i][j] = res.Summary
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]SweepRow, len(opt.Pairs))
	for i, pair := range opt.Pairs {
		rng := rand.New(rand.NewSource(int64(opt.Seed) + int64(i)))
		rows[i] = aggregate(pair, results[i], rng)
	}
	return rows, nil
}

func aggregate(pair [2]string, runs []observer.Summary, rng *rand.Rand) SweepRow {
	row := SweepRow{TrueSelf: pair[0], TrueOpp: pair[1], Runs: len(runs)}
	var finals []float64
	var tally observer.Tally
	stops, hits, stopSum := 0, 0, 0
	for _, s := range runs {
		if s.Trend.Last != nil {
			finals = append(finals, *s.Trend.Last)
		}
		if s.EarlyStop {
			stops++
		}
		if s.FinalGuess.Self == pair[0] && s.FinalGuess.Opp == pair[1] {
			hits++
		}
		stopSum += s.StoppingRound
		tally.Wins += s.Outcomes.Wins
		tally.Losses += s.Outcomes.Losses
		tally.Draws += s.Outcomes.Draws
	}
	row.Scored = len(finals)
	row.MeanFinalLoss = mean(finals)
	row.CILow, row.CIHigh = BootstrapCI95(rng, finals, 1000)
	if n := float64(len(runs)); n > 0 {
		row.EarlyStopRate = float64(stops) / n
		row.HitRate = float64(hits) / n
		row.MeanStop = float64(stopSum) / n
	}
	row.Outcomes = outcomeStats(tally)
	return row
}
