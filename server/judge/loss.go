// Package judge scores how far a guessed matchup is from the true one.
//
// Every function here is pure and total: degenerate or all-zero inputs fall
// back to safe defaults instead of failing.
package judge

import (
	"math"

	"rps-belief/server/matchup"
)

// Epsilon keeps log away from zero.
const Epsilon = 1e-12

// EVUpperBound is the fixed divisor used to normalise EV loss.
const EVUpperBound = 1.0

// Prob is a matchup expressed as outcome probabilities.
type Prob struct {
	Win  float64 `json:"win"`
	Draw float64 `json:"draw"`
	Loss float64 `json:"loss"`
}

// ToProb normalises a percentage triple by its sum. A triple with no mass
// maps to 1/3 each.
func ToProb(r matchup.Result) Prob {
	total := r.Win + r.Loss + r.Draw
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Prob{Win: 1.0 / 3, Draw: 1.0 / 3, Loss: 1.0 / 3}
	}
	return Prob{Win: r.Win / total, Draw: r.Draw / total, Loss: r.Loss / total}
}

func (p Prob) values() [3]float64 { return [3]float64{p.Win, p.Draw, p.Loss} }

// CrossEntropy is -Σ truth·log(pred+ε) over win/draw/loss.
func CrossEntropy(truth, pred matchup.Result) float64 {
	t, p := ToProb(truth).values(), ToProb(pred).values()
	ce := 0.0
	for i := range t {
		ce -= t[i] * math.Log(p[i]+Epsilon)
	}
	return ce
}

// ExcessCrossEntropy is CrossEntropy minus the truth's own cross-entropy, so
// a perfect prediction scores exactly zero.
func ExcessCrossEntropy(truth, pred matchup.Result) float64 {
	t, p := ToProb(truth).values(), ToProb(pred).values()
	x := 0.0
	for i := range t {
		x += t[i] * (math.Log(t[i]+Epsilon) - math.Log(p[i]+Epsilon))
	}
	return x
}

// Brier is Σ (pred-truth)² over win/draw/loss.
func Brier(truth, pred matchup.Result) float64 {
	t, p := ToProb(truth).values(), ToProb(pred).values()
	b := 0.0
	for i := range t {
		d := p[i] - t[i]
		b += d * d
	}
	return b
}

// EV is the expected value proxy (wins - losses) / 100.
func EV(r matchup.Result) float64 { return (r.Win - r.Loss) / 100 }

func EVLoss(truth, pred matchup.Result) float64 {
	d := EV(truth) - EV(pred)
	return d * d
}

// Losses bundles every disagreement measure for one (truth, prediction) pair.
type Losses struct {
	CE       float64 `json:"ce_loss"`
	CEExcess float64 `json:"ce_excess"`
	Brier    float64 `json:"brier_loss"`
	EV       float64 `json:"ev_loss"`
	Union    float64 `json:"union_loss"`
}

// Union is the mean of the cross-entropy, Brier and EV losses. The
// cross-entropy term is taken relative to the truth's own entropy, which
// shifts it by a constant per true matchup and makes Union(d, d) == 0.
func Union(truth, pred matchup.Result) float64 {
	return (ExcessCrossEntropy(truth, pred) + Brier(truth, pred) + EVLoss(truth, pred)) / 3
}

func Compute(truth, pred matchup.Result) Losses {
	l := Losses{
		CE:       CrossEntropy(truth, pred),
		CEExcess: ExcessCrossEntropy(truth, pred),
		Brier:    Brier(truth, pred),
		EV:       EVLoss(truth, pred),
	}
	l.Union = (l.CEExcess + l.Brier + l.EV) / 3
	return l
}

// Normalize min-max scales x against all. It returns 0.5 when all is empty
// or every value is equal.
func Normalize(x float64, all []float64) float64 {
	if len(all) == 0 {
		return 0.5
	}
	lo, hi := all[0], all[0]
	for _, v := range all[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 0.5
	}
	return (x - lo) / (hi - lo)
}

// NormalizeEV divides by the fixed EV bound instead of min-max scaling.
func NormalizeEV(x float64) float64 { return x / EVUpperBound }
