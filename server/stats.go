package main

import (
	"math"
	"math/rand"
	"sort"

	"rps-belief/server/observer"
)

// OutcomeStats is the self player's record over one run or a sweep.
type OutcomeStats struct {
	Rounds   int     `json:"rounds"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Draws    int     `json:"draws"`
	WinRate  float64 `json:"win_rate"`
	LossRate float64 `json:"loss_rate"`
	DrawRate float64 `json:"draw_rate"`
	// CI on the win rate with draws counted as half a win.
	CILow  float64 `json:"win_ci_low"`
	CIHigh float64 `json:"win_ci_high"`
}

func outcomeStats(t observer.Tally) OutcomeStats {
	w, l, d := t.Rates()
	lo, hi := WilsonCI95(t.Wins, t.Draws, t.Total())
	return OutcomeStats{
		Rounds: t.Total(), Wins: t.Wins, Losses: t.Losses, Draws: t.Draws,
		WinRate: w, LossRate: l, DrawRate: d,
		CILow: lo, CIHigh: hi,
	}
}

// WilsonCI95 for a Bernoulli win rate, ties counted as half a win.
func WilsonCI95(wins, ties, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(ties)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return math.Max(0, (center-half)/den), math.Min(1, (center+half)/den)
}

// BootstrapCI95 for the mean of vals using B resamples drawn from rng.
func BootstrapCI95(rng *rand.Rand, vals []float64, B int) (low, hi float64) {
	n := len(vals)
	if n == 0 || B <= 1 {
		return 0, 0
	}
	res := make([]float64, B)
	for b := 0; b < B; b++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += vals[rng.Intn(n)]
		}
		res[b] = sum / float64(n)
	}
	sort.Float64s(res)
	l := int(0.025 * float64(B-1))
	h := int(0.975 * float64(B-1))
	return res[l], res[h]
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}
