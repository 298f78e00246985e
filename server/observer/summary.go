package observer

import (
	"math"

	"rps-belief/server/engine"
	"rps-belief/server/matchup"
)

// Trend summarises the non-null union losses of a run. Fields are nil when
// no round produced a loss.
type Trend struct {
	Last *float64 `json:"last"`
	Min  *float64 `json:"min"`
	Avg5 *float64 `json:"avg_5"`
}

func trendOf(losses []float64) Trend {
	if len(losses) == 0 {
		return Trend{}
	}
	last := losses[len(losses)-1]
	lo := math.Inf(1)
	for _, v := range losses {
		lo = min(lo, v)
	}
	tail := losses[max(0, len(losses)-5):]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	avg := sum / float64(len(tail))
	return Trend{Last: &last, Min: &lo, Avg5: &avg}
}

// FinalGuess is the most recent guessed pair, empty if none was ever made.
type FinalGuess struct {
	Self string `json:"guess_self"`
	Opp  string `json:"guess_opp"`
}

func (g FinalGuess) IsZero() bool { return g.Self == "" && g.Opp == "" }

// Tally counts outcomes from the self side.
type Tally struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

func (t *Tally) Add(o engine.Outcome) {
	switch o {
	case engine.Win:
		t.Wins++
	case engine.Loss:
		t.Losses++
	default:
		t.Draws++
	}
}

func (t Tally) Total() int { return t.Wins + t.Losses + t.Draws }

// Rates returns win, loss and draw fractions; all zero for an empty tally.
func (t Tally) Rates() (win, loss, draw float64) {
	n := float64(t.Total())
	if n == 0 {
		return 0, 0, 0
	}
	return float64(t.Wins) / n, float64(t.Losses) / n, float64(t.Draws) / n
}

// Summary is the closing state of a run, shared by the buffered result and
// the final stream event.
type Summary struct {
	TrueSelf      string         `json:"true_strategy_self"`
	TrueOpp       string         `json:"true_strategy_opp"`
	Identifier    string         `json:"identifier"`
	TrueMatchup   matchup.Result `json:"true_matchup"`
	Trend         Trend          `json:"trend"`
	FinalGuess    FinalGuess     `json:"final_guess"`
	EarlyStop     bool           `json:"early_stop"`
	StoppingRound int            `json:"stopping_round"`
	RoundsPlayed  int            `json:"rounds_played"`
	Identified    int            `json:"identified_rounds"`
	Outcomes      Tally          `json:"outcomes"`
	DurationMS    int64          `json:"duration_ms"`
}

// Summary reflects the rounds played so far.
func (r *Runner) Summary() Summary {
	stopping := r.stopping
	if stopping == 0 {
		stopping = r.round
	}
	return Summary{
		TrueSelf:      r.req.TrueSelf,
		TrueOpp:       r.req.TrueOpp,
		Identifier:    r.id.Name(),
		TrueMatchup:   r.truth,
		Trend:         trendOf(r.losses),
		FinalGuess:    r.final,
		EarlyStop:     r.earlyStop,
		StoppingRound: stopping,
		RoundsPlayed:  r.round,
		Identified:    len(r.losses),
		Outcomes:      r.tally,
		DurationMS:    timeSinceMS(r.start),
	}
}

// Losses returns the non-null union losses in round order.
func (r *Runner) Losses() []float64 { return append([]float64(nil), r.losses...) }
