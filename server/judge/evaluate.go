package judge

import (
	"fmt"

	"rps-belief/server/matchup"
	"rps-belief/server/strategy"
)

// Normalized holds losses scaled against every ordered catalog pair scored
// under the same reference prediction.
type Normalized struct {
	CE    float64 `json:"normalized_ce"`
	EV    float64 `json:"normalized_ev"`
	Union float64 `json:"normalized_union"`
}

type Evaluation struct {
	True       matchup.Result `json:"true_distribution"`
	Pred       matchup.Result `json:"pred_distribution"`
	Losses     Losses         `json:"losses"`
	Normalized Normalized     `json:"normalized_losses"`
}

// reference collects the losses of every matrix cell against pred.
type reference struct {
	ce, union []float64
}

func newReference(m matchup.Matrix, pred matchup.Result) reference {
	cells := m.All()
	ref := reference{ce: make([]float64, 0, len(cells)), union: make([]float64, 0, len(cells))}
	for _, truth := range cells {
		l := Compute(truth, pred)
		ref.ce = append(ref.ce, l.CE)
		ref.union = append(ref.union, l.Union)
	}
	return ref
}

func (ref reference) normalize(l Losses) Normalized {
	return Normalized{
		CE:    Normalize(l.CE, ref.ce),
		EV:    NormalizeEV(l.EV),
		Union: Normalize(l.Union, ref.union),
	}
}

// Evaluate scores the predicted pair against the true pair and normalises the
// result against the whole matrix.
func Evaluate(m matchup.Matrix, true1, true2, pred1, pred2 string) (Evaluation, error) {
	truth, ok := m.Get(true1, true2)
	if !ok {
		return Evaluation{}, fmt.Errorf("%w: true pair %s/%s", strategy.ErrUnknownStrategy, true1, true2)
	}
	pred, ok := m.Get(pred1, pred2)
	if !ok {
		return Evaluation{}, fmt.Errorf("%w: predicted pair %s/%s", strategy.ErrUnknownStrategy, pred1, pred2)
	}
	l := Compute(truth, pred)
	return Evaluation{
		True:       truth,
		Pred:       pred,
		Losses:     l,
		Normalized: newReference(m, pred).normalize(l),
	}, nil
}

type Cell struct {
	Losses
	Normalized
}

// EvaluateMatrix scores every ordered pair of m as the truth against pred.
func EvaluateMatrix(m matchup.Matrix, pred matchup.Result) map[string]map[string]Cell {
	ref := newReference(m, pred)
	out := make(map[string]map[string]Cell, len(m.Codes))
	for _, a := range m.Codes {
		row := make(map[string]Cell, len(m.Codes))
		for _, b := range m.Codes {
			l := Compute(m.Cells[a][b], pred)
			row[b] = Cell{Losses: l, Normalized: ref.normalize(l)}
		}
		out[a] = row
	}
	return out
}
