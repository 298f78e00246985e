// Package matchup computes win/loss/draw percentages for ordered strategy pairs.
package matchup

import (
	"rps-belief/server/engine"
	"rps-belief/server/strategy"
)

// Result holds percentages (0..100) from the first strategy's side.
type Result struct {
	Win  float64 `json:"win_pct"`
	Loss float64 `json:"loss_pct"`
	Draw float64 `json:"draw_pct"`
}

func (r Result) Total() float64 { return r.Win + r.Loss + r.Draw }

// beatMass is the probability that a move drawn from a beats one drawn from b.
// Win and loss both use it so that Between(a,b).Win == Between(b,a).Loss exactly.
func beatMass(a, b engine.Distribution) float64 {
	return a.Rock*b.Scissors + a.Paper*b.Rock + a.Scissors*b.Paper
}

func drawMass(a, b engine.Distribution) float64 {
	return a.Rock*b.Rock + a.Paper*b.Paper + a.Scissors*b.Scissors
}

// Between scores two already-resolved distributions.
func Between(a, b engine.Distribution) Result {
	return Result{
		Win:  beatMass(a, b) * 100,
		Loss: beatMass(b, a) * 100,
		Draw: drawMass(a, b) * 100,
	}
}

// Calculator resolves pairs from one catalog with one fixed-point setting.
type Calculator struct {
	Catalog    *strategy.Catalog
	FixedPoint strategy.FixedPoint
}

func New(c *strategy.Catalog, fp strategy.FixedPoint) *Calculator {
	return &Calculator{Catalog: c, FixedPoint: fp}
}

// Compute resolves k1 and k2 against each other and scores the pair.
func (c *Calculator) Compute(k1, k2 string) (Result, error) {
	d1, d2, err := c.Catalog.ResolvePair(k1, k2, c.FixedPoint)
	if err != nil {
		return Result{}, err
	}
	return Between(d1, d2), nil
}

// Matrix holds the result of every ordered catalog pair.
type Matrix struct {
	Codes []string                     `json:"codes"`
	Cells map[string]map[string]Result `json:"cells"`
}

func (m Matrix) Get(k1, k2 string) (Result, bool) {
	row, ok := m.Cells[k1]
	if !ok {
		return Result{}, false
	}
	r, ok := row[k2]
	return r, ok
}

// All returns every cell in row-major catalog order.
func (m Matrix) All() []Result {
	out := make([]Result, 0, len(m.Codes)*len(m.Codes))
	for _, a := range m.Codes {
		for _, b := range m.Codes {
			out = append(out, m.Cells[a][b])
		}
	}
	return out
}

// Matrix computes every ordered pair of the catalog.
func (c *Calculator) Matrix() Matrix {
	codes := c.Catalog.Codes()
	m := Matrix{Codes: codes, Cells: make(map[string]map[string]Result, len(codes))}
	for _, a := range codes {
		da, _ := c.Catalog.Get(a)
		row := make(map[string]Result, len(codes))
		for _, b := range codes {
			db, _ := c.Catalog.Get(b)
			d1, d2 := strategy.ResolveDefs(da, db, c.FixedPoint)
			row[b] = Between(d1, d2)
		}
		m.Cells[a] = row
	}
	return m
}
