package engine

import (
	"fmt"
	"math"
	"strings"
)

type Move int

const (
	Rock Move = iota
	Paper
	Scissors
)

// Moves lists every move in distribution order.
var Moves = [3]Move{Rock, Paper, Scissors}

func (m Move) String() string {
	switch m {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	}
	return fmt.Sprintf("move(%d)", int(m))
}

// Letter is the single-letter form used in prompts (R/P/S).
func (m Move) Letter() string {
	switch m {
	case Rock:
		return "R"
	case Paper:
		return "P"
	case Scissors:
		return "S"
	}
	return "?"
}

func (m Move) MarshalText() ([]byte, error) {
	if m < Rock || m > Scissors {
		return nil, fmt.Errorf("invalid move %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Move) UnmarshalText(b []byte) error {
	v, err := ParseMove(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMove accepts "rock"/"paper"/"scissors" or R/P/S in any case.
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock", "r":
		return Rock, nil
	case "paper", "p":
		return Paper, nil
	case "scissors", "s":
		return Scissors, nil
	}
	return 0, fmt.Errorf("unknown move %q", s)
}

type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Draw Outcome = "draw"
)

// Beats reports 1 if a beats b, -1 if b beats a and 0 on equal moves.
func Beats(a, b Move) int {
	if a == b {
		return 0
	}
	if (int(a)-int(b)+3)%3 == 1 {
		return 1
	}
	return -1
}

// Resolve returns the outcome of a against b from a's side.
func Resolve(a, b Move) Outcome {
	switch Beats(a, b) {
	case 1:
		return Win
	case -1:
		return Loss
	}
	return Draw
}

// SumTolerance is the allowed drift of a distribution's total mass from 1.
const SumTolerance = 1e-6

// Distribution is a categorical distribution over the three moves.
type Distribution struct {
	Rock     float64 `json:"rock" yaml:"rock"`
	Paper    float64 `json:"paper" yaml:"paper"`
	Scissors float64 `json:"scissors" yaml:"scissors"`
}

func Uniform() Distribution {
	return Distribution{Rock: 1.0 / 3, Paper: 1.0 / 3, Scissors: 1.0 / 3}
}

// Pure puts all mass on m.
func Pure(m Move) Distribution {
	var d Distribution
	d.set(m, 1)
	return d
}

func (d Distribution) P(m Move) float64 {
	switch m {
	case Rock:
		return d.Rock
	case Paper:
		return d.Paper
	case Scissors:
		return d.Scissors
	}
	return 0
}

func (d *Distribution) set(m Move, v float64) {
	switch m {
	case Rock:
		d.Rock = v
	case Paper:
		d.Paper = v
	case Scissors:
		d.Scissors = v
	}
}

func (d Distribution) Sum() float64 { return d.Rock + d.Paper + d.Scissors }

// Valid reports whether every entry is a finite non-negative number and the
// total is within SumTolerance of 1.
func (d Distribution) Valid() bool {
	for _, m := range Moves {
		p := d.P(m)
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return math.Abs(d.Sum()-1) <= SumTolerance
}

// Blend returns alpha*d + (1-alpha)*o.
func (d Distribution) Blend(o Distribution, alpha float64) Distribution {
	return Distribution{
		Rock:     alpha*d.Rock + (1-alpha)*o.Rock,
		Paper:    alpha*d.Paper + (1-alpha)*o.Paper,
		Scissors: alpha*d.Scissors + (1-alpha)*o.Scissors,
	}
}

func (d Distribution) String() string {
	return fmt.Sprintf("R=%.3f P=%.3f S=%.3f", d.Rock, d.Paper, d.Scissors)
}
