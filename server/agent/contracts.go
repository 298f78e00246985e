package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"rps-belief/server/engine"
	"rps-belief/server/strategy"
)

var (
	// ErrNoGuess is returned by identifiers that have nothing to offer yet.
	ErrNoGuess = errors.New("no guess")
	// ErrInvalidGuess marks a guess that names codes outside the catalog or
	// carries an out-of-range confidence.
	ErrInvalidGuess = errors.New("invalid guess")
)

// Observation is what an identifier sees: the catalog it must choose from and
// the ordered rounds played so far (possibly truncated to a window).
type Observation struct {
	Catalog          *strategy.Catalog `json:"-"`
	History          []engine.Round    `json:"history"`
	IncludeReasoning bool              `json:"include_reasoning"`
}

type Guess struct {
	Self       string  `json:"guess_self"`
	Opp        string  `json:"guess_opp"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"` // only when requested
}

// Pair is the guessed (self, opp) code pair.
func (g Guess) Pair() [2]string { return [2]string{g.Self, g.Opp} }

// Identifier guesses which catalog strategies produced a history. It may be a
// slow external call; implementations own any timeout policy.
type Identifier interface {
	Name() string
	Identify(ctx context.Context, obs Observation) (Guess, error)
}

// IdentifierFunc adapts a function to Identifier.
type IdentifierFunc func(ctx context.Context, obs Observation) (Guess, error)

func (f IdentifierFunc) Name() string { return "func" }

func (f IdentifierFunc) Identify(ctx context.Context, obs Observation) (Guess, error) {
	return f(ctx, obs)
}

// Validate checks the guess against the catalog. Codes are trimmed in place
// and the confidence is clamped to [0,1]; NaN is rejected.
func Validate(c *strategy.Catalog, g *Guess) error {
	g.Self = strings.TrimSpace(g.Self)
	g.Opp = strings.TrimSpace(g.Opp)
	if g.Self == "" || g.Opp == "" {
		return fmt.Errorf("%w: incomplete pair %q/%q", ErrInvalidGuess, g.Self, g.Opp)
	}
	if !c.Has(g.Self) {
		return fmt.Errorf("%w: unknown code %q", ErrInvalidGuess, g.Self)
	}
	if !c.Has(g.Opp) {
		return fmt.Errorf("%w: unknown code %q", ErrInvalidGuess, g.Opp)
	}
	if math.IsNaN(g.Confidence) {
		return fmt.Errorf("%w: confidence is NaN", ErrInvalidGuess)
	}
	g.Confidence = min(max(g.Confidence, 0), 1)
	return nil
}
