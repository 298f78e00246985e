package agent

import (
	"context"
	"errors"
	"math"
	"testing"

	"rps-belief/server/strategy"
)

func TestValidate(t *testing.T) {
	cat := strategy.Default()

	g := Guess{Self: " A ", Opp: "X", Confidence: 1.7}
	if err := Validate(cat, &g); err != nil {
		t.Fatalf("valid guess rejected: %v", err)
	}
	if g.Self != "A" || g.Confidence != 1 {
		t.Fatalf("guess not normalised: %+v", g)
	}

	g = Guess{Self: "A", Opp: "X", Confidence: -3}
	if err := Validate(cat, &g); err != nil || g.Confidence != 0 {
		t.Fatalf("negative confidence: err=%v conf=%v", err, g.Confidence)
	}

	bad := []Guess{
		{Self: "", Opp: "X"},
		{Self: "A", Opp: ""},
		{Self: "A", Opp: "Q"},
		{Self: "?", Opp: "B"},
		{Self: "A", Opp: "B", Confidence: math.NaN()},
	}
	for _, g := range bad {
		if err := Validate(cat, &g); !errors.Is(err, ErrInvalidGuess) {
			t.Fatalf("%+v: expected ErrInvalidGuess, got %v", g, err)
		}
	}
}

func TestIdentifierFunc(t *testing.T) {
	var id Identifier = IdentifierFunc(func(ctx context.Context, obs Observation) (Guess, error) {
		return Guess{Self: "B", Opp: "C", Confidence: float64(len(obs.History))}, nil
	})
	g, err := id.Identify(context.Background(), Observation{})
	if err != nil || g.Pair() != [2]string{"B", "C"} {
		t.Fatalf("unexpected %+v %v", g, err)
	}
}
