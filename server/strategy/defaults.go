package strategy

import "rps-belief/server/engine"

func dist(r, p, s float64) engine.Distribution {
	return engine.Distribution{Rock: r, Paper: p, Scissors: s}
}

// DefaultDefs is the built-in catalog: sixteen static mixes A..P and the three
// reactive rules X, Y, Z.
func DefaultDefs() []Def {
	return []Def{
		Static("A", "A (Pure Scissors)", dist(0, 0, 1)),
		Static("B", "B (Pure Rock)", dist(1, 0, 0)),
		Static("C", "C (Pure Paper)", dist(0, 1, 0)),
		Static("D", "D (Random)", dist(0.333, 0.333, 0.334)),
		Static("E", "E (Rock + Paper)", dist(0.5, 0.5, 0)),
		Static("F", "F (Rock + Scissors)", dist(0.5, 0, 0.5)),
		Static("G", "G (Paper + Scissors)", dist(0, 0.5, 0.5)),
		Static("H", "H (Rock-biased)", dist(0.5, 0.25, 0.25)),
		Static("I", "I (Paper-biased)", dist(0.25, 0.5, 0.25)),
		Static("J", "J (Scissors-biased)", dist(0.25, 0.25, 0.5)),
		Static("K", "K (Rock-primary, Paper-secondary)", dist(0.5, 0.333, 0.167)),
		Static("L", "L (Rock-primary, Scissors-secondary)", dist(0.5, 0.167, 0.333)),
		Static("M", "M (Paper-primary, Rock-secondary)", dist(0.333, 0.5, 0.167)),
		Static("N", "N (Paper-primary, Scissors-secondary)", dist(0.167, 0.5, 0.333)),
		Static("O", "O (Scissors-primary, Rock-secondary)", dist(0.333, 0.167, 0.5)),
		Static("P", "P (Scissors-primary, Paper-secondary)", dist(0.167, 0.333, 0.5)),
		Reactive("X", "X (Counter)", CounterWinning,
			"Play the move that beats the opponent's previous move (opponent favoured scissors, favour rock)."),
		Reactive("Y", "Y (Yield)", CounterLosing,
			"Play the move that loses to the opponent's previous move (opponent favoured scissors, favour paper)."),
		Reactive("Z", "Z (Mirror)", Mirror,
			"Play the same move as the opponent's previous move."),
	}
}

// Default builds the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(DefaultDefs()...)
	if err != nil {
		panic("strategy: built-in catalog is invalid: " + err.Error())
	}
	return c
}
