// Package strategy defines the strategy catalog and resolves the move
// distribution each strategy plays against a given opponent.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"rps-belief/server/engine"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

type Kind string

const (
	KindStatic   Kind = "static"
	KindReactive Kind = "reactive"
)

// Rule is the permutation a reactive strategy applies to its opponent's
// previous-round distribution.
type Rule string

const (
	CounterWinning Rule = "counter-winning" // play what beats the opponent's favoured move
	CounterLosing  Rule = "counter-losing"  // play what loses to it
	Mirror         Rule = "mirror"
)

func (r Rule) Valid() bool {
	switch r {
	case CounterWinning, CounterLosing, Mirror:
		return true
	}
	return false
}

// Apply permutes opp's probabilities according to r.
func (r Rule) Apply(opp engine.Distribution) engine.Distribution {
	switch r {
	case CounterWinning:
		return engine.Distribution{Rock: opp.Scissors, Paper: opp.Rock, Scissors: opp.Paper}
	case CounterLosing:
		return engine.Distribution{Rock: opp.Paper, Paper: opp.Scissors, Scissors: opp.Rock}
	default:
		return opp
	}
}

// Def is a tagged variant: Static strategies carry Dist, reactive ones carry Rule.
type Def struct {
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Kind        Kind                `json:"kind"`
	Dist        engine.Distribution `json:"dist,omitzero"`
	Rule        Rule                `json:"rule,omitempty"`
	Description string              `json:"description,omitempty"`
}

func Static(code, name string, d engine.Distribution) Def {
	return Def{Code: code, Name: name, Kind: KindStatic, Dist: d}
}

func Reactive(code, name string, r Rule, description string) Def {
	return Def{Code: code, Name: name, Kind: KindReactive, Rule: r, Description: description}
}

func (d Def) IsStatic() bool { return d.Kind == KindStatic }

// Resolve returns the distribution d plays against opp. Static strategies
// ignore opp.
func (d Def) Resolve(opp engine.Distribution) engine.Distribution {
	if d.IsStatic() {
		return d.Dist
	}
	return d.Rule.Apply(opp)
}

func (d Def) validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return errors.New("strategy code is empty")
	}
	switch d.Kind {
	case KindStatic:
		if !d.Dist.Valid() {
			return fmt.Errorf("strategy %s: distribution %s does not sum to 1", d.Code, d.Dist)
		}
	case KindReactive:
		if !d.Rule.Valid() {
			return fmt.Errorf("strategy %s: unknown rule %q", d.Code, d.Rule)
		}
	default:
		return fmt.Errorf("strategy %s: unknown kind %q", d.Code, d.Kind)
	}
	return nil
}

// Catalog maps codes to definitions. It is immutable once built and safe for
// concurrent readers.
type Catalog struct {
	defs  map[string]Def
	order []string
}

func NewCatalog(defs ...Def) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("catalog is empty")
	}
	c := &Catalog{defs: make(map[string]Def, len(defs)), order: make([]string, 0, len(defs))}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.Code]; dup {
			return nil, fmt.Errorf("duplicate strategy code %q", d.Code)
		}
		c.defs[d.Code] = d
		c.order = append(c.order, d.Code)
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.order) }

func (c *Catalog) Get(code string) (Def, bool) {
	d, ok := c.defs[code]
	return d, ok
}

func (c *Catalog) Has(code string) bool {
	_, ok := c.defs[code]
	return ok
}

// Codes returns every code in catalog order.
func (c *Catalog) Codes() []string {
	return append([]string(nil), c.order...)
}

func (c *Catalog) StaticCodes() []string {
	out := make([]string, 0, len(c.order))
	for _, k := range c.order {
		if c.defs[k].IsStatic() {
			out = append(out, k)
		}
	}
	return out
}

func (c *Catalog) Defs() []Def {
	out := make([]Def, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.defs[k])
	}
	return out
}

// Validate returns an ErrUnknownStrategy error naming the first missing code.
func (c *Catalog) Validate(codes ...string) error {
	for _, k := range codes {
		if !c.Has(k) {
			return fmt.Errorf("%w: %q", ErrUnknownStrategy, k)
		}
	}
	return nil
}

// Resolve returns the distribution code plays against opp.
func (c *Catalog) Resolve(code string, opp engine.Distribution) (engine.Distribution, error) {
	d, ok := c.defs[code]
	if !ok {
		return engine.Distribution{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, code)
	}
	return d.Resolve(opp), nil
}
