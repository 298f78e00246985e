package strategy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rps-belief/server/engine"
)

// catalogFile is the on-disk form of a custom catalog:
//
//	strategies:
//	  - {code: A, name: Pure Scissors, rock: 0, paper: 0, scissors: 1}
//	  - {code: X, name: Counter, rule: counter-winning}
type catalogFile struct {
	Strategies []fileEntry `yaml:"strategies"`
}

type fileEntry struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Rule        string   `yaml:"rule"`
	Rock        *float64 `yaml:"rock"`
	Paper       *float64 `yaml:"paper"`
	Scissors    *float64 `yaml:"scissors"`
}

func (e fileEntry) def() (Def, error) {
	code := strings.TrimSpace(e.Code)
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = code
	}
	hasWeights := e.Rock != nil || e.Paper != nil || e.Scissors != nil
	rule := Rule(strings.ToLower(strings.TrimSpace(e.Rule)))
	switch {
	case rule != "" && hasWeights:
		return Def{}, fmt.Errorf("strategy %s: both rule and weights given", code)
	case rule != "":
		return Reactive(code, name, rule, e.Description), nil
	case hasWeights:
		d := engine.Distribution{Rock: deref(e.Rock), Paper: deref(e.Paper), Scissors: deref(e.Scissors)}
		def := Static(code, name, d)
		def.Description = e.Description
		return def, nil
	}
	return Def{}, fmt.Errorf("strategy %s: needs a rule or rock/paper/scissors weights", code)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Parse builds a catalog from YAML.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	defs := make([]Def, 0, len(f.Strategies))
	for _, e := range f.Strategies {
		d, err := e.def()
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return NewCatalog(defs...)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
