package observer

import (
	"errors"
	"fmt"

	"rps-belief/server/strategy"
)

// ErrInvalidRequest marks a run rejected before any round was played.
var ErrInvalidRequest = errors.New("invalid run request")

// Config carries the run-loop thresholds. Request fields override the
// window and interval per run.
type Config struct {
	FixedPoint strategy.FixedPoint

	// EarlyStopWindow is how many consecutive identical guesses end a run.
	// Zero disables early stopping.
	EarlyStopWindow int

	// ReasoningInterval requests reasoning on identifying rounds 1, 1+n,
	// 1+2n, ... Zero never requests it.
	ReasoningInterval int

	// HistoryWindow caps the rounds handed to the identifier. Zero passes
	// the full history.
	HistoryWindow int

	// MinConfidence treats guesses below it as no guess. Zero accepts all.
	MinConfidence float64
}

func DefaultConfig() Config {
	return Config{
		FixedPoint:        strategy.DefaultFixedPoint,
		EarlyStopWindow:   15,
		ReasoningInterval: 5,
	}
}

// Request describes one run.
type Request struct {
	TrueSelf          string `json:"true_strategy_self" validate:"required"`
	TrueOpp           string `json:"true_strategy_opp" validate:"required"`
	TotalRounds       int    `json:"total_rounds" validate:"min=1,max=1000"`
	WarmupRounds      int    `json:"warmup_rounds" validate:"min=0,ltefield=TotalRounds"`
	HistoryWindow     int    `json:"history_window,omitempty" validate:"min=0"`
	ReasoningInterval int    `json:"reasoning_interval,omitempty" validate:"min=0"`
	Seed              int64  `json:"seed,omitempty"`
}

func (r Request) validate(cat *strategy.Catalog) error {
	if r.TotalRounds < 1 {
		return fmt.Errorf("%w: total_rounds must be at least 1, got %d", ErrInvalidRequest, r.TotalRounds)
	}
	if r.WarmupRounds < 0 || r.WarmupRounds > r.TotalRounds {
		return fmt.Errorf("%w: warmup_rounds must be in [0, %d], got %d", ErrInvalidRequest, r.TotalRounds, r.WarmupRounds)
	}
	if r.HistoryWindow < 0 {
		return fmt.Errorf("%w: history_window must not be negative", ErrInvalidRequest)
	}
	if r.ReasoningInterval < 0 {
		return fmt.Errorf("%w: reasoning_interval must not be negative", ErrInvalidRequest)
	}
	if err := cat.Validate(r.TrueSelf, r.TrueOpp); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// effective folds per-request overrides into the configuration.
func (c Config) effective(r Request) Config {
	if r.HistoryWindow > 0 {
		c.HistoryWindow = r.HistoryWindow
	}
	if r.ReasoningInterval > 0 {
		c.ReasoningInterval = r.ReasoningInterval
	}
	if c.EarlyStopWindow < 0 {
		c.EarlyStopWindow = 0
	}
	if c.ReasoningInterval < 0 {
		c.ReasoningInterval = 0
	}
	if c.HistoryWindow < 0 {
		c.HistoryWindow = 0
	}
	return c
}
