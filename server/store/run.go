package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rps-belief/server/observer"
)

// Run is one finished observer run as written to the archive. Archives are
// write-only: nothing here is ever loaded back into a live run.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Identifier string
	Model      string
	Request    observer.Request
	Result     observer.Result
}

func NewRun(identifier, model string, req observer.Request, res observer.Result) Run {
	return Run{
		ID:         uuid.New(),
		StartedAt:  time.Now().UTC().Add(-time.Duration(res.Summary.DurationMS) * time.Millisecond),
		Identifier: identifier,
		Model:      model,
		Request:    req,
		Result:     res,
	}
}

// Archive is implemented by the Postgres and SQLite backends.
type Archive interface {
	SaveRun(ctx context.Context, run Run) error
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// runArgs are the runs-table values shared by both backends, in column order.
func runArgs(r Run) []any {
	s := r.Result.Summary
	return []any{
		r.ID.String(), r.StartedAt,
		r.Request.TrueSelf, r.Request.TrueOpp,
		r.Identifier, nullIfEmpty(r.Model),
		r.Request.TotalRounds, r.Request.WarmupRounds,
		r.Request.HistoryWindow, r.Request.ReasoningInterval, r.Request.Seed,
		s.RoundsPlayed, s.EarlyStop, s.StoppingRound,
		nullIfEmpty(s.FinalGuess.Self), nullIfEmpty(s.FinalGuess.Opp),
		s.Trend.Last, s.Trend.Min, s.Trend.Avg5,
		s.Outcomes.Wins, s.Outcomes.Losses, s.Outcomes.Draws,
		s.DurationMS,
	}
}

func roundArgs(id uuid.UUID, rec observer.Record) []any {
	return []any{
		id.String(), rec.Round, string(rec.Phase),
		rec.Self.String(), rec.Opp.String(), string(rec.Outcome),
		rec.GuessSelf, rec.GuessOpp, rec.UnionLoss, rec.Delta,
		rec.Confidence, rec.Reasoning, rec.HistoryUsed,
	}
}
