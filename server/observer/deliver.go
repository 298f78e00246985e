package observer

import (
	"context"
	"time"
)

// Result is the buffered form of a run.
type Result struct {
	Records []Record `json:"records"`
	Summary Summary  `json:"summary"`
}

// Buffered drains the run and returns every record with the summary.
func Buffered(ctx context.Context, r *Runner) (Result, error) {
	var out Result
	for rec, err := range r.Rounds(ctx) {
		if err != nil {
			return Result{}, err
		}
		out.Records = append(out.Records, rec)
	}
	out.Summary = r.Summary()
	return out, nil
}

const (
	EventRound = "round"
	EventFinal = "final"
)

// Event is one streamed message: a round record or the closing summary.
type Event struct {
	Type    string   `json:"type"`
	Record  *Record  `json:"record,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
}

// Stream emits one round event per completed round and then exactly one
// final event. An emit error stops the run at once and is returned; the
// final event is then never sent.
func Stream(ctx context.Context, r *Runner, emit func(Event) error) error {
	for rec, err := range r.Rounds(ctx) {
		if err != nil {
			return err
		}
		if err := emit(Event{Type: EventRound, Record: &rec}); err != nil {
			return err
		}
	}
	s := r.Summary()
	return emit(Event{Type: EventFinal, Summary: &s})
}

func timeSinceMS(t time.Time) int64 { return time.Since(t).Milliseconds() }
