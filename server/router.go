package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rps-belief/server/judge"
	"rps-belief/server/matchup"
	"rps-belief/server/observer"
	"rps-belief/server/strategy"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

var errBadBody = errors.New("bad request body")

const maxBody = 1 << 20

type matchupRequest struct {
	Strategy1 string `json:"strategy1" validate:"required"`
	Strategy2 string `json:"strategy2" validate:"required"`
}

type matchupResponse struct {
	Strategy1 string `json:"strategy1"`
	Strategy2 string `json:"strategy2"`
	Name1     string `json:"name1"`
	Name2     string `json:"name2"`
	matchup.Result
}

type evaluateRequest struct {
	True1 string `json:"true_strategy1" validate:"required"`
	True2 string `json:"true_strategy2" validate:"required"`
	Pred1 string `json:"pred_strategy1" validate:"required"`
	Pred2 string `json:"pred_strategy2" validate:"required"`
}

type evaluateMatrixRequest struct {
	Pred1 string `json:"pred_strategy1" validate:"required"`
	Pred2 string `json:"pred_strategy2" validate:"required"`
}

type evaluateMatrixResponse struct {
	Pred1 string                           `json:"pred_strategy1"`
	Pred2 string                           `json:"pred_strategy2"`
	Pred  matchup.Result                   `json:"pred_distribution"`
	Codes []string                         `json:"codes"`
	Cells map[string]map[string]judge.Cell `json:"cells"`
}

type runResponse struct {
	observer.Result
	Outcomes OutcomeStats `json:"outcome_stats"`
}

func Router(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if a.cfg.Debug {
		r.Use(middleware.Logger)
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"ok": true, "strategies": a.cat.Len(), "archive": a.archive != nil})
		})

		r.Get("/strategies", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"strategies": a.cat.Defs(),
				"dynamic":    a.cfg.DynamicStrategies,
			})
		})

		r.Post("/strategies/matchup", func(w http.ResponseWriter, r *http.Request) {
			var req matchupRequest
			if err := decode(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
			res, err := a.calc.Compute(req.Strategy1, req.Strategy2)
			if err != nil {
				writeError(w, err)
				return
			}
			d1, _ := a.cat.Get(req.Strategy1)
			d2, _ := a.cat.Get(req.Strategy2)
			writeJSON(w, matchupResponse{
				Strategy1: req.Strategy1, Strategy2: req.Strategy2,
				Name1: d1.Name, Name2: d2.Name,
				Result: res,
			})
		})

		r.Get("/strategies/matrix", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, a.matrix)
		})

		r.Post("/evaluate", func(w http.ResponseWriter, r *http.Request) {
			var req evaluateRequest
			if err := decode(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
			ev, err := judge.Evaluate(a.matrix, req.True1, req.True2, req.Pred1, req.Pred2)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, ev)
		})

		r.Post("/evaluate/matrix", func(w http.ResponseWriter, r *http.Request) {
			var req evaluateMatrixRequest
			if err := decode(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
			if err := a.cat.Validate(req.Pred1, req.Pred2); err != nil {
				writeError(w, err)
				return
			}
			pred, _ := a.matrix.Get(req.Pred1, req.Pred2)
			writeJSON(w, evaluateMatrixResponse{
				Pred1: req.Pred1, Pred2: req.Pred2,
				Pred:  pred,
				Codes: a.matrix.Codes,
				Cells: judge.EvaluateMatrix(a.matrix, pred),
			})
		})

		r.Post("/observer/run", func(w http.ResponseWriter, r *http.Request) {
			var req RunRequest
			if err := decode(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
			runner, model, err := a.newRun(req)
			if err != nil {
				writeError(w, err)
				return
			}
			res, err := observer.Buffered(r.Context(), runner)
			if err != nil {
				writeError(w, err)
				return
			}
			a.save(r.Context(), runner, model, res)
			writeJSON(w, runResponse{Result: res, Outcomes: outcomeStats(res.Summary.Outcomes)})
		})

		r.Post("/observer/stream", func(w http.ResponseWriter, r *http.Request) {
			var req RunRequest
			if err := decode(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
			runner, model, err := a.newRun(req)
			if err != nil {
				writeError(w, err)
				return
			}
			flusher, ok := w.(http.Flusher)
			if !ok {
				http.Error(w, "stream unsupported", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")

			var res observer.Result
			err = observer.Stream(r.Context(), runner, func(ev observer.Event) error {
				if ev.Type == observer.EventFinal {
					res.Summary = *ev.Summary
					return sendEvent(w, flusher, ev.Type, ev.Summary)
				}
				res.Records = append(res.Records, *ev.Record)
				return sendEvent(w, flusher, ev.Type, ev.Record)
			})
			if err != nil {
				log.Printf("stream %s/%s ended early: %v", req.TrueSelf, req.TrueOpp, err)
				return
			}
			a.save(r.Context(), runner, model, res)
		})
	})

	return r
}

// decode reads a JSON body into v and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return validate.Struct(v)
}

func sendEvent(w http.ResponseWriter, f http.Flusher, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b); err != nil {
		return err
	}
	f.Flush()
	return nil
}

func statusFor(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errBadBody),
		errors.Is(err, errUnknownIdentifier),
		errors.Is(err, observer.ErrInvalidRequest),
		errors.Is(err, strategy.ErrUnknownStrategy):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
