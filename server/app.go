package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/time/rate"

	"rps-belief/server/agent"
	"rps-belief/server/belief"
	"rps-belief/server/llm"
	"rps-belief/server/matchup"
	"rps-belief/server/metrics"
	"rps-belief/server/observer"
	"rps-belief/server/store"
	"rps-belief/server/strategy"
)

var errUnknownIdentifier = errors.New("unknown identifier")

// app is the state shared by every command and handler. The catalog and the
// matrix are read-only after newApp returns.
type app struct {
	cfg     Config
	cat     *strategy.Catalog
	calc    *matchup.Calculator
	matrix  matchup.Matrix
	archive store.Archive
	closers []func()

	// one limiter for every oracle identifier so concurrent runs share the budget
	oracleLimit *rate.Limiter
}

func newApp(cfg Config) (*app, error) {
	cat, err := strategy.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	calc := matchup.New(cat, cfg.fixedPoint())
	a := &app{cfg: cfg, cat: cat, calc: calc, matrix: calc.Matrix()}
	if cfg.OracleRPS > 0 {
		a.oracleLimit = rate.NewLimiter(rate.Limit(cfg.OracleRPS), 1)
	}
	return a, nil
}

// openArchive attaches Postgres when DATABASE_URL is set, otherwise SQLite
// when SQLITE_PATH is set. With neither, runs are not archived.
func (a *app) openArchive(ctx context.Context) error {
	switch {
	case a.cfg.DatabaseURL != "":
		db, err := store.Open(a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		if a.cfg.AutoMigrate {
			if err := store.Migrate(ctx, db); err != nil {
				db.Close(ctx)
				return fmt.Errorf("migrate: %w", err)
			}
			log.Println("migrated")
		}
		a.archive = db
		a.closers = append(a.closers, func() { db.Close(context.Background()) })
	case a.cfg.SQLitePath != "":
		s, err := store.OpenSQLite(a.cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.archive = s
		a.closers = append(a.closers, func() { _ = s.Close() })
	}
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// identifier builds the named identifier. An empty name falls back to
// MODEL_PROVIDER. The returned model is empty for the local identifier.
func (a *app) identifier(name, model string) (agent.Identifier, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = a.cfg.ModelProvider
	}
	switch name {
	case "", "local", "belief":
		return belief.NewLocal(!a.cfg.DynamicStrategies, a.cfg.fixedPoint()), "", nil
	case "llm", "oracle", "openai", "openrouter":
		model = strings.TrimSpace(model)
		if model == "" {
			model = a.cfg.Model
		}
		id := llm.NewIdentifier(model, 0, a.cfg.promptLogDir())
		id.Limiter = a.oracleLimit
		id.Debug = a.cfg.Debug
		return id, model, nil
	default:
		return nil, "", fmt.Errorf("%w %q", errUnknownIdentifier, name)
	}
}

// newRun validates req and prepares a runner for it.
func (a *app) newRun(req RunRequest) (*observer.Runner, string, error) {
	id, model, err := a.identifier(req.Identifier, req.Model)
	if err != nil {
		return nil, "", err
	}
	run := req.Request
	if run.Seed == 0 {
		run.Seed = a.cfg.RoundSeed
	}
	r, err := observer.New(a.cat, id, a.cfg.observerConfig(), run)
	if err != nil {
		return nil, "", err
	}
	return r, model, nil
}

// save archives a finished run. Archive failures are logged and counted;
// they never fail the run.
func (a *app) save(ctx context.Context, r *observer.Runner, model string, res observer.Result) {
	if a.archive == nil {
		return
	}
	run := store.NewRun(res.Summary.Identifier, model, r.Request(), res)
	if err := a.archive.SaveRun(ctx, run); err != nil {
		metrics.ArchiveErrors.Inc()
		log.Printf("archive run %s failed: %v", run.ID, err)
	}
}

// RunRequest is an observer request plus the identifier to drive it.
type RunRequest struct {
	observer.Request
	Identifier string `json:"identifier,omitempty"`
	Model      string `json:"model,omitempty"`
}
