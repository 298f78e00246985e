package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	started_at         TEXT NOT NULL,
	true_self          TEXT NOT NULL,
	true_opp           TEXT NOT NULL,
	identifier         TEXT NOT NULL,
	model              TEXT,
	total_rounds       INTEGER NOT NULL,
	warmup_rounds      INTEGER NOT NULL,
	history_window     INTEGER NOT NULL DEFAULT 0,
	reasoning_interval INTEGER NOT NULL DEFAULT 0,
	seed               INTEGER NOT NULL DEFAULT 0,
	rounds_played      INTEGER NOT NULL,
	early_stop         INTEGER NOT NULL DEFAULT 0,
	stopping_round     INTEGER NOT NULL,
	final_guess_self   TEXT,
	final_guess_opp    TEXT,
	trend_last         REAL,
	trend_min          REAL,
	trend_avg5         REAL,
	wins               INTEGER NOT NULL DEFAULT 0,
	losses             INTEGER NOT NULL DEFAULT 0,
	draws              INTEGER NOT NULL DEFAULT 0,
	duration_ms        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_rounds (
	run_id       TEXT NOT NULL,
	round_index  INTEGER NOT NULL,
	phase        TEXT NOT NULL,
	move_self    TEXT NOT NULL,
	move_opp     TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	guess_self   TEXT,
	guess_opp    TEXT,
	union_loss   REAL,
	delta        REAL,
	confidence   REAL,
	reasoning    TEXT,
	history_used INTEGER,
	PRIMARY KEY (run_id, round_index),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

// SQLite is the single-file archive used when no Postgres DSN is configured.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

const insertRunSQLite = `
	INSERT INTO runs(
		id, started_at, true_self, true_opp, identifier, model,
		total_rounds, warmup_rounds, history_window, reasoning_interval, seed,
		rounds_played, early_stop, stopping_round,
		final_guess_self, final_guess_opp,
		trend_last, trend_min, trend_avg5,
		wins, losses, draws, duration_ms
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

const insertRoundSQLite = `
	INSERT INTO run_rounds(
		run_id, round_index, phase, move_self, move_opp, outcome,
		guess_self, guess_opp, union_loss, delta, confidence, reasoning, history_used
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`

func (s *SQLite) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	args := runArgs(run)
	args[1] = run.StartedAt.Format("2006-01-02T15:04:05.000Z07:00")
	if _, err := tx.ExecContext(ctx, insertRunSQLite, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertRoundSQLite)
	if err != nil {
		return fmt.Errorf("prepare rounds: %w", err)
	}
	defer stmt.Close()
	for _, rec := range run.Result.Records {
		if _, err := stmt.ExecContext(ctx, roundArgs(run.ID, rec)...); err != nil {
			return fmt.Errorf("insert round %d: %w", rec.Round, err)
		}
	}
	return tx.Commit()
}

// RunCount reports how many runs are archived.
func (s *SQLite) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// RoundCount reports how many rounds are archived for one run.
func (s *SQLite) RoundCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_rounds WHERE run_id = ?`, id.String()).Scan(&n)
	return n, err
}
