package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// DB is the Postgres archive.
type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

const insertRunPG = `
	INSERT INTO runs(
		id, started_at, true_self, true_opp, identifier, model,
		total_rounds, warmup_rounds, history_window, reasoning_interval, seed,
		rounds_played, early_stop, stopping_round,
		final_guess_self, final_guess_opp,
		trend_last, trend_min, trend_avg5,
		wins, losses, draws, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,
		$7,$8,$9,$10,$11,
		$12,$13,$14,
		$15,$16,
		$17,$18,$19,
		$20,$21,$22,$23
	)`

const insertRoundPG = `
	INSERT INTO run_rounds(
		run_id, round_index, phase, move_self, move_opp, outcome,
		guess_self, guess_opp, union_loss, delta, confidence, reasoning, history_used
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

// SaveRun inserts the run row and all its rounds atomically.
func (db *DB) SaveRun(ctx context.Context, run Run) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	if _, err := tx.Exec(ctx, insertRunPG, runArgs(run)...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	batch := &pgx.Batch{}
	for _, rec := range run.Result.Records {
		batch.Queue(insertRoundPG, roundArgs(run.ID, rec)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rounds: %w", err)
	}
	return tx.Commit(ctx)
}
