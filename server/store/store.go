package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

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

// Run is the metadata of one computation.
type Run struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Endpoint   string    `json:"endpoint"`
	MethodReq  string    `json:"method_requested"`
	MethodRun  string    `json:"method_run"`
	Players    int       `json:"players"`
	BoardLen   int       `json:"board_len"`
	Iterations int       `json:"iterations"`
	Trials     int64     `json:"trials"`
	DurationMS int64     `json:"duration_ms"`
	Truncated  bool      `json:"truncated"`
	Evaluator  string    `json:"evaluator"`
}

// RecordRun inserts r, assigning an ID when it has none.
func (db *DB) RecordRun(ctx context.Context, r Run) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO equity_runs(
			id, endpoint, method_req, method_run, players, board_len,
			iterations, trials, duration_ms, truncated, evaluator
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, r.ID, r.Endpoint, r.MethodReq, r.MethodRun, r.Players, r.BoardLen,
		r.Iterations, r.Trials, r.DurationMS, r.Truncated, r.Evaluator)
	return err
}

// RecentRuns returns the newest runs first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT id, created_at, endpoint, method_req, method_run, players, board_len,
		       iterations, trials, duration_ms, truncated, evaluator
		  FROM equity_runs
		 ORDER BY created_at DESC
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Endpoint, &r.MethodReq, &r.MethodRun, &r.Players,
			&r.BoardLen, &r.Iterations, &r.Trials, &r.DurationMS, &r.Truncated, &r.Evaluator); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun fetches one run; ok is false when it does not exist.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (r Run, ok bool, err error) {
	err = db.QueryRow(ctx, `
		SELECT id, created_at, endpoint, method_req, method_run, players, board_len,
		       iterations, trials, duration_ms, truncated, evaluator
		  FROM equity_runs WHERE id = $1
	`, id).Scan(&r.ID, &r.CreatedAt, &r.Endpoint, &r.MethodReq, &r.MethodRun, &r.Players,
		&r.BoardLen, &r.Iterations, &r.Trials, &r.DurationMS, &r.Truncated, &r.Evaluator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	return r, true, nil
}
