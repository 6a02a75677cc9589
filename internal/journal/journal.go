// Package journal persists an audit trail of load runs to Postgres: one row
// per run and one per executed load step. The loader talks to it through the
// Recorder interface; when no journal DSN is configured a Nop recorder is
// used and nothing is written anywhere.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// RunRecord identifies one loader invocation.
type RunRecord struct {
	RunID          string
	BatchID        string
	SourceSystem   string
	MappingVersion string
	StartedAt      time.Time
}

// StepRecord captures one executed load-order entry.
type StepRecord struct {
	RunID    string
	Entry    string
	Kind     string // "node", "relationship", "derived", "constraint"
	Duration time.Duration
	Err      string
}

// Run terminal statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Recorder is the journaling surface the loader depends on.
type Recorder interface {
	BeginRun(ctx context.Context, run RunRecord) error
	RecordStep(ctx context.Context, step StepRecord) error
	FinishRun(ctx context.Context, runID, status string) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) BeginRun(context.Context, RunRecord) error     { return nil }
func (Nop) RecordStep(context.Context, StepRecord) error  { return nil }
func (Nop) FinishRun(context.Context, string, string) error { return nil }

// DBPool abstracts the pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal is the Postgres implementation of Recorder.
type Journal struct {
	pool DBPool
	log  *zap.Logger
}

var _ Recorder = (*Journal)(nil)

// New verifies the connection and makes sure the journal tables exist.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Journal, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}
	j := &Journal{pool: pool, log: logger.Named("journal")}
	if err := j.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ingest_runs (
			run_id          TEXT PRIMARY KEY,
			batch_id        TEXT NOT NULL,
			source_system   TEXT NOT NULL,
			mapping_version TEXT NOT NULL,
			status          TEXT NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS ingest_steps (
			id         BIGSERIAL PRIMARY KEY,
			run_id     TEXT NOT NULL REFERENCES ingest_runs(run_id),
			entry      TEXT NOT NULL,
			kind       TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			error      TEXT,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure journal schema: %w", err)
	}
	return nil
}

// BeginRun records the run as started. Re-invoking with the same run id is a
// conflict and fails loudly; run ids are unique per invocation.
func (j *Journal) BeginRun(ctx context.Context, run RunRecord) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO ingest_runs (run_id, batch_id, source_system, mapping_version, status, started_at)
		VALUES ($1, $2, $3, $4, 'running', $5);
	`, run.RunID, run.BatchID, run.SourceSystem, run.MappingVersion, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordStep appends one executed step. Journal trouble must never abort a
// load, so the caller is expected to log and continue on error.
func (j *Journal) RecordStep(ctx context.Context, step StepRecord) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO ingest_steps (run_id, entry, kind, duration_ms, error)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''));
	`, step.RunID, step.Entry, step.Kind, step.Duration.Milliseconds(), step.Err)
	if err != nil {
		return fmt.Errorf("failed to record step: %w", err)
	}
	return nil
}

// FinishRun stamps the terminal status and finish time.
func (j *Journal) FinishRun(ctx context.Context, runID, status string) error {
	_, err := j.pool.Exec(ctx, `
		UPDATE ingest_runs SET status = $2, finished_at = now() WHERE run_id = $1;
	`, runID, status)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}
