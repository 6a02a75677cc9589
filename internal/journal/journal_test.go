package journal

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockJournal(t *testing.T) (*Journal, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ingest_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	j, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)
	return j, mock
}

func TestNew_PingFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)

	_, err = New(context.Background(), mock, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping journal database")
}

func TestBeginRun(t *testing.T) {
	j, mock := newMockJournal(t)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO ingest_runs").
		WithArgs("run-1", "3.1-1700000000", "wordnet", "3.1", started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, j.BeginRun(context.Background(), RunRecord{
		RunID:          "run-1",
		BatchID:        "3.1-1700000000",
		SourceSystem:   "wordnet",
		MappingVersion: "3.1",
		StartedAt:      started,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStep(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectExec("INSERT INTO ingest_steps").
		WithArgs("run-1", "nodes.synset", "node", int64(1500), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, j.RecordStep(context.Background(), StepRecord{
		RunID:    "run-1",
		Entry:    "nodes.synset",
		Kind:     "node",
		Duration: 1500 * time.Millisecond,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStep_WithError(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectExec("INSERT INTO ingest_steps").
		WithArgs("run-1", "relationships.semantic_SYNSET", "relationship", int64(20), "boom").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, j.RecordStep(context.Background(), StepRecord{
		RunID:    "run-1",
		Entry:    "relationships.semantic_SYNSET",
		Kind:     "relationship",
		Duration: 20 * time.Millisecond,
		Err:      "boom",
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRun(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectExec("UPDATE ingest_runs SET status").
		WithArgs("run-1", StatusCompleted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, j.FinishRun(context.Background(), "run-1", StatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginRun_ExecFailure(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectExec("INSERT INTO ingest_runs").WillReturnError(assert.AnError)

	err := j.BeginRun(context.Background(), RunRecord{RunID: "run-1", StartedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record run start")
}

func TestNopDiscardsEverything(t *testing.T) {
	var rec Recorder = Nop{}
	assert.NoError(t, rec.BeginRun(context.Background(), RunRecord{}))
	assert.NoError(t, rec.RecordStep(context.Background(), StepRecord{}))
	assert.NoError(t, rec.FinishRun(context.Background(), "x", StatusFailed))
}
