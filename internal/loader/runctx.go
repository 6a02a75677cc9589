package loader

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexigraph/lexigraph-cli/internal/cypher"
)

// RunContext is the immutable identity of one loader invocation. It is
// computed once at run start and passed explicitly to every component;
// nothing reads it from ambient state.
type RunContext struct {
	RunID        string
	BatchID      string
	SourceSystem string
	StartedAt    time.Time
}

// NewRunContext builds the run identity. An empty batchID defaults to
// "<mapping version>-<unix seconds>", matching what operators see in the
// provenance stamps of prior loads.
func NewRunContext(batchID, sourceSystem, mappingVersion string) RunContext {
	now := time.Now()
	if batchID == "" {
		version := mappingVersion
		if version == "" {
			version = "v"
		}
		batchID = fmt.Sprintf("%s-%d", version, now.Unix())
	}
	return RunContext{
		RunID:        uuid.New().String(),
		BatchID:      batchID,
		SourceSystem: sourceSystem,
		StartedAt:    now,
	}
}

// Params returns the provenance parameters every load statement receives.
func (rc RunContext) Params() map[string]any {
	return map[string]any{
		cypher.ParamSourceSystem: rc.SourceSystem,
		cypher.ParamIngestBatch:  rc.BatchID,
	}
}
