package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lexigraph/lexigraph-cli/internal/graph"
)

// Decider is the capability the cleanup step requests before deleting
// anything. The CLI supplies an interactive prompt, an auto-approver, or a
// rejector; the core never talks to a console.
type Decider interface {
	Approve(ctx context.Context, summary CleanupSummary) (bool, error)
}

// AutoApprove approves every cleanup without asking.
type AutoApprove struct{}

func (AutoApprove) Approve(context.Context, CleanupSummary) (bool, error) { return true, nil }

// RejectAll declines every cleanup.
type RejectAll struct{}

func (RejectAll) Approve(context.Context, CleanupSummary) (bool, error) { return false, nil }

// SampleEdge is one previewed malformed relationship.
type SampleEdge struct {
	ElementID string
	FromID    any
	FromPos   any
	FromDef   any
	ToID      any
	ToPos     any
	ToDef     any
}

// CleanupSummary describes what the cleanup would delete.
type CleanupSummary struct {
	FromLabel string
	ToLabel   string
	Type      string
	Total     int64
	Sample    []SampleEdge
}

// CleanupOptions bounds the preview and the delete batches.
type CleanupOptions struct {
	Enabled      bool
	PreviewLimit int
	ChunkSize    int
	MaxLoops     int
	Decider      Decider
}

func (o CleanupOptions) withDefaults() CleanupOptions {
	if o.PreviewLimit <= 0 {
		o.PreviewLimit = 50
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 20000
	}
	if o.MaxLoops <= 0 {
		o.MaxLoops = 1000
	}
	if o.Decider == nil {
		o.Decider = RejectAll{}
	}
	return o
}

// CleanupNullDiscriminators finds generic relationships missing their
// discriminator property, previews a bounded sample through the Decider,
// and on approval deletes them in bounded chunks, looping until none remain
// or the iteration cap is hit. Returns the number of deleted edges.
func CleanupNullDiscriminators(ctx context.Context, db graph.Runner, fromLabel, toLabel, relType string, opts CleanupOptions, log *zap.Logger) (int64, error) {
	opts = opts.withDefaults()
	log = log.Named("cleanup")

	summary, err := summarizeNullDiscriminators(ctx, db, fromLabel, toLabel, relType, opts.PreviewLimit)
	if err != nil {
		return 0, err
	}
	if summary.Total == 0 {
		log.Info("No relationships missing their discriminator", zap.String("type", relType))
		return 0, nil
	}
	log.Warn("Found relationships missing their discriminator",
		zap.String("type", relType), zap.Int64("total", summary.Total))

	approved, err := opts.Decider.Approve(ctx, summary)
	if err != nil {
		return 0, fmt.Errorf("cleanup decision failed: %w", err)
	}
	if !approved {
		log.Info("Leaving relationships intact", zap.String("type", relType))
		return 0, nil
	}

	var deleted int64
	for i := 0; i < opts.MaxLoops; i++ {
		rows, err := db.Run(ctx, fmt.Sprintf(
			"MATCH ()-[r:`%s`]->()\nWHERE r.linkid IS NULL\nWITH r LIMIT $chunk\nDELETE r\nRETURN count(*) AS c",
			relType,
		), map[string]any{"chunk": opts.ChunkSize})
		if err != nil {
			return deleted, fmt.Errorf("cleanup delete chunk failed: %w", err)
		}
		c := int64Field(rows, "c")
		deleted += c
		if c == 0 {
			break
		}
	}
	log.Info("Deleted relationships missing their discriminator",
		zap.String("type", relType), zap.Int64("deleted", deleted))
	return deleted, nil
}

func summarizeNullDiscriminators(ctx context.Context, db graph.Runner, fromLabel, toLabel, relType string, limit int) (CleanupSummary, error) {
	summary := CleanupSummary{FromLabel: fromLabel, ToLabel: toLabel, Type: relType}

	rows, err := db.Run(ctx, fmt.Sprintf(
		"MATCH ()-[r:`%s`]->() WHERE r.linkid IS NULL RETURN count(r) AS n", relType,
	), nil)
	if err != nil {
		return summary, fmt.Errorf("cleanup count failed: %w", err)
	}
	summary.Total = int64Field(rows, "n")
	if summary.Total == 0 {
		return summary, nil
	}

	sample, err := db.Run(ctx, fmt.Sprintf(
		"MATCH (a:`%s`)-[r:`%s`]->(b:`%s`)\n"+
			"WHERE r.linkid IS NULL\n"+
			"RETURN elementId(r) AS rel_eid,\n"+
			"       a.synsetid AS from_id, a.pos AS from_pos, left(a.definition, 120) AS from_def,\n"+
			"       b.synsetid AS to_id, b.pos AS to_pos, left(b.definition, 120) AS to_def\n"+
			"LIMIT $limit",
		fromLabel, relType, toLabel,
	), map[string]any{"limit": limit})
	if err != nil {
		return summary, fmt.Errorf("cleanup preview failed: %w", err)
	}
	for _, row := range sample {
		eid, _ := row["rel_eid"].(string)
		summary.Sample = append(summary.Sample, SampleEdge{
			ElementID: eid,
			FromID:    row["from_id"],
			FromPos:   row["from_pos"],
			FromDef:   row["from_def"],
			ToID:      row["to_id"],
			ToPos:     row["to_pos"],
			ToDef:     row["to_def"],
		})
	}
	return summary, nil
}

func int64Field(rows []map[string]any, field string) int64 {
	if len(rows) == 0 {
		return 0
	}
	switch v := rows[0][field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
