// Package loader sequences a full ingest run: constraints, the declared
// load order (nodes, relationships, derived-edge promotion), optional
// cleanup, and post-load validation. Execution is strictly sequential;
// relationship loads depend on node loads having materialized their
// endpoints, so there is no intra-run parallelism.
package loader

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lexigraph/lexigraph-cli/internal/cypher"
	"github.com/lexigraph/lexigraph-cli/internal/errs"
	"github.com/lexigraph/lexigraph-cli/internal/fetch"
	"github.com/lexigraph/lexigraph-cli/internal/graph"
	"github.com/lexigraph/lexigraph-cli/internal/journal"
	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

// Options tunes one run.
type Options struct {
	// BatchRows is the transactional chunk size for LOAD CSV.
	BatchRows int
	// Cleanup controls the post-relationship null-discriminator sweep.
	Cleanup CleanupOptions
}

// Loader owns the database session for the duration of one run.
type Loader struct {
	spec    *mapping.Spec
	db      graph.Runner
	fetcher *fetch.Fetcher
	journal journal.Recorder
	log     *zap.Logger
	opts    Options
}

// New wires a loader. A nil recorder degrades to the no-op journal.
func New(spec *mapping.Spec, db graph.Runner, fetcher *fetch.Fetcher, rec journal.Recorder, opts Options, logger *zap.Logger) *Loader {
	if rec == nil {
		rec = journal.Nop{}
	}
	if opts.BatchRows <= 0 {
		opts.BatchRows = 10000
	}
	return &Loader{
		spec:    spec,
		db:      db,
		fetcher: fetcher,
		journal: rec,
		log:     logger.Named("loader"),
		opts:    opts,
	}
}

// Run executes the whole load. Every mutation is an idempotent merge, so a
// failed run is recovered by re-invocation, never by rollback.
func (l *Loader) Run(ctx context.Context, rc RunContext) (err error) {
	if jerr := l.journal.BeginRun(ctx, journal.RunRecord{
		RunID:          rc.RunID,
		BatchID:        rc.BatchID,
		SourceSystem:   rc.SourceSystem,
		MappingVersion: l.spec.Version,
		StartedAt:      rc.StartedAt,
	}); jerr != nil {
		// The journal is an audit aid; it never blocks a load.
		l.log.Warn("Failed to journal run start", zap.Error(jerr))
	}
	defer func() {
		status := journal.StatusCompleted
		if err != nil {
			status = journal.StatusFailed
		}
		if jerr := l.journal.FinishRun(ctx, rc.RunID, status); jerr != nil {
			l.log.Warn("Failed to journal run finish", zap.Error(jerr))
		}
	}()

	if err = l.createConstraints(ctx, rc); err != nil {
		return err
	}

	for _, item := range l.spec.LoadOrder {
		switch {
		case strings.HasPrefix(item, mapping.PrefixNodes):
			err = l.loadNodes(ctx, rc, item, strings.TrimPrefix(item, mapping.PrefixNodes))
		case strings.HasPrefix(item, mapping.PrefixRels):
			err = l.loadRels(ctx, rc, item, strings.TrimPrefix(item, mapping.PrefixRels))
		case strings.HasPrefix(item, mapping.PrefixDerived):
			err = l.promote(ctx, rc, item)
		default:
			// Validate() rejects these before any mutation; reaching one here
			// means the spec changed under us.
			err = &errs.ConfigError{Err: errUnknownEntry(item)}
		}
		if err != nil {
			return err
		}
	}

	return RunAssertions(ctx, l.db, l.spec.Validation.GraphAssertions, l.log)
}

func (l *Loader) createConstraints(ctx context.Context, rc RunContext) error {
	for _, stmt := range cypher.ConstraintStatements(l.spec.Runtime.Indexes) {
		start := time.Now()
		err := l.db.RunVoid(ctx, stmt, nil)
		l.recordStep(ctx, rc, stmt, "constraint", start, err)
		if err != nil {
			return &errs.ExecutionError{Entry: stmt, Err: err}
		}
	}
	return nil
}

func (l *Loader) loadNodes(ctx context.Context, rc RunContext, entry, key string) error {
	spec := l.spec.Nodes[key]
	location, err := l.sourceLocation(spec.Source)
	if err != nil {
		return err
	}
	stmt := cypher.BatchedLoadCSV("url", cypher.NodeLoadBody(spec), l.opts.BatchRows)

	l.log.Info("Loading nodes", zap.String("entry", key), zap.String("source", location))
	start := time.Now()
	err = l.db.RunVoid(ctx, stmt, withURL(rc.Params(), location))
	l.recordStep(ctx, rc, entry, "node", start, err)
	if err != nil {
		return &errs.ExecutionError{Entry: entry, Err: err}
	}
	return nil
}

func (l *Loader) loadRels(ctx context.Context, rc RunContext, entry, key string) error {
	spec := l.spec.Relationships[key]
	location, err := l.sourceLocation(spec.Source)
	if err != nil {
		return err
	}
	stmt := cypher.BatchedLoadCSV("url", cypher.RelLoadBody(spec), l.opts.BatchRows)

	l.log.Info("Loading relationships", zap.String("entry", key), zap.String("source", location))
	start := time.Now()
	err = l.db.RunVoid(ctx, stmt, withURL(rc.Params(), location))
	l.recordStep(ctx, rc, entry, "relationship", start, err)
	if err != nil {
		return &errs.ExecutionError{Entry: entry, Err: err}
	}

	// Right after loading the discriminator-bearing relationship is the only
	// point where a null-discriminator sweep makes sense: later loads depend
	// on the generic edges staying put.
	if l.opts.Cleanup.Enabled {
		if _, carries := spec.Properties[cypher.DiscriminatorProp]; carries {
			_, err := CleanupNullDiscriminators(ctx, l.db, spec.From.Label, spec.To.Label, spec.Type, l.opts.Cleanup, l.log)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) promote(ctx context.Context, rc RunContext, entry string) error {
	rules := l.spec.Derived.PromoteNamedEdges
	if rules == nil {
		return nil
	}
	from, to, relType, ok := GenericEdge(l.spec)
	if !ok {
		return &errs.ConfigError{Err: errNoGenericEdge}
	}
	l.log.Info("Promoting named edges", zap.Int("rules", len(rules.Map)))
	for _, rule := range rules.Map {
		stmt, params := cypher.PromoteStatement(from, to, relType, rule)
		start := time.Now()
		err := l.db.RunVoid(ctx, stmt, params)
		l.recordStep(ctx, rc, entry, "derived", start, err)
		if err != nil {
			return &errs.ExecutionError{Entry: entry, Err: err}
		}
	}
	return nil
}

// GenericEdge locates the relationship spec carrying the discriminator;
// promotion and cleanup read generic edges of that type between its endpoint
// labels. When several specs qualify, load_order position decides, so the
// pick is stable across runs; specs outside the load order are considered
// last, in name order.
func GenericEdge(spec *mapping.Spec) (fromLabel, toLabel, relType string, ok bool) {
	carries := func(rel mapping.RelSpec) bool {
		_, has := rel.Properties[cypher.DiscriminatorProp]
		return has
	}

	inOrder := make(map[string]bool, len(spec.Relationships))
	for _, item := range spec.LoadOrder {
		if !strings.HasPrefix(item, mapping.PrefixRels) {
			continue
		}
		name := strings.TrimPrefix(item, mapping.PrefixRels)
		inOrder[name] = true
		if rel, declared := spec.Relationships[name]; declared && carries(rel) {
			return rel.From.Label, rel.To.Label, rel.Type, true
		}
	}

	names := make([]string, 0, len(spec.Relationships))
	for name := range spec.Relationships {
		if !inOrder[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if rel := spec.Relationships[name]; carries(rel) {
			return rel.From.Label, rel.To.Label, rel.Type, true
		}
	}
	return "", "", "", false
}

func (l *Loader) sourceLocation(name string) (string, error) {
	src, err := l.spec.Source(name)
	if err != nil {
		return "", &errs.ConfigError{Err: err}
	}
	return l.fetcher.Resolve(src.Path), nil
}

func (l *Loader) recordStep(ctx context.Context, rc RunContext, entry, kind string, start time.Time, execErr error) {
	step := journal.StepRecord{
		RunID:    rc.RunID,
		Entry:    entry,
		Kind:     kind,
		Duration: time.Since(start),
	}
	if execErr != nil {
		step.Err = execErr.Error()
	}
	if err := l.journal.RecordStep(ctx, step); err != nil {
		l.log.Warn("Failed to journal step", zap.String("entry", entry), zap.Error(err))
	}
}

func withURL(params map[string]any, location string) map[string]any {
	params["url"] = location
	return params
}
