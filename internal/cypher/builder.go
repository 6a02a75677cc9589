package cypher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

// DiscriminatorProp is the relationship property that splits otherwise
// identical generic edges into logically distinct links. When a relationship
// spec carries it, the value participates in the merge pattern itself so
// that distinct discriminator values always produce distinct edges.
const DiscriminatorProp = "linkid"

// Provenance parameter names supplied by the run context.
const (
	ParamSourceSystem = "source_system"
	ParamIngestBatch  = "ingest_batch"
)

// provenanceSetters stamps the audit properties on the merged entity. The
// timestamp is wall-clock at write time, by design: a re-run refreshes it.
func provenanceSetters(alias string) []string {
	return []string{
		fmt.Sprintf("%s.source_system = $%s", alias, ParamSourceSystem),
		fmt.Sprintf("%s.ingest_batch = $%s", alias, ParamIngestBatch),
		fmt.Sprintf("%s.ingested_at = datetime()", alias),
	}
}

// sortedProps returns property names in a stable order so statement text is
// deterministic across runs.
func sortedProps(m map[string]mapping.FieldSpec) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeLoadBody builds the per-row statement body for a node spec: skip-guard
// on the key columns, merge by compiled key values, then set every mapped
// property plus provenance. The body starts at "WITH row" and is meant to be
// wrapped by BatchedLoadCSV.
func NodeLoadBody(spec mapping.NodeSpec) string {
	guards := make([]Pred, 0, len(spec.Key))
	merge := make([]string, 0, len(spec.Key))
	for _, k := range spec.Key {
		field := spec.Mappings[k]
		guards = append(guards, NonEmptyGuard(field.Column))
		// Key fields merge on the plain cast; a nullable key would break
		// merge identity.
		keyField := field
		keyField.Nullable = false
		merge = append(merge, fmt.Sprintf("%s: %s", k, Render(CompileField(keyField))))
	}

	isKey := make(map[string]bool, len(spec.Key))
	for _, k := range spec.Key {
		isKey[k] = true
	}

	setters := make([]string, 0, len(spec.Mappings)+3)
	for _, prop := range sortedProps(spec.Mappings) {
		field := spec.Mappings[prop]
		if isKey[prop] {
			field.Nullable = false
		}
		setters = append(setters, fmt.Sprintf("n.`%s` = %s", prop, Render(CompileField(field))))
	}
	setters = append(setters, provenanceSetters("n")...)

	var b strings.Builder
	fmt.Fprintf(&b, "WITH row WHERE %s\n", RenderPred(And{Preds: guards}))
	fmt.Fprintf(&b, "MERGE (n:`%s` { %s })\n", spec.Label, strings.Join(merge, ", "))
	b.WriteString("SET " + strings.Join(setters, ", "))
	return b.String()
}

// RelLoadBody builds the per-row statement body for a relationship spec:
// skip-guard on every endpoint-matching column (and the discriminator when
// present), match both endpoints, merge the edge in the declared direction,
// then set properties plus provenance.
func RelLoadBody(spec mapping.RelSpec) string {
	var guards []Pred
	for _, pair := range append(spec.From.Pairs(), spec.To.Pairs()...) {
		guards = append(guards, NonEmptyGuard(pair.SourceColumn))
	}

	mergeProps := ""
	if disc, ok := spec.Properties[DiscriminatorProp]; ok {
		// A merge keyed partly on a missing discriminator would collapse
		// distinct links into duplicate edges, so such rows are skipped.
		guards = append(guards, NonEmptyGuard(disc.Column))
		mergeProps = fmt.Sprintf(" { %s: %s }", DiscriminatorProp, Render(EndpointKey(disc.Column)))
	}

	pattern := fmt.Sprintf("(x_from)-[r:`%s`%s]->(x_to)", spec.Type, mergeProps)
	if spec.Direction == mapping.DirectionIn {
		pattern = fmt.Sprintf("(x_to)-[r:`%s`%s]->(x_from)", spec.Type, mergeProps)
	}

	setters := make([]string, 0, len(spec.Properties)+3)
	for _, prop := range sortedProps(spec.Properties) {
		field := spec.Properties[prop]
		setters = append(setters, fmt.Sprintf("r.`%s` = %s", prop, Render(CompileField(field))))
	}
	setters = append(setters, provenanceSetters("r")...)

	var b strings.Builder
	fmt.Fprintf(&b, "WITH row WHERE %s\n", RenderPred(And{Preds: guards}))
	fmt.Fprintf(&b, "MATCH %s, %s\n", endpointPattern("from", spec.From), endpointPattern("to", spec.To))
	fmt.Fprintf(&b, "MERGE %s\n", pattern)
	b.WriteString("SET " + strings.Join(setters, ", "))
	return b.String()
}

func endpointPattern(role string, ep mapping.Endpoint) string {
	parts := make([]string, 0, len(ep.MatchOn))
	for _, pair := range ep.Pairs() {
		parts = append(parts, fmt.Sprintf("`%s`: %s", pair.TargetProp, Render(EndpointKey(pair.SourceColumn))))
	}
	return fmt.Sprintf("(x_%s:`%s` { %s })", role, ep.Label, strings.Join(parts, ", "))
}

// BatchedLoadCSV wraps a statement body in a chunked LOAD CSV so one run
// never holds a single unbounded transaction. Chunks already committed
// survive a mid-run failure; recovery is idempotent re-invocation.
func BatchedLoadCSV(urlParam, body string, rows int) string {
	indented := strings.ReplaceAll(body, "\n", "\n  ")
	return fmt.Sprintf(
		"LOAD CSV WITH HEADERS FROM $%s AS row\nCALL (row) {\n  %s\n} IN TRANSACTIONS OF %d ROWS",
		urlParam, indented, rows,
	)
}

// ConstraintStatements renders the index and constraint declarations from the
// mapping runtime section. All statements are IF NOT EXISTS, so re-running
// them is harmless.
func ConstraintStatements(indexes []mapping.RuntimeIndex) []string {
	stmts := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if len(idx.Properties) == 0 {
			continue
		}
		prop := idx.Properties[0]
		switch idx.Kind {
		case "constraint":
			if idx.Unique {
				stmts = append(stmts, fmt.Sprintf(
					"CREATE CONSTRAINT IF NOT EXISTS FOR (n:`%s`) REQUIRE n.`%s` IS UNIQUE", idx.Label, prop))
			} else {
				stmts = append(stmts, fmt.Sprintf(
					"CREATE INDEX IF NOT EXISTS FOR (n:`%s`) ON (n.`%s`)", idx.Label, prop))
			}
		case "rel_index":
			stmts = append(stmts, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS FOR ()-[r:`%s`]-() ON (r.`%s`)", idx.Type, prop))
		}
	}
	return stmts
}

// PromoteStatement renders the derived-edge promotion for one rule: every
// generic edge carrying the rule's discriminator value additionally gets a
// same-endpoint edge of the named type. The generic edge is retained, and
// re-running the merge is idempotent. Provenance is inherited from the
// source edge when present, with fixed fallbacks otherwise.
func PromoteStatement(fromLabel, toLabel, genericType string, rule mapping.DerivedEdgeRule) (string, map[string]any) {
	stmt := fmt.Sprintf(
		"MATCH (a:`%s`)-[r:`%s` {%s: $lid}]->(b:`%s`)\n"+
			"MERGE (a)-[x:`%s`]->(b)\n"+
			"ON CREATE SET x.source_system = coalesce(r.source_system, 'wordnet'), "+
			"x.ingest_batch = coalesce(r.ingest_batch, 'derived'), "+
			"x.ingested_at = datetime()",
		fromLabel, genericType, DiscriminatorProp, toLabel, rule.Type,
	)
	return stmt, map[string]any{"lid": rule.LinkID}
}
