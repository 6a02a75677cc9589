// Package mapping parses and validates the declarative mapping document that
// drives a load run: which CSV sources exist, how their columns become node
// and relationship properties, and in what order entities are loaded.
package mapping

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Field types supported by the expression compiler.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
)

// Relationship directions, relative to the from/to endpoints.
const (
	DirectionOut = "OUT"
	DirectionIn  = "IN"
)

// Load order entry prefixes. Every load_order item must carry one of these.
const (
	PrefixNodes   = "nodes."
	PrefixRels    = "relationships."
	PrefixDerived = "derived_relationships."
)

// Source is one named CSV input, optionally annotated with the expected
// checksum and row count from the manifest.
type Source struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Checksum string `json:"checksum_sha256,omitempty"`
	Rows     *int64 `json:"rows,omitempty"`
}

// FieldSpec maps one source column to one target property.
type FieldSpec struct {
	Column    string   `json:"column"`
	Type      string   `json:"type,omitempty"`
	Transform []string `json:"transform,omitempty"`
	Nullable  bool     `json:"nullable,omitempty"`
}

// HasTransform reports whether the named transform was requested.
func (f FieldSpec) HasTransform(name string) bool {
	for _, t := range f.Transform {
		if t == name {
			return true
		}
	}
	return false
}

// NodeSpec describes how rows of one source become nodes of one label.
type NodeSpec struct {
	Source   string               `json:"source"`
	Label    string               `json:"label"`
	Key      []string             `json:"key"`
	Mappings map[string]FieldSpec `json:"mappings"`
}

// Endpoint locates one end of a relationship: an existing node of Label,
// matched on the MatchOn columns. Each entry is "sourceColumn" or
// "sourceColumn:targetProperty".
type Endpoint struct {
	Label   string   `json:"label"`
	MatchOn []string `json:"match_on"`
}

// MatchPair is one resolved match_on entry.
type MatchPair struct {
	SourceColumn string
	TargetProp   string
}

// Pairs resolves the MatchOn shorthand; the target property defaults to the
// source column name.
func (e Endpoint) Pairs() []MatchPair {
	pairs := make([]MatchPair, 0, len(e.MatchOn))
	for _, m := range e.MatchOn {
		col, prop, found := strings.Cut(m, ":")
		if !found {
			prop = col
		}
		pairs = append(pairs, MatchPair{SourceColumn: col, TargetProp: prop})
	}
	return pairs
}

// RelSpec describes how rows of one source become relationships.
type RelSpec struct {
	Source     string               `json:"source"`
	Type       string               `json:"type"`
	Direction  string               `json:"direction,omitempty"`
	From       Endpoint             `json:"from"`
	To         Endpoint             `json:"to"`
	Properties map[string]FieldSpec `json:"properties,omitempty"`
}

// DerivedEdgeRule promotes generic edges carrying one discriminator value
// into an additional edge of a named type.
type DerivedEdgeRule struct {
	LinkID int64  `json:"linkid"`
	Type   string `json:"type"`
}

// PromoteNamedEdges is the derived-edge promotion table.
type PromoteNamedEdges struct {
	Map []DerivedEdgeRule `json:"map"`
}

// DerivedRelationships holds all derived-edge rule sets.
type DerivedRelationships struct {
	PromoteNamedEdges *PromoteNamedEdges `json:"promote_named_edges,omitempty"`
}

// RuntimeIndex declares one constraint or index to create before loading.
type RuntimeIndex struct {
	Kind       string   `json:"kind"` // "constraint" or "rel_index"
	Label      string   `json:"label,omitempty"`
	Type       string   `json:"type,omitempty"`
	Properties []string `json:"properties"`
	Unique     bool     `json:"unique,omitempty"`
}

// Runtime carries execution-time declarations from the mapping document.
type Runtime struct {
	Indexes []RuntimeIndex `json:"indexes,omitempty"`
}

// Assertion is one post-load graph check. The query is expected to return a
// single row with a boolean-like "ok" field.
type Assertion struct {
	Name   string `json:"name,omitempty"`
	Cypher string `json:"cypher"`
}

// Validation groups the post-load assertions.
type Validation struct {
	GraphAssertions []Assertion `json:"graph_assertions,omitempty"`
}

// IngestBatch carries the provenance defaults attached to every written
// node and relationship.
type IngestBatch struct {
	AttachProperties map[string]string `json:"attach_properties,omitempty"`
}

// Spec is the root mapping document.
type Spec struct {
	Dataset       string                `json:"dataset,omitempty"`
	Version       string                `json:"version,omitempty"`
	Sources       []Source              `json:"sources"`
	Nodes         map[string]NodeSpec   `json:"nodes,omitempty"`
	Relationships map[string]RelSpec    `json:"relationships,omitempty"`
	Derived       DerivedRelationships  `json:"derived_relationships,omitempty"`
	Runtime       Runtime               `json:"runtime,omitempty"`
	Validation    Validation            `json:"validation,omitempty"`
	IngestBatch   IngestBatch           `json:"ingest_batch,omitempty"`
	LoadOrder     []string              `json:"load_order"`
}

// Load reads and decodes a mapping document from disk.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a mapping document from raw JSON.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode mapping document: %w", err)
	}
	return &spec, nil
}

// Source returns the named source, or an error when the mapping does not
// declare it.
func (s *Spec) Source(name string) (Source, error) {
	for _, src := range s.Sources {
		if src.Name == name {
			return src, nil
		}
	}
	return Source{}, fmt.Errorf("source %q not found in mapping.sources", name)
}

// SourceSystem returns the provenance tag every written entity is stamped
// with, defaulting to "wordnet" when the mapping does not override it.
func (s *Spec) SourceSystem() string {
	if v, ok := s.IngestBatch.AttachProperties["source_system"]; ok && v != "" {
		return v
	}
	return "wordnet"
}
