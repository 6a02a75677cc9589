package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMapping = `{
  "dataset": "wordnet",
  "version": "3.1",
  "ingest_batch": { "attach_properties": { "source_system": "wordnet" } },
  "sources": [
    { "name": "synsets", "path": "csv/synsets.csv" },
    { "name": "semlinkref", "path": "csv/semlinkref.csv" }
  ],
  "nodes": {
    "synset": {
      "source": "synsets",
      "label": "synset",
      "key": ["synsetid"],
      "mappings": {
        "synsetid": { "column": "synsetid", "type": "int" },
        "pos": { "column": "pos", "type": "string", "transform": ["trim", "lower"] },
        "definition": { "column": "definition", "type": "string", "nullable": true }
      }
    }
  },
  "relationships": {
    "semantic_SYNSET": {
      "source": "semlinkref",
      "type": "SYNSET",
      "direction": "OUT",
      "from": { "label": "synset", "match_on": ["synset1id:synsetid"] },
      "to": { "label": "synset", "match_on": ["synset2id:synsetid"] },
      "properties": {
        "linkid": { "column": "linkid", "type": "int" }
      }
    }
  },
  "derived_relationships": {
    "promote_named_edges": {
      "map": [
        { "linkid": 1, "type": "HYPERNYM" },
        { "linkid": 2, "type": "HYPONYM" }
      ]
    }
  },
  "runtime": {
    "indexes": [
      { "kind": "constraint", "label": "synset", "properties": ["synsetid"], "unique": true },
      { "kind": "rel_index", "type": "SYNSET", "properties": ["linkid"] }
    ]
  },
  "validation": {
    "graph_assertions": [
      { "name": "synsets_exist", "cypher": "MATCH (n:synset) RETURN count(n) > 0 AS ok" }
    ]
  },
  "load_order": ["nodes.synset", "relationships.semantic_SYNSET", "derived_relationships.promote_named_edges"]
}`

func parseSample(t *testing.T) *Spec {
	t.Helper()
	spec, err := Parse([]byte(sampleMapping))
	require.NoError(t, err)
	return spec
}

func TestParse(t *testing.T) {
	spec := parseSample(t)

	assert.Equal(t, "3.1", spec.Version)
	assert.Len(t, spec.Sources, 2)
	require.Contains(t, spec.Nodes, "synset")
	assert.Equal(t, []string{"synsetid"}, spec.Nodes["synset"].Key)
	require.Contains(t, spec.Relationships, "semantic_SYNSET")
	assert.Equal(t, "SYNSET", spec.Relationships["semantic_SYNSET"].Type)
	require.NotNil(t, spec.Derived.PromoteNamedEdges)
	assert.Len(t, spec.Derived.PromoteNamedEdges.Map, 2)
	assert.Equal(t, int64(1), spec.Derived.PromoteNamedEdges.Map[0].LinkID)
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, parseSample(t).Validate())
}

func TestValidate_UnresolvedLoadOrder(t *testing.T) {
	spec := parseSample(t)
	spec.LoadOrder = append(spec.LoadOrder, "nodes.missing")

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes.missing")
}

func TestValidate_UnrecognizedLoadOrder(t *testing.T) {
	spec := parseSample(t)
	spec.LoadOrder = []string{"nodes.synset", "cleanup.everything"}

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized load_order entry")
}

func TestValidate_KeyWithoutMapping(t *testing.T) {
	spec := parseSample(t)
	node := spec.Nodes["synset"]
	node.Key = []string{"synsetid", "ghost"}
	spec.Nodes["synset"] = node

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `key field "ghost"`)
}

func TestValidate_UnknownSource(t *testing.T) {
	spec := parseSample(t)
	node := spec.Nodes["synset"]
	node.Source = "nowhere"
	spec.Nodes["synset"] = node

	require.Error(t, spec.Validate())
}

func TestValidate_BadTransform(t *testing.T) {
	spec := parseSample(t)
	node := spec.Nodes["synset"]
	node.Mappings["pos"] = FieldSpec{Column: "pos", Transform: []string{"reverse"}}

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported transform "reverse"`)
}

func TestEndpointPairs(t *testing.T) {
	ep := Endpoint{MatchOn: []string{"synset1id:synsetid", "wordid"}}
	pairs := ep.Pairs()

	require.Len(t, pairs, 2)
	assert.Equal(t, MatchPair{SourceColumn: "synset1id", TargetProp: "synsetid"}, pairs[0])
	assert.Equal(t, MatchPair{SourceColumn: "wordid", TargetProp: "wordid"}, pairs[1])
}

func TestSourceSystemDefault(t *testing.T) {
	spec := &Spec{}
	assert.Equal(t, "wordnet", spec.SourceSystem())

	spec.IngestBatch.AttachProperties = map[string]string{"source_system": "lexicon"}
	assert.Equal(t, "lexicon", spec.SourceSystem())
}

func TestApplyManifest(t *testing.T) {
	spec := parseSample(t)
	spec.ApplyManifest(&Manifest{
		Dataset: "wordnet",
		Version: "3.1",
		Files: []ManifestFile{
			{Name: "synsets.csv", SHA256: "abc123", Rows: 117791},
		},
	})

	src, err := spec.Source("synsets")
	require.NoError(t, err)
	assert.Equal(t, "abc123", src.Checksum)
	require.NotNil(t, src.Rows)
	assert.Equal(t, int64(117791), *src.Rows)

	// semlinkref was not in the manifest and stays unannotated.
	other, err := spec.Source("semlinkref")
	require.NoError(t, err)
	assert.Empty(t, other.Checksum)
	assert.Nil(t, other.Rows)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleMapping), 0o600))

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wordnet", spec.Dataset)

	_, err = Load(filepath.Join(dir, "absent.json"))
	require.Error(t, err)
}
