package cypher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

const normalizedPos = `CASE WHEN trim(replace(row.` + "`pos`" + `, '\uFEFF', '')) = '\\N' THEN '' ELSE trim(replace(row.` + "`pos`" + `, '\uFEFF', '')) END`

func TestNormalized(t *testing.T) {
	got := Render(Normalized("pos"))
	assert.Equal(t, normalizedPos, got)
}

func TestCompileField_StringTrimLower(t *testing.T) {
	field := mapping.FieldSpec{Column: "pos", Type: mapping.TypeString, Transform: []string{"trim", "lower"}}
	got := Render(CompileField(field))
	assert.Equal(t, "toLower("+normalizedPos+")", got)
}

func TestCompileField_Int(t *testing.T) {
	field := mapping.FieldSpec{Column: "synsetid", Type: mapping.TypeInt}
	got := Render(CompileField(field))
	assert.Equal(t, "toInteger("+normalizedSynsetid+")", got)
}

const normalizedSynsetid = `CASE WHEN trim(replace(row.` + "`synsetid`" + `, '\uFEFF', '')) = '\\N' THEN '' ELSE trim(replace(row.` + "`synsetid`" + `, '\uFEFF', '')) END`

const normalizedDefinition = `CASE WHEN trim(replace(row.` + "`definition`" + `, '\uFEFF', '')) = '\\N' THEN '' ELSE trim(replace(row.` + "`definition`" + `, '\uFEFF', '')) END`

func TestCompileField_NullableChecksNormalizedValue(t *testing.T) {
	field := mapping.FieldSpec{Column: "definition", Type: mapping.TypeString, Nullable: true}
	got := Render(CompileField(field))

	assert.Equal(t,
		"CASE WHEN row.`definition` IS NULL OR "+normalizedDefinition+" = '' THEN NULL ELSE "+normalizedDefinition+" END",
		got)
}

func TestCompileField_NullableBOMOnlyCellIsAbsent(t *testing.T) {
	// A cell holding only a BOM, whitespace, or the sentinel normalizes to
	// the empty string, so the emptiness test must run after BOM strip and
	// trim or such cells leak through as ''.
	field := mapping.FieldSpec{Column: "definition", Type: mapping.TypeString, Nullable: true}
	got := Render(CompileField(field))

	idx := strings.Index(got, "THEN NULL")
	require.Positive(t, idx)
	when := got[:idx]
	assert.Contains(t, when, `trim(replace(row.`+"`definition`"+`, '\uFEFF', ''))`)
	assert.Contains(t, when, `= '\\N' THEN ''`)
}

func TestCompileField_NullableCoercesAfterNormalization(t *testing.T) {
	field := mapping.FieldSpec{Column: "sensekey", Type: mapping.TypeFloat, Nullable: true}
	got := Render(CompileField(field))

	// Coercion wraps the normalized value inside the nullable CASE.
	assert.Contains(t, got, "toFloat(CASE WHEN trim(replace(row.`sensekey`")
}

func TestCompileField_LowerBeforeCoercion(t *testing.T) {
	field := mapping.FieldSpec{Column: "code", Type: mapping.TypeInt, Transform: []string{"lower"}}
	got := Render(CompileField(field))

	// toInteger must be outermost: case-folding happens before coercion.
	assert.NotContains(t, got, "toLower(toInteger")
	assert.Contains(t, got, "toInteger(toLower(")
}

func TestNonEmptyGuard(t *testing.T) {
	got := RenderPred(NonEmptyGuard("pos"))
	assert.Equal(t, normalizedPos+" <> ''", got)
}

func TestStrEscaping(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "abc", "'abc'"},
		{"quote", "it's", `'it\'s'`},
		{"backslash", `\N`, `'\\N'`},
		{"bom", "\uFEFF", `'\uFEFF'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(Str{tt.value}))
		})
	}
}

func TestEndpointKey(t *testing.T) {
	got := Render(EndpointKey("synset1id"))
	assert.Contains(t, got, "toInteger(CASE WHEN trim(replace(row.`synset1id`")
}
