// Package cypher compiles mapping field specifications into Cypher value
// expressions and assembles the load statements executed against the graph.
// Expressions and predicates are built as a small typed AST and rendered at
// the end, so the compiler itself never does string escaping.
package cypher

import (
	"strings"

	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

// Sentinel is the "no data" marker bulk CSV exports use for absent values.
const Sentinel = `\N`

// Expr is a renderable Cypher value expression.
type Expr interface {
	writeTo(b *strings.Builder)
}

// Pred is a renderable Cypher boolean predicate.
type Pred interface {
	writeTo(b *strings.Builder)
}

// Column references a field of the LOAD CSV row variable.
type Column struct{ Name string }

// Param references a query parameter.
type Param struct{ Name string }

// Str is a quoted string literal.
type Str struct{ Value string }

// Null is the Cypher NULL literal.
type Null struct{}

// Call applies a Cypher function to its arguments.
type Call struct {
	Fn   string
	Args []Expr
}

// CaseWhen is a two-armed CASE expression.
type CaseWhen struct {
	When Pred
	Then Expr
	Else Expr
}

// Eq compares two expressions for equality.
type Eq struct{ L, R Expr }

// Ne compares two expressions for inequality.
type Ne struct{ L, R Expr }

// IsNull tests an expression for NULL.
type IsNull struct{ E Expr }

// Or joins predicates with OR.
type Or struct{ Preds []Pred }

// And joins predicates with AND.
type And struct{ Preds []Pred }

func (c Column) writeTo(b *strings.Builder) {
	b.WriteString("row.`")
	b.WriteString(c.Name)
	b.WriteString("`")
}

func (p Param) writeTo(b *strings.Builder) {
	b.WriteString("$")
	b.WriteString(p.Name)
}

func (s Str) writeTo(b *strings.Builder) {
	b.WriteByte('\'')
	for _, r := range s.Value {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\uFEFF':
			// Keep the BOM visible as an escape rather than a raw byte.
			b.WriteString(`\uFEFF`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
}

func (Null) writeTo(b *strings.Builder) {
	b.WriteString("NULL")
}

func (c Call) writeTo(b *strings.Builder) {
	b.WriteString(c.Fn)
	b.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.writeTo(b)
	}
	b.WriteByte(')')
}

func (c CaseWhen) writeTo(b *strings.Builder) {
	b.WriteString("CASE WHEN ")
	c.When.writeTo(b)
	b.WriteString(" THEN ")
	c.Then.writeTo(b)
	b.WriteString(" ELSE ")
	c.Else.writeTo(b)
	b.WriteString(" END")
}

func (e Eq) writeTo(b *strings.Builder) {
	e.L.writeTo(b)
	b.WriteString(" = ")
	e.R.writeTo(b)
}

func (e Ne) writeTo(b *strings.Builder) {
	e.L.writeTo(b)
	b.WriteString(" <> ")
	e.R.writeTo(b)
}

func (p IsNull) writeTo(b *strings.Builder) {
	p.E.writeTo(b)
	b.WriteString(" IS NULL")
}

func (o Or) writeTo(b *strings.Builder) {
	for i, p := range o.Preds {
		if i > 0 {
			b.WriteString(" OR ")
		}
		p.writeTo(b)
	}
}

func (a And) writeTo(b *strings.Builder) {
	for i, p := range a.Preds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		p.writeTo(b)
	}
}

// Render produces the Cypher text of an expression.
func Render(e Expr) string {
	var b strings.Builder
	e.writeTo(&b)
	return b.String()
}

// RenderPred produces the Cypher text of a predicate.
func RenderPred(p Pred) string {
	var b strings.Builder
	p.writeTo(&b)
	return b.String()
}

// Normalized is the cleaned form of a raw column value: BOM stripped, then
// trimmed, then the \N sentinel collapsed to the empty string. Every other
// transform and coercion operates on this.
func Normalized(col string) Expr {
	cleaned := Call{Fn: "trim", Args: []Expr{
		Call{Fn: "replace", Args: []Expr{Column{col}, Str{"\uFEFF"}, Str{""}}},
	}}
	return CaseWhen{
		When: Eq{L: cleaned, R: Str{Sentinel}},
		Then: Str{""},
		Else: cleaned,
	}
}

// NonEmptyGuard is the skip-guard predicate: true when the normalized column
// value is non-empty. Rows failing it carry no usable key and are filtered
// out before the merge.
func NonEmptyGuard(col string) Pred {
	return Ne{L: Normalized(col), R: Str{""}}
}

// CompileField turns a field specification into the expression producing its
// coerced value. Order is fixed: BOM strip, trim, sentinel normalization,
// optional case-folding, then type coercion. A non-nullable empty field
// coerces the empty string (toInteger('') evaluates to NULL server-side).
func CompileField(f mapping.FieldSpec) Expr {
	e := Normalized(f.Column)
	if f.HasTransform("lower") {
		e = Call{Fn: "toLower", Args: []Expr{e}}
	}
	switch f.Type {
	case mapping.TypeInt:
		e = Call{Fn: "toInteger", Args: []Expr{e}}
	case mapping.TypeFloat:
		e = Call{Fn: "toFloat", Args: []Expr{e}}
	}
	if !f.Nullable {
		return e
	}
	// Absence is judged on the normalized value: a cell holding only a BOM,
	// whitespace, or the sentinel is NULL, never the empty string.
	absent := Or{Preds: []Pred{
		IsNull{E: Column{f.Column}},
		Eq{L: Normalized(f.Column), R: Str{""}},
	}}
	return CaseWhen{When: absent, Then: Null{}, Else: e}
}

// EndpointKey is the integer reference-key expression used to locate
// relationship endpoints: normalized column coerced to an integer.
func EndpointKey(col string) Expr {
	return Call{Fn: "toInteger", Args: []Expr{Normalized(col)}}
}
