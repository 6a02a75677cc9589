package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lexigraph/lexigraph-cli/internal/errs"
	"github.com/lexigraph/lexigraph-cli/internal/graph"
	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

// RunAssertions executes every post-load graph assertion. Each query is
// expected to return one row with a boolean-like "ok" field: true/1 passes,
// anything else fails the run. A result without the "ok" field is logged
// loudly and counted, but does not by itself fail the run — assertions that
// never signal either way are an authoring problem, not a data verdict.
func RunAssertions(ctx context.Context, db graph.Runner, assertions []mapping.Assertion, log *zap.Logger) error {
	log = log.Named("validation")
	shapeless := 0

	for _, assertion := range assertions {
		name := assertion.Name
		if name == "" {
			name = assertion.Cypher
		}
		rows, err := db.Run(ctx, assertion.Cypher, nil)
		if err != nil {
			return &errs.ExecutionError{Entry: fmt.Sprintf("assertion %q", name), Err: err}
		}

		if len(rows) == 0 {
			shapeless++
			log.Error("Assertion returned no rows; expected an 'ok' field",
				zap.String("assertion", name), zap.String("cypher", assertion.Cypher))
			continue
		}
		ok, present := rows[0]["ok"]
		if !present {
			shapeless++
			log.Error("Assertion result has no 'ok' field",
				zap.String("assertion", name), zap.String("cypher", assertion.Cypher),
				zap.Any("result", rows[0]))
			continue
		}
		if !truthy(ok) {
			return &errs.ValidationError{Assertion: name, Cypher: assertion.Cypher, Result: rows[0]}
		}
		log.Info("Assertion passed", zap.String("assertion", name))
	}

	if shapeless > 0 {
		log.Warn("Assertions with unusable result shape", zap.Int("count", shapeless))
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x == 1
	case int:
		return x == 1
	case float64:
		return x == 1
	default:
		return false
	}
}
