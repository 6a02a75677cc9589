// Package errs defines the run-level error taxonomy and the stable exit
// codes automation branches on.
package errs

import (
	"errors"
	"fmt"
)

// Stable process exit codes. Scripts depend on these values; do not renumber.
const (
	ExitFailure              = 1
	ExitMissingCredentials   = 2
	ExitChecksumMismatch     = 3
	ExitRowCountMismatch     = 4
	ExitValidationFailure    = 5
	ExitMissingDiscriminator = 6
)

// ErrMissingCredentials is returned when no database password is available
// from flags, config, or the environment.
var ErrMissingCredentials = errors.New("no database password provided")

// ConfigError marks a malformed or incomplete mapping/manifest. Fatal before
// any mutation.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("configuration error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Integrity check kinds.
const (
	IntegrityChecksum = "checksum"
	IntegrityRowCount = "rowcount"
)

// IntegrityError marks a preflight mismatch between a source and its
// manifest annotation. Fatal before any mutation for this run.
type IntegrityError struct {
	Source   string
	Kind     string // IntegrityChecksum or IntegrityRowCount
	Got      string
	Expected string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("source %s: %s mismatch (got %s, expected %s)", e.Source, e.Kind, e.Got, e.Expected)
}

// DataQualityError marks missing discriminator values found during preflight
// when strict mode promotes the warning to a failure. Count is the exact
// number of violating rows.
type DataQualityError struct {
	Source string
	Column string
	Count  int
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("source %s has %d rows with empty %s", e.Source, e.Count, e.Column)
}

// ValidationError marks a post-load assertion that evaluated false. The data
// state is left as loaded; merges make re-invocation safe.
type ValidationError struct {
	Assertion string
	Cypher    string
	Result    any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation %q failed: %s -> %v", e.Assertion, e.Cypher, e.Result)
}

// ExecutionError wraps a database failure mid-statement. Not retried
// automatically; the recovery path is operator re-invocation.
type ExecutionError struct {
	Entry string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Entry, e.Err)
}
func (e *ExecutionError) Unwrap() error { return e.Err }

// ExitCode maps an error to its stable exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrMissingCredentials) {
		return ExitMissingCredentials
	}
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		if integrity.Kind == IntegrityRowCount {
			return ExitRowCountMismatch
		}
		return ExitChecksumMismatch
	}
	var quality *DataQualityError
	if errors.As(err, &quality) {
		return ExitMissingDiscriminator
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return ExitValidationFailure
	}
	return ExitFailure
}
