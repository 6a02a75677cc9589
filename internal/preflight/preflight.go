// Package preflight verifies source integrity before any graph mutation:
// checksum and row count against the manifest annotations, plus a data
// quality scan for missing discriminator values.
package preflight

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/lexigraph/lexigraph-cli/internal/cypher"
	"github.com/lexigraph/lexigraph-cli/internal/errs"
	"github.com/lexigraph/lexigraph-cli/internal/fetch"
	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

// Options selects which checks run and how strict they are.
type Options struct {
	VerifyChecksums bool
	VerifyRowCounts bool
	// StrictMissingDiscriminator promotes the missing-discriminator warning
	// to a run-aborting DataQualityError.
	StrictMissingDiscriminator bool
}

// Checker runs the preflight checks over the mapping's sources.
type Checker struct {
	fetcher *fetch.Fetcher
	log     *zap.Logger
	opts    Options
}

// New creates a preflight checker.
func New(fetcher *fetch.Fetcher, opts Options, logger *zap.Logger) *Checker {
	return &Checker{
		fetcher: fetcher,
		log:     logger.Named("preflight"),
		opts:    opts,
	}
}

// Enabled reports whether any check is switched on.
func (c *Checker) Enabled() bool {
	return c.opts.VerifyChecksums || c.opts.VerifyRowCounts || c.opts.StrictMissingDiscriminator
}

// Run verifies every declared source. The first integrity failure aborts;
// data quality findings for discriminator-bearing sources are reported with
// their exact violating count and abort only in strict mode.
func (c *Checker) Run(ctx context.Context, spec *mapping.Spec) error {
	discSources := discriminatorSources(spec)

	for _, src := range spec.Sources {
		location := c.fetcher.Resolve(src.Path)
		log := c.log.With(zap.String("source", src.Name), zap.String("location", location))

		if c.opts.VerifyChecksums && src.Checksum != "" {
			got, err := c.fetcher.SHA256(ctx, location)
			if err != nil {
				return fmt.Errorf("preflight checksum of %s: %w", src.Name, err)
			}
			if got != src.Checksum {
				return &errs.IntegrityError{
					Source:   src.Name,
					Kind:     errs.IntegrityChecksum,
					Got:      got,
					Expected: src.Checksum,
				}
			}
			log.Info("Checksum verified")
		}

		if c.opts.VerifyRowCounts && src.Rows != nil {
			got, err := c.fetcher.CountRows(ctx, location)
			if err != nil {
				return fmt.Errorf("preflight rowcount of %s: %w", src.Name, err)
			}
			if got != *src.Rows {
				return &errs.IntegrityError{
					Source:   src.Name,
					Kind:     errs.IntegrityRowCount,
					Got:      strconv.FormatInt(got, 10),
					Expected: strconv.FormatInt(*src.Rows, 10),
				}
			}
			log.Info("Row count verified", zap.Int64("rows", got))
		}

		if column, ok := discSources[src.Name]; ok {
			missing, err := c.fetcher.CountMissingColumn(ctx, location, column)
			if err != nil {
				// Inspection trouble is not a data verdict; report and move on.
				log.Warn("Could not inspect discriminator column", zap.String("column", column), zap.Error(err))
				continue
			}
			if missing > 0 {
				if c.opts.StrictMissingDiscriminator {
					return &errs.DataQualityError{Source: src.Name, Column: column, Count: missing}
				}
				log.Warn("Rows with empty discriminator will be skipped",
					zap.String("column", column), zap.Int("rows", missing))
			}
		}
	}
	return nil
}

// discriminatorSources maps source name to the discriminator's CSV column
// for every relationship spec that carries the discriminator property.
func discriminatorSources(spec *mapping.Spec) map[string]string {
	out := make(map[string]string)
	for _, rel := range spec.Relationships {
		if disc, ok := rel.Properties[cypher.DiscriminatorProp]; ok {
			out[rel.Source] = disc.Column
		}
	}
	return out
}
