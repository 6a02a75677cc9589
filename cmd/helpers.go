package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/lexigraph/lexigraph-cli/internal/config"
	"github.com/lexigraph/lexigraph-cli/internal/errs"
	"github.com/lexigraph/lexigraph-cli/internal/loader"
	"github.com/lexigraph/lexigraph-cli/internal/mapping"
)

// loadSpec reads the mapping document, annotates it from the manifest when
// one is given, and validates it. Any structural problem is a ConfigError
// and aborts before a single statement is built.
func loadSpec(mappingPath, manifestPath string) (*mapping.Spec, error) {
	mappingPath, err := homedir.Expand(mappingPath)
	if err != nil {
		return nil, &errs.ConfigError{Err: err}
	}
	spec, err := mapping.Load(mappingPath)
	if err != nil {
		return nil, &errs.ConfigError{Err: err}
	}

	if manifestPath != "" {
		manifestPath, err = homedir.Expand(manifestPath)
		if err != nil {
			return nil, &errs.ConfigError{Err: err}
		}
		manifest, err := mapping.LoadManifest(manifestPath)
		if err != nil {
			return nil, &errs.ConfigError{Err: err}
		}
		spec.ApplyManifest(manifest)
	}

	if err := spec.Validate(); err != nil {
		return nil, &errs.ConfigError{Err: err}
	}
	return spec, nil
}

// promptDecider asks the operator before a destructive cleanup, previewing a
// bounded sample of what would be deleted.
type promptDecider struct {
	in  io.Reader
	out io.Writer
}

func (p promptDecider) Approve(_ context.Context, summary loader.CleanupSummary) (bool, error) {
	fmt.Fprintf(p.out, "\nFound %d :%s relationships missing linkid. Preview (up to %d):\n",
		summary.Total, summary.Type, len(summary.Sample))
	for i, edge := range summary.Sample {
		fmt.Fprintf(p.out, "  [%d] rel_eid=%s FROM (%v %v) %q --> TO (%v %v) %q\n",
			i+1, edge.ElementID,
			edge.FromPos, edge.FromID, str(edge.FromDef),
			edge.ToPos, edge.ToID, str(edge.ToDef))
	}
	fmt.Fprintf(p.out, "\nDelete ALL null-linkid :%s relationships now? [y/N]: ", summary.Type)

	reader := bufio.NewReader(p.in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}

var errNoDiscriminatorRel = fmt.Errorf("no relationship spec carries the discriminator property")

// previewLimit prefers the flag when the operator set it, falling back to the
// configured default.
func previewLimit(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("preview-limit") {
		v, _ := cmd.Flags().GetInt("preview-limit")
		return v
	}
	return cfg.Loader.PreviewLimit
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
