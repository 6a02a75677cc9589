package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lexigraph/lexigraph-cli/internal/config"
	"github.com/lexigraph/lexigraph-cli/internal/errs"
	"github.com/lexigraph/lexigraph-cli/internal/graph"
	"github.com/lexigraph/lexigraph-cli/internal/loader"
	"github.com/lexigraph/lexigraph-cli/internal/observability"
)

// newCleanCmd creates the `clean` command: a standalone null-discriminator
// sweep over an already-loaded graph. The generic edge label and type come
// from the mapping, keeping the CLI free of dataset-specific names.
func newCleanCmd() *cobra.Command {
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Preview and delete generic relationships missing their discriminator",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{
				"neo4j.uri":      "uri",
				"neo4j.user":     "user",
				"neo4j.password": "password",
				"neo4j.database": "database",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			password := cfg.Neo4j.ResolvePassword()
			if password == "" {
				return errs.ErrMissingCredentials
			}

			mappingPath, _ := cmd.Flags().GetString("mapping")
			yes, _ := cmd.Flags().GetBool("yes")
			limit := previewLimit(cmd, cfg)

			spec, err := loadSpec(mappingPath, "")
			if err != nil {
				return err
			}

			fromLabel, toLabel, relType, ok := loader.GenericEdge(spec)
			if !ok {
				return &errs.ConfigError{Err: errNoDiscriminatorRel}
			}

			db, err := graph.Connect(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, password, cfg.Neo4j.Database, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(ctx); err != nil {
					logger.Warn("Failed to close database", zap.Error(err))
				}
			}()

			var decider loader.Decider = promptDecider{in: os.Stdin, out: os.Stdout}
			if yes {
				decider = loader.AutoApprove{}
			}

			deleted, err := loader.CleanupNullDiscriminators(ctx, db, fromLabel, toLabel, relType, loader.CleanupOptions{
				Enabled:      true,
				PreviewLimit: limit,
				ChunkSize:    cfg.Loader.CleanupChunk,
				Decider:      decider,
			}, logger)
			if err != nil {
				return err
			}
			logger.Info("Cleanup finished", zap.Int64("deleted", deleted))
			return nil
		},
	}

	cleanCmd.Flags().String("uri", "", "bolt+s://<host>:7687 connection URI")
	cleanCmd.Flags().String("user", "neo4j", "database user")
	cleanCmd.Flags().String("password", "", "database password (or NEO4J_PASSWORD)")
	cleanCmd.Flags().String("database", "", "database name (default database when empty)")
	cleanCmd.Flags().String("mapping", "", "path to the mapping JSON document")
	cleanCmd.Flags().Bool("yes", false, "delete without prompting")
	cleanCmd.Flags().Int("preview-limit", 50, "max rows shown in the preview")

	_ = cleanCmd.MarkFlagRequired("mapping")

	return cleanCmd
}

func init() {
	rootCmd.AddCommand(newCleanCmd())
}
