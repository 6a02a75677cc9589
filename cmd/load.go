package cmd

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lexigraph/lexigraph-cli/internal/config"
	"github.com/lexigraph/lexigraph-cli/internal/errs"
	"github.com/lexigraph/lexigraph-cli/internal/fetch"
	"github.com/lexigraph/lexigraph-cli/internal/graph"
	"github.com/lexigraph/lexigraph-cli/internal/journal"
	"github.com/lexigraph/lexigraph-cli/internal/loader"
	"github.com/lexigraph/lexigraph-cli/internal/observability"
	"github.com/lexigraph/lexigraph-cli/internal/preflight"
)

// newLoadCmd creates the `load` command: the full ingest run.
func newLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Run a full mapping-driven load: preflight, constraints, load order, validation",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{
				"neo4j.uri":         "uri",
				"neo4j.user":        "user",
				"neo4j.password":    "password",
				"neo4j.database":    "database",
				"loader.batch_rows": "batch-rows",
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
			manifestPath, _ := cmd.Flags().GetString("manifest")
			baseURL, _ := cmd.Flags().GetString("base-url")
			batchID, _ := cmd.Flags().GetString("batch-id")
			verifyChecksums, _ := cmd.Flags().GetBool("verify-checksums")
			verifyRowCounts, _ := cmd.Flags().GetBool("verify-rowcounts")
			strictLinkid, _ := cmd.Flags().GetBool("strict-missing-linkid")
			previewNullLinkid, _ := cmd.Flags().GetBool("preview-null-linkid")
			autoCleanNullLinkid, _ := cmd.Flags().GetBool("auto-clean-null-linkid")
			limit := previewLimit(cmd, cfg)

			spec, err := loadSpec(mappingPath, manifestPath)
			if err != nil {
				return err
			}

			fetcher := fetch.New(baseURL, logger)

			checker := preflight.New(fetcher, preflight.Options{
				VerifyChecksums:            verifyChecksums,
				VerifyRowCounts:            verifyRowCounts,
				StrictMissingDiscriminator: strictLinkid,
			}, logger)
			if checker.Enabled() {
				logger.Info("Preflight: verifying sources")
				if err := checker.Run(ctx, spec); err != nil {
					return err
				}
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

			var recorder journal.Recorder = journal.Nop{}
			if cfg.Journal.DSN != "" {
				pool, err := pgxpool.New(ctx, cfg.Journal.DSN)
				if err != nil {
					return err
				}
				defer pool.Close()
				recorder, err = journal.New(ctx, pool, logger)
				if err != nil {
					return err
				}
			}

			var decider loader.Decider = loader.RejectAll{}
			switch {
			case autoCleanNullLinkid:
				decider = loader.AutoApprove{}
			case previewNullLinkid:
				decider = promptDecider{in: os.Stdin, out: os.Stdout}
			}

			rc := loader.NewRunContext(batchID, spec.SourceSystem(), spec.Version)
			logger.Info("Starting ingest run",
				zap.String("run_id", rc.RunID),
				zap.String("batch_id", rc.BatchID),
				zap.String("source_system", rc.SourceSystem))

			run := loader.New(spec, db, fetcher, recorder, loader.Options{
				BatchRows: cfg.Loader.BatchRows,
				Cleanup: loader.CleanupOptions{
					Enabled:      previewNullLinkid || autoCleanNullLinkid,
					PreviewLimit: limit,
					ChunkSize:    cfg.Loader.CleanupChunk,
					Decider:      decider,
				},
			}, logger)

			if err := run.Run(ctx, rc); err != nil {
				return err
			}
			logger.Info("Ingest complete", zap.String("batch_id", rc.BatchID))
			return nil
		},
	}

	loadCmd.Flags().String("uri", "", "bolt+s://<host>:7687 connection URI")
	loadCmd.Flags().String("user", "neo4j", "database user")
	loadCmd.Flags().String("password", "", "database password (or NEO4J_PASSWORD)")
	loadCmd.Flags().String("database", "", "database name (default database when empty)")
	loadCmd.Flags().String("mapping", "", "path to the mapping JSON document")
	loadCmd.Flags().String("manifest", "", "path to manifest.json with sha256 and row counts")
	loadCmd.Flags().String("base-url", "", "base URL or directory where the CSVs live")
	loadCmd.Flags().String("batch-id", "", "ingest batch id (default: <mapping version>-<timestamp>)")
	loadCmd.Flags().Bool("verify-checksums", false, "verify source checksums against the manifest before loading")
	loadCmd.Flags().Bool("verify-rowcounts", false, "verify source row counts against the manifest before loading")
	loadCmd.Flags().Bool("strict-missing-linkid", false, "fail preflight when a relationship source has empty linkid values")
	loadCmd.Flags().Bool("preview-null-linkid", false, "after the generic relationship load, preview and prompt to delete null-linkid edges")
	loadCmd.Flags().Bool("auto-clean-null-linkid", false, "delete null-linkid edges automatically, no prompt")
	loadCmd.Flags().Int("preview-limit", 50, "max rows shown in the null-linkid preview")
	loadCmd.Flags().Int("batch-rows", 10000, "rows per transaction for LOAD CSV batching")

	_ = loadCmd.MarkFlagRequired("mapping")
	_ = loadCmd.MarkFlagRequired("manifest")
	_ = loadCmd.MarkFlagRequired("base-url")

	return loadCmd
}

func init() {
	rootCmd.AddCommand(newLoadCmd())
}
