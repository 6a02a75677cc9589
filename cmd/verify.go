package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lexigraph/lexigraph-cli/internal/fetch"
	"github.com/lexigraph/lexigraph-cli/internal/observability"
	"github.com/lexigraph/lexigraph-cli/internal/preflight"
)

// newVerifyCmd creates the `verify` command: preflight without loading.
// Exit codes match a full run, so CI can gate a publish on source integrity.
func newVerifyCmd() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Run preflight checks (checksums, row counts, discriminator scan) without loading",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			mappingPath, _ := cmd.Flags().GetString("mapping")
			manifestPath, _ := cmd.Flags().GetString("manifest")
			baseURL, _ := cmd.Flags().GetString("base-url")
			strictLinkid, _ := cmd.Flags().GetBool("strict-missing-linkid")
			skipChecksums, _ := cmd.Flags().GetBool("skip-checksums")
			skipRowCounts, _ := cmd.Flags().GetBool("skip-rowcounts")

			spec, err := loadSpec(mappingPath, manifestPath)
			if err != nil {
				return err
			}

			checker := preflight.New(fetch.New(baseURL, logger), preflight.Options{
				VerifyChecksums:            !skipChecksums,
				VerifyRowCounts:            !skipRowCounts,
				StrictMissingDiscriminator: strictLinkid,
			}, logger)

			if err := checker.Run(ctx, spec); err != nil {
				return err
			}
			logger.Info("All sources verified")
			return nil
		},
	}

	verifyCmd.Flags().String("mapping", "", "path to the mapping JSON document")
	verifyCmd.Flags().String("manifest", "", "path to manifest.json with sha256 and row counts")
	verifyCmd.Flags().String("base-url", "", "base URL or directory where the CSVs live")
	verifyCmd.Flags().Bool("strict-missing-linkid", false, "fail when a relationship source has empty linkid values")
	verifyCmd.Flags().Bool("skip-checksums", false, "skip checksum verification")
	verifyCmd.Flags().Bool("skip-rowcounts", false, "skip row count verification")

	_ = verifyCmd.MarkFlagRequired("mapping")
	_ = verifyCmd.MarkFlagRequired("manifest")
	_ = verifyCmd.MarkFlagRequired("base-url")

	return verifyCmd
}

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}
