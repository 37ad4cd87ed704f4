package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

var importOpts operations.ImportOptions

var importCmd = &cobra.Command{
	Use:   "import [ORG...]",
	Short: "Import the live configuration of organizations as jsonnet declarations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, importOpts.NoWebUI, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.Import(ctx, o, importOpts)
		})
	},
}

var canonicalDiffCmd = &cobra.Command{
	Use:   "canonical-diff [ORG...]",
	Short: "Show differences between the declaration and its canonical form",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			_, err := operations.CanonicalDiff(ctx, o)
			return err
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importOpts.NoWebUI, "no-web-ui", false,
		"skip settings that are only accessible via the web interface")
	importCmd.Flags().BoolVarP(&importOpts.Force, "force", "f", false,
		"overwrite an existing declaration file")

	rootCmd.AddCommand(importCmd, canonicalDiffCmd)
}
