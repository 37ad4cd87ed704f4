package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

var showNoWebUI bool

var showCmd = &cobra.Command{
	Use:   "show [ORG...]",
	Short: "Show the expected configuration of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.Show(ctx, o)
		})
	},
}

var showLiveCmd = &cobra.Command{
	Use:   "show-live [ORG...]",
	Short: "Show the current live configuration of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, showNoWebUI, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ShowLive(ctx, o, showNoWebUI)
		})
	},
}

var showDefaultCmd = &cobra.Command{
	Use:   "show-default [ORG...]",
	Short: "Show the default values provided by the base template",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ShowDefault(ctx, o)
		})
	},
}

func init() {
	showLiveCmd.Flags().BoolVar(&showNoWebUI, "no-web-ui", false,
		"skip settings that are only accessible via the web interface")

	rootCmd.AddCommand(showCmd, showLiveCmd, showDefaultCmd)
}
