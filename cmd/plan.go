package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

func addPlanFlags(cmd *cobra.Command, opts *operations.PlanOptions) {
	cmd.Flags().BoolVar(&opts.NoWebUI, "no-web-ui", false,
		"skip settings that are only accessible via the web interface")
	cmd.Flags().BoolVar(&opts.UpdateWebhooks, "update-webhooks", false,
		"re-apply webhooks that carry a dummy secret")
	cmd.Flags().BoolVar(&opts.UpdateSecrets, "update-secrets", false,
		"re-apply secrets that carry a dummy value")
	cmd.Flags().StringVar(&opts.UpdateFilter, "update-filter", "",
		"only re-apply dummy-valued resources whose name matches this pattern")
	cmd.Flags().StringVarP(&opts.RepoFilter, "repo-filter", "r", "",
		"only process repositories whose name matches this pattern")
}

var planOpts operations.PlanOptions

var planCmd = &cobra.Command{
	Use:   "plan [ORG...]",
	Short: "Show the changes required to match the live state to the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, planOpts.NoWebUI, func(ctx context.Context, o *operations.OrgContext) error {
			_, err := operations.Plan(ctx, o, planOpts)
			return err
		})
	},
}

var (
	localPlanOpts   operations.PlanOptions
	localPlanSuffix string
)

var localPlanCmd = &cobra.Command{
	Use:   "local-plan [ORG...]",
	Short: "Show changes between the configuration and another local revision",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			_, err := operations.LocalPlan(ctx, o, localPlanSuffix, localPlanOpts)
			return err
		})
	},
}

func init() {
	addPlanFlags(planCmd, &planOpts)

	addPlanFlags(localPlanCmd, &localPlanOpts)
	localPlanCmd.Flags().StringVarP(&localPlanSuffix, "suffix", "s", "-BASE",
		"suffix of the local revision to compare against")

	rootCmd.AddCommand(planCmd, localPlanCmd)
}
