package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

var applyOpts operations.ApplyOptions

var applyCmd = &cobra.Command{
	Use:   "apply [ORG...]",
	Short: "Apply the configuration to the live organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, applyOpts.NoWebUI, func(ctx context.Context, o *operations.OrgContext) error {
			_, err := operations.Apply(ctx, o, applyOpts)
			return err
		})
	},
}

func init() {
	addPlanFlags(applyCmd, &applyOpts.PlanOptions)
	applyCmd.Flags().BoolVarP(&applyOpts.Force, "force", "f", false,
		"skip the interactive confirmation")
	applyCmd.Flags().BoolVarP(&applyOpts.DeleteResources, "delete-resources", "d", false,
		"execute removals of resources missing from the configuration")
	applyCmd.Flags().BoolVar(&applyOpts.ContinueOnError, "continue-on-error", false,
		"keep applying remaining changes after a failure")

	rootCmd.AddCommand(applyCmd)
}
