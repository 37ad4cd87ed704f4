package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

var fetchOpts operations.FetchOptions

var fetchConfigCmd = &cobra.Command{
	Use:   "fetch-config [ORG...]",
	Short: "Fetch the declaration from the organization's config repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.FetchConfig(ctx, o, fetchOpts)
		})
	},
}

var pushMessage string

var pushConfigCmd = &cobra.Command{
	Use:   "push-config [ORG...]",
	Short: "Push the local declaration to the organization's config repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.PushConfig(ctx, o, pushMessage)
		})
	},
}

func init() {
	fetchConfigCmd.Flags().IntVar(&fetchOpts.PullRequest, "pull-request", 0,
		"fetch the declaration from the head of this open pull request")
	fetchConfigCmd.Flags().StringVarP(&fetchOpts.Suffix, "suffix", "s", "",
		"suffix to append to the local file name")
	fetchConfigCmd.Flags().BoolVarP(&fetchOpts.Force, "force", "f", false,
		"overwrite an existing local file")

	pushConfigCmd.Flags().StringVarP(&pushMessage, "message", "m", "",
		"commit message to use")

	rootCmd.AddCommand(fetchConfigCmd, pushConfigCmd)
}
