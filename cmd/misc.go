package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

// exactArgs mirrors cobra.ExactArgs but reports misuse with exit code 2.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{fmt.Errorf("%s expects %d argument(s), got %d", cmd.Name(), n, len(args))}
		}
		return nil
	}
}

// withOrg builds an operation context for a single named organization.
func withOrg(cmd *cobra.Command, name string, noWebUI bool,
	fn func(ctx context.Context, o *operations.OrgContext) error) error {

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	o, err := operations.NewOrgContext(ctx, cfg, name, operations.ContextOptions{
		NoWebUI: noWebUI,
		Out:     cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	return fn(ctx, o)
}

var syncTemplateCmd = &cobra.Command{
	Use:   "sync-template ORG REPO",
	Short: "Sync the contents of a repository with its template repository",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.SyncTemplate(ctx, o, args[1])
		})
	},
}

var dispatchWorkflowCmd = &cobra.Command{
	Use:   "dispatch-workflow ORG REPO WORKFLOW",
	Short: "Trigger a workflow on the default branch of a repository",
	Args:  exactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.DispatchWorkflow(ctx, o, args[1], args[2])
		})
	},
}

var deleteFileMessage string

var deleteFileCmd = &cobra.Command{
	Use:   "delete-file ORG REPO PATH",
	Short: "Delete a file from a repository",
	Args:  exactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.DeleteFile(ctx, o, args[1], args[2], deleteFileMessage)
		})
	},
}

var (
	openPRTitle  string
	openPRBranch string
)

var openPullRequestCmd = &cobra.Command{
	Use:   "open-pull-request ORG REPO PATH CONTENT_FILE",
	Short: "Open a pull request that updates a single file",
	Args:  exactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[3])
		if err != nil {
			return err
		}
		return withOrg(cmd, args[0], true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.OpenPullRequest(ctx, o, args[1], args[2], string(content), openPRTitle, openPRBranch)
		})
	},
}

var checkTokenPermissionsCmd = &cobra.Command{
	Use:   "check-token-permissions [ORG...]",
	Short: "Show the OAuth scopes of the configured tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.CheckTokenPermissions(ctx, o)
		})
	},
}

var checkStatusCmd = &cobra.Command{
	Use:   "check-status [ORG...]",
	Short: "Check API connectivity and rate limit budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.CheckStatus(ctx, o)
		})
	},
}

var listAppsJSON bool

var listAppsCmd = &cobra.Command{
	Use:   "list-apps [ORG...]",
	Short: "List the GitHub App installations of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ListApps(ctx, o, listAppsJSON)
		})
	},
}

var listMembersTwoFactorDisabled bool

var listMembersCmd = &cobra.Command{
	Use:   "list-members [ORG...]",
	Short: "List the members of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ListMembers(ctx, o, listMembersTwoFactorDisabled)
		})
	},
}

var listAdvisoriesCmd = &cobra.Command{
	Use:   "list-advisories [ORG...]",
	Short: "List the security advisories of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ListAdvisories(ctx, o)
		})
	},
}

var installAppCmd = &cobra.Command{
	Use:   "install-app ORG APP_SLUG",
	Short: "Install a GitHub App in an organization",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], false, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.InstallApp(ctx, o, args[1])
		})
	},
}

var uninstallAppCmd = &cobra.Command{
	Use:   "uninstall-app ORG APP_SLUG",
	Short: "Uninstall a GitHub App from an organization",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], false, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.UninstallApp(ctx, o, args[1])
		})
	},
}

var reviewAppPermissionsCmd = &cobra.Command{
	Use:   "review-app-permissions ORG APP_SLUG",
	Short: "Accept a pending permission update of an installed GitHub App",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], false, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ReviewAppPermissions(ctx, o, args[1])
		})
	},
}

var webLoginCmd = &cobra.Command{
	Use:   "web-login ORG",
	Short: "Verify the web credentials of an organization",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrg(cmd, args[0], false, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.WebLogin(ctx, o)
		})
	},
}

var listBlueprintsCmd = &cobra.Command{
	Use:   "list-blueprints [ORG...]",
	Short: "List open blueprint pull requests of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ListBlueprints(ctx, o)
		})
	},
}

var approveBlueprintID string

var approveBlueprintsCmd = &cobra.Command{
	Use:   "approve-blueprints [ORG...]",
	Short: "Approve and merge open blueprint pull requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForOrgs(cmd, args, true, func(ctx context.Context, o *operations.OrgContext) error {
			return operations.ApproveBlueprints(ctx, o, approveBlueprintID)
		})
	},
}

func init() {
	deleteFileCmd.Flags().StringVarP(&deleteFileMessage, "message", "m", "",
		"commit message to use")

	openPullRequestCmd.Flags().StringVarP(&openPRTitle, "title", "t", "Update configuration",
		"title of the pull request")
	openPullRequestCmd.Flags().StringVarP(&openPRBranch, "branch", "b", "",
		"name of the branch to create")

	listAppsCmd.Flags().BoolVar(&listAppsJSON, "json", false,
		"print the installations as JSON")
	listMembersCmd.Flags().BoolVar(&listMembersTwoFactorDisabled, "two-factor-disabled", false,
		"only list members without two-factor authentication")
	approveBlueprintsCmd.Flags().StringVar(&approveBlueprintID, "blueprint-id", "",
		"only process pull requests of this blueprint")

	rootCmd.AddCommand(
		syncTemplateCmd, dispatchWorkflowCmd, deleteFileCmd, openPullRequestCmd,
		checkTokenPermissionsCmd, checkStatusCmd,
		listAppsCmd, listMembersCmd, listAdvisoriesCmd,
		installAppCmd, uninstallAppCmd, reviewAppPermissionsCmd, webLoginCmd,
		listBlueprintsCmd, approveBlueprintsCmd,
	)
}
