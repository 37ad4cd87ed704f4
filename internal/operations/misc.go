package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
)

// blueprintBranchPrefix marks pull requests opened by the blueprint
// automation in the config repository.
const blueprintBranchPrefix = "otterdog/blueprint/"

// SyncTemplate re-applies the template contents of a repository that was
// created from a template repository.
func SyncTemplate(ctx context.Context, o *OrgContext, repo string) error {
	updated, err := o.Client.SyncFromTemplate(ctx, o.Org.GitHubID, repo)
	if err != nil {
		return fmt.Errorf("failed to sync %s/%s from its template: %w", o.Org.GitHubID, repo, err)
	}
	if len(updated) == 0 {
		fmt.Fprintf(o.Out, "repository %s is up to date with its template\n", repo)
		return nil
	}
	for _, path := range updated {
		fmt.Fprintf(o.Out, "updated %s\n", path)
	}
	fmt.Fprintf(o.Out, "synced %d file(s) in repository %s\n", len(updated), repo)
	return nil
}

// DispatchWorkflow triggers a workflow_dispatch event on the default
// branch of a repository.
func DispatchWorkflow(ctx context.Context, o *OrgContext, repo, workflow string) error {
	r, err := o.Client.GetRepository(ctx, o.Org.GitHubID, repo)
	if err != nil {
		return err
	}
	ref := r.GetDefaultBranch()
	if err := o.Client.DispatchWorkflow(ctx, o.Org.GitHubID, repo, workflow, ref); err != nil {
		return fmt.Errorf("failed to dispatch workflow %s in %s/%s: %w",
			workflow, o.Org.GitHubID, repo, err)
	}
	fmt.Fprintf(o.Out, "dispatched workflow %s in repository %s (ref %s)\n", workflow, repo, ref)
	return nil
}

// DeleteFile removes a file from a repository with a signed-off commit
// message.
func DeleteFile(ctx context.Context, o *OrgContext, repo, path, message string) error {
	if message == "" {
		message = fmt.Sprintf("Delete %s", path)
	}
	if err := o.Client.DeleteContent(ctx, o.Org.GitHubID, repo, path, message); err != nil {
		return fmt.Errorf("failed to delete %s from %s/%s: %w", path, o.Org.GitHubID, repo, err)
	}
	fmt.Fprintf(o.Out, "deleted %s from repository %s\n", path, repo)
	return nil
}

// OpenPullRequest creates a branch with a single file change and opens a
// pull request for it.
func OpenPullRequest(ctx context.Context, o *OrgContext, repo, path, content, title, branch string) error {
	org := o.Org.GitHubID
	if branch == "" {
		branch = "otterdog/update"
	}
	if err := o.Client.CreateBranch(ctx, org, repo, branch); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	if _, err := o.Client.UpdateContent(ctx, org, repo, path, content, title, branch); err != nil {
		return fmt.Errorf("failed to update %s on branch %s: %w", path, branch, err)
	}
	r, err := o.Client.GetRepository(ctx, org, repo)
	if err != nil {
		return err
	}
	number, err := o.Client.CreatePullRequest(ctx, org, repo, title, branch, r.GetDefaultBranch())
	if err != nil {
		return fmt.Errorf("failed to open pull request: %w", err)
	}
	fmt.Fprintf(o.Out, "opened pull request #%d in repository %s\n", number, repo)
	return nil
}

// CheckTokenPermissions prints the OAuth scopes granted to the
// configured token.
func CheckTokenPermissions(ctx context.Context, o *OrgContext) error {
	scopes, err := o.Client.CheckTokenPermissions(ctx)
	if err != nil {
		return fmt.Errorf("failed to check token permissions: %w", err)
	}
	if len(scopes) == 0 {
		fmt.Fprintln(o.Out, "token has no OAuth scopes (fine-grained or app token)")
		return nil
	}
	fmt.Fprintf(o.Out, "token scopes: %s\n", strings.Join(scopes, ", "))
	return nil
}

// CheckStatus verifies API connectivity and prints the remaining rate
// limit budget.
func CheckStatus(ctx context.Context, o *OrgContext) error {
	limits, _, err := o.Client.Rest().RateLimit.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to query rate limits: %w", err)
	}
	core := limits.GetCore()
	fmt.Fprintf(o.Out, "organization %s: API reachable, %d/%d core requests remaining (resets %s)\n",
		o.Org.Name, core.Remaining, core.Limit, core.Reset.Format("15:04:05"))
	if gql := limits.GetGraphQL(); gql != nil {
		fmt.Fprintf(o.Out, "graphql: %d/%d requests remaining\n", gql.Remaining, gql.Limit)
	}
	return nil
}

// ListApps prints the GitHub App installations of the organization,
// optionally as JSON.
func ListApps(ctx context.Context, o *OrgContext, asJSON bool) error {
	installations, err := o.Client.ListAppInstallations(ctx, o.Org.GitHubID)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(o.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(installations)
	}
	fmt.Fprintf(o.Out, "%d app installation(s) in organization %s:\n", len(installations), o.Org.Name)
	for _, inst := range installations {
		fmt.Fprintf(o.Out, "  %s (id %d, permissions updated %s)\n",
			inst.GetAppSlug(), inst.GetID(), inst.GetUpdatedAt().Format("2006-01-02"))
	}
	return nil
}

// ListMembers prints the members of the organization. With
// twoFactorDisabled only members without 2FA are listed.
func ListMembers(ctx context.Context, o *OrgContext, twoFactorDisabled bool) error {
	members, err := o.Client.ListMembers(ctx, o.Org.GitHubID, twoFactorDisabled)
	if err != nil {
		return err
	}
	if twoFactorDisabled {
		fmt.Fprintf(o.Out, "%d member(s) of %s without two-factor authentication:\n",
			len(members), o.Org.Name)
	} else {
		fmt.Fprintf(o.Out, "%d member(s) in organization %s:\n", len(members), o.Org.Name)
	}
	for _, m := range members {
		fmt.Fprintf(o.Out, "  %s\n", m.GetLogin())
	}
	return nil
}

// ListAdvisories prints the security advisories of the organization.
func ListAdvisories(ctx context.Context, o *OrgContext) error {
	advisories, err := o.Client.ListSecurityAdvisories(ctx, o.Org.GitHubID)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "%d security advisory(ies) in organization %s:\n", len(advisories), o.Org.Name)
	for _, adv := range advisories {
		fmt.Fprintf(o.Out, "  %s [%s] %s\n",
			adv.GetGHSAID(), adv.GetSeverity(), adv.GetSummary())
	}
	return nil
}

// InstallApp installs a GitHub App into the organization via the web
// interface.
func InstallApp(ctx context.Context, o *OrgContext, appSlug string) error {
	web, err := o.webSession(ctx)
	if err != nil {
		return err
	}
	defer web.Logout(ctx)
	if err := web.InstallApp(ctx, o.Org.GitHubID, appSlug); err != nil {
		return fmt.Errorf("failed to install app %s: %w", appSlug, err)
	}
	fmt.Fprintf(o.Out, "installed app %s in organization %s\n", appSlug, o.Org.Name)
	return nil
}

// UninstallApp removes an installed GitHub App from the organization via
// the web interface.
func UninstallApp(ctx context.Context, o *OrgContext, appSlug string) error {
	installationID, err := o.findInstallation(ctx, appSlug)
	if err != nil {
		return err
	}
	web, err := o.webSession(ctx)
	if err != nil {
		return err
	}
	defer web.Logout(ctx)
	if err := web.UninstallApp(ctx, o.Org.GitHubID, installationID); err != nil {
		return fmt.Errorf("failed to uninstall app %s: %w", appSlug, err)
	}
	fmt.Fprintf(o.Out, "uninstalled app %s from organization %s\n", appSlug, o.Org.Name)
	return nil
}

// ReviewAppPermissions accepts a pending permission update of an
// installed GitHub App.
func ReviewAppPermissions(ctx context.Context, o *OrgContext, appSlug string) error {
	installationID, err := o.findInstallation(ctx, appSlug)
	if err != nil {
		return err
	}
	web, err := o.webSession(ctx)
	if err != nil {
		return err
	}
	defer web.Logout(ctx)
	if err := web.ReviewAppPermissionUpdate(ctx, o.Org.GitHubID, installationID); err != nil {
		return fmt.Errorf("failed to review permissions of app %s: %w", appSlug, err)
	}
	fmt.Fprintf(o.Out, "accepted permission update of app %s in organization %s\n",
		appSlug, o.Org.Name)
	return nil
}

// WebLogin verifies that the configured web credentials can authenticate.
func WebLogin(ctx context.Context, o *OrgContext) error {
	web, err := o.webSession(ctx)
	if err != nil {
		return err
	}
	defer web.Logout(ctx)
	fmt.Fprintf(o.Out, "web login for organization %s succeeded\n", o.Org.Name)
	return nil
}

// ListBlueprints lists open blueprint pull requests in the config
// repository.
func ListBlueprints(ctx context.Context, o *OrgContext) error {
	prs, err := o.blueprintPullRequests(ctx)
	if err != nil {
		return err
	}
	if len(prs) == 0 {
		fmt.Fprintf(o.Out, "no open blueprint pull requests in organization %s\n", o.Org.Name)
		return nil
	}
	fmt.Fprintf(o.Out, "%d open blueprint pull request(s) in organization %s:\n",
		len(prs), o.Org.Name)
	for _, pr := range prs {
		fmt.Fprintf(o.Out, "  #%d %s (%s)\n",
			pr.GetNumber(), pr.GetTitle(), pr.GetHead().GetRef())
	}
	return nil
}

// ApproveBlueprints approves and merges open blueprint pull requests.
// With a non-empty blueprintID only pull requests of that blueprint are
// processed.
func ApproveBlueprints(ctx context.Context, o *OrgContext, blueprintID string) error {
	prs, err := o.blueprintPullRequests(ctx)
	if err != nil {
		return err
	}
	configRepo := o.Config.Defaults.GitHub.ConfigRepo

	var approved int
	for _, pr := range prs {
		ref := pr.GetHead().GetRef()
		if blueprintID != "" {
			id := strings.TrimPrefix(ref, blueprintBranchPrefix)
			if id != blueprintID && !strings.HasPrefix(id, blueprintID+"/") {
				continue
			}
		}
		number := pr.GetNumber()
		if err := o.Client.ApprovePullRequest(ctx, o.Org.GitHubID, configRepo, number,
			"Approved via otterdog."); err != nil {
			logrus.Errorf("failed to approve pull request #%d: %v", number, err)
			continue
		}
		if err := o.Client.MergePullRequest(ctx, o.Org.GitHubID, configRepo, number,
			pr.GetTitle()); err != nil {
			logrus.Errorf("failed to merge pull request #%d: %v", number, err)
			continue
		}
		fmt.Fprintf(o.Out, "approved and merged pull request #%d (%s)\n", number, ref)
		approved++
	}
	fmt.Fprintf(o.Out, "processed %d blueprint pull request(s)\n", approved)
	return nil
}

func (o *OrgContext) blueprintPullRequests(ctx context.Context) ([]*github.PullRequest, error) {
	configRepo := o.Config.Defaults.GitHub.ConfigRepo
	prs, err := o.Client.ListOpenPullRequests(ctx, o.Org.GitHubID, configRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests in %s/%s: %w",
			o.Org.GitHubID, configRepo, err)
	}
	var blueprints []*github.PullRequest
	for _, pr := range prs {
		if strings.HasPrefix(pr.GetHead().GetRef(), blueprintBranchPrefix) {
			blueprints = append(blueprints, pr)
		}
	}
	return blueprints, nil
}

func (o *OrgContext) findInstallation(ctx context.Context, appSlug string) (int64, error) {
	installations, err := o.Client.ListAppInstallations(ctx, o.Org.GitHubID)
	if err != nil {
		return 0, err
	}
	for _, inst := range installations {
		if inst.GetAppSlug() == appSlug {
			return inst.GetID(), nil
		}
	}
	return 0, fmt.Errorf("app %s is not installed in organization %s", appSlug, o.Org.Name)
}

func (o *OrgContext) webSession(ctx context.Context) (webSession, error) {
	if !o.Client.HasWeb() {
		return nil, fmt.Errorf("organization %s has no web credentials configured", o.Org.Name)
	}
	web := o.Client.Web()
	if err := web.Login(ctx); err != nil {
		return nil, fmt.Errorf("web login failed: %w", err)
	}
	return web, nil
}

// webSession is the part of the web client the operations need.
type webSession interface {
	Logout(ctx context.Context)
	InstallApp(ctx context.Context, org, appSlug string) error
	UninstallApp(ctx context.Context, org string, installationID int64) error
	ReviewAppPermissionUpdate(ctx context.Context, org string, installationID int64) error
}
