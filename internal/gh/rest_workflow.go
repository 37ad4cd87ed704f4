package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// WorkflowSettings is the merged view of the Actions permission endpoints
// for an organization or a repository.
type WorkflowSettings struct {
	EnabledRepositories          *string
	SelectedRepositoryIDs        []int64
	Enabled                      *bool
	AllowedActions               *string
	GithubOwnedAllowed           *bool
	VerifiedAllowed              *bool
	PatternsAllowed              []string
	DefaultWorkflowPermissions   *string
	CanApprovePullRequestReviews *bool
}

// GetOrgWorkflowSettings assembles the organization Actions settings from
// the permission endpoints.
func (c *Client) GetOrgWorkflowSettings(ctx context.Context, org string) (*WorkflowSettings, error) {
	ws := &WorkflowSettings{}

	perms, resp, err := c.rest.Actions.GetActionsPermissions(ctx, org)
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	ws.EnabledRepositories = perms.EnabledRepositories
	ws.AllowedActions = perms.AllowedActions

	if perms.GetEnabledRepositories() == "selected" {
		repos, resp, err := c.rest.Actions.ListEnabledReposInOrg(ctx, org, &github.ListOptions{PerPage: maxPerPage})
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		for _, r := range repos.Repositories {
			ws.SelectedRepositoryIDs = append(ws.SelectedRepositoryIDs, r.GetID())
		}
	}
	if perms.GetAllowedActions() == "selected" {
		allowed, resp, err := c.rest.Actions.GetActionsAllowed(ctx, org)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		ws.GithubOwnedAllowed = allowed.GithubOwnedAllowed
		ws.VerifiedAllowed = allowed.VerifiedAllowed
		ws.PatternsAllowed = allowed.PatternsAllowed
	}

	defaults, resp, err := c.rest.Actions.GetDefaultWorkflowPermissionsInOrganization(ctx, org)
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	ws.DefaultWorkflowPermissions = defaults.DefaultWorkflowPermissions
	ws.CanApprovePullRequestReviews = defaults.CanApprovePullRequestReviews

	return ws, nil
}

// UpdateOrgWorkflowSettings writes only the parts of ws that are non-nil.
func (c *Client) UpdateOrgWorkflowSettings(ctx context.Context, org string, ws *WorkflowSettings) error {
	if ws.EnabledRepositories != nil || ws.AllowedActions != nil {
		perms := github.ActionsPermissions{
			EnabledRepositories: ws.EnabledRepositories,
			AllowedActions:      ws.AllowedActions,
		}
		if _, resp, err := c.rest.Actions.EditActionsPermissions(ctx, org, perms); err != nil {
			return wrapErr(resp, err)
		}
	}
	if ws.SelectedRepositoryIDs != nil {
		if resp, err := c.rest.Actions.SetEnabledReposInOrg(ctx, org, ws.SelectedRepositoryIDs); err != nil {
			return wrapErr(resp, err)
		}
	}
	if ws.GithubOwnedAllowed != nil || ws.VerifiedAllowed != nil || ws.PatternsAllowed != nil {
		allowed := github.ActionsAllowed{
			GithubOwnedAllowed: ws.GithubOwnedAllowed,
			VerifiedAllowed:    ws.VerifiedAllowed,
			PatternsAllowed:    ws.PatternsAllowed,
		}
		if _, resp, err := c.rest.Actions.EditActionsAllowed(ctx, org, allowed); err != nil {
			return wrapErr(resp, err)
		}
	}
	if ws.DefaultWorkflowPermissions != nil || ws.CanApprovePullRequestReviews != nil {
		defaults := github.DefaultWorkflowPermissionOrganization{
			DefaultWorkflowPermissions:   ws.DefaultWorkflowPermissions,
			CanApprovePullRequestReviews: ws.CanApprovePullRequestReviews,
		}
		if _, resp, err := c.rest.Actions.EditDefaultWorkflowPermissionsInOrganization(ctx, org, defaults); err != nil {
			return wrapErr(resp, err)
		}
	}
	return nil
}

// GetRepoWorkflowSettings assembles the repository Actions settings.
func (c *Client) GetRepoWorkflowSettings(ctx context.Context, org, repo string) (*WorkflowSettings, error) {
	ws := &WorkflowSettings{}

	perms, resp, err := c.rest.Repositories.GetActionsPermissions(ctx, org, repo)
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	ws.Enabled = perms.Enabled
	ws.AllowedActions = perms.AllowedActions

	if perms.GetAllowedActions() == "selected" {
		allowed, resp, err := c.rest.Repositories.GetActionsAllowed(ctx, org, repo)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		ws.GithubOwnedAllowed = allowed.GithubOwnedAllowed
		ws.VerifiedAllowed = allowed.VerifiedAllowed
		ws.PatternsAllowed = allowed.PatternsAllowed
	}

	defaults, resp, err := c.rest.Repositories.GetDefaultWorkflowPermissions(ctx, org, repo)
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	ws.DefaultWorkflowPermissions = defaults.DefaultWorkflowPermissions
	ws.CanApprovePullRequestReviews = defaults.CanApprovePullRequestReviews

	return ws, nil
}

// UpdateRepoWorkflowSettings writes only the parts of ws that are non-nil.
func (c *Client) UpdateRepoWorkflowSettings(ctx context.Context, org, repo string, ws *WorkflowSettings) error {
	if ws.Enabled != nil || ws.AllowedActions != nil {
		perms := github.ActionsPermissionsRepository{
			Enabled:        ws.Enabled,
			AllowedActions: ws.AllowedActions,
		}
		if _, resp, err := c.rest.Repositories.EditActionsPermissions(ctx, org, repo, perms); err != nil {
			return wrapErr(resp, err)
		}
	}
	if ws.GithubOwnedAllowed != nil || ws.VerifiedAllowed != nil || ws.PatternsAllowed != nil {
		allowed := github.ActionsAllowed{
			GithubOwnedAllowed: ws.GithubOwnedAllowed,
			VerifiedAllowed:    ws.VerifiedAllowed,
			PatternsAllowed:    ws.PatternsAllowed,
		}
		if _, resp, err := c.rest.Repositories.EditActionsAllowed(ctx, org, repo, allowed); err != nil {
			return wrapErr(resp, err)
		}
	}
	if ws.DefaultWorkflowPermissions != nil || ws.CanApprovePullRequestReviews != nil {
		defaults := github.DefaultWorkflowPermissionRepository{
			DefaultWorkflowPermissions:   ws.DefaultWorkflowPermissions,
			CanApprovePullRequestReviews: ws.CanApprovePullRequestReviews,
		}
		if _, resp, err := c.rest.Repositories.EditDefaultWorkflowPermissions(ctx, org, repo, defaults); err != nil {
			return wrapErr(resp, err)
		}
	}
	return nil
}

// DispatchWorkflow triggers a workflow_dispatch event for the named
// workflow file on the repository default branch.
func (c *Client) DispatchWorkflow(ctx context.Context, org, repo, workflowFileName, ref string) error {
	if ref == "" {
		r, err := c.GetRepository(ctx, org, repo)
		if err != nil {
			return err
		}
		ref = r.GetDefaultBranch()
	}
	event := github.CreateWorkflowDispatchEventRequest{Ref: ref}
	resp, err := c.rest.Actions.CreateWorkflowDispatchEventByFileName(ctx, org, repo, workflowFileName, event)
	return wrapErr(resp, err)
}
