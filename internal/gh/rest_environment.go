package gh

import (
	"context"
	"net/url"

	"github.com/google/go-github/v74/github"
)

// ListEnvironments returns all deployment environments of a repository,
// each with its branch policies when the policy type is `selected`.
func (c *Client) ListEnvironments(ctx context.Context, org, repo string) ([]*github.Environment, map[string][]string, error) {
	opts := &github.EnvironmentListOptions{
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}
	var envs []*github.Environment
	for {
		page, resp, err := c.rest.Repositories.ListEnvironments(ctx, org, repo, opts)
		if err != nil {
			if IsNotFound(err) {
				return nil, nil, nil
			}
			return nil, nil, wrapErr(resp, err)
		}
		envs = append(envs, page.Environments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	policies := map[string][]string{}
	for _, env := range envs {
		dbp := env.GetDeploymentBranchPolicy()
		if dbp == nil || !dbp.GetCustomBranchPolicies() {
			continue
		}
		names, err := c.listDeploymentBranchPolicies(ctx, org, repo, env.GetName())
		if err != nil {
			return nil, nil, err
		}
		policies[env.GetName()] = names
	}
	return envs, policies, nil
}

func (c *Client) listDeploymentBranchPolicies(ctx context.Context, org, repo, env string) ([]string, error) {
	page, resp, err := c.rest.Repositories.ListDeploymentBranchPolicies(ctx, org, repo, url.PathEscape(env))
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	var names []string
	for _, p := range page.BranchPolicies {
		names = append(names, p.GetName())
	}
	return names, nil
}

// UpsertEnvironment creates or updates a deployment environment and, when
// branchPolicies is non-nil, reconciles the custom branch policy list.
func (c *Client) UpsertEnvironment(ctx context.Context, org, repo, name string, env *github.CreateUpdateEnvironment, branchPolicies []string) error {
	escaped := url.PathEscape(name)
	_, resp, err := c.rest.Repositories.CreateUpdateEnvironment(ctx, org, repo, escaped, env)
	if err != nil {
		return wrapErr(resp, err)
	}
	if branchPolicies == nil {
		return nil
	}

	current, err := c.listDeploymentBranchPolicies(ctx, org, repo, name)
	if err != nil {
		return err
	}
	want := map[string]bool{}
	for _, n := range branchPolicies {
		want[n] = true
	}
	have := map[string]bool{}
	for _, n := range current {
		have[n] = true
	}
	for n := range want {
		if have[n] {
			continue
		}
		req := &github.DeploymentBranchPolicyRequest{Name: github.Ptr(n)}
		if _, resp, err := c.rest.Repositories.CreateDeploymentBranchPolicy(ctx, org, repo, escaped, req); err != nil {
			return wrapErr(resp, err)
		}
	}
	if len(want) > 0 {
		page, resp, err := c.rest.Repositories.ListDeploymentBranchPolicies(ctx, org, repo, escaped)
		if err != nil {
			return wrapErr(resp, err)
		}
		for _, p := range page.BranchPolicies {
			if want[p.GetName()] {
				continue
			}
			if resp, err := c.rest.Repositories.DeleteDeploymentBranchPolicy(ctx, org, repo, escaped, p.GetID()); err != nil {
				return wrapErr(resp, err)
			}
		}
	}
	return nil
}

// DeleteEnvironment removes a deployment environment.
func (c *Client) DeleteEnvironment(ctx context.Context, org, repo, name string) error {
	resp, err := c.rest.Repositories.DeleteEnvironment(ctx, org, repo, url.PathEscape(name))
	return wrapErr(resp, err)
}
