package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListOrgVariables returns all organization Actions variables together
// with the repository ids each `selected` variable is scoped to.
func (c *Client) ListOrgVariables(ctx context.Context, org string) ([]*github.ActionsVariable, map[string][]int64, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var variables []*github.ActionsVariable
	selected := map[string][]int64{}
	for {
		page, resp, err := c.rest.Actions.ListOrgVariables(ctx, org, opts)
		if err != nil {
			return nil, nil, wrapErr(resp, err)
		}
		variables = append(variables, page.Variables...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	for _, v := range variables {
		if v.Visibility == nil || *v.Visibility != "selected" {
			continue
		}
		ids, err := c.listSelectedReposForOrgVariable(ctx, org, v.Name)
		if err != nil {
			return nil, nil, err
		}
		selected[v.Name] = ids
	}
	return variables, selected, nil
}

func (c *Client) listSelectedReposForOrgVariable(ctx context.Context, org, name string) ([]int64, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var ids []int64
	for {
		page, resp, err := c.rest.Actions.ListSelectedReposForOrgVariable(ctx, org, name, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		for _, r := range page.Repositories {
			ids = append(ids, r.GetID())
		}
		if resp.NextPage == 0 {
			return ids, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateOrgVariable(ctx context.Context, org string, variable *github.ActionsVariable) error {
	resp, err := c.rest.Actions.CreateOrgVariable(ctx, org, variable)
	return wrapErr(resp, err)
}

func (c *Client) UpdateOrgVariable(ctx context.Context, org string, variable *github.ActionsVariable) error {
	resp, err := c.rest.Actions.UpdateOrgVariable(ctx, org, variable)
	return wrapErr(resp, err)
}

func (c *Client) DeleteOrgVariable(ctx context.Context, org, name string) error {
	resp, err := c.rest.Actions.DeleteOrgVariable(ctx, org, name)
	return wrapErr(resp, err)
}

// ListRepoVariables returns all Actions variables of a repository.
func (c *Client) ListRepoVariables(ctx context.Context, org, repo string) ([]*github.ActionsVariable, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var variables []*github.ActionsVariable
	for {
		page, resp, err := c.rest.Actions.ListRepoVariables(ctx, org, repo, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		variables = append(variables, page.Variables...)
		if resp.NextPage == 0 {
			return variables, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateRepoVariable(ctx context.Context, org, repo string, variable *github.ActionsVariable) error {
	resp, err := c.rest.Actions.CreateRepoVariable(ctx, org, repo, variable)
	return wrapErr(resp, err)
}

func (c *Client) UpdateRepoVariable(ctx context.Context, org, repo string, variable *github.ActionsVariable) error {
	resp, err := c.rest.Actions.UpdateRepoVariable(ctx, org, repo, variable)
	return wrapErr(resp, err)
}

func (c *Client) DeleteRepoVariable(ctx context.Context, org, repo, name string) error {
	resp, err := c.rest.Actions.DeleteRepoVariable(ctx, org, repo, name)
	return wrapErr(resp, err)
}

// ListEnvVariables returns all Actions variables of a repository
// environment.
func (c *Client) ListEnvVariables(ctx context.Context, org, repo, env string) ([]*github.ActionsVariable, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var variables []*github.ActionsVariable
	for {
		page, resp, err := c.rest.Actions.ListEnvVariables(ctx, org, repo, env, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		variables = append(variables, page.Variables...)
		if resp.NextPage == 0 {
			return variables, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateEnvVariable(ctx context.Context, org, repo, env string, variable *github.ActionsVariable) error {
	resp, err := c.rest.Actions.CreateEnvVariable(ctx, org, repo, env, variable)
	return wrapErr(resp, err)
}

func (c *Client) UpdateEnvVariable(ctx context.Context, org, repo, env string, variable *github.ActionsVariable) error {
	resp, err := c.rest.Actions.UpdateEnvVariable(ctx, org, repo, env, variable)
	return wrapErr(resp, err)
}

func (c *Client) DeleteEnvVariable(ctx context.Context, org, repo, env, name string) error {
	resp, err := c.rest.Actions.DeleteEnvVariable(ctx, org, repo, env, name)
	return wrapErr(resp, err)
}
