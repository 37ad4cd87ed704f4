package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListOrgWebhooks returns all organization webhooks.
func (c *Client) ListOrgWebhooks(ctx context.Context, org string) ([]*github.Hook, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var hooks []*github.Hook
	for {
		page, resp, err := c.rest.Organizations.ListHooks(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		hooks = append(hooks, page...)
		if resp.NextPage == 0 {
			return hooks, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateOrgWebhook(ctx context.Context, org string, hook *github.Hook) error {
	_, resp, err := c.rest.Organizations.CreateHook(ctx, org, hook)
	return wrapErr(resp, err)
}

func (c *Client) UpdateOrgWebhook(ctx context.Context, org string, id int64, hook *github.Hook) error {
	_, resp, err := c.rest.Organizations.EditHook(ctx, org, id, hook)
	return wrapErr(resp, err)
}

func (c *Client) DeleteOrgWebhook(ctx context.Context, org string, id int64) error {
	resp, err := c.rest.Organizations.DeleteHook(ctx, org, id)
	return wrapErr(resp, err)
}

// ListRepoWebhooks returns all webhooks of a repository.
func (c *Client) ListRepoWebhooks(ctx context.Context, org, repo string) ([]*github.Hook, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var hooks []*github.Hook
	for {
		page, resp, err := c.rest.Repositories.ListHooks(ctx, org, repo, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		hooks = append(hooks, page...)
		if resp.NextPage == 0 {
			return hooks, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateRepoWebhook(ctx context.Context, org, repo string, hook *github.Hook) error {
	_, resp, err := c.rest.Repositories.CreateHook(ctx, org, repo, hook)
	return wrapErr(resp, err)
}

func (c *Client) UpdateRepoWebhook(ctx context.Context, org, repo string, id int64, hook *github.Hook) error {
	_, resp, err := c.rest.Repositories.EditHook(ctx, org, repo, id, hook)
	return wrapErr(resp, err)
}

func (c *Client) DeleteRepoWebhook(ctx context.Context, org, repo string, id int64) error {
	resp, err := c.rest.Repositories.DeleteHook(ctx, org, repo, id)
	return wrapErr(resp, err)
}
