package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListOrgRulesets returns all organization rulesets with their rules and
// conditions populated. The list endpoint only returns summaries, so each
// ruleset is fetched individually.
func (c *Client) ListOrgRulesets(ctx context.Context, org string) ([]*github.RepositoryRuleset, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var rulesets []*github.RepositoryRuleset
	for {
		summaries, resp, err := c.rest.Organizations.GetAllRepositoryRulesets(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		for _, s := range summaries {
			full, resp, err := c.rest.Organizations.GetRepositoryRuleset(ctx, org, s.GetID())
			if err != nil {
				return nil, wrapErr(resp, err)
			}
			rulesets = append(rulesets, full)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return rulesets, nil
}

func (c *Client) CreateOrgRuleset(ctx context.Context, org string, ruleset github.RepositoryRuleset) error {
	_, resp, err := c.rest.Organizations.CreateRepositoryRuleset(ctx, org, ruleset)
	return wrapErr(resp, err)
}

func (c *Client) UpdateOrgRuleset(ctx context.Context, org string, id int64, ruleset github.RepositoryRuleset) error {
	_, resp, err := c.rest.Organizations.UpdateRepositoryRuleset(ctx, org, id, ruleset)
	return wrapErr(resp, err)
}

func (c *Client) DeleteOrgRuleset(ctx context.Context, org string, id int64) error {
	resp, err := c.rest.Organizations.DeleteRepositoryRuleset(ctx, org, id)
	return wrapErr(resp, err)
}

// ListRepoRulesets returns the rulesets defined directly on the
// repository (parent org rulesets excluded).
func (c *Client) ListRepoRulesets(ctx context.Context, org, repo string) ([]*github.RepositoryRuleset, error) {
	opts := &github.RepositoryListRulesetsOptions{
		IncludesParents: github.Ptr(false),
		ListOptions:     github.ListOptions{PerPage: maxPerPage},
	}
	var rulesets []*github.RepositoryRuleset
	for {
		summaries, resp, err := c.rest.Repositories.GetAllRulesets(ctx, org, repo, opts)
		if err != nil {
			if IsNotFound(err) {
				return nil, nil
			}
			return nil, wrapErr(resp, err)
		}
		for _, s := range summaries {
			full, resp, err := c.rest.Repositories.GetRuleset(ctx, org, repo, s.GetID(), false)
			if err != nil {
				return nil, wrapErr(resp, err)
			}
			rulesets = append(rulesets, full)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return rulesets, nil
}

func (c *Client) CreateRepoRuleset(ctx context.Context, org, repo string, ruleset github.RepositoryRuleset) error {
	_, resp, err := c.rest.Repositories.CreateRuleset(ctx, org, repo, ruleset)
	return wrapErr(resp, err)
}

func (c *Client) UpdateRepoRuleset(ctx context.Context, org, repo string, id int64, ruleset github.RepositoryRuleset) error {
	_, resp, err := c.rest.Repositories.UpdateRuleset(ctx, org, repo, id, ruleset)
	return wrapErr(resp, err)
}

func (c *Client) DeleteRepoRuleset(ctx context.Context, org, repo string, id int64) error {
	resp, err := c.rest.Repositories.DeleteRuleset(ctx, org, repo, id)
	return wrapErr(resp, err)
}
