package gh

import (
	"context"
	"strings"

	"github.com/google/go-github/v74/github"
)

// ListRepositories returns all repositories of the organization.
func (c *Client) ListRepositories(ctx context.Context, org string) ([]*github.Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}
	var repos []*github.Repository
	for {
		page, resp, err := c.rest.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		repos = append(repos, page...)
		if resp.NextPage == 0 {
			return repos, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetRepository reads a single repository.
func (c *Client) GetRepository(ctx context.Context, org, repo string) (*github.Repository, error) {
	r, resp, err := c.rest.Repositories.Get(ctx, org, repo)
	return r, wrapErr(resp, err)
}

// CreateRepository creates a repository, optionally from a template
// `owner/name`. Settings not supported at creation time are applied with a
// follow-up edit.
func (c *Client) CreateRepository(ctx context.Context, org string, repo *github.Repository, templateRepository string) (*github.Repository, error) {
	if templateRepository != "" {
		owner, name, ok := strings.Cut(templateRepository, "/")
		if !ok {
			owner, name = org, templateRepository
		}
		req := &github.TemplateRepoRequest{
			Name:        repo.Name,
			Owner:       github.Ptr(org),
			Description: repo.Description,
			Private:     repo.Private,
		}
		created, resp, err := c.rest.Repositories.CreateFromTemplate(ctx, owner, name, req)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		// Template creation accepts only a subset of attributes; push the
		// remainder in a second call.
		if err := c.UpdateRepository(ctx, org, created.GetName(), repo); err != nil {
			return nil, err
		}
		return created, nil
	}
	created, resp, err := c.rest.Repositories.Create(ctx, org, repo)
	return created, wrapErr(resp, err)
}

// UpdateRepository patches a repository with only the set fields of repo.
func (c *Client) UpdateRepository(ctx context.Context, org, name string, repo *github.Repository) error {
	_, resp, err := c.rest.Repositories.Edit(ctx, org, name, repo)
	return wrapErr(resp, err)
}

// DeleteRepository removes a repository. Requires the delete_repo scope.
func (c *Client) DeleteRepository(ctx context.Context, org, name string) error {
	resp, err := c.rest.Repositories.Delete(ctx, org, name)
	return wrapErr(resp, err)
}

// GetVulnerabilityAlertsEnabled reports whether dependabot vulnerability
// alerts are enabled on the repository.
func (c *Client) GetVulnerabilityAlertsEnabled(ctx context.Context, org, repo string) (bool, error) {
	enabled, resp, err := c.rest.Repositories.GetVulnerabilityAlerts(ctx, org, repo)
	return enabled, wrapErr(resp, err)
}

// SetVulnerabilityAlerts toggles dependabot vulnerability alerts.
func (c *Client) SetVulnerabilityAlerts(ctx context.Context, org, repo string, enabled bool) error {
	var resp *github.Response
	var err error
	if enabled {
		resp, err = c.rest.Repositories.EnableVulnerabilityAlerts(ctx, org, repo)
	} else {
		resp, err = c.rest.Repositories.DisableVulnerabilityAlerts(ctx, org, repo)
	}
	return wrapErr(resp, err)
}

// SetAutomatedSecurityFixes toggles automated dependabot security updates.
func (c *Client) SetAutomatedSecurityFixes(ctx context.Context, org, repo string, enabled bool) error {
	var resp *github.Response
	var err error
	if enabled {
		resp, err = c.rest.Repositories.EnableAutomatedSecurityFixes(ctx, org, repo)
	} else {
		resp, err = c.rest.Repositories.DisableAutomatedSecurityFixes(ctx, org, repo)
	}
	return wrapErr(resp, err)
}

// ReplaceTopics sets the repository topic list.
func (c *Client) ReplaceTopics(ctx context.Context, org, repo string, topics []string) error {
	_, resp, err := c.rest.Repositories.ReplaceAllTopics(ctx, org, repo, topics)
	return wrapErr(resp, err)
}

// GetPages reads the GitHub Pages configuration of the repository, or nil
// when pages are not enabled.
func (c *Client) GetPages(ctx context.Context, org, repo string) (*github.Pages, error) {
	pages, resp, err := c.rest.Repositories.GetPagesInfo(ctx, org, repo)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapErr(resp, err)
	}
	return pages, nil
}

// UpdatePages reconciles the pages configuration. buildType "disabled"
// turns pages off; "legacy" sources from sourceBranch/sourcePath and
// "workflow" builds from actions.
func (c *Client) UpdatePages(ctx context.Context, org, repo, buildType, sourceBranch, sourcePath string) error {
	if buildType == "disabled" {
		resp, err := c.rest.Repositories.DisablePages(ctx, org, repo)
		if err != nil && IsNotFound(err) {
			return nil
		}
		return wrapErr(resp, err)
	}

	var source *github.PagesSource
	if buildType == "legacy" && sourceBranch != "" {
		source = &github.PagesSource{Branch: github.Ptr(sourceBranch)}
		if sourcePath != "" {
			source.Path = github.Ptr(sourcePath)
		}
	}

	existing, err := c.GetPages(ctx, org, repo)
	if err != nil {
		return err
	}
	if existing == nil {
		pages := &github.Pages{BuildType: github.Ptr(buildType), Source: source}
		_, resp, err := c.rest.Repositories.EnablePages(ctx, org, repo, pages)
		return wrapErr(resp, err)
	}
	opts := &github.PagesUpdate{BuildType: github.Ptr(buildType), Source: source}
	resp, err := c.rest.Repositories.UpdatePages(ctx, org, repo, opts)
	return wrapErr(resp, err)
}
