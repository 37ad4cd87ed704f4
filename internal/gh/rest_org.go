package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// GetOrganization reads the organization settings record.
func (c *Client) GetOrganization(ctx context.Context, org string) (*github.Organization, error) {
	o, resp, err := c.rest.Organizations.Get(ctx, org)
	return o, wrapErr(resp, err)
}

// UpdateOrganizationSettings patches the organization with only the fields
// set on settings; nil pointers are omitted from the wire body so GitHub
// defaults are never clobbered.
func (c *Client) UpdateOrganizationSettings(ctx context.Context, org string, settings *github.Organization) error {
	_, resp, err := c.rest.Organizations.Edit(ctx, org, settings)
	return wrapErr(resp, err)
}

// ListMembers returns all organization member logins, optionally filtered
// to accounts without two-factor authentication.
func (c *Client) ListMembers(ctx context.Context, org string, twoFactorDisabled bool) ([]*github.User, error) {
	opts := &github.ListMembersOptions{
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}
	if twoFactorDisabled {
		opts.Filter = "2fa_disabled"
	}
	var members []*github.User
	for {
		page, resp, err := c.rest.Organizations.ListMembers(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		members = append(members, page...)
		if resp.NextPage == 0 {
			return members, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListAppInstallations returns all app installations of the organization.
func (c *Client) ListAppInstallations(ctx context.Context, org string) ([]*github.Installation, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var installs []*github.Installation
	for {
		page, resp, err := c.rest.Organizations.ListInstallations(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		installs = append(installs, page.Installations...)
		if resp.NextPage == 0 {
			return installs, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListSecurityAdvisories returns the repository security advisories
// published in the organization.
func (c *Client) ListSecurityAdvisories(ctx context.Context, org string) ([]*github.SecurityAdvisory, error) {
	opts := &github.ListRepositorySecurityAdvisoriesOptions{}
	var advisories []*github.SecurityAdvisory
	for {
		page, resp, err := c.rest.SecurityAdvisories.ListRepositorySecurityAdvisoriesForOrg(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		advisories = append(advisories, page...)
		if resp == nil || resp.After == "" {
			return advisories, nil
		}
		opts.After = resp.After
	}
}

// CheckTokenPermissions returns the OAuth scopes granted to the configured
// token, taken from the X-OAuth-Scopes response header.
func (c *Client) CheckTokenPermissions(ctx context.Context) ([]string, error) {
	user, resp, err := c.rest.Users.Get(ctx, "")
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	_ = user
	scopes := resp.Header.Get("X-OAuth-Scopes")
	if scopes == "" {
		return nil, nil
	}
	return splitAndTrim(scopes, ","), nil
}
