package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListOrgRoles returns the organization roles, both predefined and custom.
func (c *Client) ListOrgRoles(ctx context.Context, org string) ([]*github.CustomOrgRoles, error) {
	roles, resp, err := c.rest.Organizations.ListRoles(ctx, org)
	if err != nil {
		return nil, wrapErr(resp, err)
	}
	return roles.CustomRepoRoles, nil
}

// CreateOrgRole creates a custom organization role and returns its id.
func (c *Client) CreateOrgRole(ctx context.Context, org string, opts *github.CreateOrUpdateOrgRoleOptions) (int64, error) {
	role, resp, err := c.rest.Organizations.CreateCustomOrgRole(ctx, org, opts)
	if err != nil {
		return 0, wrapErr(resp, err)
	}
	return role.GetID(), nil
}

func (c *Client) UpdateOrgRole(ctx context.Context, org string, roleID int64, opts *github.CreateOrUpdateOrgRoleOptions) error {
	_, resp, err := c.rest.Organizations.UpdateCustomOrgRole(ctx, org, roleID, opts)
	return wrapErr(resp, err)
}

func (c *Client) DeleteOrgRole(ctx context.Context, org string, roleID int64) error {
	resp, err := c.rest.Organizations.DeleteCustomOrgRole(ctx, org, roleID)
	return wrapErr(resp, err)
}

// FindOrgRoleID resolves a role name to its numeric id.
func (c *Client) FindOrgRoleID(ctx context.Context, org, name string) (int64, error) {
	roles, err := c.ListOrgRoles(ctx, org)
	if err != nil {
		return 0, err
	}
	for _, r := range roles {
		if r.GetName() == name {
			return r.GetID(), nil
		}
	}
	return 0, ErrNotFound
}
