package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListCustomProperties returns the custom property schema of the
// organization.
func (c *Client) ListCustomProperties(ctx context.Context, org string) ([]*github.CustomProperty, error) {
	props, resp, err := c.rest.Organizations.GetAllCustomProperties(ctx, org)
	return props, wrapErr(resp, err)
}

// UpsertCustomProperty creates or updates one custom property definition.
func (c *Client) UpsertCustomProperty(ctx context.Context, org, name string, property *github.CustomProperty) error {
	_, resp, err := c.rest.Organizations.CreateOrUpdateCustomProperty(ctx, org, name, property)
	return wrapErr(resp, err)
}

// DeleteCustomProperty removes a custom property definition.
func (c *Client) DeleteCustomProperty(ctx context.Context, org, name string) error {
	resp, err := c.rest.Organizations.RemoveCustomProperty(ctx, org, name)
	return wrapErr(resp, err)
}
