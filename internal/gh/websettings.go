package gh

import (
	"context"
	"fmt"
)

// GetWebSettings reads UI-only organization settings through a scoped web
// session. The session is established and torn down per call.
func (c *Client) GetWebSettings(ctx context.Context, org string, keys []string) (map[string]any, error) {
	if c.web == nil {
		return nil, fmt.Errorf("no web credentials configured")
	}
	if err := c.web.Login(ctx); err != nil {
		return nil, err
	}
	defer c.web.Logout(ctx)
	return c.web.GetOrgSettings(ctx, org, keys)
}

// UpdateWebSettings writes UI-only organization settings through a scoped
// web session.
func (c *Client) UpdateWebSettings(ctx context.Context, org string, settings map[string]any) error {
	if c.web == nil {
		return fmt.Errorf("no web credentials configured")
	}
	if err := c.web.Login(ctx); err != nil {
		return err
	}
	defer c.web.Logout(ctx)
	return c.web.UpdateOrgSettings(ctx, org, settings)
}
