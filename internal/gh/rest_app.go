package gh

import (
	"context"
	"strings"

	"github.com/google/go-github/v74/github"
)

// GetApp looks up a GitHub App by slug.
func (c *Client) GetApp(ctx context.Context, slug string) (*github.App, error) {
	app, resp, err := c.rest.Apps.Get(ctx, slug)
	return app, wrapErr(resp, err)
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
