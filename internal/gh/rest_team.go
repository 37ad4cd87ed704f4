package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListTeams returns all teams of the organization.
func (c *Client) ListTeams(ctx context.Context, org string) ([]*github.Team, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var teams []*github.Team
	for {
		page, resp, err := c.rest.Teams.ListTeams(ctx, org, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		teams = append(teams, page...)
		if resp.NextPage == 0 {
			return teams, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListTeamMembers returns member logins of a team, split by role.
func (c *Client) ListTeamMembers(ctx context.Context, org, slug string) (members, maintainers []string, err error) {
	for _, role := range []string{"member", "maintainer"} {
		opts := &github.TeamListTeamMembersOptions{
			Role:        role,
			ListOptions: github.ListOptions{PerPage: maxPerPage},
		}
		for {
			page, resp, err := c.rest.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
			if err != nil {
				return nil, nil, wrapErr(resp, err)
			}
			for _, u := range page {
				if role == "maintainer" {
					maintainers = append(maintainers, u.GetLogin())
				} else {
					members = append(members, u.GetLogin())
				}
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return members, maintainers, nil
}

// CreateTeam creates a team and returns its slug.
func (c *Client) CreateTeam(ctx context.Context, org string, team github.NewTeam) (string, error) {
	created, resp, err := c.rest.Teams.CreateTeam(ctx, org, team)
	if err != nil {
		return "", wrapErr(resp, err)
	}
	return created.GetSlug(), nil
}

func (c *Client) UpdateTeam(ctx context.Context, org, slug string, team github.NewTeam) error {
	_, resp, err := c.rest.Teams.EditTeamBySlug(ctx, org, slug, team, false)
	return wrapErr(resp, err)
}

func (c *Client) DeleteTeam(ctx context.Context, org, slug string) error {
	resp, err := c.rest.Teams.DeleteTeamBySlug(ctx, org, slug)
	return wrapErr(resp, err)
}

// SyncTeamMembers reconciles team membership to exactly the given member
// and maintainer logins.
func (c *Client) SyncTeamMembers(ctx context.Context, org, slug string, members, maintainers []string) error {
	currentMembers, currentMaintainers, err := c.ListTeamMembers(ctx, org, slug)
	if err != nil {
		return err
	}

	want := map[string]string{}
	for _, m := range members {
		want[m] = "member"
	}
	for _, m := range maintainers {
		want[m] = "maintainer"
	}
	have := map[string]string{}
	for _, m := range currentMembers {
		have[m] = "member"
	}
	for _, m := range currentMaintainers {
		have[m] = "maintainer"
	}

	for login, role := range want {
		if have[login] == role {
			continue
		}
		opts := &github.TeamAddTeamMembershipOptions{Role: role}
		if _, resp, err := c.rest.Teams.AddTeamMembershipBySlug(ctx, org, slug, login, opts); err != nil {
			return wrapErr(resp, err)
		}
	}
	for login := range have {
		if _, ok := want[login]; ok {
			continue
		}
		if resp, err := c.rest.Teams.RemoveTeamMembershipBySlug(ctx, org, slug, login); err != nil {
			return wrapErr(resp, err)
		}
	}
	return nil
}

// ListTeamPermissions returns the teams with access to a repository and
// their permission level.
func (c *Client) ListTeamPermissions(ctx context.Context, org, repo string) ([]*github.Team, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var teams []*github.Team
	for {
		page, resp, err := c.rest.Repositories.ListTeams(ctx, org, repo, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		teams = append(teams, page...)
		if resp.NextPage == 0 {
			return teams, nil
		}
		opts.Page = resp.NextPage
	}
}

// SetTeamPermission grants or updates a team's permission on a repository.
func (c *Client) SetTeamPermission(ctx context.Context, org, slug, repo, permission string) error {
	opts := &github.TeamAddTeamRepoOptions{Permission: permission}
	resp, err := c.rest.Teams.AddTeamRepoBySlug(ctx, org, slug, org, repo, opts)
	return wrapErr(resp, err)
}

// RemoveTeamPermission revokes a team's access to a repository.
func (c *Client) RemoveTeamPermission(ctx context.Context, org, slug, repo string) error {
	resp, err := c.rest.Teams.RemoveTeamRepoBySlug(ctx, org, slug, org, repo)
	return wrapErr(resp, err)
}
