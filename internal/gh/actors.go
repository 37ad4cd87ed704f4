package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
)

// Actor tokens name principals in a provider independent way:
//
//	@login        a user
//	@org/team     a team
//	some-app      a GitHub App by slug
//	#Role         a repository role (rulesets only)
//
// Ruleset bypass actors additionally take a ":always" or ":pull_request"
// mode suffix; "always" is the default.

// repoRoleIDs maps the built-in repository roles onto the fixed actor ids
// the ruleset API uses for them.
var repoRoleIDs = map[string]int64{
	"write":    4,
	"maintain": 2,
	"admin":    5,
}

// ResolveActorNodeIDs resolves actor tokens to GraphQL node ids for branch
// protection allowances. Unresolvable actors are logged and skipped so one
// stale entry does not block the rest of the rule.
func (c *Client) ResolveActorNodeIDs(ctx context.Context, org string, tokens []string) []string {
	var ids []string
	for _, token := range tokens {
		id, err := c.resolveActorNodeID(ctx, org, token)
		if err != nil {
			logrus.Warnf("skipping actor %q: %v", token, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) resolveActorNodeID(ctx context.Context, org, token string) (string, error) {
	switch {
	case strings.HasPrefix(token, "@") && strings.Contains(token, "/"):
		parts := strings.SplitN(trimActorPrefix(token), "/", 2)
		return c.TeamNodeID(ctx, parts[0], parts[1])
	case strings.HasPrefix(token, "@"):
		return c.UserNodeID(ctx, trimActorPrefix(token))
	case strings.HasPrefix(token, "#"):
		return "", fmt.Errorf("role actors are not supported for branch protection rules")
	default:
		return c.AppNodeID(ctx, token)
	}
}

// ResolveBypassActors resolves actor tokens with optional mode suffixes
// into ruleset bypass actors. Unresolvable actors are logged and skipped.
func (c *Client) ResolveBypassActors(ctx context.Context, org string, tokens []string) []*github.BypassActor {
	var actors []*github.BypassActor
	for _, token := range tokens {
		actor, err := c.resolveBypassActor(ctx, org, token)
		if err != nil {
			logrus.Warnf("skipping bypass actor %q: %v", token, err)
			continue
		}
		actors = append(actors, actor)
	}
	return actors
}

func (c *Client) resolveBypassActor(ctx context.Context, org, token string) (*github.BypassActor, error) {
	name, mode := splitBypassMode(token)
	actor := &github.BypassActor{BypassMode: (*github.BypassMode)(github.Ptr(mode))}

	switch {
	case strings.HasPrefix(name, "#"):
		role := strings.TrimPrefix(name, "#")
		if strings.EqualFold(role, "OrganizationAdmin") {
			actor.ActorID = github.Ptr(int64(1))
			actor.ActorType = (*github.BypassActorType)(github.Ptr("OrganizationAdmin"))
			return actor, nil
		}
		id, ok := repoRoleIDs[strings.ToLower(role)]
		if !ok {
			return nil, fmt.Errorf("unknown repository role %q", role)
		}
		actor.ActorID = github.Ptr(id)
		actor.ActorType = (*github.BypassActorType)(github.Ptr("RepositoryRole"))
		return actor, nil

	case strings.HasPrefix(name, "@") && strings.Contains(name, "/"):
		parts := strings.SplitN(trimActorPrefix(name), "/", 2)
		team, resp, err := c.rest.Teams.GetTeamBySlug(ctx, parts[0], parts[1])
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		actor.ActorID = github.Ptr(team.GetID())
		actor.ActorType = (*github.BypassActorType)(github.Ptr("Team"))
		return actor, nil

	case strings.HasPrefix(name, "@"):
		return nil, fmt.Errorf("user actors are not supported for rulesets")

	default:
		app, err := c.GetApp(ctx, name)
		if err != nil {
			return nil, err
		}
		actor.ActorID = github.Ptr(app.GetID())
		actor.ActorType = (*github.BypassActorType)(github.Ptr("Integration"))
		return actor, nil
	}
}

func splitBypassMode(token string) (string, string) {
	if idx := strings.LastIndex(token, ":"); idx > 0 {
		return token[:idx], token[idx+1:]
	}
	return token, "always"
}

// BypassActorTokens renders ruleset bypass actors back into actor tokens.
// Teams and apps are resolved by id; entries that cannot be resolved any
// more are logged and skipped.
func (c *Client) BypassActorTokens(ctx context.Context, org string, actors []*github.BypassActor) []string {
	var tokens []string
	for _, actor := range actors {
		token, err := c.bypassActorToken(ctx, org, actor)
		if err != nil {
			logrus.Warnf("skipping bypass actor id %d: %v", actor.GetActorID(), err)
			continue
		}
		if mode := bypassModeOf(actor); mode != "always" && mode != "" {
			token += ":" + mode
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func bypassModeOf(actor *github.BypassActor) string {
	if actor.BypassMode == nil {
		return ""
	}
	return string(*actor.BypassMode)
}

func actorTypeOf(actor *github.BypassActor) string {
	if actor.ActorType == nil {
		return ""
	}
	return string(*actor.ActorType)
}

func (c *Client) bypassActorToken(ctx context.Context, org string, actor *github.BypassActor) (string, error) {
	switch actorTypeOf(actor) {
	case "OrganizationAdmin":
		return "#OrganizationAdmin", nil
	case "RepositoryRole":
		for role, id := range repoRoleIDs {
			if id == actor.GetActorID() {
				return "#" + strings.ToUpper(role[:1]) + role[1:], nil
			}
		}
		return "", fmt.Errorf("unknown repository role id %d", actor.GetActorID())
	case "Team":
		teams, err := c.ListTeams(ctx, org)
		if err != nil {
			return "", err
		}
		for _, team := range teams {
			if team.GetID() == actor.GetActorID() {
				return fmt.Sprintf("@%s/%s", org, team.GetSlug()), nil
			}
		}
		return "", fmt.Errorf("no team with id %d in %s", actor.GetActorID(), org)
	case "Integration":
		installations, err := c.ListAppInstallations(ctx, org)
		if err != nil {
			return "", err
		}
		for _, inst := range installations {
			if inst.GetAppID() == actor.GetActorID() {
				return inst.GetAppSlug(), nil
			}
		}
		return "", fmt.Errorf("no installed app with id %d in %s", actor.GetActorID(), org)
	default:
		return "", fmt.Errorf("unknown actor type %q", actorTypeOf(actor))
	}
}

// ResolveEnvReviewers resolves actor tokens to deployment reviewers.
// Environments take users and teams only; anything else is logged and
// skipped.
func (c *Client) ResolveEnvReviewers(ctx context.Context, org string, tokens []string) []*github.EnvReviewers {
	var reviewers []*github.EnvReviewers
	for _, token := range tokens {
		reviewer, err := c.resolveEnvReviewer(ctx, org, token)
		if err != nil {
			logrus.Warnf("skipping reviewer %q: %v", token, err)
			continue
		}
		reviewers = append(reviewers, reviewer)
	}
	return reviewers
}

func (c *Client) resolveEnvReviewer(ctx context.Context, org, token string) (*github.EnvReviewers, error) {
	switch {
	case strings.HasPrefix(token, "@") && strings.Contains(token, "/"):
		parts := strings.SplitN(trimActorPrefix(token), "/", 2)
		team, resp, err := c.rest.Teams.GetTeamBySlug(ctx, parts[0], parts[1])
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		return &github.EnvReviewers{
			Type: github.Ptr("Team"),
			ID:   github.Ptr(team.GetID()),
		}, nil
	case strings.HasPrefix(token, "@"):
		user, resp, err := c.rest.Users.Get(ctx, trimActorPrefix(token))
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		return &github.EnvReviewers{
			Type: github.Ptr("User"),
			ID:   github.Ptr(user.GetID()),
		}, nil
	default:
		return nil, fmt.Errorf("only users and teams can review deployments")
	}
}
