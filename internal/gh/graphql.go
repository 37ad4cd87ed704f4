package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/shurcooL/githubv4"
)

// branchProtectionActor covers the three actor types an allowance node can
// reference.
type branchProtectionActor struct {
	Actor struct {
		App struct {
			ID   githubv4.ID
			Slug githubv4.String
		} `graphql:"... on App"`
		Team struct {
			ID           githubv4.ID
			CombinedSlug githubv4.String
		} `graphql:"... on Team"`
		User struct {
			ID    githubv4.ID
			Login githubv4.String
		} `graphql:"... on User"`
	}
}

// actorToken renders an allowance node back into the declarative actor
// token grammar: @user, @org/team, or a bare app slug.
func (a branchProtectionActor) actorToken() string {
	switch {
	case a.Actor.User.Login != "":
		return "@" + string(a.Actor.User.Login)
	case a.Actor.Team.CombinedSlug != "":
		return "@" + string(a.Actor.Team.CombinedSlug)
	case a.Actor.App.Slug != "":
		return string(a.Actor.App.Slug)
	}
	return ""
}

type allowancePage struct {
	Nodes    []branchProtectionActor
	PageInfo struct {
		HasNextPage githubv4.Boolean
		EndCursor   githubv4.String
	}
	TotalCount githubv4.Int
}

// BranchProtectionRuleNode mirrors the GraphQL BranchProtectionRule object
// with the fields the engine manages.
type BranchProtectionRuleNode struct {
	ID                             githubv4.ID
	Pattern                        githubv4.String
	AllowsDeletions                githubv4.Boolean
	AllowsForcePushes              githubv4.Boolean
	BlocksCreations                githubv4.Boolean
	DismissesStaleReviews          githubv4.Boolean
	IsAdminEnforced                githubv4.Boolean
	LockBranch                     githubv4.Boolean
	RequireLastPushApproval        githubv4.Boolean
	RequiredApprovingReviewCount   githubv4.Int
	RequiresApprovingReviews       githubv4.Boolean
	RequiresCodeOwnerReviews       githubv4.Boolean
	RequiresCommitSignatures       githubv4.Boolean
	RequiresConversationResolution githubv4.Boolean
	RequiresLinearHistory          githubv4.Boolean
	RequiresStatusChecks           githubv4.Boolean
	RequiresStrictStatusChecks     githubv4.Boolean
	RestrictsPushes                githubv4.Boolean
	RestrictsReviewDismissals      githubv4.Boolean
	RequiredStatusChecks           []struct {
		App struct {
			Slug githubv4.String
		}
		Context githubv4.String
	}
	PushAllowances              allowancePage `graphql:"pushAllowances(first: 100)"`
	ReviewDismissalAllowances   allowancePage `graphql:"reviewDismissalAllowances(first: 100)"`
	BypassForcePushAllowances   allowancePage `graphql:"bypassForcePushAllowances(first: 100)"`
	BypassPullRequestAllowances allowancePage `graphql:"bypassPullRequestAllowances(first: 100)"`
}

// BranchProtectionRule is the transport-level view handed to the mapping
/// layer: the rule node plus its fully paged allowance token lists.
type BranchProtectionRule struct {
	ID                          string
	Node                        BranchProtectionRuleNode
	PushAllowances              []string
	ReviewDismissalAllowances   []string
	BypassForcePushAllowances   []string
	BypassPullRequestAllowances []string
}

// ListBranchProtectionRules pages through every branch protection rule of
// the repository. Allowance lists longer than one page are fetched with
// follow-up queries per rule.
func (c *Client) ListBranchProtectionRules(ctx context.Context, org, repo string) ([]*BranchProtectionRule, error) {
	var query struct {
		Repository struct {
			BranchProtectionRules struct {
				Nodes    []BranchProtectionRuleNode
				PageInfo struct {
					HasNextPage githubv4.Boolean
					EndCursor   githubv4.String
				}
			} `graphql:"branchProtectionRules(first: 50, after: $cursor)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(org),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
	}

	var rules []*BranchProtectionRule
	for {
		if err := c.gql.Query(ctx, &query, variables); err != nil {
			return nil, fmt.Errorf("listing branch protection rules of %s/%s: %w", org, repo, err)
		}
		for _, node := range query.Repository.BranchProtectionRules.Nodes {
			rule, err := c.assembleBranchProtectionRule(ctx, node)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
		if !query.Repository.BranchProtectionRules.PageInfo.HasNextPage {
			return rules, nil
		}
		variables["cursor"] = githubv4.NewString(query.Repository.BranchProtectionRules.PageInfo.EndCursor)
	}
}

func (c *Client) assembleBranchProtectionRule(ctx context.Context, node BranchProtectionRuleNode) (*BranchProtectionRule, error) {
	rule := &BranchProtectionRule{
		ID:   fmt.Sprintf("%v", node.ID),
		Node: node,
	}
	kinds := []struct {
		field string
		page  allowancePage
		out   *[]string
	}{
		{"pushAllowances", node.PushAllowances, &rule.PushAllowances},
		{"reviewDismissalAllowances", node.ReviewDismissalAllowances, &rule.ReviewDismissalAllowances},
		{"bypassForcePushAllowances", node.BypassForcePushAllowances, &rule.BypassForcePushAllowances},
		{"bypassPullRequestAllowances", node.BypassPullRequestAllowances, &rule.BypassPullRequestAllowances},
	}
	for _, k := range kinds {
		for _, actor := range k.page.Nodes {
			if token := actor.actorToken(); token != "" {
				*k.out = append(*k.out, token)
			}
		}
		if bool(k.page.PageInfo.HasNextPage) {
			rest, err := c.pageAllowances(ctx, node.ID, k.field, string(k.page.PageInfo.EndCursor))
			if err != nil {
				return nil, err
			}
			*k.out = append(*k.out, rest...)
		}
	}
	return rule, nil
}

// pageAllowances continues paging one allowance connection of a rule.
// Each connection needs its own query shape, selected by field name.
func (c *Client) pageAllowances(ctx context.Context, ruleID githubv4.ID, field, cursor string) ([]string, error) {
	var tokens []string
	for cursor != "" {
		page, err := c.queryAllowancePage(ctx, ruleID, field, cursor)
		if err != nil {
			return nil, err
		}
		for _, actor := range page.Nodes {
			if token := actor.actorToken(); token != "" {
				tokens = append(tokens, token)
			}
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		cursor = string(page.PageInfo.EndCursor)
	}
	return tokens, nil
}

func (c *Client) queryAllowancePage(ctx context.Context, ruleID githubv4.ID, field, cursor string) (*allowancePage, error) {
	variables := map[string]any{
		"id":     ruleID,
		"cursor": githubv4.String(cursor),
	}
	switch field {
	case "pushAllowances":
		var q struct {
			Node struct {
				Rule struct {
					PushAllowances allowancePage `graphql:"pushAllowances(first: 100, after: $cursor)"`
				} `graphql:"... on BranchProtectionRule"`
			} `graphql:"node(id: $id)"`
		}
		if err := c.gql.Query(ctx, &q, variables); err != nil {
			return nil, err
		}
		return &q.Node.Rule.PushAllowances, nil
	case "reviewDismissalAllowances":
		var q struct {
			Node struct {
				Rule struct {
					ReviewDismissalAllowances allowancePage `graphql:"reviewDismissalAllowances(first: 100, after: $cursor)"`
				} `graphql:"... on BranchProtectionRule"`
			} `graphql:"node(id: $id)"`
		}
		if err := c.gql.Query(ctx, &q, variables); err != nil {
			return nil, err
		}
		return &q.Node.Rule.ReviewDismissalAllowances, nil
	case "bypassForcePushAllowances":
		var q struct {
			Node struct {
				Rule struct {
					BypassForcePushAllowances allowancePage `graphql:"bypassForcePushAllowances(first: 100, after: $cursor)"`
				} `graphql:"... on BranchProtectionRule"`
			} `graphql:"node(id: $id)"`
		}
		if err := c.gql.Query(ctx, &q, variables); err != nil {
			return nil, err
		}
		return &q.Node.Rule.BypassForcePushAllowances, nil
	case "bypassPullRequestAllowances":
		var q struct {
			Node struct {
				Rule struct {
					BypassPullRequestAllowances allowancePage `graphql:"bypassPullRequestAllowances(first: 100, after: $cursor)"`
				} `graphql:"... on BranchProtectionRule"`
			} `graphql:"node(id: $id)"`
		}
		if err := c.gql.Query(ctx, &q, variables); err != nil {
			return nil, err
		}
		return &q.Node.Rule.BypassPullRequestAllowances, nil
	}
	return nil, fmt.Errorf("unknown allowance field %q", field)
}

// CreateBranchProtectionRule executes the create mutation.
func (c *Client) CreateBranchProtectionRule(ctx context.Context, input githubv4.CreateBranchProtectionRuleInput) error {
	var mutate struct {
		CreateBranchProtectionRule struct {
			BranchProtectionRule struct {
				ID githubv4.ID
			}
		} `graphql:"createBranchProtectionRule(input: $input)"`
	}
	return c.gql.Mutate(ctx, &mutate, input, nil)
}

// UpdateBranchProtectionRule executes the update mutation.
func (c *Client) UpdateBranchProtectionRule(ctx context.Context, input githubv4.UpdateBranchProtectionRuleInput) error {
	var mutate struct {
		UpdateBranchProtectionRule struct {
			BranchProtectionRule struct {
				ID githubv4.ID
			}
		} `graphql:"updateBranchProtectionRule(input: $input)"`
	}
	return c.gql.Mutate(ctx, &mutate, input, nil)
}

// DeleteBranchProtectionRule executes the delete mutation.
func (c *Client) DeleteBranchProtectionRule(ctx context.Context, ruleID string) error {
	var mutate struct {
		DeleteBranchProtectionRule struct {
			ClientMutationID githubv4.ID
		} `graphql:"deleteBranchProtectionRule(input: $input)"`
	}
	input := githubv4.DeleteBranchProtectionRuleInput{
		BranchProtectionRuleID: ruleID,
	}
	return c.gql.Mutate(ctx, &mutate, input, nil)
}

// RepositoryNodeID resolves a repository to its GraphQL node id.
func (c *Client) RepositoryNodeID(ctx context.Context, org, repo string) (string, error) {
	var query struct {
		Repository struct {
			ID githubv4.ID
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	variables := map[string]any{
		"owner": githubv4.String(org),
		"name":  githubv4.String(repo),
	}
	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", query.Repository.ID), nil
}

// UserNodeID resolves a user login to its GraphQL node id.
func (c *Client) UserNodeID(ctx context.Context, login string) (string, error) {
	var query struct {
		User struct {
			ID githubv4.ID
		} `graphql:"user(login: $login)"`
	}
	variables := map[string]any{"login": githubv4.String(login)}
	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", query.User.ID), nil
}

// TeamNodeID resolves an org-qualified team slug to its GraphQL node id.
func (c *Client) TeamNodeID(ctx context.Context, org, slug string) (string, error) {
	var query struct {
		Organization struct {
			Team struct {
				ID githubv4.ID
			} `graphql:"team(slug: $slug)"`
		} `graphql:"organization(login: $org)"`
	}
	variables := map[string]any{
		"org":  githubv4.String(org),
		"slug": githubv4.String(slug),
	}
	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return "", err
	}
	if query.Organization.Team.ID == nil {
		return "", fmt.Errorf("team %s/%s: %w", org, slug, ErrNotFound)
	}
	return fmt.Sprintf("%v", query.Organization.Team.ID), nil
}

// AppNodeID resolves an app slug to its GraphQL node id via the REST
// endpoint; the GraphQL schema has no top-level app lookup.
func (c *Client) AppNodeID(ctx context.Context, slug string) (string, error) {
	app, err := c.GetApp(ctx, slug)
	if err != nil {
		return "", err
	}
	return app.GetNodeID(), nil
}

// trimActorPrefix strips the leading '@' from an actor token.
func trimActorPrefix(token string) string {
	return strings.TrimPrefix(token, "@")
}
