package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/shurcooL/githubv4"

	"github.com/eclipse-csi/otterdog-sub000/internal/gh"
)

// BranchProtectionRule is the classic branch protection rule, keyed by
// its branch name pattern. The restricts_* gates of the provider form are
// derived from list non-emptiness and are not modeled directly.
type BranchProtectionRule struct {
	ID Value[string] `model:"id,external"`

	Pattern Value[string] `model:"pattern,key"`

	AllowsDeletions   Value[bool] `model:"allows_deletions"`
	AllowsForcePushes Value[bool] `model:"allows_force_pushes"`
	BlocksCreations   Value[bool] `model:"blocks_creations"`
	IsAdminEnforced   Value[bool] `model:"is_admin_enforced"`
	LockBranch        Value[bool] `model:"lock_branch"`

	RequiresApprovingReviews       Value[bool] `model:"requires_approving_reviews"`
	RequiredApprovingReviewCount   Value[int]  `model:"required_approving_review_count"`
	DismissesStaleReviews          Value[bool] `model:"dismisses_stale_reviews"`
	RequiresCodeOwnerReviews       Value[bool] `model:"requires_code_owner_reviews"`
	RequireLastPushApproval        Value[bool] `model:"require_last_push_approval"`
	RequiresCommitSignatures       Value[bool] `model:"requires_commit_signatures"`
	RequiresConversationResolution Value[bool] `model:"requires_conversation_resolution"`
	RequiresLinearHistory          Value[bool] `model:"requires_linear_history"`

	RequiresStatusChecks       Value[bool]     `model:"requires_status_checks"`
	RequiresStrictStatusChecks Value[bool]     `model:"requires_strict_status_checks"`
	RequiredStatusChecks       Value[[]string] `model:"required_status_checks,set"`

	PushRestrictions            Value[[]string] `model:"push_restrictions,set"`
	ReviewDismissalAllowances   Value[[]string] `model:"review_dismissal_allowances,set"`
	BypassForcePushAllowances   Value[[]string] `model:"bypass_force_push_allowances,set"`
	BypassPullRequestAllowances Value[[]string] `model:"bypass_pull_request_allowances,set"`
}

// NewBranchProtectionRuleFromProvider maps the GraphQL view into the
// model form.
func NewBranchProtectionRuleFromProvider(rule *gh.BranchProtectionRule) *BranchProtectionRule {
	node := rule.Node
	out := &BranchProtectionRule{
		ID:      Set(rule.ID),
		Pattern: Set(string(node.Pattern)),

		AllowsDeletions:   Set(bool(node.AllowsDeletions)),
		AllowsForcePushes: Set(bool(node.AllowsForcePushes)),
		BlocksCreations:   Set(bool(node.BlocksCreations)),
		IsAdminEnforced:   Set(bool(node.IsAdminEnforced)),
		LockBranch:        Set(bool(node.LockBranch)),

		RequiresApprovingReviews:       Set(bool(node.RequiresApprovingReviews)),
		RequiredApprovingReviewCount:   Set(int(node.RequiredApprovingReviewCount)),
		DismissesStaleReviews:          Set(bool(node.DismissesStaleReviews)),
		RequiresCodeOwnerReviews:       Set(bool(node.RequiresCodeOwnerReviews)),
		RequireLastPushApproval:        Set(bool(node.RequireLastPushApproval)),
		RequiresCommitSignatures:       Set(bool(node.RequiresCommitSignatures)),
		RequiresConversationResolution: Set(bool(node.RequiresConversationResolution)),
		RequiresLinearHistory:          Set(bool(node.RequiresLinearHistory)),

		RequiresStatusChecks:       Set(bool(node.RequiresStatusChecks)),
		RequiresStrictStatusChecks: Set(bool(node.RequiresStrictStatusChecks)),

		PushRestrictions:            Set(rule.PushAllowances),
		ReviewDismissalAllowances:   Set(rule.ReviewDismissalAllowances),
		BypassForcePushAllowances:   Set(rule.BypassForcePushAllowances),
		BypassPullRequestAllowances: Set(rule.BypassPullRequestAllowances),
	}

	checks := make([]string, 0, len(node.RequiredStatusChecks))
	for _, check := range node.RequiredStatusChecks {
		slug := string(check.App.Slug)
		if slug == "" {
			slug = "any"
		}
		checks = append(checks, slug+":"+string(check.Context))
	}
	out.RequiredStatusChecks = Set(checks)
	return out
}

// statusCheckInputs decodes the "<app_slug>:<context>" tokens into
// GraphQL inputs; "any" leaves the app unpinned.
func (r *BranchProtectionRule) statusCheckInputs(ctx context.Context, provider Provider) ([]githubv4.RequiredStatusCheckInput, error) {
	tokens := r.RequiredStatusChecks.OrElse(nil)
	inputs := make([]githubv4.RequiredStatusCheckInput, 0, len(tokens))
	for _, token := range tokens {
		slug, checkContext, ok := strings.Cut(token, ":")
		if !ok {
			inputs = append(inputs, githubv4.RequiredStatusCheckInput{Context: githubv4.String(token)})
			continue
		}
		input := githubv4.RequiredStatusCheckInput{Context: githubv4.String(checkContext)}
		if slug != "any" {
			appID, err := provider.AppNodeID(ctx, slug)
			if err != nil {
				return nil, fmt.Errorf("resolving status check app %q: %w", slug, err)
			}
			id := githubv4.ID(appID)
			input.AppID = &id
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func actorIDs(ctx context.Context, provider Provider, orgID string, tokens []string) *[]githubv4.ID {
	resolved := provider.ResolveActorNodeIDs(ctx, orgID, tokens)
	ids := make([]githubv4.ID, 0, len(resolved))
	for _, id := range resolved {
		ids = append(ids, githubv4.ID(id))
	}
	return &ids
}

func v4Bool(v Value[bool]) *githubv4.Boolean {
	if !v.IsSet() {
		return nil
	}
	b := githubv4.Boolean(v.Get())
	return &b
}

func v4Int(v Value[int]) *githubv4.Int {
	if !v.IsSet() {
		return nil
	}
	i := githubv4.Int(v.Get())
	return &i
}

// createInput builds the create mutation input for a new rule on the
// given repository node.
func (r *BranchProtectionRule) createInput(ctx context.Context, provider Provider, orgID, repositoryNodeID string) (githubv4.CreateBranchProtectionRuleInput, error) {
	input := githubv4.CreateBranchProtectionRuleInput{
		RepositoryID: githubv4.ID(repositoryNodeID),
		Pattern:      githubv4.String(r.Pattern.Get()),

		AllowsDeletions:   v4Bool(r.AllowsDeletions),
		AllowsForcePushes: v4Bool(r.AllowsForcePushes),
		BlocksCreations:   v4Bool(r.BlocksCreations),
		IsAdminEnforced:   v4Bool(r.IsAdminEnforced),
		LockBranch:        v4Bool(r.LockBranch),

		RequiresApprovingReviews:       v4Bool(r.RequiresApprovingReviews),
		RequiredApprovingReviewCount:   v4Int(r.RequiredApprovingReviewCount),
		DismissesStaleReviews:          v4Bool(r.DismissesStaleReviews),
		RequiresCodeOwnerReviews:       v4Bool(r.RequiresCodeOwnerReviews),
		RequireLastPushApproval:        v4Bool(r.RequireLastPushApproval),
		RequiresCommitSignatures:       v4Bool(r.RequiresCommitSignatures),
		RequiresConversationResolution: v4Bool(r.RequiresConversationResolution),
		RequiresLinearHistory:          v4Bool(r.RequiresLinearHistory),

		RequiresStatusChecks:       v4Bool(r.RequiresStatusChecks),
		RequiresStrictStatusChecks: v4Bool(r.RequiresStrictStatusChecks),
	}

	if r.RequiredStatusChecks.IsSet() {
		checks, err := r.statusCheckInputs(ctx, provider)
		if err != nil {
			return input, err
		}
		input.RequiredStatusChecks = &checks
	}
	r.applyActorLists(ctx, provider, orgID,
		&input.PushActorIDs, &input.ReviewDismissalActorIDs,
		&input.BypassForcePushActorIDs, &input.BypassPullRequestActorIDs,
		&input.RestrictsPushes, &input.RestrictsReviewDismissals)
	return input, nil
}

// updateInput builds the update mutation input for an existing rule.
func (r *BranchProtectionRule) updateInput(ctx context.Context, provider Provider, orgID, ruleID string) (githubv4.UpdateBranchProtectionRuleInput, error) {
	pattern := githubv4.String(r.Pattern.Get())
	input := githubv4.UpdateBranchProtectionRuleInput{
		BranchProtectionRuleID: githubv4.ID(ruleID),
		Pattern:                &pattern,

		AllowsDeletions:   v4Bool(r.AllowsDeletions),
		AllowsForcePushes: v4Bool(r.AllowsForcePushes),
		BlocksCreations:   v4Bool(r.BlocksCreations),
		IsAdminEnforced:   v4Bool(r.IsAdminEnforced),
		LockBranch:        v4Bool(r.LockBranch),

		RequiresApprovingReviews:       v4Bool(r.RequiresApprovingReviews),
		RequiredApprovingReviewCount:   v4Int(r.RequiredApprovingReviewCount),
		DismissesStaleReviews:          v4Bool(r.DismissesStaleReviews),
		RequiresCodeOwnerReviews:       v4Bool(r.RequiresCodeOwnerReviews),
		RequireLastPushApproval:        v4Bool(r.RequireLastPushApproval),
		RequiresCommitSignatures:       v4Bool(r.RequiresCommitSignatures),
		RequiresConversationResolution: v4Bool(r.RequiresConversationResolution),
		RequiresLinearHistory:          v4Bool(r.RequiresLinearHistory),

		RequiresStatusChecks:       v4Bool(r.RequiresStatusChecks),
		RequiresStrictStatusChecks: v4Bool(r.RequiresStrictStatusChecks),
	}

	if r.RequiredStatusChecks.IsSet() {
		checks, err := r.statusCheckInputs(ctx, provider)
		if err != nil {
			return input, err
		}
		input.RequiredStatusChecks = &checks
	}
	r.applyActorLists(ctx, provider, orgID,
		&input.PushActorIDs, &input.ReviewDismissalActorIDs,
		&input.BypassForcePushActorIDs, &input.BypassPullRequestActorIDs,
		&input.RestrictsPushes, &input.RestrictsReviewDismissals)
	return input, nil
}

// applyActorLists resolves the four allowance lists and derives the
// restricts_* gates from non-emptiness.
func (r *BranchProtectionRule) applyActorLists(
	ctx context.Context, provider Provider, orgID string,
	push, reviewDismissal, bypassForcePush, bypassPullRequest **[]githubv4.ID,
	restrictsPushes, restrictsReviewDismissals **githubv4.Boolean,
) {
	if r.PushRestrictions.IsSet() {
		ids := actorIDs(ctx, provider, orgID, r.PushRestrictions.Get())
		*push = ids
		b := githubv4.Boolean(len(*ids) > 0)
		*restrictsPushes = &b
	}
	if r.ReviewDismissalAllowances.IsSet() {
		ids := actorIDs(ctx, provider, orgID, r.ReviewDismissalAllowances.Get())
		*reviewDismissal = ids
		b := githubv4.Boolean(len(*ids) > 0)
		*restrictsReviewDismissals = &b
	}
	if r.BypassForcePushAllowances.IsSet() {
		*bypassForcePush = actorIDs(ctx, provider, orgID, r.BypassForcePushAllowances.Get())
	}
	if r.BypassPullRequestAllowances.IsSet() {
		*bypassPullRequest = actorIDs(ctx, provider, orgID, r.BypassPullRequestAllowances.Get())
	}
}

func (r *BranchProtectionRule) generateLivePatch(current *BranchProtectionRule, orgID, repoName string, sink *patchSink) {
	changes := Difference(r, current)
	if len(changes) == 0 {
		return
	}
	expected := r
	ruleID := current.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/branch_protection_rule[%s]", repoName, r.Pattern.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			input, err := expected.updateInput(ctx, provider, orgID, ruleID)
			if err != nil {
				return err
			}
			return provider.UpdateBranchProtectionRule(ctx, input)
		},
	})
}

func (r *BranchProtectionRule) addPatch(orgID, repoName string, sink *patchSink) {
	expected := r
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/branch_protection_rule[%s]", repoName, r.Pattern.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			repoNodeID, err := provider.RepositoryNodeID(ctx, orgID, repoName)
			if err != nil {
				return err
			}
			input, err := expected.createInput(ctx, provider, orgID, repoNodeID)
			if err != nil {
				return err
			}
			return provider.CreateBranchProtectionRule(ctx, input)
		},
	})
}

func (r *BranchProtectionRule) removePatch(orgID, repoName string, sink *patchSink) {
	ruleID := r.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/branch_protection_rule[%s]", repoName, r.Pattern.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteBranchProtectionRule(ctx, ruleID)
		},
	})
}

// Validate checks the review count bounds and allowance consistency.
func (r *BranchProtectionRule) Validate(vc *ValidationContext, repoName string) {
	where := fmt.Sprintf("repo[%s]/branch_protection_rule[%s]", repoName, r.Pattern.Get())
	if r.RequiresApprovingReviews.OrElse(false) {
		if count := r.RequiredApprovingReviewCount.OrElse(0); count < 0 || count > 10 {
			vc.Errorf("%s: required_approving_review_count must be between 0 and 10", where)
		}
	}
	if r.AllowsForcePushes.OrElse(false) && len(r.BypassForcePushAllowances.OrElse(nil)) > 0 {
		vc.Errorf("%s: bypass_force_push_allowances has no effect when force pushes are allowed", where)
	}
	if !r.RequiresStatusChecks.OrElse(false) && len(r.RequiredStatusChecks.OrElse(nil)) > 0 {
		vc.Warnf("%s: required_status_checks is ignored while requires_status_checks is false", where)
	}
}
