package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
)

// RepositoryRuleset is a ruleset scoped to a single repository. Rule
// presence maps onto boolean model fields; the allows_* flags are the
// inverted form of the restriction rules.
type RepositoryRuleset struct {
	ID     Value[int64]  `model:"id,external"`
	NodeID Value[string] `model:"node_id,external"`

	Name         Value[string]   `model:"name,key"`
	Target       Value[string]   `model:"target"`
	Enforcement  Value[string]   `model:"enforcement"`
	BypassActors Value[[]string] `model:"bypass_actors"`

	IncludeRefs Value[[]string] `model:"include_refs,set"`
	ExcludeRefs Value[[]string] `model:"exclude_refs,set"`

	AllowsCreations   Value[bool] `model:"allows_creations"`
	AllowsDeletions   Value[bool] `model:"allows_deletions"`
	AllowsUpdates     Value[bool] `model:"allows_updates"`
	AllowsForcePushes Value[bool] `model:"allows_force_pushes"`

	RequiresCommitSignatures Value[bool] `model:"requires_commit_signatures"`
	RequiresLinearHistory    Value[bool] `model:"requires_linear_history"`

	RequiresPullRequest            Value[bool]     `model:"requires_pull_request"`
	RequiredApprovingReviewCount   Value[int]      `model:"required_approving_review_count"`
	DismissesStaleReviews          Value[bool]     `model:"dismisses_stale_reviews"`
	RequiresCodeOwnerReview        Value[bool]     `model:"requires_code_owner_review"`
	RequiresLastPushApproval       Value[bool]     `model:"requires_last_push_approval"`
	RequiresReviewThreadResolution Value[bool]     `model:"requires_review_thread_resolution"`
	AllowedMergeMethods            Value[[]string] `model:"allowed_merge_methods,set"`

	RequiresStatusChecks       Value[bool]     `model:"requires_status_checks"`
	RequiresStrictStatusChecks Value[bool]     `model:"requires_strict_status_checks"`
	RequiredStatusChecks       Value[[]string] `model:"required_status_checks,set"`

	RequiresDeployments            Value[bool]     `model:"requires_deployments"`
	RequiredDeploymentEnvironments Value[[]string] `model:"required_deployment_environments,set"`

	RequiresMergeQueue              Value[bool]   `model:"requires_merge_queue"`
	MergeQueueCheckResponseTimeout  Value[int]    `model:"merge_queue_check_response_timeout"`
	MergeQueueGroupingStrategy      Value[string] `model:"merge_queue_grouping_strategy"`
	MergeQueueMaxEntriesToBuild     Value[int]    `model:"merge_queue_max_entries_to_build"`
	MergeQueueMaxEntriesToMerge     Value[int]    `model:"merge_queue_max_entries_to_merge"`
	MergeQueueMergeMethod           Value[string] `model:"merge_queue_merge_method"`
	MergeQueueMinEntriesToMerge     Value[int]    `model:"merge_queue_min_entries_to_merge"`
	MergeQueueMinEntriesToMergeWait Value[int]    `model:"merge_queue_min_entries_to_merge_wait_time"`
}

// OrganizationRuleset is the org-scoped variant; it additionally targets
// repositories by name globs.
type OrganizationRuleset struct {
	ID     Value[int64]  `model:"id,external"`
	NodeID Value[string] `model:"node_id,external"`

	Name         Value[string]   `model:"name,key"`
	Target       Value[string]   `model:"target"`
	Enforcement  Value[string]   `model:"enforcement"`
	BypassActors Value[[]string] `model:"bypass_actors"`

	IncludeRefs      Value[[]string] `model:"include_refs,set"`
	ExcludeRefs      Value[[]string] `model:"exclude_refs,set"`
	IncludeRepoNames Value[[]string] `model:"include_repo_names,set"`
	ExcludeRepoNames Value[[]string] `model:"exclude_repo_names,set"`

	AllowsCreations   Value[bool] `model:"allows_creations"`
	AllowsDeletions   Value[bool] `model:"allows_deletions"`
	AllowsUpdates     Value[bool] `model:"allows_updates"`
	AllowsForcePushes Value[bool] `model:"allows_force_pushes"`

	RequiresCommitSignatures Value[bool] `model:"requires_commit_signatures"`
	RequiresLinearHistory    Value[bool] `model:"requires_linear_history"`

	RequiresPullRequest            Value[bool]     `model:"requires_pull_request"`
	RequiredApprovingReviewCount   Value[int]      `model:"required_approving_review_count"`
	DismissesStaleReviews          Value[bool]     `model:"dismisses_stale_reviews"`
	RequiresCodeOwnerReview        Value[bool]     `model:"requires_code_owner_review"`
	RequiresLastPushApproval       Value[bool]     `model:"requires_last_push_approval"`
	RequiresReviewThreadResolution Value[bool]     `model:"requires_review_thread_resolution"`
	AllowedMergeMethods            Value[[]string] `model:"allowed_merge_methods,set"`

	RequiresStatusChecks       Value[bool]     `model:"requires_status_checks"`
	RequiresStrictStatusChecks Value[bool]     `model:"requires_strict_status_checks"`
	RequiredStatusChecks       Value[[]string] `model:"required_status_checks,set"`

	RequiresDeployments            Value[bool]     `model:"requires_deployments"`
	RequiredDeploymentEnvironments Value[[]string] `model:"required_deployment_environments,set"`

	RequiresMergeQueue              Value[bool]   `model:"requires_merge_queue"`
	MergeQueueCheckResponseTimeout  Value[int]    `model:"merge_queue_check_response_timeout"`
	MergeQueueGroupingStrategy      Value[string] `model:"merge_queue_grouping_strategy"`
	MergeQueueMaxEntriesToBuild     Value[int]    `model:"merge_queue_max_entries_to_build"`
	MergeQueueMaxEntriesToMerge     Value[int]    `model:"merge_queue_max_entries_to_merge"`
	MergeQueueMergeMethod           Value[string] `model:"merge_queue_merge_method"`
	MergeQueueMinEntriesToMerge     Value[int]    `model:"merge_queue_min_entries_to_merge"`
	MergeQueueMinEntriesToMergeWait Value[int]    `model:"merge_queue_min_entries_to_merge_wait_time"`
}

// repoView exposes the shared rule fields of an org ruleset as a
// repository ruleset so one conversion path serves both scopes.
func (r *OrganizationRuleset) repoView() *RepositoryRuleset {
	return &RepositoryRuleset{
		ID: r.ID, NodeID: r.NodeID,
		Name: r.Name, Target: r.Target, Enforcement: r.Enforcement, BypassActors: r.BypassActors,
		IncludeRefs: r.IncludeRefs, ExcludeRefs: r.ExcludeRefs,
		AllowsCreations: r.AllowsCreations, AllowsDeletions: r.AllowsDeletions,
		AllowsUpdates: r.AllowsUpdates, AllowsForcePushes: r.AllowsForcePushes,
		RequiresCommitSignatures: r.RequiresCommitSignatures, RequiresLinearHistory: r.RequiresLinearHistory,
		RequiresPullRequest:          r.RequiresPullRequest,
		RequiredApprovingReviewCount: r.RequiredApprovingReviewCount,
		DismissesStaleReviews:        r.DismissesStaleReviews,
		RequiresCodeOwnerReview:      r.RequiresCodeOwnerReview,
		RequiresLastPushApproval:     r.RequiresLastPushApproval,
		RequiresReviewThreadResolution: r.RequiresReviewThreadResolution,
		AllowedMergeMethods:            r.AllowedMergeMethods,
		RequiresStatusChecks:           r.RequiresStatusChecks,
		RequiresStrictStatusChecks:     r.RequiresStrictStatusChecks,
		RequiredStatusChecks:           r.RequiredStatusChecks,
		RequiresDeployments:            r.RequiresDeployments,
		RequiredDeploymentEnvironments: r.RequiredDeploymentEnvironments,
		RequiresMergeQueue:              r.RequiresMergeQueue,
		MergeQueueCheckResponseTimeout:  r.MergeQueueCheckResponseTimeout,
		MergeQueueGroupingStrategy:      r.MergeQueueGroupingStrategy,
		MergeQueueMaxEntriesToBuild:     r.MergeQueueMaxEntriesToBuild,
		MergeQueueMaxEntriesToMerge:     r.MergeQueueMaxEntriesToMerge,
		MergeQueueMergeMethod:           r.MergeQueueMergeMethod,
		MergeQueueMinEntriesToMerge:     r.MergeQueueMinEntriesToMerge,
		MergeQueueMinEntriesToMergeWait: r.MergeQueueMinEntriesToMergeWait,
	}
}

func (r *OrganizationRuleset) setFromRepoView(v *RepositoryRuleset) {
	r.ID, r.NodeID = v.ID, v.NodeID
	r.Name, r.Target, r.Enforcement, r.BypassActors = v.Name, v.Target, v.Enforcement, v.BypassActors
	r.IncludeRefs, r.ExcludeRefs = v.IncludeRefs, v.ExcludeRefs
	r.AllowsCreations, r.AllowsDeletions = v.AllowsCreations, v.AllowsDeletions
	r.AllowsUpdates, r.AllowsForcePushes = v.AllowsUpdates, v.AllowsForcePushes
	r.RequiresCommitSignatures, r.RequiresLinearHistory = v.RequiresCommitSignatures, v.RequiresLinearHistory
	r.RequiresPullRequest = v.RequiresPullRequest
	r.RequiredApprovingReviewCount = v.RequiredApprovingReviewCount
	r.DismissesStaleReviews = v.DismissesStaleReviews
	r.RequiresCodeOwnerReview = v.RequiresCodeOwnerReview
	r.RequiresLastPushApproval = v.RequiresLastPushApproval
	r.RequiresReviewThreadResolution = v.RequiresReviewThreadResolution
	r.AllowedMergeMethods = v.AllowedMergeMethods
	r.RequiresStatusChecks = v.RequiresStatusChecks
	r.RequiresStrictStatusChecks = v.RequiresStrictStatusChecks
	r.RequiredStatusChecks = v.RequiredStatusChecks
	r.RequiresDeployments = v.RequiresDeployments
	r.RequiredDeploymentEnvironments = v.RequiredDeploymentEnvironments
	r.RequiresMergeQueue = v.RequiresMergeQueue
	r.MergeQueueCheckResponseTimeout = v.MergeQueueCheckResponseTimeout
	r.MergeQueueGroupingStrategy = v.MergeQueueGroupingStrategy
	r.MergeQueueMaxEntriesToBuild = v.MergeQueueMaxEntriesToBuild
	r.MergeQueueMaxEntriesToMerge = v.MergeQueueMaxEntriesToMerge
	r.MergeQueueMergeMethod = v.MergeQueueMergeMethod
	r.MergeQueueMinEntriesToMerge = v.MergeQueueMinEntriesToMerge
	r.MergeQueueMinEntriesToMergeWait = v.MergeQueueMinEntriesToMergeWait
}

// statusCheckToken encodes a provider status check as "<app_slug>:<context>",
// with "any" standing in for checks not pinned to an integration.
func statusCheckToken(check *github.RuleStatusCheck, appSlugsByID map[int64]string) string {
	if check.IntegrationID == nil {
		return "any:" + check.Context
	}
	if slug, ok := appSlugsByID[*check.IntegrationID]; ok {
		return slug + ":" + check.Context
	}
	return fmt.Sprintf("%d:%s", *check.IntegrationID, check.Context)
}

// NewRepoRulesetFromProvider maps a provider ruleset into the model
// form. bypassTokens are the already decoded actor tokens.
func NewRepoRulesetFromProvider(rs *github.RepositoryRuleset, bypassTokens []string, appSlugsByID map[int64]string) *RepositoryRuleset {
	out := &RepositoryRuleset{
		ID:           Set(rs.GetID()),
		NodeID:       Set(rs.GetNodeID()),
		Name:         Set(rs.Name),
		Enforcement:  Set(string(rs.Enforcement)),
		BypassActors: Set(bypassTokens),
	}
	if rs.Target != nil {
		out.Target = Set(string(*rs.Target))
	}
	if cond := rs.GetConditions(); cond != nil && cond.RefName != nil {
		out.IncludeRefs = Set(append([]string(nil), cond.RefName.Include...))
		out.ExcludeRefs = Set(append([]string(nil), cond.RefName.Exclude...))
	}

	rules := rs.GetRules()
	if rules == nil {
		rules = &github.RepositoryRulesetRules{}
	}
	out.AllowsCreations = Set(rules.Creation == nil)
	out.AllowsDeletions = Set(rules.Deletion == nil)
	out.AllowsUpdates = Set(rules.Update == nil)
	out.AllowsForcePushes = Set(rules.NonFastForward == nil)
	out.RequiresCommitSignatures = Set(rules.RequiredSignatures != nil)
	out.RequiresLinearHistory = Set(rules.RequiredLinearHistory != nil)

	out.RequiresPullRequest = Set(rules.PullRequest != nil)
	if pr := rules.PullRequest; pr != nil {
		out.RequiredApprovingReviewCount = Set(pr.RequiredApprovingReviewCount)
		out.DismissesStaleReviews = Set(pr.DismissStaleReviewsOnPush)
		out.RequiresCodeOwnerReview = Set(pr.RequireCodeOwnerReview)
		out.RequiresLastPushApproval = Set(pr.RequireLastPushApproval)
		out.RequiresReviewThreadResolution = Set(pr.RequiredReviewThreadResolution)
		methods := make([]string, 0, len(pr.AllowedMergeMethods))
		for _, m := range pr.AllowedMergeMethods {
			methods = append(methods, strings.ToLower(string(m)))
		}
		out.AllowedMergeMethods = Set(methods)
	}

	out.RequiresStatusChecks = Set(rules.RequiredStatusChecks != nil)
	if rsc := rules.RequiredStatusChecks; rsc != nil {
		out.RequiresStrictStatusChecks = Set(rsc.StrictRequiredStatusChecksPolicy)
		checks := make([]string, 0, len(rsc.RequiredStatusChecks))
		for _, check := range rsc.RequiredStatusChecks {
			checks = append(checks, statusCheckToken(check, appSlugsByID))
		}
		out.RequiredStatusChecks = Set(checks)
	}

	out.RequiresDeployments = Set(rules.RequiredDeployments != nil)
	if rd := rules.RequiredDeployments; rd != nil {
		out.RequiredDeploymentEnvironments = Set(append([]string(nil), rd.RequiredDeploymentEnvironments...))
	}

	out.RequiresMergeQueue = Set(rules.MergeQueue != nil)
	if mq := rules.MergeQueue; mq != nil {
		out.MergeQueueCheckResponseTimeout = Set(mq.CheckResponseTimeoutMinutes)
		out.MergeQueueGroupingStrategy = Set(string(mq.GroupingStrategy))
		out.MergeQueueMaxEntriesToBuild = Set(mq.MaxEntriesToBuild)
		out.MergeQueueMaxEntriesToMerge = Set(mq.MaxEntriesToMerge)
		out.MergeQueueMergeMethod = Set(string(mq.MergeMethod))
		out.MergeQueueMinEntriesToMerge = Set(mq.MinEntriesToMerge)
		out.MergeQueueMinEntriesToMergeWait = Set(mq.MinEntriesToMergeWaitMinutes)
	}
	return out
}

func NewOrgRulesetFromProvider(rs *github.RepositoryRuleset, bypassTokens []string, appSlugsByID map[int64]string) *OrganizationRuleset {
	out := &OrganizationRuleset{}
	out.setFromRepoView(NewRepoRulesetFromProvider(rs, bypassTokens, appSlugsByID))
	if cond := rs.GetConditions(); cond != nil && cond.RepositoryName != nil {
		out.IncludeRepoNames = Set(append([]string(nil), cond.RepositoryName.Include...))
		out.ExcludeRepoNames = Set(append([]string(nil), cond.RepositoryName.Exclude...))
	}
	return out
}

// toProvider builds the full provider ruleset. Bypass actors and status
// check integrations are resolved through the provider at apply time.
func (r *RepositoryRuleset) toProvider(ctx context.Context, provider Provider, orgID string) (github.RepositoryRuleset, error) {
	rs := github.RepositoryRuleset{
		Name:        r.Name.Get(),
		Enforcement: github.RulesetEnforcement(r.Enforcement.OrElse("active")),
	}
	if r.Target.IsSet() {
		rs.Target = (*github.RulesetTarget)(github.Ptr(r.Target.Get()))
	}
	if tokens := r.BypassActors.OrElse(nil); len(tokens) > 0 {
		rs.BypassActors = provider.ResolveBypassActors(ctx, orgID, tokens)
	}
	if r.IncludeRefs.IsSet() || r.ExcludeRefs.IsSet() {
		rs.Conditions = &github.RepositoryRulesetConditions{
			RefName: &github.RepositoryRulesetRefConditionParameters{
				Include: r.IncludeRefs.OrElse([]string{}),
				Exclude: r.ExcludeRefs.OrElse([]string{}),
			},
		}
	}

	rules := &github.RepositoryRulesetRules{}
	if !r.AllowsCreations.OrElse(true) {
		rules.Creation = &github.EmptyRuleParameters{}
	}
	if !r.AllowsDeletions.OrElse(true) {
		rules.Deletion = &github.EmptyRuleParameters{}
	}
	if !r.AllowsUpdates.OrElse(true) {
		rules.Update = &github.UpdateRuleParameters{}
	}
	if !r.AllowsForcePushes.OrElse(true) {
		rules.NonFastForward = &github.EmptyRuleParameters{}
	}
	if r.RequiresCommitSignatures.OrElse(false) {
		rules.RequiredSignatures = &github.EmptyRuleParameters{}
	}
	if r.RequiresLinearHistory.OrElse(false) {
		rules.RequiredLinearHistory = &github.EmptyRuleParameters{}
	}

	if r.RequiresPullRequest.OrElse(false) {
		methods := r.AllowedMergeMethods.OrElse([]string{"merge", "squash", "rebase"})
		allowed := make([]github.PullRequestMergeMethod, 0, len(methods))
		for _, m := range methods {
			allowed = append(allowed, github.PullRequestMergeMethod(strings.ToLower(m)))
		}
		rules.PullRequest = &github.PullRequestRuleParameters{
			AllowedMergeMethods:            allowed,
			DismissStaleReviewsOnPush:      r.DismissesStaleReviews.OrElse(false),
			RequireCodeOwnerReview:         r.RequiresCodeOwnerReview.OrElse(false),
			RequireLastPushApproval:        r.RequiresLastPushApproval.OrElse(false),
			RequiredApprovingReviewCount:   r.RequiredApprovingReviewCount.OrElse(0),
			RequiredReviewThreadResolution: r.RequiresReviewThreadResolution.OrElse(false),
		}
	}

	if r.RequiresStatusChecks.OrElse(false) {
		params := &github.RequiredStatusChecksRuleParameters{
			StrictRequiredStatusChecksPolicy: r.RequiresStrictStatusChecks.OrElse(false),
		}
		for _, token := range r.RequiredStatusChecks.OrElse(nil) {
			check, err := statusCheckFromToken(ctx, provider, token)
			if err != nil {
				return rs, err
			}
			params.RequiredStatusChecks = append(params.RequiredStatusChecks, check)
		}
		rules.RequiredStatusChecks = params
	}

	if r.RequiresDeployments.OrElse(false) {
		rules.RequiredDeployments = &github.RequiredDeploymentsRuleParameters{
			RequiredDeploymentEnvironments: r.RequiredDeploymentEnvironments.OrElse([]string{}),
		}
	}

	if r.RequiresMergeQueue.OrElse(false) {
		rules.MergeQueue = &github.MergeQueueRuleParameters{
			CheckResponseTimeoutMinutes:  r.MergeQueueCheckResponseTimeout.OrElse(60),
			GroupingStrategy:             github.MergeGroupingStrategy(r.MergeQueueGroupingStrategy.OrElse("ALLGREEN")),
			MaxEntriesToBuild:            r.MergeQueueMaxEntriesToBuild.OrElse(5),
			MaxEntriesToMerge:            r.MergeQueueMaxEntriesToMerge.OrElse(5),
			MergeMethod:                  github.MergeQueueMergeMethod(r.MergeQueueMergeMethod.OrElse("MERGE")),
			MinEntriesToMerge:            r.MergeQueueMinEntriesToMerge.OrElse(1),
			MinEntriesToMergeWaitMinutes: r.MergeQueueMinEntriesToMergeWait.OrElse(5),
		}
	}

	rs.Rules = rules
	return rs, nil
}

func (r *OrganizationRuleset) toProvider(ctx context.Context, provider Provider, orgID string) (github.RepositoryRuleset, error) {
	rs, err := r.repoView().toProvider(ctx, provider, orgID)
	if err != nil {
		return rs, err
	}
	rs.SourceType = github.Ptr(github.RulesetSourceTypeOrganization)
	if r.IncludeRepoNames.IsSet() || r.ExcludeRepoNames.IsSet() {
		if rs.Conditions == nil {
			rs.Conditions = &github.RepositoryRulesetConditions{}
		}
		rs.Conditions.RepositoryName = &github.RepositoryRulesetRepositoryNamesConditionParameters{
			Include: r.IncludeRepoNames.OrElse([]string{}),
			Exclude: r.ExcludeRepoNames.OrElse([]string{}),
		}
	}
	return rs, nil
}

// statusCheckFromToken decodes "<app_slug>:<context>"; "any" leaves the
// integration unpinned.
func statusCheckFromToken(ctx context.Context, provider Provider, token string) (*github.RuleStatusCheck, error) {
	slug, checkContext, ok := strings.Cut(token, ":")
	if !ok {
		return &github.RuleStatusCheck{Context: token}, nil
	}
	if slug == "any" {
		return &github.RuleStatusCheck{Context: checkContext}, nil
	}
	app, err := provider.GetApp(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolving status check app %q: %w", slug, err)
	}
	return &github.RuleStatusCheck{
		Context:       checkContext,
		IntegrationID: github.Ptr(app.GetID()),
	}, nil
}

func (r *OrganizationRuleset) generateLivePatch(current *OrganizationRuleset, orgID string, sink *patchSink) {
	changes := Difference(r, current)
	if len(changes) == 0 {
		return
	}
	expected := r
	id := current.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("org_ruleset[%s]", r.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			rs, err := expected.toProvider(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.UpdateOrgRuleset(ctx, orgID, id, rs)
		},
	})
}

func (r *OrganizationRuleset) addPatch(orgID string, sink *patchSink) {
	expected := r
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("org_ruleset[%s]", r.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			rs, err := expected.toProvider(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.CreateOrgRuleset(ctx, orgID, rs)
		},
	})
}

func (r *OrganizationRuleset) removePatch(orgID string, sink *patchSink) {
	id := r.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("org_ruleset[%s]", r.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteOrgRuleset(ctx, orgID, id)
		},
	})
}

func (r *RepositoryRuleset) generateLivePatch(current *RepositoryRuleset, orgID, repoName string, sink *patchSink) {
	changes := Difference(r, current)
	if len(changes) == 0 {
		return
	}
	expected := r
	id := current.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/ruleset[%s]", repoName, r.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			rs, err := expected.toProvider(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.UpdateRepoRuleset(ctx, orgID, repoName, id, rs)
		},
	})
}

func (r *RepositoryRuleset) addPatch(orgID, repoName string, sink *patchSink) {
	expected := r
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/ruleset[%s]", repoName, r.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			rs, err := expected.toProvider(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.CreateRepoRuleset(ctx, orgID, repoName, rs)
		},
	})
}

func (r *RepositoryRuleset) removePatch(orgID, repoName string, sink *patchSink) {
	id := r.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/ruleset[%s]", repoName, r.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteRepoRuleset(ctx, orgID, repoName, id)
		},
	})
}

// validateRulesetCore checks the invariants shared by both scopes.
func validateRulesetCore(vc *ValidationContext, where string, r *RepositoryRuleset, declaredEnvs map[string]bool) {
	validEnum(vc, where, "target", r.Target, "branch", "tag", "push")
	validEnum(vc, where, "enforcement", r.Enforcement, "active", "disabled", "evaluate")

	if r.Enforcement.OrElse("") == "evaluate" && vc.Plan == "free" {
		vc.Errorf("%s: enforcement \"evaluate\" requires an enterprise plan", where)
	}
	if count := r.RequiredApprovingReviewCount.OrElse(0); r.RequiresPullRequest.OrElse(false) && (count < 0 || count > 10) {
		vc.Errorf("%s: required_approving_review_count must be between 0 and 10", where)
	}

	target := r.Target.OrElse("branch")
	refPrefix := "refs/heads/"
	if target == "tag" {
		refPrefix = "refs/tags/"
	}
	if target != "push" {
		for _, ref := range append(r.IncludeRefs.OrElse(nil), r.ExcludeRefs.OrElse(nil)...) {
			if ref == "~ALL" || ref == "~DEFAULT_BRANCH" {
				continue
			}
			if !strings.HasPrefix(ref, refPrefix) {
				vc.Errorf("%s: ref pattern %q does not match target %q", where, ref, target)
			}
		}
	}

	if declaredEnvs != nil && r.RequiresDeployments.OrElse(false) {
		for _, env := range r.RequiredDeploymentEnvironments.OrElse(nil) {
			if !declaredEnvs[env] {
				vc.Errorf("%s: required deployment environment %q is not declared", where, env)
			}
		}
	}

	for _, m := range r.AllowedMergeMethods.OrElse(nil) {
		switch strings.ToLower(m) {
		case "merge", "squash", "rebase":
		default:
			vc.Errorf("%s: unknown merge method %q", where, m)
		}
	}
}

// Validate checks an org ruleset; repoNames is the set of declared
// repository names for glob matching.
func (r *OrganizationRuleset) Validate(vc *ValidationContext, repoNames []string) {
	where := fmt.Sprintf("org_ruleset[%s]", r.Name.Get())
	validateRulesetCore(vc, where, r.repoView(), nil)

	for _, pattern := range append(r.IncludeRepoNames.OrElse(nil), r.ExcludeRepoNames.OrElse(nil)...) {
		if pattern == "~ALL" {
			continue
		}
		if !anyRepoMatches(pattern, repoNames) {
			vc.Warnf("%s: repository name pattern %q matches no declared repository", where, pattern)
		}
	}
}

func (r *RepositoryRuleset) Validate(vc *ValidationContext, repoName string, declaredEnvs map[string]bool) {
	where := fmt.Sprintf("repo[%s]/ruleset[%s]", repoName, r.Name.Get())
	validateRulesetCore(vc, where, r, declaredEnvs)
}

// anyRepoMatches does simple glob matching with a trailing-star wildcard,
// the form GitHub accepts for repository name conditions.
func anyRepoMatches(pattern string, repoNames []string) bool {
	for _, name := range repoNames {
		if matchRepoGlob(pattern, name) {
			return true
		}
	}
	return false
}

func matchRepoGlob(pattern, name string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}
