package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// Environment is a deployment environment of one repository, keyed by
// name. Secrets and variables scoped to the environment hang off it.
type Environment struct {
	Name              Value[string]   `model:"name,key"`
	WaitTimer         Value[int]      `model:"wait_timer"`
	Reviewers         Value[[]string] `model:"reviewers,set"`
	PreventSelfReview Value[bool]     `model:"prevent_self_review"`
	CanAdminsBypass   Value[bool]     `model:"can_admins_bypass"`
	BranchPolicy      Value[string]   `model:"deployment_branch_policy"`
	BranchPolicies    Value[[]string] `model:"branch_policies,set"`

	Secrets   []*EnvironmentSecret   `model:"secrets,embedded"`
	Variables []*EnvironmentVariable `model:"variables,embedded"`
}

func branchPolicyFromProvider(bp *github.BranchPolicy) string {
	switch {
	case bp == nil:
		return "all"
	case bp.GetProtectedBranches():
		return "protected"
	case bp.GetCustomBranchPolicies():
		return "selected"
	default:
		return "all"
	}
}

func branchPolicyToProvider(policy string) *github.BranchPolicy {
	switch policy {
	case "protected":
		return &github.BranchPolicy{
			ProtectedBranches:    github.Ptr(true),
			CustomBranchPolicies: github.Ptr(false),
		}
	case "selected":
		return &github.BranchPolicy{
			ProtectedBranches:    github.Ptr(false),
			CustomBranchPolicies: github.Ptr(true),
		}
	default:
		return nil
	}
}

func reviewerToken(org string, r *github.RequiredReviewer) string {
	switch reviewer := r.Reviewer.(type) {
	case *github.User:
		return "@" + reviewer.GetLogin()
	case *github.Team:
		return fmt.Sprintf("@%s/%s", org, reviewer.GetSlug())
	default:
		return ""
	}
}

// NewEnvironmentFromProvider maps a provider environment plus the branch
// names of its custom policy, if any.
func NewEnvironmentFromProvider(org string, env *github.Environment, branchPolicies []string) *Environment {
	out := &Environment{
		Name:            Set(env.GetName()),
		WaitTimer:       Set(0),
		Reviewers:       Set([]string(nil)),
		CanAdminsBypass: Set(env.GetCanAdminsBypass()),
		BranchPolicy:    Set(branchPolicyFromProvider(env.GetDeploymentBranchPolicy())),
		BranchPolicies:  Set(branchPolicies),
	}
	preventSelfReview := false
	for _, rule := range env.ProtectionRules {
		switch rule.GetType() {
		case "wait_timer":
			out.WaitTimer = Set(rule.GetWaitTimer())
		case "required_reviewers":
			if rule.PreventSelfReview != nil {
				preventSelfReview = *rule.PreventSelfReview
			}
			var tokens []string
			for _, reviewer := range rule.Reviewers {
				if token := reviewerToken(org, reviewer); token != "" {
					tokens = append(tokens, token)
				}
			}
			out.Reviewers = Set(tokens)
		}
	}
	out.PreventSelfReview = Set(preventSelfReview)
	return out
}

// toProvider builds the create-or-update body. Reviewer tokens are
// resolved at apply time.
func (e *Environment) toProvider(ctx context.Context, provider Provider, orgID string) (*github.CreateUpdateEnvironment, []string) {
	body := &github.CreateUpdateEnvironment{}
	if e.WaitTimer.IsSet() {
		body.WaitTimer = github.Ptr(e.WaitTimer.Get())
	}
	if e.Reviewers.IsSet() {
		body.Reviewers = provider.ResolveEnvReviewers(ctx, orgID, e.Reviewers.Get())
	}
	if e.PreventSelfReview.IsSet() {
		body.PreventSelfReview = github.Ptr(e.PreventSelfReview.Get())
	}
	if e.CanAdminsBypass.IsSet() {
		body.CanAdminsBypass = github.Ptr(e.CanAdminsBypass.Get())
	}
	body.DeploymentBranchPolicy = branchPolicyToProvider(e.BranchPolicy.OrElse("all"))

	var policies []string
	if e.BranchPolicy.OrElse("all") == "selected" {
		policies = e.BranchPolicies.OrElse([]string{})
		if policies == nil {
			policies = []string{}
		}
	}
	return body, policies
}

func (e *Environment) generateLivePatch(current *Environment, orgID, repoName string, sink *patchSink) {
	changes := Difference(e, current)
	if len(changes) == 0 {
		return
	}
	expected := e
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/environment[%s]", repoName, e.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			body, policies := expected.toProvider(ctx, provider, orgID)
			return provider.UpsertEnvironment(ctx, orgID, repoName, expected.Name.Get(), body, policies)
		},
	})
}

func (e *Environment) addPatch(orgID, repoName string, sink *patchSink) {
	expected := e
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/environment[%s]", repoName, e.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			body, policies := expected.toProvider(ctx, provider, orgID)
			return provider.UpsertEnvironment(ctx, orgID, repoName, expected.Name.Get(), body, policies)
		},
	})
}

func (e *Environment) removePatch(orgID, repoName string, sink *patchSink) {
	name := e.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/environment[%s]", repoName, name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteEnvironment(ctx, orgID, repoName, name)
		},
	})
}

// Validate checks the branch policy settings and the owned secrets and
// variables.
func (e *Environment) Validate(vc *ValidationContext, repoName string) {
	where := fmt.Sprintf("repo[%s]/environment[%s]", repoName, e.Name.Get())
	validEnum(vc, where, "deployment_branch_policy", e.BranchPolicy,
		"all", "protected", "selected")
	if e.BranchPolicy.OrElse("all") != "selected" && len(e.BranchPolicies.OrElse(nil)) > 0 {
		vc.Warnf("%s: branch_policies is ignored unless deployment_branch_policy is 'selected'", where)
	}
	if timer := e.WaitTimer.OrElse(0); timer < 0 || timer > 43200 {
		vc.Errorf("%s: wait_timer must be between 0 and 43200 minutes", where)
	}
	if len(e.Reviewers.OrElse(nil)) > 6 {
		vc.Errorf("%s: at most 6 reviewers are allowed", where)
	}
	for _, secret := range e.Secrets {
		secret.Validate(vc, repoName, e.Name.Get())
	}
	for _, variable := range e.Variables {
		variable.Validate(vc, repoName, e.Name.Get())
	}
}
