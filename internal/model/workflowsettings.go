package model

import (
	"context"

	"github.com/eclipse-csi/otterdog-sub000/internal/gh"
)

// OrganizationWorkflowSettings is the singleton record for org-wide
// GitHub Actions settings.
type OrganizationWorkflowSettings struct {
	EnabledRepositories                  Value[string]   `model:"enabled_repositories"`
	SelectedRepositories                 Value[[]string] `model:"selected_repositories,set"`
	AllowedActions                       Value[string]   `model:"allowed_actions"`
	AllowGithubOwnedActions              Value[bool]     `model:"allow_github_owned_actions"`
	AllowVerifiedCreatorActions          Value[bool]     `model:"allow_verified_creator_actions"`
	AllowActionPatterns                  Value[[]string] `model:"allow_action_patterns,set"`
	DefaultWorkflowPermissions           Value[string]   `model:"default_workflow_permissions"`
	ActionsCanApprovePullRequestReviews  Value[bool]     `model:"actions_can_approve_pull_request_reviews"`
}

// RepositoryWorkflowSettings is the per-repository counterpart. The
// enabled flag only takes effect when the organization selects
// repositories individually.
type RepositoryWorkflowSettings struct {
	Enabled                             Value[bool]     `model:"enabled"`
	AllowedActions                      Value[string]   `model:"allowed_actions"`
	AllowGithubOwnedActions             Value[bool]     `model:"allow_github_owned_actions"`
	AllowVerifiedCreatorActions         Value[bool]     `model:"allow_verified_creator_actions"`
	AllowActionPatterns                 Value[[]string] `model:"allow_action_patterns,set"`
	DefaultWorkflowPermissions          Value[string]   `model:"default_workflow_permissions"`
	ActionsCanApprovePullRequestReviews Value[bool]     `model:"actions_can_approve_pull_request_reviews"`
}

// NewOrgWorkflowSettingsFromProvider maps the facade's combined workflow
// settings view into the model form. repoNamesByID translates the
// selected repository ids back to names.
func NewOrgWorkflowSettingsFromProvider(ws *gh.WorkflowSettings, repoNamesByID map[int64]string) *OrganizationWorkflowSettings {
	s := &OrganizationWorkflowSettings{}
	if ws.EnabledRepositories != nil {
		s.EnabledRepositories = Set(*ws.EnabledRepositories)
	}
	if ws.SelectedRepositoryIDs != nil {
		names := make([]string, 0, len(ws.SelectedRepositoryIDs))
		for _, id := range ws.SelectedRepositoryIDs {
			if name, ok := repoNamesByID[id]; ok {
				names = append(names, name)
			}
		}
		s.SelectedRepositories = Set(names)
	}
	mapSharedWorkflowFields(ws,
		&s.AllowedActions, &s.AllowGithubOwnedActions, &s.AllowVerifiedCreatorActions,
		&s.AllowActionPatterns, &s.DefaultWorkflowPermissions, &s.ActionsCanApprovePullRequestReviews)
	return s
}

// NewRepoWorkflowSettingsFromProvider maps the per-repository view.
func NewRepoWorkflowSettingsFromProvider(ws *gh.WorkflowSettings) *RepositoryWorkflowSettings {
	s := &RepositoryWorkflowSettings{}
	if ws.Enabled != nil {
		s.Enabled = Set(*ws.Enabled)
	}
	mapSharedWorkflowFields(ws,
		&s.AllowedActions, &s.AllowGithubOwnedActions, &s.AllowVerifiedCreatorActions,
		&s.AllowActionPatterns, &s.DefaultWorkflowPermissions, &s.ActionsCanApprovePullRequestReviews)
	return s
}

func mapSharedWorkflowFields(
	ws *gh.WorkflowSettings,
	allowedActions *Value[string],
	githubOwned, verified *Value[bool],
	patterns *Value[[]string],
	defaultPerms *Value[string],
	canApprove *Value[bool],
) {
	if ws.AllowedActions != nil {
		*allowedActions = Set(*ws.AllowedActions)
	}
	if ws.GithubOwnedAllowed != nil {
		*githubOwned = Set(*ws.GithubOwnedAllowed)
	}
	if ws.VerifiedAllowed != nil {
		*verified = Set(*ws.VerifiedAllowed)
	}
	if ws.PatternsAllowed != nil {
		*patterns = Set(append([]string(nil), ws.PatternsAllowed...))
	}
	if ws.DefaultWorkflowPermissions != nil {
		*defaultPerms = Set(*ws.DefaultWorkflowPermissions)
	}
	if ws.CanApprovePullRequestReviews != nil {
		*canApprove = Set(*ws.CanApprovePullRequestReviews)
	}
}

// orgWorkflowChangesToProvider builds the sparse write body from a change
// set; only changed parts are populated.
func orgWorkflowChangesToProvider(changes map[string]Change, repoIDsByName map[string]int64) *gh.WorkflowSettings {
	ws := &gh.WorkflowSettings{}
	for field, change := range changes {
		switch field {
		case "enabled_repositories":
			v := change.To.(string)
			ws.EnabledRepositories = &v
		case "selected_repositories":
			names := change.To.([]string)
			ids := make([]int64, 0, len(names))
			for _, name := range names {
				if id, ok := repoIDsByName[name]; ok {
					ids = append(ids, id)
				}
			}
			ws.SelectedRepositoryIDs = ids
		default:
			applySharedWorkflowChange(ws, field, change)
		}
	}
	return ws
}

func repoWorkflowChangesToProvider(changes map[string]Change) *gh.WorkflowSettings {
	ws := &gh.WorkflowSettings{}
	for field, change := range changes {
		if field == "enabled" {
			v := change.To.(bool)
			ws.Enabled = &v
			continue
		}
		applySharedWorkflowChange(ws, field, change)
	}
	return ws
}

func applySharedWorkflowChange(ws *gh.WorkflowSettings, field string, change Change) {
	switch field {
	case "allowed_actions":
		v := change.To.(string)
		ws.AllowedActions = &v
	case "allow_github_owned_actions":
		v := change.To.(bool)
		ws.GithubOwnedAllowed = &v
	case "allow_verified_creator_actions":
		v := change.To.(bool)
		ws.VerifiedAllowed = &v
	case "allow_action_patterns":
		ws.PatternsAllowed = change.To.([]string)
	case "default_workflow_permissions":
		v := change.To.(string)
		ws.DefaultWorkflowPermissions = &v
	case "actions_can_approve_pull_request_reviews":
		v := change.To.(bool)
		ws.CanApprovePullRequestReviews = &v
	}
}

// Validate checks the org-level enumerations.
func (s *OrganizationWorkflowSettings) Validate(vc *ValidationContext) {
	validEnum(vc, "org workflow settings", "enabled_repositories",
		s.EnabledRepositories, "all", "none", "selected")
	validEnum(vc, "org workflow settings", "allowed_actions",
		s.AllowedActions, "all", "local_only", "selected")
	validEnum(vc, "org workflow settings", "default_workflow_permissions",
		s.DefaultWorkflowPermissions, "read", "write")
	if s.EnabledRepositories.OrElse("") != "selected" &&
		len(s.SelectedRepositories.OrElse(nil)) > 0 {
		vc.Warnf("org workflow settings: selected_repositories is ignored unless enabled_repositories is \"selected\"")
	}
	if s.AllowedActions.OrElse("") != "selected" &&
		len(s.AllowActionPatterns.OrElse(nil)) > 0 {
		vc.Warnf("org workflow settings: allow_action_patterns is ignored unless allowed_actions is \"selected\"")
	}
}

// Validate checks the repo-level enumerations.
func (s *RepositoryWorkflowSettings) Validate(vc *ValidationContext, repoName string) {
	validEnum(vc, "repo["+repoName+"] workflow settings", "allowed_actions",
		s.AllowedActions, "all", "local_only", "selected")
	validEnum(vc, "repo["+repoName+"] workflow settings", "default_workflow_permissions",
		s.DefaultWorkflowPermissions, "read", "write")
}

func (s *OrganizationWorkflowSettings) generateLivePatch(current *OrganizationWorkflowSettings, orgID string, sink *patchSink) {
	changes := Difference(s, current)
	if len(changes) == 0 {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: "workflow_settings",
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			ids, err := repoIDsByName(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.UpdateOrgWorkflowSettings(ctx, orgID, orgWorkflowChangesToProvider(changes, ids))
		},
	})
}

func (s *RepositoryWorkflowSettings) generateLivePatch(current *RepositoryWorkflowSettings, orgID, repoName string, sink *patchSink) {
	changes := Difference(s, current)
	if len(changes) == 0 {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: "repo[" + repoName + "]/workflow_settings",
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.UpdateRepoWorkflowSettings(ctx, orgID, repoName, repoWorkflowChangesToProvider(changes))
		},
	})
}

// repoIDsByName resolves repository names to ids for selected-repository
// scoping on workflow settings, secrets and variables.
func repoIDsByName(ctx context.Context, provider Provider, orgID string) (map[string]int64, error) {
	repos, err := provider.ListRepositories(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(repos))
	for _, r := range repos {
		ids[r.GetName()] = r.GetID()
	}
	return ids, nil
}
