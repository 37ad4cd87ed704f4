package model

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// OrganizationSettings is the singleton record of org-wide settings. Most
// fields travel over the REST organization endpoint; a few exist only in
// the web UI and are routed through the web client.
type OrganizationSettings struct {
	Name            Value[string] `model:"name"`
	Plan            Value[string] `model:"plan,readonly"`
	Description     Value[string] `model:"description"`
	Email           Value[string] `model:"email"`
	Location        Value[string] `model:"location"`
	Company         Value[string] `model:"company"`
	BillingEmail    Value[string] `model:"billing_email"`
	TwitterUsername Value[string] `model:"twitter_username"`
	Blog            Value[string] `model:"blog"`

	HasOrganizationProjects     Value[bool]   `model:"has_organization_projects"`
	HasDiscussions              Value[bool]   `model:"has_discussions"`
	DiscussionSourceRepository  Value[string] `model:"discussion_source_repository"`
	DefaultBranchName           Value[string] `model:"default_branch_name"`
	ReadersCanCreateDiscussions Value[bool]   `model:"readers_can_create_discussions"`

	DefaultRepositoryPermission Value[string] `model:"default_repository_permission"`
	TwoFactorRequirement        Value[bool]   `model:"two_factor_requirement,readonly"`
	WebCommitSignoffRequired    Value[bool]   `model:"web_commit_signoff_required"`

	MembersCanCreatePrivateRepositories Value[bool] `model:"members_can_create_private_repositories"`
	MembersCanCreatePublicRepositories  Value[bool] `model:"members_can_create_public_repositories"`
	MembersCanForkPrivateRepositories   Value[bool] `model:"members_can_fork_private_repositories"`
	MembersCanCreatePages               Value[bool] `model:"members_can_create_pages"`
	MembersCanCreatePublicPages         Value[bool] `model:"members_can_create_public_pages"`
	MembersCanCreatePrivatePages        Value[bool] `model:"members_can_create_private_pages"`

	DependabotAlertsEnabledForNewRepositories          Value[bool] `model:"dependabot_alerts_enabled_for_new_repositories"`
	DependabotSecurityUpdatesEnabledForNewRepositories Value[bool] `model:"dependabot_security_updates_enabled_for_new_repositories"`
	DependencyGraphEnabledForNewRepositories           Value[bool] `model:"dependency_graph_enabled_for_new_repositories"`

	SecretScanningEnabledForNewRepositories               Value[bool] `model:"secret_scanning_enabled_for_new_repositories"`
	SecretScanningPushProtectionEnabledForNewRepositories Value[bool] `model:"secret_scanning_push_protection_enabled_for_new_repositories"`
}

// webSettingFields are the model fields backed by web UI screens instead
// of the REST endpoint.
var webSettingFields = map[string]bool{
	"has_discussions":                true,
	"discussion_source_repository":   true,
	"default_branch_name":            true,
	"readers_can_create_discussions": true,
}

// WebSettingKeys lists the UI-only setting names for the web client.
func WebSettingKeys() []string {
	keys := make([]string, 0, len(webSettingFields))
	for k := range webSettingFields {
		keys = append(keys, k)
	}
	return keys
}

// NewOrganizationSettingsFromProvider maps the REST organization object
// plus the scraped web settings into the model form.
func NewOrganizationSettingsFromProvider(org *github.Organization, web map[string]any) *OrganizationSettings {
	s := &OrganizationSettings{
		Name:            Set(org.GetName()),
		Plan:            Set(org.GetPlan().GetName()),
		Description:     Set(org.GetDescription()),
		Email:           Set(org.GetEmail()),
		Location:        Set(org.GetLocation()),
		Company:         Set(org.GetCompany()),
		BillingEmail:    Set(org.GetBillingEmail()),
		TwitterUsername: Set(org.GetTwitterUsername()),
		Blog:            Set(org.GetBlog()),

		HasOrganizationProjects:     Set(org.GetHasOrganizationProjects()),
		DefaultRepositoryPermission: Set(org.GetDefaultRepoPermission()),
		TwoFactorRequirement:        Set(org.GetTwoFactorRequirementEnabled()),
		WebCommitSignoffRequired:    Set(org.GetWebCommitSignoffRequired()),

		MembersCanCreatePrivateRepositories: Set(org.GetMembersCanCreatePrivateRepos()),
		MembersCanCreatePublicRepositories:  Set(org.GetMembersCanCreatePublicRepos()),
		MembersCanForkPrivateRepositories:   Set(org.GetMembersCanForkPrivateRepos()),
		MembersCanCreatePages:               Set(org.GetMembersCanCreatePages()),
		MembersCanCreatePublicPages:         Set(org.GetMembersCanCreatePublicPages()),
		MembersCanCreatePrivatePages:        Set(org.GetMembersCanCreatePrivatePages()),

		DependabotAlertsEnabledForNewRepositories:          Set(org.GetDependabotAlertsEnabledForNewRepos()),
		DependabotSecurityUpdatesEnabledForNewRepositories: Set(org.GetDependabotSecurityUpdatesEnabledForNewRepos()),
		DependencyGraphEnabledForNewRepositories:           Set(org.GetDependencyGraphEnabledForNewRepos()),

		SecretScanningEnabledForNewRepositories:               Set(org.GetSecretScanningEnabledForNewRepos()),
		SecretScanningPushProtectionEnabledForNewRepositories: Set(org.GetSecretScanningPushProtectionEnabledForNewRepos()),
	}
	if v, ok := web["has_discussions"].(bool); ok {
		s.HasDiscussions = Set(v)
	}
	if v, ok := web["discussion_source_repository"].(string); ok {
		s.DiscussionSourceRepository = Set(v)
	}
	if v, ok := web["default_branch_name"].(string); ok {
		s.DefaultBranchName = Set(v)
	}
	if v, ok := web["readers_can_create_discussions"].(bool); ok {
		s.ReadersCanCreateDiscussions = Set(v)
	}
	return s
}

// splitSettingsChanges partitions a change set into the REST body and the
// web settings map.
func splitSettingsChanges(changes map[string]Change) (*github.Organization, map[string]any, bool) {
	rest := &github.Organization{}
	web := map[string]any{}
	hasRest := false

	for field, change := range changes {
		if webSettingFields[field] {
			web[field] = change.To
			continue
		}
		hasRest = true
		switch field {
		case "name":
			rest.Name = github.Ptr(change.To.(string))
		case "description":
			rest.Description = github.Ptr(change.To.(string))
		case "email":
			rest.Email = github.Ptr(change.To.(string))
		case "location":
			rest.Location = github.Ptr(change.To.(string))
		case "company":
			rest.Company = github.Ptr(change.To.(string))
		case "billing_email":
			rest.BillingEmail = github.Ptr(change.To.(string))
		case "twitter_username":
			rest.TwitterUsername = github.Ptr(change.To.(string))
		case "blog":
			rest.Blog = github.Ptr(change.To.(string))
		case "has_organization_projects":
			rest.HasOrganizationProjects = github.Ptr(change.To.(bool))
		case "default_repository_permission":
			rest.DefaultRepoPermission = github.Ptr(change.To.(string))
		case "web_commit_signoff_required":
			rest.WebCommitSignoffRequired = github.Ptr(change.To.(bool))
		case "members_can_create_private_repositories":
			rest.MembersCanCreatePrivateRepos = github.Ptr(change.To.(bool))
		case "members_can_create_public_repositories":
			rest.MembersCanCreatePublicRepos = github.Ptr(change.To.(bool))
		case "members_can_fork_private_repositories":
			rest.MembersCanForkPrivateRepos = github.Ptr(change.To.(bool))
		case "members_can_create_pages":
			rest.MembersCanCreatePages = github.Ptr(change.To.(bool))
		case "members_can_create_public_pages":
			rest.MembersCanCreatePublicPages = github.Ptr(change.To.(bool))
		case "members_can_create_private_pages":
			rest.MembersCanCreatePrivatePages = github.Ptr(change.To.(bool))
		case "dependabot_alerts_enabled_for_new_repositories":
			rest.DependabotAlertsEnabledForNewRepos = github.Ptr(change.To.(bool))
		case "dependabot_security_updates_enabled_for_new_repositories":
			rest.DependabotSecurityUpdatesEnabledForNewRepos = github.Ptr(change.To.(bool))
		case "dependency_graph_enabled_for_new_repositories":
			rest.DependencyGraphEnabledForNewRepos = github.Ptr(change.To.(bool))
		case "secret_scanning_enabled_for_new_repositories":
			rest.SecretScanningEnabledForNewRepos = github.Ptr(change.To.(bool))
		case "secret_scanning_push_protection_enabled_for_new_repositories":
			rest.SecretScanningPushProtectionEnabledForNewRepos = github.Ptr(change.To.(bool))
		}
	}
	return rest, web, hasRest
}

// Validate checks cross-field invariants on the expected settings.
func (s *OrganizationSettings) Validate(vc *ValidationContext) {
	validEnum(vc, "org settings", "default_repository_permission",
		s.DefaultRepositoryPermission, "none", "read", "write", "admin")

	if s.DependabotAlertsEnabledForNewRepositories.OrElse(false) &&
		s.DependencyGraphEnabledForNewRepositories.IsSet() &&
		!s.DependencyGraphEnabledForNewRepositories.Get() {
		vc.Errorf("org settings: dependabot alerts for new repositories require the dependency graph to be enabled")
	}
	if s.DependabotSecurityUpdatesEnabledForNewRepositories.OrElse(false) &&
		s.DependabotAlertsEnabledForNewRepositories.IsSet() &&
		!s.DependabotAlertsEnabledForNewRepositories.Get() {
		vc.Errorf("org settings: dependabot security updates for new repositories require dependabot alerts to be enabled")
	}
	if s.SecretScanningPushProtectionEnabledForNewRepositories.OrElse(false) &&
		s.SecretScanningEnabledForNewRepositories.IsSet() &&
		!s.SecretScanningEnabledForNewRepositories.Get() {
		vc.Errorf("org settings: secret scanning push protection requires secret scanning to be enabled")
	}
	if s.HasDiscussions.OrElse(false) && s.DiscussionSourceRepository.IsSet() &&
		s.DiscussionSourceRepository.Get() == "" {
		vc.Warnf("org settings: discussions are enabled but no source repository is configured")
	}
}

func (s *OrganizationSettings) generateLivePatch(current *OrganizationSettings, orgID string, sink *patchSink) {
	changes := Difference(s, current)
	if len(changes) == 0 {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: "settings",
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			rest, web, hasRest := splitSettingsChanges(changes)
			if hasRest {
				if err := provider.UpdateOrganizationSettings(ctx, orgID, rest); err != nil {
					return err
				}
			}
			if len(web) > 0 {
				return provider.UpdateWebSettings(ctx, orgID, web)
			}
			return nil
		},
	})
}
