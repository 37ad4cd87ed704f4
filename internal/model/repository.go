package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
)

// Repository is the per-repository record with its owned sub-resources.
// The aliases list tracks former names so a rename diffs as a CHANGE
// instead of a REMOVE plus ADD.
type Repository struct {
	ID     Value[int64]  `model:"id,external"`
	NodeID Value[string] `model:"node_id,external"`

	Name    Value[string]   `model:"name,key"`
	Aliases Value[[]string] `model:"aliases,modelonly,set"`

	Description    Value[string]   `model:"description"`
	Homepage       Value[string]   `model:"homepage"`
	Private        Value[bool]     `model:"private"`
	HasIssues      Value[bool]     `model:"has_issues"`
	HasWiki        Value[bool]     `model:"has_wiki"`
	HasProjects    Value[bool]     `model:"has_projects"`
	HasDiscussions Value[bool]     `model:"has_discussions"`
	IsTemplate     Value[bool]     `model:"is_template"`
	Topics         Value[[]string] `model:"topics,set"`
	DefaultBranch  Value[string]   `model:"default_branch"`

	AllowRebaseMerge         Value[bool]   `model:"allow_rebase_merge"`
	AllowMergeCommit         Value[bool]   `model:"allow_merge_commit"`
	AllowSquashMerge         Value[bool]   `model:"allow_squash_merge"`
	AllowAutoMerge           Value[bool]   `model:"allow_auto_merge"`
	DeleteBranchOnMerge      Value[bool]   `model:"delete_branch_on_merge"`
	AllowUpdateBranch        Value[bool]   `model:"allow_update_branch"`
	AllowForking             Value[bool]   `model:"allow_forking"`
	SquashMergeCommitTitle   Value[string] `model:"squash_merge_commit_title"`
	SquashMergeCommitMessage Value[string] `model:"squash_merge_commit_message"`
	MergeCommitTitle         Value[string] `model:"merge_commit_title"`
	MergeCommitMessage       Value[string] `model:"merge_commit_message"`

	WebCommitSignoffRequired Value[bool] `model:"web_commit_signoff_required"`
	Archived                 Value[bool] `model:"archived"`

	SecretScanning                   Value[string] `model:"secret_scanning"`
	SecretScanningPushProtection     Value[string] `model:"secret_scanning_push_protection"`
	DependabotAlertsEnabled          Value[bool]   `model:"dependabot_alerts_enabled"`
	DependabotSecurityUpdatesEnabled Value[bool]   `model:"dependabot_security_updates_enabled"`
	CodeScanningDefaultSetupEnabled  Value[bool]   `model:"code_scanning_default_setup_enabled"`

	GhPagesBuildType    Value[string] `model:"gh_pages_build_type"`
	GhPagesSourceBranch Value[string] `model:"gh_pages_source_branch"`
	GhPagesSourcePath   Value[string] `model:"gh_pages_source_path"`

	TemplateRepository         Value[string]   `model:"template_repository,readonly"`
	ForkedRepository           Value[string]   `model:"forked_repository,readonly"`
	AutoInit                   Value[bool]     `model:"auto_init,modelonly"`
	PostProcessTemplateContent Value[[]string] `model:"post_process_template_content,modelonly,set"`

	WorkflowSettings      *RepositoryWorkflowSettings `model:"workflow_settings,embedded"`
	BranchProtectionRules []*BranchProtectionRule     `model:"branch_protection_rules,embedded"`
	Rulesets              []*RepositoryRuleset        `model:"rulesets,embedded"`
	Webhooks              []*RepositoryWebhook        `model:"webhooks,embedded"`
	Secrets               []*RepositorySecret         `model:"secrets,embedded"`
	Variables             []*RepositoryVariable       `model:"variables,embedded"`
	Environments          []*Environment              `model:"environments,embedded"`
	TeamPermissions       []*TeamPermission           `model:"team_permissions,embedded"`
}

// archivedFieldDrops are dropped from the change set when the expected
// repository is archived. GitHub rejects edits to these on archived
// repositories.
var archivedFieldDrops = []string{
	"has_issues", "has_wiki", "has_projects", "has_discussions",
	"allow_rebase_merge", "allow_merge_commit", "allow_squash_merge",
	"allow_auto_merge", "delete_branch_on_merge", "allow_update_branch",
	"squash_merge_commit_title", "squash_merge_commit_message",
	"merge_commit_title", "merge_commit_message",
	"web_commit_signoff_required", "default_branch",
	"secret_scanning", "secret_scanning_push_protection",
	"dependabot_alerts_enabled", "dependabot_security_updates_enabled",
	"code_scanning_default_setup_enabled",
}

// AllNames returns the primary name plus any aliases, for rename
// matching.
func (r *Repository) AllNames() []string {
	names := []string{r.Name.Get()}
	return append(names, r.Aliases.OrElse(nil)...)
}

// securityStatus reads the status off one of the SecurityAndAnalysis
// feature structs. The generated accessors are nil safe and return the
// empty string for absent features.
func securityStatus(f interface{ GetStatus() string }) (string, bool) {
	status := f.GetStatus()
	return status, status != ""
}

func pagesBuildType(pages *github.Pages) (buildType, branch, path string) {
	if pages == nil {
		return "disabled", "", ""
	}
	buildType = pages.GetBuildType()
	if buildType == "" {
		buildType = "legacy"
	}
	if source := pages.GetSource(); source != nil {
		branch = source.GetBranch()
		path = source.GetPath()
	}
	return buildType, branch, path
}

// NewRepositoryFromProvider maps the base repository attributes. The
// owned collections are attached by the organization loader.
func NewRepositoryFromProvider(r *github.Repository, vulnerabilityAlerts bool, pages *github.Pages) *Repository {
	out := &Repository{
		ID:     Set(r.GetID()),
		NodeID: Set(r.GetNodeID()),
		Name:   Set(r.GetName()),

		Description:    Set(r.GetDescription()),
		Homepage:       Set(r.GetHomepage()),
		Private:        Set(r.GetPrivate()),
		HasIssues:      Set(r.GetHasIssues()),
		HasWiki:        Set(r.GetHasWiki()),
		HasProjects:    Set(r.GetHasProjects()),
		HasDiscussions: Set(r.GetHasDiscussions()),
		IsTemplate:     Set(r.GetIsTemplate()),
		Topics:         Set(append([]string(nil), r.Topics...)),
		DefaultBranch:  Set(r.GetDefaultBranch()),

		AllowRebaseMerge:         Set(r.GetAllowRebaseMerge()),
		AllowMergeCommit:         Set(r.GetAllowMergeCommit()),
		AllowSquashMerge:         Set(r.GetAllowSquashMerge()),
		AllowAutoMerge:           Set(r.GetAllowAutoMerge()),
		DeleteBranchOnMerge:      Set(r.GetDeleteBranchOnMerge()),
		AllowUpdateBranch:        Set(r.GetAllowUpdateBranch()),
		AllowForking:             Set(r.GetAllowForking()),
		SquashMergeCommitTitle:   Set(r.GetSquashMergeCommitTitle()),
		SquashMergeCommitMessage: Set(r.GetSquashMergeCommitMessage()),
		MergeCommitTitle:         Set(r.GetMergeCommitTitle()),
		MergeCommitMessage:       Set(r.GetMergeCommitMessage()),

		WebCommitSignoffRequired: Set(r.GetWebCommitSignoffRequired()),
		Archived:                 Set(r.GetArchived()),

		DependabotAlertsEnabled: Set(vulnerabilityAlerts),
	}

	// Security analysis is absent from the API payload on private
	// repositories without advanced security; the fields stay unset there.
	if !r.GetPrivate() {
		if sa := r.GetSecurityAndAnalysis(); sa != nil {
			if status, ok := securityStatus(sa.SecretScanning); ok {
				out.SecretScanning = Set(status)
			}
			if status, ok := securityStatus(sa.SecretScanningPushProtection); ok {
				out.SecretScanningPushProtection = Set(status)
			}
			if status, ok := securityStatus(sa.DependabotSecurityUpdates); ok {
				out.DependabotSecurityUpdatesEnabled = Set(status == "enabled")
			}
		}
	}

	buildType, branch, path := pagesBuildType(pages)
	out.GhPagesBuildType = Set(buildType)
	if buildType == "legacy" {
		out.GhPagesSourceBranch = Set(branch)
		out.GhPagesSourcePath = Set(path)
	}

	if tr := r.GetTemplateRepository(); tr != nil {
		out.TemplateRepository = Set(tr.GetFullName())
	}
	if r.GetFork() {
		if parent := r.GetParent(); parent != nil {
			out.ForkedRepository = Set(parent.GetFullName())
		}
	}
	return out
}

// toProvider builds the full creation body from every set field.
func (r *Repository) toProvider() *github.Repository {
	repo := &github.Repository{Name: github.Ptr(r.Name.Get())}
	applyStr := func(v Value[string], dst **string) {
		if v.IsSet() {
			*dst = github.Ptr(v.Get())
		}
	}
	applyBool := func(v Value[bool], dst **bool) {
		if v.IsSet() {
			*dst = github.Ptr(v.Get())
		}
	}
	applyStr(r.Description, &repo.Description)
	applyStr(r.Homepage, &repo.Homepage)
	applyBool(r.Private, &repo.Private)
	applyBool(r.HasIssues, &repo.HasIssues)
	applyBool(r.HasWiki, &repo.HasWiki)
	applyBool(r.HasProjects, &repo.HasProjects)
	applyBool(r.HasDiscussions, &repo.HasDiscussions)
	applyBool(r.IsTemplate, &repo.IsTemplate)
	applyStr(r.DefaultBranch, &repo.DefaultBranch)
	applyBool(r.AllowRebaseMerge, &repo.AllowRebaseMerge)
	applyBool(r.AllowMergeCommit, &repo.AllowMergeCommit)
	applyBool(r.AllowSquashMerge, &repo.AllowSquashMerge)
	applyBool(r.AllowAutoMerge, &repo.AllowAutoMerge)
	applyBool(r.DeleteBranchOnMerge, &repo.DeleteBranchOnMerge)
	applyBool(r.AllowUpdateBranch, &repo.AllowUpdateBranch)
	applyBool(r.AllowForking, &repo.AllowForking)
	applyStr(r.SquashMergeCommitTitle, &repo.SquashMergeCommitTitle)
	applyStr(r.SquashMergeCommitMessage, &repo.SquashMergeCommitMessage)
	applyStr(r.MergeCommitTitle, &repo.MergeCommitTitle)
	applyStr(r.MergeCommitMessage, &repo.MergeCommitMessage)
	applyBool(r.WebCommitSignoffRequired, &repo.WebCommitSignoffRequired)
	applyBool(r.Archived, &repo.Archived)
	applyBool(r.AutoInit, &repo.AutoInit)
	if sa := r.securityAndAnalysis(); sa != nil {
		repo.SecurityAndAnalysis = sa
	}
	return repo
}

func (r *Repository) securityAndAnalysis() *github.SecurityAndAnalysis {
	if r.Private.OrElse(false) {
		return nil
	}
	var sa *github.SecurityAndAnalysis
	ensure := func() *github.SecurityAndAnalysis {
		if sa == nil {
			sa = &github.SecurityAndAnalysis{}
		}
		return sa
	}
	if r.SecretScanning.IsSet() {
		ensure().SecretScanning = &github.SecretScanning{
			Status: github.Ptr(r.SecretScanning.Get()),
		}
	}
	if r.SecretScanningPushProtection.IsSet() {
		ensure().SecretScanningPushProtection = &github.SecretScanningPushProtection{
			Status: github.Ptr(r.SecretScanningPushProtection.Get()),
		}
	}
	return sa
}

// repoChangeSplit partitions a change set by the endpoint that applies
// it.
type repoChangeSplit struct {
	rest     *github.Repository
	hasRest  bool
	topics   []string
	doTopics bool

	vulnerabilityAlerts *bool
	securityFixes       *bool
	doPages             bool
}

func splitRepositoryChanges(changes map[string]Change) repoChangeSplit {
	split := repoChangeSplit{rest: &github.Repository{}}
	security := &github.SecurityAndAnalysis{}
	hasSecurity := false

	setRest := func(f func()) {
		f()
		split.hasRest = true
	}
	for field, change := range changes {
		switch field {
		case "name":
			setRest(func() { split.rest.Name = github.Ptr(change.To.(string)) })
		case "description":
			setRest(func() { split.rest.Description = github.Ptr(change.To.(string)) })
		case "homepage":
			setRest(func() { split.rest.Homepage = github.Ptr(change.To.(string)) })
		case "private":
			setRest(func() { split.rest.Private = github.Ptr(change.To.(bool)) })
		case "has_issues":
			setRest(func() { split.rest.HasIssues = github.Ptr(change.To.(bool)) })
		case "has_wiki":
			setRest(func() { split.rest.HasWiki = github.Ptr(change.To.(bool)) })
		case "has_projects":
			setRest(func() { split.rest.HasProjects = github.Ptr(change.To.(bool)) })
		case "has_discussions":
			setRest(func() { split.rest.HasDiscussions = github.Ptr(change.To.(bool)) })
		case "is_template":
			setRest(func() { split.rest.IsTemplate = github.Ptr(change.To.(bool)) })
		case "default_branch":
			setRest(func() { split.rest.DefaultBranch = github.Ptr(change.To.(string)) })
		case "allow_rebase_merge":
			setRest(func() { split.rest.AllowRebaseMerge = github.Ptr(change.To.(bool)) })
		case "allow_merge_commit":
			setRest(func() { split.rest.AllowMergeCommit = github.Ptr(change.To.(bool)) })
		case "allow_squash_merge":
			setRest(func() { split.rest.AllowSquashMerge = github.Ptr(change.To.(bool)) })
		case "allow_auto_merge":
			setRest(func() { split.rest.AllowAutoMerge = github.Ptr(change.To.(bool)) })
		case "delete_branch_on_merge":
			setRest(func() { split.rest.DeleteBranchOnMerge = github.Ptr(change.To.(bool)) })
		case "allow_update_branch":
			setRest(func() { split.rest.AllowUpdateBranch = github.Ptr(change.To.(bool)) })
		case "allow_forking":
			setRest(func() { split.rest.AllowForking = github.Ptr(change.To.(bool)) })
		case "squash_merge_commit_title":
			setRest(func() { split.rest.SquashMergeCommitTitle = github.Ptr(change.To.(string)) })
		case "squash_merge_commit_message":
			setRest(func() { split.rest.SquashMergeCommitMessage = github.Ptr(change.To.(string)) })
		case "merge_commit_title":
			setRest(func() { split.rest.MergeCommitTitle = github.Ptr(change.To.(string)) })
		case "merge_commit_message":
			setRest(func() { split.rest.MergeCommitMessage = github.Ptr(change.To.(string)) })
		case "web_commit_signoff_required":
			setRest(func() { split.rest.WebCommitSignoffRequired = github.Ptr(change.To.(bool)) })
		case "archived":
			setRest(func() { split.rest.Archived = github.Ptr(change.To.(bool)) })

		case "secret_scanning":
			security.SecretScanning = &github.SecretScanning{
				Status: github.Ptr(change.To.(string)),
			}
			hasSecurity = true
		case "secret_scanning_push_protection":
			security.SecretScanningPushProtection = &github.SecretScanningPushProtection{
				Status: github.Ptr(change.To.(string)),
			}
			hasSecurity = true

		case "topics":
			split.topics = change.To.([]string)
			split.doTopics = true
		case "dependabot_alerts_enabled":
			v := change.To.(bool)
			split.vulnerabilityAlerts = &v
		case "dependabot_security_updates_enabled":
			v := change.To.(bool)
			split.securityFixes = &v
		case "gh_pages_build_type", "gh_pages_source_branch", "gh_pages_source_path":
			split.doPages = true
		}
	}
	if hasSecurity {
		split.rest.SecurityAndAnalysis = security
		split.hasRest = true
	}
	return split
}

func (r *Repository) applyChanges(ctx context.Context, provider Provider, orgID, currentName string, changes map[string]Change) error {
	split := splitRepositoryChanges(changes)
	name := currentName
	if split.hasRest {
		if err := provider.UpdateRepository(ctx, orgID, name, split.rest); err != nil {
			return err
		}
		if split.rest.Name != nil {
			name = *split.rest.Name
		}
	}
	if split.doTopics {
		if err := provider.ReplaceTopics(ctx, orgID, name, split.topics); err != nil {
			return err
		}
	}
	if split.vulnerabilityAlerts != nil {
		if err := provider.SetVulnerabilityAlerts(ctx, orgID, name, *split.vulnerabilityAlerts); err != nil {
			return err
		}
	}
	if split.securityFixes != nil {
		if err := provider.SetAutomatedSecurityFixes(ctx, orgID, name, *split.securityFixes); err != nil {
			return err
		}
	}
	if split.doPages {
		if err := provider.UpdatePages(ctx, orgID, name,
			r.GhPagesBuildType.OrElse("disabled"),
			r.GhPagesSourceBranch.OrElse(""),
			r.GhPagesSourcePath.OrElse("")); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) generateLivePatch(current *Repository, orgID string, sink *patchSink) {
	changes := Difference(r, current)
	if r.Archived.OrElse(false) {
		for _, field := range archivedFieldDrops {
			delete(changes, field)
		}
	}
	if r.Private.OrElse(false) {
		delete(changes, "secret_scanning")
		delete(changes, "secret_scanning_push_protection")
	}
	if len(changes) == 0 {
		return
	}
	expected := r
	currentName := current.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]", r.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return expected.applyChanges(ctx, provider, orgID, currentName, changes)
		},
	})
}

func (r *Repository) addPatch(orgID string, sink *patchSink) {
	expected := r
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]", r.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			created, err := provider.CreateRepository(ctx, orgID, expected.toProvider(),
				expected.TemplateRepository.OrElse(""))
			if err != nil {
				return err
			}
			name := created.GetName()
			if topics := expected.Topics.OrElse(nil); len(topics) > 0 {
				if err := provider.ReplaceTopics(ctx, orgID, name, topics); err != nil {
					return err
				}
			}
			if expected.DependabotAlertsEnabled.IsSet() {
				if err := provider.SetVulnerabilityAlerts(ctx, orgID, name,
					expected.DependabotAlertsEnabled.Get()); err != nil {
					return err
				}
			}
			if expected.DependabotSecurityUpdatesEnabled.OrElse(false) {
				if err := provider.SetAutomatedSecurityFixes(ctx, orgID, name, true); err != nil {
					return err
				}
			}
			if buildType := expected.GhPagesBuildType.OrElse("disabled"); buildType != "disabled" {
				if err := provider.UpdatePages(ctx, orgID, name, buildType,
					expected.GhPagesSourceBranch.OrElse(""),
					expected.GhPagesSourcePath.OrElse("")); err != nil {
					return err
				}
			}
			return expected.postProcessTemplateContent(ctx, provider, orgID, name)
		},
	})
}

// postProcessTemplateContent rewrites files instantiated from a template
// repository that still reference the template by name.
func (r *Repository) postProcessTemplateContent(ctx context.Context, provider Provider, orgID, name string) error {
	paths := r.PostProcessTemplateContent.OrElse(nil)
	template := r.TemplateRepository.OrElse("")
	if len(paths) == 0 || template == "" {
		return nil
	}
	_, templateName, ok := strings.Cut(template, "/")
	if !ok {
		templateName = template
	}
	for _, path := range paths {
		content, err := provider.GetContent(ctx, orgID, name, path, "")
		if err != nil {
			return fmt.Errorf("post-processing %s: %w", path, err)
		}
		rewritten := strings.ReplaceAll(content, templateName, name)
		if rewritten == content {
			continue
		}
		message := fmt.Sprintf("Update %s after template instantiation", path)
		if _, err := provider.UpdateContent(ctx, orgID, name, path, rewritten, message, ""); err != nil {
			return fmt.Errorf("post-processing %s: %w", path, err)
		}
	}
	return nil
}

func (r *Repository) removePatch(orgID string, sink *patchSink) {
	name := r.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]", name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteRepository(ctx, orgID, name)
		},
	})
}

// Validate checks the repository invariants and recurses into the owned
// sub-resources.
func (r *Repository) Validate(vc *ValidationContext) {
	name := r.Name.Get()
	where := fmt.Sprintf("repo[%s]", name)

	for _, alias := range r.Aliases.OrElse(nil) {
		if alias == name {
			vc.Errorf("%s: alias %q collides with the repository name", where, alias)
		}
	}

	validEnum(vc, where, "secret_scanning", r.SecretScanning, "enabled", "disabled")
	validEnum(vc, where, "secret_scanning_push_protection", r.SecretScanningPushProtection, "enabled", "disabled")
	validEnum(vc, where, "gh_pages_build_type", r.GhPagesBuildType, "disabled", "legacy", "workflow")
	validEnum(vc, where, "squash_merge_commit_title", r.SquashMergeCommitTitle, "PR_TITLE", "COMMIT_OR_PR_TITLE")
	validEnum(vc, where, "merge_commit_title", r.MergeCommitTitle, "PR_TITLE", "MERGE_MESSAGE")

	if r.Private.OrElse(false) {
		if r.SecretScanning.IsSet() || r.SecretScanningPushProtection.IsSet() {
			vc.Errorf("%s: security analysis settings are not available on private repositories", where)
		}
	}
	if r.SecretScanningPushProtection.OrElse("") == "enabled" &&
		r.SecretScanning.OrElse("") != "enabled" {
		vc.Errorf("%s: secret_scanning_push_protection requires secret_scanning to be enabled", where)
	}
	if r.CodeScanningDefaultSetupEnabled.OrElse(false) {
		ws := r.WorkflowSettings
		if ws != nil && ws.Enabled.IsSet() && !ws.Enabled.Get() {
			vc.Errorf("%s: code_scanning_default_setup_enabled requires actions to be enabled", where)
		}
	}
	if r.GhPagesBuildType.OrElse("disabled") == "legacy" && !r.GhPagesSourceBranch.IsSet() {
		vc.Errorf("%s: gh_pages_source_branch is required for legacy pages builds", where)
	}
	if r.Archived.OrElse(false) && len(r.BranchProtectionRules) > 0 {
		vc.Infof("%s: branch protection rules are ignored while the repository is archived", where)
	}

	// A branch protection rule and a branch ruleset on the same pattern
	// overlap; both are applied by GitHub, which is rarely intended.
	rulesetPatterns := map[string]string{}
	for _, rs := range r.Rulesets {
		for _, ref := range rs.IncludeRefs.OrElse(nil) {
			rulesetPatterns[strings.TrimPrefix(ref, "refs/heads/")] = rs.Name.Get()
		}
	}
	for _, bpr := range r.BranchProtectionRules {
		if rsName, ok := rulesetPatterns[bpr.Pattern.Get()]; ok {
			vc.Warnf("%s: branch_protection_rule[%s] overlaps ruleset[%s] on the same pattern",
				where, bpr.Pattern.Get(), rsName)
		}
	}

	declaredEnvs := map[string]bool{}
	for _, env := range r.Environments {
		declaredEnvs[env.Name.Get()] = true
	}

	if r.WorkflowSettings != nil {
		r.WorkflowSettings.Validate(vc, name)
	}
	for _, bpr := range r.BranchProtectionRules {
		bpr.Validate(vc, name)
	}
	for _, rs := range r.Rulesets {
		rs.Validate(vc, name, declaredEnvs)
	}
	for _, hook := range r.Webhooks {
		hook.Validate(vc, name)
	}
	for _, secret := range r.Secrets {
		secret.Validate(vc, name)
	}
	for _, variable := range r.Variables {
		variable.Validate(vc, name)
	}
	for _, env := range r.Environments {
		env.Validate(vc, name)
	}
	for _, perm := range r.TeamPermissions {
		perm.Validate(vc, name)
	}
}
