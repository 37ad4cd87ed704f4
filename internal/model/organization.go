package model

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Organization is the model root: the org-level singletons plus every
// owned collection, expected or current.
type Organization struct {
	GitHubID string

	Settings         *OrganizationSettings
	WorkflowSettings *OrganizationWorkflowSettings

	Webhooks         []*OrganizationWebhook
	Secrets          []*OrganizationSecret
	Variables        []*OrganizationVariable
	CustomProperties []*CustomProperty
	Roles            []*OrganizationRole
	Rulesets         []*OrganizationRuleset
	Teams            []*Team
	Repositories     []*Repository
}

// LoadOptions tune reading the live organization state.
type LoadOptions struct {
	// NoWebUI skips the settings only reachable through the web client.
	NoWebUI bool
	// RepoFilter restricts which repositories are loaded.
	RepoFilter *regexp.Regexp
	// Concurrency bounds the parallel per-repository reads. GitHub's
	// secondary rate limits tolerate moderate fan-out only.
	Concurrency int64
}

const defaultLoadConcurrency = 12

// LoadFromProvider reads the complete current state of an organization.
// Repository sub-trees are fetched concurrently.
func LoadFromProvider(ctx context.Context, provider Provider, orgID string, opts LoadOptions) (*Organization, error) {
	org := &Organization{GitHubID: orgID}

	ghOrg, err := provider.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("reading organization %s: %w", orgID, err)
	}

	var webSettings map[string]any
	if !opts.NoWebUI && provider.HasWeb() {
		webSettings, err = provider.GetWebSettings(ctx, orgID, WebSettingKeys())
		if err != nil {
			return nil, fmt.Errorf("reading web settings of %s: %w", orgID, err)
		}
	}
	org.Settings = NewOrganizationSettingsFromProvider(ghOrg, webSettings)

	repos, err := provider.ListRepositories(ctx, orgID)
	if err != nil {
		return nil, err
	}
	repoNamesByID := make(map[int64]string, len(repos))
	for _, r := range repos {
		repoNamesByID[r.GetID()] = r.GetName()
	}

	installations, err := provider.ListAppInstallations(ctx, orgID)
	if err != nil {
		return nil, err
	}
	appSlugsByID := make(map[int64]string, len(installations))
	for _, inst := range installations {
		appSlugsByID[inst.GetAppID()] = inst.GetAppSlug()
	}

	ws, err := provider.GetOrgWorkflowSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org.WorkflowSettings = NewOrgWorkflowSettingsFromProvider(ws, repoNamesByID)

	if err := org.loadOrgCollections(ctx, provider, repoNamesByID, appSlugsByID); err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultLoadConcurrency
	}
	sem := semaphore.NewWeighted(concurrency)
	group, gctx := errgroup.WithContext(ctx)

	loaded := make([]*Repository, len(repos))
	for i, ghRepo := range repos {
		if opts.RepoFilter != nil && !opts.RepoFilter.MatchString(ghRepo.GetName()) {
			continue
		}
		i, ghRepo := i, ghRepo
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			repo, err := loadRepository(gctx, provider, orgID, ghRepo.GetName(), ghRepo.GetID(), appSlugsByID)
			if err != nil {
				return fmt.Errorf("reading repository %s/%s: %w", orgID, ghRepo.GetName(), err)
			}
			loaded[i] = repo
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for _, repo := range loaded {
		if repo != nil {
			org.Repositories = append(org.Repositories, repo)
		}
	}
	sort.Slice(org.Repositories, func(i, j int) bool {
		return org.Repositories[i].Name.Get() < org.Repositories[j].Name.Get()
	})
	return org, nil
}

func (o *Organization) loadOrgCollections(ctx context.Context, provider Provider, repoNamesByID map[int64]string, appSlugsByID map[int64]string) error {
	orgID := o.GitHubID

	hooks, err := provider.ListOrgWebhooks(ctx, orgID)
	if err != nil {
		return err
	}
	for _, h := range hooks {
		o.Webhooks = append(o.Webhooks, NewOrgWebhookFromProvider(h))
	}

	secrets, selectedSecretRepos, err := provider.ListOrgSecrets(ctx, orgID)
	if err != nil {
		return err
	}
	for _, s := range secrets {
		o.Secrets = append(o.Secrets, NewOrgSecretFromProvider(s, selectedSecretRepos[s.Name], repoNamesByID))
	}

	variables, selectedVariableRepos, err := provider.ListOrgVariables(ctx, orgID)
	if err != nil {
		return err
	}
	for _, v := range variables {
		o.Variables = append(o.Variables, NewOrgVariableFromProvider(v, selectedVariableRepos[v.Name], repoNamesByID))
	}

	properties, err := provider.ListCustomProperties(ctx, orgID)
	if err != nil {
		return err
	}
	for _, p := range properties {
		o.CustomProperties = append(o.CustomProperties, NewCustomPropertyFromProvider(p))
	}

	roles, err := provider.ListOrgRoles(ctx, orgID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		o.Roles = append(o.Roles, NewOrgRoleFromProvider(r))
	}

	rulesets, err := provider.ListOrgRulesets(ctx, orgID)
	if err != nil {
		return err
	}
	for _, rs := range rulesets {
		tokens := provider.BypassActorTokens(ctx, orgID, rs.BypassActors)
		o.Rulesets = append(o.Rulesets, NewOrgRulesetFromProvider(rs, tokens, appSlugsByID))
	}

	teams, err := provider.ListTeams(ctx, orgID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		members, maintainers, err := provider.ListTeamMembers(ctx, orgID, t.GetSlug())
		if err != nil {
			return err
		}
		o.Teams = append(o.Teams, NewTeamFromProvider(t, members, maintainers))
	}
	return nil
}

// loadRepository reads one repository and its complete sub-tree.
func loadRepository(ctx context.Context, provider Provider, orgID, name string, repoID int64, appSlugsByID map[int64]string) (*Repository, error) {
	ghRepo, err := provider.GetRepository(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	alerts, err := provider.GetVulnerabilityAlertsEnabled(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	pages, err := provider.GetPages(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	repo := NewRepositoryFromProvider(ghRepo, alerts, pages)

	ws, err := provider.GetRepoWorkflowSettings(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	repo.WorkflowSettings = NewRepoWorkflowSettingsFromProvider(ws)

	// Branch protection rules on archived repositories cannot be managed
	// and are not read.
	if !ghRepo.GetArchived() {
		rules, err := provider.ListBranchProtectionRules(ctx, orgID, name)
		if err != nil {
			return nil, err
		}
		for _, rule := range rules {
			repo.BranchProtectionRules = append(repo.BranchProtectionRules, NewBranchProtectionRuleFromProvider(rule))
		}
	}

	rulesets, err := provider.ListRepoRulesets(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	for _, rs := range rulesets {
		tokens := provider.BypassActorTokens(ctx, orgID, rs.BypassActors)
		repo.Rulesets = append(repo.Rulesets, NewRepoRulesetFromProvider(rs, tokens, appSlugsByID))
	}

	hooks, err := provider.ListRepoWebhooks(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	for _, h := range hooks {
		repo.Webhooks = append(repo.Webhooks, NewRepoWebhookFromProvider(h))
	}

	secrets, err := provider.ListRepoSecrets(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	for _, s := range secrets {
		repo.Secrets = append(repo.Secrets, NewRepoSecretFromProvider(s))
	}

	variables, err := provider.ListRepoVariables(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	for _, v := range variables {
		repo.Variables = append(repo.Variables, NewRepoVariableFromProvider(v))
	}

	environments, branchPolicies, err := provider.ListEnvironments(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	for _, ghEnv := range environments {
		env := NewEnvironmentFromProvider(orgID, ghEnv, branchPolicies[ghEnv.GetName()])
		envSecrets, err := provider.ListEnvSecrets(ctx, repoID, ghEnv.GetName())
		if err != nil {
			return nil, err
		}
		for _, s := range envSecrets {
			env.Secrets = append(env.Secrets, NewEnvSecretFromProvider(s))
		}
		envVariables, err := provider.ListEnvVariables(ctx, orgID, name, ghEnv.GetName())
		if err != nil {
			return nil, err
		}
		for _, v := range envVariables {
			env.Variables = append(env.Variables, NewEnvVariableFromProvider(v))
		}
		repo.Environments = append(repo.Environments, env)
	}

	teams, err := provider.ListTeamPermissions(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		repo.TeamPermissions = append(repo.TeamPermissions, NewTeamPermissionFromProvider(t))
	}
	return repo, nil
}

// popMap removes and returns a nested object from the declarative tree.
func popMap(data map[string]any, key string) (map[string]any, bool) {
	raw, ok := data[key]
	if !ok {
		return nil, false
	}
	delete(data, key)
	m, ok := raw.(map[string]any)
	return m, ok
}

// popList removes and returns a nested list from the declarative tree.
func popList(data map[string]any, key string) []map[string]any {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	delete(data, key)
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func decodeEntityList[E any](items []map[string]any, path string, newEntity func() E) ([]E, []string, error) {
	var out []E
	var unknown []string
	for i, item := range items {
		e := newEntity()
		extra, err := FromModelMap(e, item)
		if err != nil {
			return nil, nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		for _, k := range extra {
			unknown = append(unknown, fmt.Sprintf("%s[%d].%s", path, i, k))
		}
		out = append(out, e)
	}
	return out, unknown, nil
}

// FromModelData builds the expected organization from the evaluated
// declarative tree. Unknown keys are returned for the validator.
func FromModelData(data map[string]any) (*Organization, []string, error) {
	org := &Organization{
		Settings:         &OrganizationSettings{},
		WorkflowSettings: &OrganizationWorkflowSettings{},
	}
	var unknown []string

	if id, ok := data["github_id"].(string); ok {
		org.GitHubID = id
		delete(data, "github_id")
	}
	// project_name is carried by the declarative template for humans.
	delete(data, "project_name")

	if settings, ok := popMap(data, "settings"); ok {
		workflows, hasWorkflows := popMap(settings, "workflows")
		extra, err := FromModelMap(org.Settings, settings)
		if err != nil {
			return nil, nil, fmt.Errorf("settings: %w", err)
		}
		for _, k := range extra {
			unknown = append(unknown, "settings."+k)
		}
		if hasWorkflows {
			extra, err := FromModelMap(org.WorkflowSettings, workflows)
			if err != nil {
				return nil, nil, fmt.Errorf("settings.workflows: %w", err)
			}
			for _, k := range extra {
				unknown = append(unknown, "settings.workflows."+k)
			}
		}
	}

	var err error
	var extra []string

	if org.Webhooks, extra, err = decodeEntityList(popList(data, "webhooks"), "webhooks",
		func() *OrganizationWebhook { return &OrganizationWebhook{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if org.Secrets, extra, err = decodeEntityList(popList(data, "secrets"), "secrets",
		func() *OrganizationSecret { return &OrganizationSecret{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if org.Variables, extra, err = decodeEntityList(popList(data, "variables"), "variables",
		func() *OrganizationVariable { return &OrganizationVariable{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if org.CustomProperties, extra, err = decodeEntityList(popList(data, "custom_properties"), "custom_properties",
		func() *CustomProperty { return &CustomProperty{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if org.Roles, extra, err = decodeEntityList(popList(data, "roles"), "roles",
		func() *OrganizationRole { return &OrganizationRole{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if org.Rulesets, extra, err = decodeEntityList(popList(data, "rulesets"), "rulesets",
		func() *OrganizationRuleset { return &OrganizationRuleset{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if org.Teams, extra, err = decodeEntityList(popList(data, "teams"), "teams",
		func() *Team { return &Team{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	for i, repoData := range popList(data, "repositories") {
		repo, extra, err := decodeRepository(repoData, fmt.Sprintf("repositories[%d]", i))
		if err != nil {
			return nil, nil, err
		}
		unknown = append(unknown, extra...)
		org.Repositories = append(org.Repositories, repo)
	}

	for key := range data {
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	return org, unknown, nil
}

func decodeRepository(data map[string]any, path string) (*Repository, []string, error) {
	repo := &Repository{}
	var unknown []string

	workflows, hasWorkflows := popMap(data, "workflow_settings")
	bprs := popList(data, "branch_protection_rules")
	rulesets := popList(data, "rulesets")
	webhooks := popList(data, "webhooks")
	secrets := popList(data, "secrets")
	variables := popList(data, "variables")
	environments := popList(data, "environments")
	permissions := popList(data, "team_permissions")

	extra, err := FromModelMap(repo, data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, k := range extra {
		unknown = append(unknown, path+"."+k)
	}

	if hasWorkflows {
		repo.WorkflowSettings = &RepositoryWorkflowSettings{}
		extra, err := FromModelMap(repo.WorkflowSettings, workflows)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.workflow_settings: %w", path, err)
		}
		for _, k := range extra {
			unknown = append(unknown, path+".workflow_settings."+k)
		}
	}

	if repo.BranchProtectionRules, extra, err = decodeEntityList(bprs, path+".branch_protection_rules",
		func() *BranchProtectionRule { return &BranchProtectionRule{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if repo.Rulesets, extra, err = decodeEntityList(rulesets, path+".rulesets",
		func() *RepositoryRuleset { return &RepositoryRuleset{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if repo.Webhooks, extra, err = decodeEntityList(webhooks, path+".webhooks",
		func() *RepositoryWebhook { return &RepositoryWebhook{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if repo.Secrets, extra, err = decodeEntityList(secrets, path+".secrets",
		func() *RepositorySecret { return &RepositorySecret{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	if repo.Variables, extra, err = decodeEntityList(variables, path+".variables",
		func() *RepositoryVariable { return &RepositoryVariable{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	for i, envData := range environments {
		envPath := fmt.Sprintf("%s.environments[%d]", path, i)
		envSecrets := popList(envData, "secrets")
		envVariables := popList(envData, "variables")

		env := &Environment{}
		extra, err := FromModelMap(env, envData)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", envPath, err)
		}
		for _, k := range extra {
			unknown = append(unknown, envPath+"."+k)
		}
		if env.Secrets, extra, err = decodeEntityList(envSecrets, envPath+".secrets",
			func() *EnvironmentSecret { return &EnvironmentSecret{} }); err != nil {
			return nil, nil, err
		}
		unknown = append(unknown, extra...)
		if env.Variables, extra, err = decodeEntityList(envVariables, envPath+".variables",
			func() *EnvironmentVariable { return &EnvironmentVariable{} }); err != nil {
			return nil, nil, err
		}
		unknown = append(unknown, extra...)
		repo.Environments = append(repo.Environments, env)
	}

	if repo.TeamPermissions, extra, err = decodeEntityList(permissions, path+".team_permissions",
		func() *TeamPermission { return &TeamPermission{} }); err != nil {
		return nil, nil, err
	}
	unknown = append(unknown, extra...)

	return repo, unknown, nil
}

func entityListToModel[E any](entities []E, forDiff bool) []any {
	if len(entities) == 0 {
		return nil
	}
	out := make([]any, 0, len(entities))
	for _, e := range entities {
		out = append(out, ToModelMap(e, forDiff))
	}
	return out
}

// ToModelMap renders the organization back into the declarative tree
// shape, omitting unset fields and empty collections.
func (o *Organization) ToModelMap(forDiff bool) map[string]any {
	out := map[string]any{"github_id": o.GitHubID}

	if o.Settings != nil {
		settings := ToModelMap(o.Settings, forDiff)
		if o.WorkflowSettings != nil {
			if workflows := ToModelMap(o.WorkflowSettings, forDiff); len(workflows) > 0 {
				settings["workflows"] = workflows
			}
		}
		out["settings"] = settings
	}

	put := func(key string, list []any) {
		if list != nil {
			out[key] = list
		}
	}
	put("webhooks", entityListToModel(o.Webhooks, forDiff))
	put("secrets", entityListToModel(o.Secrets, forDiff))
	put("variables", entityListToModel(o.Variables, forDiff))
	put("custom_properties", entityListToModel(o.CustomProperties, forDiff))
	put("roles", entityListToModel(o.Roles, forDiff))
	put("rulesets", entityListToModel(o.Rulesets, forDiff))
	put("teams", entityListToModel(o.Teams, forDiff))

	if len(o.Repositories) > 0 {
		repos := make([]any, 0, len(o.Repositories))
		for _, repo := range o.Repositories {
			repos = append(repos, repo.toModelMap(forDiff))
		}
		out["repositories"] = repos
	}
	return out
}

func (r *Repository) toModelMap(forDiff bool) map[string]any {
	out := ToModelMap(r, forDiff)
	if r.WorkflowSettings != nil {
		if ws := ToModelMap(r.WorkflowSettings, forDiff); len(ws) > 0 {
			out["workflow_settings"] = ws
		}
	}
	put := func(key string, list []any) {
		if list != nil {
			out[key] = list
		}
	}
	put("branch_protection_rules", entityListToModel(r.BranchProtectionRules, forDiff))
	put("rulesets", entityListToModel(r.Rulesets, forDiff))
	put("webhooks", entityListToModel(r.Webhooks, forDiff))
	put("secrets", entityListToModel(r.Secrets, forDiff))
	put("variables", entityListToModel(r.Variables, forDiff))
	put("team_permissions", entityListToModel(r.TeamPermissions, forDiff))
	if len(r.Environments) > 0 {
		envs := make([]any, 0, len(r.Environments))
		for _, env := range r.Environments {
			m := ToModelMap(env, forDiff)
			if list := entityListToModel(env.Secrets, forDiff); list != nil {
				m["secrets"] = list
			}
			if list := entityListToModel(env.Variables, forDiff); list != nil {
				m["variables"] = list
			}
			envs = append(envs, m)
		}
		out["environments"] = envs
	}
	return out
}

func checkUniqueKeys[E any](vc *ValidationContext, entities []E, key func(E) string, what string) {
	seen := map[string]bool{}
	for _, e := range entities {
		k := key(e)
		if seen[k] {
			vc.Errorf("duplicate %s %q", what, k)
		}
		seen[k] = true
	}
}

// Validate runs every entity validator plus the organization-wide
// uniqueness and cross-entity checks.
func (o *Organization) Validate(vc *ValidationContext, unknownKeys []string) {
	for _, key := range unknownKeys {
		vc.Errorf("unknown field %q in configuration", key)
	}

	if o.Settings != nil {
		vc.Plan = o.Settings.Plan.OrElse(vc.Plan)
		o.Settings.Validate(vc)
	}
	if o.WorkflowSettings != nil {
		o.WorkflowSettings.Validate(vc)
	}

	checkUniqueKeys(vc, o.Webhooks, func(w *OrganizationWebhook) string { return w.URL.Get() }, "org webhook")
	checkUniqueKeys(vc, o.Secrets, func(s *OrganizationSecret) string { return s.Name.Get() }, "org secret")
	checkUniqueKeys(vc, o.Variables, func(v *OrganizationVariable) string { return v.Name.Get() }, "org variable")
	checkUniqueKeys(vc, o.CustomProperties, func(p *CustomProperty) string { return p.Name.Get() }, "custom property")
	checkUniqueKeys(vc, o.Roles, func(r *OrganizationRole) string { return r.Name.Get() }, "org role")
	checkUniqueKeys(vc, o.Rulesets, func(r *OrganizationRuleset) string { return r.Name.Get() }, "org ruleset")
	checkUniqueKeys(vc, o.Teams, func(t *Team) string { return t.Name.Get() }, "team")
	checkUniqueKeys(vc, o.Repositories, func(r *Repository) string { return r.Name.Get() }, "repository")

	// Aliases must not collide with any primary repository name.
	names := map[string]bool{}
	for _, repo := range o.Repositories {
		names[repo.Name.Get()] = true
	}
	for _, repo := range o.Repositories {
		for _, alias := range repo.Aliases.OrElse(nil) {
			if names[alias] && alias != repo.Name.Get() {
				vc.Errorf("repo[%s]: alias %q collides with another repository", repo.Name.Get(), alias)
			}
		}
	}

	var repoNames []string
	for name := range names {
		repoNames = append(repoNames, name)
	}
	sort.Strings(repoNames)

	for _, hook := range o.Webhooks {
		hook.Validate(vc)
	}
	for _, secret := range o.Secrets {
		secret.Validate(vc)
	}
	for _, variable := range o.Variables {
		variable.Validate(vc)
	}
	for _, property := range o.CustomProperties {
		property.Validate(vc)
	}
	for _, role := range o.Roles {
		role.Validate(vc)
	}
	for _, ruleset := range o.Rulesets {
		ruleset.Validate(vc, repoNames)
	}
	for _, team := range o.Teams {
		team.Validate(vc)
	}
	for _, repo := range o.Repositories {
		repo.Validate(vc)
	}
}
