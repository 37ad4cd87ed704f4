package model

// GenerateLivePatches computes the ordered patch sequence turning the
// current organization state into the expected one. The order is fixed:
// org singletons, org collections, then each repository with its
// sub-tree, so that prerequisites (teams, roles) precede the resources
// referring to them.
func GenerateLivePatches(expected, current *Organization, pctx *PatchContext) []*LivePatch {
	coerceCrossLevel(expected, current)

	sink := &patchSink{}
	orgID := pctx.OrgID

	if expected.Settings != nil && current.Settings != nil {
		expected.Settings.generateLivePatch(current.Settings, orgID, sink)
	}
	if expected.WorkflowSettings != nil && current.WorkflowSettings != nil {
		expected.WorkflowSettings.generateLivePatch(current.WorkflowSettings, orgID, sink)
	}

	diffLists(expected.CustomProperties, current.CustomProperties,
		func(p *CustomProperty) string { return p.Name.Get() }, nil,
		func(cur *CustomProperty) { cur.removePatch(orgID, sink) },
		func(exp, cur *CustomProperty) { exp.generateLivePatch(cur, orgID, sink) },
		func(exp *CustomProperty) { exp.addPatch(orgID, sink) })

	diffLists(expected.Roles, current.Roles,
		func(r *OrganizationRole) string { return r.Name.Get() }, nil,
		func(cur *OrganizationRole) { cur.removePatch(orgID, sink) },
		func(exp, cur *OrganizationRole) { exp.generateLivePatch(cur, orgID, sink) },
		func(exp *OrganizationRole) { exp.addPatch(orgID, sink) })

	diffLists(expected.Rulesets, current.Rulesets,
		func(r *OrganizationRuleset) string { return r.Name.Get() }, nil,
		func(cur *OrganizationRuleset) { cur.removePatch(orgID, sink) },
		func(exp, cur *OrganizationRuleset) { exp.generateLivePatch(cur, orgID, sink) },
		func(exp *OrganizationRuleset) { exp.addPatch(orgID, sink) })

	diffLists(expected.Teams, current.Teams,
		func(t *Team) string { return t.Name.Get() }, nil,
		func(cur *Team) { cur.removePatch(orgID, sink) },
		func(exp, cur *Team) { exp.generateLivePatch(cur, orgID, sink) },
		func(exp *Team) { exp.addPatch(orgID, sink) })

	diffLists(expected.Webhooks, current.Webhooks,
		func(w *OrganizationWebhook) string { return w.URL.Get() },
		func(w *OrganizationWebhook) []string { return w.Aliases.OrElse(nil) },
		func(cur *OrganizationWebhook) { cur.removePatch(orgID, sink) },
		func(exp, cur *OrganizationWebhook) { exp.generateLivePatch(cur, orgID, pctx, sink) },
		func(exp *OrganizationWebhook) { exp.addPatch(orgID, pctx, sink) })

	diffLists(expected.Secrets, current.Secrets,
		func(s *OrganizationSecret) string { return s.Name.Get() }, nil,
		func(cur *OrganizationSecret) { cur.removePatch(orgID, sink) },
		func(exp, cur *OrganizationSecret) { exp.generateLivePatch(cur, orgID, pctx, sink) },
		func(exp *OrganizationSecret) { exp.addPatch(orgID, pctx, sink) })

	diffLists(expected.Variables, current.Variables,
		func(v *OrganizationVariable) string { return v.Name.Get() }, nil,
		func(cur *OrganizationVariable) { cur.removePatch(orgID, sink) },
		func(exp, cur *OrganizationVariable) { exp.generateLivePatch(cur, orgID, pctx, sink) },
		func(exp *OrganizationVariable) { exp.addPatch(orgID, sink) })

	expectedRepos := filterRepos(expected.Repositories, pctx)
	currentRepos := filterRepos(current.Repositories, pctx)
	diffLists(expectedRepos, currentRepos,
		func(r *Repository) string { return r.Name.Get() },
		func(r *Repository) []string { return r.Aliases.OrElse(nil) },
		func(cur *Repository) { cur.removePatch(orgID, sink) },
		func(exp, cur *Repository) {
			exp.generateLivePatch(cur, orgID, sink)
			diffRepositoryChildren(exp, cur, orgID, pctx, sink)
		},
		func(exp *Repository) {
			exp.addPatch(orgID, sink)
			addRepositoryChildren(exp, orgID, pctx, sink)
		})

	return sink.patches
}

func filterRepos(repos []*Repository, pctx *PatchContext) []*Repository {
	if pctx.RepoFilter == nil {
		return repos
	}
	var out []*Repository
	for _, r := range repos {
		if pctx.RepoFilter.MatchString(r.Name.Get()) {
			out = append(out, r)
		}
	}
	return out
}

// coerceCrossLevel removes expected child fields that the organization
// level already determines, so they do not produce spurious diffs.
func coerceCrossLevel(expected, current *Organization) {
	ws := expected.WorkflowSettings
	settings := expected.Settings

	for _, repo := range expected.Repositories {
		if ws != nil && repo.WorkflowSettings != nil {
			if ws.EnabledRepositories.OrElse("") == "none" {
				UnsetField(repo.WorkflowSettings, "enabled")
			}
			if ws.DefaultWorkflowPermissions.OrElse("") == "read" {
				UnsetField(repo.WorkflowSettings, "default_workflow_permissions")
			}
		}
		if settings != nil && settings.HasOrganizationProjects.IsSet() && !settings.HasOrganizationProjects.Get() {
			UnsetField(repo, "has_projects")
		}
	}

	// Org-wide commit signoff overrides the per-repository flag; GitHub
	// reports it as enabled on every repository.
	if settings != nil && settings.WebCommitSignoffRequired.OrElse(false) {
		for _, repo := range current.Repositories {
			repo.WebCommitSignoffRequired = Set(true)
		}
	}
}

func diffRepositoryChildren(exp, cur *Repository, orgID string, pctx *PatchContext, sink *patchSink) {
	repoName := exp.Name.Get()
	repoID := cur.ID.OrElse(0)

	// Branch protections on archived repositories cannot be written.
	if !exp.Archived.OrElse(false) {
		diffLists(exp.BranchProtectionRules, cur.BranchProtectionRules,
			func(r *BranchProtectionRule) string { return r.Pattern.Get() }, nil,
			func(c *BranchProtectionRule) { c.removePatch(orgID, repoName, sink) },
			func(e, c *BranchProtectionRule) { e.generateLivePatch(c, orgID, repoName, sink) },
			func(e *BranchProtectionRule) { e.addPatch(orgID, repoName, sink) })
	}

	diffLists(exp.Rulesets, cur.Rulesets,
		func(r *RepositoryRuleset) string { return r.Name.Get() }, nil,
		func(c *RepositoryRuleset) { c.removePatch(orgID, repoName, sink) },
		func(e, c *RepositoryRuleset) { e.generateLivePatch(c, orgID, repoName, sink) },
		func(e *RepositoryRuleset) { e.addPatch(orgID, repoName, sink) })

	diffLists(exp.Webhooks, cur.Webhooks,
		func(w *RepositoryWebhook) string { return w.URL.Get() },
		func(w *RepositoryWebhook) []string { return w.Aliases.OrElse(nil) },
		func(c *RepositoryWebhook) { c.removePatch(orgID, repoName, sink) },
		func(e, c *RepositoryWebhook) { e.generateLivePatch(c, orgID, repoName, pctx, sink) },
		func(e *RepositoryWebhook) { e.addPatch(orgID, repoName, pctx, sink) })

	diffLists(exp.Secrets, cur.Secrets,
		func(s *RepositorySecret) string { return s.Name.Get() }, nil,
		func(c *RepositorySecret) { c.removePatch(orgID, repoName, sink) },
		func(e, c *RepositorySecret) { e.generateLivePatch(c, orgID, repoName, pctx, sink) },
		func(e *RepositorySecret) { e.addPatch(orgID, repoName, pctx, sink) })

	diffLists(exp.Variables, cur.Variables,
		func(v *RepositoryVariable) string { return v.Name.Get() }, nil,
		func(c *RepositoryVariable) { c.removePatch(orgID, repoName, sink) },
		func(e, c *RepositoryVariable) { e.generateLivePatch(c, orgID, repoName, sink) },
		func(e *RepositoryVariable) { e.addPatch(orgID, repoName, sink) })

	diffLists(exp.Environments, cur.Environments,
		func(e *Environment) string { return e.Name.Get() }, nil,
		func(c *Environment) { c.removePatch(orgID, repoName, sink) },
		func(e, c *Environment) {
			e.generateLivePatch(c, orgID, repoName, sink)
			diffEnvironmentChildren(e, c, orgID, repoID, repoName, pctx, sink)
		},
		func(e *Environment) {
			e.addPatch(orgID, repoName, sink)
			addEnvironmentChildren(e, orgID, repoID, repoName, pctx, sink)
		})

	diffLists(exp.TeamPermissions, cur.TeamPermissions,
		func(p *TeamPermission) string { return p.Team.Get() }, nil,
		func(c *TeamPermission) { c.removePatch(orgID, repoName, sink) },
		func(e, c *TeamPermission) { e.generateLivePatch(c, orgID, repoName, sink) },
		func(e *TeamPermission) { e.addPatch(orgID, repoName, sink) })

	if exp.WorkflowSettings != nil && cur.WorkflowSettings != nil {
		exp.WorkflowSettings.generateLivePatch(cur.WorkflowSettings, orgID, repoName, sink)
	}
}

func diffEnvironmentChildren(exp, cur *Environment, orgID string, repoID int64, repoName string, pctx *PatchContext, sink *patchSink) {
	envName := exp.Name.Get()

	diffLists(exp.Secrets, cur.Secrets,
		func(s *EnvironmentSecret) string { return s.Name.Get() }, nil,
		func(c *EnvironmentSecret) { c.removePatch(orgID, repoID, repoName, envName, sink) },
		func(e, c *EnvironmentSecret) {
			e.generateLivePatch(c, orgID, repoID, repoName, envName, pctx, sink)
		},
		func(e *EnvironmentSecret) { e.addPatch(orgID, repoID, repoName, envName, pctx, sink) })

	diffLists(exp.Variables, cur.Variables,
		func(v *EnvironmentVariable) string { return v.Name.Get() }, nil,
		func(c *EnvironmentVariable) { c.removePatch(orgID, repoName, envName, sink) },
		func(e, c *EnvironmentVariable) { e.generateLivePatch(c, orgID, repoName, envName, sink) },
		func(e *EnvironmentVariable) { e.addPatch(orgID, repoName, envName, sink) })
}

// addRepositoryChildren emits ADD patches for the complete sub-tree of a
// repository that does not exist yet. They run after the repository's
// own creation by patch order.
func addRepositoryChildren(exp *Repository, orgID string, pctx *PatchContext, sink *patchSink) {
	repoName := exp.Name.Get()

	if !exp.Archived.OrElse(false) {
		for _, rule := range exp.BranchProtectionRules {
			rule.addPatch(orgID, repoName, sink)
		}
	}
	for _, rs := range exp.Rulesets {
		rs.addPatch(orgID, repoName, sink)
	}
	for _, hook := range exp.Webhooks {
		hook.addPatch(orgID, repoName, pctx, sink)
	}
	for _, secret := range exp.Secrets {
		secret.addPatch(orgID, repoName, pctx, sink)
	}
	for _, variable := range exp.Variables {
		variable.addPatch(orgID, repoName, sink)
	}
	for _, env := range exp.Environments {
		env.addPatch(orgID, repoName, sink)
		addEnvironmentChildren(env, orgID, 0, repoName, pctx, sink)
	}
	for _, perm := range exp.TeamPermissions {
		perm.addPatch(orgID, repoName, sink)
	}
	if exp.WorkflowSettings != nil {
		exp.WorkflowSettings.generateLivePatch(&RepositoryWorkflowSettings{}, orgID, repoName, sink)
	}
}

func addEnvironmentChildren(exp *Environment, orgID string, repoID int64, repoName string, pctx *PatchContext, sink *patchSink) {
	envName := exp.Name.Get()
	for _, secret := range exp.Secrets {
		secret.addPatch(orgID, repoID, repoName, envName, pctx, sink)
	}
	for _, variable := range exp.Variables {
		variable.addPatch(orgID, repoName, envName, sink)
	}
}
