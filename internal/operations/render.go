package operations

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

// renderJsonnetValue prints a JSON-ish tree as jsonnet source. Maps are
// emitted with sorted keys for deterministic output.
func renderJsonnetValue(v any, indent string) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return renderJsonnetString(val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case []string:
		items := make([]any, 0, len(val))
		for _, s := range val {
			items = append(items, s)
		}
		return renderJsonnetList(items, indent)
	case []any:
		return renderJsonnetList(val, indent)
	case map[string]any:
		return renderJsonnetObject(val, indent)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func renderJsonnetString(s string) string {
	escaped := strings.ReplaceAll(s, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	return "'" + escaped + "'"
}

func renderJsonnetList(items []any, indent string) string {
	if len(items) == 0 {
		return "[]"
	}
	inner := indent + "  "
	var b strings.Builder
	b.WriteString("[\n")
	for _, item := range items {
		b.WriteString(inner)
		b.WriteString(renderJsonnetValue(item, inner))
		b.WriteString(",\n")
	}
	b.WriteString(indent + "]")
	return b.String()
}

var jsonnetIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func renderJsonnetObject(obj map[string]any, indent string) string {
	if len(obj) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	inner := indent + "  "
	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range keys {
		key := k
		if !jsonnetIdentRe.MatchString(key) {
			key = renderJsonnetString(key)
		}
		b.WriteString(inner)
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(renderJsonnetValue(obj[k], inner))
		b.WriteString(",\n")
	}
	b.WriteString(indent + "}")
	return b.String()
}

// renderCall renders a template invocation with string arguments plus an
// optional patch object.
func renderCall(ctor string, args []string, patch map[string]any, indent string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, renderJsonnetString(a))
	}
	call := fmt.Sprintf("orgs.%s(%s)", ctor, strings.Join(quoted, ", "))
	if len(patch) == 0 {
		return call
	}
	return call + " " + renderJsonnetObject(patch, indent)
}

func renderEntityList[E any](b *strings.Builder, field, ctor string, entities []E, key func(E) string, patch func(E) map[string]any) {
	if len(entities) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s+: [\n", field)
	for _, e := range entities {
		fmt.Fprintf(b, "    %s,\n", renderCall(ctor, []string{key(e)}, patch(e), "    "))
	}
	b.WriteString("  ],\n")
}

// modelPatch serializes an entity for rendering, dropping the key field
// that travels as the constructor argument.
func modelPatch(e any, keyField string) map[string]any {
	m := model.ToModelMap(e, false)
	delete(m, keyField)
	return m
}

// RenderOrg produces the declarative jsonnet source for an organization,
// pruning fields equal to the template defaults where defaults are
// available.
func RenderOrg(org *model.Organization, orgName string, defaults *templateDefaults) string {
	var b strings.Builder
	b.WriteString("local orgs = import 'otterdog-functions.libsonnet';\n\n")
	fmt.Fprintf(&b, "orgs.newOrg('%s', '%s') {\n", orgName, org.GitHubID)

	if org.Settings != nil {
		settings := defaults.settingsPatch(org.Settings)
		if org.WorkflowSettings != nil {
			if ws := model.ToModelMap(org.WorkflowSettings, false); len(ws) > 0 {
				settings["workflows"] = ws
			}
		}
		if len(settings) > 0 {
			fmt.Fprintf(&b, "  settings+: %s,\n", renderJsonnetObject(settings, "  "))
		}
	}

	renderEntityList(&b, "webhooks", "newOrgWebhook", org.Webhooks,
		func(w *model.OrganizationWebhook) string { return w.URL.Get() },
		func(w *model.OrganizationWebhook) map[string]any { return modelPatch(w, "url") })
	renderEntityList(&b, "secrets", "newOrgSecret", org.Secrets,
		func(s *model.OrganizationSecret) string { return s.Name.Get() },
		func(s *model.OrganizationSecret) map[string]any { return modelPatch(s, "name") })
	renderEntityList(&b, "variables", "newOrgVariable", org.Variables,
		func(v *model.OrganizationVariable) string { return v.Name.Get() },
		func(v *model.OrganizationVariable) map[string]any { return modelPatch(v, "name") })
	renderEntityList(&b, "custom_properties", "newCustomProperty", org.CustomProperties,
		func(p *model.CustomProperty) string { return p.Name.Get() },
		func(p *model.CustomProperty) map[string]any { return modelPatch(p, "name") })
	renderEntityList(&b, "roles", "newOrgRole", org.Roles,
		func(r *model.OrganizationRole) string { return r.Name.Get() },
		func(r *model.OrganizationRole) map[string]any { return modelPatch(r, "name") })
	renderEntityList(&b, "rulesets", "newOrgRuleset", org.Rulesets,
		func(r *model.OrganizationRuleset) string { return r.Name.Get() },
		func(r *model.OrganizationRuleset) map[string]any { return modelPatch(r, "name") })
	renderEntityList(&b, "teams", "newTeam", org.Teams,
		func(t *model.Team) string { return t.Name.Get() },
		func(t *model.Team) map[string]any { return modelPatch(t, "name") })

	if len(org.Repositories) > 0 {
		b.WriteString("  _repositories+:: [\n")
		for _, repo := range org.Repositories {
			b.WriteString("    " + renderRepository(repo, defaults) + ",\n")
		}
		b.WriteString("  ],\n")
	}

	b.WriteString("}\n")
	return b.String()
}

func renderRepository(repo *model.Repository, defaults *templateDefaults) string {
	patch := defaults.repositoryPatch(repo)

	if repo.WorkflowSettings != nil {
		if ws := model.ToModelMap(repo.WorkflowSettings, false); len(ws) > 0 {
			patch["workflow_settings"] = ws
		}
	}
	addChildList(patch, "branch_protection_rules", repo.BranchProtectionRules,
		func(r *model.BranchProtectionRule) map[string]any { return model.ToModelMap(r, false) })
	addChildList(patch, "rulesets", repo.Rulesets,
		func(r *model.RepositoryRuleset) map[string]any { return model.ToModelMap(r, false) })
	addChildList(patch, "webhooks", repo.Webhooks,
		func(w *model.RepositoryWebhook) map[string]any { return model.ToModelMap(w, false) })
	addChildList(patch, "secrets", repo.Secrets,
		func(s *model.RepositorySecret) map[string]any { return model.ToModelMap(s, false) })
	addChildList(patch, "variables", repo.Variables,
		func(v *model.RepositoryVariable) map[string]any { return model.ToModelMap(v, false) })
	addChildList(patch, "team_permissions", repo.TeamPermissions,
		func(p *model.TeamPermission) map[string]any { return model.ToModelMap(p, false) })
	if len(repo.Environments) > 0 {
		envs := make([]any, 0, len(repo.Environments))
		for _, env := range repo.Environments {
			m := model.ToModelMap(env, false)
			addChildList(m, "secrets", env.Secrets,
				func(s *model.EnvironmentSecret) map[string]any { return model.ToModelMap(s, false) })
			addChildList(m, "variables", env.Variables,
				func(v *model.EnvironmentVariable) map[string]any { return model.ToModelMap(v, false) })
			envs = append(envs, m)
		}
		patch["environments"] = envs
	}

	return renderCall("newRepo", []string{repo.Name.Get()}, patch, "    ")
}

func addChildList[E any](patch map[string]any, field string, entities []E, toMap func(E) map[string]any) {
	if len(entities) == 0 {
		return
	}
	items := make([]any, 0, len(entities))
	for _, e := range entities {
		items = append(items, toMap(e))
	}
	patch[field] = items
}

// templateDefaults hold the entity defaults produced by the base
// template, used to prune redundant fields during import.
type templateDefaults struct {
	settings   *model.OrganizationSettings
	repository *model.Repository
}

func (d *templateDefaults) settingsPatch(s *model.OrganizationSettings) map[string]any {
	if d == nil || d.settings == nil {
		return model.ToModelMap(s, false)
	}
	return model.PatchTo(s, d.settings)
}

func (d *templateDefaults) repositoryPatch(r *model.Repository) map[string]any {
	var patch map[string]any
	if d == nil || d.repository == nil {
		patch = model.ToModelMap(r, false)
	} else {
		patch = model.PatchTo(r, d.repository)
	}
	delete(patch, "name")
	return patch
}
