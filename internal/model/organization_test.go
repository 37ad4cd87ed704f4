package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModelData() map[string]any {
	return map[string]any{
		"github_id":    "acme",
		"project_name": "technology.acme",
		"settings": map[string]any{
			"name":        "ACME",
			"plan":        "free",
			"web_commit_signoff_required": false,
			"workflows": map[string]any{
				"enabled_repositories": "all",
			},
		},
		"webhooks": []any{
			map[string]any{
				"url":    "https://ci.example.org/hook",
				"active": true,
				"events": []any{"push"},
			},
		},
		"repositories": []any{
			map[string]any{
				"name":           "server",
				"private":        false,
				"default_branch": "main",
				"webhooks": []any{
					map[string]any{"url": "https://ci.example.org/repo-hook"},
				},
				"environments": []any{
					map[string]any{
						"name":       "production",
						"wait_timer": float64(30),
						"variables": []any{
							map[string]any{"name": "REGION", "value": "eu-west-1"},
						},
					},
				},
			},
		},
	}
}

func TestFromModelData(t *testing.T) {
	org, unknown, err := FromModelData(sampleModelData())
	require.NoError(t, err)
	assert.Empty(t, unknown)

	assert.Equal(t, "acme", org.GitHubID)
	assert.Equal(t, "ACME", org.Settings.Name.Get())
	assert.Equal(t, "all", org.WorkflowSettings.EnabledRepositories.Get())

	require.Len(t, org.Webhooks, 1)
	assert.Equal(t, []string{"push"}, org.Webhooks[0].Events.Get())

	require.Len(t, org.Repositories, 1)
	repo := org.Repositories[0]
	assert.Equal(t, "server", repo.Name.Get())
	assert.Equal(t, "main", repo.DefaultBranch.Get())
	require.Len(t, repo.Environments, 1)
	assert.Equal(t, 30, repo.Environments[0].WaitTimer.Get())
	require.Len(t, repo.Environments[0].Variables, 1)
	assert.Equal(t, "REGION", repo.Environments[0].Variables[0].Name.Get())
}

func TestFromModelDataReportsUnknownKeys(t *testing.T) {
	data := sampleModelData()
	data["setings"] = map[string]any{}
	repo := data["repositories"].([]any)[0].(map[string]any)
	repo["privat"] = true

	_, unknown, err := FromModelData(data)
	require.NoError(t, err)
	assert.Contains(t, unknown, "setings")
	assert.Contains(t, unknown, "repositories[0].privat")
}

func TestOrganizationModelMapRoundTrip(t *testing.T) {
	org, _, err := FromModelData(sampleModelData())
	require.NoError(t, err)

	again, unknown, err := FromModelData(org.ToModelMap(false))
	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, org.ToModelMap(false), again.ToModelMap(false))
}

func findingMessages(vc *ValidationContext, severity Severity) []string {
	var out []string
	for _, f := range vc.Findings() {
		if f.Severity == severity {
			out = append(out, f.Message)
		}
	}
	return out
}

func validateOrg(t *testing.T, org *Organization) *ValidationContext {
	t.Helper()
	vc := &ValidationContext{}
	org.Validate(vc, nil)
	return vc
}

func TestValidateUnknownKeysAreErrors(t *testing.T) {
	vc := &ValidationContext{}
	(&Organization{}).Validate(vc, []string{"settings.nme"})
	assert.Equal(t, 1, vc.ErrorCount())
}

func TestValidateDuplicateRepositories(t *testing.T) {
	org := &Organization{
		Repositories: []*Repository{
			{Name: Set("server")},
			{Name: Set("server")},
		},
	}
	vc := validateOrg(t, org)
	assert.Equal(t, 1, vc.ErrorCount())
}

func TestValidateAliasCollision(t *testing.T) {
	org := &Organization{
		Repositories: []*Repository{
			{Name: Set("server")},
			{Name: Set("backend"), Aliases: Set([]string{"server"})},
		},
	}
	vc := validateOrg(t, org)
	assert.Equal(t, 1, vc.ErrorCount())
}

func TestValidatePrivateRepoSecurityBlocks(t *testing.T) {
	org := &Organization{
		Repositories: []*Repository{
			{
				Name:           Set("internal"),
				Private:        Set(true),
				SecretScanning: Set("enabled"),
			},
		},
	}
	vc := validateOrg(t, org)
	require.Equal(t, 1, vc.ErrorCount())
	assert.Contains(t, findingMessages(vc, SeverityError)[0], "private")
}

func TestValidatePushProtectionRequiresScanning(t *testing.T) {
	org := &Organization{
		Repositories: []*Repository{
			{
				Name:                         Set("server"),
				SecretScanning:               Set("disabled"),
				SecretScanningPushProtection: Set("enabled"),
			},
		},
	}
	vc := validateOrg(t, org)
	assert.Equal(t, 1, vc.ErrorCount())
}

func TestValidateDependabotAlertsRequireDependencyGraph(t *testing.T) {
	org := &Organization{
		Settings: &OrganizationSettings{
			DependabotAlertsEnabledForNewRepositories: Set(true),
			DependencyGraphEnabledForNewRepositories:  Set(false),
		},
	}
	vc := validateOrg(t, org)
	require.Equal(t, 1, vc.ErrorCount())
	assert.Contains(t, findingMessages(vc, SeverityError)[0], "dependency graph")
}

func TestValidateEvaluateEnforcementNeedsPaidPlan(t *testing.T) {
	orgWithPlan := func(plan string) *Organization {
		return &Organization{
			Settings: &OrganizationSettings{Plan: Set(plan)},
			Repositories: []*Repository{
				{
					Name: Set("server"),
					Rulesets: []*RepositoryRuleset{
						{Name: Set("trial"), Enforcement: Set("evaluate")},
					},
				},
			},
		}
	}

	vc := validateOrg(t, orgWithPlan("free"))
	require.Equal(t, 1, vc.ErrorCount())
	assert.Contains(t, findingMessages(vc, SeverityError)[0], "evaluate")

	vc = validateOrg(t, orgWithPlan("enterprise"))
	assert.Equal(t, 0, vc.ErrorCount())
}

func TestValidateBranchProtectionRulesetOverlap(t *testing.T) {
	org := &Organization{
		Repositories: []*Repository{
			{
				Name: Set("server"),
				BranchProtectionRules: []*BranchProtectionRule{
					{Pattern: Set("main")},
				},
				Rulesets: []*RepositoryRuleset{
					{
						Name:        Set("main-protection"),
						IncludeRefs: Set([]string{"refs/heads/main"}),
					},
				},
			},
		},
	}
	vc := validateOrg(t, org)
	assert.Equal(t, 0, vc.ErrorCount(), "overlap is a warning, not an error")

	warnings := findingMessages(vc, SeverityWarning)
	require.NotEmpty(t, warnings)
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "overlaps") {
			found = true
		}
	}
	assert.True(t, found, "expected an overlap warning, got %v", warnings)
}

func TestValidateEnvironmentReviewCount(t *testing.T) {
	env := &Environment{
		Name:      Set("production"),
		WaitTimer: Set(50000),
	}
	org := &Organization{
		Repositories: []*Repository{
			{Name: Set("server"), Environments: []*Environment{env}},
		},
	}
	vc := validateOrg(t, org)
	assert.Equal(t, 1, vc.ErrorCount())
}
