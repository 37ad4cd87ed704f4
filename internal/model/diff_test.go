package model

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patchResources(patches []*LivePatch) []string {
	out := make([]string, 0, len(patches))
	for _, p := range patches {
		out = append(out, p.Kind.String()+" "+p.Resource)
	}
	return out
}

func TestGenerateLivePatchesUpToDate(t *testing.T) {
	expected := &Organization{
		GitHubID: "acme",
		Webhooks: []*OrganizationWebhook{sampleWebhook()},
	}
	current := &Organization{
		GitHubID: "acme",
		Webhooks: []*OrganizationWebhook{sampleWebhook()},
	}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	assert.Empty(t, patches)
}

func TestGenerateLivePatchesWebhookRenameViaAlias(t *testing.T) {
	exp := sampleWebhook()
	exp.URL = Set("https://ci.example.org/v2/hook")
	exp.Aliases = Set([]string{"https://ci.example.org/hook"})

	expected := &Organization{Webhooks: []*OrganizationWebhook{exp}}
	current := &Organization{Webhooks: []*OrganizationWebhook{sampleWebhook()}}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	require.Len(t, patches, 1, "an aliased rename must be a single change, not remove plus add")
	assert.Equal(t, PatchChange, patches[0].Kind)
	assert.Equal(t, Change{
		From: "https://ci.example.org/hook",
		To:   "https://ci.example.org/v2/hook",
	}, patches[0].Changes["url"])
}

func TestGenerateLivePatchesRemovalsPrecedeAdds(t *testing.T) {
	hookA := sampleWebhook()
	hookB := sampleWebhook()
	hookB.URL = Set("https://other.example.org/hook")

	expected := &Organization{Webhooks: []*OrganizationWebhook{hookB}}
	current := &Organization{Webhooks: []*OrganizationWebhook{hookA}}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	require.Equal(t, []string{
		"remove org_webhook[https://ci.example.org/hook]",
		"add org_webhook[https://other.example.org/hook]",
	}, patchResources(patches))
}

func TestGenerateLivePatchesDeterministicOrder(t *testing.T) {
	build := func() *Organization {
		hookB := sampleWebhook()
		hookB.URL = Set("https://b.example.org")
		hookA := sampleWebhook()
		hookA.URL = Set("https://a.example.org")
		return &Organization{
			// Declaration order differs from key order on purpose.
			Webhooks: []*OrganizationWebhook{hookB, hookA},
			Secrets: []*OrganizationSecret{
				{Name: Set("ZETA"), Value: Set("pass:zeta")},
				{Name: Set("ALPHA"), Value: Set("pass:alpha")},
			},
		}
	}

	patches := GenerateLivePatches(build(), &Organization{}, &PatchContext{OrgID: "acme"})
	require.Equal(t, []string{
		"add org_webhook[https://a.example.org]",
		"add org_webhook[https://b.example.org]",
		"add org_secret[ALPHA]",
		"add org_secret[ZETA]",
	}, patchResources(patches))

	again := GenerateLivePatches(build(), &Organization{}, &PatchContext{OrgID: "acme"})
	assert.Equal(t, patchResources(patches), patchResources(again))
}

func TestGenerateLivePatchesSkipsDummySecrets(t *testing.T) {
	exp := sampleWebhook()
	exp.Secret = Set("********")
	exp.Active = Set(false)

	expected := &Organization{
		Webhooks: []*OrganizationWebhook{exp},
		Secrets: []*OrganizationSecret{
			{Name: Set("TOKEN"), Value: Set("****")},
		},
	}
	current := &Organization{Webhooks: []*OrganizationWebhook{sampleWebhook()}}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	assert.Empty(t, patches, "children with dummy secrets must not be written")
}

func TestGenerateLivePatchesForcedSecretUpdate(t *testing.T) {
	expected := &Organization{
		Secrets: []*OrganizationSecret{
			{Name: Set("TOKEN"), Visibility: Set("public"), Value: Set("pass:org/token")},
		},
	}
	current := &Organization{
		Secrets: []*OrganizationSecret{
			{Name: Set("TOKEN"), Visibility: Set("public"), Value: Set("********")},
		},
	}

	// Without the flag the secret value difference is invisible.
	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	assert.Empty(t, patches)

	patches = GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme", UpdateSecrets: true})
	require.Len(t, patches, 1)
	assert.True(t, patches[0].Forced)
	change := patches[0].Changes["value"]
	assert.Equal(t, change.From, change.To)
	assert.Equal(t, "pass:org/token", change.To, "the plan carries the reference, never plaintext")
}

func TestGenerateLivePatchesUpdateFilter(t *testing.T) {
	expected := &Organization{
		Secrets: []*OrganizationSecret{
			{Name: Set("DEPLOY_KEY"), Value: Set("pass:deploy")},
			{Name: Set("TOKEN"), Value: Set("pass:token")},
		},
	}
	current := &Organization{
		Secrets: []*OrganizationSecret{
			{Name: Set("DEPLOY_KEY"), Value: Set("********")},
			{Name: Set("TOKEN"), Value: Set("********")},
		},
	}

	pctx := &PatchContext{
		OrgID:         "acme",
		UpdateSecrets: true,
		UpdateFilter:  regexp.MustCompile(`^DEPLOY_.*$`),
	}
	patches := GenerateLivePatches(expected, current, pctx)
	require.Len(t, patches, 1)
	assert.Equal(t, "org_secret[DEPLOY_KEY]", patches[0].Resource)
}

func TestGenerateLivePatchesRepoFilter(t *testing.T) {
	expected := &Organization{
		Repositories: []*Repository{
			{Name: Set("website")},
			{Name: Set("server")},
		},
	}
	current := &Organization{}

	pctx := &PatchContext{OrgID: "acme", RepoFilter: regexp.MustCompile(`^server$`)}
	patches := GenerateLivePatches(expected, current, pctx)
	require.Len(t, patches, 1)
	assert.Equal(t, "repo[server]", patches[0].Resource)
}

func TestCoerceCrossLevelProjects(t *testing.T) {
	settings := &OrganizationSettings{HasOrganizationProjects: Set(false)}
	repo := &Repository{Name: Set("server"), HasProjects: Set(true)}
	curRepo := &Repository{Name: Set("server"), ID: Set(int64(1)), HasProjects: Set(false)}

	expected := &Organization{Settings: settings, Repositories: []*Repository{repo}}
	current := &Organization{Settings: &OrganizationSettings{}, Repositories: []*Repository{curRepo}}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	for _, p := range patches {
		assert.NotContains(t, p.Changes, "has_projects",
			"repository projects are moot when the organization disables them")
	}
}

func TestCoerceCrossLevelSignoff(t *testing.T) {
	settings := &OrganizationSettings{WebCommitSignoffRequired: Set(true)}
	repo := &Repository{Name: Set("server"), WebCommitSignoffRequired: Set(true)}
	curRepo := &Repository{Name: Set("server"), ID: Set(int64(1)), WebCommitSignoffRequired: Set(false)}

	expected := &Organization{Settings: settings, Repositories: []*Repository{repo}}
	current := &Organization{
		Settings:     &OrganizationSettings{WebCommitSignoffRequired: Set(true)},
		Repositories: []*Repository{curRepo},
	}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	assert.Empty(t, patches,
		"org-wide signoff implies the repository flag, no diff should remain")
}

func TestGenerateLivePatchesArchivedRepoSkipsBranchProtections(t *testing.T) {
	rule := &BranchProtectionRule{Pattern: Set("main"), RequiresApprovingReviews: Set(true)}
	expected := &Organization{
		Repositories: []*Repository{
			{Name: Set("attic"), Archived: Set(true), BranchProtectionRules: []*BranchProtectionRule{rule}},
		},
	}
	current := &Organization{
		Repositories: []*Repository{
			{Name: Set("attic"), ID: Set(int64(1)), Archived: Set(true)},
		},
	}

	patches := GenerateLivePatches(expected, current, &PatchContext{OrgID: "acme"})
	assert.Empty(t, patches, "branch protections of archived repositories cannot be written")
}
