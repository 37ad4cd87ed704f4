package operations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

func TestRenderJsonnetValue(t *testing.T) {
	assert.Equal(t, "null", renderJsonnetValue(nil, ""))
	assert.Equal(t, "true", renderJsonnetValue(true, ""))
	assert.Equal(t, "42", renderJsonnetValue(float64(42), ""))
	assert.Equal(t, "2.5", renderJsonnetValue(2.5, ""))
	assert.Equal(t, "'hello'", renderJsonnetValue("hello", ""))
	assert.Equal(t, `'it\'s'`, renderJsonnetValue("it's", ""))
	assert.Equal(t, "[]", renderJsonnetValue([]any{}, ""))
	assert.Equal(t, "{}", renderJsonnetValue(map[string]any{}, ""))
}

func TestRenderJsonnetObjectSortsKeys(t *testing.T) {
	out := renderJsonnetObject(map[string]any{
		"zeta":      1,
		"alpha":     2,
		"mid-dash!": 3,
	}, "")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "alpha: 2")
	assert.Contains(t, lines[2], "'mid-dash!': 3", "non-identifier keys are quoted")
	assert.Contains(t, lines[3], "zeta: 1")
}

func TestRenderCall(t *testing.T) {
	assert.Equal(t, "orgs.newRepo('server')", renderCall("newRepo", []string{"server"}, nil, ""))

	out := renderCall("newOrgWebhook", []string{"https://x"}, map[string]any{"active": false}, "")
	assert.True(t, strings.HasPrefix(out, "orgs.newOrgWebhook('https://x') {"))
	assert.Contains(t, out, "active: false")
}

func TestRenderOrg(t *testing.T) {
	org := &model.Organization{
		GitHubID: "acme-corp",
		Settings: &model.OrganizationSettings{
			Name: model.Set("ACME"),
		},
		Webhooks: []*model.OrganizationWebhook{
			{
				URL:    model.Set("https://ci.example.org/hook"),
				Active: model.Set(true),
			},
		},
		Repositories: []*model.Repository{
			{
				Name:          model.Set("server"),
				Private:       model.Set(false),
				DefaultBranch: model.Set("main"),
				Secrets: []*model.RepositorySecret{
					{Name: model.Set("TOKEN"), Value: model.Set("********")},
				},
			},
		},
	}

	out := RenderOrg(org, "acme", nil)

	assert.Contains(t, out, "local orgs = import 'otterdog-functions.libsonnet';")
	assert.Contains(t, out, "orgs.newOrg('acme', 'acme-corp') {")
	assert.Contains(t, out, "settings+: {")
	assert.Contains(t, out, "name: 'ACME'")
	assert.Contains(t, out, "orgs.newOrgWebhook('https://ci.example.org/hook')")
	assert.Contains(t, out, "_repositories+:: [")
	assert.Contains(t, out, "orgs.newRepo('server')")
	assert.Contains(t, out, "'********'", "imported secrets stay redacted")
	assert.NotContains(t, out, "url: 'https://ci.example.org/hook'",
		"the key travels as the constructor argument, not in the patch")
}

func TestRenderOrgPrunesTemplateDefaults(t *testing.T) {
	defaults := &templateDefaults{
		settings:   &model.OrganizationSettings{Name: model.Set("ACME"), BillingEmail: model.Set("bill@acme.org")},
		repository: &model.Repository{DefaultBranch: model.Set("main"), Private: model.Set(false)},
	}
	org := &model.Organization{
		GitHubID: "acme-corp",
		Settings: &model.OrganizationSettings{
			Name:         model.Set("ACME"),
			BillingEmail: model.Set("finance@acme.org"),
		},
		Repositories: []*model.Repository{
			{Name: model.Set("server"), Private: model.Set(false), DefaultBranch: model.Set("develop")},
		},
	}

	out := RenderOrg(org, "acme", defaults)

	assert.NotContains(t, out, "name: 'ACME'", "fields equal to the template default are dropped")
	assert.Contains(t, out, "billing_email: 'finance@acme.org'")
	assert.Contains(t, out, "default_branch: 'develop'")
	assert.NotContains(t, out, "private:")
}

func TestCompileFilter(t *testing.T) {
	re, err := compileFilter("server|website")
	require.NoError(t, err)
	assert.True(t, re.MatchString("server"))
	assert.False(t, re.MatchString("server-2"), "filters are anchored")

	re, err = compileFilter("")
	require.NoError(t, err)
	assert.Nil(t, re)

	_, err = compileFilter("(")
	require.Error(t, err)
}
