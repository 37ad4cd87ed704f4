package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "otterdog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"organizations": [
			{"name": "acme", "github_id": "acme-corp"}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".eclipsefdn", cfg.Defaults.GitHub.ConfigRepo)
	assert.Equal(t, "main", cfg.Defaults.GitHub.DefaultBranch)
	assert.Equal(t, "orgs", cfg.Defaults.Jsonnet.ConfigDir)
	assert.NotEmpty(t, cfg.Defaults.Jsonnet.BaseTemplate)
}

func TestLoadValidatesOrganizations(t *testing.T) {
	for name, content := range map[string]string{
		"missing name":      `{"organizations": [{"github_id": "x"}]}`,
		"missing github_id": `{"organizations": [{"name": "acme"}]}`,
		"duplicate": `{"organizations": [
			{"name": "acme", "github_id": "a"},
			{"name": "acme", "github_id": "b"}
		]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestOrganizationLookup(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"organizations": [
			{"name": "acme", "github_id": "acme-corp"},
			{"name": "umbrella", "github_id": "umbrella-inc"}
		]
	}`))
	require.NoError(t, err)

	org, err := cfg.Organization("umbrella")
	require.NoError(t, err)
	assert.Equal(t, "umbrella-inc", org.GitHubID)

	_, err = cfg.Organization("unknown")
	require.Error(t, err)

	assert.Equal(t, []string{"acme", "umbrella"}, cfg.OrganizationNames())
}

func TestOrgConfigFileResolvesAgainstConfig(t *testing.T) {
	path := writeConfig(t, `{"organizations": [{"name": "acme", "github_id": "a"}]}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	expected := filepath.Join(filepath.Dir(path), "orgs", "acme.jsonnet")
	assert.Equal(t, expected, cfg.OrgConfigFile("acme"))
}

func TestParseTemplateRef(t *testing.T) {
	ref, err := ParseTemplateRef("https://github.com/eclipse-csi/otterdog#template/defaults.libsonnet@v1.2")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/eclipse-csi/otterdog", ref.Repo)
	assert.Equal(t, "template/defaults.libsonnet", ref.File)
	assert.Equal(t, "v1.2", ref.Ref)

	ref, err = ParseTemplateRef("https://github.com/x/y#file.libsonnet")
	require.NoError(t, err)
	assert.Equal(t, "main", ref.Ref, "ref defaults to main")

	_, err = ParseTemplateRef("https://github.com/x/y")
	require.Error(t, err)

	_, err = ParseTemplateRef("https://github.com/x/y#@v1")
	require.Error(t, err)
}

func TestCredentialsConfigTwoFASeedKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"organizations": [{
			"name": "acme", "github_id": "a",
			"credentials": {"provider": "pass", "2fa_seed": "pass:acme/seed"}
		}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "pass:acme/seed", cfg.Organizations[0].Credentials.TwoFASeed)
}
