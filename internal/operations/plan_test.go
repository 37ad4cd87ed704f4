package operations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-csi/otterdog-sub000/internal/config"
	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

func testOrgContext(out *strings.Builder) *OrgContext {
	return &OrgContext{
		Org: &config.Organization{Name: "acme", GitHubID: "acme-corp"},
		Out: out,
	}
}

func TestPrintPatchesUpToDate(t *testing.T) {
	var out strings.Builder
	printPatches(testOrgContext(&out), nil)
	assert.Contains(t, out.String(), "organization acme is up to date")
}

func TestPrintPatchesSummary(t *testing.T) {
	var out strings.Builder
	patches := []*model.LivePatch{
		{Kind: model.PatchAdd, Resource: "org_secret[TOKEN]"},
		{Kind: model.PatchChange, Resource: "repo[server]", Changes: map[string]model.Change{
			"description": {From: "old", To: "new"},
		}},
		{Kind: model.PatchRemove, Resource: "repo[attic]"},
	}
	printPatches(testOrgContext(&out), patches)

	text := out.String()
	assert.Contains(t, text, "+ org_secret[TOKEN]")
	assert.Contains(t, text, "~ repo[server] {description: old -> new}")
	assert.Contains(t, text, "- repo[attic]")
	assert.Contains(t, text, "plan: 1 to add, 1 to change, 1 to delete")
}

func TestNewPatchContextCompilesFilters(t *testing.T) {
	o := testOrgContext(&strings.Builder{})

	pctx, err := o.newPatchContext(PlanOptions{UpdateFilter: "TOKEN.*", RepoFilter: "server"})
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", pctx.OrgID)
	assert.True(t, pctx.UpdateFilter.MatchString("TOKEN_A"))
	assert.False(t, pctx.RepoFilter.MatchString("server-2"))

	_, err = o.newPatchContext(PlanOptions{UpdateFilter: "("})
	require.Error(t, err)
}
