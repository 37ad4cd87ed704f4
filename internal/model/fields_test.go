package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWebhook() *OrganizationWebhook {
	return &OrganizationWebhook{
		URL:         Set("https://ci.example.org/hook"),
		Active:      Set(true),
		Events:      Set([]string{"push", "pull_request"}),
		ContentType: Set("json"),
		InsecureSSL: Set("0"),
	}
}

func TestModelMapRoundTrip(t *testing.T) {
	original := sampleWebhook()

	data := ToModelMap(original, false)
	decoded := &OrganizationWebhook{}
	unknown, err := FromModelMap(decoded, data)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	if diff := cmp.Diff(data, ToModelMap(decoded, false)); diff != "" {
		t.Errorf("round trip changed the model map (-want +got):\n%s", diff)
	}
	assert.Empty(t, Difference(original, decoded))
}

func TestFromModelMapReportsUnknownKeys(t *testing.T) {
	decoded := &OrganizationWebhook{}
	unknown, err := FromModelMap(decoded, map[string]any{
		"url":       "https://ci.example.org/hook",
		"acitve":    true,
		"conent_tp": "json",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acitve", "conent_tp"}, unknown)
}

func TestDifferenceIdentity(t *testing.T) {
	assert.Empty(t, Difference(sampleWebhook(), sampleWebhook()))
}

func TestDifferenceHonoursUnset(t *testing.T) {
	expected := &OrganizationWebhook{URL: Set("https://ci.example.org/hook")}
	current := sampleWebhook()

	// Every other field of expected is unset and must not produce a
	// change, whatever the current value is.
	assert.Empty(t, Difference(expected, current))
}

func TestDifferenceSetSemantics(t *testing.T) {
	expected := sampleWebhook()
	current := sampleWebhook()
	current.Events = Set([]string{"pull_request", "push"})

	assert.Empty(t, Difference(expected, current))
}

func TestDifferenceReportsTransitions(t *testing.T) {
	expected := sampleWebhook()
	current := sampleWebhook()
	current.Active = Set(false)
	current.ContentType = Set("form")

	changes := Difference(expected, current)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{From: false, To: true}, changes["active"])
	assert.Equal(t, Change{From: "form", To: "json"}, changes["content_type"])
}

func TestDifferenceExcludesSecrets(t *testing.T) {
	expected := sampleWebhook()
	expected.Secret = Set("expected-secret")
	current := sampleWebhook()

	// The provider never echoes webhook secrets, the inclusion predicate
	// keeps them out of the generic diff.
	assert.Empty(t, Difference(expected, current))
}

func TestFullChangesCoversSetFields(t *testing.T) {
	changes := FullChanges(sampleWebhook())

	require.Contains(t, changes, "active")
	require.Contains(t, changes, "events")
	assert.NotContains(t, changes, "aliases", "model-only fields never travel")
	assert.NotContains(t, changes, "id", "external fields never travel")
	for name, c := range changes {
		assert.Equal(t, c.From, c.To, "forced change for %s must keep From == To", name)
	}
}

func TestPatchToDropsDefaults(t *testing.T) {
	defaults := sampleWebhook()
	entity := sampleWebhook()
	entity.Active = Set(false)

	patch := PatchTo(entity, defaults)
	assert.Equal(t, map[string]any{"active": false}, patch)
}

func TestKeyField(t *testing.T) {
	assert.Equal(t, "url", KeyField(&OrganizationWebhook{}))
	assert.Equal(t, "name", KeyField(&Repository{}))
	assert.Equal(t, "", KeyField(&OrganizationSettings{}))
}
