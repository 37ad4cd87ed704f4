package gh

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const settingsFormHTML = `
<html><body>
  <form action="/organizations/acme/settings/update">
    <input type="hidden" name="authenticity_token" value="csrf-123">
    <input type="text" name="organization[name]" value="ACME Corp">
    <input type="checkbox" name="organization[members_forum]" checked>
    <input type="checkbox" name="organization[readers_forum]">
    <select name="organization[default_branch]">
      <option value="master">master</option>
      <option value="main" selected>main</option>
    </select>
    <select name="organization[visibility]">
      <option value="public">public</option>
      <option value="private">private</option>
    </select>
  </form>
</body></html>`

func parseTestHTML(t *testing.T) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(settingsFormHTML))
	require.NoError(t, err)
	return doc
}

func TestFindInputValue(t *testing.T) {
	doc := parseTestHTML(t)

	assert.Equal(t, "csrf-123", findInputValue(doc, "authenticity_token"))
	assert.Equal(t, "ACME Corp", findInputValue(doc, "organization[name]"))
	assert.Equal(t, "", findInputValue(doc, "organization[missing]"))
}

func TestFindInputValueSelect(t *testing.T) {
	doc := parseTestHTML(t)

	assert.Equal(t, "main", findInputValue(doc, "organization[default_branch]"),
		"the selected option wins")
	assert.Equal(t, "public", findInputValue(doc, "organization[visibility]"),
		"without an explicit selection the first option is the value")
}

func TestFindCheckboxState(t *testing.T) {
	doc := parseTestHTML(t)

	assert.True(t, findCheckboxState(doc, "organization[members_forum]"))
	assert.False(t, findCheckboxState(doc, "organization[readers_forum]"))
	assert.False(t, findCheckboxState(doc, "organization[missing]"))
}
