package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueStates(t *testing.T) {
	unset := Unset[string]()
	assert.True(t, unset.IsUnset())
	assert.False(t, unset.IsSet())
	assert.Equal(t, "", unset.Get())
	assert.Equal(t, "fallback", unset.OrElse("fallback"))

	null := Null[int]()
	assert.True(t, null.IsNull())
	assert.False(t, null.IsSet())
	assert.Equal(t, 42, null.OrElse(42))

	set := Set(7)
	assert.True(t, set.IsSet())
	assert.Equal(t, 7, set.Get())
	assert.Equal(t, 7, set.OrElse(42))
}

func TestSetFieldConvertsJSONTypes(t *testing.T) {
	w := &OrganizationWebhook{}

	// JSON numbers arrive as float64.
	require.NoError(t, SetField(w, "id", float64(123)))
	assert.Equal(t, int64(123), w.ID.Get())

	// JSON lists arrive as []any.
	require.NoError(t, SetField(w, "events", []any{"push", "pull_request"}))
	assert.Equal(t, []string{"push", "pull_request"}, w.Events.Get())

	require.Error(t, SetField(w, "events", []any{"push", 3}))
	require.Error(t, SetField(w, "active", "not-a-bool"))
}

func TestSetFieldNull(t *testing.T) {
	w := &OrganizationWebhook{}
	require.NoError(t, SetField(w, "content_type", nil))
	assert.True(t, w.ContentType.IsNull())
}

func TestIsDummySecret(t *testing.T) {
	assert.True(t, IsDummySecret("********"))
	assert.True(t, IsDummySecret("*"))
	assert.False(t, IsDummySecret(""))
	assert.False(t, IsDummySecret("s3cr3t"))
	assert.False(t, IsDummySecret("**x**"))
}

func TestEqualValuesSetSemantics(t *testing.T) {
	a := []string{"push", "pull_request"}
	b := []string{"pull_request", "push"}

	assert.True(t, equalValues(a, b, true))
	assert.False(t, equalValues(a, b, false))
	assert.False(t, equalValues(a, []string{"push"}, true))
	assert.True(t, equalValues("x", "x", false))
	assert.False(t, equalValues("x", "y", false))
}
