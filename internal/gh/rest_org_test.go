package gh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-github/v74/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateOrganizationSettingsBody(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/v3/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{}`)
	})
	client := newTestClient(t, mux)

	err := client.UpdateOrganizationSettings(context.Background(), "acme", &github.Organization{
		BillingEmail: github.Ptr("accounting@acme.org"),
	})
	require.NoError(t, err)

	assert.Equal(t, "accounting@acme.org", body["billing_email"])
	_, present := body["name"]
	assert.False(t, present, "unset fields stay off the wire")
}
