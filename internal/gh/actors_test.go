package gh

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points the full client stack at a local test server. The
// enterprise base URL prefixes every REST route with /api/v3.
func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{Token: "test-token", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return client
}

func actorsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/orgs/acme/teams/platform", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 42, "slug": "platform"}`)
	})
	mux.HandleFunc("GET /api/v3/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 7, "login": "octocat"}`)
	})
	mux.HandleFunc("GET /api/v3/apps/ci-app", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 99, "slug": "ci-app"}`)
	})
	mux.HandleFunc("GET /api/v3/orgs/acme/teams", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 42, "slug": "platform"}]`)
	})
	mux.HandleFunc("GET /api/v3/orgs/acme/installations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count": 1, "installations": [{"id": 1, "app_id": 99, "app_slug": "ci-app"}]}`)
	})
	return mux
}

func TestResolveBypassActors(t *testing.T) {
	client := newTestClient(t, actorsMux())

	actors := client.ResolveBypassActors(context.Background(), "acme", []string{
		"#OrganizationAdmin",
		"#Maintain:pull_request",
		"@acme/platform",
		"ci-app",
		"@octocat", // users cannot bypass rulesets, skipped
		"#Unknown-Role",
	})
	require.Len(t, actors, 4)

	assert.Equal(t, int64(1), actors[0].GetActorID())
	assert.Equal(t, "OrganizationAdmin", string(*actors[0].ActorType))
	assert.Equal(t, "always", string(*actors[0].BypassMode))

	assert.Equal(t, int64(2), actors[1].GetActorID())
	assert.Equal(t, "RepositoryRole", string(*actors[1].ActorType))
	assert.Equal(t, "pull_request", string(*actors[1].BypassMode))

	assert.Equal(t, int64(42), actors[2].GetActorID())
	assert.Equal(t, "Team", string(*actors[2].ActorType))

	assert.Equal(t, int64(99), actors[3].GetActorID())
	assert.Equal(t, "Integration", string(*actors[3].ActorType))
}

func TestBypassActorTokensRoundTrip(t *testing.T) {
	client := newTestClient(t, actorsMux())
	ctx := context.Background()

	in := []string{"#OrganizationAdmin", "#Maintain:pull_request", "@acme/platform", "ci-app"}
	actors := client.ResolveBypassActors(ctx, "acme", in)
	require.Len(t, actors, len(in))

	out := client.BypassActorTokens(ctx, "acme", actors)
	assert.Equal(t, in, out)
}

func TestResolveEnvReviewers(t *testing.T) {
	client := newTestClient(t, actorsMux())

	reviewers := client.ResolveEnvReviewers(context.Background(), "acme", []string{
		"@octocat",
		"@acme/platform",
		"ci-app", // apps cannot review deployments, skipped
	})
	require.Len(t, reviewers, 2)

	assert.Equal(t, "User", reviewers[0].GetType())
	assert.Equal(t, int64(7), reviewers[0].GetID())
	assert.Equal(t, "Team", reviewers[1].GetType())
	assert.Equal(t, int64(42), reviewers[1].GetID())
}

func TestResolveActorNodeIDRejectsRoles(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	_, err := client.resolveActorNodeID(context.Background(), "acme", "#Maintain")
	require.Error(t, err)
}

func TestSplitBypassMode(t *testing.T) {
	for _, tc := range []struct {
		token, name, mode string
	}{
		{"ci-app", "ci-app", "always"},
		{"ci-app:pull_request", "ci-app", "pull_request"},
		{"@acme/platform:always", "@acme/platform", "always"},
		{"#Maintain:pull_request", "#Maintain", "pull_request"},
	} {
		name, mode := splitBypassMode(tc.token)
		assert.Equal(t, tc.name, name, tc.token)
		assert.Equal(t, tc.mode, mode, tc.token)
	}
}
