package gh

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v74/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

const maxPerPage = 100

// Config holds everything needed to construct a provider client for one
// organization.
type Config struct {
	Token      string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration

	// Web-UI credentials; empty when --no-web-ui is in effect.
	Username string
	Password string
	TOTPSeed string
}

// Client is the provider facade: a REST client, a GraphQL client and an
// optional web-UI client sharing one authenticated HTTP stack. It is
// shared read-only across tasks after construction.
type Client struct {
	rest *github.Client
	gql  *githubv4.Client
	web  *WebClient
}

// NewClient builds the facade. The HTTP stack layers, innermost first:
// oauth2 token injection, retry with backoff, secondary-rate-limit
// waiting.
func NewClient(cfg Config) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	base := oauth2.NewClient(context.Background(), ts).Transport

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}
	var rt http.RoundTripper = newRetryTransport(base, maxRetries, retryDelay)
	httpClient := github_ratelimit.NewClient(rt)

	rest, err := newRESTClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	gql, err := newGraphQLClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{rest: rest, gql: gql}
	if cfg.Username != "" {
		c.web = NewWebClient(cfg.Username, cfg.Password, cfg.TOTPSeed)
	}
	return c, nil
}

func newRESTClient(httpClient *http.Client, baseURL string) (*github.Client, error) {
	if baseURL == "" || baseURL == "https://api.github.com/" {
		return github.NewClient(httpClient), nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return github.NewClient(httpClient).WithEnterpriseURLs(u.String(), "")
}

func newGraphQLClient(httpClient *http.Client, baseURL string) (*githubv4.Client, error) {
	if baseURL == "" || baseURL == "https://api.github.com/" {
		return githubv4.NewClient(httpClient), nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, "api/graphql")
	return githubv4.NewEnterpriseClient(u.String(), httpClient), nil
}

// Rest exposes the underlying go-github client for operations not covered
// by the facade helpers.
func (c *Client) Rest() *github.Client {
	return c.rest
}

// Web returns the web-UI client, or nil when web credentials were not
// configured.
func (c *Client) Web() *WebClient {
	return c.web
}

// HasWeb reports whether web-UI operations are available.
func (c *Client) HasWeb() bool {
	return c.web != nil
}
