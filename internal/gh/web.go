package gh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/eclipse-csi/otterdog-sub000/internal/credentials"
)

const webBaseURL = "https://github.com"

// webSetting describes one organization setting that GitHub exposes only
// through a web form, not the public API.
type webSetting struct {
	// page is the settings page path relative to /organizations/<org>/.
	page string
	// input is the form field name carrying the value.
	input string
	// checkbox marks boolean settings rendered as checkboxes.
	checkbox bool
}

var webOrgSettings = map[string]webSetting{
	"discussion_source_repository":    {page: "settings/discussions", input: "discussion_source_repository"},
	"has_discussions":                 {page: "settings/discussions", input: "has_discussions", checkbox: true},
	"members_can_create_public_pages": {page: "settings/pages", input: "members_can_create_public_pages", checkbox: true},
	"default_workflow_permissions":    {page: "settings/actions", input: "workflow_permissions"},
	"actions_can_approve_pull_request_reviews": {page: "settings/actions", input: "can_approve_pull_request_reviews", checkbox: true},
}

// WebClient drives an authenticated browser session against screens that
// have no API counterpart. Sessions are not shared: callers log in, do
// their work and log out again.
type WebClient struct {
	mu       sync.Mutex
	http     *http.Client
	username string
	password string
	totpSeed string
	loggedIn bool
}

// NewWebClient prepares a web-UI session. Nothing is sent until Login.
func NewWebClient(username, password, totpSeed string) *WebClient {
	jar, _ := cookiejar.New(nil)
	return &WebClient{
		http: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
		username: username,
		password: password,
		totpSeed: totpSeed,
	}
}

// Login performs the login form flow, answering the two-factor prompt
// with a freshly computed TOTP code when GitHub asks for one.
func (w *WebClient) Login(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loggedIn {
		return nil
	}

	doc, _, err := w.get(ctx, webBaseURL+"/login")
	if err != nil {
		return fmt.Errorf("loading login page: %w", err)
	}
	token := findInputValue(doc, "authenticity_token")
	if token == "" {
		return fmt.Errorf("login page carries no authenticity token")
	}

	form := url.Values{
		"login":               {w.username},
		"password":            {w.password},
		"authenticity_token":  {token},
		"webauthn-support":    {"unsupported"},
		"return_to":           {"/login"},
		"allow_signup":        {""},
		"commit":              {"Sign in"},
		"required_field_b649": {""},
	}
	doc, finalURL, err := w.postForm(ctx, webBaseURL+"/session", form)
	if err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}

	if strings.Contains(finalURL, "two-factor") {
		if w.totpSeed == "" {
			return fmt.Errorf("two-factor authentication required but no TOTP seed configured")
		}
		code, err := credentials.TOTPCode(w.totpSeed, time.Now())
		if err != nil {
			return fmt.Errorf("computing TOTP code: %w", err)
		}
		token = findInputValue(doc, "authenticity_token")
		form = url.Values{
			"otp":                {code},
			"authenticity_token": {token},
		}
		if _, finalURL, err = w.postForm(ctx, webBaseURL+"/sessions/two-factor", form); err != nil {
			return fmt.Errorf("submitting TOTP code: %w", err)
		}
		if strings.Contains(finalURL, "two-factor") {
			return fmt.Errorf("two-factor challenge was not accepted")
		}
	} else if strings.Contains(finalURL, "/login") {
		return fmt.Errorf("login failed for user %s", w.username)
	}

	w.loggedIn = true
	logrus.Debugf("web session established for %s", w.username)
	return nil
}

// Logout tears the session down. Errors are logged, not returned; the
// cookie jar is discarded either way.
func (w *WebClient) Logout(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loggedIn {
		return
	}
	doc, _, err := w.get(ctx, webBaseURL+"/logout")
	if err == nil {
		if token := findInputValue(doc, "authenticity_token"); token != "" {
			form := url.Values{"authenticity_token": {token}}
			_, _, err = w.postForm(ctx, webBaseURL+"/logout", form)
		}
	}
	if err != nil {
		logrus.Warnf("web logout failed: %v", err)
	}
	jar, _ := cookiejar.New(nil)
	w.http.Jar = jar
	w.loggedIn = false
}

// GetOrgSettings scrapes the requested web-only settings from their
// settings pages. Unknown keys are skipped with a warning.
func (w *WebClient) GetOrgSettings(ctx context.Context, org string, keys []string) (map[string]any, error) {
	pages := map[string]*html.Node{}
	settings := map[string]any{}
	for _, key := range keys {
		def, ok := webOrgSettings[key]
		if !ok {
			logrus.Warnf("unknown web setting %q", key)
			continue
		}
		doc, ok := pages[def.page]
		if !ok {
			var err error
			doc, _, err = w.get(ctx, orgPageURL(org, def.page))
			if err != nil {
				return nil, fmt.Errorf("loading %s for %s: %w", def.page, org, err)
			}
			pages[def.page] = doc
		}
		if def.checkbox {
			settings[key] = findCheckboxState(doc, def.input)
		} else {
			settings[key] = findInputValue(doc, def.input)
		}
	}
	return settings, nil
}

// UpdateOrgSettings posts changed web-only settings back to their forms.
// Settings sharing a page are submitted together.
func (w *WebClient) UpdateOrgSettings(ctx context.Context, org string, settings map[string]any) error {
	byPage := map[string]map[string]any{}
	for key, value := range settings {
		def, ok := webOrgSettings[key]
		if !ok {
			logrus.Warnf("unknown web setting %q", key)
			continue
		}
		if byPage[def.page] == nil {
			byPage[def.page] = map[string]any{}
		}
		byPage[def.page][key] = value
	}

	for page, values := range byPage {
		doc, _, err := w.get(ctx, orgPageURL(org, page))
		if err != nil {
			return fmt.Errorf("loading %s for %s: %w", page, org, err)
		}
		token := findInputValue(doc, "authenticity_token")
		form := url.Values{
			"_method":            {"put"},
			"authenticity_token": {token},
		}
		for key, value := range values {
			def := webOrgSettings[key]
			switch v := value.(type) {
			case bool:
				if v {
					form.Set(def.input, "1")
				} else {
					form.Set(def.input, "0")
				}
			default:
				form.Set(def.input, fmt.Sprintf("%v", v))
			}
		}
		if _, _, err := w.postForm(ctx, orgPageURL(org, page), form); err != nil {
			return fmt.Errorf("updating %s for %s: %w", page, org, err)
		}
		logrus.Debugf("updated web settings on %s for %s", page, org)
	}
	return nil
}

// InstallApp installs a GitHub App into the organization via the app's
// public installation flow.
func (w *WebClient) InstallApp(ctx context.Context, org, appSlug string) error {
	target := fmt.Sprintf("%s/apps/%s/installations/new/permissions?target_id=%s", webBaseURL, appSlug, url.QueryEscape(org))
	doc, _, err := w.get(ctx, target)
	if err != nil {
		return fmt.Errorf("loading install screen for app %s: %w", appSlug, err)
	}
	token := findInputValue(doc, "authenticity_token")
	if token == "" {
		return fmt.Errorf("install screen for app %s carries no authenticity token", appSlug)
	}
	form := url.Values{
		"authenticity_token": {token},
		"install_target":     {"all"},
	}
	if _, _, err := w.postForm(ctx, fmt.Sprintf("%s/apps/%s/installations", webBaseURL, appSlug), form); err != nil {
		return fmt.Errorf("installing app %s into %s: %w", appSlug, org, err)
	}
	return nil
}

// UninstallApp removes an installed GitHub App from the organization.
func (w *WebClient) UninstallApp(ctx context.Context, org string, installationID int64) error {
	page := orgPageURL(org, "settings/installations")
	doc, _, err := w.get(ctx, fmt.Sprintf("%s/%d", page, installationID))
	if err != nil {
		return fmt.Errorf("loading installation %d of %s: %w", installationID, org, err)
	}
	token := findInputValue(doc, "authenticity_token")
	form := url.Values{
		"_method":            {"delete"},
		"authenticity_token": {token},
	}
	if _, _, err := w.postForm(ctx, fmt.Sprintf("%s/%d", page, installationID), form); err != nil {
		return fmt.Errorf("uninstalling installation %d from %s: %w", installationID, org, err)
	}
	return nil
}

// ReviewAppPermissionUpdate accepts a pending permission update request
// of an installed app.
func (w *WebClient) ReviewAppPermissionUpdate(ctx context.Context, org string, installationID int64) error {
	page := fmt.Sprintf("%s/%d/permissions/update", orgPageURL(org, "settings/installations"), installationID)
	doc, _, err := w.get(ctx, page)
	if err != nil {
		return fmt.Errorf("loading permission review for installation %d: %w", installationID, err)
	}
	token := findInputValue(doc, "authenticity_token")
	if token == "" {
		return fmt.Errorf("no pending permission update for installation %d", installationID)
	}
	form := url.Values{
		"authenticity_token": {token},
		"accept":             {"1"},
	}
	if _, _, err := w.postForm(ctx, page, form); err != nil {
		return fmt.Errorf("accepting permission update for installation %d: %w", installationID, err)
	}
	return nil
}

func orgPageURL(org, page string) string {
	return fmt.Sprintf("%s/organizations/%s/%s", webBaseURL, url.PathEscape(org), page)
}

func (w *WebClient) get(ctx context.Context, rawURL string) (*html.Node, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	return w.do(req)
}

func (w *WebClient) postForm(ctx context.Context, rawURL string, form url.Values) (*html.Node, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return w.do(req)
}

func (w *WebClient) do(req *http.Request) (*html.Node, string, error) {
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.Request.URL.String(), fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("parsing response of %s: %w", req.URL.Path, err)
	}
	return doc, resp.Request.URL.String(), nil
}

// findInputValue walks the document for the first input or select named
// name and returns its value.
func findInputValue(doc *html.Node, name string) string {
	var value string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				if attr(n, "name") == name {
					value = attr(n, "value")
					return true
				}
			case "select":
				if attr(n, "name") == name {
					value = selectedOption(n)
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return value
}

// findCheckboxState reports whether the checkbox named name is checked.
func findCheckboxState(doc *html.Node, name string) bool {
	var checked bool
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "input" &&
			attr(n, "type") == "checkbox" && attr(n, "name") == name {
			checked = hasAttr(n, "checked")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return checked
}

func selectedOption(sel *html.Node) string {
	var first, selected string
	for c := sel.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "option" {
			continue
		}
		if first == "" {
			first = attr(c, "value")
		}
		if hasAttr(c, "selected") {
			selected = attr(c, "value")
		}
	}
	if selected != "" {
		return selected
	}
	return first
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
