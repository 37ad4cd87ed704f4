// Package config reads the top-level otterdog.json file that names the
// managed organizations and how to authenticate against them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigRepo   = ".eclipsefdn"
	defaultBranch       = "main"
	defaultConfigDir    = "orgs"
	defaultConfigFile   = "otterdog.json"
	defaultBaseTemplate = "https://github.com/eclipse-csi/otterdog#examples/template/otterdog-defaults.libsonnet@main"
)

// Config is the top-level configuration.
type Config struct {
	Defaults      Defaults       `json:"defaults"`
	Organizations []Organization `json:"organizations"`

	// path the config was loaded from; relative directories resolve
	// against it.
	path string
}

type Defaults struct {
	Jsonnet JsonnetDefaults `json:"jsonnet"`
	GitHub  GitHubDefaults  `json:"github"`
}

type JsonnetDefaults struct {
	// BaseTemplate pins the shared template in
	// "<repo-url>#<file>@<ref>" notation.
	BaseTemplate string `json:"base_template"`
	ConfigDir    string `json:"config_dir"`
}

type GitHubDefaults struct {
	// ConfigRepo is the repository inside each organization that holds
	// its declarative configuration.
	ConfigRepo    string `json:"config_repo"`
	DefaultBranch string `json:"default_branch"`
}

// Organization is one managed organization entry.
type Organization struct {
	Name        string            `json:"name"`
	GitHubID    string            `json:"github_id"`
	Credentials CredentialsConfig `json:"credentials"`
}

// CredentialsConfig selects a credential provider plus its
// provider-specific settings. Values may be secret references of the
// form "provider:key".
type CredentialsConfig struct {
	Provider string `json:"provider"`

	// plain / pass providers
	APIToken  string `json:"api_token"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	TwoFASeed string `json:"2fa_seed"`

	// GitHub-App provider
	AppID          int64  `json:"app_id"`
	InstallationID int64  `json:"installation_id"`
	PrivateKey     string `json:"private_key"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	cfg := &Config{path: path}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Defaults.GitHub.ConfigRepo == "" {
		cfg.Defaults.GitHub.ConfigRepo = defaultConfigRepo
	}
	if cfg.Defaults.GitHub.DefaultBranch == "" {
		cfg.Defaults.GitHub.DefaultBranch = defaultBranch
	}
	if cfg.Defaults.Jsonnet.ConfigDir == "" {
		cfg.Defaults.Jsonnet.ConfigDir = defaultConfigDir
	}
	if cfg.Defaults.Jsonnet.BaseTemplate == "" {
		cfg.Defaults.Jsonnet.BaseTemplate = defaultBaseTemplate
	}

	seen := map[string]bool{}
	for _, org := range cfg.Organizations {
		if org.Name == "" {
			return nil, fmt.Errorf("%s: organization entry without a name", path)
		}
		if org.GitHubID == "" {
			return nil, fmt.Errorf("%s: organization %q has no github_id", path, org.Name)
		}
		if seen[org.Name] {
			return nil, fmt.Errorf("%s: duplicate organization %q", path, org.Name)
		}
		seen[org.Name] = true
	}
	return cfg, nil
}

// Organization looks up a managed organization by name.
func (c *Config) Organization(name string) (*Organization, error) {
	for i := range c.Organizations {
		if c.Organizations[i].Name == name {
			return &c.Organizations[i], nil
		}
	}
	return nil, fmt.Errorf("organization %q is not defined in the configuration", name)
}

// OrganizationNames returns the configured organizations in file order.
func (c *Config) OrganizationNames() []string {
	names := make([]string, 0, len(c.Organizations))
	for _, org := range c.Organizations {
		names = append(names, org.Name)
	}
	return names
}

// ConfigDir resolves the per-organization configuration directory
// relative to the top-level configuration file.
func (c *Config) ConfigDir() string {
	dir := c.Defaults.Jsonnet.ConfigDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(filepath.Dir(c.path), dir)
}

// OrgConfigFile is the on-disk declarative file of one organization.
func (c *Config) OrgConfigFile(name string) string {
	return filepath.Join(c.ConfigDir(), name+".jsonnet")
}

// TemplateRef is a parsed "<repo-url>#<file>@<ref>" base template pin.
type TemplateRef struct {
	Repo string
	File string
	Ref  string
}

func (r TemplateRef) String() string {
	return fmt.Sprintf("%s#%s@%s", r.Repo, r.File, r.Ref)
}

// ParseTemplateRef splits the base template notation. The ref defaults
// to "main" when omitted.
func ParseTemplateRef(s string) (TemplateRef, error) {
	repo, rest, ok := strings.Cut(s, "#")
	if !ok || repo == "" {
		return TemplateRef{}, fmt.Errorf("invalid base template %q: missing '#<file>'", s)
	}
	file, ref, ok := strings.Cut(rest, "@")
	if !ok || ref == "" {
		file, ref = rest, defaultBranch
	}
	if file == "" {
		return TemplateRef{}, fmt.Errorf("invalid base template %q: empty file", s)
	}
	return TemplateRef{Repo: repo, File: file, Ref: ref}, nil
}
