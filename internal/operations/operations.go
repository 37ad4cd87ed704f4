// Package operations implements the engine's top-level operations: the
// plan/apply lifecycle, import, configuration transfer and the smaller
// administrative commands the CLI exposes.
package operations

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/eclipse-csi/otterdog-sub000/internal/config"
	"github.com/eclipse-csi/otterdog-sub000/internal/credentials"
	"github.com/eclipse-csi/otterdog-sub000/internal/gh"
	"github.com/eclipse-csi/otterdog-sub000/internal/jsonnet"
	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

// OrgContext bundles everything an operation needs for one organization.
type OrgContext struct {
	Config    *config.Config
	Org       *config.Organization
	Client    *gh.Client
	Evaluator *jsonnet.Evaluator
	Resolver  *credentials.Resolver
	Template  config.TemplateRef

	Out io.Writer
}

// ContextOptions tune context construction.
type ContextOptions struct {
	// NoWebUI drops the web-UI credentials even when configured.
	NoWebUI bool
	Out     io.Writer
}

// NewOrgContext resolves credentials and constructs the provider client
// for the named organization.
func NewOrgContext(ctx context.Context, cfg *config.Config, orgName string, opts ContextOptions) (*OrgContext, error) {
	org, err := cfg.Organization(orgName)
	if err != nil {
		return nil, err
	}
	template, err := config.ParseTemplateRef(cfg.Defaults.Jsonnet.BaseTemplate)
	if err != nil {
		return nil, err
	}

	resolver := credentials.NewResolver()
	creds, err := org.ResolveCredentials(ctx, resolver)
	if err != nil {
		return nil, err
	}

	clientCfg := gh.Config{Token: creds.Token}
	if !opts.NoWebUI && creds.HasWebCredentials() {
		clientCfg.Username = creds.Username
		clientCfg.Password = creds.Password
		clientCfg.TOTPSeed = creds.TOTPSeed
	}
	client, err := gh.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &OrgContext{
		Config:    cfg,
		Org:       org,
		Client:    client,
		Evaluator: jsonnet.New(creds.Token),
		Resolver:  resolver,
		Template:  template,
		Out:       out,
	}, nil
}

// OrgConfigFile is the local declarative file of this organization.
func (o *OrgContext) OrgConfigFile() string {
	return o.Config.OrgConfigFile(o.Org.Name)
}

// LoadExpected evaluates the local declarative file into the expected
// organization, returning any unknown keys for the validator.
func (o *OrgContext) LoadExpected(ctx context.Context) (*model.Organization, []string, error) {
	return o.loadExpectedFile(ctx, o.OrgConfigFile())
}

func (o *OrgContext) loadExpectedFile(ctx context.Context, file string) (*model.Organization, []string, error) {
	tree, err := o.Evaluator.EvaluateOrg(ctx, file, o.Template.Repo, o.Template.Ref)
	if err != nil {
		return nil, nil, err
	}
	org, unknown, err := model.FromModelData(tree)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", file, err)
	}
	if org.GitHubID == "" {
		org.GitHubID = o.Org.GitHubID
	}
	if org.GitHubID != o.Org.GitHubID {
		return nil, nil, fmt.Errorf("%s declares github_id %q, configuration expects %q",
			file, org.GitHubID, o.Org.GitHubID)
	}
	return org, unknown, nil
}

// LoadCurrent reads the live organization state.
func (o *OrgContext) LoadCurrent(ctx context.Context, noWebUI bool, repoFilter *regexp.Regexp) (*model.Organization, error) {
	logrus.WithField("org", o.Org.GitHubID).Info("reading current organization state")
	return model.LoadFromProvider(ctx, o.Client, o.Org.GitHubID, model.LoadOptions{
		NoWebUI:    noWebUI,
		RepoFilter: repoFilter,
	})
}

// validateExpected runs the validator and prints findings. It returns
// the number of errors.
func (o *OrgContext) validateExpected(org *model.Organization, unknown []string) int {
	vc := &model.ValidationContext{}
	org.Validate(vc, unknown)
	for _, finding := range vc.Findings() {
		switch finding.Severity {
		case model.SeverityError:
			logrus.Error(finding.Message)
		case model.SeverityWarning:
			logrus.Warn(finding.Message)
		default:
			logrus.Debug(finding.Message)
		}
	}
	return vc.ErrorCount()
}

// printYAML renders a model tree for human consumption.
func printYAML(out io.Writer, tree map[string]any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(tree)
}

// compileFilter compiles an optional anchored filter expression.
func compileFilter(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	return re, nil
}
