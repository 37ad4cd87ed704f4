package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

// ImportOptions control the import operation.
type ImportOptions struct {
	NoWebUI bool
	// Force overwrites an existing declaration file.
	Force bool
}

// Import reads the live organization state and writes it as a jsonnet
// declaration based on the pinned template, replacing fields that match
// the template defaults with the template invocation itself.
func Import(ctx context.Context, o *OrgContext, opts ImportOptions) error {
	target := o.OrgConfigFile()
	if !opts.Force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("declaration %s already exists, pass --force to overwrite", target)
		}
	}

	org, err := o.LoadCurrent(ctx, opts.NoWebUI, nil)
	if err != nil {
		return err
	}

	defaults, err := o.loadTemplateDefaults(ctx)
	if err != nil {
		logrus.Warnf("failed to evaluate template defaults, rendering full state: %v", err)
		defaults = nil
	}

	rendered := RenderOrg(org, o.Org.Name, defaults)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	fmt.Fprintf(o.Out, "organization %s imported to %s\n", o.Org.Name, target)
	return nil
}

// loadTemplateDefaults evaluates the base template once to learn the
// default values it assigns to settings and repositories.
func (o *OrgContext) loadTemplateDefaults(ctx context.Context) (*templateDefaults, error) {
	snippet := fmt.Sprintf(
		"local orgs = import 'otterdog-functions.libsonnet';\n"+
			"{\n"+
			"  settings: orgs.newOrg('%s', '%s').settings,\n"+
			"  repo: orgs.newRepo('.defaults'),\n"+
			"}\n",
		o.Org.Name, o.Org.GitHubID)
	tree, err := o.Evaluator.EvaluateSnippet(ctx, snippet, o.Template.Repo, o.Template.Ref)
	if err != nil {
		return nil, err
	}

	defaults := &templateDefaults{}
	if raw, ok := tree["settings"].(map[string]any); ok {
		delete(raw, "workflows")
		settings := &model.OrganizationSettings{}
		if _, err := model.FromModelMap(settings, raw); err != nil {
			return nil, fmt.Errorf("failed to decode template settings: %w", err)
		}
		defaults.settings = settings
	}
	if raw, ok := tree["repo"].(map[string]any); ok {
		for _, child := range []string{
			"workflow_settings", "branch_protection_rules", "rulesets",
			"webhooks", "secrets", "variables", "environments", "team_permissions",
		} {
			delete(raw, child)
		}
		repo := &model.Repository{}
		if _, err := model.FromModelMap(repo, raw); err != nil {
			return nil, fmt.Errorf("failed to decode template repository: %w", err)
		}
		defaults.repository = repo
	}
	return defaults, nil
}
