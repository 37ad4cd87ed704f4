package operations

import (
	"context"
	"fmt"
)

// Show renders the expected organization from the local declaration.
func Show(ctx context.Context, o *OrgContext) error {
	org, _, err := o.LoadExpected(ctx)
	if err != nil {
		return err
	}
	return printYAML(o.Out, org.ToModelMap(false))
}

// ShowLive renders the current live state of the organization.
func ShowLive(ctx context.Context, o *OrgContext, noWebUI bool) error {
	org, err := o.LoadCurrent(ctx, noWebUI, nil)
	if err != nil {
		return err
	}
	return printYAML(o.Out, org.ToModelMap(false))
}

// ShowDefault renders the defaults produced by the pinned base template.
func ShowDefault(ctx context.Context, o *OrgContext) error {
	snippet := fmt.Sprintf(
		"local orgs = import 'otterdog-functions.libsonnet';\norgs.newOrg('%s', '%s')\n",
		o.Org.Name, o.Org.GitHubID)
	tree, err := o.Evaluator.EvaluateSnippet(ctx, snippet, o.Template.Repo, o.Template.Ref)
	if err != nil {
		return err
	}
	return printYAML(o.Out, tree)
}
