package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

// PlanOptions carry the diff-related flags shared by plan and apply.
type PlanOptions struct {
	NoWebUI        bool
	UpdateWebhooks bool
	UpdateSecrets  bool
	UpdateFilter   string
	RepoFilter     string
}

// Plan computes and prints the patch sequence without writing anything.
func Plan(ctx context.Context, o *OrgContext, opts PlanOptions) ([]*model.LivePatch, error) {
	expected, unknown, err := o.LoadExpected(ctx)
	if err != nil {
		return nil, err
	}
	if errs := o.validateExpected(expected, unknown); errs > 0 {
		return nil, fmt.Errorf("configuration of %s has %d validation error(s)", o.Org.Name, errs)
	}

	pctx, err := o.newPatchContext(opts)
	if err != nil {
		return nil, err
	}
	current, err := o.LoadCurrent(ctx, opts.NoWebUI, pctx.RepoFilter)
	if err != nil {
		return nil, err
	}

	patches := model.GenerateLivePatches(expected, current, pctx)
	printPatches(o, patches)
	return patches, nil
}

// LocalPlan diffs the declaration against a second local declaration
// with the given suffix instead of the live state.
func LocalPlan(ctx context.Context, o *OrgContext, suffix string, opts PlanOptions) ([]*model.LivePatch, error) {
	expected, unknown, err := o.LoadExpected(ctx)
	if err != nil {
		return nil, err
	}
	if errs := o.validateExpected(expected, unknown); errs > 0 {
		return nil, fmt.Errorf("configuration of %s has %d validation error(s)", o.Org.Name, errs)
	}

	baseFile := o.OrgConfigFile()
	otherFile := strings.TrimSuffix(baseFile, ".jsonnet") + suffix + ".jsonnet"
	other, _, err := o.loadExpectedFile(ctx, otherFile)
	if err != nil {
		return nil, err
	}

	pctx, err := o.newPatchContext(opts)
	if err != nil {
		return nil, err
	}
	patches := model.GenerateLivePatches(expected, other, pctx)
	printPatches(o, patches)
	return patches, nil
}

func (o *OrgContext) newPatchContext(opts PlanOptions) (*model.PatchContext, error) {
	updateFilter, err := compileFilter(opts.UpdateFilter)
	if err != nil {
		return nil, err
	}
	repoFilter, err := compileFilter(opts.RepoFilter)
	if err != nil {
		return nil, err
	}
	return &model.PatchContext{
		OrgID:          o.Org.GitHubID,
		UpdateWebhooks: opts.UpdateWebhooks,
		UpdateSecrets:  opts.UpdateSecrets,
		UpdateFilter:   updateFilter,
		RepoFilter:     repoFilter,
		Resolver:       o.Resolver,
	}, nil
}

func printPatches(o *OrgContext, patches []*model.LivePatch) {
	if len(patches) == 0 {
		fmt.Fprintf(o.Out, "organization %s is up to date\n", o.Org.Name)
		return
	}
	var additions, changes, deletions int
	for _, patch := range patches {
		fmt.Fprintln(o.Out, patch)
		switch patch.Kind {
		case model.PatchAdd:
			additions++
		case model.PatchChange:
			changes++
		case model.PatchRemove:
			deletions++
		}
	}
	fmt.Fprintf(o.Out, "\nplan: %d to add, %d to change, %d to delete\n",
		additions, changes, deletions)
}
