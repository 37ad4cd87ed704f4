package operations

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/eclipse-csi/otterdog-sub000/internal/model"
)

// ApplyOptions extend the plan options with execution knobs.
type ApplyOptions struct {
	PlanOptions

	// Force skips the interactive confirmation.
	Force bool
	// DeleteResources executes REMOVE patches.
	DeleteResources bool
	// ContinueOnError keeps going after a failed patch.
	ContinueOnError bool
}

// Apply plans and then executes the patch sequence against the
// organization.
func Apply(ctx context.Context, o *OrgContext, opts ApplyOptions) (model.ApplyResult, error) {
	patches, err := Plan(ctx, o, opts.PlanOptions)
	if err != nil {
		return model.ApplyResult{}, err
	}
	if len(patches) == 0 {
		return model.ApplyResult{}, nil
	}

	if !opts.Force {
		ok, err := confirm(o, fmt.Sprintf("apply these %d patch(es) to %s?", len(patches), o.Org.GitHubID))
		if err != nil {
			return model.ApplyResult{}, err
		}
		if !ok {
			fmt.Fprintln(o.Out, "aborted")
			return model.ApplyResult{}, nil
		}
	}

	result, err := model.ApplyPatches(ctx, o.Client, patches, model.ApplyOptions{
		DeleteResources: opts.DeleteResources,
		ContinueOnError: opts.ContinueOnError,
	})
	fmt.Fprintf(o.Out, "done: %s\n", result)
	if err != nil {
		return result, err
	}
	if result.Failures > 0 {
		return result, fmt.Errorf("%d patch(es) failed", result.Failures)
	}
	return result, nil
}

func confirm(o *OrgContext, prompt string) (bool, error) {
	fmt.Fprintf(o.Out, "%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
