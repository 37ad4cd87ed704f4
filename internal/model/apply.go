package model

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ApplyOptions tune patch execution.
type ApplyOptions struct {
	// DeleteResources executes REMOVE patches; without it they are
	// counted but no live resource is destroyed.
	DeleteResources bool
	// ContinueOnError keeps applying subsequent patches after a terminal
	// failure instead of aborting the organization.
	ContinueOnError bool
}

// ApplyResult aggregates the per-organization outcome.
type ApplyResult struct {
	Additions int
	Changes   int
	Deletions int
	Failures  int

	// SkippedDeletions counts REMOVE patches held back because
	// DeleteResources was not set.
	SkippedDeletions int
}

func (r ApplyResult) String() string {
	s := fmt.Sprintf("%d addition(s), %d change(s), %d deletion(s), %d failure(s)",
		r.Additions, r.Changes, r.Deletions, r.Failures)
	if r.SkippedDeletions > 0 {
		s += fmt.Sprintf(", %d resource(s) would be deleted", r.SkippedDeletions)
	}
	return s
}

// ApplyPatches executes the patch sequence in order. Cancellation is
// honoured between patches; a patch in flight runs to completion so
// GitHub is not left with partial cross-call state.
func ApplyPatches(ctx context.Context, provider Provider, patches []*LivePatch, opts ApplyOptions) (ApplyResult, error) {
	var result ApplyResult
	for _, patch := range patches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if patch.Kind == PatchRemove && !opts.DeleteResources {
			logrus.Infof("skipping deletion of %s (pass --delete-resources to execute)", patch.Resource)
			result.SkippedDeletions++
			continue
		}

		logrus.Debugf("applying %s", patch)
		if err := patch.Apply(ctx, provider); err != nil {
			result.Failures++
			logrus.Errorf("failed to apply patch for %s: %v", patch.Resource, err)
			if opts.ContinueOnError {
				continue
			}
			return result, fmt.Errorf("applying patch for %s: %w", patch.Resource, err)
		}
		switch patch.Kind {
		case PatchAdd:
			result.Additions++
		case PatchChange:
			result.Changes++
		case PatchRemove:
			result.Deletions++
		}
	}
	return result, nil
}
