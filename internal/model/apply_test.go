package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPatch(kind PatchKind, resource string, applied *[]string, err error) *LivePatch {
	return &LivePatch{
		Kind:     kind,
		Resource: resource,
		Apply: func(ctx context.Context, provider Provider) error {
			if err != nil {
				return err
			}
			*applied = append(*applied, resource)
			return nil
		},
	}
}

func TestApplyPatchesCounts(t *testing.T) {
	var applied []string
	patches := []*LivePatch{
		stubPatch(PatchAdd, "a", &applied, nil),
		stubPatch(PatchChange, "b", &applied, nil),
		stubPatch(PatchRemove, "c", &applied, nil),
	}

	result, err := ApplyPatches(context.Background(), nil, patches,
		ApplyOptions{DeleteResources: true})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Additions: 1, Changes: 1, Deletions: 1}, result)
	assert.Equal(t, []string{"a", "b", "c"}, applied)
}

func TestApplyPatchesGatesDeletions(t *testing.T) {
	var applied []string
	patches := []*LivePatch{
		stubPatch(PatchRemove, "doomed", &applied, nil),
		stubPatch(PatchAdd, "kept", &applied, nil),
	}

	result, err := ApplyPatches(context.Background(), nil, patches, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, applied, "removal must not execute without the flag")
	assert.Equal(t, 1, result.SkippedDeletions)
	assert.Equal(t, 0, result.Deletions)
}

func TestApplyPatchesStopsOnFailure(t *testing.T) {
	var applied []string
	boom := errors.New("boom")
	patches := []*LivePatch{
		stubPatch(PatchAdd, "first", &applied, nil),
		stubPatch(PatchAdd, "broken", &applied, boom),
		stubPatch(PatchAdd, "never", &applied, nil),
	}

	result, err := ApplyPatches(context.Background(), nil, patches, ApplyOptions{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, applied)
	assert.Equal(t, 1, result.Failures)
}

func TestApplyPatchesContinueOnError(t *testing.T) {
	var applied []string
	patches := []*LivePatch{
		stubPatch(PatchAdd, "broken", &applied, errors.New("boom")),
		stubPatch(PatchAdd, "second", &applied, nil),
	}

	result, err := ApplyPatches(context.Background(), nil, patches,
		ApplyOptions{ContinueOnError: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, applied)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, 1, result.Additions)
}

func TestApplyPatchesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var applied []string
	patches := []*LivePatch{
		{
			Kind:     PatchAdd,
			Resource: "first",
			Apply: func(ctx context.Context, provider Provider) error {
				applied = append(applied, "first")
				cancel()
				return nil
			},
		},
		stubPatch(PatchAdd, "second", &applied, nil),
	}

	result, err := ApplyPatches(ctx, nil, patches, ApplyOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, applied, "cancellation takes effect between patches")
	assert.Equal(t, 1, result.Additions)
}

func TestApplyResultString(t *testing.T) {
	r := ApplyResult{Additions: 2, Changes: 1, SkippedDeletions: 3}
	assert.Equal(t,
		"2 addition(s), 1 change(s), 0 deletion(s), 0 failure(s), 3 resource(s) would be deleted",
		r.String())
}
