package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// OrganizationVariable is an org-level actions variable. Unlike secrets,
// values are plaintext and readable, so they participate in the diff.
type OrganizationVariable struct {
	Name                 Value[string]   `model:"name,key"`
	Visibility           Value[string]   `model:"visibility"`
	SelectedRepositories Value[[]string] `model:"selected_repositories,set"`
	Value                Value[string]   `model:"value"`
}

type RepositoryVariable struct {
	Name  Value[string] `model:"name,key"`
	Value Value[string] `model:"value"`
}

type EnvironmentVariable struct {
	Name  Value[string] `model:"name,key"`
	Value Value[string] `model:"value"`
}

func NewOrgVariableFromProvider(v *github.ActionsVariable, selectedRepoIDs []int64, repoNamesByID map[int64]string) *OrganizationVariable {
	out := &OrganizationVariable{
		Name:  Set(v.Name),
		Value: Set(v.Value),
	}
	if v.Visibility != nil {
		out.Visibility = Set(visibilityFromProvider(*v.Visibility))
		if *v.Visibility == "selected" {
			names := make([]string, 0, len(selectedRepoIDs))
			for _, id := range selectedRepoIDs {
				if name, ok := repoNamesByID[id]; ok {
					names = append(names, name)
				}
			}
			out.SelectedRepositories = Set(names)
		}
	}
	return out
}

func NewRepoVariableFromProvider(v *github.ActionsVariable) *RepositoryVariable {
	return &RepositoryVariable{Name: Set(v.Name), Value: Set(v.Value)}
}

func NewEnvVariableFromProvider(v *github.ActionsVariable) *EnvironmentVariable {
	return &EnvironmentVariable{Name: Set(v.Name), Value: Set(v.Value)}
}

func (v *OrganizationVariable) toProvider(repoIDsByName map[string]int64) *github.ActionsVariable {
	av := &github.ActionsVariable{
		Name:  v.Name.Get(),
		Value: v.Value.OrElse(""),
	}
	if v.Visibility.IsSet() {
		vis := visibilityToProvider(v.Visibility.Get())
		av.Visibility = &vis
		if vis == "selected" {
			var ids []int64
			for _, name := range v.SelectedRepositories.OrElse(nil) {
				if id, ok := repoIDsByName[name]; ok {
					ids = append(ids, id)
				}
			}
			av.SelectedRepositoryIDs = (*github.SelectedRepoIDs)(&ids)
		}
	}
	return av
}

func (v *OrganizationVariable) generateLivePatch(current *OrganizationVariable, orgID string, pctx *PatchContext, sink *patchSink) {
	if v.Value.IsSet() && IsDummySecret(v.Value.Get()) {
		return
	}
	changes := Difference(v, current)
	if len(changes) == 0 {
		return
	}
	expected := v
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("org_variable[%s]", v.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			ids, err := repoIDsByName(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.UpdateOrgVariable(ctx, orgID, expected.toProvider(ids))
		},
	})
}

func (v *OrganizationVariable) addPatch(orgID string, sink *patchSink) {
	if v.Value.IsSet() && IsDummySecret(v.Value.Get()) {
		return
	}
	expected := v
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("org_variable[%s]", v.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			ids, err := repoIDsByName(ctx, provider, orgID)
			if err != nil {
				return err
			}
			return provider.CreateOrgVariable(ctx, orgID, expected.toProvider(ids))
		},
	})
}

func (v *OrganizationVariable) removePatch(orgID string, sink *patchSink) {
	name := v.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("org_variable[%s]", name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteOrgVariable(ctx, orgID, name)
		},
	})
}

func (v *RepositoryVariable) toProvider() *github.ActionsVariable {
	return &github.ActionsVariable{Name: v.Name.Get(), Value: v.Value.OrElse("")}
}

func (v *RepositoryVariable) generateLivePatch(current *RepositoryVariable, orgID, repoName string, sink *patchSink) {
	if v.Value.IsSet() && IsDummySecret(v.Value.Get()) {
		return
	}
	changes := Difference(v, current)
	if len(changes) == 0 {
		return
	}
	expected := v
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/variable[%s]", repoName, v.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.UpdateRepoVariable(ctx, orgID, repoName, expected.toProvider())
		},
	})
}

func (v *RepositoryVariable) addPatch(orgID, repoName string, sink *patchSink) {
	if v.Value.IsSet() && IsDummySecret(v.Value.Get()) {
		return
	}
	expected := v
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/variable[%s]", repoName, v.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.CreateRepoVariable(ctx, orgID, repoName, expected.toProvider())
		},
	})
}

func (v *RepositoryVariable) removePatch(orgID, repoName string, sink *patchSink) {
	name := v.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/variable[%s]", repoName, name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteRepoVariable(ctx, orgID, repoName, name)
		},
	})
}

func (v *EnvironmentVariable) toProvider() *github.ActionsVariable {
	return &github.ActionsVariable{Name: v.Name.Get(), Value: v.Value.OrElse("")}
}

func (v *EnvironmentVariable) generateLivePatch(current *EnvironmentVariable, orgID, repoName, envName string, sink *patchSink) {
	if v.Value.IsSet() && IsDummySecret(v.Value.Get()) {
		return
	}
	changes := Difference(v, current)
	if len(changes) == 0 {
		return
	}
	expected := v
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/env[%s]/variable[%s]", repoName, envName, v.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.UpdateEnvVariable(ctx, orgID, repoName, envName, expected.toProvider())
		},
	})
}

func (v *EnvironmentVariable) addPatch(orgID, repoName, envName string, sink *patchSink) {
	if v.Value.IsSet() && IsDummySecret(v.Value.Get()) {
		return
	}
	expected := v
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/env[%s]/variable[%s]", repoName, envName, v.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.CreateEnvVariable(ctx, orgID, repoName, envName, expected.toProvider())
		},
	})
}

func (v *EnvironmentVariable) removePatch(orgID, repoName, envName string, sink *patchSink) {
	name := v.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/env[%s]/variable[%s]", repoName, envName, name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteEnvVariable(ctx, orgID, repoName, envName, name)
		},
	})
}

// Validate checks visibility consistency on org variables.
func (v *OrganizationVariable) Validate(vc *ValidationContext) {
	where := fmt.Sprintf("org_variable[%s]", v.Name.Get())
	validEnum(vc, where, "visibility", v.Visibility, "public", "private", "selected")
	if v.Visibility.OrElse("") != "selected" && len(v.SelectedRepositories.OrElse(nil)) > 0 {
		vc.Warnf("%s: selected_repositories is ignored unless visibility is \"selected\"", where)
	}
}

func (v *RepositoryVariable) Validate(vc *ValidationContext, repoName string) {
	if v.Value.IsSet() && v.Value.Get() == "" {
		vc.Warnf("repo[%s]/variable[%s]: empty value", repoName, v.Name.Get())
	}
}

func (v *EnvironmentVariable) Validate(vc *ValidationContext, repoName, envName string) {
	if v.Value.IsSet() && v.Value.Get() == "" {
		vc.Warnf("repo[%s]/env[%s]/variable[%s]: empty value", repoName, envName, v.Name.Get())
	}
}
