package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// OrganizationSecret is an org-level actions secret. The value is a
// resolver reference, never plaintext; it only becomes plaintext inside
// the apply closure.
type OrganizationSecret struct {
	Name                 Value[string]   `model:"name,key"`
	Visibility           Value[string]   `model:"visibility"`
	SelectedRepositories Value[[]string] `model:"selected_repositories,set"`
	Value                Value[string]   `model:"value,secret"`
}

// RepositorySecret is a repository-scoped actions secret.
type RepositorySecret struct {
	Name  Value[string] `model:"name,key"`
	Value Value[string] `model:"value,secret"`
}

// EnvironmentSecret is an environment-scoped actions secret.
type EnvironmentSecret struct {
	Name  Value[string] `model:"name,key"`
	Value Value[string] `model:"value,secret"`
}

// Secret values cannot be read back, so they are excluded from the
// generic diff and handled by the forced-update machinery.
func (s *OrganizationSecret) IncludeForDiff(field string) bool { return field != "value" }
func (s *RepositorySecret) IncludeForDiff(field string) bool   { return field != "value" }
func (s *EnvironmentSecret) IncludeForDiff(field string) bool  { return field != "value" }

// visibility mapping: the provider's "all" is the model's "public".
func visibilityFromProvider(v string) string {
	if v == "all" {
		return "public"
	}
	return v
}

func visibilityToProvider(v string) string {
	if v == "public" {
		return "all"
	}
	return v
}

// NewOrgSecretFromProvider maps a provider secret. The value is redacted
// to a dummy since GitHub never returns it.
func NewOrgSecretFromProvider(s *github.Secret, selectedRepoIDs []int64, repoNamesByID map[int64]string) *OrganizationSecret {
	out := &OrganizationSecret{
		Name:       Set(s.Name),
		Visibility: Set(visibilityFromProvider(s.Visibility)),
		Value:      Set("********"),
	}
	if s.Visibility == "selected" {
		names := make([]string, 0, len(selectedRepoIDs))
		for _, id := range selectedRepoIDs {
			if name, ok := repoNamesByID[id]; ok {
				names = append(names, name)
			}
		}
		out.SelectedRepositories = Set(names)
	}
	return out
}

func NewRepoSecretFromProvider(s *github.Secret) *RepositorySecret {
	return &RepositorySecret{Name: Set(s.Name), Value: Set("********")}
}

func NewEnvSecretFromProvider(s *github.Secret) *EnvironmentSecret {
	return &EnvironmentSecret{Name: Set(s.Name), Value: Set("********")}
}

// secretPatchPlan decides how a secret-bearing child participates in the
// diff: dummies are skipped outright, matching update-secrets requests
// force a full rewrite.
func secretPatchPlan(value Value[string], pctx *PatchContext, key string) (skip, forced bool) {
	if value.IsSet() && IsDummySecret(value.Get()) {
		return true, false
	}
	if pctx.UpdateSecrets && value.IsSet() && value.Get() != "" && pctx.filterMatches(key) {
		return false, true
	}
	return false, false
}

func (s *OrganizationSecret) upsert(orgID string, pctx *PatchContext) func(context.Context, Provider) error {
	expected := s
	return func(ctx context.Context, provider Provider) error {
		plaintext, err := pctx.resolveSecret(ctx, expected.Value.OrElse(""))
		if err != nil {
			return err
		}
		var selectedIDs []int64
		if expected.Visibility.OrElse("") == "selected" {
			ids, err := repoIDsByName(ctx, provider, orgID)
			if err != nil {
				return err
			}
			for _, name := range expected.SelectedRepositories.OrElse(nil) {
				if id, ok := ids[name]; ok {
					selectedIDs = append(selectedIDs, id)
				}
			}
		}
		return provider.UpsertOrgSecret(ctx, orgID, expected.Name.Get(),
			visibilityToProvider(expected.Visibility.OrElse("all")), selectedIDs, plaintext)
	}
}

func (s *OrganizationSecret) generateLivePatch(current *OrganizationSecret, orgID string, pctx *PatchContext, sink *patchSink) {
	skip, forced := secretPatchPlan(s.Value, pctx, s.Name.Get())
	if skip {
		return
	}
	var changes map[string]Change
	if forced {
		changes = FullChanges(s)
	} else {
		changes = Difference(s, current)
	}
	if len(changes) == 0 {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("org_secret[%s]", s.Name.Get()),
		Changes:  changes,
		Forced:   forced,
		Apply:    s.upsert(orgID, pctx),
	})
}

func (s *OrganizationSecret) addPatch(orgID string, pctx *PatchContext, sink *patchSink) {
	if s.Value.IsSet() && IsDummySecret(s.Value.Get()) {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("org_secret[%s]", s.Name.Get()),
		Apply:    s.upsert(orgID, pctx),
	})
}

func (s *OrganizationSecret) removePatch(orgID string, sink *patchSink) {
	name := s.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("org_secret[%s]", name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteOrgSecret(ctx, orgID, name)
		},
	})
}

func (s *RepositorySecret) upsert(orgID, repoName string, pctx *PatchContext) func(context.Context, Provider) error {
	expected := s
	return func(ctx context.Context, provider Provider) error {
		plaintext, err := pctx.resolveSecret(ctx, expected.Value.OrElse(""))
		if err != nil {
			return err
		}
		return provider.UpsertRepoSecret(ctx, orgID, repoName, expected.Name.Get(), plaintext)
	}
}

func (s *RepositorySecret) generateLivePatch(current *RepositorySecret, orgID, repoName string, pctx *PatchContext, sink *patchSink) {
	skip, forced := secretPatchPlan(s.Value, pctx, s.Name.Get())
	if skip {
		return
	}
	var changes map[string]Change
	if forced {
		changes = FullChanges(s)
	} else {
		changes = Difference(s, current)
	}
	if len(changes) == 0 {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/secret[%s]", repoName, s.Name.Get()),
		Changes:  changes,
		Forced:   forced,
		Apply:    s.upsert(orgID, repoName, pctx),
	})
}

func (s *RepositorySecret) addPatch(orgID, repoName string, pctx *PatchContext, sink *patchSink) {
	if s.Value.IsSet() && IsDummySecret(s.Value.Get()) {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/secret[%s]", repoName, s.Name.Get()),
		Apply:    s.upsert(orgID, repoName, pctx),
	})
}

func (s *RepositorySecret) removePatch(orgID, repoName string, sink *patchSink) {
	name := s.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/secret[%s]", repoName, name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteRepoSecret(ctx, orgID, repoName, name)
		},
	})
}

// resolveRepoID falls back to a lookup by name when the repository was
// created earlier in the same run and no id was known at diff time.
func resolveRepoID(ctx context.Context, provider Provider, orgID, repoName string, repoID int64) (int64, error) {
	if repoID != 0 {
		return repoID, nil
	}
	repo, err := provider.GetRepository(ctx, orgID, repoName)
	if err != nil {
		return 0, err
	}
	return repo.GetID(), nil
}

func (s *EnvironmentSecret) upsert(orgID string, repoID int64, repoName, envName string, pctx *PatchContext) func(context.Context, Provider) error {
	expected := s
	return func(ctx context.Context, provider Provider) error {
		id, err := resolveRepoID(ctx, provider, orgID, repoName, repoID)
		if err != nil {
			return err
		}
		plaintext, err := pctx.resolveSecret(ctx, expected.Value.OrElse(""))
		if err != nil {
			return err
		}
		return provider.UpsertEnvSecret(ctx, id, envName, expected.Name.Get(), plaintext)
	}
}

func (s *EnvironmentSecret) generateLivePatch(current *EnvironmentSecret, orgID string, repoID int64, repoName, envName string, pctx *PatchContext, sink *patchSink) {
	skip, forced := secretPatchPlan(s.Value, pctx, s.Name.Get())
	if skip {
		return
	}
	var changes map[string]Change
	if forced {
		changes = FullChanges(s)
	} else {
		changes = Difference(s, current)
	}
	if len(changes) == 0 {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/env[%s]/secret[%s]", repoName, envName, s.Name.Get()),
		Changes:  changes,
		Forced:   forced,
		Apply:    s.upsert(orgID, repoID, repoName, envName, pctx),
	})
}

func (s *EnvironmentSecret) addPatch(orgID string, repoID int64, repoName, envName string, pctx *PatchContext, sink *patchSink) {
	if s.Value.IsSet() && IsDummySecret(s.Value.Get()) {
		return
	}
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/env[%s]/secret[%s]", repoName, envName, s.Name.Get()),
		Apply:    s.upsert(orgID, repoID, repoName, envName, pctx),
	})
}

func (s *EnvironmentSecret) removePatch(orgID string, repoID int64, repoName, envName string, sink *patchSink) {
	name := s.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/env[%s]/secret[%s]", repoName, envName, name),
		Apply: func(ctx context.Context, provider Provider) error {
			id, err := resolveRepoID(ctx, provider, orgID, repoName, repoID)
			if err != nil {
				return err
			}
			return provider.DeleteEnvSecret(ctx, id, envName, name)
		},
	})
}

// Validate checks visibility consistency on org secrets.
func (s *OrganizationSecret) Validate(vc *ValidationContext) {
	where := fmt.Sprintf("org_secret[%s]", s.Name.Get())
	validEnum(vc, where, "visibility", s.Visibility, "public", "private", "selected")
	if s.Visibility.OrElse("") != "selected" && len(s.SelectedRepositories.OrElse(nil)) > 0 {
		vc.Warnf("%s: selected_repositories is ignored unless visibility is \"selected\"", where)
	}
	if s.Value.IsSet() && s.Value.Get() == "" {
		vc.Errorf("%s: empty secret value", where)
	}
}

func (s *RepositorySecret) Validate(vc *ValidationContext, repoName string) {
	if s.Value.IsSet() && s.Value.Get() == "" {
		vc.Errorf("repo[%s]/secret[%s]: empty secret value", repoName, s.Name.Get())
	}
}

func (s *EnvironmentSecret) Validate(vc *ValidationContext, repoName, envName string) {
	if s.Value.IsSet() && s.Value.Get() == "" {
		vc.Errorf("repo[%s]/env[%s]/secret[%s]: empty secret value", repoName, envName, s.Name.Get())
	}
}
