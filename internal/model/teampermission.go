package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// TeamPermission grants a team a role on one repository, keyed by the
// team slug.
type TeamPermission struct {
	Team       Value[string] `model:"team,key"`
	Permission Value[string] `model:"permission"`
}

func NewTeamPermissionFromProvider(t *github.Team) *TeamPermission {
	return &TeamPermission{
		Team:       Set(t.GetSlug()),
		Permission: Set(t.GetPermission()),
	}
}

func (p *TeamPermission) generateLivePatch(current *TeamPermission, orgID, repoName string, sink *patchSink) {
	changes := Difference(p, current)
	if len(changes) == 0 {
		return
	}
	expected := p
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/team_permission[%s]", repoName, p.Team.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.SetTeamPermission(ctx, orgID, expected.Team.Get(), repoName,
				expected.Permission.OrElse("pull"))
		},
	})
}

func (p *TeamPermission) addPatch(orgID, repoName string, sink *patchSink) {
	expected := p
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/team_permission[%s]", repoName, p.Team.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.SetTeamPermission(ctx, orgID, expected.Team.Get(), repoName,
				expected.Permission.OrElse("pull"))
		},
	})
}

func (p *TeamPermission) removePatch(orgID, repoName string, sink *patchSink) {
	team := p.Team.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/team_permission[%s]", repoName, team),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.RemoveTeamPermission(ctx, orgID, team, repoName)
		},
	})
}

// Validate checks the permission enumeration.
func (p *TeamPermission) Validate(vc *ValidationContext, repoName string) {
	where := fmt.Sprintf("repo[%s]/team_permission[%s]", repoName, p.Team.Get())
	validEnum(vc, where, "permission", p.Permission,
		"pull", "triage", "push", "maintain", "admin")
}
