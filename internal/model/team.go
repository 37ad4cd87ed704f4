package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// Team is an organization team with managed membership. skip_members
// leaves the live membership untouched for teams maintained elsewhere.
type Team struct {
	Slug Value[string] `model:"slug,external"`

	Name                Value[string]   `model:"name,key"`
	Description         Value[string]   `model:"description"`
	Privacy             Value[string]   `model:"privacy"`
	Notifications       Value[bool]     `model:"notifications"`
	Members             Value[[]string] `model:"members,set"`
	Maintainers         Value[[]string] `model:"maintainers,set"`
	SkipMembers         Value[bool]     `model:"skip_members,modelonly"`
	SkipNonOrganization Value[bool]     `model:"skip_non_organization_members,modelonly"`
}

// privacy mapping: model "visible" is the provider's "closed".
func teamPrivacyFromProvider(p string) string {
	if p == "closed" {
		return "visible"
	}
	return "secret"
}

func teamPrivacyToProvider(p string) string {
	if p == "visible" {
		return "closed"
	}
	return "secret"
}

func notificationSettingFromProvider(s string) bool {
	return s != "notifications_disabled"
}

func notificationSettingToProvider(enabled bool) string {
	if enabled {
		return "notifications_enabled"
	}
	return "notifications_disabled"
}

// NewTeamFromProvider maps a provider team plus its membership lists.
func NewTeamFromProvider(t *github.Team, members, maintainers []string) *Team {
	return &Team{
		Slug:          Set(t.GetSlug()),
		Name:          Set(t.GetName()),
		Description:   Set(t.GetDescription()),
		Privacy:       Set(teamPrivacyFromProvider(t.GetPrivacy())),
		Notifications: Set(notificationSettingFromProvider(t.GetNotificationSetting())),
		Members:       Set(members),
		Maintainers:   Set(maintainers),
	}
}

func (t *Team) toProvider() github.NewTeam {
	team := github.NewTeam{Name: t.Name.Get()}
	if t.Description.IsSet() {
		team.Description = github.Ptr(t.Description.Get())
	}
	if t.Privacy.IsSet() {
		team.Privacy = github.Ptr(teamPrivacyToProvider(t.Privacy.Get()))
	}
	if t.Notifications.IsSet() {
		team.NotificationSetting = github.Ptr(notificationSettingToProvider(t.Notifications.Get()))
	}
	return team
}

func (t *Team) syncMembers(ctx context.Context, provider Provider, orgID, slug string) error {
	if t.SkipMembers.OrElse(false) {
		return nil
	}
	if !t.Members.IsSet() && !t.Maintainers.IsSet() {
		return nil
	}
	return provider.SyncTeamMembers(ctx, orgID, slug,
		t.Members.OrElse(nil), t.Maintainers.OrElse(nil))
}

func (t *Team) generateLivePatch(current *Team, orgID string, sink *patchSink) {
	changes := Difference(t, current)
	if t.SkipMembers.OrElse(false) {
		delete(changes, "members")
		delete(changes, "maintainers")
	}
	if len(changes) == 0 {
		return
	}
	expected := t
	slug := current.Slug.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("team[%s]", t.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			_, membersChanged := changes["members"]
			_, maintainersChanged := changes["maintainers"]
			settingsChanged := len(changes) > boolToInt(membersChanged)+boolToInt(maintainersChanged)
			if settingsChanged {
				if err := provider.UpdateTeam(ctx, orgID, slug, expected.toProvider()); err != nil {
					return err
				}
			}
			if membersChanged || maintainersChanged {
				return expected.syncMembers(ctx, provider, orgID, slug)
			}
			return nil
		},
	})
}

func (t *Team) addPatch(orgID string, sink *patchSink) {
	expected := t
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("team[%s]", t.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			slug, err := provider.CreateTeam(ctx, orgID, expected.toProvider())
			if err != nil {
				return err
			}
			return expected.syncMembers(ctx, provider, orgID, slug)
		},
	})
}

func (t *Team) removePatch(orgID string, sink *patchSink) {
	slug := t.Slug.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("team[%s]", t.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteTeam(ctx, orgID, slug)
		},
	})
}

// Validate checks team invariants.
func (t *Team) Validate(vc *ValidationContext) {
	where := fmt.Sprintf("team[%s]", t.Name.Get())
	validEnum(vc, where, "privacy", t.Privacy, "secret", "visible")
	members := map[string]bool{}
	for _, m := range t.Members.OrElse(nil) {
		members[m] = true
	}
	for _, m := range t.Maintainers.OrElse(nil) {
		if members[m] {
			vc.Warnf("%s: %s is listed both as member and maintainer", where, m)
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
