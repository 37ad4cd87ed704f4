package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// OrganizationRole is a custom organization role.
type OrganizationRole struct {
	ID          Value[int64]    `model:"id,external"`
	Name        Value[string]   `model:"name,key"`
	Description Value[string]   `model:"description"`
	Permissions Value[[]string] `model:"permissions,set"`
	BaseRole    Value[string]   `model:"base_role"`
}

func NewOrgRoleFromProvider(r *github.CustomOrgRoles) *OrganizationRole {
	out := &OrganizationRole{
		ID:          Set(r.GetID()),
		Name:        Set(r.GetName()),
		Description: Set(r.GetDescription()),
		Permissions: Set(append([]string(nil), r.Permissions...)),
	}
	if r.BaseRole != nil {
		out.BaseRole = Set(*r.BaseRole)
	} else {
		out.BaseRole = Null[string]()
	}
	return out
}

func (r *OrganizationRole) toProvider() *github.CreateOrUpdateOrgRoleOptions {
	opts := &github.CreateOrUpdateOrgRoleOptions{
		Name:        github.Ptr(r.Name.Get()),
		Permissions: r.Permissions.OrElse([]string{}),
	}
	if r.Description.IsSet() {
		opts.Description = github.Ptr(r.Description.Get())
	}
	if r.BaseRole.IsSet() {
		opts.BaseRole = github.Ptr(r.BaseRole.Get())
	}
	return opts
}

func (r *OrganizationRole) generateLivePatch(current *OrganizationRole, orgID string, sink *patchSink) {
	changes := Difference(r, current)
	if len(changes) == 0 {
		return
	}
	expected := r
	roleID := current.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("org_role[%s]", r.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.UpdateOrgRole(ctx, orgID, roleID, expected.toProvider())
		},
	})
}

func (r *OrganizationRole) addPatch(orgID string, sink *patchSink) {
	expected := r
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("org_role[%s]", r.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			_, err := provider.CreateOrgRole(ctx, orgID, expected.toProvider())
			return err
		},
	})
}

func (r *OrganizationRole) removePatch(orgID string, sink *patchSink) {
	roleID := r.ID.Get()
	name := r.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("org_role[%s]", name),
		Apply: func(ctx context.Context, provider Provider) error {
			id := roleID
			if id == 0 {
				var err error
				id, err = provider.FindOrgRoleID(ctx, orgID, name)
				if err != nil {
					return err
				}
			}
			return provider.DeleteOrgRole(ctx, orgID, id)
		},
	})
}

// Validate checks the base role enumeration.
func (r *OrganizationRole) Validate(vc *ValidationContext) {
	where := fmt.Sprintf("org_role[%s]", r.Name.Get())
	validEnum(vc, where, "base_role", r.BaseRole, "none", "read", "triage", "write", "maintain", "admin")
	if len(r.Permissions.OrElse(nil)) == 0 && r.BaseRole.IsUnset() {
		vc.Errorf("%s: a role needs permissions or a base_role", where)
	}
}
