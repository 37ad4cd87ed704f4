package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// CustomProperty is an org-level custom property definition applied to
// repositories.
type CustomProperty struct {
	Name             Value[string]   `model:"name,key"`
	ValueType        Value[string]   `model:"value_type"`
	Required         Value[bool]     `model:"required"`
	DefaultValue     Value[string]   `model:"default_value"`
	Description      Value[string]   `model:"description"`
	AllowedValues    Value[[]string] `model:"allowed_values,set"`
	ValuesEditableBy Value[string]   `model:"values_editable_by"`
}

func NewCustomPropertyFromProvider(p *github.CustomProperty) *CustomProperty {
	out := &CustomProperty{
		Name:      Set(p.GetPropertyName()),
		ValueType: Set(p.ValueType),
		Required:  Set(p.GetRequired()),
	}
	if p.DefaultValue != nil {
		out.DefaultValue = Set(*p.DefaultValue)
	} else {
		out.DefaultValue = Null[string]()
	}
	if p.Description != nil {
		out.Description = Set(*p.Description)
	}
	if p.AllowedValues != nil {
		out.AllowedValues = Set(append([]string(nil), p.AllowedValues...))
	}
	if p.ValuesEditableBy != nil {
		out.ValuesEditableBy = Set(*p.ValuesEditableBy)
	}
	return out
}

func (p *CustomProperty) toProvider() *github.CustomProperty {
	out := &github.CustomProperty{
		ValueType: p.ValueType.OrElse("string"),
	}
	if p.Required.IsSet() {
		out.Required = github.Ptr(p.Required.Get())
	}
	if p.DefaultValue.IsSet() {
		out.DefaultValue = github.Ptr(p.DefaultValue.Get())
	}
	if p.Description.IsSet() {
		out.Description = github.Ptr(p.Description.Get())
	}
	if p.AllowedValues.IsSet() {
		out.AllowedValues = p.AllowedValues.Get()
	}
	if p.ValuesEditableBy.IsSet() {
		out.ValuesEditableBy = github.Ptr(p.ValuesEditableBy.Get())
	}
	return out
}

func (p *CustomProperty) generateLivePatch(current *CustomProperty, orgID string, sink *patchSink) {
	changes := Difference(p, current)
	if len(changes) == 0 {
		return
	}
	expected := p
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("custom_property[%s]", p.Name.Get()),
		Changes:  changes,
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.UpsertCustomProperty(ctx, orgID, expected.Name.Get(), expected.toProvider())
		},
	})
}

func (p *CustomProperty) addPatch(orgID string, sink *patchSink) {
	expected := p
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("custom_property[%s]", p.Name.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.UpsertCustomProperty(ctx, orgID, expected.Name.Get(), expected.toProvider())
		},
	})
}

func (p *CustomProperty) removePatch(orgID string, sink *patchSink) {
	name := p.Name.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("custom_property[%s]", name),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteCustomProperty(ctx, orgID, name)
		},
	})
}

// Validate checks the value type and its dependent fields.
func (p *CustomProperty) Validate(vc *ValidationContext) {
	where := fmt.Sprintf("custom_property[%s]", p.Name.Get())
	validEnum(vc, where, "value_type", p.ValueType,
		"string", "single_select", "multi_select", "true_false")
	validEnum(vc, where, "values_editable_by", p.ValuesEditableBy,
		"org_actors", "org_and_repo_actors")

	selectType := p.ValueType.OrElse("") == "single_select" || p.ValueType.OrElse("") == "multi_select"
	if selectType && len(p.AllowedValues.OrElse(nil)) == 0 {
		vc.Errorf("%s: select typed properties need allowed_values", where)
	}
	if !selectType && len(p.AllowedValues.OrElse(nil)) > 0 {
		vc.Warnf("%s: allowed_values is ignored for value_type %q", where, p.ValueType.OrElse("string"))
	}
	if p.Required.OrElse(false) && p.DefaultValue.IsUnset() {
		vc.Errorf("%s: required properties need a default_value", where)
	}
}
