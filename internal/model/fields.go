package model

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// FieldKind partitions entity fields the way §3 of the data model does.
type FieldKind uint8

const (
	// KindValue is a plain writable field.
	KindValue FieldKind = iota
	// KindKey is the unique identifier within the parent collection.
	KindKey
	// KindExternal only appears on provider-derived objects (ids, slugs)
	// and never participates in diff or patch.
	KindExternal
	// KindReadOnly may appear in expected form but is never written back.
	KindReadOnly
	// KindModelOnly is a declarative control field not sent to the
	// provider (aliases, skip flags).
	KindModelOnly
	// KindEmbedded is a record-valued child with its own fields.
	KindEmbedded
)

// FieldSpec describes one field of an entity struct, derived from its
// `model` tag: model:"<name>[,key|external|readonly|modelonly|embedded|secret|set]".
type FieldSpec struct {
	Name   string
	Kind   FieldKind
	Secret bool
	// Set marks a []string field with order-insensitive comparison.
	Set   bool
	Index int
}

func (f FieldSpec) providerRelevant() bool {
	switch f.Kind {
	case KindModelOnly, KindExternal:
		return false
	}
	return true
}

var fieldCache sync.Map // reflect.Type -> []FieldSpec

// fieldsOf enumerates the tagged fields of an entity struct, in struct
// declaration order. Results are cached per type.
func fieldsOf(e any) []FieldSpec {
	t := reflect.TypeOf(e)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]FieldSpec)
	}
	var specs []FieldSpec
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("model")
		if !ok || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		spec := FieldSpec{Name: parts[0], Kind: KindValue, Index: i}
		for _, opt := range parts[1:] {
			switch opt {
			case "key":
				spec.Kind = KindKey
			case "external":
				spec.Kind = KindExternal
			case "readonly":
				spec.Kind = KindReadOnly
			case "modelonly":
				spec.Kind = KindModelOnly
			case "embedded":
				spec.Kind = KindEmbedded
			case "secret":
				spec.Secret = true
			case "set":
				spec.Set = true
			default:
				panic(fmt.Sprintf("model: unknown field option %q on %s.%s", opt, t.Name(), sf.Name))
			}
		}
		specs = append(specs, spec)
	}
	fieldCache.Store(t, specs)
	return specs
}

func structValue(e any) reflect.Value {
	v := reflect.ValueOf(e)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

func fieldValue(e any, spec FieldSpec) anyValue {
	fv := structValue(e).Field(spec.Index)
	if av, ok := fv.Addr().Interface().(anyValue); ok {
		return av
	}
	panic(fmt.Sprintf("model: field %s is not a Value[T]", spec.Name))
}

// AllFields returns the names of every tagged field of e.
func AllFields(e any) []string {
	specs := fieldsOf(e)
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}

// ProviderFields returns the names of fields that travel to or from the
// provider (everything except model-only and external-only fields).
func ProviderFields(e any) []string {
	var names []string
	for _, s := range fieldsOf(e) {
		if s.providerRelevant() && s.Kind != KindEmbedded {
			names = append(names, s.Name)
		}
	}
	return names
}

// ModelFields returns the names of fields that belong to the declarative
// form (everything except external-only fields).
func ModelFields(e any) []string {
	var names []string
	for _, s := range fieldsOf(e) {
		if s.Kind != KindExternal {
			names = append(names, s.Name)
		}
	}
	return names
}

// KeyField returns the name of the key field of e, or "" when the entity
// is a singleton.
func KeyField(e any) string {
	for _, s := range fieldsOf(e) {
		if s.Kind == KindKey {
			return s.Name
		}
	}
	return ""
}

func lookupField(e any, name string) (FieldSpec, bool) {
	for _, s := range fieldsOf(e) {
		if s.Name == name {
			return s, true
		}
	}
	return FieldSpec{}, false
}

// GetField returns the boxed concrete value of the named field and whether
// it is set.
func GetField(e any, name string) (any, bool) {
	spec, ok := lookupField(e, name)
	if !ok || spec.Kind == KindEmbedded {
		return nil, false
	}
	return fieldValue(e, spec).raw()
}

// SetField assigns a concrete value to the named field.
func SetField(e any, name string, val any) error {
	spec, ok := lookupField(e, name)
	if !ok {
		return fmt.Errorf("model: no field %q on %T", name, e)
	}
	if val == nil {
		return fieldValue(e, spec).setRaw(nil, stateNull)
	}
	return fieldValue(e, spec).setRaw(val, stateSet)
}

// UnsetField coerces the named field back to the unset state. Used for the
// cross-level coercions of §4.4.
func UnsetField(e any, name string) {
	if spec, ok := lookupField(e, name); ok {
		_ = fieldValue(e, spec).setRaw(nil, stateUnset)
	}
}

// diffIncluder lets an entity exclude fields from difference computation
// beyond the kind-based rules (e.g. secret values).
type diffIncluder interface {
	IncludeForDiff(field string) bool
}

// Change records a single field transition inside a CHANGE patch.
type Change struct {
	From any
	To   any
}

// Difference compares expected against current field by field, honouring
// UNSET, read-only fields and per-entity inclusion predicates. The result
// maps field name to the transition current -> expected.
func Difference(expected, current any) map[string]Change {
	changes := map[string]Change{}
	includer, hasIncluder := expected.(diffIncluder)
	for _, spec := range fieldsOf(expected) {
		if !spec.providerRelevant() || spec.Kind == KindEmbedded || spec.Kind == KindReadOnly {
			continue
		}
		if hasIncluder && !includer.IncludeForDiff(spec.Name) {
			continue
		}
		ev := fieldValue(expected, spec)
		if ev.IsUnset() {
			continue
		}
		cv := fieldValue(current, spec)
		eRaw, eSet := ev.raw()
		cRaw, cSet := cv.raw()
		switch {
		case ev.IsNull() && (cv.IsNull() || cv.IsUnset()):
			continue
		case eSet && cSet && equalValues(eRaw, cRaw, spec.Set):
			continue
		}
		changes[spec.Name] = Change{From: cRaw, To: eRaw}
	}
	return changes
}

// FullChanges produces a change set covering every provider field that is
// set on expected, with From == To. Used for forced updates, which rewrite
// the complete record regardless of equality.
func FullChanges(expected any) map[string]Change {
	changes := map[string]Change{}
	for _, spec := range fieldsOf(expected) {
		if !spec.providerRelevant() || spec.Kind == KindEmbedded || spec.Kind == KindReadOnly {
			continue
		}
		ev := fieldValue(expected, spec)
		if ev.IsUnset() {
			continue
		}
		raw, _ := ev.raw()
		changes[spec.Name] = Change{From: raw, To: raw}
	}
	return changes
}

// ToModelMap serializes the declarative form of e, omitting unset fields.
// Secret-bearing fields are included; callers that render diffs are
// expected to pass forDiff to drop them.
func ToModelMap(e any, forDiff bool) map[string]any {
	out := map[string]any{}
	for _, spec := range fieldsOf(e) {
		if spec.Kind == KindExternal || spec.Kind == KindEmbedded {
			continue
		}
		if forDiff && spec.Secret {
			continue
		}
		v := fieldValue(e, spec)
		if v.IsUnset() {
			continue
		}
		if v.IsNull() {
			out[spec.Name] = nil
			continue
		}
		raw, _ := v.raw()
		out[spec.Name] = raw
	}
	return out
}

// FromModelMap populates the tagged fields of e from the evaluated
// declarative tree. Fields absent from data stay unset. Unknown keys are
// reported so the validator can surface typos.
func FromModelMap(e any, data map[string]any) ([]string, error) {
	known := map[string]FieldSpec{}
	for _, spec := range fieldsOf(e) {
		if spec.Kind == KindExternal || spec.Kind == KindEmbedded {
			continue
		}
		known[spec.Name] = spec
	}
	var unknown []string
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec, ok := known[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		val := data[k]
		var err error
		if val == nil {
			err = fieldValue(e, spec).setRaw(nil, stateNull)
		} else {
			err = fieldValue(e, spec).setRaw(val, stateSet)
		}
		if err != nil {
			return unknown, fmt.Errorf("field %q: %w", k, err)
		}
	}
	return unknown, nil
}

// PatchTo returns the fields of e whose values differ from defaults,
// keyed by field name. Used by import/render to emit only non-default
// settings.
func PatchTo(e, defaults any) map[string]any {
	out := map[string]any{}
	for _, spec := range fieldsOf(e) {
		if spec.Kind == KindExternal || spec.Kind == KindEmbedded {
			continue
		}
		ev := fieldValue(e, spec)
		if ev.IsUnset() {
			continue
		}
		dv := fieldValue(defaults, spec)
		eRaw, eSet := ev.raw()
		dRaw, dSet := dv.raw()
		if eSet && dSet && equalValues(eRaw, dRaw, spec.Set) {
			continue
		}
		if ev.IsNull() && dv.IsNull() {
			continue
		}
		if ev.IsNull() {
			out[spec.Name] = nil
		} else {
			out[spec.Name] = eRaw
		}
	}
	return out
}
