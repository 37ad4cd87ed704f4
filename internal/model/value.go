package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// A field in a declarative configuration can be in one of three states:
// absent from the declaration entirely (unset), explicitly null, or set to
// a concrete value. GitHub accepts null for a number of fields, so the two
// absent states must never be conflated.
type valueState uint8

const (
	stateUnset valueState = iota
	stateNull
	stateSet
)

// Value is a tri-state field holding either nothing (unset), an explicit
// null, or a concrete value of type T.
type Value[T any] struct {
	state valueState
	v     T
}

// Unset returns a Value in the unset state. Unset fields inherit their
// default and are excluded from diff and patch generation.
func Unset[T any]() Value[T] {
	return Value[T]{state: stateUnset}
}

// Null returns a Value that is explicitly null.
func Null[T any]() Value[T] {
	return Value[T]{state: stateNull}
}

// Set returns a Value holding v.
func Set[T any](v T) Value[T] {
	return Value[T]{state: stateSet, v: v}
}

func (v Value[T]) IsUnset() bool { return v.state == stateUnset }
func (v Value[T]) IsNull() bool  { return v.state == stateNull }
func (v Value[T]) IsSet() bool   { return v.state == stateSet }

// Get returns the concrete value. It returns the zero value when the field
// is unset or null.
func (v Value[T]) Get() T {
	return v.v
}

// OrElse returns the concrete value, or def when the field is unset or null.
func (v Value[T]) OrElse(def T) T {
	if v.state == stateSet {
		return v.v
	}
	return def
}

// anyValue is the non-generic view used by the reflection-based field
// engine.
type anyValue interface {
	IsUnset() bool
	IsNull() bool
	// raw returns the concrete value boxed as any; the bool is false when
	// the field is unset or null.
	raw() (any, bool)
	// setRaw assigns a concrete value, an explicit null (nil) or leaves the
	// field unset.
	setRaw(v any, st valueState) error
}

func (v Value[T]) raw() (any, bool) {
	if v.state != stateSet {
		return nil, false
	}
	return v.v, true
}

func (v *Value[T]) setRaw(val any, st valueState) error {
	if st != stateSet {
		v.state = st
		var zero T
		v.v = zero
		return nil
	}
	tv, ok := val.(T)
	if !ok {
		converted, err := convertValue[T](val)
		if err != nil {
			return err
		}
		tv = converted
	}
	v.state = stateSet
	v.v = tv
	return nil
}

// convertValue bridges the loosely typed JSON tree produced by the
// declarative evaluator to the concrete field types. JSON numbers arrive as
// float64 and lists as []any.
func convertValue[T any](val any) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int:
		switch n := val.(type) {
		case float64:
			return any(int(n)).(T), nil
		case int64:
			return any(int(n)).(T), nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return zero, err
			}
			return any(int(i)).(T), nil
		}
	case int64:
		switch n := val.(type) {
		case float64:
			return any(int64(n)).(T), nil
		case int:
			return any(int64(n)).(T), nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return zero, err
			}
			return any(i).(T), nil
		}
	case []string:
		if items, ok := val.([]any); ok {
			out := make([]string, 0, len(items))
			for _, it := range items {
				s, ok := it.(string)
				if !ok {
					return zero, fmt.Errorf("expected string list element, got %T", it)
				}
				out = append(out, s)
			}
			return any(out).(T), nil
		}
	}
	return zero, fmt.Errorf("cannot convert %T to %T", val, zero)
}

var dummySecretRe = regexp.MustCompile(`^\*+$`)

// IsDummySecret reports whether s is a redacted placeholder written by
// import. Dummy secrets are never resolved and never written back.
func IsDummySecret(s string) bool {
	return dummySecretRe.MatchString(s)
}

// equalValues compares two boxed concrete values. String lists flagged with
// set semantics compare order-insensitively.
func equalValues(a, b any, setSemantics bool) bool {
	if setSemantics {
		as, aok := a.([]string)
		bs, bok := b.([]string)
		if aok && bok {
			if len(as) != len(bs) {
				return false
			}
			ac := append([]string(nil), as...)
			bc := append([]string(nil), bs...)
			sort.Strings(ac)
			sort.Strings(bc)
			for i := range ac {
				if ac[i] != bc[i] {
					return false
				}
			}
			return true
		}
	}
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
