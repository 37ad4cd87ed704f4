package model

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PatchKind discriminates the three live patch variants.
type PatchKind int

const (
	PatchAdd PatchKind = iota
	PatchRemove
	PatchChange
)

func (k PatchKind) String() string {
	switch k {
	case PatchAdd:
		return "add"
	case PatchRemove:
		return "remove"
	case PatchChange:
		return "change"
	}
	return fmt.Sprintf("PatchKind(%d)", int(k))
}

// LivePatch is one atomic difference between the expected and the current
// state, bound to the closure that applies it.
type LivePatch struct {
	Kind PatchKind

	// Resource names the patched resource, e.g.
	// "repo[server]/webhook[https://a.example]".
	Resource string

	// Changes maps field names to their transitions; only set for
	// CHANGE patches. A forced patch carries every writable field with
	// From equal to To.
	Changes map[string]Change
	Forced  bool

	Apply func(ctx context.Context, provider Provider) error
}

func (p *LivePatch) String() string {
	switch p.Kind {
	case PatchChange:
		fields := make([]string, 0, len(p.Changes))
		for name := range p.Changes {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		parts := make([]string, 0, len(fields))
		for _, name := range fields {
			c := p.Changes[name]
			parts = append(parts, fmt.Sprintf("%s: %v -> %v", name, c.From, c.To))
		}
		suffix := ""
		if p.Forced {
			suffix = " (forced)"
		}
		return fmt.Sprintf("~ %s%s {%s}", p.Resource, suffix, strings.Join(parts, ", "))
	case PatchRemove:
		return "- " + p.Resource
	default:
		return "+ " + p.Resource
	}
}

// SecretResolver turns "provider:key" references into plaintext. It is
// invoked at the latest safe point, immediately before a write that
// needs the value.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// PatchContext carries the driver-supplied knobs that influence diff
// generation.
type PatchContext struct {
	OrgID string

	// UpdateWebhooks and UpdateSecrets request forced rewrites of
	// webhooks resp. secrets whose key matches UpdateFilter.
	UpdateWebhooks bool
	UpdateSecrets  bool
	UpdateFilter   *regexp.Regexp

	// RepoFilter restricts the repository sub-tree diff when set.
	RepoFilter *regexp.Regexp

	Resolver SecretResolver
}

func (ctx *PatchContext) filterMatches(key string) bool {
	if ctx.UpdateFilter == nil {
		return true
	}
	return ctx.UpdateFilter.MatchString(key)
}

// resolveSecret resolves ref through the context's resolver; without a
// resolver the reference passes through untouched.
func (ctx *PatchContext) resolveSecret(c context.Context, ref string) (string, error) {
	if ctx.Resolver == nil || ref == "" {
		return ref, nil
	}
	return ctx.Resolver.ResolveSecret(c, ref)
}

// patchSink accumulates patches in generation order.
type patchSink struct {
	patches []*LivePatch
}

func (s *patchSink) emit(p *LivePatch) {
	s.patches = append(s.patches, p)
}

// diffLists runs the shared collection algorithm: current children are
// keyed, removals come first in key order, then each expected child in
// key order either diffs against its match (primary key or alias) or is
// added.
func diffLists[E any](
	expected, current []E,
	key func(E) string,
	aliases func(E) []string,
	onRemove func(E),
	onMatch func(exp, cur E),
	onAdd func(E),
) {
	working := make(map[string]E, len(current))
	for _, cur := range current {
		working[key(cur)] = cur
	}

	matched := map[string]bool{}
	type pairing struct {
		exp E
		cur E
		ok  bool
	}
	pairings := make([]pairing, 0, len(expected))
	for _, exp := range expected {
		names := []string{key(exp)}
		if aliases != nil {
			names = append(names, aliases(exp)...)
		}
		var p pairing
		p.exp = exp
		for _, name := range names {
			if cur, ok := working[name]; ok && !matched[name] {
				p.cur = cur
				p.ok = true
				matched[name] = true
				break
			}
		}
		pairings = append(pairings, p)
	}

	var removed []string
	for name := range working {
		if !matched[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		onRemove(working[name])
	}

	sort.SliceStable(pairings, func(i, j int) bool {
		return key(pairings[i].exp) < key(pairings[j].exp)
	})
	for _, p := range pairings {
		if p.ok {
			onMatch(p.exp, p.cur)
		} else {
			onAdd(p.exp)
		}
	}
}
