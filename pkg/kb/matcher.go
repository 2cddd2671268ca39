// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"strings"

	"github.com/jllopis/actionkb/pkg/fol"
)

// Matcher decides instance-of relations between predicates and whether an
// actor satisfies an action's declared actor types. Implementations must be
// synchronous and safe for concurrent use; the knowledge base calls them while
// holding its lock.
type Matcher interface {
	// InstanceOf reports whether query is an instance of pattern.
	InstanceOf(pattern, query fol.Predicate) bool
	// AcceptsActor reports whether actor may perform an action declaring the
	// given actor types. An empty declaration accepts any actor.
	AcceptsActor(actor fol.Symbol, declared []string) bool
}

// MatcherOption configures a DefaultMatcher.
type MatcherOption func(*DefaultMatcher)

// WithSubtypes sets the semantic type hierarchy as subtype -> supertypes.
func WithSubtypes(hierarchy map[string][]string) MatcherOption {
	return func(m *DefaultMatcher) {
		for sub, supers := range hierarchy {
			m.supertypes[sub] = append(m.supertypes[sub], supers...)
		}
	}
}

// WithSymbolTypes types symbols that appear untyped in queries, e.g.
// robot1 -> agent.
func WithSymbolTypes(types map[string]string) MatcherOption {
	return func(m *DefaultMatcher) {
		for name, typ := range types {
			m.symbolTypes[name] = typ
		}
	}
}

// DefaultMatcher matches structurally with fol.Match and then checks every
// typed pattern variable against the type of the term it bound to. Untyped
// terms are accepted. It is immutable after construction.
type DefaultMatcher struct {
	supertypes  map[string][]string
	symbolTypes map[string]string
}

// NewDefaultMatcher returns a matcher with the given options applied.
func NewDefaultMatcher(opts ...MatcherOption) *DefaultMatcher {
	m := &DefaultMatcher{
		supertypes:  map[string][]string{},
		symbolTypes: map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InstanceOf implements Matcher.
func (m *DefaultMatcher) InstanceOf(pattern, query fol.Predicate) bool {
	sub, ok := fol.Match(pattern, query)
	if !ok {
		return false
	}
	for _, v := range pattern.Vars() {
		if v.Type == "" {
			continue
		}
		bound, ok := sub[v.Name]
		if !ok {
			continue
		}
		if !m.acceptsAny(m.typeOf(bound), splitAlternatives(v.Type)) {
			return false
		}
	}
	return true
}

// AcceptsActor implements Matcher.
func (m *DefaultMatcher) AcceptsActor(actor fol.Symbol, declared []string) bool {
	if len(declared) == 0 {
		return true
	}
	return m.acceptsAny(m.typeOf(actor), declared)
}

// IsSubtype reports whether sub equals super or reaches it through the
// hierarchy.
func (m *DefaultMatcher) IsSubtype(sub, super string) bool {
	if sub == super {
		return true
	}
	seen := map[string]bool{sub: true}
	queue := []string{sub}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, parent := range m.supertypes[cur] {
			if parent == super {
				return true
			}
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	return false
}

func (m *DefaultMatcher) acceptsAny(typ string, allowed []string) bool {
	if typ == "" || len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if m.IsSubtype(typ, a) {
			return true
		}
	}
	return false
}

func (m *DefaultMatcher) typeOf(t fol.Term) string {
	if s, ok := t.(fol.Symbol); ok && s.Type == "" {
		return m.symbolTypes[s.Name]
	}
	return fol.TypeOf(t)
}

func splitAlternatives(value string) []string {
	var out []string
	for _, p := range strings.Split(value, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
