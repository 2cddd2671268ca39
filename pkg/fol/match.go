// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package fol

// Substitution maps variable names to the terms they were bound to.
type Substitution map[string]Term

// Apply replaces bound variables in t.
func (s Substitution) Apply(t Term) Term {
	switch v := t.(type) {
	case Variable:
		if bound, ok := s[v.Name]; ok {
			return bound
		}
		return v
	case Predicate:
		args := make([]Term, len(v.args))
		for i, a := range v.args {
			args[i] = s.Apply(a)
		}
		return Predicate{Name: v.Name, args: args}
	default:
		return t
	}
}

// Match reports whether query is an instance of pattern: whether pattern's
// variables can be bound so that it equals query. Variables in query act as
// wildcards, bound consistently on their own side. Symbol types are not
// compared; type acceptance is a separate check.
func Match(pattern, query Term) (Substitution, bool) {
	m := matcher{pattern: Substitution{}, query: Substitution{}}
	if !m.match(pattern, query) {
		return nil, false
	}
	return m.pattern, true
}

// InstanceOf is Match without the bindings.
func InstanceOf(pattern, query Term) bool {
	_, ok := Match(pattern, query)
	return ok
}

type matcher struct {
	pattern Substitution
	query   Substitution
}

func (m *matcher) match(p, q Term) bool {
	if pv, ok := p.(Variable); ok {
		if bound, ok := m.pattern[pv.Name]; ok {
			return sameShape(bound, q)
		}
		m.pattern[pv.Name] = q
		return true
	}
	if qv, ok := q.(Variable); ok {
		if bound, ok := m.query[qv.Name]; ok {
			return sameShape(p, bound)
		}
		m.query[qv.Name] = p
		return true
	}
	switch x := p.(type) {
	case Symbol:
		y, ok := q.(Symbol)
		return ok && x.Name == y.Name
	case Predicate:
		y, ok := q.(Predicate)
		if !ok || x.Name != y.Name || len(x.args) != len(y.args) {
			return false
		}
		for i := range x.args {
			if !m.match(x.args[i], y.args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// sameShape compares terms ignoring semantic types.
func sameShape(a, b Term) bool {
	switch x := a.(type) {
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x.Name == y.Name
	case Variable:
		y, ok := b.(Variable)
		return ok && x.Name == y.Name
	case Predicate:
		y, ok := b.(Predicate)
		if !ok || x.Name != y.Name || len(x.args) != len(y.args) {
			return false
		}
		for i := range x.args {
			if !sameShape(x.args[i], y.args[i]) {
				return false
			}
		}
		return true
	}
	return false
}
