// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package fol implements the first-order terms the action knowledge base
// indexes on: symbols, variables and (nestable) predicates, with a parser for
// their textual form and structural matching under variable substitution.
package fol

import (
	"strings"
)

// Term is a symbol, a variable or a predicate.
type Term interface {
	// String renders the term in the textual form accepted by Parse.
	String() string
	// Functor is the symbol/variable name or the predicate functor.
	Functor() string
	isTerm()
}

// Symbol is a constant, optionally tagged with a semantic type (robot1:agent).
type Symbol struct {
	Name string
	Type string
}

// NewSymbol returns a symbol. A "name:type" string is split on the last colon.
func NewSymbol(name string) Symbol {
	n, t := splitType(name)
	return Symbol{Name: n, Type: t}
}

func (s Symbol) String() string {
	name := quoteName(s.Name)
	if s.Type == "" {
		return name
	}
	return name + ":" + s.Type
}

// Functor returns the symbol name.
func (s Symbol) Functor() string { return s.Name }

// IsZero reports whether the symbol is unset.
func (s Symbol) IsZero() bool { return s.Name == "" }

func (Symbol) isTerm() {}

// Variable is a named placeholder. Names carry the leading '?'.
type Variable struct {
	Name string
	Type string
}

// NewVariable returns a variable, adding the '?' prefix when missing.
func NewVariable(name string) Variable {
	n, t := splitType(name)
	if !strings.HasPrefix(n, "?") {
		n = "?" + n
	}
	return Variable{Name: n, Type: t}
}

func (v Variable) String() string {
	if v.Type == "" {
		return v.Name
	}
	return v.Name + ":" + v.Type
}

// Functor returns the variable name.
func (v Variable) Functor() string { return v.Name }

func (Variable) isTerm() {}

// Predicate is a functor applied to ordered arguments. Arguments may
// themselves be predicates, as in goal(robot1, holding(robot1, cup1)).
type Predicate struct {
	Name string
	args []Term
}

// NewPredicate builds a predicate. The argument slice is copied.
func NewPredicate(name string, args ...Term) Predicate {
	cp := make([]Term, len(args))
	copy(cp, args)
	return Predicate{Name: name, args: cp}
}

// Functor returns the predicate name.
func (p Predicate) Functor() string { return p.Name }

// Arity returns the number of arguments.
func (p Predicate) Arity() int { return len(p.args) }

// Arg returns the i-th argument or nil when out of range.
func (p Predicate) Arg(i int) Term {
	if i < 0 || i >= len(p.args) {
		return nil
	}
	return p.args[i]
}

// Args returns a copy of the arguments.
func (p Predicate) Args() []Term {
	out := make([]Term, len(p.args))
	copy(out, p.args)
	return out
}

// IsZero reports whether the predicate is unset.
func (p Predicate) IsZero() bool { return p.Name == "" && len(p.args) == 0 }

// Vars returns the distinct variables of the predicate in order of appearance.
func (p Predicate) Vars() []Variable {
	seen := map[string]bool{}
	var out []Variable
	var walk func(t Term)
	walk = func(t Term) {
		switch v := t.(type) {
		case Variable:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v)
			}
		case Predicate:
			for _, a := range v.args {
				walk(a)
			}
		}
	}
	walk(p)
	return out
}

func (p Predicate) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('(')
	for i, a := range p.args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (Predicate) isTerm() {}

// Equal reports structural equality, including semantic types.
func Equal(a, b Term) bool {
	switch x := a.(type) {
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x == y
	case Variable:
		y, ok := b.(Variable)
		return ok && x == y
	case Predicate:
		y, ok := b.(Predicate)
		if !ok || x.Name != y.Name || len(x.args) != len(y.args) {
			return false
		}
		for i := range x.args {
			if !Equal(x.args[i], y.args[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// TypeOf returns the semantic type tag of a symbol or variable.
func TypeOf(t Term) string {
	switch v := t.(type) {
	case Symbol:
		return v.Type
	case Variable:
		return v.Type
	default:
		return ""
	}
}

// quoteName quotes names the parser would otherwise split or read as a variable.
func quoteName(name string) string {
	if name == "" || strings.HasPrefix(name, "?") || strings.ContainsAny(name, "(),:\" \t\r\n") {
		return `"` + name + `"`
	}
	return name
}

func splitType(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}
