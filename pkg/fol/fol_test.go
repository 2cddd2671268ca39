// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package fol

import (
	"testing"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
)

func TestParsePredicate(t *testing.T) {
	p, err := Parse("holding(?actor:agent, cup1:physobj)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "holding" || p.Arity() != 2 {
		t.Fatalf("unexpected predicate %s", p)
	}
	v, ok := p.Arg(0).(Variable)
	if !ok || v.Name != "?actor" || v.Type != "agent" {
		t.Fatalf("unexpected first arg %#v", p.Arg(0))
	}
	s, ok := p.Arg(1).(Symbol)
	if !ok || s.Name != "cup1" || s.Type != "physobj" {
		t.Fatalf("unexpected second arg %#v", p.Arg(1))
	}
	if got := p.String(); got != "holding(?actor:agent,cup1:physobj)" {
		t.Fatalf("unexpected String(): %s", got)
	}
}

func TestParseNested(t *testing.T) {
	p := MustParse("goal(robot1, holding(robot1, cup1))")
	inner, ok := p.Arg(1).(Predicate)
	if !ok {
		t.Fatalf("expected nested predicate, got %#v", p.Arg(1))
	}
	if inner.Name != "holding" || inner.Arity() != 2 {
		t.Fatalf("unexpected inner predicate %s", inner)
	}
}

func TestParseRoundTripQuoted(t *testing.T) {
	p := MustParse(`say(self, "hello there")`)
	again, err := Parse(p.String())
	if err != nil {
		t.Fatalf("reparse %s: %v", p, err)
	}
	if !Equal(p, again) {
		t.Fatalf("round trip mismatch: %s vs %s", p, again)
	}
}

func TestSymbolWithQuestionMarkStaysSymbol(t *testing.T) {
	p := NewPredicate("named", Symbol{Name: "?x", Type: "label"}, Variable{Name: "?y"})
	if got := p.String(); got != `named("?x":label,?y)` {
		t.Fatalf("unexpected rendering %s", got)
	}
	again, err := Parse(p.String())
	if err != nil {
		t.Fatalf("reparse %s: %v", p, err)
	}
	if _, ok := again.Arg(0).(Symbol); !ok {
		t.Fatalf("expected symbol, got %T", again.Arg(0))
	}
	if _, ok := again.Arg(1).(Variable); !ok {
		t.Fatalf("expected variable, got %T", again.Arg(1))
	}
	if !Equal(p, again) {
		t.Fatalf("round trip mismatch: %s vs %s", p, again)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "holding(a,", "holding(a b)", "?x", "holding(?)", `say("open)`} {
		if _, err := Parse(input); err == nil {
			t.Fatalf("expected error for %q", input)
		} else if !kberrors.HasCode(err, kberrors.CodeInvalidInput) {
			t.Fatalf("expected INVALID_INPUT for %q, got %v", input, err)
		}
	}
}

func TestParseBareName(t *testing.T) {
	p := MustParse("stop")
	if p.Name != "stop" || p.Arity() != 0 {
		t.Fatalf("unexpected predicate %#v", p)
	}
}

func TestMatchBindsPatternVariables(t *testing.T) {
	pattern := MustParse("holding(?actor, ?obj)")
	query := MustParse("holding(robot1, cup1)")
	sub, ok := Match(pattern, query)
	if !ok {
		t.Fatal("expected match")
	}
	if sub["?actor"].String() != "robot1" || sub["?obj"].String() != "cup1" {
		t.Fatalf("unexpected bindings %v", sub)
	}
	applied := sub.Apply(pattern)
	if !Equal(applied, query) {
		t.Fatalf("expected %s, got %s", query, applied)
	}
}

func TestMatchConsistency(t *testing.T) {
	pattern := MustParse("same(?x, ?x)")
	if InstanceOf(pattern, MustParse("same(a, b)")) {
		t.Fatal("repeated variable must bind consistently")
	}
	if !InstanceOf(pattern, MustParse("same(a, a)")) {
		t.Fatal("expected match for equal args")
	}
}

func TestMatchDirection(t *testing.T) {
	if !InstanceOf(MustParse("at(?a, ?loc)"), MustParse("at(robot1, kitchen)")) {
		t.Fatal("general pattern should match specific query")
	}
	if InstanceOf(MustParse("at(robot1, kitchen)"), MustParse("at(robot1, hall)")) {
		t.Fatal("different constants must not match")
	}
	if !InstanceOf(MustParse("at(robot1, kitchen)"), MustParse("at(?who, kitchen)")) {
		t.Fatal("query variables act as wildcards")
	}
	if InstanceOf(MustParse("at(?a)"), MustParse("at(a, b)")) {
		t.Fatal("arity mismatch must not match")
	}
}

func TestMatchIgnoresTypes(t *testing.T) {
	if !InstanceOf(MustParse("holding(robot1:agent, ?o)"), MustParse("holding(robot1, cup1:physobj)")) {
		t.Fatal("semantic types are not part of structural matching")
	}
}

func TestVars(t *testing.T) {
	vars := MustParse("goal(?a, holding(?a, ?o))").Vars()
	if len(vars) != 2 || vars[0].Name != "?a" || vars[1].Name != "?o" {
		t.Fatalf("unexpected vars %v", vars)
	}
}

func TestNewHelpers(t *testing.T) {
	if s := NewSymbol("robot1:agent"); s.Name != "robot1" || s.Type != "agent" {
		t.Fatalf("unexpected symbol %#v", s)
	}
	if v := NewVariable("obj"); v.Name != "?obj" {
		t.Fatalf("unexpected variable %#v", v)
	}
	p := NewPredicate("at", NewSymbol("a"))
	args := p.Args()
	args[0] = NewSymbol("b")
	if p.Arg(0).String() != "a" {
		t.Fatal("Args must return a copy")
	}
}
