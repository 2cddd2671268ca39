// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"testing"

	"github.com/jllopis/actionkb/pkg/fol"
)

func TestDefaultMatcherTypes(t *testing.T) {
	m := NewDefaultMatcher(
		WithSubtypes(map[string][]string{
			"cup":       {"container", "graspable"},
			"graspable": {"physobj"},
		}),
		WithSymbolTypes(map[string]string{"mug1": "cup"}),
	)

	tests := []struct {
		name    string
		pattern string
		query   string
		want    bool
	}{
		{"untyped pattern", "holding(?a,?o)", "holding(r1,cup1)", true},
		{"exact type", "holding(?a,?o:physobj)", "holding(r1,cup1:physobj)", true},
		{"transitive subtype", "holding(?a,?o:physobj)", "holding(r1,cup1:cup)", true},
		{"symbol type table", "holding(?a,?o:container)", "holding(r1,mug1)", true},
		{"untyped query symbol", "holding(?a,?o:physobj)", "holding(r1,cup1)", true},
		{"alternatives", "holding(?a,?o:location|container)", "holding(r1,cup1:cup)", true},
		{"wrong type", "holding(?a,?o:location)", "holding(r1,cup1:cup)", false},
		{"supertype is not a subtype", "holding(?a,?o:cup)", "holding(r1,thing:physobj)", false},
		{"structure mismatch", "holding(?a,?o)", "holding(r1)", false},
		{"query variable", "holding(?a,?o:physobj)", "holding(r1,?x:cup)", true},
		{"nested predicate binding", "goal(?a,?g:state)", "goal(r1,holding(r1,cup1))", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.InstanceOf(fol.MustParse(tt.pattern), fol.MustParse(tt.query))
			if got != tt.want {
				t.Fatalf("InstanceOf(%s, %s) = %v, want %v", tt.pattern, tt.query, got, tt.want)
			}
		})
	}
}

func TestDefaultMatcherAcceptsActor(t *testing.T) {
	m := NewDefaultMatcher(
		WithSubtypes(map[string][]string{"mobile_robot": {"robot"}, "robot": {"agent"}}),
		WithSymbolTypes(map[string]string{"r1": "mobile_robot"}),
	)
	if !m.AcceptsActor(fol.NewSymbol("r1"), []string{"agent"}) {
		t.Fatal("expected r1 to be accepted as an agent")
	}
	if !m.AcceptsActor(fol.NewSymbol("anyone"), []string{"agent"}) {
		t.Fatal("untyped actors are accepted")
	}
	if !m.AcceptsActor(fol.NewSymbol("dog:animal"), nil) {
		t.Fatal("no declared types accepts any actor")
	}
	if m.AcceptsActor(fol.NewSymbol("dog:animal"), []string{"agent", "robot"}) {
		t.Fatal("expected animal to be rejected")
	}
}

func TestIsSubtypeHandlesCycles(t *testing.T) {
	m := NewDefaultMatcher(WithSubtypes(map[string][]string{"a": {"b"}, "b": {"a"}}))
	if !m.IsSubtype("a", "b") || !m.IsSubtype("b", "a") {
		t.Fatal("expected mutual subtypes")
	}
	if m.IsSubtype("a", "c") {
		t.Fatal("unexpected subtype")
	}
}
