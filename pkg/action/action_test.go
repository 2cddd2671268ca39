// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"os"
	"path/filepath"
	"testing"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
	"github.com/jllopis/actionkb/pkg/fol"
)

func mustParse(t *testing.T, text string) fol.Predicate {
	t.Helper()
	p, err := fol.Parse(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return p
}

func pickUp(t *testing.T) *Entry {
	t.Helper()
	e, err := NewBuilder("pickUp").
		Primitive(true).
		Input("?actor", "agent").
		Input("?obj", "physobj").
		Local("?grip", "grasp").
		Postcondition("holding(?actor, ?obj)").
		Effect(mustParse(t, "touching(?actor, ?obj)"), EffectAlways, true).
		Effect(mustParse(t, "dropped(?obj)"), EffectFailure, false).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return e
}

func TestBuildEntry(t *testing.T) {
	e := pickUp(t)
	if e.Type() != "pickUp" || !e.IsPrimitive() {
		t.Fatalf("unexpected entry %s", e)
	}
	if got := len(e.SignatureRoles()); got != 2 {
		t.Fatalf("expected 2 signature roles, got %d", got)
	}
	if got := len(e.Postconditions()); got != 2 {
		t.Fatalf("expected success and always effects as postconditions, got %d", got)
	}
	if got := e.Signature().String(); got != "pickUp(?actor:agent,?obj:physobj)" {
		t.Fatalf("unexpected signature %s", got)
	}
	if types := e.ActorTypes(); len(types) != 1 || types[0] != "agent" {
		t.Fatalf("unexpected actor types %v", types)
	}
}

func TestSignatureWithoutActorRole(t *testing.T) {
	e := NewBuilder("beep").Primitive(true).MustBuild()
	if got := e.Signature().String(); got != "beep(?actor)" {
		t.Fatalf("unexpected signature %s", got)
	}
	if e.ActorTypes() != nil {
		t.Fatal("expected no actor types")
	}
	if got := len(e.SignatureVariants()); got != 1 {
		t.Fatalf("expected canonical signature as only variant, got %d", got)
	}
}

func TestSignaturePutsActorFirst(t *testing.T) {
	e := NewBuilder("give").
		Input("?obj", "physobj").
		Input("?actor", "agent").
		Local("?hand", "gripper").
		Output("?receipt", "token").
		MustBuild()
	if got := e.Signature().String(); got != "give(?actor:agent,?obj:physobj,?receipt:token)" {
		t.Fatalf("unexpected signature %s", got)
	}
	roles := e.SignatureRoles()
	if len(roles) != 3 || roles[0].Name != ActorRole || roles[1].Name != "?obj" {
		t.Fatalf("unexpected signature roles %+v", roles)
	}
}

func TestEntryEquality(t *testing.T) {
	a := pickUp(t)
	b := NewBuilder("pickUp").Primitive(true).
		Input("?actor", "agent").Input("?obj", "physobj").Local("?grip", "grasp").
		MustBuild()
	if !a.Equal(b) {
		t.Fatal("entries with same type, role types and primitive flag must be equal")
	}
	c := NewBuilder("pickUp").Primitive(false).
		Input("?actor", "agent").Input("?obj", "physobj").Local("?grip", "grasp").
		MustBuild()
	if a.Equal(c) {
		t.Fatal("primitive flag is part of identity")
	}
	d := NewBuilder("pickUp").Primitive(true).
		Input("?actor", "agent").Input("?obj", "container").Local("?grip", "grasp").
		MustBuild()
	if a.Equal(d) {
		t.Fatal("role types are part of identity")
	}
	var nilEntry *Entry
	if nilEntry.Equal(a) || !nilEntry.Equal(nil) {
		t.Fatal("unexpected nil equality")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	e := pickUp(t)
	roles := e.Roles()
	roles[0].Type = "mutated"
	if r, _ := e.Role("?actor"); r.Type != "agent" {
		t.Fatal("Roles must return a copy")
	}
	effects := e.Effects()
	effects[0].Kind = EffectFailure
	if e.Effects()[0].Kind != EffectSuccess {
		t.Fatal("Effects must return a copy")
	}
}

func TestBuildValidation(t *testing.T) {
	_, err := NewBuilder("").
		Role("?x", "sideways", "thing").
		Input("?x", "thing").
		Postcondition("holding(").
		Signature("other(?a)").
		Build()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !kberrors.HasCode(err, kberrors.CodeInvalidEntry) {
		t.Fatalf("expected INVALID_ENTRY, got %v", err)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	e := NewBuilder("fetch").
		Description("fetch an object").
		Input("?actor", "agent").
		Input("?obj", "physobj").
		Postcondition("holding(?actor, ?obj)").
		Signature("fetch(?actor:agent, ?obj:physobj)").
		Signature("fetch(?actor:agent, ?obj:container)").
		MustBuild()
	d := e.Describe()
	if len(d.Signatures) != 2 {
		t.Fatalf("expected 2 signatures, got %v", d.Signatures)
	}
	again, err := d.Build()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !again.Equal(e) {
		t.Fatalf("expected equal entries, got %s vs %s", again, e)
	}
	if again.Description() != "fetch an object" {
		t.Fatalf("unexpected description %q", again.Description())
	}
	if got := len(again.SignatureVariants()); got != 2 {
		t.Fatalf("expected 2 variants, got %d", got)
	}
}

func TestParseYAML(t *testing.T) {
	payload := []byte(`
actions:
  - type: pickUp
    primitive: true
    roles:
      - {name: "?actor", kind: input, type: agent}
      - {name: "?obj", kind: input, type: physobj}
    effects:
      - predicate: "holding(?actor,?obj)"
  - type: fetch
    roles:
      - {name: actor, type: agent}
      - {name: obj, type: physobj}
    effects:
      - predicate: "holding(?actor,?obj)"
      - predicate: "tired(?actor)"
        kind: always
        auto_generated: true
`)
	entries, err := ParseYAML(payload)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].IsPrimitive() {
		t.Fatal("fetch should be a script")
	}
	if r, ok := entries[1].Role("?obj"); !ok || r.Kind != RoleInput {
		t.Fatalf("expected default input kind and ? prefix, got %#v", r)
	}
	if !entries[1].Effects()[1].AutoGenerated {
		t.Fatal("expected auto-generated flag")
	}
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{"actions":[{"type":"x","effects":[{"predicate":"bad("}]}]}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !kberrors.HasCode(err, kberrors.CodeInvalidEntry) {
		t.Fatalf("expected INVALID_ENTRY, got %v", err)
	}
	if _, err := ParseJSON(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestLoadDirKeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("b.json", `{"actions":[{"type":"second","primitive":true}]}`)
	write("a.yaml", "actions:\n  - type: first\n    primitive: true\n")
	write("c.defs", "actions:\n  - type: third\n")
	write("notes.txt", "ignored")

	entries, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type() != "first" || entries[1].Type() != "second" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Type(), entries[1].Type())
	}

	third, err := LoadFile(filepath.Join(dir, "c.defs"))
	if err != nil {
		t.Fatalf("load file with unknown extension: %v", err)
	}
	if len(third) != 1 || third[0].Type() != "third" {
		t.Fatalf("unexpected entries %v", third)
	}

	all, err := LoadPaths([]string{dir, filepath.Join(dir, "c.defs")})
	if err != nil {
		t.Fatalf("load paths: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
}

func TestMarshalYAML(t *testing.T) {
	data, err := MarshalYAML([]*Entry{pickUp(t)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	entries, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("parse marshalled: %v", err)
	}
	if len(entries) != 1 || !entries[0].Equal(pickUp(t)) {
		t.Fatalf("unexpected entries %v", entries)
	}
}
