// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package action defines the action entries stored in the knowledge base,
// their equality contract, and the loader that builds them from definition
// files.
package action

import (
	"strconv"
	"strings"

	"github.com/jllopis/actionkb/pkg/fol"
)

// ActorRole is the conventional name of the role holding the acting agent.
const ActorRole = "?actor"

// RoleKind is the semantic kind of a parameter role.
type RoleKind string

const (
	RoleInput  RoleKind = "input"
	RoleOutput RoleKind = "output"
	RoleLocal  RoleKind = "local"
)

// Valid reports whether k is a known role kind.
func (k RoleKind) Valid() bool {
	switch k {
	case RoleInput, RoleOutput, RoleLocal:
		return true
	}
	return false
}

// Role is a named, typed parameter of an action.
type Role struct {
	Name string
	Kind RoleKind
	Type string
}

// IsLocal reports whether the role is internal to the action body.
func (r Role) IsLocal() bool { return r.Kind == RoleLocal }

// EffectKind says when an effect holds.
type EffectKind string

const (
	// EffectSuccess holds after successful execution.
	EffectSuccess EffectKind = "success"
	// EffectAlways holds after execution regardless of outcome.
	EffectAlways EffectKind = "always"
	// EffectFailure holds after a failed execution.
	EffectFailure EffectKind = "failure"
	// EffectNonPerf holds when the action was not performed.
	EffectNonPerf EffectKind = "nonperf"
)

// Valid reports whether k is a known effect kind.
func (k EffectKind) Valid() bool {
	switch k {
	case EffectSuccess, EffectAlways, EffectFailure, EffectNonPerf:
		return true
	}
	return false
}

// Effect is a predicate an action brings about.
type Effect struct {
	Predicate     fol.Predicate
	Kind          EffectKind
	AutoGenerated bool
}

// IsPostcondition reports whether the effect is indexed for goal lookup.
func (e Effect) IsPostcondition() bool {
	return e.Kind == EffectSuccess || e.Kind == EffectAlways
}

// Entry is one action definition. It is immutable once built; accessors
// return copies.
type Entry struct {
	typ         string
	description string
	roles       []Role
	primitive   bool
	effects     []Effect
	variants    []fol.Predicate
	key         string
}

// Type returns the action name.
func (e *Entry) Type() string { return e.typ }

// Description returns the optional human-readable description.
func (e *Entry) Description() string { return e.description }

// IsPrimitive reports whether the action is directly executable.
func (e *Entry) IsPrimitive() bool { return e.primitive }

// Roles returns the ordered parameter roles.
func (e *Entry) Roles() []Role {
	out := make([]Role, len(e.roles))
	copy(out, e.roles)
	return out
}

// Role returns the role with the given name.
func (e *Entry) Role(name string) (Role, bool) {
	for _, r := range e.roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// SignatureRoles returns the non-local roles as they appear in the call
// signature: the actor role first, the rest in declaration order.
func (e *Entry) SignatureRoles() []Role {
	out := make([]Role, 0, len(e.roles))
	if actor, ok := e.Role(ActorRole); ok {
		out = append(out, actor)
	}
	for _, r := range e.roles {
		if !r.IsLocal() && r.Name != ActorRole {
			out = append(out, r)
		}
	}
	return out
}

// InputRoles returns the input roles in declaration order.
func (e *Entry) InputRoles() []Role {
	out := make([]Role, 0, len(e.roles))
	for _, r := range e.roles {
		if r.Kind == RoleInput {
			out = append(out, r)
		}
	}
	return out
}

// ActorTypes returns the declared types of the actor role. Empty means any
// actor is acceptable.
func (e *Entry) ActorTypes() []string {
	r, ok := e.Role(ActorRole)
	if !ok || r.Type == "" {
		return nil
	}
	return splitTypes(r.Type)
}

// Effects returns all declared effects.
func (e *Entry) Effects() []Effect {
	out := make([]Effect, len(e.effects))
	copy(out, e.effects)
	return out
}

// Postconditions returns the effects indexed for goal lookup.
func (e *Entry) Postconditions() []Effect {
	var out []Effect
	for _, eff := range e.effects {
		if eff.IsPostcondition() {
			out = append(out, eff)
		}
	}
	return out
}

// Signature returns the canonical call signature type(actor, arg1..argN)
// built from the non-local roles.
func (e *Entry) Signature() fol.Predicate {
	args := make([]fol.Term, 0, len(e.roles)+1)
	if _, ok := e.Role(ActorRole); !ok {
		args = append(args, fol.Variable{Name: ActorRole})
	}
	for _, r := range e.SignatureRoles() {
		args = append(args, fol.Variable{Name: r.Name, Type: r.Type})
	}
	return fol.NewPredicate(e.typ, args...)
}

// SignatureVariants returns every callable signature. When none were
// declared the canonical signature is the only variant.
func (e *Entry) SignatureVariants() []fol.Predicate {
	if len(e.variants) == 0 {
		return []fol.Predicate{e.Signature()}
	}
	out := make([]fol.Predicate, len(e.variants))
	copy(out, e.variants)
	return out
}

// Key is the identity used for duplicate suppression: type name, ordered
// role types and the primitive flag.
func (e *Entry) Key() string { return e.key }

// Equal compares entries by Key.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.key == other.key
}

func (e *Entry) String() string {
	if e == nil {
		return "<nil>"
	}
	kind := "script"
	if e.primitive {
		kind = "primitive"
	}
	return e.Signature().String() + " [" + kind + "]"
}

func entryKey(typ string, roles []Role, primitive bool) string {
	var b strings.Builder
	b.WriteString(typ)
	b.WriteByte('|')
	for i, r := range roles {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.Type)
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(primitive))
	return b.String()
}

// splitTypes reads "agent|robot" style alternatives.
func splitTypes(value string) []string {
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
