// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"fmt"
	"strings"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
	"github.com/jllopis/actionkb/pkg/fol"
)

// Builder assembles an Entry. Errors are collected and reported by Build.
type Builder struct {
	typ         string
	description string
	roles       []Role
	primitive   bool
	effects     []Effect
	variants    []fol.Predicate
	errs        []string
}

// NewBuilder starts a definition for the given action type.
func NewBuilder(typ string) *Builder {
	return &Builder{typ: strings.TrimSpace(typ)}
}

// Description sets the human-readable description.
func (b *Builder) Description(desc string) *Builder {
	b.description = strings.TrimSpace(desc)
	return b
}

// Primitive marks the action as directly executable.
func (b *Builder) Primitive(primitive bool) *Builder {
	b.primitive = primitive
	return b
}

// Role appends a role. Names get a leading '?' when missing.
func (b *Builder) Role(name string, kind RoleKind, typ string) *Builder {
	name = strings.TrimSpace(name)
	if name != "" && !strings.HasPrefix(name, "?") {
		name = "?" + name
	}
	b.roles = append(b.roles, Role{Name: name, Kind: kind, Type: strings.TrimSpace(typ)})
	return b
}

// Input appends an input role.
func (b *Builder) Input(name, typ string) *Builder { return b.Role(name, RoleInput, typ) }

// Output appends an output role.
func (b *Builder) Output(name, typ string) *Builder { return b.Role(name, RoleOutput, typ) }

// Local appends a local role.
func (b *Builder) Local(name, typ string) *Builder { return b.Role(name, RoleLocal, typ) }

// Effect appends an effect.
func (b *Builder) Effect(pred fol.Predicate, kind EffectKind, autoGenerated bool) *Builder {
	b.effects = append(b.effects, Effect{Predicate: pred, Kind: kind, AutoGenerated: autoGenerated})
	return b
}

// Postcondition appends a success effect parsed from text.
func (b *Builder) Postcondition(text string) *Builder {
	p, err := fol.Parse(text)
	if err != nil {
		b.errs = append(b.errs, fmt.Sprintf("postcondition %q: %v", text, err))
		return b
	}
	return b.Effect(p, EffectSuccess, false)
}

// Signature appends a signature variant parsed from text.
func (b *Builder) Signature(text string) *Builder {
	p, err := fol.Parse(text)
	if err != nil {
		b.errs = append(b.errs, fmt.Sprintf("signature %q: %v", text, err))
		return b
	}
	return b.SignatureVariant(p)
}

// SignatureVariant appends a signature variant.
func (b *Builder) SignatureVariant(p fol.Predicate) *Builder {
	b.variants = append(b.variants, p)
	return b
}

// Build validates the definition and returns the immutable Entry.
func (b *Builder) Build() (*Entry, error) {
	errs := append([]string(nil), b.errs...)
	if b.typ == "" {
		errs = append(errs, "type is required")
	}
	seen := map[string]bool{}
	for i, r := range b.roles {
		switch {
		case r.Name == "" || r.Name == "?":
			errs = append(errs, fmt.Sprintf("role %d: name is required", i))
		case seen[r.Name]:
			errs = append(errs, fmt.Sprintf("role %s: duplicate name", r.Name))
		}
		seen[r.Name] = true
		if !r.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("role %s: unknown kind %q", r.Name, r.Kind))
		}
	}
	for i, eff := range b.effects {
		if eff.Predicate.Name == "" {
			errs = append(errs, fmt.Sprintf("effect %d: predicate is required", i))
		}
		if !eff.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("effect %d: unknown kind %q", i, eff.Kind))
		}
	}
	for _, v := range b.variants {
		if v.Name != b.typ {
			errs = append(errs, fmt.Sprintf("signature %s: functor must be %q", v, b.typ))
		}
		if v.Arity() == 0 {
			errs = append(errs, fmt.Sprintf("signature %s: actor argument is required", v))
		}
	}
	if len(errs) > 0 {
		return nil, kberrors.New(kberrors.CodeInvalidEntry, "invalid action definition", fmt.Errorf("%s", strings.Join(errs, "; "))).
			WithContext("type", b.typ)
	}

	roles := make([]Role, len(b.roles))
	copy(roles, b.roles)
	effects := make([]Effect, len(b.effects))
	copy(effects, b.effects)
	variants := make([]fol.Predicate, len(b.variants))
	copy(variants, b.variants)
	return &Entry{
		typ:         b.typ,
		description: b.description,
		roles:       roles,
		primitive:   b.primitive,
		effects:     effects,
		variants:    variants,
		key:         entryKey(b.typ, roles, b.primitive),
	}, nil
}

// MustBuild is Build for fixed definitions; it panics on error.
func (b *Builder) MustBuild() *Entry {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}
