// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"reflect"

	"github.com/jllopis/actionkb/pkg/fol"
)

// Descriptor is the plain-data form of an Entry. It is what definition files
// contain and what remote callers receive.
type Descriptor struct {
	Type        string             `json:"type" yaml:"type"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Primitive   bool               `json:"primitive" yaml:"primitive"`
	Roles       []RoleDescriptor   `json:"roles,omitempty" yaml:"roles,omitempty"`
	Effects     []EffectDescriptor `json:"effects,omitempty" yaml:"effects,omitempty"`
	Signatures  []string           `json:"signatures,omitempty" yaml:"signatures,omitempty"`
}

// RoleDescriptor is the plain-data form of a Role.
type RoleDescriptor struct {
	Name string   `json:"name" yaml:"name"`
	Kind RoleKind `json:"kind" yaml:"kind"`
	Type string   `json:"type,omitempty" yaml:"type,omitempty"`
}

// EffectDescriptor is the plain-data form of an Effect. Kind defaults to success.
type EffectDescriptor struct {
	Predicate     string     `json:"predicate" yaml:"predicate"`
	Kind          EffectKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	AutoGenerated bool       `json:"auto_generated,omitempty" yaml:"auto_generated,omitempty"`
}

// Describe converts the entry to plain data. Signatures lists every variant.
func (e *Entry) Describe() Descriptor {
	d := Descriptor{
		Type:        e.typ,
		Description: e.description,
		Primitive:   e.primitive,
	}
	for _, r := range e.roles {
		d.Roles = append(d.Roles, RoleDescriptor{Name: r.Name, Kind: r.Kind, Type: r.Type})
	}
	for _, eff := range e.effects {
		d.Effects = append(d.Effects, EffectDescriptor{
			Predicate:     eff.Predicate.String(),
			Kind:          eff.Kind,
			AutoGenerated: eff.AutoGenerated,
		})
	}
	for _, v := range e.variants {
		d.Signatures = append(d.Signatures, v.String())
	}
	return d
}

// SameDefinition reports whether o describes exactly what e does, down to
// descriptions and effect order.
func (e *Entry) SameDefinition(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return reflect.DeepEqual(e.Describe(), o.Describe())
}

// Describe converts entries to plain data.
func Describe(entries []*Entry) []Descriptor {
	out := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Describe())
	}
	return out
}

// Build validates the descriptor and returns the Entry it describes.
func (d Descriptor) Build() (*Entry, error) {
	b := NewBuilder(d.Type).
		Description(d.Description).
		Primitive(d.Primitive)
	for _, r := range d.Roles {
		kind := r.Kind
		if kind == "" {
			kind = RoleInput
		}
		b.Role(r.Name, kind, r.Type)
	}
	for _, eff := range d.Effects {
		p, err := fol.Parse(eff.Predicate)
		if err != nil {
			b.errs = append(b.errs, "effect "+eff.Predicate+": "+err.Error())
			continue
		}
		kind := eff.Kind
		if kind == "" {
			kind = EffectSuccess
		}
		b.Effect(p, kind, eff.AutoGenerated)
	}
	for _, s := range d.Signatures {
		b.Signature(s)
	}
	return b.Build()
}
