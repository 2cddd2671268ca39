// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/fol"
)

// Lookup kinds reported to Metrics.
const (
	LookupType      = "type"
	LookupEffect    = "effect"
	LookupSignature = "signature"
	LookupDisabled  = "disabled"
)

// Action returns the most recently inserted entry of the given type.
func (k *KnowledgeBase) Action(typ string) (*action.Entry, bool) {
	k.mu.Lock()
	bucket := k.byType[typ]
	var found *action.Entry
	if len(bucket) > 0 {
		found = bucket[len(bucket)-1]
	}
	k.mu.Unlock()

	if found == nil {
		k.logger.Warn("no action for type", "type", typ)
		k.recordLookup(LookupType, 0)
		return nil, false
	}
	k.recordLookup(LookupType, 1)
	return found, true
}

// ActionWithRoles returns the most recent entry of the given type whose
// signature role types equal roleTypes, in order.
func (k *KnowledgeBase) ActionWithRoles(typ string, roleTypes []string) (*action.Entry, bool) {
	return k.findInBucket(typ, func(e *action.Entry) bool {
		return sameTypes(e.SignatureRoles(), roleTypes)
	}, "role_types", roleTypes)
}

// ActionForActor returns the most recent entry of the given type whose input
// role types equal inputRoleTypes and which actor may perform.
func (k *KnowledgeBase) ActionForActor(typ string, actor fol.Symbol, inputRoleTypes []string) (*action.Entry, bool) {
	return k.findInBucket(typ, func(e *action.Entry) bool {
		return sameTypes(e.InputRoles(), inputRoleTypes) && k.matcher.AcceptsActor(actor, e.ActorTypes())
	}, "input_role_types", inputRoleTypes, "actor", actor.String())
}

func (k *KnowledgeBase) findInBucket(typ string, accept func(*action.Entry) bool, logArgs ...any) (*action.Entry, bool) {
	k.mu.Lock()
	bucket := k.byType[typ]
	var found *action.Entry
	for i := len(bucket) - 1; i >= 0; i-- {
		if accept(bucket[i]) {
			found = bucket[i]
			break
		}
	}
	k.mu.Unlock()

	if found == nil {
		k.logger.Warn("no action for type", append([]any{"type", typ}, logArgs...)...)
		k.recordLookup(LookupType, 0)
		return nil, false
	}
	k.recordLookup(LookupType, 1)
	return found, true
}

// Exists reports whether any active entry has the given type. It does not
// take the knowledge base lock.
func (k *KnowledgeBase) Exists(typ string) bool {
	_, ok := k.types.Load(typ)
	return ok
}

// ActionsByEffect returns the entries with a postcondition of which goal is
// an instance, most recently registered first. When actor is non-nil only
// entries the actor may perform are kept.
func (k *KnowledgeBase) ActionsByEffect(actor *fol.Symbol, goal fol.Predicate) []*action.Entry {
	k.mu.Lock()
	out := k.filterLocked(k.byEffect[goal.Name], actor, goal)
	k.mu.Unlock()

	if len(out) == 0 {
		k.logger.Debug("no actions for effect", "goal", goal.String())
	}
	k.recordLookup(LookupEffect, len(out))
	return out
}

// ActionsBySignature returns the entries of sig's type with a signature
// variant of which sig is an instance. The first argument of sig, when it is
// a symbol, is the actor.
func (k *KnowledgeBase) ActionsBySignature(sig fol.Predicate) []*action.Entry {
	k.mu.Lock()
	out := k.bySignatureLocked(sig)
	k.mu.Unlock()

	if len(out) == 0 {
		k.logger.Debug("no actions for signature", "signature", sig.String())
	}
	k.recordLookup(LookupSignature, len(out))
	return out
}

func (k *KnowledgeBase) bySignatureLocked(sig fol.Predicate) []*action.Entry {
	bucket := k.byType[sig.Name]
	if len(bucket) == 0 {
		return nil
	}
	var candidates []binding
	for _, e := range bucket {
		for _, v := range e.SignatureVariants() {
			candidates = append(candidates, binding{pattern: v, entry: e})
		}
	}
	var actor *fol.Symbol
	if s, ok := sig.Arg(0).(fol.Symbol); ok {
		actor = &s
	}
	return k.filterLocked(candidates, actor, sig)
}

// filterLocked keeps candidates whose pattern query instantiates and whose
// entry accepts actor. Each entry appears once, at its first position.
func (k *KnowledgeBase) filterLocked(candidates []binding, actor *fol.Symbol, query fol.Predicate) []*action.Entry {
	var out []*action.Entry
	seen := map[string]bool{}
	for _, c := range candidates {
		if seen[c.entry.Key()] {
			continue
		}
		if !k.matcher.InstanceOf(c.pattern, query) {
			continue
		}
		if actor != nil && !k.matcher.AcceptsActor(*actor, c.entry.ActorTypes()) {
			continue
		}
		seen[c.entry.Key()] = true
		out = append(out, c.entry)
	}
	return out
}

// ActionExists reports whether some active entry can achieve goal. A binary
// goal(actor, inner) is read as inner scoped to actor; anything else is the
// effect itself. An entry whose signature goal instantiates also counts.
func (k *KnowledgeBase) ActionExists(goal fol.Predicate) bool {
	var actor *fol.Symbol
	effect := goal
	if goal.Name == "goal" && goal.Arity() == 2 {
		if inner, ok := goal.Arg(1).(fol.Predicate); ok {
			effect = inner
			if s, ok := goal.Arg(0).(fol.Symbol); ok {
				actor = &s
			}
		}
	}
	k.mu.Lock()
	byEffect := k.filterLocked(k.byEffect[effect.Name], actor, effect)
	var bySignature []*action.Entry
	if len(byEffect) == 0 {
		bySignature = k.bySignatureLocked(goal)
	}
	k.mu.Unlock()

	k.recordLookup(LookupEffect, len(byEffect))
	if len(byEffect) > 0 {
		return true
	}
	k.recordLookup(LookupSignature, len(bySignature))
	if len(bySignature) == 0 {
		k.logger.Debug("no action can achieve goal", "goal", goal.String())
		return false
	}
	return true
}

// ActionSignaturesForName returns the canonical signature of every active
// entry with the given type, oldest first.
func (k *KnowledgeBase) ActionSignaturesForName(name string) []fol.Predicate {
	k.mu.Lock()
	defer k.mu.Unlock()
	bucket := k.byType[name]
	out := make([]fol.Predicate, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e.Signature())
	}
	return out
}

// DisabledAction returns the most recently disabled entry of the given type.
func (k *KnowledgeBase) DisabledAction(typ string) (*action.Entry, bool) {
	k.mu.Lock()
	bucket := k.disabled[typ]
	var found *action.Entry
	if len(bucket) > 0 {
		found = bucket[len(bucket)-1]
	}
	k.mu.Unlock()

	if found == nil {
		k.logger.Warn("no disabled action for type", "type", typ)
		k.recordLookup(LookupDisabled, 0)
		return nil, false
	}
	k.recordLookup(LookupDisabled, 1)
	return found, true
}

func sameTypes(roles []action.Role, types []string) bool {
	if len(roles) != len(types) {
		return false
	}
	for i, r := range roles {
		if r.Type != types[i] {
			return false
		}
	}
	return true
}
