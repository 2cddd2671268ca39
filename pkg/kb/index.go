// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/fol"
)

// binding pairs a postcondition pattern with the entry that provides it.
type binding struct {
	pattern fol.Predicate
	entry   *action.Entry
}

func (b binding) same(pattern fol.Predicate, e *action.Entry) bool {
	return b.entry.Equal(e) && fol.Equal(b.pattern, pattern)
}

// entrySet keeps entries by key in insertion order.
type entrySet struct {
	order []*action.Entry
	keys  map[string]*action.Entry
}

func newEntrySet() *entrySet {
	return &entrySet{keys: map[string]*action.Entry{}}
}

func (s *entrySet) len() int { return len(s.order) }

func (s *entrySet) get(key string) (*action.Entry, bool) {
	e, ok := s.keys[key]
	return e, ok
}

func (s *entrySet) add(e *action.Entry) {
	if _, ok := s.keys[e.Key()]; ok {
		return
	}
	s.keys[e.Key()] = e
	s.order = append(s.order, e)
}

func (s *entrySet) remove(e *action.Entry) {
	if _, ok := s.keys[e.Key()]; !ok {
		return
	}
	delete(s.keys, e.Key())
	for i, cur := range s.order {
		if cur.Equal(e) {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *entrySet) snapshot() []*action.Entry {
	out := make([]*action.Entry, len(s.order))
	copy(out, s.order)
	return out
}

// insertLocked adds e to every index. An entry whose key is already active
// is left alone.
func (k *KnowledgeBase) insertLocked(e *action.Entry) Event {
	ev := Event{Op: OpInsert, Entry: e}
	if e == nil {
		k.logger.Warn("insert of nil action ignored")
		ev.Reason = "nil entry"
		return ev
	}
	if k.clearDisabledLocked(e) {
		k.logger.Debug("re-enabling disabled action", "action", e.Type())
	}
	if _, ok := k.active.get(e.Key()); ok {
		k.logger.Debug("action already present", "action", e.String())
		ev.Reason = "duplicate"
		return ev
	}
	k.warnDeprecatedTypes(e)

	k.byType[e.Type()] = append(k.byType[e.Type()], e)
	k.types.Store(e.Type(), struct{}{})
	k.registerPostconditionsLocked(e)
	k.active.add(e)
	if e.IsPrimitive() {
		k.primitive.add(e)
	} else {
		k.scripts.add(e)
	}
	k.logger.Debug("action inserted", "action", e.String())
	ev.Applied = true
	return ev
}

// removeLocked drops the active entry equal to e from every index and
// returns the stored entry.
func (k *KnowledgeBase) removeLocked(e *action.Entry) (*action.Entry, bool) {
	if e == nil {
		k.logger.Warn("remove of nil action ignored")
		return nil, false
	}
	stored, ok := k.active.get(e.Key())
	if !ok {
		k.logger.Warn("remove of unknown action ignored", "action", e.String())
		return nil, false
	}

	bucket := k.byType[stored.Type()]
	for i, cur := range bucket {
		if cur.Equal(stored) {
			bucket = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(k.byType, stored.Type())
		k.types.Delete(stored.Type())
	} else {
		k.byType[stored.Type()] = bucket
	}

	k.unregisterPostconditionsLocked(stored)
	k.active.remove(stored)
	k.primitive.remove(stored)
	k.scripts.remove(stored)
	k.logger.Debug("action removed", "action", stored.String())
	return stored, true
}

// registerPostconditionsLocked seeds a functor's list with the first binding
// and puts every later one at the front.
func (k *KnowledgeBase) registerPostconditionsLocked(e *action.Entry) {
	for _, post := range e.Postconditions() {
		name := post.Predicate.Name
		list, ok := k.byEffect[name]
		if !ok {
			k.byEffect[name] = []binding{{pattern: post.Predicate, entry: e}}
			continue
		}
		dup := false
		for _, b := range list {
			if b.same(post.Predicate, e) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		next := make([]binding, 0, len(list)+1)
		next = append(next, binding{pattern: post.Predicate, entry: e})
		k.byEffect[name] = append(next, list...)
	}
}

func (k *KnowledgeBase) unregisterPostconditionsLocked(e *action.Entry) {
	for _, post := range e.Postconditions() {
		name := post.Predicate.Name
		list, ok := k.byEffect[name]
		if !ok {
			continue
		}
		kept := list[:0:0]
		for _, b := range list {
			if !b.entry.Equal(e) {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			delete(k.byEffect, name)
		} else {
			k.byEffect[name] = kept
		}
	}
}

// clearDisabledLocked drops disabled entries equal to e.
func (k *KnowledgeBase) clearDisabledLocked(e *action.Entry) bool {
	bucket, ok := k.disabled[e.Type()]
	if !ok {
		return false
	}
	kept := bucket[:0:0]
	for _, cur := range bucket {
		if !cur.Equal(e) {
			kept = append(kept, cur)
		}
	}
	if len(kept) == len(bucket) {
		return false
	}
	if len(kept) == 0 {
		delete(k.disabled, e.Type())
	} else {
		k.disabled[e.Type()] = kept
	}
	return true
}

// warnDeprecatedTypes flags the catch-all "string" type on signature roles
// and effect arguments.
func (k *KnowledgeBase) warnDeprecatedTypes(e *action.Entry) {
	for _, r := range e.SignatureRoles() {
		if r.Type == "string" {
			k.logger.Debug("role uses deprecated string type", "action", e.Type(), "role", r.Name)
		}
	}
	for _, eff := range e.Effects() {
		for _, v := range eff.Predicate.Vars() {
			if v.Type == "string" {
				k.logger.Debug("effect uses deprecated string type", "action", e.Type(), "effect", eff.Predicate.String())
				break
			}
		}
	}
}
