// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/fol"
)

// Insert adds e to the knowledge base. A disabled entry equal to e is
// cleared, which makes Insert the way to re-enable an action. Inserting an
// entry whose key is already active changes nothing. It reports whether e
// was added.
func (k *KnowledgeBase) Insert(e *action.Entry) bool {
	k.mu.Lock()
	ev := k.insertLocked(e)
	k.commit(ev)
	return ev.Applied
}

// InsertAll inserts entries in order under one lock and returns how many
// were added.
func (k *KnowledgeBase) InsertAll(entries []*action.Entry) int {
	k.mu.Lock()
	events := make([]Event, 0, len(entries))
	added := 0
	for _, e := range entries {
		ev := k.insertLocked(e)
		if ev.Applied {
			added++
		}
		events = append(events, ev)
	}
	k.commit(events...)
	return added
}

// Replace swaps the definitions in prev for those in next under one lock.
// Entries whose key and definition appear in both are left alone, active or
// disabled, so their position in the effect index is kept. Entries only in
// prev, or whose definition changed, are removed; the rest of next is
// inserted. It returns how many entries were removed and added.
func (k *KnowledgeBase) Replace(prev, next []*action.Entry) (removed, added int) {
	nextByKey := make(map[string]*action.Entry, len(next))
	for _, e := range next {
		if e == nil {
			continue
		}
		if _, ok := nextByKey[e.Key()]; !ok {
			nextByKey[e.Key()] = e
		}
	}
	unchanged := make(map[string]bool, len(prev))
	for _, e := range prev {
		if e == nil {
			continue
		}
		if n, ok := nextByKey[e.Key()]; ok && n.SameDefinition(e) {
			unchanged[e.Key()] = true
		}
	}

	k.mu.Lock()
	events := make([]Event, 0, len(prev)+len(next))
	for _, e := range prev {
		if e == nil || unchanged[e.Key()] {
			continue
		}
		if stored, ok := k.active.get(e.Key()); ok {
			k.removeLocked(stored)
			events = append(events, Event{Op: OpRemove, Entry: stored, Applied: true})
			removed++
		}
	}
	for _, e := range next {
		if e == nil || unchanged[e.Key()] {
			continue
		}
		ev := k.insertLocked(e)
		if ev.Applied {
			added++
		}
		events = append(events, ev)
	}
	k.commit(events...)
	return removed, added
}

// Remove drops the active entry equal to e. It reports whether anything was
// removed.
func (k *KnowledgeBase) Remove(e *action.Entry) bool {
	k.mu.Lock()
	stored, ok := k.removeLocked(e)
	ev := Event{Op: OpRemove, Entry: e, Applied: ok}
	if ok {
		ev.Entry = stored
	} else {
		ev.Reason = "not active"
	}
	k.commit(ev)
	return ok
}

// Disable moves the active entry equal to e to the disabled map. Entries
// that are not active are left alone.
func (k *KnowledgeBase) Disable(e *action.Entry) bool {
	k.mu.Lock()
	ev := k.disableLocked(e)
	k.commit(ev)
	return ev.Applied
}

func (k *KnowledgeBase) disableLocked(e *action.Entry) Event {
	ev := Event{Op: OpDisable, Entry: e}
	if e == nil {
		k.logger.Warn("disable of nil action ignored")
		ev.Reason = "nil entry"
		return ev
	}
	if _, ok := k.active.get(e.Key()); !ok {
		k.logger.Warn("disable of inactive action ignored", "action", e.String())
		ev.Reason = "not active"
		return ev
	}
	stored, _ := k.removeLocked(e)
	k.disabled[stored.Type()] = append(k.disabled[stored.Type()], stored)
	k.logger.Debug("action disabled", "action", stored.String())
	ev.Entry = stored
	ev.Applied = true
	return ev
}

// RemoveActionsWithSignature removes every entry ActionsBySignature would
// return for sig and reports how many were removed.
func (k *KnowledgeBase) RemoveActionsWithSignature(sig fol.Predicate) int {
	k.mu.Lock()
	matches := k.bySignatureLocked(sig)
	events := make([]Event, 0, len(matches))
	for _, e := range matches {
		stored, ok := k.removeLocked(e)
		if ok {
			events = append(events, Event{Op: OpRemove, Entry: stored, Applied: true})
		}
	}
	k.commit(events...)
	if len(events) == 0 {
		k.logger.Warn("no actions removed for signature", "signature", sig.String())
	}
	return len(events)
}

// RemoveScripts removes every active script entry and reports how many were
// removed. Primitives and disabled entries are kept.
func (k *KnowledgeBase) RemoveScripts() int {
	k.mu.Lock()
	scripts := k.scripts.snapshot()
	events := make([]Event, 0, len(scripts))
	for _, e := range scripts {
		if stored, ok := k.removeLocked(e); ok {
			events = append(events, Event{Op: OpRemove, Entry: stored, Applied: true})
		}
	}
	k.commit(events...)
	return len(events)
}

// AllActions returns every active entry in insertion order.
func (k *KnowledgeBase) AllActions() []*action.Entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active.snapshot()
}

// Primitives returns the active primitive entries in insertion order.
func (k *KnowledgeBase) Primitives() []*action.Entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.primitive.snapshot()
}

// Scripts returns the active script entries in insertion order.
func (k *KnowledgeBase) Scripts() []*action.Entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scripts.snapshot()
}

// DisabledActions returns every disabled entry, grouped by type in type name
// order and oldest first within a type.
func (k *KnowledgeBase) DisabledActions() []*action.Entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]*action.Entry, 0, k.disabledLenLocked())
	for _, typ := range sortedKeys(k.disabled) {
		out = append(out, k.disabled[typ]...)
	}
	return out
}
