// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"fmt"
	"sort"
	"strings"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
)

// Verify checks the index invariants and returns an INCONSISTENT_STATE error
// listing every violation.
func (k *KnowledgeBase) Verify() error {
	k.mu.Lock()
	problems := k.verifyLocked()
	k.mu.Unlock()

	if len(problems) == 0 {
		return nil
	}
	return kberrors.New(kberrors.CodeInconsistentState, "knowledge base invariants violated",
		fmt.Errorf("%s", strings.Join(problems, "; "))).
		WithContext("violations", len(problems))
}

func (k *KnowledgeBase) verifyLocked() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	typed := 0
	for _, typ := range sortedKeys(k.byType) {
		bucket := k.byType[typ]
		if len(bucket) == 0 {
			add("type %s: empty bucket", typ)
		}
		if _, ok := k.types.Load(typ); !ok {
			add("type %s: missing from exists mirror", typ)
		}
		for _, e := range bucket {
			typed++
			if e.Type() != typ {
				add("type %s: holds %s", typ, e)
			}
			_, inPrim := k.primitive.get(e.Key())
			_, inScript := k.scripts.get(e.Key())
			if inPrim == inScript {
				add("%s: must be in exactly one of primitives and scripts", e)
			}
			if inPrim != e.IsPrimitive() {
				add("%s: in the wrong set", e)
			}
			if _, ok := k.active.get(e.Key()); !ok {
				add("%s: indexed by type but not active", e)
			}
			for _, post := range e.Postconditions() {
				if !k.hasBindingLocked(post.Predicate.Name, e.Key()) {
					add("%s: not reachable under %s", e, post.Predicate.Name)
				}
			}
			if k.isDisabledLocked(e.Key(), e.Type()) {
				add("%s: both active and disabled", e)
			}
		}
	}
	if typed != k.active.len() {
		add("active set holds %d entries, type index %d", k.active.len(), typed)
	}
	if k.primitive.len()+k.scripts.len() != k.active.len() {
		add("primitives and scripts hold %d entries, active set %d", k.primitive.len()+k.scripts.len(), k.active.len())
	}
	k.types.Range(func(key, _ any) bool {
		if _, ok := k.byType[key.(string)]; !ok {
			add("type %s: stale in exists mirror", key)
		}
		return true
	})

	for _, name := range sortedKeys(k.byEffect) {
		list := k.byEffect[name]
		if len(list) == 0 {
			add("effect %s: empty list", name)
		}
		for i, b := range list {
			if _, ok := k.active.get(b.entry.Key()); !ok {
				add("effect %s: binding for inactive %s", name, b.entry)
			}
			for _, prev := range list[:i] {
				if prev.same(b.pattern, b.entry) {
					add("effect %s: duplicate binding %s for %s", name, b.pattern, b.entry)
				}
			}
		}
	}

	for _, typ := range sortedKeys(k.disabled) {
		if len(k.disabled[typ]) == 0 {
			add("disabled %s: empty bucket", typ)
		}
		for _, e := range k.disabled[typ] {
			if _, ok := k.active.get(e.Key()); ok {
				add("%s: disabled but still active", e)
			}
		}
	}
	return problems
}

func (k *KnowledgeBase) hasBindingLocked(functor, key string) bool {
	for _, b := range k.byEffect[functor] {
		if b.entry.Key() == key {
			return true
		}
	}
	return false
}

func (k *KnowledgeBase) isDisabledLocked(key, typ string) bool {
	for _, e := range k.disabled[typ] {
		if e.Key() == key {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
