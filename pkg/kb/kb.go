// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package kb implements the action knowledge base: an in-memory store of
// action entries indexed by type name, by postcondition functor and by call
// signature, with a disable/re-enable lifecycle.
//
// A single mutex guards every index. Lookups that find nothing return empty
// results and log; they never fail. Change listeners run after the lock is
// released.
package kb

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jllopis/actionkb/pkg/action"
)

// Op names a mutation of the knowledge base.
type Op string

const (
	OpInsert  Op = "insert"
	OpRemove  Op = "remove"
	OpDisable Op = "disable"
)

// Event describes a mutation request and whether it changed the indexes.
type Event struct {
	Op      Op
	Entry   *action.Entry
	Applied bool
	Reason  string
	Time    time.Time
}

// Listener receives events in registration order, outside the lock.
type Listener func(Event)

// Metrics records knowledge base activity. telemetry.KBMetrics implements it.
type Metrics interface {
	RecordMutation(op string, applied bool)
	RecordLookup(kind string, hits int)
	RecordSize(active, disabled int)
}

// Option configures a KnowledgeBase.
type Option func(*KnowledgeBase)

// WithMatcher sets the matching capability. Defaults to NewDefaultMatcher().
func WithMatcher(m Matcher) Option {
	return func(k *KnowledgeBase) {
		if m != nil {
			k.matcher = m
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(k *KnowledgeBase) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(k *KnowledgeBase) {
		k.metrics = m
	}
}

// KnowledgeBase stores action entries. The zero value is not usable; call New.
type KnowledgeBase struct {
	mu        sync.Mutex
	byType    map[string][]*action.Entry
	byEffect  map[string][]binding
	active    *entrySet
	primitive *entrySet
	scripts   *entrySet
	disabled  map[string][]*action.Entry
	listeners []Listener

	// types mirrors the keys of byType for lock-free Exists.
	types sync.Map

	matcher Matcher
	metrics Metrics
	logger  *slog.Logger
}

// New returns an empty knowledge base.
func New(opts ...Option) *KnowledgeBase {
	k := &KnowledgeBase{
		byType:    map[string][]*action.Entry{},
		byEffect:  map[string][]binding{},
		active:    newEntrySet(),
		primitive: newEntrySet(),
		scripts:   newEntrySet(),
		disabled:  map[string][]*action.Entry{},
		matcher:   NewDefaultMatcher(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.logger = k.logger.With("component", "kb")
	return k
}

// Subscribe registers a change listener.
func (k *KnowledgeBase) Subscribe(l Listener) {
	if l == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.listeners = append(k.listeners, l)
}

// Len returns the number of active entries.
func (k *KnowledgeBase) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active.len()
}

// commit releases the lock taken by a mutation and delivers its events.
// Sizes are recorded before unlocking so the gauges follow mutation order.
func (k *KnowledgeBase) commit(events ...Event) {
	listeners := append([]Listener(nil), k.listeners...)
	if k.metrics != nil {
		k.metrics.RecordSize(k.active.len(), k.disabledLenLocked())
	}
	k.mu.Unlock()

	now := time.Now().UTC()
	for _, ev := range events {
		ev.Time = now
		if k.metrics != nil {
			k.metrics.RecordMutation(string(ev.Op), ev.Applied)
		}
		for _, l := range listeners {
			l(ev)
		}
	}
}

func (k *KnowledgeBase) recordLookup(kind string, hits int) {
	if k.metrics != nil {
		k.metrics.RecordLookup(kind, hits)
	}
}

func (k *KnowledgeBase) disabledLenLocked() int {
	n := 0
	for _, bucket := range k.disabled {
		n += len(bucket)
	}
	return n
}
