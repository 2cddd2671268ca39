// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/actionkb/pkg/action"
)

// AuditEvent is the persisted record of one mutation request.
type AuditEvent struct {
	ID         string             `json:"id"`
	Op         Op                 `json:"op"`
	ActionType string             `json:"action_type"`
	Signature  string             `json:"signature,omitempty"`
	Applied    bool               `json:"applied"`
	Reason     string             `json:"reason,omitempty"`
	Entry      *action.Descriptor `json:"entry,omitempty"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// AuditStore persists knowledge base audit events.
type AuditStore interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// AuditFilter limits audit event queries.
type AuditFilter struct {
	Op          Op
	ActionType  string
	AppliedOnly bool
	Limit       int
}

func (f AuditFilter) match(ev AuditEvent) bool {
	if f.Op != "" && ev.Op != f.Op {
		return false
	}
	if f.ActionType != "" && ev.ActionType != f.ActionType {
		return false
	}
	if f.AppliedOnly && !ev.Applied {
		return false
	}
	return true
}

// NewAuditEvent converts a change event into an audit record.
func NewAuditEvent(ev Event) AuditEvent {
	out := AuditEvent{
		ID:         uuid.NewString(),
		Op:         ev.Op,
		Applied:    ev.Applied,
		Reason:     ev.Reason,
		RecordedAt: normalizeAuditTime(ev.Time),
	}
	if out.RecordedAt.IsZero() {
		out.RecordedAt = time.Now().UTC()
	}
	if ev.Entry != nil {
		d := ev.Entry.Describe()
		out.ActionType = ev.Entry.Type()
		out.Signature = ev.Entry.Signature().String()
		out.Entry = &d
	}
	return out
}

// NewAuditRecorder returns a Listener that writes every event to store.
// Store failures are logged and do not affect the knowledge base.
func NewAuditRecorder(store AuditStore, logger *slog.Logger) Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ev Event) {
		record := NewAuditEvent(ev)
		if err := store.Record(context.Background(), record); err != nil {
			logger.Error("audit record failed", "op", record.Op, "action", record.ActionType, "error", err)
		}
	}
}

// MemoryAuditStore keeps audit events in memory.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemoryAuditStore returns an in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

// Record appends an audit event.
func (s *MemoryAuditStore) Record(_ context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events, oldest first.
func (s *MemoryAuditStore) List(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, 0, len(s.events))
	for _, ev := range s.events {
		if !filter.match(ev) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func encodeAuditEntry(d *action.Descriptor) (string, error) {
	if d == nil {
		return "", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeAuditEntry(raw string) (*action.Descriptor, error) {
	if raw == "" {
		return nil, nil
	}
	var d action.Descriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func normalizeAuditTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
