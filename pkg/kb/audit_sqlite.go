// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore persists audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// OpenSQLiteAuditStore opens dsn with the sqlite driver.
func OpenSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteAuditStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Ping checks the database connection.
func (s *SQLiteAuditStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	entry, err := encodeAuditEntry(event.Entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kb_audit_events (
			event_id, op, action_type, signature, applied, reason, entry_json, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		string(event.Op),
		event.ActionType,
		event.Signature,
		event.Applied,
		event.Reason,
		entry,
		normalizeAuditTime(event.RecordedAt),
	)
	return err
}

// List returns audit events matching the filter, oldest first.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT event_id, op, action_type, signature, applied, reason, entry_json, recorded_at
		FROM kb_audit_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.Op != "" {
		addFilter("op = ?", string(filter.Op))
	}
	if filter.ActionType != "" {
		addFilter("action_type = ?", filter.ActionType)
	}
	if filter.AppliedOnly {
		addFilter("applied = ?", true)
	}
	query += where + " ORDER BY recorded_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event     AuditEvent
			op        string
			signature sql.NullString
			reason    sql.NullString
			entryJSON sql.NullString
			recorded  sql.NullTime
		)
		if err := rows.Scan(
			&event.ID,
			&op,
			&event.ActionType,
			&signature,
			&event.Applied,
			&reason,
			&entryJSON,
			&recorded,
		); err != nil {
			return nil, err
		}
		event.Op = Op(op)
		event.Signature = signature.String
		event.Reason = reason.String
		if entryJSON.Valid {
			if d, err := decodeAuditEntry(entryJSON.String); err == nil {
				event.Entry = d
			}
		}
		if recorded.Valid {
			event.RecordedAt = recorded.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kb_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			op TEXT NOT NULL,
			action_type TEXT NOT NULL,
			signature TEXT,
			applied BOOLEAN NOT NULL,
			reason TEXT,
			entry_json TEXT,
			recorded_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_kb_audit_op ON kb_audit_events(op);
		CREATE INDEX IF NOT EXISTS idx_kb_audit_type ON kb_audit_events(action_type);
	`)
	return err
}
