// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore persists gateway audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureGatewayAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	payload, err := encodeAuditPayload(event.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO gateway_audit_events (
			request_id, step_index, action, status, payload_json, error_text, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.RequestID,
		event.StepIndex,
		event.Action,
		event.Status,
		string(payload),
		event.Error,
		normalizeAuditTime(event.StartedAt),
		normalizeAuditTime(event.FinishedAt),
	)
	return err
}

// List returns audit events matching the filter.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT request_id, step_index, action, status, payload_json, error_text, started_at, finished_at
		FROM gateway_audit_events
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
	if filter.RequestID != "" {
		addFilter("request_id = ?", filter.RequestID)
	}
	if filter.Action != "" {
		addFilter("action = ?", filter.Action)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
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
			event       AuditEvent
			payloadJSON string
			started     sql.NullTime
			finished    sql.NullTime
		)
		if err := rows.Scan(
			&event.RequestID,
			&event.StepIndex,
			&event.Action,
			&event.Status,
			&payloadJSON,
			&event.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if payloadJSON != "" {
			if out, err := decodeAuditPayload([]byte(payloadJSON)); err == nil {
				event.Payload = out
			}
		}
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureGatewayAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gateway_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			step_index INTEGER NOT NULL DEFAULT 0,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			payload_json TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_gateway_audit_request ON gateway_audit_events(request_id);
		CREATE INDEX IF NOT EXISTS idx_gateway_audit_action ON gateway_audit_events(action);
		CREATE INDEX IF NOT EXISTS idx_gateway_audit_status ON gateway_audit_events(status);
	`)
	return err
}
