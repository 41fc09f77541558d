// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/braidhq/braid/pkg/errors"
)

// AuditEvent records the execution of one workflow node.
type AuditEvent struct {
	Workflow string
	RunID    string
	NodeType string
	// Node identifies the node within its type: the task name, agent
	// member, or context key.
	Node       string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Audit statuses.
const (
	AuditCompleted = "completed"
	AuditFailed    = "failed"
)

// AuditFilter limits audit queries. Zero fields match everything.
type AuditFilter struct {
	Workflow string
	RunID    string
	Status   string
	Limit    int
}

// AuditStore persists workflow audit events.
type AuditStore interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// MemoryAuditStore keeps audit events in memory, for tests and
// short-lived runs.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemoryAuditStore returns an empty in-memory store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

// Record implements AuditStore.
func (s *MemoryAuditStore) Record(_ context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List implements AuditStore.
func (s *MemoryAuditStore) List(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, event := range s.events {
		if !filter.matches(event) {
			continue
		}
		out = append(out, event)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f AuditFilter) matches(event AuditEvent) bool {
	if f.Workflow != "" && event.Workflow != f.Workflow {
		return false
	}
	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}
	if f.Status != "" && event.Status != f.Status {
		return false
	}
	return true
}

// SQLiteAuditStore persists audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore opens (or reuses) a SQLite database at dsn and
// ensures the audit schema exists.
func NewSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "open audit database", err)
	}
	store := &SQLiteAuditStore{db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteAuditStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workflow TEXT NOT NULL,
			run_id TEXT NOT NULL,
			node_type TEXT NOT NULL,
			node TEXT,
			status TEXT NOT NULL,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_audit_run ON workflow_audit(run_id);
		CREATE INDEX IF NOT EXISTS idx_workflow_audit_workflow ON workflow_audit(workflow);
	`)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "create audit schema", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteAuditStore) Close() error { return s.db.Close() }

// Record implements AuditStore.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_audit
			(workflow, run_id, node_type, node, status, error_text, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Workflow, event.RunID, event.NodeType, event.Node,
		event.Status, event.Error,
		event.StartedAt.UTC(), event.FinishedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "record audit event", err)
	}
	return nil
}

// List implements AuditStore.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `SELECT workflow, run_id, node_type, node, status, error_text, started_at, finished_at
		FROM workflow_audit`
	var clauses []string
	var args []any
	if filter.Workflow != "" {
		clauses = append(clauses, "workflow = ?")
		args = append(args, filter.Workflow)
	}
	if filter.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "query audit events", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var event AuditEvent
		var started, finished sql.NullTime
		if err := rows.Scan(&event.Workflow, &event.RunID, &event.NodeType, &event.Node,
			&event.Status, &event.Error, &started, &finished); err != nil {
			return nil, errors.Wrap(errors.CodeStorage, "scan audit event", err)
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
		return nil, errors.Wrap(errors.CodeStorage, "read audit events", err)
	}
	return events, nil
}
