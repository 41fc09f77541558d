// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
)

// SQLiteStore persists a transcript in a SQLite messages table.
type SQLiteStore struct {
	db      *sql.DB
	session string
}

// OpenSQLiteStore opens (or creates) a SQLite database at dsn and ensures
// the schema. Use ":memory:" for an ephemeral store.
func OpenSQLiteStore(dsn, session string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "open sqlite store "+dsn, err)
	}
	store, err := NewSQLiteStore(db, session)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the schema.
func NewSQLiteStore(db *sql.DB, session string) (*SQLiteStore, error) {
	if session == "" {
		session = uuid.NewString()
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			payload TEXT NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "initialize message schema", err)
	}
	return &SQLiteStore{db: db, session: session}, nil
}

// Session returns the session identifier this store reads and writes.
func (s *SQLiteStore) Session() string { return s.session }

// Load returns the stored messages in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]message.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM messages WHERE session_id = ? ORDER BY id ASC`, s.session)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "load messages", err)
	}
	defer rows.Close()

	var messages []message.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(errors.CodeStorage, "decode message row", err)
		}
		var msg message.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, errors.Wrap(errors.CodeStorage, "invalid message payload", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "iterate messages", err)
	}
	return messages, nil
}

// Append inserts one message row.
func (s *SQLiteStore) Append(ctx context.Context, msg message.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "marshal message", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, payload) VALUES (?, ?)`, s.session, string(payload))
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "write message", err)
	}
	return nil
}

// Clear deletes every message for this session.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ?`, s.session); err != nil {
		return errors.Wrap(errors.CodeStorage, "clear messages", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
