// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
)

// FileStore persists a transcript as JSON lines, one message per line.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a JSONL-backed store at path. The file is created on
// first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads all stored messages in order. A missing file is an empty
// transcript, not an error.
func (s *FileStore) Load(_ context.Context) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeStorage, "read transcript "+s.path, err)
	}
	defer f.Close()

	var messages []message.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg message.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, errors.Wrap(errors.CodeStorage, "invalid message payload in "+s.path, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "scan transcript "+s.path, err)
	}
	return messages, nil
}

// Append writes one message as a JSON line.
func (s *FileStore) Append(_ context.Context, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "marshal message", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "open transcript "+s.path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return errors.Wrap(errors.CodeStorage, "persist message", err)
	}
	return nil
}

// Clear removes the transcript file. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.CodeStorage, "clear transcript "+s.path, err)
	}
	return nil
}
