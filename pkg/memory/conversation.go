// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides transcript storage for agents and teams, plus the
// vector-store contracts used for retrieval.
package memory

import (
	"sync"

	"github.com/braidhq/braid/pkg/message"
)

// Conversation is an ordered, append-only transcript. Insertion order is
// temporal and prompt order. A Conversation is exclusively owned by one
// agent instance or by one team's shared context; entries are never
// reordered or edited in place.
type Conversation struct {
	mu       sync.RWMutex
	messages []message.Message
}

// NewConversation creates an empty transcript.
func NewConversation() *Conversation {
	return &Conversation{}
}

// WithMessages creates a transcript seeded with the given messages.
func WithMessages(messages []message.Message) *Conversation {
	c := &Conversation{}
	for _, msg := range messages {
		c.messages = append(c.messages, msg.Clone())
	}
	return c
}

// Append adds a message to the end of the transcript.
func (c *Conversation) Append(msg message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg.Clone())
}

// Messages returns a copy of the transcript in order.
func (c *Conversation) Messages() []message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]message.Message, 0, len(c.messages))
	for _, msg := range c.messages {
		out = append(out, msg.Clone())
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// LastUser returns the content of the most recent user message.
func (c *Conversation) LastUser() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == message.RoleUser {
			return c.messages[i].Content, true
		}
	}
	return "", false
}

// Replace swaps the whole transcript for the given messages. Used by teams
// to push the shared transcript into a member before it responds; it is not
// part of the append-only run-time contract.
func (c *Conversation) Replace(messages []message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:0]
	for _, msg := range messages {
		c.messages = append(c.messages, msg.Clone())
	}
}
