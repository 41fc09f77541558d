// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"

	"github.com/braidhq/braid/pkg/message"
)

// Store is the persistence contract for conversation transcripts. Semantics
// are append-only, mirroring Conversation.
type Store interface {
	Load(ctx context.Context) ([]message.Message, error)
	Append(ctx context.Context, msg message.Message) error
	Clear(ctx context.Context) error
}

// PersistentConversation pairs an in-process transcript with a Store so
// every appended message is also written through.
type PersistentConversation struct {
	store Store
	inner *Conversation
}

// NewPersistentConversation creates an empty persistent transcript.
func NewPersistentConversation(store Store) *PersistentConversation {
	return &PersistentConversation{store: store, inner: NewConversation()}
}

// Load replaces the in-process transcript with the stored one.
func (p *PersistentConversation) Load(ctx context.Context) error {
	stored, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	p.inner = WithMessages(stored)
	return nil
}

// Conversation exposes the in-process transcript.
func (p *PersistentConversation) Conversation() *Conversation { return p.inner }

// Append writes the message through to the store, then appends it in memory.
// The in-memory transcript only advances when persistence succeeded.
func (p *PersistentConversation) Append(ctx context.Context, msg message.Message) error {
	if err := p.store.Append(ctx, msg); err != nil {
		return err
	}
	p.inner.Append(msg)
	return nil
}

// Clear empties both the store and the in-process transcript.
func (p *PersistentConversation) Clear(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return err
	}
	p.inner = NewConversation()
	return nil
}
