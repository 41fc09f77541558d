// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package team

import "sync"

const defaultBusCapacity = 128

// EventKind discriminates bus events.
type EventKind string

const (
	// EventBroadcast is an undirected message from one member.
	EventBroadcast EventKind = "broadcast"
	// EventMessage is a directed message; the recipient is advisory.
	EventMessage EventKind = "message"
	// EventKnowledgeAdded announces a new shared fact.
	EventKnowledgeAdded EventKind = "knowledge_added"
)

// Event is one entry on the team's broadcast bus.
type Event struct {
	Kind    EventKind
	From    string
	To      string
	Content string
}

// bus fans events out to any number of subscribers. Each subscriber gets a
// bounded buffer; publishing never blocks, so a subscriber that falls
// behind misses events. The shared transcript, not the bus, is the record
// of truth.
type bus struct {
	mu          sync.Mutex
	capacity    int
	subscribers []chan Event
}

func newBus(capacity int) *bus {
	return &bus{capacity: capacity}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.capacity)
	b.subscribers = append(b.subscribers, ch)
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subscribers {
			if sub == ch {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (b *bus) publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
