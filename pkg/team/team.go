// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package team coordinates a set of named agents around one shared
// transcript, a free-form JSON state blob, and a broadcast bus.
package team

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/braidhq/braid/pkg/agent"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/memory"
	"github.com/braidhq/braid/pkg/message"
)

// Team holds named agent members, one shared context, and a broadcast bus
// for any number of external subscribers.
type Team struct {
	name    string
	logger  *slog.Logger
	tracer  trace.Tracer
	bus     *bus

	runMu   sync.Mutex // serializes the shared-memory write path
	members map[string]*agent.Agent
	shared  *memory.Conversation

	stateMu   sync.RWMutex
	state     any
	knowledge []string
}

// Option configures a Team.
type Option func(*Team)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Team) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithBusCapacity sets the per-subscriber event buffer. Subscribers that
// fall more than capacity events behind start missing events.
func WithBusCapacity(capacity int) Option {
	return func(t *Team) {
		if capacity > 0 {
			t.bus.capacity = capacity
		}
	}
}

// New creates an empty team with a broadcast bus and shared memory.
func New(name string, opts ...Option) *Team {
	t := &Team{
		name:    name,
		logger:  slog.Default(),
		tracer:  otel.Tracer("braid/team"),
		bus:     newBus(defaultBusCapacity),
		members: make(map[string]*agent.Agent),
		shared:  memory.NewConversation(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the team name.
func (t *Team) Name() string { return t.name }

// AddAgent registers a member under the given identifier. Registering an
// existing identifier replaces the prior member.
func (t *Team) AddAgent(id string, member *agent.Agent) {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	t.members[id] = member
}

// Size reports the number of registered members.
func (t *Team) Size() int {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return len(t.members)
}

// Members returns the registered identifiers sorted by name.
func (t *Team) Members() []string {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	ids := make([]string, 0, len(t.members))
	for id := range t.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Memory returns the shared transcript.
func (t *Team) Memory() *memory.Conversation { return t.shared }

// Subscribe attaches a new listener to the broadcast bus and returns the
// channel plus an unsubscribe func. The channel is bounded; a slow
// subscriber misses events rather than blocking publishers.
func (t *Team) Subscribe() (<-chan Event, func()) {
	return t.bus.subscribe()
}

// AddKnowledge appends a shared fact that all members can reference and
// announces it on the bus.
func (t *Team) AddKnowledge(fact string) {
	t.stateMu.Lock()
	t.knowledge = append(t.knowledge, fact)
	t.stateMu.Unlock()
	t.bus.publish(Event{Kind: EventKnowledgeAdded, Content: fact})
}

// Knowledge returns a copy of the shared facts in insertion order.
func (t *Team) Knowledge() []string {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	out := make([]string, len(t.knowledge))
	copy(out, t.knowledge)
	return out
}

// RunAgent copies the current shared transcript into the member's local
// memory, runs its respond, appends the reply to shared memory tagged with
// the member's name, and returns the reply. This is the single write path
// from workflow execution into shared memory; concurrent callers are
// serialized.
func (t *Team) RunAgent(ctx context.Context, member, input string) (string, error) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	ctx, span := t.tracer.Start(ctx, "Team.RunAgent", trace.WithAttributes(
		attribute.String("team.name", t.name),
		attribute.String("team.member", member),
	))
	defer span.End()

	a, ok := t.members[member]
	if !ok {
		err := errors.Newf(errors.CodeProtocol, "team %q has no member %q", t.name, member)
		span.RecordError(err)
		return "", err
	}

	a.Memory().Replace(t.shared.Messages())
	reply, err := a.Respond(ctx, input)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	t.shared.Append(message.Assistant(fmt.Sprintf("[%s] %s", member, reply)))
	t.logger.Debug("team.run_agent",
		slog.String("team", t.name),
		slog.String("member", member),
	)
	return reply, nil
}

// FanOut runs the same prompt through every member in name order and
// returns the replies keyed by member.
func (t *Team) FanOut(ctx context.Context, prompt string) (map[string]string, error) {
	replies := make(map[string]string)
	for _, id := range t.Members() {
		reply, err := t.RunAgent(ctx, id, prompt)
		if err != nil {
			return nil, err
		}
		replies[id] = reply
	}
	return replies, nil
}

// Broadcast publishes a message to all subscribers and appends an annotated
// line to shared memory so subsequent model turns see the exchange.
func (t *Team) Broadcast(from, content string) {
	t.shared.Append(message.Assistant(fmt.Sprintf("[%s] %s", from, content)))
	t.bus.publish(Event{Kind: EventBroadcast, From: from, Content: content})
}

// SendMessage publishes a directed message. The recipient is advisory
// metadata only; delivery is not restricted to that member.
func (t *Team) SendMessage(from, to, content string) {
	t.shared.Append(message.Assistant(fmt.Sprintf("[%s -> %s] %s", from, to, content)))
	t.bus.publish(Event{Kind: EventMessage, From: from, To: to, Content: content})
}

// SetState merges a key into the shared JSON state object. A non-object
// state is coerced to an empty object first.
func (t *Team) SetState(key string, value any) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	obj, ok := t.state.(map[string]any)
	if !ok {
		obj = make(map[string]any)
	}
	obj[key] = value
	t.state = obj
}

// State returns a copy of the shared state.
func (t *Team) State() any {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	if obj, ok := t.state.(map[string]any); ok {
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = v
		}
		return out
	}
	return t.state
}

// SetContext replaces the shared state blob wholesale.
func (t *Team) SetContext(state any) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.state = state
}
