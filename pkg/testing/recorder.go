// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/team"
	"github.com/braidhq/braid/pkg/tool"
)

// RecordingModel wraps a model and captures the transcript of every
// call, so tests can assert on what the agent actually sent.
type RecordingModel struct {
	inner llm.LanguageModel

	mu          sync.Mutex
	transcripts [][]message.Message
}

// NewRecordingModel wraps inner.
func NewRecordingModel(inner llm.LanguageModel) *RecordingModel {
	return &RecordingModel{inner: inner}
}

// CompleteChat implements llm.LanguageModel.
func (m *RecordingModel) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*llm.Completion, error) {
	snapshot := make([]message.Message, len(messages))
	for i, msg := range messages {
		snapshot[i] = msg.Clone()
	}
	m.mu.Lock()
	m.transcripts = append(m.transcripts, snapshot)
	m.mu.Unlock()
	return m.inner.CompleteChat(ctx, messages, tools, stream)
}

// CallCount reports how many model calls were made.
func (m *RecordingModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transcripts)
}

// LastTranscript returns the messages of the most recent call, or nil.
func (m *RecordingModel) LastTranscript() []message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.transcripts) == 0 {
		return nil
	}
	return m.transcripts[len(m.transcripts)-1]
}

// LastUserContent returns the content of the latest user message in
// the most recent call, or "".
func (m *RecordingModel) LastUserContent() string {
	transcript := m.LastTranscript()
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == message.RoleUser {
			return transcript[i].Content
		}
	}
	return ""
}

// ToolCallRecord is one captured tool invocation.
type ToolCallRecord struct {
	Name   string
	Input  json.RawMessage
	Output json.RawMessage
	Err    error
}

// CallLog captures tool invocations flowing through instrumented
// registries.
type CallLog struct {
	mu      sync.Mutex
	records []ToolCallRecord
}

// NewCallLog creates an empty log.
func NewCallLog() *CallLog {
	return &CallLog{}
}

func (l *CallLog) record(r ToolCallRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of the captured invocations in order.
func (l *CallLog) Records() []ToolCallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ToolCallRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Called reports whether the named tool was invoked.
func (l *CallLog) Called(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Reset drops all records.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

type loggedTool struct {
	inner tool.Tool
	log   *CallLog
}

func (t *loggedTool) Name() string { return t.inner.Name() }

func (t *loggedTool) Description() string { return t.inner.Description() }

func (t *loggedTool) Parameters() json.RawMessage { return t.inner.Parameters() }

func (t *loggedTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	output, err := t.inner.Call(ctx, input)
	t.log.record(ToolCallRecord{Name: t.inner.Name(), Input: input, Output: output, Err: err})
	return output, err
}

// Instrument re-registers every tool in registry behind a logging
// wrapper and returns the log the wrappers write to.
func Instrument(registry *tool.Registry) *CallLog {
	log := NewCallLog()
	for _, name := range registry.Names() {
		if inner, ok := registry.Get(name); ok {
			registry.Register(&loggedTool{inner: inner, log: log})
		}
	}
	return log
}

// EventCollector drains a team event channel in the background so
// tests can assert on broadcast traffic.
type EventCollector struct {
	mu     sync.Mutex
	events []team.Event
	done   chan struct{}
}

// CollectEvents starts draining ch until it closes. Call the returned
// collector's Stop to wait for the drain to finish after cancelling
// the subscription.
func CollectEvents(ch <-chan team.Event) *EventCollector {
	c := &EventCollector{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for event := range ch {
			c.mu.Lock()
			c.events = append(c.events, event)
			c.mu.Unlock()
		}
	}()
	return c
}

// Stop blocks until the channel has been fully drained.
func (c *EventCollector) Stop() {
	<-c.done
}

// Events returns a copy of everything collected so far.
func (c *EventCollector) Events() []team.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]team.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Has reports whether an event of the given kind was seen.
func (c *EventCollector) Has(kind team.EventKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range c.events {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

// Count returns the number of collected events.
func (c *EventCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
