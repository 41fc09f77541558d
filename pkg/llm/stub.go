// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"sync"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// Stub is a scripted model that returns a pre-defined sequence of
// completions. Useful for testing multi-turn loops without a real provider.
type Stub struct {
	mu        sync.Mutex
	queue     []Completion
	repeat    *Completion
	err       error
	callCount int
}

// NewStub creates a stub that pops the given completions in order. Once the
// script is exhausted further calls fail with an LLM error.
func NewStub(completions ...Completion) *Stub {
	return &Stub{queue: append([]Completion(nil), completions...)}
}

// Always creates a stub that returns the same completion on every call.
func Always(completion Completion) *Stub {
	return &Stub{repeat: &completion}
}

// Respond builds a plain content completion.
func Respond(content string) Completion {
	return Completion{Content: content}
}

// CallTool builds a completion requesting the given tool calls.
func CallTool(calls ...message.ToolCall) Completion {
	return Completion{ToolCalls: calls}
}

// Fail makes every subsequent call return err.
func (s *Stub) Fail(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// CallCount reports how many times CompleteChat has been invoked.
func (s *Stub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// CompleteChat pops the next scripted completion or returns the configured
// error.
func (s *Stub) CompleteChat(_ context.Context, _ []message.Message, _ []tool.Description, _ bool) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if s.err != nil {
		return nil, s.err
	}
	if s.repeat != nil {
		out := *s.repeat
		return &out, nil
	}
	if len(s.queue) == 0 {
		return nil, errors.New(errors.CodeLanguageModel, "scripted model: no more completions available")
	}
	out := s.queue[0]
	s.queue = s.queue[1:]
	return &out, nil
}
