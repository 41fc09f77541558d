// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import "github.com/braidhq/braid/pkg/message"

// Strategy trims the prompt view of a transcript. Strategies never modify
// the stored transcript, only what is sent to the model.
type Strategy interface {
	// Apply returns the messages to include in the prompt.
	Apply(messages []message.Message) []message.Message
	// Name identifies the strategy.
	Name() string
}

// FullStrategy keeps every message.
type FullStrategy struct{}

// Apply implements Strategy.
func (FullStrategy) Apply(messages []message.Message) []message.Message { return messages }

// Name implements Strategy.
func (FullStrategy) Name() string { return "full" }

// WindowStrategy keeps the last N non-system messages, optionally
// preserving system messages regardless of the window.
type WindowStrategy struct {
	MaxMessages int
	KeepSystem  bool
}

// NewWindowStrategy creates a sliding-window strategy.
func NewWindowStrategy(maxMessages int, keepSystem bool) *WindowStrategy {
	return &WindowStrategy{MaxMessages: maxMessages, KeepSystem: keepSystem}
}

// Apply implements Strategy.
func (w *WindowStrategy) Apply(messages []message.Message) []message.Message {
	if len(messages) <= w.MaxMessages {
		return messages
	}
	if !w.KeepSystem {
		return messages[len(messages)-w.MaxMessages:]
	}

	var system, other []message.Message
	for _, msg := range messages {
		if msg.Role == message.RoleSystem {
			system = append(system, msg)
		} else {
			other = append(other, msg)
		}
	}
	available := w.MaxMessages - len(system)
	if available < 0 {
		available = 0
	}
	if len(other) > available {
		other = other[len(other)-available:]
	}
	out := make([]message.Message, 0, len(system)+len(other))
	out = append(out, system...)
	out = append(out, other...)
	return out
}

// Name implements Strategy.
func (w *WindowStrategy) Name() string { return "window" }

// TokenStrategy keeps messages that fit within an approximate token budget,
// dropping the oldest non-system messages first.
type TokenStrategy struct {
	MaxTokens int
	// Counter estimates tokens for a message. Defaults to len(content)/4.
	Counter func(msg message.Message) int
}

// NewTokenStrategy creates a token-budget strategy.
func NewTokenStrategy(maxTokens int) *TokenStrategy {
	return &TokenStrategy{MaxTokens: maxTokens}
}

// Apply implements Strategy.
func (t *TokenStrategy) Apply(messages []message.Message) []message.Message {
	counter := t.Counter
	if counter == nil {
		counter = func(msg message.Message) int { return len(msg.Content) / 4 }
	}

	total := 0
	for _, msg := range messages {
		total += counter(msg)
	}
	if total <= t.MaxTokens {
		return messages
	}

	var system []message.Message
	var other []message.Message
	budget := t.MaxTokens
	for _, msg := range messages {
		if msg.Role == message.RoleSystem {
			system = append(system, msg)
			budget -= counter(msg)
		} else {
			other = append(other, msg)
		}
	}
	if budget < 0 {
		budget = 0
	}

	var kept []message.Message
	used := 0
	for i := len(other) - 1; i >= 0; i-- {
		cost := counter(other[i])
		if used+cost > budget {
			break
		}
		kept = append([]message.Message{other[i]}, kept...)
		used += cost
	}

	out := make([]message.Message, 0, len(system)+len(kept))
	out = append(out, system...)
	out = append(out, kept...)
	return out
}

// Name implements Strategy.
func (t *TokenStrategy) Name() string { return "token" }
