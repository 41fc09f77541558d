// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the language-model abstraction consumed by agents and
// the providers that implement it.
package llm

import (
	"context"

	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// Completion is the model's answer: final content, one or more tool calls,
// or (invalidly) neither. An empty ToolCalls list plus present Content means
// "respond"; the agent treats anything else as a protocol violation.
type Completion struct {
	Content   string             `json:"content,omitempty"`
	ToolCalls []message.ToolCall `json:"tool_calls,omitempty"`
}

// LanguageModel produces a completion given a transcript and tool catalogue.
// Implementations fail with an LLM-kind error on transport or parse failure.
type LanguageModel interface {
	CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*Completion, error)
}
