// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"

	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
)

// Hook observes an agent's directive loop. All callbacks default to no-ops
// via BaseHook; any returned error aborts the current step.
type Hook interface {
	BeforeModel(ctx context.Context, transcript []message.Message) error
	AfterModel(ctx context.Context, completion *llm.Completion) error
	BeforeToolCall(ctx context.Context, call message.ToolCall) error
	AfterToolResult(ctx context.Context, result message.ToolResult) error
}

// BaseHook is a Hook with no-op callbacks, meant for embedding.
type BaseHook struct{}

// BeforeModel implements Hook.
func (BaseHook) BeforeModel(context.Context, []message.Message) error { return nil }

// AfterModel implements Hook.
func (BaseHook) AfterModel(context.Context, *llm.Completion) error { return nil }

// BeforeToolCall implements Hook.
func (BaseHook) BeforeToolCall(context.Context, message.ToolCall) error { return nil }

// AfterToolResult implements Hook.
func (BaseHook) AfterToolResult(context.Context, message.ToolResult) error { return nil }

// ConfirmationHandler approves or rejects a tool call before it executes.
// A rejection is recoverable: the agent records a guardrail notice and
// skips only that call.
type ConfirmationHandler interface {
	ConfirmToolCall(ctx context.Context, call message.ToolCall) (bool, error)
}

// ConfirmFunc adapts a function into a ConfirmationHandler.
type ConfirmFunc func(ctx context.Context, call message.ToolCall) (bool, error)

// ConfirmToolCall implements ConfirmationHandler.
func (f ConfirmFunc) ConfirmToolCall(ctx context.Context, call message.ToolCall) (bool, error) {
	return f(ctx, call)
}
