// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"

	"github.com/braidhq/braid/pkg/agent"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
)

// Hook plugs a Guardrails pipeline into an agent's directive loop.
// Input is checked before each model call and output is filtered after
// it, in place.
type Hook struct {
	agent.BaseHook
	guard *Guardrails
}

// NewHook wraps guard as an agent hook.
func NewHook(guard *Guardrails) *Hook {
	return &Hook{guard: guard}
}

// BeforeModel checks the most recent user message and aborts the step
// when a checker blocks it.
func (h *Hook) BeforeModel(ctx context.Context, transcript []message.Message) error {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role != message.RoleUser {
			continue
		}
		res := h.guard.CheckInput(ctx, transcript[i].Content)
		if res.Blocked {
			return errors.Newf(errors.CodeProtocol,
				"input blocked by %s guardrail: %s", res.Checker, res.Reason)
		}
		return nil
	}
	return nil
}

// AfterModel rewrites the completion's content through the output
// filters.
func (h *Hook) AfterModel(ctx context.Context, completion *llm.Completion) error {
	if completion == nil || completion.Content == "" {
		return nil
	}
	completion.Content = h.guard.FilterOutput(ctx, completion.Content).Text
	return nil
}
