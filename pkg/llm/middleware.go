// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"time"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// RetryConfig controls the retry decorator. Retry is a collaborator policy
// layered around a provider; the agent loop itself never retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, floor 1.
	MaxAttempts int
	// InitialDelay is the first backoff delay; it doubles each attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

type retryModel struct {
	next LanguageModel
	cfg  RetryConfig
}

// WithRetry wraps a model so transient transport failures are retried with
// exponential backoff.
func WithRetry(next LanguageModel, cfg RetryConfig) LanguageModel {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retryModel{next: next, cfg: cfg}
}

func (m *retryModel) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*Completion, error) {
	delay := m.cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		completion, err := m.next.CompleteChat(ctx, messages, tools, stream)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if attempt == m.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.CodeLanguageModel, "retry cancelled", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if m.cfg.MaxDelay > 0 && delay > m.cfg.MaxDelay {
			delay = m.cfg.MaxDelay
		}
	}
	return nil, lastErr
}

type timeoutModel struct {
	next     LanguageModel
	duration time.Duration
}

// WithTimeout wraps a model so every completion call carries a deadline.
func WithTimeout(next LanguageModel, duration time.Duration) LanguageModel {
	return &timeoutModel{next: next, duration: duration}
}

func (m *timeoutModel) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*Completion, error) {
	if m.duration <= 0 {
		return m.next.CompleteChat(ctx, messages, tools, stream)
	}
	ctx, cancel := context.WithTimeout(ctx, m.duration)
	defer cancel()
	completion, err := m.next.CompleteChat(ctx, messages, tools, stream)
	if err != nil && ctx.Err() != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "model call exceeded timeout", ctx.Err())
	}
	return completion, err
}
