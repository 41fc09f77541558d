// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"sync"
	"time"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

type fallbackModel struct {
	primary  LanguageModel
	fallback LanguageModel
}

// WithFallback wraps a primary model so that completion failures are
// routed to a fallback model. The primary's error is attached as the
// cause when the fallback also fails.
func WithFallback(primary, fallback LanguageModel) LanguageModel {
	return &fallbackModel{primary: primary, fallback: fallback}
}

func (m *fallbackModel) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*Completion, error) {
	completion, err := m.primary.CompleteChat(ctx, messages, tools, stream)
	if err == nil {
		return completion, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	completion, fbErr := m.fallback.CompleteChat(ctx, messages, tools, stream)
	if fbErr != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "primary and fallback models failed", fbErr)
	}
	return completion, nil
}

// BreakerState reports where a circuit breaker sits in its lifecycle.
type BreakerState string

const (
	// BreakerClosed passes calls through normally.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen rejects calls without reaching the model.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen probes whether the model has recovered.
	BreakerHalfOpen BreakerState = "half-open"
)

// BreakerConfig controls the circuit-breaker decorator.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the
	// circuit, floor 1.
	FailureThreshold int
	// SuccessThreshold is the consecutive success count in half-open
	// that closes it again, floor 1.
	SuccessThreshold int
	// Cooldown is how long an open circuit waits before probing.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the default circuit-breaker policy.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// BreakerModel sheds load when the wrapped model fails repeatedly,
// letting the provider recover instead of hammering it.
type BreakerModel struct {
	next LanguageModel
	cfg  BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// WithCircuitBreaker wraps a model with circuit-breaker load shedding.
func WithCircuitBreaker(next LanguageModel, cfg BreakerConfig) *BreakerModel {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &BreakerModel{next: next, cfg: cfg, state: BreakerClosed}
}

func (m *BreakerModel) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*Completion, error) {
	if err := m.allow(); err != nil {
		return nil, err
	}
	completion, err := m.next.CompleteChat(ctx, messages, tools, stream)
	m.record(err == nil)
	return completion, err
}

// State returns the breaker's current state.
func (m *BreakerModel) State() BreakerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset forces the breaker back to closed.
func (m *BreakerModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = BreakerClosed
	m.failures = 0
	m.successes = 0
}

func (m *BreakerModel) allow() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == BreakerOpen {
		if time.Since(m.openedAt) < m.cfg.Cooldown {
			return errors.New(errors.CodeLanguageModel, "model circuit open")
		}
		m.state = BreakerHalfOpen
		m.failures = 0
		m.successes = 0
	}
	return nil
}

func (m *BreakerModel) record(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.failures = 0
		if m.state == BreakerHalfOpen {
			m.successes++
			if m.successes >= m.cfg.SuccessThreshold {
				m.state = BreakerClosed
				m.successes = 0
			}
		}
		return
	}
	m.successes = 0
	if m.state == BreakerHalfOpen {
		m.state = BreakerOpen
		m.openedAt = time.Now()
		return
	}
	m.failures++
	if m.failures >= m.cfg.FailureThreshold {
		m.state = BreakerOpen
		m.openedAt = time.Now()
		m.failures = 0
	}
}
