// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
)

func TestWithFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	primary := Always(Respond("primary"))
	fallback := Always(Respond("fallback"))
	model := WithFallback(primary, fallback)

	completion, err := model.CompleteChat(context.Background(), []message.Message{message.User("hi")}, nil, false)
	if err != nil {
		t.Fatalf("CompleteChat: %v", err)
	}
	if completion.Content != "primary" {
		t.Fatalf("content = %q", completion.Content)
	}
	if fallback.CallCount() != 0 {
		t.Fatalf("fallback called %d times", fallback.CallCount())
	}
}

func TestWithFallbackRoutesFailures(t *testing.T) {
	primary := NewStub().Fail(errors.New(errors.CodeLanguageModel, "overloaded"))
	fallback := Always(Respond("fallback"))
	model := WithFallback(primary, fallback)

	completion, err := model.CompleteChat(context.Background(), []message.Message{message.User("hi")}, nil, false)
	if err != nil {
		t.Fatalf("CompleteChat: %v", err)
	}
	if completion.Content != "fallback" {
		t.Fatalf("content = %q", completion.Content)
	}
}

func TestWithFallbackReportsDoubleFailure(t *testing.T) {
	primary := NewStub().Fail(errors.New(errors.CodeLanguageModel, "primary down"))
	fallback := NewStub().Fail(errors.New(errors.CodeLanguageModel, "fallback down"))
	model := WithFallback(primary, fallback)

	_, err := model.CompleteChat(context.Background(), []message.Message{message.User("hi")}, nil, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.HasCode(err, errors.CodeLanguageModel) {
		t.Fatalf("code = %v", errors.CodeOf(err))
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	failing := NewStub().Fail(errors.New(errors.CodeLanguageModel, "down"))
	breaker := WithCircuitBreaker(failing, BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Hour,
	})
	msgs := []message.Message{message.User("hi")}

	for i := 0; i < 2; i++ {
		if _, err := breaker.CompleteChat(context.Background(), msgs, nil, false); err == nil {
			t.Fatal("expected error")
		}
	}
	if breaker.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", breaker.State())
	}

	_, err := breaker.CompleteChat(context.Background(), msgs, nil, false)
	if err == nil {
		t.Fatal("expected open-circuit rejection")
	}
	if failing.CallCount() != 2 {
		t.Fatalf("model called %d times, want 2", failing.CallCount())
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	model := Always(Respond("ok"))
	breaker := WithCircuitBreaker(model, BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         time.Millisecond,
	})
	msgs := []message.Message{message.User("hi")}

	breaker.mu.Lock()
	breaker.state = BreakerOpen
	breaker.openedAt = time.Now().Add(-time.Second)
	breaker.mu.Unlock()

	completion, err := breaker.CompleteChat(context.Background(), msgs, nil, false)
	if err != nil {
		t.Fatalf("CompleteChat: %v", err)
	}
	if completion.Content != "ok" {
		t.Fatalf("content = %q", completion.Content)
	}
	if breaker.State() != BreakerClosed {
		t.Fatalf("state = %s, want closed", breaker.State())
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	breaker := WithCircuitBreaker(Always(Respond("ok")), DefaultBreakerConfig())
	breaker.mu.Lock()
	breaker.state = BreakerOpen
	breaker.openedAt = time.Now()
	breaker.mu.Unlock()

	breaker.Reset()
	if breaker.State() != BreakerClosed {
		t.Fatalf("state = %s after Reset", breaker.State())
	}
}
