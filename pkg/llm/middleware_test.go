// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// flakyModel fails a fixed number of times before succeeding.
type flakyModel struct {
	failures int32
	calls    int32
}

func (m *flakyModel) CompleteChat(context.Context, []message.Message, []tool.Description, bool) (*Completion, error) {
	n := atomic.AddInt32(&m.calls, 1)
	if n <= m.failures {
		return nil, errors.New(errors.CodeLanguageModel, "transient")
	}
	return &Completion{Content: "ok"}, nil
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &flakyModel{failures: 2}
	model := WithRetry(inner, RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	completion, err := model.CompleteChat(context.Background(), nil, nil, false)
	if err != nil {
		t.Fatalf("CompleteChat: %v", err)
	}
	if completion.Content != "ok" {
		t.Fatalf("content = %q, want ok", completion.Content)
	}
	if got := atomic.LoadInt32(&inner.calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestWithRetryReturnsLastError(t *testing.T) {
	inner := &flakyModel{failures: 10}
	model := WithRetry(inner, RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})

	_, err := model.CompleteChat(context.Background(), nil, nil, false)
	if !errors.HasCode(err, errors.CodeLanguageModel) {
		t.Fatalf("err = %v, want llm error", err)
	}
	if got := atomic.LoadInt32(&inner.calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	inner := &flakyModel{failures: 10}
	model := WithRetry(inner, RetryConfig{MaxAttempts: 5, InitialDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := model.CompleteChat(ctx, nil, nil, false)
	if !errors.HasCode(err, errors.CodeLanguageModel) {
		t.Fatalf("err = %v, want llm error", err)
	}
	if got := atomic.LoadInt32(&inner.calls); got != 1 {
		t.Fatalf("calls = %d, want 1 before cancellation", got)
	}
}

// stalledModel blocks until its context is done.
type stalledModel struct{}

func (stalledModel) CompleteChat(ctx context.Context, _ []message.Message, _ []tool.Description, _ bool) (*Completion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	model := WithTimeout(stalledModel{}, 5*time.Millisecond)
	_, err := model.CompleteChat(context.Background(), nil, nil, false)
	if !errors.HasCode(err, errors.CodeLanguageModel) {
		t.Fatalf("err = %v, want llm error", err)
	}
}

func TestStubScriptExhaustion(t *testing.T) {
	stub := NewStub(Respond("only one"))
	if _, err := stub.CompleteChat(context.Background(), nil, nil, false); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := stub.CompleteChat(context.Background(), nil, nil, false)
	if !errors.HasCode(err, errors.CodeLanguageModel) {
		t.Fatalf("err = %v, want llm error on exhaustion", err)
	}
}
