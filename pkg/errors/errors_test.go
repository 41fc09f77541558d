// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeLanguageModel, "complete chat", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
	if !HasCode(err, CodeLanguageModel) {
		t.Fatalf("code = %v, want LLM_ERROR", CodeOf(err))
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeToolNotFound, "no such tool")
	outer := Wrap(CodeProtocol, "respond failed", inner)

	if !HasCode(outer, CodeProtocol) {
		t.Fatal("outer code not reported")
	}
	if HasCode(outer, CodeToolNotFound) {
		// The outermost braid error wins; inner codes are reachable via
		// Unwrap, not HasCode.
		t.Fatal("inner code leaked through outer error")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if got := CodeOf(stderrors.New("plain")); got != CodeInternal {
		t.Fatalf("CodeOf = %v, want INTERNAL_ERROR", got)
	}
}

func TestWithContext(t *testing.T) {
	err := New(CodeStorage, "write failed").
		WithContext("path", "/tmp/x").
		WithContext("attempt", 2)

	if err.Context["path"] != "/tmp/x" || err.Context["attempt"] != 2 {
		t.Fatalf("context = %v", err.Context)
	}
}
