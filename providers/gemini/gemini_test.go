// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"encoding/json"
	"testing"

	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

func TestConvertMessagesSplitsSystemInstruction(t *testing.T) {
	contents, system := convertMessages([]message.Message{
		message.System("You are terse."),
		message.User("Hello"),
		message.Assistant("Hi"),
	})
	if system != "You are terse." {
		t.Fatalf("expected system instruction, got %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[1].Role != "model" {
		t.Fatalf("expected model role, got %q", contents[1].Role)
	}
}

func TestConvertMessagesToolResult(t *testing.T) {
	contents, _ := convertMessages([]message.Message{
		message.Tool("lookup", json.RawMessage(`{"hits":1}`), "call-1"),
	})
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	part := contents[0].Parts[0]
	if part.FunctionResponse == nil || part.FunctionResponse.Name != "lookup" {
		t.Fatalf("expected function response for lookup, got %+v", part)
	}
}

func TestConvertTools(t *testing.T) {
	declarations := convertTools([]tool.Description{{
		Name:        "lookup",
		Description: "Looks something up",
		Parameters:  json.RawMessage(`{"type":"object"}`),
	}})
	if len(declarations) != 1 || declarations[0].Name != "lookup" {
		t.Fatalf("expected lookup declaration, got %+v", declarations)
	}
}
