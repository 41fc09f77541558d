// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"encoding/json"
	"testing"
)

// Any transport built on the core serializes messages with these field
// names; they are part of the contract, not an implementation detail.
func TestMessageWireFieldNames(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`)}
	msg := AssistantCall("Calling tool `echo`", call)

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, field := range []string{"role", "content", "tool_call"} {
		if _, ok := raw[field]; !ok {
			t.Fatalf("field %q missing from %s", field, payload)
		}
	}

	var callRaw map[string]json.RawMessage
	if err := json.Unmarshal(raw["tool_call"], &callRaw); err != nil {
		t.Fatalf("Unmarshal tool_call: %v", err)
	}
	for _, field := range []string{"id", "name", "arguments"} {
		if _, ok := callRaw[field]; !ok {
			t.Fatalf("tool_call field %q missing from %s", field, raw["tool_call"])
		}
	}
}

func TestToolMessage(t *testing.T) {
	msg := Tool("echo", json.RawMessage(`"pong"`), "call-2")
	if msg.Role != RoleTool || msg.ToolResult == nil {
		t.Fatalf("msg = %+v", msg)
	}
	if msg.ToolResult.ToolCallID != "call-2" || msg.ToolResult.Name != "echo" {
		t.Fatalf("result = %+v", msg.ToolResult)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := AssistantCall("calling", ToolCall{ID: "x", Name: "n", Arguments: json.RawMessage(`{"a":1}`)})
	clone := original.Clone()

	clone.ToolCall.ID = "changed"
	clone.ToolCall.Arguments[2] = 'z'

	if original.ToolCall.ID != "x" {
		t.Fatal("clone shares ToolCall struct")
	}
	if string(original.ToolCall.Arguments) != `{"a":1}` {
		t.Fatalf("clone shares argument bytes: %s", original.ToolCall.Arguments)
	}
}
