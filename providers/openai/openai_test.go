// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package openai

import (
	"encoding/json"
	"testing"

	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

func TestNewProvider(t *testing.T) {
	p := New()
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
	if p.model != "gpt-5-mini" {
		t.Errorf("expected model gpt-5-mini, got %s", p.model)
	}
}

func TestWithModel(t *testing.T) {
	p := New(WithModel("gpt-4-turbo"))
	if p.model != "gpt-4-turbo" {
		t.Errorf("expected model gpt-4-turbo, got %s", p.model)
	}
}

func TestConvertMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  message.Message
	}{
		{name: "system message", msg: message.System("You are helpful")},
		{name: "user message", msg: message.User("Hello")},
		{name: "assistant message", msg: message.Assistant("Hi there")},
		{
			name: "assistant tool call",
			msg: message.AssistantCall("Calling tool `get_weather`", message.ToolCall{
				ID:        "call_123",
				Name:      "get_weather",
				Arguments: json.RawMessage(`{"location":"Valencia"}`),
			}),
		},
		{
			name: "tool result",
			msg:  message.Tool("get_weather", json.RawMessage(`"sunny"`), "call_123"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Just verify conversion doesn't panic
			_ = convertMessage(tt.msg)
		})
	}
}

func TestConvertTool(t *testing.T) {
	desc := tool.Description{
		Name:        "get_weather",
		Description: "Get weather for a location",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"location": {"type": "string"}},
			"required": ["location"]
		}`),
	}

	// Just verify conversion doesn't panic
	_ = convertTool(desc)
}
