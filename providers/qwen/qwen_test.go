// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package qwen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

func TestCompleteChatRoundTrip(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": "hello back",
				},
				"finish_reason": "stop",
			}},
		})
	}))
	defer server.Close()

	p := New("test-key", WithBaseURL(server.URL), WithModel("qwen-turbo"))
	completion, err := p.CompleteChat(context.Background(),
		[]message.Message{message.System("be brief"), message.User("hello")},
		[]tool.Description{{Name: "lookup", Description: "looks up"}},
		false,
	)
	if err != nil {
		t.Fatalf("CompleteChat error: %v", err)
	}
	if completion.Content != "hello back" {
		t.Fatalf("expected content, got %q", completion.Content)
	}
	if captured.Model != "qwen-turbo" {
		t.Fatalf("expected model qwen-turbo, got %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "lookup" {
		t.Fatalf("unexpected tools %+v", captured.Tools)
	}
}

func TestCompleteChatMapsToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   "call_9",
						"type": "function",
						"function": map[string]any{
							"name":      "lookup",
							"arguments": `{"q":"braid"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer server.Close()

	p := New("test-key", WithBaseURL(server.URL))
	completion, err := p.CompleteChat(context.Background(), []message.Message{message.User("hi")}, nil, false)
	if err != nil {
		t.Fatalf("CompleteChat error: %v", err)
	}
	if len(completion.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(completion.ToolCalls))
	}
	call := completion.ToolCalls[0]
	if call.ID != "call_9" || call.Name != "lookup" || string(call.Arguments) != `{"q":"braid"}` {
		t.Fatalf("unexpected tool call %+v", call)
	}
}

func TestCompleteChatSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	}))
	defer server.Close()

	p := New("test-key", WithBaseURL(server.URL))
	_, err := p.CompleteChat(context.Background(), []message.Message{message.User("hi")}, nil, false)
	if err == nil {
		t.Fatal("expected error")
	}
}
