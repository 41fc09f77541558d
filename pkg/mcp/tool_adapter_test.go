// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/braidhq/braid/pkg/errors"
)

type stubCaller struct {
	lastName string
	lastArgs map[string]any
	result   *mcp.CallToolResult
	err      error
}

func (s *stubCaller) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func TestToolAdapterCallForwardsArguments(t *testing.T) {
	def := mcp.Tool{
		Name:        "sum",
		Description: "adds two numbers",
		InputSchema: mcp.ToolInputSchema{
			Type:     "object",
			Required: []string{"a", "b"},
		},
	}
	caller := &stubCaller{result: textResult("3")}

	adapter, err := NewToolAdapter(def, caller)
	if err != nil {
		t.Fatalf("NewToolAdapter error: %v", err)
	}
	if adapter.Name() != "sum" || adapter.Description() != "adds two numbers" {
		t.Fatalf("unexpected identity: %q %q", adapter.Name(), adapter.Description())
	}

	output, err := adapter.Call(context.Background(), []byte(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if string(output) != `"3"` {
		t.Fatalf("expected \"3\", got %s", output)
	}
	if caller.lastName != "sum" {
		t.Fatalf("expected tool name sum, got %q", caller.lastName)
	}
	if caller.lastArgs["a"] != float64(1) || caller.lastArgs["b"] != float64(2) {
		t.Fatalf("expected args a=1 b=2, got %v", caller.lastArgs)
	}
}

func TestToolAdapterCallValidatesRequiredArgs(t *testing.T) {
	def := mcp.Tool{
		Name: "needs-foo",
		InputSchema: mcp.ToolInputSchema{
			Type:     "object",
			Required: []string{"foo"},
		},
	}
	caller := &stubCaller{result: textResult("ok")}

	adapter, err := NewToolAdapter(def, caller)
	if err != nil {
		t.Fatalf("NewToolAdapter error: %v", err)
	}

	_, err = adapter.Call(context.Background(), []byte(`{"bar":"baz"}`))
	if err == nil || !strings.Contains(err.Error(), "missing required field") {
		t.Fatalf("expected missing required field error, got %v", err)
	}
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	if caller.lastName != "" {
		t.Fatalf("caller should not have been invoked, called %q", caller.lastName)
	}
}

func TestToolAdapterCallRejectsNonObjectInput(t *testing.T) {
	def := mcp.Tool{Name: "echo"}
	adapter, err := NewToolAdapter(def, &stubCaller{result: textResult("ok")})
	if err != nil {
		t.Fatalf("NewToolAdapter error: %v", err)
	}

	_, err = adapter.Call(context.Background(), []byte(`[1,2]`))
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestToolAdapterCallMapsErrorResult(t *testing.T) {
	def := mcp.Tool{Name: "broken"}
	caller := &stubCaller{result: &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "disk full"}},
	}}

	adapter, err := NewToolAdapter(def, caller)
	if err != nil {
		t.Fatalf("NewToolAdapter error: %v", err)
	}

	_, err = adapter.Call(context.Background(), nil)
	if !errors.HasCode(err, errors.CodeToolInvocation) {
		t.Fatalf("expected tool invocation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected server text in error, got %v", err)
	}
}

func TestToolAdapterCallPrefersStructuredContent(t *testing.T) {
	def := mcp.Tool{Name: "lookup"}
	caller := &stubCaller{result: &mcp.CallToolResult{
		StructuredContent: map[string]any{"hits": 2},
	}}

	adapter, err := NewToolAdapter(def, caller)
	if err != nil {
		t.Fatalf("NewToolAdapter error: %v", err)
	}

	output, err := adapter.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if string(output) != `{"hits":2}` {
		t.Fatalf("expected structured content, got %s", output)
	}
}

func TestNewToolAdapterRequiresNameAndCaller(t *testing.T) {
	if _, err := NewToolAdapter(mcp.Tool{}, &stubCaller{}); err == nil {
		t.Fatal("expected error for empty tool name")
	}
	if _, err := NewToolAdapter(mcp.Tool{Name: "x"}, nil); err == nil {
		t.Fatal("expected error for nil caller")
	}
}
