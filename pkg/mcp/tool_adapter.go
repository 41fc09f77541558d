// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolAdapter exposes one MCP tool through the runtime's tool contract.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
}

var _ tool.Tool = (*ToolAdapter)(nil)

// NewToolAdapter builds an adapter for the given MCP tool definition.
func NewToolAdapter(t mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if t.Name == "" {
		return nil, errors.New(errors.CodeProtocol, "mcp tool name is required")
	}
	if caller == nil {
		return nil, errors.New(errors.CodeProtocol, "tool caller is required")
	}
	return &ToolAdapter{tool: t, caller: caller}, nil
}

// Name returns the MCP tool name.
func (t *ToolAdapter) Name() string { return t.tool.Name }

// Description returns the MCP tool description.
func (t *ToolAdapter) Description() string { return t.tool.Description }

// Parameters returns the tool's input schema as JSON.
func (t *ToolAdapter) Parameters() json.RawMessage {
	if t.tool.RawInputSchema != nil {
		return json.RawMessage(t.tool.RawInputSchema)
	}
	encoded, err := json.Marshal(t.tool.InputSchema)
	if err != nil {
		return nil
	}
	return encoded
}

// Call invokes the MCP tool and returns its output as JSON.
func (t *ToolAdapter) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args, err := decodeArgs(input)
	if err != nil {
		return nil, err
	}
	if err := validateRequiredArgs(t.tool, args); err != nil {
		return nil, err
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return nil, errors.Wrap(errors.CodeToolInvocation, "mcp call "+t.tool.Name, err)
	}
	return resultToJSON(result)
}

// RegisterTools discovers the client's tools and registers an adapter for
// each into registry.
func RegisterTools(ctx context.Context, registry *tool.Registry, client *Client) error {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeToolInvocation, "list mcp tools", err)
	}
	for _, t := range tools {
		adapter, err := NewToolAdapter(t, client)
		if err != nil {
			return err
		}
		registry.Register(adapter)
	}
	return nil
}

func decodeArgs(input json.RawMessage) (map[string]any, error) {
	if len(input) == 0 {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(input, &decoded); err != nil {
		return nil, errors.Wrap(errors.CodeProtocol, "mcp tool arguments must be a JSON object", err)
	}
	return decoded, nil
}

func validateRequiredArgs(t mcp.Tool, args map[string]any) error {
	schema := t.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return errors.Newf(errors.CodeProtocol, "mcp tool %s: missing required field %q", t.Name, key)
		}
	}
	return nil
}

func resultToJSON(result *mcp.CallToolResult) (json.RawMessage, error) {
	if result == nil {
		return nil, errors.New(errors.CodeToolInvocation, "mcp tool result is nil")
	}
	if result.IsError {
		return nil, errors.Newf(errors.CodeToolInvocation, "mcp tool returned error: %s", extractTextContent(result.Content))
	}
	if result.StructuredContent != nil {
		return json.Marshal(result.StructuredContent)
	}
	if text := extractTextContent(result.Content); text != "" {
		return json.Marshal(text)
	}
	return json.Marshal(result)
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
