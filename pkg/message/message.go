// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package message defines the transcript primitives shared across agents,
// teams, and workflows: messages, tool calls, and tool results.
package message

import "encoding/json"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to invoke a named tool with JSON arguments.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult carries the JSON output of a completed tool invocation.
type ToolResult struct {
	Name       string          `json:"name"`
	Output     json.RawMessage `json:"output,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// Attachment is an opaque named payload carried alongside a message.
type Attachment struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is a single transcript entry. Messages are immutable once
// appended to a conversation; callers must not mutate a returned Message.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCall    *ToolCall    `json:"tool_call,omitempty"`
	ToolResult  *ToolResult  `json:"tool_result,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantCall builds the assistant message recorded before a tool runs.
func AssistantCall(content string, call ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCall: &call}
}

// Tool builds the tool message recorded after a tool returns.
func Tool(name string, output json.RawMessage, toolCallID string) Message {
	return Message{
		Role:    RoleTool,
		Content: string(output),
		ToolResult: &ToolResult{
			Name:       name,
			Output:     output,
			ToolCallID: toolCallID,
		},
	}
}

// Clone returns a deep copy so the original stays immutable.
func (m Message) Clone() Message {
	out := m
	if m.ToolCall != nil {
		call := *m.ToolCall
		call.Arguments = append(json.RawMessage(nil), m.ToolCall.Arguments...)
		out.ToolCall = &call
	}
	if m.ToolResult != nil {
		result := *m.ToolResult
		result.Output = append(json.RawMessage(nil), m.ToolResult.Output...)
		out.ToolResult = &result
	}
	if m.Attachments != nil {
		out.Attachments = make([]Attachment, len(m.Attachments))
		for i, att := range m.Attachments {
			att.Data = append(json.RawMessage(nil), att.Data...)
			out.Attachments[i] = att
		}
	}
	return out
}
