// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package anthropic provides an Anthropic Claude chat provider for Braid.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// Provider implements llm.LanguageModel over the Anthropic API.
type Provider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithMaxTokens sets the maximum tokens per response.
func WithMaxTokens(tokens int64) Option {
	return func(p *Provider) {
		p.maxTokens = tokens
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.client = anthropic.NewClient(option.WithBaseURL(url))
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	}
}

// New creates an Anthropic provider. The API key is read from the
// ANTHROPIC_API_KEY environment variable by default.
func New(opts ...Option) *Provider {
	p := &Provider{
		client:    anthropic.NewClient(),
		model:     "claude-sonnet-4-20250514",
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ llm.LanguageModel = (*Provider)(nil)

// CompleteChat implements llm.LanguageModel. Streaming falls back to a
// single blocking request.
func (p *Provider) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, _ bool) (*llm.Completion, error) {
	// Anthropic carries the system prompt outside the message list.
	var systemPrompt string
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == message.RoleSystem {
			systemPrompt = msg.Content
			continue
		}
		converted = append(converted, convertMessage(msg))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  converted,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: systemPrompt}}
	}
	if len(tools) > 0 {
		toolParams := make([]anthropic.ToolUnionParam, 0, len(tools))
		for _, t := range tools {
			toolParams = append(toolParams, convertTool(t))
		}
		params.Tools = toolParams
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "anthropic message", err)
	}
	return convertResponse(response), nil
}

func convertMessage(msg message.Message) anthropic.MessageParam {
	switch msg.Role {
	case message.RoleUser:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content))
	case message.RoleAssistant:
		if msg.ToolCall != nil {
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 2)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			var input map[string]any
			_ = json.Unmarshal(msg.ToolCall.Arguments, &input)
			blocks = append(blocks, anthropic.NewToolUseBlock(msg.ToolCall.ID, input, msg.ToolCall.Name))
			return anthropic.MessageParam{Role: "assistant", Content: blocks}
		}
		return anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content))
	case message.RoleTool:
		// Anthropic requires tool results as user messages.
		output := msg.Content
		if msg.ToolResult != nil {
			output = string(msg.ToolResult.Output)
		}
		id := ""
		if msg.ToolResult != nil {
			id = msg.ToolResult.ToolCallID
		}
		return anthropic.NewUserMessage(anthropic.NewToolResultBlock(id, output, false))
	default:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content))
	}
}

func convertTool(t tool.Description) anthropic.ToolUnionParam {
	var inputSchema anthropic.ToolInputSchemaParam
	if len(t.Parameters) > 0 {
		_ = json.Unmarshal(t.Parameters, &inputSchema)
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: inputSchema,
		},
	}
}

func convertResponse(response *anthropic.Message) *llm.Completion {
	out := &llm.Completion{}
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			arguments, _ := json.Marshal(block.Input)
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: arguments,
			})
		}
	}
	return out
}
