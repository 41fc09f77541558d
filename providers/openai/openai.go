// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package openai provides an OpenAI chat provider for Braid.
package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// Provider implements llm.LanguageModel over the OpenAI API.
type Provider struct {
	client openai.Client
	model  string
}

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL (for Azure OpenAI or proxies).
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.client = openai.NewClient(option.WithBaseURL(url))
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.client = openai.NewClient(option.WithAPIKey(apiKey))
	}
}

// New creates an OpenAI provider. The API key is read from the
// OPENAI_API_KEY environment variable by default.
func New(opts ...Option) *Provider {
	p := &Provider{
		client: openai.NewClient(),
		model:  "gpt-5-mini",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ llm.LanguageModel = (*Provider)(nil)

// CompleteChat implements llm.LanguageModel.
func (p *Provider) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*llm.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		converted := make([]openai.ChatCompletionToolParam, 0, len(tools))
		for _, t := range tools {
			converted = append(converted, convertTool(t))
		}
		params.Tools = converted
	}

	if stream {
		return p.collectStream(ctx, params)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "openai chat completion", err)
	}
	return convertResponse(completion), nil
}

func (p *Provider) collectStream(ctx context.Context, params openai.ChatCompletionNewParams) (*llm.Completion, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	var content string
	calls := make(map[int]*message.ToolCall)
	arguments := make(map[int]string)

	for stream.Next() {
		event := stream.Current()
		if len(event.Choices) == 0 {
			continue
		}
		delta := event.Choices[0].Delta
		content += delta.Content
		for _, tc := range delta.ToolCalls {
			idx := int(tc.Index)
			if _, ok := calls[idx]; !ok {
				calls[idx] = &message.ToolCall{ID: tc.ID, Name: tc.Function.Name}
			}
			arguments[idx] += tc.Function.Arguments
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "openai chat stream", err)
	}

	out := &llm.Completion{Content: content}
	for i := 0; i < len(calls); i++ {
		call, ok := calls[i]
		if !ok {
			continue
		}
		call.Arguments = json.RawMessage(arguments[i])
		out.ToolCalls = append(out.ToolCalls, *call)
	}
	return out, nil
}

func convertMessages(messages []message.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		out = append(out, convertMessage(msg))
	}
	return out
}

func convertMessage(msg message.Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case message.RoleSystem:
		return openai.SystemMessage(msg.Content)
	case message.RoleUser:
		return openai.UserMessage(msg.Content)
	case message.RoleAssistant:
		if msg.ToolCall != nil {
			assistant := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
					ID:   msg.ToolCall.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      msg.ToolCall.Name,
						Arguments: string(msg.ToolCall.Arguments),
					},
				}},
			}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				}
			}
			return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
		}
		return openai.AssistantMessage(msg.Content)
	case message.RoleTool:
		if msg.ToolResult != nil {
			return openai.ToolMessage(string(msg.ToolResult.Output), msg.ToolResult.ToolCallID)
		}
		return openai.ToolMessage(msg.Content, "")
	default:
		return openai.UserMessage(msg.Content)
	}
}

func convertTool(t tool.Description) openai.ChatCompletionToolParam {
	var params openai.FunctionParameters
	if len(t.Parameters) > 0 {
		_ = json.Unmarshal(t.Parameters, &params)
	}
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		},
	}
}

func convertResponse(completion *openai.ChatCompletion) *llm.Completion {
	out := &llm.Completion{}
	if len(completion.Choices) == 0 {
		return out
	}
	choice := completion.Choices[0]
	out.Content = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, message.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out
}
