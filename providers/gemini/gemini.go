// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package gemini provides a Google Gemini chat provider for Braid.
package gemini

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// Provider implements llm.LanguageModel over the Gemini API.
type Provider struct {
	client *genai.Client
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

// New creates a Gemini provider. The API key is read from the
// GOOGLE_API_KEY or GEMINI_API_KEY environment variable by default.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "create gemini client", err)
	}
	p := &Provider{
		client: client,
		model:  "gemini-3-flash-preview",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewWithAPIKey creates a Gemini provider with an explicit API key.
func NewWithAPIKey(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "create gemini client", err)
	}
	p := &Provider{
		client: client,
		model:  "gemini-3-flash-preview",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

var _ llm.LanguageModel = (*Provider)(nil)

// CompleteChat implements llm.LanguageModel. Streaming falls back to a
// single blocking request.
func (p *Provider) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, _ bool) (*llm.Completion, error) {
	contents, systemInstruction := convertMessages(messages)

	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}
	if len(tools) > 0 {
		config.Tools = []*genai.Tool{
			{FunctionDeclarations: convertTools(tools)},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "gemini generate content", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []message.Message) ([]*genai.Content, string) {
	var systemInstruction string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			systemInstruction = msg.Content
		case message.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case message.RoleAssistant:
			content := &genai.Content{Role: "model"}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			if msg.ToolCall != nil {
				var args map[string]any
				_ = json.Unmarshal(msg.ToolCall.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: msg.ToolCall.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case message.RoleTool:
			if msg.ToolResult == nil {
				continue
			}
			// Gemini keys function responses by name, not call ID.
			var result map[string]any
			if err := json.Unmarshal(msg.ToolResult.Output, &result); err != nil {
				result = map[string]any{"result": string(msg.ToolResult.Output)}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     msg.ToolResult.Name,
						Response: result,
					},
				}},
			})
		}
	}

	return contents, systemInstruction
}

func convertTools(tools []tool.Description) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema *genai.Schema
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &schema)
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return declarations
}

func convertResponse(resp *genai.GenerateContentResponse) *llm.Completion {
	out := &llm.Completion{}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			arguments, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: arguments,
			})
		}
	}
	return out
}
