// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

// Ollama implements LanguageModel against a local Ollama server.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama provider for the given model.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ollamaFunction `json:"function"`
}

type ollamaFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// CompleteChat sends the transcript and catalogue to /api/chat and maps the
// reply onto a Completion.
func (p *Ollama) CompleteChat(ctx context.Context, messages []message.Message, tools []tool.Description, stream bool) (*Completion, error) {
	req := ollamaRequest{
		Model:    p.model,
		Messages: toOllamaMessages(messages),
		Stream:   stream,
		Tools:    toOllamaTools(tools),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "marshal ollama request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "build ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "ollama api call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeLanguageModel, "ollama api returned status %d", resp.StatusCode)
	}

	if stream {
		return p.collectStream(resp)
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "decode ollama response", err)
	}
	return completionFromOllama(oResp.Message), nil
}

// collectStream drains a line-delimited streaming response into one
// completion. Braid has no token-level consumer; streaming only changes the
// transport.
func (p *Ollama) collectStream(resp *http.Response) (*Completion, error) {
	var content strings.Builder
	var calls []message.ToolCall

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, errors.Wrap(errors.CodeLanguageModel, "decode ollama stream chunk", err)
		}
		content.WriteString(chunk.Message.Content)
		for _, call := range chunk.Message.ToolCalls {
			calls = append(calls, message.ToolCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeLanguageModel, "read ollama stream", err)
	}
	return &Completion{Content: content.String(), ToolCalls: calls}, nil
}

func completionFromOllama(msg ollamaMessage) *Completion {
	out := &Completion{Content: msg.Content}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, message.ToolCall{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}

func toOllamaMessages(messages []message.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		om := ollamaMessage{Role: string(msg.Role), Content: msg.Content}
		if msg.ToolCall != nil {
			om.ToolCalls = []ollamaToolCall{{
				Function: ollamaFunctionCall{
					Name:      msg.ToolCall.Name,
					Arguments: msg.ToolCall.Arguments,
				},
			}}
		}
		if msg.ToolResult != nil && om.Content == "" {
			om.Content = fmt.Sprintf("%s returned %s", msg.ToolResult.Name, msg.ToolResult.Output)
		}
		out = append(out, om)
	}
	return out
}

func toOllamaTools(tools []tool.Description) []ollamaTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]ollamaTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ollamaTool{
			Type: "function",
			Function: ollamaFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
