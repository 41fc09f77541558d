// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the directive state machine that drives a single
// agent through a bounded loop of model completions and tool invocations.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/governance"
	"github.com/braidhq/braid/pkg/knowledge"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/memory"
	"github.com/braidhq/braid/pkg/message"
	"github.com/braidhq/braid/pkg/tool"
)

const defaultMaxSteps = 6

// Agent alternates between the language model and registered tools until
// the model produces a final reply or the step budget runs out.
type Agent struct {
	name         string
	systemPrompt string
	model        llm.LanguageModel
	tools        *tool.Registry
	memory       *memory.Conversation
	strategy     memory.Strategy
	maxSteps     int
	streaming    bool
	inputSchema  json.RawMessage
	outputSchema json.RawMessage
	hooks        []Hook
	retriever    knowledge.Retriever
	confirmation ConfirmationHandler
	access       *governance.AccessController
	principal    governance.Principal
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures an Agent instance.
type Option func(*Agent)

// New creates an agent for the given model.
func New(model llm.LanguageModel, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, errors.New(errors.CodeProtocol, "agent model is required")
	}
	a := &Agent{
		name:         "agent",
		systemPrompt: "You are a helpful agent.",
		model:        model,
		tools:        tool.NewRegistry(),
		memory:       memory.NewConversation(),
		maxSteps:     defaultMaxSteps,
		principal:    governance.Anonymous(),
		logger:       slog.Default(),
		tracer:       otel.Tracer("braid/agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// WithName sets the agent name used in logs and traces.
func WithName(name string) Option {
	return func(a *Agent) { a.name = name }
}

// WithSystemPrompt sets the base instructions.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithTools attaches a tool registry.
func WithTools(tools *tool.Registry) Option {
	return func(a *Agent) {
		if tools != nil {
			a.tools = tools
		}
	}
}

// WithMemory attaches an existing transcript.
func WithMemory(conversation *memory.Conversation) Option {
	return func(a *Agent) {
		if conversation != nil {
			a.memory = conversation
		}
	}
}

// WithMemoryStrategy trims the prompt view of the transcript. The stored
// transcript itself is never trimmed.
func WithMemoryStrategy(strategy memory.Strategy) Option {
	return func(a *Agent) { a.strategy = strategy }
}

// WithMaxSteps bounds the directive loop, floor 1.
func WithMaxSteps(maxSteps int) Option {
	return func(a *Agent) {
		if maxSteps < 1 {
			maxSteps = 1
		}
		a.maxSteps = maxSteps
	}
}

// WithStreaming passes the streaming flag through to the model.
func WithStreaming(streaming bool) Option {
	return func(a *Agent) { a.streaming = streaming }
}

// WithInputSchema adds a JSON shape hint for user input to the prompt.
func WithInputSchema(schema json.RawMessage) Option {
	return func(a *Agent) { a.inputSchema = schema }
}

// WithOutputSchema adds a JSON shape hint for final replies to the prompt.
func WithOutputSchema(schema json.RawMessage) Option {
	return func(a *Agent) { a.outputSchema = schema }
}

// WithHook appends a loop hook.
func WithHook(hook Hook) Option {
	return func(a *Agent) { a.hooks = append(a.hooks, hook) }
}

// WithRetriever attaches a context retriever. Retrieval failures are
// swallowed and treated as "no context".
func WithRetriever(retriever knowledge.Retriever) Option {
	return func(a *Agent) { a.retriever = retriever }
}

// WithConfirmation requires tool calls to be approved by handler before
// they execute.
func WithConfirmation(handler ConfirmationHandler) Option {
	return func(a *Agent) { a.confirmation = handler }
}

// WithAccessControl enforces authorization against the given controller.
func WithAccessControl(controller *governance.AccessController) Option {
	return func(a *Agent) { a.access = controller }
}

// WithPrincipal sets the default principal used by Respond.
func WithPrincipal(principal governance.Principal) Option {
	return func(a *Agent) { a.principal = principal }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Tools returns the agent's tool registry.
func (a *Agent) Tools() *tool.Registry { return a.tools }

// Memory returns the agent's transcript.
func (a *Agent) Memory() *memory.Conversation { return a.memory }

// Respond runs a single exchange on behalf of the agent's default
// principal and returns the final assistant reply.
func (a *Agent) Respond(ctx context.Context, input string) (string, error) {
	return a.RespondAs(ctx, a.principal, input)
}

// RespondAs runs a single exchange on behalf of the given principal.
//
// The transcript is append-only: progress committed before a failure is
// never rolled back. Tool, model, and hook failures abort the in-flight
// call; a confirmation rejection is the only recoverable branch.
func (a *Agent) RespondAs(ctx context.Context, principal governance.Principal, input string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "Agent.Respond", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.String("principal.id", principal.ID),
	))
	defer span.End()

	a.memory.Append(message.User(input))

	if a.access != nil && !a.access.Authorize(principal, governance.SendMessage) {
		return "", errors.Newf(errors.CodeProtocol,
			"principal %q not authorized to send messages", principal.ID).
			WithContext("unauthorized", true)
	}

	for step := 0; step < a.maxSteps; step++ {
		reply, done, err := a.step(ctx, principal, input, step)
		if err != nil {
			span.RecordError(err)
			return "", err
		}
		if done {
			return reply, nil
		}
	}

	err := errors.New(errors.CodeProtocol, "agent reached the step limit without returning a response").
		WithContext("max_steps", a.maxSteps)
	span.RecordError(err)
	return "", err
}

// step runs one model invocation plus any tool calls it requests. It
// returns done=true with the final reply when the model responded with
// content and no tool calls.
func (a *Agent) step(ctx context.Context, principal governance.Principal, input string, step int) (string, bool, error) {
	request := a.buildRequest(ctx, input)
	catalogue := a.tools.Describe()

	for _, hook := range a.hooks {
		if err := hook.BeforeModel(ctx, request); err != nil {
			return "", false, err
		}
	}

	completion, err := a.model.CompleteChat(ctx, request, catalogue, a.streaming)
	if err != nil {
		return "", false, err
	}

	for _, hook := range a.hooks {
		if err := hook.AfterModel(ctx, completion); err != nil {
			return "", false, err
		}
	}

	if len(completion.ToolCalls) > 0 {
		for _, call := range completion.ToolCalls {
			if err := a.runToolCall(ctx, principal, call); err != nil {
				return "", false, err
			}
		}
		return "", false, nil
	}

	if completion.Content != "" {
		a.memory.Append(message.Assistant(completion.Content))
		a.logger.Debug("agent.respond.complete",
			slog.String("agent", a.name),
			slog.Int("steps", step+1),
		)
		return completion.Content, true, nil
	}

	return "", false, errors.New(errors.CodeProtocol, "model response missing content and tool calls")
}

// runToolCall authorizes, confirms, records, and executes one tool call.
func (a *Agent) runToolCall(ctx context.Context, principal governance.Principal, call message.ToolCall) error {
	if call.ID == "" {
		call.ID = "call-" + strconv.Itoa(a.memory.Len())
	}

	if a.access != nil && !a.access.Authorize(principal, governance.CallTool(call.Name)) {
		return errors.Newf(errors.CodeProtocol,
			"principal %q not allowed to call tool %q", principal.ID, call.Name).
			WithContext("unauthorized", true).
			WithContext("tool", call.Name)
	}

	if a.confirmation != nil {
		approved, err := a.confirmation.ConfirmToolCall(ctx, call)
		if err != nil {
			return err
		}
		if !approved {
			a.memory.Append(message.Assistant(fmt.Sprintf("Tool call `%s` rejected by guardrail", call.Name)))
			a.logger.Info("agent.tool.rejected",
				slog.String("agent", a.name),
				slog.String("tool", call.Name),
			)
			return nil
		}
	}

	a.memory.Append(message.AssistantCall(fmt.Sprintf("Calling tool `%s`", call.Name), call))

	for _, hook := range a.hooks {
		if err := hook.BeforeToolCall(ctx, call); err != nil {
			return err
		}
	}

	ctx, span := a.tracer.Start(ctx, "Agent.ToolCall", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
	))
	output, err := a.tools.Call(ctx, call.Name, call.Arguments)
	span.End()
	if err != nil {
		a.logger.Error("agent.tool.failed",
			slog.String("agent", a.name),
			slog.String("tool", call.Name),
			slog.String("error", err.Error()),
		)
		return err
	}

	result := message.Tool(call.Name, output, call.ID)
	for _, hook := range a.hooks {
		if err := hook.AfterToolResult(ctx, *result.ToolResult); err != nil {
			return err
		}
	}
	a.memory.Append(result)
	return nil
}

// buildRequest assembles the system prompt plus the (possibly strategy
// trimmed) transcript.
func (a *Agent) buildRequest(ctx context.Context, input string) []message.Message {
	transcript := a.memory.Messages()
	view := transcript
	if a.strategy != nil {
		view = a.strategy.Apply(transcript)
	}

	query := input
	if latest, ok := a.memory.LastUser(); ok {
		query = latest
	}

	request := make([]message.Message, 0, len(view)+1)
	request = append(request, message.System(a.buildSystemPrompt(ctx, query)))
	request = append(request, view...)
	return request
}
