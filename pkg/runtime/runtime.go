// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package runtime assembles agents, teams, and workflow engines from
// configuration and provides an in-process execution environment.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/braidhq/braid/pkg/agent"
	"github.com/braidhq/braid/pkg/config"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/governance"
	"github.com/braidhq/braid/pkg/knowledge"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/memory"
	ollamaembed "github.com/braidhq/braid/pkg/memory/ollama"
	"github.com/braidhq/braid/pkg/memory/qdrant"
	"github.com/braidhq/braid/pkg/team"
	"github.com/braidhq/braid/pkg/telemetry"
	"github.com/braidhq/braid/pkg/workflow"
)

// Local is an in-process runtime that builds Braid components from a
// loaded configuration.
type Local struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	model   llm.LanguageModel
	access  *governance.AccessController
	metrics *telemetry.RunMetrics
	started bool

	refreshers      []ToolRefresher
	refreshInterval time.Duration
	refreshTimeout  time.Duration
	refreshCancel   context.CancelFunc
	refreshDone     chan struct{}
}

// Option customizes runtime assembly.
type Option func(*Local)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Local) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithModel overrides the configured language model. Useful for scripted
// models in tests.
func WithModel(model llm.LanguageModel) Option {
	return func(r *Local) { r.model = model }
}

// New builds a runtime from configuration. The language model comes from
// the llm section unless overridden with WithModel; governance, when
// enabled, starts from a policy that lets users and services send
// messages.
func New(cfg *config.Config, opts ...Option) (*Local, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeProtocol, "runtime requires a configuration")
	}
	r := &Local{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("braid/runtime"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.model == nil {
		model, err := buildModel(cfg.LLM)
		if err != nil {
			return nil, err
		}
		r.model = model
	}
	if cfg.Governance.Enabled {
		r.access = governance.NewAccessController()
		r.access.Allow(governance.RoleUser, governance.SendMessage)
		r.access.Allow(governance.RoleService, governance.SendMessage)
		r.access.Allow(governance.RoleAdmin, governance.SendMessage)
	}
	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return nil, err
	}
	r.metrics = metrics
	return r, nil
}

func buildModel(cfg config.LLMConfig) (llm.LanguageModel, error) {
	var model llm.LanguageModel
	switch cfg.Provider {
	case "", "ollama":
		model = llm.NewOllama(cfg.BaseURL, cfg.Model)
	case "stub":
		model = llm.Always(llm.Respond("ok"))
	default:
		return nil, errors.Newf(errors.CodeProtocol, "unknown llm provider %q", cfg.Provider)
	}
	if cfg.TimeoutSeconds > 0 {
		model = llm.WithTimeout(model, time.Duration(cfg.TimeoutSeconds)*time.Second)
	}
	if cfg.RetryAttempts > 1 {
		retry := llm.DefaultRetryConfig()
		retry.MaxAttempts = cfg.RetryAttempts
		model = llm.WithRetry(model, retry)
	}
	return model, nil
}

// Model returns the assembled language model.
func (r *Local) Model() llm.LanguageModel { return r.model }

// AccessController returns the governance controller, or nil when
// governance is disabled.
func (r *Local) AccessController() *governance.AccessController { return r.access }

// Start marks the runtime as ready and launches background maintenance.
func (r *Local) Start(_ context.Context) error {
	r.started = true
	r.startRefreshSweeper()
	return nil
}

// Stop halts background maintenance.
func (r *Local) Stop(_ context.Context) error {
	r.started = false
	r.stopRefreshSweeper()
	return nil
}

// NewAgent builds an agent on the runtime's model with the configured
// defaults. Additional options win over configuration.
func (r *Local) NewAgent(name string, opts ...agent.Option) (*agent.Agent, error) {
	base := []agent.Option{
		agent.WithName(name),
		agent.WithLogger(r.logger),
	}
	if r.cfg.Agent.SystemPrompt != "" {
		base = append(base, agent.WithSystemPrompt(r.cfg.Agent.SystemPrompt))
	}
	if r.cfg.Agent.MaxSteps > 0 {
		base = append(base, agent.WithMaxSteps(r.cfg.Agent.MaxSteps))
	}
	if r.cfg.Agent.Streaming {
		base = append(base, agent.WithStreaming(true))
	}
	if r.access != nil {
		base = append(base, agent.WithAccessControl(r.access))
	}
	return agent.New(r.model, append(base, opts...)...)
}

// NewTeam builds a team with the configured bus capacity.
func (r *Local) NewTeam(name string) *team.Team {
	opts := []team.Option{team.WithLogger(r.logger)}
	if r.cfg.Workflow.BusCapacity > 0 {
		opts = append(opts, team.WithBusCapacity(r.cfg.Workflow.BusCapacity))
	}
	return team.New(name, opts...)
}

// NewEngine builds a workflow engine over the team.
func (r *Local) NewEngine(t *team.Team, opts ...workflow.Option) *workflow.Engine {
	return workflow.NewEngine(t, append([]workflow.Option{workflow.WithLogger(r.logger)}, opts...)...)
}

// OpenStore opens the configured transcript store. The inmemory backend
// has no store and returns nil.
func (r *Local) OpenStore() (memory.Store, error) {
	switch r.cfg.Memory.Backend {
	case "", "inmemory":
		return nil, nil
	case "file":
		if r.cfg.Memory.Path == "" {
			return nil, errors.New(errors.CodeProtocol, "file memory backend requires memory.path")
		}
		return memory.NewFileStore(r.cfg.Memory.Path), nil
	case "sqlite":
		if r.cfg.Memory.SQLiteDSN == "" {
			return nil, errors.New(errors.CodeProtocol, "sqlite memory backend requires memory.sqlite_dsn")
		}
		session := r.cfg.Memory.Session
		if session == "" {
			session = "default"
		}
		return memory.OpenSQLiteStore(r.cfg.Memory.SQLiteDSN, session)
	default:
		return nil, errors.Newf(errors.CodeProtocol, "unknown memory backend %q", r.cfg.Memory.Backend)
	}
}

// NewConversation builds a transcript seeded from the configured store.
// With the inmemory backend it is simply empty.
func (r *Local) NewConversation(ctx context.Context) (*memory.Conversation, error) {
	store, err := r.OpenStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return memory.NewConversation(), nil
	}
	messages, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return memory.WithMessages(messages), nil
}

// SaveConversation replaces the store contents with the transcript.
func (r *Local) SaveConversation(ctx context.Context, conversation *memory.Conversation) error {
	store, err := r.OpenStore()
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	for _, msg := range conversation.Messages() {
		if err := store.Append(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// NewRetriever builds the configured knowledge retriever, or nil when the
// vector section is disabled.
func (r *Local) NewRetriever(ctx context.Context) (knowledge.Retriever, error) {
	vector := r.cfg.Memory.Vector
	if !vector.Enabled {
		return nil, nil
	}

	var store memory.VectorStore
	switch vector.Provider {
	case "", "inmemory":
		store = memory.NewInMemoryVectors()
	case "qdrant":
		qdrantStore, err := qdrant.New(vector.QdrantAddr)
		if err != nil {
			return nil, err
		}
		store = qdrantStore
	default:
		return nil, errors.Newf(errors.CodeProtocol, "unknown vector provider %q", vector.Provider)
	}

	embedder := ollamaembed.NewEmbedder(vector.EmbedderBaseURL, vector.EmbedderModel)
	return knowledge.NewBase(embedder, store, vector.Collection), nil
}

// Run executes one respond call on the agent with run-scoped logging,
// tracing, and metrics.
func (r *Local) Run(ctx context.Context, a *agent.Agent, input string) (string, error) {
	if !r.started {
		return "", errors.New(errors.CodeProtocol, "runtime not started")
	}
	runID := uuid.NewString()
	r.logger.Info("runtime.run.start",
		slog.String("agent", a.Name()),
		slog.String("run_id", runID),
	)
	ctx, span := r.tracer.Start(ctx, "Runtime.Run", trace.WithAttributes(
		attribute.String(telemetry.AttrAgentName, a.Name()),
		attribute.String(telemetry.AttrWorkflowRun, runID),
	))
	defer span.End()

	reply, err := a.Respond(ctx, input)
	if err != nil {
		span.RecordError(err)
		r.metrics.RecordAgentFailure(ctx, a.Name(), string(errors.CodeOf(err)))
		r.logger.Error("runtime.run.failed",
			slog.String("agent", a.Name()),
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	r.metrics.RecordAgentRun(ctx, a.Name())
	r.logger.Info("runtime.run.complete",
		slog.String("agent", a.Name()),
		slog.String("run_id", runID),
	)
	return reply, nil
}
