// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/team"
)

// TaskFunc is a named function stored in the engine's task registry.
type TaskFunc func(ctx context.Context, wctx *Context) error

// Engine evaluates workflow trees against a team and a task registry.
type Engine struct {
	mu     sync.RWMutex
	tasks  map[string]TaskFunc
	team   *team.Team
	events chan<- string
	audit  AuditStore
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventSender publishes step events ("agent:<member>:start",
// "ctx:set:<key>", ...) to ch. Sends never block; events are dropped when
// the channel is full.
func WithEventSender(ch chan<- string) Option {
	return func(e *Engine) { e.events = ch }
}

// WithAuditStore records every node execution to store. Audit write
// failures are logged, never fatal to the run.
func WithAuditStore(store AuditStore) Option {
	return func(e *Engine) { e.audit = store }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine bound to the given team.
func NewEngine(t *team.Team, opts ...Option) *Engine {
	e := &Engine{
		tasks:  make(map[string]TaskFunc),
		team:   t,
		logger: slog.Default(),
		tracer: otel.Tracer("braid/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterTask binds a name to a task function. Re-registering a name
// replaces the prior binding.
func (e *Engine) RegisterTask(name string, fn TaskFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks[name] = fn
}

// Team returns the engine's team.
func (e *Engine) Team() *team.Team { return e.team }

func (e *Engine) emit(event string) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- event:
	default:
	}
}

// Run evaluates the workflow over a fresh context and returns a detached
// snapshot of the final state and history.
func (e *Engine) Run(ctx context.Context, wf *Workflow) (*Snapshot, error) {
	if wf == nil {
		return nil, errors.New(errors.CodeProtocol, "workflow is nil")
	}

	runID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "Workflow.Run", trace.WithAttributes(
		attribute.String("workflow.name", wf.Name),
		attribute.String("workflow.run_id", runID),
	))
	defer span.End()

	e.logger.Info("workflow.run.start",
		slog.String("workflow", wf.Name),
		slog.String("run_id", runID),
	)

	wctx := NewContext()
	run := runInfo{workflow: wf.Name, runID: runID}
	for _, node := range wf.Nodes {
		if err := e.execute(ctx, node, wctx, run); err != nil {
			span.RecordError(err)
			e.logger.Error("workflow.run.failed",
				slog.String("workflow", wf.Name),
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
	}

	e.logger.Info("workflow.run.complete",
		slog.String("workflow", wf.Name),
		slog.String("run_id", runID),
	)
	return wctx.Snapshot(), nil
}

// runInfo identifies the run an executing node belongs to.
type runInfo struct {
	workflow string
	runID    string
}

// execute evaluates one node. Branch nodes recurse; leaf nodes act on the
// shared context or the team.
func (e *Engine) execute(ctx context.Context, node Node, wctx *Context, run runInfo) error {
	nodeCtx, span := e.tracer.Start(ctx, "Workflow.Node", trace.WithAttributes(
		attribute.String("node.type", nodeType(node)),
	))
	defer span.End()

	started := time.Now()
	err := e.executeNode(nodeCtx, node, wctx, run)
	e.recordAudit(ctx, run, node, started, err)
	return err
}

func (e *Engine) recordAudit(ctx context.Context, run runInfo, node Node, started time.Time, execErr error) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Workflow:   run.workflow,
		RunID:      run.runID,
		NodeType:   nodeType(node),
		Node:       nodeLabel(node),
		Status:     AuditCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if execErr != nil {
		event.Status = AuditFailed
		event.Error = execErr.Error()
	}
	if err := e.audit.Record(ctx, event); err != nil {
		e.logger.Warn("workflow.audit.failed",
			slog.String("workflow", run.workflow),
			slog.String("run_id", run.runID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) executeNode(ctx context.Context, node Node, wctx *Context, run runInfo) error {
	nodeCtx := ctx
	switch n := node.(type) {
	case Task:
		e.mu.RLock()
		fn, ok := e.tasks[n.Name]
		e.mu.RUnlock()
		if !ok {
			return errors.Newf(errors.CodeProtocol, "unknown workflow task %q", n.Name)
		}
		return fn(nodeCtx, wctx)

	case AgentStep:
		e.emit(fmt.Sprintf("agent:%s:start", n.Member))
		rendered := renderTemplate(n.Input, wctx)
		reply, err := e.team.RunAgent(nodeCtx, n.Member, rendered)
		if err != nil {
			return err
		}
		wctx.PushHistory(fmt.Sprintf("%s -> %s", n.Member, reply))
		wctx.Set("reply:"+n.Member, reply)
		e.emit(fmt.Sprintf("agent:%s:complete", n.Member))
		return nil

	case Set:
		wctx.Set(n.Key, n.Value)
		e.emit("ctx:set:" + n.Key)
		return nil

	case Sequence:
		for _, sub := range n.Nodes {
			if err := e.execute(nodeCtx, sub, wctx, run); err != nil {
				return err
			}
		}
		return nil

	case Parallel:
		results := make([]error, len(n.Nodes))
		var wg sync.WaitGroup
		for i, sub := range n.Nodes {
			wg.Add(1)
			go func(i int, sub Node) {
				defer wg.Done()
				results[i] = e.execute(nodeCtx, sub, wctx, run)
			}(i, sub)
		}
		wg.Wait()
		for _, err := range results {
			if err != nil {
				return err
			}
		}
		return nil

	case Conditional:
		value, _ := wctx.Get(n.Key)
		if structurallyEqual(value, n.Equals) {
			return e.execute(nodeCtx, n.Then, wctx, run)
		}
		if n.Else != nil {
			return e.execute(nodeCtx, n.Else, wctx, run)
		}
		return nil

	case Loop:
		iterations := 0
		for {
			iterations++
			if iterations > n.MaxIterations {
				return errors.Newf(errors.CodeProtocol,
					"loop on %q exceeded %d iterations", n.Key, n.MaxIterations)
			}
			if err := e.execute(nodeCtx, n.Body, wctx, run); err != nil {
				return err
			}
			value, _ := wctx.Get(n.Key)
			if structurallyEqual(value, n.Until) {
				return nil
			}
		}

	default:
		return errors.Newf(errors.CodeInternal, "unknown workflow node %T", node)
	}
}

// nodeLabel names the specific node an audit event describes. Branch
// containers without a natural name report empty.
func nodeLabel(node Node) string {
	switch n := node.(type) {
	case Task:
		return n.Name
	case AgentStep:
		return n.Member
	case Set:
		return n.Key
	case Conditional:
		return n.Key
	case Loop:
		return n.Key
	default:
		return ""
	}
}

func nodeType(node Node) string {
	switch node.(type) {
	case Task:
		return "task"
	case AgentStep:
		return "agent"
	case Set:
		return "set"
	case Sequence:
		return "sequence"
	case Parallel:
		return "parallel"
	case Conditional:
		return "conditional"
	case Loop:
		return "loop"
	default:
		return "unknown"
	}
}

// structurallyEqual compares two state values the way JSON would: 1 and
// 1.0 are equal, objects compare by field.
func structurallyEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}
