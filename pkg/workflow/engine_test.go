// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/braidhq/braid/pkg/agent"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/team"
)

func newTeam(t *testing.T, member string, replies ...string) *team.Team {
	t.Helper()
	completions := make([]llm.Completion, 0, len(replies))
	for _, reply := range replies {
		completions = append(completions, llm.Respond(reply))
	}
	a, err := agent.New(llm.NewStub(completions...))
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	tm := team.New("test")
	tm.AddAgent(member, a)
	return tm
}

func TestRunSequenceOrder(t *testing.T) {
	engine := NewEngine(team.New("test"))
	wf := &Workflow{
		Name: "seq",
		Nodes: []Node{
			Sequence{Nodes: []Node{
				Set{Key: "y", Value: 1},
				Set{Key: "y", Value: 2},
			}},
		},
	}

	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.State["y"] != 2 {
		t.Fatalf("y = %v, want 2", snap.State["y"])
	}
}

// registerXY binds task A (sets x=1) and task B (sets y=x+1, where a
// missing x reads as 0).
func registerXY(engine *Engine) {
	engine.RegisterTask("a", func(_ context.Context, wctx *Context) error {
		wctx.Set("x", 1)
		return nil
	})
	engine.RegisterTask("b", func(_ context.Context, wctx *Context) error {
		x := 0
		if v, ok := wctx.Get("x"); ok {
			x = v.(int)
		}
		wctx.Set("y", x+1)
		return nil
	})
}

func TestRunSequenceTaskOrdering(t *testing.T) {
	engine := NewEngine(team.New("test"))
	registerXY(engine)

	wf := &Workflow{
		Name:  "seq-xy",
		Nodes: []Node{Sequence{Nodes: []Node{Task{Name: "a"}, Task{Name: "b"}}}},
	}
	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.State["y"] != 2 {
		t.Fatalf("y = %v, want 2", snap.State["y"])
	}
}

func TestRunParallelTaskNondeterminism(t *testing.T) {
	engine := NewEngine(team.New("test"))
	registerXY(engine)

	wf := &Workflow{
		Name:  "par-xy",
		Nodes: []Node{Parallel{Nodes: []Node{Task{Name: "a"}, Task{Name: "b"}}}},
	}
	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Branch order is not defined; y may observe x before or after A ran.
	if y := snap.State["y"]; y != 1 && y != 2 {
		t.Fatalf("y = %v, want 1 or 2", y)
	}
}

func TestRunParallelLastWriterWins(t *testing.T) {
	engine := NewEngine(team.New("test"))
	wf := &Workflow{
		Name: "par",
		Nodes: []Node{
			Parallel{Nodes: []Node{
				Set{Key: "y", Value: 1},
				Set{Key: "y", Value: 2},
			}},
		},
	}

	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Branches race on the same key; either write may land last.
	if y := snap.State["y"]; y != 1 && y != 2 {
		t.Fatalf("y = %v, want 1 or 2", y)
	}
}

func TestRunParallelErrorDoesNotCancelSiblings(t *testing.T) {
	engine := NewEngine(team.New("test"))
	engine.RegisterTask("boom", func(context.Context, *Context) error {
		return errors.New(errors.CodeInternal, "boom")
	})

	ran := make(chan struct{}, 1)
	engine.RegisterTask("slow", func(_ context.Context, wctx *Context) error {
		wctx.Set("slow", "done")
		ran <- struct{}{}
		return nil
	})

	wf := &Workflow{
		Name: "par-error",
		Nodes: []Node{
			Parallel{Nodes: []Node{
				Task{Name: "boom"},
				Task{Name: "slow"},
			}},
		},
	}

	_, err := engine.Run(context.Background(), wf)
	if !errors.HasCode(err, errors.CodeInternal) {
		t.Fatalf("err = %v, want internal error", err)
	}
	select {
	case <-ran:
	default:
		t.Fatal("sibling task was cancelled by the failing branch")
	}
}

func TestRunAgentStepStoresReply(t *testing.T) {
	tm := newTeam(t, "alice", "ack")
	events := make(chan string, 16)
	engine := NewEngine(tm, WithEventSender(events))

	wf := &Workflow{
		Name: "agent",
		Nodes: []Node{
			Set{Key: "topic", Value: "launch"},
			AgentStep{Member: "alice", Input: "summarize {{topic}}"},
		},
	}

	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.State["reply:alice"] != "ack" {
		t.Fatalf("reply:alice = %v, want ack", snap.State["reply:alice"])
	}
	if len(snap.History) != 1 || snap.History[0] != "alice -> ack" {
		t.Fatalf("history = %v", snap.History)
	}

	var got []string
	for len(events) > 0 {
		got = append(got, <-events)
	}
	want := []string{"ctx:set:topic", "agent:alice:start", "agent:alice:complete"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunUnknownTask(t *testing.T) {
	engine := NewEngine(team.New("test"))
	wf := &Workflow{Name: "bad", Nodes: []Node{Task{Name: "ghost"}}}

	_, err := engine.Run(context.Background(), wf)
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
}

func TestRunConditionalBranches(t *testing.T) {
	engine := NewEngine(team.New("test"))

	wf := &Workflow{
		Name: "cond",
		Nodes: []Node{
			Set{Key: "mode", Value: "fast"},
			Conditional{
				Key:    "mode",
				Equals: "fast",
				Then:   Set{Key: "out", Value: "then"},
				Else:   Set{Key: "out", Value: "else"},
			},
			Conditional{
				Key:    "missing",
				Equals: "anything",
				Then:   Set{Key: "unreached", Value: true},
				Else:   Set{Key: "fallback", Value: true},
			},
		},
	}

	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.State["out"] != "then" {
		t.Fatalf("out = %v, want then", snap.State["out"])
	}
	if _, ok := snap.State["unreached"]; ok {
		t.Fatal("then branch of the second conditional ran")
	}
	if snap.State["fallback"] != true {
		t.Fatal("else branch did not run")
	}
}

func TestRunConditionalMissingElseIsNoop(t *testing.T) {
	engine := NewEngine(team.New("test"))
	wf := &Workflow{
		Name: "cond-noop",
		Nodes: []Node{
			Conditional{Key: "missing", Equals: 1, Then: Set{Key: "x", Value: 1}},
		},
	}
	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snap.State) != 0 {
		t.Fatalf("state = %v, want empty", snap.State)
	}
}

func TestRunLoopUntil(t *testing.T) {
	engine := NewEngine(team.New("test"))
	engine.RegisterTask("incr", func(_ context.Context, wctx *Context) error {
		count := 0
		if v, ok := wctx.Get("count"); ok {
			count = v.(int)
		}
		wctx.Set("count", count+1)
		return nil
	})

	wf := &Workflow{
		Name: "loop",
		Nodes: []Node{
			Loop{Key: "count", Until: 3, Body: Task{Name: "incr"}, MaxIterations: 5},
		},
	}

	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.State["count"] != 3 {
		t.Fatalf("count = %v, want 3", snap.State["count"])
	}
}

func TestRunLoopBudgetExceeded(t *testing.T) {
	engine := NewEngine(team.New("test"))
	engine.RegisterTask("incr", func(_ context.Context, wctx *Context) error {
		count := 0
		if v, ok := wctx.Get("count"); ok {
			count = v.(int)
		}
		wctx.Set("count", count+1)
		return nil
	})

	wf := &Workflow{
		Name: "loop-budget",
		Nodes: []Node{
			Loop{Key: "count", Until: 3, Body: Task{Name: "incr"}, MaxIterations: 2},
		},
	}

	_, err := engine.Run(context.Background(), wf)
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
	if err == nil || !strings.Contains(err.Error(), "exceeded") {
		t.Fatalf("err = %v, want iteration budget message", err)
	}
}

func TestRunLoopErrorPropagates(t *testing.T) {
	engine := NewEngine(team.New("test"))
	engine.RegisterTask("boom", func(context.Context, *Context) error {
		return errors.New(errors.CodeInternal, "boom")
	})
	wf := &Workflow{
		Name: "loop-error",
		Nodes: []Node{
			Loop{Key: "x", Until: 1, Body: Task{Name: "boom"}, MaxIterations: 3},
		},
	}
	_, err := engine.Run(context.Background(), wf)
	if !errors.HasCode(err, errors.CodeInternal) {
		t.Fatalf("err = %v, want internal error", err)
	}
}

func TestRunNilWorkflow(t *testing.T) {
	engine := NewEngine(team.New("test"))
	_, err := engine.Run(context.Background(), nil)
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
}

func TestStructurallyEqualNumericForms(t *testing.T) {
	if !structurallyEqual(1, 1.0) {
		t.Fatal("1 and 1.0 should compare equal")
	}
	if structurallyEqual("1", 1) {
		t.Fatal(`"1" and 1 should not compare equal`)
	}
}
