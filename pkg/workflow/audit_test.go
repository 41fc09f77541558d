// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/team"
)

func TestMemoryAuditStoreFilters(t *testing.T) {
	store := NewMemoryAuditStore()
	ctx := context.Background()

	events := []AuditEvent{
		{Workflow: "etl", RunID: "r1", NodeType: "task", Node: "extract", Status: AuditCompleted},
		{Workflow: "etl", RunID: "r1", NodeType: "task", Node: "load", Status: AuditFailed, Error: "boom"},
		{Workflow: "report", RunID: "r2", NodeType: "set", Node: "out", Status: AuditCompleted},
	}
	for _, event := range events {
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := store.List(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}

	failed, err := store.List(ctx, AuditFilter{Workflow: "etl", Status: AuditFailed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failed) != 1 || failed[0].Node != "load" || failed[0].Error != "boom" {
		t.Fatalf("failed = %+v, want one load/boom event", failed)
	}

	limited, err := store.List(ctx, AuditFilter{RunID: "r1", Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 || limited[0].Node != "extract" {
		t.Fatalf("limited = %+v, want the first r1 event", limited)
	}
}

func TestSQLiteAuditStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteAuditStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := AuditEvent{
		Workflow:   "etl",
		RunID:      "r1",
		NodeType:   "task",
		Node:       "extract",
		Status:     AuditFailed,
		Error:      "boom",
		StartedAt:  started,
		FinishedAt: started.Add(50 * time.Millisecond),
	}
	if err := store.Record(ctx, event); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, AuditEvent{Workflow: "other", RunID: "r2", NodeType: "set", Status: AuditCompleted}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.List(ctx, AuditFilter{Workflow: "etl"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].RunID != "r1" || got[0].Node != "extract" || got[0].Status != AuditFailed || got[0].Error != "boom" {
		t.Fatalf("event = %+v", got[0])
	}
	if !got[0].StartedAt.Equal(started) {
		t.Fatalf("StartedAt = %v, want %v", got[0].StartedAt, started)
	}
	if !got[0].FinishedAt.After(got[0].StartedAt) {
		t.Fatalf("FinishedAt %v not after StartedAt %v", got[0].FinishedAt, got[0].StartedAt)
	}
}

func TestEngineRecordsAuditTrail(t *testing.T) {
	store := NewMemoryAuditStore()
	engine := NewEngine(team.New("test"), WithAuditStore(store))
	registerXY(engine)

	wf := &Workflow{
		Name:  "audited",
		Nodes: []Node{Sequence{Nodes: []Node{Task{Name: "a"}, Set{Key: "done", Value: true}}}},
	}
	if _, err := engine.Run(context.Background(), wf); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events, err := store.List(context.Background(), AuditFilter{Workflow: "audited"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3 (task, set, sequence)", len(events))
	}
	runID := events[0].RunID
	if runID == "" {
		t.Fatal("empty run id")
	}
	byNode := map[string]AuditEvent{}
	for _, event := range events {
		if event.RunID != runID {
			t.Fatalf("mixed run ids: %q and %q", runID, event.RunID)
		}
		if event.Status != AuditCompleted {
			t.Fatalf("node %q status = %q, want completed", event.Node, event.Status)
		}
		byNode[event.NodeType] = event
	}
	if byNode["task"].Node != "a" || byNode["set"].Node != "done" {
		t.Fatalf("events = %+v", events)
	}
}

func TestEngineAuditsFailedNodes(t *testing.T) {
	store := NewMemoryAuditStore()
	engine := NewEngine(team.New("test"), WithAuditStore(store))

	wf := &Workflow{Name: "broken", Nodes: []Node{Task{Name: "missing"}}}
	if _, err := engine.Run(context.Background(), wf); err == nil {
		t.Fatal("expected error for unknown task")
	}

	events, err := store.List(context.Background(), AuditFilter{Status: AuditFailed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Node != "missing" || events[0].Error == "" {
		t.Fatalf("event = %+v", events[0])
	}
}
