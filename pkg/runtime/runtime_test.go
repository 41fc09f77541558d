// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/braidhq/braid/pkg/config"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "nope"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRunRequiresStart(t *testing.T) {
	cfg := testConfig(t)
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	a, err := rt.NewAgent("echo")
	if err != nil {
		t.Fatalf("NewAgent error: %v", err)
	}
	if _, err := rt.Run(context.Background(), a, "hello"); !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("expected protocol error before Start, got %v", err)
	}
}

func TestRunExecutesAgent(t *testing.T) {
	cfg := testConfig(t)
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer func() { _ = rt.Stop(context.Background()) }()

	a, err := rt.NewAgent("echo")
	if err != nil {
		t.Fatalf("NewAgent error: %v", err)
	}
	reply, err := rt.Run(context.Background(), a, "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if reply != "hi" {
		t.Fatalf("expected hi, got %q", reply)
	}
}

func TestNewAgentAppliesConfigDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.MaxSteps = 3
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	a, err := rt.NewAgent("bounded")
	if err != nil {
		t.Fatalf("NewAgent error: %v", err)
	}
	if a.Name() != "bounded" {
		t.Fatalf("expected agent name bounded, got %q", a.Name())
	}
}

func TestGovernanceDefaultPolicyAllowsSendMessage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Governance.Enabled = true
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer func() { _ = rt.Stop(context.Background()) }()

	a, err := rt.NewAgent("guarded")
	if err != nil {
		t.Fatalf("NewAgent error: %v", err)
	}
	if _, err := rt.Run(context.Background(), a, "hello"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

func TestConversationRoundTripsThroughFileStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Backend = "file"
	cfg.Memory.Path = filepath.Join(t.TempDir(), "transcript.json")
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	conversation, err := rt.NewConversation(context.Background())
	if err != nil {
		t.Fatalf("NewConversation error: %v", err)
	}
	conversation.Append(message.User("hello"))
	conversation.Append(message.Assistant("hi"))
	if err := rt.SaveConversation(context.Background(), conversation); err != nil {
		t.Fatalf("SaveConversation error: %v", err)
	}

	restored, err := rt.NewConversation(context.Background())
	if err != nil {
		t.Fatalf("NewConversation (restore) error: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("expected 2 restored messages, got %d", restored.Len())
	}
	last, ok := restored.LastUser()
	if !ok || last != "hello" {
		t.Fatalf("expected restored user message, got %q %v", last, ok)
	}
}

func TestOpenStoreValidation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Backend = "file"
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := rt.OpenStore(); !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("expected protocol error for missing path, got %v", err)
	}

	cfg.Memory.Backend = "bogus"
	if _, err := rt.OpenStore(); !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("expected protocol error for unknown backend, got %v", err)
	}
}

func TestNewRetrieverDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	retriever, err := rt.NewRetriever(context.Background())
	if err != nil {
		t.Fatalf("NewRetriever error: %v", err)
	}
	if retriever != nil {
		t.Fatalf("expected nil retriever, got %T", retriever)
	}
}

func TestNewTeamAndEngine(t *testing.T) {
	cfg := testConfig(t)
	rt, err := New(cfg, WithModel(llm.Always(llm.Respond("hi"))))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	tm := rt.NewTeam("crew")
	if tm.Size() != 0 {
		t.Fatalf("expected empty team, got %d members", tm.Size())
	}
	if engine := rt.NewEngine(tm); engine == nil {
		t.Fatal("expected engine")
	}
}
