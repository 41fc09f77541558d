// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package team

import (
	"context"
	"strings"
	"testing"

	"github.com/braidhq/braid/pkg/agent"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/llm"
	"github.com/braidhq/braid/pkg/message"
)

func newMember(t *testing.T, replies ...string) *agent.Agent {
	t.Helper()
	completions := make([]llm.Completion, 0, len(replies))
	for _, reply := range replies {
		completions = append(completions, llm.Respond(reply))
	}
	a, err := agent.New(llm.NewStub(completions...))
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	return a
}

func TestRunAgentSharesTranscript(t *testing.T) {
	tm := New("demo")
	tm.AddAgent("alice", newMember(t, "ack"))

	reply, err := tm.RunAgent(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	if reply != "ack" {
		t.Fatalf("reply = %q, want %q", reply, "ack")
	}

	shared := tm.Memory().Messages()
	if len(shared) != 1 {
		t.Fatalf("shared transcript length = %d, want 1", len(shared))
	}
	if shared[0].Role != message.RoleAssistant || shared[0].Content != "[alice] ack" {
		t.Fatalf("shared[0] = %+v, want tagged reply", shared[0])
	}
}

func TestRunAgentSecondMemberSeesFirstReply(t *testing.T) {
	tm := New("demo")
	tm.AddAgent("alice", newMember(t, "first"))
	bob := newMember(t, "second")
	tm.AddAgent("bob", bob)

	if _, err := tm.RunAgent(context.Background(), "alice", "go"); err != nil {
		t.Fatalf("RunAgent alice: %v", err)
	}
	if _, err := tm.RunAgent(context.Background(), "bob", "go"); err != nil {
		t.Fatalf("RunAgent bob: %v", err)
	}

	// Bob's local memory started from the shared transcript, which already
	// held alice's tagged reply.
	found := false
	for _, msg := range bob.Memory().Messages() {
		if strings.Contains(msg.Content, "[alice] first") {
			found = true
		}
	}
	if !found {
		t.Fatal("bob's transcript missing alice's shared reply")
	}
}

func TestRunAgentUnknownMember(t *testing.T) {
	tm := New("demo")
	_, err := tm.RunAgent(context.Background(), "ghost", "hi")
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
}

func TestBroadcastReachesSubscribersAndTranscript(t *testing.T) {
	tm := New("demo")
	sub, cancel := tm.Subscribe()
	defer cancel()

	tm.Broadcast("alice", "shipping now")

	select {
	case event := <-sub:
		if event.Kind != EventBroadcast || event.From != "alice" || event.Content != "shipping now" {
			t.Fatalf("event = %+v", event)
		}
	default:
		t.Fatal("no event delivered")
	}

	shared := tm.Memory().Messages()
	if len(shared) != 1 || shared[0].Content != "[alice] shipping now" {
		t.Fatalf("shared transcript = %+v", shared)
	}
}

func TestSendMessageRecipientIsAdvisory(t *testing.T) {
	tm := New("demo")
	first, cancelFirst := tm.Subscribe()
	defer cancelFirst()
	second, cancelSecond := tm.Subscribe()
	defer cancelSecond()

	tm.SendMessage("alice", "bob", "ping")

	for _, sub := range []<-chan Event{first, second} {
		select {
		case event := <-sub:
			if event.Kind != EventMessage || event.To != "bob" {
				t.Fatalf("event = %+v", event)
			}
		default:
			t.Fatal("directed message not delivered to all subscribers")
		}
	}

	shared := tm.Memory().Messages()
	if len(shared) != 1 || shared[0].Content != "[alice -> bob] ping" {
		t.Fatalf("shared transcript = %+v", shared)
	}
}

func TestSlowSubscriberMissesEvents(t *testing.T) {
	tm := New("demo", WithBusCapacity(1))
	sub, cancel := tm.Subscribe()
	defer cancel()

	tm.Broadcast("a", "one")
	tm.Broadcast("a", "two")

	event := <-sub
	if event.Content != "one" {
		t.Fatalf("event content = %q, want %q", event.Content, "one")
	}
	select {
	case event := <-sub:
		t.Fatalf("unexpected second event: %+v", event)
	default:
	}
}

func TestSetStateCoercesNonObject(t *testing.T) {
	tm := New("demo")
	tm.SetContext("scalar")
	tm.SetState("x", 1)

	state, ok := tm.State().(map[string]any)
	if !ok {
		t.Fatalf("state = %#v, want object", tm.State())
	}
	if state["x"] != 1 {
		t.Fatalf("state[x] = %v, want 1", state["x"])
	}
}

func TestAddKnowledge(t *testing.T) {
	tm := New("demo")
	sub, cancel := tm.Subscribe()
	defer cancel()

	tm.AddKnowledge("release code-named osprey")

	if got := tm.Knowledge(); len(got) != 1 || got[0] != "release code-named osprey" {
		t.Fatalf("knowledge = %v", got)
	}
	select {
	case event := <-sub:
		if event.Kind != EventKnowledgeAdded {
			t.Fatalf("event = %+v", event)
		}
	default:
		t.Fatal("knowledge event not delivered")
	}
}

func TestFanOutNameOrder(t *testing.T) {
	tm := New("demo")
	tm.AddAgent("beta", newMember(t, "b"))
	tm.AddAgent("alpha", newMember(t, "a"))

	replies, err := tm.FanOut(context.Background(), "go")
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if replies["alpha"] != "a" || replies["beta"] != "b" {
		t.Fatalf("replies = %v", replies)
	}

	shared := tm.Memory().Messages()
	if len(shared) != 2 {
		t.Fatalf("shared transcript length = %d, want 2", len(shared))
	}
	if shared[0].Content != "[alpha] a" || shared[1].Content != "[beta] b" {
		t.Fatalf("shared order = %q, %q", shared[0].Content, shared[1].Content)
	}
}
