// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/workflow"
)

func TestParseGlobalFlags(t *testing.T) {
	flags, args, err := parseGlobalFlags([]string{"--config", "braid.yaml", "--json", "--timeout=30s", "run", "hello"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if flags.ConfigPath != "braid.yaml" || !flags.JSON || flags.Timeout != 30*time.Second {
		t.Fatalf("flags = %+v", flags)
	}
	if len(args) != 2 || args[0] != "run" || args[1] != "hello" {
		t.Fatalf("args = %v", args)
	}
}

func TestParseGlobalFlagsRejectsUnknown(t *testing.T) {
	if _, _, err := parseGlobalFlags([]string{"--nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestWorkflowMembersDeduplicates(t *testing.T) {
	wf := &workflow.Workflow{
		Name: "review",
		Nodes: []workflow.Node{
			workflow.Sequence{Nodes: []workflow.Node{
				workflow.AgentStep{Member: "writer", Input: "draft"},
				workflow.Parallel{Nodes: []workflow.Node{
					workflow.AgentStep{Member: "reviewer", Input: "review"},
					workflow.AgentStep{Member: "writer", Input: "revise"},
				}},
				workflow.Conditional{
					Key:  "approved",
					Then: workflow.AgentStep{Member: "publisher", Input: "publish"},
				},
			}},
		},
	}

	members := workflowMembers(wf)
	if len(members) != 3 {
		t.Fatalf("members = %v, want 3", members)
	}
	if members[0] != "writer" || members[1] != "reviewer" || members[2] != "publisher" {
		t.Fatalf("members = %v, want appearance order", members)
	}
}
