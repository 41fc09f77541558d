// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/team"
)

const sampleWorkflow = `
name: release
steps:
  - set:
      key: stage
      value: build
  - sequence:
      - task: compile
      - conditional:
          key: stage
          equals: build
          then:
            set:
              key: stage
              value: test
  - loop:
      key: retries
      until: 2
      max_iterations: 4
      body:
        task: retry
  - parallel:
      - set:
          key: left
          value: 1
      - set:
          key: right
          value: 2
`

func TestParseYAML(t *testing.T) {
	wf, err := ParseYAML([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if wf.Name != "release" {
		t.Fatalf("name = %q, want release", wf.Name)
	}
	if len(wf.Nodes) != 4 {
		t.Fatalf("nodes = %d, want 4", len(wf.Nodes))
	}

	set, ok := wf.Nodes[0].(Set)
	if !ok || set.Key != "stage" || set.Value != "build" {
		t.Fatalf("nodes[0] = %#v, want set stage=build", wf.Nodes[0])
	}

	seq, ok := wf.Nodes[1].(Sequence)
	if !ok || len(seq.Nodes) != 2 {
		t.Fatalf("nodes[1] = %#v, want two-node sequence", wf.Nodes[1])
	}
	if _, ok := seq.Nodes[0].(Task); !ok {
		t.Fatalf("sequence[0] = %#v, want task", seq.Nodes[0])
	}
	cond, ok := seq.Nodes[1].(Conditional)
	if !ok || cond.Key != "stage" || cond.Else != nil {
		t.Fatalf("sequence[1] = %#v, want conditional without else", seq.Nodes[1])
	}

	loop, ok := wf.Nodes[2].(Loop)
	if !ok || loop.MaxIterations != 4 {
		t.Fatalf("nodes[2] = %#v, want loop budget 4", wf.Nodes[2])
	}

	par, ok := wf.Nodes[3].(Parallel)
	if !ok || len(par.Nodes) != 2 {
		t.Fatalf("nodes[3] = %#v, want two-branch parallel", wf.Nodes[3])
	}
}

func TestParseYAMLRunsEndToEnd(t *testing.T) {
	wf, err := ParseYAML([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}

	engine := NewEngine(team.New("test"))
	engine.RegisterTask("compile", func(context.Context, *Context) error { return nil })
	engine.RegisterTask("retry", func(_ context.Context, wctx *Context) error {
		count := 0
		if v, ok := wctx.Get("retries"); ok {
			count = v.(int)
		}
		wctx.Set("retries", count+1)
		return nil
	})

	snap, err := engine.Run(context.Background(), wf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.State["stage"] != "test" {
		t.Fatalf("stage = %v, want test", snap.State["stage"])
	}
	// YAML parses `until: 2` as an int; the incrementing task writes ints.
	if snap.State["retries"] != 2 {
		t.Fatalf("retries = %v, want 2", snap.State["retries"])
	}
	if snap.State["left"] != 1 || snap.State["right"] != 2 {
		t.Fatalf("parallel writes missing: %v", snap.State)
	}
}

func TestParseYAMLRejectsAmbiguousNode(t *testing.T) {
	bad := `
name: broken
steps:
  - task: a
    set:
      key: x
      value: 1
`
	_, err := ParseYAML([]byte(bad))
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
}

func TestParseYAMLRejectsEmpty(t *testing.T) {
	for _, payload := range []string{"", "name: x\nsteps: []\n", "steps:\n  - task: a\n"} {
		if _, err := ParseYAML([]byte(payload)); !errors.HasCode(err, errors.CodeProtocol) {
			t.Fatalf("payload %q: err = %v, want protocol error", payload, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wf.yaml")
	if err := os.WriteFile(path, []byte(sampleWorkflow), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if wf.Name != "release" {
		t.Fatalf("name = %q, want release", wf.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.HasCode(err, errors.CodeStorage) {
		t.Fatalf("err = %v, want storage error", err)
	}
}
