// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

func writeSkill(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write skill: %v", err)
	}
	return dir
}

const summarizeSkill = `---
name: summarize-report
description: Condense a report into key findings.
license: Apache-2.0
metadata:
  team: research
---

Read the report and produce at most five bullet points.
`

func TestLoadFileParsesFrontmatterAndBody(t *testing.T) {
	root := t.TempDir()
	dir := writeSkill(t, root, "summarize-report", summarizeSkill)

	spec, err := LoadFile(filepath.Join(dir, "SKILL.md"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if spec.Name != "summarize-report" {
		t.Fatalf("name = %q", spec.Name)
	}
	if spec.Metadata["team"] != "research" {
		t.Fatalf("metadata = %v", spec.Metadata)
	}
	if !strings.Contains(spec.Body, "five bullet points") {
		t.Fatalf("body = %q", spec.Body)
	}
}

func TestLoadFileValidation(t *testing.T) {
	root := t.TempDir()
	cases := map[string]string{
		"missing-name":        "---\ndescription: x\n---\nbody",
		"bad-frontmatter":     "no frontmatter here",
		"missing-description": "---\nname: missing-description\n---\nbody",
		"UpperCase":           "---\nname: UpperCase\ndescription: x\n---\nbody",
	}
	for dirName, content := range cases {
		dir := writeSkill(t, root, dirName, content)
		if _, err := LoadFile(filepath.Join(dir, "SKILL.md")); err == nil {
			t.Fatalf("%s: expected error", dirName)
		}
	}

	// Name must match the directory it lives in.
	dir := writeSkill(t, root, "wrong-dir", summarizeSkill)
	_, err := LoadFile(filepath.Join(dir, "SKILL.md"))
	if err == nil || !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadDirSkipsNonSkills(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "summarize-report", summarizeSkill)
	if err := os.MkdirAll(filepath.Join(root, "not-a-skill"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	specs, err := LoadDir(root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(specs) != 1 || specs[0].Name != "summarize-report" {
		t.Fatalf("specs = %+v", specs)
	}
}

func TestSkillToolActivation(t *testing.T) {
	root := t.TempDir()
	dir := writeSkill(t, root, "summarize-report", summarizeSkill)
	refDir := filepath.Join(dir, "references")
	if err := os.MkdirAll(refDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(refDir, "style.md"), []byte("use plain language"), 0o644); err != nil {
		t.Fatalf("write resource: %v", err)
	}

	registry := tool.NewRegistry()
	specs, err := RegisterDir(registry, root)
	if err != nil {
		t.Fatalf("RegisterDir: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("specs = %d", len(specs))
	}

	out, err := registry.Call(context.Background(), "summarize-report", nil)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	var resp struct {
		Instructions string   `json:"instructions"`
		Resources    []string `json:"resources"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Instructions, "five bullet points") {
		t.Fatalf("instructions = %q", resp.Instructions)
	}
	if len(resp.Resources) != 1 || resp.Resources[0] != filepath.Join("references", "style.md") {
		t.Fatalf("resources = %v", resp.Resources)
	}

	out, err = registry.Call(context.Background(), "summarize-report",
		json.RawMessage(`{"action": "load_resource", "resource": "references/style.md"}`))
	if err != nil {
		t.Fatalf("load_resource: %v", err)
	}
	if !strings.Contains(string(out), "plain language") {
		t.Fatalf("resource = %s", out)
	}
}

func TestSkillToolRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	dir := writeSkill(t, root, "summarize-report", summarizeSkill)
	spec, err := LoadFile(filepath.Join(dir, "SKILL.md"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	st := NewSkillTool(spec)

	_, err = st.Call(context.Background(),
		json.RawMessage(`{"action": "load_resource", "resource": "../../etc/passwd"}`))
	if err == nil {
		t.Fatal("expected traversal rejection")
	}
	if !errors.HasCode(err, errors.CodeProtocol) {
		t.Fatalf("code = %v", errors.CodeOf(err))
	}
}
