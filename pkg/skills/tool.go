// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

// resourceDirs are the skill subdirectories resources may live in.
var resourceDirs = []string{"scripts", "references", "assets"}

// SkillTool exposes a skill to the model as a callable tool. The model
// first sees only the skill's name and description; invoking the tool
// returns the full instruction body, and further calls can list or
// load resource files from the skill directory.
type SkillTool struct {
	spec Spec
}

// NewSkillTool wraps spec as a tool.
func NewSkillTool(spec Spec) *SkillTool {
	return &SkillTool{spec: spec}
}

// Spec returns the underlying skill.
func (s *SkillTool) Spec() Spec { return s.spec }

// Name implements tool.Tool.
func (s *SkillTool) Name() string { return s.spec.Name }

// Description implements tool.Tool.
func (s *SkillTool) Description() string { return s.spec.Description }

// Parameters implements tool.Tool.
func (s *SkillTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["activate", "load_resource", "list_resources"],
				"description": "activate returns the skill instructions; load_resource reads one resource file; list_resources names the available files",
				"default": "activate"
			},
			"resource": {
				"type": "string",
				"description": "resource path for load_resource"
			}
		}
	}`)
}

type skillRequest struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

type skillResponse struct {
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Resources    []string `json:"resources,omitempty"`
}

// Call implements tool.Tool.
func (s *SkillTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var req skillRequest
	if len(input) > 0 {
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, errors.Wrap(errors.CodeProtocol, "skill arguments must be a JSON object", err)
		}
	}
	switch req.Action {
	case "", "activate":
		return json.Marshal(skillResponse{
			Name:         s.spec.Name,
			Instructions: s.spec.Body,
			Resources:    s.resources(),
		})
	case "list_resources":
		return json.Marshal(s.resources())
	case "load_resource":
		content, err := s.loadResource(req.Resource)
		if err != nil {
			return nil, err
		}
		return json.Marshal(content)
	default:
		return nil, errors.Newf(errors.CodeProtocol, "unknown skill action %q", req.Action)
	}
}

func (s *SkillTool) resources() []string {
	var found []string
	for _, dir := range resourceDirs {
		entries, err := os.ReadDir(filepath.Join(s.spec.Dir, dir))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				found = append(found, filepath.Join(dir, entry.Name()))
			}
		}
	}
	return found
}

// loadResource reads one file from the skill directory. Paths escaping
// the directory are rejected.
func (s *SkillTool) loadResource(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.CodeProtocol, "resource path is required")
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.CodeProtocol, "resource path %q escapes skill directory", path)
	}
	data, err := os.ReadFile(filepath.Join(s.spec.Dir, clean))
	if err != nil {
		return "", errors.Wrap(errors.CodeStorage, "read skill resource", err)
	}
	return string(data), nil
}

// RegisterDir loads every skill under root and registers each as a
// tool, returning the loaded specs.
func RegisterDir(registry *tool.Registry, root string) ([]Spec, error) {
	specs, err := LoadDir(root)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		registry.Register(NewSkillTool(spec))
	}
	return specs, nil
}
