// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills loads prompt skills from SKILL.md files. A skill is a
// directory holding a SKILL.md with YAML frontmatter and a markdown
// body of instructions, optionally alongside resource files the model
// can request once the skill is active.
package skills

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/braidhq/braid/pkg/errors"
)

// Spec is one parsed skill.
type Spec struct {
	Name        string
	Description string
	License     string
	Metadata    map[string]string
	// Body holds the instructions handed to the model on activation.
	Body string
	// Dir is the skill directory, the root for resource lookups.
	Dir string
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type frontmatter struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	License     string            `yaml:"license"`
	Metadata    map[string]string `yaml:"metadata"`
}

// LoadDir scans root for skill subdirectories containing a SKILL.md
// and parses each. Subdirectories without one are skipped.
func LoadDir(root string) ([]Spec, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "read skills directory", err)
	}
	var specs []Spec
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), "SKILL.md")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		spec, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadFile parses a single SKILL.md file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, errors.Wrap(errors.CodeStorage, "read skill file", err)
	}
	front, body, err := splitFrontmatter(string(data))
	if err != nil {
		return Spec{}, errors.Wrap(errors.CodeProtocol, path, err)
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(front), &parsed); err != nil {
		return Spec{}, errors.Wrap(errors.CodeProtocol, "parse skill frontmatter", err)
	}
	spec := Spec{
		Name:        strings.TrimSpace(parsed.Name),
		Description: strings.TrimSpace(parsed.Description),
		License:     parsed.License,
		Metadata:    parsed.Metadata,
		Body:        strings.TrimSpace(body),
		Dir:         filepath.Dir(path),
	}
	if err := spec.validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", errors.New(errors.CodeProtocol, "skill file missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New(errors.CodeProtocol, "skill frontmatter not terminated")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func (s Spec) validate() error {
	if s.Name == "" {
		return errors.New(errors.CodeProtocol, "skill name is required")
	}
	if utf8.RuneCountInString(s.Name) > maxNameLen {
		return errors.Newf(errors.CodeProtocol, "skill name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(s.Name) {
		return errors.Newf(errors.CodeProtocol, "skill name %q must be lowercase kebab-case", s.Name)
	}
	if dir := filepath.Base(s.Dir); dir != s.Name {
		return errors.Newf(errors.CodeProtocol, "skill name %q must match directory name %q", s.Name, dir)
	}
	if s.Description == "" {
		return errors.New(errors.CodeProtocol, "skill description is required")
	}
	if utf8.RuneCountInString(s.Description) > maxDescriptionLen {
		return errors.Newf(errors.CodeProtocol, "skill description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}
