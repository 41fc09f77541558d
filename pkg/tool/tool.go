// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool defines the tool contract and the registry agents draw from.
package tool

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/braidhq/braid/pkg/errors"
)

// Tool is a callable capability exposed to the language model.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns an optional JSON Schema object describing the
	// expected arguments. Nil means unspecified.
	Parameters() json.RawMessage
	Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Description is the static catalogue entry embedded in prompts.
type Description struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Registry maps unique names to tools. Re-registering a name replaces the
// prior binding.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register binds a tool under its name, replacing any prior binding.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Names returns the registered tool names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Describe returns the catalogue sorted by name so prompts stay deterministic.
func (r *Registry) Describe() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptions := make([]Description, 0, len(r.tools))
	for _, t := range r.tools {
		descriptions = append(descriptions, Description{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(descriptions, func(i, j int) bool {
		return descriptions[i].Name < descriptions[j].Name
	})
	return descriptions
}

// Call invokes the named tool. An unknown name yields CodeToolNotFound;
// a tool-local failure is wrapped as CodeToolInvocation tagged with the name.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.CodeToolNotFound, "tool %q not found", name)
	}
	output, err := t.Call(ctx, input)
	if err != nil {
		return nil, errors.Wrap(errors.CodeToolInvocation, "tool "+name+" invocation failed", err).
			WithContext("tool", name)
	}
	return output, nil
}
