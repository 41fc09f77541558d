// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package workflow provides a recursive node-tree evaluator that weaves
// teams, named tasks, and shared state together into one run.
package workflow

import (
	"sync"
)

// Context is the shared scratchpad for one workflow run. All branches of
// the run hold the same Context by reference; concurrent writes to the
// same key resolve last-writer-wins.
type Context struct {
	mu      sync.RWMutex
	state   map[string]any
	history []string
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{state: make(map[string]any)}
}

// Set writes a value into the shared state.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[key] = value
}

// Get reads a value from the shared state.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.state[key]
	return v, ok
}

// PushHistory appends a trace line.
func (c *Context) PushHistory(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, line)
}

// History returns a copy of the trace lines in order.
func (c *Context) History() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// Snapshot is a detached copy of a run context, returned by Engine.Run.
type Snapshot struct {
	State   map[string]any
	History []string
}

// Snapshot copies the current state and history.
func (c *Context) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := make(map[string]any, len(c.state))
	for k, v := range c.state {
		state[k] = v
	}
	history := make([]string, len(c.history))
	copy(history, c.history)
	return &Snapshot{State: state, History: history}
}
