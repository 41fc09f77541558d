// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"encoding/json"
)

// Func adapts a plain function into a Tool.
type Func struct {
	name        string
	description string
	parameters  json.RawMessage
	fn          func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// NewFunc builds a Tool from a function.
func NewFunc(name, description string, fn func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)) *Func {
	return &Func{name: name, description: description, fn: fn}
}

// WithParameters attaches a JSON Schema describing the arguments.
func (f *Func) WithParameters(schema json.RawMessage) *Func {
	f.parameters = schema
	return f
}

// Name returns the tool name.
func (f *Func) Name() string { return f.name }

// Description returns the tool description.
func (f *Func) Description() string { return f.description }

// Parameters returns the attached schema, if any.
func (f *Func) Parameters() json.RawMessage { return f.parameters }

// Call invokes the wrapped function.
func (f *Func) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return f.fn(ctx, input)
}
