// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package connectors turns external API and database surfaces into
// agent tools. Each connector introspects its source and emits one
// tool per discovered operation.
package connectors

import (
	"context"
	"encoding/json"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

// Connector enumerates tools backed by an external surface.
type Connector interface {
	Tools() []tool.Tool
}

// Register adds every tool the connector exposes to registry and
// returns how many were added.
func Register(registry *tool.Registry, c Connector) int {
	tools := c.Tools()
	for _, t := range tools {
		registry.Register(t)
	}
	return len(tools)
}

// executor runs a connector operation with decoded arguments.
type executor func(ctx context.Context, args map[string]any) (any, error)

// connectorTool adapts one introspected operation to the tool contract.
type connectorTool struct {
	name        string
	description string
	parameters  json.RawMessage
	exec        executor
}

func (t *connectorTool) Name() string { return t.name }

func (t *connectorTool) Description() string { return t.description }

func (t *connectorTool) Parameters() json.RawMessage { return t.parameters }

func (t *connectorTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args := map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, errors.Wrap(errors.CodeProtocol, "tool arguments must be a JSON object", err)
		}
	}
	out, err := t.exec(ctx, args)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "encode tool output", err)
	}
	return encoded, nil
}

// objectSchema builds a JSON Schema object for the given properties.
func objectSchema(properties map[string]any, required []string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	encoded, _ := json.Marshal(schema)
	return encoded
}
