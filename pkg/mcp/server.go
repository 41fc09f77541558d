// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/braidhq/braid/pkg/tool"
)

// Server exposes Braid tools to MCP clients.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server with the given identity.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version),
	}
}

// RegisterTool exposes one Braid tool over MCP.
func (s *Server) RegisterTool(t tool.Tool) {
	def := mcp.NewTool(t.Name(), mcp.WithDescription(t.Description()))

	s.mcpServer.AddTool(def, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		input, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		output, err := t.Call(ctx, input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(output)), nil
	})
}

// RegisterRegistry exposes every tool in the registry over MCP.
func (s *Server) RegisterRegistry(registry *tool.Registry) {
	for _, name := range registry.Names() {
		if t, ok := registry.Get(name); ok {
			s.RegisterTool(t)
		}
	}
}

// ServeStdio serves MCP requests over stdio until the peer disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
