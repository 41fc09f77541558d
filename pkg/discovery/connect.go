// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"log/slog"

	"github.com/braidhq/braid/pkg/config"
	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/mcp"
	"github.com/braidhq/braid/pkg/tool"
)

// FromConfig assembles a resolver from the mcp configuration section:
// declared servers first, then well-known probes, then the registry.
func FromConfig(cfg *config.Config) (*Resolver, error) {
	var providers []Provider
	if cfg != nil {
		if len(cfg.MCP.Servers) > 0 {
			providers = append(providers, NewConfigProvider(cfg))
		}
		if len(cfg.MCP.WellKnownURLs) > 0 {
			providers = append(providers, NewWellKnownProvider(cfg.MCP.WellKnownURLs))
		}
		if cfg.MCP.RegistryURL != "" {
			providers = append(providers, NewRegistryProvider(cfg.MCP.RegistryURL))
		}
	}
	return NewResolver(providers...)
}

// Connection is one live MCP client produced by Connect.
type Connection struct {
	Endpoint ServerEndpoint
	Client   *mcp.Client
}

// Connect dials every resolved endpoint and registers its tools into
// registry. Endpoints that fail to dial or list are skipped with a
// warning; an error is returned only when nothing connected. The caller
// owns the returned connections and should Close them.
func Connect(ctx context.Context, resolver *Resolver, registry *tool.Registry, logger *slog.Logger) ([]Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	endpoints, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	var conns []Connection
	for _, endpoint := range endpoints {
		client, err := dial(endpoint)
		if err != nil {
			logger.Warn("discovery.connect.failed",
				slog.String("server", endpoint.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := mcp.RegisterTools(ctx, registry, client); err != nil {
			logger.Warn("discovery.register.failed",
				slog.String("server", endpoint.Name),
				slog.String("error", err.Error()),
			)
			client.Close()
			continue
		}
		logger.Info("discovery.connected", slog.String("server", endpoint.Name))
		conns = append(conns, Connection{Endpoint: endpoint, Client: client})
	}
	if len(endpoints) > 0 && len(conns) == 0 {
		return nil, errors.New(errors.CodeProtocol, "no discovered mcp server could be connected")
	}
	return conns, nil
}

func dial(endpoint ServerEndpoint) (*mcp.Client, error) {
	switch {
	case endpoint.URL != "":
		return mcp.NewClientWithStreamableHTTP(endpoint.URL)
	case endpoint.Command != "":
		return mcp.NewClientWithStdio(endpoint.Command, endpoint.Args)
	default:
		return nil, errors.Newf(errors.CodeProtocol, "endpoint %q has neither url nor command", endpoint.Name)
	}
}

// CloseAll closes every connection, keeping the first error.
func CloseAll(conns []Connection) error {
	var first error
	for _, conn := range conns {
		if err := conn.Client.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
