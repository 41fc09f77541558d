// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"strings"

	"github.com/braidhq/braid/pkg/config"
)

// ConfigProvider lists MCP servers declared in configuration.
type ConfigProvider struct {
	entries []ServerEndpoint
}

// NewConfigProvider builds a provider from the mcp.servers section.
func NewConfigProvider(cfg *config.Config) *ConfigProvider {
	provider := &ConfigProvider{}
	if cfg == nil {
		return provider
	}
	for name, server := range cfg.MCP.Servers {
		provider.entries = append(provider.entries, ServerEndpoint{
			Name:    strings.TrimSpace(name),
			URL:     strings.TrimSpace(server.URL),
			Command: strings.TrimSpace(server.Command),
			Args:    append([]string(nil), server.Args...),
			Labels:  cloneLabels(server.Labels),
		})
	}
	sortEndpoints(provider.entries)
	return provider
}

// List implements Provider.
func (p *ConfigProvider) List(_ context.Context) ([]ServerEndpoint, error) {
	return append([]ServerEndpoint(nil), p.entries...), nil
}

func cloneLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for key, value := range labels {
		out[key] = value
	}
	return out
}
