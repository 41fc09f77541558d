// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery locates MCP servers from configuration, well-known
// manifests, and registry services, and connects their tools to a
// registry.
package discovery

import (
	"context"
	"sort"
	"strings"

	"github.com/braidhq/braid/pkg/errors"
)

// ServerEndpoint describes one discovered MCP server. Exactly one of URL
// (streamable HTTP) or Command (stdio) is expected to be set.
type ServerEndpoint struct {
	Name    string            `json:"name"`
	URL     string            `json:"url,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// key identifies an endpoint for dedupe: the URL when present, else the
// command line, else the name.
func (e ServerEndpoint) key() string {
	if url := strings.TrimSpace(e.URL); url != "" {
		return strings.ToLower(strings.TrimRight(url, "/"))
	}
	if cmd := strings.TrimSpace(e.Command); cmd != "" {
		return strings.ToLower(strings.Join(append([]string{cmd}, e.Args...), " "))
	}
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// Provider lists MCP server endpoints from one source.
type Provider interface {
	List(ctx context.Context) ([]ServerEndpoint, error)
}

// Resolver aggregates providers in priority order.
type Resolver struct {
	providers []Provider
}

// NewResolver creates a resolver with providers in order of priority.
// Nil providers are skipped; at least one real provider is required.
func NewResolver(providers ...Provider) (*Resolver, error) {
	filtered := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		filtered = append(filtered, provider)
	}
	if len(filtered) == 0 {
		return nil, errors.New(errors.CodeProtocol, "no discovery providers configured")
	}
	return &Resolver{providers: filtered}, nil
}

// Resolve returns discovered endpoints in provider order, deduped so the
// highest-priority provider wins for each server.
func (r *Resolver) Resolve(ctx context.Context) ([]ServerEndpoint, error) {
	out := make([]ServerEndpoint, 0)
	seen := map[string]struct{}{}
	for _, provider := range r.providers {
		entries, err := provider.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			key := entry.key()
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, entry)
		}
	}
	return out, nil
}

// Static is a fixed list of endpoints, mostly useful in tests and small
// deployments.
type Static []ServerEndpoint

// List implements Provider.
func (s Static) List(_ context.Context) ([]ServerEndpoint, error) {
	return append([]ServerEndpoint(nil), s...), nil
}

func sortEndpoints(entries []ServerEndpoint) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
