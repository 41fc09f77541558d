// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/braidhq/braid/pkg/errors"
)

// WellKnownPath is the manifest location probed on each base URL.
const WellKnownPath = "/.well-known/mcp.json"

var errManifestUnavailable = errors.New(errors.CodeProtocol, "manifest unavailable")

// wellKnownManifest is the served manifest shape.
type wellKnownManifest struct {
	Name   string            `json:"name"`
	URL    string            `json:"url"`
	Labels map[string]string `json:"labels"`
}

// WellKnownProvider probes base URLs for MCP manifests. Unreachable
// hosts are skipped, not errors.
type WellKnownProvider struct {
	BaseURLs []string
	HTTP     *http.Client
}

// NewWellKnownProvider builds a provider for base URLs, dropping blanks
// and duplicates.
func NewWellKnownProvider(baseURLs []string) *WellKnownProvider {
	clean := make([]string, 0, len(baseURLs))
	seen := map[string]struct{}{}
	for _, url := range baseURLs {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		key := strings.ToLower(url)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		clean = append(clean, url)
	}
	return &WellKnownProvider{BaseURLs: clean}
}

// List implements Provider.
func (p *WellKnownProvider) List(ctx context.Context) ([]ServerEndpoint, error) {
	out := make([]ServerEndpoint, 0, len(p.BaseURLs))
	for _, baseURL := range p.BaseURLs {
		manifest, err := p.fetch(ctx, baseURL)
		if err != nil {
			continue
		}
		url := strings.TrimSpace(manifest.URL)
		if url == "" {
			url = strings.TrimRight(baseURL, "/") + "/mcp"
		}
		out = append(out, ServerEndpoint{
			Name:   strings.TrimSpace(manifest.Name),
			URL:    url,
			Labels: cloneLabels(manifest.Labels),
		})
	}
	return out, nil
}

func (p *WellKnownProvider) fetch(ctx context.Context, baseURL string) (*wellKnownManifest, error) {
	url := strings.TrimRight(baseURL, "/") + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errManifestUnavailable
	}
	var manifest wellKnownManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (p *WellKnownProvider) client() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return http.DefaultClient
}
