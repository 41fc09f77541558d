// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/braidhq/braid/pkg/errors"
)

// RegistryProvider queries an external registry service for MCP servers.
type RegistryProvider struct {
	BaseURL   string
	HTTP      *http.Client
	AuthToken string
}

// NewRegistryProvider creates a registry provider pointing at baseURL.
func NewRegistryProvider(baseURL string) *RegistryProvider {
	return &RegistryProvider{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    http.DefaultClient,
	}
}

// List implements Provider.
func (p *RegistryProvider) List(ctx context.Context) ([]ServerEndpoint, error) {
	if p.BaseURL == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/servers", nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.AuthToken) != "" {
		req.Header.Set("Authorization", "Bearer "+p.AuthToken)
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProtocol, "registry list", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeProtocol, "registry list failed: %s", resp.Status)
	}
	var out []ServerEndpoint
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(errors.CodeProtocol, "decode registry response", err)
	}
	return out, nil
}

// Register announces an endpoint to the registry. Entries expire server
// side unless re-registered within the registry TTL.
func (p *RegistryProvider) Register(ctx context.Context, endpoint ServerEndpoint) error {
	if p.BaseURL == "" {
		return errors.New(errors.CodeProtocol, "registry base url not configured")
	}
	payload, err := json.Marshal(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/servers", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(p.AuthToken) != "" {
		req.Header.Set("Authorization", "Bearer "+p.AuthToken)
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeProtocol, "registry register", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.CodeProtocol, "registry register failed: %s", resp.Status)
	}
	return nil
}

func (p *RegistryProvider) client() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return http.DefaultClient
}

// RegistryServer is a minimal in-process registry. Registered entries
// expire after TTL unless refreshed.
type RegistryServer struct {
	TTL time.Duration

	mu         sync.Mutex
	endpoints  map[string]ServerEndpoint
	lastUpdate map[string]time.Time
}

// NewRegistryServer builds a registry server with the given TTL.
func NewRegistryServer(ttl time.Duration) *RegistryServer {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RegistryServer{
		TTL:        ttl,
		endpoints:  map[string]ServerEndpoint{},
		lastUpdate: map[string]time.Time{},
	}
}

// Handler returns the HTTP handler for the registry API.
func (r *RegistryServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/servers", r.handleServers)
	return mux
}

func (r *RegistryServer) handleServers(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleList(w)
	case http.MethodPost:
		r.handleRegister(w, req)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *RegistryServer) handleList(w http.ResponseWriter) {
	r.mu.Lock()
	now := time.Now().UTC()
	out := make([]ServerEndpoint, 0, len(r.endpoints))
	for key, entry := range r.endpoints {
		if now.Sub(r.lastUpdate[key]) > r.TTL {
			delete(r.endpoints, key)
			delete(r.lastUpdate, key)
			continue
		}
		out = append(out, entry)
	}
	r.mu.Unlock()
	sortEndpoints(out)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (r *RegistryServer) handleRegister(w http.ResponseWriter, req *http.Request) {
	var endpoint ServerEndpoint
	if err := json.NewDecoder(req.Body).Decode(&endpoint); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	key := endpoint.key()
	if key == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.endpoints[key] = endpoint
	r.lastUpdate[key] = time.Now().UTC()
	r.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
