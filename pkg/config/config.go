// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads runtime configuration from YAML files and BRAID_*
// environment variables.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration for a Braid deployment.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	LLM        LLMConfig        `koanf:"llm"`
	Agent      AgentConfig      `koanf:"agent"`
	Memory     MemoryConfig     `koanf:"memory"`
	Governance GovernanceConfig `koanf:"governance"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Workflow   WorkflowConfig   `koanf:"workflow"`
	MCP        MCPConfig        `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // ollama, stub
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	// RetryAttempts enables the retry decorator when > 1.
	RetryAttempts int `koanf:"retry_attempts"`
	// TimeoutSeconds enables the timeout decorator when > 0.
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

type AgentConfig struct {
	MaxSteps     int    `koanf:"max_steps"`
	SystemPrompt string `koanf:"system_prompt"`
	Streaming    bool   `koanf:"streaming"`
}

type MemoryConfig struct {
	// Backend selects transcript persistence: inmemory, file, sqlite.
	Backend   string `koanf:"backend"`
	Path      string `koanf:"path"`
	SQLiteDSN string `koanf:"sqlite_dsn"`
	Session   string `koanf:"session"`

	Vector VectorConfig `koanf:"vector"`
}

type VectorConfig struct {
	Enabled bool `koanf:"enabled"`
	// Provider selects the vector store: inmemory, qdrant.
	Provider        string `koanf:"provider"`
	QdrantAddr      string `koanf:"qdrant_addr"`
	Collection      string `koanf:"collection"`
	EmbedderBaseURL string `koanf:"embedder_base_url"`
	EmbedderModel   string `koanf:"embedder_model"`
}

type GovernanceConfig struct {
	Enabled bool `koanf:"enabled"`
	// ConfirmTools requires a confirmation handler approval for every
	// tool call.
	ConfirmTools bool `koanf:"confirm_tools"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type WorkflowConfig struct {
	// Path points at a YAML workflow definition to preload.
	Path string `koanf:"path"`
	// BusCapacity bounds each team bus subscriber buffer.
	BusCapacity int `koanf:"bus_capacity"`
}

// MCPConfig declares external MCP servers whose tools should be made
// available to agents.
type MCPConfig struct {
	Servers map[string]MCPServerConfig `koanf:"servers"`
	// RegistryURL optionally points at a server registry service.
	RegistryURL string `koanf:"registry_url"`
	// WellKnownURLs are base URLs probed for /.well-known/mcp.json.
	WellKnownURLs []string `koanf:"well_known_urls"`
}

// MCPServerConfig describes one MCP server. Exactly one of URL or
// Command should be set.
type MCPServerConfig struct {
	URL     string            `koanf:"url"`
	Command string            `koanf:"command"`
	Args    []string          `koanf:"args"`
	Labels  map[string]string `koanf:"labels"`
}

// Load reads configuration with precedence defaults < file < environment.
// Environment keys map BRAID_LLM_PROVIDER -> llm.provider.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5-coder:7b-instruct-q5_K_M")
	k.Set("llm.base_url", "http://localhost:11434")

	k.Set("agent.max_steps", 6)
	k.Set("agent.system_prompt", "You are a helpful agent.")

	k.Set("memory.backend", "inmemory")
	k.Set("memory.vector.enabled", false)
	k.Set("memory.vector.provider", "inmemory")
	k.Set("memory.vector.qdrant_addr", "localhost:6334")
	k.Set("memory.vector.collection", "braid")
	k.Set("memory.vector.embedder_base_url", "http://localhost:11434")
	k.Set("memory.vector.embedder_model", "nomic-embed-text")

	k.Set("governance.enabled", false)
	k.Set("telemetry.exporter", "stdout")
	k.Set("workflow.bus_capacity", 128)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("BRAID_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "BRAID_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
