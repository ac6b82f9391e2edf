// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the service configuration from YAML with
// environment overrides for the values that change per deployment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProviderConfig selects and configures the model provider.
type ProviderConfig struct {
	// Name is "anthropic" or "ollama".
	Name string `yaml:"name"`

	// Model is the model identifier, e.g. "claude-sonnet-4-5" or
	// "llama3.1".
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint. Empty uses the
	// provider's default.
	BaseURL string `yaml:"base_url"`
}

// StoreConfig selects the course index backend.
type StoreConfig struct {
	// Backend is "weaviate" or "memory".
	Backend string `yaml:"backend"`

	// Host is the Weaviate host:port.
	Host string `yaml:"host"`

	// Scheme is "http" or "https".
	Scheme string `yaml:"scheme"`
}

// SessionConfig selects the conversation history backend.
type SessionConfig struct {
	// Backend is "memory" or "badger".
	Backend string `yaml:"backend"`

	// Dir is the BadgerDB directory for the badger backend.
	Dir string `yaml:"dir"`

	// TTL is the idle lifetime of a persisted session.
	TTL time.Duration `yaml:"ttl"`

	// MaxExchanges is the history window per session.
	MaxExchanges int `yaml:"max_exchanges"`
}

// IngestConfig controls startup document loading.
type IngestConfig struct {
	// DocsDir is the course document folder loaded at startup. Empty
	// disables ingestion.
	DocsDir string `yaml:"docs_dir"`

	// Watch keeps watching DocsDir for new documents after startup.
	Watch bool `yaml:"watch"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// GeneratorConfig tunes the answer-generation loop. Zero values select
// the generator's built-in defaults.
type GeneratorConfig struct {
	// MaxRounds caps the tool-bearing model rounds per query.
	MaxRounds int `yaml:"max_rounds"`

	// MaxTokens bounds each model response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature for model calls.
	Temperature float32 `yaml:"temperature"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	// StdoutTraces exports spans to stdout. Meant for development.
	StdoutTraces bool `yaml:"stdout_traces"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Store     StoreConfig     `yaml:"store"`
	Session   SessionConfig   `yaml:"session"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Generator GeneratorConfig `yaml:"generator"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	return AppConfig{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8000},
		Provider: ProviderConfig{Name: "anthropic"},
		Store:    StoreConfig{Backend: "weaviate", Host: "localhost:8080", Scheme: "http"},
		Session:  SessionConfig{Backend: "memory"},
		Ingest:   IngestConfig{DocsDir: "docs"},
	}
}

// Load reads the configuration file and applies environment overrides.
//
// Description:
//
//	Pass "" to start from defaults without a file. Environment
//	overrides, applied last:
//
//	  LECTERN_PORT          - listener port
//	  LECTERN_PROVIDER      - model provider name
//	  LECTERN_MODEL         - model identifier
//	  LECTERN_PROVIDER_URL  - provider base URL
//	  WEAVIATE_HOST         - Weaviate host:port
//	  LECTERN_DOCS_DIR      - course document folder
//
//	Secrets (ANTHROPIC_API_KEY) are read by the provider client, not
//	here, so they never pass through config structs.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot be wired.
func (c *AppConfig) Validate() error {
	switch c.Provider.Name {
	case "anthropic", "ollama":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	switch c.Store.Backend {
	case "weaviate", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Session.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "badger" && c.Session.Dir == "" {
		return fmt.Errorf("session backend badger requires session.dir")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Generator.MaxRounds < 0 {
		return fmt.Errorf("generator.max_rounds must not be negative, got %d", c.Generator.MaxRounds)
	}
	if c.Generator.MaxTokens < 0 {
		return fmt.Errorf("generator.max_tokens must not be negative, got %d", c.Generator.MaxTokens)
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 1 {
		return fmt.Errorf("generator.temperature must be in [0, 1], got %g", c.Generator.Temperature)
	}
	return nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("LECTERN_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LECTERN_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("LECTERN_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("LECTERN_PROVIDER_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("WEAVIATE_HOST"); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv("LECTERN_DOCS_DIR"); v != "" {
		cfg.Ingest.DocsDir = v
	}
}
