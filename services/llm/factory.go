// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "fmt"

// Provider identifies a model backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// NewClient constructs a ToolCallingClient for the given provider.
//
// Description:
//
//	Anthropic reads its API key from the environment (or container
//	secrets); model/baseURL arguments override the environment when
//	non-empty. Ollama is keyless.
//
// Inputs:
//   - provider: Which backend to use.
//   - model: Model name; empty uses the provider default.
//   - baseURL: Provider URL; empty uses the provider default.
//
// Outputs:
//   - ToolCallingClient: The configured client.
//   - error: Non-nil for unknown providers or construction failure.
func NewClient(provider Provider, model, baseURL string) (ToolCallingClient, error) {
	switch provider {
	case ProviderAnthropic:
		client, err := NewAnthropicClient()
		if err != nil {
			return nil, err
		}
		if model != "" {
			client.model = model
		}
		if baseURL != "" {
			client.baseURL = baseURL
		}
		return client, nil
	case ProviderOllama:
		return NewOllamaClient(model, baseURL)
	default:
		return nil, fmt.Errorf("llm: unsupported provider: %s", provider)
	}
}
