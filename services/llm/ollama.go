// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaClient implements ToolCallingClient against a local Ollama server
// through langchaingo.
//
// Description:
//
//	Local, keyless alternative to the Anthropic client for development and
//	air-gapped deployments. Tool calling requires an Ollama model with
//	function-calling support (e.g., llama3.1, qwen2.5).
//
// Thread Safety: Safe for concurrent use.
type OllamaClient struct {
	client *ollama.LLM
	model  string
}

// NewOllamaClient creates an OllamaClient for the given model and server URL.
//
// Inputs:
//   - model: The Ollama model name.
//   - baseURL: Server URL; empty uses the langchaingo default
//     (http://localhost:11434).
//
// Outputs:
//   - *OllamaClient: The configured client.
//   - error: Non-nil when the underlying client cannot be constructed.
func NewOllamaClient(model, baseURL string) (*OllamaClient, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama: creating client: %w", err)
	}
	return &OllamaClient{client: client, model: model}, nil
}

// ChatWithTools sends the conversation to Ollama and returns the model turn.
//
// Description:
//
//	Converts ChatMessage values to langchaingo MessageContent (tool results
//	become ToolCallResponse parts, assistant tool requests become ToolCall
//	parts) and ToolDef values to llms.Tool. An empty tools slice omits
//	function declarations entirely; ToolChoiceNone is honored the same way
//	since Ollama has no wire-level tool_choice.
//
// Thread Safety: This method is safe for concurrent use.
func (o *OllamaClient) ChatWithTools(ctx context.Context, messages []ChatMessage,
	params GenerationParams, tools []ToolDef) (*ChatWithToolsResult, error) {

	contents := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			contents = append(contents, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case "user":
			contents = append(contents, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case "assistant":
			var parts []llms.ContentPart
			if m.Content != "" {
				parts = append(parts, llms.TextPart(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, llms.TextPart(" "))
			}
			contents = append(contents, llms.MessageContent{
				Role:  llms.ChatMessageTypeAI,
				Parts: parts,
			})
		case "tool":
			contents = append(contents, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: m.ToolCallID,
						Name:       m.ToolName,
						Content:    m.Content,
					},
				},
			})
		default:
			return nil, fmt.Errorf("ollama: unsupported message role %q", m.Role)
		}
	}

	opts := make([]llms.CallOption, 0, 6)
	opts = append(opts, llms.WithModel(o.model))
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	if len(tools) > 0 && params.ToolChoice != ToolChoiceNone {
		lcTools := make([]llms.Tool, 0, len(tools))
		for _, td := range tools {
			lcTools = append(lcTools, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        td.Function.Name,
					Description: td.Function.Description,
					Parameters:  td.Function.Parameters,
				},
			})
		}
		opts = append(opts, llms.WithTools(lcTools))
	}

	resp, err := o.client.GenerateContent(ctx, contents, opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama: generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ollama: empty response from model")
	}

	choice := resp.Choices[0]
	result := &ChatWithToolsResult{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			slog.Warn("Ollama tool call missing function call payload", "id", tc.ID)
			continue
		}
		args := json.RawMessage(tc.FunctionCall.Arguments)
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		result.ToolCalls = append(result.ToolCalls, ToolCallResponse{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: args,
		})
	}

	if len(result.ToolCalls) > 0 {
		result.StopReason = "tool_use"
	} else {
		result.StopReason = "end"
	}

	return result, nil
}
