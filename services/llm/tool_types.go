// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "encoding/json"

// ToolDef is the generic tool definition passed to ChatWithTools for all
// providers. Follows the OpenAI function calling schema.
//
// Description:
//
//	Provides a provider-agnostic way to declare a tool. Each provider's
//	ChatWithTools method converts ToolDef into its wire format (Anthropic
//	input_schema, Ollama function declarations via langchaingo).
//
// Thread Safety: ToolDef is immutable and safe for concurrent read access.
type ToolDef struct {
	// Type is the tool type. Always "function" for function calling.
	Type string `json:"type"`

	// Function contains the function definition.
	Function ToolFunction `json:"function"`
}

// ToolFunction contains the function name, description, and parameter schema.
type ToolFunction struct {
	// Name is the function name the model will call.
	Name string `json:"name"`

	// Description explains what the function does.
	Description string `json:"description"`

	// Parameters defines the JSON Schema for function parameters.
	Parameters ToolParameters `json:"parameters"`
}

// ToolParameters defines the JSON Schema for tool parameters.
type ToolParameters struct {
	// Type is the JSON Schema type. Always "object" for tool parameters.
	Type string `json:"type"`

	// Properties maps parameter names to their definitions.
	Properties map[string]ToolParamDef `json:"properties,omitempty"`

	// Required lists parameter names that must be provided.
	Required []string `json:"required,omitempty"`
}

// ToolParamDef defines a single parameter in JSON Schema format.
type ToolParamDef struct {
	// Type is the JSON Schema type (string, integer, boolean, number).
	Type string `json:"type"`

	// Description explains what the parameter is for.
	Description string `json:"description,omitempty"`

	// Enum restricts values to a set of options.
	Enum []any `json:"enum,omitempty"`

	// Default is the default value if not provided.
	Default any `json:"default,omitempty"`
}

// ChatMessage is a conversation message that carries tool call metadata.
//
// Description:
//
//	Regular messages use Role + Content. Tool results include ToolCallID.
//	Assistant messages that requested tools include ToolCalls. The RAG
//	generator builds its whole transcript out of these and each provider
//	converts them to its own wire format.
//
// Thread Safety: ChatMessage is safe for concurrent read access.
type ChatMessage struct {
	// Role is the message role: "system", "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations (for assistant messages).
	ToolCalls []ToolCallResponse `json:"tool_calls,omitempty"`

	// ToolCallID links this message back to a specific tool call
	// (for tool result messages). This is the correlation token the
	// model uses to align multi-tool rounds.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName is the tool name for tool result messages.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCallResponse represents a tool invocation requested by the model.
//
// Description:
//
//	Provider-agnostic representation of a tool call:
//	- Anthropic: tool_use content blocks (ID supplied by the API)
//	- Ollama via langchaingo: tool_calls array
//
// Thread Safety: ToolCallResponse is safe for concurrent read access.
type ToolCallResponse struct {
	// ID is the unique identifier for this tool call. Echoed back in the
	// matching tool result message.
	ID string `json:"id"`

	// Name is the function name to call.
	Name string `json:"name"`

	// Arguments is the raw JSON arguments for the function.
	Arguments json.RawMessage `json:"arguments"`
}

// ArgumentsMap decodes the raw JSON arguments into a generic map.
//
// Description:
//
//	Tool executors dispatch on keyword arguments, so the raw JSON object
//	is decoded into map[string]any. Nil or empty arguments decode to an
//	empty map, never nil, so callers can index without a nil check.
//
// Outputs:
//   - map[string]any: Decoded arguments. Empty map for absent arguments.
//   - error: Non-nil when Arguments is present but not a JSON object.
//
// Thread Safety: This method is safe for concurrent use.
func (t *ToolCallResponse) ArgumentsMap() (map[string]any, error) {
	args := make(map[string]any)
	if len(t.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(t.Arguments, &args); err != nil {
		return nil, err
	}
	return args, nil
}

// ChatWithToolsResult is the provider-agnostic result from ChatWithTools.
//
// Description:
//
//	Contains the model response including any tool calls. All provider
//	clients return this from their ChatWithTools method.
//
// Thread Safety: ChatWithToolsResult is safe for concurrent read access.
type ChatWithToolsResult struct {
	// Content is the text response (may be empty if only tool calls).
	Content string

	// ToolCalls contains tool calls requested by the model.
	ToolCalls []ToolCallResponse

	// StopReason indicates why generation stopped.
	// Values: "end" (normal completion) or "tool_use" (tool calls present).
	StopReason string
}

// RequestedTools reports whether the model asked for any tool invocations.
//
// Thread Safety: This method is safe for concurrent use.
func (r *ChatWithToolsResult) RequestedTools() bool {
	return len(r.ToolCalls) > 0
}
