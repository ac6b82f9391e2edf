// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides provider-agnostic clients for tool-calling chat
// models. The RAG generator depends only on the ToolCallingClient
// interface; concrete providers (Anthropic REST, Ollama via langchaingo)
// live in this package behind a small factory.
//
// Thread Safety:
//
//	All clients in this package must be safe for concurrent use;
//	one shared client serves every in-flight query.
package llm

import "context"

// ToolChoice selects how the provider is allowed to use tools for one call.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto ToolChoice = "auto"

	// ToolChoiceNone forbids tool calls even when tools were offered on
	// earlier calls in the same conversation. Used for the forced final
	// synthesis call.
	ToolChoiceNone ToolChoice = "none"
)

// GenerationParams holds provider-agnostic generation options.
//
// Description:
//
//	Pointer fields distinguish "unset, use provider default" from an
//	explicit zero. ToolChoice only applies when tool definitions are
//	supplied with the request.
type GenerationParams struct {
	// Temperature controls randomness. Nil means provider default.
	Temperature *float32

	// TopP is the nucleus sampling parameter. Nil means provider default.
	TopP *float32

	// MaxTokens limits the response length. Nil means provider default.
	MaxTokens *int

	// Stop lists stop sequences. Empty means none.
	Stop []string

	// ToolChoice constrains tool usage for this call. Empty behaves as
	// ToolChoiceAuto when tools are supplied.
	ToolChoice ToolChoice
}

// ToolCallingClient is the model capability consumed by the RAG generator.
//
// Description:
//
//	Given a message transcript, generation parameters, and an optional
//	tool catalog, the client returns either final text or a set of
//	requested tool invocations. Passing an empty tools slice must omit
//	tool definitions from the wire request entirely, which forces a
//	direct text answer.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ToolCallingClient interface {
	// ChatWithTools sends the conversation and returns the model turn.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout.
	//   - messages: Conversation history with tool metadata. A message
	//     with role "system" carries the system content.
	//   - params: Generation parameters.
	//   - tools: Tool definitions, or nil/empty for a no-tools call.
	//
	// Outputs:
	//   - *ChatWithToolsResult: Text content and/or tool calls.
	//   - error: Non-nil on transport, auth, or provider failure.
	ChatWithTools(ctx context.Context, messages []ChatMessage,
		params GenerationParams, tools []ToolDef) (*ChatWithToolsResult, error)
}
