// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/LecternAI/Lectern/services/llm"
)

// capturedCall records one ChatWithTools invocation.
type capturedCall struct {
	messages []llm.ChatMessage
	params   llm.GenerationParams
	tools    []llm.ToolDef
}

// mockClient replays a scripted sequence of model turns. Calls past the
// end of the script return a plain text answer.
type mockClient struct {
	script []func(call capturedCall) (*llm.ChatWithToolsResult, error)
	calls  []capturedCall
}

func (m *mockClient) ChatWithTools(ctx context.Context, messages []llm.ChatMessage,
	params llm.GenerationParams, tools []llm.ToolDef) (*llm.ChatWithToolsResult, error) {

	call := capturedCall{messages: messages, params: params, tools: tools}
	m.calls = append(m.calls, call)
	if idx := len(m.calls) - 1; idx < len(m.script) {
		return m.script[idx](call)
	}
	return &llm.ChatWithToolsResult{Content: "default answer", StopReason: "end"}, nil
}

// mockExecutor records executions and delegates to fn.
type mockExecutor struct {
	fn    func(name string, args map[string]any) (string, error)
	names []string
}

func (m *mockExecutor) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	m.names = append(m.names, name)
	if m.fn != nil {
		return m.fn(name, args)
	}
	return "tool output", nil
}

func textTurn(text string) func(capturedCall) (*llm.ChatWithToolsResult, error) {
	return func(capturedCall) (*llm.ChatWithToolsResult, error) {
		return &llm.ChatWithToolsResult{Content: text, StopReason: "end"}, nil
	}
}

func toolTurn(id, name, argsJSON string) func(capturedCall) (*llm.ChatWithToolsResult, error) {
	return func(capturedCall) (*llm.ChatWithToolsResult, error) {
		return &llm.ChatWithToolsResult{
			StopReason: "tool_use",
			ToolCalls: []llm.ToolCallResponse{
				{ID: id, Name: name, Arguments: json.RawMessage(argsJSON)},
			},
		}, nil
	}
}

func errorTurn(msg string) func(capturedCall) (*llm.ChatWithToolsResult, error) {
	return func(capturedCall) (*llm.ChatWithToolsResult, error) {
		return nil, errors.New(msg)
	}
}

func testToolDefs() []llm.ToolDef {
	return []llm.ToolDef{
		{Type: "function", Function: llm.ToolFunction{Name: "search_course_content"}},
		{Type: "function", Function: llm.ToolFunction{Name: "get_course_outline"}},
	}
}

func TestRunDirectAnswerSingleCall(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		textTurn("Paris is the capital of France."),
	}}
	gen := NewGenerator(client)

	got := gen.Run(context.Background(), "What is the capital of France?", "",
		testToolDefs(), &mockExecutor{})

	if got != "Paris is the capital of France." {
		t.Errorf("answer not returned verbatim: %q", got)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected exactly 1 model call, got %d", len(client.calls))
	}
}

func TestRunHistoryReachesSystemContent(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		textTurn("ok"),
	}}
	gen := NewGenerator(client)

	gen.Run(context.Background(), "follow-up", "User: hi\nAssistant: hello", nil, nil)

	sys := client.calls[0].messages[0]
	if sys.Role != "system" {
		t.Fatalf("first message should carry system content, got role %q", sys.Role)
	}
	if !strings.Contains(sys.Content, "Previous conversation:\nUser: hi\nAssistant: hello") {
		t.Errorf("history block missing from system content:\n%s", sys.Content)
	}
}

func TestRunNoToolsOmitsCatalog(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		textTurn("general knowledge"),
	}}
	gen := NewGenerator(client)

	gen.Run(context.Background(), "hello", "", nil, nil)

	if len(client.calls[0].tools) != 0 {
		t.Errorf("expected no tools on the wire, got %d", len(client.calls[0].tools))
	}
}

func TestRunSingleToolRound(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"MCP basics"}`),
		textTurn("MCP is a protocol for tool access."),
	}}
	gen := NewGenerator(client)
	exec := &mockExecutor{}

	got := gen.Run(context.Background(), "What is MCP?", "", testToolDefs(), exec)

	if got != "MCP is a protocol for tool access." {
		t.Errorf("unexpected answer %q", got)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(client.calls))
	}
	if len(exec.names) != 1 || exec.names[0] != "search_course_content" {
		t.Fatalf("unexpected executions %v", exec.names)
	}

	// Round merge shape: assistant tool-use turn, then the result.
	second := client.calls[1].messages
	last, prev := second[len(second)-1], second[len(second)-2]
	if prev.Role != "assistant" || len(prev.ToolCalls) != 1 {
		t.Errorf("expected assistant tool-use turn, got %+v", prev)
	}
	if last.Role != "tool" || last.ToolCallID != "toolu_01" || last.Content != "tool output" {
		t.Errorf("expected correlated tool result, got %+v", last)
	}
}

func TestRunTwoRoundsThreeModelCalls(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "get_course_outline", `{"course_title":"MCP"}`),
		toolTurn("toolu_02", "search_course_content", `{"query":"lesson 4 content"}`),
		textTurn("Lesson 4 covers building an MCP client."),
	}}
	gen := NewGenerator(client)
	exec := &mockExecutor{}

	got := gen.Run(context.Background(), "What does lesson 4 of the MCP course cover?", "",
		testToolDefs(), exec)

	if got != "Lesson 4 covers building an MCP client." {
		t.Errorf("expected text from the third call, got %q", got)
	}
	if len(client.calls) != 3 {
		t.Fatalf("expected exactly 3 model calls, got %d", len(client.calls))
	}
	if len(exec.names) != 2 {
		t.Fatalf("expected 2 tool executions, got %d", len(exec.names))
	}
	// Tools stay on offer through the synthesis call.
	if len(client.calls[2].tools) == 0 {
		t.Error("synthesis call should still offer tools")
	}
}

func TestRunForcedNoToolsFinalCall(t *testing.T) {
	// The model requests a tool on every call it is offered one.
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"a"}`),
		toolTurn("toolu_02", "search_course_content", `{"query":"b"}`),
		toolTurn("toolu_03", "search_course_content", `{"query":"c"}`),
		textTurn("forced synthesis"),
	}}
	gen := NewGenerator(client)
	exec := &mockExecutor{}

	got := gen.Run(context.Background(), "greedy query", "", testToolDefs(), exec)

	if got != "forced synthesis" {
		t.Errorf("expected forced final answer, got %q", got)
	}
	if len(client.calls) != 4 {
		t.Fatalf("expected 4 model calls, got %d", len(client.calls))
	}
	if len(client.calls[3].tools) != 0 {
		t.Error("final call must withhold tools")
	}
	if len(exec.names) != 3 {
		t.Errorf("expected 3 tool executions, got %d", len(exec.names))
	}
}

func TestRunToolErrorBecomesResultRecord(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"x"}`),
		textTurn("answered around the failure"),
	}}
	gen := NewGenerator(client)
	exec := &mockExecutor{fn: func(name string, args map[string]any) (string, error) {
		return "", fmt.Errorf("index unavailable")
	}}

	got := gen.Run(context.Background(), "q", "", testToolDefs(), exec)

	if got != "answered around the failure" {
		t.Errorf("tool failure must not abort the loop, got %q", got)
	}
	second := client.calls[1].messages
	last := second[len(second)-1]
	if last.Role != "tool" || last.Content != "Error executing tool: index unavailable" {
		t.Errorf("expected error-content result record, got %+v", last)
	}
}

func TestRunToolPanicBecomesResultRecord(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"x"}`),
		textTurn("survived"),
	}}
	gen := NewGenerator(client)
	exec := &mockExecutor{fn: func(name string, args map[string]any) (string, error) {
		panic("nil map write")
	}}

	got := gen.Run(context.Background(), "q", "", testToolDefs(), exec)

	if got != "survived" {
		t.Errorf("tool panic must not abort the loop, got %q", got)
	}
	second := client.calls[1].messages
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "Error executing tool:") ||
		!strings.Contains(last.Content, "panicked") {
		t.Errorf("expected panic captured in result record, got %q", last.Content)
	}
}

func TestRunModelErrorFirstRound(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		errorTurn("connection refused"),
	}}
	gen := NewGenerator(client)

	got := gen.Run(context.Background(), "q", "", testToolDefs(), &mockExecutor{})

	if got != fallbackFirstRound {
		t.Errorf("expected first-round fallback, got %q", got)
	}
}

func TestRunModelErrorSecondRound(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"x"}`),
		errorTurn("rate limited"),
	}}
	gen := NewGenerator(client)

	got := gen.Run(context.Background(), "q", "", testToolDefs(), &mockExecutor{})

	if got != fallbackPartial {
		t.Errorf("expected partial-context fallback, got %q", got)
	}
}

func TestRunForcedFinalFailureExhausted(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"a"}`),
		toolTurn("toolu_02", "search_course_content", `{"query":"b"}`),
		toolTurn("toolu_03", "search_course_content", `{"query":"c"}`),
		errorTurn("model down"),
	}}
	gen := NewGenerator(client)

	got := gen.Run(context.Background(), "q", "", testToolDefs(), &mockExecutor{})

	if got != fallbackExhausted {
		t.Errorf("expected exhausted fallback, got %q", got)
	}
}

func TestRunToolRequestWithoutExecutor(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		func(capturedCall) (*llm.ChatWithToolsResult, error) {
			return &llm.ChatWithToolsResult{
				Content:    "Let me look that up.",
				StopReason: "tool_use",
				ToolCalls: []llm.ToolCallResponse{
					{ID: "toolu_01", Name: "search_course_content"},
				},
			}, nil
		},
	}}
	gen := NewGenerator(client)

	got := gen.Run(context.Background(), "q", "", testToolDefs(), nil)

	if got != "Let me look that up." {
		t.Errorf("expected textual degradation, got %q", got)
	}
	if len(client.calls) != 1 {
		t.Errorf("no further calls expected without an executor, got %d", len(client.calls))
	}
}

func TestRunConfiguredMaxRounds(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		toolTurn("toolu_01", "search_course_content", `{"query":"mcp"}`),
		textTurn("Answer after one round."),
	}}
	gen := NewGeneratorWithConfig(client, GeneratorConfig{MaxRounds: 1})
	exec := &mockExecutor{}

	got := gen.Run(context.Background(), "q", "", testToolDefs(), exec)

	if got != "Answer after one round." {
		t.Errorf("unexpected answer %q", got)
	}
	// One tool-bearing round, then the synthesis call with tools still
	// offered.
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(client.calls))
	}
	if len(client.calls[1].tools) == 0 {
		t.Error("synthesis call should still offer tools")
	}
	if len(exec.names) != 1 {
		t.Errorf("expected 1 tool execution, got %d", len(exec.names))
	}
}

func TestRunConfiguredGenerationParams(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		textTurn("ok"),
	}}
	gen := NewGeneratorWithConfig(client, GeneratorConfig{MaxTokens: 512, Temperature: 0.3})

	gen.Run(context.Background(), "q", "", nil, nil)

	params := client.calls[0].params
	if params.MaxTokens == nil || *params.MaxTokens != 512 {
		t.Errorf("max tokens not threaded: %v", params.MaxTokens)
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("temperature not threaded: %v", params.Temperature)
	}
}

func TestRunDefaultGenerationParams(t *testing.T) {
	client := &mockClient{script: []func(capturedCall) (*llm.ChatWithToolsResult, error){
		textTurn("ok"),
	}}
	gen := NewGenerator(client)

	gen.Run(context.Background(), "q", "", nil, nil)

	params := client.calls[0].params
	if params.MaxTokens == nil || *params.MaxTokens != 800 {
		t.Errorf("unexpected default max tokens: %v", params.MaxTokens)
	}
	if params.Temperature == nil || *params.Temperature != 0 {
		t.Errorf("unexpected default temperature: %v", params.Temperature)
	}
}

func TestBuildSystemContent(t *testing.T) {
	if got := BuildSystemContent(""); got != systemPrompt {
		t.Error("empty history must return the bare prompt")
	}
	got := BuildSystemContent("User: hi")
	if !strings.HasSuffix(got, "Previous conversation:\nUser: hi") {
		t.Errorf("history block malformed:\n%s", got)
	}
}
