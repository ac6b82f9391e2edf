// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rag contains the answer-generation core: the bounded
// tool-orchestration loop that drives a chat model through at most two
// tool-bearing rounds against the course index, plus the fallback
// policy that converts every model or tool failure into user-facing
// text.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LecternAI/Lectern/services/llm"
)

// generatorTracerName identifies spans emitted by the orchestration loop.
const generatorTracerName = "lectern/rag/generator"

// Generation defaults, used when GeneratorConfig leaves a knob zero.
// Two rounds cover the broad-then-refine pattern while bounding latency
// and cost.
const (
	defaultMaxRounds = 2
	defaultMaxTokens = 800
)

// GeneratorConfig tunes the orchestration loop. Zero values select the
// defaults, so the empty struct is a valid configuration.
type GeneratorConfig struct {
	// MaxRounds caps the tool-bearing rounds per query.
	MaxRounds int

	// MaxTokens bounds every model response issued by the generator.
	MaxTokens int

	// Temperature is the sampling temperature for every model call.
	Temperature float32
}

// ToolExecutor runs a named tool for one query. Satisfied by
// *tools.ExecSession; the generator never touches provenance, only
// execution.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// loopState enumerates the orchestration states. The transition rules
// live in Generator.Run; keeping them explicit makes the round cap and
// the forced final call auditable.
type loopState int

const (
	stateRoundActive loopState = iota
	stateAwaitingTools
	stateFinalSynthesis
	stateDone
)

// Generator drives the bounded multi-round interaction between the
// model capability and the tool executor.
//
// Description:
//
//	One Generator is shared by all queries; it holds no per-query
//	state. Each Run owns its own message transcript, and provenance
//	lives on the per-query executor, so concurrent Runs never
//	interfere.
//
// Thread Safety: Safe for concurrent use.
type Generator struct {
	client      llm.ToolCallingClient
	logger      *slog.Logger
	maxRounds   int
	maxTokens   int
	temperature float32
}

// NewGenerator creates a Generator over the given model capability with
// the default knobs.
func NewGenerator(client llm.ToolCallingClient) *Generator {
	return NewGeneratorWithConfig(client, GeneratorConfig{})
}

// NewGeneratorWithConfig creates a Generator with explicit knobs. Zero
// values in cfg fall back to the defaults.
func NewGeneratorWithConfig(client llm.ToolCallingClient, cfg GeneratorConfig) *Generator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Generator{
		client:      client,
		logger:      slog.Default(),
		maxRounds:   cfg.MaxRounds,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Run answers one query, using at most maxRounds tool-bearing rounds
// followed by one forced synthesis call.
//
// Description:
//
//	State machine: ROUND_ACTIVE issues a model call with tools offered;
//	a direct answer terminates, a tool request moves to AWAITING_TOOLS.
//	AWAITING_TOOLS executes every requested invocation in order, merges
//	the batch into the transcript, and either starts the next round or
//	(at the cap) moves to FINAL_SYNTHESIS. FINAL_SYNTHESIS issues one
//	more call with tools still offered; if the model requests tools yet
//	again those run once more and a last call is made with tools
//	withheld, forcing text. The loop therefore always terminates with
//	text and never surfaces a model or tool error to the caller.
//
// Inputs:
//   - ctx: Context for cancellation; the loop performs no internal
//     timeouts.
//   - query: The user's question.
//   - history: Rendered prior conversation, or "" for a fresh session.
//   - toolDefs: Tool catalog offered to the model. Nil or empty forces
//     direct-answer mode.
//   - exec: Executor for requested tools. May be nil, in which case a
//     tool request degrades to its textual form.
//
// Outputs:
//   - string: The answer text. Never empty on model failure; the
//     fallback policy substitutes a degraded message.
//
// Thread Safety: Safe for concurrent use; each call owns its state.
func (g *Generator) Run(ctx context.Context, query, history string,
	toolDefs []llm.ToolDef, exec ToolExecutor) string {

	start := time.Now()
	defer func() { queryDurationSeconds.Observe(time.Since(start).Seconds()) }()

	messages := []llm.ChatMessage{
		{Role: "system", Content: BuildSystemContent(history)},
		{Role: "user", Content: query},
	}

	round := 0
	state := stateRoundActive
	var answer string
	var pending *llm.ChatWithToolsResult

	for state != stateDone {
		switch state {
		case stateRoundActive:
			round++
			result, err := g.callRound(ctx, round, messages, toolDefs)
			if err != nil {
				g.logger.Error("model call failed",
					slog.Int("round", round), slog.String("error", err.Error()))
				return g.recordFallback(round)
			}
			if !result.RequestedTools() {
				answer = result.Content
				state = stateDone
				break
			}
			pending = result
			state = stateAwaitingTools

		case stateAwaitingTools:
			if exec == nil {
				// Tools offered without an executor: degrade to the
				// textual form of the request rather than hanging.
				answer = renderToolRequests(pending)
				state = stateDone
				break
			}
			messages = g.mergeToolRound(ctx, messages, pending, exec)
			if round < g.maxRounds {
				state = stateRoundActive
			} else {
				state = stateFinalSynthesis
			}

		case stateFinalSynthesis:
			answer = g.finalSynthesis(ctx, messages, toolDefs, exec)
			state = stateDone
		}
	}

	queryRounds.Observe(float64(round))
	return answer
}

// callRound wraps one tool-bearing round's model call in a span.
func (g *Generator) callRound(ctx context.Context, round int,
	messages []llm.ChatMessage, toolDefs []llm.ToolDef) (*llm.ChatWithToolsResult, error) {

	ctx, span := otel.Tracer(generatorTracerName).Start(ctx, "rag.Generator.round",
		trace.WithAttributes(attribute.Int("round", round)))
	defer span.End()

	result, err := g.callModel(ctx, messages, toolDefs)
	if err == nil {
		span.SetAttributes(attribute.Bool("tools.requested", result.RequestedTools()))
	}
	return result, err
}

// callModel issues one model call, offering tools when the catalog is
// non-empty, and records the outcome metric.
func (g *Generator) callModel(ctx context.Context, messages []llm.ChatMessage,
	toolDefs []llm.ToolDef) (*llm.ChatWithToolsResult, error) {

	temperature := g.temperature
	maxTokens := g.maxTokens
	params := llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if len(toolDefs) > 0 {
		params.ToolChoice = llm.ToolChoiceAuto
	}

	result, err := g.client.ChatWithTools(ctx, messages, params, toolDefs)
	if err != nil {
		modelCallsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	modelCallsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// mergeToolRound appends the assistant's tool-use turn and a single
// batch of result records to the transcript.
//
// Description:
//
//	Every requested invocation produces exactly one result record. A
//	failing execution is captured as an error-content record and the
//	remaining requests still run; the model gets to respond around the
//	failure on the next call.
func (g *Generator) mergeToolRound(ctx context.Context, messages []llm.ChatMessage,
	result *llm.ChatWithToolsResult, exec ToolExecutor) []llm.ChatMessage {

	messages = append(messages, llm.ChatMessage{
		Role:      "assistant",
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
	})

	for _, call := range result.ToolCalls {
		out, err := g.executeOne(ctx, exec, call)
		status := "ok"
		if err != nil {
			out = fmt.Sprintf("Error executing tool: %s", err)
			status = "error"
		}
		toolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
		messages = append(messages, llm.ChatMessage{
			Role:       "tool",
			Content:    out,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}
	return messages
}

// executeOne runs a single tool call, converting a panicking tool into
// an execution error so one bad tool cannot take down the query.
func (g *Generator) executeOne(ctx context.Context, exec ToolExecutor,
	call llm.ToolCallResponse) (out string, err error) {

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("tool panicked",
				slog.String("tool", call.Name), slog.Any("panic", r))
			err = fmt.Errorf("tool %q panicked: %v", call.Name, r)
		}
	}()

	args, err := call.ArgumentsMap()
	if err != nil {
		return "", fmt.Errorf("decoding arguments for %q: %w", call.Name, err)
	}
	return exec.Execute(ctx, call.Name, args)
}

// finalSynthesis runs the post-cap exchange: one call with tools still
// offered, and if the model asks for tools once more, one further call
// with tools withheld to force a terminal text answer.
func (g *Generator) finalSynthesis(ctx context.Context, messages []llm.ChatMessage,
	toolDefs []llm.ToolDef, exec ToolExecutor) string {

	result, err := g.callModel(ctx, messages, toolDefs)
	if err != nil {
		g.logger.Error("final synthesis call failed", slog.String("error", err.Error()))
		return g.recordFallback(g.maxRounds + 1)
	}
	if !result.RequestedTools() {
		return result.Content
	}
	if exec == nil {
		return renderToolRequests(result)
	}

	messages = g.mergeToolRound(ctx, messages, result, exec)

	// Tools withheld entirely: the client omits the catalog from the
	// wire request, so the model has no choice but to answer in text.
	final, err := g.callModel(ctx, messages, nil)
	if err != nil {
		g.logger.Error("forced no-tools call failed", slog.String("error", err.Error()))
		fallbacksTotal.WithLabelValues("exhausted").Inc()
		return fallbackExhausted
	}
	return final.Content
}

// recordFallback counts and returns the round-dependent degraded
// response for a failed model call.
func (g *Generator) recordFallback(round int) string {
	if round <= 1 {
		fallbacksTotal.WithLabelValues("first_round").Inc()
	} else {
		fallbacksTotal.WithLabelValues("partial").Inc()
	}
	return modelCallFallback(round)
}

// renderToolRequests degrades an unexecutable tool request to text.
func renderToolRequests(result *llm.ChatWithToolsResult) string {
	if result.Content != "" {
		return result.Content
	}
	names := make([]string, 0, len(result.ToolCalls))
	for _, call := range result.ToolCalls {
		names = append(names, call.Name)
	}
	return fmt.Sprintf("[tool requests: %s]", strings.Join(names, ", "))
}
