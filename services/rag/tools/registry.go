// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools holds the tool catalog the model can call during a RAG
// query: the registry mapping tool names to capabilities, per-query
// execution sessions, and the two concrete course tools.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LecternAI/Lectern/services/llm"
)

// ErrUnknownTool reports an execution request for an unregistered name.
// The generator converts it into an error-content tool result; it never
// reaches the caller of a query.
var ErrUnknownTool = errors.New("unknown tool")

// SourceRecord is one citation surfaced to the end user.
//
// Description:
//
//	Produced as a side effect of tool execution, separate from the text
//	returned to the model. Text is a display label such as
//	"Introduction to MCP - Lesson 1"; Link is a lesson or course URL
//	when one could be resolved.
type SourceRecord struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// SourceRecorder accumulates the sources produced by one query's tool
// executions.
//
// Description:
//
//	One recorder exists per ExecSession, i.e. per query. Keeping the
//	provenance here instead of on the tool instances means two queries
//	sharing a registry can never see each other's sources and no lock
//	is needed: a query is a single sequential flow.
type SourceRecorder struct {
	records []SourceRecord
}

// Add appends a source record.
func (r *SourceRecorder) Add(rec SourceRecord) {
	r.records = append(r.records, rec)
}

// Records returns the accumulated sources in execution order.
func (r *SourceRecorder) Records() []SourceRecord {
	return r.records
}

// Reset drops all accumulated sources.
func (r *SourceRecorder) Reset() {
	r.records = nil
}

// Tool is a named capability the model may request.
//
// Thread Safety: Implementations must be safe for concurrent Execute
// calls from different queries; per-query state belongs in the
// SourceRecorder, never on the tool.
type Tool interface {
	// Name returns the unique tool name the model calls.
	Name() string

	// Definition returns the declarative schema offered to the model.
	Definition() llm.ToolDef

	// Execute runs the tool with decoded keyword arguments, recording
	// any citations on rec. The returned string goes back to the model
	// as the tool result.
	Execute(ctx context.Context, args map[string]any, rec *SourceRecorder) (string, error)
}

// Registry maps tool names to capabilities.
//
// Description:
//
//	Long-lived and shared across queries. Registration happens at
//	startup; after that the registry is read-only, so per-query
//	ExecSessions can share it freely.
//
// Thread Safety: Safe for concurrent use via sync.RWMutex.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are a configuration error and
// fail loudly rather than silently replacing.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return errors.New("tools: nil tool")
	}
	name := tool.Name()
	if name == "" {
		return errors.New("tools: tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: %q already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Definitions returns the tool schemas in registration order.
func (r *Registry) Definitions() []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// get looks up a tool by name.
func (r *Registry) get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Session creates a per-query execution session with its own source
// recorder.
func (r *Registry) Session() *ExecSession {
	return &ExecSession{registry: r, recorder: &SourceRecorder{}}
}

// ExecSession executes tools for one query and tracks that query's
// provenance.
//
// Description:
//
//	The generator calls Execute once per requested invocation. After the
//	loop terminates, the caller reads Sources exactly once and then
//	Resets, guaranteeing no stale sources leak into the next query.
//
// Thread Safety: An ExecSession belongs to a single query's sequential
// flow and must not be shared across queries.
type ExecSession struct {
	registry *Registry
	recorder *SourceRecorder
}

// Execute runs the named tool with the given arguments.
//
// Outputs:
//   - string: The tool result text for the model.
//   - error: ErrUnknownTool for unregistered names, or the tool's own
//     execution error. Callers convert errors to result records.
func (s *ExecSession) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := s.registry.get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool.Execute(ctx, args, s.recorder)
}

// Sources returns the citations accumulated by this session.
func (s *ExecSession) Sources() []SourceRecord {
	return s.recorder.Records()
}

// Reset clears the session's citations.
func (s *ExecSession) Reset() {
	s.recorder.Reset()
}
