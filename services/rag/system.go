// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LecternAI/Lectern/services/llm"
	"github.com/LecternAI/Lectern/services/rag/tools"
	"github.com/LecternAI/Lectern/services/session"
	"github.com/LecternAI/Lectern/services/vectorstore"
)

// systemTracerName identifies spans emitted by the query pipeline.
const systemTracerName = "lectern/rag"

// QueryResult is the caller-facing outcome of one query.
type QueryResult struct {
	// Answer is the final text for the user.
	Answer string

	// Sources are the citations gathered by this query's tool
	// executions, in execution order. Never carries sources from a
	// previous query.
	Sources []tools.SourceRecord

	// SessionID identifies the conversation, minted when the caller
	// supplied none.
	SessionID string
}

// System wires the generator, tool catalog, session history, and course
// index into the caller-facing query contract.
//
// Thread Safety: Safe for concurrent use; each query gets its own tool
// execution session.
type System struct {
	generator *Generator
	registry  *tools.Registry
	sessions  session.Manager
	store     vectorstore.Store
	logger    *slog.Logger
}

// NewSystem assembles the query pipeline over the given collaborators,
// registering the course search and outline tools. Generation uses the
// default knobs.
func NewSystem(client llm.ToolCallingClient, store vectorstore.Store,
	sessions session.Manager) (*System, error) {
	return NewSystemWithConfig(client, store, sessions, GeneratorConfig{})
}

// NewSystemWithConfig assembles the query pipeline with explicit
// generation knobs.
func NewSystemWithConfig(client llm.ToolCallingClient, store vectorstore.Store,
	sessions session.Manager, cfg GeneratorConfig) (*System, error) {

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewCourseSearchTool(store)); err != nil {
		return nil, fmt.Errorf("registering search tool: %w", err)
	}
	if err := registry.Register(tools.NewCourseOutlineTool(store)); err != nil {
		return nil, fmt.Errorf("registering outline tool: %w", err)
	}

	return &System{
		generator: NewGeneratorWithConfig(client, cfg),
		registry:  registry,
		sessions:  sessions,
		store:     store,
		logger:    slog.Default(),
	}, nil
}

// Query answers one user question.
//
// Description:
//
//	Resolves or mints a session, renders its history into the system
//	content, runs the orchestration loop with a fresh tool execution
//	session, then records the exchange. Sources are read exactly once
//	from the per-query session and reset before returning, so a
//	follow-up query that uses no tools reports no sources.
//
// Outputs:
//   - *QueryResult: Answer, sources, and the effective session ID.
//   - error: Non-nil only for session-layer failures; generation
//     failures resolve to degraded answer text, never an error.
func (s *System) Query(ctx context.Context, query, sessionID string) (*QueryResult, error) {
	ctx, span := otel.Tracer(systemTracerName).Start(ctx, "rag.System.Query",
		trace.WithAttributes(
			attribute.Bool("session.provided", sessionID != ""),
		),
	)
	defer span.End()

	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		sessionID = id
	}

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		// A lost history degrades the answer, it does not block it.
		s.logger.Warn("session history unavailable",
			slog.String("session_id", sessionID), slog.String("error", err.Error()))
		history = ""
	}

	execSession := s.registry.Session()
	answer := s.generator.Run(ctx, query, history, s.registry.Definitions(), execSession)

	sources := execSession.Sources()
	execSession.Reset()
	span.SetAttributes(attribute.Int("sources.count", len(sources)))

	if err := s.sessions.AddExchange(ctx, sessionID, query, answer); err != nil {
		s.logger.Warn("recording exchange failed",
			slog.String("session_id", sessionID), slog.String("error", err.Error()))
	}

	return &QueryResult{Answer: answer, Sources: sources, SessionID: sessionID}, nil
}

// NewSession mints a fresh conversation session.
func (s *System) NewSession(ctx context.Context) (string, error) {
	return s.sessions.Create(ctx)
}

// CourseAnalytics reports how many courses are indexed and their titles.
func (s *System) CourseAnalytics(ctx context.Context) (int, []string, error) {
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("listing courses: %w", err)
	}
	return len(titles), titles, nil
}
