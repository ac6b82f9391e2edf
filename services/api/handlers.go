// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package api exposes the RAG pipeline over HTTP: query submission,
// course statistics, and session creation.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LecternAI/Lectern/services/rag"
)

// QuerySystem is the pipeline surface the HTTP layer depends on.
// Satisfied by *rag.System.
type QuerySystem interface {
	Query(ctx context.Context, query, sessionID string) (*rag.QueryResult, error)
	NewSession(ctx context.Context) (string, error)
	CourseAnalytics(ctx context.Context) (int, []string, error)
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	// Query is the user's question. Required.
	Query string `json:"query" binding:"required"`

	// SessionID continues an existing conversation. A new session is
	// minted when absent.
	SessionID string `json:"session_id"`
}

// SourceData is one citation in a query response.
type SourceData struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// QueryResponse is the body returned by POST /v1/query.
type QueryResponse struct {
	Answer    string       `json:"answer"`
	Sources   []SourceData `json:"sources"`
	SessionID string       `json:"session_id"`
}

// CourseStats is the body returned by GET /v1/courses.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// NewChatResponse is the body returned by POST /v1/sessions.
type NewChatResponse struct {
	SessionID string `json:"session_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handlers holds the HTTP handlers for the query API.
//
// Thread Safety: Safe for concurrent use; all state lives in the
// underlying system.
type Handlers struct {
	system QuerySystem
}

// NewHandlers creates the handler set over the given system.
func NewHandlers(system QuerySystem) *Handlers {
	return &Handlers{system: system}
}

// HandleQuery processes one question and returns the answer with its
// citations. Generation failures resolve to degraded answer text
// inside the pipeline, so a 500 here means the session layer failed.
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query field is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.system.Query(c.Request.Context(), req.Query, req.SessionID)
	if err != nil {
		logger.Error("query failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "query processing failed",
			Code:  "QUERY_FAILED",
		})
		return
	}

	sources := make([]SourceData, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, SourceData{Text: s.Text, Link: s.Link})
	}

	logger.Info("query answered",
		slog.String("session_id", result.SessionID),
		slog.Int("sources", len(sources)),
	)
	c.JSON(http.StatusOK, QueryResponse{
		Answer:    result.Answer,
		Sources:   sources,
		SessionID: result.SessionID,
	})
}

// HandleCourses returns course statistics for the index.
func (h *Handlers) HandleCourses(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCourses")

	total, titles, err := h.system.CourseAnalytics(c.Request.Context())
	if err != nil {
		logger.Error("course analytics failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "course index unavailable",
			Code:  "INDEX_UNAVAILABLE",
		})
		return
	}
	if titles == nil {
		titles = []string{}
	}
	c.JSON(http.StatusOK, CourseStats{TotalCourses: total, CourseTitles: titles})
}

// HandleNewSession mints a fresh conversation session.
func (h *Handlers) HandleNewSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNewSession")

	id, err := h.system.NewSession(c.Request.Context())
	if err != nil {
		logger.Error("session creation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "session creation failed",
			Code:  "SESSION_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, NewChatResponse{SessionID: id})
}

// HandleHealth reports process liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleReady reports whether the course index is reachable.
func (h *Handlers) HandleReady(c *gin.Context) {
	if _, _, err := h.system.CourseAnalytics(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "course index unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Header("X-Request-ID", id)
	return id
}
