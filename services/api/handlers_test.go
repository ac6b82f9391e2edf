// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/LecternAI/Lectern/services/rag"
	"github.com/LecternAI/Lectern/services/rag/tools"
)

// mockSystem implements QuerySystem with per-test override funcs.
type mockSystem struct {
	queryFunc      func(ctx context.Context, query, sessionID string) (*rag.QueryResult, error)
	newSessionFunc func(ctx context.Context) (string, error)
	analyticsFunc  func(ctx context.Context) (int, []string, error)
}

func (m *mockSystem) Query(ctx context.Context, query, sessionID string) (*rag.QueryResult, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, query, sessionID)
	}
	return &rag.QueryResult{Answer: "answer", SessionID: "session_test"}, nil
}

func (m *mockSystem) NewSession(ctx context.Context) (string, error) {
	if m.newSessionFunc != nil {
		return m.newSessionFunc(ctx)
	}
	return "session_new", nil
}

func (m *mockSystem) CourseAnalytics(ctx context.Context) (int, []string, error) {
	if m.analyticsFunc != nil {
		return m.analyticsFunc(ctx)
	}
	return 0, nil, nil
}

func newTestRouter(system QuerySystem) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(system))
	return router
}

func TestHandleQuery(t *testing.T) {
	system := &mockSystem{
		queryFunc: func(ctx context.Context, query, sessionID string) (*rag.QueryResult, error) {
			if query != "What is MCP?" {
				t.Errorf("query not forwarded: got %q", query)
			}
			return &rag.QueryResult{
				Answer: "MCP is a protocol.",
				Sources: []tools.SourceRecord{
					{Text: "Introduction to MCP - Lesson 1", Link: "https://example.com/1"},
				},
				SessionID: "session_abc",
			}, nil
		},
	}
	router := newTestRouter(system)

	body, _ := json.Marshal(QueryRequest{Query: "What is MCP?"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "MCP is a protocol." || resp.SessionID != "session_abc" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Link != "https://example.com/1" {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
}

func TestHandleQueryForwardsSessionID(t *testing.T) {
	var gotSession string
	system := &mockSystem{
		queryFunc: func(ctx context.Context, query, sessionID string) (*rag.QueryResult, error) {
			gotSession = sessionID
			return &rag.QueryResult{Answer: "ok", SessionID: sessionID}, nil
		},
	}
	router := newTestRouter(system)

	body, _ := json.Marshal(QueryRequest{Query: "follow-up", SessionID: "session_prior"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if gotSession != "session_prior" {
		t.Errorf("session ID not forwarded: got %q", gotSession)
	}
}

func TestHandleQueryRejectsMissingQuery(t *testing.T) {
	router := newTestRouter(&mockSystem{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuerySystemError(t *testing.T) {
	system := &mockSystem{
		queryFunc: func(ctx context.Context, query, sessionID string) (*rag.QueryResult, error) {
			return nil, errors.New("session store down")
		},
	}
	router := newTestRouter(system)

	body, _ := json.Marshal(QueryRequest{Query: "q"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "QUERY_FAILED" {
		t.Errorf("unexpected error code %q", resp.Code)
	}
}

func TestHandleCourses(t *testing.T) {
	system := &mockSystem{
		analyticsFunc: func(ctx context.Context) (int, []string, error) {
			return 2, []string{"Course A", "Course B"}, nil
		},
	}
	router := newTestRouter(system)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/courses", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp CourseStats
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalCourses != 2 || len(resp.CourseTitles) != 2 {
		t.Errorf("unexpected stats %+v", resp)
	}
}

func TestHandleNewSession(t *testing.T) {
	router := newTestRouter(&mockSystem{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp NewChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID != "session_new" {
		t.Errorf("unexpected session ID %q", resp.SessionID)
	}
}

func TestHandleHealthAndReady(t *testing.T) {
	router := newTestRouter(&mockSystem{})

	for _, path := range []string{"/v1/health", "/v1/ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestHandleReadyIndexDown(t *testing.T) {
	system := &mockSystem{
		analyticsFunc: func(ctx context.Context) (int, []string, error) {
			return 0, nil, errors.New("weaviate unreachable")
		},
	}
	router := newTestRouter(system)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
