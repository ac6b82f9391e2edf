// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/LecternAI/Lectern/services/llm"
	"github.com/LecternAI/Lectern/services/vectorstore"
)

// SearchToolName is the name the model uses to call the content search.
const SearchToolName = "search_course_content"

// CourseSearchTool searches course content with smart course name matching
// and optional lesson filtering.
//
// Description:
//
//	Store errors are returned to the model as result text, verbatim,
//	never as a Go error: the model gets a chance to respond around the
//	failure. Only argument decoding problems produce an error return.
//
// Thread Safety: Safe for concurrent use; all per-query state lives in
// the SourceRecorder.
type CourseSearchTool struct {
	store vectorstore.Store
}

// NewCourseSearchTool creates the search tool over the given store.
func NewCourseSearchTool(store vectorstore.Store) *CourseSearchTool {
	return &CourseSearchTool{store: store}
}

// Name implements Tool.
func (t *CourseSearchTool) Name() string { return SearchToolName }

// Definition implements Tool.
func (t *CourseSearchTool) Definition() llm.ToolDef {
	return llm.ToolDef{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        SearchToolName,
			Description: "Search course materials with smart course name matching and lesson filtering",
			Parameters: llm.ToolParameters{
				Type: "object",
				Properties: map[string]llm.ToolParamDef{
					"query": {
						Type:        "string",
						Description: "What to search for in course content",
					},
					"course_name": {
						Type:        "string",
						Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": {
						Type:        "integer",
						Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

// Execute implements Tool.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]any, rec *SourceRecorder) (string, error) {
	// An empty query string is legal and flows to the store; only a
	// missing or non-string argument is a caller error.
	query, ok := args["query"].(string)
	if !ok {
		return "", errors.New("search_course_content: missing required argument 'query'")
	}

	courseName, _ := args["course_name"].(string)
	var lessonNumber *int
	if raw, present := args["lesson_number"]; present {
		n, err := asInt(raw)
		if err != nil {
			return "", fmt.Errorf("search_course_content: argument 'lesson_number': %w", err)
		}
		lessonNumber = &n
	}

	results := t.store.Search(ctx, query, courseName, lessonNumber)

	// Store errors go back to the model verbatim.
	if results.Err != "" {
		return results.Err, nil
	}

	if results.IsEmpty() {
		var filterInfo strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filterInfo, " in course '%s'", courseName)
		}
		if lessonNumber != nil {
			fmt.Fprintf(&filterInfo, " in lesson %d", *lessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filterInfo.String()), nil
	}

	return t.formatResults(ctx, results, rec), nil
}

// formatResults renders hits with bracketed context headers and records
// one source per chunk.
func (t *CourseSearchTool) formatResults(ctx context.Context, results vectorstore.SearchResults, rec *SourceRecorder) string {
	var formatted []string

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		label := meta.CourseTitle
		if label == "" {
			label = "unknown"
		}
		link := ""
		if meta.LessonNumber != nil {
			label = fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, *meta.LessonNumber)
			link = t.store.GetLessonLink(ctx, meta.CourseTitle, *meta.LessonNumber)
		}

		rec.Add(SourceRecord{Text: label, Link: link})
		formatted = append(formatted, fmt.Sprintf("[%s]\n%s", label, doc))
	}

	return strings.Join(formatted, "\n\n")
}

// asInt accepts the numeric encodings JSON decoding can produce.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
