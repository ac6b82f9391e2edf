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
	"strings"

	"github.com/LecternAI/Lectern/services/llm"
	"github.com/LecternAI/Lectern/services/vectorstore"
)

// OutlineToolName is the name the model uses to fetch a course outline.
const OutlineToolName = "get_course_outline"

// CourseOutlineTool returns a course's title, link, instructor, and full
// lesson list.
//
// Thread Safety: Safe for concurrent use; all per-query state lives in
// the SourceRecorder.
type CourseOutlineTool struct {
	store vectorstore.Store
}

// NewCourseOutlineTool creates the outline tool over the given store.
func NewCourseOutlineTool(store vectorstore.Store) *CourseOutlineTool {
	return &CourseOutlineTool{store: store}
}

// Name implements Tool.
func (t *CourseOutlineTool) Name() string { return OutlineToolName }

// Definition implements Tool.
func (t *CourseOutlineTool) Definition() llm.ToolDef {
	return llm.ToolDef{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        OutlineToolName,
			Description: "Get the complete outline of a course including title, link, instructor, and all lessons",
			Parameters: llm.ToolParameters{
				Type: "object",
				Properties: map[string]llm.ToolParamDef{
					"course_title": {
						Type:        "string",
						Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
				},
				Required: []string{"course_title"},
			},
		},
	}
}

// Execute implements Tool.
func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any, rec *SourceRecorder) (string, error) {
	title, ok := args["course_title"].(string)
	if !ok || title == "" {
		return "", errors.New("get_course_outline: missing required argument 'course_title'")
	}

	course, err := t.store.GetCourseOutline(ctx, title)
	if err != nil {
		// Store errors go back to the model as text, same policy as search.
		return err.Error(), nil
	}
	if course == nil {
		return fmt.Sprintf("No course found matching '%s'", title), nil
	}

	rec.Add(SourceRecord{Text: course.Title, Link: course.Link})

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&b, "Total Lessons: %d\n", len(course.Lessons))
	if len(course.Lessons) > 0 {
		b.WriteString("\nLessons:\n")
		for _, lesson := range course.Lessons {
			fmt.Fprintf(&b, "%d. %s\n", lesson.Number, lesson.Title)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
