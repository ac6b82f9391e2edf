// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `Course Title: Introduction to MCP
Course Link: https://example.com/mcp
Course Instructor: Jane Doe

Lesson 0: Welcome
Lesson Link: https://example.com/mcp/0
Welcome to the course. This lesson explains what to expect.

Lesson 1: What is MCP
Lesson Link: https://example.com/mcp/1
MCP is a protocol. Servers expose tools to language models. Clients connect to servers.
`

func TestProcessorParsesHeaderAndLessons(t *testing.T) {
	p := NewProcessor(0, 0)

	course, chunks, err := p.Process(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "Introduction to MCP", course.Title)
	assert.Equal(t, "https://example.com/mcp", course.Link)
	assert.Equal(t, "Jane Doe", course.Instructor)

	require.Len(t, course.Lessons, 2)
	assert.Equal(t, 0, course.Lessons[0].Number)
	assert.Equal(t, "Welcome", course.Lessons[0].Title)
	assert.Equal(t, "https://example.com/mcp/0", course.Lessons[0].Link)
	assert.Equal(t, "What is MCP", course.Lessons[1].Title)

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, "Introduction to MCP", chunk.CourseTitle)
		assert.Equal(t, i, chunk.ChunkIndex)
		require.NotNil(t, chunk.LessonNumber)
	}
	assert.Contains(t, chunks[0].Content, "Course Introduction to MCP Lesson 0 content:")
	assert.Contains(t, chunks[0].Content, "Welcome to the course.")
}

func TestProcessorRejectsMissingTitle(t *testing.T) {
	p := NewProcessor(0, 0)

	_, _, err := p.Process(strings.NewReader("Lesson 0: Intro\nSome text here.\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Course Title")
}

func TestProcessorChunkBudgetAndOverlap(t *testing.T) {
	// Many short sentences force multiple chunks under a small budget.
	var b strings.Builder
	b.WriteString("Course Title: Long Course\n\nLesson 1: Content\n")
	for i := 0; i < 40; i++ {
		b.WriteString("This sentence pads the lesson transcript with filler words. ")
	}
	p := NewProcessor(200, 60)

	_, chunks, err := p.Process(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	prefix := "Course Long Course Lesson 1 content: "
	for i := 1; i < len(chunks); i++ {
		prev := strings.TrimPrefix(chunks[i-1].Content, prefix)
		cur := strings.TrimPrefix(chunks[i].Content, prefix)
		// Overlap: each chunk opens with the tail of its predecessor.
		first := cur[:strings.Index(cur, ".")+1]
		assert.Contains(t, prev, first)
	}
}

func TestProcessorEmptyLessonProducesNoChunks(t *testing.T) {
	doc := "Course Title: Sparse\n\nLesson 1: Empty\nLesson Link: https://example.com/1\n"
	p := NewProcessor(0, 0)

	course, chunks, err := p.Process(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, course.Lessons, 1)
	assert.Empty(t, chunks)
}
